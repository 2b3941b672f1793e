// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth_test

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/holomush/authengine/internal/auth"
	"github.com/holomush/authengine/internal/auth/memory"
	"github.com/holomush/authengine/internal/token"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Now().Truncate(time.Second)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

var testLifespans = map[token.Type]time.Duration{
	token.Access:        15 * time.Minute,
	token.Refresh:       7 * 24 * time.Hour,
	token.EmailVerify:   24 * time.Hour,
	token.EmailChange:   time.Hour,
	token.ResetPassword: time.Hour,
	token.DeviceVerify:  10 * time.Minute,
	token.UserDeletion:  time.Hour,
}

func newTestCodec(t *testing.T, clock *fakeClock) *token.Codec {
	t.Helper()
	keys := make(map[token.Type]token.Key)
	for i, typ := range token.Types() {
		keys[typ] = token.Key{
			Secret:   bytes.Repeat([]byte{byte('k' + i)}, token.MinSecretLength),
			Lifespan: testLifespans[typ],
		}
	}
	codec, err := token.NewCodec(keys, token.WithClock(clock.Now))
	require.NoError(t, err)
	return codec
}

// recordingNotifier keeps every notification it receives.
type recordingNotifier struct {
	mu   sync.Mutex
	sent []auth.Notification
}

func (n *recordingNotifier) Notify(_ context.Context, msg auth.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
	return nil
}

func (n *recordingNotifier) last() auth.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.sent) == 0 {
		return auth.Notification{}
	}
	return n.sent[len(n.sent)-1]
}

// env wires every service over one in-memory store.
type env struct {
	clock         *fakeClock
	store         *memory.Store
	codec         *token.Codec
	hasher        *auth.Argon2idHasher
	notifier      *recordingNotifier
	sessions      *auth.SessionManager
	guard         *auth.Guard
	devices       *auth.DeviceVerifier
	confirmations *auth.Confirmations
	authenticator *auth.Authenticator
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{
		clock:    newFakeClock(),
		store:    memory.New(),
		hasher:   newTestHasher(t),
		notifier: &recordingNotifier{},
	}
	e.codec = newTestCodec(t, e.clock)

	ids, err := auth.NewIDGenerator(auth.DefaultSessionIDAlphabet, auth.DefaultSessionIDLength)
	require.NoError(t, err)
	e.sessions, err = auth.NewSessionManager(e.store.Sessions(), e.codec, ids)
	require.NoError(t, err)
	e.guard, err = auth.NewGuard(e.store.Blacklist(), 0)
	require.NoError(t, err)
	e.devices, err = auth.NewDeviceVerifier(auth.DeviceVerifierDeps{
		Challenges: e.store.DeviceVerifications(),
		Devices:    e.store.UserDevices(),
		Users:      e.store.Users(),
		Codec:      e.codec,
		Hasher:     e.hasher,
		UnitOfWork: e.store,
		Clock:      e.clock.Now,
	})
	require.NoError(t, err)
	e.confirmations, err = auth.NewConfirmations(auth.ConfirmationsDeps{
		Users:      e.store.Users(),
		Sessions:   e.sessions,
		Devices:    e.devices,
		Guard:      e.guard,
		Codec:      e.codec,
		Hasher:     e.hasher,
		UnitOfWork: e.store,
		Notifier:   e.notifier,
		Clock:      e.clock.Now,
	})
	require.NoError(t, err)
	e.authenticator, err = auth.NewAuthenticator(auth.AuthenticatorDeps{
		Users:    e.store.Users(),
		Sessions: e.sessions,
		Devices:  e.devices,
		Hasher:   e.hasher,
		Notifier: e.notifier,
		Clock:    e.clock.Now,
	})
	require.NoError(t, err)
	return e
}

// newUser stores a local account with the given password.
func (e *env) newUser(t *testing.T, email, password string) *auth.User {
	t.Helper()
	hash, err := e.hasher.Hash(password)
	require.NoError(t, err)
	user, err := auth.NewUser(email, hash, auth.ProviderLocal, e.clock.Now())
	require.NoError(t, err)
	require.NoError(t, e.store.Users().Create(context.Background(), user))
	return user
}

// newFederatedUser stores an account without a password.
func (e *env) newFederatedUser(t *testing.T, email string) *auth.User {
	t.Helper()
	user, err := auth.NewUser(email, "", "google", e.clock.Now())
	require.NoError(t, err)
	require.NoError(t, e.store.Users().Create(context.Background(), user))
	return user
}

func (e *env) sessionCount(t *testing.T, user *auth.User) int {
	t.Helper()
	sessions, err := e.store.Sessions().ListByUser(context.Background(), user.ID)
	require.NoError(t, err)
	return len(sessions)
}

func assertKind(t *testing.T, err error, kind auth.Kind) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, kind, auth.KindOf(err), "error: %v", err)
}
