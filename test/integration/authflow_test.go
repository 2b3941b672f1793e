// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/holomush/authengine/internal/auth"
	authpg "github.com/holomush/authengine/internal/auth/postgres"
	"github.com/holomush/authengine/internal/auth/redisstore"
	"github.com/holomush/authengine/internal/httpapi"
	"github.com/holomush/authengine/internal/store"
	"github.com/holomush/authengine/internal/token"
)

// mailbox keeps every notification so tests can read codes and links.
type mailbox struct {
	mu   sync.Mutex
	sent []auth.Notification
}

func (m *mailbox) Notify(_ context.Context, n auth.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, n)
	return nil
}

func (m *mailbox) last(kind auth.NotificationKind) auth.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.sent) - 1; i >= 0; i-- {
		if m.sent[i].Kind == kind {
			return m.sent[i]
		}
	}
	Fail("no " + string(kind) + " notification sent")
	return auth.Notification{}
}

// testEnv holds the containers and the running API.
type testEnv struct {
	ctx     context.Context
	cancel  context.CancelFunc
	pg      testcontainers.Container
	redis   testcontainers.Container
	pool    *pgxpool.Pool
	client  *redis.Client
	mail    *mailbox
	server  *httptest.Server
	sweeper *auth.Sweeper
}

func setupTestEnv() (*testEnv, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	env := &testEnv{ctx: ctx, cancel: cancel, mail: &mailbox{}}

	pg, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("authengine_test"),
		postgres.WithUsername("authengine"),
		postgres.WithPassword("authengine"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		cancel()
		return nil, err
	}
	env.pg = pg

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		env.cleanup()
		return nil, err
	}
	migrator, err := store.NewMigrator(connStr)
	if err != nil {
		env.cleanup()
		return nil, err
	}
	if err := migrator.Up(); err != nil {
		_ = migrator.Close()
		env.cleanup()
		return nil, err
	}
	_ = migrator.Close()

	env.pool, err = store.Connect(ctx, connStr, store.DefaultPoolOptions())
	if err != nil {
		env.cleanup()
		return nil, err
	}

	env.redis, err = testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		env.cleanup()
		return nil, err
	}
	endpoint, err := env.redis.Endpoint(ctx, "")
	if err != nil {
		env.cleanup()
		return nil, err
	}
	env.client = redis.NewClient(&redis.Options{Addr: endpoint})

	router, err := env.wire()
	if err != nil {
		env.cleanup()
		return nil, err
	}
	env.server = httptest.NewServer(router)
	return env, nil
}

// wire assembles the services the way serve does, with a Redis ledger.
func (env *testEnv) wire() (http.Handler, error) {
	db := authpg.New(env.pool)
	ledger, err := redisstore.NewBlacklistRepository(env.client, "itest")
	if err != nil {
		return nil, err
	}

	keys := make(map[token.Type]token.Key)
	for i, typ := range token.Types() {
		keys[typ] = token.Key{
			Secret:   bytes.Repeat([]byte{byte('a' + i)}, token.MinSecretLength),
			Lifespan: time.Hour,
		}
	}
	codec, err := token.NewCodec(keys)
	if err != nil {
		return nil, err
	}
	hasher, err := auth.NewArgon2idHasher(auth.Argon2Params{Time: 1, Memory: 1024, Threads: 1, SaltLen: 16, KeyLen: 32})
	if err != nil {
		return nil, err
	}
	ids, err := auth.NewIDGenerator(auth.DefaultSessionIDAlphabet, auth.DefaultSessionIDLength)
	if err != nil {
		return nil, err
	}
	sessions, err := auth.NewSessionManager(db.Sessions(), codec, ids)
	if err != nil {
		return nil, err
	}
	guard, err := auth.NewGuard(ledger, 0)
	if err != nil {
		return nil, err
	}
	devices, err := auth.NewDeviceVerifier(auth.DeviceVerifierDeps{
		Challenges: db.DeviceVerifications(),
		Devices:    db.UserDevices(),
		Users:      db.Users(),
		Codec:      codec,
		Hasher:     hasher,
		UnitOfWork: db,
	})
	if err != nil {
		return nil, err
	}
	confirmations, err := auth.NewConfirmations(auth.ConfirmationsDeps{
		Users:      db.Users(),
		Sessions:   sessions,
		Devices:    devices,
		Guard:      guard,
		Codec:      codec,
		Hasher:     hasher,
		UnitOfWork: db,
		Notifier:   env.mail,
	})
	if err != nil {
		return nil, err
	}
	authenticator, err := auth.NewAuthenticator(auth.AuthenticatorDeps{
		Users:    db.Users(),
		Sessions: sessions,
		Devices:  devices,
		Hasher:   hasher,
		Notifier: env.mail,
	})
	if err != nil {
		return nil, err
	}
	env.sweeper, err = auth.NewSweeper(devices, ledger, db.Sessions(), time.Minute, nil)
	if err != nil {
		return nil, err
	}
	return httpapi.New(httpapi.Deps{
		Authenticator: authenticator,
		Sessions:      sessions,
		Confirmations: confirmations,
		Codec:         codec,
	})
}

func (env *testEnv) cleanup() {
	if env.server != nil {
		env.server.Close()
	}
	if env.client != nil {
		_ = env.client.Close()
	}
	if env.pool != nil {
		env.pool.Close()
	}
	ctx := context.Background()
	if env.redis != nil {
		_ = env.redis.Terminate(ctx)
	}
	if env.pg != nil {
		_ = env.pg.Terminate(ctx)
	}
	env.cancel()
}

type response struct {
	status int
	header http.Header
	body   []byte
}

func (r response) code() string {
	var body httpapi.ErrorBody
	Expect(json.Unmarshal(r.body, &body)).To(Succeed())
	return body.Code
}

func (env *testEnv) post(path string, body any, headers ...string) response {
	return env.call(http.MethodPost, path, body, headers...)
}

func (env *testEnv) call(method, path string, body any, headers ...string) response {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		Expect(err).NotTo(HaveOccurred())
	}
	req, err := http.NewRequestWithContext(env.ctx, method, env.server.URL+path, bytes.NewReader(payload))
	Expect(err).NotTo(HaveOccurred())
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := env.server.Client().Do(req)
	Expect(err).NotTo(HaveOccurred())
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	Expect(err).NotTo(HaveOccurred())
	return response{status: resp.StatusCode, header: resp.Header, body: buf.Bytes()}
}

func decode[T any](r response) T {
	var v T
	Expect(json.Unmarshal(r.body, &v)).To(Succeed(), string(r.body))
	return v
}

var _ = Describe("Credential lifecycle", Ordered, func() {
	var env *testEnv

	BeforeAll(func() {
		var err error
		env, err = setupTestEnv()
		Expect(err).NotTo(HaveOccurred())
	})

	AfterAll(func() {
		if env != nil {
			env.cleanup()
		}
	})

	const (
		email    = "grace@example.com"
		password = "cobol forever"
		deviceID = "workstation"
	)
	creds := map[string]string{"email": email, "password": password}
	var session httpapi.SessionResponse

	It("registers an account", func() {
		resp := env.post("/auth/register", creds)
		Expect(resp.status).To(Equal(http.StatusCreated), string(resp.body))

		resp = env.post("/auth/register", creds)
		Expect(resp.status).NotTo(Equal(http.StatusCreated))
	})

	It("challenges an unknown device and signs in once the code is confirmed", func() {
		resp := env.post("/auth/login", creds, httpapi.HeaderDeviceID, deviceID)
		Expect(resp.status).To(Equal(http.StatusAccepted), string(resp.body))
		challenge := decode[httpapi.ChallengeResponse](resp)
		code := env.mail.last(auth.NotifyDeviceCode).Code

		resp = env.post("/auth/device/confirm",
			map[string]string{"token": challenge.Token, "code": code},
			httpapi.HeaderDeviceID, deviceID)
		Expect(resp.status).To(Equal(http.StatusOK), string(resp.body))
		session = decode[httpapi.SessionResponse](resp)
		Expect(session.AccessToken).NotTo(BeEmpty())
	})

	It("trusts the confirmed device on the next login", func() {
		resp := env.post("/auth/login", creds, httpapi.HeaderDeviceID, deviceID)
		Expect(resp.status).To(Equal(http.StatusOK), string(resp.body))
	})

	It("lists both sessions for the bearer", func() {
		resp := env.call(http.MethodGet, "/auth/sessions", nil,
			httpapi.HeaderAuthorization, "Bearer "+session.AccessToken)
		Expect(resp.status).To(Equal(http.StatusOK), string(resp.body))
		Expect(decode[[]map[string]any](resp)).To(HaveLen(2))
	})

	It("redeems a password reset exactly once across the Redis ledger", func() {
		resp := env.post("/auth/password/forgot", map[string]string{"email": email})
		Expect(resp.status).To(Equal(http.StatusAccepted))
		link := env.mail.last(auth.NotifyPasswordReset).Token

		reset := map[string]string{"token": link, "password": "fortran too"}
		resp = env.post("/auth/password/reset", reset)
		Expect(resp.status).To(Equal(http.StatusNoContent), string(resp.body))

		resp = env.post("/auth/password/reset", reset)
		Expect(resp.status).To(Equal(http.StatusConflict))
		Expect(resp.code()).To(Equal(string(auth.KindRequestAlreadyUsed)))
	})

	It("signed every session out when the password changed", func() {
		resp := env.call(http.MethodGet, "/auth/sessions", nil,
			httpapi.HeaderAuthorization, "Bearer "+session.AccessToken)
		// The access token itself is still within its lifespan.
		Expect(resp.status).To(Equal(http.StatusOK))
		Expect(decode[[]map[string]any](resp)).To(BeEmpty())
	})

	It("rejects the old password and accepts the new one", func() {
		resp := env.post("/auth/login", creds, httpapi.HeaderDeviceID, deviceID)
		Expect(resp.status).To(Equal(http.StatusUnauthorized))
		Expect(resp.code()).To(Equal(string(auth.KindInvalidCredentials)))

		resp = env.post("/auth/login",
			map[string]string{"email": email, "password": "fortran too"},
			httpapi.HeaderDeviceID, deviceID)
		Expect(resp.status).To(Equal(http.StatusOK), string(resp.body))
		session = decode[httpapi.SessionResponse](resp)
	})

	It("logs out", func() {
		resp := env.post("/auth/logout", nil, httpapi.HeaderAuthorization, "Bearer "+session.AccessToken)
		Expect(resp.status).To(Equal(http.StatusNoContent), string(resp.body))
	})

	It("sweeps without errors against both stores", func() {
		report := env.sweeper.SweepOnce(env.ctx)
		Expect(report.Failed).To(BeEmpty())
		Expect(report.Deleted).To(HaveKey(auth.SweepBlacklistedTokens))
	})

	It("answers unknown routes with a JSON error", func() {
		resp := env.call(http.MethodGet, "/nope", nil)
		Expect(resp.status).To(Equal(http.StatusNotFound))
		Expect(strings.TrimSpace(string(resp.body))).To(HavePrefix("{"))
	})
})
