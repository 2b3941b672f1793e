// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package memory

import (
	"context"
	"slices"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/holomush/authengine/internal/auth"
)

// Users is the in-memory auth.UserRepository.
type Users struct{ s *Store }

func (r *Users) emailTaken(email string, except ulid.ULID) bool {
	for id, u := range r.s.users {
		if id != except && u.Email == email {
			return true
		}
	}
	return false
}

// Create stores a new user.
func (r *Users) Create(_ context.Context, user *auth.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[user.ID]; ok || r.emailTaken(user.Email, user.ID) {
		return auth.ErrAlreadyExists
	}
	r.s.users[user.ID] = *user
	return nil
}

// GetByID retrieves a user.
func (r *Users) GetByID(_ context.Context, id ulid.ULID) (*auth.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	return &u, nil
}

// GetByEmail retrieves a user by normalized email.
func (r *Users) GetByEmail(_ context.Context, email string) (*auth.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, auth.ErrNotFound
}

func (r *Users) update(id ulid.ULID, fn func(u *auth.User) error) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return auth.ErrNotFound
	}
	if err := fn(&u); err != nil {
		return err
	}
	r.s.users[id] = u
	return nil
}

// UpdateLoginState stores the failure counter and lockout.
func (r *Users) UpdateLoginState(_ context.Context, id ulid.ULID, failedAttempts int, lockedUntil *time.Time) error {
	return r.update(id, func(u *auth.User) error {
		u.FailedAttempts = failedAttempts
		u.LockedUntil = lockedUntil
		u.UpdatedAt = time.Now()
		return nil
	})
}

// RecordLoginFailure increments the failure counter under the store lock.
func (r *Users) RecordLoginFailure(_ context.Context, id ulid.ULID, threshold int, lockUntil time.Time) (int, *time.Time, error) {
	var (
		failed      int
		lockedUntil *time.Time
	)
	err := r.update(id, func(u *auth.User) error {
		u.FailedAttempts++
		if threshold > 0 && u.FailedAttempts >= threshold {
			until := lockUntil
			u.LockedUntil = &until
		}
		u.UpdatedAt = time.Now()
		failed, lockedUntil = u.FailedAttempts, u.LockedUntil
		return nil
	})
	if err != nil {
		return 0, nil, err
	}
	return failed, lockedUntil, nil
}

// UpdatePasswordHash replaces the password hash.
func (r *Users) UpdatePasswordHash(_ context.Context, id ulid.ULID, passwordHash string) error {
	return r.update(id, func(u *auth.User) error {
		u.PasswordHash = passwordHash
		u.UpdatedAt = time.Now()
		return nil
	})
}

// MarkEmailVerified marks email verified if it is still the user's address.
func (r *Users) MarkEmailVerified(_ context.Context, id ulid.ULID, email string, at time.Time) error {
	return r.update(id, func(u *auth.User) error {
		if u.Email != email {
			return auth.ErrNotFound
		}
		u.EmailVerifiedAt = &at
		u.UpdatedAt = at
		return nil
	})
}

// ChangeEmail swaps the user's address.
func (r *Users) ChangeEmail(_ context.Context, id ulid.ULID, oldEmail, newEmail string, at time.Time) error {
	return r.update(id, func(u *auth.User) error {
		if u.Email != oldEmail {
			return auth.ErrNotFound
		}
		if r.emailTaken(newEmail, id) {
			return auth.ErrAlreadyExists
		}
		u.Email = newEmail
		u.EmailVerifiedAt = &at
		u.UpdatedAt = at
		return nil
	})
}

// Delete removes a user together with its sessions, challenges and devices.
func (r *Users) Delete(_ context.Context, id ulid.ULID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[id]; !ok {
		return auth.ErrNotFound
	}
	delete(r.s.users, id)
	for k := range r.s.sessions {
		if k.userID == id {
			delete(r.s.sessions, k)
		}
	}
	for k, v := range r.s.challenges {
		if v.UserID == id {
			delete(r.s.challenges, k)
		}
	}
	for k := range r.s.devices {
		if k.userID == id {
			delete(r.s.devices, k)
		}
	}
	return nil
}

// Sessions is the in-memory auth.SessionRepository.
type Sessions struct{ s *Store }

// Create stores a new session.
func (r *Sessions) Create(_ context.Context, session *auth.Session) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := sessionKey{session.UserID, session.SessionID}
	if _, ok := r.s.sessions[key]; ok {
		return auth.ErrAlreadyExists
	}
	r.s.sessions[key] = *session
	return nil
}

// Get retrieves one session.
func (r *Sessions) Get(_ context.Context, userID ulid.ULID, sessionID string) (*auth.Session, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	session, ok := r.s.sessions[sessionKey{userID, sessionID}]
	if !ok {
		return nil, auth.ErrNotFound
	}
	return &session, nil
}

// ListByUser returns every session of a user, newest first.
func (r *Sessions) ListByUser(_ context.Context, userID ulid.ULID) ([]*auth.Session, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*auth.Session
	for k, v := range r.s.sessions {
		if k.userID == userID {
			session := v
			out = append(out, &session)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// Delete removes one session.
func (r *Sessions) Delete(_ context.Context, userID ulid.ULID, sessionID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := sessionKey{userID, sessionID}
	if _, ok := r.s.sessions[key]; !ok {
		return auth.ErrNotFound
	}
	delete(r.s.sessions, key)
	return nil
}

// DeleteByUser removes every session of a user.
func (r *Sessions) DeleteByUser(_ context.Context, userID ulid.ULID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for k := range r.s.sessions {
		if k.userID == userID {
			delete(r.s.sessions, k)
			n++
		}
	}
	return n, nil
}

// DeleteExpired removes sessions that expired before the cutoff.
func (r *Sessions) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for k, v := range r.s.sessions {
		if v.ExpiresAt.Before(before) {
			delete(r.s.sessions, k)
			n++
		}
	}
	return n, nil
}

// Blacklist is the in-memory auth.BlacklistRepository.
type Blacklist struct{ s *Store }

// Exists reports whether the pair was redeemed.
func (r *Blacklist) Exists(_ context.Context, holderID ulid.ULID, tok string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	_, ok := r.s.blacklist[blacklistKey{holderID, tok}]
	return ok, nil
}

// Insert records a redemption.
func (r *Blacklist) Insert(_ context.Context, entry *auth.BlacklistedToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := blacklistKey{entry.HolderID, entry.Token}
	if _, ok := r.s.blacklist[key]; ok {
		return auth.ErrAlreadyExists
	}
	r.s.blacklist[key] = *entry
	return nil
}

// DeleteExpired removes receipts of tokens that expired before the cutoff.
func (r *Blacklist) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for k, v := range r.s.blacklist {
		if v.ExpiresAt.Before(before) {
			delete(r.s.blacklist, k)
			n++
		}
	}
	return n, nil
}

// DeviceVerifications is the in-memory auth.DeviceVerificationRepository.
type DeviceVerifications struct{ s *Store }

// Create stores a new challenge.
func (r *DeviceVerifications) Create(_ context.Context, v *auth.DeviceVerification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.challenges[v.ID]; ok {
		return auth.ErrAlreadyExists
	}
	r.s.challenges[v.ID] = *v
	return nil
}

// Get retrieves a challenge.
func (r *DeviceVerifications) Get(_ context.Context, id ulid.ULID) (*auth.DeviceVerification, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	v, ok := r.s.challenges[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	return &v, nil
}

// FindPending returns the newest fresh, unverified, token-bound challenge.
func (r *DeviceVerifications) FindPending(_ context.Context, userID ulid.ULID, deviceID string, since time.Time) (*auth.DeviceVerification, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var best *auth.DeviceVerification
	for _, v := range r.s.challenges {
		if v.UserID != userID || v.ExpectedDeviceID != deviceID || v.VerifiedAt != nil || v.Token == nil {
			continue
		}
		if v.CreatedAt.Before(since) {
			continue
		}
		if best == nil || v.CreatedAt.After(best.CreatedAt) {
			candidate := v
			best = &candidate
		}
	}
	if best == nil {
		return nil, auth.ErrNotFound
	}
	return best, nil
}

// MarkVerified sets verified_at on an unverified challenge.
func (r *DeviceVerifications) MarkVerified(_ context.Context, id ulid.ULID, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v, ok := r.s.challenges[id]
	if !ok || v.VerifiedAt != nil {
		return auth.ErrNotFound
	}
	v.VerifiedAt = &at
	r.s.challenges[id] = v
	return nil
}

// DeleteCreatedBefore removes challenges created before the cutoff.
func (r *DeviceVerifications) DeleteCreatedBefore(_ context.Context, before time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, v := range r.s.challenges {
		if v.CreatedAt.Before(before) {
			delete(r.s.challenges, id)
			n++
		}
	}
	return n, nil
}

// ListUnverified returns the user's unverified challenges for the device,
// newest first.
func (r *DeviceVerifications) ListUnverified(_ context.Context, userID ulid.ULID, deviceID string) ([]*auth.DeviceVerification, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*auth.DeviceVerification
	for _, v := range r.s.challenges {
		if v.UserID != userID || v.ExpectedDeviceID != deviceID || v.VerifiedAt != nil {
			continue
		}
		candidate := v
		out = append(out, &candidate)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// DeleteByIDs removes the listed challenges.
func (r *DeviceVerifications) DeleteByIDs(_ context.Context, ids []ulid.ULID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, id := range ids {
		if _, ok := r.s.challenges[id]; ok {
			delete(r.s.challenges, id)
			n++
		}
	}
	return n, nil
}

// UserDevices is the in-memory auth.UserDeviceRepository.
type UserDevices struct{ s *Store }

// Create stores a trusted device.
func (r *UserDevices) Create(_ context.Context, d *auth.UserDevice) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := deviceKey{d.UserID, d.DeviceID}
	if _, ok := r.s.devices[key]; ok {
		return auth.ErrAlreadyExists
	}
	r.s.devices[key] = *d
	return nil
}

// Get retrieves a trusted device.
func (r *UserDevices) Get(_ context.Context, userID ulid.ULID, deviceID string) (*auth.UserDevice, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	d, ok := r.s.devices[deviceKey{userID, deviceID}]
	if !ok {
		return nil, auth.ErrNotFound
	}
	return &d, nil
}

// Touch records a sign-in from the device.
func (r *UserDevices) Touch(_ context.Context, userID ulid.ULID, deviceID string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := deviceKey{userID, deviceID}
	d, ok := r.s.devices[key]
	if !ok {
		return auth.ErrNotFound
	}
	d.LastSignedIn = &at
	r.s.devices[key] = d
	return nil
}

// ListCreatedBefore returns devices added before the cutoff.
func (r *UserDevices) ListCreatedBefore(_ context.Context, before time.Time) ([]*auth.UserDevice, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*auth.UserDevice
	for _, d := range r.s.devices {
		if d.CreatedAt.Before(before) {
			device := d
			out = append(out, &device)
		}
	}
	return out, nil
}

// DeleteForUser removes the listed devices of one user.
func (r *UserDevices) DeleteForUser(_ context.Context, userID ulid.ULID, deviceIDs []string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for k := range r.s.devices {
		if k.userID == userID && slices.Contains(deviceIDs, k.deviceID) {
			delete(r.s.devices, k)
			n++
		}
	}
	return n, nil
}

// Compile-time interface checks.
var (
	_ auth.UserRepository               = (*Users)(nil)
	_ auth.SessionRepository            = (*Sessions)(nil)
	_ auth.BlacklistRepository          = (*Blacklist)(nil)
	_ auth.DeviceVerificationRepository = (*DeviceVerifications)(nil)
	_ auth.UserDeviceRepository         = (*UserDevices)(nil)
)
