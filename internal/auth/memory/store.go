// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package memory provides an in-process credential store for development
// and tests.
package memory

import (
	"context"
	"maps"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/holomush/authengine/internal/auth"
)

type sessionKey struct {
	userID    ulid.ULID
	sessionID string
}

type blacklistKey struct {
	holderID ulid.ULID
	token    string
}

type deviceKey struct {
	userID   ulid.ULID
	deviceID string
}

type txKey struct{}

// Store keeps every credential collection in maps guarded by one lock.
//
// Do serializes units of work and restores a snapshot when fn fails. Writes
// made outside a unit of work while one is rolling back can be lost, which
// is acceptable for a development store.
type Store struct {
	mu   sync.RWMutex
	txMu sync.Mutex

	users      map[ulid.ULID]auth.User
	sessions   map[sessionKey]auth.Session
	blacklist  map[blacklistKey]auth.BlacklistedToken
	challenges map[ulid.ULID]auth.DeviceVerification
	devices    map[deviceKey]auth.UserDevice
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		users:      make(map[ulid.ULID]auth.User),
		sessions:   make(map[sessionKey]auth.Session),
		blacklist:  make(map[blacklistKey]auth.BlacklistedToken),
		challenges: make(map[ulid.ULID]auth.DeviceVerification),
		devices:    make(map[deviceKey]auth.UserDevice),
	}
}

type snapshot struct {
	users      map[ulid.ULID]auth.User
	sessions   map[sessionKey]auth.Session
	blacklist  map[blacklistKey]auth.BlacklistedToken
	challenges map[ulid.ULID]auth.DeviceVerification
	devices    map[deviceKey]auth.UserDevice
}

func (s *Store) snapshot() snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshot{
		users:      maps.Clone(s.users),
		sessions:   maps.Clone(s.sessions),
		blacklist:  maps.Clone(s.blacklist),
		challenges: maps.Clone(s.challenges),
		devices:    maps.Clone(s.devices),
	}
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = snap.users
	s.sessions = snap.sessions
	s.blacklist = snap.blacklist
	s.challenges = snap.challenges
	s.devices = snap.devices
}

// Do runs fn as one unit of work. Nested calls join the outer unit.
func (s *Store) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, nested := ctx.Value(txKey{}).(bool); nested {
		return fn(ctx)
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	snap := s.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

// Users returns the user repository.
func (s *Store) Users() *Users { return &Users{s: s} }

// Sessions returns the session repository.
func (s *Store) Sessions() *Sessions { return &Sessions{s: s} }

// Blacklist returns the blacklist repository.
func (s *Store) Blacklist() *Blacklist { return &Blacklist{s: s} }

// DeviceVerifications returns the device verification repository.
func (s *Store) DeviceVerifications() *DeviceVerifications { return &DeviceVerifications{s: s} }

// UserDevices returns the trusted device repository.
func (s *Store) UserDevices() *UserDevices { return &UserDevices{s: s} }

var _ auth.UnitOfWork = (*Store)(nil)
