// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package store

import (
	"errors"
	"testing"
	"testing/fstest"

	"github.com/golang-migrate/migrate/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/authengine/pkg/errutil"
)

type mockMigrate struct {
	upErr          error
	downErr        error
	stepsErr       error
	stepsCalls     int
	versionVal     uint
	versionErr     error
	dirty          bool
	forceErr       error
	closeSourceErr error
	closeDbErr     error
}

func (m *mockMigrate) Up() error   { return m.upErr }
func (m *mockMigrate) Down() error { return m.downErr }
func (m *mockMigrate) Steps(_ int) error {
	m.stepsCalls++
	return m.stepsErr
}
func (m *mockMigrate) Version() (uint, bool, error) { return m.versionVal, m.dirty, m.versionErr }
func (m *mockMigrate) Force(_ int) error            { return m.forceErr }
func (m *mockMigrate) Close() (error, error)        { return m.closeSourceErr, m.closeDbErr }

func testMigrations() []Migration {
	return []Migration{
		{1, "000001_users"},
		{2, "000002_sessions"},
		{3, "000003_blacklisted_tokens"},
	}
}

func TestNewMigrator_InvalidURL(t *testing.T) {
	_, err := NewMigrator("badscheme://localhost:5432/authengine")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "MIGRATION_INIT_FAILED")
}

func TestMigrateURL(t *testing.T) {
	tests := map[string]string{
		"postgres://u:p@db:5432/auth":   "pgx5://u:p@db:5432/auth",
		"postgresql://u:p@db:5432/auth": "pgx5://u:p@db:5432/auth",
		"pgx5://u:p@db:5432/auth":       "pgx5://u:p@db:5432/auth",
	}
	for in, want := range tests {
		assert.Equal(t, want, migrateURL(in), in)
	}
}

func TestMigrator_NoChangeIsSuccess(t *testing.T) {
	m := &Migrator{m: &mockMigrate{
		upErr:    migrate.ErrNoChange,
		downErr:  migrate.ErrNoChange,
		stepsErr: migrate.ErrNoChange,
	}}
	require.NoError(t, m.Up())
	require.NoError(t, m.Down())
	require.NoError(t, m.Steps(-1))
}

func TestMigrator_Failures(t *testing.T) {
	boom := errors.New("database locked")
	m := &Migrator{m: &mockMigrate{
		upErr:      boom,
		downErr:    boom,
		stepsErr:   boom,
		versionErr: boom,
		forceErr:   boom,
	}}

	errutil.AssertErrorCode(t, m.Up(), "MIGRATION_UP_FAILED")
	errutil.AssertErrorCode(t, m.Down(), "MIGRATION_DOWN_FAILED")
	errutil.AssertErrorCode(t, m.Steps(2), "MIGRATION_STEPS_FAILED")
	errutil.AssertErrorCode(t, m.Force(1), "MIGRATION_FORCE_FAILED")
	_, _, err := m.Version()
	errutil.AssertErrorCode(t, err, "MIGRATION_VERSION_FAILED")
}

func TestMigrator_StepsZeroSkipsDriver(t *testing.T) {
	mock := &mockMigrate{}
	m := &Migrator{m: mock}
	require.NoError(t, m.Steps(0))
	assert.Zero(t, mock.stepsCalls)
}

func TestMigrator_Version(t *testing.T) {
	t.Run("dirty", func(t *testing.T) {
		m := &Migrator{m: &mockMigrate{versionVal: 4, dirty: true}}
		version, dirty, err := m.Version()
		require.NoError(t, err)
		assert.Equal(t, uint(4), version)
		assert.True(t, dirty)
	})

	t.Run("empty database", func(t *testing.T) {
		m := &Migrator{m: &mockMigrate{versionVal: 9, versionErr: migrate.ErrNilVersion}}
		version, dirty, err := m.Version()
		require.NoError(t, err)
		assert.Zero(t, version)
		assert.False(t, dirty)
	})
}

func TestMigrator_ForceRejectsNegative(t *testing.T) {
	m := &Migrator{m: &mockMigrate{}}
	errutil.AssertErrorCode(t, m.Force(-1), "INVALID_VERSION")
}

func TestMigrator_Close(t *testing.T) {
	tests := []struct {
		name      string
		mock      *mockMigrate
		component string
	}{
		{"source", &mockMigrate{closeSourceErr: errors.New("source close failed")}, "source"},
		{"database", &mockMigrate{closeDbErr: errors.New("db close failed")}, "database"},
		{"both", &mockMigrate{
			closeSourceErr: errors.New("source close failed"),
			closeDbErr:     errors.New("db close failed"),
		}, "both"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := (&Migrator{m: tt.mock}).Close()
			errutil.AssertErrorCode(t, err, "MIGRATION_CLOSE_FAILED")
			errutil.AssertErrorContext(t, err, "component", tt.component)
		})
	}

	require.NoError(t, (&Migrator{m: &mockMigrate{}}).Close())
}

func TestMigrator_Status(t *testing.T) {
	t.Run("partially applied", func(t *testing.T) {
		m := &Migrator{m: &mockMigrate{versionVal: 2}, versions: testMigrations()}
		status, err := m.Status()
		require.NoError(t, err)
		assert.Equal(t, uint(2), status.Version)
		assert.Equal(t, testMigrations()[:2], status.Applied)
		assert.Equal(t, testMigrations()[2:], status.Pending)
	})

	t.Run("fresh database", func(t *testing.T) {
		m := &Migrator{m: &mockMigrate{versionErr: migrate.ErrNilVersion}, versions: testMigrations()}
		status, err := m.Status()
		require.NoError(t, err)
		assert.Empty(t, status.Applied)
		assert.Len(t, status.Pending, 3)
	})

	t.Run("version failure", func(t *testing.T) {
		m := &Migrator{m: &mockMigrate{versionErr: errors.New("connection lost")}, versions: testMigrations()}
		_, err := m.Status()
		errutil.AssertErrorCode(t, err, "MIGRATION_VERSION_FAILED")
	})
}

func TestListMigrations(t *testing.T) {
	t.Run("sorted up files only", func(t *testing.T) {
		fsys := fstest.MapFS{
			"m/000002_b.up.sql":   {},
			"m/000002_b.down.sql": {},
			"m/000001_a.up.sql":   {},
			"m/000001_a.down.sql": {},
			"m/README.md":         {},
		}
		got, err := listMigrations(fsys, "m")
		require.NoError(t, err)
		assert.Equal(t, []Migration{{1, "000001_a"}, {2, "000002_b"}}, got)
	})

	t.Run("malformed name", func(t *testing.T) {
		fsys := fstest.MapFS{"m/users.up.sql": {}}
		_, err := listMigrations(fsys, "m")
		errutil.AssertErrorCode(t, err, "MIGRATION_NAME_INVALID")
	})

	t.Run("missing directory", func(t *testing.T) {
		_, err := listMigrations(fstest.MapFS{}, "m")
		errutil.AssertErrorCode(t, err, "MIGRATION_LIST_FAILED")
	})
}
