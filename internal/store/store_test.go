package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/ashureev/syncup/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteProfileCreateAndGet(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestSQLite(t)

	missing, err := s.Get(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, s.Create(ctx, "u1", "Jane Doe", domain.ModeProfessional))

	got, err := s.Get(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Jane Doe", got.Name)
	assert.Equal(t, domain.ModeProfessional, got.Mode)
	assert.Equal(t, domain.RolePeer, got.Role)
	assert.Equal(t, []string{"newbie"}, got.Tags)
	assert.Empty(t, got.Goals)
	assert.Equal(t, "https://api.dicebear.com/6.x/initials/svg?seed=JaneDoe", got.PhotoURL)

	assert.Error(t, s.Create(ctx, "u1", "Again", domain.ModeSocial), "duplicate create must fail")
	assert.Error(t, s.Create(ctx, "u2", "Bad", domain.ModeBoth), "Both is not a profile mode")
}

func TestSQLiteUpsertReplaces(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestSQLite(t)

	p := NewProfile("u1", "Jane", domain.ModeSocial)
	require.NoError(t, s.Upsert(ctx, p))
	p.Kudos = 9
	p.Goals = []string{"Find a workout buddy"}
	p.Presence = "Out hiking"
	require.NoError(t, s.Upsert(ctx, p))

	got, err := s.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 9, got.Kudos)
	assert.Equal(t, []string{"Find a workout buddy"}, got.Goals)
	assert.Equal(t, "Out hiking", got.Presence)
}

func testKV(t *testing.T, kv KV) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := kv.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, kv.Set(ctx, "onboarded_u1", "true"))
	require.NoError(t, kv.Set(ctx, "onboarded_u1", "again"))

	v, ok, err := kv.Get(ctx, "onboarded_u1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "again", v)
}

func TestSQLiteKV(t *testing.T) {
	t.Parallel()
	testKV(t, newTestSQLite(t).KV())
}

func TestBadgerKVInMemory(t *testing.T) {
	t.Parallel()
	kv, err := OpenBadgerKV(BadgerConfig{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })
	testKV(t, kv)
}

func TestBadgerKVPersists(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dir := t.TempDir()

	kv, err := OpenBadgerKV(BadgerConfig{Path: dir})
	require.NoError(t, err)
	require.NoError(t, kv.Set(ctx, "k", "v"))
	require.NoError(t, kv.Close())

	reopened, err := OpenBadgerKV(BadgerConfig{Path: dir})
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	v, ok, err := reopened.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestMemoryKV(t *testing.T) {
	t.Parallel()
	testKV(t, NewMemoryKV())
}

func TestIsSQLiteConflictError(t *testing.T) {
	assert.False(t, isSQLiteConflictError(nil))
	assert.False(t, isSQLiteConflictError(assert.AnError))
	assert.True(t, isSQLiteConflictError(errors.New("database is locked (5) (SQLITE_BUSY)")))
}
