package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"patas/internal/session"
)

func testPair() session.TokenPair {
	return session.TokenPair{
		AccessToken:      "access-abc",
		RefreshToken:     "refresh-xyz",
		AccessExpiresAt:  time.Now().Add(15 * time.Minute).UTC().Truncate(time.Second),
		RefreshExpiresAt: time.Now().Add(720 * time.Hour).UTC().Truncate(time.Second),
	}
}

func TestFileStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "credentials.json")
	s := NewFileStore(path)

	pair := testPair()
	require.NoError(t, s.Save(pair))

	loaded, err := s.Load()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, pair, *loaded)
}

func TestFileStore_LoadAbsent(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "credentials.json"))

	loaded, err := s.Load()
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestFileStore_IncompletePairIsAbsent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	// Missing refresh side of the quadruple.
	require.NoError(t, os.WriteFile(path, []byte(`{"access_token":"a","access_expires_at":"2030-01-01T00:00:00Z"}`), 0o600))

	loaded, err := NewFileStore(path).Load()
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestFileStore_CorruptFileErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := NewFileStore(path).Load()
	assert.Error(t, err)
}

func TestFileStore_SaveReplacesWholeDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	s := NewFileStore(path)

	first := testPair()
	require.NoError(t, s.Save(first))

	second := first
	second.AccessToken = "access-2"
	second.RefreshToken = "refresh-2"
	require.NoError(t, s.Save(second))

	loaded, err := s.Load()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, second, *loaded)
}

func TestFileStore_ClearIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	s := NewFileStore(path)

	require.NoError(t, s.Save(testPair()))
	require.NoError(t, s.Clear())
	require.NoError(t, s.Clear())

	loaded, err := s.Load()
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestFileStore_FilePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	s := NewFileStore(path)
	require.NoError(t, s.Save(testPair()))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestInMemoryStore_RoundTrip(t *testing.T) {
	s := NewInMemoryStore()

	loaded, err := s.Load()
	require.NoError(t, err)
	assert.Nil(t, loaded)

	pair := testPair()
	require.NoError(t, s.Save(pair))

	loaded, err = s.Load()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, pair, *loaded)

	require.NoError(t, s.Clear())
	loaded, err = s.Load()
	require.NoError(t, err)
	assert.Nil(t, loaded)
}
