package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseStore runs the behaviour every backend must share.
func exerciseStore(t *testing.T, store Store) {
	t.Helper()

	_, ok, err := store.Get("auth_token")
	require.NoError(t, err)
	assert.False(t, ok, "fresh store should be empty")

	require.NoError(t, store.Set("auth_token", "tok1"))
	require.NoError(t, store.Set("session_id", "sess1"))

	value, ok, err := store.Get("auth_token")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "tok1", value)

	require.NoError(t, store.Set("auth_token", "tok2"))
	value, _, err = store.Get("auth_token")
	require.NoError(t, err)
	assert.Equal(t, "tok2", value)

	require.NoError(t, store.Remove("auth_token", "session_id", "user"))

	_, ok, err = store.Get("auth_token")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = store.Get("session_id")
	require.NoError(t, err)
	assert.False(t, ok)

	// removing absent keys is a no-op
	require.NoError(t, store.Remove("auth_token", "session_id", "user"))
	require.NoError(t, store.Remove())
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	exerciseStore(t, store)
	assert.Empty(t, store.Snapshot())
}

func TestFileStore(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), "identity.example.com")
	require.NoError(t, err)

	exerciseStore(t, store)
}

func TestFileStore_PersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()

	first, err := NewFileStore(dir, "identity.example.com")
	require.NoError(t, err)
	require.NoError(t, first.Set("user", `{"id":1}`))

	second, err := NewFileStore(dir, "identity.example.com")
	require.NoError(t, err)

	value, ok, err := second.Get("user")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"id":1}`, value)

	info, err := os.Stat(second.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestFileStore_ReadsDoNotCreateFile(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), "identity.example.com")
	require.NoError(t, err)

	_, ok, err := store.Get("auth_token")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Remove("auth_token", "session_id", "user"))

	_, err = os.Stat(store.Path())
	assert.True(t, os.IsNotExist(err), "file should not exist before the first write")

	require.NoError(t, store.Set("auth_token", "tok"))

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestFileStore_CorruptFileIsTreatedAsEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "identity.example.com.yaml")
	require.NoError(t, os.WriteFile(path, []byte("values: [unterminated"), 0600))

	store, err := NewFileStore(dir, "identity.example.com")
	require.NoError(t, err)

	_, ok, err := store.Get("auth_token")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set("auth_token", "tok"))
	value, ok, err := store.Get("auth_token")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "tok", value)
}

func TestFileStore_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "config")

	store, err := NewFileStore(dir, "localhost")
	require.NoError(t, err)
	require.NoError(t, store.Set("session_id", "s"))

	_, err = os.Stat(filepath.Join(dir, "localhost.yaml"))
	assert.NoError(t, err)
}

func TestNamespaceValidation(t *testing.T) {
	tests := []struct {
		name      string
		namespace string
		valid     bool
	}{
		{"hostname", "identity.example.com", true},
		{"host with port", "localhost:8080", true},
		{"empty", "", false},
		{"dot", ".", false},
		{"parent", "..", false},
		{"path separator", "../etc/passwd", false},
		{"whitespace", "my host", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, IsValidNamespace(tt.namespace))

			_, err := NewFileStore(t.TempDir(), tt.namespace)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidNamespace)
			}
		})
	}
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	store, err := NewRedisStore(client, "", "identity.example.com")
	require.NoError(t, err)
	assert.Equal(t, "pipedeck:session:identity.example.com", store.Key())

	exerciseStore(t, store)
}

func TestRedisStore_SharedBetweenInstances(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	writer, err := NewRedisStore(client, "console", "localhost")
	require.NoError(t, err)
	reader, err := NewRedisStore(client, "console", "localhost")
	require.NoError(t, err)

	require.NoError(t, writer.Set("auth_token", "tok"))

	value, ok, err := reader.Get("auth_token")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "tok", value)
	assert.Equal(t, "tok", mr.HGet("console:localhost", "auth_token"))
}

func TestRedisStore_ServerErrors(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { client.Close() })

	store, err := NewRedisStore(client, "", "localhost")
	require.NoError(t, err)

	mr.SetError("LOADING server is loading")

	_, _, err = store.Get("auth_token")
	assert.Error(t, err)
	assert.Error(t, store.Set("auth_token", "tok"))
}

func TestNewRedisStore_Validation(t *testing.T) {
	_, err := NewRedisStore(nil, "", "localhost")
	assert.Error(t, err)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	_, err = NewRedisStore(client, "", "")
	assert.ErrorIs(t, err, ErrInvalidNamespace)
}
