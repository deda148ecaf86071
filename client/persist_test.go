package client

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileKV(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "state")
	kv, err := NewFileKV(dir)
	require.NoError(t, err)

	v, err := kv.Get(StorageKey)
	require.NoError(t, err)
	assert.Nil(t, v)

	require.NoError(t, kv.Set(StorageKey, []byte(`{"token":"a"}`)))
	require.NoError(t, kv.Set(StorageKey, []byte(`{"token":"b"}`)))

	v, err = kv.Get(StorageKey)
	require.NoError(t, err)
	assert.JSONEq(t, `{"token":"b"}`, string(v))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files are left behind")

	require.NoError(t, kv.Delete(StorageKey))
	require.NoError(t, kv.Delete(StorageKey))
	v, err = kv.Get(StorageKey)
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestMemoryKVCopiesValues(t *testing.T) {
	kv := NewMemoryKV()
	value := []byte("abc")
	require.NoError(t, kv.Set("k", value))
	value[0] = 'z'

	got, err := kv.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}

func TestFileKVBackedStore(t *testing.T) {
	kv, err := NewFileKV(t.TempDir())
	require.NoError(t, err)

	backend := &fakeBackend{loginToken: "tok"}
	s := NewStore(backend, kv, quietLogger)
	_, err = s.Login(context.Background(), "18218162327", "123456", "abc")
	require.NoError(t, err)

	restored := NewStore(backend, kv, quietLogger)
	assert.Equal(t, "tok", restored.Token())
	assert.Equal(t, PhaseComplete, restored.Phase())
}
