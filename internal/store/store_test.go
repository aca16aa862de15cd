package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseKV runs the behavior every backend must share.
func exerciseKV(t *testing.T, kv KV) {
	t.Helper()
	ctx := context.Background()

	_, err := kv.Get(ctx, "images")
	require.ErrorIs(t, err, ErrMiss)

	require.NoError(t, kv.Set(ctx, "images", []byte(`[{"id":"a"}]`)))
	got, err := kv.Get(ctx, "images")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"a"}]`, string(got))

	// overwrite
	require.NoError(t, kv.Set(ctx, "images", []byte(`[]`)))
	got, err = kv.Get(ctx, "images")
	require.NoError(t, err)
	assert.Equal(t, "[]", string(got))

	require.NoError(t, kv.Remove(ctx, "images"))
	_, err = kv.Get(ctx, "images")
	assert.ErrorIs(t, err, ErrMiss)

	// removing twice is fine
	assert.NoError(t, kv.Remove(ctx, "images"))
}

func TestMemory(t *testing.T) {
	kv := NewMemory()
	defer kv.Close()
	exerciseKV(t, kv)
}

func TestMemory_GetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	kv := NewMemory()
	require.NoError(t, kv.Set(ctx, "k", []byte("abc")))

	v, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	v[0] = 'z'

	again, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(again))
}

func TestSQLite(t *testing.T) {
	kv, err := NewSQLite(filepath.Join(t.TempDir(), "nested", "gallery.db"))
	require.NoError(t, err)
	defer kv.Close()
	exerciseKV(t, kv)
}

func TestSQLite_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "gallery.db")

	kv, err := NewSQLite(path)
	require.NoError(t, err)
	require.NoError(t, kv.Set(ctx, "tags", []byte(`["x"]`)))
	require.NoError(t, kv.Set(ctx, "appConfig", []byte(`{}`)))
	require.NoError(t, kv.Close())

	kv, err = NewSQLite(path)
	require.NoError(t, err)
	defer kv.Close()

	got, err := kv.Get(ctx, "tags")
	require.NoError(t, err)
	assert.Equal(t, `["x"]`, string(got))

	got, err = kv.Get(ctx, "appConfig")
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(got))
}

func TestRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	kv, err := NewRedis(context.Background(), RedisOptions{Addr: mr.Addr(), Prefix: "gallery:"})
	require.NoError(t, err)
	defer kv.Close()
	exerciseKV(t, kv)
}

func TestRedis_UsesPrefix(t *testing.T) {
	mr := miniredis.RunT(t)
	c := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	kv := NewRedisFromClient(c, "gallery:")
	defer kv.Close()

	require.NoError(t, kv.Set(context.Background(), "tags", []byte("[]")))

	raw, err := mr.Get("gallery:tags")
	require.NoError(t, err)
	assert.Equal(t, "[]", raw)
	assert.False(t, mr.Exists("tags"))
}

func TestRedis_PingFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedis(context.Background(), RedisOptions{Addr: addr})
	assert.Error(t, err)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	kv, err := Open(ctx, Options{Backend: BackendMemory})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, kv)

	kv, err = Open(ctx, Options{Path: filepath.Join(t.TempDir(), "g.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLite{}, kv)
	kv.Close()

	_, err = Open(ctx, Options{Backend: "etcd"})
	assert.Error(t, err)
}
