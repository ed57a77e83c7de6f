package mirror

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStores(t *testing.T) map[string]Store {
	t.Helper()

	sqlite, err := NewSQLiteStore(filepath.Join(t.TempDir(), "mirror.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })

	stores := map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": sqlite,
	}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		rs, err := NewRedisStore(RedisConfig{Addr: addr, KeyPrefix: "winshirt:test:" + t.Name()}, zerolog.Nop())
		require.NoError(t, err)
		t.Cleanup(func() {
			for _, k := range []string{"lotteries", "products", StatusKey} {
				rs.Delete(context.Background(), k)
			}
			rs.Close()
		})
		stores["redis"] = rs
	}
	return stores
}

func TestStoreContract(t *testing.T) {
	ctx := context.Background()

	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Get(ctx, "lotteries")
			assert.ErrorIs(t, err, ErrMissing)

			require.NoError(t, store.Set(ctx, "lotteries", []byte(`[{"id":1}]`)))
			require.NoError(t, store.Set(ctx, "products", []byte(`[]`)))

			got, err := store.Get(ctx, "lotteries")
			require.NoError(t, err)
			assert.JSONEq(t, `[{"id":1}]`, string(got))

			require.NoError(t, store.Set(ctx, "lotteries", []byte(`[{"id":2}]`)))
			got, err = store.Get(ctx, "lotteries")
			require.NoError(t, err)
			assert.JSONEq(t, `[{"id":2}]`, string(got), "last writer wins")

			keys, err := store.Keys(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"lotteries", "products"}, keys)

			stats, err := store.Stats(ctx)
			require.NoError(t, err)
			assert.Equal(t, name, stats["backend"])

			require.NoError(t, store.Delete(ctx, "lotteries"))
			require.NoError(t, store.Delete(ctx, "lotteries"))
			_, err = store.Get(ctx, "lotteries")
			assert.ErrorIs(t, err, ErrMissing)
		})
	}
}

func TestMemoryStoreCopiesPayload(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	payload := []byte(`[1]`)
	require.NoError(t, s.Set(ctx, "t", payload))
	payload[1] = '9'

	got, err := s.Get(ctx, "t")
	require.NoError(t, err)
	assert.Equal(t, `[1]`, string(got))
}

func TestSQLiteStorePersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "mirror.db")

	s, err := NewSQLiteStore(path, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "orders", []byte(`[{"id":4}]`)))
	require.NoError(t, s.Close())

	s, err = NewSQLiteStore(path, zerolog.Nop())
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Get(ctx, "orders")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":4}]`, string(got))
}
