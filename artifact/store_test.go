package artifact

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/travelmesh/core"
)

var (
	_ core.ArtifactStore = (*InMemoryStore)(nil)
	_ core.ArtifactStore = (*FileStore)(nil)
)

func stores(t *testing.T) map[string]core.ArtifactStore {
	return map[string]core.ArtifactStore{
		"memory": NewInMemoryStore(),
		"file":   NewFileStore(t.TempDir()),
	}
}

func TestStores_SaveGetListDelete(t *testing.T) {
	ctx := context.Background()

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			data := []byte("hello")
			require.NoError(t, store.Save(ctx, "traces", "b.json", data))
			require.NoError(t, store.Save(ctx, "traces", "a.json", []byte("1")))

			data[0] = 'H'

			out, err := store.Get(ctx, "traces", "b.json")
			require.NoError(t, err)
			assert.Equal(t, "hello", string(out))

			ids, err := store.List(ctx, "traces")
			require.NoError(t, err)
			assert.Equal(t, []string{"a.json", "b.json"}, ids)

			ids, err = store.List(ctx, "other")
			require.NoError(t, err)
			assert.Empty(t, ids)

			require.NoError(t, store.Delete(ctx, "traces", "a.json"))
			assert.ErrorIs(t, store.Delete(ctx, "traces", "a.json"), ErrNotFound)

			_, err = store.Get(ctx, "traces", "a.json")
			assert.ErrorIs(t, err, ErrNotFound)

			assert.ErrorIs(t, store.Save(ctx, "traces", "../escape", nil), ErrInvalidID)
			assert.ErrorIs(t, store.Save(ctx, "", "x", nil), ErrInvalidID)
		})
	}
}

func TestInMemoryStore_Concurrency(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)

		go func(i int) {
			defer wg.Done()
			_ = store.Save(ctx, "ns", fmt.Sprintf("a%d", i), []byte{byte(i)})
		}(i)
	}

	wg.Wait()

	ids, err := store.List(ctx, "ns")
	require.NoError(t, err)
	assert.Len(t, ids, 50)
}

func TestFileStore_Layout(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir)

	require.NoError(t, store.Save(context.Background(), "traces", "trace_handoff.json", []byte("{}")))

	data, err := os.ReadFile(filepath.Join(dir, "traces", "trace_handoff.json"))
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))
	assert.Equal(t, filepath.Join(dir, "traces", "trace_handoff.json"), store.Path("traces", "trace_handoff.json"))
}
