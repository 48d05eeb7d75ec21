package storage

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	store, err := NewSQLiteStore("file:" + name + "?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// exerciseTaskStore checks behavior every backend must share.
func exerciseTaskStore(t *testing.T, store TaskStore, missingID string) {
	ctx := context.Background()

	t.Run("create then list contains task once", func(t *testing.T) {
		before, err := store.FindAll(ctx)
		require.NoError(t, err)

		task, err := store.Create(ctx, "water the plants")
		require.NoError(t, err)
		assert.NotEmpty(t, task.ID)
		assert.Equal(t, "water the plants", task.Text)
		assert.WithinDuration(t, time.Now(), task.CreatedAt, time.Minute)

		after, err := store.FindAll(ctx)
		require.NoError(t, err)
		assert.Len(t, after, len(before)+1)

		count := 0
		for _, got := range after {
			if got.ID == task.ID {
				count++
				assert.Equal(t, task.Text, got.Text)
			}
		}
		assert.Equal(t, 1, count)
	})

	t.Run("list preserves insertion order", func(t *testing.T) {
		first, err := store.Create(ctx, "first")
		require.NoError(t, err)
		second, err := store.Create(ctx, "second")
		require.NoError(t, err)

		all, err := store.FindAll(ctx)
		require.NoError(t, err)
		idx := map[string]int{}
		for i, task := range all {
			idx[task.ID] = i
		}
		assert.Less(t, idx[first.ID], idx[second.ID])
	})

	t.Run("empty text is rejected", func(t *testing.T) {
		before, err := store.FindAll(ctx)
		require.NoError(t, err)

		_, err = store.Create(ctx, "   ")
		assert.ErrorIs(t, err, ErrEmptyText)

		after, err := store.FindAll(ctx)
		require.NoError(t, err)
		assert.Len(t, after, len(before))
	})

	t.Run("find by id", func(t *testing.T) {
		task, err := store.Create(ctx, "call mom")
		require.NoError(t, err)

		got, err := store.FindByID(ctx, task.ID)
		require.NoError(t, err)
		assert.Equal(t, task.ID, got.ID)
		assert.Equal(t, "call mom", got.Text)

		_, err = store.FindByID(ctx, missingID)
		assert.ErrorIs(t, err, ErrTaskNotFound)
	})

	t.Run("delete removes exactly one", func(t *testing.T) {
		keep, err := store.Create(ctx, "keep me")
		require.NoError(t, err)
		drop, err := store.Create(ctx, "drop me")
		require.NoError(t, err)
		before, err := store.FindAll(ctx)
		require.NoError(t, err)

		deleted, err := store.FindByIDAndDelete(ctx, drop.ID)
		require.NoError(t, err)
		assert.Equal(t, drop.ID, deleted.ID)
		assert.Equal(t, "drop me", deleted.Text)

		after, err := store.FindAll(ctx)
		require.NoError(t, err)
		assert.Len(t, after, len(before)-1)
		for _, task := range after {
			assert.NotEqual(t, drop.ID, task.ID)
		}
		_, err = store.FindByID(ctx, keep.ID)
		assert.NoError(t, err)
	})

	t.Run("delete missing id", func(t *testing.T) {
		before, err := store.FindAll(ctx)
		require.NoError(t, err)

		_, err = store.FindByIDAndDelete(ctx, missingID)
		assert.ErrorIs(t, err, ErrTaskNotFound)
		_, err = store.FindByIDAndDelete(ctx, "not-a-valid-id")
		assert.ErrorIs(t, err, ErrTaskNotFound)

		after, err := store.FindAll(ctx)
		require.NoError(t, err)
		assert.Len(t, after, len(before))
	})

	t.Run("ping", func(t *testing.T) {
		assert.NoError(t, store.Ping(ctx))
	})
}

func TestSQLiteStore(t *testing.T) {
	exerciseTaskStore(t, newSQLiteStore(t), "00000000-0000-0000-0000-000000000000")
}

func TestSQLiteStore_EmptyListIsNotNil(t *testing.T) {
	store := newSQLiteStore(t)
	tasks, err := store.FindAll(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, tasks)
	assert.Empty(t, tasks)
}

func TestMongoStore(t *testing.T) {
	uri := os.Getenv("MONGODB_TEST_URI")
	if uri == "" {
		t.Skip("MONGODB_TEST_URI not set")
	}
	ctx := context.Background()
	store, err := NewMongoStore(ctx, uri, "voicetasks_test")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = store.tasks.Drop(context.Background())
		_ = store.Close()
	})
	require.NoError(t, store.tasks.Drop(ctx))

	exerciseTaskStore(t, store, "000000000000000000000000")
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	t.Run("sqlite scheme", func(t *testing.T) {
		store, err := Open(ctx, "sqlite:file:open_sqlite?mode=memory&cache=shared", Options{})
		require.NoError(t, err)
		defer store.Close()
		assert.IsType(t, &SQLiteStore{}, store)
	})

	t.Run("file scheme", func(t *testing.T) {
		store, err := Open(ctx, "file:open_file?mode=memory&cache=shared", Options{})
		require.NoError(t, err)
		defer store.Close()
		assert.IsType(t, &SQLiteStore{}, store)
	})

	t.Run("empty uri", func(t *testing.T) {
		_, err := Open(ctx, "", Options{})
		assert.Error(t, err)
	})

	t.Run("unsupported scheme", func(t *testing.T) {
		_, err := Open(ctx, "postgres://localhost/tasks", Options{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), `"postgres"`)
	})
}

func TestMongoDatabaseName(t *testing.T) {
	cases := []struct {
		name     string
		uri      string
		fallback string
		want     string
	}{
		{"uri names database", "mongodb://localhost:27017/tasksdb", "", "tasksdb"},
		{"uri beats fallback", "mongodb://localhost:27017/tasksdb", "voicetasks", "tasksdb"},
		{"uri with options", "mongodb://user:pw@localhost:27017/tasksdb?authSource=admin", "", "tasksdb"},
		{"fallback when path empty", "mongodb://localhost:27017", "reminders", "reminders"},
		{"fallback with options only", "mongodb://localhost:27017/?retryWrites=true", "reminders", "reminders"},
		{"default", "mongodb://localhost:27017", "", defaultMongoDatabase},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := mongoDatabaseName(tc.uri, tc.fallback)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	t.Run("invalid uri", func(t *testing.T) {
		_, err := mongoDatabaseName("mongodb://", "")
		assert.Error(t, err)
	})
}

func TestOpen_InvalidMongoURI(t *testing.T) {
	_, err := Open(context.Background(), "mongodb://", Options{MongoDatabase: "voicetasks"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid URI")
}
