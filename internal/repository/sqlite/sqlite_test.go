package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/usersvc/internal/model"
	"github.com/sakif/usersvc/internal/repository"
)

// newTestDB returns a fresh in-memory database that is closed when the test ends.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestNew_CreatesUsersTable(t *testing.T) {
	db := newTestDB(t)

	var count int
	err := db.conn.QueryRowContext(context.Background(),
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'users'`,
	).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestNew_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.db")

	db, err := New(path, WithMaxOpenConns(4))
	require.NoError(t, err)

	user := &model.User{ID: 1, Name: "Ana", Email: "a@x.com"}
	user.SetRecommendations([]string{"book1"})
	require.NoError(t, db.Users().Create(context.Background(), user))
	require.NoError(t, db.Close())

	// Second open runs migrate() again against the existing table.
	db, err = New(path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	found, err := db.Users().GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Ana", found.Name)
	assert.Equal(t, []string{"book1"}, found.GetRecommendations())
}

func TestPing(t *testing.T) {
	db := newTestDB(t)
	assert.NoError(t, db.Ping(context.Background()))

	require.NoError(t, db.Close())
	assert.Error(t, db.Ping(context.Background()))
}

func TestDataSourceName(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{":memory:", ":memory:?"},
		{"data/users.db", "data/users.db?"},
		{"file:users.db?mode=rwc", "file:users.db?mode=rwc&"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got := dataSourceName(tt.path)
			assert.Equal(t, tt.want+"_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_txlock=immediate", got)
		})
	}
}

func TestNew_PragmasOnEveryConnection(t *testing.T) {
	db, err := New(filepath.Join(t.TempDir(), "users.db"), WithMaxOpenConns(4))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	// Hold all four connections at once so each one is a distinct pool member.
	for i := 0; i < 4; i++ {
		c, err := db.conn.Connx(ctx)
		require.NoError(t, err)
		t.Cleanup(func() { c.Close() })

		var timeout int
		require.NoError(t, c.GetContext(ctx, &timeout, "PRAGMA busy_timeout"))
		assert.Equal(t, 5000, timeout, "connection %d", i)

		var mode string
		require.NoError(t, c.GetContext(ctx, &mode, "PRAGMA journal_mode"))
		assert.Equal(t, "wal", mode, "connection %d", i)
	}
}

func TestConcurrentWritesWithPool(t *testing.T) {
	db, err := New(filepath.Join(t.TempDir(), "users.db"), WithMaxOpenConns(8))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	users := db.Users()
	ctx := context.Background()
	const n = 100

	errs := make(chan error, 2*n)
	var wg sync.WaitGroup
	for i := 1; i <= n; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			errs <- users.WithTx(ctx, func(tx repository.UserRepository) error {
				u := &model.User{ID: id, Name: "user", Email: fmt.Sprintf("u%d@x.com", id)}
				u.SetRecommendations(nil)
				return tx.Create(ctx, u)
			})
		}(int64(i))
	}
	wg.Wait()

	// Read-then-write transactions on the same rows must queue, not fail.
	for i := 1; i <= n; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			errs <- users.WithTx(ctx, func(tx repository.UserRepository) error {
				u, err := tx.GetByID(ctx, id)
				if err != nil {
					return err
				}
				age := id
				u.Age = &age
				return tx.Update(ctx, u)
			})
		}(int64(i))
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, n, countUsers(t, users))
}
