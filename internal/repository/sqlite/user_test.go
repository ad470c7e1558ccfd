package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/usersvc/internal/apperror"
	"github.com/sakif/usersvc/internal/model"
	"github.com/sakif/usersvc/internal/repository"
)

func ptr[T any](v T) *T { return &v }

// createTestUser creates a user and fails the test if it errors.
func createTestUser(t *testing.T, u *UserDB, id int64, email string, recs ...string) *model.User {
	t.Helper()
	user := &model.User{ID: id, Name: "user", Email: email}
	user.SetRecommendations(recs)
	if err := u.Create(context.Background(), user); err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// countUsers reads the row count straight from the table.
func countUsers(t *testing.T, u *UserDB) int {
	t.Helper()
	var n int
	require.NoError(t, sqlx.GetContext(context.Background(), u.q, &n, `SELECT COUNT(*) FROM users`))
	return n
}

// =========================================================================
// CREATE
// =========================================================================

func TestUserCreate_PersistsAllFields(t *testing.T) {
	u := newTestDB(t).Users()

	user := &model.User{
		ID:    1,
		Name:  "Ana",
		Email: "a@x.com",
		Age:   ptr(int64(31)),
		ZIP:   ptr("28001"),
	}
	user.SetRecommendations([]string{"book1", "book2", "book1"})

	require.NoError(t, u.Create(context.Background(), user))

	found, err := u.GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, user, found)
}

func TestUserCreate_NullableFieldsStayNull(t *testing.T) {
	u := newTestDB(t).Users()
	createTestUser(t, u, 5, "n@x.com")

	found, err := u.GetByID(context.Background(), 5)
	require.NoError(t, err)
	assert.Nil(t, found.Age)
	assert.Nil(t, found.ZIP)
	assert.NotNil(t, found.GetRecommendations())
	assert.Empty(t, found.GetRecommendations())
}

func TestUserCreate_DuplicateEmail(t *testing.T) {
	u := newTestDB(t).Users()
	createTestUser(t, u, 1, "dup@x.com")

	err := u.Create(context.Background(), &model.User{ID: 2, Name: "other", Email: "dup@x.com"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrConflict), "got %v", err)

	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "user_email", appErr.Field)
	assert.Equal(t, 1, countUsers(t, u), "failed insert must not add a row")
}

func TestUserCreate_DuplicateID(t *testing.T) {
	u := newTestDB(t).Users()
	createTestUser(t, u, 1, "first@x.com")

	err := u.Create(context.Background(), &model.User{ID: 1, Name: "other", Email: "second@x.com"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrConflict), "got %v", err)

	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "user_id", appErr.Field)
	assert.Equal(t, 1, countUsers(t, u))
}

// =========================================================================
// GET BY ID
// =========================================================================

func TestUserGetByID_NotFound(t *testing.T) {
	u := newTestDB(t).Users()

	_, err := u.GetByID(context.Background(), 404)

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrNotFound), "got %v", err)
}

func TestUserGetByID_DefaultRecommendationsColumn(t *testing.T) {
	db := newTestDB(t)

	// A row written by something other than this package.
	_, err := db.conn.Exec(`INSERT INTO users (user_id, user_name, user_email) VALUES (9, 'raw', 'raw@x.com')`)
	require.NoError(t, err)

	found, err := db.Users().GetByID(context.Background(), 9)
	require.NoError(t, err)
	assert.NotNil(t, found.GetRecommendations())
	assert.Empty(t, found.GetRecommendations())
}

// =========================================================================
// UPDATE
// =========================================================================

func TestUserUpdate(t *testing.T) {
	u := newTestDB(t).Users()
	user := createTestUser(t, u, 1, "a@x.com", "book1")

	user.Name = "Renamed"
	user.Age = ptr(int64(40))
	user.SetRecommendations([]string{})
	require.NoError(t, u.Update(context.Background(), user))

	found, err := u.GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", found.Name)
	assert.Equal(t, int64(40), *found.Age)
	assert.Empty(t, found.GetRecommendations())
}

func TestUserUpdate_ClearsNullableFields(t *testing.T) {
	u := newTestDB(t).Users()
	user := &model.User{ID: 1, Name: "a", Email: "a@x.com", Age: ptr(int64(1)), ZIP: ptr("1")}
	require.NoError(t, u.Create(context.Background(), user))

	user.Age = nil
	user.ZIP = nil
	require.NoError(t, u.Update(context.Background(), user))

	found, err := u.GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Nil(t, found.Age)
	assert.Nil(t, found.ZIP)
}

func TestUserUpdate_EmailCollision(t *testing.T) {
	u := newTestDB(t).Users()
	createTestUser(t, u, 1, "one@x.com")
	second := createTestUser(t, u, 2, "two@x.com")

	second.Email = "one@x.com"
	err := u.Update(context.Background(), second)

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrConflict), "got %v", err)

	found, err := u.GetByID(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, "two@x.com", found.Email)
}

func TestUserUpdate_NotFound(t *testing.T) {
	u := newTestDB(t).Users()

	err := u.Update(context.Background(), &model.User{ID: 77, Name: "ghost", Email: "g@x.com"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrNotFound), "got %v", err)
	assert.Equal(t, 0, countUsers(t, u))
}

// =========================================================================
// DELETE
// =========================================================================

func TestUserDelete(t *testing.T) {
	u := newTestDB(t).Users()
	createTestUser(t, u, 1, "a@x.com")

	require.NoError(t, u.Delete(context.Background(), 1))

	_, err := u.GetByID(context.Background(), 1)
	assert.True(t, errors.Is(err, apperror.ErrNotFound), "got %v", err)
}

func TestUserDelete_NotFound(t *testing.T) {
	u := newTestDB(t).Users()
	createTestUser(t, u, 1, "a@x.com")

	err := u.Delete(context.Background(), 2)

	assert.True(t, errors.Is(err, apperror.ErrNotFound), "got %v", err)
	assert.Equal(t, 1, countUsers(t, u))
}

// =========================================================================
// TRANSACTIONS
// =========================================================================

func TestWithTx_CommitsOnSuccess(t *testing.T) {
	u := newTestDB(t).Users()

	err := u.WithTx(context.Background(), func(tx repository.UserRepository) error {
		return tx.Create(context.Background(), &model.User{ID: 1, Name: "a", Email: "a@x.com"})
	})

	require.NoError(t, err)
	assert.Equal(t, 1, countUsers(t, u))
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	u := newTestDB(t).Users()
	user := createTestUser(t, u, 1, "a@x.com")
	boom := errors.New("boom")

	err := u.WithTx(context.Background(), func(tx repository.UserRepository) error {
		user.Name = "changed inside tx"
		if err := tx.Update(context.Background(), user); err != nil {
			return err
		}
		return boom
	})

	assert.ErrorIs(t, err, boom)
	found, err := u.GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "user", found.Name, "update inside failed transaction must not persist")
}

func TestWithTx_RollsBackOnPanic(t *testing.T) {
	u := newTestDB(t).Users()

	assert.Panics(t, func() {
		_ = u.WithTx(context.Background(), func(tx repository.UserRepository) error {
			if err := tx.Create(context.Background(), &model.User{ID: 1, Name: "a", Email: "a@x.com"}); err != nil {
				return err
			}
			panic("mid-transaction")
		})
	})

	assert.Equal(t, 0, countUsers(t, u))
}

func TestWithTx_NestedJoinsOuterTransaction(t *testing.T) {
	u := newTestDB(t).Users()

	err := u.WithTx(context.Background(), func(tx repository.UserRepository) error {
		inner, ok := tx.(repository.Store)
		require.True(t, ok)
		return inner.WithTx(context.Background(), func(tx repository.UserRepository) error {
			return tx.Create(context.Background(), &model.User{ID: 3, Name: "n", Email: "n@x.com"})
		})
	})

	require.NoError(t, err)
	assert.Equal(t, 1, countUsers(t, u))
}
