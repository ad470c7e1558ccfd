package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/sakif/usersvc/internal/apperror"
	"github.com/sakif/usersvc/internal/model"
	"github.com/sakif/usersvc/internal/repository"
)

var (
	_ repository.UserRepository = (*UserDB)(nil)
	_ repository.Store          = (*UserDB)(nil)
)

const usersTable = "users"

var userColumns = []string{"user_id", "user_name", "user_email", "age", "recommendations", "zip"}

// userRow is the on-disk shape of a user.
type userRow struct {
	ID              int64                 `db:"user_id"`
	Name            string                `db:"user_name"`
	Email           string                `db:"user_email"`
	Age             sql.NullInt64         `db:"age"`
	Recommendations model.Recommendations `db:"recommendations"`
	ZIP             sql.NullString        `db:"zip"`
}

func toRow(u *model.User) userRow {
	row := userRow{
		ID:              u.ID,
		Name:            u.Name,
		Email:           u.Email,
		Recommendations: u.GetRecommendations(),
	}
	if u.Age != nil {
		row.Age = sql.NullInt64{Int64: *u.Age, Valid: true}
	}
	if u.ZIP != nil {
		row.ZIP = sql.NullString{String: *u.ZIP, Valid: true}
	}
	return row
}

func (r userRow) toModel() *model.User {
	u := &model.User{
		ID:    r.ID,
		Name:  r.Name,
		Email: r.Email,
	}
	if r.Age.Valid {
		age := r.Age.Int64
		u.Age = &age
	}
	if r.ZIP.Valid {
		zip := r.ZIP.String
		u.ZIP = &zip
	}
	u.SetRecommendations(r.Recommendations)
	return u
}

// UserDB runs user queries against either the pool or a transaction.
type UserDB struct {
	q  sqlx.ExtContext
	db *DB
}

// Create inserts a new user. The caller supplies the ID.
func (u *UserDB) Create(ctx context.Context, user *model.User) error {
	row := toRow(user)

	query, args, err := sq.Insert(usersTable).
		Columns(userColumns...).
		Values(row.ID, row.Name, row.Email, row.Age, row.Recommendations, row.ZIP).
		PlaceholderFormat(sq.Question).
		ToSql()
	if err != nil {
		return fmt.Errorf("sqlite: building insert: %w", err)
	}

	if _, err := u.q.ExecContext(ctx, query, args...); err != nil {
		if appErr := constraintError(err); appErr != nil {
			return appErr
		}
		return fmt.Errorf("sqlite: creating user %d: %w", user.ID, err)
	}

	return nil
}

// GetByID returns the user with the given ID or apperror.ErrNotFound.
func (u *UserDB) GetByID(ctx context.Context, id int64) (*model.User, error) {
	query, args, err := sq.Select(userColumns...).
		From(usersTable).
		Where(sq.Eq{"user_id": id}).
		PlaceholderFormat(sq.Question).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("sqlite: building select: %w", err)
	}

	var row userRow
	if err := sqlx.GetContext(ctx, u.q, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("User", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %d: %w", id, err)
	}

	return row.toModel(), nil
}

// Update writes every column of user back to its row.
func (u *UserDB) Update(ctx context.Context, user *model.User) error {
	row := toRow(user)

	query, args, err := sq.Update(usersTable).
		SetMap(map[string]any{
			"user_name":       row.Name,
			"user_email":      row.Email,
			"age":             row.Age,
			"recommendations": row.Recommendations,
			"zip":             row.ZIP,
		}).
		Where(sq.Eq{"user_id": row.ID}).
		PlaceholderFormat(sq.Question).
		ToSql()
	if err != nil {
		return fmt.Errorf("sqlite: building update: %w", err)
	}

	result, err := u.q.ExecContext(ctx, query, args...)
	if err != nil {
		if appErr := constraintError(err); appErr != nil {
			return appErr
		}
		return fmt.Errorf("sqlite: updating user %d: %w", user.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("User", user.ID)
	}

	return nil
}

// Delete removes the user with the given ID.
func (u *UserDB) Delete(ctx context.Context, id int64) error {
	query, args, err := sq.Delete(usersTable).
		Where(sq.Eq{"user_id": id}).
		PlaceholderFormat(sq.Question).
		ToSql()
	if err != nil {
		return fmt.Errorf("sqlite: building delete: %w", err)
	}

	result, err := u.q.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("sqlite: deleting user %d: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("User", id)
	}

	return nil
}

// WithTx runs fn inside a transaction. If u is already bound to a transaction
// fn joins it.
func (u *UserDB) WithTx(ctx context.Context, fn func(tx repository.UserRepository) error) (err error) {
	if _, ok := u.q.(*sqlx.Tx); ok {
		return fn(u)
	}

	tx, err := u.db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				u.db.logger.Error("transaction rollback failed",
					slog.String("error", rbErr.Error()),
				)
			}
		}
	}()

	if err = fn(&UserDB{q: tx, db: u.db}); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		if appErr := constraintError(err); appErr != nil {
			return appErr
		}
		return fmt.Errorf("sqlite: committing transaction: %w", err)
	}
	return nil
}
