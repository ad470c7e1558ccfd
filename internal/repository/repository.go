// Package repository declares the storage contracts the service layer depends on.
package repository

//go:generate mockgen -destination=mocks/mock_repository.go -package=mocks github.com/sakif/usersvc/internal/repository UserRepository,Store

import (
	"context"

	"github.com/sakif/usersvc/internal/model"
)

// UserRepository performs single-row operations on users.
//
// Errors are *apperror.AppError where a caller can act on them:
//   - Create: ErrConflict on a duplicate user_id or user_email
//   - GetByID: ErrNotFound when no row exists
//   - Update: ErrConflict on an email collision, ErrNotFound when no row matched
//   - Delete: ErrNotFound when no row was removed
//
// Anything else is an internal storage failure.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	Update(ctx context.Context, user *model.User) error
	Delete(ctx context.Context, id int64) error
}

// Store is a UserRepository that can also scope work to a transaction.
//
// WithTx calls fn with a repository bound to a new transaction. The
// transaction commits if fn returns nil and rolls back if fn returns an
// error or panics.
type Store interface {
	UserRepository
	WithTx(ctx context.Context, fn func(tx UserRepository) error) error
}
