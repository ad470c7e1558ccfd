// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → applies rules, scopes transactions
//	Repository (Data layer)  → reads/writes the users table
//
// The service never sees an *http.Request and never writes SQL. It takes a
// repository.Store (interface), so tests can inject a gomock MockStore or a
// real in-memory SQLite store without changing this code.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/usersvc/internal/apperror"
	"github.com/sakif/usersvc/internal/model"
	"github.com/sakif/usersvc/internal/repository"
)

// CreateUserInput carries the fields of a new user. Age and ZIP may be nil;
// a nil Recommendations slice is stored as an empty list.
type CreateUserInput struct {
	ID              int64
	Name            string
	Email           string
	Age             *int64
	Recommendations []string
	ZIP             *string
}

// UserService handles business logic for users.
type UserService struct {
	store  repository.Store
	logger *slog.Logger
}

// NewUserService creates a new UserService.
func NewUserService(store repository.Store, logger *slog.Logger) *UserService {
	return &UserService{
		store:  store,
		logger: logger,
	}
}

// Create stores a new user and returns it.
//
// A duplicate email or ID comes back as apperror.ErrConflict and leaves the
// table unchanged: the insert runs in its own transaction.
func (s *UserService) Create(ctx context.Context, in CreateUserInput) (*model.User, error) {
	user := &model.User{
		ID:    in.ID,
		Name:  in.Name,
		Email: in.Email,
		Age:   in.Age,
		ZIP:   in.ZIP,
	}
	user.SetRecommendations(in.Recommendations)

	err := s.store.WithTx(ctx, func(tx repository.UserRepository) error {
		return tx.Create(ctx, user)
	})
	if err != nil {
		s.logFailure(ctx, "failed to create user", in.ID, err)
		return nil, fmt.Errorf("service/user: creating user %d: %w", in.ID, err)
	}

	s.logger.Info("user created",
		slog.Int64("user_id", user.ID),
	)

	return user, nil
}

// GetByID returns the user with the given ID.
// Returns apperror.ErrNotFound if the user doesn't exist.
func (s *UserService) GetByID(ctx context.Context, id int64) (*model.User, error) {
	user, err := s.store.GetByID(ctx, id)
	if err != nil {
		s.logFailure(ctx, "failed to get user", id, err)
		return nil, fmt.Errorf("service/user: getting user %d: %w", id, err)
	}
	return user, nil
}

// Update applies the fields present in patch to the stored user and returns
// the full record after the change.
//
// STRATEGY: "Fetch then update" inside one transaction.
//  1. Fetch the row (NotFound if absent)
//  2. Apply only the present fields
//  3. Write the row back
//
// If step 3 collides on email the transaction rolls back and nothing of the
// patch is persisted.
func (s *UserService) Update(ctx context.Context, id int64, patch model.UserPatch) (*model.User, error) {
	var updated *model.User

	err := s.store.WithTx(ctx, func(tx repository.UserRepository) error {
		user, err := tx.GetByID(ctx, id)
		if err != nil {
			return err
		}

		if err := applyPatch(user, patch); err != nil {
			return err
		}

		if err := tx.Update(ctx, user); err != nil {
			return err
		}

		updated = user
		return nil
	})
	if err != nil {
		s.logFailure(ctx, "failed to update user", id, err)
		return nil, fmt.Errorf("service/user: updating user %d: %w", id, err)
	}

	s.logger.Info("user updated",
		slog.Int64("user_id", id),
	)

	return updated, nil
}

// Delete removes the user with the given ID.
// Returns apperror.ErrNotFound if the user doesn't exist.
func (s *UserService) Delete(ctx context.Context, id int64) error {
	err := s.store.WithTx(ctx, func(tx repository.UserRepository) error {
		if _, err := tx.GetByID(ctx, id); err != nil {
			return err
		}
		return tx.Delete(ctx, id)
	})
	if err != nil {
		s.logFailure(ctx, "failed to delete user", id, err)
		return fmt.Errorf("service/user: deleting user %d: %w", id, err)
	}

	s.logger.Info("user deleted", slog.Int64("user_id", id))
	return nil
}

// applyPatch copies every present field of patch onto user. A present field
// holding a zero value (empty string, 0, empty list) is applied as-is.
//
// Age and ZIP are nullable, so null clears them. Name, email and
// recommendations are NOT NULL columns; null for those is rejected.
func applyPatch(user *model.User, patch model.UserPatch) error {
	if patch.Name.Set {
		if patch.Name.Null {
			return apperror.ValidationFailed("user_name", "user_name may not be null")
		}
		user.Name = patch.Name.Value
	}

	if patch.Email.Set {
		if patch.Email.Null {
			return apperror.ValidationFailed("user_email", "user_email may not be null")
		}
		user.Email = patch.Email.Value
	}

	if patch.Age.Set {
		if patch.Age.Null {
			user.Age = nil
		} else {
			age := patch.Age.Value
			user.Age = &age
		}
	}

	if patch.Recommendations.Set {
		if patch.Recommendations.Null {
			return apperror.ValidationFailed("recommendations", "recommendations may not be null")
		}
		user.SetRecommendations(patch.Recommendations.Value)
	}

	if patch.ZIP.Set {
		if patch.ZIP.Null {
			user.ZIP = nil
		} else {
			zip := patch.ZIP.Value
			user.ZIP = &zip
		}
	}

	return nil
}

// logFailure logs storage failures at Error. Client-caused errors (not
// found, conflict, validation) are normal outcomes and are logged at Debug.
func (s *UserService) logFailure(ctx context.Context, msg string, id int64, err error) {
	level := slog.LevelError
	if apperror.IsClientError(err) {
		level = slog.LevelDebug
	}
	s.logger.Log(ctx, level, msg,
		slog.Int64("user_id", id),
		slog.String("error", err.Error()),
	)
}
