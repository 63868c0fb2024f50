// Package service implements the application's domain workflows on top of
// the repositories.
package service

import (
	"context"
	"strings"

	"docvault/internal/models"
	"docvault/internal/repository"

	"golang.org/x/crypto/bcrypt"
)

// UserLifecycleService manages registration, admin-driven account
// management, and the login-time status gate.
type UserLifecycleService struct {
	users repository.UserRepository
}

// NewUserLifecycleService returns a new UserLifecycleService.
func NewUserLifecycleService(users repository.UserRepository) *UserLifecycleService {
	return &UserLifecycleService{users: users}
}

// Register creates a self-registered account. It starts pending and cannot
// log in until an admin approves it.
func (s *UserLifecycleService) Register(ctx context.Context, username, password, note string) (*models.User, error) {
	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)
	if username == "" || password == "" {
		return nil, models.NewValidationError("Username and password are required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		Username:     username,
		Role:         models.RoleUser,
		Status:       models.UserStatusPending,
		Note:         note,
		PasswordHash: string(hash),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// AdminCreateInput carries the fields of an admin-created account.
type AdminCreateInput struct {
	Username string
	Email    string
	Password string
	Role     models.Role
}

// AdminCreate creates an account on behalf of an admin. It is active
// immediately.
func (s *UserLifecycleService) AdminCreate(ctx context.Context, in AdminCreateInput) (*models.User, error) {
	if !in.Role.Valid() {
		return nil, models.NewValidationError("Invalid role")
	}
	if strings.TrimSpace(in.Username) == "" || strings.TrimSpace(in.Password) == "" {
		return nil, models.NewValidationError("Username and password are required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		Username:     in.Username,
		Role:         in.Role,
		Status:       models.UserStatusActive,
		PasswordHash: string(hash),
	}
	if email := strings.TrimSpace(in.Email); email != "" {
		user.Email = &email
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Approve activates a pending account. Admin rows are never transitioned;
// they report not-found like nonexistent ones.
func (s *UserLifecycleService) Approve(ctx context.Context, userID string) error {
	changed, err := s.users.UpdateStatus(ctx, userID, models.UserStatusActive)
	if err != nil {
		return err
	}
	if !changed {
		return models.NewNotFoundError("User", userID)
	}
	return nil
}

// Disable blocks an account from future logins. Outstanding session tokens
// stay valid until they expire.
func (s *UserLifecycleService) Disable(ctx context.Context, userID string) error {
	changed, err := s.users.UpdateStatus(ctx, userID, models.UserStatusDisabled)
	if err != nil {
		return err
	}
	if !changed {
		return models.NewNotFoundError("User", userID)
	}
	return nil
}

// Delete removes the account with its owned documents and ledger entries,
// returning the blob paths of the deleted documents for cleanup.
func (s *UserLifecycleService) Delete(ctx context.Context, userID string) ([]string, error) {
	return s.users.DeleteCascade(ctx, userID)
}

// Login verifies credentials and the account's status gate. The identifier
// matches either email or username.
func (s *UserLifecycleService) Login(ctx context.Context, identifier, password string) (*models.User, error) {
	user, err := s.users.GetByIdentifier(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewUnauthorizedError("Invalid credentials")
	}

	if user.Status != models.UserStatusActive {
		return nil, models.NewForbiddenError("Account is not active")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		if err == bcrypt.ErrMismatchedHashAndPassword {
			return nil, models.NewUnauthorizedError("Invalid credentials")
		}
		return nil, models.NewInternalError(err)
	}

	return user, nil
}
