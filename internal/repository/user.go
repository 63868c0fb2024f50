// Package repository implements the data access layer for the application.
package repository

import (
	"context"
	"errors"
	"strings"

	"docvault/internal/cache"
	"docvault/internal/models"

	"gorm.io/gorm"
)

// DirectoryEntry is the public slice of a user exposed to every
// authenticated user for building share lists.
type DirectoryEntry struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByIdentifier(ctx context.Context, identifier string) (*models.User, error)
	GetByEmailOrUsername(ctx context.Context, email, username string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	UpdateStatus(ctx context.Context, id string, status models.UserStatus) (bool, error)
	DeleteCascade(ctx context.Context, id string) ([]string, error)
	List(ctx context.Context) ([]models.User, error)
	ListPending(ctx context.Context) ([]models.User, error)
	Directory(ctx context.Context) ([]DirectoryEntry, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("User", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

// GetByIdentifier looks a user up by email or username, for login. A missing
// user is (nil, nil) so callers can produce credential errors themselves.
func (r *userRepository) GetByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where("email = ? OR username = ?", identifier, identifier).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

// GetByEmailOrUsername finds the oldest user matching either value, for the
// default-admin bootstrap. A missing user is (nil, nil).
func (r *userRepository) GetByEmailOrUsername(ctx context.Context, email, username string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where("email = ? OR username = ?", email, username).
		Order("created_at ASC").
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("User already exists")
		}
		return models.NewInternalError(err)
	}
	cache.InvalidateUserDirectory(ctx)
	return nil
}

func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Save(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("User already exists")
		}
		return models.NewInternalError(err)
	}
	cache.InvalidateUserDirectory(ctx)
	return nil
}

// UpdateStatus transitions a regular user's status. Admin rows are never
// touched; the role guard lives in the WHERE clause so the check and the
// write are a single statement. Returns false when no row changed.
func (r *userRepository) UpdateStatus(ctx context.Context, id string, status models.UserStatus) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ? AND role = ?", id, models.RoleUser).
		Update("status", status)
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

// DeleteCascade removes the user together with their owned documents and
// every ledger row referencing either, in one transaction. It returns the
// blob paths of the deleted documents so the caller can remove the files
// after commit.
func (r *userRepository) DeleteCascade(ctx context.Context, id string) ([]string, error) {
	var relPaths []string

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var docs []models.Document
		if err := tx.Select("id", "storage_rel_path").
			Where("owner_id = ?", id).
			Find(&docs).Error; err != nil {
			return err
		}

		docIDs := make([]string, 0, len(docs))
		for _, d := range docs {
			docIDs = append(docIDs, d.ID)
			relPaths = append(relPaths, d.StorageRelPath)
		}

		if len(docIDs) > 0 {
			if err := tx.Where("document_id IN ?", docIDs).
				Delete(&models.DownloadRequest{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("requester_id = ?", id).
			Delete(&models.DownloadRequest{}).Error; err != nil {
			return err
		}
		if err := tx.Where("owner_id = ?", id).
			Delete(&models.Document{}).Error; err != nil {
			return err
		}

		res := tx.Where("id = ?", id).Delete(&models.User{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("User", id)
		}
		return nil
	})
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, models.NewInternalError(err)
	}

	cache.InvalidateUserDirectory(ctx)
	return relPaths, nil
}

func (r *userRepository) List(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

func (r *userRepository) ListPending(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := r.db.WithContext(ctx).
		Where("status = ?", models.UserStatusPending).
		Order("created_at ASC").
		Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

func (r *userRepository) Directory(ctx context.Context) ([]DirectoryEntry, error) {
	var entries []DirectoryEntry

	err := cache.Aside(ctx, cache.UserDirectoryKey, &entries, cache.UserDirectoryTTL, func() error {
		var users []models.User
		if err := r.db.WithContext(ctx).
			Select("id", "username", "email").
			Order("created_at DESC").
			Find(&users).Error; err != nil {
			return models.NewInternalError(err)
		}
		entries = make([]DirectoryEntry, 0, len(users))
		for _, u := range users {
			entries = append(entries, DirectoryEntry{
				ID:       u.ID,
				Username: u.Username,
				Email:    u.EmailString(),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// isUniqueConstraintError checks if a DB error is a unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	// PostgreSQL unique violation SQLSTATE 23505; SQLite reports
	// "UNIQUE constraint failed".
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "23505")
}
