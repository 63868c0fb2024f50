// Package bootstrap establishes process-wide runtime state at startup.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"docvault/internal/cache"
	"docvault/internal/config"
	"docvault/internal/database"
	"docvault/internal/middleware"
	"docvault/internal/models"
	"docvault/internal/repository"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// InitRuntime connects to the database and Redis and ensures the default
// admin account exists.
func InitRuntime(cfg *config.Config) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	// Optional: nil client when unset or unreachable.
	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()

	if err := EnsureDefaultAdmin(context.Background(), cfg, db); err != nil {
		return nil, nil, fmt.Errorf("failed to bootstrap default admin: %w", err)
	}

	return db, r, nil
}

// EnsureDefaultAdmin upserts the admin account resolved from configuration.
// An existing account matching the configured email or username gets its
// credentials and role overwritten, so the platform can always be recovered
// from environment configuration alone.
func EnsureDefaultAdmin(ctx context.Context, cfg *config.Config, db *gorm.DB) error {
	email := strings.TrimSpace(cfg.DefaultAdminEmail)
	username := strings.TrimSpace(cfg.DefaultAdminUsername)
	password := cfg.DefaultAdminPassword

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	users := repository.NewUserRepository(db)
	existing, err := users.GetByEmailOrUsername(ctx, email, username)
	if err != nil {
		return err
	}

	if existing != nil {
		existing.Username = username
		existing.Email = &email
		existing.PasswordHash = string(hash)
		existing.Role = models.RoleAdmin
		existing.Status = models.UserStatusActive
		if err := users.Update(ctx, existing); err != nil {
			return err
		}
		middleware.Logger.Info("default admin ensured", slog.String("username", username))
		return nil
	}

	admin := &models.User{
		Username:     username,
		Email:        &email,
		Role:         models.RoleAdmin,
		Status:       models.UserStatusActive,
		PasswordHash: string(hash),
	}
	if err := users.Create(ctx, admin); err != nil {
		return err
	}
	middleware.Logger.Info("default admin created", slog.String("username", username))
	return nil
}
