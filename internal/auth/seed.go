package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/caroduarte/lumina-backend/internal/users"
	"github.com/caroduarte/lumina-backend/pkg/config"
	"github.com/caroduarte/lumina-backend/pkg/enums"
	"github.com/caroduarte/lumina-backend/pkg/logger"
	"github.com/caroduarte/lumina-backend/pkg/security"
)

// SeedAdminUser provisions the initial admin account when no admin exists.
func SeedAdminUser(ctx context.Context, repo *users.Repository, seed config.AdminSeedConfig, passwordCfg config.PasswordConfig, logg *logger.Logger) error {
	if repo == nil {
		return fmt.Errorf("user repository is required")
	}

	count, err := repo.CountByRole(ctx, enums.UserRoleAdmin)
	if err != nil {
		return fmt.Errorf("count admin users: %w", err)
	}
	if count > 0 {
		return nil
	}

	email := strings.ToLower(strings.TrimSpace(seed.Email))
	if email == "" {
		return fmt.Errorf("admin seed email is required")
	}

	if _, err := repo.FindByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("lookup admin seed email: %w", err)
	}

	passwordHash, err := security.HashPassword(seed.Password, passwordCfg)
	if err != nil {
		return fmt.Errorf("hash admin seed password: %w", err)
	}

	if _, err := repo.Create(ctx, users.CreateUserDTO{
		Email:        email,
		PasswordHash: passwordHash,
		Name:         seed.Name,
		Role:         enums.UserRoleAdmin,
	}); err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}

	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{"email": email}), "seeded initial admin user")
	}
	return nil
}
