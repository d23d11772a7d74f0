// Package users declares the repository contract for SGICS accounts and its
// PostgreSQL implementation.
package users

import (
	"context"

	"github.com/sgics/sgics/internal/server/models"
)

// Repository persists users. Implementations return common.ErrorNotFound for
// missing rows and common.ErrorAlreadyExists for username/email clashes.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	List(ctx context.Context, limit, offset int) ([]*models.User, error)
	UpdateRoles(ctx context.Context, id string, update models.RoleUpdate) (*models.User, error)
	// Deactivate sets is_active=false. Users are never deleted.
	Deactivate(ctx context.Context, id string) error
}
