// Package refreshtokens declares the repository contract for server-stored
// refresh tokens and its PostgreSQL implementation.
package refreshtokens

import (
	"context"
	"time"

	"github.com/sgics/sgics/internal/server/models"
)

// Repository issues, looks up and revokes refresh tokens.
type Repository interface {
	// Create stores a new refresh token for userID expiring at now+validity.
	Create(ctx context.Context, userID string, token string, validity time.Duration) error

	// Find returns common.ErrorNotFound when the token is absent.
	Find(ctx context.Context, token string) (*models.RefreshToken, error)

	// Delete removes a token. A token that is already gone, for example
	// consumed by a concurrent refresh, is common.ErrorNotFound.
	Delete(ctx context.Context, token string) error

	// DeleteForUser revokes every token of userID and returns how many were removed.
	DeleteForUser(ctx context.Context, userID string) (int64, error)
}
