// Package services contains server-side business logic. This file implements
// UserService, which handles login, issuing/refreshing JWTs plus server-stored
// refresh tokens, resolving request principals and account administration.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/sgics/sgics/internal/common"
	"github.com/sgics/sgics/internal/dbx"
	"github.com/sgics/sgics/internal/logging"
	"github.com/sgics/sgics/internal/server/access"
	"github.com/sgics/sgics/internal/server/auth"
	"github.com/sgics/sgics/internal/server/config"
	"github.com/sgics/sgics/internal/server/models"
	"github.com/sgics/sgics/internal/server/repositories/repomanager"
)

const (
	minPasswordLength = 8
	defaultPageSize   = 50
	maxPageSize       = 200
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// NewUser is the input of CreateUser. A nil IsTreasurer stores NULL.
type NewUser struct {
	Username    string
	Email       string
	Password    []byte
	IsStaff     bool
	IsTreasurer *bool
	IsSuperuser bool
}

type UserService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	hasher                       auth.PasswordHasher
	jwtSecret                    []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
	logger                       logging.Logger
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, hasher auth.PasswordHasher, cfg *config.Config, logger logging.Logger) *UserService {
	return &UserService{
		db:                           db,
		repomanager:                  m,
		hasher:                       hasher,
		jwtSecret:                    []byte(cfg.SecretKey),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
		logger:                       logger.With("module", "users"),
	}
}

// Login checks username and password and issues a token pair. Unknown,
// inactive and wrong-password accounts all yield common.ErrorUnauthorized.
func (s *UserService) Login(ctx context.Context, userName string, password []byte) (*TokenPair, error) {
	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByUsername(ctx, userName)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		s.logger.Error(ctx, "login lookup failed", "error", err.Error())
		return nil, common.ErrorInternal
	}

	if !user.IsActive {
		return nil, common.ErrorUnauthorized
	}

	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		if !errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.Warn(ctx, "stored password hash is unusable", "user_id", user.ID, "error", err.Error())
		}
		return nil, common.ErrorUnauthorized
	}

	var pair *TokenPair
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		pair, err = s.generateTokenPair(ctx, tx, user.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return pair, nil
}

// RefreshToken rotates a refresh token: the presented token is deleted and a
// new pair issued in one transaction. Only the caller whose delete removed the
// row gets a pair; a concurrent reuse of the same token is unauthorized.
func (s *UserService) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	repo := s.repomanager.RefreshTokens(s.db)

	token, err := repo.Find(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, fmt.Errorf("error searching refresh token: %w", err)
	}

	if token.Expires.Before(time.Now()) {
		if err := repo.Delete(ctx, refreshToken); err != nil && !errors.Is(err, common.ErrorNotFound) {
			s.logger.Warn(ctx, "failed to purge expired refresh token", "error", err.Error())
		}
		return nil, common.ErrRefreshTokenExpired
	}

	var tokenPair *TokenPair
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.RefreshTokens(tx).Delete(ctx, refreshToken); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				s.logger.Warn(ctx, "refresh token reused", "user_id", token.UserID)
				return common.ErrorUnauthorized
			}
			return fmt.Errorf("error deleting refresh token: %w", err)
		}

		tokenPair, err = s.generateTokenPair(ctx, tx, token.UserID)
		if err != nil {
			return fmt.Errorf("error generating token pair: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return tokenPair, nil
}

// Principal resolves an access token into the caller. A valid token whose
// account is missing or inactive resolves to access.Anonymous. Token errors
// are common.ErrTokenExpired or common.ErrInvalidToken.
func (s *UserService) Principal(ctx context.Context, accessToken string) (access.Principal, error) {
	userID, err := auth.GetUserIDFromToken(accessToken, s.jwtSecret)
	if err != nil {
		return access.Anonymous, err
	}

	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return access.Anonymous, nil
		}
		s.logger.Error(ctx, "principal lookup failed", "user_id", userID, "error", err.Error())
		return access.Anonymous, common.ErrorInternal
	}
	return access.FromUser(user), nil
}

// CreateUser validates input, hashes the password and stores the account.
func (s *UserService) CreateUser(ctx context.Context, in NewUser) (*models.User, error) {
	if err := validateNewUser(in); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	user := &models.User{
		UserName:     strings.TrimSpace(in.Username),
		Email:        strings.TrimSpace(in.Email),
		PasswordHash: hash,
		IsStaff:      in.IsStaff,
		IsSuperuser:  in.IsSuperuser,
		IsActive:     true,
	}
	if in.IsTreasurer != nil {
		user.IsTreasurer = sql.NullBool{Bool: *in.IsTreasurer, Valid: true}
	}

	user, err = s.repomanager.Users(s.db).Create(ctx, user)
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	s.logger.Info(ctx, "user created", "user_id", user.ID, "username", user.UserName,
		"is_staff", user.IsStaff, "is_treasurer", user.Treasurer(), "is_superuser", user.IsSuperuser)
	return user, nil
}

func validateNewUser(in NewUser) error {
	var errs []error
	if strings.TrimSpace(in.Username) == "" {
		errs = append(errs, fmt.Errorf("%w: username is required", common.ErrorValidation))
	}
	if _, err := mail.ParseAddress(strings.TrimSpace(in.Email)); err != nil {
		errs = append(errs, fmt.Errorf("%w: email is invalid", common.ErrorValidation))
	}
	if len(in.Password) < minPasswordLength {
		errs = append(errs, fmt.Errorf("%w: password must have at least %d characters", common.ErrorValidation, minPasswordLength))
	}
	return errors.Join(errs...)
}

// ListUsers pages through accounts ordered by username. limit is clamped to
// [1, 200]; zero means the default page size.
func (s *UserService) ListUsers(ctx context.Context, limit, offset int) ([]*models.User, error) {
	switch {
	case limit <= 0:
		limit = defaultPageSize
	case limit > maxPageSize:
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return s.repomanager.Users(s.db).List(ctx, limit, offset)
}

func (s *UserService) GetUser(ctx context.Context, id string) (*models.User, error) {
	return s.repomanager.Users(s.db).GetByID(ctx, id)
}

// SetRoles grants or revokes capability flags. An update with no field set
// is a validation error.
func (s *UserService) SetRoles(ctx context.Context, id string, update models.RoleUpdate) (*models.User, error) {
	if update.IsStaff == nil && update.IsTreasurer == nil {
		return nil, fmt.Errorf("%w: no role given", common.ErrorValidation)
	}

	user, err := s.repomanager.Users(s.db).UpdateRoles(ctx, id, update)
	if err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "roles updated", "user_id", id, "is_staff", user.IsStaff, "is_treasurer", user.Treasurer())
	return user, nil
}

// DeactivateUser marks the account inactive and revokes its refresh tokens
// in one transaction.
func (s *UserService) DeactivateUser(ctx context.Context, id string) error {
	var revoked int64
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Users(tx).Deactivate(ctx, id); err != nil {
			return err
		}
		n, err := s.repomanager.RefreshTokens(tx).DeleteForUser(ctx, id)
		if err != nil {
			return fmt.Errorf("error revoking refresh tokens: %w", err)
		}
		revoked = n
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info(ctx, "user deactivated", "user_id", id, "revoked_tokens", revoked)
	return nil
}

func (s *UserService) generateAccessToken(userID string) (string, error) {
	return auth.GenerateToken(userID, s.jwtSecret, s.accessTokenValidityDuration)
}

func (s *UserService) generateRefreshToken() (string, error) {
	return common.MakeRandHexString(32)
}

func (s *UserService) generateTokenPair(ctx context.Context, db dbx.DBTX, userID string) (*TokenPair, error) {
	accessToken, err := s.generateAccessToken(userID)
	if err != nil {
		return nil, common.ErrorInternal
	}

	refreshToken, err := s.generateRefreshToken()
	if err != nil {
		return nil, common.ErrorInternal
	}

	err = s.repomanager.RefreshTokens(db).Create(ctx, userID, refreshToken, s.refreshTokenValidityDuration)
	if err != nil {
		return nil, common.ErrorInternal
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}
