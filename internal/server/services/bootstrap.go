package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sgics/sgics/internal/common"
)

// generatedPasswordBytes is the entropy of a generated one-time password
// (hex encoded, so twice as many characters).
const generatedPasswordBytes = 12

// SuperuserRequest carries the bootstrap credentials, usually read from
// ADMIN_USERNAME, ADMIN_EMAIL and ADMIN_PASSWORD.
type SuperuserRequest struct {
	Username string
	Email    string
	Password []byte
}

// PasswordPrompt asks an operator for a password. Nil means no interactive
// input is available.
type PasswordPrompt func() ([]byte, error)

// BootstrapResult reports what EnsureSuperuser did.
type BootstrapResult struct {
	Created bool
	UserID  string
	// GeneratedPassword is set when a one-time password was generated.
	GeneratedPassword string
}

// EnsureSuperuser creates the initial administrator unless the username
// already exists. A missing password is asked for through prompt; if it is
// still missing, production fails with common.ErrNoSecureCredential and any
// other environment gets a random one-time password written to out.
func (s *UserService) EnsureSuperuser(ctx context.Context, req SuperuserRequest, production bool, prompt PasswordPrompt, out io.Writer) (*BootstrapResult, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return nil, fmt.Errorf("%w: admin username is required", common.ErrorValidation)
	}

	existing, err := s.repomanager.Users(s.db).GetByUsername(ctx, username)
	switch {
	case err == nil:
		s.logger.Info(ctx, "superuser already exists; nothing to do", "username", username, "user_id", existing.ID)
		return &BootstrapResult{UserID: existing.ID}, nil
	case !errors.Is(err, common.ErrorNotFound):
		return nil, fmt.Errorf("error looking up %q: %w", username, err)
	}

	password := req.Password
	if len(password) == 0 && prompt != nil {
		password, err = prompt()
		if err != nil {
			return nil, fmt.Errorf("error reading password: %w", err)
		}
	}
	defer common.WipeByteArray(password)

	var generated string
	if len(password) == 0 {
		if production {
			return nil, fmt.Errorf("%w: set ADMIN_PASSWORD or run interactively", common.ErrNoSecureCredential)
		}
		generated, err = common.MakeRandHexString(generatedPasswordBytes)
		if err != nil {
			return nil, fmt.Errorf("error generating password: %w", err)
		}
		password = []byte(generated)
	}

	user, err := s.CreateUser(ctx, NewUser{
		Username:    username,
		Email:       req.Email,
		Password:    password,
		IsStaff:     true,
		IsSuperuser: true,
	})
	if err != nil {
		return nil, err
	}

	if generated != "" {
		s.logger.Warn(ctx, "generated a one-time superuser password; change it after first login", "username", username)
		if out != nil {
			fmt.Fprintf(out, "One-time password for %s: %s\n", username, generated)
		}
	}

	return &BootstrapResult{Created: true, UserID: user.ID, GeneratedPassword: generated}, nil
}
