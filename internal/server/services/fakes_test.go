package services

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strconv"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sgics/sgics/internal/common"
	"github.com/sgics/sgics/internal/dbx"
	"github.com/sgics/sgics/internal/logging"
	"github.com/sgics/sgics/internal/server/auth"
	"github.com/sgics/sgics/internal/server/config"
	"github.com/sgics/sgics/internal/server/models"
	"github.com/sgics/sgics/internal/server/repositories/refreshtokens"
	"github.com/sgics/sgics/internal/server/repositories/schemaledger"
	"github.com/sgics/sgics/internal/server/repositories/users"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var errBoom = errors.New("boom")

const testSecret = "k"

type fakeUsersRepo struct {
	byID   map[string]*models.User
	nextID int

	createErr     error
	getErr        error
	deactivateErr error
}

func newFakeUsers() *fakeUsersRepo {
	return &fakeUsersRepo{byID: make(map[string]*models.User)}
}

func (f *fakeUsersRepo) add(u *models.User) *models.User {
	f.nextID++
	u.ID = "u" + strconv.Itoa(f.nextID)
	u.CreatedAt = time.Now()
	f.byID[u.ID] = u
	return u
}

func (f *fakeUsersRepo) Create(_ context.Context, u *models.User) (*models.User, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	for _, existing := range f.byID {
		if existing.UserName == u.UserName {
			return nil, common.ErrorAlreadyExists
		}
	}
	return f.add(u), nil
}

func (f *fakeUsersRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return u, nil
}

func (f *fakeUsersRepo) GetByUsername(_ context.Context, username string) (*models.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, u := range f.byID {
		if u.UserName == username {
			return u, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) List(_ context.Context, limit, offset int) ([]*models.User, error) {
	out := make([]*models.User, 0, len(f.byID))
	for _, u := range f.byID {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserName < out[j].UserName })
	if offset >= len(out) {
		return []*models.User{}, nil
	}
	out = out[offset:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeUsersRepo) UpdateRoles(_ context.Context, id string, upd models.RoleUpdate) (*models.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	if upd.IsStaff != nil {
		u.IsStaff = *upd.IsStaff
	}
	if upd.IsTreasurer != nil {
		u.IsTreasurer = sql.NullBool{Bool: *upd.IsTreasurer, Valid: true}
	}
	return u, nil
}

func (f *fakeUsersRepo) Deactivate(_ context.Context, id string) error {
	if f.deactivateErr != nil {
		return f.deactivateErr
	}
	u, ok := f.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.IsActive = false
	return nil
}

type fakeRefreshRepo struct {
	tokens map[string]*models.RefreshToken

	findErr   error
	delErr    error
	createErr error
}

func newFakeRefresh() *fakeRefreshRepo {
	return &fakeRefreshRepo{tokens: make(map[string]*models.RefreshToken)}
}

func (f *fakeRefreshRepo) Create(_ context.Context, userID, token string, validity time.Duration) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.tokens[token] = &models.RefreshToken{UserID: userID, Token: token, Expires: time.Now().Add(validity)}
	return nil
}

func (f *fakeRefreshRepo) Find(_ context.Context, token string) (*models.RefreshToken, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	t, ok := f.tokens[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return t, nil
}

func (f *fakeRefreshRepo) Delete(_ context.Context, token string) error {
	if f.delErr != nil {
		return f.delErr
	}
	if _, ok := f.tokens[token]; !ok {
		return common.ErrorNotFound
	}
	delete(f.tokens, token)
	return nil
}

func (f *fakeRefreshRepo) DeleteForUser(_ context.Context, userID string) (int64, error) {
	if f.delErr != nil {
		return 0, f.delErr
	}
	var n int64
	for k, t := range f.tokens {
		if t.UserID == userID {
			delete(f.tokens, k)
			n++
		}
	}
	return n, nil
}

type fakeRepoManager struct {
	u *fakeUsersRepo
	r *fakeRefreshRepo
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error    { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) users.Repository                 { return m.u }
func (m *fakeRepoManager) RefreshTokens(dbx.DBTX) refreshtokens.Repository { return m.r }
func (m *fakeRepoManager) Ledger(dbx.DBTX) schemaledger.Repository         { return nil }

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func newUserService(t *testing.T, db *sql.DB) (*UserService, *fakeRepoManager) {
	t.Helper()
	cfg := &config.Config{
		SecretKey:                    testSecret,
		AccessTokenValidityDuration:  time.Hour,
		RefreshTokenValidityDuration: 2 * time.Hour,
	}
	rm := &fakeRepoManager{u: newFakeUsers(), r: newFakeRefresh()}
	return NewUserService(db, rm, auth.BcryptHasher{Cost: bcrypt.MinCost}, cfg, logging.Nop{}), rm
}

func mustHash(t *testing.T, pw string) []byte {
	t.Helper()
	h, err := auth.BcryptHasher{Cost: bcrypt.MinCost}.Hash([]byte(pw))
	require.NoError(t, err)
	return h
}
