package rest

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/sgics/sgics/internal/logging"
	"github.com/sgics/sgics/internal/server/access"
	"github.com/sgics/sgics/internal/server/health"
	"github.com/sgics/sgics/internal/server/models"
	"github.com/sgics/sgics/internal/server/schema"
	"github.com/sgics/sgics/internal/server/services"
)

// UserService is the part of services.UserService the API uses.
type UserService interface {
	Login(ctx context.Context, userName string, password []byte) (*services.TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	Principal(ctx context.Context, accessToken string) (access.Principal, error)
	CreateUser(ctx context.Context, in services.NewUser) (*models.User, error)
	ListUsers(ctx context.Context, limit, offset int) ([]*models.User, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
	SetRoles(ctx context.Context, id string, update models.RoleUpdate) (*models.User, error)
	DeactivateUser(ctx context.Context, id string) error
}

// Readiness reports whether dependencies are reachable.
type Readiness interface {
	Ready(ctx context.Context) health.Report
}

// MigrationStatus reports the resolved app-migration plan against the ledger.
type MigrationStatus func(ctx context.Context) (schema.Status, error)

type Deps struct {
	Users      UserService
	Readiness  Readiness
	Migrations MigrationStatus
	Logger     logging.Logger
}

// NewRouter registers every route explicitly. Probes are public; everything
// under /api/ goes through authentication and the role gate, and account
// writes additionally need staff.
func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(RequestLogger(d.Logger), Recovery(d.Logger))

	h := &healthHandler{ready: d.Readiness}
	for _, p := range []string{"/", "/healthz", "/livez", "/live/"} {
		r.GET(p, h.Live)
		r.HEAD(p, h.Live)
	}
	for _, p := range []string{"/readyz", "/ready/"} {
		r.GET(p, h.Ready)
		r.HEAD(p, h.Ready)
	}

	ah := &authHandler{users: d.Users, logger: d.Logger}
	authGroup := r.Group("/api/auth")
	{
		authGroup.POST("/login", ah.Login)
		authGroup.POST("/refresh", ah.Refresh)
	}

	api := r.Group("/api")
	api.Use(Authenticate(d.Users, d.Logger), RequireAuthenticated(), RequireRole())
	{
		uh := &userHandler{users: d.Users, logger: d.Logger}
		users := api.Group("/users", RequireStaff())
		users.GET("", uh.List)
		users.POST("", uh.Create)
		users.GET("/:id", uh.Get)
		users.PATCH("/:id/roles", uh.SetRoles)
		users.DELETE("/:id", uh.Deactivate)

		mh := &migrationHandler{status: d.Migrations, logger: d.Logger}
		api.GET("/migrations", mh.Plan)
	}

	return r
}
