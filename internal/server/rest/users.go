package rest

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sgics/sgics/internal/logging"
	"github.com/sgics/sgics/internal/server/access"
	"github.com/sgics/sgics/internal/server/models"
	"github.com/sgics/sgics/internal/server/services"
)

type userResponse struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	IsStaff     bool      `json:"is_staff"`
	IsTreasurer bool      `json:"is_treasurer"`
	IsSuperuser bool      `json:"is_superuser"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

func toUserResponse(u *models.User) userResponse {
	return userResponse{
		ID:          u.ID,
		Username:    u.UserName,
		Email:       u.Email,
		IsStaff:     u.IsStaff,
		IsTreasurer: u.Treasurer(),
		IsSuperuser: u.IsSuperuser,
		IsActive:    u.IsActive,
		CreatedAt:   u.CreatedAt,
	}
}

type createUserRequest struct {
	Username    string `json:"username" binding:"required"`
	Email       string `json:"email" binding:"required"`
	Password    string `json:"password" binding:"required"`
	IsStaff     bool   `json:"is_staff"`
	IsTreasurer *bool  `json:"is_treasurer"`
}

type rolesRequest struct {
	IsStaff     *bool `json:"is_staff"`
	IsTreasurer *bool `json:"is_treasurer"`
}

type userHandler struct {
	users  UserService
	logger logging.Logger
}

func (h *userHandler) List(c *gin.Context) {
	limit, err1 := queryInt(c, "limit")
	offset, err2 := queryInt(c, "offset")
	if err1 != nil || err2 != nil {
		c.JSON(http.StatusBadRequest, errorBody("limit and offset must be integers"))
		return
	}

	list, err := h.users.ListUsers(c.Request.Context(), limit, offset)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	out := make([]userResponse, 0, len(list))
	for _, u := range list {
		out = append(out, toUserResponse(u))
	}
	c.JSON(http.StatusOK, gin.H{"results": out})
}

func (h *userHandler) Get(c *gin.Context) {
	u, err := h.users.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, toUserResponse(u))
}

func (h *userHandler) Create(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("invalid request"))
		return
	}

	u, err := h.users.CreateUser(c.Request.Context(), services.NewUser{
		Username:    req.Username,
		Email:       req.Email,
		Password:    []byte(req.Password),
		IsStaff:     req.IsStaff,
		IsTreasurer: req.IsTreasurer,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, toUserResponse(u))
}

func (h *userHandler) SetRoles(c *gin.Context) {
	var req rolesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("invalid request"))
		return
	}

	if !h.authorizeTarget(c) {
		return
	}

	u, err := h.users.SetRoles(c.Request.Context(), c.Param("id"), models.RoleUpdate{
		IsStaff:     req.IsStaff,
		IsTreasurer: req.IsTreasurer,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, toUserResponse(u))
}

// Deactivate is the DELETE verb; accounts are only ever deactivated.
func (h *userHandler) Deactivate(c *gin.Context) {
	if !h.authorizeTarget(c) {
		return
	}
	if err := h.users.DeactivateUser(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// authorizeTarget loads the account named by :id and runs the object-level
// check against it. On false the response has been written.
func (h *userHandler) authorizeTarget(c *gin.Context) bool {
	target, err := h.users.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return false
	}
	p, _ := principalFrom(c)
	if !access.AuthorizeAccount(p, access.Classify(c.Request.Method), target) {
		c.JSON(http.StatusForbidden, errorBody("cannot change your own account"))
		return false
	}
	return true
}

func queryInt(c *gin.Context, key string) (int, error) {
	v := c.Query(key)
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}
