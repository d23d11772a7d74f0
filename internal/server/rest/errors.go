package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sgics/sgics/internal/common"
	"github.com/sgics/sgics/internal/logging"
)

func errorBody(msg string) gin.H {
	return gin.H{"error": msg}
}

// writeError maps service errors to HTTP status codes. Unexpected errors are
// logged and reported as 500 without detail.
func writeError(c *gin.Context, l logging.Logger, err error) {
	switch {
	case errors.Is(err, common.ErrorValidation):
		c.JSON(http.StatusBadRequest, errorBody(err.Error()))
	case errors.Is(err, common.ErrorNotFound):
		c.JSON(http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, common.ErrorAlreadyExists):
		c.JSON(http.StatusConflict, errorBody(err.Error()))
	case errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrRefreshTokenExpired),
		errors.Is(err, common.ErrTokenExpired),
		errors.Is(err, common.ErrInvalidToken):
		c.JSON(http.StatusUnauthorized, errorBody(err.Error()))
	case errors.Is(err, common.ErrorForbidden):
		c.JSON(http.StatusForbidden, errorBody(err.Error()))
	default:
		l.Error(c.Request.Context(), "request failed", "request_id", c.GetString(requestIDKey), "error", err.Error())
		c.JSON(http.StatusInternalServerError, errorBody("internal error"))
	}
}
