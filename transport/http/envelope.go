package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/phoneauth/core"
)

// CodeSuccess marks a successful envelope
const CodeSuccess = 0

// Envelope is the body of every JSON response
type Envelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func respond(c *gin.Context, message string, data any) {
	c.JSON(http.StatusOK, Envelope{Code: CodeSuccess, Message: message, Data: data})
}

// respondError writes an error envelope whose code mirrors the HTTP status
func respondError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, Envelope{Code: status, Message: message})
}

// errorStatus maps a service error onto a status and a client facing
// message. Unclassified errors never expose their text.
func errorStatus(err error) (int, string) {
	var verr *core.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, "missing " + verr.Field
	case errors.Is(err, core.ErrChallengeExpiredOrMissing):
		return http.StatusBadRequest, "captcha expired or invalid"
	case errors.Is(err, core.ErrChallengeMismatch):
		return http.StatusBadRequest, "captcha incorrect"
	case errors.Is(err, core.ErrUnauthenticated):
		return http.StatusUnauthorized, "access token missing"
	case errors.Is(err, core.ErrInvalidCredential):
		return http.StatusForbidden, "access token invalid"
	case errors.Is(err, core.ErrUnknownUser):
		return http.StatusForbidden, "user does not exist"
	case errors.Is(err, core.ErrUserNotFound):
		return http.StatusNotFound, "user does not exist"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}
