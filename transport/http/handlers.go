package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/phoneauth/core"
	"github.com/layer-3/phoneauth/service"
)

// CaptchaResponse is returned by GET /auth/captcha. The code is returned in
// band, which is only acceptable for development deployments.
type CaptchaResponse struct {
	ChallengeID string `json:"challengeId"`
	Code        string `json:"code"`
}

// LoginRequest is the body of POST /auth/login
type LoginRequest struct {
	Username    string `json:"username"`
	Code        string `json:"code"`
	ChallengeID string `json:"challengeId"`
}

// LoginResponse is returned by a successful POST /auth/login
type LoginResponse struct {
	Token    string        `json:"token"`
	Identity core.Identity `json:"identity"`
}

// AuthHandlers contains HTTP handlers for auth endpoints
type AuthHandlers struct {
	authService *service.AuthService
	logger      *slog.Logger
}

// NewAuthHandlers creates new auth handlers
func NewAuthHandlers(authService *service.AuthService, logger *slog.Logger) *AuthHandlers {
	return &AuthHandlers{
		authService: authService,
		logger:      logger,
	}
}

// Captcha issues a new challenge
func (h *AuthHandlers) Captcha(c *gin.Context) {
	challenge, err := h.authService.IssueChallenge(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}

	respond(c, "success", CaptchaResponse{
		ChallengeID: challenge.ID,
		Code:        challenge.Code,
	})
}

// Login handles the login request
func (h *AuthHandlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.authService.Login(c.Request.Context(), req.Username, req.Code, req.ChallengeID)
	if err != nil {
		h.fail(c, err)
		return
	}

	respond(c, "login successful", LoginResponse{
		Token:    res.Credential.Token,
		Identity: res.Identity,
	})
}

// Logout acknowledges a logout. The token, when present, only names the
// user in the audit event.
func (h *AuthHandlers) Logout(c *gin.Context) {
	h.authService.Logout(c.Request.Context(), bearerToken(c))

	respond(c, "logout successful", gin.H{})
}

// Current returns the profile of the authenticated user
func (h *AuthHandlers) Current(c *gin.Context) {
	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Header("Pragma", "no-cache")
	c.Header("Expires", "0")

	// Identity is set by the auth middleware
	value, exists := c.Get(identityKey)
	identity, ok := value.(core.Identity)
	if !exists || !ok {
		respondError(c, http.StatusUnauthorized, "user not authenticated")
		return
	}

	profile, err := h.authService.CurrentProfile(c.Request.Context(), identity)
	if err != nil {
		h.fail(c, err)
		return
	}

	respond(c, "success", profile)
}

// Health reports liveness
func (h *AuthHandlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "OK", "message": "authentication service is running"})
}

func (h *AuthHandlers) fail(c *gin.Context, err error) {
	status, msg := errorStatus(err)
	if status == http.StatusInternalServerError {
		h.logger.ErrorContext(c.Request.Context(), "request failed",
			slog.String("path", c.Request.URL.Path),
			slog.Any("error", err))
	}
	respondError(c, status, msg)
}
