package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dtroode/medisupply-security/internal/api/http/apierror"
	"github.com/dtroode/medisupply-security/internal/logger"
	"github.com/dtroode/medisupply-security/internal/model"
)

// AuthService defines login, refresh, logout and profile operations.
type AuthService interface {
	Login(ctx context.Context, username, password string) (model.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (model.TokenPair, error)
	Logout(ctx context.Context, claims model.Claims, refreshToken string) error
	Me(ctx context.Context, claims model.Claims) (model.User, error)
	AccessTTL() int64
}

// TokenCounter counts minted tokens.
type TokenCounter interface {
	TokenIssued(kind string)
}

// Auth handles HTTP endpoints for authentication.
type Auth struct {
	authService    AuthService
	contextManager model.ContextManager
	counter        TokenCounter
	logger         *logger.Logger
}

// NewAuth creates a new Auth handler.
func NewAuth(authService AuthService, contextManager model.ContextManager, counter TokenCounter, logger *logger.Logger) *Auth {
	return &Auth{
		authService:    authService,
		contextManager: contextManager,
		counter:        counter,
		logger:         logger,
	}
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

type userResponse struct {
	Username string   `json:"username"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	Roles    []string `json:"roles"`
	IsActive bool     `json:"is_active"`
}

type okResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// Login exchanges username and password for a token pair.
func (h *Auth) Login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}

	pair, err := h.authService.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.fail(c, "login", err)
		return
	}

	c.JSON(http.StatusOK, h.tokens(pair))
}

// Refresh rotates a refresh token into a new pair.
func (h *Auth) Refresh(c *gin.Context) {
	var req refreshRequest
	if !bindJSON(c, &req) {
		return
	}

	pair, err := h.authService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		h.fail(c, "refresh", err)
		return
	}

	c.JSON(http.StatusOK, h.tokens(pair))
}

// Logout revokes the caller's access token and, if given, its refresh token.
func (h *Auth) Logout(c *gin.Context) {
	claims, ok := h.contextManager.GetClaimsFromContext(c.Request.Context())
	if !ok {
		apierror.Abort(c, model.ErrMissingToken)
		return
	}

	var req logoutRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		apierror.Abort(c, bindError(err))
		return
	}

	if err := h.authService.Logout(c.Request.Context(), claims, req.RefreshToken); err != nil {
		h.fail(c, "logout", err)
		return
	}

	c.JSON(http.StatusOK, okResponse{OK: true, Message: "Logged out"})
}

// Me returns the caller's profile.
func (h *Auth) Me(c *gin.Context) {
	claims, ok := h.contextManager.GetClaimsFromContext(c.Request.Context())
	if !ok {
		apierror.Abort(c, model.ErrMissingToken)
		return
	}

	user, err := h.authService.Me(c.Request.Context(), claims)
	if err != nil {
		h.fail(c, "me", err)
		return
	}

	roles := user.Roles
	if roles == nil {
		roles = []string{}
	}
	c.JSON(http.StatusOK, userResponse{
		Username: user.Username,
		Email:    user.Email,
		FullName: user.FullName,
		Roles:    roles,
		IsActive: user.Active,
	})
}

func (h *Auth) tokens(pair model.TokenPair) tokenResponse {
	h.counter.TokenIssued(string(model.TokenKindAccess))
	h.counter.TokenIssued(string(model.TokenKindRefresh))

	return tokenResponse{
		AccessToken:  pair.Access.Value,
		RefreshToken: pair.Refresh.Value,
		TokenType:    "bearer",
		ExpiresIn:    h.authService.AccessTTL(),
	}
}

func (h *Auth) fail(c *gin.Context, op string, err error) {
	if status, _ := apierror.Map(err); status >= http.StatusInternalServerError {
		h.logger.Error("Auth handler: request failed",
			"op", op,
			"request_id", c.GetString("request_id"),
			"error", err.Error())
	}
	apierror.Abort(c, err)
}
