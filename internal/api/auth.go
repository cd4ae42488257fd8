package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/boardsync/internal/apperr"
	"github.com/lalith-99/boardsync/internal/auth"
	"github.com/lalith-99/boardsync/internal/models"
	"github.com/lalith-99/boardsync/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// AuthHandler handles signup and login, the only public endpoints besides
// health. They produce the JWT that every other route requires.
type AuthHandler struct {
	userRepo  repository.UserRepository
	jwtSecret string
	tokenTTL  time.Duration
	logger    *zap.Logger
}

func NewAuthHandler(userRepo repository.UserRepository, jwtSecret string, tokenTTL time.Duration, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		userRepo:  userRepo,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
		logger:    logger,
	}
}

type signupRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8"`
	DisplayName string `json:"display_name" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// authResponse is what both signup and login return. The client sends the
// token as "Authorization: Bearer <token>", or as ?access_token= on the
// websocket and SSE endpoints.
type authResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Signup handles POST /v1/auth/signup
func (h *AuthHandler) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	existing, err := h.userRepo.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		respondError(c, h.logger, err, "signup failed")
		return
	}
	if existing != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "email already registered", "reason": apperr.ReasonInvalidInput})
		return
	}

	// bcrypt salts per password; DefaultCost keeps login around 100ms.
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		respondError(c, h.logger, err, "signup failed")
		return
	}

	user, err := h.userRepo.Create(c.Request.Context(), req.Email, req.DisplayName, string(hash))
	if err != nil {
		respondError(c, h.logger, err, "signup failed")
		return
	}

	h.issue(c, http.StatusCreated, user)
}

// Login handles POST /v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	user, err := h.userRepo.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		respondError(c, h.logger, err, "login failed")
		return
	}

	// Same answer for unknown email and wrong password so registered
	// addresses cannot be probed.
	if user == nil {
		h.invalidCredentials(c)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			h.logger.Warn("password hash comparison failed", zap.Error(err))
		}
		h.invalidCredentials(c)
		return
	}
	if user.Banned {
		c.JSON(http.StatusForbidden, gin.H{"error": "account is banned", "reason": apperr.ReasonBanned})
		return
	}

	h.issue(c, http.StatusOK, user)
}

func (h *AuthHandler) issue(c *gin.Context, status int, user *models.User) {
	token, err := auth.GenerateToken(user.ID, user.Email, user.Role, h.jwtSecret, h.tokenTTL)
	if err != nil {
		respondError(c, h.logger, err, "failed to issue token")
		return
	}
	c.JSON(status, authResponse{Token: token, User: user})
}

func (h *AuthHandler) invalidCredentials(c *gin.Context) {
	respondError(c, h.logger, apperr.Unauthorized(apperr.ReasonUnauthenticated, "invalid email or password"), "login failed")
}
