package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"pharmacy-service/internal/middleware"
	"pharmacy-service/internal/model"
	"pharmacy-service/internal/repository"
	"pharmacy-service/pkg/jwtutil"
	"pharmacy-service/pkg/logger"
)

// AuthHandler issues tokens for staff accounts of the resolved tenant.
type AuthHandler struct {
	users   *repository.Repository[model.User, *model.User]
	jwtUtil *jwtutil.JWTUtil
}

// NewAuthHandler creates the auth handler.
func NewAuthHandler(users *repository.Repository[model.User, *model.User], jwtUtil *jwtutil.JWTUtil) *AuthHandler {
	return &AuthHandler{users: users, jwtUtil: jwtUtil}
}

// LoginRequest defines the structure for login requests
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates a staff account against the resolved tenant and
// returns a JWT pinned to that tenant.
func (h *AuthHandler) Login(c echo.Context) error {
	log := logger.FromEcho(c)
	t := middleware.TenantFromEcho(c)

	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid login request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email and password are required"})
	}

	users, err := h.users.List(c.Request().Context(), t.ID, repository.ListOptions{
		Filters: map[string]any{"email": req.Email},
		Limit:   1,
	})
	if err != nil {
		log.Error("Failed to look up user", zap.String("email", req.Email), zap.Error(err))
		return respondError(c, "login failed", err)
	}
	if len(users) == 0 {
		log.Warn("Login attempt for unknown user", zap.String("email", req.Email))
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	user := users[0]
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		log.Warn("Login attempt with wrong password",
			zap.String("email", req.Email),
			zap.Uint("user_id", user.ID))
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	token, err := h.jwtUtil.GenerateToken(user.Email, user.ID, t.ID, user.Role)
	if err != nil {
		log.Error("Failed to generate token", zap.Uint("user_id", user.ID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token generation failed"})
	}

	log.Info("User logged in",
		zap.Uint("user_id", user.ID),
		zap.String("email", user.Email))
	return c.JSON(http.StatusOK, echo.Map{
		"token": token,
		"user":  user,
	})
}
