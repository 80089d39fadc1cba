package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"pharmacy-service/internal/middleware"
	"pharmacy-service/internal/model"
	"pharmacy-service/internal/notifier"
	"pharmacy-service/internal/reconciler"
	"pharmacy-service/internal/repository"
	"pharmacy-service/pkg/logger"
)

// UserRequest defines the structure for staff account creation requests
type UserRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// UserHandler serves tenant-scoped staff account CRUD.
type UserHandler struct {
	repo     *repository.Repository[model.User, *model.User]
	notifier *notifier.Notifier
}

// NewUserHandler creates the user handler.
func NewUserHandler(repo *repository.Repository[model.User, *model.User], n *notifier.Notifier) *UserHandler {
	return &UserHandler{repo: repo, notifier: n}
}

// List retrieves staff accounts for the resolved tenant
func (h *UserHandler) List(c echo.Context) error {
	log := logger.FromEcho(c)
	t := middleware.TenantFromEcho(c)

	opts := repository.ListOptions{Search: c.QueryParam("q")}
	if limit, err := strconv.Atoi(c.QueryParam("limit")); err == nil {
		opts.Limit = limit
	}
	if offset, err := strconv.Atoi(c.QueryParam("offset")); err == nil {
		opts.Offset = offset
	}

	users, err := h.repo.List(c.Request().Context(), t.ID, opts)
	if err != nil {
		log.Error("Failed to retrieve users", zap.Error(err))
		return respondError(c, "failed to retrieve users", err)
	}

	return c.JSON(http.StatusOK, users)
}

// Get retrieves a specific staff account by ID
func (h *UserHandler) Get(c echo.Context) error {
	log := logger.FromEcho(c)
	t := middleware.TenantFromEcho(c)

	id, err := parseID(c)
	if err != nil {
		return respondError(c, "invalid user ID", err)
	}

	user, err := h.repo.GetByID(c.Request().Context(), t.ID, id)
	if err != nil {
		log.Warn("User not found or does not belong to tenant",
			zap.Uint("user_id", id), zap.Error(err))
		return respondError(c, "user not found", err)
	}

	return c.JSON(http.StatusOK, user)
}

// Create adds a new staff account
func (h *UserHandler) Create(c echo.Context) error {
	log := logger.FromEcho(c)
	t := middleware.TenantFromEcho(c)

	var req UserRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email and password are required"})
	}

	// Email must be unique per tenant; the repository leaves that to us.
	count, err := h.repo.Count(c.Request().Context(), t.ID, map[string]any{"email": req.Email})
	if err != nil {
		log.Error("Failed to check user email", zap.Error(err))
		return respondError(c, "failed to create user", err)
	}
	if count > 0 {
		log.Warn("User with this email already exists for this tenant",
			zap.String("email", req.Email))
		return c.JSON(http.StatusConflict, echo.Map{"error": "user with this email already exists"})
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Error("Failed to hash password", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create user"})
	}

	role := req.Role
	if role == "" {
		role = "staff"
	}
	user := model.User{
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: string(hash),
		Role:         role,
	}
	if err := h.repo.Create(c.Request().Context(), t.ID, &user); err != nil {
		log.Error("Failed to create user", zap.String("email", req.Email), zap.Error(err))
		return respondError(c, "failed to create user", err)
	}

	h.notifier.EntityCreated(t.ID, "user", user.ID, user)

	log.Info("User created successfully",
		zap.Uint("user_id", user.ID),
		zap.String("email", user.Email))
	return c.JSON(http.StatusCreated, user)
}

// Update updates an existing staff account
func (h *UserHandler) Update(c echo.Context) error {
	log := logger.FromEcho(c)
	t := middleware.TenantFromEcho(c)

	id, err := parseID(c)
	if err != nil {
		return respondError(c, "invalid user ID", err)
	}

	var patch reconciler.UserPatch
	if err := c.Bind(&patch); err != nil {
		log.Error("Invalid request data", zap.Uint("user_id", id), zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}

	current, err := h.repo.GetByID(c.Request().Context(), t.ID, id)
	if err != nil {
		log.Warn("User not found", zap.Uint("user_id", id), zap.Error(err))
		return respondError(c, "user not found", err)
	}

	diff := patch.Diff(current)
	if len(diff) == 0 {
		return c.JSON(http.StatusOK, current)
	}

	updated, err := h.repo.Update(c.Request().Context(), t.ID, id, diff.Columns(), current.Version)
	if err != nil {
		log.Error("Failed to update user", zap.Uint("user_id", id), zap.Error(err))
		return respondError(c, "failed to update user", err)
	}

	h.notifier.EntityUpdated(t.ID, "user", id, diff)

	log.Info("User updated successfully", zap.Uint("user_id", id))
	return c.JSON(http.StatusOK, updated)
}

// Delete handles deleting a staff account (soft delete)
func (h *UserHandler) Delete(c echo.Context) error {
	log := logger.FromEcho(c)
	t := middleware.TenantFromEcho(c)

	id, err := parseID(c)
	if err != nil {
		return respondError(c, "invalid user ID", err)
	}

	deleted, err := h.repo.SoftDelete(c.Request().Context(), t.ID, id)
	if err != nil {
		log.Error("Failed to delete user", zap.Uint("user_id", id), zap.Error(err))
		return respondError(c, "failed to delete user", err)
	}
	if !deleted {
		log.Warn("User not found or already deleted", zap.Uint("user_id", id))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}

	h.notifier.EntityDeleted(t.ID, "user", id)

	log.Info("User deleted successfully", zap.Uint("user_id", id))
	return c.JSON(http.StatusOK, echo.Map{"message": "user deleted successfully"})
}
