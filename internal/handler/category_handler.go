package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"pharmacy-service/internal/middleware"
	"pharmacy-service/internal/model"
	"pharmacy-service/internal/notifier"
	"pharmacy-service/internal/reconciler"
	"pharmacy-service/internal/repository"
	"pharmacy-service/pkg/logger"
)

// CategoryRequest defines the structure for category creation/update requests
type CategoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// CategoryHandler serves tenant-scoped medicine category CRUD.
type CategoryHandler struct {
	repo     *repository.Repository[model.Category, *model.Category]
	notifier *notifier.Notifier
}

// NewCategoryHandler creates the category handler.
func NewCategoryHandler(repo *repository.Repository[model.Category, *model.Category], n *notifier.Notifier) *CategoryHandler {
	return &CategoryHandler{repo: repo, notifier: n}
}

// List retrieves all categories for the resolved tenant
func (h *CategoryHandler) List(c echo.Context) error {
	log := logger.FromEcho(c)
	t := middleware.TenantFromEcho(c)

	opts := repository.ListOptions{Search: c.QueryParam("q")}
	if limit, err := strconv.Atoi(c.QueryParam("limit")); err == nil {
		opts.Limit = limit
	}
	if offset, err := strconv.Atoi(c.QueryParam("offset")); err == nil {
		opts.Offset = offset
	}

	categories, err := h.repo.List(c.Request().Context(), t.ID, opts)
	if err != nil {
		log.Error("Failed to retrieve categories", zap.Error(err))
		return respondError(c, "failed to retrieve categories", err)
	}

	log.Info("Categories retrieved successfully", zap.Int("count", len(categories)))
	return c.JSON(http.StatusOK, categories)
}

// Get retrieves a specific category by ID
func (h *CategoryHandler) Get(c echo.Context) error {
	log := logger.FromEcho(c)
	t := middleware.TenantFromEcho(c)

	id, err := parseID(c)
	if err != nil {
		return respondError(c, "invalid category ID", err)
	}

	category, err := h.repo.GetByID(c.Request().Context(), t.ID, id)
	if err != nil {
		log.Warn("Category not found or does not belong to tenant",
			zap.Uint("category_id", id), zap.Error(err))
		return respondError(c, "category not found", err)
	}

	return c.JSON(http.StatusOK, category)
}

// Create adds a new category
func (h *CategoryHandler) Create(c echo.Context) error {
	log := logger.FromEcho(c)
	t := middleware.TenantFromEcho(c)

	var req CategoryRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}

	// Check if category with same name exists in the same tenant. The
	// repository does not enforce name uniqueness; callers compare first.
	count, err := h.repo.Count(c.Request().Context(), t.ID, map[string]any{"name": req.Name})
	if err != nil {
		log.Error("Failed to check category name", zap.Error(err))
		return respondError(c, "failed to create category", err)
	}
	if count > 0 {
		log.Warn("Category with this name already exists for this tenant",
			zap.String("name", req.Name))
		return c.JSON(http.StatusConflict, echo.Map{
			"error": "category with this name already exists",
		})
	}

	category := model.Category{
		Name:        req.Name,
		Description: req.Description,
	}
	if err := h.repo.Create(c.Request().Context(), t.ID, &category); err != nil {
		log.Error("Failed to create category", zap.String("name", req.Name), zap.Error(err))
		return respondError(c, "failed to create category", err)
	}

	h.notifier.EntityCreated(t.ID, "category", category.ID, category)

	log.Info("Category created successfully",
		zap.Uint("category_id", category.ID),
		zap.String("name", category.Name))
	return c.JSON(http.StatusCreated, category)
}

// Update updates an existing category
func (h *CategoryHandler) Update(c echo.Context) error {
	log := logger.FromEcho(c)
	t := middleware.TenantFromEcho(c)

	id, err := parseID(c)
	if err != nil {
		return respondError(c, "invalid category ID", err)
	}

	var req CategoryRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Uint("category_id", id), zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}

	current, err := h.repo.GetByID(c.Request().Context(), t.ID, id)
	if err != nil {
		log.Warn("Category not found", zap.Uint("category_id", id), zap.Error(err))
		return respondError(c, "category not found", err)
	}

	// Check if name is changed and if new name already exists within the tenant
	if req.Name != current.Name {
		count, err := h.repo.Count(c.Request().Context(), t.ID, map[string]any{"name": req.Name})
		if err != nil {
			log.Error("Failed to check category name", zap.Error(err))
			return respondError(c, "failed to update category", err)
		}
		if count > 0 {
			log.Warn("Category with this name already exists for this tenant",
				zap.String("name", req.Name))
			return c.JSON(http.StatusConflict, echo.Map{
				"error": "category with this name already exists",
			})
		}
	}

	patch := reconciler.CategoryPatch{Name: &req.Name, Description: &req.Description}
	diff := patch.Diff(current)
	if len(diff) == 0 {
		return c.JSON(http.StatusOK, current)
	}

	updated, err := h.repo.Update(c.Request().Context(), t.ID, id, diff.Columns(), current.Version)
	if err != nil {
		log.Error("Failed to update category", zap.Uint("category_id", id), zap.Error(err))
		return respondError(c, "failed to update category", err)
	}

	h.notifier.EntityUpdated(t.ID, "category", id, diff)

	log.Info("Category updated successfully",
		zap.Uint("category_id", id),
		zap.String("name", updated.Name))
	return c.JSON(http.StatusOK, updated)
}

// Delete handles deleting a category (soft delete)
func (h *CategoryHandler) Delete(c echo.Context) error {
	log := logger.FromEcho(c)
	t := middleware.TenantFromEcho(c)

	id, err := parseID(c)
	if err != nil {
		return respondError(c, "invalid category ID", err)
	}

	deleted, err := h.repo.SoftDelete(c.Request().Context(), t.ID, id)
	if err != nil {
		log.Error("Failed to delete category", zap.Uint("category_id", id), zap.Error(err))
		return respondError(c, "failed to delete category", err)
	}
	if !deleted {
		log.Warn("Category not found or already deleted", zap.Uint("category_id", id))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "category not found"})
	}

	h.notifier.EntityDeleted(t.ID, "category", id)

	log.Info("Category deleted successfully", zap.Uint("category_id", id))
	return c.JSON(http.StatusOK, echo.Map{"message": "category deleted successfully"})
}
