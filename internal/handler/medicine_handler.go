package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"pharmacy-service/internal/middleware"
	"pharmacy-service/internal/model"
	"pharmacy-service/internal/notifier"
	"pharmacy-service/internal/reconciler"
	"pharmacy-service/internal/repository"
	"pharmacy-service/pkg/logger"
)

// expiryAlertWindow is how far ahead of the expiry date a medicine starts
// raising expiry alerts.
const expiryAlertWindow = 30 * 24 * time.Hour

// MedicineRequest defines the structure for medicine creation/update requests
type MedicineRequest struct {
	Name         string    `json:"name"`
	Brand        string    `json:"brand"`
	Description  string    `json:"description"`
	BatchNumber  string    `json:"batch_number"`
	Price        float64   `json:"price"`
	Quantity     int       `json:"quantity"`
	ReorderLevel int       `json:"reorder_level"`
	ExpiryDate   time.Time `json:"expiry_date"`
	CategoryID   uint      `json:"category_id"`
}

// BatchUpdateRequest carries the independent partial updates of one batch.
type BatchUpdateRequest struct {
	Items []reconciler.Item[reconciler.MedicinePatch] `json:"items"`
}

// MedicineHandler serves tenant-scoped medicine CRUD and batch updates.
type MedicineHandler struct {
	repo       *repository.Repository[model.Medicine, *model.Medicine]
	reconciler *reconciler.Reconciler[model.Medicine, *model.Medicine, reconciler.MedicinePatch]
	notifier   *notifier.Notifier
}

// NewMedicineHandler creates the medicine handler.
func NewMedicineHandler(
	repo *repository.Repository[model.Medicine, *model.Medicine],
	rec *reconciler.Reconciler[model.Medicine, *model.Medicine, reconciler.MedicinePatch],
	n *notifier.Notifier,
) *MedicineHandler {
	return &MedicineHandler{repo: repo, reconciler: rec, notifier: n}
}

// List retrieves medicines for the resolved tenant with optional filters:
// category_id equality, q substring search over name/brand, limit/offset.
func (h *MedicineHandler) List(c echo.Context) error {
	log := logger.FromEcho(c)
	t := middleware.TenantFromEcho(c)

	opts := repository.ListOptions{
		Filters: map[string]any{},
		Search:  c.QueryParam("q"),
	}
	if categoryID, err := strconv.ParseUint(c.QueryParam("category_id"), 10, 32); err == nil {
		opts.Filters["category_id"] = uint(categoryID)
	}
	if limit, err := strconv.Atoi(c.QueryParam("limit")); err == nil {
		opts.Limit = limit
	}
	if offset, err := strconv.Atoi(c.QueryParam("offset")); err == nil {
		opts.Offset = offset
	}

	medicines, err := h.repo.List(c.Request().Context(), t.ID, opts)
	if err != nil {
		log.Error("Failed to retrieve medicines", zap.Error(err))
		return respondError(c, "failed to retrieve medicines", err)
	}

	log.Info("Medicines retrieved successfully", zap.Int("count", len(medicines)))
	return c.JSON(http.StatusOK, medicines)
}

// Get retrieves a specific medicine by ID
func (h *MedicineHandler) Get(c echo.Context) error {
	log := logger.FromEcho(c)
	t := middleware.TenantFromEcho(c)

	id, err := parseID(c)
	if err != nil {
		return respondError(c, "invalid medicine ID", err)
	}

	medicine, err := h.repo.GetByID(c.Request().Context(), t.ID, id)
	if err != nil {
		log.Warn("Medicine not found or does not belong to tenant",
			zap.Uint("medicine_id", id), zap.Error(err))
		return respondError(c, "medicine not found", err)
	}

	return c.JSON(http.StatusOK, medicine)
}

// Create adds a new medicine
func (h *MedicineHandler) Create(c echo.Context) error {
	log := logger.FromEcho(c)
	t := middleware.TenantFromEcho(c)

	var req MedicineRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}
	if req.Price < 0 || req.Quantity < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "price and quantity must not be negative"})
	}

	medicine := model.Medicine{
		Name:         req.Name,
		Brand:        req.Brand,
		Description:  req.Description,
		BatchNumber:  req.BatchNumber,
		Price:        req.Price,
		Quantity:     req.Quantity,
		ReorderLevel: req.ReorderLevel,
		ExpiryDate:   req.ExpiryDate,
		CategoryID:   req.CategoryID,
	}
	if err := h.repo.Create(c.Request().Context(), t.ID, &medicine); err != nil {
		log.Error("Failed to create medicine", zap.String("name", req.Name), zap.Error(err))
		return respondError(c, "failed to create medicine", err)
	}

	h.notifier.EntityCreated(t.ID, "medicine", medicine.ID, medicine)
	h.raiseAlerts(t.ID, medicine)

	log.Info("Medicine created successfully",
		zap.Uint("medicine_id", medicine.ID),
		zap.String("name", medicine.Name))
	return c.JSON(http.StatusCreated, medicine)
}

// Update updates an existing medicine
func (h *MedicineHandler) Update(c echo.Context) error {
	log := logger.FromEcho(c)
	t := middleware.TenantFromEcho(c)

	id, err := parseID(c)
	if err != nil {
		return respondError(c, "invalid medicine ID", err)
	}

	var patch reconciler.MedicinePatch
	if err := c.Bind(&patch); err != nil {
		log.Error("Invalid request data", zap.Uint("medicine_id", id), zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}

	current, err := h.repo.GetByID(c.Request().Context(), t.ID, id)
	if err != nil {
		log.Warn("Medicine not found", zap.Uint("medicine_id", id), zap.Error(err))
		return respondError(c, "medicine not found", err)
	}

	diff := patch.Diff(current)
	if len(diff) == 0 {
		return c.JSON(http.StatusOK, current)
	}

	updated, err := h.repo.Update(c.Request().Context(), t.ID, id, diff.Columns(), current.Version)
	if err != nil {
		log.Error("Failed to update medicine", zap.Uint("medicine_id", id), zap.Error(err))
		return respondError(c, "failed to update medicine", err)
	}

	h.notifier.EntityUpdated(t.ID, "medicine", id, diff)
	h.raiseAlerts(t.ID, *updated)

	log.Info("Medicine updated successfully",
		zap.Uint("medicine_id", id),
		zap.Int("changed_fields", len(diff)))
	return c.JSON(http.StatusOK, updated)
}

// Delete handles deleting a medicine (soft delete)
func (h *MedicineHandler) Delete(c echo.Context) error {
	log := logger.FromEcho(c)
	t := middleware.TenantFromEcho(c)

	id, err := parseID(c)
	if err != nil {
		return respondError(c, "invalid medicine ID", err)
	}

	deleted, err := h.repo.SoftDelete(c.Request().Context(), t.ID, id)
	if err != nil {
		log.Error("Failed to delete medicine", zap.Uint("medicine_id", id), zap.Error(err))
		return respondError(c, "failed to delete medicine", err)
	}
	if !deleted {
		log.Warn("Medicine not found or already deleted", zap.Uint("medicine_id", id))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "medicine not found"})
	}

	h.notifier.EntityDeleted(t.ID, "medicine", id)

	log.Info("Medicine deleted successfully", zap.Uint("medicine_id", id))
	return c.JSON(http.StatusOK, echo.Map{"message": "medicine deleted successfully"})
}

// BatchUpdate applies independent partial updates and reports every item's
// outcome. The response is 200 even when some items failed; callers read the
// per-item results and the summary instead of an all-or-nothing status.
func (h *MedicineHandler) BatchUpdate(c echo.Context) error {
	log := logger.FromEcho(c)
	t := middleware.TenantFromEcho(c)

	var req BatchUpdateRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid batch request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}
	if len(req.Items) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "items are required"})
	}

	report := h.reconciler.Reconcile(c.Request().Context(), t.ID, req.Items)

	var touched []model.Medicine
	for _, result := range report.Results {
		if !result.OK || len(result.Diff) == 0 {
			continue
		}
		h.notifier.EntityUpdated(t.ID, "medicine", result.EntityID, result.Diff)
		if m, err := h.repo.GetByID(c.Request().Context(), t.ID, result.EntityID); err == nil {
			touched = append(touched, *m)
		}
	}
	h.raiseAlerts(t.ID, touched...)

	return c.JSON(http.StatusOK, report)
}

// raiseAlerts pushes stock and expiry alerts for the given medicines. Alerts
// ride the same best-effort event channel as change notifications.
func (h *MedicineHandler) raiseAlerts(tenantID uint, medicines ...model.Medicine) {
	var lowStock, expiring []model.Medicine
	now := time.Now()
	for _, m := range medicines {
		if m.LowStock() {
			lowStock = append(lowStock, m)
		}
		if m.ExpiringWithin(now, expiryAlertWindow) {
			expiring = append(expiring, m)
		}
	}
	h.notifier.StockAlert(tenantID, lowStock)
	h.notifier.ExpiryAlert(tenantID, expiring)
}
