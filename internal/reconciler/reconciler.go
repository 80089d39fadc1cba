// Package reconciler applies batches of independent partial updates. A batch
// never aborts on one bad item: every item gets a positional result, and the
// caller receives the complete result set with a summary either way.
package reconciler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"pharmacy-service/internal/apperr"
	"pharmacy-service/internal/repository"
	"pharmacy-service/prometheus"
)

// Change records one field's transition.
type Change struct {
	Before any `json:"before"`
	After  any `json:"after"`
}

// Diff is the set of fields whose proposed value differs from the stored
// value, keyed by column name.
type Diff map[string]Change

// Columns returns the diff as a column assignment map for a repository update.
func (d Diff) Columns() map[string]any {
	cols := make(map[string]any, len(d))
	for column, change := range d {
		cols[column] = change.After
	}
	return cols
}

// Patch is a typed partial update for one entity kind. Implementations
// enumerate their own optional fields, so the diff never relies on runtime
// property probing.
type Patch[T any] interface {
	Diff(current *T) Diff
}

// Item pairs a target entity with its partial update.
type Item[P any] struct {
	EntityID uint `json:"id"`
	Patch    P    `json:"fields"`
}

// ItemResult is the per-item outcome, positionally matching the input batch.
type ItemResult struct {
	Index     int    `json:"index"`
	EntityID  uint   `json:"id"`
	OK        bool   `json:"ok"`
	Diff      Diff   `json:"diff,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorCode string `json:"error_code,omitempty"`
}

// Summary aggregates a batch outcome.
type Summary struct {
	Total     int   `json:"total"`
	Succeeded int   `json:"succeeded"`
	Failed    int   `json:"failed"`
	ElapsedMS int64 `json:"elapsed_ms"`
}

// Report is the complete batch outcome: one result per input item plus the
// summary. Partial failure is a reportable state, not an error.
type Report struct {
	Results []ItemResult `json:"results"`
	Summary Summary      `json:"summary"`
}

// Reconciler runs batches against one entity kind's repository.
type Reconciler[T any, PT repository.Record[T], P Patch[T]] struct {
	repo *repository.Repository[T, PT]
	log  *zap.Logger
}

// New creates a reconciler over the given repository.
func New[T any, PT repository.Record[T], P Patch[T]](repo *repository.Repository[T, PT], log *zap.Logger) *Reconciler[T, PT, P] {
	return &Reconciler[T, PT, P]{repo: repo, log: log.Named("reconciler")}
}

// Reconcile processes the items in input order. For each item it loads the
// current record, computes the field diff, and persists only the fields that
// actually changed. An empty diff is a successful no-op with no write. Any
// failure becomes that item's result and the batch moves on.
func (r *Reconciler[T, PT, P]) Reconcile(ctx context.Context, tenantID uint, items []Item[P]) *Report {
	start := time.Now()
	report := &Report{
		Results: make([]ItemResult, 0, len(items)),
		Summary: Summary{Total: len(items)},
	}

	for i, item := range items {
		result := ItemResult{Index: i, EntityID: item.EntityID}

		diff, err := r.applyOne(ctx, tenantID, item)
		if err != nil {
			result.Error = err.Error()
			result.ErrorCode = apperr.Code(err)
			report.Summary.Failed++
			prometheus.BatchItemCounter.WithLabelValues("failed").Inc()
			r.log.Warn("batch item failed",
				zap.Int("index", i),
				zap.Uint("id", item.EntityID),
				zap.Uint("tenant_id", tenantID),
				zap.String("code", result.ErrorCode))
		} else {
			result.OK = true
			result.Diff = diff
			report.Summary.Succeeded++
			if len(diff) == 0 {
				prometheus.BatchItemCounter.WithLabelValues("noop").Inc()
			} else {
				prometheus.BatchItemCounter.WithLabelValues("succeeded").Inc()
			}
		}

		report.Results = append(report.Results, result)
	}

	elapsed := time.Since(start)
	report.Summary.ElapsedMS = elapsed.Milliseconds()
	prometheus.BatchDuration.Observe(elapsed.Seconds())

	r.log.Info("batch reconciled",
		zap.Uint("tenant_id", tenantID),
		zap.Int("total", report.Summary.Total),
		zap.Int("succeeded", report.Summary.Succeeded),
		zap.Int("failed", report.Summary.Failed),
		zap.Duration("elapsed", elapsed))
	return report
}

func (r *Reconciler[T, PT, P]) applyOne(ctx context.Context, tenantID uint, item Item[P]) (Diff, error) {
	if item.EntityID == 0 {
		return nil, apperr.Validationf("entity id is required")
	}

	current, err := r.repo.GetByID(ctx, tenantID, item.EntityID)
	if err != nil {
		return nil, err
	}

	diff := item.Patch.Diff((*T)(current))
	if len(diff) == 0 {
		// Every proposed value matches the stored one: successful no-op,
		// nothing written.
		return diff, nil
	}

	if _, err := r.repo.Update(ctx, tenantID, item.EntityID, diff.Columns(), current.CurrentVersion()); err != nil {
		return nil, err
	}
	return diff, nil
}
