package reconciler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"pharmacy-service/internal/model"
	"pharmacy-service/internal/repository"
)

func newTestRepo(t *testing.T) *repository.Repository[model.Medicine, *model.Medicine] {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&model.Medicine{}))
	return repository.New[model.Medicine](db, zap.NewNop(), "medicine", "name", "brand")
}

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }
func strPtr(v string) *string     { return &v }

func TestReconcileAppliesChangedFieldsOnly(t *testing.T) {
	repo := newTestRepo(t)
	rec := New[model.Medicine, *model.Medicine, MedicinePatch](repo, zap.NewNop())
	ctx := context.Background()

	m := &model.Medicine{Name: "Paracetamol", Price: 5, Quantity: 100}
	require.NoError(t, repo.Create(ctx, 1, m))

	report := rec.Reconcile(ctx, 1, []Item[MedicinePatch]{
		{EntityID: m.ID, Patch: MedicinePatch{
			Quantity: intPtr(80),
			Price:    floatPtr(5), // unchanged, must not appear in the diff
		}},
	})

	require.Equal(t, 1, report.Summary.Total)
	require.Equal(t, 1, report.Summary.Succeeded)
	require.Equal(t, 0, report.Summary.Failed)

	result := report.Results[0]
	require.True(t, result.OK)
	require.Len(t, result.Diff, 1)
	require.Equal(t, Change{Before: 100, After: 80}, result.Diff["quantity"])

	got, err := repo.GetByID(ctx, 1, m.ID)
	require.NoError(t, err)
	require.Equal(t, 80, got.Quantity)
	require.Equal(t, float64(5), got.Price)
}

func TestReconcileNoopWritesNothing(t *testing.T) {
	repo := newTestRepo(t)
	rec := New[model.Medicine, *model.Medicine, MedicinePatch](repo, zap.NewNop())
	ctx := context.Background()

	m := &model.Medicine{Name: "Paracetamol", Brand: "Acme", Price: 5, Quantity: 100}
	require.NoError(t, repo.Create(ctx, 1, m))

	report := rec.Reconcile(ctx, 1, []Item[MedicinePatch]{
		{EntityID: m.ID, Patch: MedicinePatch{
			Name:     strPtr("Paracetamol"),
			Brand:    strPtr("Acme"),
			Quantity: intPtr(100),
		}},
	})

	require.Equal(t, 1, report.Summary.Succeeded)
	require.True(t, report.Results[0].OK)
	require.Empty(t, report.Results[0].Diff)

	// No write happened: the version is untouched.
	got, err := repo.GetByID(ctx, 1, m.ID)
	require.NoError(t, err)
	require.Equal(t, uint(1), got.Version)
}

func TestReconcilePartialFailure(t *testing.T) {
	repo := newTestRepo(t)
	rec := New[model.Medicine, *model.Medicine, MedicinePatch](repo, zap.NewNop())
	ctx := context.Background()

	first := &model.Medicine{Name: "Paracetamol", Quantity: 10}
	third := &model.Medicine{Name: "Ibuprofen", Quantity: 20}
	require.NoError(t, repo.Create(ctx, 1, first))
	require.NoError(t, repo.Create(ctx, 1, third))

	report := rec.Reconcile(ctx, 1, []Item[MedicinePatch]{
		{EntityID: first.ID, Patch: MedicinePatch{Quantity: intPtr(5)}},
		{EntityID: 99999, Patch: MedicinePatch{Quantity: intPtr(1)}},
		{EntityID: third.ID, Patch: MedicinePatch{Quantity: intPtr(15)}},
	})

	require.Len(t, report.Results, 3)
	require.Equal(t, 3, report.Summary.Total)
	require.Equal(t, 2, report.Summary.Succeeded)
	require.Equal(t, 1, report.Summary.Failed)

	require.True(t, report.Results[0].OK)
	require.Equal(t, 0, report.Results[0].Index)

	require.False(t, report.Results[1].OK)
	require.Equal(t, 1, report.Results[1].Index)
	require.Equal(t, "not_found", report.Results[1].ErrorCode)

	require.True(t, report.Results[2].OK)
	require.Equal(t, 2, report.Results[2].Index)

	// The failing middle item never stopped the third from applying.
	got, err := repo.GetByID(ctx, 1, third.ID)
	require.NoError(t, err)
	require.Equal(t, 15, got.Quantity)
}

func TestReconcileRejectsInvalidID(t *testing.T) {
	repo := newTestRepo(t)
	rec := New[model.Medicine, *model.Medicine, MedicinePatch](repo, zap.NewNop())

	report := rec.Reconcile(context.Background(), 1, []Item[MedicinePatch]{
		{EntityID: 0, Patch: MedicinePatch{Quantity: intPtr(1)}},
	})

	require.Equal(t, 1, report.Summary.Failed)
	require.Equal(t, "validation_error", report.Results[0].ErrorCode)
}

func TestReconcileIsTenantScoped(t *testing.T) {
	repo := newTestRepo(t)
	rec := New[model.Medicine, *model.Medicine, MedicinePatch](repo, zap.NewNop())
	ctx := context.Background()

	m := &model.Medicine{Name: "Paracetamol", Quantity: 100}
	require.NoError(t, repo.Create(ctx, 1, m))

	report := rec.Reconcile(ctx, 2, []Item[MedicinePatch]{
		{EntityID: m.ID, Patch: MedicinePatch{Quantity: intPtr(0)}},
	})

	require.Equal(t, 1, report.Summary.Failed)
	require.Equal(t, "not_found", report.Results[0].ErrorCode)

	got, err := repo.GetByID(ctx, 1, m.ID)
	require.NoError(t, err)
	require.Equal(t, 100, got.Quantity)
}

func TestDiffEnumeratesAllFields(t *testing.T) {
	now := time.Now()
	later := now.Add(24 * time.Hour)
	current := &model.Medicine{
		Name:         "Paracetamol",
		Brand:        "Acme",
		Description:  "painkiller",
		BatchNumber:  "B-1",
		Price:        5,
		Quantity:     100,
		ReorderLevel: 10,
		ExpiryDate:   now,
		CategoryID:   1,
	}

	catID := uint(2)
	patch := MedicinePatch{
		Name:        strPtr("Paracetamol Forte"),
		Brand:       strPtr("Acme"), // unchanged
		BatchNumber: strPtr("B-2"),
		Quantity:    intPtr(50),
		ExpiryDate:  &later,
		CategoryID:  &catID,
	}

	diff := patch.Diff(current)
	require.Len(t, diff, 5)
	require.Equal(t, Change{Before: "Paracetamol", After: "Paracetamol Forte"}, diff["name"])
	require.Equal(t, Change{Before: "B-1", After: "B-2"}, diff["batch_number"])
	require.Equal(t, Change{Before: 100, After: 50}, diff["quantity"])
	require.Equal(t, Change{Before: uint(1), After: uint(2)}, diff["category_id"])
	require.NotContains(t, diff, "brand")
}
