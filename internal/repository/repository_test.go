package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"pharmacy-service/internal/apperr"
	"pharmacy-service/internal/model"
)

type RepositorySuite struct {
	suite.Suite
	db        *gorm.DB
	medicines *Repository[model.Medicine, *model.Medicine]
	ctx       context.Context
}

func (s *RepositorySuite) SetupTest() {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	s.Require().NoError(err)
	sqlDB, err := db.DB()
	s.Require().NoError(err)
	// A single connection keeps the in-memory database alive for the test.
	sqlDB.SetMaxOpenConns(1)

	s.Require().NoError(db.AutoMigrate(&model.Medicine{}))

	s.db = db
	s.medicines = New[model.Medicine](db, zap.NewNop(), "medicine", "name", "brand")
	s.ctx = context.Background()
}

func TestRepositorySuite(t *testing.T) {
	suite.Run(t, new(RepositorySuite))
}

func (s *RepositorySuite) newMedicine(name string, quantity int) *model.Medicine {
	return &model.Medicine{
		Name:       name,
		Brand:      "Generic",
		Price:      9.99,
		Quantity:   quantity,
		ExpiryDate: time.Now().AddDate(1, 0, 0),
	}
}

func (s *RepositorySuite) TestCreateStampsLifecycleColumns() {
	m := s.newMedicine("Paracetamol", 100)
	s.Require().NoError(s.medicines.Create(s.ctx, 1, m))

	s.NotZero(m.ID)
	s.Equal(uint(1), m.TenantID)
	s.True(m.IsActive)
	s.Equal(uint(1), m.Version)
	s.False(m.CreatedAt.IsZero())
	s.False(m.UpdatedAt.IsZero())
}

func (s *RepositorySuite) TestTenantIsolation() {
	m := s.newMedicine("Paracetamol", 100)
	s.Require().NoError(s.medicines.Create(s.ctx, 1, m))

	s.Run("other tenant cannot read by id", func() {
		_, err := s.medicines.GetByID(s.ctx, 2, m.ID)
		s.Require().ErrorIs(err, apperr.ErrNotFound)
	})

	s.Run("other tenant never sees it in listings", func() {
		items, err := s.medicines.List(s.ctx, 2, ListOptions{})
		s.Require().NoError(err)
		s.Empty(items)
	})

	s.Run("other tenant cannot update it", func() {
		_, err := s.medicines.Update(s.ctx, 2, m.ID, map[string]any{"quantity": 0}, m.Version)
		s.Require().ErrorIs(err, apperr.ErrNotFound)
	})

	s.Run("other tenant cannot delete it", func() {
		deleted, err := s.medicines.SoftDelete(s.ctx, 2, m.ID)
		s.Require().NoError(err)
		s.False(deleted)
	})

	s.Run("owning tenant still reads it", func() {
		got, err := s.medicines.GetByID(s.ctx, 1, m.ID)
		s.Require().NoError(err)
		s.Equal("Paracetamol", got.Name)
	})
}

func (s *RepositorySuite) TestSoftDelete() {
	m := s.newMedicine("Ibuprofen", 50)
	s.Require().NoError(s.medicines.Create(s.ctx, 1, m))

	s.Run("hides the record from normal reads", func() {
		deleted, err := s.medicines.SoftDelete(s.ctx, 1, m.ID)
		s.Require().NoError(err)
		s.True(deleted)

		_, err = s.medicines.GetByID(s.ctx, 1, m.ID)
		s.Require().ErrorIs(err, apperr.ErrNotFound)

		items, err := s.medicines.List(s.ctx, 1, ListOptions{})
		s.Require().NoError(err)
		s.Empty(items)
	})

	s.Run("retains the record for audit lookup", func() {
		raw, err := s.medicines.GetAnyByID(s.ctx, 1, m.ID)
		s.Require().NoError(err)
		s.False(raw.IsActive)
		s.Equal("Ibuprofen", raw.Name)
	})

	s.Run("second delete reports nothing to do", func() {
		deleted, err := s.medicines.SoftDelete(s.ctx, 1, m.ID)
		s.Require().NoError(err)
		s.False(deleted)
	})

	s.Run("missing id reports nothing to do", func() {
		deleted, err := s.medicines.SoftDelete(s.ctx, 1, 99999)
		s.Require().NoError(err)
		s.False(deleted)
	})
}

func (s *RepositorySuite) TestList() {
	s.Require().NoError(s.medicines.Create(s.ctx, 1, &model.Medicine{Name: "Paracetamol", Brand: "Acme", Quantity: 10, CategoryID: 1}))
	s.Require().NoError(s.medicines.Create(s.ctx, 1, &model.Medicine{Name: "Ibuprofen", Brand: "Acme", Quantity: 20, CategoryID: 1}))
	s.Require().NoError(s.medicines.Create(s.ctx, 1, &model.Medicine{Name: "Amoxicillin", Brand: "Pharma", Quantity: 30, CategoryID: 2}))

	s.Run("field-equality filter", func() {
		items, err := s.medicines.List(s.ctx, 1, ListOptions{Filters: map[string]any{"category_id": 1}})
		s.Require().NoError(err)
		s.Len(items, 2)
	})

	s.Run("substring search over designated columns", func() {
		items, err := s.medicines.List(s.ctx, 1, ListOptions{Search: "profe"})
		s.Require().NoError(err)
		s.Require().Len(items, 1)
		s.Equal("Ibuprofen", items[0].Name)

		// Brand is searchable too
		items, err = s.medicines.List(s.ctx, 1, ListOptions{Search: "Pharma"})
		s.Require().NoError(err)
		s.Require().Len(items, 1)
		s.Equal("Amoxicillin", items[0].Name)
	})

	s.Run("search combined with filter stays tenant scoped", func() {
		items, err := s.medicines.List(s.ctx, 1, ListOptions{
			Filters: map[string]any{"category_id": 1},
			Search:  "Acme",
		})
		s.Require().NoError(err)
		s.Len(items, 2)

		items, err = s.medicines.List(s.ctx, 2, ListOptions{Search: "Acme"})
		s.Require().NoError(err)
		s.Empty(items)
	})

	s.Run("pagination preserves insertion order", func() {
		items, err := s.medicines.List(s.ctx, 1, ListOptions{Limit: 2})
		s.Require().NoError(err)
		s.Require().Len(items, 2)
		s.Equal("Paracetamol", items[0].Name)
		s.Equal("Ibuprofen", items[1].Name)

		items, err = s.medicines.List(s.ctx, 1, ListOptions{Limit: 2, Offset: 2})
		s.Require().NoError(err)
		s.Require().Len(items, 1)
		s.Equal("Amoxicillin", items[0].Name)
	})
}

func (s *RepositorySuite) TestUpdate() {
	m := s.newMedicine("Paracetamol", 100)
	s.Require().NoError(s.medicines.Create(s.ctx, 1, m))

	s.Run("applies only supplied columns and bumps version", func() {
		updated, err := s.medicines.Update(s.ctx, 1, m.ID, map[string]any{"quantity": 80}, m.Version)
		s.Require().NoError(err)
		s.Equal(80, updated.Quantity)
		s.Equal("Paracetamol", updated.Name)
		s.Equal(uint(2), updated.Version)
	})

	s.Run("rejects a stale version", func() {
		_, err := s.medicines.Update(s.ctx, 1, m.ID, map[string]any{"quantity": 70}, m.Version)
		s.Require().ErrorIs(err, apperr.ErrConflict)
	})

	s.Run("missing record is not found, not a conflict", func() {
		_, err := s.medicines.Update(s.ctx, 1, 99999, map[string]any{"quantity": 1}, 1)
		s.Require().ErrorIs(err, apperr.ErrNotFound)
	})

	s.Run("empty change set reads back the current record", func() {
		current, err := s.medicines.GetByID(s.ctx, 1, m.ID)
		s.Require().NoError(err)

		got, err := s.medicines.Update(s.ctx, 1, m.ID, nil, current.Version)
		s.Require().NoError(err)
		s.Equal(current.Version, got.Version)
	})
}

func (s *RepositorySuite) TestCount() {
	s.Require().NoError(s.medicines.Create(s.ctx, 1, s.newMedicine("Paracetamol", 10)))
	s.Require().NoError(s.medicines.Create(s.ctx, 2, s.newMedicine("Paracetamol", 10)))

	n, err := s.medicines.Count(s.ctx, 1, map[string]any{"name": "Paracetamol"})
	s.Require().NoError(err)
	s.Equal(int64(1), n)
}
