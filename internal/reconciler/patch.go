package reconciler

import (
	"time"

	"pharmacy-service/internal/model"
)

// MedicinePatch is the partial update shape for medicines. A nil field means
// "leave unchanged"; a set field enters the diff only if its value differs
// from the stored one. Keys are the column names the repository updates.
type MedicinePatch struct {
	Name         *string    `json:"name,omitempty"`
	Brand        *string    `json:"brand,omitempty"`
	Description  *string    `json:"description,omitempty"`
	BatchNumber  *string    `json:"batch_number,omitempty"`
	Price        *float64   `json:"price,omitempty"`
	Quantity     *int       `json:"quantity,omitempty"`
	ReorderLevel *int       `json:"reorder_level,omitempty"`
	ExpiryDate   *time.Time `json:"expiry_date,omitempty"`
	CategoryID   *uint      `json:"category_id,omitempty"`
}

// Diff compares the patch against the current record field by field.
func (p MedicinePatch) Diff(current *model.Medicine) Diff {
	d := Diff{}
	if p.Name != nil && *p.Name != current.Name {
		d["name"] = Change{Before: current.Name, After: *p.Name}
	}
	if p.Brand != nil && *p.Brand != current.Brand {
		d["brand"] = Change{Before: current.Brand, After: *p.Brand}
	}
	if p.Description != nil && *p.Description != current.Description {
		d["description"] = Change{Before: current.Description, After: *p.Description}
	}
	if p.BatchNumber != nil && *p.BatchNumber != current.BatchNumber {
		d["batch_number"] = Change{Before: current.BatchNumber, After: *p.BatchNumber}
	}
	if p.Price != nil && *p.Price != current.Price {
		d["price"] = Change{Before: current.Price, After: *p.Price}
	}
	if p.Quantity != nil && *p.Quantity != current.Quantity {
		d["quantity"] = Change{Before: current.Quantity, After: *p.Quantity}
	}
	if p.ReorderLevel != nil && *p.ReorderLevel != current.ReorderLevel {
		d["reorder_level"] = Change{Before: current.ReorderLevel, After: *p.ReorderLevel}
	}
	if p.ExpiryDate != nil && !p.ExpiryDate.Equal(current.ExpiryDate) {
		d["expiry_date"] = Change{Before: current.ExpiryDate, After: *p.ExpiryDate}
	}
	if p.CategoryID != nil && *p.CategoryID != current.CategoryID {
		d["category_id"] = Change{Before: current.CategoryID, After: *p.CategoryID}
	}
	return d
}

// CategoryPatch is the partial update shape for categories.
type CategoryPatch struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

// Diff compares the patch against the current record field by field.
func (p CategoryPatch) Diff(current *model.Category) Diff {
	d := Diff{}
	if p.Name != nil && *p.Name != current.Name {
		d["name"] = Change{Before: current.Name, After: *p.Name}
	}
	if p.Description != nil && *p.Description != current.Description {
		d["description"] = Change{Before: current.Description, After: *p.Description}
	}
	return d
}

// UserPatch is the partial update shape for staff accounts. Passwords are
// not batch-updatable; they go through the dedicated credential flow.
type UserPatch struct {
	Email *string `json:"email,omitempty"`
	Name  *string `json:"name,omitempty"`
	Role  *string `json:"role,omitempty"`
}

// Diff compares the patch against the current record field by field.
func (p UserPatch) Diff(current *model.User) Diff {
	d := Diff{}
	if p.Email != nil && *p.Email != current.Email {
		d["email"] = Change{Before: current.Email, After: *p.Email}
	}
	if p.Name != nil && *p.Name != current.Name {
		d["name"] = Change{Before: current.Name, After: *p.Name}
	}
	if p.Role != nil && *p.Role != current.Role {
		d["role"] = Change{Before: current.Role, After: *p.Role}
	}
	return d
}
