package kds

import (
	"time"

	"github.com/chopline/kds/internal/enums/orderstatus"
)

type OrderID = int64

const PriorityHigh = "high"

// Order is an immutable value snapshot of a restaurant order. Every mutation
// produces a new snapshot rather than updating in place, so concurrent
// readers never observe a half-updated order.
type Order struct {
	ID      OrderID `bson:"_id" json:"id"`
	Name    string  `bson:"name" json:"name"`
	TableNo string  `bson:"table_no" json:"table_no"`
	Price   float64 `bson:"price" json:"price"`
	Note    string  `bson:"note,omitempty" json:"note,omitempty"`
	Status  string  `bson:"status" json:"status"`

	// Priority marks rush orders for the announcement rules.
	Priority string `bson:"priority,omitempty" json:"priority,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at,omitempty" json:"updated_at,omitempty"`
}

// Stage returns the lifecycle stage the order buckets into.
func (o Order) Stage() orderstatus.Stage {
	return orderstatus.Normalize(o.Status).Stage()
}

// WithStatus returns a new snapshot carrying the given status.
func (o Order) WithStatus(status string, at time.Time) Order {
	o.Status = status
	o.UpdatedAt = at
	return o
}

// Urgent reports whether the order is marked high priority.
func (o Order) Urgent() bool {
	return o.Priority == PriorityHigh
}
