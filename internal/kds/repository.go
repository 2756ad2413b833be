package kds

import "context"

type OrderFilter struct {
	Statuses []string
	Limit    int
	Offset   int
}

type OrderRepository interface {
	Create(ctx context.Context, o *Order) error
	FindByID(ctx context.Context, id OrderID) (*Order, error)
	List(ctx context.Context, filter OrderFilter) ([]Order, error)
	UpdateStatus(ctx context.Context, id OrderID, status string) error
	Delete(ctx context.Context, id OrderID) error
}
