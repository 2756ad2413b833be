package kds

import (
	"context"
	"errors"
	"sync"
)

// MockOrderRepository is a test mock for OrderRepository
type MockOrderRepository struct {
	mu               sync.Mutex
	orders           map[OrderID]Order
	CreateFunc       func(ctx context.Context, o *Order) error
	FindByIDFunc     func(ctx context.Context, id OrderID) (*Order, error)
	ListFunc         func(ctx context.Context, filter OrderFilter) ([]Order, error)
	UpdateStatusFunc func(ctx context.Context, id OrderID, status string) error
	DeleteFunc       func(ctx context.Context, id OrderID) error
}

func NewMockOrderRepository() *MockOrderRepository {
	return &MockOrderRepository{
		orders: make(map[OrderID]Order),
	}
}

func (m *MockOrderRepository) Create(ctx context.Context, o *Order) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, o)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if o.ID == 0 {
		o.ID = OrderID(len(m.orders) + 1)
	}
	m.orders[o.ID] = *o
	return nil
}

func (m *MockOrderRepository) FindByID(ctx context.Context, id OrderID) (*Order, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	o, exists := m.orders[id]
	if !exists {
		return nil, errors.New("order not found")
	}
	return &o, nil
}

func (m *MockOrderRepository) List(ctx context.Context, filter OrderFilter) ([]Order, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filter)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]Order, 0, len(m.orders))
	for _, o := range m.orders {
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, o.Status) {
			continue
		}
		result = append(result, o)
	}
	return result, nil
}

func (m *MockOrderRepository) UpdateStatus(ctx context.Context, id OrderID, status string) error {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, id, status)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	o, exists := m.orders[id]
	if !exists {
		return errors.New("order not found")
	}
	o.Status = status
	m.orders[id] = o
	return nil
}

func (m *MockOrderRepository) Delete(ctx context.Context, id OrderID) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.orders[id]; !exists {
		return errors.New("order not found")
	}
	delete(m.orders, id)
	return nil
}

// AddOrder is a helper to seed the mock repository
func (m *MockOrderRepository) AddOrder(o Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[o.ID] = o
}

func containsStatus(statuses []string, status string) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

// MockAnnouncer is a test mock for Announcer
type MockAnnouncer struct {
	mu        sync.Mutex
	Announced []Order
	Resets    int
}

func NewMockAnnouncer() *MockAnnouncer {
	return &MockAnnouncer{
		Announced: make([]Order, 0),
	}
}

func (m *MockAnnouncer) Announce(o Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Announced = append(m.Announced, o)
}

func (m *MockAnnouncer) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Resets++
}

func (m *MockAnnouncer) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Announced)
}

// MockFeedRunner is a test mock for FeedRunner
type MockFeedRunner struct {
	Started   int
	Stopped   int
	StartFunc func(ctx context.Context) error
	StopFunc  func() error
}

func NewMockFeedRunner() *MockFeedRunner {
	return &MockFeedRunner{}
}

func (m *MockFeedRunner) Start(ctx context.Context) error {
	if m.StartFunc != nil {
		return m.StartFunc(ctx)
	}
	m.Started++
	return nil
}

func (m *MockFeedRunner) Stop() error {
	if m.StopFunc != nil {
		return m.StopFunc()
	}
	m.Stopped++
	return nil
}
