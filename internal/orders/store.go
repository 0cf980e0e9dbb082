package orders

import (
	"context"
	"sort"
	"sync"
	"time"
)

const DefaultRecentLimit = 5

// Store is append-only: orders are never updated once written.
type Store interface {
	// Append stores the order, recomputing its total from the line items.
	Append(ctx context.Context, order Order) (string, error)
	// RecentByCustomer returns up to limit orders, newest first.
	RecentByCustomer(ctx context.Context, customerID string, limit int) ([]Order, error)
	Get(ctx context.Context, orderID string) (*Order, error)
}

type MemoryStore struct {
	mu     sync.RWMutex
	byID   map[string]Order
	byUser map[string][]string
	now    func() time.Time
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:   make(map[string]Order),
		byUser: make(map[string][]string),
		now:    time.Now,
	}
}

func (m *MemoryStore) Append(ctx context.Context, order Order) (string, error) {
	order, err := prepare(order, m.now())
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byID[order.ID]; exists {
		return "", ErrDuplicateOrder
	}
	m.byID[order.ID] = order
	m.byUser[order.CustomerID] = append(m.byUser[order.CustomerID], order.ID)
	return order.ID, nil
}

func (m *MemoryStore) RecentByCustomer(ctx context.Context, customerID string, limit int) ([]Order, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	m.mu.RLock()
	ids := m.byUser[customerID]
	out := make([]Order, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.byID[id])
	}
	m.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) Get(ctx context.Context, orderID string) (*Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.byID[orderID]
	if !ok {
		return nil, ErrNotFound
	}
	o.Items = append([]LineItem(nil), o.Items...)
	return &o, nil
}
