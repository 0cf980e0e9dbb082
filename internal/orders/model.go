// Package orders stores confirmed medicine orders.
package orders

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// Status is the lifecycle of an order.
type Status string

const (
	StatusPending   Status = "Pending"
	StatusConfirmed Status = "Confirmed"
)

// CurrencyINR is the only currency orders are priced in.
const CurrencyINR = "INR"

var (
	// ErrDuplicateOrder is returned when an order id has already been stored.
	ErrDuplicateOrder = errors.New("orders: duplicate order id")

	// ErrNotFound is returned when an order lookup misses.
	ErrNotFound = errors.New("orders: order not found")

	ErrInvalidOrder = errors.New("orders: invalid order")
)

// LineItem is one medicine on an order. Prices are whole rupees.
type LineItem struct {
	Medicine             string `json:"medicine"`
	Quantity             int    `json:"quantity"`
	Unit                 string `json:"unit"`
	UnitPrice            int64  `json:"unit_price"`
	DosageFrequency      string `json:"dosage_frequency,omitempty"`
	PrescriptionRequired string `json:"prescription_required,omitempty"`
}

// Subtotal is the price of the line.
func (li LineItem) Subtotal() int64 {
	return li.UnitPrice * int64(li.Quantity)
}

type Order struct {
	ID         string     `json:"order_id"`
	CustomerID string     `json:"customer_id"`
	Items      []LineItem `json:"items"`
	Total      int64      `json:"total_price"`
	Status     Status     `json:"status"`
	Currency   string     `json:"currency"`
	CreatedAt  time.Time  `json:"created_at"`
}

// NewOrderID returns a sortable id of the form ORD-<ULID>.
func NewOrderID() string {
	return "ORD-" + ulid.Make().String()
}

// ComputeTotal sums the line items.
func ComputeTotal(items []LineItem) int64 {
	var total int64
	for _, item := range items {
		total += item.Subtotal()
	}
	return total
}

// RecomputeTotal overwrites Total with the sum of the line items and returns it.
func (o *Order) RecomputeTotal() int64 {
	o.Total = ComputeTotal(o.Items)
	return o.Total
}

// Validate checks an order before it is persisted.
func (o Order) Validate() error {
	if strings.TrimSpace(o.ID) == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidOrder)
	}
	if strings.TrimSpace(o.CustomerID) == "" {
		return fmt.Errorf("%w: customer id is required", ErrInvalidOrder)
	}
	if len(o.Items) == 0 {
		return fmt.Errorf("%w: at least one line item is required", ErrInvalidOrder)
	}
	for i, item := range o.Items {
		if strings.TrimSpace(item.Medicine) == "" {
			return fmt.Errorf("%w: item %d has no medicine", ErrInvalidOrder, i)
		}
		if item.Quantity <= 0 {
			return fmt.Errorf("%w: item %d quantity must be positive", ErrInvalidOrder, i)
		}
		if item.UnitPrice < 0 {
			return fmt.Errorf("%w: item %d has a negative price", ErrInvalidOrder, i)
		}
	}
	return nil
}

// prepare normalizes an order for storage.
func prepare(o Order, now time.Time) (Order, error) {
	if err := o.Validate(); err != nil {
		return Order{}, err
	}
	o.Items = append([]LineItem(nil), o.Items...)
	o.RecomputeTotal()
	if o.Status == "" {
		o.Status = StatusConfirmed
	}
	if o.Currency == "" {
		o.Currency = CurrencyINR
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	o.CreatedAt = o.CreatedAt.UTC()
	return o, nil
}
