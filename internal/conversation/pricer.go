package conversation

import (
	"context"
	"math/rand/v2"
)

const (
	DefaultMinPrice int64 = 50
	DefaultMaxPrice int64 = 500
)

// Pricer quotes a per-unit price in whole rupees.
type Pricer interface {
	UnitPrice(ctx context.Context, medicine string) int64
}

// PricerFunc adapts a plain function to Pricer.
type PricerFunc func(ctx context.Context, medicine string) int64

func (f PricerFunc) UnitPrice(ctx context.Context, medicine string) int64 { return f(ctx, medicine) }

// RandomPricer draws a uniform placeholder price from [min, max] until a
// catalogue exists.
type RandomPricer struct {
	min, max int64
}

func NewRandomPricer(min, max int64) RandomPricer {
	if min <= 0 {
		min = DefaultMinPrice
	}
	if max < min {
		max = min
	}
	return RandomPricer{min: min, max: max}
}

func (p RandomPricer) UnitPrice(context.Context, string) int64 {
	if p.max <= p.min {
		return p.min
	}
	return p.min + rand.Int64N(p.max-p.min+1)
}
