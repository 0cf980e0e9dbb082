package conversation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wolfman30/pharmastic-ai-platform/internal/customers"
	"github.com/wolfman30/pharmastic-ai-platform/internal/orders"
	"github.com/wolfman30/pharmastic-ai-platform/internal/session"
)

// effect is a store mutation requested by a transition.
type effect interface {
	isEffect()
}

type createProfile struct{ profile customers.Profile }

type appendOrder struct{ order orders.Order }

type incrementHistory struct {
	medicine string
	dosage   string
	at       time.Time
}

type updateLanguage struct{ language string }

type notifyOrder struct{ order orders.Order }

func (createProfile) isEffect()    {}
func (appendOrder) isEffect()      {}
func (incrementHistory) isEffect() {}
func (updateLanguage) isEffect()   {}
func (notifyOrder) isEffect()      {}

// OrderNotifier is told about every newly confirmed order.
type OrderNotifier interface {
	NotifyOrderConfirmed(ctx context.Context, order orders.Order, profile *customers.Profile) error
}

// commit applies a transition in write-ahead order: profile and order writes
// with the history follow-up, then the session, then the language preference
// and the pharmacy notification. A failure before the session write leaves
// the previous step in place so the same message can be replayed. A replayed
// order is not counted twice, and it is announced exactly once because the
// notification only runs after a successful session write.
func (e *Engine) commit(ctx context.Context, userID string, profile *customers.Profile, out outcome) error {
	replayedOrder := false

	for _, eff := range out.effects {
		switch v := eff.(type) {
		case createProfile:
			if err := e.profiles.Create(ctx, v.profile); err != nil {
				if !errors.Is(err, customers.ErrProfileExists) {
					return fmt.Errorf("conversation: create profile: %w", err)
				}
				e.logger.Info("profile already exists, continuing", "user_id", userID)
			}
		case appendOrder:
			if _, err := e.orders.Append(ctx, v.order); err != nil {
				if !errors.Is(err, orders.ErrDuplicateOrder) {
					return fmt.Errorf("conversation: append order: %w", err)
				}
				replayedOrder = true
				e.logger.Info("order already persisted, continuing", "user_id", userID, "order_id", v.order.ID)
				continue
			}
			e.metrics.ObserveOrderConfirmed(v.order.Total)
		case incrementHistory:
			if replayedOrder {
				continue
			}
			err := e.profiles.IncrementHistory(ctx, userID, customers.SanitizeKey(v.medicine), v.dosage, v.at)
			if err != nil && !errors.Is(err, customers.ErrProfileNotFound) {
				e.logger.Warn("medication history update failed", "user_id", userID, "error", err)
			}
		}
	}

	if err := e.sessions.Set(ctx, session.Session{UserID: userID, State: out.next, UpdatedAt: e.now()}); err != nil {
		return fmt.Errorf("conversation: save session: %w", err)
	}

	for _, eff := range out.effects {
		switch v := eff.(type) {
		case updateLanguage:
			if err := e.profiles.UpdateLanguage(ctx, userID, v.language); err != nil && !errors.Is(err, customers.ErrProfileNotFound) {
				e.logger.Warn("preferred language update failed", "user_id", userID, "error", err)
			}
		case notifyOrder:
			// A replayed order never reached this point before, so it is announced now.
			if e.notifier == nil {
				continue
			}
			if replayedOrder {
				e.logger.Info("announcing replayed order", "user_id", userID, "order_id", v.order.ID)
			}
			if err := e.notifier.NotifyOrderConfirmed(ctx, v.order, profile); err != nil {
				e.logger.Warn("order notification failed", "user_id", userID, "order_id", v.order.ID, "error", err)
			}
		}
	}
	return nil
}
