package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// PgxPool is the subset of pgxpool.Pool the store needs.
type PgxPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore writes orders and their line items in one transaction.
type PostgresStore struct {
	pool   PgxPool
	tracer trace.Tracer
	now    func() time.Time
}

var _ Store = (*PostgresStore)(nil)

func NewPostgresStore(pool PgxPool) *PostgresStore {
	if pool == nil {
		panic("orders: pgx pool required")
	}
	return &PostgresStore{
		pool:   pool,
		tracer: otel.Tracer("pharmastic.internal.orders"),
		now:    time.Now,
	}
}

func (s *PostgresStore) Append(ctx context.Context, order Order) (string, error) {
	ctx, span := s.tracer.Start(ctx, "orders.append")
	defer span.End()

	order, err := prepare(order, s.now())
	if err != nil {
		return "", err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("orders: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		INSERT INTO orders (id, customer_id, total_price, status, currency, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`, order.ID, order.CustomerID, order.Total, string(order.Status), order.Currency, order.CreatedAt)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("orders: insert order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return "", ErrDuplicateOrder
	}

	for i, item := range order.Items {
		_, err := tx.Exec(ctx, `
			INSERT INTO order_items (order_id, position, medicine, quantity, unit, unit_price, dosage_frequency, prescription_required)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, order.ID, i, item.Medicine, item.Quantity, item.Unit, item.UnitPrice, item.DosageFrequency, item.PrescriptionRequired)
		if err != nil {
			span.RecordError(err)
			return "", fmt.Errorf("orders: insert item %d: %w", i, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("orders: commit: %w", err)
	}
	return order.ID, nil
}

const selectOrders = `
	SELECT o.id, o.customer_id, o.total_price, o.status, o.currency, o.created_at,
		COALESCE(
			json_agg(
				json_build_object(
					'medicine', i.medicine,
					'quantity', i.quantity,
					'unit', i.unit,
					'unit_price', i.unit_price,
					'dosage_frequency', i.dosage_frequency,
					'prescription_required', i.prescription_required
				) ORDER BY i.position
			) FILTER (WHERE i.order_id IS NOT NULL),
			'[]'
		) AS items
	FROM orders o
	LEFT JOIN order_items i ON i.order_id = o.id
`

func (s *PostgresStore) RecentByCustomer(ctx context.Context, customerID string, limit int) ([]Order, error) {
	ctx, span := s.tracer.Start(ctx, "orders.recent_by_customer")
	defer span.End()

	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	rows, err := s.pool.Query(ctx, selectOrders+`
		WHERE o.customer_id = $1
		GROUP BY o.id
		ORDER BY o.created_at DESC, o.id DESC
		LIMIT $2
	`, customerID, limit)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("orders: query recent: %w", err)
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("orders: iterate recent: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Get(ctx context.Context, orderID string) (*Order, error) {
	row := s.pool.QueryRow(ctx, selectOrders+`
		WHERE o.id = $1
		GROUP BY o.id
	`, orderID)
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

func scanOrder(row pgx.Row) (Order, error) {
	var (
		o      Order
		status string
		items  []byte
	)
	if err := row.Scan(&o.ID, &o.CustomerID, &o.Total, &status, &o.Currency, &o.CreatedAt, &items); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, err
		}
		return Order{}, fmt.Errorf("orders: scan order: %w", err)
	}
	o.Status = Status(status)
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return Order{}, fmt.Errorf("orders: decode items: %w", err)
	}
	return o, nil
}
