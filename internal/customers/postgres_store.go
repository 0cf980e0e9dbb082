package customers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PgxPool is the subset of pgxpool.Pool used by the store so pgxmock can stand in.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore keeps profiles in the customers table. Medication history is a
// JSONB object keyed by sanitized medicine name.
type PostgresStore struct {
	pool PgxPool
}

var _ Store = (*PostgresStore)(nil)

func NewPostgresStore(pool PgxPool) *PostgresStore {
	if pool == nil {
		panic("customers: pgx pool required")
	}
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Find(ctx context.Context, userID string) (*Profile, error) {
	query := `
		SELECT user_id, name, age, gender, preferred_language, medication_history, registered_at
		FROM customers
		WHERE user_id = $1
	`
	var (
		p       Profile
		history []byte
	)
	err := s.pool.QueryRow(ctx, query, userID).Scan(
		&p.UserID,
		&p.Name,
		&p.Age,
		&p.Gender,
		&p.PreferredLanguage,
		&history,
		&p.RegisteredAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("customers: find profile: %w", err)
	}

	p.MedicationHistory = map[string]MedicationEntry{}
	if len(history) > 0 {
		if err := json.Unmarshal(history, &p.MedicationHistory); err != nil {
			return nil, fmt.Errorf("customers: decode medication history: %w", err)
		}
	}
	return &p, nil
}

func (s *PostgresStore) Create(ctx context.Context, profile Profile) error {
	if err := profile.Validate(); err != nil {
		return err
	}
	if profile.RegisteredAt.IsZero() {
		profile.RegisteredAt = time.Now().UTC()
	}
	history := profile.MedicationHistory
	if history == nil {
		history = map[string]MedicationEntry{}
	}
	historyJSON, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("customers: encode medication history: %w", err)
	}

	query := `
		INSERT INTO customers (user_id, name, age, gender, preferred_language, medication_history, registered_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id) DO NOTHING
	`
	tag, err := s.pool.Exec(ctx, query,
		profile.UserID,
		strings.TrimSpace(profile.Name),
		profile.Age,
		profile.Gender,
		profile.PreferredLanguage,
		historyJSON,
		profile.RegisteredAt,
	)
	if err != nil {
		return fmt.Errorf("customers: insert profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProfileExists
	}
	return nil
}

// IncrementHistory bumps the counter for one medicine in a single statement so
// concurrent confirmations never lose an increment.
func (s *PostgresStore) IncrementHistory(ctx context.Context, userID, medicineKey, dosage string, at time.Time) error {
	key := SanitizeKey(medicineKey)
	if key == "" {
		return nil
	}
	query := `
		UPDATE customers
		SET medication_history = jsonb_set(
				medication_history,
				ARRAY[$2::text],
				jsonb_build_object(
					'count', COALESCE((medication_history -> $2::text ->> 'count')::int, 0) + 1,
					'last_ordered_at', to_jsonb($3::timestamptz),
					'last_dosage', to_jsonb($4::text)
				),
				true
			),
			updated_at = now()
		WHERE user_id = $1
	`
	tag, err := s.pool.Exec(ctx, query, userID, key, at.UTC(), dosage)
	if err != nil {
		return fmt.Errorf("customers: increment history: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProfileNotFound
	}
	return nil
}

func (s *PostgresStore) UpdateLanguage(ctx context.Context, userID, language string) error {
	query := `UPDATE customers SET preferred_language = $2, updated_at = now() WHERE user_id = $1`
	tag, err := s.pool.Exec(ctx, query, userID, strings.ToLower(strings.TrimSpace(language)))
	if err != nil {
		return fmt.Errorf("customers: update language: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProfileNotFound
	}
	return nil
}
