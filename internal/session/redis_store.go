package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// RedisStore keeps each session as a JSON record under session:<userID>.
type RedisStore struct {
	redis  *redis.Client
	ttl    time.Duration
	tracer trace.Tracer
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore builds a redis backed store. A zero ttl keeps sessions forever.
func NewRedisStore(client *redis.Client, ttl time.Duration, tracer trace.Tracer) *RedisStore {
	if client == nil {
		panic("session: redis client cannot be nil")
	}
	if tracer == nil {
		tracer = otel.Tracer("pharmastic.internal.session")
	}
	return &RedisStore{
		redis:  client,
		ttl:    ttl,
		tracer: tracer,
	}
}

func (s *RedisStore) Get(ctx context.Context, userID string) (Session, error) {
	ctx, span := s.tracer.Start(ctx, "session.get")
	defer span.End()

	data, err := s.redis.Get(ctx, sessionKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return New(userID), nil
		}
		span.RecordError(err)
		return Session{}, fmt.Errorf("session: failed to load session: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		span.RecordError(err)
		return Session{}, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	if rec.UserID == "" {
		rec.UserID = userID
	}
	sess, err := FromRecord(rec)
	if err != nil {
		span.RecordError(err)
		return Session{}, err
	}
	return sess, nil
}

func (s *RedisStore) Set(ctx context.Context, sess Session) error {
	ctx, span := s.tracer.Start(ctx, "session.set")
	defer span.End()

	if sess.UpdatedAt.IsZero() {
		sess.UpdatedAt = time.Now().UTC()
	}
	rec, err := ToRecord(sess)
	if err != nil {
		span.RecordError(err)
		return err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("session: failed to marshal session: %w", err)
	}
	if err := s.redis.Set(ctx, sessionKey(sess.UserID), data, s.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("session: failed to persist session: %w", err)
	}
	return nil
}

func sessionKey(userID string) string {
	return fmt.Sprintf("session:%s", userID)
}
