package bootstrap

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/pharmastic-ai-platform/internal/config"
	"github.com/wolfman30/pharmastic-ai-platform/internal/conversation"
	"github.com/wolfman30/pharmastic-ai-platform/internal/session"
	"github.com/wolfman30/pharmastic-ai-platform/pkg/logging"
)

// BuildSessionStore selects the session backend named by SESSION_BACKEND.
// awsCfg is only consulted for the dynamodb backend.
func BuildSessionStore(cfg *appconfig.Config, redisClient *redis.Client, awsCfg *aws.Config, logger *logging.Logger) (session.Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	switch cfg.SessionBackend {
	case "memory":
		logger.Warn("using in-memory session store")
		return session.NewMemoryStore(), nil
	case "dynamodb":
		if awsCfg == nil {
			return nil, fmt.Errorf("bootstrap: dynamodb session backend requires aws config")
		}
		logger.Info("using dynamodb session store", "table", cfg.SessionTable)
		return session.NewDynamoStore(dynamodb.NewFromConfig(*awsCfg), cfg.SessionTable, cfg.SessionTTL, logger), nil
	case "", "redis":
		if redisClient == nil {
			return nil, fmt.Errorf("bootstrap: redis session backend requires REDIS_ADDR")
		}
		logger.Info("using redis session store", "addr", cfg.RedisAddr)
		return session.NewRedisStore(redisClient, cfg.SessionTTL, nil), nil
	default:
		return nil, fmt.Errorf("bootstrap: unknown session backend %q", cfg.SessionBackend)
	}
}

// BuildLocker serializes turns across processes when Redis is available.
func BuildLocker(cfg *appconfig.Config, redisClient *redis.Client, logger *logging.Logger) conversation.Locker {
	if logger == nil {
		logger = logging.Default()
	}
	if redisClient == nil {
		logger.Warn("redis unavailable; turn locks are process-local")
		return conversation.NewMemoryLocker()
	}
	ttl := cfg.LockTTL
	if ttl <= conversation.DefaultTurnTimeout {
		logger.Warn("LOCK_TTL must exceed the turn timeout; using default", "lock_ttl", ttl.String(), "default", conversation.DefaultLockTTL.String())
		ttl = conversation.DefaultLockTTL
	}
	return conversation.NewRedisLocker(redisClient, ttl)
}
