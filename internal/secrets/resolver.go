package secrets

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Checker-Finance/trade-recon/internal/config"
	pkgsecrets "github.com/Checker-Finance/trade-recon/pkg/secrets"
)

// Secret keys recognised in the runtime-credentials secret. Keys absent from
// the secret leave the corresponding env-derived value untouched.
const (
	keyDatabaseURL = "database_url"
	keyAMQPURL     = "amqp_url"
	keyRedisPass   = "redis_pass"
)

// Resolver loads runtime credentials from a secrets provider, with an
// in-memory TTL cache in front so restart loops do not hammer the provider.
type Resolver struct {
	logger   *zap.Logger
	provider pkgsecrets.Provider
	cache    *pkgsecrets.Cache[map[string]string]
}

func NewResolver(logger *zap.Logger, provider pkgsecrets.Provider, cache *pkgsecrets.Cache[map[string]string]) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{logger: logger, provider: provider, cache: cache}
}

// ApplyOverrides fetches the secret named by cfg.SecretID and overwrites the
// credential fields of cfg with the values it carries. A no-op when SecretID
// is empty.
func (r *Resolver) ApplyOverrides(ctx context.Context, cfg *config.Config) error {
	if cfg.SecretID == "" {
		return nil
	}

	values, ok := r.cache.Get(cfg.SecretID)
	if !ok {
		var err error
		values, err = r.provider.GetSecret(ctx, cfg.SecretID)
		if err != nil {
			return fmt.Errorf("fetch secret %q: %w", cfg.SecretID, err)
		}
		r.cache.Put(cfg.SecretID, values)
	}

	applied := make([]string, 0, 3)
	if v, ok := values[keyDatabaseURL]; ok && v != "" {
		cfg.DatabaseURL = v
		applied = append(applied, keyDatabaseURL)
	}
	if v, ok := values[keyAMQPURL]; ok && v != "" {
		cfg.AMQPURL = v
		applied = append(applied, keyAMQPURL)
	}
	if v, ok := values[keyRedisPass]; ok && v != "" {
		cfg.RedisPass = v
		applied = append(applied, keyRedisPass)
	}

	r.logger.Info("secrets.overrides_applied",
		zap.String("secret_id", cfg.SecretID),
		zap.Strings("keys", applied))
	return nil
}
