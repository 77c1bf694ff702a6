package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Checker-Finance/trade-recon/pkg/model"
)

// Store defines the contract for persisting trade reports and
// reconciliation outcomes.
type Store interface {
	UpsertTrade(ctx context.Context, tr *model.TradeRecord) error
	GetTrade(ctx context.Context, tradeID string, source model.SourceSystem) (*model.TradeRecord, error)
	UpsertReconciliation(ctx context.Context, rec *model.ReconciliationRecord) error
	GetReconciliation(ctx context.Context, tradeID string) (*model.ReconciliationRecord, error)
	ListReconciliations(ctx context.Context, status *model.Status, page, size int) ([]model.ReconciliationRecord, int64, error)
	ListTimedOutPending(ctx context.Context, threshold time.Time) ([]model.ReconciliationRecord, error)
	Migrate(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Close() error
}

// HybridStore is a Postgres-backed store with a Redis read-through cache for
// reconciliation status lookups (the hot path for the query API). All writes
// are single-statement upserts keyed by the natural key, so concurrent
// writers degrade to last-writer-wins without read-modify-write races.
type HybridStore struct {
	redis    *redis.Client
	PG       *pgxpool.Pool
	logger   *zap.Logger
	cacheTTL time.Duration
}

type PGPoolConfig struct {
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

// NewHybrid creates a Redis-cached, Postgres-backed store.
func NewHybrid(redisAddr string, redisDB int, redisPass, pgURL string, cacheTTL time.Duration, pgPoolConfig PGPoolConfig, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	rdb := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		DB:       redisDB,
		Password: redisPass,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	cfg, err := pgxpool.ParseConfig(pgURL)
	if err != nil {
		return nil, fmt.Errorf("invalid pg config: %w", err)
	}
	if pgPoolConfig.MaxConns > 0 {
		cfg.MaxConns = pgPoolConfig.MaxConns
	}
	if pgPoolConfig.MinConns > 0 {
		cfg.MinConns = pgPoolConfig.MinConns
	}
	if pgPoolConfig.MaxConnLifetime > 0 {
		cfg.MaxConnLifetime = pgPoolConfig.MaxConnLifetime
	}
	if pgPoolConfig.MaxConnIdleTime > 0 {
		cfg.MaxConnIdleTime = pgPoolConfig.MaxConnIdleTime
	}
	if pgPoolConfig.HealthCheckPeriod > 0 {
		cfg.HealthCheckPeriod = pgPoolConfig.HealthCheckPeriod
	}
	pgPool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	return &HybridStore{redis: rdb, PG: pgPool, logger: logger, cacheTTL: cacheTTL}, nil
}

// Migrate creates the schema and tables if they do not exist.
func (s *HybridStore) Migrate(ctx context.Context) error {
	if s.PG == nil {
		return fmt.Errorf("postgres unavailable")
	}
	_, err := s.PG.Exec(ctx, schemaDDL)
	if err != nil {
		return fmt.Errorf("migrate failed: %w", err)
	}
	return nil
}

// UpsertTrade inserts or overwrites the trade report for
// (trade_id, source_system). received_at is refreshed on every write and the
// surrogate id is written back onto tr.
func (s *HybridStore) UpsertTrade(ctx context.Context, tr *model.TradeRecord) error {
	if s.PG == nil {
		return fmt.Errorf("postgres unavailable")
	}
	row := s.PG.QueryRow(ctx, `
		INSERT INTO recon.trade_data (
			trade_id, source_system, instrument, quantity, price,
			trade_date, counterparty, received_at, raw_payload
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), $8)
		ON CONFLICT (trade_id, source_system)
		DO UPDATE SET
			instrument = EXCLUDED.instrument,
			quantity = EXCLUDED.quantity,
			price = EXCLUDED.price,
			trade_date = EXCLUDED.trade_date,
			counterparty = EXCLUDED.counterparty,
			received_at = NOW(),
			raw_payload = EXCLUDED.raw_payload
		RETURNING id, received_at;
	`, tr.TradeID, string(tr.SourceSystem), tr.Instrument,
		tr.Quantity.String(), tr.Price.String(),
		tr.TradeDate, tr.Counterparty, tr.RawPayload)

	if err := row.Scan(&tr.ID, &tr.ReceivedAt); err != nil {
		s.logger.Error("store.pg.upsert_trade_failed",
			zap.String("trade_id", tr.TradeID),
			zap.Error(err))
		return fmt.Errorf("upsert trade [%s/%s]: %w", tr.TradeID, tr.SourceSystem, err)
	}
	return nil
}

// GetTrade loads one side of a trade. Absence is (nil, nil).
func (s *HybridStore) GetTrade(ctx context.Context, tradeID string, source model.SourceSystem) (*model.TradeRecord, error) {
	if s.PG == nil {
		return nil, fmt.Errorf("postgres unavailable")
	}
	row := s.PG.QueryRow(ctx, `
		SELECT id, trade_id, source_system, instrument, quantity::text, price::text,
		       trade_date, counterparty, received_at, raw_payload
		FROM recon.trade_data
		WHERE trade_id = $1 AND source_system = $2;
	`, tradeID, string(source))

	tr, err := scanTrade(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("get trade [%s/%s]: %w", tradeID, source, err)
	}
	return tr, nil
}

// UpsertReconciliation writes the full outcome record for a trade identifier.
// created_at is only written on first insert; the statement is the atomic
// create-or-update boundary the engine and the sweeper rely on. The cached
// copy is invalidated on every write.
func (s *HybridStore) UpsertReconciliation(ctx context.Context, rec *model.ReconciliationRecord) error {
	if s.PG == nil {
		return fmt.Errorf("postgres unavailable")
	}
	row := s.PG.QueryRow(ctx, `
		INSERT INTO recon.trade_reconciliation (
			trade_id, status, details, side_a_trade_id, side_b_trade_id,
			created_at, updated_at, last_attempt_at
		)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW(), $6)
		ON CONFLICT (trade_id)
		DO UPDATE SET
			status = EXCLUDED.status,
			details = EXCLUDED.details,
			side_a_trade_id = EXCLUDED.side_a_trade_id,
			side_b_trade_id = EXCLUDED.side_b_trade_id,
			updated_at = NOW(),
			last_attempt_at = EXCLUDED.last_attempt_at
		RETURNING id, created_at, updated_at;
	`, rec.TradeID, string(rec.Status), rec.Details,
		rec.SideATradeID, rec.SideBTradeID, rec.LastAttempt)

	if err := row.Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		s.logger.Error("store.pg.upsert_reconciliation_failed",
			zap.String("trade_id", rec.TradeID),
			zap.Error(err))
		return fmt.Errorf("upsert reconciliation [%s]: %w", rec.TradeID, err)
	}

	s.invalidateReconciliation(ctx, rec.TradeID)
	return nil
}

// GetReconciliation returns the last durable outcome for a trade identifier,
// serving from the Redis cache when possible. Absence is (nil, nil).
func (s *HybridStore) GetReconciliation(ctx context.Context, tradeID string) (*model.ReconciliationRecord, error) {
	if rec := s.cachedReconciliation(ctx, tradeID); rec != nil {
		return rec, nil
	}

	if s.PG == nil {
		return nil, fmt.Errorf("postgres unavailable")
	}
	row := s.PG.QueryRow(ctx, reconciliationSelect+` WHERE trade_id = $1;`, tradeID)

	rec, err := scanReconciliation(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("get reconciliation [%s]: %w", tradeID, err)
	}

	s.cacheReconciliation(ctx, rec)
	return rec, nil
}

// ListReconciliations returns one page of outcomes sorted by updated_at
// descending, optionally filtered by status, plus the total row count.
// page is zero-based.
func (s *HybridStore) ListReconciliations(ctx context.Context, status *model.Status, page, size int) ([]model.ReconciliationRecord, int64, error) {
	if s.PG == nil {
		return nil, 0, fmt.Errorf("postgres unavailable")
	}
	if size <= 0 {
		size = 20
	}
	if page < 0 {
		page = 0
	}

	var filter string
	if status != nil {
		filter = string(*status)
	}

	var total int64
	if err := s.PG.QueryRow(ctx, `
		SELECT COUNT(*) FROM recon.trade_reconciliation
		WHERE ($1 = '' OR status = $1);
	`, filter).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count reconciliations: %w", err)
	}

	rows, err := s.PG.Query(ctx, reconciliationSelect+`
		WHERE ($1 = '' OR status = $1)
		ORDER BY updated_at DESC
		LIMIT $2 OFFSET $3;
	`, filter, size, page*size)
	if err != nil {
		return nil, 0, fmt.Errorf("list reconciliations: %w", err)
	}
	defer rows.Close()

	var results []model.ReconciliationRecord
	for rows.Next() {
		rec, err := scanReconciliation(rows)
		if err != nil {
			return nil, 0, err
		}
		results = append(results, *rec)
	}
	return results, total, rows.Err()
}

// ListTimedOutPending returns PENDING reconciliations created before threshold.
func (s *HybridStore) ListTimedOutPending(ctx context.Context, threshold time.Time) ([]model.ReconciliationRecord, error) {
	if s.PG == nil {
		return nil, fmt.Errorf("postgres unavailable")
	}
	rows, err := s.PG.Query(ctx, reconciliationSelect+`
		WHERE status = $1 AND created_at < $2;
	`, string(model.StatusPending), threshold)
	if err != nil {
		return nil, fmt.Errorf("list timed-out pending: %w", err)
	}
	defer rows.Close()

	var results []model.ReconciliationRecord
	for rows.Next() {
		rec, err := scanReconciliation(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *rec)
	}
	return results, rows.Err()
}

func (s *HybridStore) HealthCheck(ctx context.Context) error {
	if s.redis == nil {
		return fmt.Errorf("redis not initialized")
	}
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	if s.PG != nil {
		if err := s.PG.Ping(ctx); err != nil {
			return fmt.Errorf("postgres ping failed: %w", err)
		}
	}
	return nil
}

func (s *HybridStore) Close() error {
	if s.PG != nil {
		s.PG.Close()
	}
	if s.redis != nil {
		return s.redis.Close()
	}
	return nil
}

// --- cache helpers ---

func reconCacheKey(tradeID string) string {
	return "recon:status:" + tradeID
}

func (s *HybridStore) cachedReconciliation(ctx context.Context, tradeID string) *model.ReconciliationRecord {
	if s.redis == nil {
		return nil
	}
	data, err := s.redis.Get(ctx, reconCacheKey(tradeID)).Bytes()
	if err != nil {
		return nil
	}
	var rec model.ReconciliationRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil
	}
	return &rec
}

func (s *HybridStore) cacheReconciliation(ctx context.Context, rec *model.ReconciliationRecord) {
	if s.redis == nil || s.cacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, reconCacheKey(rec.TradeID), data, s.cacheTTL).Err(); err != nil {
		s.logger.Warn("store.cache.set_failed",
			zap.String("trade_id", rec.TradeID),
			zap.Error(err))
	}
}

func (s *HybridStore) invalidateReconciliation(ctx context.Context, tradeID string) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, reconCacheKey(tradeID)).Err(); err != nil {
		s.logger.Warn("store.cache.invalidate_failed",
			zap.String("trade_id", tradeID),
			zap.Error(err))
	}
}

// --- row scanning ---

const reconciliationSelect = `
	SELECT id, trade_id, status, details, side_a_trade_id, side_b_trade_id,
	       created_at, updated_at, last_attempt_at
	FROM recon.trade_reconciliation`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrade(row rowScanner) (*model.TradeRecord, error) {
	var tr model.TradeRecord
	var source, quantity, price string
	if err := row.Scan(&tr.ID, &tr.TradeID, &source, &tr.Instrument,
		&quantity, &price, &tr.TradeDate, &tr.Counterparty,
		&tr.ReceivedAt, &tr.RawPayload); err != nil {
		return nil, err
	}

	tr.SourceSystem = model.SourceSystem(source)
	var err error
	if tr.Quantity, err = decimal.NewFromString(quantity); err != nil {
		return nil, fmt.Errorf("corrupt quantity for trade [%s]: %w", tr.TradeID, err)
	}
	if tr.Price, err = decimal.NewFromString(price); err != nil {
		return nil, fmt.Errorf("corrupt price for trade [%s]: %w", tr.TradeID, err)
	}
	return &tr, nil
}

func scanReconciliation(row rowScanner) (*model.ReconciliationRecord, error) {
	var rec model.ReconciliationRecord
	var status string
	if err := row.Scan(&rec.ID, &rec.TradeID, &status, &rec.Details,
		&rec.SideATradeID, &rec.SideBTradeID,
		&rec.CreatedAt, &rec.UpdatedAt, &rec.LastAttempt); err != nil {
		return nil, err
	}
	rec.Status = model.Status(status)
	return &rec, nil
}

const schemaDDL = `
	CREATE SCHEMA IF NOT EXISTS recon;

	CREATE TABLE IF NOT EXISTS recon.trade_data (
		id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		trade_id TEXT NOT NULL,
		source_system TEXT NOT NULL,
		instrument TEXT NOT NULL,
		quantity NUMERIC NOT NULL,
		price NUMERIC NOT NULL,
		trade_date TIMESTAMPTZ NOT NULL,
		counterparty TEXT NOT NULL,
		received_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		raw_payload BYTEA,
		UNIQUE (trade_id, source_system)
	);

	CREATE TABLE IF NOT EXISTS recon.trade_reconciliation (
		id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		trade_id TEXT NOT NULL UNIQUE,
		status TEXT NOT NULL,
		details TEXT,
		side_a_trade_id BIGINT,
		side_b_trade_id BIGINT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		last_attempt_at TIMESTAMPTZ
	);

	CREATE INDEX IF NOT EXISTS idx_trade_reconciliation_status_created
		ON recon.trade_reconciliation (status, created_at);

	CREATE INDEX IF NOT EXISTS idx_trade_reconciliation_updated
		ON recon.trade_reconciliation (updated_at DESC);
`
