package timescaledb

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"go.uber.org/fx"

	"elastic-sentinel/config"
	"elastic-sentinel/internal/model"
)

// GroundTruthStore keeps the metric events describing what a run injected, so
// detectors can be scored against it.
type GroundTruthStore interface {
	StoreMetricEvents(ctx context.Context, runID string, events []model.MetricEvent) error
	Close()
}

type timescaleGroundTruthStore struct {
	pool      *pgxpool.Pool
	tableName string
}

const (
	groundTruthTableName = "sentinel_ground_truth"
	colTime              = "time"
	colRunID             = "run_id"
	colMetricName        = "metric_name"
	colSource            = "source"
	colTags              = "tags" // JSONB
)

var columns = []string{colTime, colRunID, colMetricName, colSource, colTags}

// ProvideGroundTruthStore returns nil when no DSN is configured. Connection and
// schema errors are returned, not retried.
func ProvideGroundTruthStore(lc fx.Lifecycle, cfg *config.Config) (GroundTruthStore, error) {
	if cfg.TimescaleDB.DSN == "" {
		log.Info().Msg("TimescaleDB DSN not configured, ground-truth store disabled")
		return nil, nil
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.TimescaleDB.DSN)
	if err != nil {
		log.Error().Err(err).Msg("Failed to parse TimescaleDB DSN")
		return nil, fmt.Errorf("invalid TimescaleDB DSN: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		log.Error().Err(err).Msg("Unable to create connection pool to TimescaleDB")
		return nil, fmt.Errorf("failed to connect to TimescaleDB: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		log.Error().Err(err).Msg("Failed to ping TimescaleDB")
		return nil, fmt.Errorf("failed to ping TimescaleDB: %w", err)
	}
	log.Info().Msg("TimescaleDB connection pool created and verified.")

	store := &timescaleGroundTruthStore{
		pool:      pool,
		tableName: groundTruthTableName,
	}

	setupCtx, cancelSetup := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelSetup()
	if err := store.ensureHypertable(setupCtx); err != nil {
		pool.Close()
		log.Error().Err(err).Msg("Failed to ensure TimescaleDB hypertable exists")
		return nil, fmt.Errorf("failed ensuring hypertable: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("Closing TimescaleDB connection pool...")
			store.Close()
			return nil
		},
	})

	return store, nil
}

func (s *timescaleGroundTruthStore) ensureHypertable(ctx context.Context) error {
	createTableSQL := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			%s TIMESTAMPTZ NOT NULL,
			%s TEXT NOT NULL,
			%s TEXT NOT NULL,
			%s TEXT NOT NULL,
			%s JSONB
		);`,
		s.tableName, colTime, colRunID, colMetricName, colSource, colTags)

	if _, err := s.pool.Exec(ctx, createTableSQL); err != nil {
		return fmt.Errorf("failed to create base table %s: %w", s.tableName, err)
	}
	log.Info().Str("table", s.tableName).Msg("Ensured base table exists.")

	if _, err := s.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS timescaledb;"); err != nil {
		log.Warn().Err(err).Msg("Failed to ensure timescaledb extension exists (permission issue?). Trying to proceed...")
	}

	createHyperSQL := fmt.Sprintf(
		"SELECT create_hypertable('%s', '%s', if_not_exists => TRUE, chunk_time_interval => INTERVAL '1 day');",
		s.tableName,
		colTime,
	)
	if _, err := s.pool.Exec(ctx, createHyperSQL); err != nil && !strings.Contains(err.Error(), "already a hypertable") {
		return fmt.Errorf("failed to create hypertable %s: %w", s.tableName, err)
	}

	indexSQL := fmt.Sprintf(`
        CREATE INDEX IF NOT EXISTS idx_%s_run_metric_time ON %s (run_id, metric_name, time DESC);
        CREATE INDEX IF NOT EXISTS idx_%s_tags ON %s USING GIN (tags);
    `, s.tableName, s.tableName, s.tableName, s.tableName)
	if _, err := s.pool.Exec(ctx, indexSQL); err != nil {
		log.Warn().Err(err).Msg("Failed to create indexes on ground-truth table (continuing)")
	}
	return nil
}

func (s *timescaleGroundTruthStore) StoreMetricEvents(ctx context.Context, runID string, events []model.MetricEvent) error {
	if len(events) == 0 {
		return nil
	}

	rows := EventRows(runID, events)
	copyCount, err := s.pool.CopyFrom(ctx, pgx.Identifier{s.tableName}, columns, pgx.CopyFromRows(rows))
	if err != nil {
		log.Error().Err(err).Msg("Failed to bulk insert ground-truth events into TimescaleDB")
		return fmt.Errorf("timescaledb copyfrom failed: %w", err)
	}

	if int(copyCount) != len(events) {
		log.Warn().Int64("inserted", copyCount).Int("expected", len(events)).Msg("TimescaleDB CopyFrom event count mismatch")
	} else {
		log.Debug().Int64("count", copyCount).Msg("Successfully inserted ground-truth events into TimescaleDB")
	}
	return nil
}

func (s *timescaleGroundTruthStore) Close() {
	s.pool.Close()
}

// EventRows lays events out in column order for CopyFrom. Tags that fail to encode
// are stored as NULL so the event itself is kept.
func EventRows(runID string, events []model.MetricEvent) [][]interface{} {
	rows := make([][]interface{}, len(events))
	for i, e := range events {
		tagsJSON, err := json.Marshal(e.Tags)
		if err != nil {
			log.Error().Err(err).Interface("tags", e.Tags).Msg("Failed to marshal metric tags to JSON, inserting null")
			tagsJSON = nil
		}
		rows[i] = []interface{}{e.Time, runID, e.MetricName, string(e.Source), tagsJSON}
	}
	return rows
}
