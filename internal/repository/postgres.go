package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/luckystars0612/SecGram/internal/config"
	"github.com/luckystars0612/SecGram/internal/observability"
)

const jobsTable = "intake_jobs"

// schema is applied idempotently at connection time; the service owns its
// single table the same way it owns its output directory.
const schema = `
CREATE TABLE IF NOT EXISTS intake_jobs (
	id           TEXT PRIMARY KEY,
	source_path  TEXT NOT NULL,
	kind         TEXT NOT NULL,
	status       TEXT NOT NULL,
	detail       TEXT NOT NULL DEFAULT '',
	processed_at TIMESTAMPTZ NOT NULL
)`

// PostgresStore implements Store on top of sqlx + Postgres
type PostgresStore struct {
	db      *sqlx.DB
	qb      squirrel.StatementBuilderType
	logger  observability.Logger
	metrics observability.Metrics
}

// NewPostgres opens a connection pool, verifies it with a ping and ensures
// the intake_jobs table exists.
func NewPostgres(cfg *config.DatabaseConfig, logger observability.Logger, metrics observability.Metrics) (*PostgresStore, error) {
	logger = logger.WithFields(map[string]interface{}{"component": "repository.postgres"})

	logger.Info("connecting to PostgreSQL",
		"host", cfg.Host,
		"port", cfg.Port,
		"database", cfg.Database)

	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.Username,
		cfg.Password,
		cfg.Database,
		cfg.SSLMode,
	)

	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		logger.Error("failed to open database connection", "error", err)
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		logger.Error("failed to ping database", "error", err)
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		logger.Error("failed to ensure schema", "error", err)
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	logger.Info("connected to PostgreSQL")
	metrics.IncrementCounter("database.connection.success", map[string]string{"type": "postgres"})

	return &PostgresStore{
		db:      db,
		qb:      squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		logger:  logger,
		metrics: metrics,
	}, nil
}

// SaveOutcome inserts one job outcome row. Job IDs are unique per attempt,
// so conflicts only arise from redeliveries of the same job id; the later
// attempt wins.
func (s *PostgresStore) SaveOutcome(ctx context.Context, rec JobRecord) error {
	startTime := time.Now()

	query, args, err := s.buildInsert(rec).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	_, err = s.db.ExecContext(ctx, query, args...)
	s.metrics.RecordHistogram("database.save.duration_seconds",
		time.Since(startTime).Seconds(), nil)

	if err != nil {
		s.logger.Error("failed to save job outcome", "error", err, "job_id", rec.ID)
		s.metrics.IncrementCounter("database.save.errors", nil)
		return fmt.Errorf("save job outcome: %w", err)
	}

	s.metrics.IncrementCounter("database.save.success", nil)
	return nil
}

func (s *PostgresStore) buildInsert(rec JobRecord) squirrel.InsertBuilder {
	return s.qb.
		Insert(jobsTable).
		Columns("id", "source_path", "kind", "status", "detail", "processed_at").
		Values(rec.ID, rec.SourcePath, string(rec.Kind), string(rec.Status), rec.Detail, rec.ProcessedAt).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			detail = EXCLUDED.detail,
			processed_at = EXCLUDED.processed_at`)
}

// Close releases the connection pool
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
