package audit

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// pool is the subset of *pgxpool.Pool this package depends on, narrow
// enough that pgxmock's pool fake satisfies it in tests.
type pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Close()
}

type postgresSink struct {
	pool   pool
	logger *zap.Logger
}

// NewPostgres connects to dsn, ensures the audit table exists, and
// returns a Sink backed by it.
func NewPostgres(ctx context.Context, dsn string, logger *zap.Logger) (Sink, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("audit: parse dsn: %w", err)
	}
	p, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("audit: connect: %w", err)
	}
	sink := &postgresSink{pool: p, logger: logger}
	if err := sink.ensureSchema(ctx); err != nil {
		p.Close()
		return nil, err
	}
	return sink, nil
}

func newPostgresSink(p pool, logger *zap.Logger) *postgresSink {
	return &postgresSink{pool: p, logger: logger}
}

func (s *postgresSink) ensureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS crawl_audit (
	id          BIGSERIAL PRIMARY KEY,
	host        TEXT NOT NULL,
	url         TEXT NOT NULL,
	outcome     TEXT NOT NULL,
	node_count  INTEGER NOT NULL,
	edge_count  INTEGER NOT NULL,
	occurred_at TIMESTAMPTZ NOT NULL
)`)
	if err != nil {
		return fmt.Errorf("audit: ensure schema: %w", err)
	}
	return nil
}

func (s *postgresSink) Record(ctx context.Context, r Record) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO crawl_audit (host, url, outcome, node_count, edge_count, occurred_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		r.Host, r.URL, r.Outcome, r.NodeCount, r.EdgeCount, r.OccurredAt)
	if err != nil {
		s.logger.Warn("audit: record insert failed", zap.String("host", r.Host), zap.Error(err))
		return fmt.Errorf("audit: insert record: %w", err)
	}
	return nil
}

func (s *postgresSink) Close() {
	s.pool.Close()
}
