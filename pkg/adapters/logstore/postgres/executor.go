// Package postgres executes log store query templates against a
// PostgreSQL mirror of the security log tables.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/0labdotnet/azureAI-sentinel-sub001/pkg/adapters/logstore"
	"github.com/0labdotnet/azureAI-sentinel-sub001/pkg/logging"
	"github.com/0labdotnet/azureAI-sentinel-sub001/pkg/queries"
)

// Executor runs query templates on a pgx pool.
type Executor struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewExecutor creates a PostgreSQL executor from the adapter config.
func NewExecutor(ctx context.Context, cfg *logstore.Config, logger *zap.Logger) (*Executor, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	return &Executor{
		pool:   pool,
		logger: logger.Named("logstore.postgres"),
	}, nil
}

// Execute renders the template, runs it under its deadline and collects
// rows as generic column maps.
func (e *Executor) Execute(ctx context.Context, templateID string, params logstore.Params) (*logstore.ResultSet, error) {
	stmt, args, err := render(templateID, params)
	if err != nil {
		return nil, logstore.ClassifyError(err)
	}

	ctx, cancel := context.WithTimeout(ctx, queries.Timeout(templateID))
	defer cancel()

	start := time.Now()
	rows, err := e.pool.Query(ctx, stmt, args...)
	if err != nil {
		e.logger.Warn("query failed",
			zap.String("template", templateID),
			zap.String("error", logging.SanitizeError(err)))
		return nil, logstore.ClassifyError(err)
	}
	defer rows.Close()

	fieldDescs := rows.FieldDescriptions()
	columns := make([]string, len(fieldDescs))
	for i, fd := range fieldDescs {
		columns[i] = string(fd.Name)
	}

	resultRows := make([]map[string]any, 0)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, logstore.ClassifyError(err)
		}

		rowMap := make(map[string]any, len(columns))
		for i, col := range columns {
			rowMap[col] = values[i]
		}
		resultRows = append(resultRows, rowMap)
	}
	if err := rows.Err(); err != nil {
		return nil, logstore.ClassifyError(err)
	}

	elapsed := time.Since(start)
	e.logger.Debug("query completed",
		zap.String("template", templateID),
		zap.Int("rows", len(resultRows)),
		zap.Duration("elapsed", elapsed))

	return &logstore.ResultSet{
		Rows:      resultRows,
		RowCount:  len(resultRows),
		Truncated: params.Limit > 0 && len(resultRows) >= params.Limit,
		Elapsed:   elapsed,
	}, nil
}

// Ping verifies store connectivity.
func (e *Executor) Ping(ctx context.Context) error {
	if err := e.pool.Ping(ctx); err != nil {
		return logstore.ClassifyError(err)
	}
	return nil
}

// Close releases the pool.
func (e *Executor) Close() {
	e.pool.Close()
}

var _ logstore.Executor = (*Executor)(nil)
