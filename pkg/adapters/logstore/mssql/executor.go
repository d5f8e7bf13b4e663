// Package mssql executes log store query templates against a SQL Server
// mirror of the security log tables.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/microsoft/go-mssqldb"
	"go.uber.org/zap"

	"github.com/0labdotnet/azureAI-sentinel-sub001/pkg/adapters/logstore"
	"github.com/0labdotnet/azureAI-sentinel-sub001/pkg/logging"
	"github.com/0labdotnet/azureAI-sentinel-sub001/pkg/queries"
)

// Executor runs query templates over database/sql with the sqlserver driver.
type Executor struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewExecutor creates a SQL Server executor from the adapter config.
func NewExecutor(cfg *logstore.Config, logger *zap.Logger) (*Executor, error) {
	db, err := sql.Open("sqlserver", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open sqlserver connection: %w", err)
	}
	if cfg.MaxConns > 0 {
		db.SetMaxOpenConns(int(cfg.MaxConns))
	}

	return &Executor{
		db:     db,
		logger: logger.Named("logstore.mssql"),
	}, nil
}

func (e *Executor) Execute(ctx context.Context, templateID string, params logstore.Params) (*logstore.ResultSet, error) {
	stmt, args, err := render(templateID, params)
	if err != nil {
		return nil, logstore.ClassifyError(err)
	}

	ctx, cancel := context.WithTimeout(ctx, queries.Timeout(templateID))
	defer cancel()

	start := time.Now()
	rows, err := e.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		e.logger.Warn("query failed",
			zap.String("template", templateID),
			zap.String("error", logging.SanitizeError(err)))
		return nil, logstore.ClassifyError(err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, logstore.ClassifyError(err)
	}

	resultRows := make([]map[string]any, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return nil, logstore.ClassifyError(err)
		}

		rowMap := make(map[string]any, len(columns))
		for i, col := range columns {
			// database/sql returns []byte for text columns; normalize to string
			if b, ok := values[i].([]byte); ok {
				rowMap[col] = string(b)
			} else {
				rowMap[col] = values[i]
			}
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

func (e *Executor) Ping(ctx context.Context) error {
	if err := e.db.PingContext(ctx); err != nil {
		return logstore.ClassifyError(err)
	}
	return nil
}

func (e *Executor) Close() {
	_ = e.db.Close()
}

var _ logstore.Executor = (*Executor)(nil)
