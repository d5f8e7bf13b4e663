// Package logstore defines the interface to the security log mirror and a
// registry of dialect adapters. Tools name a query template and bind typed
// parameters; adapters render dialect SQL and always bind server-side.
package logstore

import (
	"context"
	"time"
)

// Params carries the typed parameters a template can bind. Unused fields
// are ignored by templates that do not reference them.
type Params struct {
	Since          time.Time     // window start for time-bounded templates
	Severities     []string      // severity allow-list from queries.SeverityFilter
	Limit          int           // row cap, already clamped by the caller
	IncidentNumber int           // for incident detail templates
	IncidentName   string        // free-text title match, screened before binding
	BinSize        time.Duration // trend bucket width
}

// ResultSet is the raw outcome of a template execution. Rows are generic
// column maps; the query client parses them into typed entities.
type ResultSet struct {
	Rows      []map[string]any
	RowCount  int
	Truncated bool
	Elapsed   time.Duration
}

// Executor runs named query templates against one log store.
type Executor interface {
	// Execute runs the template under its configured deadline.
	// Failures come back as *Error with a Kind the caller can act on.
	Execute(ctx context.Context, templateID string, params Params) (*ResultSet, error)

	// Ping verifies connectivity, used by startup validation.
	Ping(ctx context.Context) error

	Close()
}

// Config holds adapter connection settings.
type Config struct {
	Driver   string // registered adapter name: "postgres", "mssql"
	DSN      string
	MaxConns int32
}
