// Package sentinel is the query client over the security log store. It
// renders typed template parameters, parses rows into entities, applies
// view projections and wraps everything in result/error envelopes.
package sentinel

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/0labdotnet/azureAI-sentinel-sub001/pkg/adapters/logstore"
	"github.com/0labdotnet/azureAI-sentinel-sub001/pkg/models"
	"github.com/0labdotnet/azureAI-sentinel-sub001/pkg/projections"
	"github.com/0labdotnet/azureAI-sentinel-sub001/pkg/queries"
	"github.com/0labdotnet/azureAI-sentinel-sub001/pkg/retry"
)

// Client executes the five security log query operations.
type Client struct {
	exec     logstore.Executor
	logger   *zap.Logger
	retryCfg *retry.Config
	now      func() time.Time
}

// NewClient creates a query client. The client retries transient store
// failures exactly once, silently; permanent failures surface immediately.
func NewClient(exec logstore.Executor, logger *zap.Logger) *Client {
	return &Client{
		exec:     exec,
		logger:   logger.Named("sentinel"),
		retryCfg: retry.SingleRetryConfig(),
		now:      time.Now,
	}
}

// AsQueryError converts a store failure into the structured payload the
// model receives. Tool failures are data, never conversation aborts.
func AsQueryError(err error) *models.QueryError {
	var storeErr *logstore.Error
	if errors.As(err, &storeErr) {
		return &models.QueryError{
			Code:          string(storeErr.Kind),
			Message:       storeErr.Message,
			RetryPossible: storeErr.IsRetryable(),
		}
	}
	return &models.QueryError{
		Code:          "unknown",
		Message:       err.Error(),
		RetryPossible: false,
	}
}

func invalidTimeWindow(name string) *models.QueryError {
	valid := make([]string, 0, len(queries.TimeWindows))
	for k := range queries.TimeWindows {
		valid = append(valid, k)
	}
	sort.Strings(valid)
	return &models.QueryError{
		Code:          "invalid_time_window",
		Message:       fmt.Sprintf("unknown time window %q, valid: %v", name, valid),
		RetryPossible: false,
	}
}

// execute runs one template with the single silent retry on transient
// store errors.
func (c *Client) execute(ctx context.Context, templateID string, params logstore.Params) (*logstore.ResultSet, error) {
	var result *logstore.ResultSet
	err := retry.DoIfRetryable(ctx, c.retryCfg, func() error {
		rs, execErr := c.exec.Execute(ctx, templateID, params)
		if execErr != nil {
			return execErr
		}
		result = rs
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func metadataFrom(rs *logstore.ResultSet, total int) models.QueryMetadata {
	return models.QueryMetadata{
		Total:       total,
		QueryMillis: float64(rs.Elapsed.Milliseconds()),
		Truncated:   rs.Truncated,
	}
}

// QueryIncidents lists incidents in a time window at or above a severity
// threshold. EntityCount is 0 for every row in list view.
func (c *Client) QueryIncidents(ctx context.Context, timeWindow, minSeverity string, limit int) (*models.QueryResult, *models.QueryError) {
	window, err := queries.Window(defaultWindow(timeWindow))
	if err != nil {
		return nil, invalidTimeWindow(timeWindow)
	}

	rs, err := c.execute(ctx, queries.TemplateListIncidents, logstore.Params{
		Since:      c.now().Add(-window),
		Severities: queries.SeverityFilter(minSeverity),
		Limit:      queries.ClampLimit("incident_list", limit),
	})
	if err != nil {
		return nil, AsQueryError(err)
	}

	now := c.now()
	rows := make([]models.Fields, 0, len(rs.Rows))
	for _, row := range rs.Rows {
		projected, perr := projections.Apply(projections.IncidentList, ParseIncident(row, false).Serialize(now))
		if perr != nil {
			return nil, AsQueryError(perr)
		}
		rows = append(rows, projected)
	}

	return &models.QueryResult{Metadata: metadataFrom(rs, len(rows)), Results: rows}, nil
}

// IncidentRef addresses an incident by number (exact) or by title
// substring (case-insensitive).
type IncidentRef struct {
	Number int
	Name   string
}

// GetIncidentDetail fetches full incident context: the incident rows plus
// their related alerts and entities. EntityCount is populated from the
// entity sub-query. Sub-query failures degrade to empty lists rather than
// failing the whole lookup.
func (c *Client) GetIncidentDetail(ctx context.Context, ref IncidentRef) (*models.QueryResult, *models.QueryError) {
	var rs *logstore.ResultSet
	var err error
	if ref.Name != "" {
		rs, err = c.execute(ctx, queries.TemplateGetIncidentByName, logstore.Params{
			IncidentName: ref.Name,
			Limit:        10,
		})
	} else {
		rs, err = c.execute(ctx, queries.TemplateGetIncidentByNumber, logstore.Params{
			IncidentNumber: ref.Number,
		})
	}
	if err != nil {
		return nil, AsQueryError(err)
	}

	now := c.now()
	incidents := make([]*models.Incident, 0, len(rs.Rows))
	for _, row := range rs.Rows {
		incidents = append(incidents, ParseIncident(row, true))
	}

	allAlerts := make([]models.Fields, 0)
	allEntities := make([]models.Fields, 0)

	for _, inc := range incidents {
		alertRS, aerr := c.execute(ctx, queries.TemplateGetIncidentAlerts, logstore.Params{
			IncidentNumber: inc.Number,
		})
		if aerr != nil {
			c.logger.Warn("incident alerts sub-query failed",
				zap.Int("incident", inc.Number), zap.Error(aerr))
		} else {
			for _, row := range alertRS.Rows {
				projected, perr := projections.Apply(projections.AlertList, ParseAlert(row).Serialize(now))
				if perr != nil {
					return nil, AsQueryError(perr)
				}
				allAlerts = append(allAlerts, projected)
			}
		}

		entityRS, eerr := c.execute(ctx, queries.TemplateGetIncidentEntities, logstore.Params{
			IncidentNumber: inc.Number,
		})
		if eerr != nil {
			c.logger.Warn("incident entities sub-query failed",
				zap.Int("incident", inc.Number), zap.Error(eerr))
		} else {
			for _, row := range entityRS.Rows {
				allEntities = append(allEntities, ParseEntity(row))
			}
			inc.EntityCount = entityRS.RowCount
		}
	}

	projectedIncidents := make([]models.Fields, 0, len(incidents))
	for _, inc := range incidents {
		projected, perr := projections.Apply(projections.IncidentDetail, inc.Serialize(now))
		if perr != nil {
			return nil, AsQueryError(perr)
		}
		projectedIncidents = append(projectedIncidents, projected)
	}

	composite := models.Fields{
		{Key: "incidents", Value: projectedIncidents},
		{Key: "alerts", Value: allAlerts},
		{Key: "entities", Value: allEntities},
	}

	return &models.QueryResult{
		Metadata: metadataFrom(rs, len(projectedIncidents)),
		Results:  []models.Fields{composite},
	}, nil
}

// QueryAlerts lists alerts in a time window at or above a severity
// threshold.
func (c *Client) QueryAlerts(ctx context.Context, timeWindow, minSeverity string, limit int) (*models.QueryResult, *models.QueryError) {
	window, err := queries.Window(defaultWindow(timeWindow))
	if err != nil {
		return nil, invalidTimeWindow(timeWindow)
	}

	rs, err := c.execute(ctx, queries.TemplateListAlerts, logstore.Params{
		Since:      c.now().Add(-window),
		Severities: queries.SeverityFilter(minSeverity),
		Limit:      queries.ClampLimit("alert_list", limit),
	})
	if err != nil {
		return nil, AsQueryError(err)
	}

	now := c.now()
	rows := make([]models.Fields, 0, len(rs.Rows))
	for _, row := range rs.Rows {
		projected, perr := projections.Apply(projections.AlertList, ParseAlert(row).Serialize(now))
		if perr != nil {
			return nil, AsQueryError(perr)
		}
		rows = append(rows, projected)
	}

	return &models.QueryResult{Metadata: metadataFrom(rs, len(rows)), Results: rows}, nil
}

// GetAlertTrend buckets alert counts over a window. Bucket width is
// auto-selected from the window: hourly up to a day, daily beyond.
func (c *Client) GetAlertTrend(ctx context.Context, timeWindow, minSeverity string, perSeverity bool) (*models.QueryResult, *models.QueryError) {
	if timeWindow == "" {
		timeWindow = "last_7d"
	}
	window, err := queries.Window(timeWindow)
	if err != nil {
		return nil, invalidTimeWindow(timeWindow)
	}

	templateID := queries.TemplateAlertTrendTotal
	if perSeverity {
		templateID = queries.TemplateAlertTrend
	}

	rs, err := c.execute(ctx, templateID, logstore.Params{
		Since:      c.now().Add(-window),
		Severities: queries.SeverityFilter(minSeverity),
		BinSize:    queries.BinSize(window),
		Limit:      queries.ClampLimit("alert_trend", 0),
	})
	if err != nil {
		return nil, AsQueryError(err)
	}

	now := c.now()
	rows := make([]models.Fields, 0, len(rs.Rows))
	for _, row := range rs.Rows {
		rows = append(rows, ParseTrendPoint(row).Serialize(now))
	}

	return &models.QueryResult{Metadata: metadataFrom(rs, len(rows)), Results: rows}, nil
}

// GetTopEntities ranks the most-targeted accounts, IPs and hosts by
// alert count.
func (c *Client) GetTopEntities(ctx context.Context, timeWindow, minSeverity string, limit int) (*models.QueryResult, *models.QueryError) {
	if timeWindow == "" {
		timeWindow = "last_7d"
	}
	window, err := queries.Window(timeWindow)
	if err != nil {
		return nil, invalidTimeWindow(timeWindow)
	}

	rs, err := c.execute(ctx, queries.TemplateTopEntities, logstore.Params{
		Since:      c.now().Add(-window),
		Severities: queries.SeverityFilter(minSeverity),
		Limit:      queries.ClampLimit("top_entities", limit),
	})
	if err != nil {
		return nil, AsQueryError(err)
	}

	now := c.now()
	rows := make([]models.Fields, 0, len(rs.Rows))
	for _, row := range rs.Rows {
		rows = append(rows, ParseEntityCount(row).Serialize(now))
	}

	return &models.QueryResult{Metadata: metadataFrom(rs, len(rows)), Results: rows}, nil
}

func defaultWindow(name string) string {
	if name == "" {
		return queries.DefaultTimeRange
	}
	return name
}
