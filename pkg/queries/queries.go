// Package queries is the central registry of query templates, severity
// thresholds, time windows and result limits. Store adapters render the
// actual SQL per dialect; everything here is dialect-independent.
package queries

import (
	"fmt"
	"time"

	"github.com/0labdotnet/azureAI-sentinel-sub001/pkg/apperrors"
)

// Template IDs. Adapters must provide a statement for every one of these;
// Validate fails the process at startup otherwise.
const (
	TemplateListIncidents       = "list_incidents"
	TemplateGetIncidentByNumber = "get_incident_by_number"
	TemplateGetIncidentByName   = "get_incident_by_name"
	TemplateGetIncidentAlerts   = "get_incident_alerts"
	TemplateGetIncidentEntities = "get_incident_entities"
	TemplateListAlerts          = "list_alerts"
	TemplateAlertTrend          = "alert_trend"
	TemplateAlertTrendTotal     = "alert_trend_total"
	TemplateTopEntities         = "top_entities"
)

// All returns every template ID.
func All() []string {
	return []string{
		TemplateListIncidents,
		TemplateGetIncidentByNumber,
		TemplateGetIncidentByName,
		TemplateGetIncidentAlerts,
		TemplateGetIncidentEntities,
		TemplateListAlerts,
		TemplateAlertTrend,
		TemplateAlertTrendTotal,
		TemplateTopEntities,
	}
}

// SeverityOrder lists the four alert severities from lowest to highest.
// There is no Critical level in this log schema.
var SeverityOrder = []string{"Informational", "Low", "Medium", "High"}

// SeverityFilter returns the severities at or above the given threshold.
// An unknown severity includes everything rather than filtering to nothing.
func SeverityFilter(minSeverity string) []string {
	idx := 0
	for i, s := range SeverityOrder {
		if s == minSeverity {
			idx = i
			break
		}
	}
	out := make([]string, len(SeverityOrder)-idx)
	copy(out, SeverityOrder[idx:])
	return out
}

// TimeWindows maps the fixed window names tools accept to durations.
var TimeWindows = map[string]time.Duration{
	"last_1h":  time.Hour,
	"last_24h": 24 * time.Hour,
	"last_3d":  3 * 24 * time.Hour,
	"last_7d":  7 * 24 * time.Hour,
	"last_14d": 14 * 24 * time.Hour,
	"last_30d": 30 * 24 * time.Hour,
}

// DefaultTimeRange is used when a tool call omits time_range.
const DefaultTimeRange = "last_24h"

// Window resolves a window name to a duration.
func Window(name string) (time.Duration, error) {
	d, ok := TimeWindows[name]
	if !ok {
		return 0, fmt.Errorf("unknown time range %q", name)
	}
	return d, nil
}

// Default and maximum result limits per view.
var (
	DefaultLimits = map[string]int{
		"incident_list":          20,
		"alert_list":             20,
		"incident_detail_alerts": 50,
		"alert_trend":            365,
		"top_entities":           10,
	}

	MaxLimits = map[string]int{
		"incident_list":          100,
		"alert_list":             100,
		"incident_detail_alerts": 200,
		"alert_trend":            365,
		"top_entities":           50,
	}
)

// ClampLimit applies the default when requested <= 0 and the cap otherwise.
func ClampLimit(view string, requested int) int {
	if requested <= 0 {
		return DefaultLimits[view]
	}
	if max, ok := MaxLimits[view]; ok && requested > max {
		return max
	}
	return requested
}

// DefaultTimeout applies to templates without an explicit entry.
const DefaultTimeout = 60 * time.Second

// templateTimeouts: simple lookups get 60s, aggregations get 180s.
var templateTimeouts = map[string]time.Duration{
	TemplateListIncidents:       60 * time.Second,
	TemplateGetIncidentByNumber: 60 * time.Second,
	TemplateGetIncidentByName:   60 * time.Second,
	TemplateListAlerts:          60 * time.Second,
	TemplateGetIncidentAlerts:   60 * time.Second,
	TemplateGetIncidentEntities: 60 * time.Second,
	TemplateAlertTrend:          180 * time.Second,
	TemplateAlertTrendTotal:     180 * time.Second,
	TemplateTopEntities:         180 * time.Second,
}

// Timeout returns the execution deadline for a template.
func Timeout(templateID string) time.Duration {
	if d, ok := templateTimeouts[templateID]; ok {
		return d
	}
	return DefaultTimeout
}

// BinSize picks the trend bucket width for a window: hourly buckets up to
// a day, daily buckets beyond.
func BinSize(window time.Duration) time.Duration {
	if window <= 24*time.Hour {
		return time.Hour
	}
	return 24 * time.Hour
}

// Validate confirms the given template IDs exist. Used at startup to catch
// tools wired to templates no adapter provides.
func Validate(templateIDs ...string) error {
	known := make(map[string]bool, len(templateTimeouts))
	for id := range templateTimeouts {
		known[id] = true
	}
	for _, id := range templateIDs {
		if !known[id] {
			return fmt.Errorf("%w: %q", apperrors.ErrUnknownTemplate, id)
		}
	}
	return nil
}
