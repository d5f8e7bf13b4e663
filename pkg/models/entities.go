// Package models holds the typed entities returned by security log queries
// and the result/error envelopes wrapped around them.
package models

import (
	"time"

	"github.com/0labdotnet/azureAI-sentinel-sub001/pkg/timeutil"
)

// Entity is the closed set of row variants a query can produce:
// Incident, Alert, TrendPoint and EntityCount. Serialize renders the
// entity as an ordered flat mapping with all instants in canonical UTC
// form and relative-time fields computed against now.
type Entity interface {
	Serialize(now time.Time) Fields
}

// Incident is a security incident row.
//
// EntityCount is 0 in list views: the incident table has no native entity
// data and the cross-table join is too expensive for list queries. Detail
// queries populate it from the entity sub-query.
type Incident struct {
	Number               int
	Title                string
	Severity             string // "High", "Medium", "Low", "Informational"
	Status               string // "New", "Active", "Closed"
	CreatedTime          time.Time
	LastModifiedTime     time.Time
	Description          string
	Owner                string
	AlertCount           int
	EntityCount          int
	ClosedTime           time.Time // zero when still open
	FirstActivityTime    time.Time
	LastActivityTime     time.Time
	IncidentURL          string
	Classification       string
	ClassificationReason string
	Labels               []string
}

func (i *Incident) Serialize(now time.Time) Fields {
	labels := i.Labels
	if labels == nil {
		labels = []string{}
	}
	return Fields{
		{"number", i.Number},
		{"title", i.Title},
		{"severity", i.Severity},
		{"status", i.Status},
		{"description", i.Description},
		{"created_time", timeutil.FormatUTC(i.CreatedTime)},
		{"last_modified_time", timeutil.FormatUTC(i.LastModifiedTime)},
		{"closed_time", optionalInstant(i.ClosedTime)},
		{"owner", i.Owner},
		{"alert_count", i.AlertCount},
		{"entity_count", i.EntityCount},
		{"labels", labels},
		{"classification", i.Classification},
		{"classification_reason", i.ClassificationReason},
		{"first_activity_time", optionalInstant(i.FirstActivityTime)},
		{"last_activity_time", optionalInstant(i.LastActivityTime)},
		{"incident_url", i.IncidentURL},
		{"created_time_ago", timeutil.RelativePhrase(i.CreatedTime, now)},
		{"last_modified_time_ago", timeutil.RelativePhrase(i.LastModifiedTime, now)},
	}
}

// Alert is a security alert row.
type Alert struct {
	Name              string
	DisplayName       string
	Severity          string
	Status            string
	TimeGenerated     time.Time
	Description       string
	Tactics           string
	Techniques        string
	ProviderName      string
	CompromisedEntity string
	SystemAlertID     string
}

func (a *Alert) Serialize(now time.Time) Fields {
	return Fields{
		{"name", a.Name},
		{"display_name", a.DisplayName},
		{"severity", a.Severity},
		{"status", a.Status},
		{"description", a.Description},
		{"time_generated", timeutil.FormatUTC(a.TimeGenerated)},
		{"tactics", a.Tactics},
		{"techniques", a.Techniques},
		{"provider_name", a.ProviderName},
		{"compromised_entity", a.CompromisedEntity},
		{"system_alert_id", a.SystemAlertID},
		{"time_generated_ago", timeutil.RelativePhrase(a.TimeGenerated, now)},
	}
}

// TrendPoint is a single bucket in an alert trend time series.
type TrendPoint struct {
	Timestamp time.Time
	Count     int
	Severity  string
}

func (p *TrendPoint) Serialize(now time.Time) Fields {
	return Fields{
		{"timestamp", timeutil.FormatUTC(p.Timestamp)},
		{"count", p.Count},
		{"severity", p.Severity},
	}
}

// EntityCountRow is a ranked entity with its occurrence count.
type EntityCountRow struct {
	EntityType string // "account", "ip", "host"
	EntityName string
	Count      int
}

func (e *EntityCountRow) Serialize(now time.Time) Fields {
	return Fields{
		{"entity_type", e.EntityType},
		{"entity_name", e.EntityName},
		{"count", e.Count},
	}
}

// optionalInstant renders zero instants as null rather than the epoch
// fallback: a missing closed_time means "still open", not 1970.
func optionalInstant(t time.Time) any {
	if t.IsZero() || t.Equal(timeutil.Epoch) {
		return nil
	}
	return timeutil.FormatUTC(t)
}

var (
	_ Entity = (*Incident)(nil)
	_ Entity = (*Alert)(nil)
	_ Entity = (*TrendPoint)(nil)
	_ Entity = (*EntityCountRow)(nil)
)
