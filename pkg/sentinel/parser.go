package sentinel

import (
	"encoding/json"
	"time"

	"github.com/0labdotnet/azureAI-sentinel-sub001/pkg/models"
	"github.com/0labdotnet/azureAI-sentinel-sub001/pkg/timeutil"
)

// Row parsing is defensive throughout: a missing or mistyped column yields
// its typed default (0, "", empty slice) and a bad row never fails the
// batch. Log pipelines deliver rows with drifting types regularly.

func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

func asInt(v any) int {
	switch t := v.(type) {
	case int:
		return t
	case int32:
		return int(t)
	case int64:
		return int(t)
	case float32:
		return int(t)
	case float64:
		return int(t)
	case string:
		var parsed float64
		if err := json.Unmarshal([]byte(t), &parsed); err != nil {
			return 0
		}
		return int(parsed)
	default:
		return 0
	}
}

func asTime(v any) time.Time {
	return timeutil.Normalize(v)
}

// parseOwner extracts the assignee from the owner column, which holds a
// JSON object with an assignedTo field, a plain string, or nothing.
func parseOwner(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case map[string]any:
		return asString(t["assignedTo"])
	case string:
		var obj map[string]any
		if err := json.Unmarshal([]byte(t), &obj); err == nil {
			return asString(obj["assignedTo"])
		}
		return t
	case []byte:
		return parseOwner(string(t))
	default:
		return ""
	}
}

// parseIDList counts the alert_ids JSON array, tolerating both decoded
// slices and raw JSON text.
func parseIDList(v any) int {
	switch t := v.(type) {
	case nil:
		return 0
	case []any:
		return len(t)
	case []string:
		return len(t)
	case string:
		var list []any
		if err := json.Unmarshal([]byte(t), &list); err != nil {
			return 0
		}
		return len(list)
	case []byte:
		return parseIDList(string(t))
	default:
		return 0
	}
}

// parseLabels flattens the labels column. Elements are either plain
// strings or {labelName: ...} objects.
func parseLabels(v any) []string {
	var list []any
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		list = t
	case string:
		if err := json.Unmarshal([]byte(t), &list); err != nil {
			return nil
		}
	case []byte:
		return parseLabels(string(t))
	default:
		return nil
	}

	labels := make([]string, 0, len(list))
	for _, item := range list {
		if obj, ok := item.(map[string]any); ok {
			if name := asString(obj["labelName"]); name != "" {
				labels = append(labels, name)
				continue
			}
		}
		labels = append(labels, asString(item))
	}
	return labels
}

// ParseIncident builds an Incident from a store row. Detail rows carry
// the extra columns list rows omit; EntityCount stays 0 here and is
// populated by the detail query from its entity sub-query.
func ParseIncident(row map[string]any, detail bool) *models.Incident {
	inc := &models.Incident{
		Number:           asInt(row["incident_number"]),
		Title:            asString(row["title"]),
		Severity:         asString(row["severity"]),
		Status:           asString(row["status"]),
		CreatedTime:      asTime(row["created_time"]),
		LastModifiedTime: asTime(row["last_modified_time"]),
		Description:      asString(row["description"]),
		Owner:            parseOwner(row["owner"]),
		AlertCount:       parseIDList(row["alert_ids"]),
	}

	if detail {
		if v, ok := row["closed_time"]; ok && v != nil {
			inc.ClosedTime = asTime(v)
		}
		if v, ok := row["first_activity_time"]; ok && v != nil {
			inc.FirstActivityTime = asTime(v)
		}
		if v, ok := row["last_activity_time"]; ok && v != nil {
			inc.LastActivityTime = asTime(v)
		}
		inc.IncidentURL = asString(row["incident_url"])
		inc.Classification = asString(row["classification"])
		inc.ClassificationReason = asString(row["classification_reason"])
		inc.Labels = parseLabels(row["labels"])
	}

	return inc
}

// ParseAlert builds an Alert from a store row. The alert table uses
// alert_severity, not severity, mirroring the upstream schema pitfall.
func ParseAlert(row map[string]any) *models.Alert {
	return &models.Alert{
		Name:              asString(row["alert_name"]),
		DisplayName:       asString(row["display_name"]),
		Severity:          asString(row["alert_severity"]),
		Status:            asString(row["status"]),
		TimeGenerated:     asTime(row["time_generated"]),
		Description:       asString(row["description"]),
		Tactics:           asString(row["tactics"]),
		Techniques:        asString(row["techniques"]),
		ProviderName:      asString(row["provider_name"]),
		CompromisedEntity: asString(row["compromised_entity"]),
		SystemAlertID:     asString(row["system_alert_id"]),
	}
}

// ParseTrendPoint builds a TrendPoint from a trend bucket row.
func ParseTrendPoint(row map[string]any) *models.TrendPoint {
	return &models.TrendPoint{
		Timestamp: asTime(row["bucket"]),
		Count:     asInt(row["alert_count"]),
		Severity:  asString(row["alert_severity"]),
	}
}

// ParseEntityCount builds a ranked entity row.
func ParseEntityCount(row map[string]any) *models.EntityCountRow {
	return &models.EntityCountRow{
		EntityType: asString(row["entity_type"]),
		EntityName: asString(row["entity_name"]),
		Count:      asInt(row["alert_count"]),
	}
}

// ParseEntity builds the {entity_type, entity_name} pair used by the
// incident detail composite.
func ParseEntity(row map[string]any) models.Fields {
	return models.Fields{
		{Key: "entity_type", Value: asString(row["entity_type"])},
		{Key: "entity_name", Value: asString(row["entity_name"])},
	}
}
