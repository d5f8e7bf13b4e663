// Package projections filters serialized entities down to the named field
// allow-list for each view. Templates return full rows; projections are
// applied post-query so the model only sees the fields a view needs.
package projections

import (
	"fmt"

	"github.com/0labdotnet/azureAI-sentinel-sub001/pkg/apperrors"
	"github.com/0labdotnet/azureAI-sentinel-sub001/pkg/models"
)

// View names.
const (
	IncidentList   = "incident_list"
	IncidentDetail = "incident_detail"
	AlertList      = "alert_list"
)

// registry maps view names to ordered field allow-lists.
//
// entity_count appears in both incident views: in list view it is 0 (no
// cross-table join), in detail view it is populated from the entity
// sub-query.
var registry = map[string][]string{
	IncidentList: {
		"number",
		"title",
		"severity",
		"status",
		"created_time",
		"alert_count",
		"entity_count",
		"last_modified_time",
		"created_time_ago",
		"last_modified_time_ago",
	},
	IncidentDetail: {
		"number",
		"title",
		"severity",
		"status",
		"description",
		"created_time",
		"last_modified_time",
		"closed_time",
		"owner",
		"alert_count",
		"entity_count",
		"labels",
		"classification",
		"classification_reason",
		"first_activity_time",
		"last_activity_time",
		"incident_url",
		"created_time_ago",
		"last_modified_time_ago",
	},
	AlertList: {
		"name",
		"display_name",
		"severity",
		"status",
		"time_generated",
		"tactics",
		"provider_name",
		"compromised_entity",
		"time_generated_ago",
	},
}

// Fields returns the ordered allow-list for a view.
func Fields(view string) ([]string, error) {
	fields, ok := registry[view]
	if !ok {
		return nil, fmt.Errorf("%w: %q", apperrors.ErrUnknownProjection, view)
	}
	return fields, nil
}

// Apply filters an ordered field set to the view's allow-list, in
// allow-list order. Fields absent from the row are skipped. An
// unregistered view is a hard error, never a silent pass-through.
func Apply(view string, row models.Fields) (models.Fields, error) {
	allowed, err := Fields(view)
	if err != nil {
		return nil, err
	}

	out := make(models.Fields, 0, len(allowed))
	for _, key := range allowed {
		if val, ok := row.Get(key); ok {
			out = append(out, models.Field{Key: key, Value: val})
		}
	}
	return out, nil
}

// ApplyAll projects every row in a batch.
func ApplyAll(view string, rows []models.Fields) ([]models.Fields, error) {
	out := make([]models.Fields, len(rows))
	for i, row := range rows {
		projected, err := Apply(view, row)
		if err != nil {
			return nil, err
		}
		out[i] = projected
	}
	return out, nil
}

// Validate confirms every referenced view is registered. Runs at startup
// so a tool wired to a missing view fails the process, not the query.
func Validate(views ...string) error {
	for _, view := range views {
		if _, ok := registry[view]; !ok {
			return fmt.Errorf("%w: %q", apperrors.ErrUnknownProjection, view)
		}
	}
	return nil
}
