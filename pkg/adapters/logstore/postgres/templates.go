package postgres

import (
	"fmt"

	"github.com/0labdotnet/azureAI-sentinel-sub001/pkg/adapters/logstore"
	"github.com/0labdotnet/azureAI-sentinel-sub001/pkg/queries"
)

// The mirror logs a new incident row on every modification, so incident
// templates deduplicate with DISTINCT ON (incident_number) keeping the
// latest last_modified_time, the SQL equivalent of arg_max.
const latestIncidents = `
	SELECT DISTINCT ON (incident_number) *
	FROM security_incidents
	%s
	ORDER BY incident_number, last_modified_time DESC
`

// incidentAlertIDs expands the jsonb alert_ids array of one incident.
const incidentAlertIDs = `
	SELECT jsonb_array_elements_text(alert_ids)
	FROM (
		SELECT DISTINCT ON (incident_number) alert_ids
		FROM security_incidents
		WHERE incident_number = $1
		ORDER BY incident_number, last_modified_time DESC
	) latest
`

// entityName mirrors the per-type field selection of the upstream entity
// schema: accounts expose Name, IPs Address, hosts HostName.
const entityName = `
	CASE entity->>'Type'
		WHEN 'account' THEN entity->>'Name'
		WHEN 'ip' THEN entity->>'Address'
		WHEN 'host' THEN entity->>'HostName'
		WHEN 'url' THEN entity->>'Url'
		ELSE entity->>'Name'
	END
`

// render produces the statement and bound arguments for a template.
// Every parameter binds server-side; limits arrive pre-clamped.
func render(templateID string, p logstore.Params) (string, []any, error) {
	switch templateID {
	case queries.TemplateListIncidents:
		return fmt.Sprintf(`
			SELECT incident_number, title, severity, status, created_time,
			       last_modified_time, owner, alert_ids, description,
			       first_activity_time, last_activity_time
			FROM (%s) latest
			WHERE severity = ANY($2)
			ORDER BY created_time DESC
			LIMIT $3`,
			fmt.Sprintf(latestIncidents, "WHERE time_generated > $1"),
		), []any{p.Since, p.Severities, p.Limit}, nil

	case queries.TemplateGetIncidentByNumber:
		return fmt.Sprintf(`
			SELECT incident_number, title, severity, status, description,
			       created_time, last_modified_time, closed_time, owner,
			       alert_ids, labels, classification, classification_reason,
			       first_activity_time, last_activity_time, incident_url
			FROM (%s) latest`,
			fmt.Sprintf(latestIncidents, "WHERE incident_number = $1"),
		), []any{p.IncidentNumber}, nil

	case queries.TemplateGetIncidentByName:
		if err := logstore.ScreenFreeText(p.IncidentName); err != nil {
			return "", nil, err
		}
		return fmt.Sprintf(`
			SELECT incident_number, title, severity, status, description,
			       created_time, last_modified_time, closed_time, owner,
			       alert_ids, labels, classification, classification_reason,
			       first_activity_time, last_activity_time, incident_url
			FROM (%s) latest
			WHERE title ILIKE '%%' || $1 || '%%'
			LIMIT $2`,
			fmt.Sprintf(latestIncidents, ""),
		), []any{p.IncidentName, p.Limit}, nil

	case queries.TemplateGetIncidentAlerts:
		return fmt.Sprintf(`
			SELECT alert_name, display_name, alert_severity, status,
			       time_generated, description, tactics, techniques,
			       provider_name, compromised_entity, system_alert_id
			FROM security_alerts
			WHERE system_alert_id IN (%s)`,
			incidentAlertIDs,
		), []any{p.IncidentNumber}, nil

	case queries.TemplateGetIncidentEntities:
		return fmt.Sprintf(`
			SELECT DISTINCT entity->>'Type' AS entity_type, %s AS entity_name
			FROM security_alerts a,
			     jsonb_array_elements(a.entities) entity
			WHERE a.system_alert_id IN (%s)
			  AND COALESCE(%s, '') <> ''`,
			entityName, incidentAlertIDs, entityName,
		), []any{p.IncidentNumber}, nil

	case queries.TemplateListAlerts:
		return `
			SELECT alert_name, display_name, alert_severity, status,
			       time_generated, description, tactics, techniques,
			       provider_name, compromised_entity, system_alert_id
			FROM security_alerts
			WHERE time_generated > $1
			  AND alert_severity = ANY($2)
			ORDER BY time_generated DESC
			LIMIT $3`, []any{p.Since, p.Severities, p.Limit}, nil

	case queries.TemplateAlertTrend:
		return `
			SELECT date_bin($3::interval, time_generated, 'epoch'::timestamptz) AS bucket,
			       alert_severity, COUNT(*) AS alert_count
			FROM security_alerts
			WHERE time_generated > $1
			  AND alert_severity = ANY($2)
			GROUP BY bucket, alert_severity
			ORDER BY bucket ASC`, []any{p.Since, p.Severities, p.BinSize}, nil

	case queries.TemplateAlertTrendTotal:
		return `
			SELECT date_bin($3::interval, time_generated, 'epoch'::timestamptz) AS bucket,
			       COUNT(*) AS alert_count
			FROM security_alerts
			WHERE time_generated > $1
			  AND alert_severity = ANY($2)
			GROUP BY bucket
			ORDER BY bucket ASC`, []any{p.Since, p.Severities, p.BinSize}, nil

	case queries.TemplateTopEntities:
		return fmt.Sprintf(`
			SELECT entity->>'Type' AS entity_type, %s AS entity_name,
			       COUNT(*) AS alert_count
			FROM security_alerts a,
			     jsonb_array_elements(a.entities) entity
			WHERE a.time_generated > $1
			  AND a.alert_severity = ANY($2)
			  AND entity->>'Type' IN ('account', 'ip', 'host')
			  AND COALESCE(%s, '') <> ''
			GROUP BY entity_type, entity_name
			ORDER BY alert_count DESC
			LIMIT $3`,
			entityName, entityName,
		), []any{p.Since, p.Severities, p.Limit}, nil

	default:
		return "", nil, logstore.NewError(logstore.KindInvalidQuery,
			fmt.Sprintf("no postgres statement for template %q", templateID), nil)
	}
}
