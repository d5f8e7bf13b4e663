package mssql

import (
	"fmt"
	"strings"

	"github.com/0labdotnet/azureAI-sentinel-sub001/pkg/adapters/logstore"
	"github.com/0labdotnet/azureAI-sentinel-sub001/pkg/queries"
)

// latestIncidents deduplicates the append-only incident mirror, keeping
// the newest row per incident_number (ROW_NUMBER stands in for postgres'
// DISTINCT ON).
const latestIncidents = `
	SELECT * FROM (
		SELECT *, ROW_NUMBER() OVER (
			PARTITION BY incident_number ORDER BY last_modified_time DESC
		) AS rn
		FROM security_incidents
		%s
	) ranked WHERE rn = 1
`

const incidentAlertIDs = `
	SELECT j.value
	FROM (%s) latest
	CROSS APPLY OPENJSON(latest.alert_ids) j
`

const entityName = `
	CASE JSON_VALUE(j.value, '$.Type')
		WHEN 'account' THEN JSON_VALUE(j.value, '$.Name')
		WHEN 'ip' THEN JSON_VALUE(j.value, '$.Address')
		WHEN 'host' THEN JSON_VALUE(j.value, '$.HostName')
		WHEN 'url' THEN JSON_VALUE(j.value, '$.Url')
		ELSE JSON_VALUE(j.value, '$.Name')
	END
`

// severityIn expands the severity allow-list into one placeholder per
// value; sqlserver has no array binding.
func severityIn(severities []string, startIdx int) (string, []any) {
	placeholders := make([]string, len(severities))
	args := make([]any, len(severities))
	for i, s := range severities {
		placeholders[i] = fmt.Sprintf("@p%d", startIdx+i)
		args[i] = s
	}
	return strings.Join(placeholders, ", "), args
}

// binBucket buckets time_generated into fixed windows anchored at the
// Unix epoch, matching the postgres date_bin rendering.
func binBucket(binSecondsParam string) string {
	return fmt.Sprintf(
		"DATEADD(second, (DATEDIFF_BIG(second, '1970-01-01', time_generated) / %s) * %s, '1970-01-01')",
		binSecondsParam, binSecondsParam)
}

func render(templateID string, p logstore.Params) (string, []any, error) {
	switch templateID {
	case queries.TemplateListIncidents:
		in, sevArgs := severityIn(p.Severities, 2)
		stmt := fmt.Sprintf(`
			SELECT TOP (@p%d) incident_number, title, severity, status, created_time,
			       last_modified_time, owner, alert_ids, description,
			       first_activity_time, last_activity_time
			FROM (%s) latest
			WHERE severity IN (%s)
			ORDER BY created_time DESC`,
			2+len(sevArgs),
			fmt.Sprintf(latestIncidents, "WHERE time_generated > @p1"),
			in,
		)
		args := append([]any{p.Since}, sevArgs...)
		return stmt, append(args, p.Limit), nil

	case queries.TemplateGetIncidentByNumber:
		return fmt.Sprintf(`
			SELECT incident_number, title, severity, status, description,
			       created_time, last_modified_time, closed_time, owner,
			       alert_ids, labels, classification, classification_reason,
			       first_activity_time, last_activity_time, incident_url
			FROM (%s) latest`,
			fmt.Sprintf(latestIncidents, "WHERE incident_number = @p1"),
		), []any{p.IncidentNumber}, nil

	case queries.TemplateGetIncidentByName:
		if err := logstore.ScreenFreeText(p.IncidentName); err != nil {
			return "", nil, err
		}
		return fmt.Sprintf(`
			SELECT TOP (@p2) incident_number, title, severity, status, description,
			       created_time, last_modified_time, closed_time, owner,
			       alert_ids, labels, classification, classification_reason,
			       first_activity_time, last_activity_time, incident_url
			FROM (%s) latest
			WHERE title LIKE '%%' + @p1 + '%%'`,
			fmt.Sprintf(latestIncidents, ""),
		), []any{p.IncidentName, p.Limit}, nil

	case queries.TemplateGetIncidentAlerts:
		return fmt.Sprintf(`
			SELECT alert_name, display_name, alert_severity, status,
			       time_generated, description, tactics, techniques,
			       provider_name, compromised_entity, system_alert_id
			FROM security_alerts
			WHERE system_alert_id IN (%s)`,
			fmt.Sprintf(incidentAlertIDs,
				fmt.Sprintf(latestIncidents, "WHERE incident_number = @p1")),
		), []any{p.IncidentNumber}, nil

	case queries.TemplateGetIncidentEntities:
		return fmt.Sprintf(`
			SELECT DISTINCT JSON_VALUE(j.value, '$.Type') AS entity_type, %s AS entity_name
			FROM security_alerts a
			CROSS APPLY OPENJSON(a.entities) j
			WHERE a.system_alert_id IN (%s)
			  AND COALESCE(%s, '') <> ''`,
			entityName,
			fmt.Sprintf(incidentAlertIDs,
				fmt.Sprintf(latestIncidents, "WHERE incident_number = @p1")),
			entityName,
		), []any{p.IncidentNumber}, nil

	case queries.TemplateListAlerts:
		in, sevArgs := severityIn(p.Severities, 2)
		stmt := fmt.Sprintf(`
			SELECT TOP (@p%d) alert_name, display_name, alert_severity, status,
			       time_generated, description, tactics, techniques,
			       provider_name, compromised_entity, system_alert_id
			FROM security_alerts
			WHERE time_generated > @p1
			  AND alert_severity IN (%s)
			ORDER BY time_generated DESC`,
			2+len(sevArgs), in,
		)
		args := append([]any{p.Since}, sevArgs...)
		return stmt, append(args, p.Limit), nil

	case queries.TemplateAlertTrend:
		in, sevArgs := severityIn(p.Severities, 2)
		binParam := fmt.Sprintf("@p%d", 2+len(sevArgs))
		stmt := fmt.Sprintf(`
			SELECT %s AS bucket, alert_severity, COUNT(*) AS alert_count
			FROM security_alerts
			WHERE time_generated > @p1
			  AND alert_severity IN (%s)
			GROUP BY %s, alert_severity
			ORDER BY bucket ASC`,
			binBucket(binParam), in, binBucket(binParam),
		)
		args := append([]any{p.Since}, sevArgs...)
		return stmt, append(args, int64(p.BinSize.Seconds())), nil

	case queries.TemplateAlertTrendTotal:
		in, sevArgs := severityIn(p.Severities, 2)
		binParam := fmt.Sprintf("@p%d", 2+len(sevArgs))
		stmt := fmt.Sprintf(`
			SELECT %s AS bucket, COUNT(*) AS alert_count
			FROM security_alerts
			WHERE time_generated > @p1
			  AND alert_severity IN (%s)
			GROUP BY %s
			ORDER BY bucket ASC`,
			binBucket(binParam), in, binBucket(binParam),
		)
		args := append([]any{p.Since}, sevArgs...)
		return stmt, append(args, int64(p.BinSize.Seconds())), nil

	case queries.TemplateTopEntities:
		in, sevArgs := severityIn(p.Severities, 2)
		stmt := fmt.Sprintf(`
			SELECT TOP (@p%d) JSON_VALUE(j.value, '$.Type') AS entity_type,
			       %s AS entity_name, COUNT(*) AS alert_count
			FROM security_alerts a
			CROSS APPLY OPENJSON(a.entities) j
			WHERE a.time_generated > @p1
			  AND a.alert_severity IN (%s)
			  AND JSON_VALUE(j.value, '$.Type') IN ('account', 'ip', 'host')
			  AND COALESCE(%s, '') <> ''
			GROUP BY JSON_VALUE(j.value, '$.Type'), %s
			ORDER BY alert_count DESC`,
			2+len(sevArgs), entityName, in, entityName, entityName,
		)
		args := append([]any{p.Since}, sevArgs...)
		return stmt, append(args, p.Limit), nil

	default:
		return "", nil, logstore.NewError(logstore.KindInvalidQuery,
			fmt.Sprintf("no sqlserver statement for template %q", templateID), nil)
	}
}
