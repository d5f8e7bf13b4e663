// Package tools defines the tool schemas advertised to the model and the
// dispatcher that routes tool calls to the Sentinel client and the
// knowledge base.
package tools

import (
	"github.com/0labdotnet/azureAI-sentinel-sub001/pkg/llm"
	"github.com/0labdotnet/azureAI-sentinel-sub001/pkg/projections"
	"github.com/0labdotnet/azureAI-sentinel-sub001/pkg/queries"
)

// Tool names. Each maps 1:1 to a dispatcher handler.
const (
	ToolQueryIncidents           = "query_incidents"
	ToolGetIncidentDetail        = "get_incident_detail"
	ToolQueryAlerts              = "query_alerts"
	ToolGetAlertTrend            = "get_alert_trend"
	ToolGetTopEntities           = "get_top_entities"
	ToolSearchSimilarIncidents   = "search_similar_incidents"
	ToolSearchPlaybooks          = "search_playbooks"
	ToolGetInvestigationGuidance = "get_investigation_guidance"
)

func timeWindowProp(description string) llm.ParameterProperty {
	return llm.ParameterProperty{
		Type:        "string",
		Description: description,
		Enum: []string{
			"last_1h",
			"last_24h",
			"last_3d",
			"last_7d",
			"last_14d",
			"last_30d",
		},
	}
}

func minSeverityProp(description string) llm.ParameterProperty {
	return llm.ParameterProperty{
		Type:        "string",
		Description: description,
		Enum: []string{
			"High",
			"Medium",
			"Low",
			"Informational",
		},
	}
}

// SentinelDefinitions returns the schemas for the five log store query
// tools. No strict mode is used; it is incompatible with parallel tool
// calls.
func SentinelDefinitions() []llm.ToolDefinition {
	return []llm.ToolDefinition{
		llm.NewToolDefinition(
			ToolQueryIncidents,
			"Query Microsoft Sentinel security incidents filtered by time range "+
				"and severity. Use this for questions about recent incidents, "+
				"incident lists, 'what's happening', 'show me incidents', or "+
				"general security status overviews. Returns incident number, "+
				"title, severity, status, and timestamps.",
			map[string]llm.ParameterProperty{
				"time_window": timeWindowProp(
					"Time range to query. Use 'last_24h' for recent activity, " +
						"wider ranges for historical views."),
				"min_severity": minSeverityProp(
					"Minimum severity threshold. 'High' returns only " +
						"high-severity incidents, 'Informational' returns all."),
				"limit": {
					Type:        "integer",
					Description: "Maximum number of incidents to return. Default 20, max 100.",
				},
			},
			[]string{"time_window"},
		),
		llm.NewToolDefinition(
			ToolGetIncidentDetail,
			"Get detailed information about a specific incident including "+
				"description, alerts, entities, timeline, and classification. "+
				"Use this for 'tell me about incident X', 'details on incident 42', "+
				"drill-downs on specific incidents, or when the user references a "+
				"previous result by number. Pass an integer for exact incident "+
				"number lookup, or a string for case-insensitive title search.",
			map[string]llm.ParameterProperty{
				"incident_ref": {
					Type: "string",
					Description: "Incident reference: an incident number (e.g. '42') " +
						"for exact lookup, or a text string (e.g. 'phishing') for " +
						"case-insensitive title search.",
				},
			},
			[]string{"incident_ref"},
		),
		llm.NewToolDefinition(
			ToolQueryAlerts,
			"Query Microsoft Sentinel security alerts filtered by time range "+
				"and severity. Alerts are individual detection signals, distinct "+
				"from incidents which group related alerts. Use this for questions "+
				"specifically about alerts, detection signals, or 'show me alerts'. "+
				"For grouped security events, use query_incidents instead.",
			map[string]llm.ParameterProperty{
				"time_window":  timeWindowProp("Time range to query."),
				"min_severity": minSeverityProp("Minimum severity threshold."),
				"limit": {
					Type:        "integer",
					Description: "Maximum number of alerts to return. Default 20, max 100.",
				},
			},
			[]string{"time_window"},
		),
		llm.NewToolDefinition(
			ToolGetAlertTrend,
			"Get alert volume trends bucketed by time intervals over a "+
				"configurable period. Use this for trend analysis, pattern "+
				"detection, 'how have alerts changed', 'is there an increase in "+
				"alerts', or temporal pattern questions. Returns time-series data "+
				"with alert counts per time bucket. Bucket width is selected "+
				"automatically: hourly for windows up to a day, daily beyond.",
			map[string]llm.ParameterProperty{
				"time_window":  timeWindowProp("Time range to analyze trends over."),
				"min_severity": minSeverityProp("Minimum severity threshold."),
				"per_severity": {
					Type: "boolean",
					Description: "Break counts down by severity within each time " +
						"bucket instead of reporting total volume. Default false.",
				},
			},
			[]string{"time_window"},
		),
		llm.NewToolDefinition(
			ToolGetTopEntities,
			"Get the most frequently targeted entities (users, IP addresses, "+
				"hosts) ranked by alert count. Use this for 'who is being "+
				"targeted', 'most attacked', 'top entities', 'most common "+
				"attackers', or entity-focused security questions.",
			map[string]llm.ParameterProperty{
				"time_window":  timeWindowProp("Time range to query."),
				"min_severity": minSeverityProp("Minimum severity threshold."),
				"limit": {
					Type:        "integer",
					Description: "Maximum number of entities to return. Default 10, max 50.",
				},
			},
			[]string{"time_window"},
		),
	}
}

// KnowledgeDefinitions returns the schemas for the knowledge base tools.
// Only advertised when a knowledge base is wired into the dispatcher.
func KnowledgeDefinitions() []llm.ToolDefinition {
	return []llm.ToolDefinition{
		llm.NewToolDefinition(
			ToolSearchSimilarIncidents,
			"Search for similar historical incidents in the knowledge base. "+
				"Use this when the user asks 'have we seen this before?', "+
				"'similar attacks', 'historical incidents like X', or wants to "+
				"know if a pattern has occurred previously.",
			map[string]llm.ParameterProperty{
				"query": {
					Type: "string",
					Description: "Natural language description of the incident or " +
						"attack pattern to search for.",
				},
			},
			[]string{"query"},
		),
		llm.NewToolDefinition(
			ToolSearchPlaybooks,
			"Search for investigation and response playbooks in the knowledge "+
				"base. Use this when the user asks 'how to investigate X', "+
				"'response procedure for Y', 'investigation guidance', or wants "+
				"step-by-step instructions for handling an incident type.",
			map[string]llm.ParameterProperty{
				"query": {
					Type: "string",
					Description: "Natural language description of the investigation " +
						"topic or incident type to find playbooks for.",
				},
			},
			[]string{"query"},
		),
		llm.NewToolDefinition(
			ToolGetInvestigationGuidance,
			"Get MITRE ATT&CK-mapped investigation guidance combining playbooks "+
				"and historical context. Use this when the user asks about 'MITRE "+
				"techniques', 'ATT&CK mappings', 'what techniques are involved in "+
				"X', or wants technique-based recommendations for investigating "+
				"an attack.",
			map[string]llm.ParameterProperty{
				"query": {
					Type: "string",
					Description: "Natural language description of the attack or " +
						"technique to get guidance for.",
				},
			},
			[]string{"query"},
		),
	}
}

// Definitions returns every tool schema the session should advertise.
func Definitions(withKnowledge bool) []llm.ToolDefinition {
	defs := SentinelDefinitions()
	if withKnowledge {
		defs = append(defs, KnowledgeDefinitions()...)
	}
	return defs
}

// Names returns the names of all registered tools.
func Names() []string {
	defs := Definitions(true)
	names := make([]string, 0, len(defs))
	for _, d := range defs {
		names = append(names, d.Name)
	}
	return names
}

// Validate checks at startup that every projection and query template a
// tool handler depends on is registered. A failure here is a programming
// error and should abort the process before any conversation starts.
func Validate() error {
	if err := projections.Validate(
		projections.IncidentList,
		projections.IncidentDetail,
		projections.AlertList,
	); err != nil {
		return err
	}
	return queries.Validate(queries.All()...)
}
