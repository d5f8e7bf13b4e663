package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/0labdotnet/azureAI-sentinel-sub001/pkg/jsonutil"
	"github.com/0labdotnet/azureAI-sentinel-sub001/pkg/mitre"
	"github.com/0labdotnet/azureAI-sentinel-sub001/pkg/models"
	"github.com/0labdotnet/azureAI-sentinel-sub001/pkg/sentinel"
)

// Status messages surfaced to the user while a tool executes.
var statusMessages = map[string]string{
	ToolQueryIncidents:           "Querying incidents...",
	ToolGetIncidentDetail:        "Looking up incident details...",
	ToolQueryAlerts:              "Querying alerts...",
	ToolGetAlertTrend:            "Analyzing alert trends...",
	ToolGetTopEntities:           "Finding top targeted entities...",
	ToolSearchSimilarIncidents:   "Searching historical incidents...",
	ToolSearchPlaybooks:          "Searching playbooks...",
	ToolGetInvestigationGuidance: "Looking up investigation guidance...",
}

const defaultStatus = "Processing query..."

const kbDefaultResults = 3

// KnowledgeBase is the subset of the knowledge base the dispatcher needs.
type KnowledgeBase interface {
	SearchSimilarIncidents(ctx context.Context, query string, limit int) (*models.SearchResult, error)
	SearchPlaybooks(ctx context.Context, query string, limit int) (*models.SearchResult, error)
}

// TechniqueLookup resolves ATT&CK technique IDs to technique details.
type TechniqueLookup interface {
	Lookup(ctx context.Context, ids []string) []mitre.Technique
}

// Dispatcher routes tool calls to the Sentinel client and the knowledge
// base. Every call returns a JSON payload for the tool-result channel;
// failures become structured error payloads the model can act on, never
// a Go error that would abort the conversation.
type Dispatcher struct {
	client     *sentinel.Client
	kb         KnowledgeBase
	techniques TechniqueLookup
	logger     *zap.Logger
}

// DispatcherConfig holds dependencies for creating a Dispatcher. KB and
// Techniques are optional; without a KB the knowledge tools report
// unavailability.
type DispatcherConfig struct {
	Client     *sentinel.Client
	KB         KnowledgeBase
	Techniques TechniqueLookup
	Logger     *zap.Logger
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(cfg *DispatcherConfig) *Dispatcher {
	return &Dispatcher{
		client:     cfg.Client,
		kb:         cfg.KB,
		techniques: cfg.Techniques,
		logger:     cfg.Logger.Named("dispatcher"),
	}
}

// HasKnowledgeBase reports whether the knowledge tools are available.
func (d *Dispatcher) HasKnowledgeBase() bool {
	return d.kb != nil
}

// StatusMessage returns a user-facing status line for tool execution.
func (d *Dispatcher) StatusMessage(toolName string) string {
	if msg, ok := statusMessages[toolName]; ok {
		return msg
	}
	return defaultStatus
}

// Dispatch routes one tool call by name. The arguments string is the raw
// JSON produced by the model.
func (d *Dispatcher) Dispatch(ctx context.Context, name, arguments string) string {
	d.logger.Debug("Dispatching tool call",
		zap.String("tool", name),
		zap.String("arguments", arguments))

	switch name {
	case ToolQueryIncidents:
		return d.queryIncidents(ctx, arguments)
	case ToolGetIncidentDetail:
		return d.getIncidentDetail(ctx, arguments)
	case ToolQueryAlerts:
		return d.queryAlerts(ctx, arguments)
	case ToolGetAlertTrend:
		return d.getAlertTrend(ctx, arguments)
	case ToolGetTopEntities:
		return d.getTopEntities(ctx, arguments)
	case ToolSearchSimilarIncidents:
		return d.searchSimilarIncidents(ctx, arguments)
	case ToolSearchPlaybooks:
		return d.searchPlaybooks(ctx, arguments)
	case ToolGetInvestigationGuidance:
		return d.getInvestigationGuidance(ctx, arguments)
	default:
		return errorPayload(fmt.Sprintf("Unknown tool: %s", name))
	}
}

func errorPayload(message string) string {
	data, err := json.Marshal(map[string]string{"error": message})
	if err != nil {
		return `{"error":"internal serialization failure"}`
	}
	return string(data)
}

func invalidArguments(toolName string, err error) string {
	return errorPayload(fmt.Sprintf("Invalid arguments for %s: %v", toolName, err))
}

// decodeArgs parses the raw argument JSON into a field map. Models
// occasionally emit numbers as strings and vice versa, so individual
// fields go through the flexible jsonutil coercions.
func decodeArgs(arguments string) (map[string]json.RawMessage, error) {
	if strings.TrimSpace(arguments) == "" {
		return map[string]json.RawMessage{}, nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(arguments), &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

func stringArg(fields map[string]json.RawMessage, key, fallback string) string {
	raw, ok := fields[key]
	if !ok {
		return fallback
	}
	if s := jsonutil.FlexibleString(raw); s != "" {
		return s
	}
	return fallback
}

func intArg(fields map[string]json.RawMessage, key string, fallback int) int {
	raw, ok := fields[key]
	if !ok {
		return fallback
	}
	if n, ok := jsonutil.FlexibleInt(raw); ok {
		return n
	}
	return fallback
}

func boolArg(fields map[string]json.RawMessage, key string, fallback bool) bool {
	raw, ok := fields[key]
	if !ok {
		return fallback
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b
	}
	switch strings.ToLower(jsonutil.FlexibleString(raw)) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	}
	return fallback
}

// serialize renders the client's result-or-error pair as one payload.
func serialize(result *models.QueryResult, qerr *models.QueryError) string {
	if qerr != nil {
		return qerr.ToJSON()
	}
	payload, err := result.ToJSON()
	if err != nil {
		return errorPayload(fmt.Sprintf("Failed to serialize result: %v", err))
	}
	return payload
}

// ============================================================================
// Sentinel query tools
// ============================================================================

func (d *Dispatcher) queryIncidents(ctx context.Context, arguments string) string {
	fields, err := decodeArgs(arguments)
	if err != nil {
		return invalidArguments(ToolQueryIncidents, err)
	}

	timeWindow := stringArg(fields, "time_window", "last_24h")
	minSeverity := stringArg(fields, "min_severity", "Informational")
	limit := intArg(fields, "limit", 20)

	return serialize(d.client.QueryIncidents(ctx, timeWindow, minSeverity, limit))
}

func (d *Dispatcher) getIncidentDetail(ctx context.Context, arguments string) string {
	fields, err := decodeArgs(arguments)
	if err != nil {
		return invalidArguments(ToolGetIncidentDetail, err)
	}

	refText := stringArg(fields, "incident_ref", "")
	if refText == "" {
		return errorPayload("Missing required parameter: incident_ref")
	}

	// Numeric strings mean exact incident number lookup; anything else
	// is a case-insensitive title search.
	ref := sentinel.IncidentRef{Name: refText}
	if number, convErr := strconv.Atoi(strings.TrimSpace(refText)); convErr == nil {
		ref = sentinel.IncidentRef{Number: number}
	}

	return serialize(d.client.GetIncidentDetail(ctx, ref))
}

func (d *Dispatcher) queryAlerts(ctx context.Context, arguments string) string {
	fields, err := decodeArgs(arguments)
	if err != nil {
		return invalidArguments(ToolQueryAlerts, err)
	}

	timeWindow := stringArg(fields, "time_window", "last_24h")
	minSeverity := stringArg(fields, "min_severity", "Informational")
	limit := intArg(fields, "limit", 20)

	return serialize(d.client.QueryAlerts(ctx, timeWindow, minSeverity, limit))
}

func (d *Dispatcher) getAlertTrend(ctx context.Context, arguments string) string {
	fields, err := decodeArgs(arguments)
	if err != nil {
		return invalidArguments(ToolGetAlertTrend, err)
	}

	timeWindow := stringArg(fields, "time_window", "last_7d")
	minSeverity := stringArg(fields, "min_severity", "Informational")
	perSeverity := boolArg(fields, "per_severity", false)

	return serialize(d.client.GetAlertTrend(ctx, timeWindow, minSeverity, perSeverity))
}

func (d *Dispatcher) getTopEntities(ctx context.Context, arguments string) string {
	fields, err := decodeArgs(arguments)
	if err != nil {
		return invalidArguments(ToolGetTopEntities, err)
	}

	timeWindow := stringArg(fields, "time_window", "last_7d")
	minSeverity := stringArg(fields, "min_severity", "Informational")
	limit := intArg(fields, "limit", 10)

	return serialize(d.client.GetTopEntities(ctx, timeWindow, minSeverity, limit))
}

// ============================================================================
// Knowledge base tools
// ============================================================================

const kbUnavailable = "Knowledge base is not available. Try restarting the chatbot."

func (d *Dispatcher) searchSimilarIncidents(ctx context.Context, arguments string) string {
	if d.kb == nil {
		return errorPayload(kbUnavailable)
	}
	fields, err := decodeArgs(arguments)
	if err != nil {
		return invalidArguments(ToolSearchSimilarIncidents, err)
	}

	query := stringArg(fields, "query", "")
	result, err := d.kb.SearchSimilarIncidents(ctx, query, kbDefaultResults)
	if err != nil {
		d.logger.Warn("Similar incident search failed", zap.Error(err))
		return errorPayload(fmt.Sprintf("Knowledge base search failed: %v", err))
	}
	return serializeSearch(result)
}

func (d *Dispatcher) searchPlaybooks(ctx context.Context, arguments string) string {
	if d.kb == nil {
		return errorPayload(kbUnavailable)
	}
	fields, err := decodeArgs(arguments)
	if err != nil {
		return invalidArguments(ToolSearchPlaybooks, err)
	}

	query := stringArg(fields, "query", "")
	result, err := d.kb.SearchPlaybooks(ctx, query, kbDefaultResults)
	if err != nil {
		d.logger.Warn("Playbook search failed", zap.Error(err))
		return errorPayload(fmt.Sprintf("Knowledge base search failed: %v", err))
	}
	return serializeSearch(result)
}

type guidancePayload struct {
	Type                 string              `json:"type"`
	PlaybookResults      []models.SearchItem `json:"playbook_results"`
	IncidentResults      []models.SearchItem `json:"incident_results"`
	Techniques           []mitre.Technique   `json:"techniques"`
	LowConfidenceWarning bool                `json:"low_confidence_warning"`
}

// getInvestigationGuidance combines playbook and historical incident
// search, then resolves the ATT&CK technique IDs attached to the hits.
// The warning fires only when both searches came back low confidence.
func (d *Dispatcher) getInvestigationGuidance(ctx context.Context, arguments string) string {
	if d.kb == nil {
		return errorPayload(kbUnavailable)
	}
	fields, err := decodeArgs(arguments)
	if err != nil {
		return invalidArguments(ToolGetInvestigationGuidance, err)
	}

	query := stringArg(fields, "query", "")

	playbooks, err := d.kb.SearchPlaybooks(ctx, query, kbDefaultResults)
	if err != nil {
		d.logger.Warn("Playbook search failed", zap.Error(err))
		return errorPayload(fmt.Sprintf("Knowledge base search failed: %v", err))
	}
	incidents, err := d.kb.SearchSimilarIncidents(ctx, query, kbDefaultResults)
	if err != nil {
		d.logger.Warn("Similar incident search failed", zap.Error(err))
		return errorPayload(fmt.Sprintf("Knowledge base search failed: %v", err))
	}

	payload := guidancePayload{
		Type:                 "investigation_guidance",
		PlaybookResults:      itemsOrEmpty(playbooks),
		IncidentResults:      itemsOrEmpty(incidents),
		Techniques:           d.resolveTechniques(ctx, playbooks, incidents),
		LowConfidenceWarning: playbooks.LowConfidenceWarning && incidents.LowConfidenceWarning,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return errorPayload(fmt.Sprintf("Failed to serialize result: %v", err))
	}
	return string(data)
}

func (d *Dispatcher) resolveTechniques(ctx context.Context, results ...*models.SearchResult) []mitre.Technique {
	if d.techniques == nil {
		return []mitre.Technique{}
	}

	var ids []string
	for _, result := range results {
		for _, item := range result.Results {
			for _, id := range strings.Split(item.Metadata["mitre_techniques"], ",") {
				id = strings.TrimSpace(id)
				if id != "" {
					ids = append(ids, id)
				}
			}
		}
	}
	if len(ids) == 0 {
		return []mitre.Technique{}
	}
	return d.techniques.Lookup(ctx, ids)
}

func itemsOrEmpty(result *models.SearchResult) []models.SearchItem {
	if result.Results == nil {
		return []models.SearchItem{}
	}
	return result.Results
}

func serializeSearch(result *models.SearchResult) string {
	payload, err := result.ToJSON()
	if err != nil {
		return errorPayload(fmt.Sprintf("Failed to serialize result: %v", err))
	}
	return payload
}
