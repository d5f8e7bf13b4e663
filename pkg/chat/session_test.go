package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/0labdotnet/azureAI-sentinel-sub001/pkg/adapters/logstore"
	"github.com/0labdotnet/azureAI-sentinel-sub001/pkg/llm"
	"github.com/0labdotnet/azureAI-sentinel-sub001/pkg/prompts"
	"github.com/0labdotnet/azureAI-sentinel-sub001/pkg/sentinel"
	"github.com/0labdotnet/azureAI-sentinel-sub001/pkg/tools"
)

func newTestSession(t *testing.T, client *llm.MockClient, opts ...func(*SessionConfig)) (*Session, *logstore.MockExecutor, *[]string) {
	t.Helper()

	exec := &logstore.MockExecutor{}
	dispatcher := tools.NewDispatcher(&tools.DispatcherConfig{
		Client: sentinel.NewClient(exec, zap.NewNop()),
		Logger: zap.NewNop(),
	})

	var statuses []string
	cfg := &SessionConfig{
		Client:     client,
		Dispatcher: dispatcher,
		Logger:     zap.NewNop(),
		Progress:   func(status string) { statuses = append(statuses, status) },
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return NewSession(cfg), exec, &statuses
}

func TestSend_PlainTextAnswer(t *testing.T) {
	client := &llm.MockClient{}
	client.QueueResponse(&llm.Response{Content: "All quiet in the last 24 hours."})

	session, _, _ := newTestSession(t, client)

	answer, err := session.Send(context.Background(), "what's happening?")
	require.NoError(t, err)
	assert.Equal(t, "All quiet in the last 24 hours.", answer)

	require.Len(t, client.Calls, 1)
	call := client.Calls[0]
	assert.Contains(t, call.System, "Grounding Rules")
	assert.Len(t, call.Tools, 5)
	require.Len(t, call.Messages, 1)
	assert.Equal(t, llm.RoleUser, call.Messages[0].Role)
	assert.Equal(t, 1, session.TurnCount())
}

func TestSend_ToolRoundThenAnswer(t *testing.T) {
	client := &llm.MockClient{}
	client.QueueResponse(&llm.Response{
		ToolCalls: []llm.ToolCall{
			{ID: "call_1", Name: tools.ToolQueryIncidents, Arguments: `{"time_window":"last_24h"}`},
		},
	})
	client.QueueResponse(&llm.Response{Content: "No incidents found."})

	session, exec, statuses := newTestSession(t, client)

	answer, err := session.Send(context.Background(), "any incidents?")
	require.NoError(t, err)
	assert.Equal(t, "No incidents found.", answer)

	require.Len(t, exec.Calls, 1)
	assert.Equal(t, []string{"Querying incidents..."}, *statuses)

	// Second model call sees user, assistant tool request, tool result.
	require.Len(t, client.Calls, 2)
	history := client.Calls[1].Messages
	require.Len(t, history, 3)
	assert.Equal(t, llm.RoleUser, history[0].Role)
	assert.Equal(t, llm.RoleAssistant, history[1].Role)
	require.Len(t, history[1].ToolCalls, 1)
	assert.Equal(t, llm.RoleTool, history[2].Role)
	assert.Equal(t, "call_1", history[2].ToolCallID)
	assert.Contains(t, history[2].Content, "metadata")
}

func TestSend_AnswerCarriesEveryIncidentNumber(t *testing.T) {
	client := &llm.MockClient{}
	client.GenerateWithToolsFunc = func(_ context.Context, _ string, messages []llm.Message, _ []llm.ToolDefinition) (*llm.Response, error) {
		last := messages[len(messages)-1]
		if last.Role != llm.RoleTool {
			return &llm.Response{
				ToolCalls: []llm.ToolCall{
					{ID: "call_1", Name: tools.ToolQueryIncidents, Arguments: `{"time_window":"last_24h"}`},
				},
			}, nil
		}

		// Compose the reply from the numbers in the tool payload, the way
		// a grounded model would.
		var payload struct {
			Results []struct {
				Number   int    `json:"number"`
				Title    string `json:"title"`
				Severity string `json:"severity"`
			} `json:"results"`
		}
		require.NoError(t, json.Unmarshal([]byte(last.Content), &payload))

		var b strings.Builder
		fmt.Fprintf(&b, "You have %d open incidents:\n", len(payload.Results))
		for i, inc := range payload.Results {
			fmt.Fprintf(&b, "%d. Incident #%d: %s (%s)\n", i+1, inc.Number, inc.Title, inc.Severity)
		}
		return &llm.Response{Content: b.String()}, nil
	}

	session, exec, _ := newTestSession(t, client)
	exec.ExecuteFunc = func(context.Context, string, logstore.Params) (*logstore.ResultSet, error) {
		rows := []map[string]any{
			{"incident_number": 4101, "title": "Impossible travel", "severity": "High", "status": "New", "created_time": "2026-08-28T09:15:00Z"},
			{"incident_number": 4102, "title": "Malware detected", "severity": "Medium", "status": "Active", "created_time": "2026-08-28T11:40:00Z"},
			{"incident_number": 4103, "title": "Anomalous sign-in", "severity": "Low", "status": "New", "created_time": "2026-08-28T14:02:00Z"},
		}
		return &logstore.ResultSet{Rows: rows, RowCount: len(rows)}, nil
	}

	answer, err := session.Send(context.Background(), "show me today's incidents")
	require.NoError(t, err)

	// Every incident number surfaces verbatim in the assistant text, not
	// just list positions.
	for _, number := range []string{"4101", "4102", "4103"} {
		assert.Contains(t, answer, number)
	}

	// The payload fed back to the model carried all three numbers.
	toolMsg := client.Calls[1].Messages[len(client.Calls[1].Messages)-1]
	require.Equal(t, llm.RoleTool, toolMsg.Role)
	for _, number := range []string{"4101", "4102", "4103"} {
		assert.Contains(t, toolMsg.Content, number)
	}
}

func TestSend_ParallelCallsKeepRequestOrder(t *testing.T) {
	client := &llm.MockClient{}
	client.QueueResponse(&llm.Response{
		ToolCalls: []llm.ToolCall{
			{ID: "call_a", Name: tools.ToolQueryIncidents, Arguments: `{"time_window":"last_24h"}`},
			{ID: "call_b", Name: tools.ToolQueryAlerts, Arguments: `{"time_window":"last_24h"}`},
			{ID: "call_c", Name: tools.ToolGetTopEntities, Arguments: `{"time_window":"last_7d"}`},
		},
	})
	client.QueueResponse(&llm.Response{Content: "done"})

	session, _, statuses := newTestSession(t, client)

	_, err := session.Send(context.Background(), "full picture please")
	require.NoError(t, err)

	history := client.Calls[1].Messages
	require.Len(t, history, 5)
	assert.Equal(t, "call_a", history[2].ToolCallID)
	assert.Equal(t, "call_b", history[3].ToolCallID)
	assert.Equal(t, "call_c", history[4].ToolCallID)

	assert.Equal(t, []string{
		"Querying incidents...",
		"Querying alerts...",
		"Finding top targeted entities...",
	}, *statuses)
}

func TestSend_ToolFailureFedBackToModel(t *testing.T) {
	client := &llm.MockClient{}
	client.QueueResponse(&llm.Response{
		ToolCalls: []llm.ToolCall{
			{ID: "call_1", Name: tools.ToolQueryAlerts, Arguments: `{"time_window":"last_24h"}`},
		},
	})
	client.QueueResponse(&llm.Response{Content: "The query timed out, try a narrower window."})

	session, exec, _ := newTestSession(t, client)
	exec.ExecuteFunc = func(context.Context, string, logstore.Params) (*logstore.ResultSet, error) {
		return nil, logstore.NewError(logstore.KindTimeout, "query timed out", nil)
	}

	answer, err := session.Send(context.Background(), "show alerts")
	require.NoError(t, err)
	assert.Equal(t, "The query timed out, try a narrower window.", answer)

	history := client.Calls[1].Messages
	require.Len(t, history, 3)
	assert.Contains(t, history[2].Content, "timeout")
}

func TestSend_ContentFilterGetsDedicatedMessage(t *testing.T) {
	client := &llm.MockClient{}
	client.QueueError(llm.NewError(llm.ErrorTypeContentFilter,
		"request rejected by provider content filter", false, nil))

	session, _, _ := newTestSession(t, client)

	answer, err := session.Send(context.Background(), "something that trips the filter")
	require.NoError(t, err)
	assert.Equal(t, prompts.ContentFilterMessage, answer)
	assert.NotContains(t, answer, "model call failed")
}

func TestSend_TransportErrorPropagates(t *testing.T) {
	client := &llm.MockClient{}
	client.QueueError(llm.NewError(llm.ErrorTypeTransport, "provider unreachable", true,
		errors.New("dial tcp: connection refused")))

	session, _, _ := newTestSession(t, client)

	answer, err := session.Send(context.Background(), "hello")
	require.Error(t, err)
	assert.Empty(t, answer)

	var provErr *llm.Error
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, llm.ErrorTypeTransport, provErr.Type)
}

func TestSend_RoundBudgetExhaustion(t *testing.T) {
	client := &llm.MockClient{}
	client.GenerateWithToolsFunc = func(_ context.Context, _ string, messages []llm.Message, toolDefs []llm.ToolDefinition) (*llm.Response, error) {
		if toolDefs == nil {
			// Final summarization pass runs without tools.
			assert.Equal(t, prompts.MaxRoundsMessage, messages[len(messages)-1].Content)
			return &llm.Response{Content: "Here is what I gathered so far."}, nil
		}
		return &llm.Response{
			ToolCalls: []llm.ToolCall{
				{ID: "x", Name: tools.ToolQueryIncidents, Arguments: `{"time_window":"last_24h"}`},
			},
		}, nil
	}

	session, exec, _ := newTestSession(t, client, func(cfg *SessionConfig) {
		cfg.MaxToolRounds = 3
	})

	answer, err := session.Send(context.Background(), "keep digging")
	require.NoError(t, err)
	assert.Equal(t, "Here is what I gathered so far.", answer)

	// Three tool rounds plus the final no-tools completion.
	assert.Len(t, client.Calls, 4)
	assert.Len(t, exec.Calls, 3)
}

func TestSend_TrimsAtUserBoundaries(t *testing.T) {
	client := &llm.MockClient{}
	session, _, statuses := newTestSession(t, client, func(cfg *SessionConfig) {
		cfg.MaxTurns = 2
	})

	for _, text := range []string{"first", "second", "third"} {
		client.QueueResponse(&llm.Response{Content: "reply to " + text})
		_, err := session.Send(context.Background(), text)
		require.NoError(t, err)
	}

	warned := false
	for _, status := range *statuses {
		if strings.Contains(status, "trimmed") {
			warned = true
		}
	}
	assert.True(t, warned)

	// The oldest user turn was dropped: the third call's history starts
	// at the second user message.
	history := client.Calls[2].Messages
	assert.Equal(t, llm.RoleUser, history[0].Role)
	assert.Equal(t, "second", history[0].Content)
}

func TestClear(t *testing.T) {
	client := &llm.MockClient{}
	session, _, _ := newTestSession(t, client)

	assert.Equal(t, "Nothing to clear.", session.Clear())

	client.QueueResponse(&llm.Response{Content: "a"})
	_, err := session.Send(context.Background(), "one")
	require.NoError(t, err)

	assert.Equal(t, "Cleared 1 turn of conversation history.", session.Clear())
	assert.Equal(t, 0, session.TurnCount())

	client.QueueResponse(&llm.Response{Content: "a"})
	client.QueueResponse(&llm.Response{Content: "b"})
	for _, text := range []string{"one", "two"} {
		_, err := session.Send(context.Background(), text)
		require.NoError(t, err)
	}
	assert.Equal(t, "Cleared 2 turns of conversation history.", session.Clear())
}

func TestSummarizeResult(t *testing.T) {
	assert.Equal(t, "3 results, 42ms",
		summarizeResult(`{"metadata":{"total":3,"query_ms":42},"results":[]}`))
	assert.Equal(t, "Error: query timed out",
		summarizeResult(`{"code":"timeout","message":"query timed out","retry_possible":true}`))
	assert.Equal(t, "Error: Unknown tool: nope",
		summarizeResult(`{"error":"Unknown tool: nope"}`))
	assert.Equal(t, "OK", summarizeResult(`{"anything":1}`))
	assert.Equal(t, "unparseable result", summarizeResult("not json"))
}
