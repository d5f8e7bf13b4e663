package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/0labdotnet/azureAI-sentinel-sub001/pkg/adapters/logstore"
	"github.com/0labdotnet/azureAI-sentinel-sub001/pkg/chat"
	"github.com/0labdotnet/azureAI-sentinel-sub001/pkg/llm"
	"github.com/0labdotnet/azureAI-sentinel-sub001/pkg/sentinel"
	"github.com/0labdotnet/azureAI-sentinel-sub001/pkg/tools"
)

func newLoopSession(t *testing.T, client *llm.MockClient) *chat.Session {
	t.Helper()
	dispatcher := tools.NewDispatcher(&tools.DispatcherConfig{
		Client: sentinel.NewClient(&logstore.MockExecutor{}, zap.NewNop()),
		Logger: zap.NewNop(),
	})
	return chat.NewSession(&chat.SessionConfig{
		Client:     client,
		Dispatcher: dispatcher,
		Logger:     zap.NewNop(),
	})
}

func TestChatLoop_QuitCommand(t *testing.T) {
	client := &llm.MockClient{}
	session := newLoopSession(t, client)

	var stdout, stderr bytes.Buffer
	err := chatLoop(context.Background(), session, strings.NewReader("/quit\n"), &stdout, &stderr)
	require.NoError(t, err)

	assert.Contains(t, stderr.String(), "Sentinel AI Assistant")
	assert.Contains(t, stderr.String(), "verified by a human analyst")
	assert.Contains(t, stdout.String(), goodbye)
	assert.Empty(t, client.Calls, "quit must not reach the model")
}

func TestChatLoop_SendAndExit(t *testing.T) {
	client := &llm.MockClient{}
	client.QueueResponse(&llm.Response{Content: "3 high severity incidents."})
	session := newLoopSession(t, client)

	var stdout, stderr bytes.Buffer
	input := "show me incidents\n/exit\n"
	err := chatLoop(context.Background(), session, strings.NewReader(input), &stdout, &stderr)
	require.NoError(t, err)

	assert.Contains(t, stdout.String(), "Assistant: 3 high severity incidents.")
	assert.Contains(t, stdout.String(), goodbye)
	require.Len(t, client.Calls, 1)
}

func TestChatLoop_BlankLinesSkipped(t *testing.T) {
	client := &llm.MockClient{}
	session := newLoopSession(t, client)

	var stdout, stderr bytes.Buffer
	err := chatLoop(context.Background(), session, strings.NewReader("\n   \n/quit\n"), &stdout, &stderr)
	require.NoError(t, err)
	assert.Empty(t, client.Calls)
}

func TestChatLoop_ClearPrintsSummary(t *testing.T) {
	client := &llm.MockClient{}
	client.QueueResponse(&llm.Response{Content: "done"})
	session := newLoopSession(t, client)

	var stdout, stderr bytes.Buffer
	input := "first question\n/clear\n/quit\n"
	err := chatLoop(context.Background(), session, strings.NewReader(input), &stdout, &stderr)
	require.NoError(t, err)

	assert.Contains(t, stdout.String(), "Cleared 1 turn of conversation history.")
	assert.Equal(t, 0, session.TurnCount())
}

func TestChatLoop_EOFExitsCleanly(t *testing.T) {
	client := &llm.MockClient{}
	session := newLoopSession(t, client)

	var stdout, stderr bytes.Buffer
	err := chatLoop(context.Background(), session, strings.NewReader(""), &stdout, &stderr)
	require.NoError(t, err)
	assert.Contains(t, stdout.String(), goodbye)
}

func TestPrintSendError_ProviderMessages(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"auth", llm.NewError(llm.ErrorTypeAuth, "authentication failed", false, nil), "Check your API key"},
		{"transport", llm.NewError(llm.ErrorTypeTransport, "connection refused", true, nil), "Check your endpoint"},
		{"model", llm.NewError(llm.ErrorTypeModel, "deployment not found", false, nil), "was not found"},
		{"rate limit", llm.NewError(llm.ErrorTypeRateLimit, "rate limited", true, nil), "throttling"},
		{"other", context.DeadlineExceeded, "context deadline exceeded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stderr bytes.Buffer
			printSendError(&stderr, tt.err)
			assert.Contains(t, stderr.String(), tt.want)
		})
	}
}
