package llm

import (
	"context"
	"sync"
)

// MockClient implements Client for testing. Configure behavior via the
// function fields; calls are recorded for assertions. When
// GenerateWithToolsFunc is nil, queued responses are returned in order.
type MockClient struct {
	GenerateWithToolsFunc func(ctx context.Context, system string, messages []Message, tools []ToolDefinition) (*Response, error)

	mu        sync.Mutex
	queued    []queuedResult
	Calls     []MockGenerateCall
}

type queuedResult struct {
	resp *Response
	err  error
}

// MockGenerateCall records one GenerateWithTools invocation.
type MockGenerateCall struct {
	System   string
	Messages []Message
	Tools    []ToolDefinition
}

// QueueResponse appends a canned response for the next call.
func (m *MockClient) QueueResponse(resp *Response) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queued = append(m.queued, queuedResult{resp: resp})
}

// QueueError appends a canned error for the next call.
func (m *MockClient) QueueError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queued = append(m.queued, queuedResult{err: err})
}

func (m *MockClient) GenerateWithTools(ctx context.Context, system string, messages []Message, tools []ToolDefinition) (*Response, error) {
	m.mu.Lock()
	copied := make([]Message, len(messages))
	copy(copied, messages)
	m.Calls = append(m.Calls, MockGenerateCall{System: system, Messages: copied, Tools: tools})

	if m.GenerateWithToolsFunc != nil {
		m.mu.Unlock()
		return m.GenerateWithToolsFunc(ctx, system, messages, tools)
	}

	if len(m.queued) == 0 {
		m.mu.Unlock()
		return &Response{Content: "ok"}, nil
	}
	next := m.queued[0]
	m.queued = m.queued[1:]
	m.mu.Unlock()
	return next.resp, next.err
}

func (m *MockClient) GetModel() string    { return "mock-model" }
func (m *MockClient) GetEndpoint() string { return "mock://endpoint" }

// Reset clears recorded calls and queued results.
func (m *MockClient) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = nil
	m.queued = nil
	m.GenerateWithToolsFunc = nil
}

var _ Client = (*MockClient)(nil)

// MockEmbedder implements Embedder for testing.
type MockEmbedder struct {
	CreateEmbeddingFunc func(ctx context.Context, input string, model string) ([]float32, error)
	Inputs              []string
}

func (m *MockEmbedder) CreateEmbedding(ctx context.Context, input string, model string) ([]float32, error) {
	m.Inputs = append(m.Inputs, input)
	if m.CreateEmbeddingFunc != nil {
		return m.CreateEmbeddingFunc(ctx, input, model)
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

var _ Embedder = (*MockEmbedder)(nil)
