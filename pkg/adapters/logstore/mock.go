package logstore

import (
	"context"
	"sync"
)

// MockExecutor implements Executor for testing. Configure behavior via
// the function fields; calls are recorded for assertions.
type MockExecutor struct {
	ExecuteFunc func(ctx context.Context, templateID string, params Params) (*ResultSet, error)
	PingFunc    func(ctx context.Context) error

	mu       sync.Mutex
	Calls    []MockCall
	PingN    int
	CloseN   int
}

// MockCall records one Execute invocation.
type MockCall struct {
	TemplateID string
	Params     Params
}

func (m *MockExecutor) Execute(ctx context.Context, templateID string, params Params) (*ResultSet, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, MockCall{TemplateID: templateID, Params: params})
	m.mu.Unlock()

	if m.ExecuteFunc != nil {
		return m.ExecuteFunc(ctx, templateID, params)
	}
	return &ResultSet{Rows: []map[string]any{}}, nil
}

func (m *MockExecutor) Ping(ctx context.Context) error {
	m.mu.Lock()
	m.PingN++
	m.mu.Unlock()

	if m.PingFunc != nil {
		return m.PingFunc(ctx)
	}
	return nil
}

func (m *MockExecutor) Close() {
	m.mu.Lock()
	m.CloseN++
	m.mu.Unlock()
}

// Reset clears recorded calls and configured behavior.
func (m *MockExecutor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = nil
	m.PingN = 0
	m.CloseN = 0
	m.ExecuteFunc = nil
	m.PingFunc = nil
}

var _ Executor = (*MockExecutor)(nil)
