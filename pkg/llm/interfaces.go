// Package llm abstracts the chat providers behind one tool-calling
// client interface with classified errors.
package llm

import "context"

// Client is the provider-independent chat interface. The orchestrator
// depends on this for dependency injection and mocking in tests.
type Client interface {
	// GenerateWithTools runs one non-streaming completion. The model may
	// answer with text, with tool calls, or both; failures come back as
	// *Error with a Type the orchestrator can act on.
	GenerateWithTools(ctx context.Context, system string, messages []Message, tools []ToolDefinition) (*Response, error)

	// GetModel returns the configured model name.
	GetModel() string

	// GetEndpoint returns the configured endpoint.
	GetEndpoint() string
}

// Embedder produces embedding vectors for knowledge base search.
// Only the OpenAI-compatible provider implements it.
type Embedder interface {
	CreateEmbedding(ctx context.Context, input string, model string) ([]float32, error)
}

// Message is one turn of conversation history.
type Message struct {
	Role       string     // "user", "assistant", "tool"
	Content    string
	ToolCalls  []ToolCall // set on assistant turns that requested tools
	ToolCallID string     // set on tool result turns
}

// Conversation roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ToolCall is one tool invocation requested by the model.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string // raw JSON as produced by the model
}

// Response is the outcome of one completion.
type Response struct {
	Content          string
	ToolCalls        []ToolCall
	PromptTokens     int
	CompletionTokens int
}

var (
	_ Client   = (*OpenAIClient)(nil)
	_ Embedder = (*OpenAIClient)(nil)
	_ Client   = (*AnthropicClient)(nil)
)
