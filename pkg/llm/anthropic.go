package llm

import (
	"context"
	"encoding/json"
	"time"

	"github.com/liushuangls/go-anthropic/v2"
	"go.uber.org/zap"
)

// AnthropicClient talks to the Anthropic Messages API.
type AnthropicClient struct {
	client    *anthropic.Client
	model     string
	maxTokens int
	timeout   time.Duration
	logger    *zap.Logger
}

const defaultAnthropicMaxTokens = 4096

// NewAnthropicClient creates an Anthropic provider client.
func NewAnthropicClient(cfg *Config, logger *zap.Logger) (*AnthropicClient, error) {
	opts := []anthropic.ClientOption{}
	if cfg.Endpoint != "" {
		opts = append(opts, anthropic.WithBaseURL(cfg.Endpoint))
	}

	return &AnthropicClient{
		client:    anthropic.NewClient(cfg.APIKey, opts...),
		model:     cfg.Model,
		maxTokens: defaultAnthropicMaxTokens,
		timeout:   requestTimeout(cfg),
		logger:    logger.Named("llm.anthropic"),
	}, nil
}

// GenerateWithTools runs one non-streaming completion with tool support.
func (c *AnthropicClient) GenerateWithTools(ctx context.Context, system string, messages []Message, tools []ToolDefinition) (*Response, error) {
	req := anthropic.MessagesRequest{
		Model:     anthropic.Model(c.model),
		System:    system,
		MaxTokens: c.maxTokens,
		Messages:  buildAnthropicMessages(messages),
	}
	for _, t := range tools {
		req.Tools = append(req.Tools, anthropic.ToolDefinition{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.Parameters,
		})
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.client.CreateMessages(ctx, req)
	if err != nil {
		c.logger.Warn("completion failed",
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return nil, ClassifyError(err)
	}

	// A refusal arrives as a successful response with an empty body,
	// not as an API error.
	if resp.StopReason == anthropic.MessagesStopRefusal {
		c.logger.Warn("completion refused",
			zap.Duration("elapsed", time.Since(start)))
		return nil, NewError(ErrorTypeContentFilter,
			"request rejected by provider content filter", false, nil)
	}

	out := &Response{
		PromptTokens:     resp.Usage.InputTokens,
		CompletionTokens: resp.Usage.OutputTokens,
	}
	for _, content := range resp.Content {
		switch content.Type {
		case anthropic.MessagesContentTypeText:
			out.Content += content.GetText()
		case anthropic.MessagesContentTypeToolUse:
			if content.MessageContentToolUse == nil {
				continue
			}
			out.ToolCalls = append(out.ToolCalls, ToolCall{
				ID:        content.MessageContentToolUse.ID,
				Name:      content.MessageContentToolUse.Name,
				Arguments: string(content.MessageContentToolUse.Input),
			})
		}
	}

	c.logger.Info("completion finished",
		zap.Int("prompt_tokens", out.PromptTokens),
		zap.Int("completion_tokens", out.CompletionTokens),
		zap.Int("tool_calls", len(out.ToolCalls)),
		zap.Duration("elapsed", time.Since(start)))

	return out, nil
}

// GetModel returns the configured model name.
func (c *AnthropicClient) GetModel() string {
	return c.model
}

// GetEndpoint returns the configured endpoint.
func (c *AnthropicClient) GetEndpoint() string {
	return "https://api.anthropic.com"
}

func buildAnthropicMessages(messages []Message) []anthropic.Message {
	out := make([]anthropic.Message, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleAssistant:
			content := []anthropic.MessageContent{}
			if m.Content != "" {
				content = append(content, anthropic.NewTextMessageContent(m.Content))
			}
			for _, tc := range m.ToolCalls {
				content = append(content, anthropic.NewToolUseMessageContent(
					tc.ID, tc.Name, json.RawMessage(tc.Arguments)))
			}
			out = append(out, anthropic.Message{
				Role:    anthropic.RoleAssistant,
				Content: content,
			})
		case RoleTool:
			out = append(out, anthropic.NewToolResultsMessage(m.ToolCallID, m.Content, false))
		default:
			out = append(out, anthropic.NewUserTextMessage(m.Content))
		}
	}
	return out
}
