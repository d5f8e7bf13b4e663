// Package chat drives the tool-calling conversation loop: it sends
// history to the model, dispatches requested tools, feeds results back,
// and stops on a final text answer or a hard limit.
package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/jinzhu/inflection"
	"go.uber.org/zap"

	"github.com/0labdotnet/azureAI-sentinel-sub001/pkg/llm"
	"github.com/0labdotnet/azureAI-sentinel-sub001/pkg/prompts"
	"github.com/0labdotnet/azureAI-sentinel-sub001/pkg/tools"
)

// Defaults for the conversation limits.
const (
	DefaultMaxToolRounds = 5
	DefaultMaxTurns      = 30
)

// ProgressFunc receives user-facing status lines while a turn runs
// (tool status messages, trim warnings).
type ProgressFunc func(status string)

// Session is one conversation. It owns its transcript exclusively and is
// not safe for concurrent Send calls; distinct sessions share nothing.
type Session struct {
	id            uuid.UUID
	client        llm.Client
	dispatcher    *tools.Dispatcher
	logger        *zap.Logger
	progress      ProgressFunc
	maxToolRounds int
	maxTurns      int
	systemPrompt  string
	toolDefs      []llm.ToolDefinition

	messages  []llm.Message
	turnCount int
}

// SessionConfig holds dependencies for creating a Session.
type SessionConfig struct {
	Client        llm.Client
	Dispatcher    *tools.Dispatcher
	Logger        *zap.Logger
	Progress      ProgressFunc
	MaxToolRounds int // defaults to DefaultMaxToolRounds
	MaxTurns      int // defaults to DefaultMaxTurns
}

// NewSession creates a Session. The tool schemas advertised to the model
// include the knowledge tools only when the dispatcher has a knowledge
// base wired.
func NewSession(cfg *SessionConfig) *Session {
	maxToolRounds := cfg.MaxToolRounds
	if maxToolRounds <= 0 {
		maxToolRounds = DefaultMaxToolRounds
	}
	maxTurns := cfg.MaxTurns
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}

	id := uuid.New()
	return &Session{
		id:            id,
		client:        cfg.Client,
		dispatcher:    cfg.Dispatcher,
		logger:        cfg.Logger.Named("chat").With(zap.String("session_id", id.String())),
		progress:      cfg.Progress,
		maxToolRounds: maxToolRounds,
		maxTurns:      maxTurns,
		systemPrompt:  prompts.SystemPrompt(),
		toolDefs:      tools.Definitions(cfg.Dispatcher.HasKnowledgeBase()),
	}
}

// ID returns the session identifier.
func (s *Session) ID() uuid.UUID { return s.id }

// TurnCount returns the number of user turns since the last clear.
func (s *Session) TurnCount() int { return s.turnCount }

// Send appends the user's text as a turn and runs the model/tool loop
// until the model produces a final answer or the round budget runs out.
//
// A content-policy rejection from the provider ends the turn with the
// dedicated explanation message, never a generic error. Only a failure
// to reach the provider itself is returned as an error; tool failures
// are fed back to the model as data.
func (s *Session) Send(ctx context.Context, userText string) (string, error) {
	s.messages = append(s.messages, llm.Message{Role: llm.RoleUser, Content: userText})
	s.turnCount++

	if s.turnCount > s.maxTurns {
		s.report(prompts.TokenWarning)
		s.trimMessages()
	}

	exhausted := true
	for round := 0; round < s.maxToolRounds; round++ {
		resp, err := s.client.GenerateWithTools(ctx, s.systemPrompt, s.messages, s.toolDefs)
		if err != nil {
			return s.handleModelError(err)
		}

		// The assistant turn goes in before any tool results so the
		// transcript the model sees next round is well formed.
		s.messages = append(s.messages, assistantMessage(resp))

		if len(resp.ToolCalls) == 0 {
			exhausted = false
			break
		}

		s.logger.Debug("Model requested tools",
			zap.Int("round", round),
			zap.Int("count", len(resp.ToolCalls)))
		s.messages = append(s.messages, s.dispatchAll(ctx, resp.ToolCalls)...)
	}

	if exhausted {
		if err := s.finishExhausted(ctx); err != nil {
			return s.handleModelError(err)
		}
	}

	return s.lastAssistantText(), nil
}

// Clear resets the transcript and returns a one-line summary of what was
// discarded.
func (s *Session) Clear() string {
	if len(s.messages) == 0 {
		return "Nothing to clear."
	}

	turns := s.turnCount
	s.messages = nil
	s.turnCount = 0

	unit := "turn"
	if turns != 1 {
		unit = inflection.Plural(unit)
	}
	return fmt.Sprintf("Cleared %d %s of conversation history.", turns, unit)
}

func (s *Session) report(status string) {
	if s.progress != nil {
		s.progress(status)
	}
}

// handleModelError implements the failure split: content-filter
// rejections become a dedicated assistant turn and a normal return;
// everything else is fatal to this Send and propagates.
func (s *Session) handleModelError(err error) (string, error) {
	if llm.IsContentFilter(err) {
		s.logger.Info("Model response blocked by content filter")
		s.messages = append(s.messages, llm.Message{
			Role:    llm.RoleAssistant,
			Content: prompts.ContentFilterMessage,
		})
		return prompts.ContentFilterMessage, nil
	}

	s.logger.Error("Model call failed", zap.Error(err))
	return "", fmt.Errorf("model call failed: %w", err)
}

// finishExhausted runs one final completion without tools after the
// round budget is spent, so the model summarizes what it found instead
// of the turn ending silently.
func (s *Session) finishExhausted(ctx context.Context) error {
	s.logger.Warn("Tool round budget exhausted",
		zap.Int("max_tool_rounds", s.maxToolRounds))

	s.messages = append(s.messages, llm.Message{
		Role:    llm.RoleUser,
		Content: prompts.MaxRoundsMessage,
	})

	resp, err := s.client.GenerateWithTools(ctx, s.systemPrompt, s.messages, nil)
	if err != nil {
		return err
	}
	s.messages = append(s.messages, llm.Message{
		Role:    llm.RoleAssistant,
		Content: resp.Content,
	})
	return nil
}

// dispatchAll executes the requested tool calls concurrently and returns
// the result turns in the order the model requested them. Request order
// is part of the contract the model relies on; only execution is
// parallel.
func (s *Session) dispatchAll(ctx context.Context, calls []llm.ToolCall) []llm.Message {
	for i := range calls {
		if calls[i].ID == "" {
			calls[i].ID = uuid.NewString()
		}
		s.report(s.dispatcher.StatusMessage(calls[i].Name))
	}

	results := make([]llm.Message, len(calls))
	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func(i int, call llm.ToolCall) {
			defer wg.Done()
			payload := s.dispatcher.Dispatch(ctx, call.Name, call.Arguments)
			s.logger.Debug("Tool call finished",
				zap.String("tool", call.Name),
				zap.String("result", summarizeResult(payload)))
			results[i] = llm.Message{
				Role:       llm.RoleTool,
				Content:    payload,
				ToolCallID: call.ID,
			}
		}(i, call)
	}
	wg.Wait()

	return results
}

// trimMessages drops the oldest turns down to the cap. Cuts happen only
// at user-turn boundaries so an assistant tool request is never split
// from its tool results.
func (s *Session) trimMessages() {
	target := s.maxTurns * 2

	for len(s.messages) > target {
		userIndices := make([]int, 0, 2)
		for i, m := range s.messages {
			if m.Role == llm.RoleUser {
				userIndices = append(userIndices, i)
				if len(userIndices) == 2 {
					break
				}
			}
		}
		if len(userIndices) < 2 {
			break
		}
		s.messages = s.messages[userIndices[1]:]
	}
}

func (s *Session) lastAssistantText() string {
	for i := len(s.messages) - 1; i >= 0; i-- {
		m := s.messages[i]
		if m.Role == llm.RoleAssistant && m.Content != "" {
			return m.Content
		}
	}
	return ""
}

func assistantMessage(resp *llm.Response) llm.Message {
	return llm.Message{
		Role:      llm.RoleAssistant,
		Content:   resp.Content,
		ToolCalls: resp.ToolCalls,
	}
}

// summarizeResult condenses a tool payload for debug logging.
func summarizeResult(payload string) string {
	var decoded struct {
		Error    string `json:"error"`
		Code     string `json:"code"`
		Message  string `json:"message"`
		Metadata *struct {
			Total   int     `json:"total"`
			QueryMS float64 `json:"query_ms"`
		} `json:"metadata"`
	}
	if err := json.Unmarshal([]byte(payload), &decoded); err != nil {
		return "unparseable result"
	}

	switch {
	case decoded.Error != "":
		return "Error: " + decoded.Error
	case decoded.Code != "":
		return "Error: " + decoded.Message
	case decoded.Metadata != nil:
		return fmt.Sprintf("%d results, %.0fms", decoded.Metadata.Total, decoded.Metadata.QueryMS)
	default:
		return "OK"
	}
}
