package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/mweide/calagent/internal/agent"
	"github.com/mweide/calagent/internal/logging"
)

// DefaultBaseURL points at the OpenAI API; any compatible endpoint
// (llama.cpp, vLLM, LiteLLM, Groq) works by overriding it.
const DefaultBaseURL = "https://api.openai.com/v1"

const defaultTimeout = 60 * time.Second

// Client is an agent.Reasoner backed by an OpenAI-compatible chat completions
// endpoint with function calling.
type Client struct {
	baseURL     string
	apiKey      string
	model       string
	temperature *float64
	httpClient  *http.Client
	logger      *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithHTTPClient overrides the HTTP client, for tests and custom transports.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(c *Client) { c.temperature = &t }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// NewClient creates a reasoner for the given model.
func NewClient(apiKey, model string, opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ agent.Reasoner = (*Client)(nil)

// transientError marks failures the agent loop may retry once: transport
// errors, rate limits, and upstream 5xx responses. Malformed model output
// and client-side 4xx stay permanent.
type transientError struct {
	err error
}

func (e *transientError) Error() string   { return e.err.Error() }
func (e *transientError) Unwrap() error   { return e.err }
func (e *transientError) Transient() bool { return true }

func transient(err error) error {
	return &transientError{err: err}
}

// retryableStatus reports whether an HTTP status is worth a retry.
func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

// Invoke sends the conversation history and tool specs to the model and
// returns its next message: either plain text or a batch of tool calls.
func (c *Client) Invoke(ctx context.Context, history []agent.Message, tools []mcp.Tool) (agent.Message, error) {
	req := chatRequest{
		Model:       c.model,
		Messages:    toWireMessages(history),
		Tools:       toWireTools(tools),
		Temperature: c.temperature,
	}
	if len(req.Tools) > 0 {
		req.ToolChoice = "auto"
	}

	body, err := json.Marshal(req)
	if err != nil {
		return agent.Message{}, fmt.Errorf("failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return agent.Message{}, fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	log := logging.WithOperation(c.logger, "reasoner.invoke")
	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return agent.Message{}, transient(fmt.Errorf("chat completion request failed: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return agent.Message{}, transient(fmt.Errorf("failed to read response: %w", err))
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return agent.Message{}, fmt.Errorf("failed to decode response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr error
		if parsed.Error != nil {
			apiErr = fmt.Errorf("chat completion failed (status %d): %s", resp.StatusCode, parsed.Error.Message)
		} else {
			apiErr = fmt.Errorf("chat completion failed with status %d", resp.StatusCode)
		}
		if retryableStatus(resp.StatusCode) {
			apiErr = transient(apiErr)
		}
		return agent.Message{}, apiErr
	}
	if len(parsed.Choices) == 0 {
		return agent.Message{}, fmt.Errorf("chat completion returned no choices")
	}

	msg, err := fromWireMessage(parsed.Choices[0].Message)
	if err != nil {
		return agent.Message{}, err
	}

	log.Debug("chat completion",
		"model", c.model,
		"tool_calls", len(msg.ToolCalls),
		logging.KeyDuration, time.Since(start))
	return msg, nil
}

// toWireMessages converts session history to the wire format. Assistant tool
// calls get their arguments re-encoded as JSON strings; tool results carry
// the originating call ID.
func toWireMessages(history []agent.Message) []chatMessage {
	msgs := make([]chatMessage, 0, len(history))
	for _, m := range history {
		wm := chatMessage{
			Role:       string(m.Role),
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
		}
		for _, call := range m.ToolCalls {
			args, err := json.Marshal(call.Arguments)
			if err != nil {
				args = []byte("{}")
			}
			wc := toolCall{ID: call.ID, Type: "function"}
			wc.Function.Name = call.Name
			wc.Function.Arguments = string(args)
			wm.ToolCalls = append(wm.ToolCalls, wc)
		}
		msgs = append(msgs, wm)
	}
	return msgs
}

// toWireTools converts MCP tool schemas to function-calling specs. The input
// schema marshals directly to a JSON Schema object.
func toWireTools(tools []mcp.Tool) []toolDefinition {
	defs := make([]toolDefinition, 0, len(tools))
	for _, t := range tools {
		params := map[string]any{"type": "object"}
		if raw, err := json.Marshal(t.InputSchema); err == nil {
			var decoded map[string]any
			if err := json.Unmarshal(raw, &decoded); err == nil {
				params = decoded
			}
		}
		defs = append(defs, toolDefinition{
			Type: "function",
			Function: toolFunction{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  params,
			},
		})
	}
	return defs
}

// fromWireMessage converts the model's reply into an agent message. Tool call
// arguments arrive as a JSON string and are decoded into a map; a call with
// undecodable arguments fails the whole invocation so the loop can retry.
// Models occasionally omit call IDs, in which case one is generated so
// results can still be paired.
func fromWireMessage(wm chatMessage) (agent.Message, error) {
	msg := agent.Message{
		Role:    agent.RoleAssistant,
		Content: wm.Content,
	}
	for _, wc := range wm.ToolCalls {
		args := map[string]any{}
		if wc.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(wc.Function.Arguments), &args); err != nil {
				return agent.Message{}, fmt.Errorf("tool call %q has malformed arguments: %w", wc.Function.Name, err)
			}
		}
		id := wc.ID
		if id == "" {
			id = uuid.NewString()
		}
		msg.ToolCalls = append(msg.ToolCalls, agent.ToolCall{
			ID:        id,
			Name:      wc.Function.Name,
			Arguments: args,
		})
	}
	return msg, nil
}
