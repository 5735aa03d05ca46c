package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mweide/calagent/internal/agent"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient("test-key", "test-model", WithBaseURL(srv.URL))
}

func TestInvoke_TextReply(t *testing.T) {
	var gotReq chatRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "Scheduled."}, "finish_reason": "stop"},
			},
		})
	})

	history := []agent.Message{
		agent.SystemMessage("policy"),
		agent.UserMessage("book a meeting tomorrow"),
	}
	msg, err := client.Invoke(context.Background(), history, nil)
	require.NoError(t, err)

	assert.Equal(t, agent.RoleAssistant, msg.Role)
	assert.Equal(t, "Scheduled.", msg.Content)
	assert.Empty(t, msg.ToolCalls)

	require.Len(t, gotReq.Messages, 2)
	assert.Equal(t, "system", gotReq.Messages[0].Role)
	assert.Equal(t, "test-model", gotReq.Model)
	assert.Empty(t, gotReq.ToolChoice)
}

func TestInvoke_ToolCalls(t *testing.T) {
	var gotReq chatRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{
					"message": map[string]any{
						"role": "assistant",
						"tool_calls": []map[string]any{
							{
								"id":   "call-1",
								"type": "function",
								"function": map[string]any{
									"name":      "create_event",
									"arguments": `{"summary":"standup","start_time":"2025-03-02T10:00:00Z","end_time":"2025-03-02T10:30:00Z"}`,
								},
							},
						},
					},
					"finish_reason": "tool_calls",
				},
			},
		})
	})

	tools := []mcp.Tool{
		mcp.NewTool("create_event",
			mcp.WithDescription("Create a calendar event"),
			mcp.WithString("summary", mcp.Required()),
		),
	}
	msg, err := client.Invoke(context.Background(), []agent.Message{agent.UserMessage("book it")}, tools)
	require.NoError(t, err)

	require.Len(t, msg.ToolCalls, 1)
	call := msg.ToolCalls[0]
	assert.Equal(t, "call-1", call.ID)
	assert.Equal(t, "create_event", call.Name)
	assert.Equal(t, "standup", call.Arguments["summary"])

	// Tools must be sent as function-calling specs with auto choice
	require.Len(t, gotReq.Tools, 1)
	assert.Equal(t, "function", gotReq.Tools[0].Type)
	assert.Equal(t, "create_event", gotReq.Tools[0].Function.Name)
	assert.Equal(t, "auto", gotReq.ToolChoice)
	assert.Contains(t, gotReq.Tools[0].Function.Parameters, "properties")
}

func TestInvoke_GeneratesMissingCallID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{
					"message": map[string]any{
						"role": "assistant",
						"tool_calls": []map[string]any{
							{"type": "function", "function": map[string]any{"name": "today", "arguments": ""}},
						},
					},
				},
			},
		})
	})

	msg, err := client.Invoke(context.Background(), nil, nil)
	require.NoError(t, err)
	require.Len(t, msg.ToolCalls, 1)
	assert.NotEmpty(t, msg.ToolCalls[0].ID)
}

func TestInvoke_MalformedArguments(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{
					"message": map[string]any{
						"role": "assistant",
						"tool_calls": []map[string]any{
							{"id": "c1", "type": "function", "function": map[string]any{"name": "today", "arguments": "{not json"}},
						},
					},
				},
			},
		})
	})

	_, err := client.Invoke(context.Background(), nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed arguments")
	assert.False(t, agent.IsTransient(err))
}

func TestInvoke_APIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "rate limited", "type": "rate_limit_error"},
		})
	})

	_, err := client.Invoke(context.Background(), nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
	assert.True(t, agent.IsTransient(err))
}

func TestInvoke_ServerErrorIsTransient(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "upstream unavailable"},
		})
	})

	_, err := client.Invoke(context.Background(), nil, nil)
	require.Error(t, err)
	assert.True(t, agent.IsTransient(err))
}

func TestInvoke_ClientErrorIsPermanent(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "unknown model"},
		})
	})

	_, err := client.Invoke(context.Background(), nil, nil)
	require.Error(t, err)
	assert.False(t, agent.IsTransient(err))
}

func TestInvoke_NoChoices(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	})

	_, err := client.Invoke(context.Background(), nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}

func TestToWireMessages_ToolHistory(t *testing.T) {
	history := []agent.Message{
		{
			Role: agent.RoleAssistant,
			ToolCalls: []agent.ToolCall{
				{ID: "c1", Name: "today", Arguments: map[string]any{}},
			},
		},
		agent.ToolMessage(agent.ToolResult{ID: "c1", Content: `{"date":"2025-03-01"}`}),
	}

	msgs := toWireMessages(history)
	require.Len(t, msgs, 2)

	require.Len(t, msgs[0].ToolCalls, 1)
	assert.Equal(t, "c1", msgs[0].ToolCalls[0].ID)
	assert.Equal(t, "today", msgs[0].ToolCalls[0].Function.Name)
	assert.JSONEq(t, "{}", msgs[0].ToolCalls[0].Function.Arguments)

	assert.Equal(t, "tool", msgs[1].Role)
	assert.Equal(t, "c1", msgs[1].ToolCallID)
}
