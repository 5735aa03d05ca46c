package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

// scriptReasoner replays a fixed sequence of replies and records every
// history it was invoked with.
type scriptReasoner struct {
	mu        sync.Mutex
	steps     []func() (Message, error)
	histories [][]Message
}

func (r *scriptReasoner) Invoke(ctx context.Context, history []Message, tools []mcp.Tool) (Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	snapshot := make([]Message, len(history))
	copy(snapshot, history)
	r.histories = append(r.histories, snapshot)

	if len(r.steps) == 0 {
		return Message{}, errors.New("script exhausted")
	}
	step := r.steps[0]
	r.steps = r.steps[1:]
	return step()
}

func text(content string) func() (Message, error) {
	return func() (Message, error) {
		return Message{Role: RoleAssistant, Content: content}, nil
	}
}

func calls(toolCalls ...ToolCall) func() (Message, error) {
	return func() (Message, error) {
		return Message{Role: RoleAssistant, ToolCalls: toolCalls}, nil
	}
}

func failure(err error) func() (Message, error) {
	return func() (Message, error) { return Message{}, err }
}

// flakyError stands in for a rate limit or upstream outage.
type flakyError struct{ msg string }

func (e *flakyError) Error() string   { return e.msg }
func (e *flakyError) Transient() bool { return true }

// fakeDispatcher records dispatch order and returns canned results.
type fakeDispatcher struct {
	mu       sync.Mutex
	mutating map[string]bool
	order    []string
	handle   func(ctx context.Context, call ToolCall) ToolResult
}

func (d *fakeDispatcher) Dispatch(ctx context.Context, call ToolCall) ToolResult {
	d.mu.Lock()
	d.order = append(d.order, call.Name)
	d.mu.Unlock()

	if d.handle != nil {
		return d.handle(ctx, call)
	}
	return ToolResult{ID: call.ID, Content: "ok"}
}

func (d *fakeDispatcher) Specs() []mcp.Tool { return nil }

func (d *fakeDispatcher) Mutating(name string) bool { return d.mutating[name] }

func newTestLoop(r Reasoner, d Dispatcher, opts ...LoopOption) *Loop {
	base := []LoopOption{WithClock(func() time.Time { return testNow })}
	return NewLoop(r, d, append(base, opts...)...)
}

func TestRunTurn_DirectAnswer(t *testing.T) {
	reasoner := &scriptReasoner{steps: []func() (Message, error){text("Nothing scheduled.")}}
	loop := newTestLoop(reasoner, &fakeDispatcher{})
	sess := NewSession()

	result, err := loop.RunTurn(context.Background(), sess, "what's on today?")
	require.NoError(t, err)

	assert.Equal(t, "Nothing scheduled.", result.AssistantText)
	assert.Empty(t, result.Trace)

	history := sess.History()
	require.Len(t, history, 3)
	assert.Equal(t, RoleSystem, history[0].Role)
	assert.Equal(t, RoleUser, history[1].Role)
	assert.Equal(t, RoleAssistant, history[2].Role)
}

func TestRunTurn_PolicyInjectedOnce(t *testing.T) {
	reasoner := &scriptReasoner{steps: []func() (Message, error){text("a"), text("b")}}
	loop := newTestLoop(reasoner, &fakeDispatcher{})
	sess := NewSession()

	_, err := loop.RunTurn(context.Background(), sess, "first")
	require.NoError(t, err)
	_, err = loop.RunTurn(context.Background(), sess, "second")
	require.NoError(t, err)

	systemCount := 0
	for _, m := range sess.History() {
		if m.Role == RoleSystem {
			systemCount++
		}
	}
	assert.Equal(t, 1, systemCount)
}

func TestRunTurn_TodayFactIsEphemeral(t *testing.T) {
	reasoner := &scriptReasoner{steps: []func() (Message, error){text("done")}}
	loop := newTestLoop(reasoner, &fakeDispatcher{})
	sess := NewSession()

	_, err := loop.RunTurn(context.Background(), sess, "hello")
	require.NoError(t, err)

	// The reasoner saw today's date as the last message of its input...
	require.Len(t, reasoner.histories, 1)
	seen := reasoner.histories[0]
	last := seen[len(seen)-1]
	assert.Equal(t, RoleSystem, last.Role)
	assert.Contains(t, last.Content, "2025-03-01")
	assert.Contains(t, last.Content, "Saturday")

	// ...but the session history does not retain it.
	for _, m := range sess.History() {
		if strings.Contains(m.Content, "Today's date") {
			t.Fatalf("today fact leaked into persistent history: %q", m.Content)
		}
	}
}

func TestRunTurn_ToolRoundTrip(t *testing.T) {
	reasoner := &scriptReasoner{steps: []func() (Message, error){
		calls(
			ToolCall{ID: "c1", Name: "today"},
			ToolCall{ID: "c2", Name: "list_events"},
		),
		text("You are free all afternoon."),
	}}
	dispatcher := &fakeDispatcher{mutating: map[string]bool{"create_event": true}}
	loop := newTestLoop(reasoner, dispatcher)
	sess := NewSession()

	result, err := loop.RunTurn(context.Background(), sess, "am I free?")
	require.NoError(t, err)

	assert.Equal(t, "You are free all afternoon.", result.AssistantText)
	require.Len(t, result.Trace, 2)
	assert.Equal(t, "c1", result.Trace[0].Request.ID)
	assert.Equal(t, "c1", result.Trace[0].Result.ID)
	assert.Equal(t, "c2", result.Trace[1].Request.ID)

	// History: policy, user, assistant(calls), tool, tool, assistant(final)
	history := sess.History()
	require.Len(t, history, 6)
	assert.Equal(t, RoleAssistant, history[2].Role)
	require.Len(t, history[2].ToolCalls, 2)
	assert.Equal(t, RoleTool, history[3].Role)
	assert.Equal(t, "c1", history[3].ToolCallID)
	assert.Equal(t, RoleTool, history[4].Role)
	assert.Equal(t, "c2", history[4].ToolCallID)
	assert.Equal(t, RoleAssistant, history[5].Role)
}

func TestRunTurn_MutatingDispatchedAfterReadOnly(t *testing.T) {
	reasoner := &scriptReasoner{steps: []func() (Message, error){
		calls(
			ToolCall{ID: "c1", Name: "create_event"},
			ToolCall{ID: "c2", Name: "today"},
			ToolCall{ID: "c3", Name: "list_events"},
		),
		text("done"),
	}}
	dispatcher := &fakeDispatcher{mutating: map[string]bool{"create_event": true}}
	loop := newTestLoop(reasoner, dispatcher)

	result, err := loop.RunTurn(context.Background(), NewSession(), "book and check")
	require.NoError(t, err)

	// The mutating call runs last even though it was requested first.
	require.Len(t, dispatcher.order, 3)
	assert.Equal(t, "create_event", dispatcher.order[2])

	// Results keep request order regardless of execution order.
	require.Len(t, result.Trace, 3)
	assert.Equal(t, "c1", result.Trace[0].Result.ID)
	assert.Equal(t, "c2", result.Trace[1].Result.ID)
	assert.Equal(t, "c3", result.Trace[2].Result.ID)
}

func TestRunTurn_LoopExceeded(t *testing.T) {
	reasoner := &scriptReasoner{steps: []func() (Message, error){
		calls(ToolCall{ID: "c1", Name: "today"}),
		calls(ToolCall{ID: "c2", Name: "today"}),
		calls(ToolCall{ID: "c3", Name: "today"}),
	}}
	loop := newTestLoop(reasoner, &fakeDispatcher{}, WithMaxTurns(3))
	sess := NewSession()

	_, err := loop.RunTurn(context.Background(), sess, "loop forever")
	require.ErrorIs(t, err, ErrLoopExceeded)

	// Every tool call in the history must have its paired result.
	history := sess.History()
	pending := map[string]bool{}
	for _, m := range history {
		for _, call := range m.ToolCalls {
			pending[call.ID] = true
		}
		if m.Role == RoleTool {
			delete(pending, m.ToolCallID)
		}
	}
	assert.Empty(t, pending, "dangling tool calls in history")
}

func TestRunTurn_ReasonRetriesOnce(t *testing.T) {
	reasoner := &scriptReasoner{steps: []func() (Message, error){
		failure(&flakyError{msg: "rate limited"}),
		text("recovered"),
	}}
	loop := newTestLoop(reasoner, &fakeDispatcher{})

	result, err := loop.RunTurn(context.Background(), NewSession(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "recovered", result.AssistantText)
	assert.Len(t, reasoner.histories, 2)
}

func TestRunTurn_ReasonFailsTwice(t *testing.T) {
	reasoner := &scriptReasoner{steps: []func() (Message, error){
		failure(&flakyError{msg: "rate limited"}),
		failure(&flakyError{msg: "rate limited"}),
	}}
	loop := newTestLoop(reasoner, &fakeDispatcher{})
	sess := NewSession()

	_, err := loop.RunTurn(context.Background(), sess, "hello")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCancelled)

	// Failed consultations leave no assistant message behind.
	for _, m := range sess.History() {
		assert.NotEqual(t, RoleAssistant, m.Role)
	}
}

func TestRunTurn_PermanentReasonErrorNotRetried(t *testing.T) {
	permanent := errors.New("invalid request")
	reasoner := &scriptReasoner{steps: []func() (Message, error){
		failure(permanent),
		text("never reached"),
	}}
	loop := newTestLoop(reasoner, &fakeDispatcher{})
	sess := NewSession()

	_, err := loop.RunTurn(context.Background(), sess, "hello")
	require.ErrorIs(t, err, permanent)

	// A non-transient failure surfaces immediately, without a second attempt.
	assert.Len(t, reasoner.histories, 1)
	for _, m := range sess.History() {
		assert.NotEqual(t, RoleAssistant, m.Role)
	}
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(&flakyError{msg: "upstream 503"}))
	assert.True(t, IsTransient(fmt.Errorf("consult reasoner: %w", &flakyError{msg: "429"})))
	assert.False(t, IsTransient(errors.New("bad schema")))
	assert.False(t, IsTransient(nil))
}

func TestRunTurn_Cancelled(t *testing.T) {
	reasoner := &scriptReasoner{steps: []func() (Message, error){text("never reached")}}
	loop := newTestLoop(reasoner, &fakeDispatcher{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := loop.RunTurn(ctx, NewSession(), "hello")
	require.ErrorIs(t, err, ErrCancelled)
}

func TestRunTurn_CancelledDuringReason(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	reasoner := &scriptReasoner{steps: []func() (Message, error){
		func() (Message, error) {
			cancel()
			return Message{}, ctx.Err()
		},
	}}
	loop := newTestLoop(reasoner, &fakeDispatcher{})

	_, err := loop.RunTurn(ctx, NewSession(), "hello")
	require.ErrorIs(t, err, ErrCancelled)
}

func TestRunTurn_PolicyMentionsZone(t *testing.T) {
	zone, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)

	reasoner := &scriptReasoner{steps: []func() (Message, error){text("ok")}}
	loop := newTestLoop(reasoner, &fakeDispatcher{}, WithZone(zone))
	sess := NewSession()

	_, err = loop.RunTurn(context.Background(), sess, "hello")
	require.NoError(t, err)

	history := sess.History()
	require.Equal(t, RoleSystem, history[0].Role)
	assert.Contains(t, history[0].Content, "Asia/Kolkata")
}
