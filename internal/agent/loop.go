package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mweide/calagent/internal/instrumentation"
	"github.com/mweide/calagent/internal/logging"
	"github.com/mweide/calagent/internal/timemath"
)

// DefaultMaxTurns bounds the number of Reason steps per turn.
const DefaultMaxTurns = 6

var (
	// ErrLoopExceeded is returned when the reasoner keeps requesting tools
	// past the turn bound. Completed request/result pairs stay in the history.
	ErrLoopExceeded = errors.New("reason loop exceeded maximum turns")

	// ErrCancelled is returned when the turn's context is cancelled or times
	// out. The session history is left consistent.
	ErrCancelled = errors.New("turn cancelled")
)

// mutatingMu serializes mutating tool calls system-wide: at most one in-flight
// mutating call at any time, preventing duplicate-intent races.
var mutatingMu sync.Mutex

// Exchange is one (request, result) pair from a turn's tool trace.
type Exchange struct {
	Request ToolCall
	Result  ToolResult
}

// TurnResult is the outcome of one completed turn.
type TurnResult struct {
	AssistantText string
	Trace         []Exchange
}

// Loop drives one conversation turn: it seeds today's date as a contextual
// fact, injects the scheduling policy, then alternates between consulting the
// reasoner and dispatching the tool calls it requests until the reasoner
// produces a final answer or the turn bound is hit.
type Loop struct {
	reasoner Reasoner
	tools    Dispatcher
	maxTurns int
	zone     *time.Location
	now      func() time.Time
	logger   *slog.Logger
	metrics  *instrumentation.Metrics
}

// LoopOption configures a Loop.
type LoopOption func(*Loop)

// WithMaxTurns overrides the Reason step bound.
func WithMaxTurns(n int) LoopOption {
	return func(l *Loop) {
		if n > 0 {
			l.maxTurns = n
		}
	}
}

// WithZone sets the user's default timezone stated in the scheduling policy.
func WithZone(loc *time.Location) LoopOption {
	return func(l *Loop) { l.zone = loc }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) LoopOption {
	return func(l *Loop) { l.now = now }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) LoopOption {
	return func(l *Loop) { l.logger = logger }
}

// WithMetrics enables turn and reason-step metrics.
func WithMetrics(m *instrumentation.Metrics) LoopOption {
	return func(l *Loop) { l.metrics = m }
}

// NewLoop creates a turn loop over a reasoner and a tool dispatcher.
func NewLoop(reasoner Reasoner, tools Dispatcher, opts ...LoopOption) *Loop {
	l := &Loop{
		reasoner: reasoner,
		tools:    tools,
		maxTurns: DefaultMaxTurns,
		zone:     time.UTC,
		now:      timemath.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// policyMessage is the fixed scheduling instruction injected into each
// session. The %s placeholder carries the default timezone name.
const policyMessage = `Your role is to schedule events based on user instructions. Follow these rules:
1. Use today's date, provided as a system fact, to resolve relative dates like tomorrow or next week.
2. Parse user instructions to extract the date, time range, and description.
3. Assume the user's specified time is in their local timezone, %s, unless they say otherwise.
4. Convert extracted dates and times to ISO 8601 UTC format. ALWAYS call tools with ISO 8601 UTC timestamps only.
5. Call tools in the following order:
   - list_events: to check existing events in the relevant range.
   - find_available_slots: to find gaps between events (optional if the user gives a specific time).
   - create_event: to schedule the meeting with the validated times.
6. Provide the final answer precisely and concisely.`

// RunTurn executes one full user-input-to-final-answer cycle. The session is
// locked for the duration of the turn; history is appended to, never edited.
// On LoopExceeded or Cancelled the history retains every completed
// request/result pair and contains no dangling tool call.
func (l *Loop) RunTurn(ctx context.Context, sess *Session, userText string) (*TurnResult, error) {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	turnStart := l.now()
	log := logging.WithOperation(l.logger, "agent.turn")

	// InjectPolicy: the fixed scheduling instruction, once per session.
	if !sess.hasSystemMessage() {
		sess.append(SystemMessage(fmt.Sprintf(policyMessage, l.zone.String())))
	}
	sess.append(UserMessage(userText))

	// SeedContext: today's date travels with the turn as a contextual fact,
	// handed to the reasoner on every step without being persisted.
	todayFact := l.todayFact()

	var trace []Exchange
	steps := 0
	for steps < l.maxTurns {
		if err := ctx.Err(); err != nil {
			l.recordTurn(ctx, instrumentation.StatusError, steps, turnStart)
			return nil, fmt.Errorf("%w: %v", ErrCancelled, err)
		}

		steps++
		msg, err := l.reason(ctx, append(sess.snapshot(), todayFact))
		if err != nil {
			if ctx.Err() != nil {
				l.recordTurn(ctx, instrumentation.StatusError, steps, turnStart)
				return nil, fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())
			}
			l.recordTurn(ctx, instrumentation.StatusError, steps, turnStart)
			return nil, fmt.Errorf("reason step %d failed: %w", steps, err)
		}

		if len(msg.ToolCalls) == 0 {
			sess.append(msg)
			log.Info("turn complete",
				"reason_steps", steps,
				"tool_calls", len(trace))
			l.recordTurn(ctx, instrumentation.StatusSuccess, steps, turnStart)
			return &TurnResult{AssistantText: msg.Content, Trace: trace}, nil
		}

		results := l.dispatchBatch(ctx, msg.ToolCalls)

		// The assistant message and all paired results are appended together
		// so the history never holds a tool call without its result.
		batch := make([]Message, 0, len(results)+1)
		batch = append(batch, msg)
		for i, res := range results {
			batch = append(batch, ToolMessage(res))
			trace = append(trace, Exchange{Request: msg.ToolCalls[i], Result: res})
		}
		sess.append(batch...)

		if err := ctx.Err(); err != nil {
			l.recordTurn(ctx, instrumentation.StatusError, steps, turnStart)
			return nil, fmt.Errorf("%w: %v", ErrCancelled, err)
		}
	}

	log.Warn("turn exceeded max reason steps", "max_turns", l.maxTurns)
	l.recordTurn(ctx, instrumentation.StatusError, steps, turnStart)
	return nil, fmt.Errorf("%w (%d)", ErrLoopExceeded, l.maxTurns)
}

// todayFact renders today's date and weekday as an ephemeral system message.
func (l *Loop) todayFact() Message {
	now := l.now()
	return SystemMessage(fmt.Sprintf("Today's date is %s, and it is a %s (UTC).",
		now.Format("2006-01-02"), now.Weekday()))
}

// reason invokes the reasoner, retrying once on transient failure (timeout,
// rate limit, upstream 5xx). Cancellation and permanent errors are never
// retried; a failed mutating dispatch is never retried either, only this
// read-only consultation step.
func (l *Loop) reason(ctx context.Context, history []Message) (Message, error) {
	start := time.Now()
	msg, err := l.reasoner.Invoke(ctx, history, l.tools.Specs())
	if err == nil {
		l.recordReasonStep(ctx, instrumentation.StatusSuccess, start)
		return msg, nil
	}
	if ctx.Err() != nil || !IsTransient(err) {
		l.recordReasonStep(ctx, instrumentation.StatusError, start)
		return Message{}, err
	}

	l.logger.Warn("reason step failed, retrying once", logging.Err(err))
	msg, retryErr := l.reasoner.Invoke(ctx, history, l.tools.Specs())
	if retryErr != nil {
		l.recordReasonStep(ctx, instrumentation.StatusError, start)
		return Message{}, fmt.Errorf("retry failed: %w", retryErr)
	}
	l.recordReasonStep(ctx, instrumentation.StatusSuccess, start)
	return msg, nil
}

// dispatchBatch executes one Reason step's tool calls. Read-only calls run
// concurrently; mutating calls run strictly after them, one at a time under
// the global mutating lock. Results are returned in request order and every
// call gets a result, including when the context is cancelled mid-batch.
func (l *Loop) dispatchBatch(ctx context.Context, calls []ToolCall) []ToolResult {
	results := make([]ToolResult, len(calls))

	var wg sync.WaitGroup
	for i, call := range calls {
		if l.tools.Mutating(call.Name) {
			continue
		}
		wg.Add(1)
		go func(i int, call ToolCall) {
			defer wg.Done()
			results[i] = l.tools.Dispatch(ctx, call)
		}(i, call)
	}
	wg.Wait()

	for i, call := range calls {
		if !l.tools.Mutating(call.Name) {
			continue
		}
		mutatingMu.Lock()
		results[i] = l.tools.Dispatch(ctx, call)
		mutatingMu.Unlock()
	}

	return results
}

func (l *Loop) recordReasonStep(ctx context.Context, status string, start time.Time) {
	if l.metrics == nil {
		return
	}
	l.metrics.RecordReasonStep(ctx, status, time.Since(start))
}

func (l *Loop) recordTurn(ctx context.Context, status string, steps int, start time.Time) {
	if l.metrics == nil {
		return
	}
	l.metrics.RecordTurn(ctx, status, steps, l.now().Sub(start))
}
