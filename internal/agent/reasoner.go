package agent

import (
	"context"
	"errors"
	"net"

	"github.com/mark3labs/mcp-go/mcp"
)

// Reasoner is the opaque language-model capability. Given the conversation
// history and the tool catalog's schemas it returns either a final assistant
// message (no tool calls) or an assistant message carrying one or more
// tool-call requests.
type Reasoner interface {
	Invoke(ctx context.Context, history []Message, tools []mcp.Tool) (Message, error)
}

// Dispatcher executes tool calls against a catalog of registered tools.
// Dispatch always returns a result: unknown tools, argument mismatches,
// handler errors and panics all become error results, never a crash.
type Dispatcher interface {
	Dispatch(ctx context.Context, call ToolCall) ToolResult

	// Specs returns the schemas of every registered tool, for the reasoner.
	Specs() []mcp.Tool

	// Mutating reports whether the named tool has side effects.
	Mutating(name string) bool
}

// transienter is implemented by errors that may succeed on an immediate
// retry, such as rate limits or upstream 5xx responses.
type transienter interface {
	Transient() bool
}

// IsTransient reports whether err is a momentary failure worth a single
// retry. Network timeouts count; anything else must mark itself transient.
// Permanent failures (malformed model output, bad requests) are not retried.
func IsTransient(err error) bool {
	var te transienter
	if errors.As(err, &te) {
		return te.Transient()
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return ne.Timeout()
	}
	return false
}
