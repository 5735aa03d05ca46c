package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/mweide/calagent/internal/agent"
	"github.com/mweide/calagent/internal/instrumentation"
	"github.com/mweide/calagent/internal/logging"
	"github.com/mweide/calagent/internal/schedtools"
)

// Handler executes one tool call with already schema-validated arguments and
// returns a JSON-serializable result.
type Handler func(ctx context.Context, args map[string]any) (any, error)

type entry struct {
	tool     mcp.Tool
	handler  Handler
	mutating bool
}

// Catalog is the single registry of callable tools. The same mcp.Tool schemas
// drive argument validation here, the tool specs handed to the reasoner, and
// the MCP server registration, so the three views can never drift apart.
type Catalog struct {
	entries map[string]entry
	order   []string
	logger  *slog.Logger
	metrics *instrumentation.Metrics
	audit   *instrumentation.AuditLogger
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Catalog) { c.logger = logger }
}

// WithMetrics enables per-invocation metrics.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(c *Catalog) { c.metrics = m }
}

// WithAuditLogger enables audit logging of every invocation.
func WithAuditLogger(al *instrumentation.AuditLogger) Option {
	return func(c *Catalog) { c.audit = al }
}

// New creates an empty catalog.
func New(opts ...Option) *Catalog {
	c := &Catalog{
		entries: make(map[string]entry),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Register adds a tool to the catalog. Registering the same name twice is a
// programming error and panics.
func (c *Catalog) Register(tool mcp.Tool, mutating bool, handler Handler) {
	if _, ok := c.entries[tool.Name]; ok {
		panic(fmt.Sprintf("catalog: tool %q registered twice", tool.Name))
	}
	c.entries[tool.Name] = entry{tool: tool, handler: handler, mutating: mutating}
	c.order = append(c.order, tool.Name)
}

// Specs returns the tool schemas in registration order, for the reasoner's
// function-calling specs and for MCP registration.
func (c *Catalog) Specs() []mcp.Tool {
	specs := make([]mcp.Tool, 0, len(c.order))
	for _, name := range c.order {
		specs = append(specs, c.entries[name].tool)
	}
	return specs
}

// Mutating reports whether the named tool has side effects. Unknown tools are
// treated as mutating so the dispatcher serializes them.
func (c *Catalog) Mutating(name string) bool {
	e, ok := c.entries[name]
	if !ok {
		return true
	}
	return e.mutating
}

var _ agent.Dispatcher = (*Catalog)(nil)

// Dispatch validates and executes one tool call. It never returns Go errors
// to the loop: every failure becomes an error result whose kind and message
// the reasoner can read and correct on the next consultation.
func (c *Catalog) Dispatch(ctx context.Context, call agent.ToolCall) agent.ToolResult {
	log := logging.WithTool(c.logger, call.Name)

	if err := ctx.Err(); err != nil {
		return c.errorResult(ctx, call, schedtools.KindCancelled,
			fmt.Errorf("call not executed: %w", err), time.Now())
	}

	start := time.Now()

	e, ok := c.entries[call.Name]
	if !ok {
		log.Warn("unknown tool requested")
		return c.errorResult(ctx, call, schedtools.KindUnknownTool,
			fmt.Errorf("no tool named %q", call.Name), start)
	}

	if err := validateArgs(e.tool.InputSchema, call.Arguments); err != nil {
		log.Warn("argument validation failed", logging.Err(err))
		return c.errorResult(ctx, call, schedtools.KindSchemaError, err, start)
	}

	payload, err := c.invoke(ctx, e, call.Arguments)
	if err != nil {
		kind := schedtools.KindOf(err)
		if kind == "" {
			kind = schedtools.KindInternal
		}
		log.Warn("tool failed", logging.Err(err))
		return c.errorResult(ctx, call, kind, err, start)
	}

	content, err := json.Marshal(payload)
	if err != nil {
		return c.errorResult(ctx, call, schedtools.KindInternal,
			fmt.Errorf("failed to encode result: %w", err), start)
	}

	c.record(ctx, call.Name, instrumentation.StatusSuccess, nil, start)
	log.Debug("tool succeeded", logging.Status(logging.StatusSuccess))
	return agent.ToolResult{ID: call.ID, Content: string(content)}
}

// invoke runs the handler with panic recovery: a panicking tool must not take
// down the whole turn loop.
func (c *Catalog) invoke(ctx context.Context, e entry, args map[string]any) (payload any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tool panicked: %v", r)
		}
	}()
	return e.handler(ctx, args)
}

func (c *Catalog) errorResult(ctx context.Context, call agent.ToolCall, kind schedtools.Kind, err error, start time.Time) agent.ToolResult {
	c.record(ctx, call.Name, instrumentation.StatusError, err, start)
	return agent.ToolResult{
		ID:      call.ID,
		Content: err.Error(),
		IsError: true,
		Kind:    string(kind),
	}
}

func (c *Catalog) record(ctx context.Context, tool, status string, err error, start time.Time) {
	duration := time.Since(start)
	if c.metrics != nil {
		c.metrics.RecordToolInvocation(ctx, tool, status, duration)
	}
	if c.audit != nil {
		ti := instrumentation.NewToolInvocation(tool).WithSpanContext(ctx)
		ti.StartTime = start
		ti.Complete(status == instrumentation.StatusSuccess, err)
		c.audit.LogToolInvocation(ti)
	}
}
