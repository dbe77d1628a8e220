// Package adapter maps tool invocations onto single Notion API calls and
// runs each call under the retry policy.
package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/roivaz/notion-chakra-mcp/internal/logging"
	"github.com/roivaz/notion-chakra-mcp/internal/notion"
	"github.com/roivaz/notion-chakra-mcp/internal/retry"
)

// ToolRequest names an operation and carries its arguments.
type ToolRequest struct {
	Operation string
	Params    Params
}

// Failure describes why an invocation did not succeed.
type Failure struct {
	Kind     notion.Kind `json:"kind"`
	Message  string      `json:"message"`
	Attempts int         `json:"attempts"`
	Err      error       `json:"-"`
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

func (f *Failure) Unwrap() error { return f.Err }

// ToolResult holds either the Notion response or a Failure.
type ToolResult struct {
	Operation string
	Payload   json.RawMessage
	Attempts  int
	Failure   *Failure
}

// OK reports whether the invocation succeeded.
func (r ToolResult) OK() bool { return r.Failure == nil }

// Outcome is the low cardinality label used for metrics.
func (r ToolResult) Outcome() string {
	if r.Failure == nil {
		return "success"
	}
	return string(r.Failure.Kind)
}

// Recorder receives per invocation measurements.
type Recorder interface {
	RecordToolCall(ctx context.Context, operation, outcome string, attempts int, elapsed time.Duration)
	RecordRetry(ctx context.Context, operation string)
}

type noopRecorder struct{}

func (noopRecorder) RecordToolCall(context.Context, string, string, int, time.Duration) {}

func (noopRecorder) RecordRetry(context.Context, string) {}

// Config wires the adapter's collaborators.
type Config struct {
	Policy   retry.Policy
	Logger   logging.Logger
	Recorder Recorder
}

// Adapter is stateless between invocations and safe for concurrent use.
type Adapter struct {
	api      API
	policy   retry.Policy
	log      logging.Logger
	recorder Recorder
	tracer   trace.Tracer
}

func New(api API, cfg Config) *Adapter {
	if cfg.Recorder == nil {
		cfg.Recorder = noopRecorder{}
	}
	if cfg.Policy.MaxAttempts < 1 {
		cfg.Policy = retry.DefaultPolicy()
	}
	return &Adapter{
		api:      api,
		policy:   cfg.Policy,
		log:      cfg.Logger.WithName("adapter"),
		recorder: cfg.Recorder,
		tracer:   otel.Tracer("github.com/roivaz/notion-chakra-mcp/internal/adapter"),
	}
}

// Operations lists the registered operation names.
func Operations() []string {
	names := make([]string, 0, len(operations))
	for name := range operations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Execute runs req and always returns exactly one result. Invalid requests
// fail with zero attempts; transient Notion failures are retried up to the
// policy's attempt ceiling.
func (a *Adapter) Execute(ctx context.Context, req ToolRequest) ToolResult {
	start := time.Now()
	ctx, span := a.tracer.Start(ctx, "tool "+req.Operation,
		trace.WithAttributes(attribute.String("tool.operation", req.Operation)))
	defer span.End()

	res := a.execute(ctx, req)

	span.SetAttributes(attribute.Int("tool.attempts", res.Attempts))
	if res.Failure != nil {
		span.SetStatus(codes.Error, res.Failure.Message)
		span.SetAttributes(attribute.String("tool.failure_kind", string(res.Failure.Kind)))
	}
	a.recorder.RecordToolCall(ctx, req.Operation, res.Outcome(), res.Attempts, time.Since(start))
	return res
}

func (a *Adapter) execute(ctx context.Context, req ToolRequest) ToolResult {
	log := a.log.WithValues("operation", req.Operation)

	bind, ok := operations[req.Operation]
	if !ok {
		return failed(req.Operation, 0, &notion.ParamError{
			Param:   "operation",
			Message: fmt.Sprintf("unknown operation %q", req.Operation),
		})
	}
	fn, err := bind(a.api, req.Params)
	if err != nil {
		log.Debug("rejected invalid request", "error", err.Error())
		return failed(req.Operation, 0, err)
	}

	policy := a.policy
	policy.OnRetry = func(attempt int, delay time.Duration, err error) {
		a.recorder.RecordRetry(ctx, req.Operation)
		log.Info("transient notion failure, backing off", "attempt", attempt, "delay", delay.String(), "error", err.Error())
	}

	payload, attempts, err := retry.Do(ctx, policy, notion.IsTransient, fn)
	if err != nil {
		res := failed(req.Operation, attempts, err)
		log.Info("tool invocation failed", "kind", res.Failure.Kind, "attempts", attempts, "error", err.Error())
		return res
	}
	log.Debug("tool invocation succeeded", "attempts", attempts)
	return ToolResult{Operation: req.Operation, Payload: payload, Attempts: attempts}
}

func failed(operation string, attempts int, err error) ToolResult {
	kind := notion.Classify(err)
	var (
		exhausted *retry.ExhaustedError
		aborted   *retry.AbortedError
	)
	switch {
	case errors.As(err, &aborted):
		kind = notion.KindCanceled
	case errors.As(err, &exhausted):
		kind = notion.KindTransient
	}
	return ToolResult{
		Operation: operation,
		Attempts:  attempts,
		Failure: &Failure{
			Kind:     kind,
			Message:  err.Error(),
			Attempts: attempts,
			Err:      err,
		},
	}
}
