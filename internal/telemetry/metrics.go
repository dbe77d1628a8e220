package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records tool invocation counters and latencies.
type Metrics struct {
	calls    metric.Int64Counter
	attempts metric.Int64Counter
	retries  metric.Int64Counter
	duration metric.Float64Histogram
}

// NewMetrics creates the instruments on the given meter provider.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	meter := mp.Meter("github.com/roivaz/notion-chakra-mcp")
	m := &Metrics{}

	var err error
	m.calls, err = meter.Int64Counter(
		"notion_mcp_tool_calls",
		metric.WithDescription("Tool invocations by operation and outcome"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	m.attempts, err = meter.Int64Counter(
		"notion_mcp_call_attempts",
		metric.WithDescription("Notion API attempts made on behalf of tool invocations"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, err
	}

	m.retries, err = meter.Int64Counter(
		"notion_mcp_retries",
		metric.WithDescription("Backoff waits taken after transient Notion failures"),
		metric.WithUnit("{retry}"),
	)
	if err != nil {
		return nil, err
	}

	m.duration, err = meter.Float64Histogram(
		"notion_mcp_tool_duration_seconds",
		metric.WithDescription("Tool invocation latency including retries"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// RecordToolCall records one finished invocation.
func (m *Metrics) RecordToolCall(ctx context.Context, operation, outcome string, attempts int, elapsed time.Duration) {
	if m == nil {
		return
	}
	opAttr := attribute.String("operation", operation)
	m.calls.Add(ctx, 1, metric.WithAttributes(opAttr, attribute.String("outcome", outcome)))
	if attempts > 0 {
		m.attempts.Add(ctx, int64(attempts), metric.WithAttributes(opAttr))
	}
	m.duration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(opAttr, attribute.String("outcome", outcome)))
}

// RecordRetry records one backoff wait.
func (m *Metrics) RecordRetry(ctx context.Context, operation string) {
	if m == nil {
		return
	}
	m.retries.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", operation)))
}
