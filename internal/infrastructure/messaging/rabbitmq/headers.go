package rabbitmq

import (
	"context"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// tableCarrier adapts AMQP message headers to the otel propagation API.
type tableCarrier amqp.Table

func (c tableCarrier) Get(key string) string {
	if v, ok := c[key].(string); ok {
		return v
	}
	return ""
}

func (c tableCarrier) Set(key, value string) { c[key] = value }

func (c tableCarrier) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	return keys
}

var _ propagation.TextMapCarrier = tableCarrier{}

// traceHeaders returns headers carrying the trace context of ctx, or nil.
func traceHeaders(ctx context.Context) amqp.Table {
	h := amqp.Table{}
	otel.GetTextMapPropagator().Inject(ctx, tableCarrier(h))
	if len(h) == 0 {
		return nil
	}
	return h
}

// withRemoteTrace continues the trace found in the delivery headers.
func withRemoteTrace(ctx context.Context, h amqp.Table) context.Context {
	if len(h) == 0 {
		return ctx
	}
	return otel.GetTextMapPropagator().Extract(ctx, tableCarrier(h))
}
