package outbox

import (
	"context"
	"encoding/json"

	"projecthub/pkg/trace"
)

// NewEvent 构造一个 pending 事件，payload 中带上 ctx 的 trace_id
func NewEvent(ctx context.Context, aggregateType string, aggregateID int64, routingKey string, payload map[string]interface{}) (*Event, error) {
	if traceID := trace.FromContext(ctx); traceID != "" {
		payload["trace_id"] = traceID
	}
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	id := aggregateID
	return &Event{
		AggregateType: aggregateType,
		AggregateID:   &id,
		RoutingKey:    routingKey,
		Payload:       payloadJSON,
		Status:        StatusPending,
	}, nil
}

// traceContext 从 payload 中提取 trace_id（如果存在）
func traceContext(ctx context.Context, payload json.RawMessage) context.Context {
	var fields struct {
		TraceID string `json:"trace_id"`
	}
	if err := json.Unmarshal(payload, &fields); err != nil || fields.TraceID == "" {
		return ctx
	}
	return trace.WithContext(ctx, fields.TraceID)
}
