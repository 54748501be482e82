// Package trace 在 context、HTTP header、日志与 outbox 消息之间传递 trace ID
package trace

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

const (
	// TraceIDKey 日志字段、Sentry tag 与 outbox payload 中使用的键
	TraceIDKey = "trace_id"
	// Header HTTP 与 AMQP header 名称
	Header = "X-Trace-ID"

	maxLength = 64
)

type contextKey struct{}

// GenerateTraceID 生成一个新的 trace ID
func GenerateTraceID() string {
	return uuid.NewString()
}

// FromContext 从 context 中获取 trace_id
func FromContext(ctx context.Context) string {
	if traceID, ok := ctx.Value(contextKey{}).(string); ok {
		return traceID
	}
	return ""
}

// WithContext 将 trace_id 添加到 context 中
func WithContext(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, contextKey{}, traceID)
}

// Ensure 优先使用上游传入的 ID（经过清洗），其次沿用 ctx 中已有的，
// 都没有时生成新的
func Ensure(ctx context.Context, incoming string) (context.Context, string) {
	if id := sanitize(incoming); id != "" {
		return WithContext(ctx, id), id
	}
	if id := FromContext(ctx); id != "" {
		return ctx, id
	}
	id := GenerateTraceID()
	return WithContext(ctx, id), id
}

// 只接受字母数字与 -_. ，超长或含其他字符的一律丢弃，避免污染日志
func sanitize(id string) string {
	id = strings.TrimSpace(id)
	if id == "" || len(id) > maxLength {
		return ""
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-' || r == '_' || r == '.':
		default:
			return ""
		}
	}
	return id
}
