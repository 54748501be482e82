package reporter

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"

	"projecthub/pkg/config"
	"projecthub/pkg/trace"
)

var enabled bool

// Init 初始化 Sentry；DSN 为空时所有上报都是空操作
func Init(cfg config.SentryConfig, release string, logger *zap.Logger) error {
	if cfg.DSN == "" {
		logger.Info("Sentry disabled, no DSN configured")
		return nil
	}

	sampleRate := cfg.SampleRate
	if sampleRate <= 0 {
		sampleRate = 1.0
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.DSN,
		Environment: cfg.Environment,
		Release:     release,
		SampleRate:  sampleRate,
	})
	if err != nil {
		return err
	}

	enabled = true
	logger.Info("Sentry initialized", zap.String("environment", cfg.Environment))
	return nil
}

// Capture 上报一个错误，并附带 trace_id 与额外字段
func Capture(ctx context.Context, err error, tags map[string]string) {
	if !enabled || err == nil {
		return
	}

	sentry.WithScope(func(scope *sentry.Scope) {
		if traceID := trace.FromContext(ctx); traceID != "" {
			scope.SetTag(trace.TraceIDKey, traceID)
		}
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		sentry.CaptureException(err)
	})
}

// Breadcrumb 记录一条面包屑，出现错误时随事件一起上报
func Breadcrumb(category, message string, data map[string]interface{}) {
	if !enabled {
		return
	}
	sentry.AddBreadcrumb(&sentry.Breadcrumb{
		Type:      "info",
		Category:  category,
		Message:   message,
		Data:      data,
		Timestamp: time.Now(),
	})
}

// Flush 在进程退出前等待事件发送完成
func Flush(timeout time.Duration) {
	if enabled {
		sentry.Flush(timeout)
	}
}
