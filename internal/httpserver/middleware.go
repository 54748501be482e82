package httpserver

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"projecthub/internal/handler"
	"projecthub/internal/service"
	"projecthub/pkg/logger"
	"projecthub/pkg/metrics"
	"projecthub/pkg/reporter"
	"projecthub/pkg/trace"
	"projecthub/pkg/util"
)

// TraceMiddleware 复用上游传入的 X-Trace-ID，没有则生成一个新的
func TraceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, traceID := trace.Ensure(c.Request.Context(), c.GetHeader(trace.Header))
		c.Request = c.Request.WithContext(ctx)
		c.Header(trace.Header, traceID)
		c.Next()
	}
}

// RequestLogMiddleware 请求日志 + 延迟指标
func RequestLogMiddleware(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.RecordHTTPRequestDuration(c.Request.Method, route, strconv.Itoa(status), latency)

		logger.WithTrace(c.Request.Context(), log).Info("HTTP Request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", status),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
			zap.String("user_agent", c.Request.UserAgent()),
		)
	}
}

// RecoveryMiddleware 捕获 panic，记录日志并上报 Sentry
func RecoveryMiddleware(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				err := fmt.Errorf("panic: %v", r)
				logger.WithTrace(c.Request.Context(), log).Error("Recovered from panic",
					zap.String("path", c.Request.URL.Path),
					zap.Any("panic", r),
					zap.Stack("stack"),
				)
				reporter.Capture(c.Request.Context(), err, map[string]string{"path": c.FullPath()})
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			}
		}()
		c.Next()
	}
}

// AuthMiddleware 校验 access token，并把调用者身份写入 gin context
func AuthMiddleware(auth *service.AuthService, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := util.ExtractToken(c.Request)
		principal, claims, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			handler.RespondError(c, log, "Authenticate", err)
			c.Abort()
			return
		}

		handler.SetPrincipal(c, principal, claims)
		c.Next()
	}
}
