package middleware

import (
	"net/http"
	"time"

	"paychecked_admin/pkg/logger"
	"paychecked_admin/pkg/metrics"
	"paychecked_admin/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// MetricsMiddleware 记录 HTTP 请求数与耗时，endpoint 使用路由模板避免标签爆炸
func MetricsMiddleware(collector *metrics.MetricsCollector) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		collector.RecordHTTPRequest(c.Request.Method, endpoint, c.Writer.Status(), time.Since(start))
	}
}

// RecoveryMiddleware panic 时记录日志并返回统一错误
func RecoveryMiddleware() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.Log.Error("panic recovered",
			zap.Any("panic", recovered),
			zap.String("path", c.Request.URL.Path),
			zap.String("trace_id", GetTraceID(c)),
		)
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, "internal server error")
		c.Abort()
	})
}

// SecurityHeadersMiddleware 安全头中间件
func SecurityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Cache-Control", "no-store")

		c.Next()
	}
}
