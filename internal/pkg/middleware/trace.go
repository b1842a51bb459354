package middleware

import (
	"paychecked_admin/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	HeaderTraceID = "X-Trace-ID"
	ContextTrace  = response.TraceKey
)

// TraceMiddleware 添加请求追踪ID
func TraceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// 尝试从请求头获取 TraceID，如果没有则生成新的
		traceID := c.GetHeader(HeaderTraceID)
		if traceID == "" {
			traceID = uuid.New().String()
		}

		c.Set(ContextTrace, traceID)
		c.Header(HeaderTraceID, traceID)

		c.Next()
	}
}

// GetTraceID 未经过 TraceMiddleware 时返回空字串
func GetTraceID(c *gin.Context) string {
	return c.GetString(ContextTrace)
}
