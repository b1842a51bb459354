package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// TraceKey gin.Context 中追踪 ID 的键，由 TraceMiddleware 写入
const TraceKey = "traceID"

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`    // 业务码
	Message string      `json:"message"` // 提示信息
	Data    interface{} `json:"data"`
	TraceID string      `json:"trace_id,omitempty"`
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	Write(c, http.StatusOK, CodeSuccess, "success", data)
}

// Error 错误响应，不附带数据
func Error(c *gin.Context, httpCode int, errCode int, msg string) {
	Write(c, httpCode, errCode, msg, nil)
}

// FailWithData 业务失败 (HTTP 200, 业务码非 0)，data 为失败的反查结果
func FailWithData(c *gin.Context, errCode int, msg string, data interface{}) {
	Write(c, http.StatusOK, errCode, msg, data)
}

func Write(c *gin.Context, httpCode int, code int, msg string, data interface{}) {
	c.JSON(httpCode, Response{
		Code:    code,
		Message: msg,
		Data:    data,
		TraceID: c.GetString(TraceKey),
	})
}
