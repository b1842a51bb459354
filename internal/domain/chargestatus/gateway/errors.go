package gateway

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation 调用参数错误，未发出任何请求
	ErrValidation       = errors.New("validation error")
	ErrSignatureMissing = errors.New("response signature missing")
	ErrSignatureInvalid = errors.New("response signature verification failed")
)

// HTTPError 连线成功但闸道回应非 2xx，不重试
type HTTPError struct {
	StatusCode int
	URL        string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP Error: %d", e.StatusCode)
}

// ProtocolError RtnCode 不为 "1"
type ProtocolError struct {
	RtnCode string
	RtnMsg  string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("ICP API RtnCode %s: %s", e.RtnCode, e.RtnMsg)
}
