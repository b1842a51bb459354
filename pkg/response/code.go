package response

// 业务状态码
const (
	CodeSuccess = 0
	CodeError   = 1

	// 鉴权错误 100xx
	ErrAuthFailed   = 10003
	ErrTokenInvalid = 10004
	ErrNoPermission = 10005

	// 订单反查错误 300xx
	ErrOrderNotFound       = 30001
	ErrOrderStatusNotFound = 30002
	ErrGatewayQuery        = 30003

	// 系统错误 500xx
	ErrServerInternal  = 50001
	ErrInvalidParam    = 50002
	ErrTooManyRequests = 50003
	ErrUnavailable     = 50004
)
