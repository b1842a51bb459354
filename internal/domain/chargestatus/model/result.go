package model

// Gateway 金流闸道
type Gateway string

const (
	GatewayICP  Gateway = "ICP"
	GatewayOP   Gateway = "OP"
	GatewayCTBC Gateway = "CTBC"
)

// ParseGateway 付款方式字串转闸道，ICP / CTBC 以外一律走 OP
func ParseGateway(payType string) Gateway {
	switch Gateway(payType) {
	case GatewayICP:
		return GatewayICP
	case GatewayCTBC:
		return GatewayCTBC
	default:
		return GatewayOP
	}
}

// QueryResult 订单反查结果，三种闸道共用
type QueryResult struct {
	Success     bool        `json:"success"`
	OrderID     string      `json:"order_id"`
	Gateway     Gateway     `json:"gateway"`
	RawResponse *string     `json:"raw_response"`
	Data        interface{} `json:"data"`
	Error       string      `json:"error,omitempty"`
}

// Succeeded 成功结果
func Succeeded(gateway Gateway, orderID string, raw string, data interface{}) *QueryResult {
	return &QueryResult{
		Success:     true,
		OrderID:     orderID,
		Gateway:     gateway,
		RawResponse: &raw,
		Data:        data,
	}
}

// Failed 失败结果，error 一定有值
func Failed(gateway Gateway, orderID string, err error) *QueryResult {
	msg := "unknown error"
	if err != nil && err.Error() != "" {
		msg = err.Error()
	}
	return &QueryResult{
		Success: false,
		OrderID: orderID,
		Gateway: gateway,
		Error:   msg,
	}
}
