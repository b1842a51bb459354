package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"paychecked_admin/internal/domain/chargestatus/gateway"
	"paychecked_admin/internal/domain/chargestatus/model"
	"paychecked_admin/internal/domain/chargestatus/repository"
	"paychecked_admin/internal/pkg/config"
	"paychecked_admin/pkg/logger"
	"paychecked_admin/pkg/metrics"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DefaultTradeType CTBC 查询预设交易类型
const DefaultTradeType = 1

// HTTPDoer OP 与 CTBC 使用的无签章 HTTP 呼叫
type HTTPDoer interface {
	PostJSON(ctx context.Context, endpoint string, payload interface{}) (*gateway.HTTPResponse, error)
	Get(ctx context.Context, endpoint string, query url.Values) (*gateway.HTTPResponse, error)
}

type ChargeStatusService interface {
	// Process OP 钱包订单反查
	Process(ctx context.Context, orderID string) *model.QueryResult
	// ProcessCTBC CTBC 订单反查
	ProcessCTBC(ctx context.Context, orderID string, tradeType int) *model.QueryResult
}

type chargeStatusService struct {
	orders   repository.OrderRepository
	statuses repository.OrderStatusRepository
	http     HTTPDoer
	cfg      config.OnlinePayConfig
	metrics  *metrics.MetricsCollector
}

func NewChargeStatusService(
	orders repository.OrderRepository,
	statuses repository.OrderStatusRepository,
	http HTTPDoer,
	cfg config.OnlinePayConfig,
	m *metrics.MetricsCollector,
) ChargeStatusService {
	return &chargeStatusService{
		orders:   orders,
		statuses: statuses,
		http:     http,
		cfg:      cfg,
		metrics:  m,
	}
}

type opStatusRequest struct {
	MerchantKey       string `json:"merchantKey"`
	CorporateID       string `json:"corporateId"`
	MerchantTradeNo   string `json:"merchantTradeNo"`
	AuthParty         string `json:"authParty"`
	EntryMode         string `json:"entryMode"`
	TransName         string `json:"transName"`
	Amount            int    `json:"amount"`
	MerchantTradeDate string `json:"merchantTradeDate"`
	MerchantTradeTime string `json:"merchantTradeTime"`
}

func (s *chargeStatusService) Process(ctx context.Context, orderID string) *model.QueryResult {
	done := s.metrics.TrackQuery(string(model.GatewayOP))

	raw, err := s.processOP(ctx, orderID)
	if err != nil {
		s.logFailure(model.GatewayOP, orderID, err)
		done(false)
		return model.Failed(model.GatewayOP, orderID, err)
	}

	logger.Log.Info("OP charge status query succeeded", zap.String("order_id", orderID), zap.String("res", raw))
	done(true)
	return model.Succeeded(model.GatewayOP, orderID, raw, nil)
}

func (s *chargeStatusService) processOP(ctx context.Context, orderID string) (string, error) {
	order, err := s.findOrder(ctx, orderID)
	if err != nil {
		return "", err
	}
	if s.cfg.StatusURL == "" {
		return "", fmt.Errorf("%w: online pay status url is not configured", gateway.ErrValidation)
	}

	// 闸道金额为应付金额乘以 100
	payload := opStatusRequest{
		MerchantKey:       s.cfg.MerchantKey,
		CorporateID:       s.cfg.CorporateID,
		MerchantTradeNo:   orderID,
		AuthParty:         s.cfg.AuthParty,
		EntryMode:         s.cfg.EntryMode,
		TransName:         "OP錢包x-store訂單編號" + orderID,
		Amount:            order.PayableAmount * 100,
		MerchantTradeDate: order.CreatedAt.Format("20060102"),
		MerchantTradeTime: order.CreatedAt.Format("150405"),
	}

	resp, err := s.http.PostJSON(ctx, s.cfg.StatusURL, payload)
	if err != nil {
		return "", describe(err)
	}
	return string(resp.Body), nil
}

func (s *chargeStatusService) ProcessCTBC(ctx context.Context, orderID string, tradeType int) *model.QueryResult {
	done := s.metrics.TrackQuery(string(model.GatewayCTBC))

	raw, err := s.processCTBC(ctx, orderID, tradeType)
	if err != nil {
		s.logFailure(model.GatewayCTBC, orderID, err)
		done(false)
		return model.Failed(model.GatewayCTBC, orderID, err)
	}

	logger.Log.Info("CTBC charge status query succeeded", zap.String("order_id", orderID), zap.String("res", raw))
	done(true)
	return model.Succeeded(model.GatewayCTBC, orderID, raw, nil)
}

func (s *chargeStatusService) processCTBC(ctx context.Context, orderID string, tradeType int) (string, error) {
	order, err := s.findOrder(ctx, orderID)
	if err != nil {
		return "", err
	}

	paid, err := s.statuses.GetByOrderID(ctx, orderID, model.StatusPaid)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrOrderStatusNotFound
	}
	if err != nil {
		return "", fmt.Errorf("query order status: %w", err)
	}

	if s.cfg.CTBCPaymentURL == "" {
		return "", fmt.Errorf("%w: ctbc payment url is not configured", gateway.ErrValidation)
	}
	base := s.cfg.CTBCPaymentURL
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}

	query := url.Values{}
	setParam(query, "corpID", s.cfg.CorpID)
	setParam(query, "merchantTradeNo", orderID)
	setParam(query, "bankSeq", orderID)
	setParam(query, "amount", strconv.Itoa(order.PayableAmount))
	setParam(query, "walletSeq", walletSeq(orderID, paid.Content))
	setParam(query, "tradeType", strconv.Itoa(tradeType))

	resp, err := s.http.Get(ctx, base+"order_query", query)
	if err != nil {
		return "", describe(err)
	}
	return string(resp.Body), nil
}

func (s *chargeStatusService) findOrder(ctx context.Context, orderID string) (*model.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order: %w", err)
	}
	return order, nil
}

func (s *chargeStatusService) logFailure(gw model.Gateway, orderID string, err error) {
	fields := []zap.Field{
		zap.String("order_id", orderID),
		zap.String("gateway", string(gw)),
		zap.Error(err),
	}
	var herr *gateway.HTTPError
	if errors.As(err, &herr) {
		fields = append(fields, zap.Int("status", herr.StatusCode))
	}
	logger.Log.Error("Charge status query failed", fields...)
}

// setParam 空值不送出
func setParam(q url.Values, key, value string) {
	if value != "" {
		q.Set(key, value)
	}
}

// walletSeq 从付款状态附属讯息取出 walletSeq，内容无法解析时视为空物件
func walletSeq(orderID string, content *string) string {
	if content == nil {
		return ""
	}

	dec := json.NewDecoder(strings.NewReader(*content))
	dec.UseNumber()
	var fields map[string]interface{}
	if err := dec.Decode(&fields); err != nil {
		logger.Log.Warn("Order status content is not JSON", zap.String("order_id", orderID), zap.Error(err))
		return ""
	}

	// 只接受字串与数字，其余型别不送出
	switch v := fields["walletSeq"].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case nil:
		return ""
	default:
		logger.Log.Warn("Unexpected walletSeq type", zap.String("order_id", orderID), zap.String("type", fmt.Sprintf("%T", v)))
		return ""
	}
}
