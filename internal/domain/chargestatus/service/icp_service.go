package service

import (
	"context"
	"fmt"

	"paychecked_admin/internal/domain/chargestatus/gateway"
	"paychecked_admin/internal/domain/chargestatus/model"
	"paychecked_admin/internal/pkg/config"
	"paychecked_admin/pkg/logger"
	"paychecked_admin/pkg/metrics"

	"go.uber.org/zap"
)

// apiTradeStatus ICP 订单查询 API
const apiTradeStatus = "ICPO005"

// ICPGateway ICP 加密往返
type ICPGateway interface {
	Call(ctx context.Context, apiURL string, data interface{}, extra map[string]string) (*gateway.Response, error)
}

type ICPService interface {
	GetTradeStatus(ctx context.Context, orderID string) *model.QueryResult
}

type icpService struct {
	gateway ICPGateway
	cfg     config.ICPConfig
	metrics *metrics.MetricsCollector
}

func NewICPService(gw ICPGateway, cfg config.ICPConfig, m *metrics.MetricsCollector) ICPService {
	return &icpService{gateway: gw, cfg: cfg, metrics: m}
}

type tradeStatusRequest struct {
	PlatformID      string `json:"PlatformID"`
	MerchantID      string `json:"MerchantID"`
	MerchantTradeNo string `json:"MerchantTradeNo"`
}

// GetTradeStatus 以订单编号查询 ICP 交易状态
func (s *icpService) GetTradeStatus(ctx context.Context, orderID string) *model.QueryResult {
	done := s.metrics.TrackQuery(string(model.GatewayICP))

	if orderID == "" {
		err := fmt.Errorf("%w: order id is empty", gateway.ErrValidation)
		logger.Log.Error("ICP trade status query rejected", zap.String("order_id", orderID), zap.Error(err))
		done(false)
		return model.Failed(model.GatewayICP, orderID, err)
	}

	req := tradeStatusRequest{
		PlatformID:      s.cfg.PlatformID,
		MerchantID:      s.cfg.MerchantID,
		MerchantTradeNo: orderID,
	}
	resp, err := s.gateway.Call(ctx, s.cfg.APIBaseURL+apiTradeStatus, req, nil)
	if err != nil {
		err = describe(err)
		logger.Log.Error("ICP trade status query failed",
			zap.String("order_id", orderID),
			zap.String("gateway", string(model.GatewayICP)),
			zap.Error(err),
		)
		done(false)
		return model.Failed(model.GatewayICP, orderID, err)
	}

	logger.Log.Info("ICP trade status query succeeded", zap.String("order_id", orderID))
	done(true)
	return model.Succeeded(model.GatewayICP, orderID, resp.Body, resp.Payload)
}
