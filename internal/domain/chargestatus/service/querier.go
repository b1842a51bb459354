package service

import (
	"context"

	"paychecked_admin/internal/domain/chargestatus/model"
	"paychecked_admin/internal/pkg/worker"
)

// StatusQuerier 依付款方式分派到对应闸道
type StatusQuerier interface {
	Query(ctx context.Context, orderID string, gw model.Gateway, tradeType int) *model.QueryResult
	// QueryMany 并发查询多笔订单，结果顺序与输入一致
	QueryMany(ctx context.Context, orderIDs []string, gw model.Gateway, tradeType int) []*model.QueryResult
}

type statusQuerier struct {
	icp       ICPService
	charge    ChargeStatusService
	workerNum int
}

func NewStatusQuerier(icp ICPService, charge ChargeStatusService, workerNum int) StatusQuerier {
	return &statusQuerier{icp: icp, charge: charge, workerNum: workerNum}
}

func (q *statusQuerier) Query(ctx context.Context, orderID string, gw model.Gateway, tradeType int) *model.QueryResult {
	switch gw {
	case model.GatewayICP:
		return q.icp.GetTradeStatus(ctx, orderID)
	case model.GatewayCTBC:
		if tradeType == 0 {
			tradeType = DefaultTradeType
		}
		return q.charge.ProcessCTBC(ctx, orderID, tradeType)
	default:
		return q.charge.Process(ctx, orderID)
	}
}

func (q *statusQuerier) QueryMany(ctx context.Context, orderIDs []string, gw model.Gateway, tradeType int) []*model.QueryResult {
	pool := worker.NewWorkerPool(func(ctx context.Context, orderID string) *model.QueryResult {
		return q.Query(ctx, orderID, gw, tradeType)
	}, q.workerNum)
	return pool.Run(ctx, orderIDs)
}
