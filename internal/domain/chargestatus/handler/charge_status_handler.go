package handler

import (
	"net/http"
	"strconv"

	"paychecked_admin/internal/domain/chargestatus/model"
	"paychecked_admin/internal/domain/chargestatus/service"
	"paychecked_admin/pkg/response"

	"github.com/gin-gonic/gin"
)

// ChargeStatusHandler 订单反查处理器
type ChargeStatusHandler struct {
	querier service.StatusQuerier
}

func NewChargeStatusHandler(q service.StatusQuerier) *ChargeStatusHandler {
	return &ChargeStatusHandler{querier: q}
}

// BatchInput 批次反查输入，一次最多 50 笔
type BatchInput struct {
	OrderIDs  []string `json:"order_ids" binding:"required,min=1,max=50,dive,required"`
	PayType   string   `json:"pay_type"`
	TradeType int      `json:"trade_type"`
}

// GetStatus 单笔订单反查
// @Summary 订单反查
// @Tags ChargeStatus
// @Produce json
// @Param order_id path string true "订单编号"
// @Param pay_type query string false "ICP / CTBC，其余走 OP"
// @Param trade_type query int false "CTBC 交易类型" default(1)
// @Success 200 {object} response.Response{data=model.QueryResult}
// @Router /charge-status/{order_id} [get]
func (h *ChargeStatusHandler) GetStatus(c *gin.Context) {
	orderID := c.Param("order_id")
	tradeType, err := strconv.Atoi(c.DefaultQuery("trade_type", strconv.Itoa(service.DefaultTradeType)))
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, "trade_type must be an integer")
		return
	}

	result := h.querier.Query(c.Request.Context(), orderID, model.ParseGateway(c.Query("pay_type")), tradeType)
	if !result.Success {
		response.FailWithData(c, errorCode(result), result.Error, result)
		return
	}
	response.Success(c, result)
}

// BatchStatus 批次反查，单笔失败不影响其他订单
// @Summary 批次订单反查
// @Tags ChargeStatus
// @Accept json
// @Produce json
// @Param input body BatchInput true "订单编号列表"
// @Success 200 {object} response.Response{data=[]model.QueryResult}
// @Router /charge-status/batch [post]
func (h *ChargeStatusHandler) BatchStatus(c *gin.Context) {
	var input BatchInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	results := h.querier.QueryMany(c.Request.Context(), input.OrderIDs, model.ParseGateway(input.PayType), input.TradeType)
	response.Success(c, results)
}

func errorCode(result *model.QueryResult) int {
	switch result.Error {
	case service.ErrOrderNotFound.Error():
		return response.ErrOrderNotFound
	case service.ErrOrderStatusNotFound.Error():
		return response.ErrOrderStatusNotFound
	default:
		return response.ErrGatewayQuery
	}
}
