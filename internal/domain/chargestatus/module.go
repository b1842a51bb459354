package chargestatus

import (
	"paychecked_admin/internal/domain/chargestatus/gateway"
	"paychecked_admin/internal/domain/chargestatus/handler"
	"paychecked_admin/internal/domain/chargestatus/repository"
	"paychecked_admin/internal/domain/chargestatus/service"
	"paychecked_admin/internal/pkg/config"
	"paychecked_admin/internal/pkg/middleware"
	"paychecked_admin/internal/pkg/registry"
	"paychecked_admin/pkg/metrics"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// DefaultWorkerNum 批次反查并发数
const DefaultWorkerNum = 8

// ChargeStatusModule 订单反查模块
type ChargeStatusModule struct{}

func init() {
	registry.Register(&ChargeStatusModule{})
}

func (m *ChargeStatusModule) Name() string {
	return "chargestatus"
}

func (m *ChargeStatusModule) Priority() int {
	return 10
}

func (m *ChargeStatusModule) Init(ctx *registry.ModuleContext) error {
	// 1. 依赖注入
	querier := NewStatusQuerier(ctx.DB, ctx.Config, ctx.Metrics)
	h := handler.NewChargeStatusHandler(querier)

	// 2. 路由注册
	setupRoutes(ctx.Router, h, ctx.Config.JWT.Secret)
	return nil
}

// NewStatusQuerier 组装三种闸道的反查服务，CLI 与 HTTP 共用
func NewStatusQuerier(db *gorm.DB, cfg *config.Config, m *metrics.MetricsCollector) service.StatusQuerier {
	icpClient := gateway.NewICPClientFromConfig(cfg.ICP, gateway.WithMetrics(m))
	icpService := service.NewICPService(icpClient, cfg.ICP, m)

	opClient := gateway.NewHTTPClient("ONLINE_PAY", cfg.OnlinePay.TimeoutDuration(), gateway.WithMetrics(m))
	chargeService := service.NewChargeStatusService(
		repository.NewOrderRepository(db),
		repository.NewOrderStatusRepository(db),
		opClient,
		cfg.OnlinePay,
		m,
	)

	return service.NewStatusQuerier(icpService, chargeService, DefaultWorkerNum)
}

func setupRoutes(r *gin.Engine, h *handler.ChargeStatusHandler, secret string) {
	g := r.Group("/charge-status")
	g.Use(middleware.AuthMiddleware(secret), middleware.AdminMiddleware())
	{
		g.POST("/batch", h.BatchStatus)
		g.GET("/:order_id", h.GetStatus)
	}
}
