package common

import (
	commonHandler "paychecked_admin/internal/pkg/common"
	"paychecked_admin/internal/pkg/registry"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// CommonModule 通用功能模块
type CommonModule struct{}

func init() {
	registry.Register(&CommonModule{})
}

func (m *CommonModule) Name() string {
	return "common"
}

func (m *CommonModule) Priority() int {
	return 100 // 最后初始化
}

func (m *CommonModule) Init(ctx *registry.ModuleContext) error {
	setupRoutes(ctx.Router, commonHandler.NewHealthHandler(ctx.DB, ctx.Redis))
	return nil
}

func setupRoutes(r *gin.Engine, h *commonHandler.HealthHandler) {
	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
