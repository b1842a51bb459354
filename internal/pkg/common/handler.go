package handler

import (
	"context"
	"net/http"
	"time"

	"paychecked_admin/pkg/database"
	"paychecked_admin/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const (
	statusOK       = "ok"
	statusDown     = "down"
	statusDisabled = "disabled"
)

// HealthHandler 依赖连线检查
type HealthHandler struct {
	db      *gorm.DB
	rdb     *redis.Client
	timeout time.Duration
}

// NewHealthHandler rdb 可为 nil
func NewHealthHandler(db *gorm.DB, rdb *redis.Client) *HealthHandler {
	return &HealthHandler{db: db, rdb: rdb, timeout: 3 * time.Second}
}

// HealthStatus 健康检查结果
type HealthStatus struct {
	Status string              `json:"status"`
	Checks map[string]string   `json:"checks"`
	DBPool *database.PoolStats `json:"db_pool,omitempty"`
}

// Health 健康检查
// @Summary 健康检查
// @Tags Common
// @Produce json
// @Success 200 {object} response.Response{data=HealthStatus}
// @Failure 503 {object} response.Response{data=HealthStatus}
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	status := h.Check(ctx)
	if status.Status != statusOK {
		response.Write(c, http.StatusServiceUnavailable, response.ErrUnavailable, "service unavailable", status)
		return
	}
	response.Success(c, status)
}

// Check 数据库 SELECT 1，Redis PING
func (h *HealthHandler) Check(ctx context.Context) *HealthStatus {
	status := &HealthStatus{Status: statusOK, Checks: map[string]string{}}

	if err := h.db.WithContext(ctx).Exec("SELECT 1").Error; err != nil {
		status.Checks["database"] = statusDown
		status.Status = statusDown
	} else {
		status.Checks["database"] = statusOK
	}
	if stats, err := database.GetPoolStats(h.db); err == nil {
		status.DBPool = stats
	}

	switch {
	case h.rdb == nil:
		status.Checks["redis"] = statusDisabled
	case h.rdb.Ping(ctx).Err() != nil:
		status.Checks["redis"] = statusDown
		status.Status = statusDown
	default:
		status.Checks["redis"] = statusOK
	}

	return status
}
