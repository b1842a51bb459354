package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "paychecked_admin/internal/domain/chargestatus"
	_ "paychecked_admin/internal/domain/common"
	"paychecked_admin/internal/pkg/config"
	"paychecked_admin/internal/pkg/middleware"
	"paychecked_admin/internal/pkg/registry"
	"paychecked_admin/pkg/database"
	"paychecked_admin/pkg/logger"
	"paychecked_admin/pkg/metrics"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func main() {
	config.LoadConfig()
	cfg := &config.GlobalConfig

	if err := logger.InitLogger(cfg.App.Env, cfg.App.LogLevel); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()

	logger.Log.Info("Starting server",
		zap.String("env", cfg.App.Env),
		zap.Stringer("icp", cfg.ICP),
		zap.Stringer("online_pay", cfg.OnlinePay),
	)

	db, err := database.InitDatabase(cfg.Database, cfg.App.Debug)
	if err != nil {
		logger.Log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close(db)

	// Redis 只用于健康检查，连不上时降级
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		if rdb, err = database.InitRedis(cfg.Redis); err != nil {
			logger.Log.Warn("Redis unavailable, continuing without it", zap.Error(err))
			rdb = nil
		} else {
			defer rdb.Close()
		}
	}

	collector := metrics.GetGlobalCollector()
	if err := database.RegisterPoolMetrics(db, cfg.Database.DBName, nil); err != nil {
		logger.Log.Warn("Failed to register db pool metrics", zap.Error(err))
	}

	gin.SetMode(cfg.Server.Mode)
	r := gin.New()

	limiter := middleware.NewIPRateLimiter(rate.Limit(cfg.Server.RateLimitQPS), cfg.Server.RateLimitBurst)
	r.Use(
		middleware.RecoveryMiddleware(),
		middleware.TraceMiddleware(),
		middleware.LoggerMiddleware(),
		middleware.MetricsMiddleware(collector),
		middleware.SecurityHeadersMiddleware(),
		cors.New(corsConfig(cfg.CORS)),
		middleware.RateLimitMiddleware(limiter),
	)

	if err := registry.InitModules(&registry.ModuleContext{
		Config:  cfg,
		DB:      db,
		Redis:   rdb,
		Router:  r,
		Metrics: collector,
	}); err != nil {
		logger.Log.Fatal("Failed to init modules", zap.Error(err))
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Log.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal("Server failed", zap.Error(err))
		}
	}()

	// 定期清理闲置 IP 的限流器
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := limiter.Cleanup(30 * time.Minute); n > 0 {
					logger.Log.Debug("Rate limiter cleanup", zap.Int("removed", n))
				}
			}
		}
	}()

	<-ctx.Done()
	logger.Log.Info("Shutting down server")

	// 批次反查可能包含重试等待，预留足够时间
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}
	logger.Log.Info("Server exited")
}

func corsConfig(c config.CORSConfig) cors.Config {
	cc := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderTraceID},
		ExposeHeaders: []string{middleware.HeaderTraceID},
		MaxAge:        12 * time.Hour,
	}
	origins := c.OriginList()
	if len(origins) == 1 && origins[0] == "*" {
		cc.AllowAllOrigins = true
	} else {
		cc.AllowOrigins = origins
		cc.AllowCredentials = true
	}
	return cc
}
