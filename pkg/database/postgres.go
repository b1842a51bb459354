package database

import (
	"database/sql"
	"fmt"
	"time"

	"paychecked_admin/internal/pkg/config"
	"paychecked_admin/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// InitDatabase 初始化数据库连接，本服务只读取订单资料
func InitDatabase(cfg config.DatabaseConfig, debug bool) (*gorm.DB, error) {
	level := gormLogger.Warn
	if debug {
		level = gormLogger.Info
	}

	gormConfig := &gorm.Config{
		Logger:      gormLogger.Default.LogMode(level),
		PrepareStmt: true, // 预编译 SQL 缓存
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	// 获取底层 SQL DB 对象以配置连接池
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get underlying sql.DB: %w", err)
	}
	configureConnectionPool(sqlDB)

	logger.Log.Info("Database connected", zap.String("host", cfg.Host), zap.String("dbname", cfg.DBName))
	return db, nil
}

// configureConnectionPool 配置数据库连接池
func configureConnectionPool(sqlDB *sql.DB) {
	// 反查流量不大，连接数保守设置
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(time.Minute * 30)
}

// Close 关闭底层连接
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
