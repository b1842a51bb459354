package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 全局配置结构体
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	App       AppConfig       `mapstructure:"app"`
	CORS      CORSConfig      `mapstructure:"cors"`
	ICP       ICPConfig       `mapstructure:"icp"`
	OnlinePay OnlinePayConfig `mapstructure:"online_pay"`
}

type ServerConfig struct {
	Port           string  `mapstructure:"port"`
	Mode           string  `mapstructure:"mode"`
	RateLimitQPS   float64 `mapstructure:"rate_limit_qps"` // 每个 IP
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	Port     string `mapstructure:"port"`
	SSLMode  string `mapstructure:"sslmode"`
	TimeZone string `mapstructure:"timezone"`
}

// DSN 返回 postgres 连接串
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		c.Host, c.User, c.Password, c.DBName, c.Port, c.SSLMode, c.TimeZone)
}

// MigrateURL 返回 golang-migrate 使用的 URL
func (c DatabaseConfig) MigrateURL() string {
	return "postgres://" + c.User + ":" + c.Password + "@" + c.Host + ":" + c.Port + "/" + c.DBName + "?sslmode=" + c.SSLMode
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	Expire int64  `mapstructure:"expire"` // 小时
}

type AppConfig struct {
	Name     string `mapstructure:"name"`
	Env      string `mapstructure:"env"` // local, staging, production
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`
}

// IsProduction 是否正式环境
func (c AppConfig) IsProduction() bool {
	return c.Env == "production"
}

type CORSConfig struct {
	Origins string `mapstructure:"origins"` // 逗号分隔, "*" 表示全部
}

// OriginList 解析 CORS Origins
func (c CORSConfig) OriginList() []string {
	if c.Origins == "" || c.Origins == "*" {
		return []string{"*"}
	}
	var origins []string
	for _, o := range strings.Split(c.Origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// ICPConfig ICP 金流闸道凭证
type ICPConfig struct {
	APIBaseURL           string `mapstructure:"api_base_url"`
	EncKeyID             string `mapstructure:"enc_key_id"`
	PlatformID           string `mapstructure:"platform_id"`
	MerchantID           string `mapstructure:"merchant_id"`
	Timeout              int    `mapstructure:"timeout"` // 秒
	ClientPrivateKeyPath string `mapstructure:"client_private_key_path"`
	ServerPublicKeyPath  string `mapstructure:"server_public_key_path"`
	AESKey               string `mapstructure:"aes_key"`
	AESIV                string `mapstructure:"aes_iv"`
	// LenientPadding 解密时沿用旧系统的宽松去填充，仅供对接测试
	LenientPadding bool `mapstructure:"lenient_padding"`
}

// TimeoutDuration 单次请求超时
func (c ICPConfig) TimeoutDuration() time.Duration {
	if c.Timeout <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Timeout) * time.Second
}

// String 不输出密钥
func (c ICPConfig) String() string {
	return fmt.Sprintf("ICPConfig{APIBaseURL:%s EncKeyID:%s PlatformID:%s MerchantID:%s Timeout:%d AESKey:*** AESIV:***}",
		c.APIBaseURL, c.EncKeyID, c.PlatformID, c.MerchantID, c.Timeout)
}

// OnlinePayConfig OP 钱包与 CTBC 查询配置
type OnlinePayConfig struct {
	StatusURL      string `mapstructure:"status_url"` // OP 订单反查
	MerchantKey    string `mapstructure:"merchant_key"`
	CorporateID    string `mapstructure:"corporate_id"`
	AuthParty      string `mapstructure:"auth_party"`
	EntryMode      string `mapstructure:"entry_mode"`
	CorpID         string `mapstructure:"corp_id"`
	CTBCPaymentURL string `mapstructure:"ctbc_payment_url"`
	Timeout        int    `mapstructure:"timeout"` // 秒
}

// TimeoutDuration 单次请求超时
func (c OnlinePayConfig) TimeoutDuration() time.Duration {
	if c.Timeout <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Timeout) * time.Second
}

// String 不输出商户密钥
func (c OnlinePayConfig) String() string {
	return fmt.Sprintf("OnlinePayConfig{StatusURL:%s CorporateID:%s CorpID:%s CTBCPaymentURL:%s MerchantKey:***}",
		c.StatusURL, c.CorporateID, c.CorpID, c.CTBCPaymentURL)
}

var GlobalConfig Config

// Validate 验证配置
func (c *Config) Validate() error {
	switch c.App.Env {
	case "local", "staging", "production":
	default:
		return fmt.Errorf("app.env must be one of [local staging production], got %q", c.App.Env)
	}

	if c.App.IsProduction() && len(c.JWT.Secret) < 32 {
		return errors.New("JWT secret should be at least 32 characters")
	}

	// 数据库配置验证
	if c.Database.Host == "" || c.Database.User == "" || c.Database.DBName == "" {
		return errors.New("database configuration is incomplete")
	}

	// ICP 已配置时，AES key/iv 必须为 16 字节 (AES-128-CBC)
	if c.ICP.APIBaseURL != "" {
		if len(c.ICP.AESKey) != 16 || len(c.ICP.AESIV) != 16 {
			return errors.New("icp aes_key and aes_iv must be 16 bytes")
		}
		if c.ICP.ClientPrivateKeyPath == "" || c.ICP.ServerPublicKeyPath == "" {
			return errors.New("icp key paths are required")
		}
	}

	return nil
}

// Load 读取配置但不写入全局变量
func Load() (*Config, error) {
	// 兼容旧系统的 .env 文件
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: failed to load .env: %v", err)
	}

	// 获取环境变量，默认为 local
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = os.Getenv("ENVIRONMENT")
	}
	if env == "" {
		env = "local"
	}

	// 根据环境选择配置文件
	configName := "config"
	if env != "local" {
		configName = "config." + env
	}

	v := viper.New()
	v.SetConfigName(configName)
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	// 设置默认值
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.rate_limit_qps", 20)
	v.SetDefault("server.rate_limit_burst", 40)
	v.SetDefault("jwt.expire", 24)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("app.name", "PayChecked Admin")
	v.SetDefault("app.env", env)
	v.SetDefault("app.debug", true)
	v.SetDefault("app.log_level", "info")
	v.SetDefault("cors.origins", "*")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.timezone", "Asia/Taipei")
	v.SetDefault("icp.timeout", 30)
	v.SetDefault("icp.client_private_key_path", "storage/keys/icp_client_private.key")
	v.SetDefault("icp.server_public_key_path", "storage/keys/icp_server_public.pem")
	v.SetDefault("online_pay.timeout", 30)

	if err := v.ReadInConfig(); err != nil {
		log.Printf("Warning: Config file not found, using defaults or env vars: %v", err)
	}

	// 绑定环境变量, 例如 ICP_AES_KEY -> icp.aes_key
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvs(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	// 手动覆盖，兼容旧系统的环境变量名
	if host := os.Getenv("DB_HOST"); host != "" {
		cfg.Database.Host = host
	}
	if redisAddr := os.Getenv("REDIS_ADDR"); redisAddr != "" {
		cfg.Redis.Addr = redisAddr
	}
	if statusURL := os.Getenv("CHARGE_APP_STATUS_URL"); statusURL != "" {
		cfg.OnlinePay.StatusURL = statusURL
	}
	if ctbcURL := os.Getenv("GET_CTBC_OPW_PAYMENT_API_URL"); ctbcURL != "" {
		cfg.OnlinePay.CTBCPaymentURL = ctbcURL
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// legacyEnvs 旧系统的环境变量名，按顺序取第一个有值的
var legacyEnvs = map[string][]string{
	"jwt.secret":            {"JWT_SECRET", "SECRET_KEY"},
	"online_pay.auth_party": {"ONLINE_PAY_AUTH_PARTY", "ONLINE_PAY_AUTH_PAY"},
}

// bindEnvs AutomaticEnv 只对已知 key 生效，Unmarshal 前需显式绑定
func bindEnvs(v *viper.Viper) {
	keys := []string{
		"database.host", "database.user", "database.password", "database.dbname", "database.port",
		"redis.addr", "redis.password",
		"icp.api_base_url", "icp.enc_key_id", "icp.platform_id", "icp.merchant_id",
		"icp.aes_key", "icp.aes_iv", "icp.client_private_key_path", "icp.server_public_key_path",
		"online_pay.status_url", "online_pay.merchant_key", "online_pay.corporate_id",
		"online_pay.entry_mode", "online_pay.corp_id", "online_pay.ctbc_payment_url",
	}
	for _, k := range keys {
		_ = v.BindEnv(k)
	}
	for k, envs := range legacyEnvs {
		_ = v.BindEnv(append([]string{k}, envs...)...)
	}
}

// LoadConfig 加载配置到 GlobalConfig，失败直接退出
func LoadConfig() {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("%v", err)
	}
	GlobalConfig = *cfg

	log.Printf("Configuration loaded and validated successfully. Environment: %s", GlobalConfig.App.Env)
}
