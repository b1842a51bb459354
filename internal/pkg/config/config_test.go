package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		Database: DatabaseConfig{Host: "localhost", User: "postgres", DBName: "paychecked"},
		App:      AppConfig{Env: "local"},
	}
}

func TestValidate(t *testing.T) {
	t.Run("Valid local config", func(t *testing.T) {
		cfg := validConfig()
		assert.NoError(t, cfg.Validate())
	})

	t.Run("Unknown env", func(t *testing.T) {
		cfg := validConfig()
		cfg.App.Env = "dev"
		assert.Error(t, cfg.Validate())
	})

	t.Run("Production requires long JWT secret", func(t *testing.T) {
		cfg := validConfig()
		cfg.App.Env = "production"
		cfg.JWT.Secret = "short"
		assert.Error(t, cfg.Validate())

		cfg.JWT.Secret = strings.Repeat("s", 32)
		assert.NoError(t, cfg.Validate())
	})

	t.Run("Incomplete database", func(t *testing.T) {
		cfg := validConfig()
		cfg.Database.DBName = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("ICP AES key must be 16 bytes", func(t *testing.T) {
		cfg := validConfig()
		cfg.ICP = ICPConfig{
			APIBaseURL:           "https://icp.test/",
			AESKey:               "0123456789abcdef",
			AESIV:                "short",
			ClientPrivateKeyPath: "a.key",
			ServerPublicKeyPath:  "b.pem",
		}
		assert.Error(t, cfg.Validate())

		cfg.ICP.AESIV = "fedcba9876543210"
		assert.NoError(t, cfg.Validate())

		cfg.ICP.ServerPublicKeyPath = ""
		assert.Error(t, cfg.Validate())
	})
}

func TestOriginList(t *testing.T) {
	assert.Equal(t, []string{"*"}, CORSConfig{}.OriginList())
	assert.Equal(t, []string{"*"}, CORSConfig{Origins: "*"}.OriginList())
	assert.Equal(t, []string{"https://a.test", "https://b.test"}, CORSConfig{Origins: " https://a.test, ,https://b.test"}.OriginList())
}

func TestTimeoutDuration(t *testing.T) {
	assert.Equal(t, 30*time.Second, ICPConfig{}.TimeoutDuration())
	assert.Equal(t, 5*time.Second, ICPConfig{Timeout: 5}.TimeoutDuration())
	assert.Equal(t, 30*time.Second, OnlinePayConfig{Timeout: -1}.TimeoutDuration())
	assert.Equal(t, 7*time.Second, OnlinePayConfig{Timeout: 7}.TimeoutDuration())
}

func TestStringRedactsSecrets(t *testing.T) {
	icp := ICPConfig{APIBaseURL: "https://icp.test/", AESKey: "0123456789abcdef", AESIV: "fedcba9876543210"}
	s := icp.String()
	assert.Contains(t, s, "https://icp.test/")
	assert.NotContains(t, s, "0123456789abcdef")
	assert.NotContains(t, s, "fedcba9876543210")

	op := OnlinePayConfig{StatusURL: "https://op.test/status", MerchantKey: "super-secret"}
	assert.NotContains(t, op.String(), "super-secret")
}

func TestMigrateURL(t *testing.T) {
	db := DatabaseConfig{Host: "db", User: "u", Password: "p", DBName: "pay", Port: "5432", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@db:5432/pay?sslmode=disable", db.MigrateURL())
}

// setBaseEnv 清除会影响结果的变量，并提供通过验证所需的最少配置
func setBaseEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"APP_ENV", "ENVIRONMENT", "JWT_SECRET", "SECRET_KEY",
		"ONLINE_PAY_AUTH_PARTY", "ONLINE_PAY_AUTH_PAY", "ONLINE_PAY_MERCHANT_KEY",
		"CHARGE_APP_STATUS_URL", "GET_CTBC_OPW_PAYMENT_API_URL", "ONLINE_PAY_STATUS_URL",
		"ICP_API_BASE_URL",
	} {
		t.Setenv(k, "")
	}
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DATABASE_USER", "postgres")
	t.Setenv("DATABASE_DBNAME", "paychecked")
}

func TestLoad(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		setBaseEnv(t)

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "local", cfg.App.Env)
		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, "paychecked", cfg.Database.DBName)
		assert.Equal(t, 30, cfg.ICP.Timeout)
	})

	t.Run("Legacy auth party name", func(t *testing.T) {
		setBaseEnv(t)
		t.Setenv("ONLINE_PAY_AUTH_PAY", "LEGACY-AP")
		t.Setenv("ONLINE_PAY_MERCHANT_KEY", "MK")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "LEGACY-AP", cfg.OnlinePay.AuthParty)
		assert.Equal(t, "MK", cfg.OnlinePay.MerchantKey)
	})

	t.Run("Current name wins over legacy name", func(t *testing.T) {
		setBaseEnv(t)
		t.Setenv("ONLINE_PAY_AUTH_PARTY", "NEW-AP")
		t.Setenv("ONLINE_PAY_AUTH_PAY", "LEGACY-AP")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "NEW-AP", cfg.OnlinePay.AuthParty)
	})

	t.Run("Legacy gateway urls and secret", func(t *testing.T) {
		setBaseEnv(t)
		t.Setenv("CHARGE_APP_STATUS_URL", "https://op.test/status")
		t.Setenv("GET_CTBC_OPW_PAYMENT_API_URL", "https://ctbc.test/opw")
		t.Setenv("SECRET_KEY", "legacy-secret")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "https://op.test/status", cfg.OnlinePay.StatusURL)
		assert.Equal(t, "https://ctbc.test/opw", cfg.OnlinePay.CTBCPaymentURL)
		assert.Equal(t, "legacy-secret", cfg.JWT.Secret)
	})

	t.Run("Legacy environment name", func(t *testing.T) {
		setBaseEnv(t)
		t.Setenv("ENVIRONMENT", "staging")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "staging", cfg.App.Env)
	})

	t.Run("Incomplete database fails validation", func(t *testing.T) {
		setBaseEnv(t)
		t.Setenv("DATABASE_DBNAME", "")

		_, err := Load()
		assert.Error(t, err)
	})
}
