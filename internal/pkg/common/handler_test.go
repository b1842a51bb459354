package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"paychecked_admin/pkg/response"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func serveHealth(h *HealthHandler) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/health", h.Health)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	return w
}

func TestHealth(t *testing.T) {
	t.Run("Database up, redis disabled", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectExec("SELECT 1").WillReturnResult(sqlmock.NewResult(0, 0))

		w := serveHealth(NewHealthHandler(db, nil))

		assert.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			Code int          `json:"code"`
			Data HealthStatus `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, response.CodeSuccess, resp.Code)
		assert.Equal(t, "ok", resp.Data.Status)
		assert.Equal(t, "ok", resp.Data.Checks["database"])
		assert.Equal(t, "disabled", resp.Data.Checks["redis"])
		assert.NotNil(t, resp.Data.DBPool)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Database down", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectExec("SELECT 1").WillReturnError(errors.New("connection refused"))

		w := serveHealth(NewHealthHandler(db, nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, w.Body.String(), `"database":"down"`)
	})

	t.Run("Redis unreachable", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectExec("SELECT 1").WillReturnResult(sqlmock.NewResult(0, 0))
		rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 200 * time.Millisecond, MaxRetries: -1})
		defer rdb.Close()

		w := serveHealth(NewHealthHandler(db, rdb))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, w.Body.String(), `"redis":"down"`)
	})
}
