package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"paychecked_admin/internal/domain/chargestatus/gateway"
	"paychecked_admin/internal/domain/chargestatus/model"
	"paychecked_admin/internal/pkg/config"
	"paychecked_admin/pkg/metrics"
	"paychecked_admin/pkg/retry"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// MockOrderRepository is a mock of OrderRepository
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) GetByID(ctx context.Context, orderID string) (*model.Order, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

// MockOrderStatusRepository is a mock of OrderStatusRepository
type MockOrderStatusRepository struct {
	mock.Mock
}

func (m *MockOrderStatusRepository) GetByOrderID(ctx context.Context, orderID string, status int) (*model.OrderStatus, error) {
	args := m.Called(ctx, orderID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.OrderStatus), args.Error(1)
}

// MockICPGateway is a mock of ICPGateway
type MockICPGateway struct {
	mock.Mock
}

func (m *MockICPGateway) Call(ctx context.Context, apiURL string, data interface{}, extra map[string]string) (*gateway.Response, error) {
	args := m.Called(ctx, apiURL, data, extra)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Response), args.Error(1)
}

func createTestOrder(id string, amount int) *model.Order {
	o := &model.Order{ID: id, PayableAmount: amount}
	o.CreatedAt = time.Date(2023, 1, 1, 12, 0, 0, 0, time.UTC)
	return o
}

func testHTTPClient() *gateway.HTTPClient {
	return gateway.NewHTTPClient("test", 5*time.Second, gateway.WithPolicy(retry.Policy{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
	}))
}

func testMetrics() *metrics.MetricsCollector {
	return metrics.NewMetricsCollector(prometheus.NewRegistry())
}

// recordingServer 记录最后一次请求与请求次数
type recordingServer struct {
	*httptest.Server
	hits    int32
	mu      sync.Mutex
	lastReq *http.Request
	body    []byte
}

func (rs *recordingServer) last() (*http.Request, []byte) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.lastReq, rs.body
}

func newRecordingServer(t *testing.T, status int, reply string) *recordingServer {
	t.Helper()
	rs := &recordingServer{}
	rs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&rs.hits, 1)
		body, _ := io.ReadAll(r.Body)
		rs.mu.Lock()
		rs.lastReq, rs.body = r, body
		rs.mu.Unlock()
		w.WriteHeader(status)
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(rs.Close)
	return rs
}

func TestChargeStatusService_Process(t *testing.T) {
	cfg := config.OnlinePayConfig{
		MerchantKey: "MKEY",
		CorporateID: "CORP-1",
		AuthParty:   "AP",
		EntryMode:   "EM",
	}

	t.Run("OP success returns raw response", func(t *testing.T) {
		srv := newRecordingServer(t, http.StatusOK, "1|OK")
		mockOrders := new(MockOrderRepository)
		mockOrders.On("GetByID", mock.Anything, "ORD-2023-002").Return(createTestOrder("ORD-2023-002", 100), nil)

		c := cfg
		c.StatusURL = srv.URL + "/status"
		svc := NewChargeStatusService(mockOrders, nil, testHTTPClient(), c, testMetrics())

		result := svc.Process(context.Background(), "ORD-2023-002")

		assert.True(t, result.Success)
		assert.Equal(t, model.GatewayOP, result.Gateway)
		require.NotNil(t, result.RawResponse)
		assert.Equal(t, "1|OK", *result.RawResponse)
		assert.Empty(t, result.Error)

		req, body := srv.last()
		assert.Equal(t, http.MethodPost, req.Method)
		assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
		var sent map[string]interface{}
		require.NoError(t, json.Unmarshal(body, &sent))
		assert.Equal(t, "MKEY", sent["merchantKey"])
		assert.Equal(t, "CORP-1", sent["corporateId"])
		assert.Equal(t, "ORD-2023-002", sent["merchantTradeNo"])
		assert.Equal(t, "OP錢包x-store訂單編號ORD-2023-002", sent["transName"])
		assert.Equal(t, float64(10000), sent["amount"])
		assert.Equal(t, "20230101", sent["merchantTradeDate"])
		assert.Equal(t, "120000", sent["merchantTradeTime"])
		mockOrders.AssertExpectations(t)
	})

	t.Run("Order not found makes no HTTP call", func(t *testing.T) {
		srv := newRecordingServer(t, http.StatusOK, "1|OK")
		mockOrders := new(MockOrderRepository)
		mockOrders.On("GetByID", mock.Anything, "missing").Return(nil, gorm.ErrRecordNotFound)

		c := cfg
		c.StatusURL = srv.URL
		result := NewChargeStatusService(mockOrders, nil, testHTTPClient(), c, nil).Process(context.Background(), "missing")

		assert.False(t, result.Success)
		assert.Contains(t, result.Error, "not found")
		assert.Nil(t, result.RawResponse)
		assert.Equal(t, int32(0), atomic.LoadInt32(&srv.hits))
	})

	t.Run("Database error", func(t *testing.T) {
		mockOrders := new(MockOrderRepository)
		mockOrders.On("GetByID", mock.Anything, "ORD-1").Return(nil, errors.New("connection reset by peer"))

		result := NewChargeStatusService(mockOrders, nil, testHTTPClient(), cfg, nil).Process(context.Background(), "ORD-1")

		assert.False(t, result.Success)
		assert.Contains(t, result.Error, "query order")
	})

	t.Run("Non 2xx is a failure", func(t *testing.T) {
		srv := newRecordingServer(t, http.StatusInternalServerError, "oops")
		mockOrders := new(MockOrderRepository)
		mockOrders.On("GetByID", mock.Anything, "ORD-1").Return(createTestOrder("ORD-1", 5), nil)

		c := cfg
		c.StatusURL = srv.URL
		result := NewChargeStatusService(mockOrders, nil, testHTTPClient(), c, nil).Process(context.Background(), "ORD-1")

		assert.False(t, result.Success)
		assert.Equal(t, "HTTP Error: 500", result.Error)
		assert.Equal(t, int32(1), atomic.LoadInt32(&srv.hits))
	})
}

func TestChargeStatusService_ProcessCTBC(t *testing.T) {
	paidRecord := func(content string) *model.OrderStatus {
		return &model.OrderStatus{OrderID: "ORD-1", Status: model.StatusPaid, Content: &content}
	}

	newService := func(srv *recordingServer, orders *MockOrderRepository, statuses *MockOrderStatusRepository) ChargeStatusService {
		cfg := config.OnlinePayConfig{CorpID: "CORP-9", CTBCPaymentURL: srv.URL + "/opw"}
		return NewChargeStatusService(orders, statuses, testHTTPClient(), cfg, testMetrics())
	}

	t.Run("Query string from order and paid status", func(t *testing.T) {
		srv := newRecordingServer(t, http.StatusOK, `{"status":"paid"}`)
		mockOrders := new(MockOrderRepository)
		mockStatuses := new(MockOrderStatusRepository)
		mockOrders.On("GetByID", mock.Anything, "ORD-1").Return(createTestOrder("ORD-1", 250), nil)
		mockStatuses.On("GetByOrderID", mock.Anything, "ORD-1", model.StatusPaid).Return(paidRecord(`{"walletSeq":"W123"}`), nil)

		result := newService(srv, mockOrders, mockStatuses).ProcessCTBC(context.Background(), "ORD-1", DefaultTradeType)

		require.True(t, result.Success, result.Error)
		assert.Equal(t, model.GatewayCTBC, result.Gateway)
		assert.Equal(t, `{"status":"paid"}`, *result.RawResponse)

		req, _ := srv.last()
		assert.Equal(t, http.MethodGet, req.Method)
		assert.Equal(t, "/opw/order_query", req.URL.Path)
		assert.Equal(t, "application/json", req.Header.Get("Accept"))
		q := req.URL.Query()
		assert.Equal(t, "CORP-9", q.Get("corpID"))
		assert.Equal(t, "ORD-1", q.Get("merchantTradeNo"))
		assert.Equal(t, "ORD-1", q.Get("bankSeq"))
		assert.Equal(t, "250", q.Get("amount"))
		assert.Equal(t, "W123", q.Get("walletSeq"))
		assert.Equal(t, "1", q.Get("tradeType"))
		mockStatuses.AssertExpectations(t)
	})

	t.Run("Unparseable content omits walletSeq", func(t *testing.T) {
		srv := newRecordingServer(t, http.StatusOK, "ok")
		mockOrders := new(MockOrderRepository)
		mockStatuses := new(MockOrderStatusRepository)
		mockOrders.On("GetByID", mock.Anything, "ORD-1").Return(createTestOrder("ORD-1", 0), nil)
		mockStatuses.On("GetByOrderID", mock.Anything, "ORD-1", model.StatusPaid).Return(paidRecord("not json"), nil)

		result := newService(srv, mockOrders, mockStatuses).ProcessCTBC(context.Background(), "ORD-1", 2)

		require.True(t, result.Success)
		req, _ := srv.last()
		q := req.URL.Query()
		_, present := q["walletSeq"]
		assert.False(t, present)
		// 零值保留
		assert.Equal(t, "0", q.Get("amount"))
		assert.Equal(t, "2", q.Get("tradeType"))
	})

	t.Run("walletSeq accepts only strings and numbers", func(t *testing.T) {
		cases := []struct {
			content string
			want    string
			present bool
		}{
			{`{"walletSeq":9007199254740993}`, "9007199254740993", true},
			{`{"walletSeq":"W9"}`, "W9", true},
			{`{"walletSeq":true}`, "", false},
			{`{"walletSeq":{"id":"W9"}}`, "", false},
			{`{"walletSeq":null}`, "", false},
			{`{"other":"x"}`, "", false},
		}

		for _, tc := range cases {
			t.Run(tc.content, func(t *testing.T) {
				srv := newRecordingServer(t, http.StatusOK, "ok")
				mockOrders := new(MockOrderRepository)
				mockStatuses := new(MockOrderStatusRepository)
				mockOrders.On("GetByID", mock.Anything, "ORD-1").Return(createTestOrder("ORD-1", 100), nil)
				mockStatuses.On("GetByOrderID", mock.Anything, "ORD-1", model.StatusPaid).Return(paidRecord(tc.content), nil)

				result := newService(srv, mockOrders, mockStatuses).ProcessCTBC(context.Background(), "ORD-1", 1)

				require.True(t, result.Success, result.Error)
				req, _ := srv.last()
				q := req.URL.Query()
				_, present := q["walletSeq"]
				assert.Equal(t, tc.present, present)
				assert.Equal(t, tc.want, q.Get("walletSeq"))
			})
		}
	})

	t.Run("Order not found", func(t *testing.T) {
		srv := newRecordingServer(t, http.StatusOK, "ok")
		mockOrders := new(MockOrderRepository)
		mockStatuses := new(MockOrderStatusRepository)
		mockOrders.On("GetByID", mock.Anything, "ORD-1").Return(nil, gorm.ErrRecordNotFound)

		result := newService(srv, mockOrders, mockStatuses).ProcessCTBC(context.Background(), "ORD-1", 1)

		assert.False(t, result.Success)
		assert.Equal(t, ErrOrderNotFound.Error(), result.Error)
		assert.Equal(t, int32(0), atomic.LoadInt32(&srv.hits))
		mockStatuses.AssertNotCalled(t, "GetByOrderID", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Paid status not found", func(t *testing.T) {
		srv := newRecordingServer(t, http.StatusOK, "ok")
		mockOrders := new(MockOrderRepository)
		mockStatuses := new(MockOrderStatusRepository)
		mockOrders.On("GetByID", mock.Anything, "ORD-1").Return(createTestOrder("ORD-1", 10), nil)
		mockStatuses.On("GetByOrderID", mock.Anything, "ORD-1", model.StatusPaid).Return(nil, gorm.ErrRecordNotFound)

		result := newService(srv, mockOrders, mockStatuses).ProcessCTBC(context.Background(), "ORD-1", 1)

		assert.False(t, result.Success)
		assert.Equal(t, ErrOrderStatusNotFound.Error(), result.Error)
		assert.Contains(t, result.Error, "not found")
		assert.NotEqual(t, ErrOrderNotFound.Error(), result.Error)
		assert.Equal(t, int32(0), atomic.LoadInt32(&srv.hits))
	})
}

func TestICPService_GetTradeStatus(t *testing.T) {
	cfg := config.ICPConfig{APIBaseURL: "https://icp.test/api/", PlatformID: "P01", MerchantID: "M01"}

	t.Run("Empty order id makes no call", func(t *testing.T) {
		mockGateway := new(MockICPGateway)

		result := NewICPService(mockGateway, cfg, testMetrics()).GetTradeStatus(context.Background(), "")

		assert.False(t, result.Success)
		assert.NotEmpty(t, result.Error)
		mockGateway.AssertNumberOfCalls(t, "Call", 0)
	})

	t.Run("Success maps payload to data", func(t *testing.T) {
		mockGateway := new(MockICPGateway)
		body := `{"RtnCode":1,"EncData":"..."}`
		want := tradeStatusRequest{PlatformID: "P01", MerchantID: "M01", MerchantTradeNo: "ORD-1"}
		mockGateway.On("Call", mock.Anything, "https://icp.test/api/ICPO005", want, map[string]string(nil)).
			Return(&gateway.Response{Body: body, HasEncData: true, Payload: map[string]interface{}{"TradeStatus": json.Number("1")}}, nil)

		result := NewICPService(mockGateway, cfg, nil).GetTradeStatus(context.Background(), "ORD-1")

		assert.True(t, result.Success)
		assert.Equal(t, model.GatewayICP, result.Gateway)
		assert.Equal(t, map[string]interface{}{"TradeStatus": json.Number("1")}, result.Data)
		assert.Equal(t, body, *result.RawResponse)
		mockGateway.AssertExpectations(t)
	})

	t.Run("Protocol error carries RtnCode", func(t *testing.T) {
		mockGateway := new(MockICPGateway)
		mockGateway.On("Call", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, &gateway.ProtocolError{RtnCode: "9001", RtnMsg: "invalid merchant"})

		result := NewICPService(mockGateway, cfg, nil).GetTradeStatus(context.Background(), "ORD-1")

		assert.False(t, result.Success)
		assert.Contains(t, result.Error, "9001")
		assert.Nil(t, result.Data)
	})
}

// MockICPService is a mock of ICPService
type MockICPService struct {
	mock.Mock
}

func (m *MockICPService) GetTradeStatus(ctx context.Context, orderID string) *model.QueryResult {
	return m.Called(ctx, orderID).Get(0).(*model.QueryResult)
}

// MockChargeStatusService is a mock of ChargeStatusService
type MockChargeStatusService struct {
	mock.Mock
}

func (m *MockChargeStatusService) Process(ctx context.Context, orderID string) *model.QueryResult {
	return m.Called(ctx, orderID).Get(0).(*model.QueryResult)
}

func (m *MockChargeStatusService) ProcessCTBC(ctx context.Context, orderID string, tradeType int) *model.QueryResult {
	return m.Called(ctx, orderID, tradeType).Get(0).(*model.QueryResult)
}

func TestStatusQuerier(t *testing.T) {
	mockICP := new(MockICPService)
	mockCharge := new(MockChargeStatusService)
	q := NewStatusQuerier(mockICP, mockCharge, 2)

	mockICP.On("GetTradeStatus", mock.Anything, "A").Return(model.Succeeded(model.GatewayICP, "A", "", nil))
	mockCharge.On("ProcessCTBC", mock.Anything, "B", DefaultTradeType).Return(model.Succeeded(model.GatewayCTBC, "B", "", nil))
	mockCharge.On("Process", mock.Anything, mock.Anything).Return(model.Succeeded(model.GatewayOP, "C", "", nil))

	t.Run("Dispatch by gateway", func(t *testing.T) {
		assert.Equal(t, model.GatewayICP, q.Query(context.Background(), "A", model.GatewayICP, 0).Gateway)
		assert.Equal(t, model.GatewayCTBC, q.Query(context.Background(), "B", model.GatewayCTBC, 0).Gateway)
		assert.Equal(t, model.GatewayOP, q.Query(context.Background(), "C", model.ParseGateway(""), 0).Gateway)
	})

	t.Run("QueryMany", func(t *testing.T) {
		results := q.QueryMany(context.Background(), []string{"C", "C", "C"}, model.GatewayOP, 0)
		assert.Len(t, results, 3)
		for _, r := range results {
			assert.True(t, r.Success)
		}
	})
}
