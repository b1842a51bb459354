package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"paychecked_admin/pkg/logger"
	"paychecked_admin/pkg/metrics"
	"paychecked_admin/pkg/retry"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// HTTPResponse 闸道原始回应
type HTTPResponse struct {
	StatusCode int
	Body       []byte
	Header     http.Header
}

// HTTPClient 闸道 HTTP 传输，只有这一层套用重试
type HTTPClient struct {
	name    string
	client  *resty.Client
	policy  retry.Policy
	metrics *metrics.MetricsCollector
}

type Option func(*HTTPClient)

// WithTransport 替换底层 RoundTripper
func WithTransport(rt http.RoundTripper) Option {
	return func(c *HTTPClient) {
		c.client.SetTransport(rt)
	}
}

func WithPolicy(p retry.Policy) Option {
	return func(c *HTTPClient) {
		c.policy = p
	}
}

func WithMetrics(m *metrics.MetricsCollector) Option {
	return func(c *HTTPClient) {
		c.metrics = m
	}
}

// NewHTTPClient name 用于日志与指标标签，timeout 为单次尝试的超时
func NewHTTPClient(name string, timeout time.Duration, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		name:   name,
		client: resty.New().SetTimeout(timeout),
		policy: retry.DefaultPolicy(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PostForm 表单 POST
func (c *HTTPClient) PostForm(ctx context.Context, endpoint string, form map[string]string, headers map[string]string) (*HTTPResponse, error) {
	return c.do(ctx, http.MethodPost, endpoint, func(r *resty.Request) {
		r.SetHeaders(headers).SetFormData(form)
	})
}

// PostJSON JSON POST，payload 以紧凑格式序列化
func (c *HTTPClient) PostJSON(ctx context.Context, endpoint string, payload interface{}) (*HTTPResponse, error) {
	body, err := marshalCompact(payload)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, http.MethodPost, endpoint, func(r *resty.Request) {
		r.SetHeader("Content-Type", "application/json").SetBody(body)
	})
}

// Get 带查询参数的 GET
func (c *HTTPClient) Get(ctx context.Context, endpoint string, query url.Values) (*HTTPResponse, error) {
	return c.do(ctx, http.MethodGet, endpoint, func(r *resty.Request) {
		r.SetHeader("Accept", "application/json").SetQueryParamsFromValues(query)
	})
}

func (c *HTTPClient) do(ctx context.Context, method, endpoint string, build func(*resty.Request)) (*HTTPResponse, error) {
	policy := c.policy
	onRetry := policy.OnRetry
	policy.OnRetry = func(attempt int, wait time.Duration, err error) {
		logger.Log.Warn("gateway request failed, retrying",
			zap.String("gateway", c.name),
			zap.String("url", endpoint),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
		c.metrics.RecordRetry(c.name)
		if onRetry != nil {
			onRetry(attempt, wait, err)
		}
	}

	var out *HTTPResponse
	err := policy.Do(ctx, func(ctx context.Context) error {
		req := c.client.R().SetContext(ctx)
		build(req)

		resp, err := req.Execute(method, endpoint)
		if err != nil {
			if retry.IsTransient(err) {
				c.metrics.RecordAttempt(c.name, "transient")
			} else {
				c.metrics.RecordAttempt(c.name, "error")
			}
			return err
		}
		c.metrics.RecordAttempt(c.name, "ok")

		logger.Log.Debug("gateway response",
			zap.String("gateway", c.name),
			zap.String("url", endpoint),
			zap.Int("status", resp.StatusCode()),
		)
		if !resp.IsSuccess() {
			return &HTTPError{StatusCode: resp.StatusCode(), URL: endpoint}
		}
		out = &HTTPResponse{
			StatusCode: resp.StatusCode(),
			Body:       resp.Body(),
			Header:     resp.Header(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// marshalCompact 无多余空白，不转义非 ASCII 与 HTML 字符
func marshalCompact(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
