package retry

import (
	"context"
	"errors"
	"net"
	"syscall"
	"time"
)

// Policy 重试策略，只包裹传输层调用
type Policy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	// Retryable 判断错误是否可重试，为 nil 时使用 IsTransient
	Retryable func(error) bool
	// OnRetry 每次等待前回调，attempt 为刚失败的次数
	OnRetry func(attempt int, wait time.Duration, err error)
}

// DefaultPolicy 3 次尝试，指数退避 1s 起，上限 10s，只重试连接错误与超时
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:    3,
		InitialBackoff: time.Second,
		MaxBackoff:     10 * time.Second,
		Retryable:      IsTransient,
	}
}

// Backoff 第 attempt 次失败后的等待时间
func (p Policy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	wait := p.InitialBackoff
	for i := 1; i < attempt; i++ {
		wait *= 2
		if p.MaxBackoff > 0 && wait >= p.MaxBackoff {
			return p.MaxBackoff
		}
	}
	if p.MaxBackoff > 0 && wait > p.MaxBackoff {
		return p.MaxBackoff
	}
	return wait
}

// Do 执行 fn，可重试错误按退避重试，返回最后一次的错误
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	retryable := p.Retryable
	if retryable == nil {
		retryable = IsTransient
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if attempt == attempts || !retryable(err) || ctx.Err() != nil {
			return err
		}

		wait := p.Backoff(attempt)
		if p.OnRetry != nil {
			p.OnRetry(attempt, wait, err)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
	}
	return err
}

// IsTransient 连接失败与请求超时视为暂时性错误
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	return errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET)
}
