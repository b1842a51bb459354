package service

import (
	"errors"
	"fmt"

	"paychecked_admin/pkg/retry"
)

var (
	ErrOrderNotFound       = errors.New("order not found")
	ErrOrderStatusNotFound = errors.New("order status not found")
)

// describe 连线失败与逾时加上前缀，方便从错误讯息辨识
func describe(err error) error {
	if retry.IsTransient(err) {
		return fmt.Errorf("request failed after retries: %w", err)
	}
	return err
}
