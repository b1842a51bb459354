package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"paychecked_admin/internal/domain/chargestatus"
	"paychecked_admin/internal/domain/chargestatus/model"
	"paychecked_admin/internal/domain/chargestatus/service"
	"paychecked_admin/internal/pkg/config"
	"paychecked_admin/pkg/database"
	"paychecked_admin/pkg/logger"
	"paychecked_admin/pkg/metrics"
	"paychecked_admin/pkg/utils"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "paychecked-admin",
		Short:         "PayChecked admin tools",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(newChargeStatusCommand(), newIssueTokenCommand())
	return cmd
}

func newChargeStatusCommand() *cobra.Command {
	var (
		orders    []string
		tradeType int
	)

	cmd := &cobra.Command{
		Use:   "charge-status [order_id] [pay_type]",
		Short: "订单手动反查",
		Long: `根据付款方式查询订单状态：
  ICP   使用 ICP 金流 API
  CTBC  使用 CTBC OPW API
  其他  使用 OP 钱包 API`,
		Args: cobra.RangeArgs(0, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := append([]string{}, orders...)
			payType := ""
			if len(args) > 0 {
				ids = append([]string{args[0]}, ids...)
			}
			if len(args) > 1 {
				payType = args[1]
			}
			if len(ids) == 0 {
				return fmt.Errorf("order_id or --orders is required")
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := logger.InitLogger(cfg.App.Env, cfg.App.LogLevel); err != nil {
				return err
			}
			defer logger.Sync()

			db, err := database.InitDatabase(cfg.Database, false)
			if err != nil {
				return err
			}
			defer database.Close(db)

			querier := chargestatus.NewStatusQuerier(db, cfg, metrics.GetGlobalCollector())
			runChargeStatus(cmd.Context(), querier, cmd.OutOrStdout(), ids, model.ParseGateway(payType), tradeType)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&orders, "orders", nil, "多笔订单编号，以逗号分隔，并发查询")
	cmd.Flags().IntVar(&tradeType, "trade-type", service.DefaultTradeType, "CTBC 交易类型")
	return cmd
}

// runChargeStatus 单笔直接查询，多笔交给 worker pool
func runChargeStatus(ctx context.Context, q service.StatusQuerier, out io.Writer, ids []string, gw model.Gateway, tradeType int) {
	if ctx == nil {
		ctx = context.Background()
	}
	for _, id := range ids {
		fmt.Fprintf(out, "訂單反查 %s\n", id)
	}

	var results []*model.QueryResult
	if len(ids) == 1 {
		results = []*model.QueryResult{q.Query(ctx, ids[0], gw, tradeType)}
	} else {
		results = q.QueryMany(ctx, ids, gw, tradeType)
	}

	for i, r := range results {
		line := formatResult(r)
		fmt.Fprintf(out, "反查結果-%s: %s\n", ids[i], line)
		logger.Log.Info("charge status result", zap.String("order_id", ids[i]), zap.String("result", line))
	}
}

// formatResult ICP 成功输出 data 的 JSON，OP/CTBC 输出原始回应
func formatResult(r *model.QueryResult) string {
	if !r.Success {
		return "Failed: " + r.Error
	}

	raw := ""
	if r.RawResponse != nil {
		raw = *r.RawResponse
	}
	if r.Gateway != model.GatewayICP {
		return raw
	}

	var output interface{} = raw
	if !isEmpty(r.Data) {
		output = r.Data
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(output); err != nil {
		return raw
	}
	return strings.TrimRight(buf.String(), "\n")
}

func isEmpty(v interface{}) bool {
	switch d := v.(type) {
	case nil:
		return true
	case map[string]interface{}:
		return len(d) == 0
	case []interface{}:
		return len(d) == 0
	case string:
		return d == ""
	default:
		return false
	}
}

func newIssueTokenCommand() *cobra.Command {
	var (
		userID string
		role   int
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "issue-token",
		Short: "签发后台 API 使用的 JWT",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			token, expireAt, err := utils.GenerateToken(cfg.JWT.Secret, userID, role, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\nexpires at %s\n", token, expireAt.Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "admin", "使用者识别")
	cmd.Flags().IntVar(&role, "role", utils.RoleAdmin, "角色，1 为管理员")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "有效期")
	return cmd
}
