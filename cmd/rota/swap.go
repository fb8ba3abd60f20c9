package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/carehome/rota/internal/database"
	"github.com/carehome/rota/internal/repository"
	"github.com/carehome/rota/pkg/errors"
	"github.com/carehome/rota/pkg/swap"
	"github.com/carehome/rota/pkg/validator"
)

var (
	swapRequesterShift string
	swapTargetShift    string
	swapRequester      string
	swapTargetUser     string
	swapActor          string
	swapMessage        string
	swapOutput         string
)

var swapCmd = &cobra.Command{
	Use:   "swap",
	Short: "管理换班请求",
	Long: `换班请求的完整生命周期:

  create   发起换班请求（先做冲突校验）
  approve  目标员工批准（批准前重新校验冲突）
  reject   目标员工拒绝
  cancel   发起人取消
  execute  执行已批准的换班（单事务交换双方班次）`,
}

var swapCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "发起换班请求",
	RunE: func(cmd *cobra.Command, args []string) error {
		requesterShiftID, err := uuid.Parse(swapRequesterShift)
		if err != nil {
			return fmt.Errorf("发起方班次ID格式错误: %w", err)
		}
		targetShiftID, err := uuid.Parse(swapTargetShift)
		if err != nil {
			return fmt.Errorf("目标班次ID格式错误: %w", err)
		}
		requesterID, err := uuid.Parse(swapRequester)
		if err != nil {
			return fmt.Errorf("发起人ID格式错误: %w", err)
		}
		targetUserID, err := uuid.Parse(swapTargetUser)
		if err != nil {
			return fmt.Errorf("目标员工ID格式错误: %w", err)
		}

		mgr, cleanup, err := newSwapManager()
		if err != nil {
			return err
		}
		defer cleanup()

		req, check, err := mgr.Create(cmd.Context(), requesterShiftID, targetShiftID, requesterID, targetUserID, swapMessage)
		if err != nil {
			// 冲突不是系统错误: 输出明细供调用方展示
			if appErr, ok := err.(*errors.AppError); ok && appErr.Code == errors.CodeConflictDetected {
				return writeJSON(swapOutput, check)
			}
			return err
		}
		return writeJSON(swapOutput, req)
	},
}

var swapApproveCmd = &cobra.Command{
	Use:   "approve <swap-id>",
	Short: "批准换班请求",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		swapID, actorID, err := parseSwapActor(args[0])
		if err != nil {
			return err
		}

		mgr, cleanup, err := newSwapManager()
		if err != nil {
			return err
		}
		defer cleanup()

		check, err := mgr.Approve(cmd.Context(), swapID, actorID, swapMessage)
		if err != nil {
			if appErr, ok := err.(*errors.AppError); ok && appErr.Code == errors.CodeConflictDetected {
				return writeJSON(swapOutput, check)
			}
			return err
		}
		return writeJSON(swapOutput, check)
	},
}

var swapRejectCmd = &cobra.Command{
	Use:   "reject <swap-id>",
	Short: "拒绝换班请求",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		swapID, actorID, err := parseSwapActor(args[0])
		if err != nil {
			return err
		}

		mgr, cleanup, err := newSwapManager()
		if err != nil {
			return err
		}
		defer cleanup()

		return mgr.Reject(cmd.Context(), swapID, actorID, swapMessage)
	},
}

var swapCancelCmd = &cobra.Command{
	Use:   "cancel <swap-id>",
	Short: "取消换班请求",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		swapID, actorID, err := parseSwapActor(args[0])
		if err != nil {
			return err
		}

		mgr, cleanup, err := newSwapManager()
		if err != nil {
			return err
		}
		defer cleanup()

		return mgr.Cancel(cmd.Context(), swapID, actorID)
	},
}

var swapExecuteCmd = &cobra.Command{
	Use:   "execute <swap-id>",
	Short: "执行已批准的换班",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		swapID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("换班请求ID格式错误: %w", err)
		}

		mgr, cleanup, err := newSwapManager()
		if err != nil {
			return err
		}
		defer cleanup()

		result, err := mgr.Execute(cmd.Context(), swapID)
		if err != nil {
			return err
		}
		return writeJSON(swapOutput, result)
	},
}

// newSwapManager 构建带配置阈值的换班管理器，cleanup 负责关闭连接
func newSwapManager() (*swap.Manager, func(), error) {
	db, err := database.New(&cfg.Database)
	if err != nil {
		return nil, nil, err
	}

	store := repository.NewStore(db)
	v := validator.New(store)
	v.SetLimits(cfg.Solver.MinRestMinutes, cfg.Solver.MaxDailyMinutes)

	mgr := swap.NewManager(store, v)
	mgr.SetExpiry(time.Duration(cfg.Swap.ExpiryDays) * 24 * time.Hour)

	return mgr, func() { db.Close() }, nil
}

// parseSwapActor 解析请求ID参数和 --actor 标志
func parseSwapActor(arg string) (uuid.UUID, uuid.UUID, error) {
	swapID, err := uuid.Parse(arg)
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("换班请求ID格式错误: %w", err)
	}
	actorID, err := uuid.Parse(swapActor)
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("操作人ID格式错误: %w", err)
	}
	return swapID, actorID, nil
}

func init() {
	swapCreateCmd.Flags().StringVar(&swapRequesterShift, "requester-shift", "", "发起方班次ID")
	swapCreateCmd.Flags().StringVar(&swapTargetShift, "target-shift", "", "目标班次ID")
	swapCreateCmd.Flags().StringVar(&swapRequester, "requester", "", "发起人ID")
	swapCreateCmd.Flags().StringVar(&swapTargetUser, "target-user", "", "目标员工ID")
	_ = swapCreateCmd.MarkFlagRequired("requester-shift")
	_ = swapCreateCmd.MarkFlagRequired("target-shift")
	_ = swapCreateCmd.MarkFlagRequired("requester")
	_ = swapCreateCmd.MarkFlagRequired("target-user")

	for _, c := range []*cobra.Command{swapApproveCmd, swapRejectCmd, swapCancelCmd} {
		c.Flags().StringVar(&swapActor, "actor", "", "操作人ID")
		_ = c.MarkFlagRequired("actor")
	}

	swapCmd.PersistentFlags().StringVarP(&swapMessage, "message", "m", "", "附言")
	swapCmd.PersistentFlags().StringVarP(&swapOutput, "output", "o", "", "结果输出文件（默认标准输出）")

	swapCmd.AddCommand(swapCreateCmd)
	swapCmd.AddCommand(swapApproveCmd)
	swapCmd.AddCommand(swapRejectCmd)
	swapCmd.AddCommand(swapCancelCmd)
	swapCmd.AddCommand(swapExecuteCmd)
}
