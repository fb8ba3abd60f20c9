package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/carehome/rota/internal/database"
	"github.com/carehome/rota/internal/repository"
	"github.com/carehome/rota/pkg/validator"
)

var (
	checkUserID string
	checkDate   string
	checkStart  string
	checkEnd    string
	checkOutput string
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "校验某员工接班是否存在冲突",
	Long: `对指定员工在某日期时段接班做冲突校验。

检查项: 批准休假、班次时间重叠、班次间休息不足、单日工时超限。
违规以结构化结果输出，不作为命令错误。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := uuid.Parse(checkUserID)
		if err != nil {
			return fmt.Errorf("员工ID格式错误: %w", err)
		}

		db, err := database.New(&cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()

		store := repository.NewStore(db)
		v := validator.New(store)
		v.SetLimits(cfg.Solver.MinRestMinutes, cfg.Solver.MaxDailyMinutes)

		result, err := v.ValidateAssignment(cmd.Context(), userID, checkDate, checkStart, checkEnd)
		if err != nil {
			return err
		}
		return writeJSON(checkOutput, result)
	},
}

func init() {
	checkCmd.Flags().StringVar(&checkUserID, "user", "", "员工ID")
	checkCmd.Flags().StringVar(&checkDate, "date", "", "班次日期 YYYY-MM-DD")
	checkCmd.Flags().StringVar(&checkStart, "start", "", "开始时间 HH:MM")
	checkCmd.Flags().StringVar(&checkEnd, "end", "", "结束时间 HH:MM")
	checkCmd.Flags().StringVarP(&checkOutput, "output", "o", "", "结果输出文件（默认标准输出）")

	_ = checkCmd.MarkFlagRequired("user")
	_ = checkCmd.MarkFlagRequired("date")
	_ = checkCmd.MarkFlagRequired("start")
	_ = checkCmd.MarkFlagRequired("end")
}
