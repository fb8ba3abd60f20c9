package main

import (
	"github.com/spf13/cobra"

	"github.com/carehome/rota/internal/config"
	"github.com/carehome/rota/pkg/logger"
)

var (
	cfg *config.Config

	logLevel  string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:   "rota",
	Short: "养老院排班引擎",
	Long: `rota 是养老院的排班求解引擎。

对给定院区和日期范围内的班次做员工分配:
得分矩阵评估每个 (员工, 班次) 配对，贪心求解器完成初始分配，
局部搜索通过成对交换降低总惩罚值。`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}

		level := logLevel
		if level == "" {
			level = cfg.App.LogLevel
		}
		logger.Init(logger.Config{
			Level:  level,
			Format: logFormat,
			Output: "stderr",
		})
		return nil
	},
}

// Execute 运行根命令
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		logger.WithError(err).Msg("命令执行失败")
		return err
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "日志级别 (debug/info/warn/error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "console", "日志格式 (console/json)")

	rootCmd.AddCommand(solveCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(swapCmd)
	rootCmd.AddCommand(weightsCmd)
}
