package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/carehome/rota/internal/database"
	"github.com/carehome/rota/internal/repository"
	"github.com/carehome/rota/pkg/model"
	"github.com/carehome/rota/pkg/scheduler"
	"github.com/carehome/rota/pkg/stats"
)

var (
	solveInput  string
	solveOutput string
	solveHomeID string
	solveFrom   string
	solveTo     string
	maxPasses   int
)

// solveOutputDoc 求解命令的输出结构
type solveOutputDoc struct {
	Result   *scheduler.SolveResult `json:"result"`
	Coverage *stats.CoverageMetrics `json:"coverage"`
}

var solveCmd = &cobra.Command{
	Use:   "solve",
	Short: "对一组班次执行排班求解",
	Long: `对输入快照执行排班求解并输出结果。

两种输入方式:
  --input 快照文件（JSON，"-" 表示标准输入）
  --home/--from/--to 直接从数据库加载院区在日期范围内的数据`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Solver.DefaultTimeout)
		defer cancel()

		in, err := loadSolveInput(ctx)
		if err != nil {
			return err
		}

		engine := scheduler.NewEngine()
		if maxPasses > 0 {
			engine.SetMaxPasses(maxPasses)
		} else {
			engine.SetMaxPasses(cfg.Solver.MaxPasses)
		}

		result, err := engine.Solve(ctx, *in)
		if err != nil {
			return err
		}

		doc := solveOutputDoc{
			Result:   result,
			Coverage: stats.NewCoverageAnalyzer().Analyze(in.Shifts, result.Assignments),
		}
		return writeJSON(solveOutput, doc)
	},
}

// loadSolveInput 按命令行参数选择输入来源
func loadSolveInput(ctx context.Context) (*scheduler.SolveInput, error) {
	if solveInput != "" {
		return readSnapshot(solveInput)
	}

	if solveHomeID == "" || solveFrom == "" || solveTo == "" {
		return nil, fmt.Errorf("需要 --input 或者 --home/--from/--to 组合")
	}

	homeID, err := uuid.Parse(solveHomeID)
	if err != nil {
		return nil, fmt.Errorf("院区ID格式错误: %w", err)
	}

	db, err := database.New(&cfg.Database)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	store := repository.NewStore(db)
	return store.LoadSolveInput(ctx, homeID, model.DateRange{StartDate: solveFrom, EndDate: solveTo})
}

// readSnapshot 从文件或标准输入读取求解快照
func readSnapshot(path string) (*scheduler.SolveInput, error) {
	var r io.Reader
	if path == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("打开快照文件失败: %w", err)
		}
		defer f.Close()
		r = f
	}

	var in scheduler.SolveInput
	if err := json.NewDecoder(r).Decode(&in); err != nil {
		return nil, fmt.Errorf("解析快照失败: %w", err)
	}
	return &in, nil
}

// writeJSON 将结果写到文件或标准输出
func writeJSON(path string, v interface{}) error {
	var w io.Writer = os.Stdout
	if path != "" && path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("创建输出文件失败: %w", err)
		}
		defer f.Close()
		w = f
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	solveCmd.Flags().StringVarP(&solveInput, "input", "i", "", "求解快照文件（JSON，- 为标准输入）")
	solveCmd.Flags().StringVarP(&solveOutput, "output", "o", "", "结果输出文件（默认标准输出）")
	solveCmd.Flags().StringVar(&solveHomeID, "home", "", "院区ID（从数据库加载时必填）")
	solveCmd.Flags().StringVar(&solveFrom, "from", "", "开始日期 YYYY-MM-DD")
	solveCmd.Flags().StringVar(&solveTo, "to", "", "结束日期 YYYY-MM-DD")
	solveCmd.Flags().IntVar(&maxPasses, "max-passes", 0, "局部搜索最大轮数（默认取配置）")
}
