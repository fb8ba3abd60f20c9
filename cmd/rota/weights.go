package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/carehome/rota/internal/database"
	"github.com/carehome/rota/internal/repository"
	"github.com/carehome/rota/internal/weights"
	"github.com/carehome/rota/pkg/logger"
)

var seedWeights bool

var weightsCmd = &cobra.Command{
	Use:   "weights",
	Short: "查看或初始化约束权重目录",
	RunE: func(cmd *cobra.Command, args []string) error {
		if seedWeights {
			return runSeed(cmd)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "约束类型\t类别\t权重\t说明")
		for _, d := range weights.Defaults() {
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", d.ConstraintType, d.Category, d.Weight, d.Description)
		}
		return w.Flush()
	},
}

// runSeed 将内置权重目录写入数据库
func runSeed(cmd *cobra.Command) error {
	db, err := database.New(&cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	store := repository.NewStore(db)
	if err := weights.Seed(cmd.Context(), store.Weights()); err != nil {
		return err
	}

	logger.Info().Int("count", len(weights.Defaults())).Msg("约束权重目录初始化完成")
	return nil
}

func init() {
	weightsCmd.Flags().BoolVar(&seedWeights, "seed", false, "将内置权重目录写入数据库")
}
