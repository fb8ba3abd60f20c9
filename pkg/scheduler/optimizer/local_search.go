// Package optimizer 提供排班局部搜索优化
package optimizer

import (
	"context"

	"github.com/carehome/rota/pkg/logger"
	"github.com/carehome/rota/pkg/model"
	"github.com/carehome/rota/pkg/scheduler/matrix"
)

// DefaultMaxPasses 默认最大迭代轮数
// 严格改进的爬山在有界得分空间内不会成环，轮数上限只是保险丝
const DefaultMaxPasses = 100

// LocalSearch 两两交换爬山优化器
// 每轮在全部班次对之间找单个最优改进交换，应用后进入下一轮
// 不做模拟退火，输入确定则结果确定
type LocalSearch struct {
	maxPasses int
	logger    *logger.RotaLogger
}

// NewLocalSearch 创建局部搜索优化器
func NewLocalSearch() *LocalSearch {
	return &LocalSearch{
		maxPasses: DefaultMaxPasses,
		logger:    logger.NewRotaLogger("local_search"),
	}
}

// SetMaxPasses 设置最大迭代轮数
func (o *LocalSearch) SetMaxPasses(max int) {
	if max > 0 {
		o.maxPasses = max
	}
}

// swapMove 一次候选交换
type swapMove struct {
	shiftI, shiftJ int // results 下标
	posI, posJ     int // 各自分配列表内的下标
	delta          int
}

// Optimize 原地优化分配结果，保持各班次分配人数不变
// 返回实际应用的交换次数
func (o *LocalSearch) Optimize(
	ctx context.Context,
	results []*model.AssignmentResult,
	m matrix.Matrix,
) (int, error) {
	applied := 0
	for pass := 0; pass < o.maxPasses; pass++ {
		if err := ctx.Err(); err != nil {
			return applied, err
		}

		best := o.findBestSwap(results, m)
		if best == nil {
			break // 整轮无改进，达到局部最优
		}

		o.applySwap(results, best, m)
		applied++

		o.logger.SwapApplied(pass+1, best.delta)
	}

	return applied, nil
}

// findBestSwap 在全部无序班次对之间寻找单个最优改进交换
// 注意: 硬排除不需要重检——0 分位置的换入在 delta 中天然不敌正分现状
func (o *LocalSearch) findBestSwap(results []*model.AssignmentResult, m matrix.Matrix) *swapMove {
	var best *swapMove

	for i := 0; i < len(results); i++ {
		for j := i + 1; j < len(results); j++ {
			shiftI, shiftJ := results[i].ShiftID, results[j].ShiftID

			for pi, a := range results[i].Assigned {
				for pj, b := range results[j].Assigned {
					// delta = 交换后总分 − 交换前总分
					delta := m.Score(a.UserID, shiftJ) + m.Score(b.UserID, shiftI) -
						m.Score(a.UserID, shiftI) - m.Score(b.UserID, shiftJ)

					if delta > 0 && (best == nil || delta > best.delta) {
						best = &swapMove{shiftI: i, shiftJ: j, posI: pi, posJ: pj, delta: delta}
					}
				}
			}
		}
	}

	return best
}

// applySwap 交换两个员工的班次归属并更新存储得分
func (o *LocalSearch) applySwap(results []*model.AssignmentResult, move *swapMove, m matrix.Matrix) {
	ri, rj := results[move.shiftI], results[move.shiftJ]
	a, b := ri.Assigned[move.posI], rj.Assigned[move.posJ]

	ri.Assigned[move.posI] = model.ScoredAssignment{
		UserID: b.UserID,
		Score:  m.Score(b.UserID, ri.ShiftID),
	}
	rj.Assigned[move.posJ] = model.ScoredAssignment{
		UserID: a.UserID,
		Score:  m.Score(a.UserID, rj.ShiftID),
	}
}

// TotalPenalty 计算分配总惩罚 Σ(100 − score)
func TotalPenalty(results []*model.AssignmentResult) int {
	total := 0
	for _, r := range results {
		total += r.Penalty()
	}
	return total
}
