// Package scheduler 排班求解引擎入口
// 串联 得分矩阵 → 贪心分配 → 局部搜索 三个阶段
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/carehome/rota/pkg/logger"
	"github.com/carehome/rota/pkg/model"
	"github.com/carehome/rota/pkg/scheduler/matrix"
	"github.com/carehome/rota/pkg/scheduler/optimizer"
	"github.com/carehome/rota/pkg/scheduler/solver"
)

// SolveInput 单次求解输入快照
// 每次调用持有自己的数据副本，多个求解可并发执行、互不共享可变状态
type SolveInput struct {
	HomeID       uuid.UUID                   `json:"home_id"`
	Window       model.DateRange             `json:"window"`
	Shifts       []*model.Shift              `json:"shifts"`
	Staff        []*model.StaffMember        `json:"staff"`
	Availability []*model.AvailabilityRecord `json:"availability"`
	TimeOff      []*model.TimeOffRequest     `json:"time_off"`
	Weights      []*model.ConstraintWeight   `json:"weights,omitempty"`
}

// Violation 求解结果中的约束违反条目
type Violation struct {
	ConstraintType string    `json:"constraint_type"`
	ShiftID        uuid.UUID `json:"shift_id"`
	Message        string    `json:"message"`
}

// SolveResult 求解结果
type SolveResult struct {
	Assignments         []*model.AssignmentResult `json:"assignments"`
	TotalPenalty        int                       `json:"total_penalty"`
	ViolatedConstraints []Violation               `json:"violated_constraints"`
	SwapsApplied        int                       `json:"swaps_applied"`
	Duration            time.Duration             `json:"duration"`
}

// Engine 排班引擎
type Engine struct {
	solver    *solver.GreedySolver
	optimizer *optimizer.LocalSearch
	logger    *logger.RotaLogger
}

// NewEngine 创建排班引擎
func NewEngine() *Engine {
	return &Engine{
		solver:    solver.NewGreedySolver(),
		optimizer: optimizer.NewLocalSearch(),
		logger:    logger.NewRotaLogger("engine"),
	}
}

// SetMaxPasses 设置局部搜索最大轮数
func (e *Engine) SetMaxPasses(max int) {
	e.optimizer.SetMaxPasses(max)
}

// Solve 单次同步求解，无部分结果
// 结果由调用方持久化到 Shift.AssignedStaff
func (e *Engine) Solve(ctx context.Context, in SolveInput) (*SolveResult, error) {
	start := time.Now()
	e.logger.StartSolve(in.HomeID.String(), len(in.Shifts), len(in.Staff))

	// 空员工表不是求解失败: 走完整流程，每个班次上报缺员违规
	m := matrix.Build(matrix.Input{
		Shifts:       in.Shifts,
		Staff:        in.Staff,
		Availability: in.Availability,
		TimeOff:      in.TimeOff,
		Weights:      in.Weights,
	})

	assignments, err := e.solver.Solve(ctx, in.Shifts, in.Staff, m)
	if err != nil {
		return nil, err
	}

	swaps, err := e.optimizer.Optimize(ctx, assignments, m)
	if err != nil {
		return nil, err
	}

	result := &SolveResult{
		Assignments:  assignments,
		TotalPenalty: optimizer.TotalPenalty(assignments),
		SwapsApplied: swaps,
	}

	// 优化保持各班次人数不变，缺员上报以贪心结果为准
	for _, a := range assignments {
		if a.ShortBy > 0 {
			result.ViolatedConstraints = append(result.ViolatedConstraints, Violation{
				ConstraintType: model.WeightMinStaffRequired,
				ShiftID:        a.ShiftID,
				Message:        fmt.Sprintf("班次 %s 缺员 %d 人", a.ShiftID, a.ShortBy),
			})
		}
	}

	result.Duration = time.Since(start)
	e.logger.SolveComplete(in.HomeID.String(), result.Duration, result.TotalPenalty, len(result.ViolatedConstraints))

	return result, nil
}
