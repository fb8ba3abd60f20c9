// Package solver 提供排班贪心求解器
package solver

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/carehome/rota/pkg/logger"
	"github.com/carehome/rota/pkg/model"
	"github.com/carehome/rota/pkg/scheduler/matrix"
)

// GreedySolver 贪心求解器
// 按输入顺序逐班次分配，每个员工在一次求解内至多分配一个班次
type GreedySolver struct {
	logger *logger.RotaLogger
}

// NewGreedySolver 创建贪心求解器
func NewGreedySolver() *GreedySolver {
	return &GreedySolver{
		logger: logger.NewRotaLogger("greedy_solver"),
	}
}

// Name 返回求解器名称
func (s *GreedySolver) Name() string {
	return "GreedySolver"
}

// Solve 生成初始可行分配
// 班次保持输入顺序处理（顺序敏感性是刻意保留的，保证确定性）
// usedStaff 集合由本次调用持有，并发求解互不干扰
func (s *GreedySolver) Solve(
	ctx context.Context,
	shifts []*model.Shift,
	staff []*model.StaffMember,
	m matrix.Matrix,
) ([]*model.AssignmentResult, error) {
	results := make([]*model.AssignmentResult, 0, len(shifts))
	usedStaff := make(map[uuid.UUID]bool, len(staff))

	for _, shift := range shifts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result := &model.AssignmentResult{ShiftID: shift.ID}

		// 收集本次求解尚未使用且得分为正的候选人，保持员工输入顺序
		type candidate struct {
			userID uuid.UUID
			score  int
		}
		var candidates []candidate
		for _, st := range staff {
			if usedStaff[st.ID] {
				continue
			}
			score := m.Score(st.ID, shift.ID)
			if score > 0 {
				candidates = append(candidates, candidate{userID: st.ID, score: score})
			}
		}

		// 按得分降序稳定排序，平分时保持员工输入顺序
		sort.SliceStable(candidates, func(i, j int) bool {
			return candidates[i].score > candidates[j].score
		})

		for _, c := range candidates {
			if len(result.Assigned) >= shift.RequiredStaffCount {
				break
			}
			result.Assigned = append(result.Assigned, model.ScoredAssignment{
				UserID: c.userID,
				Score:  c.score,
			})
			usedStaff[c.userID] = true
		}

		// 候选人耗尽时保留缺员状态，只上报不重试
		if len(result.Assigned) < shift.RequiredStaffCount {
			result.ShortBy = shift.RequiredStaffCount - len(result.Assigned)
			s.logger.ConflictFound("min_staff_required",
				fmt.Sprintf("班次 %s (%s) 缺员 %d 人", shift.ID, shift.Date, result.ShortBy))
		}

		results = append(results, result)
	}

	return results, nil
}
