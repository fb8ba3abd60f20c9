// Package matrix 构建员工-班次约束得分矩阵
// 纯函数实现，不依赖任何隐藏状态，可独立测试
package matrix

import (
	"github.com/google/uuid"

	"github.com/carehome/rota/pkg/model"
	"github.com/carehome/rota/pkg/timeutil"
)

// 默认软约束扣分，可被 ConstraintWeight 数据覆盖
const (
	DefaultShiftTypePenalty  = 30 // 班次类型偏好不匹配
	DefaultTimeWindowPenalty = 20 // 偏好时间窗未覆盖班次
)

// FullScore 无任何扣分时的满分
const FullScore = 100

// Matrix 约束得分矩阵: 员工ID → 班次ID → [0,100] 整数得分
type Matrix map[uuid.UUID]map[uuid.UUID]int

// Score 查询某员工对某班次的得分，缺失记为 0
func (m Matrix) Score(staffID, shiftID uuid.UUID) int {
	if row, ok := m[staffID]; ok {
		return row[shiftID]
	}
	return 0
}

// Input 矩阵构建输入
// 所有数据为本次求解窗口内的快照
type Input struct {
	Shifts       []*model.Shift
	Staff        []*model.StaffMember
	Availability []*model.AvailabilityRecord
	TimeOff      []*model.TimeOffRequest
	Weights      []*model.ConstraintWeight // 为空时使用默认扣分
}

// Build 构建约束得分矩阵
// 硬排除（无可用性记录、声明不可用、批准休假覆盖班次日期）得 0 分
// 软约束从 100 起扣分，下限 0
func Build(in Input) Matrix {
	availByUserDate := make(map[uuid.UUID]map[string]*model.AvailabilityRecord, len(in.Staff))
	for _, rec := range in.Availability {
		if availByUserDate[rec.UserID] == nil {
			availByUserDate[rec.UserID] = make(map[string]*model.AvailabilityRecord)
		}
		availByUserDate[rec.UserID][rec.Date] = rec
	}

	timeOffByUser := make(map[uuid.UUID][]*model.TimeOffRequest)
	for _, req := range in.TimeOff {
		if !req.IsApproved() {
			continue
		}
		timeOffByUser[req.UserID] = append(timeOffByUser[req.UserID], req)
	}

	m := make(Matrix, len(in.Staff))
	for _, staff := range in.Staff {
		row := make(map[uuid.UUID]int, len(in.Shifts))
		for _, shift := range in.Shifts {
			row[shift.ID] = scorePair(shift, staff, availByUserDate[staff.ID][shift.Date], timeOffByUser[staff.ID], in.Weights)
		}
		m[staff.ID] = row
	}

	return m
}

// scorePair 计算单个 (员工, 班次) 对的得分
func scorePair(
	shift *model.Shift,
	staff *model.StaffMember,
	avail *model.AvailabilityRecord,
	timeOff []*model.TimeOffRequest,
	weights []*model.ConstraintWeight,
) int {
	// 硬排除: 无记录或声明不可用
	if avail == nil || !avail.IsAvailable {
		return 0
	}

	// 硬排除: 批准休假覆盖班次日期，优先级高于可用性声明
	for _, req := range timeOff {
		if req.CoversDate(shift.Date) {
			return 0
		}
	}

	score := FullScore
	for _, pref := range avail.Preferences() {
		switch pref.Kind {
		case model.PreferenceShiftType:
			if pref.ShiftType != shift.ShiftType {
				score -= penaltyFor(model.WeightShiftTypePreference, DefaultShiftTypePenalty, shift, weights)
			}
		case model.PreferenceTimeWindow:
			startMin, endMin, err := timeutil.NormalizeClock(shift.StartTime, shift.EndTime)
			if err != nil || !timeutil.CoversRange(pref.StartMin, pref.EndMin, startMin, endMin) {
				score -= penaltyFor(model.WeightTimeWindowPreference, DefaultTimeWindowPenalty, shift, weights)
			}
		}
	}

	if score < 0 {
		score = 0
	}
	return score
}

// penaltyFor 查找适用于该班次范围的软约束权重，未配置时返回默认值
func penaltyFor(constraintType string, defaultPenalty int, shift *model.Shift, weights []*model.ConstraintWeight) int {
	for _, w := range weights {
		if !w.IsActive || w.Category != model.ConstraintSoft {
			continue
		}
		if w.ConstraintType != constraintType {
			continue
		}
		if w.AppliesTo(shift.HomeID, shift.ServiceID, "") {
			return w.Weight
		}
	}
	return defaultPenalty
}
