// Package model 定义养老院排班引擎的核心数据模型
package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/carehome/rota/pkg/timeutil"
)

// 班次类型标签
const (
	ShiftTypeDay     = "day"     // 白班
	ShiftTypeEvening = "evening" // 晚班
	ShiftTypeNight   = "night"   // 夜班
)

// AssignmentStatus 班次内单个分配的状态
type AssignmentStatus string

const (
	AssignmentActive    AssignmentStatus = "assigned"
	AssignmentCancelled AssignmentStatus = "cancelled"
)

// ShiftAssignment 班次内的单个人员分配
type ShiftAssignment struct {
	UserID     uuid.UUID        `json:"user_id" db:"user_id"`
	Status     AssignmentStatus `json:"status" db:"status"`
	AssignedAt time.Time        `json:"assigned_at" db:"assigned_at"`
	Note       string           `json:"note,omitempty" db:"note"` // 如换班引用: swap:<id>
}

// Shift 班次
// assigned_count ≤ required_count 是目标而非强制不变式
// 求解器/校验器只上报缺员或超员，不做拦截
type Shift struct {
	BaseModel
	HomeID             uuid.UUID         `json:"home_id" db:"home_id"`
	ServiceID          uuid.UUID         `json:"service_id" db:"service_id"`
	Date               string            `json:"date" db:"date"`             // YYYY-MM-DD
	StartTime          string            `json:"start_time" db:"start_time"` // HH:MM，可跨天
	EndTime            string            `json:"end_time" db:"end_time"`     // HH:MM
	ShiftType          string            `json:"shift_type" db:"shift_type"`
	RequiredStaffCount int               `json:"required_staff_count" db:"required_staff_count"`
	AssignedStaff      []ShiftAssignment `json:"assigned_staff" db:"-"`
}

// DurationMinutes 返回班次时长（分钟），跨天班次归一化后计算
func (s *Shift) DurationMinutes() int {
	d, err := timeutil.DurationMinutes(s.StartTime, s.EndTime)
	if err != nil {
		return 0
	}
	return d
}

// IsOvernight 检查是否为跨天班次
func (s *Shift) IsOvernight() bool {
	return timeutil.MustParseClock(s.EndTime) < timeutil.MustParseClock(s.StartTime)
}

// ActiveAssignments 返回当前有效的分配列表
func (s *Shift) ActiveAssignments() []ShiftAssignment {
	var active []ShiftAssignment
	for _, a := range s.AssignedStaff {
		if a.Status == AssignmentActive {
			active = append(active, a)
		}
	}
	return active
}

// ActiveCount 返回当前有效分配人数
func (s *Shift) ActiveCount() int {
	count := 0
	for _, a := range s.AssignedStaff {
		if a.Status == AssignmentActive {
			count++
		}
	}
	return count
}

// HasAssignment 检查某员工是否已分配到该班次
func (s *Shift) HasAssignment(userID uuid.UUID) bool {
	for _, a := range s.AssignedStaff {
		if a.UserID == userID && a.Status == AssignmentActive {
			return true
		}
	}
	return false
}

// AddAssignment 追加一个有效分配
func (s *Shift) AddAssignment(userID uuid.UUID, note string) {
	s.AssignedStaff = append(s.AssignedStaff, ShiftAssignment{
		UserID:     userID,
		Status:     AssignmentActive,
		AssignedAt: time.Now(),
		Note:       note,
	})
}

// RemoveAssignment 移除某员工的有效分配
// 返回是否找到并移除
func (s *Shift) RemoveAssignment(userID uuid.UUID) bool {
	for i, a := range s.AssignedStaff {
		if a.UserID == userID && a.Status == AssignmentActive {
			s.AssignedStaff = append(s.AssignedStaff[:i], s.AssignedStaff[i+1:]...)
			return true
		}
	}
	return false
}

// IsUnderstaffed 检查班次是否缺员
func (s *Shift) IsUnderstaffed() bool {
	return s.ActiveCount() < s.RequiredStaffCount
}

// ScoredAssignment 求解器产出的 (员工, 得分) 对
type ScoredAssignment struct {
	UserID uuid.UUID `json:"user_id"`
	Score  int       `json:"score"` // [0,100]
}

// AssignmentResult 单个班次的求解结果
// 瞬态数据，由调用方持久化到 Shift.AssignedStaff
type AssignmentResult struct {
	ShiftID  uuid.UUID          `json:"shift_id"`
	Assigned []ScoredAssignment `json:"assigned"`
	ShortBy  int                `json:"short_by,omitempty"` // 缺员人数
}

// Penalty 返回该班次分配的惩罚值 Σ(100 − score)
func (r *AssignmentResult) Penalty() int {
	total := 0
	for _, a := range r.Assigned {
		total += 100 - a.Score
	}
	return total
}
