// Package model 定义养老院排班引擎的核心数据模型
package model

import (
	"github.com/google/uuid"

	"github.com/carehome/rota/pkg/timeutil"
)

// EmploymentType 用工类型
type EmploymentType string

const (
	EmploymentFullTime EmploymentType = "full_time" // 全职
	EmploymentPartTime EmploymentType = "part_time" // 兼职
	EmploymentBank     EmploymentType = "bank"      // 机动/替班
)

// WeeklyHourBand 返回用工类型的默认周工时区间（小时）
func (t EmploymentType) WeeklyHourBand() (min, max int) {
	switch t {
	case EmploymentFullTime:
		return 35, 48
	case EmploymentPartTime:
		return 16, 35
	case EmploymentBank:
		return 0, 48
	default:
		return 0, 48
	}
}

// StaffMember 护理员工
// 由外部用户管理系统维护，排班核心只读
type StaffMember struct {
	BaseModel
	Name                string         `json:"name" db:"name"`
	Type                EmploymentType `json:"type" db:"type"`
	Status              string         `json:"status" db:"status"` // active/inactive/leave
	Skills              []string       `json:"skills" db:"skills"`
	PreferredShiftTypes []string       `json:"preferred_shift_types" db:"preferred_shift_types"` // 有序，靠前优先
	HomeIDs             []uuid.UUID    `json:"home_ids" db:"home_ids"`
	DefaultHomeID       uuid.UUID      `json:"default_home_id" db:"default_home_id"`
}

// IsActive 检查员工是否在职
func (s *StaffMember) IsActive() bool {
	return s.Status == "active"
}

// HasSkill 检查员工是否具备某技能
func (s *StaffMember) HasSkill(skill string) bool {
	for _, sk := range s.Skills {
		if sk == skill {
			return true
		}
	}
	return false
}

// HasHomeAccess 检查员工是否有某院区的排班权限
func (s *StaffMember) HasHomeAccess(homeID uuid.UUID) bool {
	for _, id := range s.HomeIDs {
		if id == homeID {
			return true
		}
	}
	return false
}

// PreferenceKind 偏好变体类型（封闭集合，评分逻辑需穷举）
type PreferenceKind int

const (
	PreferenceNone       PreferenceKind = iota // 无声明偏好
	PreferenceShiftType                        // 班次类型偏好
	PreferenceTimeWindow                       // 时间窗偏好
)

// Preference 单条偏好变体
// 时间窗以零点起分钟数表示，跨天窗口由调用方归一化
type Preference struct {
	Kind      PreferenceKind `json:"kind"`
	ShiftType string         `json:"shift_type,omitempty"`
	StartMin  int            `json:"start_min,omitempty"`
	EndMin    int            `json:"end_min,omitempty"`
}

// AvailabilityRecord 员工可用性记录
// 每个 (员工, 日期) 至多一条；缺失表示"未声明偏好"，而非"不可用"
type AvailabilityRecord struct {
	UserID             uuid.UUID `json:"user_id" db:"user_id"`
	Date               string    `json:"date" db:"date"` // YYYY-MM-DD
	IsAvailable        bool      `json:"is_available" db:"is_available"`
	PreferredShiftType string    `json:"preferred_shift_type,omitempty" db:"preferred_shift_type"`
	StartTime          string    `json:"start_time,omitempty" db:"start_time"` // HH:MM 偏好时间窗
	EndTime            string    `json:"end_time,omitempty" db:"end_time"`
}

// Preferences 将可用性记录展开为偏好变体列表
// 班次类型偏好与时间窗偏好可以同时声明，各自独立扣分
func (a *AvailabilityRecord) Preferences() []Preference {
	var prefs []Preference

	if a.PreferredShiftType != "" {
		prefs = append(prefs, Preference{
			Kind:      PreferenceShiftType,
			ShiftType: a.PreferredShiftType,
		})
	}

	if a.StartTime != "" && a.EndTime != "" {
		prefs = append(prefs, Preference{
			Kind:     PreferenceTimeWindow,
			StartMin: timeutil.MustParseClock(a.StartTime),
			EndMin:   timeutil.MustParseClock(a.EndTime),
		})
	}

	if len(prefs) == 0 {
		prefs = append(prefs, Preference{Kind: PreferenceNone})
	}

	return prefs
}

// TimeOffStatus 休假申请状态
type TimeOffStatus string

const (
	TimeOffPending  TimeOffStatus = "pending"
	TimeOffApproved TimeOffStatus = "approved"
	TimeOffDenied   TimeOffStatus = "denied"
)

// TimeOffRequest 休假申请
// 只有 approved 状态才会约束排班
type TimeOffRequest struct {
	BaseModel
	UserID    uuid.UUID     `json:"user_id" db:"user_id"`
	StartDate string        `json:"start_date" db:"start_date"` // YYYY-MM-DD 闭区间
	EndDate   string        `json:"end_date" db:"end_date"`
	Status    TimeOffStatus `json:"status" db:"status"`
	Reason    string        `json:"reason,omitempty" db:"reason"`
}

// IsApproved 检查申请是否已批准
func (r *TimeOffRequest) IsApproved() bool {
	return r.Status == TimeOffApproved
}

// Overlaps 检查休假区间是否与查询区间相交
// 相交条件: start ≤ checkEnd 且 end ≥ checkStart
func (r *TimeOffRequest) Overlaps(checkStart, checkEnd string) bool {
	return r.StartDate <= checkEnd && r.EndDate >= checkStart
}

// CoversDate 检查休假是否覆盖某一天
func (r *TimeOffRequest) CoversDate(date string) bool {
	return r.Overlaps(date, date)
}
