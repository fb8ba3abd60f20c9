// Package model 定义养老院排班引擎的核心数据模型
package model

import (
	"time"

	"github.com/google/uuid"
)

// ConstraintCategory 约束类别
type ConstraintCategory string

const (
	ConstraintHard ConstraintCategory = "hard" // 硬约束（违反则得分为0）
	ConstraintSoft ConstraintCategory = "soft" // 软约束（违反则扣分）
)

// BaseModel 基础模型（包含通用字段）
type BaseModel struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt *time.Time `json:"-" db:"deleted_at"`
}

// NewBaseModel 创建新的基础模型
func NewBaseModel() BaseModel {
	now := time.Now()
	return BaseModel{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Home 养老院院区
// 服务单元只以 ID 形式出现在班次和权重范围上，不单独建模
type Home struct {
	BaseModel
	Name string `json:"name" db:"name"`
	Code string `json:"code" db:"code"`
}

// DateRange 日期范围
type DateRange struct {
	StartDate string `json:"start_date"` // YYYY-MM-DD
	EndDate   string `json:"end_date"`   // YYYY-MM-DD
}

// Contains 检查日期是否落在闭区间内
func (dr DateRange) Contains(date string) bool {
	return dr.StartDate <= date && date <= dr.EndDate
}

// ScopeKind 约束权重的适用范围
type ScopeKind string

const (
	ScopeAll     ScopeKind = "all"     // 全局适用
	ScopeHome    ScopeKind = "home"    // 指定院区
	ScopeService ScopeKind = "service" // 指定服务单元
	ScopeRole    ScopeKind = "role"    // 指定岗位
)

// ConstraintWeight 约束权重（每次求解加载一次，求解期间不可变）
type ConstraintWeight struct {
	BaseModel
	Name           string             `json:"name" db:"name"`
	ConstraintType string             `json:"constraint_type" db:"constraint_type"`
	Category       ConstraintCategory `json:"category" db:"category"`
	Weight         int                `json:"weight" db:"weight"`
	Scope          ScopeKind          `json:"scope" db:"scope"`
	ScopeHomeID    *uuid.UUID         `json:"scope_home_id,omitempty" db:"scope_home_id"`
	ScopeServiceID *uuid.UUID         `json:"scope_service_id,omitempty" db:"scope_service_id"`
	ScopeRole      string             `json:"scope_role,omitempty" db:"scope_role"`
	IsActive       bool               `json:"is_active" db:"is_active"`
}

// 约束类型标识
const (
	WeightNoDoubleBooking      = "no_double_booking"
	WeightRespectTimeOff       = "respect_time_off"
	WeightRespectAvailability  = "respect_availability"
	WeightShiftTypePreference  = "shift_type_preference"
	WeightTimeWindowPreference = "time_window_preference"
	WeightMaxHoursPerWeek      = "max_hours_per_week"
	WeightMinRestBetweenShifts = "min_rest_between_shifts"
	WeightMinStaffRequired     = "min_staff_required"
)

// AppliesTo 检查权重是否适用于某个排班范围
func (w *ConstraintWeight) AppliesTo(homeID, serviceID uuid.UUID, role string) bool {
	switch w.Scope {
	case ScopeHome:
		return w.ScopeHomeID != nil && *w.ScopeHomeID == homeID
	case ScopeService:
		return w.ScopeServiceID != nil && *w.ScopeServiceID == serviceID
	case ScopeRole:
		return w.ScopeRole == role
	default:
		return true
	}
}
