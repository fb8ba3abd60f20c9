// Package model 定义养老院排班引擎的核心数据模型
package model

import (
	"time"

	"github.com/google/uuid"
)

// SwapStatus 换班请求状态
type SwapStatus string

const (
	SwapPending   SwapStatus = "pending"
	SwapApproved  SwapStatus = "approved"
	SwapRejected  SwapStatus = "rejected"
	SwapCancelled SwapStatus = "cancelled"
	SwapCompleted SwapStatus = "completed"
)

// DefaultSwapExpiry 换班请求默认有效期
const DefaultSwapExpiry = 7 * 24 * time.Hour

// ShiftSwapRequest 双方换班请求
// 只通过状态机变更，永不删除，只进入终态
type ShiftSwapRequest struct {
	BaseModel
	RequesterShiftID uuid.UUID  `json:"requester_shift_id" db:"requester_shift_id"`
	TargetShiftID    uuid.UUID  `json:"target_shift_id" db:"target_shift_id"`
	RequesterID      uuid.UUID  `json:"requester_id" db:"requester_id"`
	TargetUserID     uuid.UUID  `json:"target_user_id" db:"target_user_id"`
	Status           SwapStatus `json:"status" db:"status"`
	RequesterMessage string     `json:"requester_message,omitempty" db:"requester_message"`
	ResponseMessage  string     `json:"response_message,omitempty" db:"response_message"`

	// 创建时的冲突检查快照
	ConflictChecked bool     `json:"conflict_checked" db:"conflict_checked"`
	HasConflicts    bool     `json:"has_conflicts" db:"has_conflicts"`
	ConflictNotes   []string `json:"conflict_notes,omitempty" db:"conflict_notes"`

	RequestedAt time.Time  `json:"requested_at" db:"requested_at"`
	RespondedAt *time.Time `json:"responded_at,omitempty" db:"responded_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	ExpiresAt   time.Time  `json:"expires_at" db:"expires_at"`
}

// NewShiftSwapRequest 创建待处理的换班请求，有效期默认 7 天
func NewShiftSwapRequest(requesterShiftID, targetShiftID, requesterID, targetUserID uuid.UUID) *ShiftSwapRequest {
	now := time.Now()
	return &ShiftSwapRequest{
		BaseModel:        NewBaseModel(),
		RequesterShiftID: requesterShiftID,
		TargetShiftID:    targetShiftID,
		RequesterID:      requesterID,
		TargetUserID:     targetUserID,
		Status:           SwapPending,
		RequestedAt:      now,
		ExpiresAt:        now.Add(DefaultSwapExpiry),
	}
}

// IsExpired 检查请求在 now 时刻是否已过期
// 读取时计算，不落库
func (r *ShiftSwapRequest) IsExpired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// IsTerminal 检查状态是否为终态
// approved 不是终态，仍待执行
func (s SwapStatus) IsTerminal() bool {
	switch s {
	case SwapRejected, SwapCancelled, SwapCompleted:
		return true
	default:
		return false
	}
}

// IsValid 检查是否为已知状态
func (s SwapStatus) IsValid() bool {
	switch s {
	case SwapPending, SwapApproved, SwapRejected, SwapCancelled, SwapCompleted:
		return true
	default:
		return false
	}
}
