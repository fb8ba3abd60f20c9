// Package swap 提供换班请求的生命周期管理与原子执行
package swap

import (
	"github.com/carehome/rota/pkg/model"
)

// 状态机:
//
//	pending → approved → completed
//	pending → rejected
//	pending → cancelled
//
// 除 pending 起点和 approved 待执行外均为终态

// CanTransition 检查状态迁移是否合法
func CanTransition(from, to model.SwapStatus) bool {
	switch from {
	case model.SwapPending:
		return to == model.SwapApproved || to == model.SwapRejected || to == model.SwapCancelled
	case model.SwapApproved:
		return to == model.SwapCompleted
	default:
		return false
	}
}
