// Package swap 提供换班请求的生命周期管理与原子执行
package swap

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/carehome/rota/pkg/errors"
	"github.com/carehome/rota/pkg/logger"
	"github.com/carehome/rota/pkg/model"
	"github.com/carehome/rota/pkg/validator"
)

// TxStore 事务内的数据访问
// 嵌入校验器的只读边界: 冲突校验与写入读同一事务内的数据，
// 重复请求检测由班次行锁在数据层序列化
type TxStore interface {
	validator.Store

	// GetShiftForUpdate 加行锁读取班次，阻止并发换班触碰同一班次
	GetShiftForUpdate(ctx context.Context, id uuid.UUID) (*model.Shift, error)

	// UpdateShiftAssignments 覆写班次的人员分配列表
	UpdateShiftAssignments(ctx context.Context, shift *model.Shift) error

	// GetSwap 返回换班请求，不存在时返回 nil
	GetSwap(ctx context.Context, id uuid.UUID) (*model.ShiftSwapRequest, error)

	// CreateSwap 持久化新建的换班请求
	CreateSwap(ctx context.Context, req *model.ShiftSwapRequest) error

	// UpdateSwap 持久化换班请求
	UpdateSwap(ctx context.Context, req *model.ShiftSwapRequest) error
}

// Store 换班管理器的存储边界
type Store interface {
	// GetSwap 返回换班请求，不存在时返回 nil
	GetSwap(ctx context.Context, id uuid.UUID) (*model.ShiftSwapRequest, error)

	// UpdateSwap 持久化状态变更
	UpdateSwap(ctx context.Context, req *model.ShiftSwapRequest) error

	// InTransaction 在单个存储事务内执行 fn
	InTransaction(ctx context.Context, fn func(tx TxStore) error) error
}

// swapReader 统一事务内外的请求读取
type swapReader interface {
	GetSwap(ctx context.Context, id uuid.UUID) (*model.ShiftSwapRequest, error)
}

// ExecuteResult 换班执行结果
type ExecuteResult struct {
	Success          bool      `json:"success"`
	RequesterShiftID uuid.UUID `json:"requester_shift_id"`
	TargetShiftID    uuid.UUID `json:"target_shift_id"`
}

// Manager 换班生命周期管理器
type Manager struct {
	store     Store
	validator *validator.ConflictValidator
	logger    *logger.RotaLogger
	now       func() time.Time
	expiry    time.Duration
}

// NewManager 创建换班管理器
func NewManager(store Store, v *validator.ConflictValidator) *Manager {
	return &Manager{
		store:     store,
		validator: v,
		logger:    logger.NewRotaLogger("swap"),
		now:       time.Now,
		expiry:    model.DefaultSwapExpiry,
	}
}

// SetClock 注入时钟，测试过期逻辑用
func (m *Manager) SetClock(now func() time.Time) {
	m.now = now
}

// SetExpiry 覆盖新建请求的有效期，非正值保持默认
func (m *Manager) SetExpiry(d time.Duration) {
	if d > 0 {
		m.expiry = d
	}
}

// Create 创建换班请求
// 冲突校验、重复请求检测与写入在同一事务内完成，
// 班次行锁序列化并发创建: 两个同时触碰同一班次的请求只有一个能通过
// 有冲突时不落库，校验结果原样返回供前端展示
func (m *Manager) Create(
	ctx context.Context,
	requesterShiftID, targetShiftID uuid.UUID,
	requesterID, targetUserID uuid.UUID,
	message string,
) (*model.ShiftSwapRequest, *validator.Result, error) {
	var (
		req   *model.ShiftSwapRequest
		check *validator.Result
	)
	err := m.store.InTransaction(ctx, func(tx TxStore) error {
		if _, err := lockShifts(ctx, tx, requesterShiftID, targetShiftID); err != nil {
			return err
		}

		c, err := m.validator.WithStore(tx).ValidateSwap(ctx,
			requesterShiftID, targetShiftID, requesterID, targetUserID, nil)
		if err != nil {
			return err
		}
		check = c
		if c.HasConflict {
			return errors.ConflictDetected(len(c.Conflicts))
		}

		r := model.NewShiftSwapRequest(requesterShiftID, targetShiftID, requesterID, targetUserID)
		r.RequesterMessage = message
		r.ExpiresAt = r.RequestedAt.Add(m.expiry)
		r.ConflictChecked = true
		r.HasConflicts = false

		if err := tx.CreateSwap(ctx, r); err != nil {
			return err
		}
		req = r
		return nil
	})
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			return nil, check, appErr
		}
		return nil, check, errors.SystemError("创建换班请求", err)
	}

	return req, check, nil
}

// Approve 批准换班请求
// 创建与审批之间时间已流逝，批准前必须在同一事务内重新校验冲突，
// 班次行锁保证复检读到的是并发变更后的最新状态
// 校验失败时请求保持 pending，冲突快照随事务提交，明细随错误返回
func (m *Manager) Approve(ctx context.Context, swapID, actorID uuid.UUID, message string) (*validator.Result, error) {
	var (
		check   *validator.Result
		blocked bool
	)
	err := m.store.InTransaction(ctx, func(tx TxStore) error {
		req, err := m.loadPending(ctx, tx, swapID, model.SwapApproved, "approve")
		if err != nil {
			return err
		}
		if actorID != req.TargetUserID {
			return errors.Forbidden("approve")
		}

		if _, err := lockShifts(ctx, tx, req.RequesterShiftID, req.TargetShiftID); err != nil {
			return err
		}
		// 行锁到手前请求可能已被并发事务推进，重读确认仍可批准
		req, err = m.loadPending(ctx, tx, swapID, model.SwapApproved, "approve")
		if err != nil {
			return err
		}

		check, err = m.validator.WithStore(tx).ValidateSwap(ctx,
			req.RequesterShiftID, req.TargetShiftID,
			req.RequesterID, req.TargetUserID,
			&req.ID,
		)
		if err != nil {
			return err
		}
		if check.HasConflict {
			// 快照留底随事务提交，状态不变
			blocked = true
			req.ConflictChecked = true
			req.HasConflicts = true
			req.ConflictNotes = conflictNotes(check)
			return tx.UpdateSwap(ctx, req)
		}

		now := m.now()
		req.Status = model.SwapApproved
		req.ResponseMessage = message
		req.RespondedAt = &now
		req.ConflictChecked = true
		req.HasConflicts = false
		req.ConflictNotes = nil
		return tx.UpdateSwap(ctx, req)
	})
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			return check, appErr
		}
		return check, errors.SystemError("更新换班请求", err)
	}
	if blocked {
		return check, errors.ConflictDetected(len(check.Conflicts))
	}

	return check, nil
}

// Reject 拒绝换班请求
func (m *Manager) Reject(ctx context.Context, swapID, actorID uuid.UUID, message string) error {
	req, err := m.loadPending(ctx, m.store, swapID, model.SwapRejected, "reject")
	if err != nil {
		return err
	}

	if actorID != req.TargetUserID {
		return errors.Forbidden("reject")
	}

	now := m.now()
	req.Status = model.SwapRejected
	req.ResponseMessage = message
	req.RespondedAt = &now

	if err := m.store.UpdateSwap(ctx, req); err != nil {
		return errors.SystemError("更新换班请求", err)
	}
	return nil
}

// Cancel 取消换班请求，仅发起人可操作
// 已过期的 pending 请求仍可取消
func (m *Manager) Cancel(ctx context.Context, swapID, actorID uuid.UUID) error {
	req, err := m.store.GetSwap(ctx, swapID)
	if err != nil {
		return errors.SystemError("查询换班请求", err)
	}
	if req == nil {
		return errors.NotFound("换班请求", swapID.String())
	}

	if !CanTransition(req.Status, model.SwapCancelled) {
		return errors.InvalidState("cancel", string(req.Status))
	}
	if actorID != req.RequesterID {
		return errors.Forbidden("cancel")
	}

	now := m.now()
	req.Status = model.SwapCancelled
	req.RespondedAt = &now

	if err := m.store.UpdateSwap(ctx, req); err != nil {
		return errors.SystemError("更新换班请求", err)
	}
	return nil
}

// Execute 执行已批准的换班: 两个班次的人员交换在单个事务内完成
// 事务失败时请求保持 approved，可安全重试
func (m *Manager) Execute(ctx context.Context, swapID uuid.UUID) (*ExecuteResult, error) {
	req, err := m.store.GetSwap(ctx, swapID)
	if err != nil {
		return nil, errors.SystemError("查询换班请求", err)
	}
	if req == nil {
		return nil, errors.NotFound("换班请求", swapID.String())
	}

	if !CanTransition(req.Status, model.SwapCompleted) {
		return nil, errors.InvalidState("execute", string(req.Status))
	}

	note := fmt.Sprintf("swap:%s", req.ID)

	err = m.store.InTransaction(ctx, func(tx TxStore) error {
		locked, err := lockShifts(ctx, tx, req.RequesterShiftID, req.TargetShiftID)
		if err != nil {
			return err
		}
		requesterShift := locked[req.RequesterShiftID]
		targetShift := locked[req.TargetShiftID]

		// 双方必须仍持有各自的原班次
		if !requesterShift.RemoveAssignment(req.RequesterID) {
			return errors.InvalidState("execute", "发起人已不在原班次")
		}
		if !targetShift.RemoveAssignment(req.TargetUserID) {
			return errors.InvalidState("execute", "目标员工已不在目标班次")
		}

		requesterShift.AddAssignment(req.TargetUserID, note)
		targetShift.AddAssignment(req.RequesterID, note)

		if err := tx.UpdateShiftAssignments(ctx, requesterShift); err != nil {
			return err
		}
		if err := tx.UpdateShiftAssignments(ctx, targetShift); err != nil {
			return err
		}

		now := m.now()
		req.Status = model.SwapCompleted
		req.CompletedAt = &now
		return tx.UpdateSwap(ctx, req)
	})
	if err != nil {
		// 回滚后内存状态与库一致: 保持 approved
		req.Status = model.SwapApproved
		req.CompletedAt = nil
		if appErr, ok := err.(*errors.AppError); ok {
			return nil, appErr
		}
		return nil, errors.SystemError("执行换班", err)
	}

	m.logger.SwapExecuted(req.ID.String(), req.RequesterShiftID.String(), req.TargetShiftID.String())

	return &ExecuteResult{
		Success:          true,
		RequesterShiftID: req.RequesterShiftID,
		TargetShiftID:    req.TargetShiftID,
	}, nil
}

// lockShifts 按固定顺序对两个班次加行锁，返回加锁后的班次
// 顺序固定，两个反向引用同一对班次的事务不会互相死锁
func lockShifts(ctx context.Context, tx TxStore, a, b uuid.UUID) (map[uuid.UUID]*model.Shift, error) {
	ids := []uuid.UUID{a, b}
	if bytes.Compare(b[:], a[:]) < 0 {
		ids[0], ids[1] = b, a
	}

	locked := make(map[uuid.UUID]*model.Shift, len(ids))
	for _, id := range ids {
		shift, err := tx.GetShiftForUpdate(ctx, id)
		if err != nil {
			return nil, err
		}
		if shift == nil {
			return nil, errors.NotFound("班次", id.String())
		}
		locked[id] = shift
	}
	return locked, nil
}

// loadPending 读取请求并校验可迁移到目标状态且未过期
func (m *Manager) loadPending(ctx context.Context, src swapReader, swapID uuid.UUID, to model.SwapStatus, op string) (*model.ShiftSwapRequest, error) {
	req, err := src.GetSwap(ctx, swapID)
	if err != nil {
		return nil, errors.SystemError("查询换班请求", err)
	}
	if req == nil {
		return nil, errors.NotFound("换班请求", swapID.String())
	}

	if !CanTransition(req.Status, to) {
		return nil, errors.InvalidState(op, string(req.Status))
	}
	if req.IsExpired(m.now()) {
		return nil, errors.Expired("换班请求", req.ID.String())
	}

	return req, nil
}

// conflictNotes 将冲突明细压成快照字符串列表
func conflictNotes(r *validator.Result) []string {
	notes := make([]string, 0, len(r.Conflicts))
	for _, c := range r.Conflicts {
		notes = append(notes, fmt.Sprintf("%s: %s", c.Type, c.Message))
	}
	return notes
}
