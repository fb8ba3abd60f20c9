// Package validator 提供排班冲突校验
// 规则检查无状态、只读，业务违规以结构化数据返回而非错误
// 只有被引用实体缺失（NotFound）和存储故障（SystemError）才返回 error
package validator

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/carehome/rota/pkg/errors"
	"github.com/carehome/rota/pkg/model"
	"github.com/carehome/rota/pkg/timeutil"
)

// ConflictType 冲突类型
type ConflictType string

const (
	ConflictTimeOff          ConflictType = "time_off"          // 批准休假覆盖班次日期
	ConflictTimeOverlap      ConflictType = "time_overlap"      // 同日班次时间重叠
	ConflictInsufficientRest ConflictType = "insufficient_rest" // 班次间休息不足
	ConflictDailyHours       ConflictType = "daily_hours"       // 单日工时超限
	ConflictHomeAccess       ConflictType = "home_access"       // 无目标院区排班权限
	ConflictDuplicateSwap    ConflictType = "duplicate_swap"    // 班次已有待处理换班请求
)

// 默认规则阈值
const (
	MinRestMinutes  = 660     // 最小休息 11 小时
	MaxDailyMinutes = 24 * 60 // 单日工时上限 24 小时
)

// Conflict 单条冲突信息
type Conflict struct {
	Type    ConflictType `json:"type"`
	UserID  uuid.UUID    `json:"user_id,omitempty"`
	ShiftID uuid.UUID    `json:"shift_id,omitempty"`
	Message string       `json:"message"`
}

// Result 校验结果
type Result struct {
	HasConflict bool       `json:"has_conflict"`
	Conflicts   []Conflict `json:"conflicts"`
}

// add 追加冲突
func (r *Result) add(c Conflict) {
	r.HasConflict = true
	r.Conflicts = append(r.Conflicts, c)
}

// Store 校验器的只读数据访问边界
// 换班审批场景下实现方需保证读到最新状态
type Store interface {
	// GetShift 返回班次，不存在时返回 nil
	GetShift(ctx context.Context, id uuid.UUID) (*model.Shift, error)

	// GetStaff 返回员工，不存在时返回 nil
	GetStaff(ctx context.Context, id uuid.UUID) (*model.StaffMember, error)

	// ListStaffShiftsOnDate 返回员工在某日期持有有效分配的班次
	ListStaffShiftsOnDate(ctx context.Context, userID uuid.UUID, date string) ([]*model.Shift, error)

	// ListApprovedTimeOff 返回员工已批准的休假申请
	ListApprovedTimeOff(ctx context.Context, userID uuid.UUID) ([]*model.TimeOffRequest, error)

	// ListPendingSwapsForShift 返回引用该班次（任意一侧）的待处理换班请求
	ListPendingSwapsForShift(ctx context.Context, shiftID uuid.UUID) ([]*model.ShiftSwapRequest, error)
}

// ConflictValidator 冲突校验器
type ConflictValidator struct {
	store    Store
	minRest  int // 班次间最小休息（分钟）
	maxDaily int // 单日工时上限（分钟）
}

// New 创建冲突校验器，使用默认阈值
func New(store Store) *ConflictValidator {
	return &ConflictValidator{
		store:    store,
		minRest:  MinRestMinutes,
		maxDaily: MaxDailyMinutes,
	}
}

// WithStore 返回绑定到指定存储的校验器副本，阈值不变
// 换班创建和审批在事务内复检时绑定事务存储
func (v *ConflictValidator) WithStore(store Store) *ConflictValidator {
	clone := *v
	clone.store = store
	return &clone
}

// SetLimits 覆盖休息与日工时阈值，非正值保持默认
func (v *ConflictValidator) SetLimits(minRestMinutes, maxDailyMinutes int) {
	if minRestMinutes > 0 {
		v.minRest = minRestMinutes
	}
	if maxDailyMinutes > 0 {
		v.maxDaily = maxDailyMinutes
	}
}

// ValidateAssignment 校验某员工在指定日期时段接班是否存在冲突
func (v *ConflictValidator) ValidateAssignment(
	ctx context.Context,
	userID uuid.UUID,
	date, startTime, endTime string,
) (*Result, error) {
	staff, err := v.store.GetStaff(ctx, userID)
	if err != nil {
		return nil, errors.SystemError("查询员工", err)
	}
	if staff == nil {
		return nil, errors.NotFound("员工", userID.String())
	}

	return v.checkCandidate(ctx, userID, date, startTime, endTime, nil)
}

// ValidateSwap 校验双方换班请求
// excludeSwapID 非空时在重复换班检查中排除该请求自身，供审批时复检使用
func (v *ConflictValidator) ValidateSwap(
	ctx context.Context,
	requesterShiftID, targetShiftID uuid.UUID,
	requesterID, targetUserID uuid.UUID,
	excludeSwapID *uuid.UUID,
) (*Result, error) {
	requesterShift, err := v.store.GetShift(ctx, requesterShiftID)
	if err != nil {
		return nil, errors.SystemError("查询班次", err)
	}
	if requesterShift == nil {
		return nil, errors.NotFound("班次", requesterShiftID.String())
	}

	targetShift, err := v.store.GetShift(ctx, targetShiftID)
	if err != nil {
		return nil, errors.SystemError("查询班次", err)
	}
	if targetShift == nil {
		return nil, errors.NotFound("班次", targetShiftID.String())
	}

	requester, err := v.store.GetStaff(ctx, requesterID)
	if err != nil {
		return nil, errors.SystemError("查询员工", err)
	}
	if requester == nil {
		return nil, errors.NotFound("员工", requesterID.String())
	}

	target, err := v.store.GetStaff(ctx, targetUserID)
	if err != nil {
		return nil, errors.SystemError("查询员工", err)
	}
	if target == nil {
		return nil, errors.NotFound("员工", targetUserID.String())
	}

	result := &Result{}

	// 跨院区换班: 双方都需要对方班次所在院区的权限
	if requesterShift.HomeID != targetShift.HomeID {
		if !requester.HasHomeAccess(targetShift.HomeID) {
			result.add(Conflict{
				Type:    ConflictHomeAccess,
				UserID:  requesterID,
				ShiftID: targetShiftID,
				Message: fmt.Sprintf("员工 %s 无目标班次所在院区的排班权限", requester.Name),
			})
		}
		if !target.HasHomeAccess(requesterShift.HomeID) {
			result.add(Conflict{
				Type:    ConflictHomeAccess,
				UserID:  targetUserID,
				ShiftID: requesterShiftID,
				Message: fmt.Sprintf("员工 %s 无发起方班次所在院区的排班权限", target.Name),
			})
		}
	}

	// 换班后双方离开原班次，检查接班冲突时排除两个换班班次自身
	exclude := []uuid.UUID{requesterShiftID, targetShiftID}

	reqResult, err := v.checkCandidate(ctx, requesterID, targetShift.Date, targetShift.StartTime, targetShift.EndTime, exclude)
	if err != nil {
		return nil, err
	}
	mergeInto(result, reqResult)

	tgtResult, err := v.checkCandidate(ctx, targetUserID, requesterShift.Date, requesterShift.StartTime, requesterShift.EndTime, exclude)
	if err != nil {
		return nil, err
	}
	mergeInto(result, tgtResult)

	// 任一班次已有在途换班请求则拒绝，避免并发交换同一班次
	for _, shiftID := range []uuid.UUID{requesterShiftID, targetShiftID} {
		pending, err := v.store.ListPendingSwapsForShift(ctx, shiftID)
		if err != nil {
			return nil, errors.SystemError("查询换班请求", err)
		}
		for _, p := range pending {
			if excludeSwapID != nil && p.ID == *excludeSwapID {
				continue
			}
			result.add(Conflict{
				Type:    ConflictDuplicateSwap,
				ShiftID: shiftID,
				Message: fmt.Sprintf("班次 %s 已存在待处理的换班请求 %s", shiftID, p.ID),
			})
		}
	}

	return result, nil
}

// checkCandidate 检查某员工在指定日期接一段时间的班是否冲突
// excludeShiftIDs 中的班次不参与重叠/休息/工时计算（换班时双方让出的班次）
func (v *ConflictValidator) checkCandidate(
	ctx context.Context,
	userID uuid.UUID,
	date, startTime, endTime string,
	excludeShiftIDs []uuid.UUID,
) (*Result, error) {
	result := &Result{}

	candStart, candEnd, err := timeutil.NormalizeClock(startTime, endTime)
	if err != nil {
		return nil, errors.InvalidInput("start_time/end_time", err.Error())
	}

	// 批准休假覆盖该日期
	timeOff, err := v.store.ListApprovedTimeOff(ctx, userID)
	if err != nil {
		return nil, errors.SystemError("查询休假记录", err)
	}
	for _, req := range timeOff {
		if req.CoversDate(date) {
			result.add(Conflict{
				Type:    ConflictTimeOff,
				UserID:  userID,
				Message: fmt.Sprintf("批准休假 %s ~ %s 覆盖班次日期 %s", req.StartDate, req.EndDate, date),
			})
		}
	}

	held, err := v.store.ListStaffShiftsOnDate(ctx, userID, date)
	if err != nil {
		return nil, errors.SystemError("查询当日班次", err)
	}

	excluded := make(map[uuid.UUID]bool, len(excludeShiftIDs))
	for _, id := range excludeShiftIDs {
		excluded[id] = true
	}

	dailyMinutes := candEnd - candStart
	for _, shift := range held {
		if excluded[shift.ID] {
			continue
		}

		heldStart, heldEnd, err := timeutil.NormalizeClock(shift.StartTime, shift.EndTime)
		if err != nil {
			continue
		}

		if timeutil.Overlaps(candStart, candEnd, heldStart, heldEnd) {
			result.add(Conflict{
				Type:    ConflictTimeOverlap,
				UserID:  userID,
				ShiftID: shift.ID,
				Message: fmt.Sprintf("与已持有班次 %s (%s-%s) 时间重叠", shift.ID, shift.StartTime, shift.EndTime),
			})
		} else if rest := timeutil.RestMinutes(candStart, candEnd, heldStart, heldEnd); rest >= 0 && rest < v.minRest {
			// 休息不足上报为冲突而非硬拦截，消息包含实际分钟数
			result.add(Conflict{
				Type:    ConflictInsufficientRest,
				UserID:  userID,
				ShiftID: shift.ID,
				Message: fmt.Sprintf("与班次 %s 之间仅休息 %d 分钟，少于要求的 %d 分钟", shift.ID, rest, v.minRest),
			})
		}

		dailyMinutes += heldEnd - heldStart
	}

	if dailyMinutes > v.maxDaily {
		result.add(Conflict{
			Type:    ConflictDailyHours,
			UserID:  userID,
			Message: fmt.Sprintf("当日累计工时 %.1f 小时，超过 %.0f 小时上限", float64(dailyMinutes)/60, float64(v.maxDaily)/60),
		})
	}

	return result, nil
}

// mergeInto 合并校验结果
func mergeInto(dst, src *Result) {
	for _, c := range src.Conflicts {
		dst.add(c)
	}
}
