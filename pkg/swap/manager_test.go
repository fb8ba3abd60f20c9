package swap

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carehome/rota/pkg/errors"
	"github.com/carehome/rota/pkg/model"
	"github.com/carehome/rota/pkg/validator"
)

// memStore 同时实现校验器和换班管理器的存储边界
type memStore struct {
	shifts  map[uuid.UUID]*model.Shift
	staff   map[uuid.UUID]*model.StaffMember
	timeOff map[uuid.UUID][]*model.TimeOffRequest
	swaps   map[uuid.UUID]*model.ShiftSwapRequest

	commitErr error // 非空时事务在提交阶段失败并整体回滚

	locked []uuid.UUID             // 记录事务内加行锁的班次
	onLock func(shiftID uuid.UUID) // 行锁取得时回调，模拟锁前已提交的并发会话
}

func newMemStore() *memStore {
	return &memStore{
		shifts:  make(map[uuid.UUID]*model.Shift),
		staff:   make(map[uuid.UUID]*model.StaffMember),
		timeOff: make(map[uuid.UUID][]*model.TimeOffRequest),
		swaps:   make(map[uuid.UUID]*model.ShiftSwapRequest),
	}
}

func (s *memStore) GetShift(_ context.Context, id uuid.UUID) (*model.Shift, error) {
	return s.shifts[id], nil
}

func (s *memStore) GetStaff(_ context.Context, id uuid.UUID) (*model.StaffMember, error) {
	return s.staff[id], nil
}

func (s *memStore) ListStaffShiftsOnDate(_ context.Context, userID uuid.UUID, date string) ([]*model.Shift, error) {
	var held []*model.Shift
	for _, shift := range s.shifts {
		if shift.Date == date && shift.HasAssignment(userID) {
			held = append(held, shift)
		}
	}
	return held, nil
}

func (s *memStore) ListApprovedTimeOff(_ context.Context, userID uuid.UUID) ([]*model.TimeOffRequest, error) {
	return s.timeOff[userID], nil
}

func (s *memStore) ListPendingSwapsForShift(_ context.Context, shiftID uuid.UUID) ([]*model.ShiftSwapRequest, error) {
	var pending []*model.ShiftSwapRequest
	for _, req := range s.swaps {
		if req.Status != model.SwapPending {
			continue
		}
		if req.RequesterShiftID == shiftID || req.TargetShiftID == shiftID {
			pending = append(pending, req)
		}
	}
	return pending, nil
}

func (s *memStore) GetSwap(_ context.Context, id uuid.UUID) (*model.ShiftSwapRequest, error) {
	return s.swaps[id], nil
}

func (s *memStore) UpdateSwap(_ context.Context, req *model.ShiftSwapRequest) error {
	s.swaps[req.ID] = req
	return nil
}

// InTransaction 模拟事务: fn 失败或提交失败时恢复快照
func (s *memStore) InTransaction(_ context.Context, fn func(tx TxStore) error) error {
	shiftSnap := make(map[uuid.UUID]*model.Shift, len(s.shifts))
	for id, shift := range s.shifts {
		shiftSnap[id] = copyShift(shift)
	}
	swapSnap := make(map[uuid.UUID]*model.ShiftSwapRequest, len(s.swaps))
	for id, req := range s.swaps {
		snapshot := *req
		swapSnap[id] = &snapshot
	}

	err := fn(&memTx{store: s})
	if err == nil {
		err = s.commitErr
	}
	if err != nil {
		s.shifts = shiftSnap
		s.swaps = swapSnap
		return err
	}
	return nil
}

func copyShift(s *model.Shift) *model.Shift {
	clone := *s
	clone.AssignedStaff = append([]model.ShiftAssignment(nil), s.AssignedStaff...)
	return &clone
}

// memTx 事务视图: 读委托给底层 store，写直接落到共享 map 上
type memTx struct {
	store *memStore
}

func (t *memTx) GetShift(ctx context.Context, id uuid.UUID) (*model.Shift, error) {
	return t.store.GetShift(ctx, id)
}

func (t *memTx) GetStaff(ctx context.Context, id uuid.UUID) (*model.StaffMember, error) {
	return t.store.GetStaff(ctx, id)
}

func (t *memTx) ListStaffShiftsOnDate(ctx context.Context, userID uuid.UUID, date string) ([]*model.Shift, error) {
	return t.store.ListStaffShiftsOnDate(ctx, userID, date)
}

func (t *memTx) ListApprovedTimeOff(ctx context.Context, userID uuid.UUID) ([]*model.TimeOffRequest, error) {
	return t.store.ListApprovedTimeOff(ctx, userID)
}

func (t *memTx) ListPendingSwapsForShift(ctx context.Context, shiftID uuid.UUID) ([]*model.ShiftSwapRequest, error) {
	return t.store.ListPendingSwapsForShift(ctx, shiftID)
}

func (t *memTx) GetShiftForUpdate(_ context.Context, id uuid.UUID) (*model.Shift, error) {
	t.store.locked = append(t.store.locked, id)
	if t.store.onLock != nil {
		t.store.onLock(id)
	}
	return t.store.shifts[id], nil
}

func (t *memTx) UpdateShiftAssignments(_ context.Context, shift *model.Shift) error {
	t.store.shifts[shift.ID] = shift
	return nil
}

func (t *memTx) GetSwap(ctx context.Context, id uuid.UUID) (*model.ShiftSwapRequest, error) {
	return t.store.GetSwap(ctx, id)
}

func (t *memTx) CreateSwap(_ context.Context, req *model.ShiftSwapRequest) error {
	t.store.swaps[req.ID] = req
	return nil
}

func (t *memTx) UpdateSwap(_ context.Context, req *model.ShiftSwapRequest) error {
	t.store.swaps[req.ID] = req
	return nil
}

// swapFixture 标准换班场景: 两名员工各持一个不同日期的班次
type swapFixture struct {
	store          *memStore
	manager        *Manager
	requester      *model.StaffMember
	target         *model.StaffMember
	requesterShift *model.Shift
	targetShift    *model.Shift
}

func newSwapFixture(t *testing.T) *swapFixture {
	t.Helper()
	store := newMemStore()
	home := uuid.New()

	requester := &model.StaffMember{BaseModel: model.NewBaseModel(), Name: "发起人", Status: "active", HomeIDs: []uuid.UUID{home}}
	target := &model.StaffMember{BaseModel: model.NewBaseModel(), Name: "目标员工", Status: "active", HomeIDs: []uuid.UUID{home}}
	store.staff[requester.ID] = requester
	store.staff[target.ID] = target

	requesterShift := &model.Shift{
		BaseModel: model.NewBaseModel(), HomeID: home,
		Date: "2025-09-01", StartTime: "08:00", EndTime: "16:00", RequiredStaffCount: 1,
	}
	requesterShift.AddAssignment(requester.ID, "")
	targetShift := &model.Shift{
		BaseModel: model.NewBaseModel(), HomeID: home,
		Date: "2025-09-03", StartTime: "08:00", EndTime: "16:00", RequiredStaffCount: 1,
	}
	targetShift.AddAssignment(target.ID, "")
	store.shifts[requesterShift.ID] = requesterShift
	store.shifts[targetShift.ID] = targetShift

	return &swapFixture{
		store:          store,
		manager:        NewManager(store, validator.New(store)),
		requester:      requester,
		target:         target,
		requesterShift: requesterShift,
		targetShift:    targetShift,
	}
}

func (f *swapFixture) createPending(t *testing.T) *model.ShiftSwapRequest {
	t.Helper()
	req, check, err := f.manager.Create(context.Background(),
		f.requesterShift.ID, f.targetShift.ID, f.requester.ID, f.target.ID, "家里有事想换一下")
	require.NoError(t, err)
	require.False(t, check.HasConflict)
	return req
}

func TestManager_Create(t *testing.T) {
	f := newSwapFixture(t)

	req := f.createPending(t)

	assert.Equal(t, model.SwapPending, req.Status)
	assert.True(t, req.ConflictChecked)
	assert.False(t, req.HasConflicts)
	assert.Equal(t, "家里有事想换一下", req.RequesterMessage)
	assert.NotNil(t, f.store.swaps[req.ID], "request should be persisted")
}

func TestManager_Create_BlockedByConflict(t *testing.T) {
	f := newSwapFixture(t)

	// 目标员工在发起方班次当日休假，换过去必然冲突
	f.store.timeOff[f.target.ID] = []*model.TimeOffRequest{
		{UserID: f.target.ID, StartDate: "2025-09-01", EndDate: "2025-09-01", Status: model.TimeOffApproved},
	}

	req, check, err := f.manager.Create(context.Background(),
		f.requesterShift.ID, f.targetShift.ID, f.requester.ID, f.target.ID, "")

	require.Error(t, err)
	assert.Equal(t, errors.CodeConflictDetected, errors.GetCode(err))
	assert.Nil(t, req)
	require.NotNil(t, check)
	assert.True(t, check.HasConflict)
	assert.Empty(t, f.store.swaps, "conflicting request must not be persisted")
}

func TestManager_Create_LocksShiftRows(t *testing.T) {
	f := newSwapFixture(t)

	f.createPending(t)

	// 创建在事务内对双方班次加行锁，并按固定顺序避免死锁
	require.Len(t, f.store.locked, 2)
	assert.ElementsMatch(t, []uuid.UUID{f.requesterShift.ID, f.targetShift.ID}, f.store.locked)
	assert.True(t, bytes.Compare(f.store.locked[0][:], f.store.locked[1][:]) < 0,
		"shift rows should be locked in fixed order")
}

func TestManager_Create_DuplicateCommittedBeforeLock(t *testing.T) {
	f := newSwapFixture(t)

	// 另一会话的同班次请求赶在本事务拿到行锁前提交
	other := model.NewShiftSwapRequest(f.requesterShift.ID, f.targetShift.ID, f.requester.ID, f.target.ID)
	f.store.onLock = func(uuid.UUID) {
		f.store.swaps[other.ID] = other
	}

	req, check, err := f.manager.Create(context.Background(),
		f.requesterShift.ID, f.targetShift.ID, f.requester.ID, f.target.ID, "")

	require.Error(t, err)
	assert.Equal(t, errors.CodeConflictDetected, errors.GetCode(err))
	assert.Nil(t, req)
	require.NotNil(t, check)

	// 重复检测在行锁之后执行，已提交的在途请求必须被看到
	found := false
	for _, c := range check.Conflicts {
		if c.Type == validator.ConflictDuplicateSwap {
			found = true
		}
	}
	assert.True(t, found, "in-flight request committed before the lock must be detected")
}

func TestManager_Approve(t *testing.T) {
	f := newSwapFixture(t)
	req := f.createPending(t)

	check, err := f.manager.Approve(context.Background(), req.ID, f.target.ID, "可以换")
	require.NoError(t, err)
	assert.False(t, check.HasConflict)

	stored := f.store.swaps[req.ID]
	assert.Equal(t, model.SwapApproved, stored.Status)
	assert.Equal(t, "可以换", stored.ResponseMessage)
	assert.NotNil(t, stored.RespondedAt)
}

func TestManager_Approve_WrongActor(t *testing.T) {
	f := newSwapFixture(t)
	req := f.createPending(t)

	_, err := f.manager.Approve(context.Background(), req.ID, f.requester.ID, "")
	require.Error(t, err)
	assert.Equal(t, errors.CodeForbidden, errors.GetCode(err))
	assert.Equal(t, model.SwapPending, f.store.swaps[req.ID].Status)
}

func TestManager_Approve_RevalidationBlocks(t *testing.T) {
	f := newSwapFixture(t)
	req := f.createPending(t)

	// 创建之后发起人在目标班次当日又接了重叠的班
	conflicting := &model.Shift{
		BaseModel: model.NewBaseModel(), HomeID: f.requesterShift.HomeID,
		Date: "2025-09-03", StartTime: "12:00", EndTime: "20:00", RequiredStaffCount: 1,
	}
	conflicting.AddAssignment(f.requester.ID, "")
	f.store.shifts[conflicting.ID] = conflicting

	check, err := f.manager.Approve(context.Background(), req.ID, f.target.ID, "")
	require.Error(t, err)
	assert.Equal(t, errors.CodeConflictDetected, errors.GetCode(err))
	require.NotNil(t, check)
	assert.True(t, check.HasConflict)

	// 请求保持 pending，冲突快照留底
	stored := f.store.swaps[req.ID]
	assert.Equal(t, model.SwapPending, stored.Status)
	assert.True(t, stored.HasConflicts)
	assert.NotEmpty(t, stored.ConflictNotes)
}

func TestManager_Approve_LocksShiftRows(t *testing.T) {
	f := newSwapFixture(t)
	req := f.createPending(t)
	f.store.locked = nil

	_, err := f.manager.Approve(context.Background(), req.ID, f.target.ID, "")
	require.NoError(t, err)

	// 审批复检与状态写入在同一事务内，双方班次都加了行锁
	assert.ElementsMatch(t, []uuid.UUID{f.requesterShift.ID, f.targetShift.ID}, f.store.locked)
}

func TestManager_Approve_AfterReject(t *testing.T) {
	f := newSwapFixture(t)
	req := f.createPending(t)

	require.NoError(t, f.manager.Reject(context.Background(), req.ID, f.target.ID, ""))

	// 已拒绝的请求不在合法迁移范围内
	_, err := f.manager.Approve(context.Background(), req.ID, f.target.ID, "")
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidState, errors.GetCode(err))
	assert.Equal(t, model.SwapRejected, f.store.swaps[req.ID].Status)
}

func TestManager_Approve_Expired(t *testing.T) {
	f := newSwapFixture(t)
	req := f.createPending(t)

	f.manager.SetClock(func() time.Time {
		return time.Now().Add(8 * 24 * time.Hour)
	})

	_, err := f.manager.Approve(context.Background(), req.ID, f.target.ID, "")
	require.Error(t, err)
	assert.Equal(t, errors.CodeExpired, errors.GetCode(err))
	assert.Equal(t, model.SwapPending, f.store.swaps[req.ID].Status)
}

func TestManager_Reject(t *testing.T) {
	f := newSwapFixture(t)
	req := f.createPending(t)

	err := f.manager.Reject(context.Background(), req.ID, f.target.ID, "那天不方便")
	require.NoError(t, err)

	stored := f.store.swaps[req.ID]
	assert.Equal(t, model.SwapRejected, stored.Status)
	assert.Equal(t, "那天不方便", stored.ResponseMessage)
	assert.NotNil(t, stored.RespondedAt)
}

func TestManager_Cancel(t *testing.T) {
	f := newSwapFixture(t)
	req := f.createPending(t)

	// 目标员工不能取消别人发起的请求
	err := f.manager.Cancel(context.Background(), req.ID, f.target.ID)
	require.Error(t, err)
	assert.Equal(t, errors.CodeForbidden, errors.GetCode(err))

	err = f.manager.Cancel(context.Background(), req.ID, f.requester.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SwapCancelled, f.store.swaps[req.ID].Status)

	// 已取消后不能再取消
	err = f.manager.Cancel(context.Background(), req.ID, f.requester.ID)
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidState, errors.GetCode(err))
}

func TestManager_Execute(t *testing.T) {
	f := newSwapFixture(t)
	req := f.createPending(t)

	_, err := f.manager.Approve(context.Background(), req.ID, f.target.ID, "")
	require.NoError(t, err)

	result, err := f.manager.Execute(context.Background(), req.ID)
	require.NoError(t, err)
	assert.True(t, result.Success)

	// 双方交换后各自持有对方的原班次，人数不变
	requesterShift := f.store.shifts[f.requesterShift.ID]
	targetShift := f.store.shifts[f.targetShift.ID]

	assert.True(t, requesterShift.HasAssignment(f.target.ID))
	assert.False(t, requesterShift.HasAssignment(f.requester.ID))
	assert.True(t, targetShift.HasAssignment(f.requester.ID))
	assert.False(t, targetShift.HasAssignment(f.target.ID))
	assert.Equal(t, 1, requesterShift.ActiveCount())
	assert.Equal(t, 1, targetShift.ActiveCount())

	// 新分配带换班引用备注
	for _, a := range requesterShift.ActiveAssignments() {
		assert.Equal(t, fmt.Sprintf("swap:%s", req.ID), a.Note)
	}

	stored := f.store.swaps[req.ID]
	assert.Equal(t, model.SwapCompleted, stored.Status)
	assert.NotNil(t, stored.CompletedAt)
}

func TestManager_Execute_RequiresApproved(t *testing.T) {
	f := newSwapFixture(t)
	req := f.createPending(t)

	_, err := f.manager.Execute(context.Background(), req.ID)
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidState, errors.GetCode(err))
}

func TestManager_Execute_TxFailureKeepsApproved(t *testing.T) {
	f := newSwapFixture(t)
	req := f.createPending(t)

	_, err := f.manager.Approve(context.Background(), req.ID, f.target.ID, "")
	require.NoError(t, err)

	// 第一次执行在提交阶段失败
	f.store.commitErr = fmt.Errorf("connection reset")
	_, err = f.manager.Execute(context.Background(), req.ID)
	require.Error(t, err)
	assert.Equal(t, errors.CodeSystemError, errors.GetCode(err))

	// 请求保持 approved，班次归属不变
	assert.Equal(t, model.SwapApproved, f.store.swaps[req.ID].Status)
	assert.True(t, f.store.shifts[f.requesterShift.ID].HasAssignment(f.requester.ID))
	assert.True(t, f.store.shifts[f.targetShift.ID].HasAssignment(f.target.ID))

	// 故障恢复后重试成功
	f.store.commitErr = nil
	result, err := f.manager.Execute(context.Background(), req.ID)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, model.SwapCompleted, f.store.swaps[req.ID].Status)
}

func TestManager_Execute_OccupantGone(t *testing.T) {
	f := newSwapFixture(t)
	req := f.createPending(t)

	_, err := f.manager.Approve(context.Background(), req.ID, f.target.ID, "")
	require.NoError(t, err)

	// 执行前发起人已被移出原班次
	f.store.shifts[f.requesterShift.ID].RemoveAssignment(f.requester.ID)

	_, err = f.manager.Execute(context.Background(), req.ID)
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidState, errors.GetCode(err))
	assert.Equal(t, model.SwapApproved, f.store.swaps[req.ID].Status)
}
