package validator

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/carehome/rota/pkg/errors"
	"github.com/carehome/rota/pkg/model"
)

// fakeStore 内存实现，测试用
type fakeStore struct {
	shifts  map[uuid.UUID]*model.Shift
	staff   map[uuid.UUID]*model.StaffMember
	timeOff map[uuid.UUID][]*model.TimeOffRequest
	swaps   []*model.ShiftSwapRequest
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		shifts:  make(map[uuid.UUID]*model.Shift),
		staff:   make(map[uuid.UUID]*model.StaffMember),
		timeOff: make(map[uuid.UUID][]*model.TimeOffRequest),
	}
}

func (f *fakeStore) GetShift(_ context.Context, id uuid.UUID) (*model.Shift, error) {
	return f.shifts[id], nil
}

func (f *fakeStore) GetStaff(_ context.Context, id uuid.UUID) (*model.StaffMember, error) {
	return f.staff[id], nil
}

func (f *fakeStore) ListStaffShiftsOnDate(_ context.Context, userID uuid.UUID, date string) ([]*model.Shift, error) {
	var held []*model.Shift
	for _, s := range f.shifts {
		if s.Date == date && s.HasAssignment(userID) {
			held = append(held, s)
		}
	}
	return held, nil
}

func (f *fakeStore) ListApprovedTimeOff(_ context.Context, userID uuid.UUID) ([]*model.TimeOffRequest, error) {
	return f.timeOff[userID], nil
}

func (f *fakeStore) ListPendingSwapsForShift(_ context.Context, shiftID uuid.UUID) ([]*model.ShiftSwapRequest, error) {
	var pending []*model.ShiftSwapRequest
	for _, s := range f.swaps {
		if s.Status != model.SwapPending {
			continue
		}
		if s.RequesterShiftID == shiftID || s.TargetShiftID == shiftID {
			pending = append(pending, s)
		}
	}
	return pending, nil
}

func (f *fakeStore) addShift(homeID uuid.UUID, date, start, end string, assignees ...uuid.UUID) *model.Shift {
	s := &model.Shift{
		BaseModel: model.NewBaseModel(),
		HomeID:    homeID,
		Date:      date, StartTime: start, EndTime: end,
		RequiredStaffCount: 1,
	}
	for _, userID := range assignees {
		s.AddAssignment(userID, "")
	}
	f.shifts[s.ID] = s
	return s
}

func (f *fakeStore) addStaff(name string, homeIDs ...uuid.UUID) *model.StaffMember {
	s := &model.StaffMember{
		BaseModel: model.NewBaseModel(),
		Name:      name, Status: "active",
		HomeIDs: homeIDs,
	}
	f.staff[s.ID] = s
	return s
}

func conflictTypes(r *Result) []ConflictType {
	types := make([]ConflictType, 0, len(r.Conflicts))
	for _, c := range r.Conflicts {
		types = append(types, c.Type)
	}
	return types
}

func hasConflictType(r *Result, ct ConflictType) bool {
	for _, c := range r.Conflicts {
		if c.Type == ct {
			return true
		}
	}
	return false
}

func TestValidateAssignment_Clean(t *testing.T) {
	store := newFakeStore()
	home := uuid.New()
	staff := store.addStaff("护理员A", home)

	result, err := New(store).ValidateAssignment(context.Background(), staff.ID, "2025-09-01", "08:00", "16:00")
	if err != nil {
		t.Fatalf("ValidateAssignment failed: %v", err)
	}
	if result.HasConflict {
		t.Errorf("Expected no conflicts, got %v", conflictTypes(result))
	}
}

func TestValidateAssignment_TimeOff(t *testing.T) {
	store := newFakeStore()
	staff := store.addStaff("护理员A")
	store.timeOff[staff.ID] = []*model.TimeOffRequest{
		{UserID: staff.ID, StartDate: "2025-08-30", EndDate: "2025-09-02", Status: model.TimeOffApproved},
	}

	result, err := New(store).ValidateAssignment(context.Background(), staff.ID, "2025-09-01", "08:00", "16:00")
	if err != nil {
		t.Fatalf("ValidateAssignment failed: %v", err)
	}
	if !hasConflictType(result, ConflictTimeOff) {
		t.Errorf("Expected time_off conflict, got %v", conflictTypes(result))
	}
}

func TestValidateAssignment_TimeOverlap(t *testing.T) {
	store := newFakeStore()
	home := uuid.New()
	staff := store.addStaff("护理员A", home)
	store.addShift(home, "2025-09-01", "08:00", "16:00", staff.ID)

	result, err := New(store).ValidateAssignment(context.Background(), staff.ID, "2025-09-01", "12:00", "20:00")
	if err != nil {
		t.Fatalf("ValidateAssignment failed: %v", err)
	}
	if !hasConflictType(result, ConflictTimeOverlap) {
		t.Errorf("Expected time_overlap conflict, got %v", conflictTypes(result))
	}
}

func TestValidateAssignment_InsufficientRest(t *testing.T) {
	store := newFakeStore()
	home := uuid.New()
	staff := store.addStaff("护理员A", home)
	store.addShift(home, "2025-09-01", "06:00", "10:00", staff.ID)

	// 10:00 下班到 14:00 上班只有 240 分钟休息
	result, err := New(store).ValidateAssignment(context.Background(), staff.ID, "2025-09-01", "14:00", "18:00")
	if err != nil {
		t.Fatalf("ValidateAssignment failed: %v", err)
	}
	if !hasConflictType(result, ConflictInsufficientRest) {
		t.Fatalf("Expected insufficient_rest conflict, got %v", conflictTypes(result))
	}

	// 消息中包含实际休息分钟数
	found := false
	for _, c := range result.Conflicts {
		if c.Type == ConflictInsufficientRest && strings.Contains(c.Message, "240") {
			found = true
		}
	}
	if !found {
		t.Error("Conflict message should contain the actual rest minutes")
	}
}

func TestValidateAssignment_DailyHours(t *testing.T) {
	store := newFakeStore()
	home := uuid.New()
	staff := store.addStaff("护理员A", home)

	// 已持有 00:00-14:00 共 14 小时，再接 14:00 跨天到 02:00 共 12 小时，累计 26 小时
	store.addShift(home, "2025-09-01", "00:00", "14:00", staff.ID)

	result, err := New(store).ValidateAssignment(context.Background(), staff.ID, "2025-09-01", "14:00", "02:00")
	if err != nil {
		t.Fatalf("ValidateAssignment failed: %v", err)
	}
	if !hasConflictType(result, ConflictDailyHours) {
		t.Errorf("Expected daily_hours conflict, got %v", conflictTypes(result))
	}
}

func TestValidateAssignment_UnknownStaff(t *testing.T) {
	store := newFakeStore()

	_, err := New(store).ValidateAssignment(context.Background(), uuid.New(), "2025-09-01", "08:00", "16:00")
	if err == nil {
		t.Fatal("Expected error for unknown staff")
	}
	if errors.GetCode(err) != errors.CodeNotFound {
		t.Errorf("Error code = %s, expected %s", errors.GetCode(err), errors.CodeNotFound)
	}
}

func TestValidateSwap_CrossHomeAccess(t *testing.T) {
	store := newFakeStore()
	homeA, homeB := uuid.New(), uuid.New()

	// 发起人只有 homeA 权限，目标班次在 homeB
	requester := store.addStaff("发起人", homeA)
	target := store.addStaff("目标员工", homeA, homeB)

	requesterShift := store.addShift(homeA, "2025-09-01", "08:00", "16:00", requester.ID)
	targetShift := store.addShift(homeB, "2025-09-02", "08:00", "16:00", target.ID)

	result, err := New(store).ValidateSwap(context.Background(),
		requesterShift.ID, targetShift.ID, requester.ID, target.ID, nil)
	if err != nil {
		t.Fatalf("ValidateSwap failed: %v", err)
	}

	if !hasConflictType(result, ConflictHomeAccess) {
		t.Fatalf("Expected home_access conflict, got %v", conflictTypes(result))
	}
	// 只有发起人缺权限，应恰好一条
	count := 0
	for _, c := range result.Conflicts {
		if c.Type == ConflictHomeAccess {
			count++
			if c.UserID != requester.ID {
				t.Error("home_access conflict should name the requester")
			}
		}
	}
	if count != 1 {
		t.Errorf("Expected exactly 1 home_access conflict, got %d", count)
	}
}

func TestValidateSwap_ExcludesSwappedShifts(t *testing.T) {
	store := newFakeStore()
	home := uuid.New()
	requester := store.addStaff("发起人", home)
	target := store.addStaff("目标员工", home)

	// 同日同时段的两个班次互换: 双方让出原班次后并不重叠
	requesterShift := store.addShift(home, "2025-09-01", "08:00", "16:00", requester.ID)
	targetShift := store.addShift(home, "2025-09-01", "08:00", "16:00", target.ID)

	result, err := New(store).ValidateSwap(context.Background(),
		requesterShift.ID, targetShift.ID, requester.ID, target.ID, nil)
	if err != nil {
		t.Fatalf("ValidateSwap failed: %v", err)
	}
	if result.HasConflict {
		t.Errorf("Expected no conflicts, got %v", conflictTypes(result))
	}
}

func TestValidateSwap_OverlapWithThirdShift(t *testing.T) {
	store := newFakeStore()
	home := uuid.New()
	requester := store.addStaff("发起人", home)
	target := store.addStaff("目标员工", home)

	requesterShift := store.addShift(home, "2025-09-01", "08:00", "16:00", requester.ID)
	targetShift := store.addShift(home, "2025-09-02", "08:00", "16:00", target.ID)

	// 发起人在目标班次当日另有一个重叠班次
	store.addShift(home, "2025-09-02", "12:00", "20:00", requester.ID)

	result, err := New(store).ValidateSwap(context.Background(),
		requesterShift.ID, targetShift.ID, requester.ID, target.ID, nil)
	if err != nil {
		t.Fatalf("ValidateSwap failed: %v", err)
	}
	if !hasConflictType(result, ConflictTimeOverlap) {
		t.Errorf("Expected time_overlap conflict, got %v", conflictTypes(result))
	}
}

func TestValidateSwap_DuplicatePending(t *testing.T) {
	store := newFakeStore()
	home := uuid.New()
	requester := store.addStaff("发起人", home)
	target := store.addStaff("目标员工", home)

	requesterShift := store.addShift(home, "2025-09-01", "08:00", "16:00", requester.ID)
	targetShift := store.addShift(home, "2025-09-02", "08:00", "16:00", target.ID)

	existing := model.NewShiftSwapRequest(requesterShift.ID, uuid.New(), requester.ID, uuid.New())
	store.swaps = append(store.swaps, existing)

	v := New(store)

	result, err := v.ValidateSwap(context.Background(),
		requesterShift.ID, targetShift.ID, requester.ID, target.ID, nil)
	if err != nil {
		t.Fatalf("ValidateSwap failed: %v", err)
	}
	if !hasConflictType(result, ConflictDuplicateSwap) {
		t.Errorf("Expected duplicate_swap conflict, got %v", conflictTypes(result))
	}

	// 审批复检时排除自身不算重复
	result, err = v.ValidateSwap(context.Background(),
		requesterShift.ID, targetShift.ID, requester.ID, target.ID, &existing.ID)
	if err != nil {
		t.Fatalf("ValidateSwap failed: %v", err)
	}
	if hasConflictType(result, ConflictDuplicateSwap) {
		t.Error("Excluded swap must not count as duplicate")
	}
}

func TestValidateSwap_ShiftNotFound(t *testing.T) {
	store := newFakeStore()
	home := uuid.New()
	requester := store.addStaff("发起人", home)
	target := store.addStaff("目标员工", home)

	_, err := New(store).ValidateSwap(context.Background(),
		uuid.New(), uuid.New(), requester.ID, target.ID, nil)
	if err == nil {
		t.Fatal("Expected error for missing shift")
	}
	if errors.GetCode(err) != errors.CodeNotFound {
		t.Errorf("Error code = %s, expected %s", errors.GetCode(err), errors.CodeNotFound)
	}
}
