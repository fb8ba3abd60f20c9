package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/carehome/rota/internal/database"
	"github.com/carehome/rota/pkg/errors"
	"github.com/carehome/rota/pkg/model"
	"github.com/carehome/rota/pkg/scheduler"
	"github.com/carehome/rota/pkg/swap"
)

// Store 聚合各仓储，对外提供校验器和换班管理器需要的存储边界
type Store struct {
	db           *database.DB
	homes        *HomeRepository
	shifts       *ShiftRepository
	staff        *StaffRepository
	availability *AvailabilityRepository
	timeOff      *TimeOffRepository
	weights      *WeightRepository
	swaps        *SwapRepository
}

// NewStore 创建存储聚合
func NewStore(db *database.DB) *Store {
	return &Store{
		db:           db,
		homes:        NewHomeRepository(db),
		shifts:       NewShiftRepository(db),
		staff:        NewStaffRepository(db),
		availability: NewAvailabilityRepository(db),
		timeOff:      NewTimeOffRepository(db),
		weights:      NewWeightRepository(db),
		swaps:        NewSwapRepository(db),
	}
}

// Weights 返回权重仓储
func (s *Store) Weights() *WeightRepository {
	return s.weights
}

// GetShift 返回班次，不存在时返回 nil
func (s *Store) GetShift(ctx context.Context, id uuid.UUID) (*model.Shift, error) {
	return s.shifts.GetByID(ctx, id)
}

// GetStaff 返回员工，不存在时返回 nil
func (s *Store) GetStaff(ctx context.Context, id uuid.UUID) (*model.StaffMember, error) {
	return s.staff.GetByID(ctx, id)
}

// ListStaffShiftsOnDate 返回员工在某日期持有有效分配的班次
func (s *Store) ListStaffShiftsOnDate(ctx context.Context, userID uuid.UUID, date string) ([]*model.Shift, error) {
	return s.shifts.ListByUserAndDate(ctx, userID, date)
}

// ListApprovedTimeOff 返回员工已批准的休假申请
func (s *Store) ListApprovedTimeOff(ctx context.Context, userID uuid.UUID) ([]*model.TimeOffRequest, error) {
	return s.timeOff.ListApprovedByUser(ctx, userID)
}

// ListPendingSwapsForShift 返回引用该班次的待处理换班请求
func (s *Store) ListPendingSwapsForShift(ctx context.Context, shiftID uuid.UUID) ([]*model.ShiftSwapRequest, error) {
	return s.swaps.ListPendingByShift(ctx, shiftID)
}

// GetSwap 返回换班请求，不存在时返回 nil
func (s *Store) GetSwap(ctx context.Context, id uuid.UUID) (*model.ShiftSwapRequest, error) {
	return s.swaps.GetByID(ctx, id)
}

// UpdateSwap 持久化换班请求的状态变更
func (s *Store) UpdateSwap(ctx context.Context, req *model.ShiftSwapRequest) error {
	return s.swaps.Update(ctx, req)
}

// InTransaction 在单个数据库事务内执行 fn
// 换班创建、审批复检和执行都经由此入口: 冲突检测与写入在同一事务提交，
// 班次行锁把触碰同一班次的并发换班序列化在数据层
func (s *Store) InTransaction(ctx context.Context, fn func(tx swap.TxStore) error) error {
	return s.db.Transaction(ctx, func(sqlTx *sql.Tx) error {
		return fn(&txStore{
			shifts:  NewShiftRepository(sqlTx),
			staff:   NewStaffRepository(sqlTx),
			timeOff: NewTimeOffRepository(sqlTx),
			swaps:   NewSwapRepository(sqlTx),
		})
	})
}

// LoadSolveInput 加载某院区在日期范围内的全部求解输入
// 一次性加载，求解期间不再回库
func (s *Store) LoadSolveInput(ctx context.Context, homeID uuid.UUID, window model.DateRange) (*scheduler.SolveInput, error) {
	home, err := s.homes.GetByID(ctx, homeID)
	if err != nil {
		return nil, err
	}
	if home == nil {
		return nil, errors.NotFound("院区", homeID.String())
	}

	shifts, err := s.shifts.ListByHomeAndRange(ctx, homeID, window)
	if err != nil {
		return nil, err
	}

	staff, err := s.staff.ListActiveByHome(ctx, homeID)
	if err != nil {
		return nil, err
	}

	availability, err := s.availability.ListByHomeAndRange(ctx, homeID, window)
	if err != nil {
		return nil, err
	}

	timeOff, err := s.timeOff.ListApprovedByHomeAndRange(ctx, homeID, window)
	if err != nil {
		return nil, err
	}

	weights, err := s.weights.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	return &scheduler.SolveInput{
		HomeID:       homeID,
		Window:       window,
		Shifts:       shifts,
		Staff:        staff,
		Availability: availability,
		TimeOff:      timeOff,
		Weights:      weights,
	}, nil
}

// txStore 事务内的数据访问，底层仓储共享同一个 *sql.Tx
// 同时实现校验器的只读边界，事务内复检读到加锁后的最新状态
type txStore struct {
	shifts  *ShiftRepository
	staff   *StaffRepository
	timeOff *TimeOffRepository
	swaps   *SwapRepository
}

func (t *txStore) GetShift(ctx context.Context, id uuid.UUID) (*model.Shift, error) {
	return t.shifts.GetByID(ctx, id)
}

func (t *txStore) GetStaff(ctx context.Context, id uuid.UUID) (*model.StaffMember, error) {
	return t.staff.GetByID(ctx, id)
}

func (t *txStore) ListStaffShiftsOnDate(ctx context.Context, userID uuid.UUID, date string) ([]*model.Shift, error) {
	return t.shifts.ListByUserAndDate(ctx, userID, date)
}

func (t *txStore) ListApprovedTimeOff(ctx context.Context, userID uuid.UUID) ([]*model.TimeOffRequest, error) {
	return t.timeOff.ListApprovedByUser(ctx, userID)
}

func (t *txStore) ListPendingSwapsForShift(ctx context.Context, shiftID uuid.UUID) ([]*model.ShiftSwapRequest, error) {
	return t.swaps.ListPendingByShift(ctx, shiftID)
}

func (t *txStore) GetShiftForUpdate(ctx context.Context, id uuid.UUID) (*model.Shift, error) {
	return t.shifts.GetByIDForUpdate(ctx, id)
}

func (t *txStore) UpdateShiftAssignments(ctx context.Context, shift *model.Shift) error {
	return t.shifts.ReplaceAssignments(ctx, shift)
}

func (t *txStore) GetSwap(ctx context.Context, id uuid.UUID) (*model.ShiftSwapRequest, error) {
	return t.swaps.GetByID(ctx, id)
}

func (t *txStore) CreateSwap(ctx context.Context, req *model.ShiftSwapRequest) error {
	return t.swaps.Create(ctx, req)
}

func (t *txStore) UpdateSwap(ctx context.Context, req *model.ShiftSwapRequest) error {
	return t.swaps.Update(ctx, req)
}
