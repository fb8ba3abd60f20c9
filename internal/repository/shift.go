package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/carehome/rota/pkg/model"
)

// shiftColumns 班次表查询列
// date 统一转成 YYYY-MM-DD 文本，和模型字段保持同一表示
const shiftColumns = `
	id, home_id, service_id, to_char(date, 'YYYY-MM-DD'),
	start_time, end_time, shift_type, required_staff_count,
	created_at, updated_at`

// ShiftRepository 班次数据访问
type ShiftRepository struct {
	db DB
}

// NewShiftRepository 创建班次仓储
// db 可以是连接池也可以是事务，事务内复用同一套查询
func NewShiftRepository(db DB) *ShiftRepository {
	return &ShiftRepository{db: db}
}

// GetByID 按 ID 查询班次，含有效分配列表
// 不存在时返回 (nil, nil)
func (r *ShiftRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Shift, error) {
	query := `SELECT ` + shiftColumns + ` FROM shifts WHERE id = $1 AND deleted_at IS NULL`

	shift, err := scanShift(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("查询班次失败: %w", err)
	}

	if err := r.loadAssignments(ctx, shift); err != nil {
		return nil, err
	}
	return shift, nil
}

// GetByIDForUpdate 按 ID 加行锁查询班次
// 换班执行时锁住两个班次行，阻止并发换班触碰同一班次
func (r *ShiftRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Shift, error) {
	query := `SELECT ` + shiftColumns + ` FROM shifts WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`

	shift, err := scanShift(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("锁定班次失败: %w", err)
	}

	if err := r.loadAssignments(ctx, shift); err != nil {
		return nil, err
	}
	return shift, nil
}

// ListByHomeAndRange 查询某院区在日期范围内的班次
func (r *ShiftRepository) ListByHomeAndRange(ctx context.Context, homeID uuid.UUID, dr model.DateRange) ([]*model.Shift, error) {
	query := `SELECT ` + shiftColumns + `
		FROM shifts
		WHERE home_id = $1 AND date BETWEEN $2 AND $3 AND deleted_at IS NULL
		ORDER BY date, start_time`

	rows, err := r.db.QueryContext(ctx, query, homeID, dr.StartDate, dr.EndDate)
	if err != nil {
		return nil, fmt.Errorf("查询班次列表失败: %w", err)
	}
	defer rows.Close()

	var shifts []*model.Shift
	for rows.Next() {
		shift, err := scanShift(rows)
		if err != nil {
			return nil, fmt.Errorf("扫描班次失败: %w", err)
		}
		shifts = append(shifts, shift)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, shift := range shifts {
		if err := r.loadAssignments(ctx, shift); err != nil {
			return nil, err
		}
	}
	return shifts, nil
}

// ListByUserAndDate 查询某员工在某日期持有有效分配的班次
func (r *ShiftRepository) ListByUserAndDate(ctx context.Context, userID uuid.UUID, date string) ([]*model.Shift, error) {
	query := `SELECT ` + shiftColumns + `
		FROM shifts s
		WHERE s.date = $2 AND s.deleted_at IS NULL
		  AND EXISTS (
			SELECT 1 FROM shift_assignments a
			WHERE a.shift_id = s.id AND a.user_id = $1 AND a.status = 'assigned'
		  )
		ORDER BY s.start_time`

	rows, err := r.db.QueryContext(ctx, query, userID, date)
	if err != nil {
		return nil, fmt.Errorf("查询当日班次失败: %w", err)
	}
	defer rows.Close()

	var shifts []*model.Shift
	for rows.Next() {
		shift, err := scanShift(rows)
		if err != nil {
			return nil, fmt.Errorf("扫描班次失败: %w", err)
		}
		shifts = append(shifts, shift)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, shift := range shifts {
		if err := r.loadAssignments(ctx, shift); err != nil {
			return nil, err
		}
	}
	return shifts, nil
}

// ReplaceAssignments 覆写班次的人员分配
// 先删后插，必须在事务内调用
func (r *ShiftRepository) ReplaceAssignments(ctx context.Context, shift *model.Shift) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM shift_assignments WHERE shift_id = $1`, shift.ID,
	); err != nil {
		return fmt.Errorf("清除班次分配失败: %w", err)
	}

	insert := `INSERT INTO shift_assignments (shift_id, user_id, status, assigned_at, note)
		VALUES ($1, $2, $3, $4, $5)`
	for _, a := range shift.AssignedStaff {
		if _, err := r.db.ExecContext(ctx, insert,
			shift.ID, a.UserID, a.Status, a.AssignedAt, a.Note,
		); err != nil {
			return fmt.Errorf("写入班次分配失败: %w", err)
		}
	}

	if _, err := r.db.ExecContext(ctx,
		`UPDATE shifts SET updated_at = NOW() WHERE id = $1`, shift.ID,
	); err != nil {
		return fmt.Errorf("更新班次失败: %w", err)
	}
	return nil
}

// loadAssignments 加载班次的全部分配，含已取消的（覆写时不丢历史）
func (r *ShiftRepository) loadAssignments(ctx context.Context, shift *model.Shift) error {
	query := `SELECT user_id, status, assigned_at, COALESCE(note, '')
		FROM shift_assignments
		WHERE shift_id = $1
		ORDER BY assigned_at`

	rows, err := r.db.QueryContext(ctx, query, shift.ID)
	if err != nil {
		return fmt.Errorf("查询班次分配失败: %w", err)
	}
	defer rows.Close()

	shift.AssignedStaff = nil
	for rows.Next() {
		var a model.ShiftAssignment
		if err := rows.Scan(&a.UserID, &a.Status, &a.AssignedAt, &a.Note); err != nil {
			return fmt.Errorf("扫描班次分配失败: %w", err)
		}
		shift.AssignedStaff = append(shift.AssignedStaff, a)
	}
	return rows.Err()
}

// scanShift 扫描单行班次
func scanShift(row Scanner) (*model.Shift, error) {
	var shift model.Shift
	err := row.Scan(
		&shift.ID, &shift.HomeID, &shift.ServiceID, &shift.Date,
		&shift.StartTime, &shift.EndTime, &shift.ShiftType, &shift.RequiredStaffCount,
		&shift.CreatedAt, &shift.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &shift, nil
}
