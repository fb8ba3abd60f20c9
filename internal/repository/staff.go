package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/carehome/rota/pkg/model"
)

// StaffRepository 员工数据访问
// 员工主数据由外部系统维护，这里只读
type StaffRepository struct {
	db DB
}

// NewStaffRepository 创建员工仓储
func NewStaffRepository(db DB) *StaffRepository {
	return &StaffRepository{db: db}
}

const staffColumns = `
	id, name, type, status, skills, preferred_shift_types,
	home_ids, default_home_id, created_at, updated_at`

// GetByID 按 ID 查询员工，不存在时返回 (nil, nil)
func (r *StaffRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.StaffMember, error) {
	query := `SELECT ` + staffColumns + ` FROM staff WHERE id = $1 AND deleted_at IS NULL`

	staff, err := scanStaff(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("查询员工失败: %w", err)
	}
	return staff, nil
}

// ListActiveByHome 查询某院区的在职员工
func (r *StaffRepository) ListActiveByHome(ctx context.Context, homeID uuid.UUID) ([]*model.StaffMember, error) {
	query := `SELECT ` + staffColumns + `
		FROM staff
		WHERE status = 'active' AND $1 = ANY(home_ids) AND deleted_at IS NULL
		ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query, homeID.String())
	if err != nil {
		return nil, fmt.Errorf("查询员工列表失败: %w", err)
	}
	defer rows.Close()

	var staff []*model.StaffMember
	for rows.Next() {
		s, err := scanStaff(rows)
		if err != nil {
			return nil, fmt.Errorf("扫描员工失败: %w", err)
		}
		staff = append(staff, s)
	}
	return staff, rows.Err()
}

// scanStaff 扫描单行员工
// home_ids 以 text[] 存储，扫描后解析回 UUID
func scanStaff(row Scanner) (*model.StaffMember, error) {
	var (
		s       model.StaffMember
		homeIDs []string
	)
	err := row.Scan(
		&s.ID, &s.Name, &s.Type, &s.Status,
		pq.Array(&s.Skills), pq.Array(&s.PreferredShiftTypes),
		pq.Array(&homeIDs), &s.DefaultHomeID,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	s.HomeIDs = make([]uuid.UUID, 0, len(homeIDs))
	for _, raw := range homeIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("解析院区ID失败: %w", err)
		}
		s.HomeIDs = append(s.HomeIDs, id)
	}
	return &s, nil
}
