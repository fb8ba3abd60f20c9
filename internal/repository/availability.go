package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/carehome/rota/pkg/model"
)

// AvailabilityRepository 可用性记录数据访问
type AvailabilityRepository struct {
	db DB
}

// NewAvailabilityRepository 创建可用性仓储
func NewAvailabilityRepository(db DB) *AvailabilityRepository {
	return &AvailabilityRepository{db: db}
}

// ListByHomeAndRange 查询某院区在职员工在日期范围内的可用性记录
// 每个 (员工, 日期) 至多一条，缺失表示未声明偏好
func (r *AvailabilityRepository) ListByHomeAndRange(ctx context.Context, homeID uuid.UUID, dr model.DateRange) ([]*model.AvailabilityRecord, error) {
	query := `SELECT a.user_id, to_char(a.date, 'YYYY-MM-DD'), a.is_available,
			COALESCE(a.preferred_shift_type, ''), COALESCE(a.start_time, ''), COALESCE(a.end_time, '')
		FROM availability_records a
		JOIN staff s ON s.id = a.user_id
		WHERE $1 = ANY(s.home_ids) AND s.status = 'active'
		  AND a.date BETWEEN $2 AND $3
		ORDER BY a.user_id, a.date`

	rows, err := r.db.QueryContext(ctx, query, homeID.String(), dr.StartDate, dr.EndDate)
	if err != nil {
		return nil, fmt.Errorf("查询可用性记录失败: %w", err)
	}
	defer rows.Close()

	var records []*model.AvailabilityRecord
	for rows.Next() {
		var rec model.AvailabilityRecord
		if err := rows.Scan(
			&rec.UserID, &rec.Date, &rec.IsAvailable,
			&rec.PreferredShiftType, &rec.StartTime, &rec.EndTime,
		); err != nil {
			return nil, fmt.Errorf("扫描可用性记录失败: %w", err)
		}
		records = append(records, &rec)
	}
	return records, rows.Err()
}
