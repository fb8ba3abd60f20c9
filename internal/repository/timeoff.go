package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/carehome/rota/pkg/model"
)

// TimeOffRepository 休假申请数据访问
type TimeOffRepository struct {
	db DB
}

// NewTimeOffRepository 创建休假仓储
func NewTimeOffRepository(db DB) *TimeOffRepository {
	return &TimeOffRepository{db: db}
}

const timeOffColumns = `
	id, user_id, to_char(start_date, 'YYYY-MM-DD'), to_char(end_date, 'YYYY-MM-DD'),
	status, COALESCE(reason, ''), created_at, updated_at`

// ListApprovedByUser 查询某员工已批准的休假申请
func (r *TimeOffRepository) ListApprovedByUser(ctx context.Context, userID uuid.UUID) ([]*model.TimeOffRequest, error) {
	query := `SELECT ` + timeOffColumns + `
		FROM time_off_requests
		WHERE user_id = $1 AND status = 'approved' AND deleted_at IS NULL
		ORDER BY start_date`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("查询休假申请失败: %w", err)
	}
	defer rows.Close()

	return collectTimeOff(rows)
}

// ListApprovedByHomeAndRange 查询某院区员工与日期范围相交的已批准休假
// 求解前一次性加载，求解期间不再回库
func (r *TimeOffRepository) ListApprovedByHomeAndRange(ctx context.Context, homeID uuid.UUID, dr model.DateRange) ([]*model.TimeOffRequest, error) {
	query := `SELECT ` + timeOffColumns + `
		FROM time_off_requests t
		WHERE t.status = 'approved' AND t.deleted_at IS NULL
		  AND t.start_date <= $3 AND t.end_date >= $2
		  AND EXISTS (
			SELECT 1 FROM staff s
			WHERE s.id = t.user_id AND $1 = ANY(s.home_ids) AND s.status = 'active'
		  )
		ORDER BY t.user_id, t.start_date`

	rows, err := r.db.QueryContext(ctx, query, homeID.String(), dr.StartDate, dr.EndDate)
	if err != nil {
		return nil, fmt.Errorf("查询休假申请失败: %w", err)
	}
	defer rows.Close()

	return collectTimeOff(rows)
}

func collectTimeOff(rows *sql.Rows) ([]*model.TimeOffRequest, error) {
	var requests []*model.TimeOffRequest
	for rows.Next() {
		var req model.TimeOffRequest
		if err := rows.Scan(
			&req.ID, &req.UserID, &req.StartDate, &req.EndDate,
			&req.Status, &req.Reason, &req.CreatedAt, &req.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("扫描休假申请失败: %w", err)
		}
		requests = append(requests, &req)
	}
	return requests, rows.Err()
}
