package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/carehome/rota/pkg/model"
)

// SwapRepository 换班请求数据访问
type SwapRepository struct {
	db DB
}

// NewSwapRepository 创建换班仓储
func NewSwapRepository(db DB) *SwapRepository {
	return &SwapRepository{db: db}
}

const swapColumns = `
	id, requester_shift_id, target_shift_id, requester_id, target_user_id,
	status, COALESCE(requester_message, ''), COALESCE(response_message, ''),
	conflict_checked, has_conflicts, conflict_notes,
	requested_at, responded_at, completed_at, expires_at,
	created_at, updated_at`

// Create 写入新的换班请求
func (r *SwapRepository) Create(ctx context.Context, req *model.ShiftSwapRequest) error {
	query := `INSERT INTO shift_swap_requests
			(id, requester_shift_id, target_shift_id, requester_id, target_user_id,
			 status, requester_message, response_message,
			 conflict_checked, has_conflicts, conflict_notes,
			 requested_at, responded_at, completed_at, expires_at,
			 created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

	_, err := r.db.ExecContext(ctx, query,
		req.ID, req.RequesterShiftID, req.TargetShiftID, req.RequesterID, req.TargetUserID,
		req.Status, req.RequesterMessage, req.ResponseMessage,
		req.ConflictChecked, req.HasConflicts, pq.Array(req.ConflictNotes),
		req.RequestedAt, req.RespondedAt, req.CompletedAt, req.ExpiresAt,
		req.CreatedAt, req.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("写入换班请求失败: %w", err)
	}
	return nil
}

// GetByID 按 ID 查询换班请求，不存在时返回 (nil, nil)
func (r *SwapRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.ShiftSwapRequest, error) {
	query := `SELECT ` + swapColumns + ` FROM shift_swap_requests WHERE id = $1`

	req, err := scanSwap(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("查询换班请求失败: %w", err)
	}
	return req, nil
}

// Update 持久化换班请求的状态变更
func (r *SwapRepository) Update(ctx context.Context, req *model.ShiftSwapRequest) error {
	query := `UPDATE shift_swap_requests SET
			status = $2,
			response_message = $3,
			conflict_checked = $4,
			has_conflicts = $5,
			conflict_notes = $6,
			responded_at = $7,
			completed_at = $8,
			updated_at = NOW()
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query,
		req.ID, req.Status, req.ResponseMessage,
		req.ConflictChecked, req.HasConflicts, pq.Array(req.ConflictNotes),
		req.RespondedAt, req.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("更新换班请求失败: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新换班请求失败: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("换班请求 %s 不存在", req.ID)
	}
	return nil
}

// ListPendingByShift 查询引用该班次（任意一侧）的待处理换班请求
func (r *SwapRepository) ListPendingByShift(ctx context.Context, shiftID uuid.UUID) ([]*model.ShiftSwapRequest, error) {
	query := `SELECT ` + swapColumns + `
		FROM shift_swap_requests
		WHERE status = 'pending' AND (requester_shift_id = $1 OR target_shift_id = $1)
		ORDER BY requested_at`

	rows, err := r.db.QueryContext(ctx, query, shiftID)
	if err != nil {
		return nil, fmt.Errorf("查询换班请求失败: %w", err)
	}
	defer rows.Close()

	var requests []*model.ShiftSwapRequest
	for rows.Next() {
		req, err := scanSwap(rows)
		if err != nil {
			return nil, fmt.Errorf("扫描换班请求失败: %w", err)
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

// scanSwap 扫描单行换班请求
func scanSwap(row Scanner) (*model.ShiftSwapRequest, error) {
	var req model.ShiftSwapRequest
	err := row.Scan(
		&req.ID, &req.RequesterShiftID, &req.TargetShiftID, &req.RequesterID, &req.TargetUserID,
		&req.Status, &req.RequesterMessage, &req.ResponseMessage,
		&req.ConflictChecked, &req.HasConflicts, pq.Array(&req.ConflictNotes),
		&req.RequestedAt, &req.RespondedAt, &req.CompletedAt, &req.ExpiresAt,
		&req.CreatedAt, &req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &req, nil
}
