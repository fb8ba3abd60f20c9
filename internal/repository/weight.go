package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/carehome/rota/pkg/model"
)

// WeightRepository 约束权重数据访问
type WeightRepository struct {
	db DB
}

// NewWeightRepository 创建权重仓储
func NewWeightRepository(db DB) *WeightRepository {
	return &WeightRepository{db: db}
}

const weightColumns = `
	id, name, constraint_type, category, weight,
	scope, scope_home_id, scope_service_id, COALESCE(scope_role, ''),
	is_active, created_at, updated_at`

// ListActive 查询所有启用的约束权重
// 每次求解加载一次，求解期间视为不可变
func (r *WeightRepository) ListActive(ctx context.Context) ([]*model.ConstraintWeight, error) {
	query := `SELECT ` + weightColumns + `
		FROM constraint_weights
		WHERE is_active = TRUE AND deleted_at IS NULL
		ORDER BY constraint_type, scope`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("查询约束权重失败: %w", err)
	}
	defer rows.Close()

	var weights []*model.ConstraintWeight
	for rows.Next() {
		var (
			w         model.ConstraintWeight
			homeID    sql.NullString
			serviceID sql.NullString
		)
		if err := rows.Scan(
			&w.ID, &w.Name, &w.ConstraintType, &w.Category, &w.Weight,
			&w.Scope, &homeID, &serviceID, &w.ScopeRole,
			&w.IsActive, &w.CreatedAt, &w.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("扫描约束权重失败: %w", err)
		}
		w.ScopeHomeID = parseNullUUID(homeID)
		w.ScopeServiceID = parseNullUUID(serviceID)
		weights = append(weights, &w)
	}
	return weights, rows.Err()
}

// Upsert 按 (constraint_type, scope) 写入或更新约束权重
// 用于初始化默认权重目录
func (r *WeightRepository) Upsert(ctx context.Context, w *model.ConstraintWeight) error {
	query := `INSERT INTO constraint_weights
			(id, name, constraint_type, category, weight, scope, scope_home_id, scope_service_id, scope_role, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		ON CONFLICT (constraint_type, scope) DO UPDATE SET
			name = EXCLUDED.name,
			category = EXCLUDED.category,
			weight = EXCLUDED.weight,
			is_active = EXCLUDED.is_active,
			updated_at = NOW()`

	_, err := r.db.ExecContext(ctx, query,
		w.ID, w.Name, w.ConstraintType, w.Category, w.Weight,
		w.Scope, nullUUID(w.ScopeHomeID), nullUUID(w.ScopeServiceID), w.ScopeRole, w.IsActive,
	)
	if err != nil {
		return fmt.Errorf("写入约束权重失败: %w", err)
	}
	return nil
}
