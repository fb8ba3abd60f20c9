package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/carehome/rota/pkg/model"
)

// HomeRepository 院区数据访问
// 院区主数据由外部系统维护，这里只读
type HomeRepository struct {
	db DB
}

// NewHomeRepository 创建院区仓储
func NewHomeRepository(db DB) *HomeRepository {
	return &HomeRepository{db: db}
}

// GetByID 按 ID 查询院区，不存在时返回 (nil, nil)
func (r *HomeRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Home, error) {
	query := `
		SELECT id, name, code, created_at, updated_at
		FROM homes
		WHERE id = $1 AND deleted_at IS NULL`

	var home model.Home
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&home.ID, &home.Name, &home.Code, &home.CreatedAt, &home.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("查询院区失败: %w", err)
	}
	return &home, nil
}
