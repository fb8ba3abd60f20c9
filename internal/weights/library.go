// Package weights 提供内置的约束权重目录
// 库表中无覆盖记录时，评分矩阵按这里的默认值扣分
package weights

import (
	"context"

	"github.com/carehome/rota/internal/repository"
	"github.com/carehome/rota/pkg/model"
)

// Definition 约束定义
type Definition struct {
	Name           string
	ConstraintType string
	Category       model.ConstraintCategory
	Weight         int // 软约束为扣分值，硬约束固定为 0 分
	Description    string
}

// Defaults 返回内置约束目录
// 硬约束违反直接判 0 分，软约束按权重扣分
func Defaults() []Definition {
	return []Definition{
		{
			Name:           "禁止重复排班",
			ConstraintType: model.WeightNoDoubleBooking,
			Category:       model.ConstraintHard,
			Weight:         0,
			Description:    "同一轮求解内每名员工至多分配一个班次",
		},
		{
			Name:           "遵守批准休假",
			ConstraintType: model.WeightRespectTimeOff,
			Category:       model.ConstraintHard,
			Weight:         0,
			Description:    "批准休假覆盖班次日期时不可排班",
		},
		{
			Name:           "遵守可用性声明",
			ConstraintType: model.WeightRespectAvailability,
			Category:       model.ConstraintHard,
			Weight:         0,
			Description:    "员工声明当日不可用时不可排班",
		},
		{
			Name:           "班次类型偏好",
			ConstraintType: model.WeightShiftTypePreference,
			Category:       model.ConstraintSoft,
			Weight:         30,
			Description:    "班次类型与员工偏好不符时扣分",
		},
		{
			Name:           "时间窗偏好",
			ConstraintType: model.WeightTimeWindowPreference,
			Category:       model.ConstraintSoft,
			Weight:         20,
			Description:    "班次超出员工偏好时间窗时扣分",
		},
		{
			Name:           "班次间最小休息",
			ConstraintType: model.WeightMinRestBetweenShifts,
			Category:       model.ConstraintSoft,
			Weight:         0,
			Description:    "相邻班次间隔不足 660 分钟时上报冲突",
		},
		{
			Name:           "周工时上限",
			ConstraintType: model.WeightMaxHoursPerWeek,
			Category:       model.ConstraintSoft,
			Weight:         0,
			Description:    "按用工类型的周工时区间上报超时",
		},
		{
			Name:           "最低人力配置",
			ConstraintType: model.WeightMinStaffRequired,
			Category:       model.ConstraintSoft,
			Weight:         0,
			Description:    "有效分配少于要求人数时上报缺员，不做拦截",
		},
	}
}

// DefaultWeights 将内置目录转成全局范围的权重记录
func DefaultWeights() []*model.ConstraintWeight {
	defs := Defaults()
	weights := make([]*model.ConstraintWeight, 0, len(defs))
	for _, d := range defs {
		weights = append(weights, &model.ConstraintWeight{
			BaseModel:      model.NewBaseModel(),
			Name:           d.Name,
			ConstraintType: d.ConstraintType,
			Category:       d.Category,
			Weight:         d.Weight,
			Scope:          model.ScopeAll,
			IsActive:       true,
		})
	}
	return weights
}

// Lookup 按约束类型查找内置定义
func Lookup(constraintType string) (Definition, bool) {
	for _, d := range Defaults() {
		if d.ConstraintType == constraintType {
			return d, true
		}
	}
	return Definition{}, false
}

// Seed 将内置目录写入权重表，已存在的记录按类型更新
func Seed(ctx context.Context, repo *repository.WeightRepository) error {
	for _, w := range DefaultWeights() {
		if err := repo.Upsert(ctx, w); err != nil {
			return err
		}
	}
	return nil
}
