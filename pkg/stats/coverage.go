// Package stats 提供排班结果的覆盖率统计
package stats

import (
	"github.com/google/uuid"

	"github.com/carehome/rota/pkg/model"
)

// CoverageMetrics 覆盖率指标
type CoverageMetrics struct {
	TotalShifts     int     `json:"total_shifts"`     // 总班次数
	FilledShifts    int     `json:"filled_shifts"`    // 满员班次数
	TotalRequired   int     `json:"total_required"`   // 总需求人数
	TotalAssigned   int     `json:"total_assigned"`   // 总分配人数
	OverallCoverage float64 `json:"overall_coverage"` // 人力覆盖率 (%)
	AverageScore    float64 `json:"average_score"`    // 平均匹配得分

	DailyCoverage     map[string]DayCoverage `json:"daily_coverage"`      // 按日期
	ShiftTypeCoverage map[string]float64     `json:"shift_type_coverage"` // 按班次类型 (%)

	Understaffed []UnderstaffedShift `json:"understaffed,omitempty"` // 缺员班次
}

// DayCoverage 单日覆盖情况
type DayCoverage struct {
	Date         string  `json:"date"`
	TotalShifts  int     `json:"total_shifts"`
	Required     int     `json:"required"`
	Assigned     int     `json:"assigned"`
	CoverageRate float64 `json:"coverage_rate"`
}

// UnderstaffedShift 缺员班次
type UnderstaffedShift struct {
	ShiftID   uuid.UUID `json:"shift_id"`
	Date      string    `json:"date"`
	StartTime string    `json:"start_time"`
	EndTime   string    `json:"end_time"`
	ShiftType string    `json:"shift_type"`
	Required  int       `json:"required"`
	Assigned  int       `json:"assigned"`
	Shortage  int       `json:"shortage"`
}

// CoverageAnalyzer 覆盖率分析器
type CoverageAnalyzer struct{}

// NewCoverageAnalyzer 创建覆盖率分析器
func NewCoverageAnalyzer() *CoverageAnalyzer {
	return &CoverageAnalyzer{}
}

// Analyze 对求解结果做覆盖率统计
// results 与 shifts 按 ShiftID 对齐，缺失的班次按零分配计
func (a *CoverageAnalyzer) Analyze(shifts []*model.Shift, results []*model.AssignmentResult) *CoverageMetrics {
	metrics := &CoverageMetrics{
		TotalShifts:       len(shifts),
		DailyCoverage:     make(map[string]DayCoverage),
		ShiftTypeCoverage: make(map[string]float64),
	}

	byShift := make(map[uuid.UUID]*model.AssignmentResult, len(results))
	for _, r := range results {
		byShift[r.ShiftID] = r
	}

	typeRequired := make(map[string]int)
	typeAssigned := make(map[string]int)
	scoreSum, scoreCount := 0, 0

	for _, shift := range shifts {
		assigned := 0
		if r, ok := byShift[shift.ID]; ok {
			assigned = len(r.Assigned)
			for _, sa := range r.Assigned {
				scoreSum += sa.Score
				scoreCount++
			}
		}

		metrics.TotalRequired += shift.RequiredStaffCount
		metrics.TotalAssigned += assigned
		if assigned >= shift.RequiredStaffCount {
			metrics.FilledShifts++
		} else {
			metrics.Understaffed = append(metrics.Understaffed, UnderstaffedShift{
				ShiftID:   shift.ID,
				Date:      shift.Date,
				StartTime: shift.StartTime,
				EndTime:   shift.EndTime,
				ShiftType: shift.ShiftType,
				Required:  shift.RequiredStaffCount,
				Assigned:  assigned,
				Shortage:  shift.RequiredStaffCount - assigned,
			})
		}

		day := metrics.DailyCoverage[shift.Date]
		day.Date = shift.Date
		day.TotalShifts++
		day.Required += shift.RequiredStaffCount
		day.Assigned += assigned
		metrics.DailyCoverage[shift.Date] = day

		typeRequired[shift.ShiftType] += shift.RequiredStaffCount
		typeAssigned[shift.ShiftType] += assigned
	}

	if metrics.TotalRequired > 0 {
		metrics.OverallCoverage = float64(metrics.TotalAssigned) / float64(metrics.TotalRequired) * 100
	}
	if scoreCount > 0 {
		metrics.AverageScore = float64(scoreSum) / float64(scoreCount)
	}

	for date, day := range metrics.DailyCoverage {
		if day.Required > 0 {
			day.CoverageRate = float64(day.Assigned) / float64(day.Required) * 100
		}
		metrics.DailyCoverage[date] = day
	}

	for shiftType, required := range typeRequired {
		if required > 0 {
			metrics.ShiftTypeCoverage[shiftType] = float64(typeAssigned[shiftType]) / float64(required) * 100
		}
	}

	return metrics
}
