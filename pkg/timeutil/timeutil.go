// Package timeutil 提供班次时间计算工具
// 所有函数以"零点起分钟数"为单位进行纯计算，跨天班次统一加 24 小时归一化
package timeutil

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MinutesPerDay 一天的分钟数
const MinutesPerDay = 24 * 60

// ParseClock 解析 HH:MM 为零点起分钟数
func ParseClock(clock string) (int, error) {
	parts := strings.Split(clock, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("时间格式无效: %s", clock)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("小时无效: %s", clock)
	}

	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("分钟无效: %s", clock)
	}

	return hour*60 + minute, nil
}

// MustParseClock 解析 HH:MM，格式错误时返回 0
// 用于已经过校验的存量数据
func MustParseClock(clock string) int {
	m, err := ParseClock(clock)
	if err != nil {
		return 0
	}
	return m
}

// Normalize 归一化班次区间
// 结束时间数值小于开始时间视为跨天班次，结束时间加 24 小时
func Normalize(startMin, endMin int) (int, int) {
	if endMin < startMin {
		endMin += MinutesPerDay
	}
	return startMin, endMin
}

// NormalizeClock 解析并归一化 HH:MM 区间
func NormalizeClock(start, end string) (int, int, error) {
	startMin, err := ParseClock(start)
	if err != nil {
		return 0, 0, err
	}
	endMin, err := ParseClock(end)
	if err != nil {
		return 0, 0, err
	}
	startMin, endMin = Normalize(startMin, endMin)
	return startMin, endMin, nil
}

// DurationMinutes 计算班次时长（分钟），跨天班次归一化后计算
func DurationMinutes(start, end string) (int, error) {
	startMin, endMin, err := NormalizeClock(start, end)
	if err != nil {
		return 0, err
	}
	return endMin - startMin, nil
}

// Overlaps 检查两个半开区间 [start, end) 是否重叠
// 入参需已归一化
func Overlaps(aStart, aEnd, bStart, bEnd int) bool {
	return aStart < bEnd && bStart < aEnd
}

// ClockOverlaps 检查两个 HH:MM 班次区间是否重叠
func ClockOverlaps(aStart, aEnd, bStart, bEnd string) (bool, error) {
	as, ae, err := NormalizeClock(aStart, aEnd)
	if err != nil {
		return false, err
	}
	bs, be, err := NormalizeClock(bStart, bEnd)
	if err != nil {
		return false, err
	}
	return Overlaps(as, ae, bs, be), nil
}

// RestMinutes 计算两个班次之间的休息时长（分钟）
// 两个方向都会检查，取先结束的班次到后开始的班次之间的间隔
// 返回 -1 表示两个班次重叠
func RestMinutes(aStart, aEnd, bStart, bEnd int) int {
	if Overlaps(aStart, aEnd, bStart, bEnd) {
		return -1
	}
	if aEnd <= bStart {
		return bStart - aEnd
	}
	return aStart - bEnd
}

// CoversRange 检查偏好时间窗 [winStart, winEnd] 是否覆盖班次 [start, end]
// 两侧均归一化处理跨天
func CoversRange(winStart, winEnd, start, end int) bool {
	winStart, winEnd = Normalize(winStart, winEnd)
	start, end = Normalize(start, end)
	return winStart <= start && end <= winEnd
}

// DateInRange 检查日期 date 是否落在 [startDate, endDate] 闭区间内
// 日期格式为 YYYY-MM-DD，字典序等价于时间序
func DateInRange(date, startDate, endDate string) bool {
	return startDate <= date && date <= endDate
}

// RangesIntersect 检查两个闭区间日期段是否相交
// 相交条件: aStart ≤ bEnd 且 aEnd ≥ bStart
func RangesIntersect(aStart, aEnd, bStart, bEnd string) bool {
	return aStart <= bEnd && aEnd >= bStart
}

// ParseDate 解析 YYYY-MM-DD 日期
func ParseDate(date string) (time.Time, error) {
	return time.Parse("2006-01-02", date)
}
