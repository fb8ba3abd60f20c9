// Package logger 提供统一的日志框架
package logger

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	once   sync.Once
	logger zerolog.Logger
)

// Level 日志级别
type Level = zerolog.Level

const (
	DebugLevel = zerolog.DebugLevel
	InfoLevel  = zerolog.InfoLevel
	WarnLevel  = zerolog.WarnLevel
	ErrorLevel = zerolog.ErrorLevel
	FatalLevel = zerolog.FatalLevel
)

// Config 日志配置
type Config struct {
	Level      string `yaml:"level" json:"level"`
	Format     string `yaml:"format" json:"format"` // json/console
	Output     string `yaml:"output" json:"output"` // stdout/stderr/file
	FilePath   string `yaml:"file_path,omitempty" json:"file_path,omitempty"`
	TimeFormat string `yaml:"time_format,omitempty" json:"time_format,omitempty"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		Format:     "console",
		Output:     "stdout",
		TimeFormat: time.RFC3339,
	}
}

// Init 初始化日志器
func Init(cfg Config) {
	once.Do(func() {
		level := parseLevel(cfg.Level)
		zerolog.SetGlobalLevel(level)

		var output io.Writer
		switch cfg.Output {
		case "stderr":
			output = os.Stderr
		case "file":
			if cfg.FilePath != "" {
				f, err := os.OpenFile(cfg.FilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
				if err == nil {
					output = f
				} else {
					output = os.Stdout
				}
			} else {
				output = os.Stdout
			}
		default:
			output = os.Stdout
		}

		if cfg.Format == "console" {
			output = zerolog.ConsoleWriter{
				Out:        output,
				TimeFormat: cfg.TimeFormat,
			}
		}

		logger = zerolog.New(output).With().Timestamp().Logger()
	})
}

// parseLevel 解析日志级别
func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

// Get 获取日志器
func Get() *zerolog.Logger {
	if logger.GetLevel() == zerolog.Disabled {
		Init(DefaultConfig())
	}
	return &logger
}

// WithContext 从上下文创建日志器
func WithContext(ctx context.Context) *zerolog.Logger {
	l := Get().With().Logger()

	// 添加请求ID
	if reqID, ok := ctx.Value("request_id").(string); ok {
		l = l.With().Str("request_id", reqID).Logger()
	}

	// 添加院区ID
	if homeID, ok := ctx.Value("home_id").(string); ok {
		l = l.With().Str("home_id", homeID).Logger()
	}

	return &l
}

// Debug 记录调试日志
func Debug() *zerolog.Event {
	return Get().Debug()
}

// Info 记录信息日志
func Info() *zerolog.Event {
	return Get().Info()
}

// Warn 记录警告日志
func Warn() *zerolog.Event {
	return Get().Warn()
}

// Error 记录错误日志
func Error() *zerolog.Event {
	return Get().Error()
}

// Fatal 记录致命错误日志
func Fatal() *zerolog.Event {
	return Get().Fatal()
}

// WithError 添加错误信息
func WithError(err error) *zerolog.Event {
	return Get().Error().Err(err)
}

// WithField 添加字段
func WithField(key string, value interface{}) *zerolog.Logger {
	l := Get().With().Interface(key, value).Logger()
	return &l
}

// RotaLogger 排班引擎专用日志器
type RotaLogger struct {
	base *zerolog.Logger
}

// NewRotaLogger 创建排班引擎日志器
func NewRotaLogger(component string) *RotaLogger {
	l := Get().With().Str("component", component).Logger()
	return &RotaLogger{base: &l}
}

// StartSolve 记录排班求解开始
func (l *RotaLogger) StartSolve(homeID string, shifts, staff int) {
	l.base.Info().
		Str("home_id", homeID).
		Int("shifts", shifts).
		Int("staff", staff).
		Msg("开始生成排班")
}

// SolveComplete 记录排班求解完成
func (l *RotaLogger) SolveComplete(homeID string, duration time.Duration, penalty int, violations int) {
	l.base.Info().
		Str("home_id", homeID).
		Dur("duration", duration).
		Int("total_penalty", penalty).
		Int("violations", violations).
		Msg("排班生成完成")
}

// SwapApplied 记录局部搜索应用的改进交换
func (l *RotaLogger) SwapApplied(pass, delta int) {
	l.base.Debug().
		Int("pass", pass).
		Int("delta", delta).
		Msg("应用改进交换")
}

// ConflictFound 记录冲突检测结果
func (l *RotaLogger) ConflictFound(conflictType, message string) {
	l.base.Warn().
		Str("conflict_type", conflictType).
		Str("message", message).
		Msg("检测到排班冲突")
}

// SwapExecuted 记录换班执行完成
func (l *RotaLogger) SwapExecuted(swapID, requesterShiftID, targetShiftID string) {
	l.base.Info().
		Str("swap_id", swapID).
		Str("requester_shift_id", requesterShiftID).
		Str("target_shift_id", targetShiftID).
		Msg("换班执行完成")
}
