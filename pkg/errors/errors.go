// Package errors 提供统一的错误处理框架
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code 错误码
type Code string

const (
	// 通用错误码
	CodeUnknown      Code = "UNKNOWN"
	CodeInternal     Code = "INTERNAL_ERROR"
	CodeInvalidInput Code = "INVALID_INPUT"
	CodeNotFound     Code = "NOT_FOUND"
	CodeForbidden    Code = "FORBIDDEN"
	CodeTimeout      Code = "TIMEOUT"

	// 排班引擎相关
	CodeUnderstaffed     Code = "UNDERSTAFFED"
	CodeInvalidTimeRange Code = "INVALID_TIME_RANGE"

	// 换班流程相关
	CodeInvalidState     Code = "INVALID_STATE"
	CodeExpired          Code = "EXPIRED"
	CodeConflictDetected Code = "CONFLICT_DETECTED"

	// 数据相关
	CodeSystemError    Code = "SYSTEM_ERROR"
	CodeValidationFail Code = "VALIDATION_FAILED"
)

// AppError 应用错误
type AppError struct {
	Code       Code                   `json:"code"`
	Message    string                 `json:"message"`
	Details    string                 `json:"details,omitempty"`
	HTTPStatus int                    `json:"-"`
	Cause      error                  `json:"-"`
	Fields     map[string]interface{} `json:"fields,omitempty"`
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap 返回底层错误
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetails 添加详细信息
func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

// WithCause 添加原因
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithField 添加字段
func (e *AppError) WithField(key string, value interface{}) *AppError {
	if e.Fields == nil {
		e.Fields = make(map[string]interface{})
	}
	e.Fields[key] = value
	return e
}

// New 创建新错误
func New(code Code, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

// Wrap 包装错误
func Wrap(err error, code Code, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Cause:      err,
	}
}

// codeToHTTPStatus 错误码转HTTP状态码
func codeToHTTPStatus(code Code) int {
	switch code {
	case CodeInvalidInput, CodeValidationFail, CodeInvalidTimeRange:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeForbidden:
		return http.StatusForbidden
	case CodeInvalidState, CodeExpired, CodeConflictDetected:
		return http.StatusConflict
	case CodeTimeout:
		return http.StatusGatewayTimeout
	case CodeUnderstaffed:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// Is 检查错误是否为特定类型
func Is(err error, code Code) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// GetCode 获取错误码
func GetCode(err error) Code {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}

// GetHTTPStatus 获取HTTP状态码
func GetHTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// 预定义错误
var (
	ErrNotFound     = New(CodeNotFound, "资源不存在")
	ErrInvalidInput = New(CodeInvalidInput, "输入参数无效")
	ErrInternal     = New(CodeInternal, "内部错误")
	ErrTimeout      = New(CodeTimeout, "操作超时")
	ErrInvalidState = New(CodeInvalidState, "状态不允许该操作")
	ErrExpired      = New(CodeExpired, "请求已过期")
)

// InvalidInput 创建输入无效错误
func InvalidInput(field, reason string) *AppError {
	return New(CodeInvalidInput, fmt.Sprintf("字段 '%s' 无效: %s", field, reason))
}

// NotFound 创建资源不存在错误
func NotFound(resource, id string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s '%s' 不存在", resource, id))
}

// Forbidden 创建越权操作错误
func Forbidden(op string) *AppError {
	return New(CodeForbidden, fmt.Sprintf("无权执行操作 '%s'", op))
}

// InvalidState 创建状态无效错误
// 换班请求处于 current 状态时不允许执行 op 操作
func InvalidState(op, current string) *AppError {
	return New(CodeInvalidState, fmt.Sprintf("当前状态 '%s' 不允许操作 '%s'", current, op))
}

// Expired 创建过期错误
func Expired(resource, id string) *AppError {
	return New(CodeExpired, fmt.Sprintf("%s '%s' 已过期", resource, id))
}

// ConflictDetected 创建冲突检测错误
func ConflictDetected(count int) *AppError {
	return New(CodeConflictDetected, fmt.Sprintf("检测到 %d 项排班冲突", count))
}

// SystemError 创建存储/系统错误
// 与业务拒绝区分开，调用方可据此决定是否重试
func SystemError(op string, cause error) *AppError {
	return Wrap(cause, CodeSystemError, fmt.Sprintf("存储操作失败: %s", op))
}

// Understaffed 创建人手不足错误
func Understaffed(shiftID string, assigned, required int) *AppError {
	return New(CodeUnderstaffed, fmt.Sprintf("班次 %s 人手不足: %d/%d", shiftID, assigned, required))
}
