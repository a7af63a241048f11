package common

import "errors"

var (
	// ErrNotFound 引用的实体不存在 (用户/球队/比赛/锦标赛)
	ErrNotFound = errors.New("not found")

	// ErrValidation 输入校验失败 (非法队伍数量、回合时间窗重叠等)
	ErrValidation = errors.New("validation failed")

	// ErrNotEligible 冷却未结束，当前不能射门
	ErrNotEligible = errors.New("not eligible yet")

	// ErrNoActiveMatch 用户守护的球队没有进行中的比赛
	ErrNoActiveMatch = errors.New("no active match")

	// ErrMatchNotActive 目标比赛不处于 active 状态
	ErrMatchNotActive = errors.New("match not active")

	// ErrConflict 并发写入冲突 (重复生成赛程等)
	ErrConflict = errors.New("conflict")
)

// AppError 应用错误
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewAppError 创建应用错误
func NewAppError(code string, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}
