package util

import (
	"errors"
	"fmt"
)

var (
	ErrUserNotFound       = errors.New("用户不存在")
	ErrEmailRegistered    = errors.New("该邮箱已被注册")
	ErrInvalidCredentials = errors.New("邮箱或密码错误")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrModuleNotFound     = errors.New("module not found")
	ErrLessonNotFound     = errors.New("lesson not found")
	ErrAssessmentNotFound = errors.New("assessment not found")
	ErrStudentNotFound    = errors.New("student not found")

	// ErrAINotConfigured AI密钥未配置，调用方据此提示“AI未配置”而非一般性失败
	ErrAINotConfigured = errors.New("AI service is not configured: missing API key")
)

// GenerationError AI生成失败（网络错误、上游返回异常等），携带失败环节与上游信息
type GenerationError struct {
	Step string // 失败的生成环节，如 "assessment"、"lesson/multimedia"
	Err  error
}

func (e *GenerationError) Error() string {
	if e.Step != "" {
		return fmt.Sprintf("generation failed at %s: %v", e.Step, e.Err)
	}
	return fmt.Sprintf("generation failed: %v", e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// NewGenerationError 包装上游错误；已经是GenerationError或缺少密钥时原样返回
func NewGenerationError(step string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrAINotConfigured) {
		return err
	}
	var ge *GenerationError
	if errors.As(err, &ge) {
		return err
	}
	return &GenerationError{Step: step, Err: err}
}
