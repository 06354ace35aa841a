package util

import (
	"errors"
	"net/http"

	"teachtrack_backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// PageResponse 分页响应结构
type PageResponse struct {
	List  interface{} `json:"list"`
	Total int64       `json:"total"`
	Page  int         `json:"page"`
	Limit int         `json:"limit"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    http.StatusOK,
		Message: "success",
		Data:    data,
	})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    http.StatusCreated,
		Message: "created",
		Data:    data,
	})
}

func Error(c *gin.Context, code int, message string) {
	c.JSON(code, Response{
		Code:    code,
		Message: message,
	})
}

func Unauthorized(c *gin.Context) {
	Error(c, http.StatusUnauthorized, "Unauthorized")
}

func Forbidden(c *gin.Context) {
	Error(c, http.StatusForbidden, "Forbidden")
}

func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

func NotFound(c *gin.Context) {
	Error(c, http.StatusNotFound, "Resource not found")
}

func InternalServerError(c *gin.Context) {
	Error(c, http.StatusInternalServerError, "Internal server error")
}

func LogInternalError(c *gin.Context, err error) {
	logger.Log.Error("Internal server error", zap.Error(err))
	InternalServerError(c)
}

// GenerationFailed AI生成相关错误的统一出口：
// 未配置密钥返回503并提示配置，其余生成失败返回502
func GenerationFailed(c *gin.Context, err error) {
	if errors.Is(err, ErrAINotConfigured) {
		Error(c, http.StatusServiceUnavailable, "AI功能未配置，请先设置 OPENAI_API_KEY")
		return
	}
	var ge *GenerationError
	if errors.As(err, &ge) {
		logger.Log.Error("AI generation failed", zap.String("step", ge.Step), zap.Error(ge.Err))
		Error(c, http.StatusBadGateway, "AI生成失败，请稍后重试")
		return
	}
	LogInternalError(c, err)
}
