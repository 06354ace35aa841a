package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"teachtrack_backend/internal/config"
	"teachtrack_backend/internal/util"
	"teachtrack_backend/pkg/tracing"

	"go.opentelemetry.io/otel/attribute"
)

// ModelGateway 结构化生成的统一出口，生成编排器依赖该接口，测试时可替换为假实现
type ModelGateway interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (json.RawMessage, error)
}

// AIService 调用OpenAI兼容的chat-completions接口。
// 显式构造后注入各编排器，进程内共享同一个HTTP客户端。
type AIService struct {
	config config.AIConfig
	client *http.Client
}

func NewAIService(cfg config.AIConfig) *AIService {
	return &AIService{
		config: cfg,
		client: &http.Client{Timeout: 120 * time.Second},
	}
}

type AIChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model          string          `json:"model"`
	Messages       []AIChatMessage `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message AIChatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// CompleteJSON 发送一次结构化补全请求并返回模型回复中的原始JSON。
// 未配置密钥返回 util.ErrAINotConfigured；其余失败一律包装为GenerationError。
// 不做重试：一次失败即一次生成失败。
func (s *AIService) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (json.RawMessage, error) {
	if s.config.APIKey == "" {
		return nil, util.ErrAINotConfigured
	}

	ctx, span := tracing.Tracer.Start(ctx, "ai.complete_json")
	defer span.End()
	span.SetAttributes(attribute.String("ai.model", s.config.Model))

	reqBody := chatCompletionRequest{
		Model: s.config.Model,
		Messages: []AIChatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature:    s.config.Temperature,
		MaxTokens:      s.config.MaxTokens,
		ResponseFormat: &responseFormat{Type: "json_object"},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, util.NewGenerationError("request", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.config.BaseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, util.NewGenerationError("request", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.config.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, util.NewGenerationError("request", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		// 截断的200响应不能伪装成模型返回了坏JSON
		return nil, util.NewGenerationError("response", fmt.Errorf("reading AI response: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, util.NewGenerationError("request",
			fmt.Errorf("AI API error (status %d): %s", resp.StatusCode, string(body)))
	}

	var result chatCompletionResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, util.NewGenerationError("response", err)
	}

	if result.Error != nil {
		return nil, util.NewGenerationError("response", fmt.Errorf("AI API error: %s", result.Error.Message))
	}

	if len(result.Choices) == 0 {
		return nil, util.NewGenerationError("response", fmt.Errorf("AI returned no choices"))
	}

	content := stripJSONFences(result.Choices[0].Message.Content)
	if !json.Valid([]byte(content)) {
		return nil, util.NewGenerationError("response", fmt.Errorf("AI returned invalid JSON"))
	}

	return json.RawMessage(content), nil
}

// stripJSONFences 模型偶尔会把JSON包进markdown代码块，去掉围栏
func stripJSONFences(content string) string {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	}
	return strings.TrimSpace(content)
}
