package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"teachtrack_backend/internal/model"
	"teachtrack_backend/internal/util"
	"teachtrack_backend/pkg/monitoring"
)

// AssessmentGenerationRequest 测验生成请求，objectives必须来自所属模块
type AssessmentGenerationRequest struct {
	ModuleID         uint                 `json:"moduleId" binding:"required"`
	Title            string               `json:"title"`
	Topics           []string             `json:"topics"`
	ModuleObjectives []string             `json:"moduleObjectives"`
	Curriculum       string               `json:"curriculum"`
	GradeLevels      []string             `json:"gradeLevels"`
	Type             model.AssessmentType `json:"type"`
	Difficulty       string               `json:"difficulty"`
	QuestionCount    int                  `json:"questionCount"`
	QuestionTypes    []string             `json:"questionTypes"`
	Duration         int                  `json:"duration"` // Minutes
}

type AssessmentGenerator struct {
	gateway ModelGateway
	store   AssessmentStore
}

func NewAssessmentGenerator(gateway ModelGateway, store AssessmentStore) *AssessmentGenerator {
	return &AssessmentGenerator{gateway: gateway, store: store}
}

// Generate 构建提示词→调用模型→归一化→入库。
// 归一化之前不会写任何数据；返回的diagnostics记录被默认补齐的字段。
func (g *AssessmentGenerator) Generate(ctx context.Context, req AssessmentGenerationRequest) (*model.Assessment, []string, error) {
	start := time.Now()

	system, user := buildAssessmentPrompt(req)

	raw, err := g.gateway.CompleteJSON(ctx, system, user)
	if err != nil {
		monitoring.ObserveGeneration("assessment", generationOutcome(err), start)
		return nil, nil, util.NewGenerationError("assessment", err)
	}

	assessment, diags := normalizeAssessment(raw, req)
	assessment.AISuggestions = raw

	if err := g.store.Create(assessment); err != nil {
		monitoring.ObserveGeneration("assessment", "failed", start)
		return nil, nil, util.NewGenerationError("assessment/persist", err)
	}

	monitoring.ObserveGeneration("assessment", "success", start)
	return assessment, diags, nil
}

func generationOutcome(err error) string {
	if errors.Is(err, util.ErrAINotConfigured) {
		return "not_configured"
	}
	return "failed"
}

// buildAssessmentPrompt 纯函数：相同请求必然产生相同提示词
func buildAssessmentPrompt(req AssessmentGenerationRequest) (system, user string) {
	system = "You are an expert assessment designer for secondary school science. " +
		"You write rigorous, curriculum-aligned assessment questions with clear mark schemes. " +
		"Respond with a single JSON object only, no commentary."

	count := req.QuestionCount
	if count <= 0 {
		count = 10
	}
	questionTypes := req.QuestionTypes
	if len(questionTypes) == 0 {
		questionTypes = []string{string(model.MultipleChoice), string(model.ShortAnswer)}
	}
	difficulty := req.Difficulty
	if difficulty == "" {
		difficulty = "intermediate"
	}
	assessmentType := req.Type
	if assessmentType == "" {
		assessmentType = model.Formative
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Create a %s assessment with exactly %d questions.\n\n", assessmentType, count)
	fmt.Fprintf(&b, "Curriculum: %s\n", joinOr(req.Curriculum, "general science"))
	fmt.Fprintf(&b, "Grade levels: %s\n", joinList(req.GradeLevels))
	fmt.Fprintf(&b, "Topics: %s\n", joinList(req.Topics))
	fmt.Fprintf(&b, "Difficulty: %s\n", difficulty)
	fmt.Fprintf(&b, "Allowed question types: %s\n", strings.Join(questionTypes, ", "))
	if req.Duration > 0 {
		fmt.Fprintf(&b, "Target duration: %d minutes\n", req.Duration)
	}
	fmt.Fprintf(&b, "\nLearning objectives (use ONLY these, never invent new ones):\n")
	for i, obj := range req.ModuleObjectives {
		fmt.Fprintf(&b, "%d. %s\n", i+1, obj)
	}
	b.WriteString("\nEvery question must reference at least one of the objectives above, quoted verbatim.\n")
	b.WriteString("\nRespond with JSON in exactly this shape:\n")
	b.WriteString(`{
  "title": "Assessment title",
  "description": "What this assessment covers",
  "questions": [
    {
      "questionType": "multiple_choice",
      "prompt": "Question text",
      "options": ["A option", "B option", "C option", "D option"],
      "answer": "The correct answer",
      "explanation": "Why this is correct",
      "points": 10,
      "objectives": ["One of the supplied objectives"],
      "difficulty": "intermediate"
    }
  ],
  "thresholds": {"A*": 90, "A": 80, "B": 70, "C": 60, "D": 50, "E": 40}
}`)

	return system, b.String()
}

// rawAssessment 只读取已知字段，模型多给的字段会被静默丢弃
type rawAssessment struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Questions   []rawQuestion  `json:"questions"`
	Thresholds  map[string]int `json:"thresholds"`
}

type rawQuestion struct {
	QuestionType string   `json:"questionType"`
	Prompt       string   `json:"prompt"`
	Options      []string `json:"options"`
	Answer       string   `json:"answer"`
	Explanation  string   `json:"explanation"`
	Points       int      `json:"points"`
	Objectives   []string `json:"objectives"`
	Difficulty   string   `json:"difficulty"`
}

var defaultThresholds = model.GradeThresholds{"A*": 90, "A": 80, "B": 70, "C": 60, "D": 50, "E": 40}

// normalizeAssessment 全函数：无论模型返回什么都产出可用对象，绝不panic或报错。
// 总分和预计时长由归一化后的题目重新累加，模型自报的总值一律丢弃。
func normalizeAssessment(raw json.RawMessage, req AssessmentGenerationRequest) (*model.Assessment, []string) {
	var diags []string

	var parsed rawAssessment
	if err := json.Unmarshal(raw, &parsed); err != nil {
		diags = append(diags, "response was not a valid assessment object, all fields defaulted")
	}

	difficulty := req.Difficulty
	if difficulty == "" {
		difficulty = "intermediate"
	}
	assessmentType := req.Type
	if assessmentType == "" {
		assessmentType = model.Formative
	}

	fallbackTitle := req.Title
	if fallbackTitle == "" {
		fallbackTitle = fmt.Sprintf("%s assessment", assessmentType)
	}

	assessment := &model.Assessment{
		ModuleID:    req.ModuleID,
		Title:       defaultStr(parsed.Title, fallbackTitle, "title", &diags),
		Description: parsed.Description,
		Type:        assessmentType,
		Difficulty:  difficulty,
		AIGenerated: true,
	}

	if len(parsed.Thresholds) == 0 {
		diags = append(diags, "thresholds defaulted to standard grade bands")
		assessment.Thresholds = defaultThresholds
	} else {
		assessment.Thresholds = model.GradeThresholds(parsed.Thresholds)
	}

	totalPoints := 0
	totalDuration := 0
	questions := make([]model.AssessmentQuestion, 0, len(parsed.Questions))
	for i, rq := range parsed.Questions {
		if strings.TrimSpace(rq.Prompt) == "" {
			diags = append(diags, fmt.Sprintf("questions[%d] dropped: empty prompt", i))
			continue
		}

		qType := model.QuestionType(rq.QuestionType)
		if !qType.IsValid() {
			diags = append(diags, fmt.Sprintf("questions[%d].questionType %q defaulted to short_answer", i, rq.QuestionType))
			qType = model.ShortAnswer
		}

		q := model.AssessmentQuestion{
			QuestionType: qType,
			Prompt:       rq.Prompt,
			Answer:       rq.Answer,
			Explanation:  rq.Explanation,
			Points:       defaultInt(rq.Points, 10, fmt.Sprintf("questions[%d].points", i), &diags),
			Objectives:   orEmpty(questionObjectives(rq.Objectives, req.ModuleObjectives)),
			Difficulty:   defaultStr(rq.Difficulty, difficulty, fmt.Sprintf("questions[%d].difficulty", i), &diags),
			// 序号按保留的题目连续编号
			Order: len(questions) + 1,
		}

		if qType.HasOptions() {
			q.Options = orEmpty(rq.Options)
			if len(q.Options) == 0 {
				diags = append(diags, fmt.Sprintf("questions[%d] has a choice type but no options", i))
			}
		} else if len(rq.Options) > 0 {
			diags = append(diags, fmt.Sprintf("questions[%d].options dropped: %s questions carry no options", i, qType))
			q.Options = model.StringList{}
		} else {
			q.Options = model.StringList{}
		}

		totalPoints += q.Points
		totalDuration += questionDuration(qType)
		questions = append(questions, q)
	}

	assessment.Questions = questions
	assessment.TotalPoints = totalPoints
	assessment.EstimatedDuration = totalDuration

	return assessment, diags
}

// questionDuration 按题型估算作答分钟数，用于累加测验时长
func questionDuration(t model.QuestionType) int {
	switch t {
	case model.MultipleChoice, model.TrueFalse:
		return 2
	case model.ShortAnswer:
		return 4
	case model.Calculation:
		return 5
	case model.Essay:
		return 10
	}
	return 4
}

func joinOr(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
