package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"teachtrack_backend/internal/model"
	"teachtrack_backend/internal/util"
	"teachtrack_backend/pkg/monitoring"
)

// TeacherGuide 教师指引部分
type TeacherGuide struct {
	Preparation    []string `json:"preparation"`
	TeachingTips   []string `json:"teachingTips"`
	Misconceptions []string `json:"misconceptions"`
	ExtensionIdeas []string `json:"extensionIdeas"`
}

// RubricLevel 评分量表中的一个等级
type RubricLevel struct {
	Label      string `json:"label"`
	Descriptor string `json:"descriptor"`
	Points     int    `json:"points"`
}

// RubricCriterion 评分量表中的一条标准
type RubricCriterion struct {
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Levels      []RubricLevel `json:"levels"`
}

// ComprehensiveGenerator 综合课程编排器：顺序执行五个子生成
// （核心内容、教师指引、多媒体建议、差异化活动、评分量表），
// 全部成功后合并为一节课一次性入库。任何子步骤失败都会带着
// 步骤名中止，不产生部分入库——五个子步骤的失败策略是一致的。
type ComprehensiveGenerator struct {
	gateway ModelGateway
	store   LessonStore
}

func NewComprehensiveGenerator(gateway ModelGateway, store LessonStore) *ComprehensiveGenerator {
	return &ComprehensiveGenerator{gateway: gateway, store: store}
}

// Generate 逐步生成并合并综合课程。延迟是五个子调用的累加，
// 换取实现上的简单，正确性不依赖并发。
func (g *ComprehensiveGenerator) Generate(ctx context.Context, req LessonGenerationRequest) (*model.LessonPlan, []string, error) {
	start := time.Now()
	var diags []string
	rawParts := map[string]json.RawMessage{}

	// 1. 核心课程内容
	system, user := buildLessonPrompt(req)
	rawLessonJSON, err := g.gateway.CompleteJSON(ctx, system, user)
	if err != nil {
		monitoring.ObserveGeneration("comprehensive_lesson", generationOutcome(err), start)
		return nil, nil, util.NewGenerationError("comprehensive/core", err)
	}
	lesson, lessonDiags := normalizeLesson(rawLessonJSON, req)
	diags = appendStepDiags(diags, "core", lessonDiags)
	rawParts["core"] = rawLessonJSON

	// 2. 教师指引
	system, user = buildTeacherGuidePrompt(lesson, req)
	rawGuide, err := g.gateway.CompleteJSON(ctx, system, user)
	if err != nil {
		monitoring.ObserveGeneration("comprehensive_lesson", generationOutcome(err), start)
		return nil, nil, util.NewGenerationError("comprehensive/teacher_guide", err)
	}
	guide, guideDiags := normalizeTeacherGuide(rawGuide)
	diags = appendStepDiags(diags, "teacher_guide", guideDiags)
	rawParts["teacherGuide"] = rawGuide

	// 3. 多媒体建议
	system, user = buildMultimediaPrompt(lesson.Title, req.Curriculum, req.GradeLevels, 5)
	rawMedia, err := g.gateway.CompleteJSON(ctx, system, user)
	if err != nil {
		monitoring.ObserveGeneration("comprehensive_lesson", generationOutcome(err), start)
		return nil, nil, util.NewGenerationError("comprehensive/multimedia", err)
	}
	media, mediaDiags := normalizeMultimedia(rawMedia)
	diags = appendStepDiags(diags, "multimedia", mediaDiags)
	rawParts["multimedia"] = rawMedia

	// 4. 差异化活动（按通用三层，不依赖学生数据）
	system, user = buildTieredActivitiesPrompt(lesson, req)
	rawTiers, err := g.gateway.CompleteJSON(ctx, system, user)
	if err != nil {
		monitoring.ObserveGeneration("comprehensive_lesson", generationOutcome(err), start)
		return nil, nil, util.NewGenerationError("comprehensive/differentiated", err)
	}
	tiers, tierDiags := normalizeDifferentiatedPlan(rawTiers)
	diags = appendStepDiags(diags, "differentiated", tierDiags)
	rawParts["differentiated"] = rawTiers

	// 5. 评分量表
	system, user = buildRubricPrompt(lesson, req)
	rawRubric, err := g.gateway.CompleteJSON(ctx, system, user)
	if err != nil {
		monitoring.ObserveGeneration("comprehensive_lesson", generationOutcome(err), start)
		return nil, nil, util.NewGenerationError("comprehensive/rubric", err)
	}
	rubric, rubricDiags := normalizeRubric(rawRubric)
	diags = appendStepDiags(diags, "rubric", rubricDiags)
	rawParts["rubric"] = rawRubric

	// 合并后单次入库
	lesson.TeacherGuide, _ = json.Marshal(guide)
	lesson.Multimedia, _ = json.Marshal(media)
	lesson.Differentiated, _ = json.Marshal(tiers)
	lesson.Rubric, _ = json.Marshal(rubric)
	lesson.AISuggestions, _ = json.Marshal(rawParts)

	if err := g.store.Create(lesson); err != nil {
		monitoring.ObserveGeneration("comprehensive_lesson", "failed", start)
		return nil, nil, util.NewGenerationError("comprehensive/persist", err)
	}

	monitoring.ObserveGeneration("comprehensive_lesson", "success", start)
	return lesson, diags, nil
}

func appendStepDiags(diags []string, step string, stepDiags []string) []string {
	for _, d := range stepDiags {
		diags = append(diags, step+": "+d)
	}
	return diags
}

func buildTeacherGuidePrompt(lesson *model.LessonPlan, req LessonGenerationRequest) (system, user string) {
	system = "You are an experienced head of science writing a teacher guide for a colleague delivering a lesson. " +
		"Respond with a single JSON object only, no commentary."

	var b strings.Builder
	fmt.Fprintf(&b, "Write a teacher guide for this lesson: %s\n", lesson.Title)
	fmt.Fprintf(&b, "Overview: %s\n", lesson.Description)
	fmt.Fprintf(&b, "Curriculum: %s\n", joinOr(req.Curriculum, "general science"))
	b.WriteString("Activities:\n")
	for _, a := range lesson.Activities {
		fmt.Fprintf(&b, "- %s (%d min): %s\n", a.Title, a.Duration, a.Description)
	}
	b.WriteString("\nRespond with JSON in exactly this shape:\n")
	b.WriteString(`{
  "preparation": ["What to prepare before the lesson"],
  "teachingTips": ["Practical delivery tips"],
  "misconceptions": ["Misconceptions to watch for"],
  "extensionIdeas": ["Ideas for students who finish early"]
}`)

	return system, b.String()
}

func normalizeTeacherGuide(raw json.RawMessage) (*TeacherGuide, []string) {
	var diags []string

	var parsed TeacherGuide
	if err := json.Unmarshal(raw, &parsed); err != nil {
		diags = append(diags, "response was not a valid teacher guide object, all fields defaulted to empty")
	}

	guide := &TeacherGuide{
		Preparation:    orEmpty(parsed.Preparation),
		TeachingTips:   orEmpty(parsed.TeachingTips),
		Misconceptions: orEmpty(parsed.Misconceptions),
		ExtensionIdeas: orEmpty(parsed.ExtensionIdeas),
	}

	return guide, diags
}

func buildTieredActivitiesPrompt(lesson *model.LessonPlan, req LessonGenerationRequest) (system, user string) {
	system = "You are an expert in differentiated instruction for secondary school science. " +
		"You design tiered activities for support, core and extension groups. " +
		"Respond with a single JSON object only, no commentary."

	var b strings.Builder
	fmt.Fprintf(&b, "Design tiered activities for this lesson: %s\n", lesson.Title)
	fmt.Fprintf(&b, "Overview: %s\n", lesson.Description)
	fmt.Fprintf(&b, "Curriculum: %s\n", joinOr(req.Curriculum, "general science"))
	b.WriteString("\nLearning objectives (use ONLY these, never invent new ones):\n")
	for i, obj := range req.ModuleObjectives {
		fmt.Fprintf(&b, "%d. %s\n", i+1, obj)
	}
	b.WriteString("\nRespond with JSON in exactly this shape:\n")
	b.WriteString(`{
  "support": {"activities": ["..."], "scaffolds": ["..."], "resources": ["..."]},
  "core": {"activities": ["..."], "scaffolds": ["..."], "resources": ["..."]},
  "extension": {"activities": ["..."], "scaffolds": ["..."], "resources": ["..."]}
}`)

	return system, b.String()
}

func buildRubricPrompt(lesson *model.LessonPlan, req LessonGenerationRequest) (system, user string) {
	system = "You are an expert assessment designer creating marking rubrics for secondary school science. " +
		"Respond with a single JSON object only, no commentary."

	var b strings.Builder
	fmt.Fprintf(&b, "Create an assessment rubric for this lesson: %s\n", lesson.Title)
	fmt.Fprintf(&b, "Overview: %s\n", lesson.Description)
	fmt.Fprintf(&b, "Curriculum: %s\n", joinOr(req.Curriculum, "general science"))
	b.WriteString("\nLearning objectives (use ONLY these, never invent new ones):\n")
	for i, obj := range req.ModuleObjectives {
		fmt.Fprintf(&b, "%d. %s\n", i+1, obj)
	}
	b.WriteString("\nRespond with JSON in exactly this shape:\n")
	b.WriteString(`{
  "criteria": [
    {
      "name": "Criterion name",
      "description": "What is being assessed",
      "levels": [
        {"label": "Excellent", "descriptor": "What excellent work looks like", "points": 4},
        {"label": "Good", "descriptor": "...", "points": 3},
        {"label": "Developing", "descriptor": "...", "points": 2},
        {"label": "Beginning", "descriptor": "...", "points": 1}
      ]
    }
  ]
}`)

	return system, b.String()
}

func normalizeRubric(raw json.RawMessage) ([]RubricCriterion, []string) {
	var diags []string

	var parsed struct {
		Criteria []RubricCriterion `json:"criteria"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		diags = append(diags, "response was not a valid rubric object, criteria defaulted to empty")
	}

	criteria := make([]RubricCriterion, 0, len(parsed.Criteria))
	for i, c := range parsed.Criteria {
		if strings.TrimSpace(c.Name) == "" {
			diags = append(diags, fmt.Sprintf("criteria[%d] dropped: empty name", i))
			continue
		}
		if c.Levels == nil {
			diags = append(diags, fmt.Sprintf("criteria[%d].levels defaulted to empty", i))
			c.Levels = []RubricLevel{}
		}
		for j := range c.Levels {
			if c.Levels[j].Points <= 0 {
				diags = append(diags, fmt.Sprintf("criteria[%d].levels[%d].points defaulted to 1", i, j))
				c.Levels[j].Points = 1
			}
		}
		criteria = append(criteria, c)
	}

	return criteria, diags
}
