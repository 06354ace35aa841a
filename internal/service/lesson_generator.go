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

// LessonGenerationRequest 课程生成请求
type LessonGenerationRequest struct {
	ModuleID         uint             `json:"moduleId" binding:"required"`
	Topic            string           `json:"topic"`
	ModuleObjectives []string         `json:"moduleObjectives"`
	Curriculum       string           `json:"curriculum"`
	GradeLevels      []string         `json:"gradeLevels"`
	LessonType       model.LessonType `json:"lessonType"`
	TeachingStyle    string           `json:"teachingStyle"`
	Duration         int              `json:"duration"` // Minutes
	Difficulty       string           `json:"difficulty"`
}

type LessonGenerator struct {
	gateway ModelGateway
	store   LessonStore
}

func NewLessonGenerator(gateway ModelGateway, store LessonStore) *LessonGenerator {
	return &LessonGenerator{gateway: gateway, store: store}
}

// Generate 生成单节课程计划并入库
func (g *LessonGenerator) Generate(ctx context.Context, req LessonGenerationRequest) (*model.LessonPlan, []string, error) {
	start := time.Now()

	system, user := buildLessonPrompt(req)

	raw, err := g.gateway.CompleteJSON(ctx, system, user)
	if err != nil {
		monitoring.ObserveGeneration("lesson", generationOutcome(err), start)
		return nil, nil, util.NewGenerationError("lesson", err)
	}

	lesson, diags := normalizeLesson(raw, req)
	lesson.AISuggestions = raw

	if err := g.store.Create(lesson); err != nil {
		monitoring.ObserveGeneration("lesson", "failed", start)
		return nil, nil, util.NewGenerationError("lesson/persist", err)
	}

	monitoring.ObserveGeneration("lesson", "success", start)
	return lesson, diags, nil
}

func buildLessonPrompt(req LessonGenerationRequest) (system, user string) {
	system = "You are an expert lesson planner for secondary school science. " +
		"You design engaging, well-paced lessons aligned to the given curriculum. " +
		"Respond with a single JSON object only, no commentary."

	duration := req.Duration
	if duration <= 0 {
		duration = 60
	}
	lessonType := req.LessonType
	if lessonType == "" {
		lessonType = model.LessonLecture
	}
	difficulty := req.Difficulty
	if difficulty == "" {
		difficulty = "intermediate"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Plan a %d-minute %s lesson on: %s\n\n", duration, lessonType, joinOr(req.Topic, "the module topics"))
	fmt.Fprintf(&b, "Curriculum: %s\n", joinOr(req.Curriculum, "general science"))
	fmt.Fprintf(&b, "Grade levels: %s\n", joinList(req.GradeLevels))
	fmt.Fprintf(&b, "Difficulty: %s\n", difficulty)
	if req.TeachingStyle != "" {
		fmt.Fprintf(&b, "Preferred teaching style: %s\n", req.TeachingStyle)
	}
	b.WriteString("\nLearning objectives (use ONLY these, never invent new ones):\n")
	for i, obj := range req.ModuleObjectives {
		fmt.Fprintf(&b, "%d. %s\n", i+1, obj)
	}
	fmt.Fprintf(&b, "\nActivity durations must sum to %d minutes.\n", duration)
	b.WriteString("\nRespond with JSON in exactly this shape:\n")
	b.WriteString(`{
  "title": "Lesson title",
  "description": "One-paragraph overview",
  "objectives": ["Objectives covered, quoted from the supplied list"],
  "activities": [
    {
      "phase": "starter",
      "title": "Activity title",
      "description": "What teacher and students do",
      "duration": 10,
      "grouping": "whole_class"
    }
  ],
  "resources": ["Resource descriptions"],
  "equipment": ["Required equipment"],
  "safetyNotes": "Safety considerations, empty string if none",
  "assessment": {"included": true, "description": "How learning is checked"}
}`)

	return system, b.String()
}

type rawLesson struct {
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Objectives  []string      `json:"objectives"`
	Activities  []rawActivity `json:"activities"`
	Resources   []string      `json:"resources"`
	Equipment   []string      `json:"equipment"`
	SafetyNotes string        `json:"safetyNotes"`
	Assessment  struct {
		Included    bool   `json:"included"`
		Description string `json:"description"`
	} `json:"assessment"`
}

type rawActivity struct {
	Phase       string `json:"phase"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Duration    int    `json:"duration"`
	Grouping    string `json:"grouping"`
}

// normalizeLesson 全函数。目标经过双向子串匹配过滤，一个不剩时回退为模块第一个目标；
// 课程时长以活动时长累加为准，没有任何带时长的活动时退回请求时长。
func normalizeLesson(raw json.RawMessage, req LessonGenerationRequest) (*model.LessonPlan, []string) {
	var diags []string

	var parsed rawLesson
	if err := json.Unmarshal(raw, &parsed); err != nil {
		diags = append(diags, "response was not a valid lesson object, all fields defaulted")
	}

	lessonType := req.LessonType
	if lessonType == "" {
		lessonType = model.LessonLecture
	}
	difficulty := req.Difficulty
	if difficulty == "" {
		difficulty = "intermediate"
	}
	requestedDuration := req.Duration
	if requestedDuration <= 0 {
		requestedDuration = 60
	}

	objectives, fallbackUsed := filterObjectives(parsed.Objectives, req.ModuleObjectives)
	if fallbackUsed {
		diags = append(diags, "no proposed objective matched the module, fell back to the first module objective")
	}

	lesson := &model.LessonPlan{
		ModuleID:    req.ModuleID,
		Title:       defaultStr(parsed.Title, joinOr(req.Topic, "Generated lesson"), "title", &diags),
		Description: parsed.Description,
		LessonType:  lessonType,
		Difficulty:  difficulty,
		Objectives:  orEmpty(objectives),
		Resources:   orEmpty(parsed.Resources),
		Equipment:   orEmpty(parsed.Equipment),
		SafetyNotes: parsed.SafetyNotes,
		AIGenerated: true,
	}

	lesson.HasAssessment = parsed.Assessment.Included
	lesson.AssessmentDescription = parsed.Assessment.Description

	totalDuration := 0
	activities := make([]model.LessonActivity, 0, len(parsed.Activities))
	for i, ra := range parsed.Activities {
		if strings.TrimSpace(ra.Title) == "" && strings.TrimSpace(ra.Description) == "" {
			diags = append(diags, fmt.Sprintf("activities[%d] dropped: empty", i))
			continue
		}
		a := model.LessonActivity{
			Phase:       defaultStr(ra.Phase, "main", fmt.Sprintf("activities[%d].phase", i), &diags),
			Title:       ra.Title,
			Description: ra.Description,
			Duration:    defaultInt(ra.Duration, 10, fmt.Sprintf("activities[%d].duration", i), &diags),
			Grouping:    defaultStr(ra.Grouping, "whole_class", fmt.Sprintf("activities[%d].grouping", i), &diags),
			Order:       len(activities) + 1,
		}
		totalDuration += a.Duration
		activities = append(activities, a)
	}
	lesson.Activities = activities

	if totalDuration > 0 {
		lesson.Duration = totalDuration
	} else {
		diags = append(diags, fmt.Sprintf("duration defaulted to requested %d minutes", requestedDuration))
		lesson.Duration = requestedDuration
	}

	return lesson, diags
}

// SectionContentRequest 为已有课程的某个活动补写详细内容。
// ModuleID是已鉴权的归属单元，课程必须挂在该单元下。
type SectionContentRequest struct {
	LessonID         string   `json:"lessonId" binding:"required"`
	ActivityID       string   `json:"activityId" binding:"required"`
	ModuleID         uint     `json:"moduleId"`
	ModuleObjectives []string `json:"moduleObjectives"`
	Curriculum       string   `json:"curriculum"`
	GradeLevels      []string `json:"gradeLevels"`
}

// SectionContent 活动级生成内容
type SectionContent struct {
	Content        string   `json:"content"`
	KeyPoints      []string `json:"keyPoints"`
	Misconceptions []string `json:"misconceptions"`
}

// GenerateSectionContent 为单个课程活动生成展开内容并写回该活动
func (g *LessonGenerator) GenerateSectionContent(ctx context.Context, req SectionContentRequest) (*SectionContent, []string, error) {
	start := time.Now()

	lesson, err := findOwnedLesson(g.store, req.LessonID, req.ModuleID)
	if err != nil {
		monitoring.ObserveGeneration("section_content", "failed", start)
		return nil, nil, err
	}

	var activity *model.LessonActivity
	for i := range lesson.Activities {
		if lesson.Activities[i].ID == req.ActivityID {
			activity = &lesson.Activities[i]
			break
		}
	}
	if activity == nil {
		monitoring.ObserveGeneration("section_content", "failed", start)
		return nil, nil, fmt.Errorf("activity %s not found in lesson %s", req.ActivityID, req.LessonID)
	}

	system, user := buildSectionContentPrompt(lesson, activity, req)

	raw, err := g.gateway.CompleteJSON(ctx, system, user)
	if err != nil {
		monitoring.ObserveGeneration("section_content", generationOutcome(err), start)
		return nil, nil, util.NewGenerationError("section_content", err)
	}

	content, diags := normalizeSectionContent(raw)

	activity.Description = content.Content
	if err := g.store.UpdateActivity(activity); err != nil {
		monitoring.ObserveGeneration("section_content", "failed", start)
		return nil, nil, util.NewGenerationError("section_content/persist", err)
	}

	monitoring.ObserveGeneration("section_content", "success", start)
	return content, diags, nil
}

func buildSectionContentPrompt(lesson *model.LessonPlan, activity *model.LessonActivity, req SectionContentRequest) (system, user string) {
	system = "You are an expert science teacher writing detailed teaching content for one section of a lesson. " +
		"Respond with a single JSON object only, no commentary."

	var b strings.Builder
	fmt.Fprintf(&b, "Lesson: %s\n", lesson.Title)
	fmt.Fprintf(&b, "Section: %s (%s phase, %d minutes)\n", activity.Title, activity.Phase, activity.Duration)
	fmt.Fprintf(&b, "Current outline: %s\n", activity.Description)
	fmt.Fprintf(&b, "Curriculum: %s\n", joinOr(req.Curriculum, "general science"))
	fmt.Fprintf(&b, "Grade levels: %s\n", joinList(req.GradeLevels))
	b.WriteString("\nLearning objectives (use ONLY these, never invent new ones):\n")
	for i, obj := range req.ModuleObjectives {
		fmt.Fprintf(&b, "%d. %s\n", i+1, obj)
	}
	b.WriteString("\nWrite the full teaching content for this section.\n")
	b.WriteString("\nRespond with JSON in exactly this shape:\n")
	b.WriteString(`{
  "content": "Full teaching content for the section",
  "keyPoints": ["Key point students must take away"],
  "misconceptions": ["Common misconception to address"]
}`)

	return system, b.String()
}

func normalizeSectionContent(raw json.RawMessage) (*SectionContent, []string) {
	var diags []string

	var parsed SectionContent
	if err := json.Unmarshal(raw, &parsed); err != nil {
		diags = append(diags, "response was not a valid section content object, all fields defaulted")
	}

	content := &SectionContent{
		Content:        defaultStr(parsed.Content, "Content could not be generated for this section.", "content", &diags),
		KeyPoints:      orEmpty(parsed.KeyPoints),
		Misconceptions: orEmpty(parsed.Misconceptions),
	}

	return content, diags
}
