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

// DifferentiatedLessonRequest 差异化课程生成请求。
// 先对给定学生做表现分类，再把分组摘要嵌入提示词。
// ModuleID/UserID来自已鉴权的单元，不是客户端任填的。
type DifferentiatedLessonRequest struct {
	LessonID         string   `json:"lessonId" binding:"required"`
	ModuleID         uint     `json:"moduleId"`
	UserID           uint     `json:"-"`
	StudentIDs       []uint   `json:"studentIds" binding:"required"`
	ModuleObjectives []string `json:"moduleObjectives"`
	Curriculum       string   `json:"curriculum"`
	GradeLevels      []string `json:"gradeLevels"`
}

// DifferentiatedTier 单个层级的教学安排
type DifferentiatedTier struct {
	Activities []string `json:"activities"`
	Scaffolds  []string `json:"scaffolds"`
	Resources  []string `json:"resources"`
}

// DifferentiatedPlan 支持/核心/拓展三个层级的差异化方案
type DifferentiatedPlan struct {
	Support   DifferentiatedTier `json:"support"`
	Core      DifferentiatedTier `json:"core"`
	Extension DifferentiatedTier `json:"extension"`
}

type DifferentiationGenerator struct {
	gateway  ModelGateway
	lessons  LessonStore
	students StudentScoreStore
}

func NewDifferentiationGenerator(gateway ModelGateway, lessons LessonStore, students StudentScoreStore) *DifferentiationGenerator {
	return &DifferentiationGenerator{gateway: gateway, lessons: lessons, students: students}
}

// Generate 为一节课生成差异化方案并写入课程的differentiated字段。
// 表现分类完全在本地计算，不依赖模型。
func (g *DifferentiationGenerator) Generate(ctx context.Context, req DifferentiatedLessonRequest) (*DifferentiatedPlan, []string, error) {
	start := time.Now()

	lesson, err := findOwnedLesson(g.lessons, req.LessonID, req.ModuleID)
	if err != nil {
		monitoring.ObserveGeneration("differentiated_lesson", "failed", start)
		return nil, nil, err
	}

	reports := make([]PerformanceReport, 0, len(req.StudentIDs))
	for _, id := range req.StudentIDs {
		student, err := g.students.FindByID(id)
		if err != nil {
			continue
		}
		// 只统计请求教师自己的学生，别人的成绩不进提示词
		if student.UserID != req.UserID {
			continue
		}
		scores, err := g.students.ListScores(id)
		if err != nil {
			continue
		}
		reports = append(reports, ClassifyPerformance(student, scores))
	}

	system, user := buildDifferentiationPrompt(lesson, reports, req)

	raw, err := g.gateway.CompleteJSON(ctx, system, user)
	if err != nil {
		monitoring.ObserveGeneration("differentiated_lesson", generationOutcome(err), start)
		return nil, nil, util.NewGenerationError("differentiated_lesson", err)
	}

	plan, diags := normalizeDifferentiatedPlan(raw)

	payload, _ := json.Marshal(plan)
	lesson.Differentiated = payload
	if err := g.lessons.Update(lesson); err != nil {
		monitoring.ObserveGeneration("differentiated_lesson", "failed", start)
		return nil, nil, util.NewGenerationError("differentiated_lesson/persist", err)
	}

	monitoring.ObserveGeneration("differentiated_lesson", "success", start)
	return plan, diags, nil
}

// groupLabel 按表现报告把学生粗分为三层
func groupLabel(r PerformanceReport) string {
	if r.Risk == RiskCritical || r.Risk == RiskHigh || r.Average < 60 {
		return "support"
	}
	if r.Average >= 80 && r.Risk == RiskLow {
		return "extension"
	}
	return "core"
}

func buildDifferentiationPrompt(lesson *model.LessonPlan, reports []PerformanceReport, req DifferentiatedLessonRequest) (system, user string) {
	system = "You are an expert in differentiated instruction for secondary school science. " +
		"You adapt lessons for below-level, on-level and above-level groups based on performance data. " +
		"Respond with a single JSON object only, no commentary."

	groups := map[string][]PerformanceReport{}
	for _, r := range reports {
		label := groupLabel(r)
		groups[label] = append(groups[label], r)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Differentiate this lesson: %s\n", lesson.Title)
	fmt.Fprintf(&b, "Lesson overview: %s\n", lesson.Description)
	fmt.Fprintf(&b, "Curriculum: %s\n", joinOr(req.Curriculum, "general science"))
	fmt.Fprintf(&b, "Grade levels: %s\n", joinList(req.GradeLevels))

	b.WriteString("\nStudent performance summary:\n")
	for _, label := range []string{"support", "core", "extension"} {
		rs := groups[label]
		fmt.Fprintf(&b, "- %s group: %d students\n", label, len(rs))
		for _, r := range rs {
			fmt.Fprintf(&b, "  - average %.0f%%, trend %s, risk %s", r.Average, r.Trend, r.Risk)
			if len(r.Weaknesses) > 0 {
				fmt.Fprintf(&b, ", weak in %s", strings.Join(r.Weaknesses, ", "))
			}
			b.WriteString("\n")
		}
	}

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

func normalizeDifferentiatedPlan(raw json.RawMessage) (*DifferentiatedPlan, []string) {
	var diags []string

	var parsed DifferentiatedPlan
	if err := json.Unmarshal(raw, &parsed); err != nil {
		diags = append(diags, "response was not a valid differentiation object, all tiers defaulted to empty")
	}

	normalizeTier := func(t *DifferentiatedTier, name string) {
		if t.Activities == nil {
			diags = append(diags, fmt.Sprintf("%s.activities defaulted to empty", name))
		}
		t.Activities = orEmpty(t.Activities)
		t.Scaffolds = orEmpty(t.Scaffolds)
		t.Resources = orEmpty(t.Resources)
	}

	normalizeTier(&parsed.Support, "support")
	normalizeTier(&parsed.Core, "core")
	normalizeTier(&parsed.Extension, "extension")

	return &parsed, diags
}
