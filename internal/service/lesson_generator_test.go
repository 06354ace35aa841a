package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"teachtrack_backend/internal/model"
	"teachtrack_backend/internal/util"

	"gorm.io/gorm"
)

type fakeLessonStore struct {
	created    []*model.LessonPlan
	updated    []*model.LessonPlan
	activities []*model.LessonActivity
	lessons    map[string]*model.LessonPlan
	createErr  error
	findErr    error
}

func newFakeLessonStore() *fakeLessonStore {
	return &fakeLessonStore{lessons: map[string]*model.LessonPlan{}}
}

func (f *fakeLessonStore) Create(lesson *model.LessonPlan) error {
	if f.createErr != nil {
		return f.createErr
	}
	if lesson.ID == "" {
		lesson.ID = model.GenerateUUID()
	}
	f.created = append(f.created, lesson)
	f.lessons[lesson.ID] = lesson
	return nil
}

func (f *fakeLessonStore) FindByID(id string) (*model.LessonPlan, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	lesson, ok := f.lessons[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return lesson, nil
}

func (f *fakeLessonStore) Update(lesson *model.LessonPlan) error {
	f.updated = append(f.updated, lesson)
	f.lessons[lesson.ID] = lesson
	return nil
}

func (f *fakeLessonStore) UpdateActivity(activity *model.LessonActivity) error {
	f.activities = append(f.activities, activity)
	return nil
}

func TestMatchesObjective(t *testing.T) {
	cases := []struct {
		proposed, module string
		want             bool
	}{
		{"Explain Newton's first law", "Explain Newton's first law", true},
		{"explain newton's first law", "Explain Newton's First Law", true},
		{"Students will Explain Newton's first law in context", "Explain Newton's first law", true},
		{"Explain Newton", "Explain Newton's first law", true}, // 反向子串
		{"Describe photosynthesis", "Explain Newton's first law", false},
		{"", "Explain Newton's first law", false},
		{"Explain Newton's first law", "", false},
	}
	for _, c := range cases {
		if got := matchesObjective(c.proposed, c.module); got != c.want {
			t.Errorf("matchesObjective(%q, %q) = %v, want %v", c.proposed, c.module, got, c.want)
		}
	}
}

func TestFilterObjectivesFallback(t *testing.T) {
	moduleObjs := []string{"Explain Newton's first law", "Apply F=ma"}

	kept, fallback := filterObjectives([]string{"Something entirely invented"}, moduleObjs)
	if !fallback {
		t.Error("expected fallback when nothing matches")
	}
	if len(kept) != 1 || kept[0] != "Explain Newton's first law" {
		t.Errorf("kept = %v, want first module objective", kept)
	}
}

func TestFilterObjectivesDedupes(t *testing.T) {
	moduleObjs := []string{"Explain Newton's first law"}
	kept, fallback := filterObjectives([]string{
		"Explain Newton's first law",
		"explain newton's first law",
	}, moduleObjs)

	if fallback {
		t.Error("fallback must not trigger when matches exist")
	}
	if len(kept) != 1 {
		t.Errorf("kept = %v, want one deduplicated entry", kept)
	}
}

func TestQuestionObjectivesNoFallback(t *testing.T) {
	kept := questionObjectives([]string{"Invented"}, []string{"Explain Newton's first law"})
	if len(kept) != 0 {
		t.Errorf("question objectives must not fall back, got %v", kept)
	}
}

func TestLessonGeneratorHappyPath(t *testing.T) {
	gateway := &fakeGateway{response: json.RawMessage(`{
		"title": "Newton's laws",
		"description": "An introduction",
		"objectives": ["Explain Newton's first law"],
		"activities": [
			{"phase": "starter", "title": "Recap", "description": "Quick quiz", "duration": 10, "grouping": "pairs"},
			{"phase": "main", "title": "Demo", "description": "Trolley demo", "duration": 30},
			{"title": "Plenary", "description": "Exit ticket"}
		],
		"resources": ["Slides"],
		"equipment": ["Dynamics trolley"],
		"safetyNotes": "",
		"assessment": {"included": true, "description": "Exit ticket"}
	}`)}
	store := newFakeLessonStore()
	gen := NewLessonGenerator(gateway, store)

	lesson, diags, err := gen.Generate(context.Background(), LessonGenerationRequest{
		ModuleID:         2,
		Topic:            "Newton's laws",
		ModuleObjectives: []string{"Explain Newton's first law"},
		Duration:         60,
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if len(lesson.Activities) != 3 {
		t.Fatalf("got %d activities, want 3", len(lesson.Activities))
	}
	// 第三个活动缺duration补10分钟，phase补main：10+30+10
	if lesson.Duration != 50 {
		t.Errorf("Duration = %d, want 50", lesson.Duration)
	}
	if lesson.Activities[2].Phase != "main" {
		t.Errorf("activities[2].Phase = %q, want main", lesson.Activities[2].Phase)
	}
	if lesson.Activities[1].Grouping != "whole_class" {
		t.Errorf("activities[1].Grouping = %q, want whole_class", lesson.Activities[1].Grouping)
	}
	if !lesson.HasAssessment {
		t.Error("HasAssessment must carry over")
	}
	if len(store.created) != 1 {
		t.Fatalf("expected one persisted lesson")
	}
	if len(diags) == 0 {
		t.Error("expected diagnostics for defaulted fields")
	}
}

func TestNormalizeLessonDurationFallback(t *testing.T) {
	raw := json.RawMessage(`{"title": "T", "objectives": [], "activities": []}`)
	lesson, diags := normalizeLesson(raw, LessonGenerationRequest{ModuleID: 1, Duration: 45})

	if lesson.Duration != 45 {
		t.Errorf("Duration = %d, want requested 45", lesson.Duration)
	}
	if len(diags) == 0 {
		t.Error("expected a diagnostic for the duration fallback")
	}
}

func TestNormalizeLessonObjectiveFallbackDiagnostic(t *testing.T) {
	raw := json.RawMessage(`{"title": "T", "objectives": ["Invented"], "activities": []}`)
	lesson, diags := normalizeLesson(raw, LessonGenerationRequest{
		ModuleID:         1,
		ModuleObjectives: []string{"Explain Newton's first law"},
	})

	if len(lesson.Objectives) != 1 || lesson.Objectives[0] != "Explain Newton's first law" {
		t.Errorf("Objectives = %v, want fallback to first module objective", lesson.Objectives)
	}
	found := false
	for _, d := range diags {
		if d == "no proposed objective matched the module, fell back to the first module objective" {
			found = true
		}
	}
	if !found {
		t.Errorf("missing fallback diagnostic, got %v", diags)
	}
}

func TestGenerateSectionContentWritesActivity(t *testing.T) {
	store := newFakeLessonStore()
	lesson := &model.LessonPlan{ModuleID: 1, Title: "L"}
	lesson.ID = "lesson-1"
	activity := model.LessonActivity{Phase: "main", Title: "Demo", Description: "outline", Duration: 20}
	activity.ID = "act-1"
	lesson.Activities = []model.LessonActivity{activity}
	store.lessons[lesson.ID] = lesson

	gateway := &fakeGateway{response: json.RawMessage(`{
		"content": "Detailed teaching content",
		"keyPoints": ["Inertia"],
		"misconceptions": ["Heavier objects fall faster"]
	}`)}
	gen := NewLessonGenerator(gateway, store)

	content, _, err := gen.GenerateSectionContent(context.Background(), SectionContentRequest{
		LessonID:   "lesson-1",
		ActivityID: "act-1",
		ModuleID:   1,
	})
	if err != nil {
		t.Fatalf("GenerateSectionContent failed: %v", err)
	}

	if content.Content != "Detailed teaching content" {
		t.Errorf("Content = %q", content.Content)
	}
	if len(store.activities) != 1 {
		t.Fatalf("expected one persisted activity update")
	}
	if store.activities[0].Description != "Detailed teaching content" {
		t.Errorf("activity description = %q, want generated content", store.activities[0].Description)
	}
}

func TestGenerateSectionContentUnknownActivity(t *testing.T) {
	store := newFakeLessonStore()
	lesson := &model.LessonPlan{ModuleID: 1}
	lesson.ID = "lesson-1"
	store.lessons[lesson.ID] = lesson

	gen := NewLessonGenerator(&fakeGateway{response: json.RawMessage(`{}`)}, store)

	_, _, err := gen.GenerateSectionContent(context.Background(), SectionContentRequest{
		LessonID:   "lesson-1",
		ActivityID: "missing",
		ModuleID:   1,
	})
	if err == nil {
		t.Fatal("expected an error for an unknown activity")
	}
}

func TestGenerateSectionContentForeignModule(t *testing.T) {
	store := newFakeLessonStore()
	lesson := &model.LessonPlan{ModuleID: 7}
	lesson.ID = "lesson-1"
	activity := model.LessonActivity{Phase: "main", Title: "Demo"}
	activity.ID = "act-1"
	lesson.Activities = []model.LessonActivity{activity}
	store.lessons[lesson.ID] = lesson

	gateway := &fakeGateway{response: json.RawMessage(`{}`)}
	gen := NewLessonGenerator(gateway, store)

	// lessonId真实存在，但挂在另一个单元下
	_, _, err := gen.GenerateSectionContent(context.Background(), SectionContentRequest{
		LessonID:   "lesson-1",
		ActivityID: "act-1",
		ModuleID:   2,
	})
	if !errors.Is(err, util.ErrLessonNotFound) {
		t.Fatalf("err = %v, want ErrLessonNotFound", err)
	}
	if len(gateway.calls) != 0 {
		t.Error("no model call may happen for a lesson outside the module")
	}
	if len(store.activities) != 0 {
		t.Error("no activity may be updated")
	}
}

func TestGenerateSectionContentStoreFailure(t *testing.T) {
	store := newFakeLessonStore()
	store.findErr = errors.New("connection refused")

	gen := NewLessonGenerator(&fakeGateway{response: json.RawMessage(`{}`)}, store)

	_, _, err := gen.GenerateSectionContent(context.Background(), SectionContentRequest{
		LessonID:   "lesson-1",
		ActivityID: "act-1",
		ModuleID:   1,
	})
	if err == nil {
		t.Fatal("expected an error")
	}
	// 数据库故障不能伪装成404
	if errors.Is(err, util.ErrLessonNotFound) {
		t.Fatalf("store failure must not map to ErrLessonNotFound, got %v", err)
	}
}
