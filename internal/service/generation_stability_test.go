package service

import (
	"context"
	"encoding/json"
	"reflect"
	"testing"

	"teachtrack_backend/internal/model"
)

// 归一化后的对象再按原始响应的形状送回归一化器，必须原样出来且不再产生诊断。
// 这保证已入库的记录被重新处理时不会发生漂移。

func renormalizeAssessmentInput(a *model.Assessment) json.RawMessage {
	raw, _ := json.Marshal(map[string]any{
		"title":       a.Title,
		"description": a.Description,
		"questions":   a.Questions,
		"thresholds":  a.Thresholds,
	})
	return raw
}

func TestNormalizeAssessmentStableOnRenormalize(t *testing.T) {
	req := AssessmentGenerationRequest{
		ModuleID:         3,
		ModuleObjectives: []string{"Explain Newton's first law", "Apply F=ma"},
	}
	messy := json.RawMessage(`{
		"title": "Forces quiz",
		"questions": [
			{"questionType": "multiple_choice", "prompt": "Q1", "options": ["a","b"], "answer": "a", "points": 5, "objectives": ["Explain Newton's first law"], "difficulty": "easy"},
			{"questionType": "riddle", "prompt": "Q2", "answer": "inertia"},
			{"questionType": "essay", "prompt": "Q3", "options": ["stray"], "answer": "model answer", "points": 20},
			{"questionType": "short_answer", "prompt": "  ", "answer": "dropped"}
		]
	}`)

	first, firstDiags := normalizeAssessment(messy, req)
	if len(firstDiags) == 0 {
		t.Fatal("the messy fixture must produce diagnostics")
	}

	second, secondDiags := normalizeAssessment(renormalizeAssessmentInput(first), req)
	if len(secondDiags) != 0 {
		t.Errorf("re-normalizing a normalized assessment produced diagnostics: %v", secondDiags)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("re-normalization drifted:\nfirst  = %+v\nsecond = %+v", first, second)
	}
}

func renormalizeLessonInput(l *model.LessonPlan) json.RawMessage {
	raw, _ := json.Marshal(map[string]any{
		"title":       l.Title,
		"description": l.Description,
		"objectives":  l.Objectives,
		"activities":  l.Activities,
		"resources":   l.Resources,
		"equipment":   l.Equipment,
		"safetyNotes": l.SafetyNotes,
		"assessment":  map[string]any{"included": l.HasAssessment, "description": l.AssessmentDescription},
	})
	return raw
}

func TestNormalizeLessonStableOnRenormalize(t *testing.T) {
	req := LessonGenerationRequest{
		ModuleID:         2,
		Topic:            "Newton's laws",
		ModuleObjectives: []string{"Explain Newton's first law"},
		Duration:         60,
	}
	messy := json.RawMessage(`{
		"title": "Newton's laws",
		"description": "An introduction",
		"objectives": ["Explain Newton's first law", "Something invented"],
		"activities": [
			{"phase": "starter", "title": "Recap", "description": "Quick quiz", "duration": 10, "grouping": "pairs"},
			{"title": "Demo", "description": "Trolley demo", "duration": 30}
		],
		"resources": ["Slides"],
		"equipment": [],
		"safetyNotes": "",
		"assessment": {"included": true, "description": "Exit ticket"}
	}`)

	first, firstDiags := normalizeLesson(messy, req)
	if len(firstDiags) == 0 {
		t.Fatal("the messy fixture must produce diagnostics")
	}

	second, secondDiags := normalizeLesson(renormalizeLessonInput(first), req)
	if len(secondDiags) != 0 {
		t.Errorf("re-normalizing a normalized lesson produced diagnostics: %v", secondDiags)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("re-normalization drifted:\nfirst  = %+v\nsecond = %+v", first, second)
	}
}

// 生成→入库→按ID读回，读回的记录必须仍然满足归一化保证的约束

func TestAssessmentGeneratorRoundTrip(t *testing.T) {
	gateway := &fakeGateway{response: json.RawMessage(`{
		"title": "Forces quiz",
		"questions": [
			{"questionType": "multiple_choice", "prompt": "Q1", "options": ["a","b","c","d"], "answer": "a", "points": 5, "objectives": ["Explain Newton's first law"]},
			{"questionType": "essay", "prompt": "Q2", "options": ["stray"], "answer": "model answer"}
		]
	}`)}
	store := &fakeAssessmentStore{}
	gen := NewAssessmentGenerator(gateway, store)

	req := AssessmentGenerationRequest{
		ModuleID:         3,
		ModuleObjectives: []string{"Explain Newton's first law"},
	}
	returned, _, err := gen.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	found, err := store.FindByID(returned.ID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if !reflect.DeepEqual(returned, found) {
		t.Error("stored assessment differs from the returned one")
	}

	points, duration := 0, 0
	for _, q := range found.Questions {
		if !q.QuestionType.IsValid() {
			t.Errorf("stored question has invalid type %q", q.QuestionType)
		}
		if !q.QuestionType.HasOptions() && len(q.Options) != 0 {
			t.Errorf("stored %s question carries options %v", q.QuestionType, q.Options)
		}
		for _, obj := range q.Objectives {
			if !matchesObjective(obj, req.ModuleObjectives[0]) {
				t.Errorf("stored objective %q is not a module objective", obj)
			}
		}
		points += q.Points
		duration += questionDuration(q.QuestionType)
	}
	if found.TotalPoints != points {
		t.Errorf("TotalPoints = %d, want recomputed %d", found.TotalPoints, points)
	}
	if found.EstimatedDuration != duration {
		t.Errorf("EstimatedDuration = %d, want recomputed %d", found.EstimatedDuration, duration)
	}
	if len(found.Thresholds) == 0 {
		t.Error("stored thresholds must never be empty")
	}
}

func TestLessonGeneratorRoundTrip(t *testing.T) {
	gateway := &fakeGateway{response: json.RawMessage(`{
		"title": "Newton's laws",
		"objectives": ["Explain Newton's first law"],
		"activities": [
			{"phase": "starter", "title": "Recap", "description": "Quiz", "duration": 10, "grouping": "pairs"},
			{"phase": "main", "title": "Demo", "description": "Trolley demo", "duration": 30}
		],
		"assessment": {"included": false, "description": ""}
	}`)}
	store := newFakeLessonStore()
	gen := NewLessonGenerator(gateway, store)

	req := LessonGenerationRequest{
		ModuleID:         2,
		ModuleObjectives: []string{"Explain Newton's first law"},
		Duration:         40,
	}
	returned, _, err := gen.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	found, err := store.FindByID(returned.ID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if !reflect.DeepEqual(returned, found) {
		t.Error("stored lesson differs from the returned one")
	}

	total := 0
	for _, a := range found.Activities {
		if a.Duration <= 0 {
			t.Errorf("stored activity %q has non-positive duration", a.Title)
		}
		total += a.Duration
	}
	if found.Duration != total {
		t.Errorf("Duration = %d, want activity sum %d", found.Duration, total)
	}
	for _, obj := range found.Objectives {
		if !matchesObjective(obj, req.ModuleObjectives[0]) {
			t.Errorf("stored objective %q is not a module objective", obj)
		}
	}
}
