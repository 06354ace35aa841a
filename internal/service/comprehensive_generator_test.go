package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"teachtrack_backend/internal/util"
)

// scriptedGateway 按调用顺序依次返回预设响应，failAt 指定第几次调用失败（1 起）
type scriptedGateway struct {
	responses []string
	failAt    int
	err       error
	calls     int
}

func (g *scriptedGateway) CompleteJSON(_ context.Context, _, _ string) (json.RawMessage, error) {
	g.calls++
	if g.failAt > 0 && g.calls == g.failAt {
		return nil, g.err
	}
	idx := g.calls - 1
	if idx >= len(g.responses) {
		return json.RawMessage(`{}`), nil
	}
	return json.RawMessage(g.responses[idx]), nil
}

const comprehensiveCoreJSON = `{
  "title": "Forces and Motion",
  "description": "Introduce Newton's first law",
  "objectives": ["Explain Newton's first law"],
  "activities": [
    {"phase": "starter", "title": "Demo", "description": "Tablecloth pull", "duration": 10, "grouping": "whole_class"},
    {"phase": "main", "title": "Investigation", "description": "Friction ramps", "duration": 30, "grouping": "pairs"}
  ],
  "resources": ["Ramp set"],
  "equipment": ["Trolleys"],
  "safetyNotes": "",
  "assessment": {"included": true, "description": "Exit ticket"}
}`

const comprehensiveGuideJSON = `{
  "preparation": ["Set up ramps"],
  "teachingTips": ["Keep the demo short"],
  "misconceptions": ["Motion needs a constant force"],
  "extensionIdeas": ["Research air resistance"]
}`

const comprehensiveMediaJSON = `{
  "suggestions": [
    {"type": "video", "title": "Newton's laws explained", "description": "Short overview", "searchTerms": ["newton first law"]}
  ]
}`

const comprehensiveTiersJSON = `{
  "support": {"activities": ["Sentence starters"], "scaffolds": ["Word bank"], "resources": ["Worksheet A"]},
  "core": {"activities": ["Standard practical"], "scaffolds": [], "resources": ["Worksheet B"]},
  "extension": {"activities": ["Predict and test"], "scaffolds": [], "resources": ["Worksheet C"]}
}`

const comprehensiveRubricJSON = `{
  "criteria": [
    {
      "name": "Scientific explanation",
      "description": "Quality of reasoning",
      "levels": [
        {"label": "Excellent", "descriptor": "Full chain of reasoning", "points": 4},
        {"label": "Developing", "descriptor": "Partial reasoning", "points": 2}
      ]
    }
  ]
}`

func comprehensiveRequest() LessonGenerationRequest {
	return LessonGenerationRequest{
		ModuleID:         1,
		Topic:            "Forces",
		ModuleObjectives: []string{"Explain Newton's first law"},
		Curriculum:       "IGCSE Physics",
		GradeLevels:      []string{"Year 10"},
		Duration:         60,
	}
}

func TestComprehensiveGeneratorHappyPath(t *testing.T) {
	gateway := &scriptedGateway{responses: []string{
		comprehensiveCoreJSON,
		comprehensiveGuideJSON,
		comprehensiveMediaJSON,
		comprehensiveTiersJSON,
		comprehensiveRubricJSON,
	}}
	store := newFakeLessonStore()
	gen := NewComprehensiveGenerator(gateway, store)

	lesson, _, err := gen.Generate(context.Background(), comprehensiveRequest())
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if gateway.calls != 5 {
		t.Errorf("gateway calls = %d, want 5", gateway.calls)
	}
	if len(store.created) != 1 {
		t.Fatalf("created %d lessons, want exactly 1", len(store.created))
	}

	if lesson.Title != "Forces and Motion" {
		t.Errorf("Title = %q", lesson.Title)
	}
	if lesson.Duration != 40 {
		t.Errorf("Duration = %d, want 40", lesson.Duration)
	}

	var guide TeacherGuide
	if err := json.Unmarshal(lesson.TeacherGuide, &guide); err != nil {
		t.Fatalf("TeacherGuide not valid JSON: %v", err)
	}
	if len(guide.Preparation) != 1 || guide.Preparation[0] != "Set up ramps" {
		t.Errorf("guide.Preparation = %v", guide.Preparation)
	}

	var media []MultimediaSuggestion
	if err := json.Unmarshal(lesson.Multimedia, &media); err != nil {
		t.Fatalf("Multimedia not valid JSON: %v", err)
	}
	if len(media) != 1 || media[0].Type != "video" {
		t.Errorf("media = %+v", media)
	}

	var tiers DifferentiatedPlan
	if err := json.Unmarshal(lesson.Differentiated, &tiers); err != nil {
		t.Fatalf("Differentiated not valid JSON: %v", err)
	}
	if len(tiers.Support.Activities) != 1 {
		t.Errorf("tiers.Support.Activities = %v", tiers.Support.Activities)
	}

	var rubric []RubricCriterion
	if err := json.Unmarshal(lesson.Rubric, &rubric); err != nil {
		t.Fatalf("Rubric not valid JSON: %v", err)
	}
	if len(rubric) != 1 || rubric[0].Name != "Scientific explanation" {
		t.Errorf("rubric = %+v", rubric)
	}

	var parts map[string]json.RawMessage
	if err := json.Unmarshal(lesson.AISuggestions, &parts); err != nil {
		t.Fatalf("AISuggestions not valid JSON: %v", err)
	}
	for _, key := range []string{"core", "teacherGuide", "multimedia", "differentiated", "rubric"} {
		if _, ok := parts[key]; !ok {
			t.Errorf("AISuggestions missing raw part %q", key)
		}
	}
}

// 任意子步骤失败都必须带步骤名中止，且不产生任何入库
func TestComprehensiveGeneratorStepFailureAborts(t *testing.T) {
	steps := []struct {
		failAt int
		step   string
	}{
		{1, "comprehensive/core"},
		{2, "comprehensive/teacher_guide"},
		{3, "comprehensive/multimedia"},
		{4, "comprehensive/differentiated"},
		{5, "comprehensive/rubric"},
	}
	responses := []string{
		comprehensiveCoreJSON,
		comprehensiveGuideJSON,
		comprehensiveMediaJSON,
		comprehensiveTiersJSON,
		comprehensiveRubricJSON,
	}

	for _, s := range steps {
		t.Run(s.step, func(t *testing.T) {
			gateway := &scriptedGateway{
				responses: responses,
				failAt:    s.failAt,
				err:       errors.New("model unavailable"),
			}
			store := newFakeLessonStore()
			gen := NewComprehensiveGenerator(gateway, store)

			_, _, err := gen.Generate(context.Background(), comprehensiveRequest())
			if err == nil {
				t.Fatal("expected error")
			}
			var genErr *util.GenerationError
			if !errors.As(err, &genErr) {
				t.Fatalf("error type = %T, want *util.GenerationError", err)
			}
			if genErr.Step != s.step {
				t.Errorf("Step = %q, want %q", genErr.Step, s.step)
			}
			if gateway.calls != s.failAt {
				t.Errorf("gateway calls = %d, want %d (must stop at the failing step)", gateway.calls, s.failAt)
			}
			if len(store.created) != 0 {
				t.Errorf("created %d lessons, want 0 after a failed step", len(store.created))
			}
		})
	}
}

func TestComprehensiveGeneratorNotConfigured(t *testing.T) {
	gateway := &scriptedGateway{failAt: 1, err: util.ErrAINotConfigured}
	store := newFakeLessonStore()
	gen := NewComprehensiveGenerator(gateway, store)

	_, _, err := gen.Generate(context.Background(), comprehensiveRequest())
	if !errors.Is(err, util.ErrAINotConfigured) {
		t.Fatalf("error = %v, want ErrAINotConfigured to survive wrapping", err)
	}
	if len(store.created) != 0 {
		t.Errorf("created %d lessons, want 0", len(store.created))
	}
}

func TestComprehensiveGeneratorPersistFailure(t *testing.T) {
	gateway := &scriptedGateway{responses: []string{
		comprehensiveCoreJSON,
		comprehensiveGuideJSON,
		comprehensiveMediaJSON,
		comprehensiveTiersJSON,
		comprehensiveRubricJSON,
	}}
	store := newFakeLessonStore()
	store.createErr = errors.New("db down")
	gen := NewComprehensiveGenerator(gateway, store)

	_, _, err := gen.Generate(context.Background(), comprehensiveRequest())
	var genErr *util.GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("error type = %T, want *util.GenerationError", err)
	}
	if genErr.Step != "comprehensive/persist" {
		t.Errorf("Step = %q, want comprehensive/persist", genErr.Step)
	}
}

func TestComprehensiveGeneratorDiagnosticsPrefixed(t *testing.T) {
	// rubric 缺 name 会产生诊断，必须带上步骤前缀
	badRubric := `{"criteria": [{"name": "", "description": "x", "levels": []}]}`
	gateway := &scriptedGateway{responses: []string{
		comprehensiveCoreJSON,
		comprehensiveGuideJSON,
		comprehensiveMediaJSON,
		comprehensiveTiersJSON,
		badRubric,
	}}
	store := newFakeLessonStore()
	gen := NewComprehensiveGenerator(gateway, store)

	_, diags, err := gen.Generate(context.Background(), comprehensiveRequest())
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	found := false
	for _, d := range diags {
		if d == "rubric: criteria[0] dropped: empty name" {
			found = true
		}
	}
	if !found {
		t.Errorf("diags = %v, want a rubric-prefixed diagnostic", diags)
	}
}

func TestNormalizeTeacherGuideTotality(t *testing.T) {
	guide, diags := normalizeTeacherGuide(json.RawMessage(`"not an object"`))
	if guide == nil {
		t.Fatal("guide must never be nil")
	}
	if guide.Preparation == nil || guide.TeachingTips == nil || guide.Misconceptions == nil || guide.ExtensionIdeas == nil {
		t.Error("all guide slices must be non-nil")
	}
	if len(diags) == 0 {
		t.Error("expected a diagnostic for the invalid response")
	}
}

func TestNormalizeRubricDefaults(t *testing.T) {
	raw := json.RawMessage(`{"criteria": [
		{"name": "Working safely", "description": "", "levels": [{"label": "Met", "descriptor": "ok", "points": 0}]},
		{"name": "Analysis", "description": "x"}
	]}`)
	criteria, diags := normalizeRubric(raw)
	if len(criteria) != 2 {
		t.Fatalf("criteria = %d, want 2", len(criteria))
	}
	if criteria[0].Levels[0].Points != 1 {
		t.Errorf("points = %d, want defaulted 1", criteria[0].Levels[0].Points)
	}
	if criteria[1].Levels == nil {
		t.Error("missing levels must default to empty slice")
	}
	if len(diags) != 2 {
		t.Errorf("diags = %v, want 2 entries", diags)
	}
}
