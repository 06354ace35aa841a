package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"teachtrack_backend/internal/model"
	"teachtrack_backend/internal/util"
)

func TestMultimediaGeneratorHappyPath(t *testing.T) {
	gateway := &fakeGateway{response: json.RawMessage(`{
		"suggestions": [
			{"type": "simulation", "title": "PhET forces", "description": "Friction sim", "searchTerms": ["phet forces"]},
			{"title": "Crash course", "description": "Overview video"}
		]
	}`)}
	lessons := newFakeLessonStore()
	lessons.Create(&model.LessonPlan{ModuleID: 3, Title: "Forces and Motion"})

	gen := NewMultimediaGenerator(gateway, lessons)
	suggestions, diags, err := gen.Generate(context.Background(), MultimediaRequest{
		LessonID:   lessons.created[0].ID,
		ModuleID:   3,
		Curriculum: "IGCSE Physics",
		Count:      2,
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(suggestions) != 2 {
		t.Fatalf("suggestions = %d, want 2", len(suggestions))
	}
	if suggestions[1].Type != "video" {
		t.Errorf("missing type must default to video, got %q", suggestions[1].Type)
	}
	if suggestions[1].SearchTerms == nil {
		t.Error("searchTerms must default to empty slice")
	}
	if len(diags) == 0 {
		t.Error("expected diagnostics for the defaulted type")
	}

	if len(lessons.updated) != 1 {
		t.Fatalf("updated %d lessons, want 1", len(lessons.updated))
	}
	var stored []MultimediaSuggestion
	if err := json.Unmarshal(lessons.updated[0].Multimedia, &stored); err != nil {
		t.Fatalf("Multimedia not valid JSON: %v", err)
	}
	if len(stored) != 2 {
		t.Errorf("stored %d suggestions, want 2", len(stored))
	}
}

func TestMultimediaGeneratorTopicFallsBackToLessonTitle(t *testing.T) {
	gateway := &fakeGateway{response: json.RawMessage(`{"suggestions": []}`)}
	lessons := newFakeLessonStore()
	lessons.Create(&model.LessonPlan{ModuleID: 3, Title: "Electromagnetic induction"})

	gen := NewMultimediaGenerator(gateway, lessons)
	_, _, err := gen.Generate(context.Background(), MultimediaRequest{LessonID: lessons.created[0].ID, ModuleID: 3})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(gateway.calls) != 1 || !strings.Contains(gateway.calls[0], "Electromagnetic induction") {
		t.Errorf("prompt must fall back to the lesson title, got %q", gateway.calls)
	}
}

func TestMultimediaGeneratorLessonNotFound(t *testing.T) {
	gen := NewMultimediaGenerator(&fakeGateway{}, newFakeLessonStore())
	_, _, err := gen.Generate(context.Background(), MultimediaRequest{LessonID: "missing"})
	if !errors.Is(err, util.ErrLessonNotFound) {
		t.Fatalf("error = %v, want ErrLessonNotFound", err)
	}
}

func TestMultimediaGeneratorForeignModule(t *testing.T) {
	gateway := &fakeGateway{response: json.RawMessage(`{"suggestions": []}`)}
	lessons := newFakeLessonStore()
	lessons.Create(&model.LessonPlan{ModuleID: 3, Title: "Forces"})

	// 课程存在，但属于另一个单元
	gen := NewMultimediaGenerator(gateway, lessons)
	_, _, err := gen.Generate(context.Background(), MultimediaRequest{
		LessonID: lessons.created[0].ID,
		ModuleID: 4,
	})
	if !errors.Is(err, util.ErrLessonNotFound) {
		t.Fatalf("error = %v, want ErrLessonNotFound", err)
	}
	if len(gateway.calls) != 0 {
		t.Error("gateway must not be called for a lesson outside the module")
	}
	if len(lessons.updated) != 0 {
		t.Error("no lesson may be updated")
	}
}

func TestMultimediaGeneratorStoreFailure(t *testing.T) {
	lessons := newFakeLessonStore()
	lessons.findErr = errors.New("connection refused")

	gen := NewMultimediaGenerator(&fakeGateway{}, lessons)
	_, _, err := gen.Generate(context.Background(), MultimediaRequest{LessonID: "any"})
	if err == nil {
		t.Fatal("expected an error")
	}
	if errors.Is(err, util.ErrLessonNotFound) {
		t.Fatalf("store failure must not map to ErrLessonNotFound, got %v", err)
	}
}

func TestNormalizeMultimediaDropsEmptyTitles(t *testing.T) {
	suggestions, diags := normalizeMultimedia(json.RawMessage(`{
		"suggestions": [
			{"type": "video", "title": "  ", "description": "no title"},
			{"type": "diagram", "title": "Circuit symbols", "searchTerms": ["circuit symbols poster"]}
		]
	}`))
	if len(suggestions) != 1 {
		t.Fatalf("suggestions = %d, want 1 after dropping empty title", len(suggestions))
	}
	if suggestions[0].Title != "Circuit symbols" {
		t.Errorf("kept = %q", suggestions[0].Title)
	}
	if len(diags) != 1 {
		t.Errorf("diags = %v, want 1 entry", diags)
	}
}
