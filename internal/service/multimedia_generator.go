package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"teachtrack_backend/internal/util"
	"teachtrack_backend/pkg/monitoring"
)

// MultimediaSuggestion 推荐的多媒体教学资源
type MultimediaSuggestion struct {
	Type        string   `json:"type"` // video / simulation / animation / diagram
	Title       string   `json:"title"`
	Description string   `json:"description"`
	SearchTerms []string `json:"searchTerms"`
}

// MultimediaRequest 为已有课程推荐多媒体资源。
// ModuleID是已鉴权的归属单元，课程必须挂在该单元下。
type MultimediaRequest struct {
	LessonID    string   `json:"lessonId" binding:"required"`
	ModuleID    uint     `json:"moduleId"`
	Topic       string   `json:"topic"`
	Curriculum  string   `json:"curriculum"`
	GradeLevels []string `json:"gradeLevels"`
	Count       int      `json:"count"`
}

type MultimediaGenerator struct {
	gateway ModelGateway
	store   LessonStore
}

func NewMultimediaGenerator(gateway ModelGateway, store LessonStore) *MultimediaGenerator {
	return &MultimediaGenerator{gateway: gateway, store: store}
}

// Generate 生成多媒体建议并写入课程的multimedia字段
func (g *MultimediaGenerator) Generate(ctx context.Context, req MultimediaRequest) ([]MultimediaSuggestion, []string, error) {
	start := time.Now()

	lesson, err := findOwnedLesson(g.store, req.LessonID, req.ModuleID)
	if err != nil {
		monitoring.ObserveGeneration("multimedia", "failed", start)
		return nil, nil, err
	}

	topic := req.Topic
	if topic == "" {
		topic = lesson.Title
	}

	system, user := buildMultimediaPrompt(topic, req.Curriculum, req.GradeLevels, req.Count)

	raw, err := g.gateway.CompleteJSON(ctx, system, user)
	if err != nil {
		monitoring.ObserveGeneration("multimedia", generationOutcome(err), start)
		return nil, nil, util.NewGenerationError("multimedia", err)
	}

	suggestions, diags := normalizeMultimedia(raw)

	payload, _ := json.Marshal(suggestions)
	lesson.Multimedia = payload
	if err := g.store.Update(lesson); err != nil {
		monitoring.ObserveGeneration("multimedia", "failed", start)
		return nil, nil, util.NewGenerationError("multimedia/persist", err)
	}

	monitoring.ObserveGeneration("multimedia", "success", start)
	return suggestions, diags, nil
}

func buildMultimediaPrompt(topic, curriculum string, gradeLevels []string, count int) (system, user string) {
	system = "You are an expert in educational media for secondary school science. " +
		"You recommend concrete videos, simulations, animations and diagrams teachers can search for. " +
		"Respond with a single JSON object only, no commentary."

	if count <= 0 {
		count = 5
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Suggest %d multimedia resources for teaching: %s\n", count, topic)
	fmt.Fprintf(&b, "Curriculum: %s\n", joinOr(curriculum, "general science"))
	fmt.Fprintf(&b, "Grade levels: %s\n", joinList(gradeLevels))
	b.WriteString("\nRespond with JSON in exactly this shape:\n")
	b.WriteString(`{
  "suggestions": [
    {
      "type": "video",
      "title": "Resource title",
      "description": "What it shows and when to use it",
      "searchTerms": ["term one", "term two"]
    }
  ]
}`)

	return system, b.String()
}

func normalizeMultimedia(raw json.RawMessage) ([]MultimediaSuggestion, []string) {
	var diags []string

	var parsed struct {
		Suggestions []MultimediaSuggestion `json:"suggestions"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		diags = append(diags, "response was not a valid multimedia object, suggestions defaulted to empty")
	}

	suggestions := make([]MultimediaSuggestion, 0, len(parsed.Suggestions))
	for i, s := range parsed.Suggestions {
		if strings.TrimSpace(s.Title) == "" {
			diags = append(diags, fmt.Sprintf("suggestions[%d] dropped: empty title", i))
			continue
		}
		s.Type = defaultStr(s.Type, "video", fmt.Sprintf("suggestions[%d].type", i), &diags)
		s.SearchTerms = orEmpty(s.SearchTerms)
		suggestions = append(suggestions, s)
	}

	return suggestions, diags
}
