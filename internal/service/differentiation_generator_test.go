package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"teachtrack_backend/internal/model"
	"teachtrack_backend/internal/util"

	"gorm.io/gorm"
)

type fakeStudentScoreStore struct {
	students map[uint]*model.Student
	scores   map[uint][]model.StudentScore
}

func newFakeStudentScoreStore() *fakeStudentScoreStore {
	return &fakeStudentScoreStore{
		students: map[uint]*model.Student{},
		scores:   map[uint][]model.StudentScore{},
	}
}

func (f *fakeStudentScoreStore) FindByID(id uint) (*model.Student, error) {
	s, ok := f.students[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return s, nil
}

func (f *fakeStudentScoreStore) ListScores(studentID uint) ([]model.StudentScore, error) {
	return f.scores[studentID], nil
}

func (f *fakeStudentScoreStore) addStudent(id, owner uint, name string, percentages ...float64) {
	f.students[id] = &model.Student{UserID: owner, Name: name}
	f.students[id].ID = id
	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i, p := range percentages {
		f.scores[id] = append(f.scores[id], model.StudentScore{
			StudentID:  id,
			Subject:    "Physics",
			Percentage: p,
			RecordedAt: day.AddDate(0, 0, i*7),
		})
	}
}

func TestGroupLabel(t *testing.T) {
	cases := []struct {
		name   string
		report PerformanceReport
		want   string
	}{
		{"critical risk", PerformanceReport{Average: 72, Risk: RiskCritical}, "support"},
		{"high risk", PerformanceReport{Average: 72, Risk: RiskHigh}, "support"},
		{"low average", PerformanceReport{Average: 55, Risk: RiskMedium}, "support"},
		{"strong and safe", PerformanceReport{Average: 85, Risk: RiskLow}, "extension"},
		{"strong but risky", PerformanceReport{Average: 85, Risk: RiskMedium}, "core"},
		{"middle", PerformanceReport{Average: 70, Risk: RiskLow}, "core"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := groupLabel(c.report); got != c.want {
				t.Errorf("groupLabel(%+v) = %q, want %q", c.report, got, c.want)
			}
		})
	}
}

const differentiationPlanJSON = `{
  "support": {"activities": ["Guided worksheet"], "scaffolds": ["Sentence starters"], "resources": ["Cue cards"]},
  "core": {"activities": ["Standard practical"], "scaffolds": [], "resources": ["Worksheet"]},
  "extension": {"activities": ["Open investigation"], "scaffolds": [], "resources": ["Data set"]}
}`

func TestDifferentiationGeneratorHappyPath(t *testing.T) {
	gateway := &fakeGateway{response: json.RawMessage(differentiationPlanJSON)}
	lessons := newFakeLessonStore()
	lessons.Create(&model.LessonPlan{ModuleID: 5, Title: "Forces and Motion"})
	lessonID := lessons.created[0].ID

	students := newFakeStudentScoreStore()
	students.addStudent(1, 10, "Alice", 40, 45, 42, 38)
	students.addStudent(2, 10, "Ben", 85, 88, 90, 87)

	gen := NewDifferentiationGenerator(gateway, lessons, students)
	plan, _, err := gen.Generate(context.Background(), DifferentiatedLessonRequest{
		LessonID:         lessonID,
		ModuleID:         5,
		UserID:           10,
		StudentIDs:       []uint{1, 2},
		ModuleObjectives: []string{"Explain Newton's first law"},
		Curriculum:       "IGCSE Physics",
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(plan.Support.Activities) != 1 || plan.Support.Activities[0] != "Guided worksheet" {
		t.Errorf("Support.Activities = %v", plan.Support.Activities)
	}

	if len(lessons.updated) != 1 {
		t.Fatalf("updated %d lessons, want 1", len(lessons.updated))
	}
	var stored DifferentiatedPlan
	if err := json.Unmarshal(lessons.updated[0].Differentiated, &stored); err != nil {
		t.Fatalf("Differentiated not valid JSON: %v", err)
	}
	if len(stored.Extension.Activities) != 1 {
		t.Errorf("stored.Extension.Activities = %v", stored.Extension.Activities)
	}
}

func TestDifferentiationGeneratorSkipsUnknownStudents(t *testing.T) {
	gateway := &fakeGateway{response: json.RawMessage(differentiationPlanJSON)}
	lessons := newFakeLessonStore()
	lessons.Create(&model.LessonPlan{Title: "Forces"})

	gen := NewDifferentiationGenerator(gateway, lessons, newFakeStudentScoreStore())
	_, _, err := gen.Generate(context.Background(), DifferentiatedLessonRequest{
		LessonID:   lessons.created[0].ID,
		StudentIDs: []uint{99},
	})
	if err != nil {
		t.Fatalf("unknown students must be skipped, not fail the generation: %v", err)
	}
}

func TestDifferentiationGeneratorSkipsForeignStudents(t *testing.T) {
	gateway := &fakeGateway{response: json.RawMessage(differentiationPlanJSON)}
	lessons := newFakeLessonStore()
	lessons.Create(&model.LessonPlan{ModuleID: 5, Title: "Forces"})

	students := newFakeStudentScoreStore()
	students.addStudent(1, 10, "Alice", 40, 45, 42, 38)
	// 同一个id空间里别的教师的学生
	students.addStudent(2, 99, "Mallory", 10, 10, 10, 10)

	gen := NewDifferentiationGenerator(gateway, lessons, students)
	_, _, err := gen.Generate(context.Background(), DifferentiatedLessonRequest{
		LessonID:   lessons.created[0].ID,
		ModuleID:   5,
		UserID:     10,
		StudentIDs: []uint{1, 2},
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if len(gateway.calls) != 1 {
		t.Fatalf("gateway calls = %d, want 1", len(gateway.calls))
	}
	// Alice一个人进support组，Mallory的成绩不进提示词
	if !strings.Contains(gateway.calls[0], "support group: 1 students") {
		t.Errorf("prompt must count only the requesting teacher's students:\n%s", gateway.calls[0])
	}
	if strings.Contains(gateway.calls[0], "average 10%") {
		t.Errorf("foreign student's scores leaked into the prompt:\n%s", gateway.calls[0])
	}
}

func TestDifferentiationGeneratorForeignModule(t *testing.T) {
	gateway := &fakeGateway{response: json.RawMessage(differentiationPlanJSON)}
	lessons := newFakeLessonStore()
	lessons.Create(&model.LessonPlan{ModuleID: 5, Title: "Forces"})

	students := newFakeStudentScoreStore()
	students.addStudent(1, 10, "Alice", 40)

	gen := NewDifferentiationGenerator(gateway, lessons, students)
	_, _, err := gen.Generate(context.Background(), DifferentiatedLessonRequest{
		LessonID:   lessons.created[0].ID,
		ModuleID:   6,
		UserID:     10,
		StudentIDs: []uint{1},
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

func TestDifferentiationGeneratorStoreFailure(t *testing.T) {
	lessons := newFakeLessonStore()
	lessons.findErr = errors.New("connection refused")

	gen := NewDifferentiationGenerator(&fakeGateway{}, lessons, newFakeStudentScoreStore())
	_, _, err := gen.Generate(context.Background(), DifferentiatedLessonRequest{
		LessonID:   "any",
		StudentIDs: []uint{1},
	})
	if err == nil {
		t.Fatal("expected an error")
	}
	if errors.Is(err, util.ErrLessonNotFound) {
		t.Fatalf("store failure must not map to ErrLessonNotFound, got %v", err)
	}
}

func TestDifferentiationGeneratorLessonNotFound(t *testing.T) {
	gateway := &fakeGateway{response: json.RawMessage(differentiationPlanJSON)}
	gen := NewDifferentiationGenerator(gateway, newFakeLessonStore(), newFakeStudentScoreStore())

	_, _, err := gen.Generate(context.Background(), DifferentiatedLessonRequest{
		LessonID:   "missing",
		StudentIDs: []uint{1},
	})
	if !errors.Is(err, util.ErrLessonNotFound) {
		t.Fatalf("error = %v, want ErrLessonNotFound", err)
	}
	if len(gateway.calls) != 0 {
		t.Error("gateway must not be called when the lesson is missing")
	}
}

func TestNormalizeDifferentiatedPlanTotality(t *testing.T) {
	plan, diags := normalizeDifferentiatedPlan(json.RawMessage(`[1, 2, 3]`))
	if plan == nil {
		t.Fatal("plan must never be nil")
	}
	for name, tier := range map[string]DifferentiatedTier{
		"support": plan.Support, "core": plan.Core, "extension": plan.Extension,
	} {
		if tier.Activities == nil || tier.Scaffolds == nil || tier.Resources == nil {
			t.Errorf("%s tier has nil slices", name)
		}
	}
	if len(diags) == 0 {
		t.Error("expected diagnostics for the invalid response")
	}
}
