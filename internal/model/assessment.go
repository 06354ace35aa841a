package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

type QuestionType string

const (
	MultipleChoice QuestionType = "multiple_choice"
	TrueFalse      QuestionType = "true_false"
	ShortAnswer    QuestionType = "short_answer"
	Essay          QuestionType = "essay"
	Calculation    QuestionType = "calculation"
)

// IsValid 判断题型是否属于固定枚举
func (t QuestionType) IsValid() bool {
	switch t {
	case MultipleChoice, TrueFalse, ShortAnswer, Essay, Calculation:
		return true
	}
	return false
}

// HasOptions 选择类题型才携带选项
func (t QuestionType) HasOptions() bool {
	return t == MultipleChoice || t == TrueFalse
}

type AssessmentType string

const (
	Formative  AssessmentType = "formative"
	Summative  AssessmentType = "summative"
	Diagnostic AssessmentType = "diagnostic"
)

// GradeThresholds 评分等级到最低百分比的映射，如 {"A*":90,"A":80,...}
type GradeThresholds map[string]int

func (g GradeThresholds) Value() (driver.Value, error) {
	if g == nil {
		return "{}", nil
	}
	b, err := json.Marshal(g)
	return string(b), err
}

func (g *GradeThresholds) Scan(value interface{}) error {
	if value == nil {
		*g = GradeThresholds{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.New("unsupported type for GradeThresholds")
	}
	if len(data) == 0 {
		*g = GradeThresholds{}
		return nil
	}
	return json.Unmarshal(data, g)
}

// swagger:model Assessment
type Assessment struct {
	UUIDBase
	ModuleID    uint           `gorm:"index;type:bigint unsigned;not null" json:"moduleId"`
	Title       string         `gorm:"size:255;not null" json:"title"`
	Description string         `gorm:"type:text" json:"description"`
	Type        AssessmentType `gorm:"size:20;default:'formative'" json:"type"`
	Difficulty  string         `gorm:"size:20;default:'intermediate'" json:"difficulty"`
	// 总分与预计时长始终由题目重新累加得出，不信任模型自报的数值
	TotalPoints       int             `gorm:"default:0" json:"totalPoints"`
	EstimatedDuration int             `gorm:"default:0" json:"estimatedDuration"` // Minutes
	Thresholds        GradeThresholds `gorm:"type:json" json:"thresholds"`
	AIGenerated       bool            `gorm:"default:false" json:"aiGenerated"`
	AISuggestions     json.RawMessage `gorm:"type:json" json:"aiSuggestions,omitempty"`

	Questions []AssessmentQuestion `gorm:"foreignKey:AssessmentID" json:"questions"`
}

func (Assessment) TableName() string {
	return "assessments"
}

type AssessmentQuestion struct {
	UUIDBase
	AssessmentID string       `gorm:"index;type:varchar(36);not null" json:"assessmentId"`
	QuestionType QuestionType `gorm:"size:30;not null" json:"questionType"`
	Prompt       string       `gorm:"type:text;not null" json:"prompt"`
	Options      StringList   `gorm:"type:json" json:"options,omitempty"`
	Answer       string       `gorm:"type:text" json:"answer"`
	Explanation  string       `gorm:"type:text" json:"explanation"`
	Points       int          `gorm:"default:0" json:"points"`
	Objectives   StringList   `gorm:"type:json" json:"objectives"`
	Difficulty   string       `gorm:"size:20;default:'intermediate'" json:"difficulty"`
	Order        int          `gorm:"default:0" json:"order"`
}

func (AssessmentQuestion) TableName() string {
	return "assessment_questions"
}
