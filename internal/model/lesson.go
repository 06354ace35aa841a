package model

import "encoding/json"

type LessonType string

const (
	LessonLecture    LessonType = "lecture"
	LessonInquiry    LessonType = "inquiry"
	LessonPractical  LessonType = "practical"
	LessonDiscussion LessonType = "discussion"
	LessonProject    LessonType = "project"
)

// swagger:model LessonPlan
type LessonPlan struct {
	UUIDBase
	ModuleID    uint       `gorm:"index;type:bigint unsigned;not null" json:"moduleId"`
	Title       string     `gorm:"size:255;not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	LessonType  LessonType `gorm:"size:30;default:'lecture'" json:"lessonType"`
	Duration    int        `gorm:"default:0" json:"duration"` // Minutes
	Difficulty  string     `gorm:"size:20;default:'intermediate'" json:"difficulty"`
	Objectives  StringList `gorm:"type:json" json:"objectives"` // 模块目标的子集
	Resources   StringList `gorm:"type:json" json:"resources"`
	Equipment   StringList `gorm:"type:json" json:"equipment"`
	SafetyNotes string     `gorm:"type:text" json:"safetyNotes"`

	// 随堂评估（可选的内嵌字段）
	HasAssessment         bool   `gorm:"default:false" json:"hasAssessment"`
	AssessmentDescription string `gorm:"type:text" json:"assessmentDescription"`

	// 综合课程的扩展部分，保存归一化后的结构化JSON
	TeacherGuide   json.RawMessage `gorm:"type:json" json:"teacherGuide,omitempty"`
	Multimedia     json.RawMessage `gorm:"type:json" json:"multimedia,omitempty"`
	Differentiated json.RawMessage `gorm:"type:json" json:"differentiated,omitempty"`
	Rubric         json.RawMessage `gorm:"type:json" json:"rubric,omitempty"`

	AIGenerated bool `gorm:"default:false" json:"aiGenerated"`
	// 保留完整的原始生成结果，供事后查看
	AISuggestions json.RawMessage `gorm:"type:json" json:"aiSuggestions,omitempty"`

	Activities []LessonActivity `gorm:"foreignKey:LessonID" json:"activities"`
}

func (LessonPlan) TableName() string {
	return "lesson_plans"
}

type LessonActivity struct {
	UUIDBase
	LessonID    string `gorm:"index;type:varchar(36);not null" json:"lessonId"`
	Phase       string `gorm:"size:30" json:"phase"` // starter / main / plenary
	Title       string `gorm:"size:255" json:"title"`
	Description string `gorm:"type:text" json:"description"`
	Duration    int    `gorm:"default:0" json:"duration"` // Minutes
	Grouping    string `gorm:"size:30" json:"grouping"`   // individual / pairs / groups / whole_class
	Order       int    `gorm:"default:0" json:"order"`
}

func (LessonActivity) TableName() string {
	return "lesson_activities"
}

// LessonResourceFile 教师上传的课程资源文件（文档、视频等）
type LessonResourceFile struct {
	UUIDBase
	LessonID    string `gorm:"index;type:varchar(36)" json:"lessonId"`
	UserID      uint   `gorm:"index;type:bigint unsigned" json:"userId"`
	Name        string `gorm:"size:255;not null" json:"name"`
	URL         string `gorm:"size:512" json:"url"`
	ObjectName  string `gorm:"size:512" json:"-"` // 存储后端内的对象名，删除时按此定位
	ContentType string `gorm:"size:100" json:"contentType"`
	Size        int64  `gorm:"default:0" json:"size"`
	// 视频资源通过 ffprobe 探测到的时长（秒）
	VideoDuration float64 `gorm:"default:0" json:"videoDuration"`
}

func (LessonResourceFile) TableName() string {
	return "lesson_resource_files"
}
