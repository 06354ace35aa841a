package model

import "time"

// Student 教师名下的学生
type Student struct {
	BaseModel
	UserID      uint   `gorm:"index;type:bigint unsigned;not null" json:"userId"`
	Name        string `gorm:"size:100;not null" json:"name"`
	GradeLevel  string `gorm:"size:20" json:"gradeLevel"`
	TargetGrade string `gorm:"size:10" json:"targetGrade"`
}

func (Student) TableName() string {
	return "students"
}

// StudentScore 学生在某次测验中的百分比成绩，按日期排序后作为表现分析的输入
type StudentScore struct {
	BaseModel
	StudentID    uint      `gorm:"index;type:bigint unsigned;not null" json:"studentId"`
	AssessmentID string    `gorm:"index;type:varchar(36)" json:"assessmentId"`
	Subject      string    `gorm:"size:100" json:"subject"`
	Percentage   float64   `gorm:"default:0" json:"percentage"`
	RecordedAt   time.Time `json:"recordedAt"`
}

func (StudentScore) TableName() string {
	return "student_scores"
}
