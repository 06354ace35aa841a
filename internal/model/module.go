package model

// Module 教学单元：主题与教学目标的归属单位，课程与测验都挂在单元下
type Module struct {
	BaseModel
	UserID      uint       `gorm:"index;type:bigint unsigned;not null" json:"userId"`
	Title       string     `gorm:"size:255;not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	Curriculum  string     `gorm:"size:100" json:"curriculum"` // IGCSE / A Level
	GradeLevels StringList `gorm:"type:json" json:"gradeLevels"`
	Topics      StringList `gorm:"type:json" json:"topics"`
	Objectives  StringList `gorm:"type:json" json:"objectives"` // 有序教学目标列表
}

func (Module) TableName() string {
	return "modules"
}
