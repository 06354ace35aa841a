package model

import "time"

type UserRole string

const (
	RoleTeacher UserRole = "teacher"
	RoleAdmin   UserRole = "admin"
)

// swagger:model User
type User struct {
	BaseModel
	Name       string     `gorm:"size:100;not null" json:"name"`
	Email      string     `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Password   string     `gorm:"size:255;not null" json:"-"`
	Role       UserRole   `gorm:"size:20;default:'teacher'" json:"role"`
	School     string     `gorm:"size:255" json:"school"`
	LastSeenAt *time.Time `json:"lastSeenAt,omitempty"`
}

func (User) TableName() string {
	return "users"
}
