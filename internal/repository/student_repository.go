package repository

import (
	"teachtrack_backend/internal/model"

	"gorm.io/gorm"
)

type StudentRepository struct {
	DB *gorm.DB
}

func NewStudentRepository(db *gorm.DB) *StudentRepository {
	return &StudentRepository{DB: db}
}

func (r *StudentRepository) Create(s *model.Student) error {
	return r.DB.Create(s).Error
}

func (r *StudentRepository) FindByID(id uint) (*model.Student, error) {
	var s model.Student
	err := r.DB.First(&s, id).Error
	return &s, err
}

func (r *StudentRepository) ListByUser(userID uint, page, limit int) ([]model.Student, int64, error) {
	var ss []model.Student
	var total int64
	query := r.DB.Model(&model.Student{}).Where("user_id = ?", userID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset := (page - 1) * limit
	err := query.Order("name asc").Offset(offset).Limit(limit).Find(&ss).Error
	return ss, total, err
}

func (r *StudentRepository) Update(s *model.Student) error {
	return r.DB.Save(s).Error
}

func (r *StudentRepository) Delete(id uint) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("student_id = ?", id).Delete(&model.StudentScore{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Student{}, id).Error
	})
}

func (r *StudentRepository) CreateScore(score *model.StudentScore) error {
	return r.DB.Create(score).Error
}

// ListScores 按记录日期升序返回，表现分析依赖该顺序
func (r *StudentRepository) ListScores(studentID uint) ([]model.StudentScore, error) {
	var scores []model.StudentScore
	err := r.DB.Where("student_id = ?", studentID).Order("recorded_at asc").Find(&scores).Error
	return scores, err
}

func (r *StudentRepository) DeleteScore(id uint) error {
	return r.DB.Delete(&model.StudentScore{}, id).Error
}
