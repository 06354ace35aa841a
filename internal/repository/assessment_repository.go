package repository

import (
	"teachtrack_backend/internal/model"

	"gorm.io/gorm"
)

type AssessmentRepository struct {
	DB *gorm.DB
}

func NewAssessmentRepository(db *gorm.DB) *AssessmentRepository {
	return &AssessmentRepository{DB: db}
}

// Create 连同题目子记录一并写入
func (r *AssessmentRepository) Create(a *model.Assessment) error {
	return r.DB.Create(a).Error
}

func (r *AssessmentRepository) FindByID(id string) (*model.Assessment, error) {
	var a model.Assessment
	err := r.DB.Preload("Questions", func(db *gorm.DB) *gorm.DB {
		return db.Order("assessment_questions.`order` asc")
	}).First(&a, "id = ?", id).Error
	return &a, err
}

func (r *AssessmentRepository) ListByModule(moduleID uint, page, limit int) ([]model.Assessment, int64, error) {
	var as []model.Assessment
	var total int64
	query := r.DB.Model(&model.Assessment{}).Where("module_id = ?", moduleID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset := (page - 1) * limit
	err := query.Preload("Questions", func(db *gorm.DB) *gorm.DB {
		return db.Order("assessment_questions.`order` asc")
	}).Order("created_at desc").Offset(offset).Limit(limit).Find(&as).Error
	return as, total, err
}

func (r *AssessmentRepository) Update(a *model.Assessment) error {
	return r.DB.Save(a).Error
}

func (r *AssessmentRepository) Delete(id string) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("assessment_id = ?", id).Delete(&model.AssessmentQuestion{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Assessment{}, "id = ?", id).Error
	})
}

func (r *AssessmentRepository) CreateQuestion(q *model.AssessmentQuestion) error {
	return r.DB.Create(q).Error
}

func (r *AssessmentRepository) UpdateQuestion(q *model.AssessmentQuestion) error {
	return r.DB.Save(q).Error
}

func (r *AssessmentRepository) DeleteQuestion(id string) error {
	return r.DB.Delete(&model.AssessmentQuestion{}, "id = ?", id).Error
}
