package repository

import (
	"teachtrack_backend/internal/model"

	"gorm.io/gorm"
)

type ModuleRepository struct {
	DB *gorm.DB
}

func NewModuleRepository(db *gorm.DB) *ModuleRepository {
	return &ModuleRepository{DB: db}
}

func (r *ModuleRepository) Create(m *model.Module) error {
	return r.DB.Create(m).Error
}

func (r *ModuleRepository) FindByID(id uint) (*model.Module, error) {
	var m model.Module
	err := r.DB.First(&m, id).Error
	return &m, err
}

func (r *ModuleRepository) ListByUser(userID uint, page, limit int) ([]model.Module, int64, error) {
	var ms []model.Module
	var total int64
	query := r.DB.Model(&model.Module{}).Where("user_id = ?", userID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset := (page - 1) * limit
	err := query.Order("created_at desc").Offset(offset).Limit(limit).Find(&ms).Error
	return ms, total, err
}

func (r *ModuleRepository) Update(m *model.Module) error {
	return r.DB.Save(m).Error
}

// Delete 删除单元及其名下课程与测验（按moduleId级联，非数据库外键）
func (r *ModuleRepository) Delete(id uint) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		var lessonIDs []string
		if err := tx.Model(&model.LessonPlan{}).Where("module_id = ?", id).Pluck("id", &lessonIDs).Error; err != nil {
			return err
		}
		if len(lessonIDs) > 0 {
			if err := tx.Where("lesson_id IN ?", lessonIDs).Delete(&model.LessonActivity{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("module_id = ?", id).Delete(&model.LessonPlan{}).Error; err != nil {
			return err
		}

		var assessmentIDs []string
		if err := tx.Model(&model.Assessment{}).Where("module_id = ?", id).Pluck("id", &assessmentIDs).Error; err != nil {
			return err
		}
		if len(assessmentIDs) > 0 {
			if err := tx.Where("assessment_id IN ?", assessmentIDs).Delete(&model.AssessmentQuestion{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("module_id = ?", id).Delete(&model.Assessment{}).Error; err != nil {
			return err
		}

		return tx.Delete(&model.Module{}, id).Error
	})
}
