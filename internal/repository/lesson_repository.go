package repository

import (
	"teachtrack_backend/internal/model"

	"gorm.io/gorm"
)

type LessonRepository struct {
	DB *gorm.DB
}

func NewLessonRepository(db *gorm.DB) *LessonRepository {
	return &LessonRepository{DB: db}
}

// Create 连同活动子记录一并写入
func (r *LessonRepository) Create(lesson *model.LessonPlan) error {
	return r.DB.Create(lesson).Error
}

func (r *LessonRepository) FindByID(id string) (*model.LessonPlan, error) {
	var lesson model.LessonPlan
	err := r.DB.Preload("Activities", func(db *gorm.DB) *gorm.DB {
		return db.Order("lesson_activities.`order` asc")
	}).First(&lesson, "id = ?", id).Error
	return &lesson, err
}

func (r *LessonRepository) ListByModule(moduleID uint, page, limit int) ([]model.LessonPlan, int64, error) {
	var lessons []model.LessonPlan
	var total int64
	query := r.DB.Model(&model.LessonPlan{}).Where("module_id = ?", moduleID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset := (page - 1) * limit
	err := query.Preload("Activities", func(db *gorm.DB) *gorm.DB {
		return db.Order("lesson_activities.`order` asc")
	}).Order("created_at desc").Offset(offset).Limit(limit).Find(&lessons).Error
	return lessons, total, err
}

func (r *LessonRepository) Update(lesson *model.LessonPlan) error {
	return r.DB.Save(lesson).Error
}

func (r *LessonRepository) UpdateActivity(activity *model.LessonActivity) error {
	return r.DB.Save(activity).Error
}

func (r *LessonRepository) Delete(id string) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("lesson_id = ?", id).Delete(&model.LessonActivity{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.LessonPlan{}, "id = ?", id).Error
	})
}

func (r *LessonRepository) CreateResourceFile(f *model.LessonResourceFile) error {
	return r.DB.Create(f).Error
}

func (r *LessonRepository) ListResourceFiles(lessonID string) ([]model.LessonResourceFile, error) {
	var files []model.LessonResourceFile
	err := r.DB.Where("lesson_id = ?", lessonID).Order("created_at desc").Find(&files).Error
	return files, err
}

func (r *LessonRepository) DeleteResourceFile(id string) error {
	return r.DB.Delete(&model.LessonResourceFile{}, "id = ?", id).Error
}

func (r *LessonRepository) FindResourceFileByID(id string) (*model.LessonResourceFile, error) {
	var f model.LessonResourceFile
	err := r.DB.First(&f, "id = ?", id).Error
	return &f, err
}
