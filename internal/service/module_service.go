package service

import (
	"errors"

	"teachtrack_backend/internal/model"
	"teachtrack_backend/internal/repository"
	"teachtrack_backend/internal/util"

	"gorm.io/gorm"
)

type ModuleService struct {
	Repo *repository.ModuleRepository
}

func NewModuleService(repo *repository.ModuleRepository) *ModuleService {
	return &ModuleService{Repo: repo}
}

func (s *ModuleService) Create(m *model.Module) error {
	return s.Repo.Create(m)
}

// Get 加载单元并校验归属，非本人的单元按不存在处理
func (s *ModuleService) Get(id, userID uint) (*model.Module, error) {
	m, err := s.Repo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrModuleNotFound
		}
		return nil, err
	}
	if m.UserID != userID {
		return nil, util.ErrModuleNotFound
	}
	return m, nil
}

func (s *ModuleService) List(userID uint, page, limit int) ([]model.Module, int64, error) {
	return s.Repo.ListByUser(userID, page, limit)
}

func (s *ModuleService) Update(id, userID uint, updates *model.Module) (*model.Module, error) {
	m, err := s.Get(id, userID)
	if err != nil {
		return nil, err
	}

	if updates.Title != "" {
		m.Title = updates.Title
	}
	if updates.Description != "" {
		m.Description = updates.Description
	}
	if updates.Curriculum != "" {
		m.Curriculum = updates.Curriculum
	}
	if updates.GradeLevels != nil {
		m.GradeLevels = updates.GradeLevels
	}
	if updates.Topics != nil {
		m.Topics = updates.Topics
	}
	if updates.Objectives != nil {
		m.Objectives = updates.Objectives
	}

	if err := s.Repo.Update(m); err != nil {
		return nil, err
	}
	return m, nil
}

// Delete 级联删除单元及其下课程、活动、测评与题目
func (s *ModuleService) Delete(id, userID uint) error {
	if _, err := s.Get(id, userID); err != nil {
		return err
	}
	return s.Repo.Delete(id)
}
