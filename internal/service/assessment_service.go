package service

import (
	"errors"

	"teachtrack_backend/internal/model"
	"teachtrack_backend/internal/repository"
	"teachtrack_backend/internal/util"

	"gorm.io/gorm"
)

type AssessmentService struct {
	AssessmentRepo *repository.AssessmentRepository
	ModuleRepo     *repository.ModuleRepository
}

func NewAssessmentService(assessmentRepo *repository.AssessmentRepository, moduleRepo *repository.ModuleRepository) *AssessmentService {
	return &AssessmentService{
		AssessmentRepo: assessmentRepo,
		ModuleRepo:     moduleRepo,
	}
}

func (s *AssessmentService) Get(id string, userID uint) (*model.Assessment, error) {
	a, err := s.AssessmentRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrAssessmentNotFound
		}
		return nil, err
	}
	if err := s.checkModuleOwner(a.ModuleID, userID); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *AssessmentService) ListByModule(moduleID, userID uint, page, limit int) ([]model.Assessment, int64, error) {
	if err := s.checkModuleOwner(moduleID, userID); err != nil {
		return nil, 0, err
	}
	return s.AssessmentRepo.ListByModule(moduleID, page, limit)
}

func (s *AssessmentService) Update(id string, userID uint, updates *model.Assessment) (*model.Assessment, error) {
	a, err := s.Get(id, userID)
	if err != nil {
		return nil, err
	}

	if updates.Title != "" {
		a.Title = updates.Title
	}
	if updates.Description != "" {
		a.Description = updates.Description
	}
	if updates.Type != "" {
		a.Type = updates.Type
	}
	if updates.Difficulty != "" {
		a.Difficulty = updates.Difficulty
	}
	if updates.Thresholds != nil {
		a.Thresholds = updates.Thresholds
	}

	if err := s.AssessmentRepo.Update(a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *AssessmentService) Delete(id string, userID uint) error {
	if _, err := s.Get(id, userID); err != nil {
		return err
	}
	return s.AssessmentRepo.Delete(id)
}

// UpdateQuestion 修改单题后重算总分与预计时长
func (s *AssessmentService) UpdateQuestion(assessmentID string, userID uint, q *model.AssessmentQuestion) (*model.Assessment, error) {
	a, err := s.Get(assessmentID, userID)
	if err != nil {
		return nil, err
	}

	found := false
	for i := range a.Questions {
		if a.Questions[i].ID == q.ID {
			if q.Prompt != "" {
				a.Questions[i].Prompt = q.Prompt
			}
			if q.Answer != "" {
				a.Questions[i].Answer = q.Answer
			}
			if q.Explanation != "" {
				a.Questions[i].Explanation = q.Explanation
			}
			if q.Points > 0 {
				a.Questions[i].Points = q.Points
			}
			if q.Options != nil {
				a.Questions[i].Options = q.Options
			}
			if err := s.AssessmentRepo.UpdateQuestion(&a.Questions[i]); err != nil {
				return nil, err
			}
			found = true
			break
		}
	}
	if !found {
		return nil, util.ErrAssessmentNotFound
	}

	s.recalcTotals(a)
	if err := s.AssessmentRepo.Update(a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *AssessmentService) DeleteQuestion(assessmentID, questionID string, userID uint) (*model.Assessment, error) {
	a, err := s.Get(assessmentID, userID)
	if err != nil {
		return nil, err
	}

	kept := a.Questions[:0]
	found := false
	for _, q := range a.Questions {
		if q.ID == questionID {
			found = true
			continue
		}
		kept = append(kept, q)
	}
	if !found {
		return nil, util.ErrAssessmentNotFound
	}

	if err := s.AssessmentRepo.DeleteQuestion(questionID); err != nil {
		return nil, err
	}
	a.Questions = kept

	s.recalcTotals(a)
	if err := s.AssessmentRepo.Update(a); err != nil {
		return nil, err
	}
	return a, nil
}

// 总分与时长始终由题目重新推出，不信任存量字段
func (s *AssessmentService) recalcTotals(a *model.Assessment) {
	RecalcAssessmentTotals(a)
}

// RecalcAssessmentTotals 按题目重算测评总分与预计时长，scripts/recalc_totals.go 也会用到
func RecalcAssessmentTotals(a *model.Assessment) {
	total := 0
	duration := 0
	for _, q := range a.Questions {
		total += q.Points
		duration += questionDuration(q.QuestionType)
	}
	a.TotalPoints = total
	a.EstimatedDuration = duration
}

func (s *AssessmentService) checkModuleOwner(moduleID, userID uint) error {
	m, err := s.ModuleRepo.FindByID(moduleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrModuleNotFound
		}
		return err
	}
	if m.UserID != userID {
		return util.ErrModuleNotFound
	}
	return nil
}
