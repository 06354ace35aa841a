package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"teachtrack_backend/internal/model"
	"teachtrack_backend/internal/repository"
	"teachtrack_backend/internal/util"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 表现分类随成绩录入才会变化，缓存10分钟足够
const performanceCacheTTL = 10 * time.Minute

type StudentService struct {
	Repo   *repository.StudentRepository
	Redis  *redis.Client
	Logger *zap.Logger
}

func NewStudentService(repo *repository.StudentRepository, rdb *redis.Client, logger *zap.Logger) *StudentService {
	return &StudentService{Repo: repo, Redis: rdb, Logger: logger}
}

func (s *StudentService) Create(student *model.Student) error {
	return s.Repo.Create(student)
}

func (s *StudentService) Get(id, userID uint) (*model.Student, error) {
	student, err := s.Repo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrStudentNotFound
		}
		return nil, err
	}
	if student.UserID != userID {
		return nil, util.ErrStudentNotFound
	}
	return student, nil
}

func (s *StudentService) List(userID uint, page, limit int) ([]model.Student, int64, error) {
	return s.Repo.ListByUser(userID, page, limit)
}

func (s *StudentService) Update(id, userID uint, updates *model.Student) (*model.Student, error) {
	student, err := s.Get(id, userID)
	if err != nil {
		return nil, err
	}

	if updates.Name != "" {
		student.Name = updates.Name
	}
	if updates.GradeLevel != "" {
		student.GradeLevel = updates.GradeLevel
	}
	if updates.TargetGrade != "" {
		student.TargetGrade = updates.TargetGrade
	}

	if err := s.Repo.Update(student); err != nil {
		return nil, err
	}
	return student, nil
}

func (s *StudentService) Delete(ctx context.Context, id, userID uint) error {
	if _, err := s.Get(id, userID); err != nil {
		return err
	}
	s.invalidateReport(ctx, id)
	return s.Repo.Delete(id)
}

// RecordScore 录入一次成绩并让该学生的表现报告缓存失效
func (s *StudentService) RecordScore(ctx context.Context, userID uint, score *model.StudentScore) error {
	if _, err := s.Get(score.StudentID, userID); err != nil {
		return err
	}
	if score.Percentage < 0 || score.Percentage > 100 {
		return errors.New("成绩百分比必须在0到100之间")
	}
	if score.RecordedAt.IsZero() {
		score.RecordedAt = time.Now()
	}

	if err := s.Repo.CreateScore(score); err != nil {
		return err
	}
	s.invalidateReport(ctx, score.StudentID)
	return nil
}

func (s *StudentService) ListScores(id, userID uint) ([]model.StudentScore, error) {
	if _, err := s.Get(id, userID); err != nil {
		return nil, err
	}
	return s.Repo.ListScores(id)
}

func (s *StudentService) DeleteScore(ctx context.Context, studentID, scoreID, userID uint) error {
	if _, err := s.Get(studentID, userID); err != nil {
		return err
	}
	s.invalidateReport(ctx, studentID)
	return s.Repo.DeleteScore(scoreID)
}

// GetPerformanceReport 返回学生的表现分类，优先读缓存。
// 分类本身是本地确定性计算，缓存只是挡掉重复的成绩查询。
func (s *StudentService) GetPerformanceReport(ctx context.Context, id, userID uint) (*PerformanceReport, error) {
	student, err := s.Get(id, userID)
	if err != nil {
		return nil, err
	}

	key := performanceCacheKey(id)
	if s.Redis != nil {
		if cached, err := s.Redis.Get(ctx, key).Result(); err == nil {
			var report PerformanceReport
			if err := json.Unmarshal([]byte(cached), &report); err == nil {
				return &report, nil
			}
		}
	}

	scores, err := s.Repo.ListScores(id)
	if err != nil {
		return nil, err
	}

	report := ClassifyPerformance(student, scores)

	if s.Redis != nil {
		if data, err := json.Marshal(report); err == nil {
			if err := s.Redis.Set(ctx, key, data, performanceCacheTTL).Err(); err != nil {
				s.Logger.Warn("failed to cache performance report", zap.Uint("studentId", id), zap.Error(err))
			}
		}
	}

	return &report, nil
}

// GetClassReports 批量生成一组学生的表现报告，供差异化方案使用
func (s *StudentService) GetClassReports(ctx context.Context, userID uint, studentIDs []uint) ([]PerformanceReport, error) {
	reports := make([]PerformanceReport, 0, len(studentIDs))
	for _, id := range studentIDs {
		report, err := s.GetPerformanceReport(ctx, id, userID)
		if err != nil {
			return nil, err
		}
		reports = append(reports, *report)
	}
	return reports, nil
}

func (s *StudentService) invalidateReport(ctx context.Context, studentID uint) {
	if s.Redis == nil {
		return
	}
	if err := s.Redis.Del(ctx, performanceCacheKey(studentID)).Err(); err != nil {
		s.Logger.Warn("failed to invalidate performance cache", zap.Uint("studentId", studentID), zap.Error(err))
	}
}

func performanceCacheKey(studentID uint) string {
	return fmt.Sprintf("performance:student:%d", studentID)
}
