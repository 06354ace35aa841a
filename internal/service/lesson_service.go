package service

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"teachtrack_backend/internal/model"
	"teachtrack_backend/internal/repository"
	"teachtrack_backend/internal/util"

	"gorm.io/gorm"
)

type LessonService struct {
	LessonRepo *repository.LessonRepository
	ModuleRepo *repository.ModuleRepository
	Storage    *StorageService
}

func NewLessonService(lessonRepo *repository.LessonRepository, moduleRepo *repository.ModuleRepository, storage *StorageService) *LessonService {
	return &LessonService{
		LessonRepo: lessonRepo,
		ModuleRepo: moduleRepo,
		Storage:    storage,
	}
}

func (s *LessonService) Get(id string, userID uint) (*model.LessonPlan, error) {
	lesson, err := s.LessonRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrLessonNotFound
		}
		return nil, err
	}
	if err := s.checkModuleOwner(lesson.ModuleID, userID); err != nil {
		return nil, err
	}
	return lesson, nil
}

func (s *LessonService) ListByModule(moduleID, userID uint, page, limit int) ([]model.LessonPlan, int64, error) {
	if err := s.checkModuleOwner(moduleID, userID); err != nil {
		return nil, 0, err
	}
	return s.LessonRepo.ListByModule(moduleID, page, limit)
}

func (s *LessonService) Update(id string, userID uint, updates *model.LessonPlan) (*model.LessonPlan, error) {
	lesson, err := s.Get(id, userID)
	if err != nil {
		return nil, err
	}

	if updates.Title != "" {
		lesson.Title = updates.Title
	}
	if updates.Description != "" {
		lesson.Description = updates.Description
	}
	if updates.LessonType != "" {
		lesson.LessonType = updates.LessonType
	}
	if updates.Duration > 0 {
		lesson.Duration = updates.Duration
	}
	if updates.Difficulty != "" {
		lesson.Difficulty = updates.Difficulty
	}
	if updates.Objectives != nil {
		lesson.Objectives = updates.Objectives
	}
	if updates.Resources != nil {
		lesson.Resources = updates.Resources
	}
	if updates.Equipment != nil {
		lesson.Equipment = updates.Equipment
	}
	if updates.SafetyNotes != "" {
		lesson.SafetyNotes = updates.SafetyNotes
	}

	if err := s.LessonRepo.Update(lesson); err != nil {
		return nil, err
	}
	return lesson, nil
}

func (s *LessonService) Delete(id string, userID uint) error {
	if _, err := s.Get(id, userID); err != nil {
		return err
	}
	return s.LessonRepo.Delete(id)
}

// UploadResource 保存课程资源文件。视频资源先落到临时文件，
// 用 ffprobe 探测时长后再交给存储后端。
func (s *LessonService) UploadResource(ctx context.Context, lessonID string, userID uint, fileHeader *multipart.FileHeader) (*model.LessonResourceFile, error) {
	lesson, err := s.Get(lessonID, userID)
	if err != nil {
		return nil, err
	}

	src, err := fileHeader.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	resource := &model.LessonResourceFile{
		LessonID:    lesson.ID,
		UserID:      userID,
		Name:        fileHeader.Filename,
		ContentType: contentType,
		Size:        fileHeader.Size,
	}

	objectName := fmt.Sprintf("lessons/%s/%s_%s", lesson.ID, model.GenerateUUID()[:8], fileHeader.Filename)
	resource.ObjectName = objectName

	if strings.HasPrefix(contentType, "video/") {
		tmp, err := os.CreateTemp("", "upload_*"+filepath.Ext(fileHeader.Filename))
		if err != nil {
			return nil, err
		}
		defer os.Remove(tmp.Name())
		defer tmp.Close()

		if _, err := tmp.ReadFrom(src); err != nil {
			return nil, err
		}

		if info, err := util.GetVideoInfo(tmp.Name()); err == nil {
			resource.VideoDuration = info.Duration
		}

		f, err := os.Open(tmp.Name())
		if err != nil {
			return nil, err
		}
		defer f.Close()

		url, err := s.Storage.Upload(ctx, objectName, f, fileHeader.Size, contentType)
		if err != nil {
			return nil, err
		}
		resource.URL = url
	} else {
		url, err := s.Storage.Upload(ctx, objectName, src, fileHeader.Size, contentType)
		if err != nil {
			return nil, err
		}
		resource.URL = url
	}

	if err := s.LessonRepo.CreateResourceFile(resource); err != nil {
		return nil, err
	}
	return resource, nil
}

func (s *LessonService) ListResources(lessonID string, userID uint) ([]model.LessonResourceFile, error) {
	if _, err := s.Get(lessonID, userID); err != nil {
		return nil, err
	}
	return s.LessonRepo.ListResourceFiles(lessonID)
}

func (s *LessonService) DeleteResource(ctx context.Context, resourceID string, userID uint) error {
	resource, err := s.LessonRepo.FindResourceFileByID(resourceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrLessonNotFound
		}
		return err
	}
	if resource.UserID != userID {
		return util.ErrPermissionDenied
	}

	// 存储后端删除失败不阻塞记录删除
	_ = s.Storage.Delete(ctx, resource.ObjectName)

	return s.LessonRepo.DeleteResourceFile(resourceID)
}

func (s *LessonService) checkModuleOwner(moduleID, userID uint) error {
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
