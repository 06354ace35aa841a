package service

import (
	"errors"
	"fmt"
	"strings"

	"teachtrack_backend/internal/model"
	"teachtrack_backend/internal/util"

	"gorm.io/gorm"
)

// 编排器只依赖这些窄接口，由repository层实现，测试时用内存假实现

type AssessmentStore interface {
	Create(a *model.Assessment) error
	FindByID(id string) (*model.Assessment, error)
}

type LessonStore interface {
	Create(lesson *model.LessonPlan) error
	FindByID(id string) (*model.LessonPlan, error)
	Update(lesson *model.LessonPlan) error
	UpdateActivity(activity *model.LessonActivity) error
}

type ModuleStore interface {
	FindByID(id uint) (*model.Module, error)
}

type StudentScoreStore interface {
	FindByID(id uint) (*model.Student, error)
	ListScores(studentID uint) ([]model.StudentScore, error)
}

// findOwnedLesson 查课程并校验其属于指定单元。
// 客户端提交的lessonId可能指向别人的课程，跨单元一律按不存在处理。
func findOwnedLesson(store LessonStore, lessonID string, moduleID uint) (*model.LessonPlan, error) {
	lesson, err := store.FindByID(lessonID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrLessonNotFound
		}
		return nil, err
	}
	if lesson.ModuleID != moduleID {
		return nil, util.ErrLessonNotFound
	}
	return lesson, nil
}

// matchesObjective 双向的大小写不敏感子串匹配。
// 已知是有损启发式：短目标可能误配，模型改写过的目标可能漏配。
func matchesObjective(proposed, moduleObjective string) bool {
	p := strings.ToLower(strings.TrimSpace(proposed))
	m := strings.ToLower(strings.TrimSpace(moduleObjective))
	if p == "" || m == "" {
		return false
	}
	return strings.Contains(p, m) || strings.Contains(m, p)
}

// filterObjectives 只保留能对应到模块目标的条目（去重、保序）。
// 一条都不剩时回退为模块的第一个目标，保证结果非空。
func filterObjectives(proposed, moduleObjectives []string) (kept []string, fallbackUsed bool) {
	seen := make(map[string]bool)
	for _, p := range proposed {
		for _, m := range moduleObjectives {
			if matchesObjective(p, m) {
				key := strings.ToLower(strings.TrimSpace(p))
				if !seen[key] {
					seen[key] = true
					kept = append(kept, p)
				}
				break
			}
		}
	}

	if len(kept) == 0 && len(moduleObjectives) > 0 {
		return []string{moduleObjectives[0]}, true
	}
	return kept, false
}

// questionObjectives 题目上的目标引用只过滤，不做回退
func questionObjectives(proposed, moduleObjectives []string) []string {
	var kept []string
	seen := make(map[string]bool)
	for _, p := range proposed {
		for _, m := range moduleObjectives {
			if matchesObjective(p, m) {
				key := strings.ToLower(strings.TrimSpace(p))
				if !seen[key] {
					seen[key] = true
					kept = append(kept, p)
				}
				break
			}
		}
	}
	return kept
}

// 归一化时的缺省处理，diags记录被默认掉的字段

func defaultStr(value, fallback, field string, diags *[]string) string {
	if strings.TrimSpace(value) == "" {
		*diags = append(*diags, fmt.Sprintf("%s defaulted to %q", field, fallback))
		return fallback
	}
	return value
}

func defaultInt(value, fallback int, field string, diags *[]string) int {
	if value <= 0 {
		*diags = append(*diags, fmt.Sprintf("%s defaulted to %d", field, fallback))
		return fallback
	}
	return value
}

func orEmpty(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}

func joinList(items []string) string {
	if len(items) == 0 {
		return "none specified"
	}
	return strings.Join(items, "; ")
}
