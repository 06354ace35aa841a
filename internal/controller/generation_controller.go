package controller

import (
	"errors"

	"teachtrack_backend/internal/model"
	"teachtrack_backend/internal/service"
	"teachtrack_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// GenerationController AI生成入口。目标与学段一律取自单元记录，
// 不信任客户端提交的objectives。
type GenerationController struct {
	ModuleService      *service.ModuleService
	LessonService      *service.LessonService
	AssessmentGen      *service.AssessmentGenerator
	LessonGen          *service.LessonGenerator
	ComprehensiveGen   *service.ComprehensiveGenerator
	MultimediaGen      *service.MultimediaGenerator
	DifferentiationGen *service.DifferentiationGenerator
}

func NewGenerationController(
	moduleService *service.ModuleService,
	lessonService *service.LessonService,
	assessmentGen *service.AssessmentGenerator,
	lessonGen *service.LessonGenerator,
	comprehensiveGen *service.ComprehensiveGenerator,
	multimediaGen *service.MultimediaGenerator,
	differentiationGen *service.DifferentiationGenerator,
) *GenerationController {
	return &GenerationController{
		ModuleService:      moduleService,
		LessonService:      lessonService,
		AssessmentGen:      assessmentGen,
		LessonGen:          lessonGen,
		ComprehensiveGen:   comprehensiveGen,
		MultimediaGen:      multimediaGen,
		DifferentiationGen: differentiationGen,
	}
}

// GenerateAssessmentRequest 测评生成请求
type GenerateAssessmentRequest struct {
	ModuleID      uint     `json:"moduleId" binding:"required"`
	Title         string   `json:"title"`
	Topics        []string `json:"topics"`
	Type          string   `json:"type"`
	Difficulty    string   `json:"difficulty"`
	QuestionCount int      `json:"questionCount"`
	QuestionTypes []string `json:"questionTypes"`
	Duration      int      `json:"duration"`
}

// GenerateAssessment godoc
// @Summary AI生成测评
// @Description 根据单元目标生成测评及题目并入库
// @Tags AI生成
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body GenerateAssessmentRequest true "生成参数"
// @Success 201 {object} util.Response{data=object} "生成成功"
// @Failure 404 {object} util.Response "单元不存在"
// @Failure 502 {object} util.Response "AI生成失败"
// @Failure 503 {object} util.Response "AI功能未配置"
// @Router /api/generate/assessment [post]
func (c *GenerationController) GenerateAssessment(ctx *gin.Context) {
	var req GenerateAssessmentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	claims := util.GetUserFromContext(ctx)
	m, err := c.ModuleService.Get(req.ModuleID, claims.UserID)
	if err != nil {
		if errors.Is(err, util.ErrModuleNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}

	topics := req.Topics
	if len(topics) == 0 {
		topics = m.Topics
	}

	assessment, diags, err := c.AssessmentGen.Generate(ctx.Request.Context(), service.AssessmentGenerationRequest{
		ModuleID:         m.ID,
		Title:            req.Title,
		Topics:           topics,
		ModuleObjectives: m.Objectives,
		Curriculum:       m.Curriculum,
		GradeLevels:      m.GradeLevels,
		Type:             model.AssessmentType(req.Type),
		Difficulty:       req.Difficulty,
		QuestionCount:    req.QuestionCount,
		QuestionTypes:    req.QuestionTypes,
		Duration:         req.Duration,
	})
	if err != nil {
		util.GenerationFailed(ctx, err)
		return
	}

	util.Created(ctx, gin.H{"assessment": assessment, "diagnostics": diags})
}

// GenerateLessonRequest 课程生成请求
type GenerateLessonRequest struct {
	ModuleID      uint   `json:"moduleId" binding:"required"`
	Topic         string `json:"topic"`
	LessonType    string `json:"lessonType"`
	TeachingStyle string `json:"teachingStyle"`
	Duration      int    `json:"duration"`
	Difficulty    string `json:"difficulty"`
}

// GenerateLesson godoc
// @Summary AI生成课程计划
// @Description 根据单元目标生成课程计划及活动并入库
// @Tags AI生成
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body GenerateLessonRequest true "生成参数"
// @Success 201 {object} util.Response{data=object} "生成成功"
// @Failure 404 {object} util.Response "单元不存在"
// @Failure 502 {object} util.Response "AI生成失败"
// @Failure 503 {object} util.Response "AI功能未配置"
// @Router /api/generate/lesson [post]
func (c *GenerationController) GenerateLesson(ctx *gin.Context) {
	req, ok := c.bindLessonRequest(ctx)
	if !ok {
		return
	}

	lesson, diags, err := c.LessonGen.Generate(ctx.Request.Context(), req)
	if err != nil {
		util.GenerationFailed(ctx, err)
		return
	}

	util.Created(ctx, gin.H{"lesson": lesson, "diagnostics": diags})
}

// GenerateComprehensiveLesson godoc
// @Summary AI生成综合课程
// @Description 顺序生成核心内容、教师指引、多媒体建议、差异化活动与评分量表，全部成功后一次入库；任一步失败则整体失败
// @Tags AI生成
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body GenerateLessonRequest true "生成参数"
// @Success 201 {object} util.Response{data=object} "生成成功"
// @Failure 404 {object} util.Response "单元不存在"
// @Failure 502 {object} util.Response "AI生成失败"
// @Failure 503 {object} util.Response "AI功能未配置"
// @Router /api/generate/lesson/comprehensive [post]
func (c *GenerationController) GenerateComprehensiveLesson(ctx *gin.Context) {
	req, ok := c.bindLessonRequest(ctx)
	if !ok {
		return
	}

	lesson, diags, err := c.ComprehensiveGen.Generate(ctx.Request.Context(), req)
	if err != nil {
		util.GenerationFailed(ctx, err)
		return
	}

	util.Created(ctx, gin.H{"lesson": lesson, "diagnostics": diags})
}

func (c *GenerationController) bindLessonRequest(ctx *gin.Context) (service.LessonGenerationRequest, bool) {
	var req GenerateLessonRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return service.LessonGenerationRequest{}, false
	}

	claims := util.GetUserFromContext(ctx)
	m, err := c.ModuleService.Get(req.ModuleID, claims.UserID)
	if err != nil {
		if errors.Is(err, util.ErrModuleNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return service.LessonGenerationRequest{}, false
	}

	return service.LessonGenerationRequest{
		ModuleID:         m.ID,
		Topic:            req.Topic,
		ModuleObjectives: m.Objectives,
		Curriculum:       m.Curriculum,
		GradeLevels:      m.GradeLevels,
		LessonType:       model.LessonType(req.LessonType),
		TeachingStyle:    req.TeachingStyle,
		Duration:         req.Duration,
		Difficulty:       req.Difficulty,
	}, true
}

// GenerateSectionContentRequest 活动内容生成请求
type GenerateSectionContentRequest struct {
	LessonID   string `json:"lessonId" binding:"required"`
	ActivityID string `json:"activityId" binding:"required"`
	ModuleID   uint   `json:"moduleId" binding:"required"`
}

// GenerateSectionContent godoc
// @Summary AI生成单个活动的教学内容
// @Tags AI生成
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body GenerateSectionContentRequest true "生成参数"
// @Success 200 {object} util.Response{data=object} "生成成功"
// @Failure 404 {object} util.Response "课程或活动不存在"
// @Failure 502 {object} util.Response "AI生成失败"
// @Failure 503 {object} util.Response "AI功能未配置"
// @Router /api/generate/section-content [post]
func (c *GenerationController) GenerateSectionContent(ctx *gin.Context) {
	var req GenerateSectionContentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	claims := util.GetUserFromContext(ctx)
	m, err := c.ModuleService.Get(req.ModuleID, claims.UserID)
	if err != nil {
		if errors.Is(err, util.ErrModuleNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}

	content, diags, err := c.LessonGen.GenerateSectionContent(ctx.Request.Context(), service.SectionContentRequest{
		LessonID:         req.LessonID,
		ActivityID:       req.ActivityID,
		ModuleID:         m.ID,
		ModuleObjectives: m.Objectives,
		Curriculum:       m.Curriculum,
		GradeLevels:      m.GradeLevels,
	})
	if err != nil {
		if errors.Is(err, util.ErrLessonNotFound) {
			util.NotFound(ctx)
			return
		}
		util.GenerationFailed(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"content": content, "diagnostics": diags})
}

// GenerateMultimediaRequest 多媒体建议生成请求
type GenerateMultimediaRequest struct {
	LessonID string `json:"lessonId" binding:"required"`
	ModuleID uint   `json:"moduleId" binding:"required"`
	Topic    string `json:"topic"`
	Count    int    `json:"count"`
}

// GenerateMultimedia godoc
// @Summary AI生成多媒体教学资源建议
// @Tags AI生成
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body GenerateMultimediaRequest true "生成参数"
// @Success 200 {object} util.Response{data=object} "生成成功"
// @Failure 404 {object} util.Response "课程不存在"
// @Failure 502 {object} util.Response "AI生成失败"
// @Failure 503 {object} util.Response "AI功能未配置"
// @Router /api/generate/multimedia [post]
func (c *GenerationController) GenerateMultimedia(ctx *gin.Context) {
	var req GenerateMultimediaRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	claims := util.GetUserFromContext(ctx)
	m, err := c.ModuleService.Get(req.ModuleID, claims.UserID)
	if err != nil {
		if errors.Is(err, util.ErrModuleNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}

	suggestions, diags, err := c.MultimediaGen.Generate(ctx.Request.Context(), service.MultimediaRequest{
		LessonID:    req.LessonID,
		ModuleID:    m.ID,
		Topic:       req.Topic,
		Curriculum:  m.Curriculum,
		GradeLevels: m.GradeLevels,
		Count:       req.Count,
	})
	if err != nil {
		if errors.Is(err, util.ErrLessonNotFound) {
			util.NotFound(ctx)
			return
		}
		util.GenerationFailed(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"suggestions": suggestions, "diagnostics": diags})
}

// GenerateDifferentiatedRequest 差异化方案生成请求
type GenerateDifferentiatedRequest struct {
	LessonID   string `json:"lessonId" binding:"required"`
	ModuleID   uint   `json:"moduleId" binding:"required"`
	StudentIDs []uint `json:"studentIds" binding:"required,min=1"`
}

// GenerateDifferentiated godoc
// @Summary AI生成差异化教学方案
// @Description 先对所选学生做本地表现分类，再按支持/核心/拓展三层生成方案
// @Tags AI生成
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body GenerateDifferentiatedRequest true "生成参数"
// @Success 200 {object} util.Response{data=object} "生成成功"
// @Failure 404 {object} util.Response "课程不存在"
// @Failure 502 {object} util.Response "AI生成失败"
// @Failure 503 {object} util.Response "AI功能未配置"
// @Router /api/generate/differentiated [post]
func (c *GenerationController) GenerateDifferentiated(ctx *gin.Context) {
	var req GenerateDifferentiatedRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	claims := util.GetUserFromContext(ctx)
	m, err := c.ModuleService.Get(req.ModuleID, claims.UserID)
	if err != nil {
		if errors.Is(err, util.ErrModuleNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}

	plan, diags, err := c.DifferentiationGen.Generate(ctx.Request.Context(), service.DifferentiatedLessonRequest{
		LessonID:         req.LessonID,
		ModuleID:         m.ID,
		UserID:           claims.UserID,
		StudentIDs:       req.StudentIDs,
		ModuleObjectives: m.Objectives,
		Curriculum:       m.Curriculum,
		GradeLevels:      m.GradeLevels,
	})
	if err != nil {
		if errors.Is(err, util.ErrLessonNotFound) || errors.Is(err, util.ErrStudentNotFound) {
			util.NotFound(ctx)
			return
		}
		util.GenerationFailed(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"plan": plan, "diagnostics": diags})
}
