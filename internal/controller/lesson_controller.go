package controller

import (
	"errors"
	"strconv"

	"teachtrack_backend/internal/model"
	"teachtrack_backend/internal/service"
	"teachtrack_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type LessonController struct {
	LessonService *service.LessonService
}

func NewLessonController(lessonService *service.LessonService) *LessonController {
	return &LessonController{LessonService: lessonService}
}

// Get godoc
// @Summary 获取课程计划详情
// @Description 返回课程计划及其活动列表
// @Tags 课程
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "课程ID"
// @Success 200 {object} util.Response{data=model.LessonPlan} "成功"
// @Failure 404 {object} util.Response "课程不存在"
// @Router /api/lessons/{id} [get]
func (c *LessonController) Get(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	lesson, err := c.LessonService.Get(ctx.Param("id"), claims.UserID)
	if err != nil {
		lessonError(ctx, err)
		return
	}
	util.Success(ctx, lesson)
}

// ListByModule godoc
// @Summary 分页获取单元下的课程
// @Tags 课程
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "单元ID"
// @Param   page query int false "页码" default(1)
// @Param   limit query int false "每页数量" default(10)
// @Success 200 {object} util.Response{data=util.PageResponse} "成功"
// @Router /api/modules/{id}/lessons [get]
func (c *LessonController) ListByModule(ctx *gin.Context) {
	moduleID, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		util.BadRequest(ctx, "无效的单元ID")
		return
	}
	page, limit := pageParams(ctx)

	claims := util.GetUserFromContext(ctx)
	lessons, total, err := c.LessonService.ListByModule(uint(moduleID), claims.UserID, page, limit)
	if err != nil {
		lessonError(ctx, err)
		return
	}

	util.Success(ctx, util.PageResponse{List: lessons, Total: total, Page: page, Limit: limit})
}

// LessonUpdateRequest 课程更新请求
type LessonUpdateRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	LessonType  string   `json:"lessonType"`
	Duration    int      `json:"duration"`
	Difficulty  string   `json:"difficulty"`
	Objectives  []string `json:"objectives"`
	Resources   []string `json:"resources"`
	Equipment   []string `json:"equipment"`
	SafetyNotes string   `json:"safetyNotes"`
}

// Update godoc
// @Summary 更新课程计划
// @Tags 课程
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "课程ID"
// @Param   body body LessonUpdateRequest true "课程信息"
// @Success 200 {object} util.Response{data=model.LessonPlan} "成功"
// @Failure 404 {object} util.Response "课程不存在"
// @Router /api/lessons/{id} [put]
func (c *LessonController) Update(ctx *gin.Context) {
	var req LessonUpdateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	claims := util.GetUserFromContext(ctx)
	updates := &model.LessonPlan{
		Title:       req.Title,
		Description: req.Description,
		LessonType:  model.LessonType(req.LessonType),
		Duration:    req.Duration,
		Difficulty:  req.Difficulty,
		Objectives:  model.StringList(req.Objectives),
		Resources:   model.StringList(req.Resources),
		Equipment:   model.StringList(req.Equipment),
		SafetyNotes: req.SafetyNotes,
	}

	lesson, err := c.LessonService.Update(ctx.Param("id"), claims.UserID, updates)
	if err != nil {
		lessonError(ctx, err)
		return
	}

	util.Success(ctx, lesson)
}

// Delete godoc
// @Summary 删除课程计划
// @Tags 课程
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "课程ID"
// @Success 200 {object} util.Response "成功"
// @Failure 404 {object} util.Response "课程不存在"
// @Router /api/lessons/{id} [delete]
func (c *LessonController) Delete(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if err := c.LessonService.Delete(ctx.Param("id"), claims.UserID); err != nil {
		lessonError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// UploadResource godoc
// @Summary 上传课程资源文件
// @Description 上传课件、图片或视频，视频会探测时长
// @Tags 课程
// @Accept  multipart/form-data
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "课程ID"
// @Param   file formData file true "资源文件"
// @Success 201 {object} util.Response{data=model.LessonResourceFile} "上传成功"
// @Failure 400 {object} util.Response "请求参数错误"
// @Router /api/lessons/{id}/resources [post]
func (c *LessonController) UploadResource(ctx *gin.Context) {
	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "缺少上传文件")
		return
	}

	claims := util.GetUserFromContext(ctx)
	resource, err := c.LessonService.UploadResource(ctx.Request.Context(), ctx.Param("id"), claims.UserID, fileHeader)
	if err != nil {
		lessonError(ctx, err)
		return
	}

	util.Created(ctx, resource)
}

// ListResources godoc
// @Summary 获取课程资源文件列表
// @Tags 课程
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "课程ID"
// @Success 200 {object} util.Response{data=[]model.LessonResourceFile} "成功"
// @Router /api/lessons/{id}/resources [get]
func (c *LessonController) ListResources(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	resources, err := c.LessonService.ListResources(ctx.Param("id"), claims.UserID)
	if err != nil {
		lessonError(ctx, err)
		return
	}
	util.Success(ctx, resources)
}

// DeleteResource godoc
// @Summary 删除课程资源文件
// @Tags 课程
// @Produce  json
// @Security ApiKeyAuth
// @Param   resourceId path string true "资源ID"
// @Success 200 {object} util.Response "成功"
// @Router /api/lessons/resources/{resourceId} [delete]
func (c *LessonController) DeleteResource(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if err := c.LessonService.DeleteResource(ctx.Request.Context(), ctx.Param("resourceId"), claims.UserID); err != nil {
		lessonError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

func lessonError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, util.ErrLessonNotFound), errors.Is(err, util.ErrModuleNotFound):
		util.NotFound(ctx)
	case errors.Is(err, util.ErrPermissionDenied):
		util.Forbidden(ctx)
	default:
		util.LogInternalError(ctx, err)
	}
}
