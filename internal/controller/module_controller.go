package controller

import (
	"errors"
	"strconv"

	"teachtrack_backend/internal/model"
	"teachtrack_backend/internal/service"
	"teachtrack_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ModuleController struct {
	ModuleService *service.ModuleService
}

func NewModuleController(moduleService *service.ModuleService) *ModuleController {
	return &ModuleController{ModuleService: moduleService}
}

// ModuleRequest 教学单元创建/更新请求
type ModuleRequest struct {
	Title       string   `json:"title" binding:"required"`
	Description string   `json:"description"`
	Curriculum  string   `json:"curriculum"`
	GradeLevels []string `json:"gradeLevels"`
	Topics      []string `json:"topics"`
	Objectives  []string `json:"objectives"`
}

// Create godoc
// @Summary 创建教学单元
// @Description 创建一个新的教学单元
// @Tags 教学单元
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body ModuleRequest true "单元信息"
// @Success 201 {object} util.Response{data=model.Module} "创建成功"
// @Failure 400 {object} util.Response "请求参数错误"
// @Router /api/modules [post]
func (c *ModuleController) Create(ctx *gin.Context) {
	var req ModuleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	claims := util.GetUserFromContext(ctx)
	m := &model.Module{
		UserID:      claims.UserID,
		Title:       req.Title,
		Description: req.Description,
		Curriculum:  req.Curriculum,
		GradeLevels: model.StringList(req.GradeLevels),
		Topics:      model.StringList(req.Topics),
		Objectives:  model.StringList(req.Objectives),
	}

	if err := c.ModuleService.Create(m); err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Created(ctx, m)
}

// Get godoc
// @Summary 获取教学单元详情
// @Tags 教学单元
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "单元ID"
// @Success 200 {object} util.Response{data=model.Module} "成功"
// @Failure 404 {object} util.Response "单元不存在"
// @Router /api/modules/{id} [get]
func (c *ModuleController) Get(ctx *gin.Context) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		util.BadRequest(ctx, "无效的单元ID")
		return
	}

	claims := util.GetUserFromContext(ctx)
	m, err := c.ModuleService.Get(uint(id), claims.UserID)
	if err != nil {
		if errors.Is(err, util.ErrModuleNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, m)
}

// List godoc
// @Summary 分页获取当前用户的教学单元
// @Tags 教学单元
// @Produce  json
// @Security ApiKeyAuth
// @Param   page query int false "页码" default(1)
// @Param   limit query int false "每页数量" default(10)
// @Success 200 {object} util.Response{data=util.PageResponse} "成功"
// @Router /api/modules [get]
func (c *ModuleController) List(ctx *gin.Context) {
	page, limit := pageParams(ctx)

	claims := util.GetUserFromContext(ctx)
	modules, total, err := c.ModuleService.List(claims.UserID, page, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, util.PageResponse{List: modules, Total: total, Page: page, Limit: limit})
}

// Update godoc
// @Summary 更新教学单元
// @Tags 教学单元
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "单元ID"
// @Param   body body ModuleRequest true "单元信息"
// @Success 200 {object} util.Response{data=model.Module} "成功"
// @Failure 404 {object} util.Response "单元不存在"
// @Router /api/modules/{id} [put]
func (c *ModuleController) Update(ctx *gin.Context) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		util.BadRequest(ctx, "无效的单元ID")
		return
	}

	var req ModuleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	claims := util.GetUserFromContext(ctx)
	updates := &model.Module{
		Title:       req.Title,
		Description: req.Description,
		Curriculum:  req.Curriculum,
		GradeLevels: model.StringList(req.GradeLevels),
		Topics:      model.StringList(req.Topics),
		Objectives:  model.StringList(req.Objectives),
	}

	m, err := c.ModuleService.Update(uint(id), claims.UserID, updates)
	if err != nil {
		if errors.Is(err, util.ErrModuleNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, m)
}

// Delete godoc
// @Summary 删除教学单元
// @Description 删除单元及其下所有课程与测评
// @Tags 教学单元
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "单元ID"
// @Success 200 {object} util.Response "成功"
// @Failure 404 {object} util.Response "单元不存在"
// @Router /api/modules/{id} [delete]
func (c *ModuleController) Delete(ctx *gin.Context) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		util.BadRequest(ctx, "无效的单元ID")
		return
	}

	claims := util.GetUserFromContext(ctx)
	if err := c.ModuleService.Delete(uint(id), claims.UserID); err != nil {
		if errors.Is(err, util.ErrModuleNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, nil)
}

func pageParams(ctx *gin.Context) (page, limit int) {
	page, _ = strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ = strconv.Atoi(ctx.DefaultQuery("limit", "10"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}
	return page, limit
}
