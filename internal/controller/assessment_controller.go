package controller

import (
	"errors"
	"strconv"

	"teachtrack_backend/internal/model"
	"teachtrack_backend/internal/service"
	"teachtrack_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AssessmentController struct {
	AssessmentService *service.AssessmentService
}

func NewAssessmentController(assessmentService *service.AssessmentService) *AssessmentController {
	return &AssessmentController{AssessmentService: assessmentService}
}

// Get godoc
// @Summary 获取测评详情
// @Description 返回测评及其题目列表
// @Tags 测评
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "测评ID"
// @Success 200 {object} util.Response{data=model.Assessment} "成功"
// @Failure 404 {object} util.Response "测评不存在"
// @Router /api/assessments/{id} [get]
func (c *AssessmentController) Get(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	a, err := c.AssessmentService.Get(ctx.Param("id"), claims.UserID)
	if err != nil {
		assessmentError(ctx, err)
		return
	}
	util.Success(ctx, a)
}

// ListByModule godoc
// @Summary 分页获取单元下的测评
// @Tags 测评
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "单元ID"
// @Param   page query int false "页码" default(1)
// @Param   limit query int false "每页数量" default(10)
// @Success 200 {object} util.Response{data=util.PageResponse} "成功"
// @Router /api/modules/{id}/assessments [get]
func (c *AssessmentController) ListByModule(ctx *gin.Context) {
	moduleID, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		util.BadRequest(ctx, "无效的单元ID")
		return
	}
	page, limit := pageParams(ctx)

	claims := util.GetUserFromContext(ctx)
	assessments, total, err := c.AssessmentService.ListByModule(uint(moduleID), claims.UserID, page, limit)
	if err != nil {
		assessmentError(ctx, err)
		return
	}

	util.Success(ctx, util.PageResponse{List: assessments, Total: total, Page: page, Limit: limit})
}

// AssessmentUpdateRequest 测评更新请求
type AssessmentUpdateRequest struct {
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Type        string                `json:"type"`
	Difficulty  string                `json:"difficulty"`
	Thresholds  model.GradeThresholds `json:"thresholds"`
}

// Update godoc
// @Summary 更新测评
// @Tags 测评
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "测评ID"
// @Param   body body AssessmentUpdateRequest true "测评信息"
// @Success 200 {object} util.Response{data=model.Assessment} "成功"
// @Failure 404 {object} util.Response "测评不存在"
// @Router /api/assessments/{id} [put]
func (c *AssessmentController) Update(ctx *gin.Context) {
	var req AssessmentUpdateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	claims := util.GetUserFromContext(ctx)
	updates := &model.Assessment{
		Title:       req.Title,
		Description: req.Description,
		Type:        model.AssessmentType(req.Type),
		Difficulty:  req.Difficulty,
		Thresholds:  req.Thresholds,
	}

	a, err := c.AssessmentService.Update(ctx.Param("id"), claims.UserID, updates)
	if err != nil {
		assessmentError(ctx, err)
		return
	}

	util.Success(ctx, a)
}

// Delete godoc
// @Summary 删除测评
// @Tags 测评
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "测评ID"
// @Success 200 {object} util.Response "成功"
// @Failure 404 {object} util.Response "测评不存在"
// @Router /api/assessments/{id} [delete]
func (c *AssessmentController) Delete(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if err := c.AssessmentService.Delete(ctx.Param("id"), claims.UserID); err != nil {
		assessmentError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// QuestionUpdateRequest 题目更新请求
type QuestionUpdateRequest struct {
	Prompt      string   `json:"prompt"`
	Options     []string `json:"options"`
	Answer      string   `json:"answer"`
	Explanation string   `json:"explanation"`
	Points      int      `json:"points"`
}

// UpdateQuestion godoc
// @Summary 更新测评题目
// @Description 修改题目后测评总分与预计时长会自动重算
// @Tags 测评
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "测评ID"
// @Param   questionId path string true "题目ID"
// @Param   body body QuestionUpdateRequest true "题目信息"
// @Success 200 {object} util.Response{data=model.Assessment} "成功"
// @Failure 404 {object} util.Response "测评或题目不存在"
// @Router /api/assessments/{id}/questions/{questionId} [put]
func (c *AssessmentController) UpdateQuestion(ctx *gin.Context) {
	var req QuestionUpdateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	claims := util.GetUserFromContext(ctx)
	q := &model.AssessmentQuestion{
		Prompt:      req.Prompt,
		Options:     model.StringList(req.Options),
		Answer:      req.Answer,
		Explanation: req.Explanation,
		Points:      req.Points,
	}
	q.ID = ctx.Param("questionId")

	a, err := c.AssessmentService.UpdateQuestion(ctx.Param("id"), claims.UserID, q)
	if err != nil {
		assessmentError(ctx, err)
		return
	}

	util.Success(ctx, a)
}

// DeleteQuestion godoc
// @Summary 删除测评题目
// @Description 删除题目后测评总分与预计时长会自动重算
// @Tags 测评
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "测评ID"
// @Param   questionId path string true "题目ID"
// @Success 200 {object} util.Response{data=model.Assessment} "成功"
// @Failure 404 {object} util.Response "测评或题目不存在"
// @Router /api/assessments/{id}/questions/{questionId} [delete]
func (c *AssessmentController) DeleteQuestion(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	a, err := c.AssessmentService.DeleteQuestion(ctx.Param("id"), ctx.Param("questionId"), claims.UserID)
	if err != nil {
		assessmentError(ctx, err)
		return
	}
	util.Success(ctx, a)
}

func assessmentError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, util.ErrAssessmentNotFound), errors.Is(err, util.ErrModuleNotFound):
		util.NotFound(ctx)
	case errors.Is(err, util.ErrPermissionDenied):
		util.Forbidden(ctx)
	default:
		util.LogInternalError(ctx, err)
	}
}
