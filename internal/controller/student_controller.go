package controller

import (
	"errors"
	"strconv"
	"time"

	"teachtrack_backend/internal/model"
	"teachtrack_backend/internal/service"
	"teachtrack_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type StudentController struct {
	StudentService *service.StudentService
}

func NewStudentController(studentService *service.StudentService) *StudentController {
	return &StudentController{StudentService: studentService}
}

// StudentRequest 学生创建/更新请求
type StudentRequest struct {
	Name        string `json:"name" binding:"required"`
	GradeLevel  string `json:"gradeLevel"`
	TargetGrade string `json:"targetGrade"`
}

// Create godoc
// @Summary 添加学生
// @Tags 学生
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body StudentRequest true "学生信息"
// @Success 201 {object} util.Response{data=model.Student} "创建成功"
// @Router /api/students [post]
func (c *StudentController) Create(ctx *gin.Context) {
	var req StudentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	claims := util.GetUserFromContext(ctx)
	student := &model.Student{
		UserID:      claims.UserID,
		Name:        req.Name,
		GradeLevel:  req.GradeLevel,
		TargetGrade: req.TargetGrade,
	}

	if err := c.StudentService.Create(student); err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Created(ctx, student)
}

// Get godoc
// @Summary 获取学生详情
// @Tags 学生
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "学生ID"
// @Success 200 {object} util.Response{data=model.Student} "成功"
// @Failure 404 {object} util.Response "学生不存在"
// @Router /api/students/{id} [get]
func (c *StudentController) Get(ctx *gin.Context) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		util.BadRequest(ctx, "无效的学生ID")
		return
	}

	claims := util.GetUserFromContext(ctx)
	student, err := c.StudentService.Get(uint(id), claims.UserID)
	if err != nil {
		studentError(ctx, err)
		return
	}

	util.Success(ctx, student)
}

// List godoc
// @Summary 分页获取学生列表
// @Tags 学生
// @Produce  json
// @Security ApiKeyAuth
// @Param   page query int false "页码" default(1)
// @Param   limit query int false "每页数量" default(10)
// @Success 200 {object} util.Response{data=util.PageResponse} "成功"
// @Router /api/students [get]
func (c *StudentController) List(ctx *gin.Context) {
	page, limit := pageParams(ctx)

	claims := util.GetUserFromContext(ctx)
	students, total, err := c.StudentService.List(claims.UserID, page, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, util.PageResponse{List: students, Total: total, Page: page, Limit: limit})
}

// Update godoc
// @Summary 更新学生信息
// @Tags 学生
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "学生ID"
// @Param   body body StudentRequest true "学生信息"
// @Success 200 {object} util.Response{data=model.Student} "成功"
// @Failure 404 {object} util.Response "学生不存在"
// @Router /api/students/{id} [put]
func (c *StudentController) Update(ctx *gin.Context) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		util.BadRequest(ctx, "无效的学生ID")
		return
	}

	var req StudentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	claims := util.GetUserFromContext(ctx)
	student, err := c.StudentService.Update(uint(id), claims.UserID, &model.Student{
		Name:        req.Name,
		GradeLevel:  req.GradeLevel,
		TargetGrade: req.TargetGrade,
	})
	if err != nil {
		studentError(ctx, err)
		return
	}

	util.Success(ctx, student)
}

// Delete godoc
// @Summary 删除学生
// @Tags 学生
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "学生ID"
// @Success 200 {object} util.Response "成功"
// @Failure 404 {object} util.Response "学生不存在"
// @Router /api/students/{id} [delete]
func (c *StudentController) Delete(ctx *gin.Context) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		util.BadRequest(ctx, "无效的学生ID")
		return
	}

	claims := util.GetUserFromContext(ctx)
	if err := c.StudentService.Delete(ctx.Request.Context(), uint(id), claims.UserID); err != nil {
		studentError(ctx, err)
		return
	}

	util.Success(ctx, nil)
}

// ScoreRequest 成绩录入请求
type ScoreRequest struct {
	AssessmentID string    `json:"assessmentId"`
	Subject      string    `json:"subject" binding:"required"`
	Percentage   float64   `json:"percentage" binding:"required,min=0,max=100"`
	RecordedAt   time.Time `json:"recordedAt"`
}

// RecordScore godoc
// @Summary 录入学生成绩
// @Description 录入一次百分比成绩，学生表现报告缓存随之失效
// @Tags 学生
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "学生ID"
// @Param   body body ScoreRequest true "成绩信息"
// @Success 201 {object} util.Response{data=model.StudentScore} "录入成功"
// @Failure 404 {object} util.Response "学生不存在"
// @Router /api/students/{id}/scores [post]
func (c *StudentController) RecordScore(ctx *gin.Context) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		util.BadRequest(ctx, "无效的学生ID")
		return
	}

	var req ScoreRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	claims := util.GetUserFromContext(ctx)
	score := &model.StudentScore{
		StudentID:    uint(id),
		AssessmentID: req.AssessmentID,
		Subject:      req.Subject,
		Percentage:   req.Percentage,
		RecordedAt:   req.RecordedAt,
	}

	if err := c.StudentService.RecordScore(ctx.Request.Context(), claims.UserID, score); err != nil {
		studentError(ctx, err)
		return
	}

	util.Created(ctx, score)
}

// ListScores godoc
// @Summary 获取学生成绩列表
// @Tags 学生
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "学生ID"
// @Success 200 {object} util.Response{data=[]model.StudentScore} "成功"
// @Failure 404 {object} util.Response "学生不存在"
// @Router /api/students/{id}/scores [get]
func (c *StudentController) ListScores(ctx *gin.Context) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		util.BadRequest(ctx, "无效的学生ID")
		return
	}

	claims := util.GetUserFromContext(ctx)
	scores, err := c.StudentService.ListScores(uint(id), claims.UserID)
	if err != nil {
		studentError(ctx, err)
		return
	}

	util.Success(ctx, scores)
}

// DeleteScore godoc
// @Summary 删除一条成绩记录
// @Tags 学生
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "学生ID"
// @Param   scoreId path int true "成绩ID"
// @Success 200 {object} util.Response "成功"
// @Router /api/students/{id}/scores/{scoreId} [delete]
func (c *StudentController) DeleteScore(ctx *gin.Context) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		util.BadRequest(ctx, "无效的学生ID")
		return
	}
	scoreID, err := strconv.ParseUint(ctx.Param("scoreId"), 10, 64)
	if err != nil {
		util.BadRequest(ctx, "无效的成绩ID")
		return
	}

	claims := util.GetUserFromContext(ctx)
	if err := c.StudentService.DeleteScore(ctx.Request.Context(), uint(id), uint(scoreID), claims.UserID); err != nil {
		studentError(ctx, err)
		return
	}

	util.Success(ctx, nil)
}

// GetPerformance godoc
// @Summary 获取学生表现报告
// @Description 本地确定性分类：总体均分、趋势、风险等级、强弱学科
// @Tags 学生
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "学生ID"
// @Success 200 {object} util.Response{data=service.PerformanceReport} "成功"
// @Failure 404 {object} util.Response "学生不存在"
// @Router /api/students/{id}/performance [get]
func (c *StudentController) GetPerformance(ctx *gin.Context) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		util.BadRequest(ctx, "无效的学生ID")
		return
	}

	claims := util.GetUserFromContext(ctx)
	report, err := c.StudentService.GetPerformanceReport(ctx.Request.Context(), uint(id), claims.UserID)
	if err != nil {
		studentError(ctx, err)
		return
	}

	util.Success(ctx, report)
}

// ClassReportRequest 班级表现报告请求
type ClassReportRequest struct {
	StudentIDs []uint `json:"studentIds" binding:"required,min=1"`
}

// GetClassPerformance godoc
// @Summary 批量获取学生表现报告
// @Description 对一组学生逐个分类，用于分组教学前的班级概览
// @Tags 学生
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body ClassReportRequest true "学生ID列表"
// @Success 200 {object} util.Response{data=[]service.PerformanceReport} "成功"
// @Failure 404 {object} util.Response "学生不存在"
// @Router /api/students/performance [post]
func (c *StudentController) GetClassPerformance(ctx *gin.Context) {
	var req ClassReportRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	claims := util.GetUserFromContext(ctx)
	reports, err := c.StudentService.GetClassReports(ctx.Request.Context(), claims.UserID, req.StudentIDs)
	if err != nil {
		studentError(ctx, err)
		return
	}

	util.Success(ctx, reports)
}

func studentError(ctx *gin.Context, err error) {
	if errors.Is(err, util.ErrStudentNotFound) {
		util.NotFound(ctx)
		return
	}
	util.LogInternalError(ctx, err)
}
