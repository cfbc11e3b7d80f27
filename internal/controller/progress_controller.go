package controller

import (
	"errors"
	"privacy_edu_backend/internal/service"
	"privacy_edu_backend/internal/util"
	"strconv"

	"github.com/gin-gonic/gin"
)

type ProgressController struct {
	ProgressService *service.ProgressService
}

func NewProgressController(progressService *service.ProgressService) *ProgressController {
	return &ProgressController{ProgressService: progressService}
}

// ledgerError 把台账的前置条件错误映射到 HTTP 状态码
func ledgerError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, util.ErrAlreadyEnrolled):
		util.Conflict(ctx, err.Error())
	case errors.Is(err, util.ErrNotEnrolled):
		util.Error(ctx, 403, err.Error())
	case errors.Is(err, util.ErrUnknownModule), errors.Is(err, util.ErrUnknownLesson):
		util.Error(ctx, 404, err.Error())
	case errors.Is(err, util.ErrModuleInactive):
		util.Conflict(ctx, err.Error())
	default:
		util.LogInternalError(ctx, err)
	}
}

func pathInt(ctx *gin.Context, name string) (int, bool) {
	v, err := strconv.Atoi(ctx.Param(name))
	if err != nil || v < 0 {
		util.BadRequest(ctx, "invalid "+name)
		return 0, false
	}
	return v, true
}

// Enroll godoc
// @Summary 注册选课
// @Description 为当前用户创建进度台账记录；重复注册返回 409
// @Tags 学习进度
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response
// @Failure 409 {object} util.Response "已注册"
// @Router /api/progress/enroll [post]
func (c *ProgressController) Enroll(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	if err := c.ProgressService.Enroll(user.UserID); err != nil {
		ledgerError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"enrolled": true})
}

// CompletionRequest 课时完成标记请求体
// swagger:model CompletionRequest
type CompletionRequest struct {
	Completed *bool `json:"completed" binding:"required"`
}

// RecordCompletion godoc
// @Summary 标记课时完成状态
// @Description 写入课时完成比特位并整体重算进度与连续打卡天数
// @Tags 学习进度
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param moduleId path int true "模块编号"
// @Param lessonId path int true "课时编号"
// @Param body body CompletionRequest true "完成标记"
// @Success 200 {object} util.Response{data=service.ProgressSummary}
// @Failure 403 {object} util.Response "未注册"
// @Failure 404 {object} util.Response "模块或课时不存在"
// @Failure 409 {object} util.Response "模块已停用"
// @Router /api/progress/modules/{moduleId}/lessons/{lessonId} [post]
func (c *ProgressController) RecordCompletion(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	moduleID, ok := pathInt(ctx, "moduleId")
	if !ok {
		return
	}
	lessonID, ok := pathInt(ctx, "lessonId")
	if !ok {
		return
	}

	var req CompletionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.ProgressService.RecordCompletion(user.UserID, moduleID, lessonID, *req.Completed); err != nil {
		ledgerError(ctx, err)
		return
	}

	summary, err := c.ProgressService.Summary(user.UserID)
	if err != nil {
		ledgerError(ctx, err)
		return
	}

	util.Success(ctx, summary)
}

// GetSummary godoc
// @Summary 获取进度汇总
// @Tags 学习进度
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=service.ProgressSummary}
// @Failure 403 {object} util.Response "未注册"
// @Router /api/progress [get]
func (c *ProgressController) GetSummary(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	summary, err := c.ProgressService.Summary(user.UserID)
	if err != nil {
		ledgerError(ctx, err)
		return
	}

	util.Success(ctx, summary)
}

// GetTotalProgress godoc
// @Summary 获取总进度百分比
// @Tags 学习进度
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response
// @Router /api/progress/total [get]
func (c *ProgressController) GetTotalProgress(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	total, err := c.ProgressService.TotalProgress(user.UserID)
	if err != nil {
		ledgerError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"totalProgress": total})
}

// GetStreak godoc
// @Summary 获取连续学习天数
// @Tags 学习进度
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response
// @Router /api/progress/streak [get]
func (c *ProgressController) GetStreak(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	streak, err := c.ProgressService.LearningStreak(user.UserID)
	if err != nil {
		ledgerError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"learningStreak": streak})
}

// GetCompletedLessons godoc
// @Summary 获取已完成课时总数
// @Tags 学习进度
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response
// @Router /api/progress/completed-lessons [get]
func (c *ProgressController) GetCompletedLessons(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	count, err := c.ProgressService.CompletedLessons(user.UserID)
	if err != nil {
		ledgerError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"completedLessons": count})
}

// GetModuleProgress godoc
// @Summary 获取单模块进度百分比
// @Tags 学习进度
// @Produce json
// @Security ApiKeyAuth
// @Param moduleId path int true "模块编号"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response "模块不存在"
// @Router /api/progress/modules/{moduleId} [get]
func (c *ProgressController) GetModuleProgress(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	moduleID, ok := pathInt(ctx, "moduleId")
	if !ok {
		return
	}

	progress, err := c.ProgressService.ModuleProgress(user.UserID, moduleID)
	if err != nil {
		ledgerError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"moduleId": moduleID, "progress": progress})
}

// GetLessonStatus godoc
// @Summary 查询单个课时的完成状态
// @Tags 学习进度
// @Produce json
// @Security ApiKeyAuth
// @Param moduleId path int true "模块编号"
// @Param lessonId path int true "课时编号"
// @Success 200 {object} util.Response
// @Router /api/progress/modules/{moduleId}/lessons/{lessonId} [get]
func (c *ProgressController) GetLessonStatus(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	moduleID, ok := pathInt(ctx, "moduleId")
	if !ok {
		return
	}
	lessonID, ok := pathInt(ctx, "lessonId")
	if !ok {
		return
	}

	completed, err := c.ProgressService.IsLessonCompleted(user.UserID, moduleID, lessonID)
	if err != nil {
		ledgerError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"moduleId": moduleID, "lessonId": lessonID, "completed": completed})
}

// GetEnrolled godoc
// @Summary 查询注册状态
// @Description 对任意账户都可调用，从未出现过的账户返回 false
// @Tags 学习进度
// @Produce json
// @Security ApiKeyAuth
// @Param userId path int false "目标用户ID，缺省为当前用户"
// @Success 200 {object} util.Response
// @Router /api/progress/enrolled [get]
func (c *ProgressController) GetEnrolled(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	targetID := user.UserID
	if param := ctx.Param("userId"); param != "" {
		targetID = util.MustParseUint(param)
	}

	enrolled, err := c.ProgressService.IsEnrolled(targetID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"userId": targetID, "enrolled": enrolled})
}
