package controller

import (
	"errors"
	"privacy_edu_backend/internal/service"
	"privacy_edu_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type CatalogController struct {
	CatalogService *service.CatalogService
}

func NewCatalogController(catalogService *service.CatalogService) *CatalogController {
	return &CatalogController{CatalogService: catalogService}
}

// ListModules godoc
// @Summary 获取模块目录
// @Description 返回全部模块（含停用模块，停用仅拦截写入）
// @Tags 模块目录
// @Produce json
// @Success 200 {object} util.Response{data=[]model.LearningModule}
// @Router /api/modules [get]
func (c *CatalogController) ListModules(ctx *gin.Context) {
	util.Success(ctx, c.CatalogService.List())
}

// AddModuleRequest 追加模块请求体
// swagger:model AddModuleRequest
type AddModuleRequest struct {
	Name        string `json:"name" binding:"required"`
	LessonCount int    `json:"lessonCount" binding:"required"`
}

// AddModule godoc
// @Summary 追加学习模块
// @Description 管理端操作：分配下一个连续模块编号
// @Tags 模块目录
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body AddModuleRequest true "模块信息"
// @Success 201 {object} util.Response{data=model.LearningModule}
// @Failure 400 {object} util.Response "课时数非法或目录已满"
// @Router /api/admin/modules [post]
func (c *CatalogController) AddModule(ctx *gin.Context) {
	var req AddModuleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	module, err := c.CatalogService.AddModule(req.Name, req.LessonCount)
	if err != nil {
		switch {
		case errors.Is(err, util.ErrInvalidLessonCount), errors.Is(err, util.ErrCatalogFull):
			util.BadRequest(ctx, err.Error())
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Created(ctx, module)
}

// ToggleModule godoc
// @Summary 启用/停用模块
// @Description 管理端操作：翻转 Active 标记，不影响历史进度数据
// @Tags 模块目录
// @Produce json
// @Security ApiKeyAuth
// @Param moduleId path int true "模块编号"
// @Success 200 {object} util.Response{data=model.LearningModule}
// @Failure 404 {object} util.Response "模块不存在"
// @Router /api/admin/modules/{moduleId}/toggle [patch]
func (c *CatalogController) ToggleModule(ctx *gin.Context) {
	moduleID, ok := pathInt(ctx, "moduleId")
	if !ok {
		return
	}

	module, err := c.CatalogService.ToggleModule(moduleID)
	if err != nil {
		if errors.Is(err, util.ErrUnknownModule) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, module)
}
