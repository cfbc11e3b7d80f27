package controller

import (
	"privacy_edu_backend/internal/repository"
	"privacy_edu_backend/internal/service"
	"privacy_edu_backend/internal/util"
	"strconv"

	"github.com/gin-gonic/gin"
)

type AdminController struct {
	UserService *service.UserService
	EventRepo   *repository.EventRepository
}

func NewAdminController(userService *service.UserService, eventRepo *repository.EventRepository) *AdminController {
	return &AdminController{
		UserService: userService,
		EventRepo:   eventRepo,
	}
}

// GetUsers godoc
// @Summary 获取用户列表
// @Tags 管理
// @Produce json
// @Security ApiKeyAuth
// @Param page query int false "页码"
// @Param limit query int false "每页条数"
// @Param search query string false "按姓名/邮箱/钱包地址筛选"
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/admin/users [get]
func (c *AdminController) GetUsers(ctx *gin.Context) {
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	users, total, err := c.UserService.GetUsers(page, limit, ctx.Query("search"))
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, util.PageResponse{
		List:  users,
		Total: total,
		Page:  page,
		Limit: limit,
	})
}

// GetEvents godoc
// @Summary 查询进度事件审计记录
// @Tags 管理
// @Produce json
// @Security ApiKeyAuth
// @Param userId query int false "按用户筛选"
// @Param page query int false "页码"
// @Param limit query int false "每页条数"
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/admin/events [get]
func (c *AdminController) GetEvents(ctx *gin.Context) {
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "50"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}

	userID := util.MustParseUint(ctx.Query("userId"))

	events, total, err := c.EventRepo.List(userID, page, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, util.PageResponse{
		List:  events,
		Total: total,
		Page:  page,
		Limit: limit,
	})
}
