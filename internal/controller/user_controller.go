package controller

import (
	"quiz_edu_backend/internal/model"
	"quiz_edu_backend/internal/repository"
	"quiz_edu_backend/internal/service"
	"quiz_edu_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type UserController struct {
	UserService *service.UserService
}

func NewUserController(userService *service.UserService) *UserController {
	return &UserController{UserService: userService}
}

// @Summary 修改个人资料
// @Description 修改密码时需要提供旧密码
// @Tags 用户
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body service.ProfileInput true "资料"
// @Success 200 {object} util.Response{data=model.User}
// @Failure 400 {object} util.Response
// @Router /api/users/profile [put]
func (c *UserController) UpdateProfile(ctx *gin.Context) {
	var req service.ProfileInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.ValidationFailed(ctx, err)
		return
	}

	principal := service.PrincipalFromClaims(util.GetUserFromContext(ctx))
	user, err := c.UserService.UpdateProfile(ctx.Request.Context(), principal, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, user)
}

// @Summary 用户列表
// @Tags 用户
// @Produce json
// @Security BearerAuth
// @Param role query string false "角色" enums(student,admin)
// @Param disabled query bool false "是否禁用"
// @Param search query string false "姓名或邮箱关键字"
// @Param page query int false "页码"
// @Param limit query int false "每页数量"
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/users [get]
func (c *UserController) List(ctx *gin.Context) {
	filter := repository.UserFilter{
		Role:     model.UserRole(ctx.Query("role")),
		Search:   ctx.Query("search"),
		Disabled: util.ParseBool(ctx.Query("disabled")),
	}

	p := util.GetPagination(ctx)
	users, total, err := c.UserService.List(ctx.Request.Context(), filter, p)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Page(ctx, users, total, p)
}

// @Summary 用户详情
// @Tags 用户
// @Produce json
// @Security BearerAuth
// @Param id path int true "用户ID"
// @Success 200 {object} util.Response{data=model.User}
// @Failure 404 {object} util.Response
// @Router /api/users/{id} [get]
func (c *UserController) Get(ctx *gin.Context) {
	user, err := c.UserService.Get(ctx.Request.Context(), util.MustParseUint(ctx.Param("id")))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, user)
}

// @Summary 修改用户角色或状态
// @Tags 用户
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "用户ID"
// @Param body body service.AdminUserInput true "用户信息"
// @Success 200 {object} util.Response{data=model.User}
// @Failure 400 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/users/{id} [put]
func (c *UserController) Update(ctx *gin.Context) {
	var req service.AdminUserInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.ValidationFailed(ctx, err)
		return
	}

	principal := service.PrincipalFromClaims(util.GetUserFromContext(ctx))
	user, err := c.UserService.Update(ctx.Request.Context(), util.MustParseUint(ctx.Param("id")), principal, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, user)
}

// @Summary 删除用户
// @Tags 用户
// @Produce json
// @Security BearerAuth
// @Param id path int true "用户ID"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/users/{id} [delete]
func (c *UserController) Delete(ctx *gin.Context) {
	principal := service.PrincipalFromClaims(util.GetUserFromContext(ctx))
	if err := c.UserService.Delete(ctx.Request.Context(), util.MustParseUint(ctx.Param("id")), principal); err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.SuccessMessage(ctx, "user deleted", nil)
}
