package controller

import (
	"quiz_edu_backend/internal/model"
	"quiz_edu_backend/internal/repository"
	"quiz_edu_backend/internal/service"
	"quiz_edu_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type CategoryController struct {
	CategoryService *service.CategoryService
}

func NewCategoryController(categoryService *service.CategoryService) *CategoryController {
	return &CategoryController{CategoryService: categoryService}
}

// @Summary 分类列表
// @Description 学生只能看到启用的分类，管理员可通过 includeInactive 查看全部
// @Tags 分类
// @Produce json
// @Security BearerAuth
// @Param includeInactive query bool false "包含停用分类（仅管理员）"
// @Param difficulty query string false "难度" enums(easy,medium,hard)
// @Param search query string false "名称关键字"
// @Param page query int false "页码"
// @Param limit query int false "每页数量"
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/categories [get]
func (c *CategoryController) List(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)

	filter := repository.CategoryFilter{
		Difficulty: model.Difficulty(ctx.Query("difficulty")),
		Search:     ctx.Query("search"),
	}
	if include := util.ParseBool(ctx.Query("includeInactive")); include != nil && claims.IsAdmin() {
		filter.IncludeInactive = *include
	}

	p := util.GetPagination(ctx)
	categories, total, err := c.CategoryService.List(ctx.Request.Context(), filter, p)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Page(ctx, categories, total, p)
}

// @Summary 分类详情
// @Tags 分类
// @Produce json
// @Security BearerAuth
// @Param id path string true "分类ID"
// @Success 200 {object} util.Response{data=model.Category}
// @Failure 404 {object} util.Response
// @Router /api/categories/{id} [get]
func (c *CategoryController) Get(ctx *gin.Context) {
	principal := service.PrincipalFromClaims(util.GetUserFromContext(ctx))

	category, err := c.CategoryService.Get(ctx.Request.Context(), ctx.Param("id"), principal)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, category)
}

// @Summary 按名称查找分类
// @Description 名称比较不区分大小写
// @Tags 分类
// @Produce json
// @Security BearerAuth
// @Param name path string true "分类名称"
// @Success 200 {object} util.Response{data=model.Category}
// @Failure 404 {object} util.Response
// @Router /api/categories/by-name/{name} [get]
func (c *CategoryController) FindByName(ctx *gin.Context) {
	category, err := c.CategoryService.FindByName(ctx.Request.Context(), ctx.Param("name"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	if !category.IsActive && !util.GetUserFromContext(ctx).IsAdmin() {
		util.HandleError(ctx, util.ErrCategoryNotFound)
		return
	}

	util.Success(ctx, category)
}

// @Summary 创建分类
// @Tags 分类
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body service.CategoryInput true "分类信息"
// @Success 201 {object} util.Response{data=model.Category}
// @Failure 400 {object} util.Response "参数错误或名称重复"
// @Router /api/categories [post]
func (c *CategoryController) Create(ctx *gin.Context) {
	var req service.CategoryInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.ValidationFailed(ctx, err)
		return
	}

	principal := service.PrincipalFromClaims(util.GetUserFromContext(ctx))
	category, err := c.CategoryService.Create(ctx.Request.Context(), req, principal)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Created(ctx, category)
}

// @Summary 更新分类
// @Tags 分类
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "分类ID"
// @Param body body service.CategoryInput true "分类信息"
// @Success 200 {object} util.Response{data=model.Category}
// @Failure 400 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/categories/{id} [put]
func (c *CategoryController) Update(ctx *gin.Context) {
	var req service.CategoryInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.ValidationFailed(ctx, err)
		return
	}

	category, err := c.CategoryService.Update(ctx.Request.Context(), ctx.Param("id"), req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, category)
}

// @Summary 删除分类
// @Description 分类下仍有题目时拒绝删除
// @Tags 分类
// @Produce json
// @Security BearerAuth
// @Param id path string true "分类ID"
// @Success 200 {object} util.Response
// @Failure 400 {object} util.Response "分类下仍有题目"
// @Failure 404 {object} util.Response
// @Router /api/categories/{id} [delete]
func (c *CategoryController) Delete(ctx *gin.Context) {
	if err := c.CategoryService.Delete(ctx.Request.Context(), ctx.Param("id")); err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.SuccessMessage(ctx, "category deleted", nil)
}

// @Summary 启用/停用分类
// @Tags 分类
// @Produce json
// @Security BearerAuth
// @Param id path string true "分类ID"
// @Success 200 {object} util.Response{data=model.Category}
// @Router /api/categories/{id}/toggle-status [patch]
func (c *CategoryController) ToggleStatus(ctx *gin.Context) {
	category, err := c.CategoryService.ToggleStatus(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, category)
}

// @Summary 分类统计
// @Description 分类下题目按状态、难度、题型的分布
// @Tags 分类
// @Produce json
// @Security BearerAuth
// @Param id path string true "分类ID"
// @Success 200 {object} util.Response{data=service.CategoryStats}
// @Router /api/categories/{id}/stats [get]
func (c *CategoryController) Stats(ctx *gin.Context) {
	stats, err := c.CategoryService.Stats(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, stats)
}
