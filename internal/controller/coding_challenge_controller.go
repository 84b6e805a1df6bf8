package controller

import (
	"quiz_edu_backend/internal/model"
	"quiz_edu_backend/internal/repository"
	"quiz_edu_backend/internal/service"
	"quiz_edu_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type CodingChallengeController struct {
	ChallengeService *service.CodingChallengeService
}

func NewCodingChallengeController(challengeService *service.CodingChallengeService) *CodingChallengeController {
	return &CodingChallengeController{ChallengeService: challengeService}
}

// @Summary 编程挑战列表
// @Description 学生视图不含参考答案和隐藏用例
// @Tags 编程挑战
// @Produce json
// @Security BearerAuth
// @Param difficulty query string false "难度" enums(easy,medium,hard)
// @Param search query string false "标题关键字"
// @Param includeInactive query bool false "包含停用挑战（仅管理员）"
// @Param page query int false "页码"
// @Param limit query int false "每页数量"
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/coding-challenges [get]
func (c *CodingChallengeController) List(ctx *gin.Context) {
	principal := service.PrincipalFromClaims(util.GetUserFromContext(ctx))

	filter := repository.ChallengeFilter{
		Difficulty: model.Difficulty(ctx.Query("difficulty")),
		Search:     ctx.Query("search"),
	}
	if include := util.ParseBool(ctx.Query("includeInactive")); include != nil {
		filter.IncludeInactive = *include
	}

	p := util.GetPagination(ctx)
	challenges, total, err := c.ChallengeService.List(ctx.Request.Context(), filter, p, principal)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Page(ctx, challenges, total, p)
}

// @Summary 编程挑战详情
// @Tags 编程挑战
// @Produce json
// @Security BearerAuth
// @Param id path string true "挑战ID"
// @Success 200 {object} util.Response{data=model.CodingChallenge}
// @Failure 404 {object} util.Response
// @Router /api/coding-challenges/{id} [get]
func (c *CodingChallengeController) Get(ctx *gin.Context) {
	principal := service.PrincipalFromClaims(util.GetUserFromContext(ctx))

	challenge, err := c.ChallengeService.Get(ctx.Request.Context(), ctx.Param("id"), principal)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, challenge)
}

// @Summary 创建编程挑战
// @Tags 编程挑战
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body service.ChallengeInput true "挑战信息"
// @Success 201 {object} util.Response{data=model.CodingChallenge}
// @Failure 400 {object} util.Response
// @Router /api/coding-challenges [post]
func (c *CodingChallengeController) Create(ctx *gin.Context) {
	var req service.ChallengeInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.ValidationFailed(ctx, err)
		return
	}

	principal := service.PrincipalFromClaims(util.GetUserFromContext(ctx))
	challenge, err := c.ChallengeService.Create(ctx.Request.Context(), req, principal)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Created(ctx, challenge)
}

// @Summary 更新编程挑战
// @Tags 编程挑战
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "挑战ID"
// @Param body body service.ChallengeInput true "挑战信息"
// @Success 200 {object} util.Response{data=model.CodingChallenge}
// @Router /api/coding-challenges/{id} [put]
func (c *CodingChallengeController) Update(ctx *gin.Context) {
	var req service.ChallengeInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.ValidationFailed(ctx, err)
		return
	}

	challenge, err := c.ChallengeService.Update(ctx.Request.Context(), ctx.Param("id"), req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, challenge)
}

// @Summary 删除编程挑战
// @Tags 编程挑战
// @Produce json
// @Security BearerAuth
// @Param id path string true "挑战ID"
// @Success 200 {object} util.Response
// @Router /api/coding-challenges/{id} [delete]
func (c *CodingChallengeController) Delete(ctx *gin.Context) {
	if err := c.ChallengeService.Delete(ctx.Request.Context(), ctx.Param("id")); err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.SuccessMessage(ctx, "coding challenge deleted", nil)
}

// @Summary 启用/停用编程挑战
// @Tags 编程挑战
// @Produce json
// @Security BearerAuth
// @Param id path string true "挑战ID"
// @Success 200 {object} util.Response{data=model.CodingChallenge}
// @Router /api/coding-challenges/{id}/toggle-status [patch]
func (c *CodingChallengeController) ToggleStatus(ctx *gin.Context) {
	challenge, err := c.ChallengeService.ToggleStatus(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, challenge)
}
