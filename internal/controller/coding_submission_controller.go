package controller

import (
	"quiz_edu_backend/internal/service"
	"quiz_edu_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type CodingSubmissionController struct {
	SubmissionService *service.CodingSubmissionService
}

func NewCodingSubmissionController(submissionService *service.CodingSubmissionService) *CodingSubmissionController {
	return &CodingSubmissionController{SubmissionService: submissionService}
}

// @Summary 提交编程题
// @Description 代码会在判题服务上运行题目的全部用例
// @Tags 编程题提交
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body service.CodeSubmitInput true "代码"
// @Success 201 {object} util.Response{data=model.CodingSubmission}
// @Failure 400 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/coding-submissions [post]
func (c *CodingSubmissionController) Submit(ctx *gin.Context) {
	var req service.CodeSubmitInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.ValidationFailed(ctx, err)
		return
	}

	principal := service.PrincipalFromClaims(util.GetUserFromContext(ctx))
	submission, err := c.SubmissionService.Submit(ctx.Request.Context(), principal, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Created(ctx, submission)
}

// @Summary 我的编程题提交
// @Tags 编程题提交
// @Produce json
// @Security BearerAuth
// @Param questionId query string false "题目ID"
// @Param page query int false "页码"
// @Param limit query int false "每页数量"
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/coding-submissions [get]
func (c *CodingSubmissionController) ListMine(ctx *gin.Context) {
	principal := service.PrincipalFromClaims(util.GetUserFromContext(ctx))

	p := util.GetPagination(ctx)
	submissions, total, err := c.SubmissionService.ListMine(ctx.Request.Context(), principal, ctx.Query("questionId"), p)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Page(ctx, submissions, total, p)
}

// @Summary 编程题提交详情
// @Tags 编程题提交
// @Produce json
// @Security BearerAuth
// @Param id path string true "提交ID"
// @Success 200 {object} util.Response{data=model.CodingSubmission}
// @Failure 403 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/coding-submissions/{id} [get]
func (c *CodingSubmissionController) Get(ctx *gin.Context) {
	principal := service.PrincipalFromClaims(util.GetUserFromContext(ctx))

	submission, err := c.SubmissionService.Get(ctx.Request.Context(), ctx.Param("id"), principal)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, submission)
}
