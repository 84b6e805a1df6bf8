package controller

import (
	"quiz_edu_backend/internal/model"
	"quiz_edu_backend/internal/repository"
	"quiz_edu_backend/internal/service"
	"quiz_edu_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ChallengeSubmissionController struct {
	SubmissionService *service.ChallengeSubmissionService
}

func NewChallengeSubmissionController(submissionService *service.ChallengeSubmissionService) *ChallengeSubmissionController {
	return &ChallengeSubmissionController{SubmissionService: submissionService}
}

// @Summary 保存草稿
// @Description 创建或更新自己的草稿，已提交且未被退回的提交不能再修改
// @Tags 挑战提交
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "挑战ID"
// @Param body body service.DraftInput true "代码"
// @Success 200 {object} util.Response{data=model.ChallengeSubmission}
// @Failure 400 {object} util.Response
// @Router /api/coding-challenges/{id}/draft [put]
func (c *ChallengeSubmissionController) SaveDraft(ctx *gin.Context) {
	var req service.DraftInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.ValidationFailed(ctx, err)
		return
	}

	principal := service.PrincipalFromClaims(util.GetUserFromContext(ctx))
	submission, err := c.SubmissionService.SaveDraft(ctx.Request.Context(), ctx.Param("id"), principal, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, submission)
}

// @Summary 提交代码
// @Description 每次提交版本号加一；配置开启时自动运行隐藏用例
// @Tags 挑战提交
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "挑战ID"
// @Param body body service.DraftInput false "代码，为空时提交已保存的草稿"
// @Success 200 {object} util.Response{data=model.ChallengeSubmission}
// @Failure 400 {object} util.Response
// @Router /api/coding-challenges/{id}/submit [post]
func (c *ChallengeSubmissionController) Submit(ctx *gin.Context) {
	var req service.DraftInput
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			util.ValidationFailed(ctx, err)
			return
		}
	}

	principal := service.PrincipalFromClaims(util.GetUserFromContext(ctx))
	submission, err := c.SubmissionService.Submit(ctx.Request.Context(), ctx.Param("id"), principal, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, submission.ForStudent())
}

// @Summary 我的提交
// @Tags 挑战提交
// @Produce json
// @Security BearerAuth
// @Param challengeId query string false "挑战ID"
// @Param page query int false "页码"
// @Param limit query int false "每页数量"
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/challenge-submissions/mine [get]
func (c *ChallengeSubmissionController) ListMine(ctx *gin.Context) {
	principal := service.PrincipalFromClaims(util.GetUserFromContext(ctx))

	p := util.GetPagination(ctx)
	submissions, total, err := c.SubmissionService.ListMine(ctx.Request.Context(), principal, ctx.Query("challengeId"), p)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Page(ctx, submissions, total, p)
}

// @Summary 提交详情
// @Description 提交者本人或管理员可查看
// @Tags 挑战提交
// @Produce json
// @Security BearerAuth
// @Param id path string true "提交ID"
// @Success 200 {object} util.Response{data=model.ChallengeSubmission}
// @Failure 403 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/challenge-submissions/{id} [get]
func (c *ChallengeSubmissionController) Get(ctx *gin.Context) {
	principal := service.PrincipalFromClaims(util.GetUserFromContext(ctx))

	submission, err := c.SubmissionService.Get(ctx.Request.Context(), ctx.Param("id"), principal)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, submission)
}

// @Summary 上传源码文件
// @Tags 挑战提交
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path string true "提交ID"
// @Param file formData file true "源码文件"
// @Success 200 {object} util.Response{data=model.ChallengeSubmission}
// @Failure 400 {object} util.Response
// @Router /api/challenge-submissions/{id}/source [post]
func (c *ChallengeSubmissionController) UploadSource(ctx *gin.Context) {
	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "file is required")
		return
	}
	if fileHeader.Size > util.MaxSourceFileSize {
		util.BadRequest(ctx, "source file is too large")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	defer file.Close()

	principal := service.PrincipalFromClaims(util.GetUserFromContext(ctx))
	submission, err := c.SubmissionService.UploadSource(ctx.Request.Context(), ctx.Param("id"), principal, fileHeader.Filename, file, fileHeader.Size)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, submission.ForStudent())
}

// @Summary 提交列表（管理员）
// @Tags 挑战提交
// @Produce json
// @Security BearerAuth
// @Param challengeId query string false "挑战ID"
// @Param studentId query int false "学生ID"
// @Param status query string false "状态" enums(draft,submitted,under_review,reviewed,rejected)
// @Param page query int false "页码"
// @Param limit query int false "每页数量"
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/challenge-submissions [get]
func (c *ChallengeSubmissionController) List(ctx *gin.Context) {
	filter := repository.SubmissionFilter{
		ChallengeID: ctx.Query("challengeId"),
		StudentID:   util.MustParseUint(ctx.Query("studentId")),
		Status:      model.SubmissionStatus(ctx.Query("status")),
	}

	p := util.GetPagination(ctx)
	submissions, total, err := c.SubmissionService.List(ctx.Request.Context(), filter, p)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Page(ctx, submissions, total, p)
}

// @Summary 开始评审
// @Tags 挑战提交
// @Produce json
// @Security BearerAuth
// @Param id path string true "提交ID"
// @Success 200 {object} util.Response{data=model.ChallengeSubmission}
// @Failure 400 {object} util.Response "状态不允许"
// @Router /api/challenge-submissions/{id}/start-review [post]
func (c *ChallengeSubmissionController) StartReview(ctx *gin.Context) {
	principal := service.PrincipalFromClaims(util.GetUserFromContext(ctx))

	submission, err := c.SubmissionService.StartReview(ctx.Request.Context(), ctx.Param("id"), principal)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, submission)
}

// @Summary 评审提交
// @Description 评分 0-100，可附带逐行批注和评分细则
// @Tags 挑战提交
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "提交ID"
// @Param body body service.ReviewInput true "评审内容"
// @Success 200 {object} util.Response{data=model.ChallengeSubmission}
// @Failure 400 {object} util.Response
// @Failure 403 {object} util.Response
// @Router /api/challenge-submissions/{id}/review [post]
func (c *ChallengeSubmissionController) Review(ctx *gin.Context) {
	var req service.ReviewInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.ValidationFailed(ctx, err)
		return
	}

	principal := service.PrincipalFromClaims(util.GetUserFromContext(ctx))
	submission, err := c.SubmissionService.Review(ctx.Request.Context(), ctx.Param("id"), principal, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, submission)
}

// @Summary 退回提交
// @Tags 挑战提交
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "提交ID"
// @Param body body service.RejectInput true "退回原因"
// @Success 200 {object} util.Response{data=model.ChallengeSubmission}
// @Router /api/challenge-submissions/{id}/reject [post]
func (c *ChallengeSubmissionController) Reject(ctx *gin.Context) {
	var req service.RejectInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.ValidationFailed(ctx, err)
		return
	}

	principal := service.PrincipalFromClaims(util.GetUserFromContext(ctx))
	submission, err := c.SubmissionService.Reject(ctx.Request.Context(), ctx.Param("id"), principal, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, submission)
}

// @Summary 运行隐藏用例
// @Tags 挑战提交
// @Produce json
// @Security BearerAuth
// @Param id path string true "提交ID"
// @Success 200 {object} util.Response{data=model.ChallengeSubmission}
// @Failure 500 {object} util.Response "判题服务不可用"
// @Router /api/challenge-submissions/{id}/run-tests [post]
func (c *ChallengeSubmissionController) RunTests(ctx *gin.Context) {
	principal := service.PrincipalFromClaims(util.GetUserFromContext(ctx))

	submission, err := c.SubmissionService.RunTests(ctx.Request.Context(), ctx.Param("id"), principal)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, submission)
}
