package controller

import (
	"quiz_edu_backend/internal/model"
	"quiz_edu_backend/internal/repository"
	"quiz_edu_backend/internal/service"
	"quiz_edu_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type QuestionController struct {
	QuestionService *service.QuestionService
}

func NewQuestionController(questionService *service.QuestionService) *QuestionController {
	return &QuestionController{QuestionService: questionService}
}

// BulkQuestionRequest 批量创建题目
// swagger:model BulkQuestionRequest
type BulkQuestionRequest struct {
	Questions []service.QuestionInput `json:"questions" binding:"required,min=1,max=100,dive"`
}

var questionSortColumns = map[string]string{
	"createdAt":  "created_at",
	"difficulty": "difficulty",
	"points":     "points",
	"attempts":   "stats_attempts",
}

// @Summary 题目列表
// @Description 学生只能看到启用的题目，且不包含答案与解析
// @Tags 题库
// @Produce json
// @Security BearerAuth
// @Param categoryId query string false "分类ID"
// @Param difficulty query string false "难度" enums(easy,medium,hard)
// @Param kind query string false "题型" enums(mcq,program-trace,coding)
// @Param status query string false "状态（仅管理员）" enums(draft,active,inactive)
// @Param search query string false "题干或标签关键字"
// @Param sort query string false "排序字段，如 -createdAt"
// @Param page query int false "页码"
// @Param limit query int false "每页数量"
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/questions [get]
func (c *QuestionController) List(ctx *gin.Context) {
	principal := service.PrincipalFromClaims(util.GetUserFromContext(ctx))

	filter := repository.QuestionFilter{
		CategoryID: ctx.Query("categoryId"),
		Difficulty: model.Difficulty(ctx.Query("difficulty")),
		Kind:       model.QuestionKind(ctx.Query("kind")),
		Status:     model.QuestionStatus(ctx.Query("status")),
		Search:     ctx.Query("search"),
		Sort:       util.ParseSort(ctx.Query("sort"), questionSortColumns, util.Sort{Column: "created_at", Desc: true}),
	}

	p := util.GetPagination(ctx)
	list, total, err := c.QuestionService.List(ctx.Request.Context(), filter, p, principal)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Page(ctx, list, total, p)
}

// @Summary 题目详情
// @Tags 题库
// @Produce json
// @Security BearerAuth
// @Param id path string true "题目ID"
// @Success 200 {object} util.Response{data=model.Question}
// @Failure 404 {object} util.Response
// @Router /api/questions/{id} [get]
func (c *QuestionController) Get(ctx *gin.Context) {
	principal := service.PrincipalFromClaims(util.GetUserFromContext(ctx))

	question, err := c.QuestionService.Get(ctx.Request.Context(), ctx.Param("id"), principal)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, question)
}

// @Summary 创建题目
// @Description content 的结构由 kind 决定；选择题必须恰好有一个正确选项
// @Tags 题库
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body service.QuestionInput true "题目"
// @Success 201 {object} util.Response{data=model.Question}
// @Failure 400 {object} util.Response
// @Router /api/questions [post]
func (c *QuestionController) Create(ctx *gin.Context) {
	var req service.QuestionInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.ValidationFailed(ctx, err)
		return
	}

	principal := service.PrincipalFromClaims(util.GetUserFromContext(ctx))
	question, err := c.QuestionService.Create(ctx.Request.Context(), req, principal)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Created(ctx, question)
}

// @Summary 批量创建题目
// @Description 任一题目校验失败则全部不写入
// @Tags 题库
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body BulkQuestionRequest true "题目列表"
// @Success 201 {object} util.Response{data=[]model.Question}
// @Failure 400 {object} util.Response
// @Router /api/questions/bulk [post]
func (c *QuestionController) BulkCreate(ctx *gin.Context) {
	var req BulkQuestionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.ValidationFailed(ctx, err)
		return
	}

	principal := service.PrincipalFromClaims(util.GetUserFromContext(ctx))
	questions, err := c.QuestionService.BulkCreate(ctx.Request.Context(), req.Questions, principal)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Created(ctx, questions)
}

// @Summary 更新题目
// @Tags 题库
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "题目ID"
// @Param body body service.QuestionInput true "题目"
// @Success 200 {object} util.Response{data=model.Question}
// @Failure 400 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/questions/{id} [put]
func (c *QuestionController) Update(ctx *gin.Context) {
	var req service.QuestionInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.ValidationFailed(ctx, err)
		return
	}

	question, err := c.QuestionService.Update(ctx.Request.Context(), ctx.Param("id"), req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, question)
}

// @Summary 删除题目
// @Description 已被答题记录引用的题目只会被停用
// @Tags 题库
// @Produce json
// @Security BearerAuth
// @Param id path string true "题目ID"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/questions/{id} [delete]
func (c *QuestionController) Delete(ctx *gin.Context) {
	soft, err := c.QuestionService.Delete(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	if soft {
		util.SuccessMessage(ctx, "question is referenced by attempts and was deactivated", gin.H{"deleted": false})
		return
	}
	util.SuccessMessage(ctx, "question deleted", gin.H{"deleted": true})
}

// @Summary 启用/停用题目
// @Tags 题库
// @Produce json
// @Security BearerAuth
// @Param id path string true "题目ID"
// @Success 200 {object} util.Response{data=model.Question}
// @Router /api/questions/{id}/toggle-status [patch]
func (c *QuestionController) ToggleStatus(ctx *gin.Context) {
	question, err := c.QuestionService.ToggleStatus(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, question)
}

// @Summary 题库统计
// @Tags 题库
// @Produce json
// @Security BearerAuth
// @Param categoryId query string false "分类ID"
// @Success 200 {object} util.Response{data=repository.QuestionBankStats}
// @Router /api/questions/stats [get]
func (c *QuestionController) Stats(ctx *gin.Context) {
	stats, err := c.QuestionService.Stats(ctx.Request.Context(), ctx.Query("categoryId"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, stats)
}
