package controller

import (
	"errors"
	"net/http"

	"quiz_edu_backend/internal/model"
	"quiz_edu_backend/internal/service"
	"quiz_edu_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type QuizSessionController struct {
	QuizSessionService *service.QuizSessionService
}

func NewQuizSessionController(quizSessionService *service.QuizSessionService) *QuizSessionController {
	return &QuizSessionController{QuizSessionService: quizSessionService}
}

// StartQuizRequest 开始答题请求
// swagger:model StartQuizRequest
type StartQuizRequest struct {
	CategoryID    string           `json:"categoryId" binding:"required"`
	Difficulty    model.Difficulty `json:"difficulty" binding:"omitempty,difficulty"`
	TimeLimit     int              `json:"timeLimit" binding:"omitempty,min=1,max=86400"`
	QuestionCount int              `json:"questionCount" binding:"omitempty,min=1"`
}

// SubmitAnswerRequest 提交答案请求
// swagger:model SubmitAnswerRequest
type SubmitAnswerRequest struct {
	QuestionID     string `json:"questionId" binding:"required"`
	SelectedAnswer string `json:"selectedAnswer"`
	TimeSpent      int    `json:"timeSpent" binding:"min=0"`
}

// @Summary 开始答题
// @Description 在指定分类下开始一次限时答题，同一分类同时只能有一个进行中的会话
// @Tags 答题会话
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body StartQuizRequest true "答题参数"
// @Success 201 {object} util.Response{data=service.SessionView}
// @Failure 400 {object} util.Response "参数错误或已有进行中的会话"
// @Failure 404 {object} util.Response "分类不存在或没有可用题目"
// @Router /api/quiz-sessions/start [post]
func (c *QuizSessionController) Start(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req StartQuizRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.ValidationFailed(ctx, err)
		return
	}

	session, err := c.QuizSessionService.Start(ctx.Request.Context(), service.StartSessionInput{
		UserID:        user.UserID,
		CategoryID:    req.CategoryID,
		Difficulty:    req.Difficulty,
		TimeLimit:     req.TimeLimit,
		QuestionCount: req.QuestionCount,
	})
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Created(ctx, service.NewSessionView(session))
}

// @Summary 提交答案
// @Description 对会话中的题目作答，重复作答覆盖之前的答案；会话超时返回 410
// @Tags 答题会话
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param sessionId path string true "会话ID"
// @Param body body SubmitAnswerRequest true "答案"
// @Success 200 {object} util.Response{data=service.AnswerResult}
// @Failure 404 {object} util.Response "会话不存在或已结束"
// @Failure 410 {object} util.Response "会话已超时"
// @Router /api/quiz-sessions/{sessionId}/answer [post]
func (c *QuizSessionController) SubmitAnswer(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req SubmitAnswerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.ValidationFailed(ctx, err)
		return
	}

	result, err := c.QuizSessionService.SubmitAnswer(ctx.Request.Context(), service.SubmitAnswerInput{
		SessionID:      ctx.Param("sessionId"),
		UserID:         user.UserID,
		QuestionID:     req.QuestionID,
		SelectedAnswer: req.SelectedAnswer,
		TimeSpent:      req.TimeSpent,
	})
	if err != nil {
		respondSessionError(ctx, err, result)
		return
	}

	util.Success(ctx, result)
}

// @Summary 交卷
// @Description 结束答题并返回逐题解析与成绩
// @Tags 答题会话
// @Produce json
// @Security BearerAuth
// @Param sessionId path string true "会话ID"
// @Success 200 {object} util.Response{data=service.SessionResult}
// @Failure 404 {object} util.Response "会话不存在或已结束"
// @Failure 410 {object} util.Response "会话已超时"
// @Router /api/quiz-sessions/{sessionId}/submit [post]
func (c *QuizSessionController) Complete(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	result, err := c.QuizSessionService.Complete(ctx.Request.Context(), ctx.Param("sessionId"), user.UserID)
	if err != nil {
		respondSessionError(ctx, err, result)
		return
	}

	util.Success(ctx, result)
}

// @Summary 放弃答题
// @Tags 答题会话
// @Produce json
// @Security BearerAuth
// @Param sessionId path string true "会话ID"
// @Success 200 {object} util.Response{data=service.SessionResult}
// @Failure 404 {object} util.Response "会话不存在或已结束"
// @Failure 410 {object} util.Response "会话已超时"
// @Router /api/quiz-sessions/{sessionId}/abandon [post]
func (c *QuizSessionController) Abandon(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	result, err := c.QuizSessionService.Abandon(ctx.Request.Context(), ctx.Param("sessionId"), user.UserID)
	if err != nil {
		respondSessionError(ctx, err, result)
		return
	}

	util.SuccessMessage(ctx, "quiz session abandoned", result)
}

// @Summary 查看答题结果
// @Description 本人或管理员可查看；进行中的会话不包含答案解析
// @Tags 答题会话
// @Produce json
// @Security BearerAuth
// @Param sessionId path string true "会话ID"
// @Success 200 {object} util.Response{data=service.SessionResult}
// @Failure 403 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/quiz-sessions/{sessionId}/results [get]
func (c *QuizSessionController) GetResults(ctx *gin.Context) {
	principal := service.PrincipalFromClaims(util.GetUserFromContext(ctx))

	result, err := c.QuizSessionService.GetResults(ctx.Request.Context(), ctx.Param("sessionId"), principal)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, result)
}

// @Summary 获取进行中的会话
// @Tags 答题会话
// @Produce json
// @Security BearerAuth
// @Param categoryId path string true "分类ID"
// @Success 200 {object} util.Response{data=service.SessionView}
// @Failure 404 {object} util.Response
// @Router /api/quiz-sessions/active/{categoryId} [get]
func (c *QuizSessionController) GetActive(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	session, err := c.QuizSessionService.GetActive(ctx.Request.Context(), user.UserID, ctx.Param("categoryId"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, service.NewSessionView(session))
}

// @Summary 答题会话列表
// @Tags 答题会话
// @Produce json
// @Security BearerAuth
// @Param status query string false "会话状态" enums(in_progress,completed,abandoned,expired)
// @Param page query int false "页码"
// @Param limit query int false "每页数量"
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/quiz-sessions/history [get]
func (c *QuizSessionController) ListHistory(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	status := model.SessionStatus(ctx.Query("status"))
	if status != "" && !status.Valid() {
		util.BadRequest(ctx, "invalid status")
		return
	}

	p := util.GetPagination(ctx)
	sessions, total, err := c.QuizSessionService.ListHistory(ctx.Request.Context(), user.UserID, status, p)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	views := make([]service.SessionView, 0, len(sessions))
	for i := range sessions {
		views = append(views, service.NewSessionView(&sessions[i]))
	}
	util.Page(ctx, views, total, p)
}

// respondSessionError 超时时一并返回最后的成绩
func respondSessionError(ctx *gin.Context, err error, data interface{}) {
	if errors.Is(err, util.ErrSessionExpired) && data != nil {
		util.ErrorWithData(ctx, http.StatusGone, err.Error(), data)
		return
	}
	util.HandleError(ctx, err)
}
