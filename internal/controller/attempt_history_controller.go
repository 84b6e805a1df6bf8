package controller

import (
	"fmt"
	"strconv"
	"time"

	"quiz_edu_backend/internal/model"
	"quiz_edu_backend/internal/repository"
	"quiz_edu_backend/internal/service"
	"quiz_edu_backend/internal/util"
	"quiz_edu_backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AttemptHistoryController struct {
	HistoryService *service.AttemptHistoryService
	StorageService *service.StorageService
}

func NewAttemptHistoryController(historyService *service.AttemptHistoryService, storageService *service.StorageService) *AttemptHistoryController {
	return &AttemptHistoryController{
		HistoryService: historyService,
		StorageService: storageService,
	}
}

var historySortColumns = map[string]string{
	"completedAt": "completed_at",
	"startedAt":   "started_at",
	"percentage":  "score_percentage",
	"duration":    "duration",
}

// targetUser 管理员可以通过 userId 查看其他用户
func targetUser(ctx *gin.Context, claims *util.Claims) uint {
	if claims.IsAdmin() {
		if id := util.MustParseUint(ctx.Query("userId")); id > 0 {
			return id
		}
	}
	return claims.UserID
}

func parseDate(ctx *gin.Context, key string, endOfDay bool) (*time.Time, error) {
	raw := ctx.Query(key)
	if raw == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(util.DateFormat, raw, time.Local)
	if err != nil {
		return nil, util.NewValidationError(util.FieldError{Field: key, Message: fmt.Sprintf("must be a date in %s format", util.DateFormat)})
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

func (c *AttemptHistoryController) filterFromQuery(ctx *gin.Context, claims *util.Claims) (repository.HistoryFilter, error) {
	filter := repository.HistoryFilter{
		UserID:     targetUser(ctx, claims),
		CategoryID: ctx.Query("categoryId"),
		Status:     model.SessionStatus(ctx.Query("status")),
		Sort:       util.ParseSort(ctx.Query("sort"), historySortColumns, util.Sort{Column: "completed_at", Desc: true}),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return filter, util.NewValidationError(util.FieldError{Field: "status", Message: "is not a valid session status"})
	}
	var err error
	if filter.From, err = parseDate(ctx, "from", false); err != nil {
		return filter, err
	}
	if filter.To, err = parseDate(ctx, "to", true); err != nil {
		return filter, err
	}
	return filter, nil
}

// @Summary 作答历史列表
// @Tags 作答历史
// @Produce json
// @Security BearerAuth
// @Param categoryId query string false "分类ID"
// @Param status query string false "状态" enums(completed,abandoned,expired)
// @Param from query string false "开始日期 2006-01-02"
// @Param to query string false "结束日期 2006-01-02"
// @Param sort query string false "排序字段，如 -completedAt、percentage:desc"
// @Param page query int false "页码"
// @Param limit query int false "每页数量"
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/attempt-history [get]
func (c *AttemptHistoryController) List(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	filter, err := c.filterFromQuery(ctx, claims)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	p := util.GetPagination(ctx)
	histories, total, err := c.HistoryService.List(ctx.Request.Context(), filter, p)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Page(ctx, histories, total, p)
}

// @Summary 作答历史详情
// @Tags 作答历史
// @Produce json
// @Security BearerAuth
// @Param id path string true "记录ID"
// @Success 200 {object} util.Response{data=model.AttemptHistory}
// @Failure 403 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/attempt-history/{id} [get]
func (c *AttemptHistoryController) Get(ctx *gin.Context) {
	principal := service.PrincipalFromClaims(util.GetUserFromContext(ctx))

	history, err := c.HistoryService.Get(ctx.Request.Context(), ctx.Param("id"), principal)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, history)
}

// @Summary 作答统计
// @Description 总次数、平均分、最高/最低分、总用时以及按分类的明细
// @Tags 作答历史
// @Produce json
// @Security BearerAuth
// @Param categoryId query string false "分类ID"
// @Success 200 {object} util.Response{data=model.HistoryStats}
// @Router /api/attempt-history/stats [get]
func (c *AttemptHistoryController) Stats(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	stats, err := c.HistoryService.Stats(ctx.Request.Context(), targetUser(ctx, claims), ctx.Query("categoryId"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, stats)
}

// @Summary 成绩趋势分析
// @Tags 作答历史
// @Produce json
// @Security BearerAuth
// @Param period query string false "统计粒度" enums(day,week,month)
// @Param categoryId query string false "分类ID"
// @Param from query string false "开始日期 2006-01-02"
// @Param to query string false "结束日期 2006-01-02"
// @Success 200 {object} util.Response{data=model.HistoryAnalytics}
// @Router /api/attempt-history/analytics [get]
func (c *AttemptHistoryController) Analytics(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	from, err := parseDate(ctx, "from", false)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	to, err := parseDate(ctx, "to", true)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	analytics, err := c.HistoryService.Analytics(ctx.Request.Context(), service.AnalyticsInput{
		UserID:     targetUser(ctx, claims),
		CategoryID: ctx.Query("categoryId"),
		Period:     ctx.DefaultQuery("period", service.PeriodDay),
		From:       from,
		To:         to,
	})
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, analytics)
}

// @Summary 导出作答历史
// @Description 以 json 或 csv 文件下载；archive=true 时同时归档到对象存储并返回地址
// @Tags 作答历史
// @Produce json
// @Produce text/csv
// @Security BearerAuth
// @Param format query string false "导出格式" enums(json,csv)
// @Param archive query bool false "是否归档到对象存储"
// @Success 200 {file} file
// @Router /api/attempt-history/export [get]
func (c *AttemptHistoryController) Export(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	filter, err := c.filterFromQuery(ctx, claims)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	file, err := c.HistoryService.Export(ctx.Request.Context(), filter, ctx.Query("format"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	if archive := util.ParseBool(ctx.Query("archive")); archive != nil && *archive {
		url, err := c.StorageService.ArchiveExport(ctx.Request.Context(), filter.UserID, file)
		if err != nil {
			logger.Log.Error("Failed to archive export", zap.Uint("user_id", filter.UserID), zap.Error(err))
			util.InternalServerError(ctx)
			return
		}
		util.Success(ctx, gin.H{"filename": file.Filename, "url": url})
		return
	}

	ctx.Header("Content-Disposition", "attachment; filename="+strconv.Quote(file.Filename))
	ctx.Data(200, file.ContentType, file.Data)
}

// @Summary 分类排行榜
// @Tags 作答历史
// @Produce json
// @Security BearerAuth
// @Param categoryId path string true "分类ID"
// @Param limit query int false "数量，默认10"
// @Success 200 {object} util.Response{data=[]model.LeaderboardEntry}
// @Failure 404 {object} util.Response
// @Router /api/attempt-history/leaderboard/{categoryId} [get]
func (c *AttemptHistoryController) Leaderboard(ctx *gin.Context) {
	limit, _ := strconv.Atoi(ctx.Query("limit"))

	entries, err := c.HistoryService.Leaderboard(ctx.Request.Context(), ctx.Param("categoryId"), limit)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, entries)
}
