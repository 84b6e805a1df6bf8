package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"quiz_edu_backend/internal/model"
	"quiz_edu_backend/internal/repository"
	"quiz_edu_backend/internal/util"
	"quiz_edu_backend/pkg/logger"
	"quiz_edu_backend/pkg/monitoring"
	"quiz_edu_backend/pkg/tracing"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const (
	PeriodDay   = "day"
	PeriodWeek  = "week"
	PeriodMonth = "month"

	ExportJSON = "json"
	ExportCSV  = "csv"
)

type AttemptHistoryService struct {
	HistoryRepo  *repository.AttemptHistoryRepository
	CategoryRepo *repository.CategoryRepository
	Rankings     *repository.LeaderboardRepository
	Now          func() time.Time
}

func NewAttemptHistoryService(
	historyRepo *repository.AttemptHistoryRepository,
	categoryRepo *repository.CategoryRepository,
	leaderboard *repository.LeaderboardRepository,
) *AttemptHistoryService {
	return &AttemptHistoryService{
		HistoryRepo:  historyRepo,
		CategoryRepo: categoryRepo,
		Rankings:     leaderboard,
		Now:          time.Now,
	}
}

// Create 每个会话只生成一次历史记录
func (s *AttemptHistoryService) Create(ctx context.Context, session *model.QuizSession) (history *model.AttemptHistory, err error) {
	ctx, span := tracing.Start(ctx, "AttemptHistoryService.Create", attribute.String("session_id", session.SessionID))
	defer func() { tracing.End(span, err) }()

	if !session.Status.Terminal() {
		return nil, util.Validationf("session %s has not finished", session.SessionID)
	}

	exists, err := s.HistoryRepo.ExistsBySession(ctx, session.SessionID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, util.ErrHistoryExists
	}

	completedAt := s.Now()
	if session.CompletedAt != nil {
		completedAt = *session.CompletedAt
	}

	history = &model.AttemptHistory{
		SessionID:   session.SessionID,
		UserID:      session.UserID,
		CategoryID:  session.CategoryID,
		Difficulty:  session.Difficulty,
		Status:      session.Status,
		Questions:   session.Questions,
		Answers:     session.Answers,
		Score:       session.Score,
		TimeLimit:   session.TimeLimit,
		Duration:    session.Elapsed(completedAt),
		StartedAt:   session.StartedAt,
		CompletedAt: completedAt,
		Performance: model.BuildPerformance(session.Questions, session.Answers),
	}

	if category, err := s.CategoryRepo.FindByID(ctx, session.CategoryID); err == nil {
		history.CategoryName = category.Name
	}

	if history.Comparison, err = s.compare(ctx, history); err != nil {
		return nil, err
	}

	if err := s.HistoryRepo.Create(ctx, history); err != nil {
		return nil, err
	}

	if s.Rankings != nil {
		if err := s.Rankings.RecordBest(ctx, history.CategoryID, history.UserID, history.Score.Percentage); err != nil {
			monitoring.SideEffectFailures.WithLabelValues("leaderboard").Inc()
			logger.Log.Warn("Failed to update leaderboard", zap.String("session_id", history.SessionID), zap.Error(err))
		}
	}
	return history, nil
}

// compare 与上一次作答对比；个人最佳要求严格大于历史最高
func (s *AttemptHistoryService) compare(ctx context.Context, history *model.AttemptHistory) (model.AttemptComparison, error) {
	cmp := model.AttemptComparison{IsPersonalBest: true}

	previous, err := s.HistoryRepo.FindPrevious(ctx, history.UserID, history.CategoryID, history.CompletedAt)
	switch {
	case err == nil:
		cmp.HasPrevious = true
		cmp.PreviousAttemptID = previous.ID
		cmp.PercentageDelta = history.Score.Percentage - previous.Score.Percentage
		cmp.DurationDelta = history.Duration - previous.Duration
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return cmp, err
	}

	best, found, err := s.HistoryRepo.BestPercentageBefore(ctx, history.UserID, history.CategoryID, history.CompletedAt)
	if err != nil {
		return cmp, err
	}
	if found {
		cmp.IsPersonalBest = history.Score.Percentage > best
	}

	if s.Rankings != nil {
		before, ranked, err := s.Rankings.Rank(ctx, history.CategoryID, history.UserID)
		if err == nil {
			var after int
			after, err = s.Rankings.ProjectedRank(ctx, history.CategoryID, history.UserID, history.Score.Percentage)
			if err == nil {
				cmp.Rank = after
				if ranked {
					cmp.RankDelta = before - after
				}
			}
		}
		if err != nil {
			logger.Log.Warn("Failed to compute leaderboard rank", zap.String("session_id", history.SessionID), zap.Error(err))
		}
	}
	return cmp, nil
}

func (s *AttemptHistoryService) List(ctx context.Context, filter repository.HistoryFilter, p util.Pagination) ([]model.AttemptHistory, int64, error) {
	return s.HistoryRepo.List(ctx, filter, p)
}

func (s *AttemptHistoryService) Get(ctx context.Context, id string, principal Principal) (*model.AttemptHistory, error) {
	history, err := s.HistoryRepo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, util.ErrHistoryNotFound)
	}
	if !principal.CanAccess(history.UserID) {
		return nil, util.ErrPermissionDenied
	}
	return history, nil
}

// Stats 总体与分类统计并发查询
func (s *AttemptHistoryService) Stats(ctx context.Context, userID uint, categoryID string) (stats *model.HistoryStats, err error) {
	ctx, span := tracing.Start(ctx, "AttemptHistoryService.Stats")
	defer func() { tracing.End(span, err) }()

	filter := repository.HistoryFilter{UserID: userID, CategoryID: categoryID}

	var (
		overall    *repository.HistoryAggregate
		byCategory []repository.HistoryAggregate
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		overall, err = s.HistoryRepo.Aggregate(gctx, filter)
		return err
	})
	g.Go(func() error {
		var err error
		byCategory, err = s.HistoryRepo.AggregateByCategory(gctx, filter)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	stats = &model.HistoryStats{
		TotalAttempts:  overall.TotalAttempts,
		CompletedCount: overall.CompletedCount,
		AverageScore:   round2(overall.AverageScore),
		BestScore:      overall.BestScore,
		WorstScore:     overall.WorstScore,
		TotalTimeSpent: overall.TotalTimeSpent,
		ByCategory:     make([]model.CategoryPerformance, 0, len(byCategory)),
	}
	for _, row := range byCategory {
		stats.ByCategory = append(stats.ByCategory, model.CategoryPerformance{
			CategoryID:   row.CategoryID,
			CategoryName: row.CategoryName,
			Attempts:     row.TotalAttempts,
			AverageScore: round2(row.AverageScore),
			BestScore:    row.BestScore,
		})
	}
	return stats, nil
}

type AnalyticsInput struct {
	UserID     uint
	CategoryID string
	Period     string
	From       *time.Time
	To         *time.Time
}

// Analytics 按天/周/月分桶的趋势，分桶在内存中完成以兼容不同数据库
func (s *AttemptHistoryService) Analytics(ctx context.Context, in AnalyticsInput) (analytics *model.HistoryAnalytics, err error) {
	ctx, span := tracing.Start(ctx, "AttemptHistoryService.Analytics", attribute.String("period", in.Period))
	defer func() { tracing.End(span, err) }()

	if in.Period == "" {
		in.Period = PeriodDay
	}
	if in.Period != PeriodDay && in.Period != PeriodWeek && in.Period != PeriodMonth {
		return nil, util.NewValidationError(util.FieldError{Field: "period", Message: "must be one of [day week month]"})
	}
	if in.From == nil {
		from := defaultRangeStart(s.Now(), in.Period)
		in.From = &from
	}

	filter := repository.HistoryFilter{UserID: in.UserID, CategoryID: in.CategoryID, From: in.From, To: in.To}

	var (
		rows  []model.AttemptHistory
		stats *model.HistoryStats
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rows, err = s.HistoryRepo.FindAll(gctx, filter)
		return err
	})
	g.Go(func() error {
		var err error
		stats, err = s.Stats(gctx, in.UserID, in.CategoryID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &model.HistoryAnalytics{
		Period:     in.Period,
		Trend:      BuildTrend(rows, in.Period),
		Difficulty: difficultyTotals(rows),
		Stats:      stats,
	}, nil
}

func defaultRangeStart(now time.Time, period string) time.Time {
	switch period {
	case PeriodWeek:
		return now.AddDate(0, 0, -7*12)
	case PeriodMonth:
		return now.AddDate(-1, 0, 0)
	default:
		return now.AddDate(0, 0, -30)
	}
}

// PeriodKey 返回时间所属分桶的标识
func PeriodKey(t time.Time, period string) string {
	switch period {
	case PeriodWeek:
		year, week := t.ISOWeek()
		return fmt.Sprintf("%d-W%02d", year, week)
	case PeriodMonth:
		return t.Format("2006-01")
	default:
		return t.Format(util.DateFormat)
	}
}

// BuildTrend rows 需按完成时间升序
func BuildTrend(rows []model.AttemptHistory, period string) []model.TrendPoint {
	trend := make([]model.TrendPoint, 0)
	index := make(map[string]int)
	sums := make(map[string]int)

	for _, h := range rows {
		key := PeriodKey(h.CompletedAt, period)
		i, ok := index[key]
		if !ok {
			i = len(trend)
			index[key] = i
			trend = append(trend, model.TrendPoint{Period: key})
		}
		p := &trend[i]
		p.Attempts++
		p.TimeSpent += h.Duration
		sums[key] += h.Score.Percentage
		if h.Score.Percentage > p.BestScore {
			p.BestScore = h.Score.Percentage
		}
	}
	for i := range trend {
		trend[i].AverageScore = round2(float64(sums[trend[i].Period]) / float64(trend[i].Attempts))
	}
	return trend
}

func difficultyTotals(rows []model.AttemptHistory) []model.DifficultyBreakdown {
	order := []model.Difficulty{model.DifficultyEasy, model.DifficultyMedium, model.DifficultyHard}
	totals := make(map[model.Difficulty]*model.DifficultyBreakdown)
	for _, h := range rows {
		for _, b := range h.Performance.ByDifficulty {
			t, ok := totals[b.Difficulty]
			if !ok {
				t = &model.DifficultyBreakdown{Difficulty: b.Difficulty}
				totals[b.Difficulty] = t
			}
			t.Total += b.Total
			t.Correct += b.Correct
		}
	}

	out := make([]model.DifficultyBreakdown, 0, len(totals))
	for _, d := range order {
		if t, ok := totals[d]; ok {
			if t.Total > 0 {
				t.Percentage = int(math.Round(100 * float64(t.Correct) / float64(t.Total)))
			}
			out = append(out, *t)
		}
	}
	return out
}

// ExportFile 导出结果
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

type exportRecord struct {
	AttemptID    string              `json:"attemptId"`
	SessionID    string              `json:"sessionId"`
	CategoryID   string              `json:"categoryId"`
	CategoryName string              `json:"categoryName"`
	Difficulty   model.Difficulty    `json:"difficulty"`
	Status       model.SessionStatus `json:"status"`
	Score        model.ScoreSummary  `json:"score"`
	Duration     int                 `json:"duration"`
	StartedAt    time.Time           `json:"startedAt"`
	CompletedAt  time.Time           `json:"completedAt"`
}

var csvHeader = []string{
	"attempt_id", "session_id", "category", "difficulty", "status",
	"total_questions", "correct", "incorrect", "unanswered",
	"earned_points", "total_points", "percentage", "duration_seconds",
	"started_at", "completed_at",
}

func (s *AttemptHistoryService) Export(ctx context.Context, filter repository.HistoryFilter, format string) (file *ExportFile, err error) {
	ctx, span := tracing.Start(ctx, "AttemptHistoryService.Export", attribute.String("format", format))
	defer func() { tracing.End(span, err) }()

	if format == "" {
		format = ExportJSON
	}
	if format != ExportJSON && format != ExportCSV {
		return nil, util.NewValidationError(util.FieldError{Field: "format", Message: "must be one of [json csv]"})
	}

	rows, err := s.HistoryRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}

	name := fmt.Sprintf("attempt-history-%d-%s", filter.UserID, s.Now().Format("20060102150405"))
	if format == ExportCSV {
		data, err := encodeCSV(rows)
		if err != nil {
			return nil, err
		}
		return &ExportFile{Filename: name + ".csv", ContentType: "text/csv", Data: data}, nil
	}

	records := make([]exportRecord, 0, len(rows))
	for _, h := range rows {
		records = append(records, exportRecord{
			AttemptID:    h.ID,
			SessionID:    h.SessionID,
			CategoryID:   h.CategoryID,
			CategoryName: h.CategoryName,
			Difficulty:   h.Difficulty,
			Status:       h.Status,
			Score:        h.Score,
			Duration:     h.Duration,
			StartedAt:    h.StartedAt,
			CompletedAt:  h.CompletedAt,
		})
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, err
	}
	return &ExportFile{Filename: name + ".json", ContentType: "application/json", Data: data}, nil
}

func encodeCSV(rows []model.AttemptHistory) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, h := range rows {
		record := []string{
			h.ID,
			h.SessionID,
			h.CategoryName,
			string(h.Difficulty),
			string(h.Status),
			strconv.Itoa(h.Score.TotalQuestions),
			strconv.Itoa(h.Score.CorrectAnswers),
			strconv.Itoa(h.Score.IncorrectAnswers),
			strconv.Itoa(h.Score.UnansweredQuestions),
			strconv.Itoa(h.Score.EarnedPoints),
			strconv.Itoa(h.Score.TotalPoints),
			strconv.Itoa(h.Score.Percentage),
			strconv.Itoa(h.Duration),
			h.StartedAt.Format(time.RFC3339),
			h.CompletedAt.Format(time.RFC3339),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// Leaderboard 分类排行榜
func (s *AttemptHistoryService) Leaderboard(ctx context.Context, categoryID string, limit int) ([]model.LeaderboardEntry, error) {
	if _, err := s.CategoryRepo.FindByID(ctx, categoryID); err != nil {
		return nil, notFound(err, util.ErrCategoryNotFound)
	}
	if limit <= 0 || limit > util.MaxLimit {
		limit = 10
	}
	if s.Rankings == nil {
		return []model.LeaderboardEntry{}, nil
	}
	return s.Rankings.Top(ctx, categoryID, limit)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
