package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"quiz_edu_backend/internal/config"
	"quiz_edu_backend/internal/model"
	"quiz_edu_backend/internal/repository"
	"quiz_edu_backend/internal/util"
	"quiz_edu_backend/pkg/logger"
	"quiz_edu_backend/pkg/monitoring"
	"quiz_edu_backend/pkg/tracing"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Shuffler 与 rand.Shuffle 签名一致，测试中可替换为确定性实现
type Shuffler func(n int, swap func(i, j int))

// HistoryRecorder 会话结束后生成作答历史
type HistoryRecorder interface {
	Create(ctx context.Context, session *model.QuizSession) (*model.AttemptHistory, error)
}

type StartSessionInput struct {
	UserID        uint
	CategoryID    string
	Difficulty    model.Difficulty
	TimeLimit     int
	QuestionCount int
}

type SubmitAnswerInput struct {
	SessionID      string
	UserID         uint
	QuestionID     string
	SelectedAnswer string
	TimeSpent      int
}

type AnswerResult struct {
	QuestionID    string             `json:"questionId"`
	IsCorrect     bool               `json:"isCorrect"`
	Score         model.ScoreSummary `json:"score"`
	AnsweredCount int                `json:"answeredCount"`
	TimeRemaining int                `json:"timeRemaining"`
}

type QuizSessionService struct {
	SessionRepo  *repository.QuizSessionRepository
	QuestionRepo *repository.QuestionRepository
	CategoryRepo *repository.CategoryRepository
	History      HistoryRecorder
	Shuffle      Shuffler
	Now          func() time.Time

	mu       sync.RWMutex
	settings config.QuizConfig
}

func NewQuizSessionService(
	sessionRepo *repository.QuizSessionRepository,
	questionRepo *repository.QuestionRepository,
	categoryRepo *repository.CategoryRepository,
	history HistoryRecorder,
	cfg config.QuizConfig,
) *QuizSessionService {
	return &QuizSessionService{
		SessionRepo:  sessionRepo,
		QuestionRepo: questionRepo,
		CategoryRepo: categoryRepo,
		History:      history,
		Shuffle:      rand.Shuffle,
		Now:          time.Now,
		settings:     cfg,
	}
}

// UpdateSettings 配置热更新时调整默认时长和题量
func (s *QuizSessionService) UpdateSettings(cfg config.QuizConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = cfg
}

func (s *QuizSessionService) Settings() config.QuizConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// NewSessionID 生成 qs_<毫秒时间戳>_<8位十六进制> 形式的会话 ID
func NewSessionID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	return "qs_" + strconv.FormatInt(now.UnixMilli(), 10) + "_" + suffix
}

func (s *QuizSessionService) Start(ctx context.Context, in StartSessionInput) (session *model.QuizSession, err error) {
	ctx, span := tracing.Start(ctx, "QuizSessionService.Start",
		attribute.String("category_id", in.CategoryID),
		attribute.Int("user_id", int(in.UserID)),
	)
	defer func() { tracing.End(span, err) }()

	settings := s.Settings()
	if in.TimeLimit <= 0 {
		in.TimeLimit = settings.DefaultTimeLimit
	}
	if in.QuestionCount <= 0 {
		in.QuestionCount = settings.DefaultQuestionCount
	}
	if in.TimeLimit > util.MaxTimeLimit {
		return nil, util.NewValidationError(util.FieldError{
			Field:   "timeLimit",
			Message: fmt.Sprintf("must be at most %d seconds", util.MaxTimeLimit),
		})
	}
	if in.QuestionCount > settings.MaxQuestionCount {
		return nil, util.NewValidationError(util.FieldError{
			Field:   "questionCount",
			Message: fmt.Sprintf("must be at most %d", settings.MaxQuestionCount),
		})
	}
	if in.Difficulty != "" && in.Difficulty != model.DifficultyMixed && !in.Difficulty.Valid() {
		return nil, util.NewValidationError(util.FieldError{Field: "difficulty", Message: "must be one of [easy medium hard mixed]"})
	}

	category, err := s.CategoryRepo.FindByID(ctx, in.CategoryID)
	if err != nil {
		return nil, notFound(err, util.ErrCategoryNotFound)
	}
	if !category.IsActive {
		return nil, util.ErrCategoryInactive
	}

	now := s.Now()

	// 先查后写，同一用户并发开始时可能都通过检查
	existing, err := s.SessionRepo.FindInProgress(ctx, in.UserID, in.CategoryID)
	switch {
	case err == nil:
		if !existing.IsExpired(now) {
			return nil, &util.ActiveSessionError{
				SessionID:     existing.SessionID,
				TimeRemaining: existing.RemainingTime(now),
			}
		}
		if err := s.expire(ctx, existing); err != nil {
			return nil, err
		}
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}

	pool, err := s.QuestionRepo.FindActiveForSession(ctx, in.CategoryID, in.Difficulty, candidatePoolSize(in.QuestionCount))
	if err != nil {
		return nil, err
	}
	if len(pool) == 0 {
		return nil, util.ErrNoQuestionsAvailable
	}

	s.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	if len(pool) > in.QuestionCount {
		pool = pool[:in.QuestionCount]
	}

	snapshot := make([]model.SessionQuestion, 0, len(pool))
	for i := range pool {
		snapshot = append(snapshot, model.SnapshotQuestion(&pool[i]))
	}

	difficulty := in.Difficulty
	if difficulty == "" {
		difficulty = model.DifficultyMixed
	}

	session = &model.QuizSession{
		SessionID:     NewSessionID(now),
		UserID:        in.UserID,
		CategoryID:    in.CategoryID,
		Difficulty:    difficulty,
		Questions:     snapshot,
		Answers:       []model.SessionAnswer{},
		Status:        model.SessionInProgress,
		StartedAt:     now,
		TimeLimit:     in.TimeLimit,
		TimeRemaining: in.TimeLimit,
	}
	session.RecalculateScore()

	if err := s.SessionRepo.Create(ctx, session); err != nil {
		return nil, err
	}

	monitoring.QuizSessionsStarted.WithLabelValues(string(difficulty)).Inc()
	logger.Log.Info("Quiz session started",
		zap.String("session_id", session.SessionID),
		zap.Uint("user_id", in.UserID),
		zap.String("category_id", in.CategoryID),
		zap.Int("questions", len(snapshot)),
	)
	return session, nil
}

func candidatePoolSize(count int) int {
	if count*3 > count {
		return count * 3
	}
	return count
}

// loadActive 读取调用者自己的进行中会话，过期会话在此处落库为 expired
func (s *QuizSessionService) loadActive(ctx context.Context, sessionID string, userID uint) (*model.QuizSession, error) {
	session, err := s.SessionRepo.FindBySessionID(ctx, sessionID)
	if err != nil {
		return nil, notFound(err, util.ErrSessionNotActive)
	}
	if session.UserID != userID || session.Status != model.SessionInProgress {
		return nil, util.ErrSessionNotActive
	}
	if session.IsExpired(s.Now()) {
		if err := s.expire(ctx, session); err != nil {
			return nil, err
		}
		return session, util.ErrSessionExpired
	}
	return session, nil
}

// expire 以截止时间作为结束时间
func (s *QuizSessionService) expire(ctx context.Context, session *model.QuizSession) error {
	session.Finish(model.SessionExpired, session.Deadline())
	if err := s.SessionRepo.Save(ctx, session); err != nil {
		return err
	}
	monitoring.QuizSessionsFinished.WithLabelValues(string(model.SessionExpired)).Inc()
	logger.Log.Info("Quiz session expired", zap.String("session_id", session.SessionID))
	s.recordHistory(ctx, session)
	return nil
}

func (s *QuizSessionService) SubmitAnswer(ctx context.Context, in SubmitAnswerInput) (result *AnswerResult, err error) {
	ctx, span := tracing.Start(ctx, "QuizSessionService.SubmitAnswer", attribute.String("session_id", in.SessionID))
	defer func() { tracing.End(span, err) }()

	session, err := s.loadActive(ctx, in.SessionID, in.UserID)
	if errors.Is(err, util.ErrSessionExpired) {
		return &AnswerResult{
			QuestionID:    in.QuestionID,
			Score:         session.Score,
			AnsweredCount: len(session.Answers),
		}, err
	}
	if err != nil {
		return nil, err
	}

	question, ok := session.FindQuestion(in.QuestionID)
	if !ok {
		return nil, util.ErrQuestionNotInSession
	}
	if in.TimeSpent < 0 {
		in.TimeSpent = 0
	}

	now := s.Now()
	isCorrect := in.SelectedAnswer == question.CorrectAnswer
	session.RecordAnswer(model.SessionAnswer{
		QuestionID:     in.QuestionID,
		SelectedAnswer: in.SelectedAnswer,
		IsCorrect:      isCorrect,
		TimeSpent:      in.TimeSpent,
		AnsweredAt:     now,
	})
	score := session.RecalculateScore()
	session.TimeRemaining = session.RemainingTime(now)

	if err := s.SessionRepo.Save(ctx, session); err != nil {
		return nil, err
	}

	monitoring.QuizAnswers.WithLabelValues(strconv.FormatBool(isCorrect)).Inc()
	return &AnswerResult{
		QuestionID:    in.QuestionID,
		IsCorrect:     isCorrect,
		Score:         score,
		AnsweredCount: len(session.Answers),
		TimeRemaining: session.TimeRemaining,
	}, nil
}

func (s *QuizSessionService) Complete(ctx context.Context, sessionID string, userID uint) (result *SessionResult, err error) {
	ctx, span := tracing.Start(ctx, "QuizSessionService.Complete", attribute.String("session_id", sessionID))
	defer func() { tracing.End(span, err) }()

	session, err := s.loadActive(ctx, sessionID, userID)
	if errors.Is(err, util.ErrSessionExpired) {
		return NewSessionResult(session), err
	}
	if err != nil {
		return nil, err
	}

	session.Finish(model.SessionCompleted, s.Now())
	if err := s.SessionRepo.Save(ctx, session); err != nil {
		return nil, err
	}
	monitoring.QuizSessionsFinished.WithLabelValues(string(model.SessionCompleted)).Inc()

	s.recordQuestionStats(ctx, session)
	history := s.recordHistory(ctx, session)

	result = NewSessionResult(session)
	if history != nil {
		result.AttemptID = history.ID
		result.Comparison = &history.Comparison
	}
	return result, nil
}

func (s *QuizSessionService) Abandon(ctx context.Context, sessionID string, userID uint) (result *SessionResult, err error) {
	ctx, span := tracing.Start(ctx, "QuizSessionService.Abandon", attribute.String("session_id", sessionID))
	defer func() { tracing.End(span, err) }()

	session, err := s.loadActive(ctx, sessionID, userID)
	if errors.Is(err, util.ErrSessionExpired) {
		return NewSessionResult(session), err
	}
	if err != nil {
		return nil, err
	}

	session.Finish(model.SessionAbandoned, s.Now())
	if err := s.SessionRepo.Save(ctx, session); err != nil {
		return nil, err
	}
	monitoring.QuizSessionsFinished.WithLabelValues(string(model.SessionAbandoned)).Inc()

	history := s.recordHistory(ctx, session)
	result = NewSessionResult(session)
	if history != nil {
		result.AttemptID = history.ID
	}
	return result, nil
}

// GetResults 本人或管理员可查看；进行中的会话不返回逐题明细
func (s *QuizSessionService) GetResults(ctx context.Context, sessionID string, principal Principal) (*SessionResult, error) {
	session, err := s.SessionRepo.FindBySessionID(ctx, sessionID)
	if err != nil {
		return nil, notFound(err, util.ErrSessionNotFound)
	}
	if !principal.CanAccess(session.UserID) {
		return nil, util.ErrPermissionDenied
	}
	if err := s.refresh(ctx, session); err != nil {
		return nil, err
	}
	return NewSessionResult(session), nil
}

// GetActive 当前用户在某分类下进行中的会话
func (s *QuizSessionService) GetActive(ctx context.Context, userID uint, categoryID string) (*model.QuizSession, error) {
	session, err := s.SessionRepo.FindInProgress(ctx, userID, categoryID)
	if err != nil {
		return nil, notFound(err, util.ErrSessionNotActive)
	}
	if session.IsExpired(s.Now()) {
		if err := s.expire(ctx, session); err != nil {
			return nil, err
		}
		return nil, util.ErrSessionNotActive
	}
	session.TimeRemaining = session.RemainingTime(s.Now())
	return session, nil
}

func (s *QuizSessionService) ListHistory(ctx context.Context, userID uint, status model.SessionStatus, p util.Pagination) ([]model.QuizSession, int64, error) {
	sessions, total, err := s.SessionRepo.ListByUser(ctx, userID, status, p)
	if err != nil {
		return nil, 0, err
	}
	for i := range sessions {
		if err := s.refresh(ctx, &sessions[i]); err != nil {
			return nil, 0, err
		}
	}
	return sessions, total, nil
}

// refresh 读取时执行过期检查并更新剩余时间
func (s *QuizSessionService) refresh(ctx context.Context, session *model.QuizSession) error {
	if session.Status != model.SessionInProgress {
		return nil
	}
	now := s.Now()
	if session.IsExpired(now) {
		return s.expire(ctx, session)
	}
	session.TimeRemaining = session.RemainingTime(now)
	return nil
}

// recordQuestionStats 失败只记录日志，不影响交卷结果
func (s *QuizSessionService) recordQuestionStats(ctx context.Context, session *model.QuizSession) {
	for _, a := range session.Answers {
		if err := s.QuestionRepo.RecordAttempt(ctx, a.QuestionID, a.IsCorrect, a.TimeSpent); err != nil {
			monitoring.SideEffectFailures.WithLabelValues("question_stats").Inc()
			logger.Log.Warn("Failed to update question stats",
				zap.String("session_id", session.SessionID),
				zap.String("question_id", a.QuestionID),
				zap.Error(err),
			)
		}
	}
}

func (s *QuizSessionService) recordHistory(ctx context.Context, session *model.QuizSession) *model.AttemptHistory {
	if s.History == nil {
		return nil
	}
	history, err := s.History.Create(ctx, session)
	if err != nil {
		monitoring.SideEffectFailures.WithLabelValues("attempt_history").Inc()
		logger.Log.Warn("Failed to create attempt history",
			zap.String("session_id", session.SessionID),
			zap.Error(err),
		)
		return nil
	}
	return history
}
