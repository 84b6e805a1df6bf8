package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"quiz_edu_backend/internal/config"
	"quiz_edu_backend/internal/model"
	"quiz_edu_backend/internal/repository"
	"quiz_edu_backend/pkg/database"

	"github.com/go-redis/redis/v8"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type testEnv struct {
	db    *gorm.DB
	clock *fakeClock

	categories  *repository.CategoryRepository
	questions   *repository.QuestionRepository
	sessions    *repository.QuizSessionRepository
	histories   *repository.AttemptHistoryRepository
	leaderboard *repository.LeaderboardRepository

	history *AttemptHistoryService
	quiz    *QuizSessionService
}

var testQuizConfig = config.QuizConfig{
	DefaultTimeLimit:     600,
	DefaultQuestionCount: 10,
	MaxQuestionCount:     50,
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.InitDB(&config.Config{
		Server:   config.ServerConfig{Mode: "test"},
		Database: config.DatabaseConfig{Driver: "sqlite", Path: ":memory:"},
	})
	if err != nil {
		t.Fatalf("init db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// newTestEnv rdb 为 nil 时排行榜走数据库聚合
func newTestEnv(t *testing.T, rdb *redis.Client) *testEnv {
	t.Helper()
	db := newTestDB(t)
	clock := &fakeClock{now: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)}

	env := &testEnv{
		db:          db,
		clock:       clock,
		categories:  repository.NewCategoryRepository(db),
		questions:   repository.NewQuestionRepository(db),
		sessions:    repository.NewQuizSessionRepository(db),
		histories:   repository.NewAttemptHistoryRepository(db),
		leaderboard: repository.NewLeaderboardRepository(db, rdb),
	}
	env.history = NewAttemptHistoryService(env.histories, env.categories, env.leaderboard)
	env.history.Now = clock.Now

	env.quiz = NewQuizSessionService(env.sessions, env.questions, env.categories, env.history, testQuizConfig)
	env.quiz.Now = clock.Now
	env.quiz.Shuffle = func(int, func(i, j int)) {}
	return env
}

func (e *testEnv) seedCategory(t *testing.T, name string) *model.Category {
	t.Helper()
	category := &model.Category{Name: name, IsActive: true, Difficulty: model.DifficultyMedium}
	if err := e.categories.Create(context.Background(), category); err != nil {
		t.Fatalf("create category: %v", err)
	}
	return category
}

// seedMCQ 生成三个选项的选择题，正确选项为 correct
func (e *testEnv) seedMCQ(t *testing.T, categoryID, text, correct string) *model.Question {
	t.Helper()
	options := []model.Option{{Text: correct, IsCorrect: true}, {Text: "wrong-1"}, {Text: "wrong-2"}}
	body, err := json.Marshal(model.MCQBody{Options: options})
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	question := &model.Question{
		Text:          text,
		Kind:          model.KindMCQ,
		CategoryID:    categoryID,
		Difficulty:    model.DifficultyEasy,
		Points:        1,
		Body:          datatypes.JSON(body),
		CorrectAnswer: correct,
		Status:        model.QuestionActive,
	}
	if err := e.questions.Create(context.Background(), question); err != nil {
		t.Fatalf("create question: %v", err)
	}
	return question
}

func (e *testEnv) startSession(t *testing.T, userID uint, categoryID string) *model.QuizSession {
	t.Helper()
	session, err := e.quiz.Start(context.Background(), StartSessionInput{UserID: userID, CategoryID: categoryID})
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	return session
}

func (e *testEnv) answer(t *testing.T, session *model.QuizSession, index int, selected string) *AnswerResult {
	t.Helper()
	result, err := e.quiz.SubmitAnswer(context.Background(), SubmitAnswerInput{
		SessionID:      session.SessionID,
		UserID:         session.UserID,
		QuestionID:     session.Questions[index].QuestionID,
		SelectedAnswer: selected,
		TimeSpent:      5,
	})
	if err != nil {
		t.Fatalf("submit answer %d: %v", index, err)
	}
	return result
}
