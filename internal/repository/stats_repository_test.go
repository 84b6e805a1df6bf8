package repository

import (
	"context"
	"sync"
	"testing"

	"quiz_edu_backend/internal/config"
	"quiz_edu_backend/internal/model"
	"quiz_edu_backend/pkg/database"

	"gorm.io/gorm"
)

func newSQLiteDB(t *testing.T) *gorm.DB {
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

// assertConcurrentStats 并发累加作答和评审统计，计数不能丢失
func assertConcurrentStats(t *testing.T, db *gorm.DB) {
	t.Helper()
	ctx := context.Background()
	questions := NewQuestionRepository(db)
	challenges := NewCodingChallengeRepository(db)

	question := &model.Question{Text: "q", Kind: model.KindMCQ, CategoryID: "cat-1", Difficulty: model.DifficultyEasy, Status: model.QuestionActive}
	if err := questions.Create(ctx, question); err != nil {
		t.Fatalf("create question: %v", err)
	}
	challenge := &model.CodingChallenge{Title: "sum", Description: "add two numbers", IsActive: true}
	if err := challenges.Create(ctx, challenge); err != nil {
		t.Fatalf("create challenge: %v", err)
	}

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers*2)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- questions.RecordAttempt(ctx, question.ID, i%2 == 0, 10)
			errs <- challenges.RecordReview(ctx, challenge.ID, 80)
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("record stats: %v", err)
		}
	}

	stored, err := questions.FindByID(ctx, question.ID)
	if err != nil {
		t.Fatalf("find question: %v", err)
	}
	if stored.Stats.Attempts != workers || stored.Stats.CorrectCount != workers/2 || stored.Stats.AverageTime != 10 {
		t.Fatalf("unexpected question stats %+v", stored.Stats)
	}

	reviewed, err := challenges.FindByID(ctx, challenge.ID)
	if err != nil {
		t.Fatalf("find challenge: %v", err)
	}
	if reviewed.Stats.ReviewedSubmissions != workers || reviewed.Stats.AverageScore != 80 {
		t.Fatalf("unexpected challenge stats %+v", reviewed.Stats)
	}
}

func TestStatsCountersAccumulate(t *testing.T) {
	assertConcurrentStats(t, newSQLiteDB(t))
}
