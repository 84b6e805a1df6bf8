package repository

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"quiz_edu_backend/internal/config"
	"quiz_edu_backend/internal/model"
	"quiz_edu_backend/pkg/database"

	"github.com/go-redis/redis/v8"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"
)

func requireDocker(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test skipped in short mode")
	}
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}

func startContainer(t *testing.T, ctx context.Context, req tc.ContainerRequest) (tc.Container, string) {
	t.Helper()
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start %s: %v", req.Image, err)
	}
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	return container, host
}

func startPostgres(t *testing.T, ctx context.Context) *gorm.DB {
	t.Helper()
	container, host := startContainer(t, ctx, tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	})
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}

	db, err := database.InitDB(&config.Config{
		Server: config.ServerConfig{Mode: "test"},
		Database: config.DatabaseConfig{
			Driver:   "postgres",
			Host:     host,
			Port:     port.Int(),
			User:     "quiz",
			Password: "quizpass",
			DBName:   "quizdb",
			SSLMode:  "disable",
		},
	})
	if err != nil {
		t.Fatalf("init postgres: %v", err)
	}
	return db
}

func startRedis(t *testing.T, ctx context.Context) *redis.Client {
	t.Helper()
	container, host := startContainer(t, ctx, tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	})
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}

	rdb, err := database.InitRedis(&config.RedisConfig{Host: host, Port: port.Int()})
	if err != nil {
		t.Fatalf("init redis: %v", err)
	}
	t.Cleanup(func() { rdb.Close() })
	return rdb
}

func seedAttempt(t *testing.T, db *gorm.DB, categoryID string, userID uint, percentage int, questionIDs ...string) {
	t.Helper()
	questions := make([]model.SessionQuestion, 0, len(questionIDs))
	for _, id := range questionIDs {
		questions = append(questions, model.SessionQuestion{QuestionID: id, Text: "q"})
	}
	now := time.Now()
	history := &model.AttemptHistory{
		SessionID:   fmt.Sprintf("qs_%s_%d_%d", categoryID, userID, percentage),
		UserID:      userID,
		CategoryID:  categoryID,
		Status:      model.SessionCompleted,
		Questions:   questions,
		Score:       model.ScoreSummary{Percentage: percentage},
		StartedAt:   now.Add(-time.Minute),
		CompletedAt: now,
	}
	if err := db.Create(history).Error; err != nil {
		t.Fatalf("seed attempt: %v", err)
	}
}

func TestPostgresQueries(t *testing.T) {
	requireDocker(t)
	ctx := context.Background()
	db := startPostgres(t, ctx)

	seedAttempt(t, db, "cat-1", 1, 40, "question-a")
	seedAttempt(t, db, "cat-1", 1, 90, "question-a")
	seedAttempt(t, db, "cat-1", 2, 70, "question-b")

	questions := NewQuestionRepository(db)
	referenced, err := questions.IsReferenced(ctx, "question-a")
	if err != nil || !referenced {
		t.Fatalf("expected question-a to be referenced, got %v %v", referenced, err)
	}
	referenced, err = questions.IsReferenced(ctx, "question-z")
	if err != nil || referenced {
		t.Fatalf("expected question-z to be unreferenced, got %v %v", referenced, err)
	}

	board := NewLeaderboardRepository(db, nil)
	entries, err := board.Top(ctx, "cat-1", 10)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if len(entries) != 2 || entries[0].UserID != 1 || entries[0].BestScore != 90 {
		t.Fatalf("unexpected ranking %+v", entries)
	}
	rank, ok, err := board.Rank(ctx, "cat-1", 2)
	if err != nil || !ok || rank != 2 {
		t.Fatalf("expected user 2 ranked 2nd, got %d %v %v", rank, ok, err)
	}
}

func TestPostgresStatsUnderConcurrency(t *testing.T) {
	requireDocker(t)
	assertConcurrentStats(t, startPostgres(t, context.Background()))
}

func TestRedisLeaderboard(t *testing.T) {
	requireDocker(t)
	ctx := context.Background()
	rdb := startRedis(t, ctx)
	board := NewLeaderboardRepository(nil, rdb)

	for _, r := range []struct {
		user  uint
		score int
	}{{1, 50}, {2, 80}, {1, 30}, {3, 80}} {
		if err := board.RecordBest(ctx, "cat-1", r.user, r.score); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	best, ok, err := board.Best(ctx, "cat-1", 1)
	if err != nil || !ok || best != 50 {
		t.Fatalf("lower score must not replace best, got %v %v %v", best, ok, err)
	}
	rank, _, err := board.Rank(ctx, "cat-1", 1)
	if err != nil || rank != 3 {
		t.Fatalf("expected rank 3, got %d %v", rank, err)
	}
	projected, err := board.ProjectedRank(ctx, "cat-1", 1, 100)
	if err != nil || projected != 1 {
		t.Fatalf("expected projected rank 1, got %d %v", projected, err)
	}

	entries, err := board.Top(ctx, "cat-1", 2)
	if err != nil || len(entries) != 2 || entries[0].BestScore != 80 {
		t.Fatalf("unexpected top %+v %v", entries, err)
	}
}
