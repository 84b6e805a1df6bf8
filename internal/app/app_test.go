package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"quiz_edu_backend/internal/config"
	"quiz_edu_backend/internal/model"
	"quiz_edu_backend/internal/service"
	"quiz_edu_backend/internal/util"
	"quiz_edu_backend/pkg/database"

	"github.com/gin-gonic/gin"
)

type envelope struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Errors  []util.FieldError `json:"errors"`
}

type testServer struct {
	t   *testing.T
	app *App
	now time.Time
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{
		Server:    config.ServerConfig{Mode: "test"},
		Database:  config.DatabaseConfig{Driver: "sqlite", Path: ":memory:"},
		JWT:       config.JWTConfig{Secret: "app-test-secret", ExpireTime: time.Hour},
		Storage:   config.StorageConfig{Type: util.StorageLocal, LocalPath: t.TempDir()},
		Quiz:      config.QuizConfig{DefaultTimeLimit: 600, DefaultQuestionCount: 10, MaxQuestionCount: 50},
		RateLimit: config.RateLimitConfig{MaxRequests: 10000, WindowMinutes: 1},
	}
	db, err := database.InitDB(cfg)
	if err != nil {
		t.Fatalf("init db: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	ts := &testServer{t: t, app: Build(cfg, db, nil), now: time.Now()}
	ts.app.services.quizSession.Now = func() time.Time { return ts.now }
	return ts
}

func (s *testServer) do(method, path, token string, body interface{}) (int, envelope) {
	s.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			s.t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.app.Router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
			s.t.Fatalf("%s %s: decode %q: %v", method, path, w.Body.String(), err)
		}
	}
	return w.Code, env
}

func (s *testServer) expect(want int, method, path, token string, body interface{}, out interface{}) envelope {
	s.t.Helper()
	code, env := s.do(method, path, token, body)
	if code != want {
		s.t.Fatalf("%s %s: expected %d, got %d (%s)", method, path, want, code, env.Message)
	}
	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			s.t.Fatalf("%s %s: decode data: %v", method, path, err)
		}
	}
	return env
}

func (s *testServer) login(email, password string) string {
	s.t.Helper()
	var result service.LoginResult
	s.expect(http.StatusOK, http.MethodPost, "/api/auth/login", "", gin.H{"email": email, "password": password}, &result)
	return result.Token
}

func (s *testServer) seedAdmin() string {
	s.t.Helper()
	_, err := s.app.services.auth.CreateUser(context.Background(), service.RegisterInput{
		Name: "Admin", Email: "admin@example.com", Password: "admin-password",
	}, model.Admin)
	if err != nil {
		s.t.Fatalf("create admin: %v", err)
	}
	return s.login("admin@example.com", "admin-password")
}

func (s *testServer) seedStudent(email string) string {
	s.t.Helper()
	s.expect(http.StatusCreated, http.MethodPost, "/api/auth/register", "",
		gin.H{"name": "Student", "email": email, "password": "student-password"}, nil)
	return s.login(email, "student-password")
}

// seedCatalog 创建分类和三道正确选项均为 right 的选择题
func (s *testServer) seedCatalog(adminToken string) string {
	s.t.Helper()
	var category model.Category
	s.expect(http.StatusCreated, http.MethodPost, "/api/categories", adminToken, gin.H{"name": "Go"}, &category)

	for _, text := range []string{"q1", "q2", "q3"} {
		s.expect(http.StatusCreated, http.MethodPost, "/api/questions", adminToken, gin.H{
			"text":       text,
			"kind":       "mcq",
			"categoryId": category.ID,
			"difficulty": "easy",
			"status":     "active",
			"content": gin.H{"options": []gin.H{
				{"text": "right", "isCorrect": true},
				{"text": "wrong"},
			}},
		}, nil)
	}
	return category.ID
}

func TestHealthAndAuth(t *testing.T) {
	s := newTestServer(t)

	s.expect(http.StatusOK, http.MethodGet, "/api/health", "", nil, nil)

	env := s.expect(http.StatusBadRequest, http.MethodPost, "/api/auth/register", "",
		gin.H{"name": "x", "email": "not-an-email", "password": "short"}, nil)
	if env.Success || len(env.Errors) != 2 {
		t.Fatalf("expected field errors for email and password, got %+v", env)
	}

	token := s.seedStudent("student@example.com")
	s.expect(http.StatusBadRequest, http.MethodPost, "/api/auth/register", "",
		gin.H{"name": "x", "email": "STUDENT@example.com", "password": "student-password"}, nil)
	s.expect(http.StatusUnauthorized, http.MethodPost, "/api/auth/login", "",
		gin.H{"email": "student@example.com", "password": "wrong-password"}, nil)

	var me model.User
	s.expect(http.StatusOK, http.MethodGet, "/api/auth/me", token, nil, &me)
	if me.Email != "student@example.com" || me.Role != model.Student {
		t.Fatalf("unexpected profile %+v", me)
	}

	s.expect(http.StatusUnauthorized, http.MethodGet, "/api/auth/me", "", nil, nil)
	s.expect(http.StatusUnauthorized, http.MethodGet, "/api/auth/me", "garbage", nil, nil)
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	s := newTestServer(t)
	student := s.seedStudent("student@example.com")
	admin := s.seedAdmin()

	s.expect(http.StatusForbidden, http.MethodPost, "/api/categories", student, gin.H{"name": "Go"}, nil)
	s.expect(http.StatusForbidden, http.MethodGet, "/api/users", student, nil, nil)

	categoryID := s.seedCatalog(admin)
	s.expect(http.StatusBadRequest, http.MethodPost, "/api/categories", admin, gin.H{"name": "Go"}, nil)
	s.expect(http.StatusBadRequest, http.MethodDelete, "/api/categories/"+categoryID, admin, nil, nil)
	s.expect(http.StatusNotFound, http.MethodGet, "/api/categories/does-not-exist", student, nil, nil)

	var page util.PageResponse
	s.expect(http.StatusOK, http.MethodGet, "/api/users", admin, nil, &page)
	if page.Total != 2 {
		t.Fatalf("expected 2 users, got %d", page.Total)
	}
}

func TestQuizSessionFlow(t *testing.T) {
	s := newTestServer(t)
	admin := s.seedAdmin()
	student := s.seedStudent("student@example.com")
	categoryID := s.seedCatalog(admin)

	var session service.SessionView
	s.expect(http.StatusCreated, http.MethodPost, "/api/quiz-sessions/start", student, gin.H{"categoryId": categoryID}, &session)
	if len(session.Questions) != 3 || session.TimeLimit != 600 {
		t.Fatalf("unexpected session %+v", session)
	}

	env := s.expect(http.StatusBadRequest, http.MethodPost, "/api/quiz-sessions/start", student, gin.H{"categoryId": categoryID}, nil)
	var active struct {
		SessionID string `json:"sessionId"`
	}
	if err := json.Unmarshal(env.Data, &active); err != nil || active.SessionID != session.SessionID {
		t.Fatalf("expected active session id in error data, got %s", env.Data)
	}

	base := "/api/quiz-sessions/" + session.SessionID
	answers := []string{"right", "wrong", "wrong"}
	for i, q := range session.Questions {
		var result service.AnswerResult
		s.expect(http.StatusOK, http.MethodPost, base+"/answer", student,
			gin.H{"questionId": q.QuestionID, "selectedAnswer": answers[i], "timeSpent": 4}, &result)
		if result.IsCorrect != (answers[i] == "right") {
			t.Fatalf("question %d: unexpected correctness %+v", i, result)
		}
	}
	s.expect(http.StatusBadRequest, http.MethodPost, base+"/answer", student, gin.H{"questionId": "nope", "selectedAnswer": "x"}, nil)

	other := s.seedStudent("other@example.com")
	s.expect(http.StatusForbidden, http.MethodGet, base+"/results", other, nil, nil)

	var result service.SessionResult
	s.expect(http.StatusOK, http.MethodPost, base+"/submit", student, nil, &result)
	if result.Session.Score.Percentage != 33 || len(result.Breakdown) != 3 || result.AttemptID == "" {
		t.Fatalf("unexpected result %+v", result)
	}
	s.expect(http.StatusNotFound, http.MethodPost, base+"/submit", student, nil, nil)
	s.expect(http.StatusNotFound, http.MethodGet, "/api/quiz-sessions/qs_missing/results", student, nil, nil)

	var history util.PageResponse
	s.expect(http.StatusOK, http.MethodGet, "/api/attempt-history", student, nil, &history)
	if history.Total != 1 {
		t.Fatalf("expected 1 attempt, got %d", history.Total)
	}

	var board []model.LeaderboardEntry
	s.expect(http.StatusOK, http.MethodGet, "/api/attempt-history/leaderboard/"+categoryID, student, nil, &board)
	if len(board) != 1 || board[0].BestScore != 33 {
		t.Fatalf("unexpected leaderboard %+v", board)
	}
}

func TestExpiredSessionReturnsGone(t *testing.T) {
	s := newTestServer(t)
	admin := s.seedAdmin()
	student := s.seedStudent("student@example.com")
	categoryID := s.seedCatalog(admin)

	env := s.expect(http.StatusBadRequest, http.MethodPost, "/api/quiz-sessions/start", student,
		gin.H{"categoryId": categoryID, "timeLimit": 10_000_000_000}, nil)
	if len(env.Errors) != 1 || env.Errors[0].Field != "timeLimit" {
		t.Fatalf("expected time limit field error, got %+v", env.Errors)
	}

	var session service.SessionView
	s.expect(http.StatusCreated, http.MethodPost, "/api/quiz-sessions/start", student,
		gin.H{"categoryId": categoryID, "timeLimit": 60}, &session)

	s.now = s.now.Add(2 * time.Minute)
	var result service.AnswerResult
	env = s.expect(http.StatusGone, http.MethodPost, "/api/quiz-sessions/"+session.SessionID+"/answer", student,
		gin.H{"questionId": session.Questions[0].QuestionID, "selectedAnswer": "right"}, &result)
	if env.Success || result.Score.TotalQuestions != 3 || result.Score.CorrectAnswers != 0 {
		t.Fatalf("expected last score with the expiry, got %+v %+v", env, result)
	}

	var view service.SessionView
	s.expect(http.StatusCreated, http.MethodPost, "/api/quiz-sessions/start", student, gin.H{"categoryId": categoryID}, &view)
	if view.SessionID == session.SessionID {
		t.Fatal("expected a fresh session after expiry")
	}
}

func TestJudgeUnavailableWithoutConfig(t *testing.T) {
	s := newTestServer(t)
	admin := s.seedAdmin()
	student := s.seedStudent("student@example.com")
	categoryID := s.seedCatalog(admin)

	s.expect(http.StatusNotFound, http.MethodPost, "/api/coding-submissions", student,
		gin.H{"questionId": "missing", "code": "print(1)"}, nil)

	var question model.Question
	s.expect(http.StatusCreated, http.MethodPost, "/api/questions", admin, gin.H{
		"text":       "echo",
		"kind":       "coding",
		"categoryId": categoryID,
		"difficulty": "easy",
		"status":     "active",
		"content": gin.H{
			"language":  "python",
			"testCases": []gin.H{{"input": "1", "expectedOutput": "1"}},
		},
	}, &question)

	s.expect(http.StatusServiceUnavailable, http.MethodPost, "/api/coding-submissions", student,
		gin.H{"questionId": question.ID, "code": "print(input())"}, nil)
}
