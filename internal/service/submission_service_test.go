package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"quiz_edu_backend/internal/config"
	"quiz_edu_backend/internal/model"
	"quiz_edu_backend/internal/repository"
	"quiz_edu_backend/internal/util"

	"gorm.io/datatypes"
)

// fakeJudge 源码中包含期望输出即视为通过
type fakeJudge struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (j *fakeJudge) Run(ctx context.Context, req JudgeRequest) (*JudgeResult, error) {
	j.mu.Lock()
	j.calls++
	j.mu.Unlock()
	if j.err != nil {
		return nil, j.err
	}
	passed := strings.Contains(req.SourceCode, req.ExpectedOutput)
	status := "Wrong Answer"
	if passed {
		status = "Accepted"
	}
	return &JudgeResult{Status: status, Passed: passed, Stdout: "out:" + req.Stdin, TimeMs: 3}, nil
}

type submissionEnv struct {
	*testEnv
	challenges *repository.CodingChallengeRepository
	judge      *fakeJudge
	storageDir string
	svc        *ChallengeSubmissionService
}

var (
	studentPrincipal = Principal{UserID: 1, Role: model.Student}
	otherStudent     = Principal{UserID: 2, Role: model.Student}
)

func newSubmissionEnv(t *testing.T, autoGrade bool) *submissionEnv {
	t.Helper()
	env := newTestEnv(t, nil)
	dir := t.TempDir()
	se := &submissionEnv{
		testEnv:    env,
		challenges: repository.NewCodingChallengeRepository(env.db),
		judge:      &fakeJudge{},
		storageDir: dir,
	}
	storage := &StorageService{Provider: &LocalStorageProvider{Root: dir}}
	se.svc = NewChallengeSubmissionService(repository.NewChallengeSubmissionRepository(env.db), se.challenges, se.judge, storage, autoGrade)
	se.svc.Now = env.clock.Now
	return se
}

func (e *submissionEnv) seedChallenge(t *testing.T, active bool) *model.CodingChallenge {
	t.Helper()
	challenge := &model.CodingChallenge{
		Title:       "Echo",
		Description: "Print the answer",
		Difficulty:  model.DifficultyEasy,
		Languages:   datatypes.JSONSlice[string]{"python", "go"},
		HiddenTests: datatypes.JSONSlice[model.TestCase]{
			{Input: "1", ExpectedOutput: "one", IsHidden: true},
			{Input: "2", ExpectedOutput: "two", IsHidden: true},
		},
		IsActive: active,
	}
	if err := e.challenges.Create(context.Background(), challenge); err != nil {
		t.Fatalf("create challenge: %v", err)
	}
	return challenge
}

func TestChallengeSubmissionLifecycle(t *testing.T) {
	env := newSubmissionEnv(t, false)
	ctx := context.Background()
	challenge := env.seedChallenge(t, true)

	draft, err := env.svc.SaveDraft(ctx, challenge.ID, studentPrincipal, DraftInput{Code: "print('one')", Language: "python"})
	if err != nil {
		t.Fatalf("save draft: %v", err)
	}
	if draft.Status != model.SubmissionDraft || draft.Version != 0 {
		t.Fatalf("unexpected draft %+v", draft)
	}

	submitted, err := env.svc.Submit(ctx, challenge.ID, studentPrincipal, DraftInput{})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if submitted.ID != draft.ID || submitted.Status != model.SubmissionSubmitted || submitted.Version != 1 || len(submitted.History) != 1 {
		t.Fatalf("unexpected submission %+v", submitted)
	}
	if submitted.TestResult != nil || env.judge.calls != 0 {
		t.Fatal("tests must not run when auto grading is off")
	}

	if _, err := env.svc.SaveDraft(ctx, challenge.ID, studentPrincipal, DraftInput{Code: "x"}); !errors.Is(err, util.ErrSubmissionNotEditable) {
		t.Fatalf("submitted work must be locked, got %v", err)
	}

	if _, err := env.svc.StartReview(ctx, submitted.ID, studentPrincipal); !errors.Is(err, util.ErrPermissionDenied) {
		t.Fatalf("students cannot review, got %v", err)
	}
	underReview, err := env.svc.StartReview(ctx, submitted.ID, adminPrincipal)
	if err != nil || underReview.Status != model.SubmissionUnderReview {
		t.Fatalf("start review: %+v %v", underReview, err)
	}

	rejected, err := env.svc.Reject(ctx, submitted.ID, adminPrincipal, RejectInput{Feedback: "handle empty input"})
	if err != nil || rejected.Status != model.SubmissionRejected {
		t.Fatalf("reject: %+v %v", rejected, err)
	}

	resubmitted, err := env.svc.Submit(ctx, challenge.ID, studentPrincipal, DraftInput{Code: "print('one two')"})
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if resubmitted.Version != 2 || len(resubmitted.History) != 2 || resubmitted.Review != nil {
		t.Fatalf("expected version 2 with cleared review, got %+v", resubmitted)
	}

	reviewed, err := env.svc.Review(ctx, resubmitted.ID, adminPrincipal, ReviewInput{
		Score:    90,
		Feedback: "good",
		Rubric:   []model.RubricCriterion{{Name: "style", Score: 4, MaxScore: 5}},
	})
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	if reviewed.Status != model.SubmissionReviewed || reviewed.Review.Score != 90 || reviewed.Review.ReviewerID != adminPrincipal.UserID {
		t.Fatalf("unexpected review %+v", reviewed.Review)
	}
	if _, err := env.svc.Review(ctx, resubmitted.ID, adminPrincipal, ReviewInput{Score: 10, Feedback: "again"}); !errors.Is(err, util.ErrSubmissionState) {
		t.Fatalf("reviewed submissions cannot be reviewed again, got %v", err)
	}

	stored, err := env.challenges.FindByID(ctx, challenge.ID)
	if err != nil {
		t.Fatalf("find challenge: %v", err)
	}
	if stored.Stats.TotalSubmissions != 2 || stored.Stats.ReviewedSubmissions != 1 || stored.Stats.AverageScore != 90 {
		t.Fatalf("unexpected challenge stats %+v", stored.Stats)
	}
}

func TestChallengeSubmissionValidation(t *testing.T) {
	env := newSubmissionEnv(t, false)
	ctx := context.Background()
	challenge := env.seedChallenge(t, true)
	inactive := env.seedChallenge(t, false)

	if _, err := env.svc.SaveDraft(ctx, inactive.ID, studentPrincipal, DraftInput{Code: "x"}); !errors.Is(err, util.ErrChallengeInactive) {
		t.Fatalf("expected inactive challenge, got %v", err)
	}
	if _, err := env.svc.SaveDraft(ctx, "missing", studentPrincipal, DraftInput{Code: "x"}); !errors.Is(err, util.ErrChallengeNotFound) {
		t.Fatalf("expected challenge not found, got %v", err)
	}

	names := fieldNames(func() error {
		_, err := env.svc.SaveDraft(ctx, challenge.ID, studentPrincipal, DraftInput{Code: "x", Language: "cobol"})
		return err
	}())
	if len(names) != 1 || names[0] != "language" {
		t.Fatalf("expected language field error, got %v", names)
	}

	names = fieldNames(func() error {
		_, err := env.svc.Submit(ctx, challenge.ID, studentPrincipal, DraftInput{})
		return err
	}())
	if len(names) != 2 {
		t.Fatalf("expected code and language errors, got %v", names)
	}

	submitted, err := env.svc.Submit(ctx, challenge.ID, studentPrincipal, DraftInput{Code: "x", Language: "go"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	var verr *util.ValidationError
	if _, err := env.svc.Review(ctx, submitted.ID, adminPrincipal, ReviewInput{Score: 101, Feedback: "x"}); !errors.As(err, &verr) {
		t.Fatalf("expected score validation error, got %v", err)
	}
	if _, err := env.svc.Review(ctx, submitted.ID, adminPrincipal, ReviewInput{
		Score: 50, Feedback: "x", Rubric: []model.RubricCriterion{{Name: "tests", Score: 6, MaxScore: 5}},
	}); !errors.As(err, &verr) {
		t.Fatalf("expected rubric validation error, got %v", err)
	}
}

func TestChallengeSubmissionVisibility(t *testing.T) {
	env := newSubmissionEnv(t, true)
	ctx := context.Background()
	challenge := env.seedChallenge(t, true)

	submitted, err := env.svc.Submit(ctx, challenge.ID, studentPrincipal, DraftInput{Code: "print('one')", Language: "python"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if env.judge.calls != 2 || submitted.TestResult == nil {
		t.Fatalf("expected auto grading to run hidden tests, calls=%d", env.judge.calls)
	}
	if submitted.TestResult.Passed != 1 || submitted.TestResult.Score != 50 {
		t.Fatalf("unexpected test result %+v", submitted.TestResult)
	}

	if _, err := env.svc.Get(ctx, submitted.ID, otherStudent); !errors.Is(err, util.ErrPermissionDenied) {
		t.Fatalf("other students must be denied, got %v", err)
	}
	own, err := env.svc.Get(ctx, submitted.ID, studentPrincipal)
	if err != nil {
		t.Fatalf("get own: %v", err)
	}
	for _, d := range own.TestResult.Details {
		if d.ExpectedOutput != "" || d.Stdout != "" {
			t.Fatalf("hidden test details leaked to the student: %+v", d)
		}
	}
	full, err := env.svc.Get(ctx, submitted.ID, adminPrincipal)
	if err != nil || full.TestResult.Details[0].ExpectedOutput != "one" {
		t.Fatalf("admins should see full details, got %+v %v", full, err)
	}

	mine, total, err := env.svc.ListMine(ctx, otherStudent, "", util.Pagination{Page: 1, Limit: 10})
	if err != nil || total != 0 || len(mine) != 0 {
		t.Fatalf("expected no submissions for the other student, got %d %v", total, err)
	}
}

func TestRunTestsRequiresJudge(t *testing.T) {
	env := newSubmissionEnv(t, false)
	ctx := context.Background()
	challenge := env.seedChallenge(t, true)

	draft, err := env.svc.SaveDraft(ctx, challenge.ID, studentPrincipal, DraftInput{Code: "one two", Language: "go"})
	if err != nil {
		t.Fatalf("save draft: %v", err)
	}
	if _, err := env.svc.RunTests(ctx, draft.ID, adminPrincipal); !errors.Is(err, util.ErrSubmissionState) {
		t.Fatalf("drafts cannot be tested, got %v", err)
	}

	submitted, err := env.svc.Submit(ctx, challenge.ID, studentPrincipal, DraftInput{})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	graded, err := env.svc.RunTests(ctx, submitted.ID, adminPrincipal)
	if err != nil {
		t.Fatalf("run tests: %v", err)
	}
	if graded.TestResult.Passed != 2 || graded.TestResult.Score != 100 {
		t.Fatalf("unexpected result %+v", graded.TestResult)
	}

	env.svc.Judge = nil
	if _, err := env.svc.RunTests(ctx, submitted.ID, adminPrincipal); !errors.Is(err, util.ErrJudgeUnavailable) {
		t.Fatalf("expected judge unavailable, got %v", err)
	}
}

func TestUploadSourceStoresFile(t *testing.T) {
	env := newSubmissionEnv(t, false)
	ctx := context.Background()
	challenge := env.seedChallenge(t, true)

	draft, err := env.svc.SaveDraft(ctx, challenge.ID, studentPrincipal, DraftInput{Language: "python"})
	if err != nil {
		t.Fatalf("save draft: %v", err)
	}

	if _, err := env.svc.UploadSource(ctx, draft.ID, otherStudent, "main.py", strings.NewReader("print(1)"), 8); !errors.Is(err, util.ErrPermissionDenied) {
		t.Fatalf("expected permission denied, got %v", err)
	}
	names := fieldNames(func() error {
		_, err := env.svc.UploadSource(ctx, draft.ID, studentPrincipal, "main.exe", strings.NewReader("x"), 1)
		return err
	}())
	if len(names) != 1 || names[0] != "file" {
		t.Fatalf("expected file type error, got %v", names)
	}

	updated, err := env.svc.UploadSource(ctx, draft.ID, studentPrincipal, "main.py", strings.NewReader("print('one')"), 12)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if updated.Code != "print('one')" || !strings.HasPrefix(updated.SourceFileURL, "/uploads/submissions/"+draft.ID+"/") {
		t.Fatalf("unexpected upload result %+v", updated)
	}
	stored := filepath.Join(env.storageDir, filepath.FromSlash(strings.TrimPrefix(updated.SourceFileURL, "/uploads/")))
	data, err := os.ReadFile(stored)
	if err != nil || string(data) != "print('one')" {
		t.Fatalf("expected file on disk, got %q %v", data, err)
	}

	big := strings.Repeat("a", util.MaxSourceFileSize+1)
	if _, err := env.svc.UploadSource(ctx, draft.ID, studentPrincipal, "main.py", strings.NewReader(big), int64(len(big))); fieldNames(err) == nil {
		t.Fatalf("expected size validation error, got %v", err)
	}
}

func seedCodingQuestion(t *testing.T, env *testEnv) *model.Question {
	t.Helper()
	category := env.seedCategory(t, "Coding")
	body, _ := json.Marshal(model.CodingBody{
		Language: "python",
		TestCases: []model.TestCase{
			{Input: "a", ExpectedOutput: "alpha"},
			{Input: "b", ExpectedOutput: "beta", IsHidden: true},
		},
	})
	question := &model.Question{
		Text:       "Map letters",
		Kind:       model.KindCoding,
		CategoryID: category.ID,
		Difficulty: model.DifficultyMedium,
		Body:       datatypes.JSON(body),
		Status:     model.QuestionActive,
	}
	if err := env.questions.Create(context.Background(), question); err != nil {
		t.Fatalf("create coding question: %v", err)
	}
	return question
}

func TestCodingSubmissionJudging(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	question := seedCodingQuestion(t, env)
	judge := &fakeJudge{}
	svc := NewCodingSubmissionService(repository.NewCodingSubmissionRepository(env.db), env.questions, judge)

	partial, err := svc.Submit(ctx, studentPrincipal, CodeSubmitInput{QuestionID: question.ID, Code: "alpha"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if partial.Status != model.JudgeWrongAnswer || partial.Score != 50 || partial.Language != "python" {
		t.Fatalf("unexpected partial result %+v", partial)
	}
	if partial.Results[1].ExpectedOutput != "" || partial.Results[0].ExpectedOutput != "alpha" {
		t.Fatalf("hidden case should be masked, got %+v", partial.Results)
	}

	accepted, err := svc.Submit(ctx, studentPrincipal, CodeSubmitInput{QuestionID: question.ID, Code: "alpha beta"})
	if err != nil || accepted.Status != model.JudgeAccepted || accepted.Score != 100 {
		t.Fatalf("expected accepted, got %+v %v", accepted, err)
	}

	judge.err = errors.New("sandbox down")
	failed, err := svc.Submit(ctx, studentPrincipal, CodeSubmitInput{QuestionID: question.ID, Code: "alpha"})
	if err != nil || failed.Status != model.JudgeError || failed.Message != "sandbox down" {
		t.Fatalf("expected error status, got %+v %v", failed, err)
	}

	stored, err := env.questions.FindByID(ctx, question.ID)
	if err != nil || stored.Stats.Attempts != 2 || stored.Stats.CorrectCount != 1 {
		t.Fatalf("expected 2 recorded attempts, got %+v %v", stored.Stats, err)
	}

	if _, err := svc.Get(ctx, accepted.ID, otherStudent); !errors.Is(err, util.ErrPermissionDenied) {
		t.Fatalf("expected permission denied, got %v", err)
	}
	_, total, err := svc.ListMine(ctx, studentPrincipal, question.ID, util.Pagination{Page: 1, Limit: 10})
	if err != nil || total != 3 {
		t.Fatalf("expected 3 submissions, got %d %v", total, err)
	}

	mcq := env.seedMCQ(t, question.CategoryID, "not code", "a")
	if _, err := svc.Submit(ctx, studentPrincipal, CodeSubmitInput{QuestionID: mcq.ID, Code: "x"}); !errors.Is(err, util.ErrValidation) {
		t.Fatalf("expected validation error for non-coding question, got %v", err)
	}

	svc.Judge = nil
	if _, err := svc.Submit(ctx, studentPrincipal, CodeSubmitInput{QuestionID: question.ID, Code: "x"}); !errors.Is(err, util.ErrJudgeUnavailable) {
		t.Fatalf("expected judge unavailable, got %v", err)
	}
}

func TestJudge0ClientRun(t *testing.T) {
	var got judge0Submission
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/submissions" || r.URL.Query().Get("wait") != "true" {
			http.Error(w, "bad path", http.StatusNotFound)
			return
		}
		if r.Header.Get("X-RapidAPI-Key") != "secret" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"stdout":"42\n","stderr":null,"compile_output":null,"time":"0.250","status":{"id":3,"description":"Accepted"}}`))
	}))
	defer server.Close()

	client := NewJudge0Client(config.Judge0Config{URL: server.URL + "/", APIKey: "secret"})
	result, err := client.Run(context.Background(), JudgeRequest{SourceCode: "print(42)", Language: "Python", ExpectedOutput: "42"})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !result.Passed || result.Status != "Accepted" || result.Stdout != "42\n" || result.TimeMs != 250 {
		t.Fatalf("unexpected result %+v", result)
	}
	if got.LanguageID != 71 || got.SourceCode != "print(42)" || got.ExpectedOutput != "42" {
		t.Fatalf("unexpected payload %+v", got)
	}

	if _, err := client.Run(context.Background(), JudgeRequest{SourceCode: "x", Language: "cobol"}); !errors.Is(err, util.ErrValidation) {
		t.Fatalf("expected unsupported language error, got %v", err)
	}

	unauthorized := NewJudge0Client(config.Judge0Config{URL: server.URL})
	if _, err := unauthorized.Run(context.Background(), JudgeRequest{SourceCode: "x", Language: "go"}); err == nil || !strings.Contains(err.Error(), "401") {
		t.Fatalf("expected http error, got %v", err)
	}

	if _, err := NewJudge0Client(config.Judge0Config{}).Run(context.Background(), JudgeRequest{Language: "go"}); !errors.Is(err, util.ErrJudgeUnavailable) {
		t.Fatalf("expected judge unavailable, got %v", err)
	}
}
