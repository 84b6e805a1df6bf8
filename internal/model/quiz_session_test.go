package model

import (
	"testing"
	"time"
)

func threeQuestions() []SessionQuestion {
	return []SessionQuestion{
		{QuestionID: "q1", CorrectAnswer: "A", Points: 1, Difficulty: DifficultyEasy},
		{QuestionID: "q2", CorrectAnswer: "B", Points: 1, Difficulty: DifficultyMedium},
		{QuestionID: "q3", CorrectAnswer: "C", Points: 1, Difficulty: DifficultyHard},
	}
}

func TestCalculateScoreAllCorrect(t *testing.T) {
	answers := []SessionAnswer{
		{QuestionID: "q1", IsCorrect: true},
		{QuestionID: "q2", IsCorrect: true},
		{QuestionID: "q3", IsCorrect: true},
	}
	got := CalculateScore(threeQuestions(), answers)
	want := ScoreSummary{TotalQuestions: 3, CorrectAnswers: 3, TotalPoints: 3, EarnedPoints: 3, Percentage: 100}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestCalculateScorePartial(t *testing.T) {
	answers := []SessionAnswer{
		{QuestionID: "q1", IsCorrect: true},
		{QuestionID: "q2", IsCorrect: false},
	}
	got := CalculateScore(threeQuestions(), answers)
	if got.CorrectAnswers != 1 || got.IncorrectAnswers != 1 || got.UnansweredQuestions != 1 || got.Percentage != 33 {
		t.Fatalf("unexpected score %+v", got)
	}
	if got.CorrectAnswers+got.IncorrectAnswers != len(answers) {
		t.Fatalf("correct+incorrect must equal answer count")
	}
}

func TestCalculateScoreUsesCountNotPoints(t *testing.T) {
	questions := []SessionQuestion{
		{QuestionID: "q1", Points: 10},
		{QuestionID: "q2", Points: 1},
	}
	got := CalculateScore(questions, []SessionAnswer{{QuestionID: "q2", IsCorrect: true}})
	if got.Percentage != 50 {
		t.Fatalf("expected count based percentage 50, got %d", got.Percentage)
	}
	if got.TotalPoints != 11 || got.EarnedPoints != 1 {
		t.Fatalf("unexpected points %+v", got)
	}
}

func TestCalculateScoreDefaultsPointsAndEmpty(t *testing.T) {
	got := CalculateScore([]SessionQuestion{{QuestionID: "q1"}}, nil)
	if got.TotalPoints != 1 || got.UnansweredQuestions != 1 {
		t.Fatalf("expected default 1 point, got %+v", got)
	}

	empty := CalculateScore(nil, nil)
	if empty.Percentage != 0 || empty.TotalQuestions != 0 {
		t.Fatalf("expected zero score for empty session, got %+v", empty)
	}
}

func TestRecordAnswerOverwrites(t *testing.T) {
	s := &QuizSession{Questions: threeQuestions()}
	first := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	s.RecordAnswer(SessionAnswer{QuestionID: "q1", SelectedAnswer: "B", IsCorrect: false, AnsweredAt: first})
	s.RecordAnswer(SessionAnswer{QuestionID: "q1", SelectedAnswer: "A", IsCorrect: true, AnsweredAt: first.Add(time.Minute)})

	if len(s.Answers) != 1 {
		t.Fatalf("expected a single answer, got %d", len(s.Answers))
	}
	if s.Answers[0].SelectedAnswer != "A" || !s.Answers[0].IsCorrect || !s.Answers[0].AnsweredAt.Equal(first.Add(time.Minute)) {
		t.Fatalf("answer was not overwritten: %+v", s.Answers[0])
	}
}

func TestIsExpiredAndRemainingTime(t *testing.T) {
	start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	s := &QuizSession{Status: SessionInProgress, StartedAt: start, TimeLimit: 60}

	if s.IsExpired(start.Add(60 * time.Second)) {
		t.Fatal("session should not expire exactly at the limit")
	}
	if !s.IsExpired(start.Add(61 * time.Second)) {
		t.Fatal("session should expire after the limit")
	}
	if got := s.RemainingTime(start.Add(20 * time.Second)); got != 40 {
		t.Fatalf("expected 40s remaining, got %d", got)
	}
	if got := s.RemainingTime(start.Add(5 * time.Minute)); got != 0 {
		t.Fatalf("remaining time must clamp to 0, got %d", got)
	}

	s.Status = SessionCompleted
	if s.IsExpired(start.Add(time.Hour)) {
		t.Fatal("terminal sessions never expire")
	}
}

func TestHugeTimeLimitDoesNotWrap(t *testing.T) {
	start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	s := &QuizSession{Status: SessionInProgress, StartedAt: start, TimeLimit: 10_000_000_000}

	if s.IsExpired(start.Add(time.Second)) {
		t.Fatal("a session with a huge limit must not expire after one second")
	}
	if !s.Deadline().After(start) {
		t.Fatalf("deadline must not wrap before the start, got %v", s.Deadline())
	}
}

func TestFinishFreezesState(t *testing.T) {
	start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	s := &QuizSession{Status: SessionInProgress, StartedAt: start, TimeLimit: 120, Questions: threeQuestions()}
	s.RecordAnswer(SessionAnswer{QuestionID: "q2", IsCorrect: true})

	now := start.Add(50 * time.Second)
	s.Finish(SessionAbandoned, now)

	if s.Status != SessionAbandoned || s.CompletedAt == nil || !s.CompletedAt.Equal(now) {
		t.Fatalf("unexpected terminal state %+v", s)
	}
	if s.TimeRemaining != 70 {
		t.Fatalf("expected 70s remaining, got %d", s.TimeRemaining)
	}
	if s.Score.CorrectAnswers != 1 || s.Score.UnansweredQuestions != 2 {
		t.Fatalf("score not recomputed: %+v", s.Score)
	}
	if s.Elapsed(now.Add(time.Hour)) != 50 {
		t.Fatalf("elapsed must use completedAt")
	}
}

func TestBuildPerformance(t *testing.T) {
	answers := []SessionAnswer{
		{QuestionID: "q1", IsCorrect: true, TimeSpent: 10},
		{QuestionID: "q2", IsCorrect: false, TimeSpent: 30},
	}
	m := BuildPerformance(threeQuestions(), answers)
	if m.AverageTimePerQuestion != 20 || m.FastestAnswer != 10 || m.SlowestAnswer != 30 {
		t.Fatalf("unexpected timing %+v", m)
	}
	if len(m.ByDifficulty) != 3 {
		t.Fatalf("expected 3 difficulty buckets, got %d", len(m.ByDifficulty))
	}
	if m.ByDifficulty[0].Difficulty != DifficultyEasy || m.ByDifficulty[0].Percentage != 100 {
		t.Fatalf("unexpected easy bucket %+v", m.ByDifficulty[0])
	}
	if m.ByDifficulty[2].Correct != 0 {
		t.Fatalf("unanswered hard question counted as correct")
	}
}
