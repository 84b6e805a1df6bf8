package model

import (
	"math"
	"time"

	"gorm.io/datatypes"
)

type SessionStatus string

const (
	SessionInProgress SessionStatus = "in_progress"
	SessionCompleted  SessionStatus = "completed"
	SessionAbandoned  SessionStatus = "abandoned"
	SessionExpired    SessionStatus = "expired"
)

func (s SessionStatus) Valid() bool {
	return s == SessionInProgress || s.Terminal()
}

func (s SessionStatus) Terminal() bool {
	return s == SessionCompleted || s == SessionAbandoned || s == SessionExpired
}

// SessionQuestion 开始答题时的题目快照，评分以快照为准
type SessionQuestion struct {
	QuestionID    string       `json:"questionId"`
	Text          string       `json:"text"`
	Kind          QuestionKind `json:"kind"`
	Options       []Option     `json:"options,omitempty"`
	CodeSnippet   string       `json:"codeSnippet,omitempty"`
	Language      string       `json:"language,omitempty"`
	CorrectAnswer string       `json:"correctAnswer"`
	Explanation   string       `json:"explanation"`
	Difficulty    Difficulty   `json:"difficulty"`
	Points        int          `json:"points"`
}

// PointValue 未设置分值的题目按 1 分计算
func (q SessionQuestion) PointValue() int {
	if q.Points <= 0 {
		return 1
	}
	return q.Points
}

type SessionAnswer struct {
	QuestionID     string    `json:"questionId"`
	SelectedAnswer string    `json:"selectedAnswer"`
	IsCorrect      bool      `json:"isCorrect"`
	TimeSpent      int       `json:"timeSpent"`
	AnsweredAt     time.Time `json:"answeredAt"`
}

type ScoreSummary struct {
	TotalQuestions      int `json:"totalQuestions"`
	CorrectAnswers      int `json:"correctAnswers"`
	IncorrectAnswers    int `json:"incorrectAnswers"`
	UnansweredQuestions int `json:"unansweredQuestions"`
	TotalPoints         int `json:"totalPoints"`
	EarnedPoints        int `json:"earnedPoints"`
	Percentage          int `json:"percentage"`
}

// swagger:model QuizSession
type QuizSession struct {
	UUIDBase
	SessionID     string                               `gorm:"size:64;uniqueIndex;not null" json:"sessionId"`
	UserID        uint                                 `gorm:"index:idx_session_user_category;not null" json:"userId"`
	CategoryID    string                               `gorm:"type:varchar(36);index:idx_session_user_category;not null" json:"categoryId"`
	Difficulty    Difficulty                           `gorm:"size:20" json:"difficulty"`
	Questions     datatypes.JSONSlice[SessionQuestion] `json:"questions"`
	Answers       datatypes.JSONSlice[SessionAnswer]   `json:"answers"`
	Status        SessionStatus                        `gorm:"size:20;index;not null" json:"status"`
	StartedAt     time.Time                            `json:"startedAt"`
	CompletedAt   *time.Time                           `json:"completedAt,omitempty"`
	TimeLimit     int                                  `json:"timeLimit"`
	TimeRemaining int                                  `json:"timeRemaining"`
	Score         ScoreSummary                         `gorm:"embedded;embeddedPrefix:score_" json:"score"`
}

func (QuizSession) TableName() string {
	return "quiz_sessions"
}

// Deadline 开始时间加时限，时限超出 time.Duration 范围时取最大值
func (s *QuizSession) Deadline() time.Time {
	limit := time.Duration(math.MaxInt64)
	if int64(s.TimeLimit) <= math.MaxInt64/int64(time.Second) {
		limit = time.Duration(s.TimeLimit) * time.Second
	}
	return s.StartedAt.Add(limit)
}

// IsExpired 只有进行中的会话才会过期
func (s *QuizSession) IsExpired(now time.Time) bool {
	if s.Status != SessionInProgress {
		return false
	}
	return now.After(s.Deadline())
}

// RemainingTime 按墙钟时间计算剩余秒数，最小为 0
func (s *QuizSession) RemainingTime(now time.Time) int {
	elapsed := int(now.Sub(s.StartedAt) / time.Second)
	remaining := s.TimeLimit - elapsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Elapsed 会话已用秒数，结束后以 CompletedAt 为准
func (s *QuizSession) Elapsed(now time.Time) int {
	end := now
	if s.CompletedAt != nil {
		end = *s.CompletedAt
	}
	elapsed := int(end.Sub(s.StartedAt) / time.Second)
	if elapsed < 0 {
		return 0
	}
	return elapsed
}

func (s *QuizSession) FindQuestion(questionID string) (SessionQuestion, bool) {
	for _, q := range s.Questions {
		if q.QuestionID == questionID {
			return q, true
		}
	}
	return SessionQuestion{}, false
}

func (s *QuizSession) FindAnswer(questionID string) (SessionAnswer, bool) {
	for _, a := range s.Answers {
		if a.QuestionID == questionID {
			return a, true
		}
	}
	return SessionAnswer{}, false
}

// RecordAnswer 记录答案，同一题重复作答时覆盖旧答案
func (s *QuizSession) RecordAnswer(answer SessionAnswer) {
	for i := range s.Answers {
		if s.Answers[i].QuestionID == answer.QuestionID {
			s.Answers[i] = answer
			return
		}
	}
	s.Answers = append(s.Answers, answer)
}

// RecalculateScore 根据当前答案重新计算得分
func (s *QuizSession) RecalculateScore() ScoreSummary {
	s.Score = CalculateScore(s.Questions, s.Answers)
	return s.Score
}

// Finish 将会话切换到终态并冻结剩余时间
func (s *QuizSession) Finish(status SessionStatus, now time.Time) {
	s.TimeRemaining = s.RemainingTime(now)
	s.Status = status
	s.CompletedAt = &now
	s.RecalculateScore()
}

// CalculateScore 百分比按答对题数计算，而不是按得分占比
func CalculateScore(questions []SessionQuestion, answers []SessionAnswer) ScoreSummary {
	summary := ScoreSummary{TotalQuestions: len(questions)}

	points := make(map[string]int, len(questions))
	for _, q := range questions {
		points[q.QuestionID] = q.PointValue()
		summary.TotalPoints += q.PointValue()
	}

	for _, a := range answers {
		if a.IsCorrect {
			summary.CorrectAnswers++
			summary.EarnedPoints += points[a.QuestionID]
		} else {
			summary.IncorrectAnswers++
		}
	}

	summary.UnansweredQuestions = summary.TotalQuestions - len(answers)
	if summary.TotalQuestions > 0 {
		summary.Percentage = int(math.Round(100 * float64(summary.CorrectAnswers) / float64(summary.TotalQuestions)))
	}
	return summary
}

// SnapshotQuestion 生成题目快照
func SnapshotQuestion(q *Question) SessionQuestion {
	snap := SessionQuestion{
		QuestionID:    q.ID,
		Text:          q.Text,
		Kind:          q.Kind,
		CorrectAnswer: q.CorrectAnswer,
		Explanation:   q.Explanation,
		Difficulty:    q.Difficulty,
		Points:        q.Points,
	}
	if body, err := q.Content(); err == nil {
		switch b := body.(type) {
		case MCQBody:
			snap.Options = append([]Option(nil), b.Options...)
		case ProgramTraceBody:
			snap.CodeSnippet = b.CodeSnippet
			snap.Language = b.Language
		}
	}
	return snap
}
