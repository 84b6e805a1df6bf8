package service

import (
	"fmt"
	"time"

	"quiz_edu_backend/internal/model"
	"quiz_edu_backend/pkg/logger"

	"github.com/jinzhu/copier"
	"go.uber.org/zap"
)

// StudentOption 选项不带 isCorrect
type StudentOption struct {
	Text string `json:"text"`
}

// StudentQuestion 学生可见的题目快照，不含正确答案和解析
type StudentQuestion struct {
	QuestionID  string             `json:"questionId"`
	Text        string             `json:"text"`
	Kind        model.QuestionKind `json:"kind"`
	Options     []StudentOption    `json:"options,omitempty" copier:"-"`
	CodeSnippet string             `json:"codeSnippet,omitempty"`
	Language    string             `json:"language,omitempty"`
	Difficulty  model.Difficulty   `json:"difficulty"`
	Points      int                `json:"points"`
}

// SessionView 返回给学生的会话
type SessionView struct {
	SessionID     string                `json:"sessionId"`
	UserID        uint                  `json:"userId"`
	CategoryID    string                `json:"categoryId"`
	Difficulty    model.Difficulty      `json:"difficulty"`
	Status        model.SessionStatus   `json:"status"`
	Questions     []StudentQuestion     `json:"questions" copier:"-"`
	Answers       []model.SessionAnswer `json:"answers" copier:"-"`
	StartedAt     time.Time             `json:"startedAt"`
	CompletedAt   *time.Time            `json:"completedAt,omitempty"`
	TimeLimit     int                   `json:"timeLimit"`
	TimeRemaining int                   `json:"timeRemaining"`
	Score         model.ScoreSummary    `json:"score"`
}

// QuestionResult 交卷后的逐题明细
type QuestionResult struct {
	QuestionID     string             `json:"questionId"`
	Text           string             `json:"text"`
	Kind           model.QuestionKind `json:"kind"`
	Options        []model.Option     `json:"options,omitempty"`
	CodeSnippet    string             `json:"codeSnippet,omitempty"`
	Difficulty     model.Difficulty   `json:"difficulty"`
	Points         int                `json:"points"`
	Answered       bool               `json:"answered"`
	SelectedAnswer string             `json:"selectedAnswer"`
	CorrectAnswer  string             `json:"correctAnswer"`
	IsCorrect      bool               `json:"isCorrect"`
	TimeSpent      int                `json:"timeSpent"`
	Explanation    string             `json:"explanation"`
}

type SessionResult struct {
	Session    SessionView              `json:"session"`
	Breakdown  []QuestionResult         `json:"breakdown,omitempty"`
	AttemptID  string                   `json:"attemptId,omitempty"`
	Comparison *model.AttemptComparison `json:"comparison,omitempty"`
}

// copyFields 复制失败时记录日志，视图里手动填充的字段不受影响
func copyFields(to, from interface{}) bool {
	if err := copier.Copy(to, from); err != nil {
		logger.Log.Error("Failed to copy view fields",
			zap.String("to", fmt.Sprintf("%T", to)),
			zap.String("from", fmt.Sprintf("%T", from)),
			zap.Error(err),
		)
		return false
	}
	return true
}

func NewSessionView(session *model.QuizSession) SessionView {
	var view SessionView
	copyFields(&view, session)

	view.Questions = make([]StudentQuestion, 0, len(session.Questions))
	for _, q := range session.Questions {
		var sq StudentQuestion
		copyFields(&sq, &q)
		for _, o := range q.Options {
			sq.Options = append(sq.Options, StudentOption{Text: o.Text})
		}
		view.Questions = append(view.Questions, sq)
	}
	view.Answers = append([]model.SessionAnswer{}, session.Answers...)
	return view
}

// NewSessionResult 终态会话附带逐题明细
func NewSessionResult(session *model.QuizSession) *SessionResult {
	result := &SessionResult{Session: NewSessionView(session)}
	if !session.Status.Terminal() {
		return result
	}

	result.Breakdown = make([]QuestionResult, 0, len(session.Questions))
	for _, q := range session.Questions {
		item := QuestionResult{
			QuestionID:    q.QuestionID,
			Text:          q.Text,
			Kind:          q.Kind,
			Options:       q.Options,
			CodeSnippet:   q.CodeSnippet,
			Difficulty:    q.Difficulty,
			Points:        q.PointValue(),
			CorrectAnswer: q.CorrectAnswer,
			Explanation:   q.Explanation,
		}
		if a, ok := session.FindAnswer(q.QuestionID); ok {
			item.Answered = true
			item.SelectedAnswer = a.SelectedAnswer
			item.IsCorrect = a.IsCorrect
			item.TimeSpent = a.TimeSpent
		}
		result.Breakdown = append(result.Breakdown, item)
	}
	return result
}
