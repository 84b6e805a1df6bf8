package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gorm.io/datatypes"
)

type QuestionKind string

const (
	KindMCQ          QuestionKind = "mcq"
	KindProgramTrace QuestionKind = "program-trace"
	KindCoding       QuestionKind = "coding"
)

func (k QuestionKind) Valid() bool {
	switch k {
	case KindMCQ, KindProgramTrace, KindCoding:
		return true
	}
	return false
}

type QuestionStatus string

const (
	QuestionDraft    QuestionStatus = "draft"
	QuestionActive   QuestionStatus = "active"
	QuestionInactive QuestionStatus = "inactive"
)

func (s QuestionStatus) Valid() bool {
	switch s {
	case QuestionDraft, QuestionActive, QuestionInactive:
		return true
	}
	return false
}

var (
	ErrTooFewOptions         = errors.New("mcq questions need at least 2 options")
	ErrCorrectOptionCount    = errors.New("mcq questions need exactly one correct option")
	ErrCorrectAnswerMismatch = errors.New("correctAnswer must match the text of the correct option")
)

type Option struct {
	Text      string `json:"text"`
	IsCorrect bool   `json:"isCorrect"`
}

type TestCase struct {
	Input          string `json:"input"`
	ExpectedOutput string `json:"expectedOutput"`
	IsHidden       bool   `json:"isHidden"`
}

// QuestionBody 是按题型区分的题目内容
type QuestionBody interface {
	Kind() QuestionKind
	// Validate 校验内容本身以及与 correctAnswer 的一致性，必要时回填 correctAnswer
	Validate(correctAnswer *string) error
}

type MCQBody struct {
	Options []Option `json:"options"`
}

func (MCQBody) Kind() QuestionKind { return KindMCQ }

func (b MCQBody) Validate(correctAnswer *string) error {
	if len(b.Options) < 2 {
		return ErrTooFewOptions
	}
	correct := -1
	for i, o := range b.Options {
		if strings.TrimSpace(o.Text) == "" {
			return fmt.Errorf("option %d text is required", i+1)
		}
		if o.IsCorrect {
			if correct >= 0 {
				return ErrCorrectOptionCount
			}
			correct = i
		}
	}
	if correct < 0 {
		return ErrCorrectOptionCount
	}
	if *correctAnswer == "" {
		*correctAnswer = b.Options[correct].Text
	}
	if *correctAnswer != b.Options[correct].Text {
		return ErrCorrectAnswerMismatch
	}
	return nil
}

type ProgramTraceBody struct {
	CodeSnippet    string     `json:"codeSnippet"`
	Language       string     `json:"language"`
	ExpectedOutput string     `json:"expectedOutput"`
	TestCases      []TestCase `json:"testCases,omitempty"`
}

func (ProgramTraceBody) Kind() QuestionKind { return KindProgramTrace }

func (b ProgramTraceBody) Validate(correctAnswer *string) error {
	if strings.TrimSpace(b.CodeSnippet) == "" {
		return errors.New("codeSnippet is required")
	}
	if b.Language == "" {
		return errors.New("language is required")
	}
	if b.ExpectedOutput == "" {
		return errors.New("expectedOutput is required")
	}
	if *correctAnswer == "" {
		*correctAnswer = b.ExpectedOutput
	}
	return nil
}

type CodingBody struct {
	Language    string     `json:"language"`
	StarterCode string     `json:"starterCode,omitempty"`
	TestCases   []TestCase `json:"testCases"`
}

func (CodingBody) Kind() QuestionKind { return KindCoding }

func (b CodingBody) Validate(correctAnswer *string) error {
	if b.Language == "" {
		return errors.New("language is required")
	}
	if len(b.TestCases) == 0 {
		return errors.New("coding questions need at least one test case")
	}
	return nil
}

// VisibleTestCases 返回学生可见的用例
func (b CodingBody) VisibleTestCases() []TestCase {
	out := make([]TestCase, 0, len(b.TestCases))
	for _, tc := range b.TestCases {
		if !tc.IsHidden {
			out = append(out, tc)
		}
	}
	return out
}

type QuestionStats struct {
	Attempts     int     `gorm:"default:0" json:"attempts"`
	CorrectCount int     `gorm:"default:0" json:"correctCount"`
	AverageTime  float64 `gorm:"default:0" json:"averageTime"`
}

// swagger:model Question
type Question struct {
	UUIDBase
	Text          string                      `gorm:"type:text;not null" json:"text"`
	Kind          QuestionKind                `gorm:"size:20;index;not null" json:"kind"`
	CategoryID    string                      `gorm:"type:varchar(36);index;not null" json:"categoryId"`
	Difficulty    Difficulty                  `gorm:"size:20;index" json:"difficulty"`
	Points        int                         `gorm:"default:1" json:"points"`
	Body          datatypes.JSON              `json:"content"`
	CorrectAnswer string                      `gorm:"type:text" json:"correctAnswer"`
	Explanation   string                      `gorm:"type:text" json:"explanation"`
	Tags          datatypes.JSONSlice[string] `json:"tags"`
	Status        QuestionStatus              `gorm:"size:20;index;default:draft" json:"status"`
	Stats         QuestionStats               `gorm:"embedded;embeddedPrefix:stats_" json:"stats"`
	CreatedBy     uint                        `json:"createdBy"`
}

func (Question) TableName() string {
	return "questions"
}

// Content 按题型解码题目内容
func (q *Question) Content() (QuestionBody, error) {
	var body QuestionBody
	switch q.Kind {
	case KindMCQ:
		var b MCQBody
		if err := decodeBody(q.Body, &b); err != nil {
			return nil, err
		}
		body = b
	case KindProgramTrace:
		var b ProgramTraceBody
		if err := decodeBody(q.Body, &b); err != nil {
			return nil, err
		}
		body = b
	case KindCoding:
		var b CodingBody
		if err := decodeBody(q.Body, &b); err != nil {
			return nil, err
		}
		body = b
	default:
		return nil, fmt.Errorf("unknown question kind %q", q.Kind)
	}
	return body, nil
}

// SetContent 写入题目内容，同时同步题型
func (q *Question) SetContent(body QuestionBody) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	q.Kind = body.Kind()
	q.Body = datatypes.JSON(raw)
	return nil
}

// Validate 校验题目的通用字段与题型内容
func (q *Question) Validate() error {
	if strings.TrimSpace(q.Text) == "" {
		return errors.New("question text is required")
	}
	if !q.Kind.Valid() {
		return fmt.Errorf("invalid question kind %q", q.Kind)
	}
	if q.CategoryID == "" {
		return errors.New("categoryId is required")
	}
	if !q.Difficulty.Valid() {
		return fmt.Errorf("invalid difficulty %q", q.Difficulty)
	}
	if q.Points < 0 {
		return errors.New("points must not be negative")
	}
	if q.Status != "" && !q.Status.Valid() {
		return fmt.Errorf("invalid status %q", q.Status)
	}
	body, err := q.Content()
	if err != nil {
		return err
	}
	return body.Validate(&q.CorrectAnswer)
}

// Options 返回选择题选项，非选择题返回 nil
func (q *Question) Options() []Option {
	body, err := q.Content()
	if err != nil {
		return nil
	}
	if mcq, ok := body.(MCQBody); ok {
		return mcq.Options
	}
	return nil
}

// RecordAttempt 累加一次作答统计，平均用时按增量方式计算
func (s *QuestionStats) RecordAttempt(correct bool, timeSpent int) {
	s.Attempts++
	if correct {
		s.CorrectCount++
	}
	s.AverageTime += (float64(timeSpent) - s.AverageTime) / float64(s.Attempts)
}

func decodeBody(raw datatypes.JSON, v interface{}) error {
	if len(raw) == 0 {
		return errors.New("question content is required")
	}
	return json.Unmarshal(raw, v)
}
