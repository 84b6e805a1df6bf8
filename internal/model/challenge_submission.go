package model

import (
	"time"

	"gorm.io/datatypes"
)

type SubmissionStatus string

const (
	SubmissionDraft       SubmissionStatus = "draft"
	SubmissionSubmitted   SubmissionStatus = "submitted"
	SubmissionUnderReview SubmissionStatus = "under_review"
	SubmissionReviewed    SubmissionStatus = "reviewed"
	SubmissionRejected    SubmissionStatus = "rejected"
)

// Editable 草稿和被退回的提交允许学生继续修改
func (s SubmissionStatus) Editable() bool {
	return s == SubmissionDraft || s == SubmissionRejected
}

type LineComment struct {
	Line    int    `json:"line"`
	Comment string `json:"comment"`
}

type RubricCriterion struct {
	Name     string `json:"name"`
	Score    int    `json:"score"`
	MaxScore int    `json:"maxScore"`
	Comment  string `json:"comment,omitempty"`
}

type SubmissionReview struct {
	ReviewerID   uint              `json:"reviewerId"`
	Score        int               `json:"score"`
	Feedback     string            `json:"feedback"`
	LineComments []LineComment     `json:"lineComments,omitempty"`
	Rubric       []RubricCriterion `json:"rubric,omitempty"`
	ReviewedAt   time.Time         `json:"reviewedAt"`
}

type SubmissionVersion struct {
	Version     int       `json:"version"`
	Code        string    `json:"code"`
	Language    string    `json:"language"`
	SubmittedAt time.Time `json:"submittedAt"`
}

type TestCaseResult struct {
	Index          int    `json:"index"`
	Passed         bool   `json:"passed"`
	Status         string `json:"status"`
	Stdout         string `json:"stdout,omitempty"`
	Stderr         string `json:"stderr,omitempty"`
	ExpectedOutput string `json:"expectedOutput,omitempty"`
	TimeMs         int    `json:"timeMs"`
	Hidden         bool   `json:"hidden"`
}

type TestRunResult struct {
	Passed  int              `json:"passed"`
	Total   int              `json:"total"`
	Score   int              `json:"score"`
	Details []TestCaseResult `json:"details"`
	RanAt   time.Time        `json:"ranAt"`
}

// swagger:model ChallengeSubmission
type ChallengeSubmission struct {
	UUIDBase
	ChallengeID   string                                 `gorm:"type:varchar(36);uniqueIndex:idx_challenge_student;not null" json:"challengeId"`
	StudentID     uint                                   `gorm:"uniqueIndex:idx_challenge_student;not null" json:"studentId"`
	Code          string                                 `gorm:"type:text" json:"code"`
	Language      string                                 `gorm:"size:30" json:"language"`
	Status        SubmissionStatus                       `gorm:"size:20;index;not null" json:"status"`
	Version       int                                    `gorm:"default:0" json:"version"`
	History       datatypes.JSONSlice[SubmissionVersion] `json:"history"`
	SubmittedAt   *time.Time                             `json:"submittedAt,omitempty"`
	SourceFileURL string                                 `gorm:"size:500" json:"sourceFileUrl,omitempty"`
	TestResult    *TestRunResult                         `gorm:"serializer:json" json:"testResult,omitempty"`
	Review        *SubmissionReview                      `gorm:"serializer:json" json:"review,omitempty"`
}

func (ChallengeSubmission) TableName() string {
	return "challenge_submissions"
}

// ForStudent 学生只能看到非隐藏用例的明细
func (s ChallengeSubmission) ForStudent() ChallengeSubmission {
	if s.TestResult != nil {
		result := *s.TestResult
		result.Details = make([]TestCaseResult, 0, len(s.TestResult.Details))
		for _, d := range s.TestResult.Details {
			if d.Hidden {
				d.Stdout = ""
				d.Stderr = ""
				d.ExpectedOutput = ""
			}
			result.Details = append(result.Details, d)
		}
		s.TestResult = &result
	}
	return s
}

type JudgeStatus string

const (
	JudgePending     JudgeStatus = "pending"
	JudgeAccepted    JudgeStatus = "accepted"
	JudgeWrongAnswer JudgeStatus = "wrong_answer"
	JudgeError       JudgeStatus = "error"
)

// CodingSubmission 针对编程题（题库中的 coding 题型）的自动判题提交
// swagger:model CodingSubmission
type CodingSubmission struct {
	UUIDBase
	QuestionID  string                              `gorm:"type:varchar(36);index;not null" json:"questionId"`
	UserID      uint                                `gorm:"index;not null" json:"userId"`
	Code        string                              `gorm:"type:text;not null" json:"code"`
	Language    string                              `gorm:"size:30" json:"language"`
	Status      JudgeStatus                         `gorm:"size:20;index" json:"status"`
	PassedTests int                                 `json:"passedTests"`
	TotalTests  int                                 `json:"totalTests"`
	Score       int                                 `json:"score"`
	Results     datatypes.JSONSlice[TestCaseResult] `json:"results"`
	Message     string                              `gorm:"type:text" json:"message,omitempty"`
}

func (CodingSubmission) TableName() string {
	return "coding_submissions"
}

// ForStudent 隐藏用例只保留通过与否
func (s CodingSubmission) ForStudent() CodingSubmission {
	results := make([]TestCaseResult, 0, len(s.Results))
	for _, r := range s.Results {
		if r.Hidden {
			r.Stdout = ""
			r.Stderr = ""
			r.ExpectedOutput = ""
		}
		results = append(results, r)
	}
	s.Results = results
	return s
}
