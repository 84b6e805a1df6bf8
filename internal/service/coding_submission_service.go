package service

import (
	"context"
	"strings"

	"quiz_edu_backend/internal/model"
	"quiz_edu_backend/internal/repository"
	"quiz_edu_backend/internal/util"
	"quiz_edu_backend/pkg/logger"
	"quiz_edu_backend/pkg/monitoring"
	"quiz_edu_backend/pkg/tracing"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// CodingSubmissionService 题库编程题的自动判题
type CodingSubmissionService struct {
	SubmissionRepo *repository.CodingSubmissionRepository
	QuestionRepo   *repository.QuestionRepository
	Judge          Judge
}

func NewCodingSubmissionService(submissionRepo *repository.CodingSubmissionRepository, questionRepo *repository.QuestionRepository, judge Judge) *CodingSubmissionService {
	return &CodingSubmissionService{
		SubmissionRepo: submissionRepo,
		QuestionRepo:   questionRepo,
		Judge:          judge,
	}
}

type CodeSubmitInput struct {
	QuestionID string `json:"questionId" binding:"required"`
	Code       string `json:"code" binding:"required"`
	Language   string `json:"language"`
}

func (s *CodingSubmissionService) Submit(ctx context.Context, principal Principal, in CodeSubmitInput) (submission *model.CodingSubmission, err error) {
	ctx, span := tracing.Start(ctx, "CodingSubmissionService.Submit", attribute.String("question_id", in.QuestionID))
	defer func() { tracing.End(span, err) }()

	questionID := in.QuestionID
	if strings.TrimSpace(in.Code) == "" {
		return nil, util.NewValidationError(util.FieldError{Field: "code", Message: "is required"})
	}
	question, err := s.QuestionRepo.FindByID(ctx, questionID)
	if err != nil {
		return nil, notFound(err, util.ErrQuestionNotFound)
	}
	if question.Kind != model.KindCoding {
		return nil, util.Validationf("question %s is not a coding question", questionID)
	}
	if question.Status != model.QuestionActive && !principal.IsAdmin() {
		return nil, util.ErrQuestionNotFound
	}
	content, err := question.Content()
	if err != nil {
		return nil, err
	}
	body := content.(model.CodingBody)

	language := in.Language
	if language == "" {
		language = body.Language
	}
	if s.Judge == nil {
		return nil, util.ErrJudgeUnavailable
	}

	submission = &model.CodingSubmission{
		QuestionID: questionID,
		UserID:     principal.UserID,
		Code:       in.Code,
		Language:   language,
		Status:     model.JudgePending,
		TotalTests: len(body.TestCases),
	}
	if err := s.SubmissionRepo.Create(ctx, submission); err != nil {
		return nil, err
	}

	results, passed, runErr := RunTestCases(ctx, s.Judge, in.Code, language, body.TestCases)
	switch {
	case runErr != nil:
		logger.Log.Warn("Judge run failed",
			zap.String("submission_id", submission.ID),
			zap.Error(runErr))
		submission.Status = model.JudgeError
		submission.Message = runErr.Error()
	case passed == len(results):
		submission.Status = model.JudgeAccepted
	default:
		submission.Status = model.JudgeWrongAnswer
	}
	submission.Results = results
	submission.PassedTests = passed
	submission.Score = PercentScore(passed, submission.TotalTests)

	if err := s.SubmissionRepo.Save(ctx, submission); err != nil {
		return nil, err
	}

	if runErr == nil {
		if err := s.QuestionRepo.RecordAttempt(ctx, questionID, submission.Status == model.JudgeAccepted, 0); err != nil {
			monitoring.SideEffectFailures.WithLabelValues("question_stats").Inc()
			logger.Log.Warn("Failed to record question stats", zap.String("question_id", questionID), zap.Error(err))
		}
	}

	if principal.IsAdmin() {
		return submission, nil
	}
	view := submission.ForStudent()
	return &view, nil
}

func (s *CodingSubmissionService) ListMine(ctx context.Context, principal Principal, questionID string, p util.Pagination) ([]model.CodingSubmission, int64, error) {
	submissions, total, err := s.SubmissionRepo.ListByUser(ctx, principal.UserID, questionID, p)
	if err != nil {
		return nil, 0, err
	}
	for i := range submissions {
		submissions[i] = submissions[i].ForStudent()
	}
	return submissions, total, nil
}

func (s *CodingSubmissionService) Get(ctx context.Context, id string, principal Principal) (*model.CodingSubmission, error) {
	submission, err := s.SubmissionRepo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, util.ErrSubmissionNotFound)
	}
	if !principal.CanAccess(submission.UserID) {
		return nil, util.ErrPermissionDenied
	}
	if principal.IsAdmin() {
		return submission, nil
	}
	view := submission.ForStudent()
	return &view, nil
}
