package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"quiz_edu_backend/internal/model"
	"quiz_edu_backend/internal/repository"
	"quiz_edu_backend/internal/util"
	"quiz_edu_backend/pkg/logger"
	"quiz_edu_backend/pkg/monitoring"
	"quiz_edu_backend/pkg/tracing"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ChallengeSubmissionService struct {
	SubmissionRepo *repository.ChallengeSubmissionRepository
	ChallengeRepo  *repository.CodingChallengeRepository
	Judge          Judge
	Storage        *StorageService
	AutoGrade      bool
	Now            func() time.Time
}

func NewChallengeSubmissionService(
	submissionRepo *repository.ChallengeSubmissionRepository,
	challengeRepo *repository.CodingChallengeRepository,
	judge Judge,
	storage *StorageService,
	autoGrade bool,
) *ChallengeSubmissionService {
	return &ChallengeSubmissionService{
		SubmissionRepo: submissionRepo,
		ChallengeRepo:  challengeRepo,
		Judge:          judge,
		Storage:        storage,
		AutoGrade:      autoGrade,
		Now:            time.Now,
	}
}

type DraftInput struct {
	Code     string `json:"code"`
	Language string `json:"language"`
}

type ReviewInput struct {
	Score        int                     `json:"score" binding:"min=0,max=100"`
	Feedback     string                  `json:"feedback" binding:"required"`
	LineComments []model.LineComment     `json:"lineComments"`
	Rubric       []model.RubricCriterion `json:"rubric"`
}

type RejectInput struct {
	Feedback string `json:"feedback" binding:"required"`
}

func (s *ChallengeSubmissionService) activeChallenge(ctx context.Context, id string) (*model.CodingChallenge, error) {
	challenge, err := s.ChallengeRepo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, util.ErrChallengeNotFound)
	}
	if !challenge.IsActive {
		return nil, util.ErrChallengeInactive
	}
	return challenge, nil
}

// ownEditable 取出学生自己的提交，不存在时新建草稿
func (s *ChallengeSubmissionService) ownEditable(ctx context.Context, challengeID string, studentID uint) (*model.ChallengeSubmission, bool, error) {
	submission, err := s.SubmissionRepo.FindByChallengeAndStudent(ctx, challengeID, studentID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &model.ChallengeSubmission{
			ChallengeID: challengeID,
			StudentID:   studentID,
			Status:      model.SubmissionDraft,
		}, true, nil
	}
	if err != nil {
		return nil, false, err
	}
	if !submission.Status.Editable() {
		return nil, false, util.ErrSubmissionNotEditable
	}
	return submission, false, nil
}

func (s *ChallengeSubmissionService) persist(ctx context.Context, submission *model.ChallengeSubmission, isNew bool) error {
	if isNew {
		return s.SubmissionRepo.Create(ctx, submission)
	}
	return s.SubmissionRepo.Save(ctx, submission)
}

func applyDraft(challenge *model.CodingChallenge, submission *model.ChallengeSubmission, in DraftInput) error {
	if in.Language != "" {
		if !challenge.SupportsLanguage(in.Language) {
			return util.NewValidationError(util.FieldError{Field: "language", Message: "is not supported by this challenge"})
		}
		submission.Language = in.Language
	}
	if in.Code != "" {
		submission.Code = in.Code
	}
	return nil
}

// SaveDraft 创建或更新自己的草稿
func (s *ChallengeSubmissionService) SaveDraft(ctx context.Context, challengeID string, principal Principal, in DraftInput) (*model.ChallengeSubmission, error) {
	challenge, err := s.activeChallenge(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	submission, isNew, err := s.ownEditable(ctx, challengeID, principal.UserID)
	if err != nil {
		return nil, err
	}
	if err := applyDraft(challenge, submission, in); err != nil {
		return nil, err
	}
	submission.Status = model.SubmissionDraft
	if err := s.persist(ctx, submission, isNew); err != nil {
		return nil, err
	}
	return submission, nil
}

// Submit 每次提交版本号加一并记录历史
func (s *ChallengeSubmissionService) Submit(ctx context.Context, challengeID string, principal Principal, in DraftInput) (submission *model.ChallengeSubmission, err error) {
	ctx, span := tracing.Start(ctx, "ChallengeSubmissionService.Submit", attribute.String("challenge_id", challengeID))
	defer func() { tracing.End(span, err) }()

	challenge, err := s.activeChallenge(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	submission, isNew, err := s.ownEditable(ctx, challengeID, principal.UserID)
	if err != nil {
		return nil, err
	}
	if err := applyDraft(challenge, submission, in); err != nil {
		return nil, err
	}

	verr := util.NewValidationError()
	if strings.TrimSpace(submission.Code) == "" {
		verr.Add("code", "is required")
	}
	if submission.Language == "" {
		verr.Add("language", "is required")
	}
	if verr.HasErrors() {
		return nil, verr
	}

	now := s.Now()
	submission.Version++
	submission.History = append(submission.History, model.SubmissionVersion{
		Version:     submission.Version,
		Code:        submission.Code,
		Language:    submission.Language,
		SubmittedAt: now,
	})
	submission.SubmittedAt = &now
	submission.Status = model.SubmissionSubmitted
	submission.Review = nil
	submission.TestResult = nil

	if err := s.persist(ctx, submission, isNew); err != nil {
		return nil, err
	}

	if err := s.ChallengeRepo.IncrementSubmissions(ctx, challengeID); err != nil {
		monitoring.SideEffectFailures.WithLabelValues("challenge_stats").Inc()
		logger.Log.Warn("Failed to update challenge stats", zap.String("challenge_id", challengeID), zap.Error(err))
	}

	if s.AutoGrade && s.Judge != nil && len(challenge.HiddenTests) > 0 {
		if err := s.grade(ctx, challenge, submission); err != nil {
			monitoring.SideEffectFailures.WithLabelValues("auto_grade").Inc()
			logger.Log.Warn("Automatic grading failed", zap.String("submission_id", submission.ID), zap.Error(err))
		}
	}
	return submission, nil
}

func (s *ChallengeSubmissionService) find(ctx context.Context, id string) (*model.ChallengeSubmission, error) {
	submission, err := s.SubmissionRepo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, util.ErrSubmissionNotFound)
	}
	return submission, nil
}

func (s *ChallengeSubmissionService) Get(ctx context.Context, id string, principal Principal) (*model.ChallengeSubmission, error) {
	submission, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !principal.CanAccess(submission.StudentID) {
		return nil, util.ErrPermissionDenied
	}
	if !principal.IsAdmin() {
		view := submission.ForStudent()
		return &view, nil
	}
	return submission, nil
}

func (s *ChallengeSubmissionService) ListMine(ctx context.Context, principal Principal, challengeID string, p util.Pagination) ([]model.ChallengeSubmission, int64, error) {
	submissions, total, err := s.SubmissionRepo.List(ctx, repository.SubmissionFilter{
		ChallengeID: challengeID,
		StudentID:   principal.UserID,
	}, p)
	if err != nil {
		return nil, 0, err
	}
	for i := range submissions {
		submissions[i] = submissions[i].ForStudent()
	}
	return submissions, total, nil
}

func (s *ChallengeSubmissionService) List(ctx context.Context, filter repository.SubmissionFilter, p util.Pagination) ([]model.ChallengeSubmission, int64, error) {
	return s.SubmissionRepo.List(ctx, filter, p)
}

func requireAdmin(principal Principal) error {
	if !principal.IsAdmin() {
		return util.ErrPermissionDenied
	}
	return nil
}

func (s *ChallengeSubmissionService) StartReview(ctx context.Context, id string, principal Principal) (*model.ChallengeSubmission, error) {
	if err := requireAdmin(principal); err != nil {
		return nil, err
	}
	submission, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if submission.Status != model.SubmissionSubmitted {
		return nil, util.ErrSubmissionState
	}
	submission.Status = model.SubmissionUnderReview
	if err := s.SubmissionRepo.Save(ctx, submission); err != nil {
		return nil, err
	}
	return submission, nil
}

func reviewable(status model.SubmissionStatus) bool {
	return status == model.SubmissionSubmitted || status == model.SubmissionUnderReview
}

// Review 只有管理员可以写入评审结果
func (s *ChallengeSubmissionService) Review(ctx context.Context, id string, principal Principal, in ReviewInput) (*model.ChallengeSubmission, error) {
	if err := requireAdmin(principal); err != nil {
		return nil, err
	}
	if in.Score < 0 || in.Score > 100 {
		return nil, util.NewValidationError(util.FieldError{Field: "score", Message: "must be between 0 and 100"})
	}
	for _, c := range in.Rubric {
		if c.Score < 0 || (c.MaxScore > 0 && c.Score > c.MaxScore) {
			return nil, util.NewValidationError(util.FieldError{Field: "rubric", Message: "criterion score out of range: " + c.Name})
		}
	}

	submission, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !reviewable(submission.Status) {
		return nil, util.ErrSubmissionState
	}

	submission.Status = model.SubmissionReviewed
	submission.Review = &model.SubmissionReview{
		ReviewerID:   principal.UserID,
		Score:        in.Score,
		Feedback:     in.Feedback,
		LineComments: in.LineComments,
		Rubric:       in.Rubric,
		ReviewedAt:   s.Now(),
	}
	if err := s.SubmissionRepo.Save(ctx, submission); err != nil {
		return nil, err
	}

	if err := s.ChallengeRepo.RecordReview(ctx, submission.ChallengeID, in.Score); err != nil {
		monitoring.SideEffectFailures.WithLabelValues("challenge_stats").Inc()
		logger.Log.Warn("Failed to update challenge review stats", zap.String("challenge_id", submission.ChallengeID), zap.Error(err))
	}
	return submission, nil
}

// Reject 退回后学生可以修改并重新提交
func (s *ChallengeSubmissionService) Reject(ctx context.Context, id string, principal Principal, in RejectInput) (*model.ChallengeSubmission, error) {
	if err := requireAdmin(principal); err != nil {
		return nil, err
	}
	submission, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !reviewable(submission.Status) {
		return nil, util.ErrSubmissionState
	}

	submission.Status = model.SubmissionRejected
	submission.Review = &model.SubmissionReview{
		ReviewerID: principal.UserID,
		Feedback:   in.Feedback,
		ReviewedAt: s.Now(),
	}
	if err := s.SubmissionRepo.Save(ctx, submission); err != nil {
		return nil, err
	}
	return submission, nil
}

// RunTests 使用隐藏用例自动评测
func (s *ChallengeSubmissionService) RunTests(ctx context.Context, id string, principal Principal) (*model.ChallengeSubmission, error) {
	if err := requireAdmin(principal); err != nil {
		return nil, err
	}
	if s.Judge == nil {
		return nil, util.ErrJudgeUnavailable
	}
	submission, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if submission.Status == model.SubmissionDraft {
		return nil, util.ErrSubmissionState
	}
	challenge, err := s.ChallengeRepo.FindByID(ctx, submission.ChallengeID)
	if err != nil {
		return nil, notFound(err, util.ErrChallengeNotFound)
	}
	if len(challenge.HiddenTests) == 0 {
		return nil, util.Validationf("challenge has no hidden test cases")
	}
	if err := s.grade(ctx, challenge, submission); err != nil {
		return nil, err
	}
	return submission, nil
}

func (s *ChallengeSubmissionService) grade(ctx context.Context, challenge *model.CodingChallenge, submission *model.ChallengeSubmission) error {
	results, passed, err := RunTestCases(ctx, s.Judge, submission.Code, submission.Language, challenge.HiddenTests)
	if err != nil {
		return err
	}
	submission.TestResult = &model.TestRunResult{
		Passed:  passed,
		Total:   len(results),
		Score:   PercentScore(passed, len(results)),
		Details: results,
		RanAt:   s.Now(),
	}
	return s.SubmissionRepo.Save(ctx, submission)
}

// UploadSource 上传源码文件，内容同时写入 code 字段
func (s *ChallengeSubmissionService) UploadSource(ctx context.Context, id string, principal Principal, filename string, reader io.Reader, size int64) (*model.ChallengeSubmission, error) {
	submission, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if submission.StudentID != principal.UserID {
		return nil, util.ErrPermissionDenied
	}
	if !submission.Status.Editable() {
		return nil, util.ErrSubmissionNotEditable
	}
	if _, err := SourceFileExt(filename); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(io.LimitReader(reader, util.MaxSourceFileSize+1))
	if err != nil {
		return nil, err
	}
	url, err := s.Storage.UploadSource(ctx, submission.ID, filename, bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}

	submission.Code = string(data)
	submission.SourceFileURL = url
	if err := s.SubmissionRepo.Save(ctx, submission); err != nil {
		return nil, err
	}
	return submission, nil
}
