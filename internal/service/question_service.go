package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"quiz_edu_backend/internal/model"
	"quiz_edu_backend/internal/repository"
	"quiz_edu_backend/internal/util"
	"quiz_edu_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type QuestionService struct {
	QuestionRepo *repository.QuestionRepository
	CategoryRepo *repository.CategoryRepository
}

func NewQuestionService(questionRepo *repository.QuestionRepository, categoryRepo *repository.CategoryRepository) *QuestionService {
	return &QuestionService{
		QuestionRepo: questionRepo,
		CategoryRepo: categoryRepo,
	}
}

// QuestionInput 创建/更新题目的请求体，content 按 kind 解析
type QuestionInput struct {
	Text          string               `json:"text" binding:"required"`
	Kind          model.QuestionKind   `json:"kind" binding:"required,qkind"`
	CategoryID    string               `json:"categoryId" binding:"required"`
	Difficulty    model.Difficulty     `json:"difficulty" binding:"required"`
	Points        int                  `json:"points" binding:"min=0"`
	Content       json.RawMessage      `json:"content" binding:"required" swaggertype:"object"`
	CorrectAnswer string               `json:"correctAnswer"`
	Explanation   string               `json:"explanation"`
	Tags          []string             `json:"tags"`
	Status        model.QuestionStatus `json:"status"`
}

// QuestionView 学生可见的题目
type QuestionView struct {
	ID         string               `json:"id"`
	Text       string               `json:"text"`
	Kind       model.QuestionKind   `json:"kind"`
	CategoryID string               `json:"categoryId"`
	Difficulty model.Difficulty     `json:"difficulty"`
	Points     int                  `json:"points"`
	Content    interface{}          `json:"content" copier:"-"`
	Tags       []string             `json:"tags" copier:"-"`
	Status     model.QuestionStatus `json:"status"`
	CreatedAt  time.Time            `json:"createdAt"`
}

type studentMCQContent struct {
	Options []StudentOption `json:"options"`
}

type studentTraceContent struct {
	CodeSnippet string `json:"codeSnippet"`
	Language    string `json:"language"`
}

type studentCodingContent struct {
	Language    string           `json:"language"`
	StarterCode string           `json:"starterCode,omitempty"`
	TestCases   []model.TestCase `json:"testCases"`
}

// NewQuestionView 去掉正确答案、解析以及隐藏用例
func NewQuestionView(q *model.Question) QuestionView {
	var view QuestionView
	copyFields(&view, q)
	view.Tags = append([]string{}, q.Tags...)

	body, err := q.Content()
	if err != nil {
		return view
	}
	switch b := body.(type) {
	case model.MCQBody:
		content := studentMCQContent{Options: make([]StudentOption, 0, len(b.Options))}
		for _, o := range b.Options {
			content.Options = append(content.Options, StudentOption{Text: o.Text})
		}
		view.Content = content
	case model.ProgramTraceBody:
		view.Content = studentTraceContent{CodeSnippet: b.CodeSnippet, Language: b.Language}
	case model.CodingBody:
		view.Content = studentCodingContent{Language: b.Language, StarterCode: b.StarterCode, TestCases: b.VisibleTestCases()}
	}
	return view
}

// questionFieldError 将题目校验错误转换为字段级错误
func questionFieldError(prefix string, err error) util.FieldError {
	field := "content"
	switch {
	case errors.Is(err, model.ErrTooFewOptions), errors.Is(err, model.ErrCorrectOptionCount):
		field = "content.options"
	case errors.Is(err, model.ErrCorrectAnswerMismatch):
		field = "correctAnswer"
	case strings.HasPrefix(err.Error(), "question text"):
		field = "text"
	case strings.HasPrefix(err.Error(), "invalid difficulty"):
		field = "difficulty"
	case strings.HasPrefix(err.Error(), "invalid question kind"):
		field = "kind"
	case strings.HasPrefix(err.Error(), "invalid status"):
		field = "status"
	case strings.HasPrefix(err.Error(), "categoryId"):
		field = "categoryId"
	case strings.HasPrefix(err.Error(), "points"):
		field = "points"
	}
	return util.FieldError{Field: prefix + field, Message: err.Error()}
}

// apply 将请求写入题目并按题型校验
func (in *QuestionInput) apply(q *model.Question, prefix string) error {
	q.Text = strings.TrimSpace(in.Text)
	q.Kind = in.Kind
	q.CategoryID = in.CategoryID
	q.Difficulty = in.Difficulty
	q.Points = in.Points
	if q.Points == 0 {
		q.Points = 1
	}
	q.Body = datatypes.JSON(in.Content)
	q.CorrectAnswer = in.CorrectAnswer
	q.Explanation = in.Explanation
	q.Tags = datatypes.JSONSlice[string](in.Tags)
	if in.Status != "" {
		q.Status = in.Status
	}
	if q.Status == "" {
		q.Status = model.QuestionDraft
	}

	if err := q.Validate(); err != nil {
		return util.NewValidationError(questionFieldError(prefix, err))
	}
	// 重新编码，丢弃请求中与题型无关的字段
	body, _ := q.Content()
	return q.SetContent(body)
}

func (s *QuestionService) ensureCategory(ctx context.Context, id string) error {
	if _, err := s.CategoryRepo.FindByID(ctx, id); err != nil {
		return notFound(err, util.ErrCategoryNotFound)
	}
	return nil
}

// refreshCount 更新分类缓存计数，失败只记录日志
func (s *QuestionService) refreshCount(ctx context.Context, categoryIDs ...string) {
	seen := make(map[string]bool, len(categoryIDs))
	for _, id := range categoryIDs {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		if err := s.CategoryRepo.RefreshQuestionCount(ctx, id); err != nil {
			logger.Log.Warn("Failed to refresh category question count", zap.String("category_id", id), zap.Error(err))
		}
	}
}

func (s *QuestionService) List(ctx context.Context, filter repository.QuestionFilter, p util.Pagination, principal Principal) (interface{}, int64, error) {
	if !principal.IsAdmin() {
		filter.Status = model.QuestionActive
	}
	questions, total, err := s.QuestionRepo.List(ctx, filter, p)
	if err != nil {
		return nil, 0, err
	}
	if principal.IsAdmin() {
		return questions, total, nil
	}
	views := make([]QuestionView, 0, len(questions))
	for i := range questions {
		views = append(views, NewQuestionView(&questions[i]))
	}
	return views, total, nil
}

// Get 管理员看到完整题目，学生只能看到启用题目的脱敏视图
func (s *QuestionService) Get(ctx context.Context, id string, principal Principal) (interface{}, error) {
	question, err := s.QuestionRepo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, util.ErrQuestionNotFound)
	}
	if principal.IsAdmin() {
		return question, nil
	}
	if question.Status != model.QuestionActive {
		return nil, util.ErrQuestionNotFound
	}
	return NewQuestionView(question), nil
}

func (s *QuestionService) Create(ctx context.Context, in QuestionInput, principal Principal) (*model.Question, error) {
	question := &model.Question{CreatedBy: principal.UserID}
	if err := in.apply(question, ""); err != nil {
		return nil, err
	}
	if err := s.ensureCategory(ctx, question.CategoryID); err != nil {
		return nil, err
	}
	if err := s.QuestionRepo.Create(ctx, question); err != nil {
		return nil, err
	}
	s.refreshCount(ctx, question.CategoryID)
	return question, nil
}

// BulkCreate 全部校验通过后在一个事务中写入
func (s *QuestionService) BulkCreate(ctx context.Context, inputs []QuestionInput, principal Principal) ([]*model.Question, error) {
	if len(inputs) == 0 {
		return nil, util.NewValidationError(util.FieldError{Field: "questions", Message: "must not be empty"})
	}

	verr := util.NewValidationError()
	questions := make([]*model.Question, 0, len(inputs))
	categories := make(map[string]bool)
	for i := range inputs {
		question := &model.Question{CreatedBy: principal.UserID}
		if err := inputs[i].apply(question, fmt.Sprintf("questions[%d].", i)); err != nil {
			var fe *util.ValidationError
			if errors.As(err, &fe) {
				verr.Fields = append(verr.Fields, fe.Fields...)
				continue
			}
			return nil, err
		}
		questions = append(questions, question)
		categories[question.CategoryID] = true
	}
	if verr.HasErrors() {
		return nil, verr
	}

	ids := make([]string, 0, len(categories))
	for id := range categories {
		if err := s.ensureCategory(ctx, id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := s.QuestionRepo.CreateBatch(ctx, questions); err != nil {
		return nil, err
	}
	s.refreshCount(ctx, ids...)
	logger.Log.Info("Questions bulk created", zap.Int("count", len(questions)))
	return questions, nil
}

func (s *QuestionService) Update(ctx context.Context, id string, in QuestionInput) (*model.Question, error) {
	question, err := s.QuestionRepo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, util.ErrQuestionNotFound)
	}
	oldCategory := question.CategoryID

	if err := in.apply(question, ""); err != nil {
		return nil, err
	}
	if question.CategoryID != oldCategory {
		if err := s.ensureCategory(ctx, question.CategoryID); err != nil {
			return nil, err
		}
	}
	if err := s.QuestionRepo.Update(ctx, question); err != nil {
		return nil, err
	}
	s.refreshCount(ctx, oldCategory, question.CategoryID)
	return question, nil
}

// Delete 已被会话或历史引用的题目只做停用，返回是否为软删除
func (s *QuestionService) Delete(ctx context.Context, id string) (soft bool, err error) {
	question, err := s.QuestionRepo.FindByID(ctx, id)
	if err != nil {
		return false, notFound(err, util.ErrQuestionNotFound)
	}

	referenced, err := s.QuestionRepo.IsReferenced(ctx, id)
	if err != nil {
		return false, err
	}
	if referenced {
		err = s.QuestionRepo.SetStatus(ctx, id, model.QuestionInactive)
	} else {
		err = s.QuestionRepo.Delete(ctx, id)
	}
	if err != nil {
		return false, err
	}
	s.refreshCount(ctx, question.CategoryID)
	return referenced, nil
}

// ToggleStatus 启用与停用之间切换，草稿直接启用
func (s *QuestionService) ToggleStatus(ctx context.Context, id string) (*model.Question, error) {
	question, err := s.QuestionRepo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, util.ErrQuestionNotFound)
	}

	next := model.QuestionActive
	if question.Status == model.QuestionActive {
		next = model.QuestionInactive
	}
	if next == model.QuestionActive {
		if err := question.Validate(); err != nil {
			return nil, util.NewValidationError(questionFieldError("", err))
		}
	}
	if err := s.QuestionRepo.SetStatus(ctx, id, next); err != nil {
		return nil, err
	}
	question.Status = next
	s.refreshCount(ctx, question.CategoryID)
	return question, nil
}

func (s *QuestionService) Stats(ctx context.Context, categoryID string) (*repository.QuestionBankStats, error) {
	return s.QuestionRepo.Stats(ctx, categoryID)
}
