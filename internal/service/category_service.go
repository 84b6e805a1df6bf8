package service

import (
	"context"
	"errors"
	"strings"

	"quiz_edu_backend/internal/model"
	"quiz_edu_backend/internal/repository"
	"quiz_edu_backend/internal/util"
	"quiz_edu_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type CategoryService struct {
	CategoryRepo *repository.CategoryRepository
	QuestionRepo *repository.QuestionRepository
}

func NewCategoryService(categoryRepo *repository.CategoryRepository, questionRepo *repository.QuestionRepository) *CategoryService {
	return &CategoryService{
		CategoryRepo: categoryRepo,
		QuestionRepo: questionRepo,
	}
}

type CategoryInput struct {
	Name             string           `json:"name" binding:"required,max=100"`
	Description      string           `json:"description"`
	Icon             string           `json:"icon"`
	Color            string           `json:"color" binding:"max=20"`
	IsActive         *bool            `json:"isActive"`
	Difficulty       model.Difficulty `json:"difficulty"`
	EstimatedMinutes int              `json:"estimatedMinutes" binding:"min=0"`
}

type CategoryStats struct {
	Category  *model.Category               `json:"category"`
	Questions *repository.QuestionBankStats `json:"questions"`
}

func (in *CategoryInput) validate() error {
	verr := util.NewValidationError()
	if strings.TrimSpace(in.Name) == "" {
		verr.Add("name", "is required")
	}
	if in.Difficulty != "" && !in.Difficulty.Valid() {
		verr.Add("difficulty", "must be one of [easy medium hard]")
	}
	if verr.HasErrors() {
		return verr
	}
	return nil
}

func (s *CategoryService) List(ctx context.Context, filter repository.CategoryFilter, p util.Pagination) ([]model.Category, int64, error) {
	return s.CategoryRepo.List(ctx, filter, p)
}

// Get 学生只能查看启用的分类
func (s *CategoryService) Get(ctx context.Context, id string, principal Principal) (*model.Category, error) {
	category, err := s.CategoryRepo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, util.ErrCategoryNotFound)
	}
	if !category.IsActive && !principal.IsAdmin() {
		return nil, util.ErrCategoryNotFound
	}
	return category, nil
}

// FindByName 不区分大小写查找分类
func (s *CategoryService) FindByName(ctx context.Context, name string) (*model.Category, error) {
	category, err := s.CategoryRepo.FindByNameFold(ctx, name)
	if err != nil {
		return nil, notFound(err, util.ErrCategoryNotFound)
	}
	return category, nil
}

func (s *CategoryService) ensureNameFree(ctx context.Context, name, selfID string) error {
	existing, err := s.CategoryRepo.FindByName(ctx, name)
	if err == nil && existing.ID != selfID {
		return util.ErrCategoryNameTaken
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return nil
}

func (s *CategoryService) Create(ctx context.Context, in CategoryInput, principal Principal) (*model.Category, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := in.validate(); err != nil {
		return nil, err
	}
	if err := s.ensureNameFree(ctx, in.Name, ""); err != nil {
		return nil, err
	}

	category := &model.Category{
		Name:             in.Name,
		Description:      in.Description,
		Icon:             in.Icon,
		Color:            in.Color,
		IsActive:         true,
		Difficulty:       in.Difficulty,
		EstimatedMinutes: in.EstimatedMinutes,
		CreatedBy:        principal.UserID,
	}
	if in.IsActive != nil {
		category.IsActive = *in.IsActive
	}
	if category.Difficulty == "" {
		category.Difficulty = model.DifficultyMedium
	}
	if category.EstimatedMinutes == 0 {
		category.EstimatedMinutes = 10
	}

	if err := s.CategoryRepo.Create(ctx, category); err != nil {
		return nil, err
	}
	logger.Log.Info("Category created", zap.String("category_id", category.ID), zap.String("name", category.Name))
	return category, nil
}

func (s *CategoryService) Update(ctx context.Context, id string, in CategoryInput) (*model.Category, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := in.validate(); err != nil {
		return nil, err
	}

	category, err := s.CategoryRepo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, util.ErrCategoryNotFound)
	}
	if category.Name != in.Name {
		if err := s.ensureNameFree(ctx, in.Name, id); err != nil {
			return nil, err
		}
	}

	category.Name = in.Name
	category.Description = in.Description
	category.Icon = in.Icon
	category.Color = in.Color
	if in.IsActive != nil {
		category.IsActive = *in.IsActive
	}
	if in.Difficulty != "" {
		category.Difficulty = in.Difficulty
	}
	if in.EstimatedMinutes > 0 {
		category.EstimatedMinutes = in.EstimatedMinutes
	}

	if err := s.CategoryRepo.Update(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

// Delete 分类下仍有题目时拒绝删除
func (s *CategoryService) Delete(ctx context.Context, id string) error {
	if _, err := s.CategoryRepo.FindByID(ctx, id); err != nil {
		return notFound(err, util.ErrCategoryNotFound)
	}
	count, err := s.CategoryRepo.CountQuestions(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return util.ErrCategoryInUse
	}
	return s.CategoryRepo.Delete(ctx, id)
}

func (s *CategoryService) ToggleStatus(ctx context.Context, id string) (*model.Category, error) {
	category, err := s.CategoryRepo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, util.ErrCategoryNotFound)
	}
	category.IsActive = !category.IsActive
	if err := s.CategoryRepo.SetActive(ctx, id, category.IsActive); err != nil {
		return nil, err
	}
	return category, nil
}

func (s *CategoryService) Stats(ctx context.Context, id string) (*CategoryStats, error) {
	category, err := s.CategoryRepo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, util.ErrCategoryNotFound)
	}
	questions, err := s.QuestionRepo.Stats(ctx, id)
	if err != nil {
		return nil, err
	}
	return &CategoryStats{Category: category, Questions: questions}, nil
}
