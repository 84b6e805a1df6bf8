package repository

import (
	"context"

	"quiz_edu_backend/internal/model"
	"quiz_edu_backend/internal/util"

	"gorm.io/gorm"
)

type CategoryRepository struct {
	DB *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) *CategoryRepository {
	return &CategoryRepository{DB: db}
}

type CategoryFilter struct {
	IncludeInactive bool
	Difficulty      model.Difficulty
	Search          string
}

func (r *CategoryRepository) Create(ctx context.Context, category *model.Category) error {
	return r.DB.WithContext(ctx).Create(category).Error
}

func (r *CategoryRepository) FindByID(ctx context.Context, id string) (*model.Category, error) {
	var category model.Category
	err := r.DB.WithContext(ctx).Where("id = ?", id).First(&category).Error
	if err != nil {
		return nil, err
	}
	return &category, nil
}

// FindByName 精确匹配，区分大小写
func (r *CategoryRepository) FindByName(ctx context.Context, name string) (*model.Category, error) {
	var category model.Category
	err := r.DB.WithContext(ctx).Where("name = ?", name).First(&category).Error
	if err != nil {
		return nil, err
	}
	return &category, nil
}

// FindByNameFold 不区分大小写查找
func (r *CategoryRepository) FindByNameFold(ctx context.Context, name string) (*model.Category, error) {
	var category model.Category
	err := r.DB.WithContext(ctx).Where("LOWER(name) = LOWER(?)", name).First(&category).Error
	if err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *CategoryRepository) List(ctx context.Context, filter CategoryFilter, p util.Pagination) ([]model.Category, int64, error) {
	query := r.DB.WithContext(ctx).Model(&model.Category{})
	if !filter.IncludeInactive {
		query = query.Where("is_active = ?", true)
	}
	if filter.Difficulty != "" {
		query = query.Where("difficulty = ?", filter.Difficulty)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where("name LIKE ? OR description LIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var categories []model.Category
	err := query.Order("name ASC").Offset(p.Offset()).Limit(p.Limit).Find(&categories).Error
	return categories, total, err
}

func (r *CategoryRepository) Update(ctx context.Context, category *model.Category) error {
	return r.DB.WithContext(ctx).Save(category).Error
}

func (r *CategoryRepository) SetActive(ctx context.Context, id string, active bool) error {
	return r.DB.WithContext(ctx).Model(&model.Category{}).
		Where("id = ?", id).
		Update("is_active", active).Error
}

func (r *CategoryRepository) Delete(ctx context.Context, id string) error {
	return r.DB.WithContext(ctx).Unscoped().Where("id = ?", id).Delete(&model.Category{}).Error
}

// CountQuestions 统计分类下所有状态的题目
func (r *CategoryRepository) CountQuestions(ctx context.Context, id string) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.Question{}).Where("category_id = ?", id).Count(&count).Error
	return count, err
}

// RefreshQuestionCount 重新计算分类缓存的启用题目数量
func (r *CategoryRepository) RefreshQuestionCount(ctx context.Context, id string) error {
	var count int64
	db := r.DB.WithContext(ctx)
	if err := db.Model(&model.Question{}).
		Where("category_id = ? AND status = ?", id, model.QuestionActive).
		Count(&count).Error; err != nil {
		return err
	}
	return db.Model(&model.Category{}).Where("id = ?", id).Update("question_count", count).Error
}
