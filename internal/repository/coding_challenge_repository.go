package repository

import (
	"context"

	"quiz_edu_backend/internal/model"
	"quiz_edu_backend/internal/util"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CodingChallengeRepository struct {
	DB *gorm.DB
}

func NewCodingChallengeRepository(db *gorm.DB) *CodingChallengeRepository {
	return &CodingChallengeRepository{DB: db}
}

type ChallengeFilter struct {
	IncludeInactive bool
	Difficulty      model.Difficulty
	Search          string
}

func (r *CodingChallengeRepository) Create(ctx context.Context, challenge *model.CodingChallenge) error {
	return r.DB.WithContext(ctx).Create(challenge).Error
}

func (r *CodingChallengeRepository) FindByID(ctx context.Context, id string) (*model.CodingChallenge, error) {
	var challenge model.CodingChallenge
	err := r.DB.WithContext(ctx).Where("id = ?", id).First(&challenge).Error
	if err != nil {
		return nil, err
	}
	return &challenge, nil
}

func (r *CodingChallengeRepository) List(ctx context.Context, filter ChallengeFilter, p util.Pagination) ([]model.CodingChallenge, int64, error) {
	query := r.DB.WithContext(ctx).Model(&model.CodingChallenge{})
	if !filter.IncludeInactive {
		query = query.Where("is_active = ?", true)
	}
	if filter.Difficulty != "" {
		query = query.Where("difficulty = ?", filter.Difficulty)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where("title LIKE ? OR description LIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var challenges []model.CodingChallenge
	err := query.Order("created_at DESC").Offset(p.Offset()).Limit(p.Limit).Find(&challenges).Error
	return challenges, total, err
}

func (r *CodingChallengeRepository) Update(ctx context.Context, challenge *model.CodingChallenge) error {
	return r.DB.WithContext(ctx).Save(challenge).Error
}

func (r *CodingChallengeRepository) SetActive(ctx context.Context, id string, active bool) error {
	return r.DB.WithContext(ctx).Model(&model.CodingChallenge{}).
		Where("id = ?", id).
		Update("is_active", active).Error
}

func (r *CodingChallengeRepository) Delete(ctx context.Context, id string) error {
	return r.DB.WithContext(ctx).Where("id = ?", id).Delete(&model.CodingChallenge{}).Error
}

func (r *CodingChallengeRepository) IncrementSubmissions(ctx context.Context, id string) error {
	return r.DB.WithContext(ctx).Model(&model.CodingChallenge{}).
		Where("id = ?", id).
		Update("stats_total_submissions", gorm.Expr("stats_total_submissions + ?", 1)).Error
}

// RecordReview 累加评审统计
func (r *CodingChallengeRepository) RecordReview(ctx context.Context, id string, score int) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var challenge model.CodingChallenge
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Select("id", "stats_reviewed_submissions", "stats_average_score").
			Where("id = ?", id).First(&challenge).Error; err != nil {
			return err
		}
		challenge.Stats.RecordReview(score)
		return tx.Model(&model.CodingChallenge{}).Where("id = ?", id).Updates(map[string]interface{}{
			"stats_reviewed_submissions": challenge.Stats.ReviewedSubmissions,
			"stats_average_score":        challenge.Stats.AverageScore,
		}).Error
	})
}
