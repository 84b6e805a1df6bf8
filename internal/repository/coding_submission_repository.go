package repository

import (
	"context"

	"quiz_edu_backend/internal/model"
	"quiz_edu_backend/internal/util"

	"gorm.io/gorm"
)

type CodingSubmissionRepository struct {
	DB *gorm.DB
}

func NewCodingSubmissionRepository(db *gorm.DB) *CodingSubmissionRepository {
	return &CodingSubmissionRepository{DB: db}
}

func (r *CodingSubmissionRepository) Create(ctx context.Context, submission *model.CodingSubmission) error {
	return r.DB.WithContext(ctx).Create(submission).Error
}

func (r *CodingSubmissionRepository) Save(ctx context.Context, submission *model.CodingSubmission) error {
	return r.DB.WithContext(ctx).Save(submission).Error
}

func (r *CodingSubmissionRepository) FindByID(ctx context.Context, id string) (*model.CodingSubmission, error) {
	var submission model.CodingSubmission
	err := r.DB.WithContext(ctx).Where("id = ?", id).First(&submission).Error
	if err != nil {
		return nil, err
	}
	return &submission, nil
}

func (r *CodingSubmissionRepository) ListByUser(ctx context.Context, userID uint, questionID string, p util.Pagination) ([]model.CodingSubmission, int64, error) {
	query := r.DB.WithContext(ctx).Model(&model.CodingSubmission{}).Where("user_id = ?", userID)
	if questionID != "" {
		query = query.Where("question_id = ?", questionID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var submissions []model.CodingSubmission
	err := query.Order("created_at DESC").Offset(p.Offset()).Limit(p.Limit).Find(&submissions).Error
	return submissions, total, err
}
