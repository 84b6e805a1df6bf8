package repository

import (
	"context"

	"quiz_edu_backend/internal/model"
	"quiz_edu_backend/internal/util"

	"gorm.io/gorm"
)

type ChallengeSubmissionRepository struct {
	DB *gorm.DB
}

func NewChallengeSubmissionRepository(db *gorm.DB) *ChallengeSubmissionRepository {
	return &ChallengeSubmissionRepository{DB: db}
}

type SubmissionFilter struct {
	ChallengeID string
	StudentID   uint
	Status      model.SubmissionStatus
}

func (r *ChallengeSubmissionRepository) Create(ctx context.Context, submission *model.ChallengeSubmission) error {
	return r.DB.WithContext(ctx).Create(submission).Error
}

func (r *ChallengeSubmissionRepository) FindByID(ctx context.Context, id string) (*model.ChallengeSubmission, error) {
	var submission model.ChallengeSubmission
	err := r.DB.WithContext(ctx).Where("id = ?", id).First(&submission).Error
	if err != nil {
		return nil, err
	}
	return &submission, nil
}

// FindByChallengeAndStudent 每个学生在每道挑战下只有一份提交
func (r *ChallengeSubmissionRepository) FindByChallengeAndStudent(ctx context.Context, challengeID string, studentID uint) (*model.ChallengeSubmission, error) {
	var submission model.ChallengeSubmission
	err := r.DB.WithContext(ctx).
		Where("challenge_id = ? AND student_id = ?", challengeID, studentID).
		First(&submission).Error
	if err != nil {
		return nil, err
	}
	return &submission, nil
}

func (r *ChallengeSubmissionRepository) Save(ctx context.Context, submission *model.ChallengeSubmission) error {
	return r.DB.WithContext(ctx).Save(submission).Error
}

func (r *ChallengeSubmissionRepository) List(ctx context.Context, filter SubmissionFilter, p util.Pagination) ([]model.ChallengeSubmission, int64, error) {
	query := r.DB.WithContext(ctx).Model(&model.ChallengeSubmission{})
	if filter.ChallengeID != "" {
		query = query.Where("challenge_id = ?", filter.ChallengeID)
	}
	if filter.StudentID != 0 {
		query = query.Where("student_id = ?", filter.StudentID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var submissions []model.ChallengeSubmission
	err := query.Order("updated_at DESC").Offset(p.Offset()).Limit(p.Limit).Find(&submissions).Error
	return submissions, total, err
}
