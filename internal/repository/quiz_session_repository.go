package repository

import (
	"context"

	"quiz_edu_backend/internal/model"
	"quiz_edu_backend/internal/util"

	"gorm.io/gorm"
)

type QuizSessionRepository struct {
	DB *gorm.DB
}

func NewQuizSessionRepository(db *gorm.DB) *QuizSessionRepository {
	return &QuizSessionRepository{DB: db}
}

func (r *QuizSessionRepository) Create(ctx context.Context, session *model.QuizSession) error {
	return r.DB.WithContext(ctx).Create(session).Error
}

func (r *QuizSessionRepository) FindBySessionID(ctx context.Context, sessionID string) (*model.QuizSession, error) {
	var session model.QuizSession
	err := r.DB.WithContext(ctx).Where("session_id = ?", sessionID).First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// FindInProgress 用户在某分类下进行中的会话
func (r *QuizSessionRepository) FindInProgress(ctx context.Context, userID uint, categoryID string) (*model.QuizSession, error) {
	var session model.QuizSession
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND category_id = ? AND status = ?", userID, categoryID, model.SessionInProgress).
		Order("started_at DESC").
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *QuizSessionRepository) Save(ctx context.Context, session *model.QuizSession) error {
	return r.DB.WithContext(ctx).Save(session).Error
}

func (r *QuizSessionRepository) ListByUser(ctx context.Context, userID uint, status model.SessionStatus, p util.Pagination) ([]model.QuizSession, int64, error) {
	query := r.DB.WithContext(ctx).Model(&model.QuizSession{}).Where("user_id = ?", userID)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var sessions []model.QuizSession
	err := query.Order("started_at DESC").Offset(p.Offset()).Limit(p.Limit).Find(&sessions).Error
	return sessions, total, err
}
