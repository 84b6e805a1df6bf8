package repository

import (
	"context"
	"time"

	"quiz_edu_backend/internal/model"
	"quiz_edu_backend/internal/util"

	"gorm.io/gorm"
)

type AttemptHistoryRepository struct {
	DB *gorm.DB
}

func NewAttemptHistoryRepository(db *gorm.DB) *AttemptHistoryRepository {
	return &AttemptHistoryRepository{DB: db}
}

// HistoryFilter 作答历史筛选条件
type HistoryFilter struct {
	UserID     uint
	CategoryID string
	Status     model.SessionStatus
	From       *time.Time
	To         *time.Time
	Sort       util.Sort
}

// HistoryAggregate 汇总统计的原始结果
type HistoryAggregate struct {
	CategoryID     string
	CategoryName   string
	TotalAttempts  int64
	CompletedCount int64
	AverageScore   float64
	BestScore      int
	WorstScore     int
	TotalTimeSpent int64
}

func (r *AttemptHistoryRepository) Create(ctx context.Context, history *model.AttemptHistory) error {
	return r.DB.WithContext(ctx).Create(history).Error
}

func (r *AttemptHistoryRepository) ExistsBySession(ctx context.Context, sessionID string) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.AttemptHistory{}).Where("session_id = ?", sessionID).Count(&count).Error
	return count > 0, err
}

func (r *AttemptHistoryRepository) FindByID(ctx context.Context, id string) (*model.AttemptHistory, error) {
	var history model.AttemptHistory
	err := r.DB.WithContext(ctx).Where("id = ?", id).First(&history).Error
	if err != nil {
		return nil, err
	}
	return &history, nil
}

// FindPrevious 同一用户同一分类在指定时间之前最近的一次作答
func (r *AttemptHistoryRepository) FindPrevious(ctx context.Context, userID uint, categoryID string, before time.Time) (*model.AttemptHistory, error) {
	var history model.AttemptHistory
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND category_id = ? AND completed_at < ?", userID, categoryID, before).
		Order("completed_at DESC").
		First(&history).Error
	if err != nil {
		return nil, err
	}
	return &history, nil
}

// BestPercentageBefore 指定时间之前的最高得分率，没有记录时 found 为 false
func (r *AttemptHistoryRepository) BestPercentageBefore(ctx context.Context, userID uint, categoryID string, before time.Time) (best int, found bool, err error) {
	var result struct {
		Best  *int
		Total int64
	}
	err = r.DB.WithContext(ctx).Model(&model.AttemptHistory{}).
		Select("MAX(score_percentage) AS best, COUNT(*) AS total").
		Where("user_id = ? AND category_id = ? AND completed_at < ?", userID, categoryID, before).
		Scan(&result).Error
	if err != nil || result.Total == 0 || result.Best == nil {
		return 0, false, err
	}
	return *result.Best, true, nil
}

func (r *AttemptHistoryRepository) filtered(ctx context.Context, filter HistoryFilter) *gorm.DB {
	query := r.DB.WithContext(ctx).Model(&model.AttemptHistory{}).Where("user_id = ?", filter.UserID)
	if filter.CategoryID != "" {
		query = query.Where("category_id = ?", filter.CategoryID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.From != nil {
		query = query.Where("completed_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("completed_at <= ?", *filter.To)
	}
	return query
}

func (r *AttemptHistoryRepository) List(ctx context.Context, filter HistoryFilter, p util.Pagination) ([]model.AttemptHistory, int64, error) {
	query := r.filtered(ctx, filter)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	order := filter.Sort
	if order.Column == "" {
		order = util.Sort{Column: "completed_at", Desc: true}
	}

	var histories []model.AttemptHistory
	err := query.Order(order.String()).Offset(p.Offset()).Limit(p.Limit).Find(&histories).Error
	return histories, total, err
}

// FindAll 不分页，按完成时间升序，用于趋势分析和导出
func (r *AttemptHistoryRepository) FindAll(ctx context.Context, filter HistoryFilter) ([]model.AttemptHistory, error) {
	var histories []model.AttemptHistory
	err := r.filtered(ctx, filter).Order("completed_at ASC").Find(&histories).Error
	return histories, err
}

const aggregateColumns = "COUNT(*) AS total_attempts, " +
	"COALESCE(SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END), 0) AS completed_count, " +
	"COALESCE(AVG(score_percentage), 0) AS average_score, " +
	"COALESCE(MAX(score_percentage), 0) AS best_score, " +
	"COALESCE(MIN(score_percentage), 0) AS worst_score, " +
	"COALESCE(SUM(duration), 0) AS total_time_spent"

// Aggregate 汇总统计
func (r *AttemptHistoryRepository) Aggregate(ctx context.Context, filter HistoryFilter) (*HistoryAggregate, error) {
	var agg HistoryAggregate
	err := r.filtered(ctx, filter).Select(aggregateColumns).Scan(&agg).Error
	if err != nil {
		return nil, err
	}
	return &agg, nil
}

// AggregateByCategory 按分类分组的汇总统计
func (r *AttemptHistoryRepository) AggregateByCategory(ctx context.Context, filter HistoryFilter) ([]HistoryAggregate, error) {
	var rows []HistoryAggregate
	err := r.filtered(ctx, filter).
		Select("category_id, MAX(category_name) AS category_name, " + aggregateColumns).
		Group("category_id").
		Order("total_attempts DESC").
		Scan(&rows).Error
	return rows, err
}
