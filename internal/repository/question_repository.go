package repository

import (
	"context"

	"quiz_edu_backend/internal/model"
	"quiz_edu_backend/internal/util"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type QuestionRepository struct {
	DB *gorm.DB
}

func NewQuestionRepository(db *gorm.DB) *QuestionRepository {
	return &QuestionRepository{DB: db}
}

// QuestionFilter 题目列表筛选条件
type QuestionFilter struct {
	CategoryID string
	Difficulty model.Difficulty
	Kind       model.QuestionKind
	Status     model.QuestionStatus
	Search     string
	Sort       util.Sort
}

// QuestionCount 分组统计结果
type QuestionCount struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

// QuestionBankStats 题库汇总统计
type QuestionBankStats struct {
	Total         int64           `json:"total"`
	ByStatus      []QuestionCount `json:"byStatus"`
	ByDifficulty  []QuestionCount `json:"byDifficulty"`
	ByKind        []QuestionCount `json:"byKind"`
	TotalAttempts int64           `json:"totalAttempts"`
	TotalCorrect  int64           `json:"totalCorrect"`
}

func (r *QuestionRepository) Create(ctx context.Context, question *model.Question) error {
	return r.DB.WithContext(ctx).Create(question).Error
}

// CreateBatch 批量创建，任一失败全部回滚
func (r *QuestionRepository) CreateBatch(ctx context.Context, questions []*model.Question) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, q := range questions {
			if err := tx.Create(q).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *QuestionRepository) FindByID(ctx context.Context, id string) (*model.Question, error) {
	var question model.Question
	err := r.DB.WithContext(ctx).Where("id = ?", id).First(&question).Error
	if err != nil {
		return nil, err
	}
	return &question, nil
}

func (r *QuestionRepository) FindByIDs(ctx context.Context, ids []string) ([]model.Question, error) {
	var questions []model.Question
	err := r.DB.WithContext(ctx).Where("id IN ?", ids).Find(&questions).Error
	return questions, err
}

func (r *QuestionRepository) List(ctx context.Context, filter QuestionFilter, p util.Pagination) ([]model.Question, int64, error) {
	query := r.DB.WithContext(ctx).Model(&model.Question{})
	if filter.CategoryID != "" {
		query = query.Where("category_id = ?", filter.CategoryID)
	}
	if filter.Difficulty != "" && filter.Difficulty != model.DifficultyMixed {
		query = query.Where("difficulty = ?", filter.Difficulty)
	}
	if filter.Kind != "" {
		query = query.Where("kind = ?", filter.Kind)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where("text LIKE ? OR "+r.textColumn("tags")+" LIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	order := filter.Sort
	if order.Column == "" {
		order = util.Sort{Column: "created_at", Desc: true}
	}

	var questions []model.Question
	err := query.Order(order.String()).Offset(p.Offset()).Limit(p.Limit).Find(&questions).Error
	return questions, total, err
}

// FindActiveForSession 随机抽取候选池：指定分类下的启用题目，编程题走判题流程不参与答题会话
func (r *QuestionRepository) FindActiveForSession(ctx context.Context, categoryID string, difficulty model.Difficulty, limit int) ([]model.Question, error) {
	query := r.DB.WithContext(ctx).
		Where("category_id = ? AND status = ?", categoryID, model.QuestionActive).
		Where("kind <> ?", model.KindCoding)
	if difficulty != "" && difficulty != model.DifficultyMixed {
		query = query.Where("difficulty = ?", difficulty)
	}

	var questions []model.Question
	err := query.Order(randomOrder(r.DB)).Limit(limit).Find(&questions).Error
	return questions, err
}

func (r *QuestionRepository) Update(ctx context.Context, question *model.Question) error {
	return r.DB.WithContext(ctx).Save(question).Error
}

func (r *QuestionRepository) SetStatus(ctx context.Context, id string, status model.QuestionStatus) error {
	return r.DB.WithContext(ctx).Model(&model.Question{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (r *QuestionRepository) Delete(ctx context.Context, id string) error {
	return r.DB.WithContext(ctx).Unscoped().Where("id = ?", id).Delete(&model.Question{}).Error
}

// IsReferenced 题目是否已被答题会话、历史记录或编程提交引用
func (r *QuestionRepository) IsReferenced(ctx context.Context, id string) (bool, error) {
	db := r.DB.WithContext(ctx)
	like := "%" + id + "%"

	var count int64
	if err := db.Model(&model.QuizSession{}).Where(r.textColumn("questions")+" LIKE ?", like).Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return true, nil
	}
	if err := db.Model(&model.AttemptHistory{}).Where(r.textColumn("questions")+" LIKE ?", like).Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return true, nil
	}
	err := db.Model(&model.CodingSubmission{}).Where("question_id = ?", id).Count(&count).Error
	return count > 0, err
}

// RecordAttempt 累加题目作答统计，行锁保证并发交卷时计数不丢失
func (r *QuestionRepository) RecordAttempt(ctx context.Context, id string, correct bool, timeSpent int) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var question model.Question
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Select("id", "stats_attempts", "stats_correct_count", "stats_average_time").
			Where("id = ?", id).First(&question).Error; err != nil {
			return err
		}
		question.Stats.RecordAttempt(correct, timeSpent)
		return tx.Model(&model.Question{}).Where("id = ?", id).Updates(map[string]interface{}{
			"stats_attempts":      question.Stats.Attempts,
			"stats_correct_count": question.Stats.CorrectCount,
			"stats_average_time":  question.Stats.AverageTime,
		}).Error
	})
}

func (r *QuestionRepository) Stats(ctx context.Context, categoryID string) (*QuestionBankStats, error) {
	base := func() *gorm.DB {
		q := r.DB.WithContext(ctx).Model(&model.Question{})
		if categoryID != "" {
			q = q.Where("category_id = ?", categoryID)
		}
		return q
	}

	stats := &QuestionBankStats{}
	if err := base().Count(&stats.Total).Error; err != nil {
		return nil, err
	}
	if err := base().Select("status AS name, COUNT(*) AS count").Group("status").Scan(&stats.ByStatus).Error; err != nil {
		return nil, err
	}
	if err := base().Select("difficulty AS name, COUNT(*) AS count").Group("difficulty").Scan(&stats.ByDifficulty).Error; err != nil {
		return nil, err
	}
	if err := base().Select("kind AS name, COUNT(*) AS count").Group("kind").Scan(&stats.ByKind).Error; err != nil {
		return nil, err
	}

	var totals struct {
		Attempts int64
		Correct  int64
	}
	if err := base().Select("COALESCE(SUM(stats_attempts), 0) AS attempts, COALESCE(SUM(stats_correct_count), 0) AS correct").
		Scan(&totals).Error; err != nil {
		return nil, err
	}
	stats.TotalAttempts = totals.Attempts
	stats.TotalCorrect = totals.Correct
	return stats, nil
}

// textColumn JSON 列做 LIKE 查询时 postgres 需要显式转换
func (r *QuestionRepository) textColumn(column string) string {
	return textColumn(r.DB, column)
}
