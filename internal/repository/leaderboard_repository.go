package repository

import (
	"context"
	"fmt"
	"strconv"

	"quiz_edu_backend/internal/model"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// LeaderboardRepository 分类排行榜，每个用户保留最高得分率；无 Redis 时退化为数据库聚合
type LeaderboardRepository struct {
	DB    *gorm.DB
	Redis *redis.Client
}

func NewLeaderboardRepository(db *gorm.DB, rdb *redis.Client) *LeaderboardRepository {
	return &LeaderboardRepository{DB: db, Redis: rdb}
}

func leaderboardKey(categoryID string) string {
	return fmt.Sprintf("quiz:leaderboard:%s", categoryID)
}

// RecordBest 仅当新成绩高于已有成绩时更新
func (r *LeaderboardRepository) RecordBest(ctx context.Context, categoryID string, userID uint, percentage int) error {
	if r.Redis == nil {
		return nil
	}
	key := leaderboardKey(categoryID)
	member := strconv.FormatUint(uint64(userID), 10)

	current, err := r.Redis.ZScore(ctx, key, member).Result()
	if err != nil && err != redis.Nil {
		return err
	}
	if err == nil && current >= float64(percentage) {
		return nil
	}
	return r.Redis.ZAdd(ctx, key, &redis.Z{Score: float64(percentage), Member: member}).Err()
}

// Best 用户在分类下的最高得分率
func (r *LeaderboardRepository) Best(ctx context.Context, categoryID string, userID uint) (float64, bool, error) {
	if r.Redis == nil {
		var rows []userBest
		err := r.DB.WithContext(ctx).Model(&model.AttemptHistory{}).
			Select("user_id, MAX(score_percentage) AS best").
			Where("category_id = ? AND user_id = ?", categoryID, userID).
			Group("user_id").
			Scan(&rows).Error
		if err != nil || len(rows) == 0 {
			return 0, false, err
		}
		return rows[0].Best, true, nil
	}
	score, err := r.Redis.ZScore(ctx, leaderboardKey(categoryID), strconv.FormatUint(uint64(userID), 10)).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return score, true, nil
}

// Rank 返回用户当前名次（从 1 开始），未上榜时 ok 为 false
func (r *LeaderboardRepository) Rank(ctx context.Context, categoryID string, userID uint) (rank int, ok bool, err error) {
	best, ok, err := r.Best(ctx, categoryID, userID)
	if err != nil || !ok {
		return 0, false, err
	}
	above, err := r.countAbove(ctx, categoryID, best)
	if err != nil {
		return 0, false, err
	}
	return int(above) + 1, true, nil
}

// ProjectedRank 假设用户新增一次得分率为 score 的作答后的名次
func (r *LeaderboardRepository) ProjectedRank(ctx context.Context, categoryID string, userID uint, score int) (int, error) {
	effective := float64(score)
	best, ok, err := r.Best(ctx, categoryID, userID)
	if err != nil {
		return 0, err
	}
	if ok && best > effective {
		effective = best
	}
	above, err := r.countAbove(ctx, categoryID, effective)
	if err != nil {
		return 0, err
	}
	return int(above) + 1, nil
}

// countAbove 最高得分率严格大于 score 的用户数
func (r *LeaderboardRepository) countAbove(ctx context.Context, categoryID string, score float64) (int64, error) {
	if r.Redis == nil {
		var count int64
		db := r.DB.WithContext(ctx)
		sub := db.Model(&model.AttemptHistory{}).
			Select("user_id").
			Where("category_id = ?", categoryID).
			Group("user_id").
			Having("MAX(score_percentage) > ?", score)
		err := db.Table("(?) AS ranked", sub).Count(&count).Error
		return count, err
	}
	lower := "(" + strconv.FormatFloat(score, 'f', -1, 64)
	return r.Redis.ZCount(ctx, leaderboardKey(categoryID), lower, "+inf").Result()
}

func (r *LeaderboardRepository) Top(ctx context.Context, categoryID string, limit int) ([]model.LeaderboardEntry, error) {
	if r.Redis == nil {
		return r.topFromDB(ctx, categoryID, limit)
	}
	members, err := r.Redis.ZRevRangeWithScores(ctx, leaderboardKey(categoryID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]model.LeaderboardEntry, 0, len(members))
	for i, m := range members {
		id, err := strconv.ParseUint(fmt.Sprint(m.Member), 10, 64)
		if err != nil {
			continue
		}
		entries = append(entries, model.LeaderboardEntry{
			Rank:      i + 1,
			UserID:    uint(id),
			BestScore: m.Score,
		})
	}
	return entries, nil
}

type userBest struct {
	UserID uint
	Best   float64
}

func (r *LeaderboardRepository) topFromDB(ctx context.Context, categoryID string, limit int) ([]model.LeaderboardEntry, error) {
	var rows []userBest
	err := r.DB.WithContext(ctx).Model(&model.AttemptHistory{}).
		Select("user_id, MAX(score_percentage) AS best").
		Where("category_id = ?", categoryID).
		Group("user_id").
		Order("best DESC, user_id ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	entries := make([]model.LeaderboardEntry, 0, len(rows))
	for i, row := range rows {
		entries = append(entries, model.LeaderboardEntry{Rank: i + 1, UserID: row.UserID, BestScore: row.Best})
	}
	return entries, nil
}
