package model

import (
	"math"
	"time"

	"gorm.io/datatypes"
)

type DifficultyBreakdown struct {
	Difficulty Difficulty `json:"difficulty"`
	Total      int        `json:"total"`
	Correct    int        `json:"correct"`
	Percentage int        `json:"percentage"`
}

type PerformanceMetrics struct {
	AverageTimePerQuestion float64               `json:"averageTimePerQuestion"`
	FastestAnswer          int                   `json:"fastestAnswer"`
	SlowestAnswer          int                   `json:"slowestAnswer"`
	ByDifficulty           []DifficultyBreakdown `json:"byDifficulty"`
}

// AttemptComparison 与同一分类上一次作答的对比
type AttemptComparison struct {
	HasPrevious       bool   `json:"hasPrevious"`
	PreviousAttemptID string `json:"previousAttemptId,omitempty"`
	PercentageDelta   int    `json:"percentageDelta"`
	DurationDelta     int    `json:"durationDelta"`
	IsPersonalBest    bool   `json:"isPersonalBest"`
	Rank              int    `json:"rank,omitempty"`
	RankDelta         int    `json:"rankDelta"`
}

// swagger:model AttemptHistory
type AttemptHistory struct {
	UUIDBase
	SessionID    string                               `gorm:"size:64;uniqueIndex;not null" json:"sessionId"`
	UserID       uint                                 `gorm:"index;not null" json:"userId"`
	CategoryID   string                               `gorm:"type:varchar(36);index;not null" json:"categoryId"`
	CategoryName string                               `gorm:"size:100" json:"categoryName"`
	Difficulty   Difficulty                           `gorm:"size:20" json:"difficulty"`
	Status       SessionStatus                        `gorm:"size:20;index" json:"status"`
	Questions    datatypes.JSONSlice[SessionQuestion] `json:"questions"`
	Answers      datatypes.JSONSlice[SessionAnswer]   `json:"answers"`
	Score        ScoreSummary                         `gorm:"embedded;embeddedPrefix:score_" json:"score"`
	TimeLimit    int                                  `json:"timeLimit"`
	Duration     int                                  `json:"duration"`
	StartedAt    time.Time                            `json:"startedAt"`
	CompletedAt  time.Time                            `gorm:"index" json:"completedAt"`
	Performance  PerformanceMetrics                   `gorm:"serializer:json" json:"performance"`
	Comparison   AttemptComparison                    `gorm:"serializer:json" json:"comparison"`
}

func (AttemptHistory) TableName() string {
	return "attempt_histories"
}

// BuildPerformance 根据快照和答案计算用时与难度分布
func BuildPerformance(questions []SessionQuestion, answers []SessionAnswer) PerformanceMetrics {
	var metrics PerformanceMetrics

	if len(answers) > 0 {
		total := 0
		metrics.FastestAnswer = answers[0].TimeSpent
		for _, a := range answers {
			total += a.TimeSpent
			if a.TimeSpent < metrics.FastestAnswer {
				metrics.FastestAnswer = a.TimeSpent
			}
			if a.TimeSpent > metrics.SlowestAnswer {
				metrics.SlowestAnswer = a.TimeSpent
			}
		}
		metrics.AverageTimePerQuestion = float64(total) / float64(len(answers))
	}

	answered := make(map[string]bool, len(answers))
	for _, a := range answers {
		answered[a.QuestionID] = a.IsCorrect
	}

	order := []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard}
	buckets := make(map[Difficulty]*DifficultyBreakdown)
	for _, q := range questions {
		b, ok := buckets[q.Difficulty]
		if !ok {
			b = &DifficultyBreakdown{Difficulty: q.Difficulty}
			buckets[q.Difficulty] = b
		}
		b.Total++
		if answered[q.QuestionID] {
			b.Correct++
		}
	}
	for _, d := range order {
		if b, ok := buckets[d]; ok {
			if b.Total > 0 {
				b.Percentage = int(math.Round(100 * float64(b.Correct) / float64(b.Total)))
			}
			metrics.ByDifficulty = append(metrics.ByDifficulty, *b)
		}
	}
	return metrics
}
