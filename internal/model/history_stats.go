package model

// HistoryStats 用户作答历史的汇总统计
type HistoryStats struct {
	TotalAttempts  int64                 `json:"totalAttempts"`
	CompletedCount int64                 `json:"completedCount"`
	AverageScore   float64               `json:"averageScore"`
	BestScore      int                   `json:"bestScore"`
	WorstScore     int                   `json:"worstScore"`
	TotalTimeSpent int64                 `json:"totalTimeSpent"`
	ByCategory     []CategoryPerformance `json:"byCategory"`
}

type CategoryPerformance struct {
	CategoryID   string  `json:"categoryId"`
	CategoryName string  `json:"categoryName"`
	Attempts     int64   `json:"attempts"`
	AverageScore float64 `json:"averageScore"`
	BestScore    int     `json:"bestScore"`
}

// TrendPoint 按时间分桶的趋势数据
type TrendPoint struct {
	Period       string  `json:"period"`
	Attempts     int     `json:"attempts"`
	AverageScore float64 `json:"averageScore"`
	BestScore    int     `json:"bestScore"`
	TimeSpent    int     `json:"timeSpent"`
}

type HistoryAnalytics struct {
	Period     string                `json:"period"`
	Trend      []TrendPoint          `json:"trend"`
	Difficulty []DifficultyBreakdown `json:"difficulty"`
	Stats      *HistoryStats         `json:"stats"`
}

type LeaderboardEntry struct {
	Rank      int     `json:"rank"`
	UserID    uint    `json:"userId"`
	BestScore float64 `json:"bestScore"`
}
