package model

import "gorm.io/datatypes"

type ChallengeExample struct {
	Input       string `json:"input"`
	Output      string `json:"output"`
	Explanation string `json:"explanation,omitempty"`
}

type ChallengeStats struct {
	TotalSubmissions    int     `gorm:"default:0" json:"totalSubmissions"`
	ReviewedSubmissions int     `gorm:"default:0" json:"reviewedSubmissions"`
	AverageScore        float64 `gorm:"default:0" json:"averageScore"`
}

// swagger:model CodingChallenge
type CodingChallenge struct {
	UUIDBase
	Title             string                                `gorm:"size:200;not null" json:"title"`
	Description       string                                `gorm:"type:text;not null" json:"description"`
	Difficulty        Difficulty                            `gorm:"size:20;index" json:"difficulty"`
	Points            int                                   `gorm:"default:10" json:"points"`
	TimeLimit         int                                   `gorm:"default:60" json:"timeLimit"` // 分钟
	Examples          datatypes.JSONSlice[ChallengeExample] `json:"examples"`
	Constraints       datatypes.JSONSlice[string]           `json:"constraints"`
	Hints             datatypes.JSONSlice[string]           `json:"hints"`
	Languages         datatypes.JSONSlice[string]           `json:"languages"`
	Tags              datatypes.JSONSlice[string]           `json:"tags"`
	ReferenceSolution string                                `gorm:"type:text" json:"referenceSolution,omitempty"`
	HiddenTests       datatypes.JSONSlice[TestCase]         `json:"hiddenTests,omitempty"`
	IsActive          bool                                  `gorm:"index;not null" json:"isActive"`
	Stats             ChallengeStats                        `gorm:"embedded;embeddedPrefix:stats_" json:"stats"`
	CreatedBy         uint                                  `json:"createdBy"`
}

func (CodingChallenge) TableName() string {
	return "coding_challenges"
}

// ForStudent 去掉参考答案和隐藏用例
func (c CodingChallenge) ForStudent() CodingChallenge {
	c.ReferenceSolution = ""
	c.HiddenTests = nil
	return c
}

// SupportsLanguage 未限制语言时接受任意语言
func (c *CodingChallenge) SupportsLanguage(lang string) bool {
	if len(c.Languages) == 0 {
		return true
	}
	for _, l := range c.Languages {
		if l == lang {
			return true
		}
	}
	return false
}

// RecordReview 累计评审统计，平均分按增量计算
func (s *ChallengeStats) RecordReview(score int) {
	s.ReviewedSubmissions++
	s.AverageScore += (float64(score) - s.AverageScore) / float64(s.ReviewedSubmissions)
}
