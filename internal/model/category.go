package model

// swagger:model Category
type Category struct {
	UUIDBase
	Name             string     `gorm:"size:100;uniqueIndex;not null" json:"name"`
	Description      string     `gorm:"type:text" json:"description"`
	Icon             string     `gorm:"size:255" json:"icon"`
	Color            string     `gorm:"size:20" json:"color"`
	IsActive         bool       `gorm:"not null" json:"isActive"`
	QuestionCount    int        `gorm:"default:0" json:"questionCount"`
	Difficulty       Difficulty `gorm:"size:20;default:medium" json:"difficulty"`
	EstimatedMinutes int        `gorm:"default:10" json:"estimatedMinutes"`
	CreatedBy        uint       `json:"createdBy"`
}

func (Category) TableName() string {
	return "categories"
}
