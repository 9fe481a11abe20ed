package models

type Title struct {
	ID          int64   `json:"id" gorm:"primaryKey;autoIncrement"`
	Name        string  `json:"name" gorm:"size:256;not null;index"`
	Year        int     `json:"year" gorm:"not null;index"`
	Description *string `json:"description" gorm:"type:text"`
	CategoryID  *int64  `json:"-" gorm:"index"`

	// read-only, filled by the rating subquery in the title repository
	Rating *float64 `json:"rating" gorm:"->;-:migration"`

	// association
	Category *Category `json:"category" gorm:"foreignKey:CategoryID;constraint:OnDelete:SET NULL;"`
	Genres   []Genre   `json:"genre" gorm:"many2many:title_genres;constraint:OnDelete:CASCADE;"`
}

func (Title) TableName() string {
	return "titles"
}
