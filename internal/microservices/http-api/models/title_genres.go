package models

// explicit join model so both foreign keys cascade on delete
type TitleGenre struct {
	TitleID int64 `json:"title_id" gorm:"primaryKey"`
	GenreID int64 `json:"genre_id" gorm:"primaryKey;index"`

	Title Title `json:"-" gorm:"foreignKey:TitleID;constraint:OnDelete:CASCADE;"`
	Genre Genre `json:"-" gorm:"foreignKey:GenreID;constraint:OnDelete:CASCADE;"`
}

func (TitleGenre) TableName() string {
	return "title_genres"
}
