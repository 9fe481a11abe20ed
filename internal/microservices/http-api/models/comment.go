package models

import "time"

type Comment struct {
	ID       int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	ReviewID int64     `json:"-" gorm:"not null;index"`
	AuthorID string    `json:"-" gorm:"type:uuid;not null;index"`
	Text     string    `json:"text" gorm:"type:text;not null"`
	PubDate  time.Time `json:"pub_date" gorm:"autoCreateTime;index"`

	// Associations
	Author User   `json:"-" gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE;"`
	Review Review `json:"-" gorm:"foreignKey:ReviewID;constraint:OnDelete:CASCADE;"`
}

// OwnerID returns the author's user id.
func (c *Comment) OwnerID() string {
	return c.AuthorID
}

func (Comment) TableName() string {
	return "comments"
}
