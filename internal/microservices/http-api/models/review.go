package models

import "time"

// Review is unique per (title, author); the unique_review index backs that.
type Review struct {
	ID       int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	TitleID  int64     `json:"-" gorm:"not null;uniqueIndex:unique_review,priority:1"`
	AuthorID string    `json:"-" gorm:"type:uuid;not null;uniqueIndex:unique_review,priority:2;index"`
	Text     string    `json:"text" gorm:"type:text;not null"`
	Score    int       `json:"score" gorm:"not null;check:score >= 1 AND score <= 10"`
	PubDate  time.Time `json:"pub_date" gorm:"autoCreateTime;index"`

	// Associations
	Author User  `json:"-" gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE;"`
	Title  Title `json:"-" gorm:"foreignKey:TitleID;constraint:OnDelete:CASCADE;"`
}

// OwnerID returns the author's user id.
func (r *Review) OwnerID() string {
	return r.AuthorID
}

func (Review) TableName() string {
	return "reviews"
}
