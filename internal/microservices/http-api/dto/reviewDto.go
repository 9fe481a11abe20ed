package dto

import (
	"time"

	"reviewhub/internal/microservices/http-api/models"
)

// CreateReviewDTO for POST /titles/:title_id/reviews
type CreateReviewDTO struct {
	Text  string `json:"text" binding:"required"`
	Score *int   `json:"score" binding:"required"`
}

// UpdateReviewDTO for PATCH; nil fields are left alone
type UpdateReviewDTO struct {
	Text  *string `json:"text"`
	Score *int    `json:"score"`
}

type ReviewResponse struct {
	ID      int64     `json:"id"`
	Text    string    `json:"text"`
	Author  string    `json:"author"`
	Score   int       `json:"score"`
	PubDate time.Time `json:"pub_date"`
}

func ReviewFromModel(r *models.Review) ReviewResponse {
	return ReviewResponse{
		ID:      r.ID,
		Text:    r.Text,
		Author:  r.Author.Username,
		Score:   r.Score,
		PubDate: r.PubDate,
	}
}
