package dto

import "reviewhub/internal/microservices/http-api/models"

// CreateTitleDTO for POST /titles; category and genres are referenced by slug
type CreateTitleDTO struct {
	Name        string   `json:"name" binding:"required"`
	Year        *int     `json:"year" binding:"required"`
	Description *string  `json:"description"`
	Genre       []string `json:"genre"`
	Category    *string  `json:"category"`
}

// UpdateTitleDTO for PATCH /titles/:title_id. Nil fields are left alone;
// an empty category string clears the category.
type UpdateTitleDTO struct {
	Name        *string   `json:"name"`
	Year        *int      `json:"year"`
	Description *string   `json:"description"`
	Genre       *[]string `json:"genre"`
	Category    *string   `json:"category"`
}

// TitleResponse is the read shape, with the derived rating
type TitleResponse struct {
	ID          int64             `json:"id"`
	Name        string            `json:"name"`
	Year        int               `json:"year"`
	Rating      *float64          `json:"rating"`
	Description *string           `json:"description"`
	Genre       []GenreResponse   `json:"genre"`
	Category    *CategoryResponse `json:"category"`
}

func TitleFromModel(t *models.Title) TitleResponse {
	genres := make([]GenreResponse, 0, len(t.Genres))
	for _, g := range t.Genres {
		genres = append(genres, GenreFromModel(g))
	}

	var category *CategoryResponse
	if t.Category != nil {
		c := CategoryFromModel(*t.Category)
		category = &c
	}

	return TitleResponse{
		ID:          t.ID,
		Name:        t.Name,
		Year:        t.Year,
		Rating:      t.Rating,
		Description: t.Description,
		Genre:       genres,
		Category:    category,
	}
}
