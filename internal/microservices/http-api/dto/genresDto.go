package dto

import "reviewhub/internal/microservices/http-api/models"

// CreateGenreDTO for POST /genres. Slug is derived from the name when empty.
type CreateGenreDTO struct {
	Name string `json:"name" binding:"required"`
	Slug string `json:"slug"`
}

type GenreResponse struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

func GenreFromModel(g models.Genre) GenreResponse {
	return GenreResponse{
		Name: g.Name,
		Slug: g.Slug,
	}
}
