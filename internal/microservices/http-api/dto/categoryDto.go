package dto

import "reviewhub/internal/microservices/http-api/models"

// CreateCategoryDTO for POST /categories. Slug is derived from the name when empty.
type CreateCategoryDTO struct {
	Name string `json:"name" binding:"required"`
	Slug string `json:"slug"`
}

type CategoryResponse struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

func CategoryFromModel(c models.Category) CategoryResponse {
	return CategoryResponse{
		Name: c.Name,
		Slug: c.Slug,
	}
}
