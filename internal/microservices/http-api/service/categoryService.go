package service

import (
	"context"
	"errors"
	"strings"

	"reviewhub/internal/microservices/http-api/dto"
	"reviewhub/internal/microservices/http-api/models"
	"reviewhub/internal/microservices/http-api/repository"
	"reviewhub/internal/shared"
)

type CategoryService interface {
	List(ctx context.Context, search string, page shared.Page) (*shared.List[dto.CategoryResponse], error)
	Create(ctx context.Context, req dto.CreateCategoryDTO) (*dto.CategoryResponse, error)
	Delete(ctx context.Context, slug string) error
}

type categoryService struct {
	repo repository.CategoryRepository
}

func NewCategoryService(repo repository.CategoryRepository) CategoryService {
	return &categoryService{repo: repo}
}

func (s *categoryService) List(ctx context.Context, search string, page shared.Page) (*shared.List[dto.CategoryResponse], error) {
	list, total, err := s.repo.List(ctx, strings.TrimSpace(search), page)
	if err != nil {
		return nil, err
	}
	out := make([]dto.CategoryResponse, 0, len(list))
	for _, c := range list {
		out = append(out, dto.CategoryFromModel(c))
	}
	return &shared.List[dto.CategoryResponse]{Count: total, Results: out}, nil
}

func (s *categoryService) Create(ctx context.Context, req dto.CreateCategoryDTO) (*dto.CategoryResponse, error) {
	name, err := ValidateCatalogName(req.Name)
	if err != nil {
		return nil, err
	}
	slug, err := resolveSlug(req.Slug, name)
	if err != nil {
		return nil, err
	}

	c := &models.Category{Name: name, Slug: slug}
	if err := s.repo.Create(ctx, c); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, conflictError("slug", "category with this slug already exists")
		}
		return nil, err
	}
	resp := dto.CategoryFromModel(*c)
	return &resp, nil
}

// Delete removes the category; titles in it are kept with no category.
func (s *categoryService) Delete(ctx context.Context, slug string) error {
	if err := s.repo.DeleteBySlug(ctx, slug); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound("category")
		}
		return err
	}
	return nil
}
