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

type GenreService interface {
	List(ctx context.Context, search string, page shared.Page) (*shared.List[dto.GenreResponse], error)
	Create(ctx context.Context, req dto.CreateGenreDTO) (*dto.GenreResponse, error)
	Delete(ctx context.Context, slug string) error
}

type genreService struct {
	repo repository.GenreRepository
}

func NewGenreService(repo repository.GenreRepository) GenreService {
	return &genreService{repo: repo}
}

func (s *genreService) List(ctx context.Context, search string, page shared.Page) (*shared.List[dto.GenreResponse], error) {
	list, total, err := s.repo.List(ctx, strings.TrimSpace(search), page)
	if err != nil {
		return nil, err
	}
	out := make([]dto.GenreResponse, 0, len(list))
	for _, g := range list {
		out = append(out, dto.GenreFromModel(g))
	}
	return &shared.List[dto.GenreResponse]{Count: total, Results: out}, nil
}

func (s *genreService) Create(ctx context.Context, req dto.CreateGenreDTO) (*dto.GenreResponse, error) {
	name, err := ValidateCatalogName(req.Name)
	if err != nil {
		return nil, err
	}
	slug, err := resolveSlug(req.Slug, name)
	if err != nil {
		return nil, err
	}

	g := &models.Genre{Name: name, Slug: slug}
	if err := s.repo.Create(ctx, g); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, conflictError("slug", "genre with this slug already exists")
		}
		return nil, err
	}
	resp := dto.GenreFromModel(*g)
	return &resp, nil
}

// Delete removes the genre and its title links.
func (s *genreService) Delete(ctx context.Context, slug string) error {
	if err := s.repo.DeleteBySlug(ctx, slug); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound("genre")
		}
		return err
	}
	return nil
}
