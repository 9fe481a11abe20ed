package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"reviewhub/internal/microservices/http-api/dto"
	"reviewhub/internal/microservices/http-api/models"
	"reviewhub/internal/microservices/http-api/repository"
	"reviewhub/internal/shared"
)

type TitleService interface {
	List(ctx context.Context, filter repository.TitleFilter, page shared.Page) (*shared.List[dto.TitleResponse], error)
	Get(ctx context.Context, id int64) (*dto.TitleResponse, error)
	Create(ctx context.Context, req dto.CreateTitleDTO) (*dto.TitleResponse, error)
	Update(ctx context.Context, id int64, req dto.UpdateTitleDTO) (*dto.TitleResponse, error)
	Delete(ctx context.Context, id int64) error
}

type titleService struct {
	titles     repository.TitleRepository
	categories repository.CategoryRepository
	genres     repository.GenreRepository
	now        func() time.Time
}

func NewTitleService(
	titles repository.TitleRepository,
	categories repository.CategoryRepository,
	genres repository.GenreRepository,
) TitleService {
	return &titleService{
		titles:     titles,
		categories: categories,
		genres:     genres,
		now:        time.Now,
	}
}

func (s *titleService) List(ctx context.Context, filter repository.TitleFilter, page shared.Page) (*shared.List[dto.TitleResponse], error) {
	filter.Name = strings.TrimSpace(filter.Name)
	list, total, err := s.titles.List(ctx, filter, page)
	if err != nil {
		return nil, err
	}
	out := make([]dto.TitleResponse, 0, len(list))
	for i := range list {
		out = append(out, dto.TitleFromModel(&list[i]))
	}
	return &shared.List[dto.TitleResponse]{Count: total, Results: out}, nil
}

func (s *titleService) Get(ctx context.Context, id int64) (*dto.TitleResponse, error) {
	t, err := s.titles.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("title")
		}
		return nil, err
	}
	resp := dto.TitleFromModel(t)
	return &resp, nil
}

func (s *titleService) Create(ctx context.Context, req dto.CreateTitleDTO) (*dto.TitleResponse, error) {
	name, err := ValidateCatalogName(req.Name)
	if err != nil {
		return nil, err
	}
	if req.Year == nil {
		return nil, validationError("year", "this field is required")
	}
	year, err := ValidateYear(*req.Year, s.now())
	if err != nil {
		return nil, err
	}

	t := &models.Title{Name: name, Year: year, Description: req.Description}
	if req.Category != nil {
		if t.CategoryID, err = s.resolveCategory(ctx, *req.Category); err != nil {
			return nil, err
		}
	}
	genres, err := s.resolveGenres(ctx, req.Genre)
	if err != nil {
		return nil, err
	}

	if err := s.titles.Create(ctx, t, genres); err != nil {
		return nil, titleWriteError(err)
	}
	return s.Get(ctx, t.ID)
}

func (s *titleService) Update(ctx context.Context, id int64, req dto.UpdateTitleDTO) (*dto.TitleResponse, error) {
	t, err := s.titles.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("title")
		}
		return nil, err
	}

	if req.Name != nil {
		if t.Name, err = ValidateCatalogName(*req.Name); err != nil {
			return nil, err
		}
	}
	if req.Year != nil {
		if t.Year, err = ValidateYear(*req.Year, s.now()); err != nil {
			return nil, err
		}
	}
	if req.Description != nil {
		t.Description = req.Description
	}
	if req.Category != nil {
		if t.CategoryID, err = s.resolveCategory(ctx, *req.Category); err != nil {
			return nil, err
		}
	}

	var genres []models.Genre
	if req.Genre != nil {
		if genres, err = s.resolveGenres(ctx, *req.Genre); err != nil {
			return nil, err
		}
	}

	if err := s.titles.Update(ctx, t, genres, req.Genre != nil); err != nil {
		return nil, titleWriteError(err)
	}
	return s.Get(ctx, id)
}

// Delete removes the title with its reviews and comments.
func (s *titleService) Delete(ctx context.Context, id int64) error {
	if err := s.titles.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound("title")
		}
		return err
	}
	return nil
}

// resolveCategory maps a slug to an id. An empty slug clears the category.
// Unknown slugs are bad input, not missing resources.
func (s *titleService) resolveCategory(ctx context.Context, slug string) (*int64, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, nil
	}
	c, err := s.categories.FindBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, validationError("category", "object with slug=%s does not exist", slug)
		}
		return nil, err
	}
	return &c.ID, nil
}

func (s *titleService) resolveGenres(ctx context.Context, slugs []string) ([]models.Genre, error) {
	unique := make([]string, 0, len(slugs))
	seen := make(map[string]bool, len(slugs))
	for _, raw := range slugs {
		slug := strings.TrimSpace(raw)
		if slug == "" || seen[slug] {
			continue
		}
		seen[slug] = true
		unique = append(unique, slug)
	}
	if len(unique) == 0 {
		return nil, nil
	}

	genres, err := s.genres.FindBySlugs(ctx, unique)
	if err != nil {
		return nil, err
	}
	if len(genres) == len(unique) {
		return genres, nil
	}

	found := make(map[string]bool, len(genres))
	for _, g := range genres {
		found[g.Slug] = true
	}
	for _, slug := range unique {
		if !found[slug] {
			return nil, validationError("genre", "object with slug=%s does not exist", slug)
		}
	}
	return genres, nil
}

func titleWriteError(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return notFound("title")
	case errors.Is(err, repository.ErrInvalidReference):
		// category or genre vanished between lookup and write
		return validationError("category", "referenced object no longer exists")
	}
	return fmt.Errorf("save title: %w", err)
}
