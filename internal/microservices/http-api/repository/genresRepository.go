package repository

import (
	"context"
	"fmt"

	"reviewhub/internal/microservices/http-api/models"
	"reviewhub/internal/shared"

	"gorm.io/gorm"
)

type GenreRepository interface {
	Create(ctx context.Context, g *models.Genre) error
	List(ctx context.Context, search string, page shared.Page) ([]models.Genre, int64, error)
	FindBySlug(ctx context.Context, slug string) (*models.Genre, error)
	FindBySlugs(ctx context.Context, slugs []string) ([]models.Genre, error)
	DeleteBySlug(ctx context.Context, slug string) error
}

type GenreRepo struct {
	db *gorm.DB
}

func NewGenreRepo(db *gorm.DB) *GenreRepo {
	return &GenreRepo{db: db}
}

func (r *GenreRepo) Create(ctx context.Context, g *models.Genre) error {
	if err := r.db.WithContext(ctx).Create(g).Error; err != nil {
		return fmt.Errorf("create genre: %w", translateError(err))
	}
	return nil
}

func (r *GenreRepo) List(ctx context.Context, search string, page shared.Page) ([]models.Genre, int64, error) {
	var list []models.Genre
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Genre{})
	if search != "" {
		query = query.Where("name ILIKE ?", "%"+search+"%")
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count genres: %w", err)
	}
	if err := query.Order("name asc").Limit(page.Limit).Offset(page.Offset).Find(&list).Error; err != nil {
		return nil, 0, fmt.Errorf("get genres: %w", err)
	}
	return list, total, nil
}

func (r *GenreRepo) FindBySlug(ctx context.Context, slug string) (*models.Genre, error) {
	var g models.Genre
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&g).Error; err != nil {
		return nil, translateError(err)
	}
	return &g, nil
}

// FindBySlugs returns the genres that exist among slugs; callers compare lengths to spot unknown ones.
func (r *GenreRepo) FindBySlugs(ctx context.Context, slugs []string) ([]models.Genre, error) {
	var list []models.Genre
	if len(slugs) == 0 {
		return list, nil
	}
	if err := r.db.WithContext(ctx).Where("slug IN ?", slugs).Find(&list).Error; err != nil {
		return nil, fmt.Errorf("get genres by slug: %w", err)
	}
	return list, nil
}

// DeleteBySlug drops the genre and its title links in one transaction.
func (r *GenreRepo) DeleteBySlug(ctx context.Context, slug string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var g models.Genre
		if err := tx.Where("slug = ?", slug).First(&g).Error; err != nil {
			return translateError(err)
		}
		if err := tx.Where("genre_id = ?", g.ID).Delete(&models.TitleGenre{}).Error; err != nil {
			return fmt.Errorf("unlink genre: %w", err)
		}
		if err := tx.Delete(&g).Error; err != nil {
			return fmt.Errorf("delete genre: %w", err)
		}
		return nil
	})
}
