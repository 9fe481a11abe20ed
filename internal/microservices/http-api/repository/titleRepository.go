package repository

import (
	"context"
	"fmt"

	"reviewhub/internal/microservices/http-api/models"
	"reviewhub/internal/shared"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// rating is never stored; it is averaged from reviews on every read
const titleColumns = "titles.*, (SELECT AVG(reviews.score) FROM reviews WHERE reviews.title_id = titles.id) AS rating"

// TitleFilter narrows a title listing. Zero values mean no filter.
type TitleFilter struct {
	Category string // category slug
	Genre    string // genre slug
	Name     string // case-insensitive substring
	Year     *int
}

type TitleRepository interface {
	Create(ctx context.Context, t *models.Title, genres []models.Genre) error
	Update(ctx context.Context, t *models.Title, genres []models.Genre, replaceGenres bool) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*models.Title, error)
	Exists(ctx context.Context, id int64) (bool, error)
	List(ctx context.Context, filter TitleFilter, page shared.Page) ([]models.Title, int64, error)
}

type TitleRepo struct {
	db *gorm.DB
}

func NewTitleRepo(db *gorm.DB) *TitleRepo {
	return &TitleRepo{db: db}
}

func applyTitleFilter(q *gorm.DB, f TitleFilter) *gorm.DB {
	if f.Category != "" {
		q = q.Where("titles.category_id IN (SELECT id FROM categories WHERE slug = ?)", f.Category)
	}
	if f.Genre != "" {
		q = q.Where(`EXISTS (SELECT 1 FROM title_genres tg JOIN genres g ON g.id = tg.genre_id
			WHERE tg.title_id = titles.id AND g.slug = ?)`, f.Genre)
	}
	if f.Name != "" {
		q = q.Where("titles.name ILIKE ?", "%"+f.Name+"%")
	}
	if f.Year != nil {
		q = q.Where("titles.year = ?", *f.Year)
	}
	return q
}

func (r *TitleRepo) List(ctx context.Context, filter TitleFilter, page shared.Page) ([]models.Title, int64, error) {
	var list []models.Title
	var total int64

	if err := applyTitleFilter(r.db.WithContext(ctx).Model(&models.Title{}), filter).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count titles: %w", err)
	}

	err := applyTitleFilter(r.db.WithContext(ctx).Model(&models.Title{}), filter).
		Select(titleColumns).
		Preload("Category").
		Preload("Genres").
		Order("titles.name asc, titles.id asc").
		Limit(page.Limit).
		Offset(page.Offset).
		Find(&list).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list titles: %w", err)
	}
	return list, total, nil
}

func (r *TitleRepo) GetByID(ctx context.Context, id int64) (*models.Title, error) {
	var t models.Title
	err := r.db.WithContext(ctx).
		Model(&models.Title{}).
		Select(titleColumns).
		Preload("Category").
		Preload("Genres").
		Where("titles.id = ?", id).
		First(&t).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &t, nil
}

func (r *TitleRepo) Exists(ctx context.Context, id int64) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Title{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, fmt.Errorf("check title: %w", err)
	}
	return count > 0, nil
}

// Create inserts the title and its genre links in one transaction.
func (r *TitleRepo) Create(ctx context.Context, t *models.Title, genres []models.Genre) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(t).Error; err != nil {
			return fmt.Errorf("create title: %w", translateError(err))
		}
		return linkGenres(tx, t.ID, genres)
	})
}

// Update writes the scalar columns and, when replaceGenres is set, swaps the genre links.
func (r *TitleRepo) Update(ctx context.Context, t *models.Title, genres []models.Genre, replaceGenres bool) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Title{ID: t.ID}).
			Select("name", "year", "description", "category_id").
			Updates(map[string]any{
				"name":        t.Name,
				"year":        t.Year,
				"description": t.Description,
				"category_id": t.CategoryID,
			})
		if result.Error != nil {
			return fmt.Errorf("update title: %w", translateError(result.Error))
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		if !replaceGenres {
			return nil
		}
		if err := tx.Where("title_id = ?", t.ID).Delete(&models.TitleGenre{}).Error; err != nil {
			return fmt.Errorf("unlink genres: %w", err)
		}
		return linkGenres(tx, t.ID, genres)
	})
}

func linkGenres(tx *gorm.DB, titleID int64, genres []models.Genre) error {
	if len(genres) == 0 {
		return nil
	}
	links := make([]models.TitleGenre, 0, len(genres))
	for _, g := range genres {
		links = append(links, models.TitleGenre{TitleID: titleID, GenreID: g.ID})
	}
	if err := tx.Omit(clause.Associations).Create(&links).Error; err != nil {
		return fmt.Errorf("link genres: %w", translateError(err))
	}
	return nil
}

// Delete removes the title; its reviews, comments and genre links cascade.
func (r *TitleRepo) Delete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Delete(&models.Title{}, id)
	if result.Error != nil {
		return fmt.Errorf("delete title: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
