package repository

import (
	"context"
	"fmt"

	"reviewhub/internal/microservices/http-api/models"
	"reviewhub/internal/shared"

	"gorm.io/gorm"
)

type CategoryRepository interface {
	Create(ctx context.Context, c *models.Category) error
	List(ctx context.Context, search string, page shared.Page) ([]models.Category, int64, error)
	FindBySlug(ctx context.Context, slug string) (*models.Category, error)
	DeleteBySlug(ctx context.Context, slug string) error
}

type CategoryRepo struct {
	db *gorm.DB
}

func NewCategoryRepo(db *gorm.DB) *CategoryRepo {
	return &CategoryRepo{db: db}
}

func (r *CategoryRepo) Create(ctx context.Context, c *models.Category) error {
	if err := r.db.WithContext(ctx).Create(c).Error; err != nil {
		return fmt.Errorf("create category: %w", translateError(err))
	}
	return nil
}

func (r *CategoryRepo) List(ctx context.Context, search string, page shared.Page) ([]models.Category, int64, error) {
	var list []models.Category
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Category{})
	if search != "" {
		query = query.Where("name ILIKE ?", "%"+search+"%")
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count categories: %w", err)
	}
	if err := query.Order("name asc").Limit(page.Limit).Offset(page.Offset).Find(&list).Error; err != nil {
		return nil, 0, fmt.Errorf("get categories: %w", err)
	}
	return list, total, nil
}

func (r *CategoryRepo) FindBySlug(ctx context.Context, slug string) (*models.Category, error) {
	var c models.Category
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&c).Error; err != nil {
		return nil, translateError(err)
	}
	return &c, nil
}

// DeleteBySlug removes the category. Titles in it keep existing with a null category.
func (r *CategoryRepo) DeleteBySlug(ctx context.Context, slug string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var c models.Category
		if err := tx.Where("slug = ?", slug).First(&c).Error; err != nil {
			return translateError(err)
		}
		if err := tx.Model(&models.Title{}).Where("category_id = ?", c.ID).Update("category_id", nil).Error; err != nil {
			return fmt.Errorf("detach titles: %w", err)
		}
		if err := tx.Delete(&c).Error; err != nil {
			return fmt.Errorf("delete category: %w", err)
		}
		return nil
	})
}
