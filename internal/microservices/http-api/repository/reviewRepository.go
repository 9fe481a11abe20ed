package repository

import (
	"context"
	"fmt"

	"reviewhub/internal/microservices/http-api/models"
	"reviewhub/internal/shared"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UniqueReviewConstraint is the storage-level guard for one review per (title, author).
const UniqueReviewConstraint = "unique_review"

type ReviewRepository interface {
	Create(ctx context.Context, review *models.Review) error
	Update(ctx context.Context, review *models.Review) error
	Delete(ctx context.Context, reviewID int64) error
	GetByID(ctx context.Context, titleID, reviewID int64) (*models.Review, error)
	ListByTitle(ctx context.Context, titleID int64, page shared.Page) ([]models.Review, int64, error)
	ExistsByTitleAndAuthor(ctx context.Context, titleID int64, authorID string) (bool, error)
	ExistsForTitle(ctx context.Context, titleID, reviewID int64) (bool, error)
}

type reviewRepository struct {
	db *gorm.DB
}

func NewReviewRepository(db *gorm.DB) ReviewRepository {
	return &reviewRepository{db: db}
}

// Create a new review. A concurrent duplicate surfaces as ErrDuplicate on unique_review.
func (r *reviewRepository) Create(ctx context.Context, review *models.Review) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(review).Error; err != nil {
		return fmt.Errorf("create review: %w", translateError(err))
	}
	return nil
}

// Update changes text and score only; author, title and pub_date are fixed.
func (r *reviewRepository) Update(ctx context.Context, review *models.Review) error {
	result := r.db.WithContext(ctx).
		Model(&models.Review{ID: review.ID}).
		Select("text", "score").
		Updates(map[string]any{"text": review.Text, "score": review.Score})
	if result.Error != nil {
		return fmt.Errorf("update review: %w", translateError(result.Error))
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete a review; its comments cascade.
func (r *reviewRepository) Delete(ctx context.Context, reviewID int64) error {
	result := r.db.WithContext(ctx).Delete(&models.Review{}, reviewID)
	if result.Error != nil {
		return fmt.Errorf("delete review: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByID retrieves a review only if it belongs to the given title
func (r *reviewRepository) GetByID(ctx context.Context, titleID, reviewID int64) (*models.Review, error) {
	var review models.Review
	err := r.db.WithContext(ctx).
		Where("id = ? AND title_id = ?", reviewID, titleID).
		Preload("Author").
		First(&review).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &review, nil
}

// ListByTitle retrieves reviews of a title, newest first
func (r *reviewRepository) ListByTitle(ctx context.Context, titleID int64, page shared.Page) ([]models.Review, int64, error) {
	var reviews []models.Review
	var total int64

	if err := r.db.WithContext(ctx).Model(&models.Review{}).Where("title_id = ?", titleID).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count reviews: %w", err)
	}

	err := r.db.WithContext(ctx).
		Where("title_id = ?", titleID).
		Preload("Author").
		Order("pub_date DESC, id DESC").
		Limit(page.Limit).
		Offset(page.Offset).
		Find(&reviews).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list reviews: %w", err)
	}
	return reviews, total, nil
}

func (r *reviewRepository) ExistsByTitleAndAuthor(ctx context.Context, titleID int64, authorID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Review{}).
		Where("title_id = ? AND author_id = ?", titleID, authorID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check review: %w", err)
	}
	return count > 0, nil
}

func (r *reviewRepository) ExistsForTitle(ctx context.Context, titleID, reviewID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Review{}).
		Where("id = ? AND title_id = ?", reviewID, titleID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check review: %w", err)
	}
	return count > 0, nil
}
