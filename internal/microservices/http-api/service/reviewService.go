package service

import (
	"context"
	"errors"

	"reviewhub/internal/microservices/http-api/dto"
	"reviewhub/internal/microservices/http-api/models"
	"reviewhub/internal/microservices/http-api/permission"
	"reviewhub/internal/microservices/http-api/repository"
	"reviewhub/internal/shared"
)

type ReviewService interface {
	List(ctx context.Context, titleID int64, page shared.Page) (*shared.List[dto.ReviewResponse], error)
	Get(ctx context.Context, titleID, reviewID int64) (*dto.ReviewResponse, error)
	Create(ctx context.Context, caller permission.Caller, titleID int64, req dto.CreateReviewDTO) (*dto.ReviewResponse, error)
	Update(ctx context.Context, caller permission.Caller, titleID, reviewID int64, req dto.UpdateReviewDTO) (*dto.ReviewResponse, error)
	Delete(ctx context.Context, caller permission.Caller, titleID, reviewID int64) error
}

type reviewService struct {
	reviews repository.ReviewRepository
	titles  repository.TitleRepository
}

func NewReviewService(reviews repository.ReviewRepository, titles repository.TitleRepository) ReviewService {
	return &reviewService{
		reviews: reviews,
		titles:  titles,
	}
}

func (s *reviewService) List(ctx context.Context, titleID int64, page shared.Page) (*shared.List[dto.ReviewResponse], error) {
	if err := s.requireTitle(ctx, titleID); err != nil {
		return nil, err
	}
	reviews, total, err := s.reviews.ListByTitle(ctx, titleID, page)
	if err != nil {
		return nil, err
	}
	out := make([]dto.ReviewResponse, 0, len(reviews))
	for i := range reviews {
		out = append(out, dto.ReviewFromModel(&reviews[i]))
	}
	return &shared.List[dto.ReviewResponse]{Count: total, Results: out}, nil
}

func (s *reviewService) Get(ctx context.Context, titleID, reviewID int64) (*dto.ReviewResponse, error) {
	review, err := s.find(ctx, titleID, reviewID)
	if err != nil {
		return nil, err
	}
	resp := dto.ReviewFromModel(review)
	return &resp, nil
}

// Create posts the caller's review of a title. The existence check gives a
// friendly error; the unique_review index settles concurrent duplicates.
func (s *reviewService) Create(ctx context.Context, caller permission.Caller, titleID int64, req dto.CreateReviewDTO) (*dto.ReviewResponse, error) {
	if err := authorize(permission.Authenticated(caller, permission.OpWrite)); err != nil {
		return nil, err
	}

	text, err := ValidateText(req.Text)
	if err != nil {
		return nil, err
	}
	if req.Score == nil {
		return nil, validationError("score", "this field is required")
	}
	score, err := ValidateScore(*req.Score)
	if err != nil {
		return nil, err
	}

	if err := s.requireTitle(ctx, titleID); err != nil {
		return nil, err
	}

	exists, err := s.reviews.ExistsByTitleAndAuthor(ctx, titleID, caller.UserID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, duplicateReview()
	}

	review := &models.Review{
		TitleID:  titleID,
		AuthorID: caller.UserID,
		Text:     text,
		Score:    score,
	}
	if err := s.reviews.Create(ctx, review); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, duplicateReview()
		}
		if errors.Is(err, repository.ErrInvalidReference) {
			// title deleted after the check above
			return nil, notFound("title")
		}
		return nil, err
	}

	return s.Get(ctx, titleID, review.ID)
}

func (s *reviewService) Update(ctx context.Context, caller permission.Caller, titleID, reviewID int64, req dto.UpdateReviewDTO) (*dto.ReviewResponse, error) {
	review, err := s.find(ctx, titleID, reviewID)
	if err != nil {
		return nil, err
	}
	if err := authorize(permission.IsAuthorOrStaffOrReadOnly(caller, permission.OpWrite, review.OwnerID())); err != nil {
		return nil, err
	}

	if req.Text != nil {
		if review.Text, err = ValidateText(*req.Text); err != nil {
			return nil, err
		}
	}
	if req.Score != nil {
		if review.Score, err = ValidateScore(*req.Score); err != nil {
			return nil, err
		}
	}

	if err := s.reviews.Update(ctx, review); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("review")
		}
		return nil, err
	}
	resp := dto.ReviewFromModel(review)
	return &resp, nil
}

func (s *reviewService) Delete(ctx context.Context, caller permission.Caller, titleID, reviewID int64) error {
	review, err := s.find(ctx, titleID, reviewID)
	if err != nil {
		return err
	}
	if err := authorize(permission.IsAuthorOrStaffOrReadOnly(caller, permission.OpWrite, review.OwnerID())); err != nil {
		return err
	}
	if err := s.reviews.Delete(ctx, review.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound("review")
		}
		return err
	}
	return nil
}

func (s *reviewService) requireTitle(ctx context.Context, titleID int64) error {
	ok, err := s.titles.Exists(ctx, titleID)
	if err != nil {
		return err
	}
	if !ok {
		return notFound("title")
	}
	return nil
}

// find resolves a review scoped to its title.
func (s *reviewService) find(ctx context.Context, titleID, reviewID int64) (*models.Review, error) {
	if err := s.requireTitle(ctx, titleID); err != nil {
		return nil, err
	}
	review, err := s.reviews.GetByID(ctx, titleID, reviewID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("review")
		}
		return nil, err
	}
	return review, nil
}

func duplicateReview() error {
	return conflictError("", "you have already reviewed this title")
}

// authorize turns a permission decision into a service error.
func authorize(d permission.Decision) error {
	switch d {
	case permission.Allow:
		return nil
	case permission.DenyUnauthenticated:
		return unauthenticated()
	default:
		return forbidden()
	}
}
