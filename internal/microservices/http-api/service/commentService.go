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

type CommentService interface {
	List(ctx context.Context, titleID, reviewID int64, page shared.Page) (*shared.List[dto.CommentResponse], error)
	Get(ctx context.Context, titleID, reviewID, commentID int64) (*dto.CommentResponse, error)
	Create(ctx context.Context, caller permission.Caller, titleID, reviewID int64, req dto.CreateCommentDTO) (*dto.CommentResponse, error)
	Update(ctx context.Context, caller permission.Caller, titleID, reviewID, commentID int64, req dto.UpdateCommentDTO) (*dto.CommentResponse, error)
	Delete(ctx context.Context, caller permission.Caller, titleID, reviewID, commentID int64) error
}

type commentService struct {
	comments repository.CommentRepository
	reviews  repository.ReviewRepository
}

func NewCommentService(comments repository.CommentRepository, reviews repository.ReviewRepository) CommentService {
	return &commentService{
		comments: comments,
		reviews:  reviews,
	}
}

func (s *commentService) List(ctx context.Context, titleID, reviewID int64, page shared.Page) (*shared.List[dto.CommentResponse], error) {
	if _, err := s.findReview(ctx, titleID, reviewID); err != nil {
		return nil, err
	}
	comments, total, err := s.comments.ListByReview(ctx, reviewID, page)
	if err != nil {
		return nil, err
	}
	out := make([]dto.CommentResponse, 0, len(comments))
	for i := range comments {
		out = append(out, dto.FromModelToCommentResponse(&comments[i]))
	}
	return &shared.List[dto.CommentResponse]{Count: total, Results: out}, nil
}

func (s *commentService) Get(ctx context.Context, titleID, reviewID, commentID int64) (*dto.CommentResponse, error) {
	comment, err := s.find(ctx, titleID, reviewID, commentID)
	if err != nil {
		return nil, err
	}
	resp := dto.FromModelToCommentResponse(comment)
	return &resp, nil
}

// Create adds a comment to a review that must belong to the title in the path.
func (s *commentService) Create(ctx context.Context, caller permission.Caller, titleID, reviewID int64, req dto.CreateCommentDTO) (*dto.CommentResponse, error) {
	if err := authorize(permission.Authenticated(caller, permission.OpWrite)); err != nil {
		return nil, err
	}
	text, err := ValidateText(req.Text)
	if err != nil {
		return nil, err
	}

	review, err := s.findReview(ctx, titleID, reviewID)
	if err != nil {
		return nil, err
	}

	// Kept for parity with the review-must-exist rule. After findReview it
	// only fires if the review is deleted in between.
	exists, err := s.reviews.ExistsForTitle(ctx, titleID, review.ID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, validationError("review", "a review must exist before it can be commented on")
	}

	comment := &models.Comment{
		ReviewID: review.ID,
		AuthorID: caller.UserID,
		Text:     text,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		if errors.Is(err, repository.ErrInvalidReference) {
			return nil, notFound("review")
		}
		return nil, err
	}
	return s.Get(ctx, titleID, reviewID, comment.ID)
}

func (s *commentService) Update(ctx context.Context, caller permission.Caller, titleID, reviewID, commentID int64, req dto.UpdateCommentDTO) (*dto.CommentResponse, error) {
	comment, err := s.find(ctx, titleID, reviewID, commentID)
	if err != nil {
		return nil, err
	}
	if err := authorize(permission.IsAuthorOrStaffOrReadOnly(caller, permission.OpWrite, comment.OwnerID())); err != nil {
		return nil, err
	}

	if req.Text != nil {
		if comment.Text, err = ValidateText(*req.Text); err != nil {
			return nil, err
		}
	}
	if err := s.comments.Update(ctx, comment); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("comment")
		}
		return nil, err
	}
	resp := dto.FromModelToCommentResponse(comment)
	return &resp, nil
}

func (s *commentService) Delete(ctx context.Context, caller permission.Caller, titleID, reviewID, commentID int64) error {
	comment, err := s.find(ctx, titleID, reviewID, commentID)
	if err != nil {
		return err
	}
	if err := authorize(permission.IsAuthorOrStaffOrReadOnly(caller, permission.OpWrite, comment.OwnerID())); err != nil {
		return err
	}
	if err := s.comments.Delete(ctx, comment.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound("comment")
		}
		return err
	}
	return nil
}

// findReview resolves the parent review scoped to the title; anything else is not found.
func (s *commentService) findReview(ctx context.Context, titleID, reviewID int64) (*models.Review, error) {
	review, err := s.reviews.GetByID(ctx, titleID, reviewID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("review")
		}
		return nil, err
	}
	return review, nil
}

func (s *commentService) find(ctx context.Context, titleID, reviewID, commentID int64) (*models.Comment, error) {
	if _, err := s.findReview(ctx, titleID, reviewID); err != nil {
		return nil, err
	}
	comment, err := s.comments.GetByID(ctx, reviewID, commentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("comment")
		}
		return nil, err
	}
	return comment, nil
}
