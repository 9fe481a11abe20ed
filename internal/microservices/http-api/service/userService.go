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

type UserService interface {
	List(ctx context.Context, search string, page shared.Page) (*shared.List[dto.UserResponse], error)
	Create(ctx context.Context, req dto.CreateUserRequest) (*dto.UserResponse, error)
	Get(ctx context.Context, username string) (*dto.UserResponse, error)
	Update(ctx context.Context, username string, req dto.UpdateUserRequest) (*dto.UserResponse, error)
	Delete(ctx context.Context, username string) error
	GetMe(ctx context.Context, userID string) (*dto.UserResponse, error)
	UpdateMe(ctx context.Context, userID string, req dto.UpdateUserRequest) (*dto.UserResponse, error)
	SetRole(ctx context.Context, username string, role string) (*dto.UserResponse, error)
	EnsureSuperuser(ctx context.Context, username, email string) (*dto.UserResponse, bool, error)
}

type userService struct {
	users repository.UserRepository
}

func NewUserService(users repository.UserRepository) UserService {
	return &userService{users: users}
}

func (s *userService) List(ctx context.Context, search string, page shared.Page) (*shared.List[dto.UserResponse], error) {
	users, total, err := s.users.List(ctx, strings.TrimSpace(search), page)
	if err != nil {
		return nil, err
	}
	results := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		results = append(results, dto.UserFromModel(&users[i]))
	}
	return &shared.List[dto.UserResponse]{Count: total, Results: results}, nil
}

// Create adds an account on behalf of an admin. The role defaults to user.
func (s *userService) Create(ctx context.Context, req dto.CreateUserRequest) (*dto.UserResponse, error) {
	user := &models.User{Role: models.RoleUser, Bio: req.Bio}
	var err error

	if user.Username, err = ValidateUsername(req.Username); err != nil {
		return nil, err
	}
	if user.Email, err = ValidateEmail(req.Email); err != nil {
		return nil, err
	}
	if user.FirstName, err = ValidatePersonName("first_name", req.FirstName); err != nil {
		return nil, err
	}
	if user.LastName, err = ValidatePersonName("last_name", req.LastName); err != nil {
		return nil, err
	}
	if req.Role != "" {
		if user.Role, err = ValidateRole(req.Role); err != nil {
			return nil, err
		}
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, userWriteError(err)
	}
	resp := dto.UserFromModel(user)
	return &resp, nil
}

func (s *userService) Get(ctx context.Context, username string) (*dto.UserResponse, error) {
	user, err := s.findByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	resp := dto.UserFromModel(user)
	return &resp, nil
}

// Update applies an admin edit, role included.
func (s *userService) Update(ctx context.Context, username string, req dto.UpdateUserRequest) (*dto.UserResponse, error) {
	user, err := s.findByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return s.applyUpdate(ctx, user, req, true)
}

func (s *userService) Delete(ctx context.Context, username string) error {
	user, err := s.findByUsername(ctx, username)
	if err != nil {
		return err
	}
	if err := s.users.Delete(ctx, user.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound("user")
		}
		return err
	}
	return nil
}

func (s *userService) GetMe(ctx context.Context, userID string) (*dto.UserResponse, error) {
	user, err := s.findByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	resp := dto.UserFromModel(user)
	return &resp, nil
}

// UpdateMe is the self-service edit. A role in the payload is ignored.
func (s *userService) UpdateMe(ctx context.Context, userID string, req dto.UpdateUserRequest) (*dto.UserResponse, error) {
	user, err := s.findByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.applyUpdate(ctx, user, req, false)
}

// SetRole changes a role outside the HTTP surface (admin CLI).
func (s *userService) SetRole(ctx context.Context, username string, rawRole string) (*dto.UserResponse, error) {
	return s.Update(ctx, username, dto.UpdateUserRequest{Role: &rawRole})
}

// EnsureSuperuser creates the account if needed and raises its staff flag.
// The boolean reports whether a new account was created.
func (s *userService) EnsureSuperuser(ctx context.Context, rawUsername, rawEmail string) (*dto.UserResponse, bool, error) {
	username, err := ValidateUsername(rawUsername)
	if err != nil {
		return nil, false, err
	}
	email, err := ValidateEmail(rawEmail)
	if err != nil {
		return nil, false, err
	}

	user, err := s.users.FindByUsername(ctx, username)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		user = &models.User{Username: username, Email: email, Role: models.RoleUser, IsStaff: true}
		if err := s.users.Create(ctx, user); err != nil {
			return nil, false, userWriteError(err)
		}
		resp := dto.UserFromModel(user)
		return &resp, true, nil
	case err != nil:
		return nil, false, err
	}

	if user.Email != email {
		return nil, false, conflictError("email", "existing user has a different email address")
	}
	user.IsStaff = true
	if err := s.users.Update(ctx, user); err != nil {
		return nil, false, userWriteError(err)
	}
	resp := dto.UserFromModel(user)
	return &resp, false, nil
}

func (s *userService) applyUpdate(ctx context.Context, user *models.User, req dto.UpdateUserRequest, allowRole bool) (*dto.UserResponse, error) {
	var err error
	if req.Username != nil {
		if user.Username, err = ValidateUsername(*req.Username); err != nil {
			return nil, err
		}
	}
	if req.Email != nil {
		if user.Email, err = ValidateEmail(*req.Email); err != nil {
			return nil, err
		}
	}
	if req.FirstName != nil {
		if user.FirstName, err = ValidatePersonName("first_name", *req.FirstName); err != nil {
			return nil, err
		}
	}
	if req.LastName != nil {
		if user.LastName, err = ValidatePersonName("last_name", *req.LastName); err != nil {
			return nil, err
		}
	}
	if req.Bio != nil {
		user.Bio = req.Bio
	}
	if allowRole && req.Role != nil {
		if user.Role, err = ValidateRole(*req.Role); err != nil {
			return nil, err
		}
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, userWriteError(err)
	}
	resp := dto.UserFromModel(user)
	return &resp, nil
}

func (s *userService) findByUsername(ctx context.Context, username string) (*models.User, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("user")
		}
		return nil, err
	}
	return user, nil
}

func (s *userService) findByID(ctx context.Context, id string) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("user")
		}
		return nil, err
	}
	return user, nil
}

// userWriteError turns unique violations on username/email into conflicts.
func userWriteError(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return notFound("user")
	case errors.Is(err, repository.ErrDuplicate):
		if strings.Contains(repository.ConstraintName(err), "email") {
			return conflictError("email", "a user with this email already exists")
		}
		return conflictError("username", "a user with this username already exists")
	}
	return err
}
