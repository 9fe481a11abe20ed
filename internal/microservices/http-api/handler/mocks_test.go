package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	"reviewhub/internal/microservices/http-api/dto"
	"reviewhub/internal/microservices/http-api/middleware"
	"reviewhub/internal/microservices/http-api/models"
	"reviewhub/internal/microservices/http-api/permission"
	"reviewhub/internal/microservices/http-api/repository"
	"reviewhub/internal/microservices/http-api/service"
	"reviewhub/internal/shared"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
)

// --- callers ---

var (
	alice = permission.Caller{UserID: "u-alice", Username: "alice", Role: models.RoleUser}
	admin = permission.Caller{UserID: "u-root", Username: "root", Role: models.RoleAdmin}
)

var errUnauthenticated = &service.Error{Kind: service.ErrUnauthenticated, Message: "invalid token"}

// --- MOCK SERVICES ---

type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Signup(ctx context.Context, username, email string) (*models.User, error) {
	args := m.Called(ctx, username, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockAuthService) IssueToken(ctx context.Context, username, code string) (string, error) {
	args := m.Called(ctx, username, code)
	return args.String(0), args.Error(1)
}

// Authenticate maps the fixed test tokens onto callers.
func (m *MockAuthService) Authenticate(_ context.Context, token string) (permission.Caller, error) {
	switch token {
	case "alice":
		return alice, nil
	case "admin":
		return admin, nil
	}
	return permission.Anonymous, errUnauthenticated
}

type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) List(ctx context.Context, search string, page shared.Page) (*shared.List[dto.UserResponse], error) {
	args := m.Called(ctx, search, page)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.List[dto.UserResponse]), args.Error(1)
}

func (m *MockUserService) Create(ctx context.Context, req dto.CreateUserRequest) (*dto.UserResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.UserResponse), args.Error(1)
}

func (m *MockUserService) Get(ctx context.Context, username string) (*dto.UserResponse, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.UserResponse), args.Error(1)
}

func (m *MockUserService) Update(ctx context.Context, username string, req dto.UpdateUserRequest) (*dto.UserResponse, error) {
	args := m.Called(ctx, username, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.UserResponse), args.Error(1)
}

func (m *MockUserService) Delete(ctx context.Context, username string) error {
	return m.Called(ctx, username).Error(0)
}

func (m *MockUserService) GetMe(ctx context.Context, userID string) (*dto.UserResponse, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.UserResponse), args.Error(1)
}

func (m *MockUserService) UpdateMe(ctx context.Context, userID string, req dto.UpdateUserRequest) (*dto.UserResponse, error) {
	args := m.Called(ctx, userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.UserResponse), args.Error(1)
}

func (m *MockUserService) SetRole(ctx context.Context, username, role string) (*dto.UserResponse, error) {
	args := m.Called(ctx, username, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.UserResponse), args.Error(1)
}

func (m *MockUserService) EnsureSuperuser(ctx context.Context, username, email string) (*dto.UserResponse, bool, error) {
	args := m.Called(ctx, username, email)
	if args.Get(0) == nil {
		return nil, false, args.Error(2)
	}
	return args.Get(0).(*dto.UserResponse), args.Bool(1), args.Error(2)
}

type MockCategoryService struct {
	mock.Mock
}

func (m *MockCategoryService) List(ctx context.Context, search string, page shared.Page) (*shared.List[dto.CategoryResponse], error) {
	args := m.Called(ctx, search, page)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.List[dto.CategoryResponse]), args.Error(1)
}

func (m *MockCategoryService) Create(ctx context.Context, req dto.CreateCategoryDTO) (*dto.CategoryResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.CategoryResponse), args.Error(1)
}

func (m *MockCategoryService) Delete(ctx context.Context, slug string) error {
	return m.Called(ctx, slug).Error(0)
}

type MockTitleService struct {
	mock.Mock
}

func (m *MockTitleService) List(ctx context.Context, filter repository.TitleFilter, page shared.Page) (*shared.List[dto.TitleResponse], error) {
	args := m.Called(ctx, filter, page)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.List[dto.TitleResponse]), args.Error(1)
}

func (m *MockTitleService) Get(ctx context.Context, id int64) (*dto.TitleResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.TitleResponse), args.Error(1)
}

func (m *MockTitleService) Create(ctx context.Context, req dto.CreateTitleDTO) (*dto.TitleResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.TitleResponse), args.Error(1)
}

func (m *MockTitleService) Update(ctx context.Context, id int64, req dto.UpdateTitleDTO) (*dto.TitleResponse, error) {
	args := m.Called(ctx, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.TitleResponse), args.Error(1)
}

func (m *MockTitleService) Delete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

type MockReviewService struct {
	mock.Mock
}

func (m *MockReviewService) List(ctx context.Context, titleID int64, page shared.Page) (*shared.List[dto.ReviewResponse], error) {
	args := m.Called(ctx, titleID, page)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.List[dto.ReviewResponse]), args.Error(1)
}

func (m *MockReviewService) Get(ctx context.Context, titleID, reviewID int64) (*dto.ReviewResponse, error) {
	args := m.Called(ctx, titleID, reviewID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.ReviewResponse), args.Error(1)
}

func (m *MockReviewService) Create(ctx context.Context, caller permission.Caller, titleID int64, req dto.CreateReviewDTO) (*dto.ReviewResponse, error) {
	args := m.Called(ctx, caller, titleID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.ReviewResponse), args.Error(1)
}

func (m *MockReviewService) Update(ctx context.Context, caller permission.Caller, titleID, reviewID int64, req dto.UpdateReviewDTO) (*dto.ReviewResponse, error) {
	args := m.Called(ctx, caller, titleID, reviewID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.ReviewResponse), args.Error(1)
}

func (m *MockReviewService) Delete(ctx context.Context, caller permission.Caller, titleID, reviewID int64) error {
	return m.Called(ctx, caller, titleID, reviewID).Error(0)
}

type MockCommentService struct {
	mock.Mock
}

func (m *MockCommentService) List(ctx context.Context, titleID, reviewID int64, page shared.Page) (*shared.List[dto.CommentResponse], error) {
	args := m.Called(ctx, titleID, reviewID, page)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.List[dto.CommentResponse]), args.Error(1)
}

func (m *MockCommentService) Get(ctx context.Context, titleID, reviewID, commentID int64) (*dto.CommentResponse, error) {
	args := m.Called(ctx, titleID, reviewID, commentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.CommentResponse), args.Error(1)
}

func (m *MockCommentService) Create(ctx context.Context, caller permission.Caller, titleID, reviewID int64, req dto.CreateCommentDTO) (*dto.CommentResponse, error) {
	args := m.Called(ctx, caller, titleID, reviewID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.CommentResponse), args.Error(1)
}

func (m *MockCommentService) Update(ctx context.Context, caller permission.Caller, titleID, reviewID, commentID int64, req dto.UpdateCommentDTO) (*dto.CommentResponse, error) {
	args := m.Called(ctx, caller, titleID, reviewID, commentID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.CommentResponse), args.Error(1)
}

func (m *MockCommentService) Delete(ctx context.Context, caller permission.Caller, titleID, reviewID, commentID int64) error {
	return m.Called(ctx, caller, titleID, reviewID, commentID).Error(0)
}

// --- SETUP ---

type routeRegistrar interface {
	RegisterRoutes(router *gin.RouterGroup)
}

func setupRouter(h routeRegistrar) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	api := r.Group("/api/v1", middleware.Authenticate(&MockAuthService{}))
	h.RegisterRoutes(api)
	return r
}

// setupAuthRouter mounts h under /api/v1/auth like NewRouter does.
func setupAuthRouter(h routeRegistrar) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	api := r.Group("/api/v1", middleware.Authenticate(&MockAuthService{}))
	h.RegisterRoutes(api.Group("/auth"))
	return r
}

// perform sends body as JSON with an optional bearer token.
func perform(r http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](w *httptest.ResponseRecorder) T {
	var out T
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return out
}
