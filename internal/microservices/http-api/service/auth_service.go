package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"reviewhub/internal/microservices/http-api/models"
	"reviewhub/internal/microservices/http-api/permission"
	"reviewhub/internal/microservices/http-api/repository"
	"reviewhub/internal/notify"
)

// TokenAttemptLimiter tracks failed token requests per username.
type TokenAttemptLimiter interface {
	Blocked(ctx context.Context, username string) (bool, error)
	RecordFailure(ctx context.Context, username string) (int64, error)
	Reset(ctx context.Context, username string) error
}

// Mailer queues outbound email. It must not block.
type Mailer interface {
	Dispatch(msg notify.Message) bool
}

type AuthService interface {
	Signup(ctx context.Context, username, email string) (*models.User, error)
	IssueToken(ctx context.Context, username, code string) (string, error)
	Authenticate(ctx context.Context, token string) (permission.Caller, error)
}

type authService struct {
	users    repository.UserRepository
	minter   *TokenMinter
	codes    CodeGenerator
	attempts TokenAttemptLimiter
	mailer   Mailer
	log      *slog.Logger
}

func NewAuthService(
	users repository.UserRepository,
	minter *TokenMinter,
	codes CodeGenerator,
	attempts TokenAttemptLimiter,
	mailer Mailer,
	log *slog.Logger,
) AuthService {
	return &authService{
		users:    users,
		minter:   minter,
		codes:    codes,
		attempts: attempts,
		mailer:   mailer,
		log:      log,
	}
}

// Signup gets or creates the identity for the (username, email) pair, stores a
// fresh confirmation code on it and mails the code. Calling it again for the
// same pair replaces the previous code.
func (s *authService) Signup(ctx context.Context, rawUsername, rawEmail string) (*models.User, error) {
	username, err := ValidateUsername(rawUsername)
	if err != nil {
		return nil, err
	}
	email, err := ValidateEmail(rawEmail)
	if err != nil {
		return nil, err
	}

	user, err := s.resolveIdentity(ctx, username, email)
	if err != nil {
		return nil, err
	}

	code, err := s.codes.Generate()
	if err != nil {
		return nil, err
	}
	if err := s.users.SetConfirmationCode(ctx, user.ID, code); err != nil {
		return nil, fmt.Errorf("store confirmation code: %w", err)
	}
	user.ConfirmationCode = code

	// delivery is fire-and-forget; the stored code stands either way
	if !s.mailer.Dispatch(confirmationMessage(user, code)) {
		s.log.Warn("confirmation email not queued", "username", user.Username)
	}
	return user, nil
}

// resolveIdentity returns the user both fields point at, creating it when
// neither is taken. Fields owned by different identities are a conflict.
func (s *authService) resolveIdentity(ctx context.Context, username, email string) (*models.User, error) {
	byName, err := s.findOptional(s.users.FindByUsername(ctx, username))
	if err != nil {
		return nil, err
	}
	byEmail, err := s.findOptional(s.users.FindByEmail(ctx, email))
	if err != nil {
		return nil, err
	}

	switch {
	case byName != nil && byEmail != nil && byName.ID == byEmail.ID:
		return byName, nil
	case byName != nil:
		return nil, conflictError("username", "a user with this username already exists")
	case byEmail != nil:
		return nil, conflictError("email", "a user with this email already exists")
	}

	user := &models.User{Username: username, Email: email, Role: models.RoleUser}
	err = s.users.Create(ctx, user)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, repository.ErrDuplicate) {
		return nil, err
	}

	// lost a race with a concurrent signup; the same pair is still fine
	existing, lookupErr := s.findOptional(s.users.FindByUsername(ctx, username))
	if lookupErr == nil && existing != nil && existing.Email == email {
		return existing, nil
	}
	if strings.Contains(repository.ConstraintName(err), "email") {
		return nil, conflictError("email", "a user with this email already exists")
	}
	return nil, conflictError("username", "a user with this username already exists")
}

func (s *authService) findOptional(user *models.User, err error) (*models.User, error) {
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// IssueToken exchanges a username and its current confirmation code for an access token.
func (s *authService) IssueToken(ctx context.Context, rawUsername, code string) (string, error) {
	username := strings.TrimSpace(rawUsername)
	if username == "" {
		return "", validationError("username", "this field may not be blank")
	}
	if code == "" {
		return "", validationError("confirmation_code", "this field may not be blank")
	}

	blocked, err := s.attempts.Blocked(ctx, username)
	if err != nil {
		// a limiter outage must not lock everybody out
		s.log.Warn("token attempt check failed", "username", username, "error", err)
	}
	if blocked {
		return "", rateLimited("too many invalid confirmation codes, try again later")
	}

	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", notFound("user")
		}
		return "", err
	}

	if !codesMatch(user.ConfirmationCode, code) {
		if n, err := s.attempts.RecordFailure(ctx, username); err != nil {
			s.log.Warn("token attempt record failed", "username", username, "error", err)
		} else if n > 0 {
			s.log.Info("invalid confirmation code", "username", username, "failures", n)
		}
		return "", validationError("confirmation_code", "invalid confirmation code")
	}

	if err := s.attempts.Reset(ctx, username); err != nil {
		s.log.Warn("token attempt reset failed", "username", username, "error", err)
	}
	return s.minter.Mint(user)
}

// Authenticate turns a bearer token into the caller it names, with the role as currently stored.
func (s *authService) Authenticate(ctx context.Context, token string) (permission.Caller, error) {
	claims, err := s.minter.Parse(token)
	if err != nil {
		return permission.Anonymous, &Error{Kind: ErrUnauthenticated, Message: err.Error()}
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return permission.Anonymous, &Error{Kind: ErrUnauthenticated, Message: "user not found"}
		}
		return permission.Anonymous, err
	}
	return permission.CallerFromUser(user), nil
}

func confirmationMessage(user *models.User, code string) notify.Message {
	return notify.Message{
		To:      user.Email,
		Subject: "Your confirmation code",
		Body: fmt.Sprintf("Hello %s,\n\nyour confirmation code is %s.\n"+
			"Send it with your username to /api/v1/auth/token to receive an access token.\n",
			user.Username, code),
	}
}
