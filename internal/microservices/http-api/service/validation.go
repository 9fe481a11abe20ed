package service

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"reviewhub/internal/microservices/http-api/models"

	"github.com/go-playground/validator/v10"
)

const (
	maxUsernameLen = 150
	maxNameLen     = 150
	maxCatalogName = 256
	maxSlugLen     = 50
	minScore       = 1
	maxScore       = 10

	// reserved so /users/me can never be shadowed by an account
	reservedUsername = "me"
)

var (
	usernamePattern = regexp.MustCompile(`^[\p{L}\p{N}_.@+-]+$`)
	slugPattern     = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)

	validate = validator.New(validator.WithRequiredStructEnabled())
)

// ValidateUsername returns the trimmed username or a validation error.
func ValidateUsername(raw string) (string, error) {
	username := strings.TrimSpace(raw)
	switch {
	case username == "":
		return "", validationError("username", "this field may not be blank")
	case utf8.RuneCountInString(username) > maxUsernameLen:
		return "", validationError("username", "ensure this field has no more than %d characters", maxUsernameLen)
	case !usernamePattern.MatchString(username):
		return "", validationError("username", "enter a valid username; it may contain only letters, numbers, and @/./+/-/_ characters")
	case username == reservedUsername:
		return "", validationError("username", "username %q is reserved", reservedUsername)
	}
	return username, nil
}

// ValidateEmail returns the trimmed address or a validation error.
func ValidateEmail(raw string) (string, error) {
	email := strings.TrimSpace(raw)
	if email == "" {
		return "", validationError("email", "this field may not be blank")
	}
	if err := validate.Var(email, "email,max=254"); err != nil {
		return "", validationError("email", "enter a valid email address")
	}
	return email, nil
}

// ValidatePersonName checks first_name and last_name.
func ValidatePersonName(field, raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if utf8.RuneCountInString(name) > maxNameLen {
		return "", validationError(field, "ensure this field has no more than %d characters", maxNameLen)
	}
	return name, nil
}

// ValidateRole parses a role name.
func ValidateRole(raw string) (models.Role, error) {
	role := models.Role(strings.TrimSpace(raw))
	if !role.Valid() {
		return "", validationError("role", "%q is not a valid choice", raw)
	}
	return role, nil
}

// ValidateCatalogName checks category, genre and title names.
func ValidateCatalogName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", validationError("name", "this field may not be blank")
	}
	if utf8.RuneCountInString(name) > maxCatalogName {
		return "", validationError("name", "ensure this field has no more than %d characters", maxCatalogName)
	}
	return name, nil
}

// ValidateSlug checks a client supplied slug.
func ValidateSlug(field, raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", validationError(field, "this field may not be blank")
	}
	if len(s) > maxSlugLen {
		return "", validationError(field, "ensure this field has no more than %d characters", maxSlugLen)
	}
	if !slugPattern.MatchString(s) {
		return "", validationError(field, "enter a valid slug consisting of letters, numbers, underscores or hyphens")
	}
	return s, nil
}

// ValidateYear rejects release years in the future relative to now.
func ValidateYear(year int, now time.Time) (int, error) {
	if year > now.Year() {
		return 0, validationError("year", "year cannot be later than %d", now.Year())
	}
	return year, nil
}

// ValidateScore accepts integers in [1, 10].
func ValidateScore(score int) (int, error) {
	if score < minScore || score > maxScore {
		return 0, validationError("score", "score must be between %d and %d", minScore, maxScore)
	}
	return score, nil
}

// ValidateText checks review and comment bodies.
func ValidateText(raw string) (string, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return "", validationError("text", "this field may not be blank")
	}
	return text, nil
}
