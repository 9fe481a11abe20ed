package dto

import "reviewhub/internal/microservices/http-api/models"

// CreateUserRequest for POST /users (admin)
type CreateUserRequest struct {
	Username  string  `json:"username" binding:"required"`
	Email     string  `json:"email" binding:"required"`
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Bio       *string `json:"bio"`
	Role      string  `json:"role"`
}

// UpdateUserRequest for PATCH /users/:username and /users/me. Nil fields are left alone.
type UpdateUserRequest struct {
	Username  *string `json:"username"`
	Email     *string `json:"email"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Bio       *string `json:"bio"`
	Role      *string `json:"role"`
}

type UserResponse struct {
	Username  string      `json:"username"`
	Email     string      `json:"email"`
	FirstName string      `json:"first_name"`
	LastName  string      `json:"last_name"`
	Bio       *string     `json:"bio"`
	Role      models.Role `json:"role"`
}

func UserFromModel(u *models.User) UserResponse {
	return UserResponse{
		Username:  u.Username,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Bio:       u.Bio,
		Role:      u.Role,
	}
}
