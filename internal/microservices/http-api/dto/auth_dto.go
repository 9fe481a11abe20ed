package dto

// Data Transfer Objects for the signup / token handshake

// SignupRequest: payload for POST /auth/signup
type SignupRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
}

// SignupResponse echoes the identity; the confirmation code goes out by email only
type SignupResponse struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

// TokenRequest: payload for POST /auth/token
type TokenRequest struct {
	Username         string `json:"username" binding:"required"`
	ConfirmationCode string `json:"confirmation_code" binding:"required"`
}

// TokenResponse carries the signed access token
type TokenResponse struct {
	Token string `json:"token"`
}
