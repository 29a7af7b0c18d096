package model

// User represents the authenticated user as returned by GET /me.
type User struct {
	Username string `json:"username"`
}

// SignupInput represents a user registration request.
type SignupInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// OAuth2PasswordRequest holds the credentials of a login request.
// It is sent form-encoded, not as JSON.
type OAuth2PasswordRequest struct {
	Username string
	Password string
}

// Token is the response of a successful login.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}
