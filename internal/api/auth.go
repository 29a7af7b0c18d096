package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/csie-vote/voting-web/internal/model"
)

// Login handles POST /auth/token with form-encoded credentials.
func (c *Client) Login(ctx context.Context, input model.OAuth2PasswordRequest) (model.Token, error) {
	req := request{
		reason: "login failed",
		method: http.MethodPost,
		path:   "/auth/token",
	}
	req.withForm(url.Values{
		"username": {input.Username},
		"password": {input.Password},
	})

	var token model.Token
	err := c.do(ctx, req, &token)
	return token, err
}

// Signup handles POST /user/signup.
func (c *Client) Signup(ctx context.Context, input model.SignupInput) error {
	req := request{
		reason: "signup failed",
		method: http.MethodPost,
		path:   "/user/signup",
	}
	if err := req.withJSON(input); err != nil {
		return err
	}
	return c.do(ctx, req, nil)
}

// GetMe handles GET /me.
func (c *Client) GetMe(ctx context.Context, token string) (model.User, error) {
	var user model.User
	err := c.do(ctx, request{
		reason: "auth failed",
		method: http.MethodGet,
		path:   "/me",
		token:  token,
	}, &user)
	return user, err
}
