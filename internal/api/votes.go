package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/csie-vote/voting-web/internal/model"
)

// CreateVote handles POST /vote.
func (c *Client) CreateVote(ctx context.Context, token string, input model.CreateVoteInput) error {
	req := request{
		reason: "create vote failed",
		method: http.MethodPost,
		path:   "/vote",
		token:  token,
	}
	if err := req.withJSON(input); err != nil {
		return err
	}
	return c.do(ctx, req, nil)
}

// GetMyVote handles GET /topic/{id}/my-vote.
func (c *Client) GetMyVote(ctx context.Context, token, topicID string) (model.Vote, error) {
	var vote model.Vote
	err := c.do(ctx, request{
		reason: "get my vote failed",
		method: http.MethodGet,
		path:   "/topic/" + url.PathEscape(topicID) + "/my-vote",
		token:  token,
	}, &vote)
	return vote, err
}
