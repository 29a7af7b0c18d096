package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/csie-vote/voting-web/internal/model"
)

// ListComments handles GET /comment?topic_id=.
func (c *Client) ListComments(ctx context.Context, topicID string) ([]model.Comment, error) {
	var comments []model.Comment
	err := c.do(ctx, request{
		reason: "get comments failed",
		method: http.MethodGet,
		path:   "/comment",
		query:  url.Values{"topic_id": {topicID}},
	}, &comments)
	if err != nil {
		return nil, err
	}
	if comments == nil {
		comments = []model.Comment{}
	}
	return comments, nil
}

// CreateComment handles POST /comment.
func (c *Client) CreateComment(ctx context.Context, token string, input model.CreateCommentInput) error {
	req := request{
		reason: "create comment failed",
		method: http.MethodPost,
		path:   "/comment",
		token:  token,
	}
	if err := req.withJSON(input); err != nil {
		return err
	}
	return c.do(ctx, req, nil)
}
