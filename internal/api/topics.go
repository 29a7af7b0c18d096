package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/csie-vote/voting-web/internal/model"
)

// ListTopics handles GET /topic.
func (c *Client) ListTopics(ctx context.Context) ([]model.Topic, error) {
	var topics []model.Topic
	err := c.do(ctx, request{
		reason: "get topics failed",
		method: http.MethodGet,
		path:   "/topic",
	}, &topics)
	if err != nil {
		return nil, err
	}
	if topics == nil {
		topics = []model.Topic{}
	}
	return topics, nil
}

// GetTopic handles GET /topic/{id}.
func (c *Client) GetTopic(ctx context.Context, id string) (model.Topic, error) {
	var topic model.Topic
	err := c.do(ctx, request{
		reason: "get topic failed",
		method: http.MethodGet,
		path:   "/topic/" + url.PathEscape(id),
	}, &topic)
	return topic, err
}

// CreateTopic handles POST /topic. The backend call carries no bearer token.
func (c *Client) CreateTopic(ctx context.Context, input model.CreateTopicInput) error {
	req := request{
		reason: "create topic failed",
		method: http.MethodPost,
		path:   "/topic",
	}
	if err := req.withJSON(input); err != nil {
		return err
	}
	return c.do(ctx, req, nil)
}
