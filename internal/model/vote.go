package model

// Vote is the querying user's own vote on a topic.
type Vote struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	TopicID  string `json:"topic_id"`
	OptionID string `json:"option_id"`
}

// CreateVoteInput represents a vote casting request.
type CreateVoteInput struct {
	TopicID  string `json:"topic_id"`
	OptionID string `json:"option_id"`
}
