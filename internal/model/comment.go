package model

// Comment represents a comment attached to a topic.
type Comment struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

// CreateCommentInput represents a comment creation request.
type CreateCommentInput struct {
	TopicID string `json:"topic_id"`
	Content string `json:"content"`
}
