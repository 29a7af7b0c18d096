package model

// VoteOption is one choice of a topic.
type VoteOption struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

// Topic represents a votable topic as returned by the backend.
// Timestamps are kept as the backend formats them.
type Topic struct {
	ID          string       `json:"id"`
	Description string       `json:"description"`
	StartsAt    string       `json:"starts_at"`
	EndsAt      string       `json:"ends_at"`
	CreatedAt   string       `json:"created_at"`
	UpdatedAt   string       `json:"updated_at"`
	Stage       string       `json:"stage"`
	Options     []VoteOption `json:"options"`
}

// CreateOptionInput represents one option in a topic creation request.
type CreateOptionInput struct {
	Label       string `json:"label"`
	Description string `json:"description"`
}

// CreateTopicInput represents a topic creation request.
type CreateTopicInput struct {
	Description string              `json:"description"`
	StartsAt    string              `json:"starts_at"`
	EndsAt      string              `json:"ends_at"`
	Options     []CreateOptionInput `json:"options"`
}
