// Package fakeapi is an in-memory voting backend for local development and
// tests. It serves the same HTTP contract as the real backend.
package fakeapi

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/csie-vote/voting-web/internal/crypto"
	"github.com/csie-vote/voting-web/internal/model"
)

var (
	ErrInvalidCredentials = errors.New("incorrect username or password")
	ErrUsernameRequired   = errors.New("username is required")
	ErrPasswordRequired   = errors.New("password is required")
	ErrUsernameTaken      = errors.New("username already registered")
	ErrTopicNotFound      = errors.New("topic not found")
	ErrOptionNotFound     = errors.New("option not found")
	ErrVoteNotFound       = errors.New("vote not found")
	ErrDescriptionEmpty   = errors.New("description is required")
	ErrNoOptions          = errors.New("at least one option is required")
	ErrContentEmpty       = errors.New("content is required")
)

// Timestamp layouts accepted for starts_at and ends_at. The first is what an
// HTML datetime-local input submits.
var timeLayouts = []string{"2006-01-02T15:04", time.RFC3339, "2006-01-02T15:04:05"}

const timestampLayout = "2006-01-02T15:04:05"

type user struct {
	ID       string
	Username string
	Email    string
	Hash     string
}

type voteKey struct {
	username string
	topicID  string
}

// store holds all backend state behind one mutex.
type store struct {
	mu       sync.Mutex
	users    map[string]*user
	topics   map[string]*model.Topic
	order    []string
	votes    map[voteKey]model.Vote
	comments map[string][]model.Comment
	now      func() time.Time
}

func newStore() *store {
	return &store{
		users:    make(map[string]*user),
		topics:   make(map[string]*model.Topic),
		votes:    make(map[voteKey]model.Vote),
		comments: make(map[string][]model.Comment),
		now:      time.Now,
	}
}

func (s *store) stamp() string {
	return s.now().UTC().Format(timestampLayout)
}

func (s *store) signup(in model.SignupInput) error {
	if in.Username == "" {
		return ErrUsernameRequired
	}
	if in.Password == "" {
		return ErrPasswordRequired
	}

	hash, err := crypto.HashPassword(in.Password)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[in.Username]; ok {
		return ErrUsernameTaken
	}
	s.users[in.Username] = &user{
		ID:       uuid.NewString(),
		Username: in.Username,
		Email:    in.Email,
		Hash:     hash,
	}
	return nil
}

func (s *store) authenticate(username, password string) error {
	s.mu.Lock()
	u, ok := s.users[username]
	s.mu.Unlock()
	if !ok {
		return ErrInvalidCredentials
	}

	match, err := crypto.CheckPassword(password, u.Hash)
	if err != nil {
		return err
	}
	if !match {
		return ErrInvalidCredentials
	}
	return nil
}

func (s *store) userID(username string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[username]
	if !ok {
		return "", false
	}
	return u.ID, true
}

func (s *store) createTopic(in model.CreateTopicInput) (model.Topic, error) {
	if in.Description == "" {
		return model.Topic{}, ErrDescriptionEmpty
	}
	if len(in.Options) == 0 {
		return model.Topic{}, ErrNoOptions
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.stamp()
	t := &model.Topic{
		ID:          uuid.NewString(),
		Description: in.Description,
		StartsAt:    in.StartsAt,
		EndsAt:      in.EndsAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for _, o := range in.Options {
		t.Options = append(t.Options, model.VoteOption{
			ID:          uuid.NewString(),
			Label:       o.Label,
			Description: o.Description,
		})
	}
	s.topics[t.ID] = t
	s.order = append(s.order, t.ID)
	return s.withStage(*t), nil
}

func (s *store) listTopics() []model.Topic {
	s.mu.Lock()
	defer s.mu.Unlock()

	topics := make([]model.Topic, 0, len(s.order))
	for _, id := range s.order {
		topics = append(topics, s.withStage(*s.topics[id]))
	}
	return topics
}

func (s *store) getTopic(id string) (model.Topic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.topics[id]
	if !ok {
		return model.Topic{}, ErrTopicNotFound
	}
	return s.withStage(*t), nil
}

// withStage fills in the stage from the topic's time window. Callers hold mu.
func (s *store) withStage(t model.Topic) model.Topic {
	t.Options = append([]model.VoteOption(nil), t.Options...)
	now := s.now()
	switch {
	case before(now, t.StartsAt):
		t.Stage = "pending"
	case !before(now, t.EndsAt) && t.EndsAt != "":
		t.Stage = "ended"
	default:
		t.Stage = "voting"
	}
	return t
}

// before reports whether now is before the timestamp ts. Unparseable or
// empty timestamps are treated as unbounded.
func before(now time.Time, ts string) bool {
	for _, layout := range timeLayouts {
		if at, err := time.ParseInLocation(layout, ts, time.UTC); err == nil {
			return now.Before(at)
		}
	}
	return false
}

// vote records username's choice, replacing an earlier vote on the same
// topic, and bumps the topic's updated_at.
func (s *store) vote(username string, in model.CreateVoteInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.topics[in.TopicID]
	if !ok {
		return ErrTopicNotFound
	}
	found := false
	for _, o := range t.Options {
		if o.ID == in.OptionID {
			found = true
			break
		}
	}
	if !found {
		return ErrOptionNotFound
	}

	key := voteKey{username: username, topicID: in.TopicID}
	v, ok := s.votes[key]
	if !ok {
		v = model.Vote{ID: uuid.NewString(), Username: username, TopicID: in.TopicID}
	}
	v.OptionID = in.OptionID
	s.votes[key] = v
	t.UpdatedAt = s.stamp()
	return nil
}

func (s *store) myVote(username, topicID string) (model.Vote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.topics[topicID]; !ok {
		return model.Vote{}, ErrTopicNotFound
	}
	v, ok := s.votes[voteKey{username: username, topicID: topicID}]
	if !ok {
		return model.Vote{}, ErrVoteNotFound
	}
	return v, nil
}

func (s *store) addComment(userID string, in model.CreateCommentInput) error {
	if in.Content == "" {
		return ErrContentEmpty
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.topics[in.TopicID]; !ok {
		return ErrTopicNotFound
	}
	s.comments[in.TopicID] = append(s.comments[in.TopicID], model.Comment{
		ID:        uuid.NewString(),
		UserID:    userID,
		Content:   in.Content,
		CreatedAt: s.stamp(),
	})
	return nil
}

// listComments returns the comments of topicID, oldest first.
func (s *store) listComments(topicID string) []model.Comment {
	s.mu.Lock()
	defer s.mu.Unlock()

	comments := append([]model.Comment{}, s.comments[topicID]...)
	sort.SliceStable(comments, func(i, j int) bool {
		return comments[i].CreatedAt < comments[j].CreatedAt
	})
	return comments
}
