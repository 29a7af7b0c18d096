// Package state wires the session store, resource bindings and action
// dispatchers of one client instance.
package state

import (
	"context"
	"log/slog"
	"sync"

	"github.com/csie-vote/voting-web/internal/action"
	"github.com/csie-vote/voting-web/internal/api"
	"github.com/csie-vote/voting-web/internal/model"
	"github.com/csie-vote/voting-web/internal/resource"
	"github.com/csie-vote/voting-web/internal/session"
)

// Backend is the subset of the API client an Instance needs.
type Backend interface {
	ListTopics(ctx context.Context) ([]model.Topic, error)
	GetTopic(ctx context.Context, id string) (model.Topic, error)
	CreateTopic(ctx context.Context, input model.CreateTopicInput) error
	Login(ctx context.Context, input model.OAuth2PasswordRequest) (model.Token, error)
	Signup(ctx context.Context, input model.SignupInput) error
	GetMe(ctx context.Context, token string) (model.User, error)
	CreateVote(ctx context.Context, token string, input model.CreateVoteInput) error
	GetMyVote(ctx context.Context, token, topicID string) (model.Vote, error)
	ListComments(ctx context.Context, topicID string) ([]model.Comment, error)
	CreateComment(ctx context.Context, token string, input model.CreateCommentInput) error
}

// Options tunes instance behavior.
type Options struct {
	// RefreshCommentsAfterPost makes a successful comment post refetch the
	// comment list.
	RefreshCommentsAfterPost bool
}

// MyVoteKey keys the my-vote binding. TopicRevision changes every time the
// topic binding commits, so a refetched topic re-evaluates my vote.
type MyVoteKey struct {
	Token         string
	TopicID       string
	TopicRevision uint64
}

// VoteRequest carries a vote and the token captured at the call site.
type VoteRequest struct {
	Token string
	Input model.CreateVoteInput
}

// CommentRequest carries a comment and the token captured at the call site.
type CommentRequest struct {
	Token string
	Input model.CreateCommentInput
}

// Instance is one running client: one browser session.
type Instance struct {
	ID      string
	Session *session.Store
	Drafts  *Drafts

	Topics   *resource.Binding[struct{}, []model.Topic]
	Topic    *resource.Binding[string, model.Topic]
	Me       *resource.Binding[string, *model.User]
	MyVote   *resource.Binding[MyVoteKey, *model.Vote]
	Comments *resource.Binding[string, []model.Comment]

	Login         *action.Dispatcher[model.OAuth2PasswordRequest, model.Token]
	Signup        *action.Dispatcher[model.SignupInput, struct{}]
	CreateTopic   *action.Dispatcher[model.CreateTopicInput, struct{}]
	CreateVote    *action.Dispatcher[VoteRequest, struct{}]
	CreateComment *action.Dispatcher[CommentRequest, struct{}]

	closeOnce sync.Once
}

// NewInstance creates an anonymous instance talking to backend.
func NewInstance(id string, backend Backend, opts Options) *Instance {
	inst := &Instance{
		ID:      id,
		Session: session.NewStore(),
		Drafts:  NewDrafts(),
	}

	inst.Topics = resource.New("topics", func(ctx context.Context, _ struct{}) ([]model.Topic, error) {
		return backend.ListTopics(ctx)
	})
	// Every committed topic re-keys my vote, so a refetched topic carries a
	// fresh my-vote evaluation with it.
	inst.Topic = resource.New("topic", backend.GetTopic,
		resource.WithOnCommit(func(st resource.State[string, model.Topic]) {
			inst.MyVote.Track(myVoteKey(inst.Token(), st.Key, st))
		}))
	inst.Me = resource.New("me", func(ctx context.Context, token string) (*model.User, error) {
		user, err := backend.GetMe(ctx, token)
		if err != nil {
			return nil, err
		}
		return &user, nil
	}, resource.WithShortCircuit[string, *model.User](func(token string) bool {
		return token == ""
	}))
	inst.MyVote = resource.New("my-vote", func(ctx context.Context, key MyVoteKey) (*model.Vote, error) {
		vote, err := backend.GetMyVote(ctx, key.Token, key.TopicID)
		if api.IsNotFound(err) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return &vote, nil
	}, resource.WithShortCircuit[MyVoteKey, *model.Vote](func(key MyVoteKey) bool {
		return key.Token == "" || key.TopicID == ""
	}))
	inst.Comments = resource.New("comments", backend.ListComments)

	inst.Login = action.New("create_access_token", backend.Login).
		OnSuccess(func(_ model.OAuth2PasswordRequest, token model.Token) {
			inst.Session.SetToken(token.AccessToken)
		})

	inst.Signup = action.New("signup", func(ctx context.Context, in model.SignupInput) (struct{}, error) {
		return struct{}{}, backend.Signup(ctx, in)
	})

	inst.CreateTopic = action.New("create_topic", func(ctx context.Context, in model.CreateTopicInput) (struct{}, error) {
		return struct{}{}, backend.CreateTopic(ctx, in)
	}).Invalidates(func(model.CreateTopicInput) []action.Refetcher {
		return []action.Refetcher{inst.Topics}
	})

	inst.CreateVote = action.New("create_vote", func(ctx context.Context, in VoteRequest) (struct{}, error) {
		return struct{}{}, backend.CreateVote(ctx, in.Token, in.Input)
	}).Invalidates(func(in VoteRequest) []action.Refetcher {
		// My vote follows the topic: its refetch commits a new revision and
		// the commit hook re-keys the my-vote binding.
		return []action.Refetcher{
			keyed(inst.Topic, func(id string) bool { return id == in.Input.TopicID }),
		}
	})

	inst.CreateComment = action.New("create_comment", func(ctx context.Context, in CommentRequest) (struct{}, error) {
		return struct{}{}, backend.CreateComment(ctx, in.Token, in.Input)
	}).OnSuccess(func(in CommentRequest, _ struct{}) {
		inst.Drafts.Clear(in.Input.TopicID)
	})
	if opts.RefreshCommentsAfterPost {
		inst.CreateComment.Invalidates(func(in CommentRequest) []action.Refetcher {
			return []action.Refetcher{
				keyed(inst.Comments, func(id string) bool { return id == in.Input.TopicID }),
			}
		})
	}

	return inst
}

// Token returns the session token, or "" when anonymous.
func (i *Instance) Token() string {
	token, _ := i.Session.Token()
	return token
}

// Close stops every in-flight read. Pending writes finish on their own.
func (i *Instance) Close() {
	i.closeOnce.Do(func() {
		i.Topics.Close()
		i.Topic.Close()
		i.Me.Close()
		i.MyVote.Close()
		i.Comments.Close()
		slog.Debug("client instance closed", "instance", i.ID)
	})
}

type keyedBinding[K comparable] interface {
	Key() (K, bool)
	Refetch()
}

// keyedRefetcher refetches b only while its tracked key satisfies match.
type keyedRefetcher[K comparable] struct {
	b     keyedBinding[K]
	match func(K) bool
}

func keyed[K comparable](b keyedBinding[K], match func(K) bool) action.Refetcher {
	return keyedRefetcher[K]{b: b, match: match}
}

func (r keyedRefetcher[K]) Refetch() {
	if key, ok := r.b.Key(); ok && r.match(key) {
		r.b.Refetch()
	}
}
