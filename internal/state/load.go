package state

import (
	"context"

	"github.com/csie-vote/voting-web/internal/model"
	"github.com/csie-vote/voting-web/internal/resource"
)

// Page data is assembled by declaring the keys a view depends on, then
// waiting for the bindings to settle until ctx is done.

// NavData is what every page needs for the navbar.
type NavData struct {
	LoggedIn bool
	Me       resource.State[string, *model.User]
}

// HomeData backs the topic list view.
type HomeData struct {
	Nav    NavData
	Topics resource.State[struct{}, []model.Topic]
}

// TopicData backs the topic detail view.
type TopicData struct {
	Nav      NavData
	TopicID  string
	Topic    resource.State[string, model.Topic]
	MyVote   resource.State[MyVoteKey, *model.Vote]
	Comments resource.State[string, []model.Comment]

	VotePending    bool
	CommentPending bool
	Draft          string
}

// LoadNav tracks the current-user binding against the session token.
func (i *Instance) LoadNav(ctx context.Context) NavData {
	token := i.Token()
	i.Me.Track(token)
	return NavData{
		LoggedIn: token != "",
		Me:       i.Me.Await(ctx),
	}
}

// RefreshTopics refetches the topic list, or starts the first fetch.
func (i *Instance) RefreshTopics() {
	if _, tracked := i.Topics.Key(); tracked {
		i.Topics.Refetch()
		return
	}
	i.Topics.Track(struct{}{})
}

// LoadHome tracks the topic list.
func (i *Instance) LoadHome(ctx context.Context) HomeData {
	i.Topics.Track(struct{}{})
	nav := i.LoadNav(ctx)
	return HomeData{
		Nav:    nav,
		Topics: i.Topics.Await(ctx),
	}
}

// LoadTopic tracks everything the detail view of topic id depends on. A
// binding still holding another topic's result, left by an earlier view or
// another tab of the same session, is reported as loading.
func (i *Instance) LoadTopic(ctx context.Context, id string) TopicData {
	i.Topic.Track(id)
	i.Comments.Track(id)
	nav := i.LoadNav(ctx)

	topic := i.Topic.Await(ctx).For(id)
	key := myVoteKey(i.Token(), id, topic)
	i.MyVote.Track(key)

	return TopicData{
		Nav:            nav,
		TopicID:        id,
		Topic:          topic,
		MyVote:         i.MyVote.Await(ctx).For(key),
		Comments:       i.Comments.Await(ctx).For(id),
		VotePending:    i.CreateVote.Pending(),
		CommentPending: i.CreateComment.Pending(),
		Draft:          i.Drafts.Get(id),
	}
}

// myVoteKey derives the my-vote key. Without a token or a loaded topic the
// key short-circuits to "no vote".
func myVoteKey(token, id string, topic resource.State[string, model.Topic]) MyVoteKey {
	if token == "" || !topic.Ready || topic.Err != nil || topic.Key != id {
		return MyVoteKey{Token: token}
	}
	return MyVoteKey{
		Token:         token,
		TopicID:       id,
		TopicRevision: topic.Revision,
	}
}
