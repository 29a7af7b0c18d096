package view

import (
	"github.com/csie-vote/voting-web/internal/model"
	"github.com/csie-vote/voting-web/internal/state"
)

// Error list titles.
const (
	TitleDefault     = "Error Occurred!"
	TitleTopic       = "Topic Page"
	TitleLogin       = "Login failed!"
	TitleSignup      = "Signup failed!"
	TitleCreateTopic = "Create Topic Failed"
)

// Layout is shared by every page.
type Layout struct {
	Nav Nav
	// Refresh makes the page reload itself after a second, used while
	// something it shows is still loading.
	Refresh bool
	// RefreshURL is where the reload goes. Empty reloads the current URL.
	RefreshURL string
}

// Nav is the navbar. An empty Username renders the "Login" link.
type Nav struct {
	Username string
	Loading  bool
}

// ErrorList is an inline error panel.
type ErrorList struct {
	Title    string
	Messages []string
}

// NewErrorList returns a panel listing the non-nil errs, or nil if there are none.
func NewErrorList(title string, errs ...error) *ErrorList {
	var msgs []string
	for _, err := range errs {
		if err != nil {
			msgs = append(msgs, err.Error())
		}
	}
	if len(msgs) == 0 {
		return nil
	}
	return &ErrorList{Title: title, Messages: msgs}
}

// TopicCard is one topic as listed on the home page or headed on its own page.
type TopicCard struct {
	ID          string
	Description string
	StartsAt    string
	EndsAt      string
	UpdatedAt   string
	Stage       string
	ShowDetail  bool
}

// OptionCard is one vote option of a topic.
type OptionCard struct {
	ID          string
	Label       string
	Description string
	// Voted highlights the option matching my vote.
	Voted bool
}

// CommentCard is one posted comment.
type CommentCard struct {
	Content   string
	CreatedAt string
}

// HomePage is the topic list.
type HomePage struct {
	Layout
	Loading bool
	Errors  *ErrorList
	Topics  []TopicCard
}

// TopicPage is the topic detail view with its options and comments.
type TopicPage struct {
	Layout
	TopicID string
	Loading bool
	Errors  *ErrorList

	Topic   *TopicCard
	Options []OptionCard

	LoggedIn    bool
	VotePending bool
	MyVoteError string

	CommentsLoading bool
	CommentErrors   *ErrorList
	Comments        []CommentCard
	CommentPending  bool
	Draft           string
}

// CanVote reports whether the vote buttons are enabled.
func (p TopicPage) CanVote() bool {
	return p.LoggedIn && !p.VotePending
}

// CanComment reports whether the comment submit button is enabled.
func (p TopicPage) CanComment() bool {
	return p.LoggedIn && !p.CommentPending
}

// OptionForm is one option row of the create-topic form.
type OptionForm struct {
	Label       string
	Description string
}

// CreateTopicPage is the create-topic form.
type CreateTopicPage struct {
	Layout
	Errors      *ErrorList
	Pending     bool
	Description string
	StartsAt    string
	EndsAt      string
	Options     []OptionForm
}

// LoginPage is the login form.
type LoginPage struct {
	Layout
	Errors   *ErrorList
	Pending  bool
	Username string
}

// SignupPage is the signup form.
type SignupPage struct {
	Layout
	Errors   *ErrorList
	Pending  bool
	Username string
	Email    string
}

// NotFoundPage is shown for unknown paths.
type NotFoundPage struct {
	Layout
	Path string
}

// NewNav builds the navbar. A failed user lookup falls back to the Login link.
func NewNav(d state.NavData) Nav {
	nav := Nav{Loading: d.Me.Loading()}
	if d.Me.Err == nil && d.Me.Value != nil {
		nav.Username = d.Me.Value.Username
	}
	return nav
}

// NewLayout builds the shared layout around nav.
func NewLayout(d state.NavData) Layout {
	nav := NewNav(d)
	return Layout{Nav: nav, Refresh: nav.Loading}
}

func newTopicCard(t model.Topic, showDetail bool) TopicCard {
	return TopicCard{
		ID:          t.ID,
		Description: t.Description,
		StartsAt:    t.StartsAt,
		EndsAt:      t.EndsAt,
		UpdatedAt:   t.UpdatedAt,
		Stage:       t.Stage,
		ShowDetail:  showDetail,
	}
}

// Home composes the topic list page.
func Home(d state.HomeData) HomePage {
	p := HomePage{Layout: NewLayout(d.Nav)}
	switch {
	case d.Topics.Loading():
		p.Loading = true
		p.Refresh = true
	case d.Topics.Err != nil:
		p.Errors = NewErrorList(TitleDefault, d.Topics.Err)
	default:
		for _, t := range d.Topics.Value {
			p.Topics = append(p.Topics, newTopicCard(t, true))
		}
	}
	return p
}

// Topic composes the topic detail page. voteErr and commentErr are failures
// of the submission that led to this render, if any.
func Topic(d state.TopicData, voteErr, commentErr error) TopicPage {
	p := TopicPage{
		Layout:         NewLayout(d.Nav),
		TopicID:        d.TopicID,
		LoggedIn:       d.Nav.LoggedIn,
		VotePending:    d.VotePending,
		CommentPending: d.CommentPending,
		Draft:          d.Draft,
	}
	if d.VotePending || d.CommentPending {
		p.Refresh = true
	}

	switch {
	case d.Topic.Loading():
		p.Loading = true
		p.Refresh = true
	case d.Topic.Err != nil:
		p.Errors = NewErrorList(TitleTopic, d.Topic.Err, voteErr)
	default:
		card := newTopicCard(d.Topic.Value, false)
		p.Topic = &card
		p.Errors = NewErrorList(TitleTopic, voteErr)

		var votedFor string
		if d.MyVote.Err != nil {
			p.MyVoteError = d.MyVote.Err.Error()
		} else if d.MyVote.Value != nil {
			votedFor = d.MyVote.Value.OptionID
		}
		if d.MyVote.Loading() {
			p.Refresh = true
		}
		for _, o := range d.Topic.Value.Options {
			p.Options = append(p.Options, OptionCard{
				ID:          o.ID,
				Label:       o.Label,
				Description: o.Description,
				Voted:       votedFor != "" && o.ID == votedFor,
			})
		}
	}

	switch {
	case d.Comments.Loading():
		p.CommentsLoading = true
		p.Refresh = true
	case d.Comments.Err != nil:
		p.CommentErrors = NewErrorList(TitleDefault, d.Comments.Err, commentErr)
	default:
		p.CommentErrors = NewErrorList(TitleDefault, commentErr)
		for _, c := range d.Comments.Value {
			p.Comments = append(p.Comments, CommentCard{Content: c.Content, CreatedAt: c.CreatedAt})
		}
	}
	return p
}
