package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/csie-vote/voting-web/internal/api"
	"github.com/csie-vote/voting-web/internal/model"
	"github.com/csie-vote/voting-web/internal/state"
	"github.com/csie-vote/voting-web/internal/view"
)

// HandleHome handles GET / requests. ?refresh=1 refetches the topic list.
func (h *Handler) HandleHome(w http.ResponseWriter, r *http.Request) {
	inst, ok := h.instance(w, r)
	if !ok {
		return
	}
	if r.URL.Query().Get("refresh") == "1" {
		inst.RefreshTopics()
		redirect(w, r, "/")
		return
	}

	ctx, cancel := h.renderContext(r)
	defer cancel()
	h.renderer.Render(w, http.StatusOK, view.PageHome, view.Home(inst.LoadHome(ctx)))
}

// HandleTopic handles GET /topic/{id} requests.
func (h *Handler) HandleTopic(w http.ResponseWriter, r *http.Request) {
	inst, ok := h.instance(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	// Writes that outlasted their own request report here.
	var voteErr, commentErr error
	if res, ok := unseen(inst.CreateVote, func(in state.VoteRequest) bool { return in.Input.TopicID == id }); ok && res.Err != nil {
		slog.Warn("vote failed", "instance", inst.ID, "topic", id, "error", res.Err)
		voteErr = res.Err
	}
	if res, ok := unseen(inst.CreateComment, func(in state.CommentRequest) bool { return in.Input.TopicID == id }); ok && res.Err != nil {
		slog.Warn("comment failed", "instance", inst.ID, "topic", id, "error", res.Err)
		commentErr = res.Err
	}
	h.renderTopic(w, r, inst, id, voteErr, commentErr)
}

func (h *Handler) renderTopic(w http.ResponseWriter, r *http.Request, inst *state.Instance, id string, voteErr, commentErr error) {
	ctx, cancel := h.renderContext(r)
	defer cancel()

	data := inst.LoadTopic(ctx, id)
	status := http.StatusOK
	if api.IsNotFound(data.Topic.Err) {
		status = http.StatusNotFound
	}
	page := view.Topic(data, voteErr, commentErr)
	page.RefreshURL = "/topic/" + id
	h.renderer.Render(w, status, view.PageTopic, page)
}

// HandleVote handles POST /topic/{id}/vote requests. Without a session token
// nothing is dispatched.
func (h *Handler) HandleVote(w http.ResponseWriter, r *http.Request) {
	inst, ok := h.instance(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	back := "/topic/" + id

	token := inst.Token()
	if token == "" {
		redirect(w, r, back)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form body", http.StatusBadRequest)
		return
	}
	optionID := r.PostForm.Get("option_id")
	if optionID == "" {
		redirect(w, r, back)
		return
	}

	call, started := inst.CreateVote.Dispatch(r.Context(), state.VoteRequest{
		Token: token,
		Input: model.CreateVoteInput{TopicID: id, OptionID: optionID},
	})
	if !started {
		slog.Debug("vote ignored while another is pending", "instance", inst.ID, "topic", id)
		redirect(w, r, back)
		return
	}

	res, settled := awaitCall(h, r, call)
	if settled && res.Err != nil {
		slog.Warn("vote failed", "instance", inst.ID, "topic", id, "error", res.Err)
		h.renderTopic(w, r, inst, id, res.Err, nil)
		return
	}
	redirect(w, r, back)
}

// HandleComment handles POST /topic/{id}/comment requests. The text is kept
// as a draft until the backend accepts it.
func (h *Handler) HandleComment(w http.ResponseWriter, r *http.Request) {
	inst, ok := h.instance(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	back := "/topic/" + id

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form body", http.StatusBadRequest)
		return
	}
	content := r.PostForm.Get("content")
	inst.Drafts.Set(id, content)

	token := inst.Token()
	if token == "" {
		redirect(w, r, back)
		return
	}

	call, started := inst.CreateComment.Dispatch(r.Context(), state.CommentRequest{
		Token: token,
		Input: model.CreateCommentInput{TopicID: id, Content: content},
	})
	if !started {
		slog.Debug("comment ignored while another is pending", "instance", inst.ID, "topic", id)
		redirect(w, r, back)
		return
	}

	res, settled := awaitCall(h, r, call)
	if settled && res.Err != nil {
		slog.Warn("comment failed", "instance", inst.ID, "topic", id, "error", res.Err)
		h.renderTopic(w, r, inst, id, nil, res.Err)
		return
	}
	redirect(w, r, back)
}

// HandleCreateTopicForm handles GET /topic/create requests.
func (h *Handler) HandleCreateTopicForm(w http.ResponseWriter, r *http.Request) {
	inst, ok := h.instance(w, r)
	if !ok {
		return
	}
	page := view.CreateTopicPage{Pending: inst.CreateTopic.Pending()}
	if res, ok := unseen(inst.CreateTopic, nil); ok {
		if res.Err == nil {
			redirect(w, r, "/")
			return
		}
		slog.Warn("create topic failed", "instance", inst.ID, "error", res.Err)
		page.Errors = view.NewErrorList(view.TitleCreateTopic, res.Err)
	}
	h.renderCreateTopic(w, r, inst, page)
}

// HandleCreateTopic handles POST /topic/create requests. action=add-option
// re-renders the form with one more option row.
func (h *Handler) HandleCreateTopic(w http.ResponseWriter, r *http.Request) {
	inst, ok := h.instance(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form body", http.StatusBadRequest)
		return
	}
	page := topicForm(r)

	if r.PostForm.Get("action") == "add-option" {
		page.Options = append(page.Options, view.OptionForm{})
		h.renderCreateTopic(w, r, inst, page)
		return
	}

	input := model.CreateTopicInput{
		Description: page.Description,
		StartsAt:    page.StartsAt,
		EndsAt:      page.EndsAt,
		Options:     make([]model.CreateOptionInput, 0, len(page.Options)),
	}
	for _, o := range page.Options {
		input.Options = append(input.Options, model.CreateOptionInput{Label: o.Label, Description: o.Description})
	}

	call, started := inst.CreateTopic.Dispatch(r.Context(), input)
	if !started {
		page.Pending = true
		h.renderCreateTopic(w, r, inst, page)
		return
	}

	res, settled := awaitCall(h, r, call)
	switch {
	case !settled:
		page.Pending = true
		h.renderCreateTopic(w, r, inst, page)
	case res.Err != nil:
		slog.Warn("create topic failed", "instance", inst.ID, "error", res.Err)
		page.Errors = view.NewErrorList(view.TitleCreateTopic, res.Err)
		h.renderCreateTopic(w, r, inst, page)
	default:
		redirect(w, r, "/")
	}
}

func (h *Handler) renderCreateTopic(w http.ResponseWriter, r *http.Request, inst *state.Instance, page view.CreateTopicPage) {
	ctx, cancel := h.renderContext(r)
	defer cancel()
	page.Layout = view.NewLayout(inst.LoadNav(ctx))
	page.Refresh = page.Refresh || page.Pending
	page.RefreshURL = "/topic/create"
	h.renderer.Render(w, http.StatusOK, view.PageCreateTopic, page)
}

// topicForm reads the create-topic form back from a submission.
func topicForm(r *http.Request) view.CreateTopicPage {
	page := view.CreateTopicPage{
		Description: r.PostForm.Get("description"),
		StartsAt:    r.PostForm.Get("starts_at"),
		EndsAt:      r.PostForm.Get("ends_at"),
	}
	labels := r.PostForm["option-label"]
	descriptions := r.PostForm["option-description"]
	for i, label := range labels {
		opt := view.OptionForm{Label: label}
		if i < len(descriptions) {
			opt.Description = descriptions[i]
		}
		page.Options = append(page.Options, opt)
	}
	return page
}
