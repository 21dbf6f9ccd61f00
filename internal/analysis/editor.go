package analysis

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ayush/text-analysis/web/internal/models"
	"github.com/ayush/text-analysis/web/internal/store"
	"github.com/ayush/text-analysis/web/internal/topics"
	"github.com/ayush/text-analysis/web/internal/web/flash"
	"github.com/ayush/text-analysis/web/internal/workflow"
)

// editTarget resolves the topic named in the URL. ok is false after the
// response has been written.
func (h *Handler) editTarget(w http.ResponseWriter, r *http.Request) (st *workflow.State, topic topics.Topic, back string, ok bool) {
	st = h.state(r)
	if st.LDA == nil {
		h.redirect(w, r, flash.Warning("error.no_model"), workflow.StepLDA.Path())
		return nil, topics.Topic{}, "", false
	}
	id, err := parseTopicID(chi.URLParam(r, "topicID"))
	if err != nil {
		h.fail(w, r, err, ldaURL("editor"))
		return nil, topics.Topic{}, "", false
	}
	topic, found := topics.Find(st.Topics(), id)
	if !found {
		h.redirect(w, r, flash.Error("error.unknown_topic", fmt.Sprint(id)), ldaURL("editor"))
		return nil, topics.Topic{}, "", false
	}
	st.LDA.SelectedTopic = id
	return st, topic, ldaURL("editor", id), true
}

// EditKeyword stages a new text for a keyword.
func (h *Handler) EditKeyword(w http.ResponseWriter, r *http.Request) {
	st, topic, back, ok := h.editTarget(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		h.fail(w, r, err, back)
		return
	}
	p := st.PendingFor(topic.ID)
	if err := p.StageEdit(topic.Keywords, chi.URLParam(r, "keywordID"), r.PostForm.Get("text")); err != nil {
		h.fail(w, r, err, back)
		return
	}
	h.save(w, r, st, back)
}

// RemoveKeyword stages a keyword for deletion.
func (h *Handler) RemoveKeyword(w http.ResponseWriter, r *http.Request) {
	st, topic, back, ok := h.editTarget(w, r)
	if !ok {
		return
	}
	if err := st.PendingFor(topic.ID).StageRemove(topic.Keywords, chi.URLParam(r, "keywordID")); err != nil {
		h.fail(w, r, err, back)
		return
	}
	h.save(w, r, st, back)
}

// RestoreKeyword drops any staged change to a keyword.
func (h *Handler) RestoreKeyword(w http.ResponseWriter, r *http.Request) {
	st, topic, back, ok := h.editTarget(w, r)
	if !ok {
		return
	}
	st.PendingFor(topic.ID).Restore(chi.URLParam(r, "keywordID"))
	h.save(w, r, st, back)
}

// DiscardEdits forgets every staged change to the topic.
func (h *Handler) DiscardEdits(w http.ResponseWriter, r *http.Request) {
	st, topic, back, ok := h.editTarget(w, r)
	if !ok {
		return
	}
	st.PendingFor(topic.ID).Discard()
	delete(st.Pending, topic.ID)
	h.commit(w, r, st, flash.Info("flash.edits_discarded"), back)
}

// ApplyEdits sends the staged changes to /analyse/edit_keywords and merges
// the answer into the model.
func (h *Handler) ApplyEdits(w http.ResponseWriter, r *http.Request) {
	st, topic, back, ok := h.editTarget(w, r)
	if !ok {
		return
	}
	req, err := st.PendingFor(topic.ID).Request(topic.ID, topic.Keywords)
	if err != nil {
		h.fail(w, r, err, back)
		return
	}

	sess := st.Session()
	resp, err := h.api.EditKeywords(r.Context(), sess, req)
	if err != nil {
		h.fail(w, r, err, back)
		return
	}
	st.AdoptSession(sess)
	st.ApplyEdits(topic.ID, *resp)

	edited := make([]string, 0, len(req.EditedWords))
	for _, e := range req.EditedWords {
		edited = append(edited, e.Original+" → "+e.Edited)
	}
	run := &models.Run{
		RunID:     store.NewID(),
		SessionID: st.ID,
		Kind:      models.RunKeywordEdit,
		Dataset:   st.Dataset.Filename,
		Column:    st.LDA.Settings.Column,
		Params: map[string]any{
			"topic_id":      topic.ID,
			"edited_words":  edited,
			"removed_words": req.RemovedWords,
		},
	}
	if t, found := topics.Find(st.Topics(), topic.ID); found {
		run.Topics = []models.RunTopic{{ID: t.ID, Words: t.Original}}
	}
	h.record(r.Context(), run)
	h.commit(w, r, st, flash.Success("flash.edits_applied", fmt.Sprint(topic.ID)), back)
}

// save persists staged editor changes without a notice.
func (h *Handler) save(w http.ResponseWriter, r *http.Request, st *workflow.State, back string) {
	if err := h.states.Save(r.Context(), st); err != nil {
		h.fail(w, r, err, back)
		return
	}
	http.Redirect(w, r, back, http.StatusSeeOther)
}
