package analysis

import (
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/ayush/text-analysis/web/internal/models"
	"github.com/ayush/text-analysis/web/internal/store"
	"github.com/ayush/text-analysis/web/internal/topics"
	"github.com/ayush/text-analysis/web/internal/web/flash"
	"github.com/ayush/text-analysis/web/internal/workflow"
)

// LDA result tabs, in display order.
var ldaTabs = []string{"editor", "model", "topic", "chart", "network", "cloud", "interactive"}

const defaultLDATab = "model"

// noTopic selects no topic; the service never reports it as an ID.
const noTopic = math.MinInt32

func ldaURL(tab string, topicID ...int) string {
	v := url.Values{}
	v.Set("tab", tab)
	switch {
	case len(topicID) == 0:
	case topicID[0] == noTopic:
		v.Set("topic", "none")
	default:
		v.Set("topic", strconv.Itoa(topicID[0]))
	}
	return "/lda?" + v.Encode()
}

func validTab(tab string) bool {
	for _, t := range ldaTabs {
		if t == tab {
			return true
		}
	}
	return false
}

// LDAPage renders the topic modeling form and, once a model exists, the
// result tabs.
func (h *Handler) LDAPage(w http.ResponseWriter, r *http.Request) {
	st := h.state(r)
	if err := st.Require(workflow.StepLDA); err != nil {
		h.fail(w, r, err, workflow.StepUpload.Path())
		return
	}
	tab := r.URL.Query().Get("tab")
	if !validTab(tab) {
		tab = defaultLDATab
	}
	selected := 0
	if st.LDA != nil {
		selected = st.LDA.SelectedTopic
	}
	if r.URL.Query().Get("topic") == "none" {
		selected = noTopic
	} else if n, err := strconv.Atoi(r.URL.Query().Get("topic")); err == nil {
		if _, ok := topics.Find(st.Topics(), n); ok {
			selected = n
		}
	}
	h.page(w, r, http.StatusOK, "lda", st, workflow.StepLDA, "nav.lda", h.newLDAView(st, tab, selected))
}

// ProcessLDA fits a new topic model with the submitted form.
func (h *Handler) ProcessLDA(w http.ResponseWriter, r *http.Request) {
	st := h.state(r)
	back := workflow.StepLDA.Path()
	if err := st.Require(workflow.StepLDA); err != nil {
		h.fail(w, r, err, back)
		return
	}
	if err := r.ParseForm(); err != nil {
		h.fail(w, r, err, back)
		return
	}
	d := workflow.DefaultLDASettings()
	settings := workflow.LDASettings{
		Column:       r.PostForm.Get("column"),
		ChartStyle:   r.PostForm.Get("chart_style"),
		NetworkStyle: r.PostForm.Get("network_style"),
	}
	fields := []struct {
		name string
		dst  *int
		def  int
	}{
		{"min_topics", &settings.MinTopics, d.MinTopics},
		{"max_topics", &settings.MaxTopics, d.MaxTopics},
		{"no_below", &settings.NoBelow, d.NoBelow},
		{"no_above", &settings.NoAbove, d.NoAbove},
	}
	for _, f := range fields {
		raw := r.PostForm.Get(f.name)
		if strings.TrimSpace(raw) == "" {
			*f.dst = f.def
			continue
		}
		n, err := workflow.ParseInt(raw)
		if err != nil {
			h.fail(w, r, err, back)
			return
		}
		*f.dst = n
	}
	h.runLDA(w, r, st, settings, defaultLDATab)
}

// ApplyOptimal refits the model with exactly the optimal number of topics
// reported by the last run.
func (h *Handler) ApplyOptimal(w http.ResponseWriter, r *http.Request) {
	st := h.state(r)
	if err := st.Require(workflow.StepLDA); err != nil {
		h.fail(w, r, err, workflow.StepLDA.Path())
		return
	}
	if st.LDA == nil || st.LDA.Response.OptimalTopicNum <= 0 {
		h.redirect(w, r, flash.Warning("error.no_model"), workflow.StepLDA.Path())
		return
	}
	settings := st.LDA.Settings
	settings.MinTopics = st.LDA.Response.OptimalTopicNum
	settings.MaxTopics = st.LDA.Response.OptimalTopicNum
	h.runLDA(w, r, st, settings, "topic")
}

// ApplyStyle refits the model with a new chart or network style.
func (h *Handler) ApplyStyle(w http.ResponseWriter, r *http.Request) {
	st := h.state(r)
	if err := st.Require(workflow.StepLDA); err != nil {
		h.fail(w, r, err, workflow.StepLDA.Path())
		return
	}
	if st.LDA == nil {
		h.redirect(w, r, flash.Warning("error.no_model"), workflow.StepLDA.Path())
		return
	}
	if err := r.ParseForm(); err != nil {
		h.fail(w, r, err, workflow.StepLDA.Path())
		return
	}
	tab := r.PostForm.Get("tab")
	if !validTab(tab) {
		tab = "chart"
	}
	settings := st.LDA.Settings
	if v := r.PostForm.Get("chart_style"); v != "" {
		settings.ChartStyle = v
	}
	if v := r.PostForm.Get("network_style"); v != "" {
		settings.NetworkStyle = v
	}
	h.runLDA(w, r, st, settings, tab)
}

func (h *Handler) runLDA(w http.ResponseWriter, r *http.Request, st *workflow.State, settings workflow.LDASettings, tab string) {
	back := ldaURL(tab)
	if err := settings.Normalize(st.SelectedColumns); err != nil {
		h.fail(w, r, err, back)
		return
	}

	sess := st.Session()
	resp, err := h.api.ProcessLDA(r.Context(), sess, settings.Request())
	if err != nil {
		h.fail(w, r, err, back)
		return
	}
	st.AdoptSession(sess)

	runID := store.NewID()
	st.SetLDA(workflow.LDAResult{RunID: runID, Settings: settings, Response: *resp})

	run := &models.Run{
		RunID:         runID,
		SessionID:     st.ID,
		Kind:          models.RunLDA,
		Dataset:       st.Dataset.Filename,
		Column:        settings.Column,
		OptimalTopics: resp.OptimalTopicNum,
		TopicCount:    len(resp.Topics),
		Params: map[string]any{
			"min_topic":     settings.MinTopics,
			"max_topic":     settings.MaxTopics,
			"no_below":      settings.NoBelow,
			"no_above":      settings.NoAbove,
			"chart_style":   settings.ChartStyle,
			"network_style": settings.NetworkStyle,
		},
		ResultURL: resp.CSVDownloadURL,
	}
	for _, t := range resp.Topics {
		run.Topics = append(run.Topics, models.RunTopic{ID: t.ID, Words: t.Words})
	}
	h.record(r.Context(), run)
	h.commit(w, r, st, flash.Success("flash.lda_done", strconv.Itoa(len(resp.Topics))), ldaURL(tab))
}

func parseTopicID(raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: topic %q", topics.ErrUnknownKeyword, raw)
	}
	return n, nil
}
