package analysis

import (
	"net/http"
	"strings"

	"github.com/ayush/text-analysis/web/internal/models"
	"github.com/ayush/text-analysis/web/internal/store"
	"github.com/ayush/text-analysis/web/internal/web/flash"
	"github.com/ayush/text-analysis/web/internal/workflow"
)

// AnalysisPage renders the word frequency form and the last result.
func (h *Handler) AnalysisPage(w http.ResponseWriter, r *http.Request) {
	st := h.state(r)
	if err := st.Require(workflow.StepAnalysis); err != nil {
		h.fail(w, r, err, workflow.StepUpload.Path())
		return
	}
	h.page(w, r, http.StatusOK, "analysis", st, workflow.StepAnalysis, "nav.analysis",
		h.newWordFrequencyView(st))
}

// WordFrequency runs /analyse/analyze with the submitted form.
func (h *Handler) WordFrequency(w http.ResponseWriter, r *http.Request) {
	st := h.state(r)
	back := workflow.StepAnalysis.Path()
	if err := st.Require(workflow.StepAnalysis); err != nil {
		h.fail(w, r, err, back)
		return
	}
	if err := r.ParseForm(); err != nil {
		h.fail(w, r, err, back)
		return
	}
	maxWords, err := workflow.ParseInt(r.PostForm.Get("max_words"))
	if err != nil {
		h.fail(w, r, err, back)
		return
	}
	settings := workflow.WordFrequencySettings{
		Column:          r.PostForm.Get("column"),
		CloudShape:      r.PostForm.Get("cloud_shape"),
		SelectionMethod: r.PostForm.Get("selection_method"),
		CloudColor:      r.PostForm.Get("cloud_color"),
		MaxWords:        maxWords,
		EditWord:        r.PostForm.Get("edit_word"),
		SelectedWords:   r.PostForm["selected_words"],
	}
	if err := settings.Normalize(st.SelectedColumns); err != nil {
		h.fail(w, r, err, back)
		return
	}

	sess := st.Session()
	resp, err := h.api.AnalyzeWordFrequency(r.Context(), sess, settings.Request())
	if err != nil {
		h.fail(w, r, err, back)
		return
	}
	st.AdoptSession(sess)

	runID := store.NewID()
	st.SetWordFrequency(workflow.WordFrequencyResult{
		RunID:    runID,
		Settings: settings,
		Response: *resp,
	})

	h.record(r.Context(), &models.Run{
		RunID:     runID,
		SessionID: st.ID,
		Kind:      models.RunWordFrequency,
		Dataset:   st.Dataset.Filename,
		Column:    settings.Column,
		Params: map[string]any{
			"cloud_shape":    settings.CloudShape,
			"selection_type": settings.SelectionMethod,
			"cloud_color":    settings.CloudColor,
			"max_words":      settings.MaxWords,
			"selected_words": strings.Join(settings.SelectedWords, ","),
		},
		ResultURL: firstNonEmpty(resp.CSVDownloadURL, resp.WordCloudURL),
	})
	h.commit(w, r, st, flash.Success("flash.word_frequency_done"), back)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
