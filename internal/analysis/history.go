package analysis

import (
	"errors"
	"log"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/ayush/text-analysis/web/internal/web/flash"
	"github.com/ayush/text-analysis/web/internal/workflow"
)

const historyPath = "/history"

// HistoryPage lists the session's uploads and analysis runs.
func (h *Handler) HistoryPage(w http.ResponseWriter, r *http.Request) {
	st := h.state(r)
	var view historyView
	if h.datasets != nil {
		datasets, err := h.datasets.ListDatasets(r.Context(), st.ID)
		if err != nil {
			log.Printf("list datasets: %v", err)
			view.Unavailable = true
		}
		view.Datasets = datasets
	}
	if h.runs != nil {
		runs, err := h.runs.ListRuns(r.Context(), st.ID, h.opts.HistoryLimit)
		if err != nil {
			log.Printf("list runs: %v", err)
			view.Unavailable = true
		}
		for _, run := range runs {
			view.Runs = append(view.Runs, newRunView(run))
		}
	}
	h.page(w, r, http.StatusOK, "history", st, 0, "nav.history", view)
}

// DeleteRun removes a run and its archived file.
func (h *Handler) DeleteRun(w http.ResponseWriter, r *http.Request) {
	st := h.state(r)
	if h.runs == nil {
		http.Redirect(w, r, historyPath, http.StatusSeeOther)
		return
	}
	run, err := h.runs.DeleteRun(r.Context(), st.ID, chi.URLParam(r, "id"))
	if errors.Is(err, mongo.ErrNoDocuments) {
		h.redirect(w, r, flash.Warning("error.run_not_found"), historyPath)
		return
	}
	if err != nil {
		h.fail(w, r, err, historyPath)
		return
	}
	if run.ObjectKey != "" && h.files != nil && !inUse(st.Preprocess, run.ObjectKey) {
		if err := h.files.Remove(r.Context(), run.ObjectKey); err != nil {
			log.Printf("remove %s: %v", run.ObjectKey, err)
		}
	}
	h.redirect(w, r, flash.Success("flash.history_deleted"), historyPath)
}

// inUse reports whether the current preprocessing result still downloads
// from key.
func inUse(pre *workflow.PreprocessResult, key string) bool {
	return pre != nil && pre.ObjectKey == key
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
