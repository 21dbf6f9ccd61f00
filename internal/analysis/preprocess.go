package analysis

import (
	"context"
	"io"
	"log"
	"mime"
	"net/http"
	"time"

	"github.com/ayush/text-analysis/web/internal/models"
	"github.com/ayush/text-analysis/web/internal/store"
	"github.com/ayush/text-analysis/web/internal/web/flash"
	"github.com/ayush/text-analysis/web/internal/workflow"
)

// ColumnsPage lists the dataset columns as checkboxes.
func (h *Handler) ColumnsPage(w http.ResponseWriter, r *http.Request) {
	st := h.state(r)
	if err := st.Require(workflow.StepColumns); err != nil {
		h.fail(w, r, err, workflow.StepUpload.Path())
		return
	}
	view := columnsView{Filename: st.Dataset.Filename}
	for _, c := range st.Columns() {
		view.Columns = append(view.Columns, columnChoice{Name: c, Selected: st.IsSelected(c)})
	}
	h.page(w, r, http.StatusOK, "columns", st, workflow.StepColumns, "nav.columns", view)
}

// SaveColumns stores the checked columns. A "toggle" field flips a single
// column and stays on the page.
func (h *Handler) SaveColumns(w http.ResponseWriter, r *http.Request) {
	st := h.state(r)
	back := workflow.StepColumns.Path()
	if err := r.ParseForm(); err != nil {
		h.fail(w, r, err, back)
		return
	}
	if col := r.PostForm.Get("toggle"); col != "" {
		if err := st.ToggleColumn(col); err != nil {
			h.fail(w, r, err, back)
			return
		}
		if err := h.states.Save(r.Context(), st); err != nil {
			h.fail(w, r, err, back)
			return
		}
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	}
	if err := st.SetColumns(r.PostForm["column"]); err != nil {
		h.fail(w, r, err, back)
		return
	}
	h.commit(w, r, st, flash.Success("flash.columns_saved"), workflow.StepPreprocess.Path())
}

// PreprocessPage renders the preprocessing form. A language query value
// previews its analyzers and part-of-speech filters before submitting.
func (h *Handler) PreprocessPage(w http.ResponseWriter, r *http.Request) {
	st := h.state(r)
	if err := st.Require(workflow.StepPreprocess); err != nil {
		h.fail(w, r, err, workflow.StepUpload.Path())
		return
	}
	settings := workflow.DefaultPreprocessSettings(st.Dataset.Filename)
	if st.Preprocess != nil {
		settings = st.Preprocess.Settings
	}
	if settings.Column == "" && len(st.SelectedColumns) > 0 {
		settings.Column = st.SelectedColumns[0]
	}
	q := r.URL.Query()
	if lang, ok := workflow.LookupLanguage(q.Get("language")); ok && lang.Key != settings.Language {
		settings.Language = lang.Key
		settings.Analyzer = lang.Analyzers[0].Value
		settings.POSTag = lang.POSTags[0].Value
	}
	if c := q.Get("column"); c != "" && st.IsSelected(c) {
		settings.Column = c
	}
	h.page(w, r, http.StatusOK, "preprocessing", st, workflow.StepPreprocess, "nav.preprocessing",
		newPreprocessView(st, settings))
}

// Preprocess runs /process, archives the processed file and unlocks the
// analysis steps.
func (h *Handler) Preprocess(w http.ResponseWriter, r *http.Request) {
	st := h.state(r)
	back := workflow.StepPreprocess.Path()
	if err := st.Require(workflow.StepPreprocess); err != nil {
		h.fail(w, r, err, back)
		return
	}
	if err := r.ParseForm(); err != nil {
		h.fail(w, r, err, back)
		return
	}
	minLen, err := workflow.ParseInt(r.PostForm.Get("min_word_length"))
	if err != nil {
		h.fail(w, r, err, back)
		return
	}
	settings := workflow.PreprocessSettings{
		Column:        r.PostForm.Get("column"),
		Language:      r.PostForm.Get("language"),
		Analyzer:      r.PostForm.Get("analyzer"),
		POSTag:        r.PostForm.Get("pos_tag"),
		MinWordLength: minLen,
		FileName:      r.PostForm.Get("file_name"),
	}
	if settings.MinWordLength == 0 {
		settings.MinWordLength = workflow.MinWordLength
	}
	if err := settings.Normalize(st.SelectedColumns); err != nil {
		h.fail(w, r, err, back)
		return
	}

	sess := st.Session()
	resp, err := h.api.Process(r.Context(), sess, settings.Request())
	if err != nil {
		h.fail(w, r, err, back)
		return
	}
	st.AdoptSession(sess)

	runID := store.NewID()
	result := workflow.PreprocessResult{
		Settings:    settings,
		DownloadURL: resp.DownloadURL,
		ProcessedAt: time.Now().UTC(),
	}
	result.ObjectKey = h.archiveProcessed(r.Context(), st, runID, settings.FileName+".csv", resp.DownloadURL)
	st.SetPreprocess(result)

	h.record(r.Context(), &models.Run{
		RunID:     runID,
		SessionID: st.ID,
		Kind:      models.RunPreprocess,
		Dataset:   st.Dataset.Filename,
		Column:    settings.Column,
		Params: map[string]any{
			"language":        settings.Language,
			"analyzer":        settings.Analyzer,
			"pos_tags":        settings.POSTag,
			"min_word_length": settings.MinWordLength,
			"file_name":       settings.FileName,
		},
		ResultURL: resp.DownloadURL,
		ObjectKey: result.ObjectKey,
	})
	h.commit(w, r, st, flash.Success("flash.processed", settings.Column), back)
}

// archiveProcessed copies the processed file into object storage so it can
// be downloaded after the analysis service forgets it.
func (h *Handler) archiveProcessed(ctx context.Context, st *workflow.State, runID, filename, ref string) string {
	if h.files == nil || ref == "" {
		return ""
	}
	body, contentType, err := h.api.Fetch(ctx, st.Session(), ref)
	if err != nil {
		log.Printf("fetch processed file: %v", err)
		return ""
	}
	defer body.Close()
	if contentType == "" {
		contentType = mimeCSV
	}
	key := store.ProcessedKey(runID, filename)
	if err := h.files.Upload(ctx, key, body, -1, contentType); err != nil {
		log.Printf("archive processed %s: %v", key, err)
		return ""
	}
	return key
}

// DownloadProcessed streams the processed file, from object storage when
// archived and from the analysis service otherwise.
func (h *Handler) DownloadProcessed(w http.ResponseWriter, r *http.Request) {
	st := h.state(r)
	back := workflow.StepPreprocess.Path()
	if st.Preprocess == nil {
		h.redirect(w, r, flash.Warning("error.no_download"), back)
		return
	}

	var (
		body        io.ReadCloser
		contentType string
		err         error
	)
	if key := st.Preprocess.ObjectKey; key != "" && h.files != nil {
		body, contentType, err = h.files.Open(r.Context(), key)
		if err != nil {
			log.Printf("open archived %s: %v", key, err)
		}
	}
	if body == nil {
		if st.Preprocess.DownloadURL == "" {
			h.redirect(w, r, flash.Warning("error.no_download"), back)
			return
		}
		body, contentType, err = h.api.Fetch(r.Context(), st.Session(), st.Preprocess.DownloadURL)
		if err != nil {
			h.fail(w, r, err, back)
			return
		}
	}
	defer body.Close()

	if contentType == "" {
		contentType = mimeCSV
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": st.Preprocess.Settings.FileName + ".csv",
	}))
	if _, err := io.Copy(w, body); err != nil {
		log.Printf("download processed: %v", err)
	}
}
