// Package analysis serves the workflow pages and forwards every form to the
// analysis service.
package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ayush/text-analysis/web/internal/analysisapi"
	"github.com/ayush/text-analysis/web/internal/middleware"
	"github.com/ayush/text-analysis/web/internal/models"
	"github.com/ayush/text-analysis/web/internal/topics"
	"github.com/ayush/text-analysis/web/internal/web/flash"
	"github.com/ayush/text-analysis/web/internal/web/render"
	"github.com/ayush/text-analysis/web/internal/workflow"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// API is the remote analysis service.
type API interface {
	Upload(ctx context.Context, sess *analysisapi.Session, filename string, body io.Reader) (*analysisapi.UploadResponse, error)
	Process(ctx context.Context, sess *analysisapi.Session, req analysisapi.ProcessRequest) (*analysisapi.ProcessResponse, error)
	AnalyzeWordFrequency(ctx context.Context, sess *analysisapi.Session, req analysisapi.WordFrequencyRequest) (*analysisapi.WordFrequencyResponse, error)
	ProcessLDA(ctx context.Context, sess *analysisapi.Session, req analysisapi.LDARequest) (*analysisapi.LDAResponse, error)
	EditKeywords(ctx context.Context, sess *analysisapi.Session, req analysisapi.EditKeywordsRequest) (*analysisapi.LDAResponse, error)
	Fetch(ctx context.Context, sess *analysisapi.Session, ref string) (io.ReadCloser, string, error)
	ResolveURL(ref string) string
}

// DatasetStore records uploads.
type DatasetStore interface {
	InsertDataset(ctx context.Context, d *models.DatasetRecord) error
	ListDatasets(ctx context.Context, sessionID string) ([]models.DatasetRecord, error)
	CountByHash(ctx context.Context, hash string) (int, error)
}

// RunStore keeps the analysis history.
type RunStore interface {
	InsertRun(ctx context.Context, run *models.Run) (string, error)
	ListRuns(ctx context.Context, sessionID string, limit int) ([]models.Run, error)
	DeleteRun(ctx context.Context, sessionID, id string) (*models.Run, error)
}

// FileStore defines the interface for file storage.
type FileStore interface {
	Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, string, error)
	Remove(ctx context.Context, key string) error
}

// StateStore persists workflow state after every change.
type StateStore interface {
	Save(ctx context.Context, st *workflow.State) error
}

// Options tunes the handler.
type Options struct {
	MaxUploadBytes int64
	SecureCookies  bool
	HistoryLimit   int
}

// Handler holds the workflow HTTP handlers.
type Handler struct {
	api      API
	datasets DatasetStore
	runs     RunStore
	files    FileStore
	states   StateStore
	render   *render.Renderer
	opts     Options
}

func NewHandler(api API, datasets DatasetStore, runs RunStore, files FileStore, states StateStore, renderer *render.Renderer, opts Options) *Handler {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 50 << 20
	}
	return &Handler{
		api:      api,
		datasets: datasets,
		runs:     runs,
		files:    files,
		states:   states,
		render:   renderer,
		opts:     opts,
	}
}

// Routes mounts every page. The router must already run the session and
// language middleware.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.UploadPage)
	r.Post("/upload", h.Upload)

	r.Get("/columns", h.ColumnsPage)
	r.Post("/columns", h.SaveColumns)

	r.Get("/preprocessing", h.PreprocessPage)
	r.Post("/preprocessing", h.Preprocess)
	r.Get("/preprocessing/download", h.DownloadProcessed)

	r.Get("/analysis", h.AnalysisPage)
	r.Post("/analysis/word-frequency", h.WordFrequency)

	r.Route("/lda", func(r chi.Router) {
		r.Get("/", h.LDAPage)
		r.Post("/process", h.ProcessLDA)
		r.Post("/optimal", h.ApplyOptimal)
		r.Post("/style", h.ApplyStyle)
		r.Get("/pyldavis", h.PyLDAvis)
		r.Route("/topics/{topicID}", func(r chi.Router) {
			r.Post("/keywords/{keywordID}/edit", h.EditKeyword)
			r.Post("/keywords/{keywordID}/remove", h.RemoveKeyword)
			r.Post("/keywords/{keywordID}/restore", h.RestoreKeyword)
			r.Post("/discard", h.DiscardEdits)
			r.Post("/apply", h.ApplyEdits)
		})
	})

	r.Get("/history", h.HistoryPage)
	r.Post("/history/{id}/delete", h.DeleteRun)
	r.Post("/reset", h.Reset)
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) state(r *http.Request) *workflow.State {
	st := middleware.State(r.Context())
	if st == nil {
		// Only reachable when the router is wired without Sessions.
		st = workflow.New("")
	}
	return st
}

// page renders a workflow page with the sidebar and any pending notice.
func (h *Handler) page(w http.ResponseWriter, r *http.Request, status int, name string, st *workflow.State, active workflow.Step, titleKey string, data any) {
	p := render.Page{
		TitleKey: titleKey,
		Nav:      navItems(st, active),
		Data:     data,
	}
	if n, ok := flash.ReadAndClear(w, r); ok {
		p.Flash = &n
	}
	h.render.Render(w, r, status, name, p)
}

// commit saves the state, queues a notice and redirects.
func (h *Handler) commit(w http.ResponseWriter, r *http.Request, st *workflow.State, notice flash.Notice, to string) {
	if err := h.states.Save(r.Context(), st); err != nil {
		log.Printf("session save %s: %v", st.ID, err)
		h.redirect(w, r, flash.Error("error.internal"), to)
		return
	}
	h.redirect(w, r, notice, to)
}

func (h *Handler) redirect(w http.ResponseWriter, r *http.Request, notice flash.Notice, to string) {
	flash.Write(w, notice, h.opts.SecureCookies)
	http.Redirect(w, r, to, http.StatusSeeOther)
}

// fail maps an error to a notice and sends the user back.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, back string) {
	var locked *workflow.LockedError
	var apiErr *analysisapi.APIError
	switch {
	case errors.As(err, &locked):
		h.redirect(w, r, flash.Warning("locked."+locked.Need.String()), locked.Need.Path())
	case errors.Is(err, workflow.ErrInvalidSettings):
		h.redirect(w, r, flash.Error("error.invalid_settings", strings.TrimPrefix(err.Error(), workflow.ErrInvalidSettings.Error()+": ")), back)
	case errors.Is(err, analysisapi.ErrNoSession):
		h.redirect(w, r, flash.Warning("error.no_session"), workflow.StepUpload.Path())
	case errors.As(err, &apiErr):
		log.Printf("analysis api %s: %d %s", apiErr.Endpoint, apiErr.Status, apiErr.Message)
		msg := apiErr.Message
		if msg == "" {
			msg = http.StatusText(apiErr.Status)
		}
		h.redirect(w, r, flash.Error("error.api", msg), back)
	case errors.Is(err, topics.ErrDuplicateKeyword):
		h.redirect(w, r, flash.Error("error.duplicate_keyword"), back)
	case errors.Is(err, topics.ErrEmptyKeyword):
		h.redirect(w, r, flash.Error("error.empty_keyword"), back)
	case errors.Is(err, topics.ErrUnknownKeyword):
		h.redirect(w, r, flash.Error("error.unknown_keyword"), back)
	case errors.Is(err, topics.ErrNothingPending):
		h.redirect(w, r, flash.Info("error.nothing_pending"), back)
	case errors.Is(err, errUploadType):
		h.redirect(w, r, flash.Error("error.invalid_file"), back)
	case errors.Is(err, errNoFile):
		h.redirect(w, r, flash.Error("error.no_file"), back)
	case errors.Is(err, errTooLarge):
		h.redirect(w, r, flash.Error("error.file_too_large", formatMB(h.opts.MaxUploadBytes)), back)
	case errors.Is(err, context.DeadlineExceeded), isTransport(err):
		log.Printf("analysis api unreachable: %v", err)
		h.redirect(w, r, flash.Error("error.unavailable"), back)
	default:
		log.Printf("%s %s: %v", r.Method, r.URL.Path, err)
		h.redirect(w, r, flash.Error("error.internal"), back)
	}
}

// record stores a run in the history. Failures only cost history.
func (h *Handler) record(ctx context.Context, run *models.Run) {
	if h.runs == nil {
		return
	}
	if _, err := h.runs.InsertRun(ctx, run); err != nil {
		log.Printf("history insert %s: %v", run.Kind, err)
	}
}

// Reset forgets the session's workflow and returns to the upload page.
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	st := h.state(r)
	st.Reset()
	h.commit(w, r, st, flash.Info("flash.reset"), workflow.StepUpload.Path())
}

// NotFound renders the error page.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.page(w, r, http.StatusNotFound, "error", h.state(r), 0, "error.not_found", errorView{Status: http.StatusNotFound, MessageKey: "error.not_found"})
}
