package analysis

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/ayush/text-analysis/web/internal/analysisapi"
	"github.com/ayush/text-analysis/web/internal/i18n"
	"github.com/ayush/text-analysis/web/internal/middleware"
	"github.com/ayush/text-analysis/web/internal/models"
	"github.com/ayush/text-analysis/web/internal/web/flash"
	"github.com/ayush/text-analysis/web/internal/web/render"
	"github.com/ayush/text-analysis/web/internal/workflow"
)

type fakeAPI struct {
	mu sync.Mutex

	upload   analysisapi.UploadResponse
	process  analysisapi.ProcessResponse
	wordFreq analysisapi.WordFrequencyResponse
	lda      analysisapi.LDAResponse
	edit     analysisapi.LDAResponse
	files    map[string]string
	err      error

	uploaded    []string
	processReqs []analysisapi.ProcessRequest
	wordReqs    []analysisapi.WordFrequencyRequest
	ldaReqs     []analysisapi.LDARequest
	editReqs    []analysisapi.EditKeywordsRequest
}

func (f *fakeAPI) Upload(_ context.Context, sess *analysisapi.Session, filename string, body io.Reader) (*analysisapi.UploadResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	io.Copy(io.Discard, body)
	f.uploaded = append(f.uploaded, filename)
	if sess.ID == "" {
		sess.ID = "backend-1"
	}
	resp := f.upload
	return &resp, nil
}

func (f *fakeAPI) Process(_ context.Context, _ *analysisapi.Session, req analysisapi.ProcessRequest) (*analysisapi.ProcessResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.processReqs = append(f.processReqs, req)
	resp := f.process
	return &resp, nil
}

func (f *fakeAPI) AnalyzeWordFrequency(_ context.Context, _ *analysisapi.Session, req analysisapi.WordFrequencyRequest) (*analysisapi.WordFrequencyResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.wordReqs = append(f.wordReqs, req)
	resp := f.wordFreq
	return &resp, nil
}

func (f *fakeAPI) ProcessLDA(_ context.Context, _ *analysisapi.Session, req analysisapi.LDARequest) (*analysisapi.LDAResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.ldaReqs = append(f.ldaReqs, req)
	resp := f.lda
	resp.Topics = append([]analysisapi.TopicItem(nil), f.lda.Topics...)
	return &resp, nil
}

func (f *fakeAPI) EditKeywords(_ context.Context, _ *analysisapi.Session, req analysisapi.EditKeywordsRequest) (*analysisapi.LDAResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.editReqs = append(f.editReqs, req)
	resp := f.edit
	return &resp, nil
}

func (f *fakeAPI) Fetch(_ context.Context, _ *analysisapi.Session, ref string) (io.ReadCloser, string, error) {
	body, ok := f.files[ref]
	if !ok {
		return nil, "", &analysisapi.APIError{Status: http.StatusNotFound, Endpoint: ref, Message: "not found"}
	}
	return io.NopCloser(strings.NewReader(body)), "text/csv", nil
}

func (f *fakeAPI) ResolveURL(ref string) string {
	if strings.HasPrefix(ref, "http") {
		return strings.Replace(ref, "http://", "https://", 1)
	}
	return "https://api.example/" + strings.TrimPrefix(ref, "/")
}

type memDatasets struct {
	records []models.DatasetRecord
}

func (m *memDatasets) InsertDataset(_ context.Context, d *models.DatasetRecord) error {
	m.records = append(m.records, *d)
	return nil
}

func (m *memDatasets) ListDatasets(_ context.Context, sessionID string) ([]models.DatasetRecord, error) {
	var out []models.DatasetRecord
	for _, d := range m.records {
		if d.SessionID == sessionID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *memDatasets) CountByHash(_ context.Context, hash string) (int, error) {
	n := 0
	for _, d := range m.records {
		if d.ContentHash == hash && d.ObjectKey != "" {
			n++
		}
	}
	return n, nil
}

type memRuns struct {
	runs []models.Run
}

func (m *memRuns) InsertRun(_ context.Context, run *models.Run) (string, error) {
	run.ID = primitive.NewObjectID()
	m.runs = append(m.runs, *run)
	return run.ID.Hex(), nil
}

func (m *memRuns) ListRuns(_ context.Context, sessionID string, _ int) ([]models.Run, error) {
	var out []models.Run
	for _, r := range m.runs {
		if r.SessionID == sessionID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memRuns) DeleteRun(_ context.Context, sessionID, id string) (*models.Run, error) {
	for i, r := range m.runs {
		if r.ID.Hex() == id && r.SessionID == sessionID {
			m.runs = append(m.runs[:i], m.runs[i+1:]...)
			return &r, nil
		}
	}
	return nil, mongo.ErrNoDocuments
}

func (m *memRuns) kinds() []models.RunKind {
	var out []models.RunKind
	for _, r := range m.runs {
		out = append(out, r.Kind)
	}
	return out
}

type memFiles struct {
	objects map[string][]byte
	removed []string
	err     error
}

func (m *memFiles) Upload(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	if m.err != nil {
		return m.err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.objects[key] = data
	return nil
}

func (m *memFiles) Open(_ context.Context, key string) (io.ReadCloser, string, error) {
	data, ok := m.objects[key]
	if !ok {
		return nil, "", io.ErrUnexpectedEOF
	}
	return io.NopCloser(bytes.NewReader(data)), "text/csv", nil
}

func (m *memFiles) Remove(_ context.Context, key string) error {
	delete(m.objects, key)
	m.removed = append(m.removed, key)
	return nil
}

type memStates struct {
	saves int
}

func (m *memStates) Save(context.Context, *workflow.State) error {
	m.saves++
	return nil
}

type testEnv struct {
	api      *fakeAPI
	datasets *memDatasets
	runs     *memRuns
	files    *memFiles
	states   *memStates
	state    *workflow.State
	handler  *Handler
	router   http.Handler
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	bundle, err := i18n.LoadEmbedded()
	if err != nil {
		t.Fatalf("LoadEmbedded: %v", err)
	}
	renderer, err := render.New(bundle)
	if err != nil {
		t.Fatalf("render.New: %v", err)
	}
	env := &testEnv{
		api:      &fakeAPI{files: map[string]string{}},
		datasets: &memDatasets{},
		runs:     &memRuns{},
		files:    &memFiles{objects: map[string][]byte{}},
		states:   &memStates{},
		state:    workflow.New("browser-1"),
	}
	env.handler = NewHandler(env.api, env.datasets, env.runs, env.files, env.states, renderer, Options{MaxUploadBytes: 1 << 20})

	r := chi.NewRouter()
	r.Use(bundle.Middleware)
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(middleware.WithState(req.Context(), env.state)))
		})
	})
	env.handler.Routes(r)
	env.router = r
	return env
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) post(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return e.do(req)
}

func (e *testEnv) get(path string) *httptest.ResponseRecorder {
	return e.do(httptest.NewRequest(http.MethodGet, path, nil))
}

// noticeOf decodes the flash cookie set by a response.
func noticeOf(t *testing.T, rec *httptest.ResponseRecorder) flash.Notice {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		if c.Name == flash.CookieName {
			req.AddCookie(c)
		}
	}
	n, ok := flash.ReadAndClear(httptest.NewRecorder(), req)
	if !ok {
		t.Fatalf("no flash notice; status %d", rec.Code)
	}
	return n
}

func expectRedirect(t *testing.T, rec *httptest.ResponseRecorder, to string) {
	t.Helper()
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Location"); got != to {
		t.Fatalf("Location = %q, want %q", got, to)
	}
}
