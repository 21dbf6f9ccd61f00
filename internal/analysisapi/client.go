// Package analysisapi talks to the remote text-analysis service that does
// the actual parsing, preprocessing, frequency counting and LDA fitting.
package analysisapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the hosted analysis service.
	DefaultBaseURL = "https://analysis-app-ruud.onrender.com/api"

	// SessionCookie carries the analysis session between calls.
	SessionCookie = "analysis_session_id"
)

// ErrNoSession is returned by calls that need an analysis session before
// a file has been uploaded.
var ErrNoSession = errors.New("analysisapi: no analysis session, upload a file first")

// Session is the analysis-side session. The client reads ID when building
// a request and replaces it when the service sets a new cookie.
type Session struct {
	ID string
}

// APIError is a non-2xx answer from the analysis service.
type APIError struct {
	Status   int
	Endpoint string
	Message  string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("analysis-service %s returned %d: %s", e.Endpoint, e.Status, e.Message)
	}
	return fmt.Sprintf("analysis-service %s returned %d", e.Endpoint, e.Status)
}

// Client calls the analysis service over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// WithTimeout sets the per-request timeout of the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

func NewClient(baseURL string, opts ...Option) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Upload calls POST /upload with the spreadsheet as the "file" field.
func (c *Client) Upload(ctx context.Context, sess *Session, filename string, body io.Reader) (*UploadResponse, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("analysis-service /upload: %w", err)
	}
	if _, err := io.Copy(part, body); err != nil {
		return nil, fmt.Errorf("analysis-service /upload: read file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("analysis-service /upload: %w", err)
	}

	var result UploadResponse
	if err := c.do(ctx, sess, "/upload", mw.FormDataContentType(), &buf, &result); err != nil {
		return nil, err
	}
	if sess != nil && sess.ID == "" && result.SessionID != "" {
		sess.ID = result.SessionID
	}
	return &result, nil
}

// Process calls POST /process, which tokenizes and filters one column.
func (c *Client) Process(ctx context.Context, sess *Session, req ProcessRequest) (*ProcessResponse, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	body, contentType, err := formBody([][2]string{
		{"column_name", req.ColumnName},
		{"language", req.Language},
		{"analyzer", req.Analyzer},
		{"pos_tags", req.POSTags},
		{"min_word_length", strconv.Itoa(req.MinWordLength)},
	})
	if err != nil {
		return nil, fmt.Errorf("analysis-service /process: %w", err)
	}

	var result ProcessResponse
	if err := c.do(ctx, sess, "/process", contentType, body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// AnalyzeWordFrequency calls POST /analyse/analyze.
func (c *Client) AnalyzeWordFrequency(ctx context.Context, sess *Session, req WordFrequencyRequest) (*WordFrequencyResponse, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	fields := [][2]string{
		{"column_name", req.ColumnName},
		{"cloud_shape", req.CloudShape},
		{"selection_type", req.SelectionMethod},
		{"cloud_color", req.CloudColor},
		{"max_words", strconv.Itoa(req.MaxWords)},
	}
	if len(req.SelectedWords) > 0 {
		fields = append(fields, [2]string{"selected_words", strings.Join(req.SelectedWords, ",")})
	}
	body, contentType, err := formBody(fields)
	if err != nil {
		return nil, fmt.Errorf("analysis-service /analyse/analyze: %w", err)
	}

	var result WordFrequencyResponse
	if err := c.do(ctx, sess, "/analyse/analyze", contentType, body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ProcessLDA calls POST /analyse/process.
func (c *Client) ProcessLDA(ctx context.Context, sess *Session, req LDARequest) (*LDAResponse, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("analysis-service /analyse/process: encode: %w", err)
	}

	var result LDAResponse
	if err := c.do(ctx, sess, "/analyse/process", "application/json", bytes.NewReader(body), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// EditKeywords calls POST /analyse/edit_keywords. The answer only carries
// the fields that changed; merge it into the previous result.
func (c *Client) EditKeywords(ctx context.Context, sess *Session, req EditKeywordsRequest) (*LDAResponse, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	if req.EditedWords == nil {
		req.EditedWords = []EditedWord{}
	}
	if req.RemovedWords == nil {
		req.RemovedWords = []string{}
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("analysis-service /analyse/edit_keywords: encode: %w", err)
	}

	var result LDAResponse
	if err := c.do(ctx, sess, "/analyse/edit_keywords", "application/json", bytes.NewReader(body), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Fetch downloads a file the service produced. ref may be absolute or
// relative to the service origin. The caller closes the body.
func (c *Client) Fetch(ctx context.Context, sess *Session, ref string) (io.ReadCloser, string, error) {
	target := c.ResolveURL(ref)
	if target == "" {
		return nil, "", fmt.Errorf("analysis-service fetch: empty file reference")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, "", fmt.Errorf("analysis-service fetch: %w", err)
	}
	attachSession(req, sess)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("analysis-service fetch %s: %w", ref, err)
	}
	if err := checkResp(resp, ref); err != nil {
		resp.Body.Close()
		return nil, "", err
	}
	captureSession(resp, sess)
	return resp.Body, resp.Header.Get("Content-Type"), nil
}

// ResolveURL turns a file reference from a response into an absolute URL.
// Relative references are joined to the service origin, and plain http
// links are upgraded when the service itself is served over https.
func (c *Client) ResolveURL(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	base, err := url.Parse(c.baseURL)
	if err != nil {
		return ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	if u.IsAbs() {
		if base.Scheme == "https" && strings.EqualFold(u.Scheme, "http") {
			u.Scheme = "https"
		}
		return u.String()
	}
	origin := &url.URL{Scheme: base.Scheme, Host: base.Host}
	return origin.ResolveReference(u).String()
}

func (c *Client) do(ctx context.Context, sess *Session, path, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("analysis-service %s: %w", path, err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	attachSession(req, sess)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("analysis-service %s: %w", path, err)
	}
	defer resp.Body.Close()

	if err := checkResp(resp, path); err != nil {
		return err
	}
	captureSession(resp, sess)
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("analysis-service %s: decode: %w", path, err)
	}
	return nil
}

// checkResp returns an *APIError when the status is not 2xx. The message is
// taken from a JSON error field when there is one, otherwise the raw body.
func checkResp(resp *http.Response, path string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	return &APIError{
		Status:   resp.StatusCode,
		Endpoint: path,
		Message:  errorMessage(body),
	}
}

func errorMessage(body []byte) string {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err == nil {
		for _, key := range []string{"error", "detail", "message"} {
			if s, ok := payload[key].(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
	}
	return strings.TrimSpace(string(body))
}

func formBody(fields [][2]string) (io.Reader, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range fields {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return nil, "", err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.FormDataContentType(), nil
}

func requireSession(sess *Session) error {
	if sess == nil || sess.ID == "" {
		return ErrNoSession
	}
	return nil
}

func attachSession(req *http.Request, sess *Session) {
	if sess != nil && sess.ID != "" {
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: sess.ID})
	}
}

func captureSession(resp *http.Response, sess *Session) {
	if sess == nil {
		return
	}
	for _, ck := range resp.Cookies() {
		if ck.Name == SessionCookie && ck.Value != "" {
			sess.ID = ck.Value
		}
	}
}
