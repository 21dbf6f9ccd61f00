// Package workflow holds the per-session progress through the analysis
// steps: upload, column selection, preprocessing, word frequency and LDA.
package workflow

import (
	"errors"
	"fmt"
	"time"

	"github.com/ayush/text-analysis/web/internal/analysisapi"
	"github.com/ayush/text-analysis/web/internal/topics"
)

// Step is one stage of the workflow.
type Step int

const (
	StepUpload Step = iota + 1
	StepColumns
	StepPreprocess
	StepAnalysis
	StepLDA
)

var stepPaths = map[Step]string{
	StepUpload:     "/",
	StepColumns:    "/columns",
	StepPreprocess: "/preprocessing",
	StepAnalysis:   "/analysis",
	StepLDA:        "/lda",
}

var stepNames = map[Step]string{
	StepUpload:     "upload",
	StepColumns:    "select-column",
	StepPreprocess: "preprocessing",
	StepAnalysis:   "word_frequency",
	StepLDA:        "lda",
}

// Path is the page that renders the step.
func (s Step) Path() string {
	if p, ok := stepPaths[s]; ok {
		return p
	}
	return "/"
}

func (s Step) String() string {
	if n, ok := stepNames[s]; ok {
		return n
	}
	return fmt.Sprintf("step(%d)", int(s))
}

// ErrStepLocked is returned when a step is requested before the steps it
// depends on are done.
var ErrStepLocked = errors.New("step is locked")

// LockedError names the step the user has to go back to.
type LockedError struct {
	Want Step
	Need Step
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("%s is locked until %s is done", e.Want, e.Need)
}

func (e *LockedError) Unwrap() error { return ErrStepLocked }

// Dataset is the uploaded spreadsheet.
type Dataset struct {
	ID        string   `json:"id"`
	Filename  string   `json:"filename"`
	Columns   []string `json:"columns"`
	Size      int64    `json:"size"`
	ObjectKey string   `json:"object_key,omitempty"`
}

// PreprocessResult records a successful /process call.
type PreprocessResult struct {
	Settings    PreprocessSettings `json:"settings"`
	DownloadURL string             `json:"download_url,omitempty"`
	ObjectKey   string             `json:"object_key,omitempty"`
	ProcessedAt time.Time          `json:"processed_at"`
}

// WordFrequencyResult records the last word frequency analysis.
type WordFrequencyResult struct {
	RunID    string                            `json:"run_id"`
	Settings WordFrequencySettings             `json:"settings"`
	Response analysisapi.WordFrequencyResponse `json:"response"`
}

// LDAResult records the last topic model and the topic open in the editor.
type LDAResult struct {
	RunID         string                  `json:"run_id"`
	Settings      LDASettings             `json:"settings"`
	Response      analysisapi.LDAResponse `json:"response"`
	SelectedTopic int                     `json:"selected_topic"`
}

// State is everything a browser session has done so far.
type State struct {
	ID               string                  `json:"id"`
	BackendSessionID string                  `json:"backend_session_id,omitempty"`
	Dataset          *Dataset                `json:"dataset,omitempty"`
	SelectedColumns  []string                `json:"selected_columns,omitempty"`
	Preprocess       *PreprocessResult       `json:"preprocess,omitempty"`
	WordFrequency    *WordFrequencyResult    `json:"word_frequency,omitempty"`
	LDA              *LDAResult              `json:"lda,omitempty"`
	Pending          map[int]*topics.Pending `json:"pending,omitempty"`
	UpdatedAt        time.Time               `json:"updated_at"`
}

func New(id string) *State {
	return &State{ID: id, UpdatedAt: time.Now().UTC()}
}

// Reached is the furthest step the session may open.
func (s *State) Reached() Step {
	switch {
	case s.Dataset == nil:
		return StepUpload
	case len(s.SelectedColumns) == 0:
		return StepColumns
	case s.Preprocess == nil:
		return StepPreprocess
	default:
		return StepLDA
	}
}

// Require fails with a *LockedError when step cannot be opened yet.
func (s *State) Require(step Step) error {
	reached := s.Reached()
	if step <= reached {
		return nil
	}
	return &LockedError{Want: step, Need: reached}
}

// Session is the analysis-service session carried by this state.
func (s *State) Session() *analysisapi.Session {
	return &analysisapi.Session{ID: s.BackendSessionID}
}

// AdoptSession stores the analysis session after a call.
func (s *State) AdoptSession(sess *analysisapi.Session) {
	if sess != nil && sess.ID != "" {
		s.BackendSessionID = sess.ID
	}
}

// SetDataset records a new upload and forgets everything derived from the
// previous one.
func (s *State) SetDataset(d Dataset) {
	s.Dataset = &d
	s.SelectedColumns = nil
	s.Preprocess = nil
	s.WordFrequency = nil
	s.LDA = nil
	s.Pending = nil
	s.touch()
}

// Columns are the dataset columns, or nil before an upload.
func (s *State) Columns() []string {
	if s.Dataset == nil {
		return nil
	}
	return s.Dataset.Columns
}

// SetColumns replaces the selected columns. The selection keeps dataset
// order and must not be empty. A preprocessing result for a column that is
// no longer selected is dropped.
func (s *State) SetColumns(cols []string) error {
	if s.Dataset == nil {
		return &LockedError{Want: StepColumns, Need: StepUpload}
	}
	want := make(map[string]bool, len(cols))
	for _, c := range cols {
		if !contains(s.Dataset.Columns, c) {
			return invalid("unknown column %q", c)
		}
		want[c] = true
	}
	var selected []string
	for _, c := range s.Dataset.Columns {
		if want[c] {
			selected = append(selected, c)
		}
	}
	if len(selected) == 0 {
		return invalid("select at least one column")
	}
	s.SelectedColumns = selected
	if s.Preprocess != nil && !contains(selected, s.Preprocess.Settings.Column) {
		s.Preprocess = nil
	}
	s.touch()
	return nil
}

// ToggleColumn adds or removes one column from the selection.
func (s *State) ToggleColumn(col string) error {
	if s.Dataset == nil {
		return &LockedError{Want: StepColumns, Need: StepUpload}
	}
	if !contains(s.Dataset.Columns, col) {
		return invalid("unknown column %q", col)
	}
	next := make([]string, 0, len(s.SelectedColumns)+1)
	found := false
	for _, c := range s.SelectedColumns {
		if c == col {
			found = true
			continue
		}
		next = append(next, c)
	}
	if !found {
		next = append(next, col)
	}
	if len(next) == 0 {
		s.SelectedColumns = nil
		s.Preprocess = nil
		s.touch()
		return nil
	}
	return s.SetColumns(next)
}

// IsSelected reports whether a column is part of the selection.
func (s *State) IsSelected(col string) bool {
	return contains(s.SelectedColumns, col)
}

// SetPreprocess records a successful preprocessing run.
func (s *State) SetPreprocess(r PreprocessResult) {
	s.Preprocess = &r
	s.touch()
}

// SetWordFrequency records a word frequency run.
func (s *State) SetWordFrequency(r WordFrequencyResult) {
	s.WordFrequency = &r
	s.touch()
}

// SetLDA records a fresh topic model. Staged keyword edits belong to the
// old model and are dropped.
func (s *State) SetLDA(r LDAResult) {
	if r.SelectedTopic == 0 && len(r.Response.Topics) > 0 {
		r.SelectedTopic = topics.FromResponse(r.Response)[0].ID
	}
	s.LDA = &r
	s.Pending = nil
	s.touch()
}

// Topics parses the current model's topics.
func (s *State) Topics() []topics.Topic {
	if s.LDA == nil {
		return nil
	}
	return topics.FromResponse(s.LDA.Response)
}

// PendingFor returns the staged edits of a topic, creating them on demand.
func (s *State) PendingFor(topicID int) *topics.Pending {
	if s.Pending == nil {
		s.Pending = make(map[int]*topics.Pending)
	}
	p, ok := s.Pending[topicID]
	if !ok {
		p = &topics.Pending{}
		s.Pending[topicID] = p
	}
	return p
}

// ApplyEdits merges an edit_keywords answer and clears the topic's staged
// changes.
func (s *State) ApplyEdits(topicID int, patch analysisapi.LDAResponse) {
	if s.LDA == nil {
		return
	}
	s.LDA.Response.Merge(patch)
	delete(s.Pending, topicID)
	s.touch()
}

// Reset forgets everything but the session ID.
func (s *State) Reset() {
	*s = State{ID: s.ID}
	s.touch()
}

func (s *State) touch() {
	s.UpdatedAt = time.Now().UTC()
}
