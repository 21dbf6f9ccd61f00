package topics

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ayush/text-analysis/web/internal/analysisapi"
)

var (
	ErrUnknownKeyword   = errors.New("keyword is not part of this topic")
	ErrEmptyKeyword     = errors.New("keyword text is empty")
	ErrDuplicateKeyword = errors.New("keyword already exists in this topic")
	ErrNothingPending   = errors.New("no pending keyword changes")
)

// Pending holds staged keyword changes for one topic, keyed by keyword ID.
// Nothing reaches the analysis service until Request is sent.
type Pending struct {
	Edits   map[string]string `json:"edits,omitempty"`
	Removed map[string]bool   `json:"removed,omitempty"`
}

// Empty reports whether nothing is staged.
func (p *Pending) Empty() bool {
	return p == nil || (len(p.Edits) == 0 && len(p.Removed) == 0)
}

// StageEdit renames a keyword. Renaming to the current text clears the edit.
func (p *Pending) StageEdit(keywords []Keyword, id, text string) error {
	kw, ok := lookup(keywords, id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownKeyword, id)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyKeyword
	}
	if text == kw.Text {
		delete(p.Edits, id)
		return nil
	}
	for _, other := range keywords {
		if other.ID == id || p.Removed[other.ID] {
			continue
		}
		if p.current(other) == text {
			return fmt.Errorf("%w: %q", ErrDuplicateKeyword, text)
		}
	}
	if p.Edits == nil {
		p.Edits = make(map[string]string)
	}
	delete(p.Removed, id)
	p.Edits[id] = text
	return nil
}

// StageRemove marks a keyword for deletion, dropping any staged edit.
func (p *Pending) StageRemove(keywords []Keyword, id string) error {
	if _, ok := lookup(keywords, id); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownKeyword, id)
	}
	if p.Removed == nil {
		p.Removed = make(map[string]bool)
	}
	delete(p.Edits, id)
	p.Removed[id] = true
	return nil
}

// Restore drops whatever is staged for one keyword.
func (p *Pending) Restore(id string) {
	delete(p.Edits, id)
	delete(p.Removed, id)
}

// Discard drops everything staged.
func (p *Pending) Discard() {
	p.Edits = nil
	p.Removed = nil
}

// Request builds the edit_keywords call in keyword order. Staged changes
// for keywords no longer in the topic are ignored.
func (p *Pending) Request(topicID int, keywords []Keyword) (analysisapi.EditKeywordsRequest, error) {
	req := analysisapi.EditKeywordsRequest{
		TopicID:      topicID,
		EditedWords:  []analysisapi.EditedWord{},
		RemovedWords: []string{},
	}
	if p == nil {
		return req, ErrNothingPending
	}
	for _, kw := range keywords {
		if p.Removed[kw.ID] {
			req.RemovedWords = append(req.RemovedWords, kw.Text)
			continue
		}
		if text, ok := p.Edits[kw.ID]; ok {
			req.EditedWords = append(req.EditedWords, analysisapi.EditedWord{Original: kw.Text, Edited: text})
		}
	}
	if len(req.EditedWords) == 0 && len(req.RemovedWords) == 0 {
		return req, ErrNothingPending
	}
	return req, nil
}

// Row is one line of the keyword editor table.
type Row struct {
	SerialNo string
	ID       string
	Text     string
	Weight   string
	Edited   string
	Removed  bool
}

// Rows overlays staged changes on the keywords for display.
func (p *Pending) Rows(keywords []Keyword) []Row {
	rows := make([]Row, 0, len(keywords))
	for i, kw := range keywords {
		row := Row{
			SerialNo: fmt.Sprintf("%02d", i+1),
			ID:       kw.ID,
			Text:     kw.Text,
			Weight:   fmt.Sprintf("%.4f", kw.Weight),
		}
		if p != nil {
			row.Edited = p.Edits[kw.ID]
			row.Removed = p.Removed[kw.ID]
		}
		rows = append(rows, row)
	}
	return rows
}

// LiveCount is the number of keywords left once staged removals apply.
func (p *Pending) LiveCount(keywords []Keyword) int {
	n := 0
	for _, kw := range keywords {
		if p == nil || !p.Removed[kw.ID] {
			n++
		}
	}
	return n
}

func (p *Pending) current(kw Keyword) string {
	if text, ok := p.Edits[kw.ID]; ok {
		return text
	}
	return kw.Text
}

func lookup(keywords []Keyword, id string) (Keyword, bool) {
	for _, kw := range keywords {
		if kw.ID == id {
			return kw, true
		}
	}
	return Keyword{}, false
}
