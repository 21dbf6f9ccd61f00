package workflow

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ayush/text-analysis/web/internal/analysisapi"
)

// ErrInvalidSettings wraps every form validation failure.
var ErrInvalidSettings = errors.New("invalid settings")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidSettings, fmt.Sprintf(format, args...))
}

// PreprocessSettings is the preprocessing form.
type PreprocessSettings struct {
	Column        string `json:"column"`
	Language      string `json:"language"`
	Analyzer      string `json:"analyzer"`
	POSTag        string `json:"pos_tag"`
	MinWordLength int    `json:"min_word_length"`
	FileName      string `json:"file_name"`
}

// DefaultPreprocessSettings prefills the form for a dataset.
func DefaultPreprocessSettings(filename string) PreprocessSettings {
	l := languages[0]
	return PreprocessSettings{
		Language: l.Key,
		Analyzer: l.Analyzers[0].Value,
		POSTag:   l.POSTags[0].Value,
		FileName: DefaultFileName(filename),
	}
}

// Normalize fills empty analyzer and tag fields with the language defaults
// and checks every field. columns are the columns the user selected.
func (s *PreprocessSettings) Normalize(columns []string) error {
	s.Column = strings.TrimSpace(s.Column)
	if s.Column == "" {
		return invalid("column is required")
	}
	if !contains(columns, s.Column) {
		return invalid("column %q was not selected", s.Column)
	}
	if s.Language == "" {
		s.Language = languages[0].Key
	}
	lang, ok := LookupLanguage(s.Language)
	if !ok {
		return invalid("unsupported language %q", s.Language)
	}
	s.Language = lang.Key
	if s.Analyzer == "" {
		s.Analyzer = lang.Analyzers[0].Value
	}
	if !hasOption(lang.Analyzers, s.Analyzer) {
		return invalid("analyzer %q does not support %s", s.Analyzer, lang.Key)
	}
	if s.POSTag == "" {
		s.POSTag = lang.POSTags[0].Value
	}
	if !hasOption(lang.POSTags, s.POSTag) {
		return invalid("part-of-speech tag %q does not apply to %s", s.POSTag, lang.Key)
	}
	if s.MinWordLength < MinWordLength || s.MinWordLength > MaxWordLength {
		return invalid("word length must be between %d and %d", MinWordLength, MaxWordLength)
	}
	if strings.TrimSpace(s.FileName) == "" {
		return invalid("file name is required")
	}
	return nil
}

// Request maps the settings onto the /process call.
func (s PreprocessSettings) Request() analysisapi.ProcessRequest {
	return analysisapi.ProcessRequest{
		ColumnName:    s.Column,
		Language:      s.Language,
		Analyzer:      s.Analyzer,
		POSTags:       s.POSTag,
		MinWordLength: s.MinWordLength,
	}
}

const (
	DefaultMaxWords = 50
	MaxMaxWords     = 200
)

// WordFrequencySettings is the word frequency form.
type WordFrequencySettings struct {
	Column          string   `json:"column"`
	CloudShape      string   `json:"cloud_shape"`
	SelectionMethod string   `json:"selection_method"`
	CloudColor      string   `json:"cloud_color"`
	MaxWords        int      `json:"max_words"`
	EditWord        string   `json:"edit_word"`
	SelectedWords   []string `json:"selected_words,omitempty"`
}

// DefaultWordFrequencySettings prefills the form.
func DefaultWordFrequencySettings() WordFrequencySettings {
	return WordFrequencySettings{
		CloudShape:      CloudShapes[0].Value,
		SelectionMethod: SelectionMethods[0].Value,
		CloudColor:      CloudColors[0].Value,
		MaxWords:        DefaultMaxWords,
		EditWord:        EditWordOptions[0].Value,
	}
}

// Normalize applies defaults and checks every field against the dataset
// columns.
func (s *WordFrequencySettings) Normalize(columns []string) error {
	d := DefaultWordFrequencySettings()
	s.Column = strings.TrimSpace(s.Column)
	if s.Column == "" {
		return invalid("column is required")
	}
	if !contains(columns, s.Column) {
		return invalid("unknown column %q", s.Column)
	}
	defaultString(&s.CloudShape, d.CloudShape)
	defaultString(&s.SelectionMethod, d.SelectionMethod)
	defaultString(&s.CloudColor, d.CloudColor)
	defaultString(&s.EditWord, d.EditWord)
	if s.MaxWords == 0 {
		s.MaxWords = d.MaxWords
	}
	switch {
	case !hasOption(CloudShapes, s.CloudShape):
		return invalid("unknown word cloud format %q", s.CloudShape)
	case !hasOption(SelectionMethods, s.SelectionMethod):
		return invalid("unknown selection method %q", s.SelectionMethod)
	case !hasOption(CloudColors, s.CloudColor):
		return invalid("unknown word cloud colors %q", s.CloudColor)
	case !hasOption(EditWordOptions, s.EditWord):
		return invalid("unknown edit option %q", s.EditWord)
	case s.MaxWords < 1 || s.MaxWords > MaxMaxWords:
		return invalid("maximum words must be between 1 and %d", MaxMaxWords)
	}
	s.SelectedWords = cleanList(s.SelectedWords)
	if s.SelectionMethod == "manual" && len(s.SelectedWords) == 0 {
		return invalid("manual selection needs at least one word")
	}
	if s.SelectionMethod != "manual" {
		s.SelectedWords = nil
	}
	return nil
}

// Request maps the settings onto the /analyse/analyze call.
func (s WordFrequencySettings) Request() analysisapi.WordFrequencyRequest {
	return analysisapi.WordFrequencyRequest{
		ColumnName:      s.Column,
		CloudShape:      s.CloudShape,
		SelectionMethod: s.SelectionMethod,
		CloudColor:      s.CloudColor,
		MaxWords:        s.MaxWords,
		SelectedWords:   s.SelectedWords,
	}
}

// LDASettings is the topic modeling form.
type LDASettings struct {
	Column       string `json:"column"`
	MinTopics    int    `json:"min_topics"`
	MaxTopics    int    `json:"max_topics"`
	NoBelow      int    `json:"no_below"`
	NoAbove      int    `json:"no_above"`
	ChartStyle   string `json:"chart_style"`
	NetworkStyle string `json:"network_style"`
}

// DefaultLDASettings prefills the form.
func DefaultLDASettings() LDASettings {
	return LDASettings{
		MinTopics:    20,
		MaxTopics:    50,
		NoBelow:      10,
		NoAbove:      48,
		ChartStyle:   ChartStyles[0].Value,
		NetworkStyle: NetworkStyles[0].Value,
	}
}

// Normalize applies defaults and checks every field.
func (s *LDASettings) Normalize(columns []string) error {
	d := DefaultLDASettings()
	s.Column = strings.TrimSpace(s.Column)
	if s.Column == "" {
		return invalid("column is required")
	}
	if !contains(columns, s.Column) {
		return invalid("unknown column %q", s.Column)
	}
	defaultString(&s.ChartStyle, d.ChartStyle)
	defaultString(&s.NetworkStyle, d.NetworkStyle)
	switch {
	case s.MinTopics < 1:
		return invalid("minimum number of topics must be at least 1")
	case s.MaxTopics < s.MinTopics:
		return invalid("maximum number of topics must be at least %d", s.MinTopics)
	case s.NoBelow < 1:
		return invalid("minimum document frequency must be at least 1")
	case s.NoAbove < 1:
		return invalid("maximum document frequency must be at least 1")
	case !hasOption(ChartStyles, s.ChartStyle):
		return invalid("unknown chart style %q", s.ChartStyle)
	case !hasOption(NetworkStyles, s.NetworkStyle):
		return invalid("unknown visualization style %q", s.NetworkStyle)
	}
	return nil
}

// Request maps the settings onto the /analyse/process call.
func (s LDASettings) Request() analysisapi.LDARequest {
	return analysisapi.LDARequest{
		TextColumn:   s.Column,
		MinTopic:     s.MinTopics,
		MaxTopic:     s.MaxTopics,
		NoBelow:      s.NoBelow,
		NoAbove:      s.NoAbove,
		ChartStyle:   s.ChartStyle,
		NetworkStyle: s.NetworkStyle,
	}
}

// ParseInt reads an optional integer form value; blank is zero.
func ParseInt(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, invalid("%q is not a whole number", raw)
	}
	return n, nil
}

func defaultString(dst *string, v string) {
	if strings.TrimSpace(*dst) == "" {
		*dst = v
	}
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func cleanList(in []string) []string {
	var out []string
	seen := make(map[string]bool, len(in))
	for _, raw := range in {
		for _, w := range strings.Split(raw, ",") {
			w = strings.TrimSpace(w)
			if w == "" || seen[w] {
				continue
			}
			seen[w] = true
			out = append(out, w)
		}
	}
	return out
}
