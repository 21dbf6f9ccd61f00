package workflow

import (
	"path"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Option is one choice of a select field.
type Option struct {
	Value string
	Label string
}

// Language is a preprocessing language with its morphological analyzers and
// part-of-speech filters. Key is the value the analysis service expects.
type Language struct {
	Key       string
	Tag       language.Tag
	Analyzers []Option
	POSTags   []Option
}

// Label renders the language the way the form shows it, e.g.
// "한국어 (Korean)".
func (l Language) Label() string {
	return display.Self.Name(l.Tag) + " (" + display.English.Languages().Name(l.Tag) + ")"
}

var languages = []Language{
	{
		Key: "korean",
		Tag: language.Korean,
		Analyzers: []Option{
			{"hannanum", "한나눔 (Hannanum)"},
			{"kkma", "꼬꼬마 (Kkma)"},
			{"komoran", "코모란 (Komoran)"},
			{"okt", "Open Korean Text (Okt)"},
		},
		POSTags: []Option{
			{"Noun", "명사 (Noun)"},
			{"Verb", "동사 (Verb)"},
			{"Adjective", "형용사 (Adjective)"},
			{"Adverb", "부사 (Adverb)"},
		},
	},
	{
		Key: "english",
		Tag: language.English,
		Analyzers: []Option{
			{"spacy", "spaCy"},
		},
		POSTags: []Option{
			{"Noun", "명사 (Noun)"},
			{"JJ", "형용사 (JJ)"},
			{"VB", "동사(원형) (VB)"},
		},
	},
}

// Languages lists the preprocessing languages, default first.
func Languages() []Language {
	return languages
}

// LookupLanguage finds a language by key.
func LookupLanguage(key string) (Language, bool) {
	key = strings.ToLower(strings.TrimSpace(key))
	for _, l := range languages {
		if l.Key == key {
			return l, true
		}
	}
	return Language{}, false
}

const (
	MinWordLength = 2
	MaxWordLength = 12
)

// WordLengths lists the selectable minimum word lengths.
func WordLengths() []string {
	out := make([]string, 0, MaxWordLength-MinWordLength+1)
	for n := MinWordLength; n <= MaxWordLength; n++ {
		out = append(out, strconv.Itoa(n))
	}
	return out
}

// DefaultFileName is the upload name up to its first dot.
func DefaultFileName(filename string) string {
	base := path.Base(strings.ReplaceAll(filename, `\`, "/"))
	if base == "." || base == "/" {
		return ""
	}
	name, _, _ := strings.Cut(base, ".")
	return name
}

var (
	CloudShapes = []Option{
		{"oblong", "Oblong"},
		{"square", "Square"},
	}
	SelectionMethods = []Option{
		{"top_n", "Automatically Select Top N words"},
		{"manual", "Manual Selection"},
	}
	CloudColors = []Option{
		{"blue-purple", "Blue-Purple"},
		{"red-yellow", "Red-Yellow"},
		{"green-orange", "Green-Orange"},
	}
	EditWordOptions = []Option{
		{"edit", "Edit or delete keywords"},
		{"none", "None"},
	}
	ChartStyles = []Option{
		{"basic", "Basic Style"},
	}
	NetworkStyles = []Option{
		{"academic", "Academic (Basic)"},
	}
)

func hasOption(opts []Option, v string) bool {
	for _, o := range opts {
		if o.Value == v {
			return true
		}
	}
	return false
}
