package analysis

import (
	"fmt"
	"strings"
	"time"

	"github.com/ayush/text-analysis/web/internal/models"
	"github.com/ayush/text-analysis/web/internal/topics"
	"github.com/ayush/text-analysis/web/internal/web/render"
	"github.com/ayush/text-analysis/web/internal/workflow"
)

var navSteps = []struct {
	step workflow.Step
	key  string
}{
	{workflow.StepUpload, "nav.upload"},
	{workflow.StepColumns, "nav.columns"},
	{workflow.StepPreprocess, "nav.preprocessing"},
	{workflow.StepAnalysis, "nav.analysis"},
	{workflow.StepLDA, "nav.lda"},
}

func navItems(st *workflow.State, active workflow.Step) []render.NavItem {
	reached := st.Reached()
	items := make([]render.NavItem, 0, len(navSteps))
	for _, s := range navSteps {
		items = append(items, render.NavItem{
			Key:    s.key,
			Path:   s.step.Path(),
			Active: s.step == active,
			Locked: s.step > reached,
			Done:   stepDone(st, s.step),
		})
	}
	return items
}

func stepDone(st *workflow.State, step workflow.Step) bool {
	switch step {
	case workflow.StepUpload:
		return st.Dataset != nil
	case workflow.StepColumns:
		return len(st.SelectedColumns) > 0
	case workflow.StepPreprocess:
		return st.Preprocess != nil
	case workflow.StepAnalysis:
		return st.WordFrequency != nil
	case workflow.StepLDA:
		return st.LDA != nil
	}
	return false
}

type errorView struct {
	Status     int
	MessageKey string
}

type uploadView struct {
	MaxMB   string
	Dataset *workflow.Dataset
	Recent  []models.DatasetRecord
}

type columnChoice struct {
	Name     string
	Selected bool
}

type columnsView struct {
	Filename string
	Columns  []columnChoice
}

// CanContinue reports whether at least one column is checked.
func (v columnsView) CanContinue() bool {
	for _, c := range v.Columns {
		if c.Selected {
			return true
		}
	}
	return false
}

type languageChoice struct {
	Key   string
	Label string
}

type preprocessView struct {
	Columns     []string
	Settings    workflow.PreprocessSettings
	Languages   []languageChoice
	Analyzers   []workflow.Option
	POSTags     []workflow.Option
	WordLengths []string
	MinLength   string
	Result      *workflow.PreprocessResult
}

func newPreprocessView(st *workflow.State, s workflow.PreprocessSettings) preprocessView {
	v := preprocessView{
		Columns:     st.SelectedColumns,
		Settings:    s,
		WordLengths: workflow.WordLengths(),
		MinLength:   fmt.Sprint(s.MinWordLength),
		Result:      st.Preprocess,
	}
	if s.MinWordLength == 0 {
		v.MinLength = fmt.Sprint(workflow.MinWordLength)
	}
	for _, l := range workflow.Languages() {
		v.Languages = append(v.Languages, languageChoice{Key: l.Key, Label: l.Label()})
	}
	if lang, ok := workflow.LookupLanguage(s.Language); ok {
		v.Analyzers = lang.Analyzers
		v.POSTags = lang.POSTags
	}
	return v
}

type wordFrequencyView struct {
	Columns          []string
	Settings         workflow.WordFrequencySettings
	SelectedWords    string
	CloudShapes      []workflow.Option
	SelectionMethods []workflow.Option
	CloudColors      []workflow.Option
	EditWordOptions  []workflow.Option
	MaxMaxWords      int
	Result           *workflow.WordFrequencyResult
	CloudData        string
	CloudURL         string
	CSVURL           string
	ShowEditLink     bool
}

func (h *Handler) newWordFrequencyView(st *workflow.State) wordFrequencyView {
	s := workflow.DefaultWordFrequencySettings()
	if st.WordFrequency != nil {
		s = st.WordFrequency.Settings
	}
	if s.Column == "" && st.Preprocess != nil {
		s.Column = st.Preprocess.Settings.Column
	}
	v := wordFrequencyView{
		Columns:          st.SelectedColumns,
		Settings:         s,
		SelectedWords:    strings.Join(s.SelectedWords, ", "),
		CloudShapes:      workflow.CloudShapes,
		SelectionMethods: workflow.SelectionMethods,
		CloudColors:      workflow.CloudColors,
		EditWordOptions:  workflow.EditWordOptions,
		MaxMaxWords:      workflow.MaxMaxWords,
		Result:           st.WordFrequency,
	}
	if res := st.WordFrequency; res != nil {
		v.CloudData = res.Response.WordCloud
		if res.Response.WordCloudURL != "" {
			v.CloudURL = h.api.ResolveURL(res.Response.WordCloudURL)
		}
		if res.Response.CSVDownloadURL != "" {
			v.CSVURL = h.api.ResolveURL(res.Response.CSVDownloadURL)
		}
		v.ShowEditLink = res.Settings.EditWord == "edit" && st.LDA != nil
	}
	return v
}

type tabItem struct {
	Key    string
	Href   string
	Active bool
}

type topicView struct {
	ID       int
	Keywords []topics.Keyword
	EditHref string
}

type chartView struct {
	ID  int
	URL string
}

type cloudView struct {
	ID    int
	Terms []topics.CloudTerm
}

type topicOption struct {
	ID       int
	Selected bool
}

type editorView struct {
	Topics    []topicOption
	TopicID   int
	HasTopic  bool
	Rows      []topics.Row
	Pending   int
	LiveCount int
	Total     int
}

type interactiveView struct {
	Available bool
	Topic     int
	HasTopic  bool
	Prev      int
	Next      int
	HasPrev   bool
	HasNext   bool
}

type ldaView struct {
	Columns        []string
	Settings       workflow.LDASettings
	ChartStyles    []workflow.Option
	NetworkStyles  []workflow.Option
	HasResult      bool
	Tab            string
	Tabs           []tabItem
	Optimal        int
	TopicCount     int
	PerplexityPlot string
	CoherencePlot  string
	Topics         []topicView
	Charts         []chartView
	NetworkURL     string
	Clouds         []cloudView
	Editor         editorView
	Interactive    interactiveView
	CSVURL         string
}

func (h *Handler) newLDAView(st *workflow.State, tab string, selected int) ldaView {
	s := workflow.DefaultLDASettings()
	if st.LDA != nil {
		s = st.LDA.Settings
	}
	if s.Column == "" && st.Preprocess != nil {
		s.Column = st.Preprocess.Settings.Column
	}
	v := ldaView{
		Columns:       st.SelectedColumns,
		Settings:      s,
		ChartStyles:   workflow.ChartStyles,
		NetworkStyles: workflow.NetworkStyles,
		Tab:           tab,
	}
	if st.LDA == nil {
		return v
	}
	v.HasResult = true
	resp := st.LDA.Response
	parsed := st.Topics()
	_, hasTopic := topics.Find(parsed, selected)
	for _, t := range ldaTabs {
		href := ldaURL(t)
		if hasTopic || selected == noTopic {
			href = ldaURL(t, selected)
		}
		v.Tabs = append(v.Tabs, tabItem{Key: t, Href: href, Active: t == tab})
	}

	v.Optimal = resp.OptimalTopicNum
	v.TopicCount = len(parsed)
	v.PerplexityPlot = resp.PerplexityPlot
	v.CoherencePlot = resp.CoherencePlot
	if resp.CSVDownloadURL != "" {
		v.CSVURL = h.api.ResolveURL(resp.CSVDownloadURL)
	}
	if ref := firstNonEmpty(resp.NetworkImgURL, resp.NetworkImgPath); ref != "" {
		v.NetworkURL = h.api.ResolveURL(ref)
	}
	for _, img := range resp.TopicImages {
		ref := firstNonEmpty(img.URL, img.Path)
		c := chartView{ID: img.ID}
		if ref != "" {
			c.URL = h.api.ResolveURL(ref)
		}
		v.Charts = append(v.Charts, c)
	}
	for _, t := range parsed {
		v.Topics = append(v.Topics, topicView{ID: t.ID, Keywords: t.Keywords, EditHref: ldaURL("editor", t.ID)})
		v.Clouds = append(v.Clouds, cloudView{ID: t.ID, Terms: topics.Cloud(t.Keywords)})
	}

	v.Editor = newEditorView(st, parsed, selected)
	v.Interactive = newInteractiveView(parsed, selected, resp.PyLDAvisHTML != "")
	return v
}

func newEditorView(st *workflow.State, parsed []topics.Topic, selected int) editorView {
	var v editorView
	for _, t := range parsed {
		v.Topics = append(v.Topics, topicOption{ID: t.ID, Selected: t.ID == selected})
	}
	topic, ok := topics.Find(parsed, selected)
	if !ok {
		return v
	}
	p := st.Pending[topic.ID]
	v.HasTopic = true
	v.TopicID = topic.ID
	v.Rows = p.Rows(topic.Keywords)
	v.Total = len(topic.Keywords)
	v.LiveCount = p.LiveCount(topic.Keywords)
	if p != nil {
		v.Pending = len(p.Edits) + len(p.Removed)
	}
	return v
}

func newInteractiveView(parsed []topics.Topic, selected int, available bool) interactiveView {
	v := interactiveView{Available: available}
	for i, t := range parsed {
		if t.ID != selected {
			continue
		}
		v.Topic = t.ID
		v.HasTopic = true
		if i > 0 {
			v.Prev, v.HasPrev = parsed[i-1].ID, true
		}
		if i < len(parsed)-1 {
			v.Next, v.HasNext = parsed[i+1].ID, true
		}
	}
	if !v.HasTopic && len(parsed) > 0 {
		v.Next, v.HasNext = parsed[0].ID, true
	}
	return v
}

type runView struct {
	ID            string
	Kind          string
	Dataset       string
	Column        string
	OptimalTopics int
	TopicCount    int
	Params        []paramView
	CreatedAt     time.Time
}

type paramView struct {
	Name  string
	Value string
}

func newRunView(run models.Run) runView {
	v := runView{
		ID:            run.ID.Hex(),
		Kind:          string(run.Kind),
		Dataset:       run.Dataset,
		Column:        run.Column,
		OptimalTopics: run.OptimalTopics,
		TopicCount:    run.TopicCount,
		CreatedAt:     run.CreatedAt,
	}
	for _, name := range sortedKeys(run.Params) {
		v.Params = append(v.Params, paramView{Name: name, Value: fmt.Sprint(run.Params[name])})
	}
	return v
}

type historyView struct {
	Datasets    []models.DatasetRecord
	Runs        []runView
	Unavailable bool
}
