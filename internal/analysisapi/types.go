package analysisapi

// UploadResponse is returned by POST /upload.
type UploadResponse struct {
	Columns   []string `json:"columns"`
	Filename  string   `json:"filename"`
	SessionID string   `json:"session_id"`
}

// ProcessRequest holds the multipart fields for POST /process.
type ProcessRequest struct {
	ColumnName    string
	Language      string
	Analyzer      string
	POSTags       string
	MinWordLength int
}

// ProcessResponse is returned by POST /process.
type ProcessResponse struct {
	DownloadURL string `json:"download_url"`
}

// WordFrequencyRequest holds the multipart fields for POST /analyse/analyze.
type WordFrequencyRequest struct {
	ColumnName      string
	CloudShape      string
	SelectionMethod string
	CloudColor      string
	MaxWords        int
	SelectedWords   []string
}

// WordCount is a single entry of a frequency table.
type WordCount struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// WordFrequencyResponse is returned by POST /analyse/analyze.
//
// The word cloud arrives either as a base64 PNG or as a URL to a rendered file.
type WordFrequencyResponse struct {
	WordCloud      string      `json:"wordcloud,omitempty"`
	WordCloudURL   string      `json:"wordcloud_url,omitempty"`
	Frequencies    []WordCount `json:"frequencies,omitempty"`
	CSVDownloadURL string      `json:"csv_download_url,omitempty"`
}

// LDARequest is the JSON body for POST /analyse/process.
type LDARequest struct {
	TextColumn   string `json:"text_column"`
	MinTopic     int    `json:"min_topic"`
	MaxTopic     int    `json:"max_topic"`
	NoBelow      int    `json:"no_below"`
	NoAbove      int    `json:"no_above"`
	ChartStyle   string `json:"chart_style"`
	NetworkStyle string `json:"network_style"`
}

// TopicItem is one topic as reported by the LDA model.
// Words has the form `0.033*"keyword1" + 0.031*"keyword2"`.
type TopicItem struct {
	ID    int    `json:"id"`
	Words string `json:"words"`
}

// TopicImage points at a rendered per-topic chart.
type TopicImage struct {
	ID   int    `json:"id"`
	Path string `json:"path"`
	URL  string `json:"url"`
}

// LDAResponse is returned by POST /analyse/process and, partially, by
// POST /analyse/edit_keywords.
type LDAResponse struct {
	OptimalTopicNum int          `json:"optimal_topic_num"`
	CoherencePlot   string       `json:"coherence_plot,omitempty"`
	PerplexityPlot  string       `json:"perplexity_plot,omitempty"`
	Topics          []TopicItem  `json:"topics"`
	TopicImages     []TopicImage `json:"topic_images,omitempty"`
	PyLDAvisHTML    string       `json:"pyldavis_html,omitempty"`
	CSVDownloadURL  string       `json:"csv_download_url,omitempty"`
	CSVPath         string       `json:"csv_path,omitempty"`
	NetworkImgPath  string       `json:"network_img_path,omitempty"`
	NetworkImgURL   string       `json:"network_img_url,omitempty"`
	NetworkStyle    string       `json:"network_style,omitempty"`
}

// Merge applies a partial response on top of r. Non-zero scalar fields
// replace, topics replace by ID with unseen IDs appended, and topic images
// replace wholesale when present.
func (r *LDAResponse) Merge(patch LDAResponse) {
	if patch.OptimalTopicNum != 0 {
		r.OptimalTopicNum = patch.OptimalTopicNum
	}
	mergeString(&r.CoherencePlot, patch.CoherencePlot)
	mergeString(&r.PerplexityPlot, patch.PerplexityPlot)
	mergeString(&r.PyLDAvisHTML, patch.PyLDAvisHTML)
	mergeString(&r.CSVDownloadURL, patch.CSVDownloadURL)
	mergeString(&r.CSVPath, patch.CSVPath)
	mergeString(&r.NetworkImgPath, patch.NetworkImgPath)
	mergeString(&r.NetworkImgURL, patch.NetworkImgURL)
	mergeString(&r.NetworkStyle, patch.NetworkStyle)

	if len(patch.TopicImages) > 0 {
		r.TopicImages = append([]TopicImage(nil), patch.TopicImages...)
	}
	for _, t := range patch.Topics {
		replaced := false
		for i := range r.Topics {
			if r.Topics[i].ID == t.ID {
				r.Topics[i] = t
				replaced = true
				break
			}
		}
		if !replaced {
			r.Topics = append(r.Topics, t)
		}
	}
}

func mergeString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// EditedWord renames one keyword of a topic.
type EditedWord struct {
	Original string `json:"original"`
	Edited   string `json:"edited"`
}

// EditKeywordsRequest is the JSON body for POST /analyse/edit_keywords.
type EditKeywordsRequest struct {
	TopicID      int          `json:"topic_id"`
	EditedWords  []EditedWord `json:"edited_words"`
	RemovedWords []string     `json:"removed_words"`
}
