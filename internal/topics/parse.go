// Package topics turns LDA topic strings into keyword lists and stages
// keyword edits until they are applied against the analysis service.
package topics

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/ayush/text-analysis/web/internal/analysisapi"
)

// Keyword is one weighted term of a topic.
type Keyword struct {
	ID     string  `json:"id"`
	Text   string  `json:"text"`
	Weight float64 `json:"weight"`
}

// Topic is a parsed LDA topic.
type Topic struct {
	ID       int
	Name     string
	Keywords []Keyword
	Original string
}

// KeywordID is the stable identifier of the index-th term of a topic.
func KeywordID(topicID, index int) string {
	return fmt.Sprintf("topic%d_kw%d", topicID, index)
}

// ParseKeywords parses `0.033*"keyword1" + 0.031*"keyword2"`. Terms with an
// empty text or an unparsable weight are dropped; IDs keep the position the
// term had before filtering.
func ParseKeywords(topicID int, words string) []Keyword {
	if strings.TrimSpace(words) == "" {
		return []Keyword{}
	}
	parts := strings.Split(words, " + ")
	out := make([]Keyword, 0, len(parts))
	for i, part := range parts {
		weightStr, quoted, _ := strings.Cut(strings.TrimSpace(part), "*")
		weight, err := strconv.ParseFloat(strings.TrimSpace(weightStr), 64)
		if err != nil || math.IsNaN(weight) {
			continue
		}
		text := unquote(quoted)
		if text == "" {
			continue
		}
		out = append(out, Keyword{
			ID:     KeywordID(topicID, i),
			Text:   text,
			Weight: weight,
		})
	}
	return out
}

func unquote(s string) string {
	s = strings.TrimPrefix(s, `"`)
	s = strings.TrimSuffix(s, `"`)
	return strings.ReplaceAll(s, `\"`, `"`)
}

// FromResponse parses every topic of an LDA response, ordered by ID.
func FromResponse(resp analysisapi.LDAResponse) []Topic {
	out := make([]Topic, 0, len(resp.Topics))
	for _, item := range resp.Topics {
		out = append(out, Topic{
			ID:       item.ID,
			Name:     fmt.Sprintf("Topic %d", item.ID),
			Keywords: ParseKeywords(item.ID, item.Words),
			Original: item.Words,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Find returns the topic with the given ID.
func Find(list []Topic, id int) (Topic, bool) {
	for _, t := range list {
		if t.ID == id {
			return t, true
		}
	}
	return Topic{}, false
}

// CloudTerm is a keyword sized for a topic word cloud, Size in 1..5.
type CloudTerm struct {
	Text   string
	Weight float64
	Size   int
}

// Cloud buckets keyword weights relative to the heaviest term.
func Cloud(keywords []Keyword) []CloudTerm {
	maxWeight := 0.0
	for _, kw := range keywords {
		if kw.Weight > maxWeight {
			maxWeight = kw.Weight
		}
	}
	out := make([]CloudTerm, 0, len(keywords))
	for _, kw := range keywords {
		size := 1
		if maxWeight > 0 && kw.Weight > 0 {
			size = 1 + int(math.Round(4*kw.Weight/maxWeight))
			if size > 5 {
				size = 5
			}
		}
		out = append(out, CloudTerm{Text: kw.Text, Weight: kw.Weight, Size: size})
	}
	return out
}
