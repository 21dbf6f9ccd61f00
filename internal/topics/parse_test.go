package topics

import (
	"reflect"
	"testing"

	"github.com/ayush/text-analysis/web/internal/analysisapi"
)

func TestParseKeywords(t *testing.T) {
	tests := []struct {
		name  string
		words string
		want  []Keyword
	}{
		{
			name:  "empty",
			words: "",
			want:  []Keyword{},
		},
		{
			name:  "two terms",
			words: `0.033*"keyword1" + 0.031*"keyword2"`,
			want: []Keyword{
				{ID: "topic4_kw0", Text: "keyword1", Weight: 0.033},
				{ID: "topic4_kw1", Text: "keyword2", Weight: 0.031},
			},
		},
		{
			name:  "escaped quote inside term",
			words: `0.2*"say \"hi\""`,
			want: []Keyword{
				{ID: "topic4_kw0", Text: `say "hi"`, Weight: 0.2},
			},
		},
		{
			name:  "korean terms",
			words: `0.050*"인쇄" + 0.012*"문화"`,
			want: []Keyword{
				{ID: "topic4_kw0", Text: "인쇄", Weight: 0.05},
				{ID: "topic4_kw1", Text: "문화", Weight: 0.012},
			},
		},
		{
			name:  "bad parts dropped, ids keep position",
			words: `abc*"x" + 0.1*"" + 0.2 + 0.3*"kept"`,
			want: []Keyword{
				{ID: "topic4_kw3", Text: "kept", Weight: 0.3},
			},
		},
		{
			name:  "nan weight dropped",
			words: `NaN*"x" + 0.4*"y"`,
			want: []Keyword{
				{ID: "topic4_kw1", Text: "y", Weight: 0.4},
			},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseKeywords(4, tc.words)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("ParseKeywords = %#v, want %#v", got, tc.want)
			}
		})
	}
}

func TestFromResponse_SortsByID(t *testing.T) {
	resp := analysisapi.LDAResponse{
		Topics: []analysisapi.TopicItem{
			{ID: 3, Words: `0.1*"c"`},
			{ID: 1, Words: `0.2*"a" + 0.1*"b"`},
		},
	}
	got := FromResponse(resp)
	if len(got) != 2 || got[0].ID != 1 || got[1].ID != 3 {
		t.Fatalf("topics = %+v", got)
	}
	if got[0].Name != "Topic 1" || len(got[0].Keywords) != 2 {
		t.Fatalf("first topic = %+v", got[0])
	}
	if got[1].Original != `0.1*"c"` {
		t.Fatalf("original = %q", got[1].Original)
	}

	if _, ok := Find(got, 3); !ok {
		t.Fatal("Find(3) failed")
	}
	if _, ok := Find(got, 2); ok {
		t.Fatal("Find(2) should miss")
	}
}

func TestCloud(t *testing.T) {
	got := Cloud([]Keyword{
		{Text: "big", Weight: 0.4},
		{Text: "half", Weight: 0.2},
		{Text: "tiny", Weight: 0.001},
		{Text: "zero", Weight: 0},
	})
	sizes := []int{got[0].Size, got[1].Size, got[2].Size, got[3].Size}
	if !reflect.DeepEqual(sizes, []int{5, 3, 1, 1}) {
		t.Fatalf("sizes = %v", sizes)
	}
}
