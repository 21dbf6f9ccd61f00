package workflow

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/ayush/text-analysis/web/internal/analysisapi"
)

func uploaded() *State {
	s := New("sid")
	s.SetDataset(Dataset{Filename: "posts.csv", Columns: []string{"Title", "Detail", "Author"}})
	return s
}

func TestRequire_FollowsProgress(t *testing.T) {
	s := New("sid")
	if err := s.Require(StepUpload); err != nil {
		t.Fatalf("upload should always be open: %v", err)
	}

	err := s.Require(StepColumns)
	var locked *LockedError
	if !errors.As(err, &locked) || !errors.Is(err, ErrStepLocked) {
		t.Fatalf("err = %v, want LockedError", err)
	}
	if locked.Need != StepUpload || locked.Need.Path() != "/" {
		t.Fatalf("need = %v", locked.Need)
	}

	s.SetDataset(Dataset{Filename: "a.csv", Columns: []string{"A"}})
	if err := s.Require(StepColumns); err != nil {
		t.Fatalf("columns after upload: %v", err)
	}
	if err := s.Require(StepPreprocess); err == nil {
		t.Fatal("preprocessing should need a column selection")
	}

	if err := s.SetColumns([]string{"A"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Require(StepAnalysis); err == nil {
		t.Fatal("analysis should need preprocessing")
	}

	s.SetPreprocess(PreprocessResult{Settings: PreprocessSettings{Column: "A"}})
	for _, step := range []Step{StepAnalysis, StepLDA} {
		if err := s.Require(step); err != nil {
			t.Fatalf("%s: %v", step, err)
		}
	}
}

func TestSetColumns_KeepsDatasetOrder(t *testing.T) {
	s := uploaded()
	if err := s.SetColumns([]string{"Author", "Title", "Author"}); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(s.SelectedColumns, []string{"Title", "Author"}) {
		t.Fatalf("selected = %v", s.SelectedColumns)
	}
	if err := s.SetColumns([]string{"Views"}); !errors.Is(err, ErrInvalidSettings) {
		t.Fatalf("unknown column err = %v", err)
	}
	if err := s.SetColumns(nil); !errors.Is(err, ErrInvalidSettings) {
		t.Fatalf("empty selection err = %v", err)
	}
}

func TestToggleColumn(t *testing.T) {
	s := uploaded()
	for _, c := range []string{"Detail", "Title"} {
		if err := s.ToggleColumn(c); err != nil {
			t.Fatal(err)
		}
	}
	if !reflect.DeepEqual(s.SelectedColumns, []string{"Title", "Detail"}) {
		t.Fatalf("selected = %v", s.SelectedColumns)
	}
	if err := s.ToggleColumn("Title"); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(s.SelectedColumns, []string{"Detail"}) || !s.IsSelected("Detail") {
		t.Fatalf("selected = %v", s.SelectedColumns)
	}
	if err := s.ToggleColumn("Detail"); err != nil {
		t.Fatal(err)
	}
	if len(s.SelectedColumns) != 0 {
		t.Fatalf("selected = %v", s.SelectedColumns)
	}
}

func TestDeselectingPreprocessedColumnDropsResult(t *testing.T) {
	s := uploaded()
	_ = s.SetColumns([]string{"Title", "Detail"})
	s.SetPreprocess(PreprocessResult{Settings: PreprocessSettings{Column: "Detail"}})

	_ = s.SetColumns([]string{"Title", "Detail", "Author"})
	if s.Preprocess == nil {
		t.Fatal("widening the selection dropped preprocessing")
	}
	_ = s.SetColumns([]string{"Title"})
	if s.Preprocess != nil {
		t.Fatal("preprocessing survived deselection of its column")
	}
}

func TestSetDataset_ResetsDownstream(t *testing.T) {
	s := uploaded()
	s.BackendSessionID = "backend"
	_ = s.SetColumns([]string{"Detail"})
	s.SetPreprocess(PreprocessResult{Settings: PreprocessSettings{Column: "Detail"}})
	s.SetLDA(LDAResult{Response: analysisapi.LDAResponse{Topics: []analysisapi.TopicItem{{ID: 1, Words: `0.1*"a"`}}}})
	s.PendingFor(1).Removed = map[string]bool{"topic1_kw0": true}

	s.SetDataset(Dataset{Filename: "b.xlsx", Columns: []string{"X"}})
	if s.SelectedColumns != nil || s.Preprocess != nil || s.LDA != nil || s.Pending != nil {
		t.Fatalf("downstream state survived: %+v", s)
	}
	if s.BackendSessionID != "backend" {
		t.Fatal("analysis session should survive a new upload")
	}
}

func TestSetLDA_SelectsFirstTopicAndDropsPending(t *testing.T) {
	s := uploaded()
	s.PendingFor(9).Edits = map[string]string{"topic9_kw0": "x"}
	s.SetLDA(LDAResult{Response: analysisapi.LDAResponse{Topics: []analysisapi.TopicItem{
		{ID: 5, Words: `0.1*"e"`},
		{ID: 2, Words: `0.1*"b"`},
	}}})
	if s.LDA.SelectedTopic != 2 {
		t.Fatalf("selected topic = %d, want lowest id", s.LDA.SelectedTopic)
	}
	if s.Pending != nil {
		t.Fatal("pending edits survived a new model")
	}
	if got := s.Topics(); len(got) != 2 || got[0].ID != 2 {
		t.Fatalf("topics = %+v", got)
	}
}

func TestApplyEdits(t *testing.T) {
	s := uploaded()
	s.SetLDA(LDAResult{Response: analysisapi.LDAResponse{
		OptimalTopicNum: 4,
		Topics:          []analysisapi.TopicItem{{ID: 1, Words: `0.1*"a" + 0.05*"b"`}},
	}})
	s.PendingFor(1).Removed = map[string]bool{"topic1_kw1": true}

	s.ApplyEdits(1, analysisapi.LDAResponse{Topics: []analysisapi.TopicItem{{ID: 1, Words: `0.1*"a"`}}})
	if _, ok := s.Pending[1]; ok {
		t.Fatal("pending edits not cleared")
	}
	if s.LDA.Response.OptimalTopicNum != 4 || s.LDA.Response.Topics[0].Words != `0.1*"a"` {
		t.Fatalf("response = %+v", s.LDA.Response)
	}
}

func TestStateJSONRoundTripKeepsPending(t *testing.T) {
	s := uploaded()
	s.PendingFor(3).Edits = map[string]string{"topic3_kw0": "new"}

	raw, err := json.Marshal(s)
	if err != nil {
		t.Fatal(err)
	}
	var back State
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatal(err)
	}
	if back.Pending[3].Edits["topic3_kw0"] != "new" {
		t.Fatalf("pending = %+v", back.Pending)
	}
}

func TestReset(t *testing.T) {
	s := uploaded()
	s.BackendSessionID = "b"
	s.Reset()
	if s.ID != "sid" || s.Dataset != nil || s.BackendSessionID != "" {
		t.Fatalf("state after reset = %+v", s)
	}
}
