package topics

import (
	"errors"
	"reflect"
	"testing"

	"github.com/ayush/text-analysis/web/internal/analysisapi"
)

func sampleKeywords() []Keyword {
	return ParseKeywords(2, `0.030*"printing" + 0.020*"culture" + 0.010*"association"`)
}

func TestPending_StageEditAndRequest(t *testing.T) {
	kws := sampleKeywords()
	var p Pending

	if err := p.StageEdit(kws, "topic2_kw1", "  heritage "); err != nil {
		t.Fatalf("StageEdit: %v", err)
	}
	if err := p.StageRemove(kws, "topic2_kw2"); err != nil {
		t.Fatalf("StageRemove: %v", err)
	}

	req, err := p.Request(2, kws)
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	want := analysisapi.EditKeywordsRequest{
		TopicID:      2,
		EditedWords:  []analysisapi.EditedWord{{Original: "culture", Edited: "heritage"}},
		RemovedWords: []string{"association"},
	}
	if !reflect.DeepEqual(req, want) {
		t.Fatalf("request = %+v, want %+v", req, want)
	}
	if got := p.LiveCount(kws); got != 2 {
		t.Fatalf("LiveCount = %d, want 2", got)
	}
}

func TestPending_EditBackToOriginalClears(t *testing.T) {
	kws := sampleKeywords()
	var p Pending
	if err := p.StageEdit(kws, "topic2_kw0", "press"); err != nil {
		t.Fatal(err)
	}
	if err := p.StageEdit(kws, "topic2_kw0", "printing"); err != nil {
		t.Fatal(err)
	}
	if !p.Empty() {
		t.Fatalf("pending = %+v, want empty", p)
	}
	if _, err := p.Request(2, kws); !errors.Is(err, ErrNothingPending) {
		t.Fatalf("Request err = %v, want ErrNothingPending", err)
	}
}

func TestPending_Rejections(t *testing.T) {
	kws := sampleKeywords()
	var p Pending

	if err := p.StageEdit(kws, "topic9_kw0", "x"); !errors.Is(err, ErrUnknownKeyword) {
		t.Fatalf("unknown edit err = %v", err)
	}
	if err := p.StageRemove(kws, "nope"); !errors.Is(err, ErrUnknownKeyword) {
		t.Fatalf("unknown remove err = %v", err)
	}
	if err := p.StageEdit(kws, "topic2_kw0", "   "); !errors.Is(err, ErrEmptyKeyword) {
		t.Fatalf("empty err = %v", err)
	}
	if err := p.StageEdit(kws, "topic2_kw0", "culture"); !errors.Is(err, ErrDuplicateKeyword) {
		t.Fatalf("duplicate err = %v", err)
	}
}

func TestPending_DuplicateCheckFollowsStagedState(t *testing.T) {
	kws := sampleKeywords()
	var p Pending

	// "culture" is being removed, so its text is free to reuse.
	if err := p.StageRemove(kws, "topic2_kw1"); err != nil {
		t.Fatal(err)
	}
	if err := p.StageEdit(kws, "topic2_kw0", "culture"); err != nil {
		t.Fatalf("StageEdit onto removed text: %v", err)
	}
	// "association" cannot take the staged text of kw0.
	if err := p.StageEdit(kws, "topic2_kw2", "culture"); !errors.Is(err, ErrDuplicateKeyword) {
		t.Fatalf("err = %v, want ErrDuplicateKeyword", err)
	}
}

func TestPending_RemoveDropsEditAndRestore(t *testing.T) {
	kws := sampleKeywords()
	var p Pending
	if err := p.StageEdit(kws, "topic2_kw0", "press"); err != nil {
		t.Fatal(err)
	}
	if err := p.StageRemove(kws, "topic2_kw0"); err != nil {
		t.Fatal(err)
	}
	if _, ok := p.Edits["topic2_kw0"]; ok {
		t.Fatal("edit survived removal")
	}

	// Editing a removed keyword brings it back.
	if err := p.StageEdit(kws, "topic2_kw0", "press"); err != nil {
		t.Fatal(err)
	}
	if p.Removed["topic2_kw0"] {
		t.Fatal("keyword still marked removed after edit")
	}

	p.Restore("topic2_kw0")
	if !p.Empty() {
		t.Fatalf("pending = %+v after restore", p)
	}
}

func TestPending_RowsAndDiscard(t *testing.T) {
	kws := sampleKeywords()
	var p Pending
	_ = p.StageEdit(kws, "topic2_kw0", "press")
	_ = p.StageRemove(kws, "topic2_kw2")

	rows := p.Rows(kws)
	if len(rows) != 3 {
		t.Fatalf("rows = %+v", rows)
	}
	if rows[0].SerialNo != "01" || rows[0].Weight != "0.0300" || rows[0].Edited != "press" {
		t.Fatalf("row 0 = %+v", rows[0])
	}
	if !rows[2].Removed || rows[1].Removed {
		t.Fatalf("removed flags = %+v", rows)
	}

	p.Discard()
	if !p.Empty() {
		t.Fatal("Discard left staged changes")
	}

	var nilPending *Pending
	if got := nilPending.Rows(kws); len(got) != 3 || got[0].Edited != "" {
		t.Fatalf("nil pending rows = %+v", got)
	}
	if nilPending.LiveCount(kws) != 3 {
		t.Fatal("nil pending LiveCount")
	}
}
