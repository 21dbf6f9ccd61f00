package flash

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func roundTrip(t *testing.T, n Notice) (Notice, bool) {
	t.Helper()
	rec := httptest.NewRecorder()
	Write(rec, n, false)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	return ReadAndClear(httptest.NewRecorder(), req)
}

func TestWriteAndRead(t *testing.T) {
	got, ok := roundTrip(t, Error("error.api", "column not found"))
	if !ok {
		t.Fatal("notice lost")
	}
	if got.Kind != KindError || got.Key != "error.api" || len(got.Args) != 1 || got.Args[0] != "column not found" {
		t.Fatalf("notice = %+v", got)
	}
}

func TestWrite_RejectsInvalid(t *testing.T) {
	for _, n := range []Notice{{Kind: KindInfo}, {Kind: "loud", Key: "x"}} {
		rec := httptest.NewRecorder()
		Write(rec, n, false)
		if len(rec.Result().Cookies()) != 0 {
			t.Errorf("%+v written", n)
		}
	}
}

func TestReadAndClear_ExpiresCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "%%%"})
	rec := httptest.NewRecorder()
	if _, ok := ReadAndClear(rec, req); ok {
		t.Fatal("garbage accepted")
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].MaxAge >= 0 {
		t.Fatalf("cookies = %+v", cookies)
	}
}

func TestLongArgumentsAreTruncated(t *testing.T) {
	long := strings.Repeat("가", 400)
	got, ok := roundTrip(t, Warning("error.api", long))
	if !ok {
		t.Fatal("notice lost")
	}
	arg := got.Args[0]
	if len(arg) > maxArgBytes+len("…") || !strings.HasSuffix(arg, "…") {
		t.Fatalf("arg length %d", len(arg))
	}
	if strings.ContainsRune(arg, '�') {
		t.Fatal("split a rune")
	}
}
