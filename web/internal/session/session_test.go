package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func testSecret() []byte {
	return []byte("0123456789abcdef0123456789abcdef")
}

// withCookies copies Set-Cookie headers from a recorder onto a new request,
// simulating the browser's next page load.
func withCookies(t *testing.T, rec *httptest.ResponseRecorder, target string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	return req
}

func TestFlashShownOnce(t *testing.T) {
	m := NewManager(testSecret())

	// POST queues the flash
	postReq := httptest.NewRequest(http.MethodPost, "/patients", nil)
	postRec := httptest.NewRecorder()
	if err := m.AddFlash(postReq, postRec, "success", "Patient created (pid 42)"); err != nil {
		t.Fatalf("AddFlash: %v", err)
	}

	// The redirected GET drains it
	getReq := withCookies(t, postRec, "/patients")
	getRec := httptest.NewRecorder()
	flashes := m.Flashes(getReq, getRec)
	if len(flashes) != 1 {
		t.Fatalf("expected 1 flash, got %d", len(flashes))
	}
	if flashes[0].Level != "success" || flashes[0].Message != "Patient created (pid 42)" {
		t.Errorf("unexpected flash: %+v", flashes[0])
	}

	// A reload with the refreshed cookie shows nothing
	reloadReq := withCookies(t, getRec, "/patients")
	if again := m.Flashes(reloadReq, httptest.NewRecorder()); len(again) != 0 {
		t.Errorf("expected the flash to drain, got %d", len(again))
	}
}

func TestFlashesEmptyWithoutCookie(t *testing.T) {
	m := NewManager(testSecret())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if flashes := m.Flashes(req, httptest.NewRecorder()); len(flashes) != 0 {
		t.Errorf("expected no flashes on a fresh session, got %d", len(flashes))
	}
}

func TestDerivedKeysDiffer(t *testing.T) {
	auth := derivedKey(testSecret(), "cookie-auth")
	enc := derivedKey(testSecret(), "cookie-encrypt")
	if len(auth) != 32 || len(enc) != 32 {
		t.Fatalf("expected 32-byte keys, got %d and %d", len(auth), len(enc))
	}
	if string(auth) == string(enc) {
		t.Error("expected distinct keys per domain")
	}
}
