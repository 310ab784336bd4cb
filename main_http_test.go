package main

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"sightwords/internal/progress"
	"sightwords/internal/speech"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// testClient drives the router like a browser, carrying the session cookie.
type testClient struct {
	t      *testing.T
	router *gin.Engine
	cookie *http.Cookie
}

func newTestClient(t *testing.T, app *App) *testClient {
	t.Helper()
	return &testClient{t: t, router: app.setupRouter()}
}

func (tc *testClient) do(method, path string, htmx bool) *httptest.ResponseRecorder {
	tc.t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if htmx {
		req.Header.Set("HX-Request", "true")
	}
	if tc.cookie != nil {
		req.AddCookie(tc.cookie)
	}
	w := httptest.NewRecorder()
	tc.router.ServeHTTP(w, req)
	for _, c := range w.Result().Cookies() {
		if c.Name == SessionCookieName && c.Value != "" {
			tc.cookie = c
		}
	}
	return w
}

func TestHomeHandler(t *testing.T) {
	tc := newTestClient(t, testApp(t, testWords))
	w := tc.do(http.MethodGet, "/", false)
	if w.Code != http.StatusOK {
		t.Fatalf("GET / returned status %d, want 200", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "<html") || !strings.Contains(body, "Word 1 of 3") {
		t.Errorf("GET / did not render the full page with the first word")
	}
	if strings.Contains(body, "data-speak=") {
		t.Error("initial page should not cue speech")
	}
	if tc.cookie == nil || !validSessionID(tc.cookie.Value) {
		t.Errorf("GET / did not set a session cookie: %+v", tc.cookie)
	}
}

func TestCorrectHandler_ReturnsFragment(t *testing.T) {
	tc := newTestClient(t, testApp(t, testWords))
	tc.do(http.MethodGet, "/", false)

	w := tc.do(http.MethodPost, "/correct", true)
	if w.Code != http.StatusOK {
		t.Fatalf("POST /correct returned status %d, want 200", w.Code)
	}
	body := w.Body.String()
	if strings.Contains(body, "<html") {
		t.Error("HTMX request should get the fragment, not the page")
	}
	for _, want := range []string{"Word 2 of 3", MessageCorrect, `data-speak="and"`} {
		if !strings.Contains(body, want) {
			t.Errorf("POST /correct body missing %q", want)
		}
	}
	if strings.Contains(body, "data-audio=") {
		t.Error("browser speech mode should not link server audio")
	}
}

func TestCorrectHandler_NonHTMXGetsPage(t *testing.T) {
	tc := newTestClient(t, testApp(t, testWords))
	w := tc.do(http.MethodPost, "/correct", false)
	if w.Code != http.StatusOK {
		t.Fatalf("POST /correct returned status %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "<html") {
		t.Error("plain form post should get the full page")
	}
}

func TestIncorrectHandler_KeepsWord(t *testing.T) {
	tc := newTestClient(t, testApp(t, testWords))
	tc.do(http.MethodGet, "/", false)

	w := tc.do(http.MethodPost, "/incorrect", true)
	if w.Code != http.StatusOK {
		t.Fatalf("POST /incorrect returned status %d, want 200", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "Word 1 of 3") || !strings.Contains(body, "keep trying!") {
		t.Errorf("POST /incorrect should keep the first word and show the retry message")
	}
}

func TestRepeatHandler_CuesCurrentWord(t *testing.T) {
	tc := newTestClient(t, testApp(t, testWords))
	tc.do(http.MethodPost, "/incorrect", true)

	w := tc.do(http.MethodPost, "/repeat", true)
	if w.Code != http.StatusOK {
		t.Fatalf("POST /repeat returned status %d, want 200", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, `data-speak="the"`) || !strings.Contains(body, "Word 1 of 3") {
		t.Errorf("POST /repeat should cue the current word without moving")
	}
	if strings.Contains(body, "keep trying!") {
		t.Error("POST /repeat should clear the message")
	}
}

func TestCorrectHandler_FinishesDrill(t *testing.T) {
	tc := newTestClient(t, testApp(t, testWords))
	for i := 0; i < len(testWords); i++ {
		tc.do(http.MethodPost, "/correct", true)
	}
	w := tc.do(http.MethodPost, "/correct", true)
	body := w.Body.String()
	if !strings.Contains(body, "Amazing work!") {
		t.Error("drill should show the finished message")
	}
	if !strings.Contains(body, "Word 3 of 3") {
		t.Error("finished drill should stay on the last word")
	}
	if !strings.Contains(body, "disabled") {
		t.Error("finished drill should disable the Correct and Incorrect buttons")
	}
	if !strings.Contains(body, "You read 3 words.") {
		t.Error("extra Correct presses after finishing should not change the tally")
	}
}

func TestNewDrillHandler(t *testing.T) {
	tc := newTestClient(t, testApp(t, testWords))
	tc.do(http.MethodPost, "/correct", true)

	w := tc.do(http.MethodGet, "/new-drill", false)
	if w.Code != http.StatusSeeOther {
		t.Errorf("GET /new-drill returned status %d, want 303", w.Code)
	}

	w = tc.do(http.MethodPost, "/new-drill", true)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Word 1 of 3") {
		t.Errorf("HTMX POST /new-drill should render a fresh drill, got %d", w.Code)
	}
}

func TestNewDrillHandler_Reset(t *testing.T) {
	tc := newTestClient(t, testApp(t, testWords))
	tc.do(http.MethodGet, "/", false)
	oldID := tc.cookie.Value

	w := tc.do(http.MethodGet, "/new-drill?reset=1", false)
	if w.Code != http.StatusSeeOther {
		t.Errorf("GET /new-drill?reset=1 returned status %d, want 303", w.Code)
	}
	if tc.cookie.Value == oldID {
		t.Error("reset should rotate the session cookie")
	}
	if !validSessionID(tc.cookie.Value) {
		t.Errorf("rotated session ID %q is not a UUID", tc.cookie.Value)
	}
}

func TestRestartHandler(t *testing.T) {
	tc := newTestClient(t, testApp(t, testWords))
	tc.do(http.MethodPost, "/correct", true)
	tc.do(http.MethodPost, "/correct", true)

	w := tc.do(http.MethodPost, "/restart", false)
	if w.Code != http.StatusSeeOther {
		t.Errorf("POST /restart returned status %d, want 303", w.Code)
	}
	w = tc.do(http.MethodGet, "/drill-state", false)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /drill-state returned status %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Word 1 of 3") {
		t.Error("restart should rewind to the first word")
	}
}

func TestDrillStateHandler(t *testing.T) {
	tc := newTestClient(t, testApp(t, testWords))
	w := tc.do(http.MethodGet, "/drill-state", false)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /drill-state returned status %d, want 200", w.Code)
	}
	if strings.Contains(w.Body.String(), "<html") {
		t.Error("GET /drill-state should return only the fragment")
	}
}

func TestWordsHandler(t *testing.T) {
	tc := newTestClient(t, testApp(t, testWords))
	w := tc.do(http.MethodGet, "/words.json", false)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /words.json returned status %d, want 200", w.Code)
	}
	var resp struct {
		Words []string `json:"words"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to unmarshal /words.json response: %v", err)
	}
	if strings.Join(resp.Words, ",") != "the,and,a" {
		t.Errorf("GET /words.json = %v, want %v", resp.Words, testWords)
	}
}

func TestAudioHandler_BrowserMode(t *testing.T) {
	tc := newTestClient(t, testApp(t, testWords))
	w := tc.do(http.MethodGet, "/audio/the", false)
	if w.Code != http.StatusNotFound {
		t.Errorf("GET /audio/the in browser mode returned %d, want 404", w.Code)
	}
}

func TestAudioHandler_Files(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "the.mp3"), []byte("ID3fake"), 0o644); err != nil {
		t.Fatalf("write clip: %v", err)
	}
	app := testApp(t, testWords)
	app.Speech = speech.NewFileProvider(dir)
	tc := newTestClient(t, app)

	tests := []struct {
		name string
		path string
		want int
	}{
		{"clip present", "/audio/the", http.StatusOK},
		{"clip missing", "/audio/and", http.StatusNotFound},
		{"word not in list", "/audio/elephant", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := tc.do(http.MethodGet, tt.path, false)
			if w.Code != tt.want {
				t.Errorf("GET %s returned %d, want %d", tt.path, w.Code, tt.want)
			}
		})
	}

	w := tc.do(http.MethodGet, "/audio/the", false)
	if ct := w.Header().Get("Content-Type"); ct != "audio/mpeg" {
		t.Errorf("Content-Type = %q, want audio/mpeg", ct)
	}
	if w.Body.String() != "ID3fake" {
		t.Errorf("unexpected clip body: %q", w.Body.String())
	}
}

func TestCorrectHandler_LinksServerAudio(t *testing.T) {
	app := testApp(t, testWords)
	app.Speech = speech.NewFileProvider(t.TempDir())
	tc := newTestClient(t, app)

	w := tc.do(http.MethodPost, "/correct", true)
	if !strings.Contains(w.Body.String(), `data-audio="/audio/and"`) {
		t.Error("server speech mode should link the cued word's audio")
	}
}

func TestDrillFragment_CarriesNoAudioMessage(t *testing.T) {
	app := testApp(t, testWords)
	app.Speech = speech.NewFileProvider(t.TempDir())
	tc := newTestClient(t, app)

	w := tc.do(http.MethodPost, "/correct", true)
	if !strings.Contains(w.Body.String(), `data-audio-error="`+ErrorNoAudio+`"`) {
		t.Errorf("fragment should carry the no-audio message for failed playback")
	}
}

func TestDrillScript_ReportsFailedPlayback(t *testing.T) {
	tc := newTestClient(t, testApp(t, testWords))
	w := tc.do(http.MethodGet, "/static/js/drill.js", false)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /static/js/drill.js returned %d", w.Code)
	}
	script := w.Body.String()
	for _, want := range []string{
		"dataset.audioError",
		"if (failed) return;",
		"audio.play().catch(onFailure)",
		"utterance.onerror",
	} {
		if !strings.Contains(script, want) {
			t.Errorf("drill.js missing %q", want)
		}
	}
}

func TestStatsHandler(t *testing.T) {
	store, err := progress.Open(filepath.Join(t.TempDir(), "progress.db"))
	if err != nil {
		t.Fatalf("progress.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	app := testApp(t, testWords)
	app.Progress = store
	tc := newTestClient(t, app)

	tc.do(http.MethodPost, "/correct", true)   // the
	tc.do(http.MethodPost, "/incorrect", true) // and
	tc.do(http.MethodPost, "/correct", true)   // and

	w := tc.do(http.MethodGet, "/stats", false)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /stats returned status %d, want 200", w.Code)
	}
	var resp struct {
		Words []progress.Tally `json:"words"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to unmarshal /stats response: %v", err)
	}
	want := []progress.Tally{
		{Word: "and", Correct: 1, Incorrect: 1},
		{Word: "the", Correct: 1},
	}
	if len(resp.Words) != len(want) {
		t.Fatalf("GET /stats = %+v, want %+v", resp.Words, want)
	}
	for i := range want {
		if resp.Words[i] != want[i] {
			t.Errorf("tally %d = %+v, want %+v", i, resp.Words[i], want[i])
		}
	}
}

func TestStatsHandler_NoDatabase(t *testing.T) {
	tc := newTestClient(t, testApp(t, testWords))
	w := tc.do(http.MethodGet, "/stats", false)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /stats returned status %d, want 200", w.Code)
	}
	if strings.TrimSpace(w.Body.String()) != `{"words":[]}` {
		t.Errorf("GET /stats without a database = %s", w.Body.String())
	}
}

func TestHealthzHandler_Fields(t *testing.T) {
	tc := newTestClient(t, testApp(t, testWords))
	w := tc.do(http.MethodGet, "/healthz", false)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /healthz returned status %d, want 200", w.Code)
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to unmarshal /healthz response: %v", err)
	}
	for _, field := range []string{"status", "env", "words_loaded", "active_sessions", "speech", "speech_status", "uptime", "timestamp"} {
		if _, ok := resp[field]; !ok {
			t.Errorf("Expected '%s' field in /healthz response", field)
		}
	}
	if resp["env"] != "development" {
		t.Errorf("env = %v, want development", resp["env"])
	}
	if resp["speech"] != speech.BackendBrowser {
		t.Errorf("speech = %v, want %s", resp["speech"], speech.BackendBrowser)
	}
	if resp["words_loaded"] != float64(len(testWords)) {
		t.Errorf("words_loaded = %v, want %d", resp["words_loaded"], len(testWords))
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	app := testApp(t, testWords)
	app.RateLimitRPS = 1
	app.RateLimitBurst = 3
	tc := newTestClient(t, app)

	for i := 0; i < 3; i++ {
		w := tc.do(http.MethodPost, "/repeat", true)
		if w.Code != http.StatusOK {
			t.Errorf("Request %d: expected 200, got %d", i+1, w.Code)
		}
	}

	w := tc.do(http.MethodPost, "/repeat", true)
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("4th request: expected 429 Too Many Requests, got %d", w.Code)
	}
	if w.Header().Get("HX-Trigger") != "rate-limit-exceeded" {
		t.Errorf("expected rate-limit-exceeded trigger, got %q", w.Header().Get("HX-Trigger"))
	}

	if w := tc.do(http.MethodGet, "/drill-state", false); w.Code != http.StatusOK {
		t.Errorf("GET /drill-state should not be rate limited, got %d", w.Code)
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	tc := newTestClient(t, testApp(t, testWords))
	w := tc.do(http.MethodGet, "/healthz", false)
	if w.Header().Get("X-Request-Id") == "" {
		t.Error("expected an X-Request-Id response header")
	}

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-Id", "abc-123")
	w = httptest.NewRecorder()
	tc.router.ServeHTTP(w, req)
	if got := w.Header().Get("X-Request-Id"); got != "abc-123" {
		t.Errorf("X-Request-Id = %q, want the caller's ID", got)
	}
}

func TestCacheHeaders(t *testing.T) {
	tc := newTestClient(t, testApp(t, testWords))
	w := tc.do(http.MethodGet, "/drill-state", false)
	if cc := w.Header().Get("Cache-Control"); !strings.Contains(cc, "no-store") {
		t.Errorf("Cache-Control for drill state = %q, want no-store", cc)
	}
}

func isGzipped(w *httptest.ResponseRecorder) bool {
	return w.Header().Get("Content-Encoding") == "gzip"
}

func decompressGzip(data []byte) (string, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	return string(out), err
}

func gzipGet(t *testing.T, router *gin.Engine, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestGzipMiddleware_CompressesJSON(t *testing.T) {
	router := testApp(t, testWords).setupRouter()
	w := gzipGet(t, router, "/words.json")
	if !isGzipped(w) {
		t.Fatalf("Expected gzip Content-Encoding for /words.json")
	}
	body, err := decompressGzip(w.Body.Bytes())
	if err != nil || !strings.Contains(body, `"the"`) {
		t.Errorf("Failed to decompress gzipped JSON: %v, got: %q", err, body)
	}
}

func TestGzipMiddleware_CompressesCSS(t *testing.T) {
	router := testApp(t, testWords).setupRouter()
	w := gzipGet(t, router, "/static/css/style.css")
	if w.Code != http.StatusOK {
		t.Fatalf("GET /static/css/style.css returned %d", w.Code)
	}
	if !isGzipped(w) {
		t.Errorf("Expected gzip Content-Encoding for .css file")
	}
}

func TestGzipMiddleware_SkipsAudio(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "the.mp3"), []byte("ID3fake"), 0o644); err != nil {
		t.Fatalf("write clip: %v", err)
	}
	app := testApp(t, testWords)
	app.Speech = speech.NewFileProvider(dir)
	w := gzipGet(t, app.setupRouter(), "/audio/the")
	if isGzipped(w) {
		t.Errorf("Did not expect gzip Content-Encoding for audio")
	}
	if w.Body.String() != "ID3fake" {
		t.Errorf("Unexpected body for audio: %q", w.Body.String())
	}
}
