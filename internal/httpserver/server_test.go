package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/tinytelemetry/sortable-table/internal/model"
	"github.com/tinytelemetry/sortable-table/internal/rendering"
	"github.com/tinytelemetry/sortable-table/internal/theme"
	"github.com/tinytelemetry/sortable-table/internal/widget"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type recordingRerunner struct {
	mu   sync.Mutex
	keys []string
}

func (r *recordingRerunner) Rerun(ctx context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys = append(r.keys, key)
	return nil
}

func (r *recordingRerunner) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.keys)
}

const peoplePayload = `{
	"data": {"columns": [
		{"name": "name", "values": ["alice", "bob"]},
		{"name": "age", "values": ["30", "25"]}
	]},
	"sortColumn": null,
	"sortDirection": "asc",
	"paginated": true,
	"currentPage": 1,
	"maxPage": 4,
	"columnWidths": [120, "30%"],
	"retrigger": false,
	"maxHeight": "400px",
	"styleOverrides": "",
	"cellTooltips": {"name": ["Alice A.", "Bob B."]}
}`

func newTestServer(t *testing.T) (*Server, *widget.Registry, *gin.Engine) {
	t.Helper()
	renderer, err := rendering.NewTableRenderer(theme.Default())
	if err != nil {
		t.Fatalf("NewTableRenderer: %v", err)
	}
	reg := widget.NewRegistry()
	srv := NewServer("", reg, renderer)
	srv.startTime = time.Now()
	return srv, reg, srv.router()
}

func do(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func mountPeople(t *testing.T, r http.Handler) {
	t.Helper()
	w := do(t, r, http.MethodPost, "/api/components/people/mount", peoplePayload)
	if w.Code != http.StatusOK {
		t.Fatalf("mount status = %d; body: %s", w.Code, w.Body.String())
	}
}

func TestHealthEndpoint(t *testing.T) {
	_, _, r := newTestServer(t)

	w := do(t, r, http.MethodGet, "/api/health", "")
	if w.Code != http.StatusOK {
		t.Errorf("health status = %d, want %d", w.Code, http.StatusOK)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal health: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("health status = %v, want ok", body["status"])
	}
}

func TestHealthEndpoint_NotReady(t *testing.T) {
	srv, _, r := newTestServer(t)
	srv.SetReady(false)

	w := do(t, r, http.MethodGet, "/api/health", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("health status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
	if !strings.Contains(w.Body.String(), `"starting"`) {
		t.Fatalf("health body = %s", w.Body.String())
	}

	srv.SetReady(true)
	if w := do(t, r, http.MethodGet, "/api/health", ""); w.Code != http.StatusOK {
		t.Fatalf("health status after ready = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestHealthEndpoint_WrongMethod(t *testing.T) {
	_, _, r := newTestServer(t)

	w := do(t, r, http.MethodPost, "/api/health", "")
	// Gin returns 405 for method not allowed when a route exists but not for this method
	if w.Code != http.StatusMethodNotAllowed && w.Code != http.StatusNotFound {
		t.Errorf("health POST status = %d, want 405 or 404", w.Code)
	}
}

func TestMountEndpoint_LegacyThenObject(t *testing.T) {
	_, reg, r := newTestServer(t)

	w := do(t, r, http.MethodPost, "/api/components/people/mount", peoplePayload)
	if w.Code != http.StatusOK {
		t.Fatalf("mount status = %d; body: %s", w.Code, w.Body.String())
	}
	if got := strings.TrimSpace(w.Body.String()); got != "1" {
		t.Fatalf("first mount body = %s, want bare page 1", got)
	}

	if _, err := reg.ClickHeader("people", "age"); err != nil {
		t.Fatalf("ClickHeader: %v", err)
	}

	w = do(t, r, http.MethodPost, "/api/components/people/mount", peoplePayload)
	var ev model.Event
	if err := json.Unmarshal(w.Body.Bytes(), &ev); err != nil {
		t.Fatalf("unmarshal event: %v; body: %s", err, w.Body.String())
	}
	if ev.Page != 1 || ev.Sort == nil || ev.Sort.Column != "age" || ev.Sort.Direction != model.Ascending {
		t.Fatalf("second mount event = %+v", ev)
	}
}

func TestMountEndpoint_RejectsInvalidPayload(t *testing.T) {
	_, _, r := newTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"data":`},
		{"unknown sort column", strings.Replace(peoplePayload, `"sortColumn": null`, `"sortColumn": "height"`, 1)},
		{"bad direction", strings.Replace(peoplePayload, `"sortDirection": "asc"`, `"sortDirection": "up"`, 1)},
		{"tooltip length mismatch", strings.Replace(peoplePayload, `["Alice A.", "Bob B."]`, `["Alice A."]`, 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, r, http.MethodPost, "/api/components/bad/mount", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400; body: %s", w.Code, w.Body.String())
			}
		})
	}
}

func TestSnapshotAndKeys(t *testing.T) {
	_, _, r := newTestServer(t)
	mountPeople(t, r)

	w := do(t, r, http.MethodGet, "/api/components", "")
	if !strings.Contains(w.Body.String(), `"people"`) {
		t.Fatalf("components body = %s", w.Body.String())
	}

	w = do(t, r, http.MethodGet, "/api/components/people", "")
	if w.Code != http.StatusOK {
		t.Fatalf("snapshot status = %d", w.Code)
	}
	var snap widget.Snapshot
	if err := json.Unmarshal(w.Body.Bytes(), &snap); err != nil {
		t.Fatalf("unmarshal snapshot: %v", err)
	}
	if snap.Key != "people" || snap.Page != 1 || snap.MaxPage != 4 {
		t.Fatalf("snapshot = %+v", snap)
	}

	w = do(t, r, http.MethodGet, "/api/components/nobody", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown key status = %d, want 404", w.Code)
	}
}

func TestSortAndPageEndpoints(t *testing.T) {
	srv, _, r := newTestServer(t)
	rr := &recordingRerunner{}
	srv.SetRerunner(rr)
	mountPeople(t, r)

	steps := []struct {
		path     string
		body     string
		wantCode int
		wantPage int
		wantSort string
	}{
		{"/api/components/people/sort", `{"column":"name"}`, http.StatusOK, 1, "name asc"},
		{"/api/components/people/sort", `{"column":"name"}`, http.StatusOK, 1, "name desc"},
		{"/api/components/people/page", `{"action":"last"}`, http.StatusOK, 3, "name desc"},
		{"/api/components/people/page", `{"page":99}`, http.StatusOK, 3, "name desc"},
		{"/api/components/people/sort", `{"column":"name"}`, http.StatusOK, 3, ""},
		{"/api/components/people/page", `{"action":"first"}`, http.StatusOK, 0, ""},
		{"/api/components/people/sort", `{"column":"height"}`, http.StatusBadRequest, 0, ""},
		{"/api/components/people/page", `{"action":"sideways"}`, http.StatusBadRequest, 0, ""},
		{"/api/components/people/page", `{}`, http.StatusBadRequest, 0, ""},
		{"/api/components/nobody/sort", `{"column":"name"}`, http.StatusNotFound, 0, ""},
	}

	for i, st := range steps {
		w := do(t, r, http.MethodPost, st.path, st.body)
		if w.Code != st.wantCode {
			t.Fatalf("step %d: status = %d, want %d; body: %s", i, w.Code, st.wantCode, w.Body.String())
		}
		if w.Code != http.StatusOK {
			continue
		}
		var ev model.Event
		if err := json.Unmarshal(w.Body.Bytes(), &ev); err != nil {
			t.Fatalf("step %d: unmarshal: %v", i, err)
		}
		gotSort := ""
		if ev.Sort != nil {
			gotSort = ev.Sort.Column + " " + string(ev.Sort.Direction)
		}
		if ev.Page != st.wantPage || gotSort != st.wantSort {
			t.Fatalf("step %d: event = {%d %q}, want {%d %q}", i, ev.Page, gotSort, st.wantPage, st.wantSort)
		}
	}

	if got := rr.count(); got != 6 {
		t.Fatalf("reruns = %d, want 6", got)
	}
}

func TestHTMLWidget(t *testing.T) {
	_, _, r := newTestServer(t)
	mountPeople(t, r)

	w := do(t, r, http.MethodGet, "/components/people", "")
	if w.Code != http.StatusOK {
		t.Fatalf("html status = %d; body: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("content type = %q", ct)
	}
	body := w.Body.String()
	for _, want := range []string{
		"name ▲▼",
		`title="Sort by age"`,
		`title="Alice A."`,
		`class="current-page">2<`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("html missing %q", want)
		}
	}
	for _, width := range []string{"120px", "30%"} {
		if !strings.Contains(body, "width:"+width) && !strings.Contains(body, "width: "+width) {
			t.Errorf("html missing column width %s", width)
		}
	}
}

func TestHTMLInteractionsRedirect(t *testing.T) {
	srv, reg, r := newTestServer(t)
	rr := &recordingRerunner{}
	srv.SetRerunner(rr)
	mountPeople(t, r)

	w := do(t, r, http.MethodGet, "/components/people/sort?column=age", "")
	if w.Code != http.StatusSeeOther || w.Header().Get("Location") != "/components/people" {
		t.Fatalf("sort redirect = %d %q", w.Code, w.Header().Get("Location"))
	}
	w = do(t, r, http.MethodGet, "/components/people/page?action=next", "")
	if w.Code != http.StatusSeeOther {
		t.Fatalf("page redirect = %d", w.Code)
	}
	w = do(t, r, http.MethodGet, "/components/people/page?page=abc", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad page status = %d, want 400", w.Code)
	}

	snap, err := reg.Snapshot("people")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.Page != 2 || snap.Sort == nil || snap.Sort.Column != "age" {
		t.Fatalf("snapshot after clicks = page %d sort %+v", snap.Page, snap.Sort)
	}
	if rr.count() != 2 {
		t.Fatalf("reruns = %d, want 2", rr.count())
	}
}

func TestCORSPreflight(t *testing.T) {
	srv, _, _ := newTestServer(t)
	srv.SetAllowOrigins([]string{"http://localhost:4321"})
	r := srv.router()

	req := httptest.NewRequest(http.MethodOptions, "/api/components", nil)
	req.Header.Set("Origin", "http://localhost:4321")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:4321" {
		t.Fatalf("Access-Control-Allow-Origin = %q", got)
	}
}

func TestEventsWebsocket(t *testing.T) {
	_, reg, r := newTestServer(t)
	mountPeople(t, r)

	ts := httptest.NewServer(r)
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/components/people/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Subscription happens after the upgrade; retry the click until the
	// event arrives.
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	got := make(chan model.Event, 1)
	go func() {
		var ev model.Event
		if err := conn.ReadJSON(&ev); err == nil {
			got <- ev
		}
		close(got)
	}()

	deadline := time.After(5 * time.Second)
	for {
		if _, err := reg.GoTo("people", 2); err != nil {
			t.Fatalf("GoTo: %v", err)
		}
		select {
		case ev, ok := <-got:
			if !ok {
				t.Fatal("websocket closed before an event arrived")
			}
			if ev.Page != 2 {
				t.Fatalf("event page = %d, want 2", ev.Page)
			}
			return
		case <-time.After(50 * time.Millisecond):
		case <-deadline:
			t.Fatal("timed out waiting for event")
		}
	}
}

func TestEventsWebsocket_UnknownKey(t *testing.T) {
	_, _, r := newTestServer(t)

	w := do(t, r, http.MethodGet, "/api/components/nobody/events", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestGinRecovery(t *testing.T) {
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/panic", func(c *gin.Context) {
		panic("test panic")
	})

	req := httptest.NewRequest(http.MethodGet, "/panic", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("panic recovery status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}
