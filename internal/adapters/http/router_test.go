package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/aakashbhandari1000/Meeting/internal/adapters/identity"
	"github.com/aakashbhandari1000/Meeting/internal/adapters/store"
	"github.com/aakashbhandari1000/Meeting/internal/app"
	"github.com/aakashbhandari1000/Meeting/internal/config"
	"github.com/aakashbhandari1000/Meeting/internal/domain"
)

func newTestRouter(t *testing.T) (*gin.Engine, *app.Coordinator, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	coord := app.NewCoordinator(app.NewSessionIndex(), store.NewMemory(), store.NewRealtime(), app.SimplePolicy{})
	provider := identity.NewStatic(nil)
	token := provider.Issue("alice", nil)

	cfg := &config.Config{
		Mode:       "release",
		StaticPath: t.TempDir(),
		ReadLimit:  32768,
		SendBuffer: 32,
		Secret:     "test-secret",
	}
	return SetupRouter(context.Background(), cfg, coord, provider), coord, token
}

func doRequest(r *gin.Engine, method, path, token, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateMeetingRequiresAuth(t *testing.T) {
	r, _, _ := newTestRouter(t)

	if w := doRequest(r, http.MethodPost, "/api/meetings", "", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("no token: status = %d, want 401", w.Code)
	}
	if w := doRequest(r, http.MethodPost, "/api/meetings", "forged", ""); w.Code != http.StatusForbidden {
		t.Fatalf("bad token: status = %d, want 403", w.Code)
	}
}

func TestCreateAndFetchMeeting(t *testing.T) {
	r, coord, token := newTestRouter(t)

	w := doRequest(r, http.MethodPost, "/api/meetings", token, `{"waitingRoom":true}`)
	if w.Code != http.StatusOK {
		t.Fatalf("create status = %d, body %s", w.Code, w.Body.String())
	}
	var created struct {
		MeetingID string `json:"meetingId"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	if created.MeetingID == "" {
		t.Fatal("empty meeting id")
	}

	w = doRequest(r, http.MethodGet, "/api/meetings/"+created.MeetingID, token, "")
	if w.Code != http.StatusOK {
		t.Fatalf("fetch status = %d", w.Code)
	}
	var doc map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decode meeting doc: %v", err)
	}
	if doc["host"] != "alice" {
		t.Fatalf("host = %v, want alice", doc["host"])
	}
	settings, ok := doc["settings"].(map[string]any)
	if !ok || settings["waitingRoom"] != true {
		t.Fatalf("settings = %v, want waitingRoom on", doc["settings"])
	}

	// Same record through the coordinator port.
	if _, err := coord.MeetingDoc(context.Background(), domain.MeetingID(created.MeetingID)); err != nil {
		t.Fatalf("MeetingDoc: %v", err)
	}
}

func TestCreateMeetingWithoutBodyUsesDefaults(t *testing.T) {
	r, _, token := newTestRouter(t)

	w := doRequest(r, http.MethodPost, "/api/meetings", token, "")
	if w.Code != http.StatusOK {
		t.Fatalf("create status = %d", w.Code)
	}
	var created struct {
		MeetingID string `json:"meetingId"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &created)

	w = doRequest(r, http.MethodGet, "/api/meetings/"+created.MeetingID, token, "")
	var doc map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &doc)
	settings := doc["settings"].(map[string]any)
	if settings["allowChat"] != true || settings["waitingRoom"] != false {
		t.Fatalf("defaults = %v", settings)
	}
}

func TestFetchUnknownMeeting(t *testing.T) {
	r, _, token := newTestRouter(t)
	if w := doRequest(r, http.MethodGet, "/api/meetings/nope", token, ""); w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestClientTokenCookieIssued(t *testing.T) {
	r, _, _ := newTestRouter(t)

	w := doRequest(r, http.MethodGet, "/api/meetings/nope", "", "")
	found := false
	for _, c := range w.Result().Cookies() {
		if c.Name == "ct" && c.Value != "" {
			found = true
		}
	}
	if !found {
		t.Fatal("ct cookie not issued")
	}
}
