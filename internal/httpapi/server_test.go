package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/briefing/internal/briefing"
	"horse.fit/briefing/internal/ranker"
)

type memoryStore struct {
	candidates []ranker.Candidate
	stored     map[string][]ranker.SelectionItem
}

func newMemoryStore() *memoryStore {
	now := time.Now().UTC()
	return &memoryStore{
		candidates: []ranker.Candidate{
			{ID: "c1", SourceID: "s1", Theme: "tech", Title: "Chipmaker posts record results", PublishedAt: now.Add(-1 * time.Hour)},
			{ID: "c2", SourceID: "s2", Theme: "science", Title: "Probe reaches outer orbit", PublishedAt: now.Add(-2 * time.Hour)},
			{ID: "c3", SourceID: "s3", Theme: "finance", Title: "Markets rally on rate pause", PublishedAt: now.Add(-3 * time.Hour)},
		},
		stored: map[string][]ranker.SelectionItem{},
	}
}

func (m *memoryStore) FetchCandidates(context.Context, string, time.Duration, int) ([]ranker.Candidate, error) {
	return m.candidates, nil
}

func (m *memoryStore) BuildUserContext(_ context.Context, userID string) (*ranker.UserContext, error) {
	return &ranker.UserContext{
		UserID:       userID,
		ThemeWeights: map[string]float64{"tech": 1.0},
	}, nil
}

func (m *memoryStore) FetchFeaturedIDs(context.Context) (map[string]struct{}, error) {
	return nil, nil
}

func (m *memoryStore) UpsertSelection(_ context.Context, userID string, day time.Time, _ string, items []ranker.SelectionItem) (bool, error) {
	key := userID + "|" + day.Format("2006-01-02")
	if _, exists := m.stored[key]; exists {
		return false, nil
	}
	m.stored[key] = items
	return true, nil
}

func (m *memoryStore) GetSelection(_ context.Context, userID string, day time.Time) ([]ranker.SelectionItem, bool, error) {
	items, ok := m.stored[userID+"|"+day.Format("2006-01-02")]
	return items, ok, nil
}

func newTestServer() (*Server, *memoryStore) {
	store := newMemoryStore()
	service := briefing.NewService(store, ranker.DefaultWeights(), 5, 72*time.Hour, 300, zerolog.Nop())
	return NewServer(service, zerolog.Nop()), store
}

func doRequest(t *testing.T, server *Server, method, target, body string) (*httptest.ResponseRecorder, jsendResponse) {
	t.Helper()

	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	var envelope jsendResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response envelope: %v (body %s)", err, rec.Body.String())
	}
	return rec, envelope
}

func TestServer_Healthz(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer()
	rec, envelope := doRequest(t, server, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d want 200", rec.Code)
	}
	if envelope.Status != "success" {
		t.Fatalf("envelope status: got %q", envelope.Status)
	}
}

func TestServer_GenerateAndRead(t *testing.T) {
	t.Parallel()

	server, store := newTestServer()

	rec, envelope := doRequest(t, server, http.MethodPost, "/api/briefings/u1", `{"limit": 3}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("generate status: got %d body %s", rec.Code, rec.Body.String())
	}
	if envelope.Status != "success" {
		t.Fatalf("generate envelope: got %q", envelope.Status)
	}
	if len(store.stored) != 1 {
		t.Fatalf("expected the selection to be persisted, stored=%d", len(store.stored))
	}

	var day string
	for key := range store.stored {
		day = strings.SplitN(key, "|", 2)[1]
	}
	rec, envelope = doRequest(t, server, http.MethodGet, "/api/briefings/u1?date="+day, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("read status: got %d body %s", rec.Code, rec.Body.String())
	}
	if envelope.Status != "success" {
		t.Fatalf("read envelope: got %q", envelope.Status)
	}
}

func TestServer_GenerateWithoutPersist(t *testing.T) {
	t.Parallel()

	server, store := newTestServer()
	rec, _ := doRequest(t, server, http.MethodPost, "/api/briefings/u1", `{"persist": false}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	if len(store.stored) != 0 {
		t.Fatalf("persist=false must not store anything")
	}
}

func TestServer_GenerateRejectsUnknownMode(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer()
	rec, envelope := doRequest(t, server, http.MethodPost, "/api/briefings/u1", `{"mode": "chronological"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d want 400", rec.Code)
	}
	if envelope.Status != "fail" {
		t.Fatalf("envelope status: got %q", envelope.Status)
	}
}

func TestServer_ReadMissingBriefing(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer()
	rec, envelope := doRequest(t, server, http.MethodGet, "/api/briefings/u1?date=2026-01-01", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status: got %d want 404", rec.Code)
	}
	if envelope.Status != "fail" {
		t.Fatalf("envelope status: got %q", envelope.Status)
	}
}

func TestServer_ReadRejectsBadDate(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer()
	rec, _ := doRequest(t, server, http.MethodGet, "/api/briefings/u1?date=yesterday", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d want 400", rec.Code)
	}
}
