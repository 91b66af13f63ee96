package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/JonMunkholm/stageloader/internal/config"
	"github.com/JonMunkholm/stageloader/internal/core"
)

type fakeHandler struct {
	events []core.Event
	res    core.RunResult
	err    error
}

func (f *fakeHandler) Handle(_ context.Context, ev core.Event) (core.RunResult, error) {
	f.events = append(f.events, ev)
	return f.res, f.err
}

func (f *fakeHandler) Status() core.Status {
	return core.Status{Entities: []string{"orders", "payments"}, StagingDataset: "staging"}
}

func newTestServer(h EventHandler) *Server {
	return NewServer(h, config.Default().Server)
}

func post(t *testing.T, s *Server, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func TestHandleEvent_Loaded(t *testing.T) {
	h := &fakeHandler{res: core.RunResult{RunID: "r1", Status: core.StatusLoaded, Entity: "payments", RowsAppended: 3}}
	s := newTestServer(h)

	for _, path := range []string{"/", "/events"} {
		rec := post(t, s, path, `{"bucket":"raw","name":"payments.csv"}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("POST %s status = %d, want 200", path, rec.Code)
		}
		var got core.RunResult
		if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if got.RunID != "r1" || got.RowsAppended != 3 {
			t.Errorf("body = %+v, want run r1 with 3 rows", got)
		}
	}

	if len(h.events) != 2 || h.events[0] != (core.Event{Bucket: "raw", Name: "payments.csv"}) {
		t.Errorf("events = %+v", h.events)
	}
}

func TestHandleEvent_StatusCodes(t *testing.T) {
	tests := []struct {
		name     string
		res      core.RunResult
		err      error
		want     int
		wantCode string
	}{
		{"skipped", core.RunResult{Status: core.StatusSkipped, Reason: "no entity matches object name"}, nil, http.StatusNoContent, ""},
		{"load failure", core.RunResult{RunID: "r2", Status: core.StatusFailed}, fmt.Errorf("%w: bad", core.ErrLoad), http.StatusInternalServerError, "WH001"},
		{"busy", core.RunResult{}, core.ErrTooManyRuns, http.StatusTooManyRequests, "ING004"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(&fakeHandler{res: tt.res, err: tt.err})
			rec := post(t, s, "/", `{"bucket":"raw","name":"x.csv"}`)

			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
			if tt.wantCode == "" {
				return
			}

			var body ErrorResponse
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", body.Code, tt.wantCode)
			}
			if body.RunID != tt.res.RunID {
				t.Errorf("run_id = %q, want %q", body.RunID, tt.res.RunID)
			}
		})
	}
}

func TestHandleEvent_TooManyRunsSetsRetryAfter(t *testing.T) {
	s := newTestServer(&fakeHandler{err: core.ErrTooManyRuns})
	rec := post(t, s, "/events", `{"bucket":"raw","name":"orders.csv"}`)

	if rec.Header().Get("Retry-After") == "" {
		t.Error("Retry-After header not set")
	}
}

func TestHandleEvent_BadBody(t *testing.T) {
	h := &fakeHandler{}
	s := newTestServer(h)

	rec := post(t, s, "/", `not json`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if len(h.events) != 0 {
		t.Error("pipeline should not run for a malformed body")
	}
}

func TestHandleEvent_NonFinalizeAcknowledged(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		ceType string
	}{
		{
			name: "pubsub delete notification",
			body: `{"message":{"attributes":{"bucketId":"raw","objectId":"payments.csv","eventType":"OBJECT_DELETE"}}}`,
		},
		{
			name: "pubsub metadata update",
			body: `{"message":{"attributes":{"bucketId":"raw","objectId":"payments.csv","eventType":"OBJECT_METADATA_UPDATE"}}}`,
		},
		{
			name:   "cloudevent delete",
			body:   `{"bucket":"raw","name":"payments.csv"}`,
			ceType: "google.cloud.storage.object.v1.deleted",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &fakeHandler{res: core.RunResult{Status: core.StatusLoaded}}
			s := newTestServer(h)

			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			if tt.ceType != "" {
				req.Header.Set("Ce-Type", tt.ceType)
			}
			rec := httptest.NewRecorder()
			s.Router().ServeHTTP(rec, req)

			if rec.Code != http.StatusNoContent {
				t.Errorf("status = %d, want 204", rec.Code)
			}
			if len(h.events) != 0 {
				t.Errorf("pipeline ran %d times, want 0", len(h.events))
			}
		})
	}
}

func TestHandleEvent_FinalizedCloudEventRuns(t *testing.T) {
	h := &fakeHandler{res: core.RunResult{RunID: "r1", Status: core.StatusLoaded, Entity: "payments"}}
	s := newTestServer(h)

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"bucket":"raw","name":"payments.csv"}`))
	req.Header.Set("Ce-Type", "google.cloud.storage.object.v1.finalized")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if len(h.events) != 1 {
		t.Errorf("pipeline ran %d times, want 1", len(h.events))
	}
}

func TestHandleEvent_BodyTooLarge(t *testing.T) {
	cfg := config.Default().Server
	cfg.MaxEventBytes = 16
	s := NewServer(&fakeHandler{}, cfg)

	rec := post(t, s, "/", `{"bucket":"raw","name":"a-very-long-object-name.csv"}`)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", rec.Code)
	}
}

func TestHealthAndStatus(t *testing.T) {
	s := newTestServer(&fakeHandler{})

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("GET /healthz status = %d, want 200", rec.Code)
	}

	rec = httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/status status = %d, want 200", rec.Code)
	}
	var st core.Status
	if err := json.NewDecoder(rec.Body).Decode(&st); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if len(st.Entities) != 2 {
		t.Errorf("Entities = %v, want 2 entries", st.Entities)
	}
}

func TestStatus_RequiresAPIKeyWhenConfigured(t *testing.T) {
	cfg := config.Default().Server
	cfg.APIKeys = []string{"secret"}
	s := NewServer(&fakeHandler{}, cfg)

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}

	// event routes stay open
	rec = post(t, s, "/", `{"bucket":"raw","name":"x.csv"}`)
	if rec.Code == http.StatusUnauthorized {
		t.Error("event route should not require an API key")
	}
}
