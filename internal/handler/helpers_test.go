package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/lunchvote/api/internal/clock"
	"github.com/lunchvote/api/internal/state"
	"github.com/lunchvote/api/internal/store"
)

const testSecret = "test-secret"

// stubPhase pins the phase for write-gating tests.
type stubPhase struct {
	info state.PhaseInfo
}

func (s *stubPhase) Current() state.PhaseInfo { return s.info }

func phaseAt(phase string) *stubPhase {
	return &stubPhase{info: state.PhaseInfo{Phase: phase}}
}

// newRepo builds a repository on a memory store with the base date pinned
// to 2024-05-10.
func newRepo(t *testing.T) *state.Repository {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Taipei")
	if err != nil {
		t.Fatalf("load timezone: %v", err)
	}
	clk := clock.NewFixed(time.Date(2024, 5, 9, 12, 0, 0, 0, loc))
	repo := state.NewRepository(state.Options{Local: store.NewMemory(), Clock: clk})
	repo.Load(context.Background())
	base := "2024-05-10"
	if err := repo.PatchSettings(state.SettingsPatch{BaseDate: &base}); err != nil {
		t.Fatalf("patch base date: %v", err)
	}
	return repo
}

// --- Request helpers ---

func doJSON(t *testing.T, router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func postJSON(t *testing.T, router http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	return doJSON(t, router, "POST", path, body)
}

func getJSON(t *testing.T, router http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeResponse(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}
