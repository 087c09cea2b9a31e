package server

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/oddsarb/internal/domain"
	"github.com/alanyoungcy/oddsarb/internal/registry"
	"github.com/alanyoungcy/oddsarb/internal/state"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestHandler(t *testing.T) (*Handler, *registry.Registry, *state.State) {
	t.Helper()
	dir := t.TempDir()
	store, err := registry.NewFileStore(
		filepath.Join(dir, "approved.json"),
		filepath.Join(dir, "pending.csv"),
	)
	require.NoError(t, err)
	reg := registry.New(store, testLogger())
	st := state.New()
	return NewHandler(reg, st, nil, nil, testLogger()), reg, st
}

func TestListPendingEmpty(t *testing.T) {
	h, _, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.ListPending(rec, httptest.NewRequest(http.MethodGet, "/api/matches/pending", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"pending":[]}`, rec.Body.String())
}

func TestApproveEndpointPromotesCandidate(t *testing.T) {
	h, reg, _ := newTestHandler(t)

	c := domain.MatchCandidate{
		SourceTitle: "Lakers vs Celtics",
		TargetTitle: "Lakers vs. Celtics",
		TargetID:    "ev1",
		Score:       88,
	}
	require.False(t, reg.IsApproved(c)) // enqueues pending

	body := `{"source_title":"Lakers vs Celtics","target_title":"Lakers vs. Celtics","target_id":"ev1","score":88}`
	rec := httptest.NewRecorder()
	h.Approve(rec, httptest.NewRequest(http.MethodPost, "/api/matches/approve", strings.NewReader(body)))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, reg.IsApproved(c))
	assert.Empty(t, reg.Pending())
}

func TestApproveRejectsIncompleteBody(t *testing.T) {
	h, _, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.Approve(rec, httptest.NewRequest(http.MethodPost, "/api/matches/approve", strings.NewReader(`{"source_title":"x"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.Approve(rec, httptest.NewRequest(http.MethodPost, "/api/matches/approve", strings.NewReader("not json")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRejectEndpoint(t *testing.T) {
	h, reg, _ := newTestHandler(t)

	c := domain.MatchCandidate{SourceTitle: "A vs B", TargetID: "ev2"}
	require.False(t, reg.IsApproved(c))

	body := `{"source_title":"A vs B","target_id":"ev2"}`
	rec := httptest.NewRecorder()
	h.Reject(rec, httptest.NewRequest(http.MethodPost, "/api/matches/reject", strings.NewReader(body)))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, reg.Pending())
	assert.False(t, reg.IsApproved(c))
}

func TestStatusCountsState(t *testing.T) {
	h, _, st := newTestHandler(t)
	st.OpenPosition(domain.PaperPosition{TokenID: "tok1", EntryPrice: 0.4})

	rec := httptest.NewRecorder()
	h.Status(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"open_positions":1`)
}

func TestAuthMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	protected := auth("secret")(next)

	rec := httptest.NewRecorder()
	protected.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/positions", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/positions", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec = httptest.NewRecorder()
	protected.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/positions", nil)
	req.Header.Set("X-API-Key", "wrong")
	rec = httptest.NewRecorder()
	protected.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Empty key disables auth.
	open := auth("")(next)
	rec = httptest.NewRecorder()
	open.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/positions", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
