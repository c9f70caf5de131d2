package cuts

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func newTestRouter(repo *memoryRepo) http.Handler {
	h := NewHandler(testLogger(), newTestService(repo))
	r := chi.NewRouter()
	h.MountRoutes(r)
	return r
}

func doJSON(t *testing.T, router http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandlerPreview(t *testing.T) {
	repo := newMemoryRepo()
	seedOrder(repo)
	router := newTestRouter(repo)

	rec := doJSON(t, router, http.MethodGet, "/orders/1/cuts/preview?start=2025-06-01&end=2025-06-30", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Suggestions []ConceptSuggestion `json:"suggestions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Suggestions, 2)
	require.InDelta(t, 25.0, resp.Suggestions[0].Suggestion, 0.001)
}

func TestHandlerPreviewInvalidWindow(t *testing.T) {
	repo := newMemoryRepo()
	seedOrder(repo)
	router := newTestRouter(repo)

	rec := doJSON(t, router, http.MethodGet, "/orders/1/cuts/preview?start=2025-07-01&end=2025-06-01", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/orders/1/cuts/preview?start=not-a-date", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerPreviewUnknownOrder(t *testing.T) {
	router := newTestRouter(newMemoryRepo())

	rec := doJSON(t, router, http.MethodGet, "/orders/99/cuts/preview", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerCreateCut(t *testing.T) {
	repo := newMemoryRepo()
	seedOrder(repo)
	router := newTestRouter(repo)

	rec := doJSON(t, router, http.MethodPost, "/orders/1/cuts", map[string]any{
		"actor_id": 9,
		"details": []map[string]any{
			{"line_kind": "SERVICE_LINE", "line_id": 11, "quantity": 25},
			{"line_kind": "SERVICE_LINE", "line_id": 12, "quantity": 2},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var result CutResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.Equal(t, "OT-2025-0007-C01", result.Folio)
	require.Equal(t, CutStatusReadyToBill, result.Status)
	require.NotNil(t, result.ChildOrder)
}

func TestHandlerCreateCutOverCut(t *testing.T) {
	repo := newMemoryRepo()
	seedOrder(repo)
	router := newTestRouter(repo)

	rec := doJSON(t, router, http.MethodPost, "/orders/1/cuts", map[string]any{
		"actor_id": 9,
		"details": []map[string]any{
			{"line_kind": "SERVICE_LINE", "line_id": 11, "quantity": 60},
		},
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Contains(t, rec.Body.String(), "exceeds executed-not-yet-cut")
}

func TestHandlerCreateCutValidation(t *testing.T) {
	repo := newMemoryRepo()
	seedOrder(repo)
	router := newTestRouter(repo)

	// Missing actor and empty details fail structural validation.
	rec := doJSON(t, router, http.MethodPost, "/orders/1/cuts", map[string]any{
		"details": []map[string]any{},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/orders/1/cuts", map[string]any{
		"actor_id": 9,
		"details": []map[string]any{
			{"line_kind": "BAD_KIND", "line_id": 11, "quantity": 1},
		},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerShowAndList(t *testing.T) {
	repo := newMemoryRepo()
	seedOrder(repo)
	router := newTestRouter(repo)

	rec := doJSON(t, router, http.MethodPost, "/orders/1/cuts", map[string]any{
		"actor_id": 9,
		"details": []map[string]any{
			{"line_kind": "SERVICE_LINE", "line_id": 11, "quantity": 5},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created CutResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = doJSON(t, router, http.MethodGet, "/cuts/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/cuts/999", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/orders/1/cuts", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listing struct {
		Cuts []CutResult `json:"cuts"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listing))
	require.Len(t, listing.Cuts, 1)
}

func TestHandlerUpdateStatus(t *testing.T) {
	repo := newMemoryRepo()
	seedOrder(repo)
	router := newTestRouter(repo)

	rec := doJSON(t, router, http.MethodPost, "/orders/1/cuts", map[string]any{
		"actor_id": 9,
		"details": []map[string]any{
			{"line_kind": "SERVICE_LINE", "line_id": 11, "quantity": 5},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/cuts/1/status", map[string]any{
		"status": "BILLED", "actor_id": 9,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/cuts/1/status", map[string]any{
		"status": "VOID", "actor_id": 9,
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/cuts/1/status", map[string]any{
		"status": "SHIPPED", "actor_id": 9,
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
