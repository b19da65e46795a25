package entry

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bohdanadamenko/mini-time-tracker/internal/httputil"
	"github.com/bohdanadamenko/mini-time-tracker/internal/logger"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type errorBody struct {
	Error   string       `json:"error"`
	Message string       `json:"message"`
	Fields  []FieldError `json:"fields"`
}

func newTestRouter(t *testing.T) (chi.Router, *memoryRepository) {
	t.Helper()

	repo := newMemoryRepository()
	handler := NewHandler(newTestService(repo, nil), logger.NewWithWriter(io.Discard, true))
	router := chi.NewRouter()
	handler.RegisterRoutes(router)
	return router, repo
}

func doRequest(t *testing.T, router http.Handler, method, target string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var body io.Reader
	switch p := payload.(type) {
	case nil:
	case string:
		body = bytes.NewBufferString(p)
	default:
		raw, err := json.Marshal(p)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorBody {
	t.Helper()

	var body errorBody
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body
}

func createPayload(date string, h float64) map[string]interface{} {
	return map[string]interface{}{
		"date":        date,
		"project":     "Client A",
		"hours":       h,
		"description": "Feature work",
	}
}

func TestHandler_CreateEntry(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doRequest(t, router, http.MethodPost, "/entries", createPayload("2024-01-15", 8))
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var raw map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&raw))
	assert.Equal(t, float64(1), raw["id"])
	assert.Equal(t, "Client A", raw["project"])
	assert.Equal(t, float64(8), raw["hours"])
	assert.Equal(t, "2024-01-15T00:00:00Z", raw["date"])
	assert.Contains(t, raw, "createdAt")
	assert.Contains(t, raw, "updatedAt")

	for i := 0; i < 2; i++ {
		w = doRequest(t, router, http.MethodPost, "/entries", createPayload("2024-01-15", 8))
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w = doRequest(t, router, http.MethodPost, "/entries", createPayload("2024-01-15T09:00:00.000Z", 0.1))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeError(t, w)
	assert.Equal(t, "Bad Request", body.Error)
	assert.Equal(t, "Total hours for a single day cannot exceed 24 hours", body.Message)
	assert.Empty(t, body.Fields)
}

func TestHandler_CreateEntry_Invalid(t *testing.T) {
	router, repo := newTestRouter(t)

	tests := []struct {
		name    string
		payload interface{}
		fields  []string
	}{
		{name: "missing fields", payload: map[string]interface{}{}, fields: []string{"date", "project", "hours", "description"}},
		{name: "hours too small", payload: createPayload("2024-01-15", 0), fields: []string{"hours"}},
		{name: "hours too large", payload: createPayload("2024-01-15", 25), fields: []string{"hours"}},
		{name: "bad date", payload: createPayload("15/01/2024", 1), fields: []string{"date"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(t, router, http.MethodPost, "/entries", tt.payload)
			assert.Equal(t, http.StatusBadRequest, w.Code)

			body := decodeError(t, w)
			var names []string
			for _, f := range body.Fields {
				names = append(names, f.Field)
			}
			assert.ElementsMatch(t, tt.fields, names)
			assert.NotEmpty(t, body.Message)
		})
	}

	t.Run("malformed json", func(t *testing.T) {
		w := doRequest(t, router, http.MethodPost, "/entries", `{"date":`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Invalid request body", decodeError(t, w).Message)
	})

	assert.Empty(t, repo.entries)
}

func TestHandler_GetEntry(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doRequest(t, router, http.MethodPost, "/entries", createPayload("2024-01-15", 2))
	require.Equal(t, http.StatusCreated, w.Code)

	w = doRequest(t, router, http.MethodGet, "/entries/1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got Entry
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.Equal(t, 1, got.ID)
	assert.True(t, got.Hours.Equal(hours("2")))

	w = doRequest(t, router, http.MethodGet, "/entries/99", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Entry with ID 99 not found", decodeError(t, w).Message)

	for _, id := range []string{"abc", "1.5"} {
		w = doRequest(t, router, http.MethodGet, "/entries/"+id, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, id)
		assert.Equal(t, "Invalid entry ID", decodeError(t, w).Message)
	}
}

func TestHandler_NonPositiveIDsAreNotFound(t *testing.T) {
	router, _ := newTestRouter(t)

	for _, id := range []string{"0", "-3"} {
		w := doRequest(t, router, http.MethodGet, "/entries/"+id, nil)
		assert.Equal(t, http.StatusNotFound, w.Code, id)
		assert.Equal(t, "Entry with ID "+id+" not found", decodeError(t, w).Message)

		w = doRequest(t, router, http.MethodPut, "/entries/"+id, map[string]interface{}{"description": "x"})
		assert.Equal(t, http.StatusNotFound, w.Code, id)

		w = doRequest(t, router, http.MethodDelete, "/entries/"+id, nil)
		assert.Equal(t, http.StatusNotFound, w.Code, id)
	}
}

func TestHandler_ListEntries(t *testing.T) {
	router, _ := newTestRouter(t)

	for _, date := range []string{"2024-01-10", "2024-01-11", "2024-01-12"} {
		w := doRequest(t, router, http.MethodPost, "/entries", createPayload(date, 1))
		require.Equal(t, http.StatusCreated, w.Code)
	}

	t.Run("paged", func(t *testing.T) {
		w := doRequest(t, router, http.MethodGet, "/entries?page=1&limit=2", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var raw struct {
			Data []Entry                `json:"data"`
			Meta map[string]interface{} `json:"meta"`
		}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&raw))
		require.Len(t, raw.Data, 2)
		assert.Equal(t, 3, raw.Data[0].ID)
		assert.Equal(t, float64(3), raw.Meta["total"])
		assert.Equal(t, float64(1), raw.Meta["page"])
		assert.Equal(t, float64(2), raw.Meta["last_page"])
	})

	t.Run("date range", func(t *testing.T) {
		w := doRequest(t, router, http.MethodGet, "/entries?startDate=2024-01-11&endDate=2024-01-11", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var page Page
		require.NoError(t, json.NewDecoder(w.Body).Decode(&page))
		require.Len(t, page.Data, 1)
		assert.Equal(t, 2, page.Data[0].ID)
	})

	t.Run("empty result", func(t *testing.T) {
		w := doRequest(t, router, http.MethodGet, "/entries?project=nobody", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"data":[],"meta":{"total":0,"page":1,"last_page":0}}`, w.Body.String())
	})

	t.Run("invalid query", func(t *testing.T) {
		w := doRequest(t, router, http.MethodGet, "/entries?limit=-1", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "limit", decodeError(t, w).Fields[0].Field)
	})
}

func TestHandler_GetTotalHours(t *testing.T) {
	router, _ := newTestRouter(t)

	for _, h := range []float64{7.5, 0.25} {
		w := doRequest(t, router, http.MethodPost, "/entries", createPayload("2024-01-15", h))
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := doRequest(t, router, http.MethodGet, "/entries/total-hours?date=2024-01-15", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"total":7.75}`, w.Body.String())

	w = doRequest(t, router, http.MethodGet, "/entries/total-hours?date=2024-02-01", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"total":0}`, w.Body.String())

	w = doRequest(t, router, http.MethodGet, "/entries/total-hours", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_UpdateEntry(t *testing.T) {
	router, _ := newTestRouter(t)

	for i := 0; i < 3; i++ {
		w := doRequest(t, router, http.MethodPost, "/entries", createPayload("2024-01-15", 8))
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := doRequest(t, router, http.MethodPut, "/entries/1", map[string]interface{}{"hours": 8, "description": "Review"})
	require.Equal(t, http.StatusOK, w.Code)
	var updated Entry
	require.NoError(t, json.NewDecoder(w.Body).Decode(&updated))
	assert.Equal(t, "Review", updated.Description)
	assert.Equal(t, "Client A", updated.Project)

	w = doRequest(t, router, http.MethodPut, "/entries/1", map[string]interface{}{"hours": 8.5})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Total hours for a single day cannot exceed 24 hours", decodeError(t, w).Message)

	w = doRequest(t, router, http.MethodPut, "/entries/1", map[string]interface{}{"project": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(t, router, http.MethodPut, "/entries/42", map[string]interface{}{"description": "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_DeleteEntry(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doRequest(t, router, http.MethodPost, "/entries", createPayload("2024-01-15", 3))
	require.Equal(t, http.StatusCreated, w.Code)

	w = doRequest(t, router, http.MethodDelete, "/entries/1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var deleted Entry
	require.NoError(t, json.NewDecoder(w.Body).Decode(&deleted))
	assert.Equal(t, 1, deleted.ID)

	w = doRequest(t, router, http.MethodDelete, "/entries/1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	var body httputil.ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "Not Found", body.Error)
}
