package httputil

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRespondWithError(t *testing.T) {
	w := httptest.NewRecorder()
	RespondWithError(w, http.StatusNotFound, "Entry with ID 3 not found")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"Not Found","message":"Entry with ID 3 not found"}`, w.Body.String())
}

func TestRespondWithFieldErrors(t *testing.T) {
	w := httptest.NewRecorder()
	RespondWithFieldErrors(w, "hours must not be greater than 24", []map[string]string{
		{"field": "hours", "message": "must not be greater than 24"},
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{
		"error": "Bad Request",
		"message": "hours must not be greater than 24",
		"fields": [{"field": "hours", "message": "must not be greater than 24"}]
	}`, w.Body.String())
}

func TestRespondWithJSON_Unencodable(t *testing.T) {
	w := httptest.NewRecorder()
	RespondWithJSON(w, http.StatusOK, map[string]interface{}{"bad": make(chan int)})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "failed to encode response")
}
