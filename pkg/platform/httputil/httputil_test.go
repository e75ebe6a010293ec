package httputil

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "xs2a/pkg/domain-errors"
)

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, http.StatusCreated, map[string]string{"scaStatus": "received"})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"scaStatus":"received"}`, rec.Body.String())
}

func TestWriteError(t *testing.T) {
	decode := func(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
		t.Helper()
		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		return body
	}

	t.Run("maps domain codes onto HTTP statuses", func(t *testing.T) {
		for _, tc := range []struct {
			code dErrors.Code
			want int
		}{
			{dErrors.CodeValidation, http.StatusBadRequest},
			{dErrors.CodeInvalidInput, http.StatusBadRequest},
			{dErrors.CodeBadRequest, http.StatusBadRequest},
			{dErrors.CodeUnauthorized, http.StatusUnauthorized},
			{dErrors.CodeForbidden, http.StatusForbidden},
			{dErrors.CodeNotFound, http.StatusNotFound},
			{dErrors.CodeConflict, http.StatusConflict},
			{dErrors.CodeTimeout, http.StatusGatewayTimeout},
			{dErrors.CodeInternal, http.StatusInternalServerError},
			{dErrors.CodeConfiguration, http.StatusInternalServerError},
		} {
			rec := httptest.NewRecorder()
			WriteError(rec, dErrors.New(tc.code, "boom"))
			assert.Equal(t, tc.want, rec.Code, tc.code)
		}
	})

	t.Run("client faults carry the description", func(t *testing.T) {
		rec := httptest.NewRecorder()
		WriteError(rec, dErrors.New(dErrors.CodeNotFound, "authorisation not found"))

		body := decode(t, rec)
		assert.Equal(t, "not_found", body["error"])
		assert.Equal(t, "authorisation not found", body["error_description"])
	})

	t.Run("server faults omit the description", func(t *testing.T) {
		rec := httptest.NewRecorder()
		WriteError(rec, dErrors.New(dErrors.CodeInternal, "pq: connection refused"))

		body := decode(t, rec)
		assert.Equal(t, "internal_error", body["error"])
		_, leaked := body["error_description"]
		assert.False(t, leaked)
	})
}

type decodeTarget struct {
	Name string `json:"name"`

	validateErr error
}

func (d *decodeTarget) Validate() error {
	return d.validateErr
}

func TestDecodeAndPrepare(t *testing.T) {
	t.Run("decodes and validates the body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"psu-1"}`))
		rec := httptest.NewRecorder()

		got, ok := DecodeAndPrepare[decodeTarget](rec, req, nil, context.Background(), "req-1")
		require.True(t, ok)
		assert.Equal(t, "psu-1", got.Name)
	})

	t.Run("an empty body skips decoding but still validates", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		rec := httptest.NewRecorder()

		got, ok := DecodeAndPrepare[decodeTarget](rec, req, nil, context.Background(), "req-1")
		require.True(t, ok)
		assert.Empty(t, got.Name)
	})

	t.Run("malformed JSON is a bad request", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{oops"))
		rec := httptest.NewRecorder()

		_, ok := DecodeAndPrepare[decodeTarget](rec, req, nil, context.Background(), "req-1")
		require.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
