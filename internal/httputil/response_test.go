package httputil

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/bgfactura/invoicing/internal/errors"
	"github.com/bgfactura/invoicing/internal/logging"
)

func TestWriteErrorMapsServiceErrors(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/clients/9", nil)
	req = req.WithContext(logging.WithTraceID(req.Context(), "trace-9"))
	rec := httptest.NewRecorder()

	WriteError(rec, req, fmt.Errorf("lookup: %w", errors.NotFound("client")))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	body := rec.Body.Bytes()
	assert.Equal(t, "client not found", gjson.GetBytes(body, "error").String())
	assert.Equal(t, "NOT_FOUND", gjson.GetBytes(body, "code").String())
	assert.Equal(t, "trace-9", gjson.GetBytes(body, "traceId").String())
}

func TestWriteErrorHidesInternalDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, httptest.NewRequest(http.MethodGet, "/", nil), fmt.Errorf("pq: relation does not exist"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal server error", gjson.Get(rec.Body.String(), "error").String())
}

func TestDecodeJSON(t *testing.T) {
	var dst struct {
		Name string `json:"name"`
	}
	require.NoError(t, DecodeJSON(io.NopCloser(strings.NewReader(`{"name":"Acme","extra":1}`)), &dst))
	assert.Equal(t, "Acme", dst.Name)

	err := DecodeJSON(io.NopCloser(strings.NewReader("")), &dst)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, errors.HTTPStatus(err))

	err = DecodeJSON(io.NopCloser(strings.NewReader("{")), &dst)
	assert.Equal(t, http.StatusBadRequest, errors.HTTPStatus(err))
}
