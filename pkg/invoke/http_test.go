package invoke

import (
	"bytes"
	"fmt"
	"github.com/coopernurse/esscale/pkg/scaler"
	"github.com/stretchr/testify/assert"
	"net/http"
	"net/http/httptest"
	"testing"
)

func serve(h http.Handler, method string, path string, body string) *httptest.ResponseRecorder {
	rw := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	h.ServeHTTP(rw, req)
	return rw
}

func TestHTTPScale(t *testing.T) {
	applier := &fakeApplier{out: scaler.Outcome{Message: "Scaled domain search to 6 instances (deployment type: Blue/Green)"}}
	h := NewHTTPHandler(NewInvoker(applier))

	rw := serve(h, http.MethodPost, "/scale", "")
	assert.Equal(t, http.StatusOK, rw.Code)
	assert.Equal(t, "Scaled domain search to 6 instances (deployment type: Blue/Green)\n", rw.Body.String())

	rw = serve(h, http.MethodPost, "/scale", `{"scale_type":"scale_down"}`)
	assert.Equal(t, http.StatusOK, rw.Code)
	assert.Equal(t, []scaler.ScaleType{scaler.ScaleTypeUp, scaler.ScaleTypeDown}, applier.calls)
}

func TestHTTPInvalidScaleTypeIsNotAnError(t *testing.T) {
	applier := &fakeApplier{}
	rw := serve(NewHTTPHandler(NewInvoker(applier)), http.MethodPost, "/scale", `{"scale_type":"sideways"}`)
	assert.Equal(t, http.StatusOK, rw.Code)
	assert.Contains(t, rw.Body.String(), "Invalid scale_type: sideways")
	assert.Empty(t, applier.calls)
}

func TestHTTPErrors(t *testing.T) {
	applier := &fakeApplier{err: fmt.Errorf("dry run error: nope")}
	h := NewHTTPHandler(NewInvoker(applier))

	rw := serve(h, http.MethodPost, "/scale", `{"scale_type":"scale_up"}`)
	assert.Equal(t, http.StatusInternalServerError, rw.Code)
	assert.Contains(t, rw.Body.String(), "dry run error: nope")

	rw = serve(h, http.MethodPost, "/scale", `{bad`)
	assert.Equal(t, http.StatusBadRequest, rw.Code)

	rw = serve(h, http.MethodGet, "/scale", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rw.Code)
	assert.Equal(t, http.MethodPost, rw.Header().Get("Allow"))

	assert.Equal(t, 1, applier.callCount())
}

func TestHTTPHealth(t *testing.T) {
	rw := serve(NewHTTPHandler(NewInvoker(&fakeApplier{})), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rw.Code)
}

func TestHTTPNonStringScaleTypeIsAMessage(t *testing.T) {
	applier := &fakeApplier{}
	h := NewHTTPHandler(NewInvoker(applier))

	for _, body := range []string{`{"scale_type":1}`, `{"scale_type":null}`, `{"scale_type":["scale_down"]}`} {
		rw := serve(h, http.MethodPost, "/scale", body)
		assert.Equal(t, http.StatusOK, rw.Code, body)
		assert.Contains(t, rw.Body.String(), "Invalid scale_type:", body)
	}
	assert.Empty(t, applier.calls)
}
