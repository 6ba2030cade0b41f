package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"causalkv/internal/controller"
	"causalkv/internal/transport"
)

func newTestRouter(t *testing.T, selfID string, members ...string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tr := transport.NewInMemory()
	ctrl := controller.New(selfID, members, tr)
	t.Cleanup(ctrl.Close)
	tr.Register(selfID, ctrl)

	r := gin.New()
	NewHandler(ctrl).Register(r)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealthHandler(t *testing.T) {
	r := newTestRouter(t, "n1", "n1", "n2")

	w := doJSON(t, r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var health controller.Health
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, "n1", health.NodeID)
	assert.Equal(t, 0, health.StoreSize)
}

func TestCreateThenGet(t *testing.T) {
	r := newTestRouter(t, "n1", "n1", "n2")

	w := doJSON(t, r, http.MethodPost, "/alumnos", map[string]any{"key": "A", "name": "x"})
	require.Equal(t, http.StatusOK, w.Code)

	var created struct {
		Key string            `json:"key"`
		VC  map[string]uint64 `json:"vc"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "A", created.Key)
	assert.Equal(t, uint64(1), created.VC["n1"])

	w = doJSON(t, r, http.MethodGet, "/alumnos/A", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCreateDuplicateKeyIsValidationError(t *testing.T) {
	r := newTestRouter(t, "n1", "n1", "n2")

	w := doJSON(t, r, http.MethodPost, "/alumnos", map[string]any{"key": "A", "name": "x"})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodPost, "/alumnos", map[string]any{"key": "A", "name": "y"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, string(controller.KindValidation), body["kind"])
}

func TestGetMissingKeyIsNotFound(t *testing.T) {
	r := newTestRouter(t, "n1", "n1", "n2")

	w := doJSON(t, r, http.MethodGet, "/alumnos/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, string(controller.KindNotFound), body["kind"])
}

func TestUpdateMissingKeyIsNotFound(t *testing.T) {
	r := newTestRouter(t, "n1", "n1", "n2")

	w := doJSON(t, r, http.MethodPut, "/alumnos/missing", map[string]any{"name": "y"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReplicateUnknownOriginIsProtocolError(t *testing.T) {
	r := newTestRouter(t, "n1", "n1", "n2")

	op := map[string]any{
		"op_id":   "some-id",
		"kind":    "CREATE",
		"key":     "A",
		"payload": map[string]any{"name": "x"},
		"origin":  "ghost",
		"vc":      map[string]uint64{"n1": 0, "n2": 0},
	}
	w := doJSON(t, r, http.MethodPost, "/replicate", op)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, string(controller.KindProtocol), body["kind"])
}

func TestReplicateAcceptsAndReportsDeliveredNow(t *testing.T) {
	r := newTestRouter(t, "n2", "n1", "n2")

	op := map[string]any{
		"op_id":   "op-1",
		"kind":    "CREATE",
		"key":     "A",
		"payload": map[string]any{"name": "x"},
		"origin":  "n1",
		"vc":      map[string]uint64{"n1": 1, "n2": 0},
	}
	w := doJSON(t, r, http.MethodPost, "/replicate", op)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, true, body["accepted"])
	assert.Equal(t, true, body["delivered_now"])
}

func TestLogAndQueueEndpoints(t *testing.T) {
	r := newTestRouter(t, "n1", "n1", "n2")

	w := doJSON(t, r, http.MethodPost, "/alumnos", map[string]any{"key": "A", "name": "x"})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, "/log", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var ops []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ops))
	assert.Len(t, ops, 1)

	w = doJSON(t, r, http.MethodGet, "/queue", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var queued []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &queued))
	assert.Len(t, queued, 0)
}
