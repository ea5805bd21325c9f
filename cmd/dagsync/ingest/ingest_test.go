package ingest

import (
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"dagsync/cmd/dagsync/cache"
	"dagsync/cmd/dagsync/dagfile"
	"dagsync/cmd/dagsync/worker"

	"github.com/stretchr/testify/assert"
	"github.com/united-manufacturing-hub/umh-utils/logger"
)

func TestMain(m *testing.M) {
	_ = logger.New("DEVELOPMENT")
	os.Exit(m.Run())
}

func newTestRouter(t *testing.T) (*worker.Pool, http.Handler) {
	// The pool is never started, so enqueued tasks stay visible in the queue
	pool := worker.NewPool(16, cache.NewDagCache(), cache.NewUnregisteredDagCache(), dagfile.NewService(t.TempDir()), nil, false)
	return pool, SetupRouter(pool)
}

func TestIngestDagTask(t *testing.T) {
	pool, router := newTestRouter(t)

	body := `{
		"name": "etl-orders",
		"namespace": "data",
		"version": 1,
		"action": "apply",
		"spec": {"kind": "dag_file", "path": "data", "dagId": "etl_orders", "paused": false, "value": "print('x')"}
	}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/dags", strings.NewReader(body))
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, 1, pool.QueueLength())
}

func TestIngestRejectsMalformedTask(t *testing.T) {
	pool, router := newTestRouter(t)

	for _, body := range []string{
		`not json`,
		`{"name": "", "version": 1, "action": "apply", "spec": {"kind": "file", "fileName": "a.py"}}`,
		`{"name": "a", "version": 1, "action": "reap", "spec": {"kind": "file", "fileName": "a.py"}}`,
	} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/v1/dags", strings.NewReader(body))
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code, "body: %s", body)
	}
	assert.Equal(t, 0, pool.QueueLength())
}

func TestQueueLengthEndpoint(t *testing.T) {
	_, router := newTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/queue", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"length": 0}`, w.Body.String())
}
