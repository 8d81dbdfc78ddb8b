package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"csrdesk/model"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCollector_Observer(t *testing.T) {
	c := NewCollector()
	c.PollCompleted(model.SourceTracking, nil)
	c.PollCompleted(model.SourceTracking, errors.New("down"))
	c.NotificationsAdded(model.SourceWrapUp, 3)
	c.NotificationsAdded(model.SourceWrapUp, 0)
	c.Acknowledged(model.SourceProgress)
	c.RecordsImported("tickets", 5)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.pollsTotal.WithLabelValues("tracking", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.pollsTotal.WithLabelValues("tracking", "error")))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.notificationsAdded.WithLabelValues("wrapup")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.acknowledgements.WithLabelValues("progress")))
	assert.Equal(t, 5.0, testutil.ToFloat64(c.importedRecords.WithLabelValues("tickets")))
}

func TestCollector_Middleware(t *testing.T) {
	c := NewCollector()
	r := mux.NewRouter()
	r.Use(c.Middleware)
	r.HandleFunc("/api/records/{resource}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	r.Handle("/metrics", c.Handler())

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/records/tickets", nil))
	assert.Equal(t, http.StatusTeapot, rr.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(c.requestsTotal.WithLabelValues("GET", "/api/records/{resource}", "418")))

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "csrdesk_http_requests_total")
}
