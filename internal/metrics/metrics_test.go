package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"visitor-register-backend/internal/lifecycle"
	"visitor-register-backend/internal/model"
)

func TestRecorder(t *testing.T) {
	r := NewRecorder()

	r.Notify(model.VisitorEvent{Kind: model.StatusEntered})
	r.Notify(model.VisitorEvent{Kind: model.StatusEntered})
	r.Notify(model.VisitorEvent{Kind: model.StatusExited})
	r.ObserveScan(lifecycle.OutcomeAlreadyExited)
	r.ObserveImport(3, 1)

	w := httptest.NewRecorder()
	r.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `visitor_events_total{kind="entered"} 2`)
	assert.Contains(t, body, `visitor_events_total{kind="exited"} 1`)
	assert.Contains(t, body, `visitor_scans_total{outcome="already_exited"} 1`)
	assert.Contains(t, body, `visitor_import_rows_total{result="skipped"} 1`)
	assert.Contains(t, body, "go_goroutines")
}
