package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	r := New(reg, "")

	r.Outcome("sequential", "", 100*time.Millisecond)
	r.Outcome("sequential", "payment_declined", 50*time.Millisecond)
	r.Outcome("sequential", "", 10*time.Millisecond)
	r.Retry("payment")
	r.Retry("payment")
	r.Exhausted("payment")
	r.Compensation("compensating")
	r.Notification(nil)
	r.Notification(errors.New("smtp down"))
	r.InflightInc()
	r.InflightInc()
	r.InflightDec()
	r.Skipped()

	assert.Equal(t, 2.0, testutil.ToFloat64(r.outcomes.WithLabelValues("sequential", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.outcomes.WithLabelValues("sequential", "payment_declined")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.retries.WithLabelValues("payment")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.exhausted.WithLabelValues("payment")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.compensations.WithLabelValues("compensating")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.notifications.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.notifications.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.inflight))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.skipped))

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["orderflow_workflow_outcomes_total"])
	assert.True(t, names["orderflow_workflow_duration_seconds"])
}

func TestNilRecorderIsNoop(t *testing.T) {
	t.Parallel()

	var r *Recorder
	assert.NotPanics(t, func() {
		r.Outcome("x", "", time.Second)
		r.Retry("x")
		r.Exhausted("x")
		r.Compensation("x")
		r.Notification(nil)
		r.InflightInc()
		r.InflightDec()
		r.Skipped()
	})
}

func TestDuplicateRegistrationPanics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	New(reg, "dup")
	assert.Panics(t, func() { New(reg, "dup") })
}

func TestHandlerServesRecordedMetrics(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	r := New(reg, "shop")
	r.Compensation("compensating")

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(string(body), `shop_compensations_total{pipeline="compensating"} 1`))
	assert.Contains(t, string(body), "go_goroutines")
}
