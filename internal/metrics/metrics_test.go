package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveSource(t *testing.T) {
	m := New()

	m.ObserveSource("lenta", 3, time.Second, nil)
	m.ObserveSource("lenta", 2, time.Second, nil)
	m.ObserveSource("lenta", 0, time.Second, errors.New("boom"))

	assert.InDelta(t, 5, testutil.ToFloat64(m.ArticlesCollected.WithLabelValues("lenta")), 0.001)
	assert.InDelta(t, 1, testutil.ToFloat64(m.SourceErrors.WithLabelValues("lenta")), 0.001)
}

func TestCyclesAndLeader(t *testing.T) {
	m := New()

	m.ObserveCycle("collector", OutcomeDone)
	m.ObserveCycle("collector", OutcomeSkipped)
	m.SetLeader("collector", true)

	assert.InDelta(t, 1, testutil.ToFloat64(m.Cycles.WithLabelValues("collector", OutcomeDone)), 0.001)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Leader.WithLabelValues("collector")), 0.001)

	m.SetLeader("collector", false)
	assert.InDelta(t, 0, testutil.ToFloat64(m.Leader.WithLabelValues("collector")), 0.001)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObserveSource("x", 1, time.Second, nil)
		m.ObserveCycle("collector", OutcomeDone)
		m.ObservePublish(nil)
		m.SetLeader("collector", true)
	})
	assert.Nil(t, m.Registry())
}
