package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmission_Observe(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewSubmission(reg)
	require.NoError(t, err)

	m.Observe("generation", 120*time.Millisecond, nil)
	m.Observe("generation", 2*time.Second, errors.New("boom"))
	m.Observe("audit", time.Millisecond, nil)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.outcomes.WithLabelValues("generation", OutcomeSuccess)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.outcomes.WithLabelValues("generation", OutcomeFailure)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.outcomes.WithLabelValues("audit", OutcomeSuccess)))
	assert.Equal(t, 2, testutil.CollectAndCount(m.stageDuration))
}

func TestSubmission_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewSubmission(reg)
	require.NoError(t, err)

	_, err = NewSubmission(reg)
	assert.Error(t, err)
}

func TestSubmission_NilIsNoop(t *testing.T) {
	var m *Submission
	assert.NotPanics(t, func() { m.Observe("audit", time.Second, nil) })
}
