package observability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsDisabledReturnsNil(t *testing.T) {
	m, err := NewMetrics(&MetricsConfig{Enabled: false})
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestNewMetricsRegistersAllCollectors(t *testing.T) {
	m, err := NewMetrics(&MetricsConfig{Enabled: true})
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.NotNil(t, m.Handler())
}

func TestObserveQueryOnNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveQuery("standard", "hybrid", 0.1)
	m.ObserveQueryError("invalid_question")
	m.ObserveRetrieval("chromem", "ok", 3, 0.02)
	m.ObserveLLMCall("anthropic", false, 0.5, nil)
	m.ObserveToolCall("calculate_drawing_dimensions", 0.01, true)
	m.ObserveAgenticRun(4, false)
	m.ObserveHTTPRequest("/query", "POST", "200", 0.3)
}
