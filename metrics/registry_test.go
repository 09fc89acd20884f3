package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComponentRegistry_ScopesNames(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	r := NewComponentRegistryWith(reg, Namespace, "dispatch")

	c := r.NewCounterVec(prometheus.CounterOpts{Name: "calls_total", Help: "calls"}, []string{"outcome"})
	c.WithLabelValues("ok").Inc()

	families, err := reg.Gather()
	require.NoError(t, err)
	require.Len(t, families, 1)
	assert.Equal(t, "aebridge_dispatch_calls_total", families[0].GetName())
	require.Len(t, families[0].GetMetric(), 1)
	assert.Equal(t, 1.0, families[0].GetMetric()[0].GetCounter().GetValue())
}

func TestGetRegistry_Shared(t *testing.T) {
	t.Parallel()

	reg := GetRegistry()
	assert.Same(t, reg, GetRegistry())

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families, "runtime collectors are registered")
}
