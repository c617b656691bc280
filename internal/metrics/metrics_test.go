package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterDefaultIsIdempotent(t *testing.T) {
	RegisterDefault()
	RegisterDefault()

	Solves.WithLabelValues("alns", "solved").Inc()
	assert.Equal(t, 1.0, testutil.ToFloat64(Solves.WithLabelValues("alns", "solved")))

	mfs, err := Registry.Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, mf := range mfs {
		names[mf.GetName()] = true
	}
	assert.True(t, names["vrp_solves_total"])
	assert.True(t, names["go_goroutines"])
}
