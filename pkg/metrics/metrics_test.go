package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCollectorRegistersAgainstFreshRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(Config{Namespace: "rtpmedia", Subsystem: "test", Registerer: reg})
	require.NotNil(t, c)

	c.RecordSend("audio", 160)
	c.RecordReceive("audio", 160)
	c.RecordDrop("malformed")

	mfs, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, mfs)
}

func TestCollectorRecordSendIncrementsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(Config{Registerer: reg})

	c.RecordSend("video", 1200)
	c.RecordSend("video", 800)

	assert.Equal(t, float64(2), testutil.ToFloat64(c.packetsSent.WithLabelValues("video")))
	assert.Equal(t, float64(2000), testutil.ToFloat64(c.bytesSent.WithLabelValues("video")))
}

func TestCollectorSetJitterAndFractionLost(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(Config{Registerer: reg})

	c.SetJitter("12345", 3.5)
	c.SetFractionLost("12345", 12)

	assert.Equal(t, 3.5, testutil.ToFloat64(c.jitter.WithLabelValues("12345")))
	assert.Equal(t, float64(12), testutil.ToFloat64(c.fractionLost.WithLabelValues("12345")))
}

func TestCollectorPendingQueueDepthAndDrains(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(Config{Registerer: reg})

	c.SetPendingQueueDepth("0", 4)
	c.RecordReorderDrain("0")
	c.RecordTimeout("0")

	assert.Equal(t, float64(4), testutil.ToFloat64(c.pendingQueueDepth.WithLabelValues("0")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.reorderDrains.WithLabelValues("0")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.timeoutsTotal.WithLabelValues("0")))
}

func TestNewCollectorPanicsOnDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewCollector(Config{Registerer: reg})
	assert.Panics(t, func() {
		NewCollector(Config{Registerer: reg})
	})
}
