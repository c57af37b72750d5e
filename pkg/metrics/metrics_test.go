package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phenomenon0/matchradar/pkg/match"
	"github.com/phenomenon0/matchradar/pkg/signals"
)

func TestRecordTick(t *testing.T) {
	rm := NewRadarMetrics()

	rm.RecordTick("live", 0.2, false)
	rm.RecordTick("demo", 3.0, true)
	rm.RecordTick("demo", 3.0, true)

	assert.Equal(t, 1.0, testutil.ToFloat64(rm.TicksTotal.WithLabelValues("live")))
	assert.Equal(t, 2.0, testutil.ToFloat64(rm.TicksTotal.WithLabelValues("demo")))
	assert.Equal(t, 2.0, testutil.ToFloat64(rm.FeedErrors.WithLabelValues()))
}

func TestUpdateBoard(t *testing.T) {
	rm := NewRadarMetrics()
	board, _ := match.Partition(match.DemoDataset())

	rm.UpdateBoard(signals.Summarize(board))

	assert.Equal(t, 4.0, testutil.ToFloat64(rm.BoardMatches.WithLabelValues("live")))
	assert.Equal(t, 2.0, testutil.ToFloat64(rm.BoardMatches.WithLabelValues("critical")))
}

func TestRadarAndHistory(t *testing.T) {
	rm := NewRadarMetrics()

	rm.SetRadar(true, 3)
	rm.RecordAlert("critical")
	rm.UpdateHistory(2, 3)
	rm.SetStreamClients(5)
	rm.RecordEnrichment("match", "ok", 1.5, 72, true)
	rm.ObserveMinOdds(decimal.RequireFromString("1.22"))

	assert.Equal(t, 1.0, testutil.ToFloat64(rm.RadarEnabled.WithLabelValues()))
	assert.Equal(t, 3.0, testutil.ToFloat64(rm.RadarGeneration.WithLabelValues()))
	assert.Equal(t, 1.0, testutil.ToFloat64(rm.AlertsTotal.WithLabelValues("critical")))
	assert.Equal(t, 3.0, testutil.ToFloat64(rm.HistoryEntries.WithLabelValues()))
	assert.Equal(t, 5.0, testutil.ToFloat64(rm.StreamClients.WithLabelValues()))
	assert.Equal(t, 1.0, testutil.ToFloat64(rm.EnrichmentTotal.WithLabelValues("match", "ok")))

	families, err := rm.Registry().Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestDefaultIsSingleton(t *testing.T) {
	assert.Same(t, Default(), Default())
}

func TestDecimalToFloat64(t *testing.T) {
	assert.InDelta(t, 1.25, DecimalToFloat64(decimal.RequireFromString("1.25")), 1e-9)
}
