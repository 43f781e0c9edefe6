package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"StockPulse/pkg/model"
)

func TestObserveCycle(t *testing.T) {
	before := testutil.ToFloat64(CyclesTotal.WithLabelValues("completed"))
	recBefore := testutil.ToFloat64(RecordFailuresTotal)

	ObserveCycle(&model.CycleSummary{
		Status:         model.StatusCompleted,
		Duration:       1500 * time.Millisecond,
		SymbolsQueried: 12,
		RecordFailures: 2,
	})
	ObserveCycle(nil)

	require.Equal(t, before+1, testutil.ToFloat64(CyclesTotal.WithLabelValues("completed")))
	require.Equal(t, 12.0, testutil.ToFloat64(LastCycleSymbols))
	require.Equal(t, recBefore+2, testutil.ToFloat64(RecordFailuresTotal))
}

func TestObserveAlertAndChunk(t *testing.T) {
	sent := testutil.ToFloat64(AlertsTotal.WithLabelValues("sent"))
	failed := testutil.ToFloat64(QuoteChunksTotal.WithLabelValues("failed"))

	ObserveAlert(model.OutcomeSent)
	ObserveQuoteChunk(false)

	require.Equal(t, sent+1, testutil.ToFloat64(AlertsTotal.WithLabelValues("sent")))
	require.Equal(t, failed+1, testutil.ToFloat64(QuoteChunksTotal.WithLabelValues("failed")))
}
