package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestServerMetricsAreRegisteredAndObservable(t *testing.T) {
	reg := prometheus.NewRegistry()
	srv := NewServer(reg, prometheus.Labels{"instance": "test"})

	srv.ConnectedPlayers.Set(3)
	srv.DroppedInputs.Inc()
	srv.TickDuration.Observe(0.008)

	if got := testutil.ToFloat64(srv.ConnectedPlayers); got != 3 {
		t.Errorf("ConnectedPlayers = %v, want 3", got)
	}
	if got := testutil.ToFloat64(srv.DroppedInputs); got != 1 {
		t.Errorf("DroppedInputs = %v, want 1", got)
	}
}

func TestClientMetricsAreRegisteredAndObservable(t *testing.T) {
	reg := prometheus.NewRegistry()
	cli := NewClient(reg, nil)

	cli.SnapshotsApplied.Inc()
	cli.RoundTripSeconds.Observe(0.05)

	if got := testutil.ToFloat64(cli.SnapshotsApplied); got != 1 {
		t.Errorf("SnapshotsApplied = %v, want 1", got)
	}
}
