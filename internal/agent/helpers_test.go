package agent

import (
	"context"
	"io"
	"testing"

	"github.com/yndnr/botvault/internal/telemetry/logger"
	"github.com/yndnr/botvault/internal/telemetry/metric"
)

func testLogger(t *testing.T) logger.Logger {
	t.Helper()
	l, err := logger.New(logger.Config{Level: "debug", Format: "json", Output: io.Discard})
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return l
}

func newTestRegistry(t *testing.T, m *metric.Metrics) *Registry {
	t.Helper()
	reg := NewRegistry(RegistryConfig{
		DataDir: t.TempDir(),
		Logger:  testLogger(t),
		Metrics: m,
	})
	t.Cleanup(func() { reg.Close() })
	return reg
}

func openAccount(t *testing.T, reg *Registry, name string) *Account {
	t.Helper()
	acct, err := reg.Open(context.Background(), name)
	if err != nil {
		t.Fatalf("Open(%q): %v", name, err)
	}
	return acct
}

// counterValue sums the counter samples of name whose labels include want.
func counterValue(t *testing.T, m *metric.Metrics, name string, want map[string]string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	var total float64
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	samples:
		for _, sample := range mf.GetMetric() {
			labels := map[string]string{}
			for _, lp := range sample.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			for k, v := range want {
				if labels[k] != v {
					continue samples
				}
			}
			total += sample.GetCounter().GetValue()
		}
	}
	return total
}
