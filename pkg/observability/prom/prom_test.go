package prom

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/checklistapp/diagram/pkg/diagram"
	"github.com/checklistapp/diagram/pkg/observability"
)

func TestMetricsFromEditor(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.Install()
	t.Cleanup(observability.Reset)

	e := diagram.New()
	_ = e.AddNode(diagram.Node{ID: "a"})
	_ = e.AddNode(diagram.Node{ID: "b", X: 300})
	src := diagram.AnchorRef{NodeID: "a", Position: diagram.E}
	dst := diagram.AnchorRef{NodeID: "b", Position: diagram.W}

	c, err := e.Connect(src, dst, "")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = e.Connect(src, dst, "")
	_ = e.Detach(c.ID)

	tests := []struct {
		name string
		c    prometheus.Collector
		want float64
	}{
		{"connect", m.connections.WithLabelValues("connect"), 1},
		{"detach", m.connections.WithLabelValues("detach"), 1},
		{"rejected", m.rejections.WithLabelValues("connect", "SOURCE_DISABLED"), 1},
	}
	for _, tt := range tests {
		if got := testutil.ToFloat64(tt.c); got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestPersistAndHTTPMetrics(t *testing.T) {
	m := New(prometheus.NewRegistry())
	ctx := context.Background()

	m.OnSaveComplete(ctx, "p", 1, 10*time.Millisecond, nil)
	m.OnSaveComplete(ctx, "p", 0, time.Millisecond, errors.New("500"))
	m.OnLoad(ctx, "p", false)
	m.OnResponse(ctx, "POST", "host", "/save/", 200, time.Millisecond)
	m.OnError(ctx, "GET", "host", "/load/", errors.New("refused"))

	checks := map[string]struct {
		c    prometheus.Collector
		want float64
	}{
		"saves ok":    {m.saves.WithLabelValues("ok"), 1},
		"saves error": {m.saves.WithLabelValues("error"), 1},
		"loads miss":  {m.loads.WithLabelValues("false"), 1},
		"responses":   {m.requests.WithLabelValues("POST", "200"), 1},
		"http errors": {m.reqErrors.WithLabelValues("GET"), 1},
	}
	for name, c := range checks {
		if got := testutil.ToFloat64(c.c); got != c.want {
			t.Errorf("%s = %v, want %v", name, got, c.want)
		}
	}
}

func TestDoubleRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	defer func() {
		if recover() == nil {
			t.Error("registering twice on one registry should panic")
		}
	}()
	New(reg)
}
