package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestMailMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMailMetrics(reg)
	kind := "password_reset"
	metrics.ObserveDuration(kind, 250*time.Millisecond)
	metrics.IncSuccess(kind)
	metrics.IncFailure(kind)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "mail_delivery_success", "kind", kind); err != nil {
		t.Fatalf("fetch success: %v", err)
	} else if got != 1 {
		t.Fatalf("expected success=1, got %f", got)
	}
	if got, err := fetchCounterValue(mfs, "mail_delivery_failure", "kind", kind); err != nil {
		t.Fatalf("fetch failure: %v", err)
	} else if got != 1 {
		t.Fatalf("expected failure=1, got %f", got)
	}
	if got, err := fetchHistogramSum(mfs, "mail_delivery_duration_seconds", "kind", kind); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got < 0.2 || got > 0.3 {
		t.Fatalf("unexpected duration sum %f", got)
	}
}

func TestMailMetricsNilSafe(t *testing.T) {
	var metrics *MailMetrics
	metrics.ObserveDuration("x", time.Second)
	metrics.IncSuccess("x")
	metrics.IncFailure("x")

	empty := NewMailMetrics(nil)
	empty.IncSuccess("x")
}
