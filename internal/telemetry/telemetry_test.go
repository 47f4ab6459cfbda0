package telemetry

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/dbsmedya/outreachkpi/internal/kpi"
	"github.com/dbsmedya/outreachkpi/internal/record"
)

func newTestCollector(t *testing.T) *Collector {
	t.Helper()
	return newCollector("test", false)
}

func getGaugeValue(g prometheus.Gauge) float64 {
	m := &dto.Metric{}
	g.Write(m)
	return m.GetGauge().GetValue()
}

func getCounterValue(c prometheus.Counter) float64 {
	m := &dto.Metric{}
	c.Write(m)
	return m.GetCounter().GetValue()
}

func emailSnapshot(t *testing.T) *kpi.Snapshot {
	t.Helper()
	calc, err := kpi.NewCalculator(kpi.ShapeEmail, kpi.Options{})
	if err != nil {
		t.Fatalf("NewCalculator: %v", err)
	}
	return calc.Compute("email", []record.Record{
		{"Status": "Enviado", "Respondidos": "Sí"},
		{"Status": "Enviado", "Respondidos": "No"},
		{"Status": "Pendiente"},
		{"Status": "sent"},
	})
}

func TestObserveSnapshot(t *testing.T) {
	c := newTestCollector(t)
	c.ObserveSnapshot(emailSnapshot(t))

	if v := getGaugeValue(c.snapshotValue.WithLabelValues("email", "email", "emails_sent")); v != 3 {
		t.Errorf("expected emails_sent=3, got %v", v)
	}
	if v := getGaugeValue(c.snapshotValue.WithLabelValues("email", "email", "total_responses")); v != 1 {
		t.Errorf("expected total_responses=1, got %v", v)
	}
	if v := getGaugeValue(c.records.WithLabelValues("email")); v != 4 {
		t.Errorf("expected records=4, got %v", v)
	}

	c.ObserveSnapshot(nil)
}

func TestObserveSnapshot_ReplacesSeries(t *testing.T) {
	c := newTestCollector(t)
	c.snapshotValue.WithLabelValues("email", "email", "stale_metric").Set(9)

	c.ObserveSnapshot(emailSnapshot(t))

	if n := testSeriesCount(t, c, "test_snapshot_value"); n != 10 {
		t.Errorf("expected 10 email gauges, got %d", n)
	}
}

func TestObserveFetch(t *testing.T) {
	c := newTestCollector(t)
	at := time.Unix(1700000000, 0)

	c.ObserveFetch("linkedin", ResultSuccess, 120*time.Millisecond, at)
	c.ObserveFetch("linkedin", ResultError, time.Second, at.Add(time.Minute))
	c.ObserveFetch("linkedin", ResultError, time.Second, at.Add(2*time.Minute))

	if v := getCounterValue(c.fetchTotal.WithLabelValues("linkedin", ResultSuccess)); v != 1 {
		t.Errorf("expected 1 success, got %v", v)
	}
	if v := getCounterValue(c.fetchTotal.WithLabelValues("linkedin", ResultError)); v != 2 {
		t.Errorf("expected 2 errors, got %v", v)
	}
	if v := getGaugeValue(c.lastSuccess.WithLabelValues("linkedin")); v != 1700000000 {
		t.Errorf("last success should ignore errors, got %v", v)
	}
}

func TestRemoveDataset(t *testing.T) {
	c := newTestCollector(t)
	c.ObserveSnapshot(emailSnapshot(t))
	c.ObserveFetch("email", ResultSuccess, time.Millisecond, time.Now())
	c.PublishFailed("email")

	c.RemoveDataset("email")

	for _, name := range []string{"test_snapshot_value", "test_records", "test_fetch_total", "test_publish_errors_total"} {
		if n := testSeriesCount(t, c, name); n != 0 {
			t.Errorf("%s: expected no series, got %d", name, n)
		}
	}
}

func TestHandler(t *testing.T) {
	c := newTestCollector(t)
	c.ObserveSnapshot(emailSnapshot(t))

	srv := httptest.NewServer(c.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if !strings.Contains(string(body), `test_snapshot_value{dataset="email",metric="reply_rate",shape="email"}`) {
		t.Errorf("reply_rate series missing from output:\n%s", body)
	}
}

func testSeriesCount(t *testing.T, c *Collector, name string) int {
	t.Helper()
	families, err := c.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	for _, f := range families {
		if f.GetName() == name {
			return len(f.GetMetric())
		}
	}
	return 0
}
