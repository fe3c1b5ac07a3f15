package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/context0/memory-ledger/internal/logger"
)

func TestPrometheusScrape(t *testing.T) {
	reg := prom.NewRegistry()
	mp, err := NewMetricProvider(context.Background(), WithServiceName("test"), WithPrometheus(reg))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	counter, err := mp.Meter("metrics-test").Int64Counter("scrape_probe")
	if err != nil {
		t.Fatal(err)
	}
	counter.Add(context.Background(), 3)

	srv := httptest.NewServer(NewServer(0, reg, logger.Discard()).Handler())
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), "scrape_probe") {
		t.Fatalf("counter missing from scrape:\n%s", body)
	}
}

func TestUnknownProvider(t *testing.T) {
	_, err := NewMetricProvider(context.Background(), WithProviderConfig(ProviderCfg{Provider: "statsd"}))
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestStopWithoutStart(t *testing.T) {
	if err := NewServer(0, nil, logger.Discard()).Stop(context.Background()); err != nil {
		t.Fatal(err)
	}
}
