package statistics_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"velvet-server/internal/infrastructure/statistics"
)

func seriesBody(title string) string {
	return fmt.Sprintf(`{
		"config": {"title": %q, "series": [{"name": "monthly"}]},
		"periods": [
			{"name": "Ene.2024", "values": ["3.2"]},
			{"name": "Feb.2024", "values": ["3.0"]}
		]
	}`, title)
}

func TestFetchMergesSeriesInInputOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.Contains(r.URL.Path, "PN01288PM"):
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, seriesBody("Inflation"))
		case strings.Contains(r.URL.Path, "PD04637PD"):
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, seriesBody("Exchange rate"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := statistics.NewClient(srv.URL, 2*time.Second, zerolog.Nop())
	defer c.Close()

	series, err := c.Fetch(context.Background(), []string{"PN01288PM", "PD04637PD"})
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if len(series) != 2 {
		t.Fatalf("expected 2 series, got %d", len(series))
	}
	if series[0].Code != "PN01288PM" || series[1].Code != "PD04637PD" {
		t.Errorf("series out of input order: %s, %s", series[0].Code, series[1].Code)
	}
	if series[0].Name != "Inflation" {
		t.Errorf("series name not parsed, got %q", series[0].Name)
	}
	if len(series[0].Points) != 2 || series[0].Points[0].Value != "3.2" {
		t.Errorf("observations not parsed: %+v", series[0].Points)
	}
}

func TestFetchSkipsFailedCodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "BADCODE") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, seriesBody("Inflation"))
	}))
	defer srv.Close()

	c := statistics.NewClient(srv.URL, 2*time.Second, zerolog.Nop())
	defer c.Close()

	series, err := c.Fetch(context.Background(), []string{"BADCODE", "PN01288PM"})
	if err != nil {
		t.Fatalf("partial failure must not error: %v", err)
	}
	if len(series) != 1 || series[0].Code != "PN01288PM" {
		t.Fatalf("expected only the good series, got %+v", series)
	}
}

func TestFetchErrorsWhenAllCodesFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := statistics.NewClient(srv.URL, 2*time.Second, zerolog.Nop())
	defer c.Close()

	if _, err := c.Fetch(context.Background(), []string{"A", "B"}); err == nil {
		t.Fatal("expected error when every series lookup fails")
	}
}

func TestFetchNoCodes(t *testing.T) {
	c := statistics.NewClient("http://127.0.0.1:1", time.Second, zerolog.Nop())
	defer c.Close()

	series, err := c.Fetch(context.Background(), nil)
	if err != nil || series != nil {
		t.Fatalf("expected nil, nil for no codes, got %v, %v", series, err)
	}
}

func TestHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, seriesBody("Inflation"))
	}))
	defer srv.Close()

	c := statistics.NewClient(srv.URL, 2*time.Second, zerolog.Nop())
	defer c.Close()
	if got := c.Health(context.Background(), "PN01288PM"); got != "healthy" {
		t.Fatalf("expected healthy, got %q", got)
	}

	down := statistics.NewClient("http://127.0.0.1:1", time.Second, zerolog.Nop())
	defer down.Close()
	if got := down.Health(context.Background(), "PN01288PM"); got != "unhealthy" {
		t.Fatalf("expected unhealthy, got %q", got)
	}
}
