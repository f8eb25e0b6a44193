package main

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/terralytics/carbon-cli/internal/config"
	"github.com/terralytics/carbon-cli/internal/stock"
)

func setTestConfig(t *testing.T) {
	t.Helper()
	old := cfg
	cfg = &config.Config{
		Analysis: config.AnalysisConfig{
			Threshold:   0.75,
			StockSource: string(stock.SourceHansis),
			ResolutionM: 10,
		},
	}
	t.Cleanup(func() { cfg = old })
}

const testAOIJSON = `{"type":"Feature","properties":{"name":"plot"},"geometry":{"type":"Polygon","coordinates":[[[12.0,49.4],[12.05,49.4],[12.05,49.42],[12.0,49.42],[12.0,49.4]]]}}`

func TestBuildParams(t *testing.T) {
	setTestConfig(t)

	body := `{"aoi":` + testAOIJSON + `,"start_year":2018,"end_year":2023}`
	r := httptest.NewRequest("POST", "/v1/analyze", strings.NewReader(body))

	params, err := buildParams(r)
	if err != nil {
		t.Fatalf("buildParams: %v", err)
	}
	if params.AOI.Name != "plot" {
		t.Errorf("AOI name = %q", params.AOI.Name)
	}
	if params.StartYear != 2018 || params.EndYear != 2023 {
		t.Errorf("years = %d-%d", params.StartYear, params.EndYear)
	}
	if params.Threshold != 0.75 {
		t.Errorf("threshold = %g", params.Threshold)
	}
	if params.Stocks.Source != stock.SourceHansis {
		t.Errorf("stock source = %q", params.Stocks.Source)
	}
}

func TestBuildParamsOverrides(t *testing.T) {
	setTestConfig(t)

	body := `{"aoi":` + testAOIJSON + `,"start_year":2018,"end_year":2023,"threshold":0.9,"stock_source":"ipcc"}`
	r := httptest.NewRequest("POST", "/v1/analyze", strings.NewReader(body))

	params, err := buildParams(r)
	if err != nil {
		t.Fatalf("buildParams: %v", err)
	}
	if params.Threshold != 0.9 {
		t.Errorf("threshold = %g", params.Threshold)
	}
	if params.Stocks.Source != stock.SourceIPCC {
		t.Errorf("stock source = %q", params.Stocks.Source)
	}
}

func TestBuildParamsRejectsBadInput(t *testing.T) {
	setTestConfig(t)

	cases := []struct {
		name string
		body string
	}{
		{"not json", "{"},
		{"missing aoi", `{"start_year":2018,"end_year":2023}`},
		{"bad geometry", `{"aoi":{"type":"Point","coordinates":[12.0,49.4]},"start_year":2018,"end_year":2023}`},
		{"unknown stock source", `{"aoi":` + testAOIJSON + `,"start_year":2018,"end_year":2023,"stock_source":"bogus"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest("POST", "/v1/analyze", strings.NewReader(tc.body))
			if _, err := buildParams(r); err == nil {
				t.Error("want error, got nil")
			}
		})
	}
}
