// Package lulcsvc provides a client for the external LULC classification
// service. The service classifies satellite imagery for a bounding box and
// time window and returns a class raster with a parallel confidence raster.
package lulcsvc

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/terralytics/carbon-cli/internal/lulc"
	"github.com/terralytics/carbon-cli/internal/raster"
)

// Client defines the classification service operations.
type Client interface {
	// Classify requests a LULC classification for a bounding box and year.
	// Upstream failures (no usable imagery, service errors) are returned
	// unchanged; the caller decides what to do with them.
	Classify(ctx context.Context, req ClassifyRequest) (*Snapshot, error)
}

// ClassifyRequest describes one classification work unit. Imagery is drawn
// from July of the requested year, matching the service contract.
type ClassifyRequest struct {
	MinLon      float64 `json:"min_lon"`
	MinLat      float64 `json:"min_lat"`
	MaxLon      float64 `json:"max_lon"`
	MaxLat      float64 `json:"max_lat"`
	Year        int     `json:"year"`
	ResolutionM float64 `json:"resolution_m"`
}

// Snapshot is one classified raster with its confidence mask.
type Snapshot struct {
	Classes    *raster.ClassGrid
	Confidence *raster.ConfGrid
}

// classifyResponse is the wire shape of a classification result.
type classifyResponse struct {
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	OriginX     float64   `json:"origin_x"`
	OriginY     float64   `json:"origin_y"`
	ResolutionM float64   `json:"resolution_m"`
	Classes     []uint8   `json:"classes"`
	Confidence  []float64 `json:"confidence"`
}

type httpClient struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

// Option configures the client.
type Option func(*httpClient)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		c.client.Timeout = d
	}
}

// WithRateLimit caps requests per second against the service.
func WithRateLimit(perSec float64) Option {
	return func(c *httpClient) {
		c.limiter = rate.NewLimiter(rate.Limit(perSec), 1)
	}
}

// New creates a classification service client.
func New(baseURL string, opts ...Option) Client {
	c := &httpClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 120 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(2), 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) Classify(ctx context.Context, req ClassifyRequest) (*Snapshot, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "lulcsvc: rate limit wait")
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, eris.Wrap(err, "lulcsvc: marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/classify", bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "lulcsvc: build request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "lulcsvc: classify request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, eris.Errorf("lulcsvc: classify returned %d: %s", resp.StatusCode, msg)
	}

	var wire classifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, eris.Wrap(err, "lulcsvc: decode response")
	}

	return wire.toSnapshot()
}

func (w *classifyResponse) toSnapshot() (*Snapshot, error) {
	n := w.Width * w.Height
	if w.Width <= 0 || w.Height <= 0 {
		return nil, eris.Errorf("lulcsvc: bad raster dimensions %dx%d", w.Width, w.Height)
	}
	if len(w.Classes) != n || len(w.Confidence) != n {
		return nil, eris.Errorf("lulcsvc: payload size mismatch: %dx%d grid, %d classes, %d confidence values",
			w.Width, w.Height, len(w.Classes), len(w.Confidence))
	}

	meta := raster.Meta{OriginX: w.OriginX, OriginY: w.OriginY, ResolutionM: w.ResolutionM}
	classes := raster.NewClassGrid(w.Width, w.Height, meta)
	for i, v := range w.Classes {
		classes.Cells[i] = lulc.Class(v)
	}

	conf := &raster.ConfGrid{Width: w.Width, Height: w.Height, Values: make([]float64, n)}
	for i, v := range w.Confidence {
		if v < 0 || v > 1 {
			return nil, eris.Errorf("lulcsvc: confidence %v at cell %d outside [0,1]", v, i)
		}
		conf.Values[i] = v
	}

	return &Snapshot{Classes: classes, Confidence: conf}, nil
}
