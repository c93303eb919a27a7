// Package mapimage fetches the situation map embedded in consultation
// reports from an upstream WMS server (by default the ICGC topographic
// base).
package mapimage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ajuntament-olot/pla-usos/internal/config"
)

// ErrUnavailable is returned when the upstream map server cannot deliver an
// image within the time bound. The inquiry reports the failure; it never
// ships a report that silently lacks its map.
var ErrUnavailable = eris.New("mapimage: map provider unavailable")

// Client fetches a situation map centered on a planar coordinate. For
// radius-gated rules the radius widens the view so the exclusion circle
// fits.
type Client interface {
	Fetch(ctx context.Context, x, y, radiusMeters float64) ([]byte, error)
}

// WMSClient implements Client against a WMS 1.3.0 GetMap endpoint in
// EPSG:25831.
type WMSClient struct {
	baseURL string
	layers  string
	width   int
	height  int
	client  *http.Client
	limiter *rate.Limiter
}

// NewWMS creates a WMSClient from configuration.
func NewWMS(cfg config.MapConfig) *WMSClient {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	rps := cfg.RatePerSec
	if rps <= 0 {
		rps = 4
	}
	return &WMSClient{
		baseURL: cfg.BaseURL,
		layers:  cfg.Layers,
		width:   cfg.Width,
		height:  cfg.Height,
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// bbox sizes the view around the point. The vertical span covers at least
// 2.5x the rule radius so the exclusion circle stays inside the frame, with
// a 200 m floor for rules without a radius.
func (c *WMSClient) bbox(x, y, radiusMeters float64) (minX, minY, maxX, maxY float64) {
	span := 2.5 * radiusMeters
	if span < 200 {
		span = 200
	}
	halfY := span / 2
	halfX := halfY * float64(c.width) / float64(c.height)
	return x - halfX, y - halfY, x + halfX, y + halfY
}

// Fetch retrieves one map image. Any upstream failure maps to
// ErrUnavailable.
func (c *WMSClient) Fetch(ctx context.Context, x, y, radiusMeters float64) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "mapimage: rate limit wait")
	}

	minX, minY, maxX, maxY := c.bbox(x, y, radiusMeters)
	params := url.Values{}
	params.Set("SERVICE", "WMS")
	params.Set("VERSION", "1.3.0")
	params.Set("REQUEST", "GetMap")
	params.Set("LAYERS", c.layers)
	params.Set("STYLES", "")
	params.Set("CRS", "EPSG:25831")
	params.Set("BBOX", fmt.Sprintf("%.2f,%.2f,%.2f,%.2f", minX, minY, maxX, maxY))
	params.Set("WIDTH", fmt.Sprintf("%d", c.width))
	params.Set("HEIGHT", fmt.Sprintf("%d", c.height))
	params.Set("FORMAT", "image/png")

	reqURL := c.baseURL + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "mapimage: create request")
	}
	req.Header.Set("User-Agent", "pla-usos/1.0")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(ErrUnavailable, err.Error())
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Wrapf(ErrUnavailable, "upstream returned %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(ErrUnavailable, err.Error())
	}

	zap.L().Debug("mapimage: fetched map",
		zap.Float64("x", x), zap.Float64("y", y),
		zap.Float64("radius_m", radiusMeters),
		zap.Int("bytes", len(data)),
	)
	return data, nil
}
