// Package proximity answers distance and density questions against the
// geocoded registry of licensed activities: how many operating businesses of
// the same group lie within a radius of a point, excluding the queried
// address itself.
package proximity

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ErrTimeout is returned when the registry query exceeds its time bound.
// Callers must propagate it as a failed inquiry, never as "0 matches".
var ErrTimeout = eris.New("proximity: registry query timed out")

// Query describes one proximity probe.
type Query struct {
	OriginDomCode string  // excluded from the count
	X             float64 // EPSG:25831
	Y             float64
	GroupCode     int
	RadiusMeters  float64
}

// Provider counts nearby same-group operating activities. Implementations
// must be deterministic for a fixed registry snapshot.
type Provider interface {
	CountNearby(ctx context.Context, q Query) (int, error)
	// Degraded reports whether this provider is the documented no-spatial
	// fallback that always answers zero.
	Degraded() bool
}

// NullProvider is the explicit degraded mode for deployments without
// spatial search support. It reports zero matches and flags itself so the
// limitation is logged rather than silently pretending proximity was
// checked.
type NullProvider struct{}

// NewNull creates a NullProvider.
func NewNull() *NullProvider { return &NullProvider{} }

// CountNearby always reports zero matches.
func (p *NullProvider) CountNearby(ctx context.Context, q Query) (int, error) {
	zap.L().Warn("proximity: spatial search disabled, reporting zero matches",
		zap.String("origin", q.OriginDomCode),
		zap.Int("group", q.GroupCode),
		zap.Float64("radius_m", q.RadiusMeters),
	)
	return 0, nil
}

// Degraded always reports true.
func (p *NullProvider) Degraded() bool { return true }
