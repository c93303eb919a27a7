package proximity

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"

	"github.com/ajuntament-olot/pla-usos/internal/db"
)

// sridUTM31 is ETRS89 / UTM zone 31N, the planar reference system of the
// municipal cartography and of the activity registry geometries.
const sridUTM31 = 25831

// operatingStatuses is the allow-list of registry statuses counted as
// currently operating. Anything not listed (ceased, revoked, refused) is
// excluded, by allow-list rather than denylist.
var operatingStatuses = []string{
	"active",
	"under_review",
	"under_construction",
	"historical_licensed",
	"inactive_licensed",
	"incomplete",
	"municipal",
}

const countNearbySQL = `
	SELECT count(*)
	FROM registered_activities
	WHERE group_code = $1
	  AND dom_code <> $2
	  AND status = ANY($3)
	  AND ST_DWithin(geom, ST_GeomFromEWKB($4), $5)
`

// PostgresProvider counts nearby activities with a PostGIS ST_DWithin query
// against the registered_activities table. Distance semantics are delegated
// to the database; this provider only interprets the count.
type PostgresProvider struct {
	pool    db.Pool
	timeout time.Duration
}

// NewPostgres creates a PostgresProvider with a per-probe time bound.
func NewPostgres(pool db.Pool, timeout time.Duration) *PostgresProvider {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &PostgresProvider{pool: pool, timeout: timeout}
}

// CountNearby counts same-group operating activities within the radius,
// excluding the origin address. A deadline overrun maps to ErrTimeout.
func (p *PostgresProvider) CountNearby(ctx context.Context, q Query) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	point := geom.NewPointFlat(geom.XY, []float64{q.X, q.Y})
	point.SetSRID(sridUTM31)
	origin := &ewkb.Point{Point: point}

	var n int
	err := p.pool.QueryRow(ctx, countNearbySQL,
		q.GroupCode, q.OriginDomCode, operatingStatuses, origin, q.RadiusMeters,
	).Scan(&n)
	if err != nil {
		if ctx.Err() != nil || eris.Is(err, context.DeadlineExceeded) {
			return 0, eris.Wrap(ErrTimeout, err.Error())
		}
		return 0, eris.Wrap(err, "proximity: count nearby")
	}
	return n, nil
}

// Degraded always reports false: this provider performs real spatial search.
func (p *PostgresProvider) Degraded() bool { return false }
