// Package catalog reads the land-use reference data: the address gazetteer,
// the zone/treatment-area partition, the activity heading hierarchy and the
// condition rule matrix. The catalog is administrator-mutated out-of-band
// and read-only at request time.
package catalog

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/ajuntament-olot/pla-usos/internal/model"
)

// ErrNotFound is returned for unknown addresses and headings, and for
// (location, activity) pairs with no condition rule. A missing rule means
// the pair is unregulated in the matrix; the service refuses to guess a
// verdict and demands explicit configuration instead.
var ErrNotFound = eris.New("catalog: not found")

// Catalog is the read interface over the reference data.
type Catalog interface {
	// ResolveAddress looks up an address by its gazetteer code.
	ResolveAddress(ctx context.Context, domCode string) (*model.Address, error)

	// ResolveCondition returns the rule governing a heading at an address.
	// When the address falls inside a treatment area, the area rule set is
	// consulted exclusively; zone rules are never merged in.
	ResolveCondition(ctx context.Context, addr *model.Address, headingID int64) (*model.ConditionRule, error)

	// Heading returns one activity heading with its group and subgroup
	// descriptions.
	Heading(ctx context.Context, id int64) (*model.ActivityHeading, error)

	// ListHeadings returns the displayable headings ordered by epigraph code.
	ListHeadings(ctx context.Context) ([]model.ActivityHeading, error)

	// ListZones returns all zones with their nested treatment areas.
	ListZones(ctx context.Context) ([]model.Zone, error)

	// ActivityConditions lists every regulated activity at an address with
	// the condition that applies there, respecting area precedence.
	ActivityConditions(ctx context.Context, domCode string) ([]model.ActivityCondition, error)

	// SearchAddresses finds addresses by street name, accent- and
	// case-insensitively.
	SearchAddresses(ctx context.Context, query string, limit int) ([]model.Address, error)
}
