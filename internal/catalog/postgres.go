package catalog

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/ajuntament-olot/pla-usos/internal/db"
	"github.com/ajuntament-olot/pla-usos/internal/model"
)

// PostgresCatalog implements Catalog over the shared pgx pool.
type PostgresCatalog struct {
	pool db.Pool
}

// NewPostgres creates a PostgresCatalog.
func NewPostgres(pool db.Pool) *PostgresCatalog {
	return &PostgresCatalog{pool: pool}
}

const resolveAddressSQL = `
	SELECT dom_code, street_name, street_number, street_width, floor, x, y, zone_id, area_id
	FROM addresses
	WHERE dom_code = $1
`

// ResolveAddress looks up one gazetteer entry by code.
func (c *PostgresCatalog) ResolveAddress(ctx context.Context, domCode string) (*model.Address, error) {
	var a model.Address
	err := c.pool.QueryRow(ctx, resolveAddressSQL, domCode).Scan(
		&a.DomCode, &a.StreetName, &a.StreetNumber, &a.StreetWidth, &a.Floor,
		&a.X, &a.Y, &a.ZoneID, &a.AreaID,
	)
	if err != nil {
		if eris.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "address %s", domCode)
		}
		return nil, eris.Wrap(err, "catalog: resolve address")
	}
	return &a, nil
}

const areaConditionSQL = `
	SELECT r.condition_code, r.value, c.description
	FROM area_condition_rules r
	JOIN conditions c ON c.code = r.condition_code
	WHERE r.area_id = $1 AND r.heading_id = $2
`

const zoneConditionSQL = `
	SELECT r.condition_code, r.value, c.description
	FROM zone_condition_rules r
	JOIN conditions c ON c.code = r.condition_code
	WHERE r.zone_id = $1 AND r.heading_id = $2
`

// ResolveCondition picks the rule for a heading at an address. Treatment
// area rules take total precedence over zone rules: when the address has an
// area, only the area rule set is consulted, even if a zone rule exists.
func (c *PostgresCatalog) ResolveCondition(ctx context.Context, addr *model.Address, headingID int64) (*model.ConditionRule, error) {
	var row pgx.Row
	rule := model.ConditionRule{}
	if addr.AreaID != nil {
		row = c.pool.QueryRow(ctx, areaConditionSQL, *addr.AreaID, headingID)
		rule.AreaScoped = true
	} else {
		row = c.pool.QueryRow(ctx, zoneConditionSQL, addr.ZoneID, headingID)
	}

	err := row.Scan(&rule.Code, &rule.Value, &rule.Description)
	if err != nil {
		if eris.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "no condition for heading %d at %s", headingID, addr.DomCode)
		}
		return nil, eris.Wrap(err, "catalog: resolve condition")
	}
	return &rule, nil
}

const headingSQL = `
	SELECT h.id, h.code, g.code, h.subgroup_id, h.description, g.description, s.description, h.displayable
	FROM activity_headings h
	JOIN activity_subgroups s ON s.id = h.subgroup_id
	JOIN activity_groups g ON g.code = s.group_code
	WHERE h.id = $1
`

// Heading returns one heading with its hierarchy descriptions.
func (c *PostgresCatalog) Heading(ctx context.Context, id int64) (*model.ActivityHeading, error) {
	var h model.ActivityHeading
	err := c.pool.QueryRow(ctx, headingSQL, id).Scan(
		&h.ID, &h.Code, &h.GroupCode, &h.SubgroupID, &h.Description,
		&h.GroupDescription, &h.SubgroupDescription, &h.Displayable,
	)
	if err != nil {
		if eris.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "heading %d", id)
		}
		return nil, eris.Wrap(err, "catalog: heading")
	}
	return &h, nil
}

const listHeadingsSQL = `
	SELECT h.id, h.code, g.code, h.subgroup_id, h.description, g.description, s.description, h.displayable
	FROM activity_headings h
	JOIN activity_subgroups s ON s.id = h.subgroup_id
	JOIN activity_groups g ON g.code = s.group_code
	WHERE h.displayable
	ORDER BY h.code
`

// ListHeadings returns the displayable headings ordered by epigraph code.
func (c *PostgresCatalog) ListHeadings(ctx context.Context) ([]model.ActivityHeading, error) {
	rows, err := c.pool.Query(ctx, listHeadingsSQL)
	if err != nil {
		return nil, eris.Wrap(err, "catalog: list headings")
	}
	defer rows.Close()

	var out []model.ActivityHeading
	for rows.Next() {
		var h model.ActivityHeading
		if err := rows.Scan(
			&h.ID, &h.Code, &h.GroupCode, &h.SubgroupID, &h.Description,
			&h.GroupDescription, &h.SubgroupDescription, &h.Displayable,
		); err != nil {
			return nil, eris.Wrap(err, "catalog: scan heading")
		}
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "catalog: iterate headings")
	}
	return out, nil
}

const listZonesSQL = `
	SELECT z.id, z.code, z.description, a.id, a.code, a.description
	FROM zones z
	LEFT JOIN treatment_areas a ON a.zone_id = z.id
	ORDER BY z.code, a.code
`

// ListZones returns all zones with their treatment areas nested.
func (c *PostgresCatalog) ListZones(ctx context.Context) ([]model.Zone, error) {
	rows, err := c.pool.Query(ctx, listZonesSQL)
	if err != nil {
		return nil, eris.Wrap(err, "catalog: list zones")
	}
	defer rows.Close()

	var zones []model.Zone
	for rows.Next() {
		var (
			z         model.Zone
			areaID    *int64
			areaCode  *int
			areaDescr *string
		)
		if err := rows.Scan(&z.ID, &z.Code, &z.Description, &areaID, &areaCode, &areaDescr); err != nil {
			return nil, eris.Wrap(err, "catalog: scan zone")
		}

		if len(zones) == 0 || zones[len(zones)-1].ID != z.ID {
			zones = append(zones, z)
		}
		if areaID != nil {
			last := &zones[len(zones)-1]
			last.Areas = append(last.Areas, model.TreatmentArea{
				ID:          *areaID,
				ZoneID:      z.ID,
				Code:        *areaCode,
				Description: *areaDescr,
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "catalog: iterate zones")
	}
	return zones, nil
}

const areaActivityConditionsSQL = `
	SELECT h.id, h.code, g.code, h.subgroup_id, h.description, g.description, s.description, h.displayable,
	       r.condition_code, c.description, r.value
	FROM area_condition_rules r
	JOIN conditions c ON c.code = r.condition_code
	JOIN activity_headings h ON h.id = r.heading_id
	JOIN activity_subgroups s ON s.id = h.subgroup_id
	JOIN activity_groups g ON g.code = s.group_code
	WHERE r.area_id = $1 AND h.displayable
	ORDER BY h.code
`

const zoneActivityConditionsSQL = `
	SELECT h.id, h.code, g.code, h.subgroup_id, h.description, g.description, s.description, h.displayable,
	       r.condition_code, c.description, r.value
	FROM zone_condition_rules r
	JOIN conditions c ON c.code = r.condition_code
	JOIN activity_headings h ON h.id = r.heading_id
	JOIN activity_subgroups s ON s.id = h.subgroup_id
	JOIN activity_groups g ON g.code = s.group_code
	WHERE r.zone_id = $1 AND h.displayable
	ORDER BY h.code
`

// ActivityConditions lists the regulated activities at an address. The same
// area-over-zone precedence as ResolveCondition applies to the listing.
func (c *PostgresCatalog) ActivityConditions(ctx context.Context, domCode string) ([]model.ActivityCondition, error) {
	addr, err := c.ResolveAddress(ctx, domCode)
	if err != nil {
		return nil, err
	}

	var rows pgx.Rows
	if addr.AreaID != nil {
		rows, err = c.pool.Query(ctx, areaActivityConditionsSQL, *addr.AreaID)
	} else {
		rows, err = c.pool.Query(ctx, zoneActivityConditionsSQL, addr.ZoneID)
	}
	if err != nil {
		return nil, eris.Wrap(err, "catalog: activity conditions")
	}
	defer rows.Close()

	var out []model.ActivityCondition
	for rows.Next() {
		var ac model.ActivityCondition
		if err := rows.Scan(
			&ac.Heading.ID, &ac.Heading.Code, &ac.Heading.GroupCode, &ac.Heading.SubgroupID,
			&ac.Heading.Description, &ac.Heading.GroupDescription, &ac.Heading.SubgroupDescription,
			&ac.Heading.Displayable,
			&ac.ConditionCode, &ac.ConditionDescription, &ac.Value,
		); err != nil {
			return nil, eris.Wrap(err, "catalog: scan activity condition")
		}
		out = append(out, ac)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "catalog: iterate activity conditions")
	}
	return out, nil
}

const searchAddressesSQL = `
	SELECT dom_code, street_name, street_number, street_width, floor, x, y, zone_id, area_id
	FROM addresses
	WHERE street_search LIKE '%' || $1 || '%'
	ORDER BY street_name, street_number
	LIMIT $2
`

// SearchAddresses matches street names against the folded search column.
func (c *PostgresCatalog) SearchAddresses(ctx context.Context, query string, limit int) ([]model.Address, error) {
	if limit <= 0 {
		limit = 25
	}
	rows, err := c.pool.Query(ctx, searchAddressesSQL, foldStreetName(query), limit)
	if err != nil {
		return nil, eris.Wrap(err, "catalog: search addresses")
	}
	defer rows.Close()

	var out []model.Address
	for rows.Next() {
		var a model.Address
		if err := rows.Scan(
			&a.DomCode, &a.StreetName, &a.StreetNumber, &a.StreetWidth, &a.Floor,
			&a.X, &a.Y, &a.ZoneID, &a.AreaID,
		); err != nil {
			return nil, eris.Wrap(err, "catalog: scan address")
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "catalog: iterate addresses")
	}
	return out, nil
}
