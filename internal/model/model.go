// Package model holds the domain types shared across the land-use
// consultation service.
package model

import "time"

// Verdict is the outcome of an eligibility evaluation.
type Verdict string

const (
	// VerdictEligible means the activity is admitted at the address.
	VerdictEligible Verdict = "eligible"
	// VerdictIneligible means the activity is not admitted at the address.
	VerdictIneligible Verdict = "ineligible"
	// VerdictInconclusive means a required address attribute is missing and
	// no verdict can be computed. It is distinct from both admitted and
	// not-admitted and must never be collapsed into either.
	VerdictInconclusive Verdict = "inconclusive"
	// VerdictPending marks an uncataloged ("other") activity that awaits
	// manual review and was never evaluated.
	VerdictPending Verdict = "pending"
)

// Address is one entry of the municipal address gazetteer. Coordinates are
// planar ETRS89 / UTM zone 31N (EPSG:25831), the reference system of the
// municipal cartography.
type Address struct {
	DomCode      string   `json:"dom_code"`
	StreetName   string   `json:"street_name"`
	StreetNumber string   `json:"street_number"`
	StreetWidth  *float64 `json:"street_width,omitempty"` // metres; nil when the gazetteer has no width
	Floor        *int     `json:"floor,omitempty"`
	X            float64  `json:"x"`
	Y            float64  `json:"y"`
	ZoneID       int64    `json:"zone_id"`
	AreaID       *int64   `json:"area_id,omitempty"` // treatment area, at most one
}

// Zone is a coarse partition of the municipality under the land-use plan.
type Zone struct {
	ID          int64           `json:"id"`
	Code        int             `json:"code"`
	Description string          `json:"description"`
	Areas       []TreatmentArea `json:"areas,omitempty"`
}

// TreatmentArea is a finer partition nested inside exactly one zone. When an
// address falls in a treatment area, the area rule set fully overrides the
// zone rule set.
type TreatmentArea struct {
	ID          int64  `json:"id"`
	ZoneID      int64  `json:"zone_id"`
	Code        int    `json:"code"`
	Description string `json:"description"`
}

// ActivityHeading is the leaf of the group > subgroup > heading activity
// catalog. Code is the composed epigraph code ("group.subgroup.heading").
type ActivityHeading struct {
	ID                  int64  `json:"id"`
	Code                string `json:"code"`
	GroupCode           int    `json:"group_code"`
	SubgroupID          int64  `json:"subgroup_id"`
	Description         string `json:"description"`
	GroupDescription    string `json:"group_description"`
	SubgroupDescription string `json:"subgroup_description"`
	Displayable         bool   `json:"displayable"`
}

// ConditionRule maps a (zone-or-area, activity heading) pair to a condition
// code with an optional numeric value (minimum width, density cap).
type ConditionRule struct {
	Code        int    `json:"code"`
	Value       *int   `json:"value,omitempty"`
	Description string `json:"description"`
	AreaScoped  bool   `json:"area_scoped"` // true when resolved from a treatment-area rule set
}

// ActivityCondition is one row of the per-address activity listing: a
// catalog heading together with the condition that governs it at that
// address.
type ActivityCondition struct {
	Heading              ActivityHeading `json:"heading"`
	ConditionCode        int             `json:"condition_code"`
	ConditionDescription string          `json:"condition_description"`
	Value                *int            `json:"value,omitempty"`
}

// Requester identifies the citizen or professional making an inquiry.
type Requester struct {
	DNI  string `json:"dni"`
	Name string `json:"name"`
	Role string `json:"role"` // acting as: owner, technician, representative
}

// Consultation is the write-once record of a single inquiry. It is created
// once per inquiry and never mutated.
type Consultation struct {
	ID               string    `json:"id"`
	Requester        Requester `json:"requester"`
	DomCode          string    `json:"dom_code"`
	StreetLine       string    `json:"street_line,omitempty"`
	HeadingID        *int64    `json:"heading_id,omitempty"`
	OtherActivity    bool      `json:"other_activity"`
	OtherDescription string    `json:"other_description,omitempty"`
	ConditionCode    *int      `json:"condition_code,omitempty"`
	ConditionValue   *int      `json:"condition_value,omitempty"`
	Verdict          Verdict   `json:"verdict"`
	CreatedAt        time.Time `json:"created_at"`
}
