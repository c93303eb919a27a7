// Package eligibility implements the decision engine of the land-use plan:
// given the condition attached to a (zone-or-area, activity) pair and the
// attributes of an address, it decides whether the activity is admitted
// there. Evaluation is a pure function of its inputs and the proximity
// snapshot; for fixed inputs the result is identical on every invocation.
package eligibility

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/ajuntament-olot/pla-usos/internal/model"
	"github.com/ajuntament-olot/pla-usos/internal/proximity"
)

// Code enumerates the condition kinds of the plan's rule matrix. The
// enumeration is closed: new behavior is added under a new code, never by
// overloading an existing one.
type Code int

const (
	// CodeNotAdmitted rejects the activity unconditionally.
	CodeNotAdmitted Code = 1
	// CodeAdmitted admits the activity unconditionally.
	CodeAdmitted Code = 2
	// CodeAdmittedPriority admits the activity as a priority use.
	CodeAdmittedPriority Code = 3
	// CodeExclusionShort admits the activity only if no same-group activity
	// operates within the short radius.
	CodeExclusionShort Code = 4
	// CodeExclusionLong admits the activity only if no same-group activity
	// operates within the long radius.
	CodeExclusionLong Code = 5
	// CodeDensityCap admits the activity while the count of same-group
	// activities within the short radius stays strictly under the rule value.
	CodeDensityCap Code = 6
	// CodeMinStreetWidth admits the activity only on streets at least as
	// wide as the rule value, in metres.
	CodeMinStreetWidth Code = 7
	// CodeGroundFloor admits the activity only at street level (floor 1).
	CodeGroundFloor Code = 9
)

// ErrUnhandledCondition is returned for codes outside the closed
// enumeration (8, 10, 11 and any future additions without an explicit
// rule). Evaluation fails closed instead of guessing a verdict.
var ErrUnhandledCondition = eris.New("eligibility: condition code has no evaluation rule")

// ErrMissingValue is returned when a parameterized rule (density cap,
// minimum width) arrives without its numeric value. This is a rule-matrix
// data defect, not an address problem.
var ErrMissingValue = eris.New("eligibility: condition rule is missing its numeric value")

// Radii holds the fixed exclusion radii of the plan.
type Radii struct {
	ShortMeters float64
	LongMeters  float64
}

// DefaultRadii returns the radii written into the plan text.
func DefaultRadii() Radii {
	return Radii{ShortMeters: 50, LongMeters: 100}
}

// Conditional reports whether a code admits only under conditions, i.e. any
// code other than the three categorical ones.
func Conditional(code Code) bool {
	switch code {
	case CodeNotAdmitted, CodeAdmitted, CodeAdmittedPriority:
		return false
	}
	return true
}

// Result is the structured outcome of an evaluation. It is threaded as a
// return value so that nothing about an inquiry lives in shared state.
type Result struct {
	Verdict     model.Verdict `json:"verdict"`
	Code        Code          `json:"condition_code"`
	Value       *int          `json:"condition_value,omitempty"`
	Conditional bool          `json:"conditional"`
	// DataQualityGap marks an inconclusive verdict caused by a missing
	// address attribute (street width). The report must surface it as an
	// alert, never as ineligibility.
	DataQualityGap bool `json:"data_quality_gap,omitempty"`
	// NearbyCount is the proximity snapshot used for radius/density codes.
	NearbyCount int `json:"nearby_count,omitempty"`
	// RadiusMeters is the radius the proximity check ran with, 0 when the
	// code needs none.
	RadiusMeters float64 `json:"radius_meters,omitempty"`
	// Degraded marks that the proximity answer came from the no-spatial
	// fallback provider and is a documented limitation of the deployment.
	Degraded bool `json:"degraded,omitempty"`
}

// Eligible is a convenience accessor; inconclusive results are not eligible
// but must be told apart via Verdict.
func (r Result) Eligible() bool { return r.Verdict == model.VerdictEligible }

// Evaluate computes the admissibility of an activity at an address under
// one condition rule. The proximity provider is consulted only for the
// radius and density codes.
func Evaluate(ctx context.Context, rule model.ConditionRule, addr model.Address, heading model.ActivityHeading, prov proximity.Provider, radii Radii) (Result, error) {
	code := Code(rule.Code)
	res := Result{
		Code:        code,
		Value:       rule.Value,
		Conditional: Conditional(code),
	}

	switch code {
	case CodeNotAdmitted:
		res.Verdict = model.VerdictIneligible

	case CodeAdmitted, CodeAdmittedPriority:
		res.Verdict = model.VerdictEligible

	case CodeExclusionShort:
		return evalProximity(ctx, res, addr, heading, prov, radii.ShortMeters, 1)

	case CodeExclusionLong:
		return evalProximity(ctx, res, addr, heading, prov, radii.LongMeters, 1)

	case CodeDensityCap:
		if rule.Value == nil {
			return Result{}, eris.Wrapf(ErrMissingValue, "code %d heading %d", rule.Code, heading.ID)
		}
		return evalProximity(ctx, res, addr, heading, prov, radii.ShortMeters, *rule.Value)

	case CodeMinStreetWidth:
		if rule.Value == nil {
			return Result{}, eris.Wrapf(ErrMissingValue, "code %d heading %d", rule.Code, heading.ID)
		}
		if addr.StreetWidth == nil {
			// Width unknown: inconclusive, not ineligible.
			res.Verdict = model.VerdictInconclusive
			res.DataQualityGap = true
			return res, nil
		}
		if *addr.StreetWidth >= float64(*rule.Value) {
			res.Verdict = model.VerdictEligible
		} else {
			res.Verdict = model.VerdictIneligible
		}

	case CodeGroundFloor:
		if addr.Floor != nil && *addr.Floor == 1 {
			res.Verdict = model.VerdictEligible
		} else {
			res.Verdict = model.VerdictIneligible
		}

	default:
		return Result{}, eris.Wrapf(ErrUnhandledCondition, "code %d heading %d", rule.Code, heading.ID)
	}

	return res, nil
}

// evalProximity resolves the radius/density codes: eligible while the count
// of same-group operating activities within the radius stays strictly under
// cap (cap 1 for the pure exclusion codes).
func evalProximity(ctx context.Context, res Result, addr model.Address, heading model.ActivityHeading, prov proximity.Provider, radius float64, cap int) (Result, error) {
	n, err := prov.CountNearby(ctx, proximity.Query{
		OriginDomCode: addr.DomCode,
		X:             addr.X,
		Y:             addr.Y,
		GroupCode:     heading.GroupCode,
		RadiusMeters:  radius,
	})
	if err != nil {
		return Result{}, eris.Wrap(err, "eligibility: proximity probe")
	}

	res.NearbyCount = n
	res.RadiusMeters = radius
	res.Degraded = prov.Degraded()
	if n < cap {
		res.Verdict = model.VerdictEligible
	} else {
		res.Verdict = model.VerdictIneligible
	}
	return res, nil
}
