package report

import (
	"fmt"
	"time"

	"github.com/ajuntament-olot/pla-usos/internal/eligibility"
	"github.com/ajuntament-olot/pla-usos/internal/model"
)

// Document is the fully composed textual content of a consultation report.
// Composition is a pure function of its inputs so two renders of the same
// inquiry always carry identical text.
type Document struct {
	Title         string
	Date          string // dd/mm/yyyy
	AddressLine   string
	ActivityLines []string
	// Headline is the verdict banner. Empty when the verdict could not be
	// computed (data-quality gap).
	Headline string
	// Justification is the rule-specific sentence explaining an ineligible
	// verdict. Empty otherwise.
	Justification string
	// Paragraphs holds the conditional boilerplate: consortium warning,
	// reservation window, document validity.
	Paragraphs []string
	// Alert replaces the whole verdict block when required address data is
	// missing. The report must not claim ineligibility in that case.
	Alert string
	// Disclaimers are fixed informational notes always appended.
	Disclaimers []string
	// MapRadius is the exclusion radius to annotate on the situation map,
	// 0 when the rule has none.
	MapRadius float64
}

const title = "Consulta prèvia d'activitats — Pla d'usos del nucli antic"

const (
	headlineNotAdmitted         = "ACTIVITAT NO ADMESA"
	headlineAdmitted            = "ACTIVITAT ADMESA"
	headlineAdmittedConditional = "ACTIVITAT ADMESA AMB CONDICIONS"
)

const (
	paraConsortiumWarning = "L'activitat s'admet amb condicions. Abans d'iniciar cap tràmit cal adreçar-se al consorci gestor del pla d'usos perquè en validi les condicions d'implantació."
	paraReservation       = "Podeu sol·licitar una reserva d'emplaçament per a aquesta activitat. La reserva té una validesa de 15 dies naturals des de la data d'emissió d'aquest document."
	paraValidity          = "Aquest document informatiu té una validesa d'1 mes a comptar des de la data d'emissió."
	alertMissingWidth     = "No es disposa de la dada d'amplada de carrer per a aquesta adreça i no és possible resoldre la consulta. Poseu-vos en contacte amb l'oficina del pla d'usos per completar-la."
)

var disclaimers = []string{
	"Aquest document té caràcter exclusivament informatiu i no constitueix cap llicència, autorització ni dret adquirit.",
	"Les dades provenen del padró municipal d'adreces i del registre d'activitats vigents en el moment de la consulta.",
}

// Compose builds the report document for one evaluation result. The date is
// the only time-dependent field and is passed in explicitly.
func Compose(now time.Time, res eligibility.Result, heading model.ActivityHeading, addr model.Address) Document {
	doc := Document{
		Title:       title,
		Date:        now.Format("02/01/2006"),
		AddressLine: addressLine(addr),
		ActivityLines: []string{
			fmt.Sprintf("Grup: %s", heading.GroupDescription),
			fmt.Sprintf("Subgrup: %s", heading.SubgroupDescription),
			fmt.Sprintf("Epígraf %s: %s", heading.Code, heading.Description),
		},
		Disclaimers: disclaimers,
		MapRadius:   res.RadiusMeters,
	}

	if res.DataQualityGap {
		// No verdict block at all: a missing width must never read as a
		// refusal.
		doc.Alert = alertMissingWidth
		return doc
	}

	switch {
	case res.Verdict == model.VerdictIneligible:
		doc.Headline = headlineNotAdmitted
		doc.Justification = justification(res)
	case res.Conditional:
		doc.Headline = headlineAdmittedConditional
	default:
		doc.Headline = headlineAdmitted
	}

	if res.Verdict == model.VerdictEligible && res.Conditional {
		doc.Paragraphs = append(doc.Paragraphs, paraConsortiumWarning, paraReservation)
	}
	if res.Code != eligibility.CodeNotAdmitted {
		doc.Paragraphs = append(doc.Paragraphs, paraValidity)
	}

	return doc
}

func addressLine(addr model.Address) string {
	return fmt.Sprintf("%s, %s (codi de domicili %s)", addr.StreetName, addr.StreetNumber, addr.DomCode)
}

// justification returns the fixed per-code sentence explaining a refusal,
// interpolating the rule value where the rule carries one.
func justification(res eligibility.Result) string {
	switch res.Code {
	case eligibility.CodeNotAdmitted:
		return "El pla d'usos no admet aquesta activitat en aquest emplaçament."
	case eligibility.CodeExclusionShort, eligibility.CodeExclusionLong:
		return fmt.Sprintf("Hi ha almenys una activitat del mateix grup en un radi de %.0f metres.", res.RadiusMeters)
	case eligibility.CodeDensityCap:
		return fmt.Sprintf("S'ha assolit el màxim de %d activitats del mateix grup en un radi de %.0f metres.", deref(res.Value), res.RadiusMeters)
	case eligibility.CodeMinStreetWidth:
		return fmt.Sprintf("L'amplada del carrer és inferior als %d metres que exigeix el pla d'usos.", deref(res.Value))
	case eligibility.CodeGroundFloor:
		return "L'activitat només s'admet a la planta de carrer (planta 1)."
	}
	return ""
}

func deref(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}
