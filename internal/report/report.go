// Package report renders the informational PDF returned for each land-use
// consultation. Text content is composed deterministically from template
// fragments; only the embedded map image may vary between renders.
package report

import (
	"bytes"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/rotisserie/eris"

	"github.com/ajuntament-olot/pla-usos/internal/eligibility"
	"github.com/ajuntament-olot/pla-usos/internal/model"
)

const (
	pageWidth    = 210.0 // A4 portrait, mm
	marginX      = 25.0
	mapWidthMM   = 150.0
	mapHeightMM  = 100.0
	mapSpanFloor = 200.0 // metres covered vertically when the rule has no radius
)

// Renderer produces PDF reports. The clock is injectable so tests can pin
// the date line.
type Renderer struct {
	now func() time.Time
}

// NewRenderer creates a Renderer using the wall clock.
func NewRenderer() *Renderer {
	return &Renderer{now: time.Now}
}

// NewRendererAt creates a Renderer with a fixed clock.
func NewRendererAt(now func() time.Time) *Renderer {
	return &Renderer{now: now}
}

// Render composes and draws the report. mapPNG may be nil, in which case the
// map block is omitted (the caller decides whether that is acceptable).
func (r *Renderer) Render(res eligibility.Result, heading model.ActivityHeading, addr model.Address, mapPNG []byte) ([]byte, error) {
	now := r.now()
	doc := Compose(now, res, heading, addr)
	return drawPDF(doc, now, mapPNG)
}

func drawPDF(doc Document, now time.Time, mapPNG []byte) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(tr(doc.Title), false)
	// Pinned so two renders of the same inquiry are byte-identical.
	pdf.SetCreationDate(now)
	pdf.SetModificationDate(now)
	pdf.SetMargins(marginX, 20, marginX)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()

	// Banner and date.
	pdf.SetFont("Helvetica", "B", 14)
	pdf.MultiCell(0, 8, tr(doc.Title), "", "C", false)
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, tr("Data d'emissió: "+doc.Date), "", 1, "R", false, 0, "")
	pdf.Ln(2)

	// Address block.
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(0, 6, tr("Emplaçament"), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.MultiCell(0, 5, tr(doc.AddressLine), "", "L", false)
	pdf.Ln(2)

	// Activity block.
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(0, 6, tr("Activitat"), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	for _, line := range doc.ActivityLines {
		pdf.MultiCell(0, 5, tr(line), "", "L", false)
	}
	pdf.Ln(2)

	// Situation map with optional radius annotation.
	if len(mapPNG) > 0 {
		drawMap(pdf, doc, mapPNG)
	}

	// Verdict block, or the data-gap alert in its place.
	if doc.Alert != "" {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.SetTextColor(176, 93, 0)
		pdf.MultiCell(0, 6, tr(doc.Alert), "", "L", false)
		pdf.SetTextColor(0, 0, 0)
	} else {
		pdf.SetFont("Helvetica", "B", 13)
		pdf.MultiCell(0, 8, tr(doc.Headline), "", "C", false)
		if doc.Justification != "" {
			pdf.SetFont("Helvetica", "", 10)
			pdf.MultiCell(0, 5, tr(doc.Justification), "", "L", false)
		}
	}
	pdf.Ln(3)

	pdf.SetFont("Helvetica", "", 10)
	for _, p := range doc.Paragraphs {
		pdf.MultiCell(0, 5, tr(p), "", "L", false)
		pdf.Ln(1)
	}

	pdf.SetFont("Helvetica", "I", 8)
	pdf.SetTextColor(90, 90, 90)
	for _, d := range doc.Disclaimers {
		pdf.MultiCell(0, 4, tr(d), "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, eris.Wrap(err, "report: write pdf")
	}
	return buf.Bytes(), nil
}

// drawMap embeds the situation image and, for radius-gated rules, overlays
// the exclusion circle. The scale matches the WMS view sizing: the vertical
// extent covers max(2.5*radius, 200) metres.
func drawMap(pdf *fpdf.Fpdf, doc Document, mapPNG []byte) {
	opts := fpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("situacio", opts, bytes.NewReader(mapPNG))

	x := (pageWidth - mapWidthMM) / 2
	y := pdf.GetY() + 2
	pdf.ImageOptions("situacio", x, y, mapWidthMM, mapHeightMM, false, opts, 0, "")

	if doc.MapRadius > 0 {
		span := 2.5 * doc.MapRadius
		if span < mapSpanFloor {
			span = mapSpanFloor
		}
		rMM := doc.MapRadius / span * mapHeightMM
		pdf.SetDrawColor(200, 30, 30)
		pdf.SetLineWidth(0.5)
		pdf.Circle(x+mapWidthMM/2, y+mapHeightMM/2, rMM, "D")
		pdf.SetDrawColor(0, 0, 0)
		pdf.SetLineWidth(0.2)
	}

	pdf.SetY(y + mapHeightMM + 4)
}
