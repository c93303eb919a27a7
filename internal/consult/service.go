// Package consult orchestrates one land-use inquiry end to end: resolve the
// address, resolve the condition rule, evaluate admissibility, persist the
// consultation record and render the informational PDF.
package consult

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ajuntament-olot/pla-usos/internal/catalog"
	"github.com/ajuntament-olot/pla-usos/internal/eligibility"
	"github.com/ajuntament-olot/pla-usos/internal/mapimage"
	"github.com/ajuntament-olot/pla-usos/internal/model"
	"github.com/ajuntament-olot/pla-usos/internal/proximity"
	"github.com/ajuntament-olot/pla-usos/internal/report"
	"github.com/ajuntament-olot/pla-usos/internal/store"
)

// Request describes one inquiry. Either HeadingID points at a cataloged
// activity, or OtherActivity is set with a free-text description.
type Request struct {
	Requester        model.Requester `json:"requester"`
	DomCode          string          `json:"dom_code"`
	HeadingID        int64           `json:"heading_id,omitempty"`
	OtherActivity    bool            `json:"other_activity,omitempty"`
	OtherDescription string          `json:"other_description,omitempty"`
}

// Outcome is the result of one inquiry. PDF is nil for pending
// (uncataloged) inquiries and when the map provider failed after the
// verdict was already recorded.
type Outcome struct {
	RecordID string              `json:"record_id"`
	Result   *eligibility.Result `json:"result,omitempty"`
	PDF      []byte              `json:"-"`
	Pending  bool                `json:"pending,omitempty"`
}

// Service wires the collaborators of the inquiry flow.
type Service struct {
	catalog  catalog.Catalog
	prox     proximity.Provider
	maps     mapimage.Client
	store    store.Store
	renderer *report.Renderer
	notifier Notifier
	radii    eligibility.Radii
}

// NewService creates a Service.
func NewService(cat catalog.Catalog, prox proximity.Provider, maps mapimage.Client, st store.Store, r *report.Renderer, n Notifier, radii eligibility.Radii) *Service {
	if n == nil {
		n = LogNotifier{}
	}
	return &Service{
		catalog:  cat,
		prox:     prox,
		maps:     maps,
		store:    st,
		renderer: r,
		notifier: n,
		radii:    radii,
	}
}

// Run executes one inquiry. Each call is an independent request-scoped
// computation; nothing is shared between concurrent inquiries beyond the
// read-only catalog and the append-only log.
func (s *Service) Run(ctx context.Context, req Request) (*Outcome, error) {
	log := zap.L().With(zap.String("dom_code", req.DomCode))

	addr, err := s.catalog.ResolveAddress(ctx, req.DomCode)
	if err != nil {
		return nil, eris.Wrap(err, "consult: resolve address")
	}

	if req.OtherActivity {
		return s.runOther(ctx, req, addr, log)
	}

	heading, err := s.catalog.Heading(ctx, req.HeadingID)
	if err != nil {
		return nil, eris.Wrap(err, "consult: resolve activity")
	}
	rule, err := s.catalog.ResolveCondition(ctx, addr, heading.ID)
	if err != nil {
		return nil, eris.Wrap(err, "consult: resolve condition")
	}

	// The map fetch has external latency and does not depend on the
	// verdict, so it runs alongside the evaluation. A map failure is held
	// back until the verdict has been recorded.
	var (
		res    eligibility.Result
		mapPNG []byte
		mapErr error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r, evalErr := eligibility.Evaluate(gctx, *rule, *addr, *heading, s.prox, s.radii)
		if evalErr != nil {
			return eris.Wrap(evalErr, "consult: evaluate")
		}
		res = r
		return nil
	})
	g.Go(func() error {
		img, fetchErr := s.maps.Fetch(gctx, addr.X, addr.Y, mapRadius(eligibility.Code(rule.Code), s.radii))
		if fetchErr != nil {
			mapErr = fetchErr
			return nil
		}
		mapPNG = img
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	code := rule.Code
	rec := model.Consultation{
		Requester:      req.Requester,
		DomCode:        addr.DomCode,
		HeadingID:      &heading.ID,
		ConditionCode:  &code,
		ConditionValue: rule.Value,
		Verdict:        res.Verdict,
	}
	id, err := s.store.InsertConsultation(ctx, rec)
	if err != nil {
		// No verdict leaves the service without a durable record.
		return nil, eris.Wrap(err, "consult: record inquiry")
	}

	log.Info("consult: inquiry evaluated",
		zap.String("consultation_id", id),
		zap.Int64("heading_id", heading.ID),
		zap.Int("condition_code", rule.Code),
		zap.String("verdict", string(res.Verdict)),
		zap.Bool("degraded", res.Degraded),
	)

	if mapErr != nil {
		return &Outcome{RecordID: id, Result: &res}, eris.Wrap(mapErr, "consult: map image")
	}

	pdf, err := s.renderer.Render(res, *heading, *addr, mapPNG)
	if err != nil {
		return &Outcome{RecordID: id, Result: &res}, eris.Wrap(err, "consult: render report")
	}

	return &Outcome{RecordID: id, Result: &res, PDF: pdf}, nil
}

// runOther records an uncataloged-activity inquiry. No evaluation is
// performed and no PDF is produced; the record awaits manual review.
func (s *Service) runOther(ctx context.Context, req Request, addr *model.Address, log *zap.Logger) (*Outcome, error) {
	rec := model.Consultation{
		Requester:        req.Requester,
		DomCode:          addr.DomCode,
		OtherActivity:    true,
		OtherDescription: req.OtherDescription,
		Verdict:          model.VerdictPending,
	}
	id, err := s.store.InsertConsultation(ctx, rec)
	if err != nil {
		return nil, eris.Wrap(err, "consult: record inquiry")
	}
	rec.ID = id

	if err := s.notifier.NotifyReviewBoard(ctx, rec); err != nil {
		log.Warn("consult: review board notification failed", zap.Error(err))
	}

	return &Outcome{RecordID: id, Pending: true}, nil
}

// RegenerateReport rebuilds the PDF for a stored consultation. The verdict
// and rule come from the record; only the map image is fetched anew.
func (s *Service) RegenerateReport(ctx context.Context, recordID string) ([]byte, error) {
	rec, err := s.store.GetConsultation(ctx, recordID)
	if err != nil {
		return nil, eris.Wrap(err, "consult: load record")
	}
	if rec.OtherActivity || rec.HeadingID == nil || rec.ConditionCode == nil {
		return nil, eris.Wrapf(store.ErrNotFound, "consultation %s has no report", recordID)
	}

	addr, err := s.catalog.ResolveAddress(ctx, rec.DomCode)
	if err != nil {
		return nil, eris.Wrap(err, "consult: resolve address")
	}
	heading, err := s.catalog.Heading(ctx, *rec.HeadingID)
	if err != nil {
		return nil, eris.Wrap(err, "consult: resolve activity")
	}

	code := eligibility.Code(*rec.ConditionCode)
	res := eligibility.Result{
		Verdict:        rec.Verdict,
		Code:           code,
		Value:          rec.ConditionValue,
		Conditional:    eligibility.Conditional(code),
		DataQualityGap: rec.Verdict == model.VerdictInconclusive,
		RadiusMeters:   mapRadius(code, s.radii),
	}

	mapPNG, err := s.maps.Fetch(ctx, addr.X, addr.Y, res.RadiusMeters)
	if err != nil {
		return nil, eris.Wrap(err, "consult: map image")
	}

	pdf, err := s.renderer.Render(res, *heading, *addr, mapPNG)
	if err != nil {
		return nil, eris.Wrap(err, "consult: render report")
	}
	return pdf, nil
}

// mapRadius picks the radius annotated on the situation map: the rule's
// exclusion radius for distance/density codes, none otherwise.
func mapRadius(code eligibility.Code, radii eligibility.Radii) float64 {
	switch code {
	case eligibility.CodeExclusionShort, eligibility.CodeDensityCap:
		return radii.ShortMeters
	case eligibility.CodeExclusionLong:
		return radii.LongMeters
	}
	return 0
}
