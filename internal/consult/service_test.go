package consult

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ajuntament-olot/pla-usos/internal/eligibility"
	"github.com/ajuntament-olot/pla-usos/internal/mapimage"
	"github.com/ajuntament-olot/pla-usos/internal/model"
	"github.com/ajuntament-olot/pla-usos/internal/proximity"
	"github.com/ajuntament-olot/pla-usos/internal/store"
)

func intPtr(v int) *int       { return &v }
func int64Ptr(v int64) *int64 { return &v }

var (
	svcAddr = model.Address{
		DomCode:      "080450001234",
		StreetName:   "Carrer Major",
		StreetNumber: "12",
		X:            456123.5,
		Y:            4670890.2,
		ZoneID:       3,
	}
	svcHeading = model.ActivityHeading{
		ID:                  42,
		Code:                "1.2.3",
		GroupCode:           1,
		Description:         "Bar amb restauració menor",
		GroupDescription:    "Restauració",
		SubgroupDescription: "Bars",
	}
	svcRequest = Request{
		Requester: model.Requester{DNI: "12345678Z", Name: "Núria Vila", Role: "titular"},
		DomCode:   "080450001234",
		HeadingID: 42,
	}
)

type fixture struct {
	catalog  *mockCatalog
	prov     *mockProvider
	maps     *mockMapClient
	store    *mockStore
	notifier *mockNotifier
	svc      *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		catalog:  &mockCatalog{},
		prov:     &mockProvider{},
		maps:     &mockMapClient{},
		store:    &mockStore{},
		notifier: &mockNotifier{},
	}
	renderer := newTestRenderer()
	f.svc = NewService(f.catalog, f.prov, f.maps, f.store, renderer, f.notifier, eligibility.DefaultRadii())
	return f
}

func (f *fixture) assertExpectations(t *testing.T) {
	t.Helper()
	f.catalog.AssertExpectations(t)
	f.prov.AssertExpectations(t)
	f.maps.AssertExpectations(t)
	f.store.AssertExpectations(t)
	f.notifier.AssertExpectations(t)
}

func TestRunDensityCapAdmitted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.catalog.On("ResolveAddress", mock.Anything, "080450001234").Return(&svcAddr, nil)
	f.catalog.On("Heading", mock.Anything, int64(42)).Return(&svcHeading, nil)
	f.catalog.On("ResolveCondition", mock.Anything, &svcAddr, int64(42)).
		Return(&model.ConditionRule{Code: 6, Value: intPtr(3)}, nil)
	f.prov.On("CountNearby", mock.Anything, mock.MatchedBy(func(q proximity.Query) bool {
		return q.RadiusMeters == 50 && q.GroupCode == 1 && q.OriginDomCode == svcAddr.DomCode
	})).Return(2, nil)
	f.maps.On("Fetch", mock.Anything, svcAddr.X, svcAddr.Y, 50.0).Return(testPNG(t), nil)
	f.store.On("InsertConsultation", mock.Anything, mock.MatchedBy(func(c model.Consultation) bool {
		return c.Verdict == model.VerdictEligible && *c.ConditionCode == 6 && *c.ConditionValue == 3 &&
			*c.HeadingID == 42 && !c.OtherActivity
	})).Return("rec-1", nil)

	out, err := f.svc.Run(ctx, svcRequest)
	require.NoError(t, err)
	assert.Equal(t, "rec-1", out.RecordID)
	assert.Equal(t, model.VerdictEligible, out.Result.Verdict)
	assert.Equal(t, 2, out.Result.NearbyCount)
	assert.True(t, bytes.HasPrefix(out.PDF, []byte("%PDF-")))
	f.assertExpectations(t)
}

func TestRunExclusionRefused(t *testing.T) {
	f := newFixture(t)

	f.catalog.On("ResolveAddress", mock.Anything, "080450001234").Return(&svcAddr, nil)
	f.catalog.On("Heading", mock.Anything, int64(42)).Return(&svcHeading, nil)
	f.catalog.On("ResolveCondition", mock.Anything, &svcAddr, int64(42)).
		Return(&model.ConditionRule{Code: 4}, nil)
	f.prov.On("CountNearby", mock.Anything, mock.Anything).Return(1, nil)
	f.maps.On("Fetch", mock.Anything, svcAddr.X, svcAddr.Y, 50.0).Return(testPNG(t), nil)
	f.store.On("InsertConsultation", mock.Anything, mock.MatchedBy(func(c model.Consultation) bool {
		return c.Verdict == model.VerdictIneligible
	})).Return("rec-2", nil)

	out, err := f.svc.Run(context.Background(), svcRequest)
	require.NoError(t, err)
	assert.Equal(t, model.VerdictIneligible, out.Result.Verdict)
	assert.NotEmpty(t, out.PDF)
	f.assertExpectations(t)
}

// A missing street width records an inconclusive verdict and still delivers
// a report carrying the data alert instead of a verdict block.
func TestRunWidthGapIsInconclusive(t *testing.T) {
	f := newFixture(t)
	addr := svcAddr // StreetWidth nil

	f.catalog.On("ResolveAddress", mock.Anything, "080450001234").Return(&addr, nil)
	f.catalog.On("Heading", mock.Anything, int64(42)).Return(&svcHeading, nil)
	f.catalog.On("ResolveCondition", mock.Anything, &addr, int64(42)).
		Return(&model.ConditionRule{Code: 7, Value: intPtr(7)}, nil)
	f.maps.On("Fetch", mock.Anything, addr.X, addr.Y, 0.0).Return(testPNG(t), nil)
	f.store.On("InsertConsultation", mock.Anything, mock.MatchedBy(func(c model.Consultation) bool {
		return c.Verdict == model.VerdictInconclusive
	})).Return("rec-3", nil)

	out, err := f.svc.Run(context.Background(), svcRequest)
	require.NoError(t, err)
	assert.Equal(t, model.VerdictInconclusive, out.Result.Verdict)
	assert.True(t, out.Result.DataQualityGap)
	assert.NotEmpty(t, out.PDF)
	f.assertExpectations(t)
}

func TestRunDegradedProximity(t *testing.T) {
	f := newFixture(t)
	f.prov.degraded = true

	f.catalog.On("ResolveAddress", mock.Anything, "080450001234").Return(&svcAddr, nil)
	f.catalog.On("Heading", mock.Anything, int64(42)).Return(&svcHeading, nil)
	f.catalog.On("ResolveCondition", mock.Anything, &svcAddr, int64(42)).
		Return(&model.ConditionRule{Code: 5}, nil)
	f.prov.On("CountNearby", mock.Anything, mock.Anything).Return(0, nil)
	f.maps.On("Fetch", mock.Anything, svcAddr.X, svcAddr.Y, 100.0).Return(testPNG(t), nil)
	f.store.On("InsertConsultation", mock.Anything, mock.Anything).Return("rec-4", nil)

	out, err := f.svc.Run(context.Background(), svcRequest)
	require.NoError(t, err)
	assert.Equal(t, model.VerdictEligible, out.Result.Verdict)
	assert.True(t, out.Result.Degraded)
	f.assertExpectations(t)
}

func TestRunProximityTimeoutAbortsWithoutRecord(t *testing.T) {
	f := newFixture(t)

	f.catalog.On("ResolveAddress", mock.Anything, "080450001234").Return(&svcAddr, nil)
	f.catalog.On("Heading", mock.Anything, int64(42)).Return(&svcHeading, nil)
	f.catalog.On("ResolveCondition", mock.Anything, &svcAddr, int64(42)).
		Return(&model.ConditionRule{Code: 4}, nil)
	f.prov.On("CountNearby", mock.Anything, mock.Anything).Return(0, proximity.ErrTimeout)
	f.maps.On("Fetch", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, context.Canceled).Maybe()

	_, err := f.svc.Run(context.Background(), svcRequest)
	require.Error(t, err)
	assert.True(t, eris.Is(err, proximity.ErrTimeout))
	f.store.AssertNotCalled(t, "InsertConsultation", mock.Anything, mock.Anything)
}

func TestRunPersistenceFailureAborts(t *testing.T) {
	f := newFixture(t)

	f.catalog.On("ResolveAddress", mock.Anything, "080450001234").Return(&svcAddr, nil)
	f.catalog.On("Heading", mock.Anything, int64(42)).Return(&svcHeading, nil)
	f.catalog.On("ResolveCondition", mock.Anything, &svcAddr, int64(42)).
		Return(&model.ConditionRule{Code: 2}, nil)
	f.maps.On("Fetch", mock.Anything, svcAddr.X, svcAddr.Y, 0.0).Return(testPNG(t), nil)
	f.store.On("InsertConsultation", mock.Anything, mock.Anything).
		Return("", store.ErrWriteFailed)

	out, err := f.svc.Run(context.Background(), svcRequest)
	require.Error(t, err)
	assert.True(t, eris.Is(err, store.ErrWriteFailed))
	assert.Nil(t, out)
}

// When the map provider fails, the verdict is still recorded and the error
// propagates; no report without its situation map.
func TestRunMapFailureAfterRecord(t *testing.T) {
	f := newFixture(t)

	f.catalog.On("ResolveAddress", mock.Anything, "080450001234").Return(&svcAddr, nil)
	f.catalog.On("Heading", mock.Anything, int64(42)).Return(&svcHeading, nil)
	f.catalog.On("ResolveCondition", mock.Anything, &svcAddr, int64(42)).
		Return(&model.ConditionRule{Code: 2}, nil)
	f.maps.On("Fetch", mock.Anything, svcAddr.X, svcAddr.Y, 0.0).
		Return(nil, mapimage.ErrUnavailable)
	f.store.On("InsertConsultation", mock.Anything, mock.MatchedBy(func(c model.Consultation) bool {
		return c.Verdict == model.VerdictEligible
	})).Return("rec-5", nil)

	out, err := f.svc.Run(context.Background(), svcRequest)
	require.Error(t, err)
	assert.True(t, eris.Is(err, mapimage.ErrUnavailable))
	require.NotNil(t, out)
	assert.Equal(t, "rec-5", out.RecordID)
	assert.Nil(t, out.PDF)
	f.assertExpectations(t)
}

func TestRunOtherActivity(t *testing.T) {
	f := newFixture(t)

	req := Request{
		Requester:        svcRequest.Requester,
		DomCode:          "080450001234",
		OtherActivity:    true,
		OtherDescription: "Taller de ceràmica artesanal",
	}

	f.catalog.On("ResolveAddress", mock.Anything, "080450001234").Return(&svcAddr, nil)
	f.store.On("InsertConsultation", mock.Anything, mock.MatchedBy(func(c model.Consultation) bool {
		return c.OtherActivity && c.Verdict == model.VerdictPending &&
			c.OtherDescription == "Taller de ceràmica artesanal" && c.HeadingID == nil
	})).Return("rec-6", nil)
	f.notifier.On("NotifyReviewBoard", mock.Anything, mock.MatchedBy(func(c model.Consultation) bool {
		return c.ID == "rec-6"
	})).Return(nil)

	out, err := f.svc.Run(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, out.Pending)
	assert.Nil(t, out.PDF)
	f.assertExpectations(t)
	f.catalog.AssertNotCalled(t, "ResolveCondition", mock.Anything, mock.Anything, mock.Anything)
}

func TestRunUnknownAddress(t *testing.T) {
	f := newFixture(t)

	f.catalog.On("ResolveAddress", mock.Anything, "nope").
		Return(nil, eris.New("address not found"))

	_, err := f.svc.Run(context.Background(), Request{DomCode: "nope", HeadingID: 42})
	require.Error(t, err)
	f.store.AssertNotCalled(t, "InsertConsultation", mock.Anything, mock.Anything)
}

func TestRegenerateReport(t *testing.T) {
	f := newFixture(t)

	rec := &model.Consultation{
		ID:            "rec-7",
		DomCode:       "080450001234",
		HeadingID:     int64Ptr(42),
		ConditionCode: intPtr(4),
		Verdict:       model.VerdictIneligible,
		CreatedAt:     time.Now(),
	}
	f.store.On("GetConsultation", mock.Anything, "rec-7").Return(rec, nil)
	f.catalog.On("ResolveAddress", mock.Anything, "080450001234").Return(&svcAddr, nil)
	f.catalog.On("Heading", mock.Anything, int64(42)).Return(&svcHeading, nil)
	f.maps.On("Fetch", mock.Anything, svcAddr.X, svcAddr.Y, 50.0).Return(testPNG(t), nil)

	pdf, err := f.svc.RegenerateReport(context.Background(), "rec-7")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF-")))
	f.assertExpectations(t)
}

func TestRegenerateReportRejectsPending(t *testing.T) {
	f := newFixture(t)

	rec := &model.Consultation{
		ID:            "rec-8",
		DomCode:       "080450001234",
		OtherActivity: true,
		Verdict:       model.VerdictPending,
	}
	f.store.On("GetConsultation", mock.Anything, "rec-8").Return(rec, nil)

	_, err := f.svc.RegenerateReport(context.Background(), "rec-8")
	require.Error(t, err)
	assert.True(t, eris.Is(err, store.ErrNotFound))
}
