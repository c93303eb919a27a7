package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajuntament-olot/pla-usos/internal/model"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "consultes.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func intPtr(v int) *int       { return &v }
func int64Ptr(v int64) *int64 { return &v }

func TestSQLiteInsertAndGet(t *testing.T) {
	s := newTestSQLite(t)

	rec := model.Consultation{
		Requester:      model.Requester{DNI: "12345678Z", Name: "Núria Vila", Role: "titular"},
		DomCode:        "080450001234",
		HeadingID:      int64Ptr(42),
		ConditionCode:  intPtr(6),
		ConditionValue: intPtr(3),
		Verdict:        model.VerdictEligible,
	}
	id, err := s.InsertConsultation(context.Background(), rec)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := s.GetConsultation(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "12345678Z", got.Requester.DNI)
	assert.Equal(t, "080450001234", got.DomCode)
	require.NotNil(t, got.HeadingID)
	assert.Equal(t, int64(42), *got.HeadingID)
	require.NotNil(t, got.ConditionCode)
	assert.Equal(t, 6, *got.ConditionCode)
	assert.Equal(t, model.VerdictEligible, got.Verdict)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestSQLiteGetMissing(t *testing.T) {
	s := newTestSQLite(t)

	_, err := s.GetConsultation(context.Background(), "no-such-id")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNotFound))
}

func TestSQLiteOtherActivityRecord(t *testing.T) {
	s := newTestSQLite(t)

	rec := model.Consultation{
		Requester:        model.Requester{DNI: "87654321X", Name: "Pere Soler"},
		DomCode:          "080450009999",
		OtherActivity:    true,
		OtherDescription: "Taller de ceràmica artesanal",
		Verdict:          model.VerdictPending,
	}
	id, err := s.InsertConsultation(context.Background(), rec)
	require.NoError(t, err)

	got, err := s.GetConsultation(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, got.OtherActivity)
	assert.Equal(t, "Taller de ceràmica artesanal", got.OtherDescription)
	assert.Nil(t, got.HeadingID)
	assert.Nil(t, got.ConditionCode)
	assert.Equal(t, model.VerdictPending, got.Verdict)
}

func TestSQLiteListFilters(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	for _, rec := range []model.Consultation{
		{Requester: model.Requester{DNI: "1"}, DomCode: "A", Verdict: model.VerdictEligible},
		{Requester: model.Requester{DNI: "2"}, DomCode: "A", Verdict: model.VerdictIneligible},
		{Requester: model.Requester{DNI: "3"}, DomCode: "B", Verdict: model.VerdictEligible},
	} {
		_, err := s.InsertConsultation(ctx, rec)
		require.NoError(t, err)
	}

	all, err := s.ListConsultations(ctx, Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	byAddr, err := s.ListConsultations(ctx, Filter{DomCode: "A"})
	require.NoError(t, err)
	assert.Len(t, byAddr, 2)

	byVerdict, err := s.ListConsultations(ctx, Filter{Verdict: string(model.VerdictEligible)})
	require.NoError(t, err)
	assert.Len(t, byVerdict, 2)

	both, err := s.ListConsultations(ctx, Filter{DomCode: "A", Verdict: string(model.VerdictIneligible)})
	require.NoError(t, err)
	require.Len(t, both, 1)
	assert.Equal(t, "2", both[0].Requester.DNI)

	limited, err := s.ListConsultations(ctx, Filter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}
