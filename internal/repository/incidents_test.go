package repository

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/incident-analytics/internal/domain"
	"github.com/couchcryptid/incident-analytics/internal/flux"
	"github.com/couchcryptid/incident-analytics/internal/observability"
	"github.com/couchcryptid/incident-analytics/internal/store"
)

// --- mocks ---

type mockQuerier struct {
	rows    []store.Record
	values  []string
	times   []time.Time
	err     error
	queries []string
}

func (m *mockQuerier) Query(_ context.Context, _, q string) ([]store.Record, error) {
	m.queries = append(m.queries, q)
	return m.rows, m.err
}

func (m *mockQuerier) QueryValues(_ context.Context, _, q string) ([]string, error) {
	m.queries = append(m.queries, q)
	return m.values, m.err
}

func (m *mockQuerier) QueryTimes(_ context.Context, _, q string) ([]time.Time, error) {
	m.queries = append(m.queries, q)
	return m.times, m.err
}

func newTestRepo(t *testing.T, q Querier) (*IncidentRepository, *time.Location) {
	t.Helper()
	loc, err := time.LoadLocation("America/Argentina/San_Luis")
	require.NoError(t, err)
	norm := domain.NewTimeNormalizer(loc)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(q, flux.NewBuilder("incidencias", norm), norm, logger, observability.NewMetricsForTesting()), loc
}

// --- tests ---

func TestFetch_MapsRecords(t *testing.T) {
	// Start instant as the store returns it: UTC.
	startUTC := time.Date(2024, 1, 10, 18, 30, 0, 0, time.UTC)
	q := &mockQuerier{rows: []store.Record{{
		"_time":                   startUTC,
		"nro_incidencia":          int64(48210),
		"distrito":                "JUANA KOSLAY",
		"nivel_tension":           "MT",
		"descripcion_de_la_causa": "Tormenta",
		"localidad":               "El Volcán",
		"distribuidor":            "D12",
		"instalacion":             "ETSL-4",
		"ct_involucrados":         int64(3),
		"nises_involucrados":      float64(250),
		"potencia_involucrada":    int64(630),
		"cantidad_de_reclamos":    int64(17),
		"fecha_fin_fecha":         "10/01/2024",
		"hora_fin":                "17:45:00",
	}}}
	repo, loc := newTestRepo(t, q)

	incidents, err := repo.Fetch(context.Background(), domain.FilterCriteria{})
	require.NoError(t, err)
	require.Len(t, incidents, 1)

	inc := incidents[0]
	assert.Equal(t, 48210, inc.Number)
	assert.Equal(t, "JUANA KOSLAY", inc.District)
	assert.Equal(t, domain.VoltageMT, inc.VoltageLevel)
	assert.Equal(t, "Tormenta", inc.Cause)
	assert.Equal(t, 3, inc.Substations)
	assert.Equal(t, 250, inc.Customers)
	assert.Equal(t, 630.0, inc.Power)
	assert.Equal(t, 17, inc.Complaints)
	// 18:30Z is 15:30 local (UTC-3).
	assert.Equal(t, time.Date(2024, 1, 10, 15, 30, 0, 0, loc), inc.StartLocal)
	assert.Equal(t, time.Date(2024, 1, 10, 17, 45, 0, 0, loc), inc.EndLocal)
	assert.True(t, inc.HasValidWindow())
}

func TestFetch_MissingEndIsOngoing(t *testing.T) {
	q := &mockQuerier{rows: []store.Record{{
		"_time":           time.Date(2024, 1, 10, 18, 30, 0, 0, time.UTC),
		"nro_incidencia":  int64(1),
		"distrito":        "CAPITAL",
		"fecha_fin_fecha": "",
		"hora_fin":        "",
	}}}
	repo, _ := newTestRepo(t, q)

	incidents, err := repo.Fetch(context.Background(), domain.FilterCriteria{})
	require.NoError(t, err)
	require.Len(t, incidents, 1)
	assert.True(t, incidents[0].EndLocal.IsZero())
	assert.False(t, incidents[0].HasValidWindow())
}

func TestFetch_StoreErrorDegradesToEmpty(t *testing.T) {
	q := &mockQuerier{err: errors.New("store unreachable")}
	repo, _ := newTestRepo(t, q)

	incidents, err := repo.Fetch(context.Background(), domain.FilterCriteria{})
	require.NoError(t, err)
	assert.Empty(t, incidents)
}

func TestFetch_ValidationErrorAborts(t *testing.T) {
	q := &mockQuerier{}
	repo, _ := newTestRepo(t, q)

	end := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	_, err := repo.Fetch(context.Background(), domain.FilterCriteria{EndDate: &end})

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Empty(t, q.queries, "no store query should be issued")
}

func TestListDistricts_Sorted(t *testing.T) {
	q := &mockQuerier{values: []string{"VILLA MERCEDES", "CAPITAL", "JUANA KOSLAY"}}
	repo, _ := newTestRepo(t, q)

	assert.Equal(t, []string{"CAPITAL", "JUANA KOSLAY", "VILLA MERCEDES"}, repo.ListDistricts(context.Background()))
}

func TestListCauses_DropsEmptyAndSorts(t *testing.T) {
	q := &mockQuerier{values: []string{"Viento", "", "Arbol", "Tormenta"}}
	repo, _ := newTestRepo(t, q)

	assert.Equal(t, []string{"Arbol", "Tormenta", "Viento"}, repo.ListCauses(context.Background()))
}

func TestListCauses_ErrorDegradesToEmpty(t *testing.T) {
	q := &mockQuerier{err: errors.New("timeout")}
	repo, _ := newTestRepo(t, q)

	assert.Empty(t, repo.ListCauses(context.Background()))
}

func TestListAvailableDates_DeduplicatesLocalDays(t *testing.T) {
	q := &mockQuerier{times: []time.Time{
		time.Date(2024, 1, 11, 1, 0, 0, 0, time.UTC),  // still Jan 10 local (UTC-3)
		time.Date(2024, 1, 10, 18, 0, 0, 0, time.UTC), // Jan 10 local
		time.Date(2024, 1, 12, 12, 0, 0, 0, time.UTC), // Jan 12 local
	}}
	repo, loc := newTestRepo(t, q)

	dates := repo.ListAvailableDates(context.Background())
	assert.Equal(t, []time.Time{
		time.Date(2024, 1, 10, 0, 0, 0, 0, loc),
		time.Date(2024, 1, 12, 0, 0, 0, 0, loc),
	}, dates)
}
