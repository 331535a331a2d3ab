package flux

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/incident-analytics/internal/domain"
)

func testBuilder(t *testing.T) *Builder {
	t.Helper()
	loc, err := time.LoadLocation("America/Argentina/San_Luis")
	require.NoError(t, err)
	return NewBuilder("incidencias", domain.NewTimeNormalizer(loc))
}

func TestEscape(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain", "Tormenta", "Tormenta"},
		{"double quote", `O'Brien "short"`, `O'Brien \"short\"`},
		{"backslash", `a\b`, `a\\b`},
		{"backslash before quote", `\"`, `\\\"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Escape(tt.input))
		})
	}
}

func TestIncidentQuery(t *testing.T) {
	b := testBuilder(t)
	day := func(y int, m time.Month, d int) *time.Time {
		t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		return &t
	}

	t.Run("no dates falls back to bounded lookback", func(t *testing.T) {
		q, err := b.IncidentQuery(domain.FilterCriteria{})
		require.NoError(t, err)
		assert.Contains(t, q, `from(bucket: "incidencias")`)
		assert.Contains(t, q, `|> range(start: -5y)`)
		assert.Contains(t, q, `r._measurement == "incidencia_electrica"`)
		assert.Contains(t, q, `|> pivot(rowKey:["_time"], columnKey: ["_field"], valueColumn: "_value")`)
		assert.NotContains(t, q, "r.distrito")
		assert.NotContains(t, q, "r.descripcion_de_la_causa")
		assert.NotContains(t, q, "r.nivel_tension")
	})

	t.Run("start only queries exactly that local day", func(t *testing.T) {
		q, err := b.IncidentQuery(domain.FilterCriteria{StartDate: day(2024, 1, 10)})
		require.NoError(t, err)
		// Local midnight in San Luis (UTC-3) is 03:00Z; stop is exclusive
		// next local midnight, not a rolling 24h window.
		assert.Contains(t, q, `|> range(start: 2024-01-10T03:00:00Z, stop: 2024-01-11T03:00:00Z)`)
	})

	t.Run("start and end span whole inclusive days", func(t *testing.T) {
		q, err := b.IncidentQuery(domain.FilterCriteria{
			StartDate: day(2024, 1, 10),
			EndDate:   day(2024, 1, 20),
		})
		require.NoError(t, err)
		assert.Contains(t, q, `|> range(start: 2024-01-10T03:00:00Z, stop: 2024-01-21T03:00:00Z)`)
	})

	t.Run("end without start is a validation error", func(t *testing.T) {
		_, err := b.IncidentQuery(domain.FilterCriteria{EndDate: day(2024, 1, 10)})
		var verr *domain.ValidationError
		require.ErrorAs(t, err, &verr)
	})

	t.Run("quoted cause is escaped into a valid predicate", func(t *testing.T) {
		q, err := b.IncidentQuery(domain.FilterCriteria{Cause: `O'Brien "short"`})
		require.NoError(t, err)
		assert.Contains(t, q, `|> filter(fn: (r) => r.descripcion_de_la_causa == "O'Brien \"short\"")`)
	})

	t.Run("district and voltage filters appended when set", func(t *testing.T) {
		q, err := b.IncidentQuery(domain.FilterCriteria{
			District: "JUANA KOSLAY",
			Voltage:  domain.VoltageMT,
		})
		require.NoError(t, err)
		assert.Contains(t, q, `|> filter(fn: (r) => r.distrito == "JUANA KOSLAY")`)
		assert.Contains(t, q, `|> filter(fn: (r) => r.nivel_tension == "MT")`)
	})

	t.Run("attribute filters come after the pivot", func(t *testing.T) {
		q, err := b.IncidentQuery(domain.FilterCriteria{District: "CAPITAL"})
		require.NoError(t, err)
		pivot := strings.Index(q, "|> pivot(")
		filter := strings.Index(q, `r.distrito == "CAPITAL"`)
		require.GreaterOrEqual(t, pivot, 0)
		assert.Greater(t, filter, pivot)
	})

	t.Run("descending time sort is the final stage", func(t *testing.T) {
		q, err := b.IncidentQuery(domain.FilterCriteria{District: "CAPITAL"})
		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(q, `|> sort(columns: ["_time"], desc: true)`))
	})
}

func TestDistinctQueries(t *testing.T) {
	b := testBuilder(t)

	t.Run("districts uses the schema tag enumeration", func(t *testing.T) {
		q := b.DistrictsQuery()
		assert.Contains(t, q, `import "influxdata/influxdb/schema"`)
		assert.Contains(t, q, `schema.tagValues(bucket: "incidencias", tag: "distrito", start: -5y)`)
	})

	t.Run("causes deduplicates field values over the lookback", func(t *testing.T) {
		q := b.CausesQuery()
		assert.Contains(t, q, `|> range(start: -5y)`)
		assert.Contains(t, q, `r._field == "descripcion_de_la_causa"`)
		assert.Contains(t, q, `|> distinct(column: "_value")`)
	})

	t.Run("dates keeps only timestamps", func(t *testing.T) {
		q := b.DatesQuery()
		assert.Contains(t, q, `|> keep(columns: ["_time"])`)
	})
}

func TestWeatherQuery(t *testing.T) {
	base := WeatherQuery{
		Bucket:      "clima",
		Measurement: "clima",
		SiteTagKey:  "equip_grp",
		SiteTag:     "ETSL",
		Fields:      []string{"windspeed", "temperature", "humidity"},
		Start:       time.Date(2024, 1, 10, 3, 0, 0, 0, time.UTC),
		Stop:        time.Date(2024, 1, 11, 3, 0, 0, 0, time.UTC),
	}

	t.Run("full query", func(t *testing.T) {
		q := base.Build()
		assert.Contains(t, q, `from(bucket: "clima")`)
		assert.Contains(t, q, `|> range(start: 2024-01-10T03:00:00Z, stop: 2024-01-11T03:00:00Z)`)
		assert.Contains(t, q, `r["equip_grp"] == "ETSL"`)
		assert.Contains(t, q, `r._field == "windspeed" or r._field == "temperature" or r._field == "humidity"`)
		assert.Contains(t, q, `|> aggregateWindow(every: 1h, fn: mean, createEmpty: false)`)
		assert.Contains(t, q, `|> keep(columns: ["_time", "_field", "_value"])`)
	})

	t.Run("no fields builds nothing", func(t *testing.T) {
		q := base
		q.Fields = nil
		assert.Empty(t, q.Build())
	})
}

func TestDeletePredicate(t *testing.T) {
	assert.Equal(t, `_measurement="incidencia_electrica"`, DeletePredicate())
}
