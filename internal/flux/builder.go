// Package flux assembles Flux queries against the incident and weather
// buckets. All user-controlled string values pass through Escape before being
// embedded in a predicate; query text is otherwise static.
package flux

import (
	"fmt"
	"strings"
	"time"

	"github.com/couchcryptid/incident-analytics/internal/domain"
)

// Incident measurement schema as written by the ingestion pipeline.
const (
	MeasurementIncidents = "incidencia_electrica"

	TagDistrict = "distrito"
	TagVoltage  = "nivel_tension"

	FieldNumber       = "nro_incidencia"
	FieldEndDate      = "fecha_fin_fecha"
	FieldEndTime      = "hora_fin"
	FieldLocality     = "localidad"
	FieldDistributor  = "distribuidor"
	FieldInstallation = "instalacion"
	FieldSubstations  = "ct_involucrados"
	FieldCustomers    = "nises_involucrados"
	FieldPower        = "potencia_involucrada"
	FieldCause        = "descripcion_de_la_causa"
	FieldComplaints   = "cantidad_de_reclamos"
	FieldStartDate    = "fecha_inicio_fecha"
	FieldStartTime    = "hora_inicio"
)

// Lookback bounds queries with no explicit time range. A safeguard against
// unbounded reads, not a business rule.
const Lookback = "-5y"

// Escape prepares a user-supplied string for embedding in a double-quoted
// Flux string literal: backslashes first, then double quotes.
func Escape(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return s
}

// Builder constructs incident queries for one bucket.
type Builder struct {
	bucket string
	norm   *domain.TimeNormalizer
}

// NewBuilder creates a Builder for the given incident bucket.
func NewBuilder(bucket string, norm *domain.TimeNormalizer) *Builder {
	return &Builder{bucket: bucket, norm: norm}
}

// IncidentQuery builds the filtered listing query. The range is the half-open
// UTC window covering the criteria's local calendar days (start-only means
// exactly that day); with no dates it falls back to the bounded lookback.
// Tag and field predicates are appended only when non-empty, and the
// descending time sort is always the final stage.
func (b *Builder) IncidentQuery(c domain.FilterCriteria) (string, error) {
	if err := c.Validate(); err != nil {
		return "", err
	}

	parts := []string{
		fmt.Sprintf(`from(bucket: "%s")`, b.bucket),
		b.rangeClause(c),
		fmt.Sprintf(`|> filter(fn: (r) => r._measurement == "%s")`, MeasurementIncidents),
		`|> pivot(rowKey:["_time"], columnKey: ["_field"], valueColumn: "_value")`,
	}
	if c.District != "" {
		parts = append(parts, fmt.Sprintf(`|> filter(fn: (r) => r.%s == "%s")`, TagDistrict, Escape(c.District)))
	}
	if c.Cause != "" {
		parts = append(parts, fmt.Sprintf(`|> filter(fn: (r) => r.%s == "%s")`, FieldCause, Escape(c.Cause)))
	}
	if c.Voltage != domain.VoltageUnknown {
		parts = append(parts, fmt.Sprintf(`|> filter(fn: (r) => r.%s == "%s")`, TagVoltage, string(c.Voltage)))
	}
	parts = append(parts, `|> sort(columns: ["_time"], desc: true)`)

	return strings.Join(parts, "\n"), nil
}

func (b *Builder) rangeClause(c domain.FilterCriteria) string {
	if c.StartDate == nil {
		return fmt.Sprintf(`|> range(start: %s)`, Lookback)
	}
	endDay := *c.StartDate
	if c.EndDate != nil {
		endDay = *c.EndDate
	}
	start, stop := b.norm.DayRangeExclusive(*c.StartDate, endDay)
	return fmt.Sprintf(`|> range(start: %s, stop: %s)`,
		start.Format(time.RFC3339), stop.Format(time.RFC3339))
}

// DistrictsQuery enumerates distinct district tag values over the lookback.
func (b *Builder) DistrictsQuery() string {
	return fmt.Sprintf(`import "influxdata/influxdb/schema"
schema.tagValues(bucket: "%s", tag: "%s", start: %s)`, b.bucket, TagDistrict, Lookback)
}

// CausesQuery enumerates distinct cause field values over the lookback.
func (b *Builder) CausesQuery() string {
	return fmt.Sprintf(`from(bucket: "%s")
|> range(start: %s)
|> filter(fn: (r) => r._measurement == "%s" and r._field == "%s")
|> group()
|> distinct(column: "_value")
|> keep(columns: ["_value"])`, b.bucket, Lookback, MeasurementIncidents, FieldCause)
}

// DatesQuery returns only the timestamps of incident points over the
// lookback, for distinct-date enumeration.
func (b *Builder) DatesQuery() string {
	return fmt.Sprintf(`from(bucket: "%s")
|> range(start: %s)
|> filter(fn: (r) => r._measurement == "%s")
|> keep(columns: ["_time"])`, b.bucket, Lookback, MeasurementIncidents)
}

// DeletePredicate selects every incident point for the purge operation.
func DeletePredicate() string {
	return fmt.Sprintf(`_measurement="%s"`, MeasurementIncidents)
}

// WeatherQuery fetches every configured weather field for one site over a
// bounded UTC window, pre-aggregated to one-hour means.
type WeatherQuery struct {
	Bucket      string
	Measurement string
	SiteTagKey  string
	SiteTag     string
	Fields      []string
	Start       time.Time
	Stop        time.Time
}

// Build renders the weather window query. Returns "" when no fields are
// configured; there is nothing to ask the store for.
func (q WeatherQuery) Build() string {
	if len(q.Fields) == 0 {
		return ""
	}
	preds := make([]string, len(q.Fields))
	for i, f := range q.Fields {
		preds[i] = fmt.Sprintf(`r._field == "%s"`, Escape(f))
	}
	return fmt.Sprintf(`from(bucket: "%s")
|> range(start: %s, stop: %s)
|> filter(fn: (r) => r._measurement == "%s")
|> filter(fn: (r) => r["%s"] == "%s")
|> filter(fn: (r) => %s)
|> aggregateWindow(every: 1h, fn: mean, createEmpty: false)
|> keep(columns: ["_time", "_field", "_value"])`,
		q.Bucket,
		q.Start.UTC().Format(time.RFC3339), q.Stop.UTC().Format(time.RFC3339),
		Escape(q.Measurement),
		Escape(q.SiteTagKey), Escape(q.SiteTag),
		strings.Join(preds, " or "))
}
