// Package repository executes incident queries against the time-series store
// and maps raw rows into domain records.
//
// Read paths follow a "fail soft, log loud" policy: a store failure degrades
// to an empty result with a logged diagnostic instead of propagating, so an
// unreachable analytics store never takes down unrelated request handling.
// Only validation errors abort a request.
package repository

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/couchcryptid/incident-analytics/internal/domain"
	"github.com/couchcryptid/incident-analytics/internal/flux"
	"github.com/couchcryptid/incident-analytics/internal/observability"
	"github.com/couchcryptid/incident-analytics/internal/store"
)

// Querier is the slice of the store client the repository consumes.
type Querier interface {
	Query(ctx context.Context, op, q string) ([]store.Record, error)
	QueryValues(ctx context.Context, op, q string) ([]string, error)
	QueryTimes(ctx context.Context, op, q string) ([]time.Time, error)
}

// IncidentRepository fetches incident records and distinct filter options.
type IncidentRepository struct {
	store   Querier
	builder *flux.Builder
	norm    *domain.TimeNormalizer
	logger  *slog.Logger
	metrics *observability.Metrics
}

// New creates an IncidentRepository.
func New(q Querier, b *flux.Builder, norm *domain.TimeNormalizer, logger *slog.Logger, metrics *observability.Metrics) *IncidentRepository {
	return &IncidentRepository{
		store:   q,
		builder: b,
		norm:    norm,
		logger:  logger,
		metrics: metrics,
	}
}

// Fetch returns the incidents matching the criteria, newest first. A
// malformed filter combination returns a validation error; store failures
// return an empty list.
func (r *IncidentRepository) Fetch(ctx context.Context, c domain.FilterCriteria) ([]domain.Incident, error) {
	q, err := r.builder.IncidentQuery(c)
	if err != nil {
		return nil, err
	}

	rows, err := r.store.Query(ctx, "incidents", q)
	if err != nil {
		r.logger.Error("incident query failed, returning empty result", "error", err)
		return []domain.Incident{}, nil
	}

	incidents := make([]domain.Incident, 0, len(rows))
	for _, row := range rows {
		incidents = append(incidents, r.mapRecord(row))
	}
	r.metrics.IncidentsFetched.Add(float64(len(incidents)))
	return incidents, nil
}

// mapRecord converts one pivoted store row into an Incident. The point
// timestamp is the start instant; the end wall clock is reassembled from its
// formatted field pair and left zero when absent or unparseable.
func (r *IncidentRepository) mapRecord(row store.Record) domain.Incident {
	inc := domain.Incident{
		Number:       asInt(row[flux.FieldNumber]),
		District:     asString(row[flux.TagDistrict]),
		VoltageLevel: domain.ParseVoltageLevel(asString(row[flux.TagVoltage])),
		Cause:        asString(row[flux.FieldCause]),
		Locality:     asString(row[flux.FieldLocality]),
		Distributor:  asString(row[flux.FieldDistributor]),
		Installation: asString(row[flux.FieldInstallation]),
		Substations:  asInt(row[flux.FieldSubstations]),
		Customers:    asInt(row[flux.FieldCustomers]),
		Power:        asFloat(row[flux.FieldPower]),
		Complaints:   asInt(row[flux.FieldComplaints]),
	}

	if t, ok := row["_time"].(time.Time); ok {
		inc.StartLocal = t.In(r.norm.Location())
	}

	endDate := asString(row[flux.FieldEndDate])
	if _, ok := r.norm.ParseFlexibleDate(endDate); ok {
		inc.EndLocal = r.norm.ParseFlexibleDateTime(endDate, asString(row[flux.FieldEndTime]))
	}
	return inc
}

// ListDistricts returns the distinct district tags, sorted ascending.
func (r *IncidentRepository) ListDistricts(ctx context.Context) []string {
	values, err := r.store.QueryValues(ctx, "districts", r.builder.DistrictsQuery())
	if err != nil {
		r.logger.Error("district lookup failed, returning empty result", "error", err)
		return []string{}
	}
	sort.Strings(values)
	return values
}

// ListCauses returns the distinct non-empty cause strings, sorted ascending.
func (r *IncidentRepository) ListCauses(ctx context.Context) []string {
	values, err := r.store.QueryValues(ctx, "causes", r.builder.CausesQuery())
	if err != nil {
		r.logger.Error("cause lookup failed, returning empty result", "error", err)
		return []string{}
	}
	causes := values[:0]
	for _, v := range values {
		if v != "" {
			causes = append(causes, v)
		}
	}
	sort.Strings(causes)
	return causes
}

// ListAvailableDates returns the distinct local calendar days that have
// incident data, sorted ascending.
func (r *IncidentRepository) ListAvailableDates(ctx context.Context) []time.Time {
	times, err := r.store.QueryTimes(ctx, "dates", r.builder.DatesQuery())
	if err != nil {
		r.logger.Error("date lookup failed, returning empty result", "error", err)
		return []time.Time{}
	}

	seen := make(map[time.Time]struct{}, len(times))
	dates := make([]time.Time, 0, len(times))
	for _, t := range times {
		local := t.In(r.norm.Location())
		day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, r.norm.Location())
		if _, dup := seen[day]; dup {
			continue
		}
		seen[day] = struct{}{}
		dates = append(dates, day)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

// Store values arrive as any. The ingestion pipeline writes ints and floats,
// but pivoted rows can surface either, so the coercions accept both.

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asInt(v any) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	case float64:
		return int(n)
	default:
		return 0
	}
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	case int:
		return float64(n)
	default:
		return 0
	}
}
