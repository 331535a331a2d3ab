package weather

import (
	"context"
	"time"

	"github.com/couchcryptid/incident-analytics/internal/domain"
	"github.com/couchcryptid/incident-analytics/internal/flux"
	"github.com/couchcryptid/incident-analytics/internal/store"
)

// FieldConfig names the weather store's field for each metric. An empty name
// disables that metric: it is never queried and yields nil per incident.
type FieldConfig struct {
	Wind        string
	Temperature string
	Humidity    string
}

// enabled returns the configured (non-empty) field names.
func (f FieldConfig) enabled() []string {
	var fields []string
	for _, name := range []string{f.Wind, f.Temperature, f.Humidity} {
		if name != "" {
			fields = append(fields, name)
		}
	}
	return fields
}

// Fetcher retrieves one bounded weather window for a site tag.
type Fetcher interface {
	FetchWindow(ctx context.Context, siteTag string, start, stop time.Time) ([]domain.WeatherSample, error)
}

// storeQuerier is the slice of the store client the fetcher consumes.
type storeQuerier interface {
	Query(ctx context.Context, op, q string) ([]store.Record, error)
}

// StoreFetcher fetches weather windows from the weather bucket, pre-aggregated
// to one-hour means by the store.
type StoreFetcher struct {
	store       storeQuerier
	bucket      string
	measurement string
	siteTagKey  string
	fields      FieldConfig
}

// NewStoreFetcher creates a fetcher against the given weather bucket and
// measurement. siteTagKey is the tag the reference table's values select on
// (e.g. equip_grp).
func NewStoreFetcher(q storeQuerier, bucket, measurement, siteTagKey string, fields FieldConfig) *StoreFetcher {
	return &StoreFetcher{
		store:       q,
		bucket:      bucket,
		measurement: measurement,
		siteTagKey:  siteTagKey,
		fields:      fields,
	}
}

// FetchWindow runs the single window query for one site tag. With no fields
// configured it returns nothing without touching the store.
func (f *StoreFetcher) FetchWindow(ctx context.Context, siteTag string, start, stop time.Time) ([]domain.WeatherSample, error) {
	q := flux.WeatherQuery{
		Bucket:      f.bucket,
		Measurement: f.measurement,
		SiteTagKey:  f.siteTagKey,
		SiteTag:     siteTag,
		Fields:      f.fields.enabled(),
		Start:       start,
		Stop:        stop,
	}.Build()
	if q == "" {
		return nil, nil
	}

	rows, err := f.store.Query(ctx, "weather", q)
	if err != nil {
		return nil, err
	}

	samples := make([]domain.WeatherSample, 0, len(rows))
	for _, row := range rows {
		t, ok := row["_time"].(time.Time)
		if !ok {
			continue
		}
		field, ok := row["_field"].(string)
		if !ok {
			continue
		}
		value, ok := row["_value"].(float64)
		if !ok {
			continue
		}
		samples = append(samples, domain.WeatherSample{Time: t, Field: field, Value: value})
	}
	return samples, nil
}
