// Package weather joins incident time windows against an external weather
// time series, keyed by a district→site reference table.
package weather

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/couchcryptid/incident-analytics/internal/domain"
	"github.com/couchcryptid/incident-analytics/internal/observability"
)

// preEventWindow is how far before the earliest incident start the fetched
// window is extended, and the span of the pre-event humidity feature.
const preEventWindow = 6 * time.Hour

// Result pairs one incident with its derived weather metrics and join status.
type Result struct {
	Incident domain.Incident       `json:"incident"`
	Metrics  domain.WeatherMetrics `json:"metrics"`
	Status   domain.WeatherStatus  `json:"status"`
}

// RecordIssue describes one incident rejected by correlation validation.
type RecordIssue struct {
	Index    int      `json:"index"`
	Missing  []string `json:"missing"`
	Number   int      `json:"nro_incidencia"`
	District string   `json:"distrito"`
}

// ValidationError reports incidents missing required correlation keys.
// Correlation is strict: silently dropping records would skew the aggregate
// join, so the whole request fails with up to 3 example offenders.
type ValidationError struct {
	Issues []RecordIssue
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString("incidents missing required correlation keys (distrito, fecha_inicio, fecha_fin):")
	for _, issue := range e.Issues {
		fmt.Fprintf(&b, " [idx=%d nro=%d missing=%s]", issue.Index, issue.Number, strings.Join(issue.Missing, ","))
	}
	return b.String()
}

// Correlator computes per-incident weather metrics with one store fetch per
// district.
type Correlator struct {
	fetcher Fetcher
	fields  FieldConfig
	tags    map[string]string
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewCorrelator creates a Correlator over a loaded district→tag table.
func NewCorrelator(f Fetcher, fields FieldConfig, tags map[string]string, logger *slog.Logger, metrics *observability.Metrics) *Correlator {
	return &Correlator{
		fetcher: f,
		fields:  fields,
		tags:    tags,
		logger:  logger,
		metrics: metrics,
	}
}

// Correlate validates the incident set, groups it by district, fetches one
// covering weather window per district, and derives per-incident metrics.
// Results preserve input order.
func (c *Correlator) Correlate(ctx context.Context, incidents []domain.Incident) ([]Result, error) {
	c.metrics.CorrelationRequests.Inc()

	if err := validate(incidents); err != nil {
		c.metrics.CorrelationValidation.Inc()
		return nil, err
	}

	// Group indices by district, first-appearance order.
	byDistrict := make(map[string][]int)
	var order []string
	for i, inc := range incidents {
		d := inc.District
		if _, seen := byDistrict[d]; !seen {
			order = append(order, d)
		}
		byDistrict[d] = append(byDistrict[d], i)
	}

	results := make([]Result, len(incidents))
	for _, district := range order {
		c.correlateDistrict(ctx, district, byDistrict[district], incidents, results)
	}
	return results, nil
}

func (c *Correlator) correlateDistrict(ctx context.Context, district string, indices []int, incidents []domain.Incident, results []Result) {
	tag := c.tags[strings.TrimSpace(district)]
	if tag == "" {
		// No mapping is a valid state: null metrics, no store query.
		c.metrics.WeatherFetches.WithLabelValues(string(domain.WeatherNoTag)).Inc()
		for _, i := range indices {
			results[i] = Result{Incident: incidents[i], Status: domain.WeatherNoTag}
		}
		return
	}

	// One covering window per district: earliest start minus the pre-event
	// span, up to the latest end.
	start := incidents[indices[0]].StartLocal
	stop := incidents[indices[0]].EndLocal
	for _, i := range indices[1:] {
		if incidents[i].StartLocal.Before(start) {
			start = incidents[i].StartLocal
		}
		if incidents[i].EndLocal.After(stop) {
			stop = incidents[i].EndLocal
		}
	}

	samples, err := c.fetcher.FetchWindow(ctx, tag, start.Add(-preEventWindow).UTC(), stop.UTC())
	if err != nil {
		// Fail soft: the join degrades to "no data" for this district.
		c.logger.Error("weather fetch failed", "district", district, "tag", tag, "error", err)
		c.metrics.WeatherFetches.WithLabelValues("error").Inc()
		samples = nil
	}

	status := domain.WeatherOK
	if len(samples) == 0 {
		status = domain.WeatherNoData
	}
	if err == nil {
		c.metrics.WeatherFetches.WithLabelValues(string(status)).Inc()
	}

	for _, i := range indices {
		results[i] = Result{
			Incident: incidents[i],
			Metrics:  c.computeMetrics(samples, incidents[i].StartLocal, incidents[i].EndLocal),
			Status:   status,
		}
	}
}

// computeMetrics derives the per-incident features from the district's
// fetched samples: max/mean wind, mean temperature, and mean humidity over
// [start, end], plus mean humidity over [start-6h, start). Unconfigured or
// sample-less fields stay nil.
func (c *Correlator) computeMetrics(samples []domain.WeatherSample, start, end time.Time) domain.WeatherMetrics {
	var m domain.WeatherMetrics
	if len(samples) == 0 {
		return m
	}

	inWindow := func(s domain.WeatherSample) bool {
		return !s.Time.Before(start) && !s.Time.After(end)
	}
	inPreEvent := func(s domain.WeatherSample) bool {
		return s.Time.Before(start) && !s.Time.Before(start.Add(-preEventWindow))
	}

	m.WindMax, m.WindMean = maxMean(samples, c.fields.Wind, inWindow)
	_, m.TemperatureMean = maxMean(samples, c.fields.Temperature, inWindow)
	_, m.HumidityMean = maxMean(samples, c.fields.Humidity, inWindow)
	_, m.HumidityPre6h = maxMean(samples, c.fields.Humidity, inPreEvent)
	return m
}

// maxMean computes the max and mean of a field's samples passing the window
// test. Both are nil when the field is unconfigured or has no samples.
func maxMean(samples []domain.WeatherSample, field string, include func(domain.WeatherSample) bool) (*float64, *float64) {
	if field == "" {
		return nil, nil
	}
	var (
		sum, peak float64
		n         int
	)
	for _, s := range samples {
		if s.Field != field || !include(s) {
			continue
		}
		if n == 0 || s.Value > peak {
			peak = s.Value
		}
		sum += s.Value
		n++
	}
	if n == 0 {
		return nil, nil
	}
	mean := sum / float64(n)
	return &peak, &mean
}

// validate rejects the request when any incident lacks the keys the join
// depends on. District is never filled in here: a missing district means the
// upstream normalization needs fixing, not papering over.
func validate(incidents []domain.Incident) error {
	var issues []RecordIssue
	for i, inc := range incidents {
		var missing []string
		if strings.TrimSpace(inc.District) == "" {
			missing = append(missing, "distrito")
		}
		if inc.StartLocal.IsZero() {
			missing = append(missing, "fecha_inicio")
		}
		if inc.EndLocal.IsZero() {
			missing = append(missing, "fecha_fin")
		}
		if len(missing) > 0 {
			issues = append(issues, RecordIssue{
				Index:    i,
				Missing:  missing,
				Number:   inc.Number,
				District: inc.District,
			})
			if len(issues) == 3 {
				break
			}
		}
	}
	if len(issues) > 0 {
		return &ValidationError{Issues: issues}
	}
	return nil
}
