// Command report runs one filtered incident query against the configured
// store and prints the results as JSON. It reuses the service's internal
// packages end to end, so its output matches what the dashboards compute.
//
// Usage:
//
//	go run ./cmd/report -start 2024-01-10 [-end 2024-01-20] \
//	  [-district "JUANA KOSLAY"] [-cause "Tormenta"] [-voltage MT] \
//	  -mode list|analytics|weather
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/couchcryptid/incident-analytics/internal/analytics"
	"github.com/couchcryptid/incident-analytics/internal/config"
	"github.com/couchcryptid/incident-analytics/internal/domain"
	"github.com/couchcryptid/incident-analytics/internal/flux"
	"github.com/couchcryptid/incident-analytics/internal/observability"
	"github.com/couchcryptid/incident-analytics/internal/repository"
	"github.com/couchcryptid/incident-analytics/internal/store"
	"github.com/couchcryptid/incident-analytics/internal/weather"
)

func main() {
	start := flag.String("start", "", "start date (DD-MM-YYYY or YYYY-MM-DD)")
	end := flag.String("end", "", "end date, inclusive (defaults to start)")
	district := flag.String("district", "", "district filter, exact match")
	cause := flag.String("cause", "", "cause filter, exact match")
	voltage := flag.String("voltage", "", "voltage level filter: BT or MT")
	mode := flag.String("mode", "list", "output: list, analytics, or weather")
	tagsCSV := flag.String("tags-csv", "", "district→weather-tag CSV (overrides config)")
	flag.Parse()

	if err := run(*start, *end, *district, *cause, *voltage, *mode, *tagsCSV); err != nil {
		fmt.Fprintln(os.Stderr, "report:", err)
		os.Exit(1)
	}
}

func run(start, end, district, cause, voltage, mode, tagsCSV string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// A one-shot tool wants quiet logs and an unregistered metrics set.
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	metrics := observability.NewMetricsForTesting()

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return err
	}
	norm := domain.NewTimeNormalizer(loc)

	criteria, err := buildCriteria(norm, start, end, district, cause, voltage)
	if err != nil {
		return err
	}

	client := store.NewClient(store.Config{
		URL:          cfg.InfluxURL,
		Token:        cfg.InfluxToken,
		Org:          cfg.InfluxOrg,
		Bucket:       cfg.IncidentBucket,
		QueryTimeout: cfg.QueryTimeout,
	}, logger, metrics)
	defer client.Close()

	repo := repository.New(client, flux.NewBuilder(cfg.IncidentBucket, norm), norm, logger, metrics)

	ctx := context.Background()
	incidents, err := repo.Fetch(ctx, criteria)
	if err != nil {
		return err
	}

	switch mode {
	case "list":
		return printJSON(incidents)
	case "analytics":
		return printJSON(analyticsReport(incidents))
	case "weather":
		return weatherReport(ctx, cfg, client, incidents, tagsCSV, logger, metrics)
	default:
		return fmt.Errorf("unknown mode %q", mode)
	}
}

func buildCriteria(norm *domain.TimeNormalizer, start, end, district, cause, voltage string) (domain.FilterCriteria, error) {
	c := domain.FilterCriteria{
		District: district,
		Cause:    cause,
		Voltage:  domain.ParseVoltageLevel(voltage),
	}
	if start != "" {
		day, ok := norm.ParseFlexibleDate(start)
		if !ok {
			return c, fmt.Errorf("unparseable start date %q", start)
		}
		c.StartDate = &day
	}
	if end != "" {
		day, ok := norm.ParseFlexibleDate(end)
		if !ok {
			return c, fmt.Errorf("unparseable end date %q", end)
		}
		c.EndDate = &day
	}
	return c, c.Validate()
}

func analyticsReport(incidents []domain.Incident) map[string]any {
	total := analytics.TotalDuration(incidents)
	return map[string]any{
		"incidents":          len(incidents),
		"total_duration":     domain.FormatDuration(total),
		"daily_count":        analytics.Daily(incidents, analytics.MetricCount),
		"daily_duration":     analytics.Daily(incidents, analytics.MetricDurationMinutes),
		"pareto_by_cause":    analytics.ParetoByCause(incidents, analytics.MetricCount),
		"heatmap":            analytics.HeatmapByStart(incidents, analytics.MetricCount),
		"duration_histogram": analytics.DurationHistogram(incidents),
	}
}

func weatherReport(ctx context.Context, cfg *config.Config, client *store.Client, incidents []domain.Incident, tagsCSV string, logger *slog.Logger, metrics *observability.Metrics) error {
	path := cfg.DistrictTagsCSV
	if tagsCSV != "" {
		path = tagsCSV
	}
	tags, err := weather.LoadDistrictTags(path)
	if err != nil {
		return err
	}

	fields := weather.FieldConfig{
		Wind:        cfg.WeatherWindField,
		Temperature: cfg.WeatherTempField,
		Humidity:    cfg.WeatherHumidityField,
	}
	fetcher := weather.NewStoreFetcher(client, cfg.WeatherBucket, cfg.WeatherMeasurement, cfg.WeatherSiteTagKey, fields)
	correlator := weather.NewCorrelator(fetcher, fields, tags, logger, metrics)

	results, err := correlator.Correlate(ctx, incidents)
	if err != nil {
		return err
	}
	return printJSON(results)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
