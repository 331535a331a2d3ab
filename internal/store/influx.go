// Package store wraps the InfluxDB 2.x client behind the narrow query and
// delete surface this service needs. Every call carries an explicit timeout
// so an unreachable store cannot block a request indefinitely.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/query"

	"github.com/couchcryptid/incident-analytics/internal/domain"
	"github.com/couchcryptid/incident-analytics/internal/observability"
)

// Record is one pivoted result row: column name to value. Timestamps arrive
// as time.Time under "_time"; tags and pivoted fields under their own names.
type Record map[string]any

// Config holds the store connection settings.
type Config struct {
	URL          string
	Token        string
	Org          string
	Bucket       string
	QueryTimeout time.Duration
}

// Client executes Flux queries and deletes against one InfluxDB org.
type Client struct {
	client    influxdb2.Client
	queryAPI  api.QueryAPI
	deleteAPI api.DeleteAPI
	org       string
	bucket    string
	timeout   time.Duration
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// NewClient creates a store client. Close must be called on shutdown.
func NewClient(cfg Config, logger *slog.Logger, metrics *observability.Metrics) *Client {
	c := influxdb2.NewClient(cfg.URL, cfg.Token)
	return &Client{
		client:    c,
		queryAPI:  c.QueryAPI(cfg.Org),
		deleteAPI: c.DeleteAPI(),
		org:       cfg.Org,
		bucket:    cfg.Bucket,
		timeout:   cfg.QueryTimeout,
		logger:    logger,
		metrics:   metrics,
	}
}

// Query runs a Flux query and returns every record's value map. The op label
// names the calling operation for metrics.
func (c *Client) Query(ctx context.Context, op, q string) ([]Record, error) {
	var rows []Record
	err := c.run(ctx, op, q, func(rec *query.FluxRecord) {
		rows = append(rows, Record(rec.Values()))
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// QueryValues runs a Flux query and collects each record's _value as a
// string, for distinct-value enumerations.
func (c *Client) QueryValues(ctx context.Context, op, q string) ([]string, error) {
	var values []string
	err := c.run(ctx, op, q, func(rec *query.FluxRecord) {
		if s, ok := rec.Value().(string); ok {
			values = append(values, s)
		}
	})
	if err != nil {
		return nil, err
	}
	return values, nil
}

// QueryTimes runs a Flux query and collects each record's _time, for
// distinct-date enumeration.
func (c *Client) QueryTimes(ctx context.Context, op, q string) ([]time.Time, error) {
	var times []time.Time
	err := c.run(ctx, op, q, func(rec *query.FluxRecord) {
		times = append(times, rec.Time())
	})
	if err != nil {
		return nil, err
	}
	return times, nil
}

func (c *Client) run(ctx context.Context, op, q string, visit func(*query.FluxRecord)) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	c.metrics.StoreQueries.WithLabelValues(op).Inc()
	start := time.Now()

	result, err := c.queryAPI.Query(ctx, q)
	if err != nil {
		c.metrics.StoreQueryErrors.WithLabelValues(op).Inc()
		return fmt.Errorf("store query %s: %w", op, err)
	}
	for result.Next() {
		visit(result.Record())
	}
	c.metrics.StoreQueryDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if result.Err() != nil {
		c.metrics.StoreQueryErrors.WithLabelValues(op).Inc()
		return fmt.Errorf("store query %s: %w", op, result.Err())
	}
	return nil
}

// DeleteMeasurement removes every point matching the predicate from the
// incident bucket, from the epoch up to now. Reads may race against the
// deletion window; callers get eventual consistency, not a lock.
func (c *Client) DeleteMeasurement(ctx context.Context, predicate string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Unix(0, 0).UTC()
	stop := domain.Now().UTC()
	if err := c.deleteAPI.DeleteWithName(ctx, c.org, c.bucket, start, stop, predicate); err != nil {
		return fmt.Errorf("delete %q: %w", predicate, err)
	}
	return nil
}

// Ping probes store connectivity for readiness checks.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	ok, err := c.client.Ping(ctx)
	if err != nil {
		return fmt.Errorf("store ping: %w", err)
	}
	if !ok {
		return fmt.Errorf("store ping: not ready")
	}
	return nil
}

// Close releases the underlying HTTP resources.
func (c *Client) Close() {
	c.client.Close()
}
