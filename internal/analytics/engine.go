// Package analytics computes derived aggregates over normalized incident
// sets. Everything here is a pure function over in-memory records: no store
// access, no caching, recomputed per request.
package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/couchcryptid/incident-analytics/internal/domain"
)

// Metric selects what an aggregation accumulates per incident.
type Metric string

const (
	MetricCount           Metric = "count"
	MetricDurationMinutes Metric = "duration_minutes"
)

// value returns the incident's contribution under the metric. Incidents
// without a valid window contribute zero duration but still count.
func (m Metric) value(inc domain.Incident) float64 {
	if m == MetricDurationMinutes {
		return inc.Duration().Minutes()
	}
	return 1
}

// TotalDuration sums end-start over incidents with valid windows. Invalid or
// missing ends contribute zero and never fail the computation.
func TotalDuration(incidents []domain.Incident) time.Duration {
	var total time.Duration
	for _, inc := range incidents {
		total += inc.Duration()
	}
	return total
}

// DailySeries holds per-day values split by voltage level, indexed by the
// sorted distinct local calendar days present in the input. Days with zero
// incidents are absent, not zero-filled.
type DailySeries struct {
	Days  []string  `json:"days"` // local calendar days, YYYY-MM-DD
	Total []float64 `json:"total"`
	BT    []float64 `json:"bt"`
	MT    []float64 `json:"mt"`
}

// Daily aggregates the metric per local start day, split total/BT/MT.
func Daily(incidents []domain.Incident, m Metric) DailySeries {
	type cell struct{ total, bt, mt float64 }
	byDay := make(map[string]*cell)
	for _, inc := range incidents {
		day := inc.StartLocal.Format("2006-01-02")
		c := byDay[day]
		if c == nil {
			c = &cell{}
			byDay[day] = c
		}
		v := m.value(inc)
		c.total += v
		switch inc.VoltageLevel {
		case domain.VoltageBT:
			c.bt += v
		case domain.VoltageMT:
			c.mt += v
		}
	}

	days := make([]string, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Strings(days)

	s := DailySeries{
		Days:  days,
		Total: make([]float64, len(days)),
		BT:    make([]float64, len(days)),
		MT:    make([]float64, len(days)),
	}
	for i, day := range days {
		s.Total[i] = byDay[day].total
		s.BT[i] = byDay[day].bt
		s.MT[i] = byDay[day].mt
	}
	return s
}

// paretoTopN is how many causes keep their own bucket before the remainder
// collapses into the trailing "Otros" bucket.
const paretoTopN = 12

// ParetoOtherLabel names the collapsed remainder bucket.
const ParetoOtherLabel = "Otros"

// Pareto is a descending aggregation by cause with cumulative percentage.
type Pareto struct {
	Categories        []string  `json:"categories"`
	Values            []float64 `json:"values"`
	CumulativePercent []float64 `json:"cumulative_percent"`
}

// ParetoByCause aggregates the metric by cause string, keeps the top 12
// descending, collapses the rest into "Otros" appended last, and computes
// cumulative percentages over the post-collapse list to 2 decimal places.
func ParetoByCause(incidents []domain.Incident, m Metric) Pareto {
	byCause := make(map[string]float64)
	for _, inc := range incidents {
		byCause[inc.Cause] += m.value(inc)
	}
	if len(byCause) == 0 {
		return Pareto{}
	}

	type bucket struct {
		cause string
		value float64
	}
	buckets := make([]bucket, 0, len(byCause))
	for cause, v := range byCause {
		buckets = append(buckets, bucket{cause, v})
	}
	// Descending by value; ties broken by name for deterministic output.
	sort.Slice(buckets, func(i, j int) bool {
		if buckets[i].value != buckets[j].value {
			return buckets[i].value > buckets[j].value
		}
		return buckets[i].cause < buckets[j].cause
	})

	if len(buckets) > paretoTopN {
		var rest float64
		for _, b := range buckets[paretoTopN:] {
			rest += b.value
		}
		buckets = append(buckets[:paretoTopN], bucket{ParetoOtherLabel, rest})
	}

	var total float64
	for _, b := range buckets {
		total += b.value
	}

	p := Pareto{
		Categories:        make([]string, len(buckets)),
		Values:            make([]float64, len(buckets)),
		CumulativePercent: make([]float64, len(buckets)),
	}
	var running float64
	for i, b := range buckets {
		running += b.value
		p.Categories[i] = b.cause
		p.Values[i] = b.value
		if total > 0 {
			p.CumulativePercent[i] = math.Round(running/total*10000) / 100
		}
	}
	return p
}

// HeatmapCell is one weekday×hour cell, flattened for client-side rendering.
type HeatmapCell struct {
	Hour    int     `json:"hour"`    // 0-23, local start hour
	Weekday int     `json:"weekday"` // Monday=0 .. Sunday=6
	Value   float64 `json:"value"`
}

// Heatmap is the full 7×24 matrix plus its maximum for scaling. All 168
// cells are always present, zeros included.
type Heatmap struct {
	Cells []HeatmapCell `json:"cells"`
	Max   float64       `json:"max"`
}

// HeatmapByStart buckets the metric by weekday and hour of each incident's
// local start instant.
func HeatmapByStart(incidents []domain.Incident, m Metric) Heatmap {
	var matrix [7][24]float64
	for _, inc := range incidents {
		weekday := (int(inc.StartLocal.Weekday()) + 6) % 7 // Monday=0
		matrix[weekday][inc.StartLocal.Hour()] += m.value(inc)
	}

	h := Heatmap{Cells: make([]HeatmapCell, 0, 7*24)}
	for weekday := 0; weekday < 7; weekday++ {
		for hour := 0; hour < 24; hour++ {
			v := matrix[weekday][hour]
			h.Cells = append(h.Cells, HeatmapCell{Hour: hour, Weekday: weekday, Value: v})
			if v > h.Max {
				h.Max = v
			}
		}
	}
	return h
}

// HistogramBucket counts incidents whose duration falls in one fixed range,
// split by voltage level.
type HistogramBucket struct {
	Label string `json:"label"`
	Total int    `json:"total"`
	BT    int    `json:"bt"`
	MT    int    `json:"mt"`
}

// histogramUpperBounds are the exclusive upper bounds, in minutes, of every
// bucket but the last. The boundaries are exhaustive and non-overlapping.
var histogramUpperBounds = []float64{15, 60, 120, 240}

var histogramLabels = []string{"<15", "15-60", "60-120", "120-240", ">=240"}

// DurationHistogram distributes incidents with valid windows over the fixed
// duration buckets. A duration matching no bound lands in the last bucket as
// a safety default.
func DurationHistogram(incidents []domain.Incident) []HistogramBucket {
	buckets := make([]HistogramBucket, len(histogramLabels))
	for i, label := range histogramLabels {
		buckets[i].Label = label
	}

	for _, inc := range incidents {
		if !inc.HasValidWindow() {
			continue
		}
		mins := inc.Duration().Minutes()
		idx := len(buckets) - 1
		for i, bound := range histogramUpperBounds {
			if mins < bound {
				idx = i
				break
			}
		}
		buckets[idx].Total++
		switch inc.VoltageLevel {
		case domain.VoltageBT:
			buckets[idx].BT++
		case domain.VoltageMT:
			buckets[idx].MT++
		}
	}
	return buckets
}
