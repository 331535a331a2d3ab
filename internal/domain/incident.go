package domain

import (
	"fmt"
	"strings"
	"time"
)

// VoltageLevel is the network tension level of an incident.
type VoltageLevel string

const (
	VoltageBT      VoltageLevel = "BT"
	VoltageMT      VoltageLevel = "MT"
	VoltageUnknown VoltageLevel = ""
)

// ParseVoltageLevel normalizes a source voltage marker. Exact "BT"/"MT"
// matches (case-insensitive) are recognized; everything else is unknown.
func ParseVoltageLevel(s string) VoltageLevel {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BT":
		return VoltageBT
	case "MT":
		return VoltageMT
	default:
		return VoltageUnknown
	}
}

// Incident is the read model for one outage event. It is constructed once at
// the repository boundary and immutable from then on.
type Incident struct {
	Number int `json:"nro_incidencia"`

	// StartLocal is always present; EndLocal is the zero time when the
	// incident is ongoing or the source end timestamp was unparseable.
	StartLocal time.Time `json:"fecha_inicio"`
	EndLocal   time.Time `json:"fecha_fin,omitzero"`

	District     string       `json:"distrito"`
	VoltageLevel VoltageLevel `json:"nivel_tension"`
	Cause        string       `json:"descripcion_de_la_causa"`
	Locality     string       `json:"localidad"`
	Distributor  string       `json:"distribuidor"`
	Installation string       `json:"instalacion"`
	Substations  int          `json:"ct_involucrados"`
	Customers    int          `json:"nises_involucrados"`
	Power        float64      `json:"potencia_involucrada"`
	Complaints   int          `json:"cantidad_de_reclamos"`
}

// HasValidWindow reports whether both endpoints are present and ordered.
// Incidents failing this are listed but excluded from duration aggregation.
func (i Incident) HasValidWindow() bool {
	return !i.StartLocal.IsZero() && !i.EndLocal.IsZero() && !i.EndLocal.Before(i.StartLocal)
}

// Duration returns end-start for valid windows and zero otherwise.
func (i Incident) Duration() time.Duration {
	if !i.HasValidWindow() {
		return 0
	}
	return i.EndLocal.Sub(i.StartLocal)
}

// StartDateString and friends render the local wall clock in the source
// data's display formats, so presentation layers can export without
// re-deriving them.
func (i Incident) StartDateString() string { return i.StartLocal.Format("02/01/2006") }
func (i Incident) StartTimeString() string { return i.StartLocal.Format("15:04:05") }

func (i Incident) EndDateString() string {
	if i.EndLocal.IsZero() {
		return ""
	}
	return i.EndLocal.Format("02/01/2006")
}

func (i Incident) EndTimeString() string {
	if i.EndLocal.IsZero() {
		return ""
	}
	return i.EndLocal.Format("15:04:05")
}

// FilterCriteria narrows an incident query. Zero-valued members are
// "no constraint"; dates are local calendar days at midnight.
type FilterCriteria struct {
	StartDate *time.Time
	EndDate   *time.Time
	District  string
	Cause     string
	Voltage   VoltageLevel
}

// Validate rejects filter combinations the query layer cannot interpret.
// An end date without a start date is a user error, not a default window.
func (c FilterCriteria) Validate() error {
	if c.EndDate != nil && c.StartDate == nil {
		return &ValidationError{Message: "end date given without start date"}
	}
	return nil
}

// ValidationError is a caller mistake: the request is aborted with no
// partial result, unlike parse failures which degrade silently.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return "invalid request: " + e.Message
}

// FormatDuration renders a duration as days/hours/minutes. Minutes are
// always shown, even when zero; larger units are omitted when zero.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Minutes())
	days := total / (24 * 60)
	hours := (total % (24 * 60)) / 60
	mins := total % 60

	var b strings.Builder
	if days > 0 {
		fmt.Fprintf(&b, "%dd ", days)
	}
	if hours > 0 {
		fmt.Fprintf(&b, "%dh ", hours)
	}
	fmt.Fprintf(&b, "%dm", mins)
	return b.String()
}
