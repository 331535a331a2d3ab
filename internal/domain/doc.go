// Package domain models electrical outage incidents ("incidencias") for a
// distribution utility, as delivered by the upstream ingestion pipeline.
//
// # Data Source
//
// Incident records originate from operator-supplied CSV/Excel exports that an
// external ingestion service normalizes and writes into InfluxDB under the
// "incidencia_electrica" measurement. Each incident is one point timestamped
// at its start instant, with district and voltage level as tags and the
// remaining attributes as fields. This core only consumes that schema; it
// never writes incident data.
//
// # Time Conventions
//
// All wall-clock values in the source data are local to a fixed IANA zone
// (America/Argentina/San_Luis for the production deployment). Dates appear
// as either DD-MM-YYYY or YYYY-MM-DD (slashes tolerated as separators),
// times as HH:MM:SS or HH:MM. The store keys everything by UTC instants, so
// [TimeNormalizer] owns every conversion between the local calendar and UTC.
//
// End timestamps may be absent or malformed upstream: such incidents are
// treated as ongoing. They still appear in listings but contribute nothing
// to duration-based aggregation.
//
// # Voltage Levels
//
// The network distinguishes medium tension ("MT") and low tension ("BT").
// Anything else in the source column is kept as [VoltageUnknown] rather than
// rejected, since older exports use free-text markers.
package domain
