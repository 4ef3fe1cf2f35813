// Package metrics provides Prometheus metrics for the Vega decisioning
// service. A single Collector owns the registry and exposes typed
// recording methods for decisions, dataset caches, enrichment calls,
// and outcome ingestion.
//
// All metrics share a configurable namespace and subsystem, by default
// "meridian" and "vega", giving series names such as
// meridian_vega_decisions_total.
package metrics
