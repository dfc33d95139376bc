// Package metrics records agentcfg telemetry through the global telemetry
// system. Every recorder is a no-op until observability.InitMetrics runs.
package metrics

import (
	"sync/atomic"
	"time"

	"github.com/agentcfg/agentcfg/internal/observability"
)

// Metric names follow Prometheus conventions; the exporter adds the namespace.
const (
	ResolutionsTotal        = "resolutions_total"
	ResolutionDuration      = "resolution_duration_ms"
	ValidationFailuresTotal = "validation_failures_total"

	CatalogLoadsTotal = "catalog_loads_total"
	CatalogModels     = "catalog_models"

	SchemaUpdatesTotal = "schema_updates_total"
	ConfigReloadsTotal = "config_reloads_total"

	HealthCheckTotal    = "health_check_total"
	HealthCheckDuration = "health_check_duration_ms"

	ServerStartTime = "server_start_time_seconds"
	ServerUptime    = "server_uptime_seconds"
)

// RecordResolution counts one resolved name by kind and winning tier.
// An empty provenance means the name failed its requirement gate.
func RecordResolution(kind, provenance string, duration time.Duration) {
	if observability.TelemetrySystem == nil {
		return
	}
	if provenance == "" {
		provenance = "none"
	}
	_ = observability.TelemetrySystem.Counter(ResolutionsTotal, 1, map[string]string{
		"kind":       kind,
		"provenance": provenance,
	})
	_ = observability.TelemetrySystem.Histogram(ResolutionDuration, duration, map[string]string{
		"kind": kind,
	})
}

// RecordValidationFailure counts a failed agent or category validation.
func RecordValidationFailure(kind, name string) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Counter(ValidationFailuresTotal, 1, map[string]string{
		"kind": kind,
		"name": name,
	})
}

// RecordCatalogLoad counts a catalog load. source is "cache" or "cli".
func RecordCatalogLoad(source string, success bool) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Counter(CatalogLoadsTotal, 1, map[string]string{
		"source": source,
		"status": status(success),
	})
}

// SetCatalogModels records the size of the current catalog.
func SetCatalogModels(count int) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Gauge(CatalogModels, float64(count), nil)
}

// RecordSchemaUpdate counts an upstream schema check. outcome is one of
// "updated", "unchanged", "skipped" or "failed".
func RecordSchemaUpdate(outcome string) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Counter(SchemaUpdatesTotal, 1, map[string]string{
		"outcome": outcome,
	})
}

// RecordConfigReload counts a reload of oh-my-opencode.json by the server.
func RecordConfigReload(success bool) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Counter(ConfigReloadsTotal, 1, map[string]string{
		"status": status(success),
	})
}

// RecordHealthCheck records a health check execution.
func RecordHealthCheck(checkName string, healthy bool, duration time.Duration) {
	if observability.TelemetrySystem == nil {
		return
	}
	state := "healthy"
	if !healthy {
		state = "unhealthy"
	}
	_ = observability.TelemetrySystem.Counter(HealthCheckTotal, 1, map[string]string{
		"check":  checkName,
		"status": state,
	})
	_ = observability.TelemetrySystem.Histogram(HealthCheckDuration, duration, map[string]string{
		"check": checkName,
	})
}

var serverStartedAt atomic.Int64

// SetServerStartTime records the server start time as a Unix timestamp.
func SetServerStartTime(timestamp int64) {
	serverStartedAt.Store(timestamp)
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Gauge(ServerStartTime, float64(timestamp), nil)
}

// RecordUptime refreshes the uptime gauge from the recorded start time.
// Nothing is recorded before SetServerStartTime.
func RecordUptime(now time.Time) {
	started := serverStartedAt.Load()
	if started == 0 || observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Gauge(ServerUptime, float64(now.Unix()-started), nil)
}

func status(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
