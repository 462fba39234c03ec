package metrics

import (
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// AppMetrics holds the application's metric instruments.
type AppMetrics struct {
	CardsCreatedTotal       metric.Int64Counter
	UsersRegisteredTotal    metric.Int64Counter
	AssetsMaterializedTotal metric.Int64Counter
	AssetBytesWrittenTotal  metric.Int64Counter
	DbQueryDurationSeconds  metric.Float64Histogram
}

var (
	appMetrics *AppMetrics
	once       sync.Once
)

// InitAppMetrics initializes the global metrics instruments once, from the
// globally configured MeterProvider. Call it after the provider is set.
func InitAppMetrics() {
	once.Do(func() {
		meter := otel.GetMeterProvider().Meter("sports-card-catalog")
		var err error
		m := &AppMetrics{}

		m.CardsCreatedTotal, err = meter.Int64Counter(
			"cards_created_total",
			metric.WithDescription("Total number of cards created"),
			metric.WithUnit("{card}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create cards_created_total: %v", err)
		}

		m.UsersRegisteredTotal, err = meter.Int64Counter(
			"users_registered_total",
			metric.WithDescription("Total number of users registered"),
			metric.WithUnit("{user}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create users_registered_total: %v", err)
		}

		m.AssetsMaterializedTotal, err = meter.Int64Counter(
			"assets_materialized_total",
			metric.WithDescription("Total number of image assets written to the asset store"),
			metric.WithUnit("{asset}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create assets_materialized_total: %v", err)
		}

		m.AssetBytesWrittenTotal, err = meter.Int64Counter(
			"asset_bytes_written_total",
			metric.WithDescription("Total bytes written to the asset store"),
			metric.WithUnit("By"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create asset_bytes_written_total: %v", err)
		}

		m.DbQueryDurationSeconds, err = meter.Float64Histogram(
			"db_query_duration_seconds",
			metric.WithDescription("Duration of repository transactions in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create db_query_duration_seconds: %v", err)
		}

		log.Println("Application metrics instruments initialized.")
		appMetrics = m
	})
}

// Get returns the AppMetrics instance, initializing it against the current
// global MeterProvider (a no-op provider unless tracer.InitTracingAndMetrics
// ran first) if needed.
func Get() *AppMetrics {
	InitAppMetrics()
	return appMetrics
}
