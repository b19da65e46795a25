package metrics

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type Metrics struct {
	entriesCreated     metric.Int64Counter
	entriesUpdated     metric.Int64Counter
	entriesDeleted     metric.Int64Counter
	dailyCapRejections metric.Int64Counter
	hoursLogged        metric.Float64Counter
	eventsPublished    metric.Int64Counter

	Database *DatabaseMetrics
}

func New(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.entriesCreated, err = meter.Int64Counter(
		"timetracker.entries.created",
		metric.WithDescription("Total number of time entries created"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, err
	}

	m.entriesUpdated, err = meter.Int64Counter(
		"timetracker.entries.updated",
		metric.WithDescription("Total number of time entries updated"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, err
	}

	m.entriesDeleted, err = meter.Int64Counter(
		"timetracker.entries.deleted",
		metric.WithDescription("Total number of time entries deleted"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, err
	}

	m.dailyCapRejections, err = meter.Int64Counter(
		"timetracker.entries.daily_cap_rejections",
		metric.WithDescription("Writes rejected because the day would exceed the hour cap"),
		metric.WithUnit("{rejection}"),
	)
	if err != nil {
		return nil, err
	}

	m.hoursLogged, err = meter.Float64Counter(
		"timetracker.hours.logged",
		metric.WithDescription("Hours logged through newly created entries"),
		metric.WithUnit("h"),
	)
	if err != nil {
		return nil, err
	}

	m.eventsPublished, err = meter.Int64Counter(
		"timetracker.events.published",
		metric.WithDescription("Entry change events handed to the broker"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, err
	}

	m.Database, err = NewDatabaseMetrics(meter)
	if err != nil {
		return nil, err
	}

	return m, nil
}

// NewMock returns a Metrics whose Record* calls are no-ops.
func NewMock() *Metrics {
	return &Metrics{Database: &DatabaseMetrics{}}
}

func (m *Metrics) RecordEntryCreated(ctx context.Context, hours float64) {
	if m == nil || m.entriesCreated == nil {
		return
	}
	m.entriesCreated.Add(ctx, 1)
	m.hoursLogged.Add(ctx, hours)
}

func (m *Metrics) RecordEntryUpdated(ctx context.Context) {
	if m != nil && m.entriesUpdated != nil {
		m.entriesUpdated.Add(ctx, 1)
	}
}

func (m *Metrics) RecordEntryDeleted(ctx context.Context) {
	if m != nil && m.entriesDeleted != nil {
		m.entriesDeleted.Add(ctx, 1)
	}
}

// RecordDailyCapRejection counts a rejected write; operation is "create" or "update".
func (m *Metrics) RecordDailyCapRejection(ctx context.Context, operation string) {
	if m != nil && m.dailyCapRejections != nil {
		m.dailyCapRejections.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", operation)))
	}
}

func (m *Metrics) RecordEventPublished(ctx context.Context, eventType string, err error) {
	if m == nil || m.eventsPublished == nil {
		return
	}
	m.eventsPublished.Add(ctx, 1, metric.WithAttributes(
		attribute.String("type", eventType),
		attribute.Bool("success", err == nil),
	))
}
