package router

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	tracer = otel.Tracer("pitwall.router")
	meter  = otel.Meter("pitwall.router")
)

var (
	navigationTotal    metric.Int64Counter
	navigationDuration metric.Float64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		navigationTotal, err = meter.Int64Counter(
			"router_navigations_total",
			metric.WithDescription("Navigations by outcome"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		navigationDuration, err = meter.Float64Histogram(
			"router_navigation_duration_seconds",
			metric.WithDescription("Time from Navigate to settle"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

func startNavigateSpan(ctx context.Context, path string, replace bool) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Router.Navigate",
		trace.WithAttributes(
			attribute.String("router.path", path),
			attribute.Bool("router.replace", replace),
		),
	)
}

func endNavigateSpan(span trace.Span, res Result) {
	span.SetAttributes(attribute.String("router.status", res.Status.String()))
	if res.Route != nil {
		span.SetAttributes(attribute.String("router.route", res.Route.FullPath))
	}
	if res.Status == StatusFailed {
		span.SetStatus(codes.Error, errString(res.Err))
		if res.Err != nil {
			span.RecordError(res.Err)
		}
	}
	span.End()
}

func recordNavigation(ctx context.Context, d time.Duration, status Status) {
	if err := initMetrics(); err != nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("status", status.String()))
	navigationTotal.Add(ctx, 1, attrs)
	navigationDuration.Record(ctx, d.Seconds(), attrs)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
