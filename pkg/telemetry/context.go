package telemetry

import (
	"context"
	"errors"

	"github.com/brickyard/toolbox/pkg/toolbox"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Telemetry provides a unified telemetry interface combining logging, tracing, metrics, and events.
type Telemetry struct {
	Logger  *Logger
	Tracer  *Tracer
	Metrics *Metrics
	Events  *EventPublisher
	Config  *Config
}

// telemetryContextKey is the context key for telemetry instances.
type telemetryContextKey struct{}

// NewTelemetry creates a new telemetry instance from configuration.
func NewTelemetry(cfg *Config) (*Telemetry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Initialize logger
	logger, err := NewLogger(cfg.Logging)
	if err != nil {
		return nil, err
	}

	// Initialize tracer
	tracer, err := NewTracer(cfg.Tracing, cfg.ServiceName, cfg.ServiceVersion, cfg.Environment)
	if err != nil {
		return nil, err
	}

	// Initialize metrics
	metrics, err := NewMetrics(cfg.Metrics)
	if err != nil {
		return nil, err
	}

	// Initialize event publisher
	events, err := NewEventPublisher(cfg.Events)
	if err != nil {
		return nil, err
	}

	return &Telemetry{
		Logger:  logger,
		Tracer:  tracer,
		Metrics: metrics,
		Events:  events,
		Config:  cfg,
	}, nil
}

// WithContext adds the telemetry instance to the context.
func (t *Telemetry) WithContext(ctx context.Context) context.Context {
	ctx = context.WithValue(ctx, telemetryContextKey{}, t)
	ctx = t.Logger.WithContext(ctx)
	return ctx
}

// FromTelemetryContext retrieves the telemetry instance from the context.
// If no telemetry is found, it returns nil.
func FromTelemetryContext(ctx context.Context) *Telemetry {
	if t, ok := ctx.Value(telemetryContextKey{}).(*Telemetry); ok {
		return t
	}
	return nil
}

// Shutdown gracefully shuts down all telemetry components.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	// Shutdown in reverse order of initialization
	if err := t.Events.Shutdown(ctx); err != nil {
		return err
	}

	if err := t.Tracer.Shutdown(ctx); err != nil {
		return err
	}

	return nil
}

// RecordSchemaWarning counts a lenient-mode schema contradiction and
// publishes it as an event. scope is "root" or the context identifier.
func RecordSchemaWarning(ctx context.Context, scope, path, message string) {
	tel := FromTelemetryContext(ctx)
	if tel == nil {
		return
	}
	tel.Metrics.RecordSchemaWarnings(scope, 1)
	_ = tel.Events.PublishSchemaWarning(path, message)
}

// RecordConfigReload counts a configuration reload attempt and publishes
// its outcome.
func RecordConfigReload(ctx context.Context, files []string, warnings int, err error) {
	tel := FromTelemetryContext(ctx)
	if tel == nil {
		return
	}
	tel.Metrics.RecordConfigReload(StatusOf(err))
	if err != nil {
		recordClassified(tel, err)
	}
	_ = tel.Events.PublishConfigReloaded(files, warnings, err)
}

// RecordBuild instruments one editable tree build. fn returns the number of
// top-level nodes it produced.
func RecordBuild(ctx context.Context, contextID, brickID string, fn func(context.Context) (int, error)) error {
	tel := FromTelemetryContext(ctx)
	if tel == nil {
		_, err := fn(ctx)
		return err
	}

	spanCtx, span := tel.Tracer.StartBuildSpan(ctx, contextID, brickID)
	defer span.End()

	timer := NewTimer()
	nodes, err := fn(spanCtx)

	tel.Metrics.RecordTreeBuild(brickID, StatusOf(err), nodes, timer.Duration())
	if err != nil {
		recordClassified(tel, err)
		RecordError(span, err)
	} else {
		span.SetAttributes(attribute.Int("tree.nodes", nodes))
		RecordSuccess(span)
	}
	return err
}

// RecordElement instruments the resolution of one rendered unit.
func RecordElement(ctx context.Context, elementType, elementSubType string, fn func(context.Context) error) error {
	tel := FromTelemetryContext(ctx)
	if tel == nil {
		return fn(ctx)
	}

	spanCtx, span := tel.Tracer.StartElementSpan(ctx, elementType, elementSubType)
	defer span.End()

	timer := NewTimer()
	err := fn(spanCtx)

	tel.Metrics.RecordElementResolved(elementType, StatusOf(err), timer.Duration())
	if err != nil {
		recordClassified(tel, err)
		RecordError(span, err)
	} else {
		RecordSuccess(span)
	}
	return err
}

// RecordNormalizer instruments a normalizer invocation.
func RecordNormalizer(ctx context.Context, name string, fn func(context.Context) error) error {
	tel := FromTelemetryContext(ctx)
	if tel == nil {
		return fn(ctx)
	}

	spanCtx, span := tel.Tracer.StartNormalizerSpan(ctx, name)
	defer span.End()

	timer := NewTimer()
	err := fn(spanCtx)

	tel.Metrics.RecordNormalizerCall(name, timer.Duration())
	if err != nil {
		tel.Metrics.RecordNormalizerError(name)
		RecordError(span, err)
	} else {
		RecordSuccess(span)
	}
	return err
}

// RecordDispatch records a payload handed to a sink and annotates the
// current span.
func RecordDispatch(ctx context.Context, sink string, payload toolbox.ElementPayload, err error) {
	span := trace.SpanFromContext(ctx)
	if err != nil {
		RecordError(span, err)
	} else {
		AddElementEvent(span, payload.ElementHash, payload.ElementNamespace, sink)
	}

	tel := FromTelemetryContext(ctx)
	if tel == nil {
		return
	}
	tel.Metrics.RecordPayloadDispatched(sink, StatusOf(err))
}

// recordClassified counts toolbox errors by class and code.
func recordClassified(tel *Telemetry, err error) {
	var terr *toolbox.Error
	if errors.As(err, &terr) {
		tel.Metrics.RecordError(string(terr.Class), terr.Code)
		return
	}
	tel.Metrics.RecordError("unclassified", "")
}
