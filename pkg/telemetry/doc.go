// Package telemetry provides observability instrumentation for the toolbox.
//
// The package integrates structured logging (zerolog), distributed tracing
// (OpenTelemetry), metrics (Prometheus), and event publishing into one
// Telemetry value carried through a context.Context.
//
// # Usage
//
// Initialize telemetry at application startup:
//
//	cfg := telemetry.DefaultConfig()
//	cfg.ServiceVersion = "1.0.0"
//
//	tel, err := telemetry.NewTelemetry(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tel.Shutdown(context.Background())
//
//	ctx = tel.WithContext(ctx)
//
// # Structured Logging
//
// Library packages take a plain zerolog.Logger:
//
//	scheduler := engine.NewScheduler(cfg, registry, tel.Logger.Zerolog())
//	cliLog := tel.Logger.NewComponentLogger("cli").Zerolog()
//
// # Tracing and Metrics
//
// The builder and the headless worker wrap their work in the context helpers,
// which are no-ops when no Telemetry is attached to the context:
//
//	err := telemetry.RecordBuild(ctx, contextID, brickID, func(ctx context.Context) (int, error) {
//	    ...
//	})
//
//	err := telemetry.RecordElement(ctx, "brick", brickID, func(ctx context.Context) error {
//	    ...
//	})
//
// Key metrics exposed:
//
//   - toolbox_tree_builds_total{brick,status}
//   - toolbox_tree_build_duration_seconds{brick}
//   - toolbox_elements_resolved_total{element_type,status}
//   - toolbox_payloads_dispatched_total{sink,status}
//   - toolbox_normalizer_calls_total{normalizer}
//   - toolbox_normalizer_errors_total{normalizer}
//   - toolbox_schema_warnings_total{source}
//   - toolbox_config_reloads_total{status}
//   - toolbox_errors_by_class_total{class}
//
// Long-running hosts expose them with Metrics.Serve; one-shot commands can
// dump them with Metrics.WriteTextfile.
//
// Tracing exporters: "otlp" (gRPC collector), "stdout" (pretty printed;
// Endpoint "stderr" redirects it), "none" (spans are created but dropped).
//
// # Event Publishing
//
// Resolved headless payloads, render passes, configuration reloads and
// lenient-mode schema warnings are published as events:
//
//	tel.Events.Subscribe(func(event telemetry.Event) {
//	    fmt.Println(event.Namespace, event.ElementHash)
//	}, telemetry.FilterByType(telemetry.EventTypeElement))
//
// Synchronous publishers call subscribers inline in publish order. Async
// publishers buffer events and deliver them in batches from one goroutine;
// Shutdown drains the buffer.
package telemetry
