package telemetry_test

import (
	"context"
	"fmt"

	"github.com/brickyard/toolbox/pkg/telemetry"
	"github.com/brickyard/toolbox/pkg/toolbox"
)

// Example_basicSetup demonstrates basic telemetry setup.
func Example_basicSetup() {
	cfg := telemetry.DefaultConfig()
	cfg.ServiceVersion = "1.0.0"

	tel, err := telemetry.NewTelemetry(cfg)
	if err != nil {
		panic(err)
	}
	defer tel.Shutdown(context.Background())

	ctx := tel.WithContext(context.Background())

	logger := telemetry.FromContext(ctx).NewComponentLogger("cli").Zerolog()
	logger.Info().Msg("toolbox started")

	// Output can vary, so we don't specify output for this example
}

// Example_instrumentedBuild shows how a tree build is recorded.
func Example_instrumentedBuild() {
	cfg := telemetry.DefaultConfig()
	cfg.Logging.Level = "error"

	tel, _ := telemetry.NewTelemetry(cfg)
	defer tel.Shutdown(context.Background())

	ctx := tel.WithContext(context.Background())

	err := telemetry.RecordBuild(ctx, "blog", "headline", func(ctx context.Context) (int, error) {
		return 3, nil
	})
	fmt.Println(err)
	// Output: <nil>
}

// Example_eventPublishing demonstrates synchronous payload events.
func Example_eventPublishing() {
	publisher, _ := telemetry.NewEventPublisher(telemetry.EventsConfig{
		Enabled:    true,
		BufferSize: 10,
	})

	publisher.Subscribe(func(event telemetry.Event) {
		fmt.Println(event.Type, event.Namespace)
	}, telemetry.FilterByType(telemetry.EventTypeElement))

	_ = publisher.PublishRenderPassStarted("", "pass-1")
	_ = publisher.PublishElement("", "pass-1", toolbox.ElementPayload{
		ElementType:      "brick",
		ElementSubType:   "headline",
		ElementHash:      "4c3b2f6d8e9a0b1c",
		ElementNamespace: "content:2:headline",
	})
	// Output: headless.element content:2:headline
}
