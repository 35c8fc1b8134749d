package headless

import (
	"context"
	"errors"
	"sync"

	"github.com/brickyard/toolbox/pkg/telemetry"
	"github.com/brickyard/toolbox/pkg/toolbox"
)

// Sink consumes resolved payloads. The worker never expects a value back.
type Sink interface {
	Dispatch(ctx context.Context, payload toolbox.ElementPayload) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, payload toolbox.ElementPayload) error

// Dispatch implements Sink.
func (f SinkFunc) Dispatch(ctx context.Context, payload toolbox.ElementPayload) error {
	return f(ctx, payload)
}

type namedSink interface {
	Name() string
}

func sinkName(s Sink) string {
	if n, ok := s.(namedSink); ok {
		return n.Name()
	}
	return "custom"
}

// Stack is the in-memory headless element stack of one render pass.
type Stack struct {
	mu       sync.Mutex
	payloads []toolbox.ElementPayload
}

// NewStack creates an empty stack.
func NewStack() *Stack {
	return &Stack{}
}

// Name implements the sink naming used in metrics.
func (s *Stack) Name() string { return "stack" }

// Dispatch appends the payload.
func (s *Stack) Dispatch(_ context.Context, payload toolbox.ElementPayload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payloads = append(s.payloads, payload)
	return nil
}

// Payloads returns the dispatched payloads in dispatch order.
func (s *Stack) Payloads() []toolbox.ElementPayload {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]toolbox.ElementPayload, len(s.payloads))
	copy(out, s.payloads)
	return out
}

// Find returns the first payload with the given hash.
func (s *Stack) Find(hash string) (toolbox.ElementPayload, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.payloads {
		if p.ElementHash == hash {
			return p, true
		}
	}
	return toolbox.ElementPayload{}, false
}

// Len returns the number of dispatched payloads.
func (s *Stack) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.payloads)
}

// Reset empties the stack.
func (s *Stack) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payloads = nil
}

// EventSink publishes payloads as telemetry events.
type EventSink struct {
	publisher *telemetry.EventPublisher
	contextID string
	passID    string
}

// NewEventSink creates a sink publishing to p for one render pass.
func NewEventSink(p *telemetry.EventPublisher, contextID, passID string) *EventSink {
	return &EventSink{publisher: p, contextID: contextID, passID: passID}
}

// Name implements the sink naming used in metrics.
func (s *EventSink) Name() string { return "events" }

// Dispatch publishes the payload.
func (s *EventSink) Dispatch(_ context.Context, payload toolbox.ElementPayload) error {
	return s.publisher.PublishElement(s.contextID, s.passID, payload)
}

// MultiSink dispatches every payload to all sinks and joins their errors.
type MultiSink []Sink

// Name implements the sink naming used in metrics.
func (m MultiSink) Name() string { return "multi" }

// Dispatch implements Sink.
func (m MultiSink) Dispatch(ctx context.Context, payload toolbox.ElementPayload) error {
	var errs []error
	for _, s := range m {
		if err := s.Dispatch(ctx, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
