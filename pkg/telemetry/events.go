package telemetry

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/brickyard/toolbox/pkg/toolbox"
	"github.com/google/uuid"
)

// Event represents a telemetry event emitted by the toolbox.
type Event struct {
	// ID is the unique identifier for this event.
	ID string `json:"id"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// Type is the event type.
	Type string `json:"type"`

	// Source identifies where the event originated.
	Source string `json:"source"`

	// ContextID is the context namespace the event was produced in, if any.
	ContextID string `json:"context_id,omitempty"`

	// PassID is the associated render pass, if applicable.
	PassID string `json:"pass_id,omitempty"`

	// ElementHash is the hash of the rendered unit, if applicable.
	ElementHash string `json:"element_hash,omitempty"`

	// Namespace is the namespace of the rendered unit, if applicable.
	Namespace string `json:"namespace,omitempty"`

	// Message is a human-readable event message.
	Message string `json:"message"`

	// Level is the event severity level (info, warning, error).
	Level string `json:"level"`

	// Data contains additional event-specific data.
	Data map[string]interface{} `json:"data,omitempty"`
}

// EventType constants for common event types.
const (
	EventTypeElement            = "headless.element"
	EventTypeRenderPassStarted  = "render_pass.started"
	EventTypeRenderPassFinished = "render_pass.finished"
	EventTypeConfigReloaded     = "config.reloaded"
	EventTypeConfigReloadFailed = "config.reload_failed"
	EventTypeSchemaWarning      = "config.schema_warning"
	EventTypePolicyViolation    = "policy.violation"
)

// EventLevel constants for event severity.
const (
	EventLevelInfo    = "info"
	EventLevelWarning = "warning"
	EventLevelError   = "error"
)

// EventSubscriber is a function that handles events.
type EventSubscriber func(event Event)

// EventFilter determines if an event should be processed.
type EventFilter func(event Event) bool

// EventPublisher manages event publishing and subscriptions.
//
// In synchronous mode subscribers run on the publishing goroutine, in
// publish order. In async mode events are buffered and delivered in batches
// from a single goroutine.
type EventPublisher struct {
	config      EventsConfig
	buffer      chan Event
	subscribers []subscriberEntry
	filters     []EventFilter
	wg          sync.WaitGroup
	mu          sync.RWMutex
	ctx         context.Context
	cancel      context.CancelFunc
}

type subscriberEntry struct {
	subscriber EventSubscriber
	filter     EventFilter
}

// NewEventPublisher creates a new event publisher with the given configuration.
func NewEventPublisher(cfg EventsConfig) (*EventPublisher, error) {
	if !cfg.Enabled {
		return &EventPublisher{config: cfg}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())

	ep := &EventPublisher{
		config:      cfg,
		subscribers: make([]subscriberEntry, 0),
		filters:     make([]EventFilter, 0),
		ctx:         ctx,
		cancel:      cancel,
	}

	if cfg.EnableAsync {
		ep.buffer = make(chan Event, cfg.BufferSize)
		ep.wg.Add(1)
		go ep.processEvents()
	}

	return ep, nil
}

// Enabled reports whether events are delivered at all.
func (ep *EventPublisher) Enabled() bool {
	return ep != nil && ep.config.Enabled
}

// Publish publishes an event to all subscribers.
func (ep *EventPublisher) Publish(event Event) error {
	if !ep.Enabled() {
		return nil
	}

	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	ep.mu.RLock()
	for _, filter := range ep.filters {
		if !filter(event) {
			ep.mu.RUnlock()
			return nil // Event filtered out
		}
	}
	ep.mu.RUnlock()

	if ep.config.EnableAsync {
		select {
		case <-ep.ctx.Done():
			return fmt.Errorf("event publisher stopped")
		default:
		}
		select {
		case ep.buffer <- event:
			return nil
		default:
			return fmt.Errorf("event buffer full, event dropped")
		}
	}

	ep.deliverEvent(event)
	return nil
}

// PublishElement publishes a resolved headless payload.
func (ep *EventPublisher) PublishElement(contextID, passID string, payload toolbox.ElementPayload) error {
	return ep.Publish(Event{
		Type:        EventTypeElement,
		Source:      "headless",
		ContextID:   contextID,
		PassID:      passID,
		ElementHash: payload.ElementHash,
		Namespace:   payload.ElementNamespace,
		Message:     fmt.Sprintf("%s %s resolved", payload.ElementType, payload.ElementSubType),
		Level:       EventLevelInfo,
		Data: map[string]interface{}{
			"elementType":    payload.ElementType,
			"elementSubType": payload.ElementSubType,
			"data":           payload.Data,
		},
	})
}

// PublishRenderPassStarted publishes a render pass started event.
func (ep *EventPublisher) PublishRenderPassStarted(contextID, passID string) error {
	return ep.Publish(Event{
		Type:      EventTypeRenderPassStarted,
		Source:    "headless",
		ContextID: contextID,
		PassID:    passID,
		Message:   fmt.Sprintf("Render pass %s started", passID),
		Level:     EventLevelInfo,
	})
}

// PublishRenderPassFinished publishes a render pass finished event.
func (ep *EventPublisher) PublishRenderPassFinished(contextID, passID string, dispatched, failed int, duration time.Duration) error {
	level := EventLevelInfo
	if failed > 0 {
		level = EventLevelWarning
	}
	return ep.Publish(Event{
		Type:      EventTypeRenderPassFinished,
		Source:    "headless",
		ContextID: contextID,
		PassID:    passID,
		Message:   fmt.Sprintf("Render pass %s finished: %d dispatched, %d failed", passID, dispatched, failed),
		Level:     level,
		Data: map[string]interface{}{
			"dispatched": dispatched,
			"failed":     failed,
			"duration":   duration.Seconds(),
		},
	})
}

// PublishConfigReloaded publishes a configuration reload result.
func (ep *EventPublisher) PublishConfigReloaded(files []string, warnings int, err error) error {
	if err != nil {
		return ep.Publish(Event{
			Type:    EventTypeConfigReloadFailed,
			Source:  "config",
			Message: fmt.Sprintf("Configuration reload failed: %v", err),
			Level:   EventLevelError,
			Data: map[string]interface{}{
				"files": files,
			},
		})
	}
	return ep.Publish(Event{
		Type:    EventTypeConfigReloaded,
		Source:  "config",
		Message: fmt.Sprintf("Configuration reloaded from %d file(s)", len(files)),
		Level:   EventLevelInfo,
		Data: map[string]interface{}{
			"files":    files,
			"warnings": warnings,
		},
	})
}

// PublishSchemaWarning publishes a lenient-mode schema contradiction.
func (ep *EventPublisher) PublishSchemaWarning(path, message string) error {
	return ep.Publish(Event{
		Type:    EventTypeSchemaWarning,
		Source:  "config",
		Message: fmt.Sprintf("%s: %s", path, message),
		Level:   EventLevelWarning,
		Data: map[string]interface{}{
			"path": path,
		},
	})
}

// PublishPolicyViolation publishes a policy violation event.
func (ep *EventPublisher) PublishPolicyViolation(contextID, areaID, policyName, reason string) error {
	return ep.Publish(Event{
		Type:      EventTypePolicyViolation,
		Source:    "policy_engine",
		ContextID: contextID,
		Message:   fmt.Sprintf("Policy violation on area %s: %s - %s", areaID, policyName, reason),
		Level:     EventLevelError,
		Data: map[string]interface{}{
			"area":   areaID,
			"policy": policyName,
			"reason": reason,
		},
	})
}

// Subscribe adds a new event subscriber.
func (ep *EventPublisher) Subscribe(subscriber EventSubscriber, filter EventFilter) {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	ep.subscribers = append(ep.subscribers, subscriberEntry{
		subscriber: subscriber,
		filter:     filter,
	})
}

// AddFilter adds a global event filter.
func (ep *EventPublisher) AddFilter(filter EventFilter) {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	ep.filters = append(ep.filters, filter)
}

// processEvents processes events from the buffer asynchronously.
func (ep *EventPublisher) processEvents() {
	defer ep.wg.Done()

	batch := make([]Event, 0, ep.config.MaxBatchSize)

	var tick <-chan time.Time
	if ep.config.FlushInterval > 0 {
		ticker := time.NewTicker(ep.config.FlushInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case event := <-ep.buffer:
			batch = append(batch, event)

			if len(batch) >= ep.config.MaxBatchSize {
				ep.flushBatch(batch)
				batch = batch[:0]
			}

		case <-tick:
			if len(batch) > 0 {
				ep.flushBatch(batch)
				batch = batch[:0]
			}

		case <-ep.ctx.Done():
			// Drain what is still buffered before shutting down
			for {
				select {
				case event := <-ep.buffer:
					batch = append(batch, event)
				default:
					ep.flushBatch(batch)
					return
				}
			}
		}
	}
}

// flushBatch delivers a batch of events to subscribers.
func (ep *EventPublisher) flushBatch(events []Event) {
	for _, event := range events {
		ep.deliverEvent(event)
	}
}

// deliverEvent delivers an event to all subscribers.
func (ep *EventPublisher) deliverEvent(event Event) {
	ep.mu.RLock()
	defer ep.mu.RUnlock()

	for _, entry := range ep.subscribers {
		if entry.filter != nil && !entry.filter(event) {
			continue
		}
		entry.subscriber(event)
	}
}

// Shutdown gracefully shuts down the event publisher.
func (ep *EventPublisher) Shutdown(ctx context.Context) error {
	if !ep.Enabled() {
		return nil
	}

	ep.cancel()

	done := make(chan struct{})
	go func() {
		ep.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("event publisher shutdown timeout")
	}
}

// Common event filters.

// FilterByLevel creates a filter that only allows events of a specific level or higher.
func FilterByLevel(minLevel string) EventFilter {
	levels := map[string]int{
		EventLevelInfo:    0,
		EventLevelWarning: 1,
		EventLevelError:   2,
	}

	minLevelValue := levels[minLevel]

	return func(event Event) bool {
		return levels[event.Level] >= minLevelValue
	}
}

// FilterByType creates a filter that only allows events of specific types.
func FilterByType(types ...string) EventFilter {
	typeSet := make(map[string]bool)
	for _, t := range types {
		typeSet[t] = true
	}

	return func(event Event) bool {
		return typeSet[event.Type]
	}
}

// FilterByContext creates a filter that only allows events of one context namespace.
func FilterByContext(contextID string) EventFilter {
	return func(event Event) bool {
		return event.ContextID == contextID
	}
}

// FilterByNamespacePrefix creates a filter that only allows element events
// below the given namespace, e.g. "content:2".
func FilterByNamespacePrefix(prefix string) EventFilter {
	return func(event Event) bool {
		return event.Namespace == prefix || strings.HasPrefix(event.Namespace, prefix+":")
	}
}
