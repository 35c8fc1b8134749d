package headless

import (
	"context"
	"fmt"

	"github.com/brickyard/toolbox/pkg/config"
	"github.com/brickyard/toolbox/pkg/manager"
	"github.com/brickyard/toolbox/pkg/normalizer"
	"github.com/brickyard/toolbox/pkg/telemetry"
	"github.com/brickyard/toolbox/pkg/toolbox"
	"github.com/rs/zerolog"
)

// Worker resolves rendered units into payloads and hands them to a sink.
// A Worker owns the block state of one render pass and must not be shared
// between concurrent passes.
type Worker struct {
	manager  *manager.Manager
	registry *normalizer.Registry
	sink     Sink
	states   *BlockStateStack
	logger   zerolog.Logger
}

// NewWorker creates a worker for one render pass.
func NewWorker(m *manager.Manager, r *normalizer.Registry, sink Sink, logger zerolog.Logger) *Worker {
	return &Worker{
		manager:  m,
		registry: r,
		sink:     sink,
		states:   NewBlockStateStack(),
		logger:   logger.With().Str("component", "headless").Logger(),
	}
}

// Manager returns the config manager the worker resolves schemas with.
func (w *Worker) Manager() *manager.Manager {
	return w.manager
}

// BlockStates returns the worker's block state stack.
func (w *Worker) BlockStates() *BlockStateStack {
	return w.states
}

// BrickNamespace returns the namespace of a brick rendered at the current block state.
func (w *Worker) BrickNamespace() string {
	return w.states.Current().Namespace()
}

// BrickHash returns the hash of a brick rendered at the current block state.
func (w *Worker) BrickHash() string {
	return BrickHash(w.BrickNamespace())
}

// ProcessBrick resolves the values of a brick and dispatches its payload.
func (w *Worker) ProcessBrick(ctx context.Context, resp *Response, brickID string) error {
	elementType := elementTypeOf(resp, toolbox.ElementTypeBrick)

	return telemetry.RecordElement(ctx, elementType, brickID, func(ctx context.Context) error {
		data, err := w.processElementData(ctx, resp, brickID)
		if err != nil {
			return err
		}

		configuration := resp.BrickConfiguration
		if configuration == nil {
			configuration = map[string]interface{}{}
		}

		namespace := w.BrickNamespace()
		return w.dispatch(ctx, toolbox.ElementPayload{
			ElementType:      elementType,
			ElementSubType:   brickID,
			ElementHash:      BrickHash(namespace),
			ElementNamespace: namespace,
			Data: map[string]interface{}{
				"configuration": configuration,
				"data":          data,
			},
		})
	})
}

// ProcessEditable resolves a plain editable and dispatches its payload.
func (w *Worker) ProcessEditable(ctx context.Context, resp *Response, editable Editable) error {
	elementType := elementTypeOf(resp, toolbox.ElementTypeEditable)

	return telemetry.RecordElement(ctx, elementType, editable.Type(), func(ctx context.Context) error {
		data, err := w.processEditableData(ctx, resp)
		if err != nil {
			return err
		}

		return w.dispatch(ctx, toolbox.ElementPayload{
			ElementType:      elementType,
			ElementSubType:   editable.Type(),
			ElementHash:      EditableHash(editable.Name()),
			ElementNamespace: EditableNamespace(editable.Name()),
			Data:             map[string]interface{}{"data": data},
		})
	})
}

// ProcessVirtualElement dispatches a payload without data for a unit that
// has no values of its own, such as one repetition of a block.
func (w *Worker) ProcessVirtualElement(ctx context.Context, elementType, subType, hash, namespace string) error {
	return w.dispatch(ctx, toolbox.ElementPayload{
		ElementType:      elementType,
		ElementSubType:   subType,
		ElementHash:      hash,
		ElementNamespace: namespace,
		Data:             map[string]interface{}{},
	})
}

func (w *Worker) dispatch(ctx context.Context, payload toolbox.ElementPayload) error {
	err := w.sink.Dispatch(ctx, payload)
	telemetry.RecordDispatch(ctx, sinkName(w.sink), payload, err)
	if err != nil {
		return toolbox.NewDispatchError(fmt.Sprintf("failed to dispatch %s %s", payload.ElementType, payload.ElementSubType), err).
			WithCode(toolbox.ErrCodeDispatchFailed).
			WithDetail("namespace", payload.ElementNamespace)
	}

	w.logger.Debug().
		Str("element_type", payload.ElementType).
		Str("element_sub_type", payload.ElementSubType).
		Str("element_hash", payload.ElementHash).
		Str("element_namespace", payload.ElementNamespace).
		Msg("Dispatched headless element")
	return nil
}

func (w *Worker) processEditableData(ctx context.Context, resp *Response) (map[string]interface{}, error) {
	switch {
	case resp.HasBrickParent():
		return w.processElementData(ctx, resp, resp.BrickParent)
	case resp.HasEditableConfiguration():
		return w.processSimpleEditableData(ctx, resp)
	default:
		return valuesMap(resp.InlineConfigElementData), nil
	}
}

// processSimpleEditableData resolves the values of an editable carrying its
// own schema. Values without a normalizer that cannot render themselves
// resolve to nil.
func (w *Worker) processSimpleEditableData(ctx context.Context, resp *Response) (map[string]interface{}, error) {
	explicit, _ := resp.EditableConfiguration[PropertyNormalizerKey].(string)
	defaultName, hasDefault := w.manager.DefaultNormalizer(resp.EditableType)

	out := make(map[string]interface{}, resp.InlineConfigElementData.Len())
	for name, value := range resp.InlineConfigElementData.All() {
		var (
			resolved interface{}
			err      error
		)
		switch {
		case explicit != "":
			resolved, err = w.normalize(ctx, explicit, value)
		case hasDefault:
			resolved, err = w.normalize(ctx, defaultName, value)
		default:
			if r, ok := value.(Renderer); ok {
				resolved, err = r.Render()
			}
		}
		if err != nil {
			return nil, fieldError(err, resp.EditableType, name)
		}
		out[name] = resolved
	}
	return out, nil
}

// processElementData resolves the values of a brick, or of an editable
// nested in a brick, against the effective schema of areaName.
func (w *Worker) processElementData(ctx context.Context, resp *Response, areaName string) (map[string]interface{}, error) {
	area, ok := w.manager.GetAreaConfig(areaName)
	if !ok {
		w.logger.Debug().
			Str("area", areaName).
			Str("availability", w.manager.AreaAvailability(areaName).String()).
			Msg("No schema for area, passing values through")
		area = &config.AreaSchema{}
	}

	out := make(map[string]interface{})

	resolve := func(values *Values, elements *config.ConfigElements) error {
		for name, value := range values.All() {
			resolved, err := w.resolveSchemaValue(ctx, name, value, elements)
			if err != nil {
				return fieldError(err, areaName, name)
			}
			out[name] = extractData(resolved)
		}
		return nil
	}

	if err := resolve(resp.ConfigElementData, area.ConfigElements); err != nil {
		return nil, err
	}
	if err := resolve(resp.InlineConfigElementData, area.InlineConfigElements); err != nil {
		return nil, err
	}

	for name, value := range resp.AdditionalConfigData.All() {
		if normalizerName, ok := area.AdditionalPropertyNormalizer[name]; ok {
			resolved, err := w.normalize(ctx, normalizerName, value)
			if err != nil {
				return nil, fieldError(err, areaName, name)
			}
			value = resolved
		}
		out[name] = extractData(value)
	}

	return out, nil
}

// resolveSchemaValue applies the explicit normalizer of the value's schema
// node, else the default normalizer of its type. Values without a schema
// node or a normalizer pass through.
func (w *Worker) resolveSchemaValue(ctx context.Context, name string, value interface{}, elements *config.ConfigElements) (interface{}, error) {
	node := FindConfigNode(name, elements)
	if node == nil {
		return value, nil
	}
	if node.PropertyNormalizer != "" {
		return w.normalize(ctx, node.PropertyNormalizer, value)
	}
	if defaultName, ok := w.manager.DefaultNormalizer(node.Type); ok {
		return w.normalize(ctx, defaultName, value)
	}
	return value, nil
}

func (w *Worker) normalize(ctx context.Context, name string, value interface{}) (interface{}, error) {
	var out interface{}
	err := telemetry.RecordNormalizer(ctx, name, func(ctx context.Context) error {
		var err error
		out, err = w.registry.Normalize(ctx, name, value, w.manager.ContextIdentifier())
		return err
	})
	return out, err
}

// FindConfigNode looks name up in elements. All keys of one level are checked
// before descending into the children of each element, in declaration order;
// the first match wins.
func FindConfigNode(name string, elements *config.ConfigElements) *config.ConfigElement {
	if el, ok := elements.Get(name); ok {
		return el
	}
	for _, el := range elements.All() {
		if !el.HasChildren() {
			continue
		}
		if found := FindConfigNode(name, el.Children); found != nil {
			return found
		}
	}
	return nil
}

// extractData replaces live editables by their plain data.
func extractData(v interface{}) interface{} {
	if d, ok := v.(DataProvider); ok {
		return d.Data()
	}
	return v
}

func elementTypeOf(resp *Response, fallback string) string {
	if resp.Type != "" {
		return resp.Type
	}
	return fallback
}

func fieldError(err error, area, name string) error {
	if terr, ok := err.(*toolbox.Error); ok {
		if terr.Area == "" {
			terr.Area = area
		}
		if terr.Element == "" {
			terr.Element = name
		}
		return terr
	}
	return fmt.Errorf("failed to resolve %s of %s: %w", name, area, err)
}
