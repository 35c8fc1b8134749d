package headless

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/brickyard/toolbox/pkg/telemetry"
	"github.com/brickyard/toolbox/pkg/toolbox"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Page is a rendered document: the areablocks, blocks and editables the
// host encountered, in render order.
type Page struct {
	// Context is the context namespace the page renders in, empty for root.
	Context string `yaml:"context,omitempty"`

	AreaBlocks []AreaBlock    `yaml:"areablocks,omitempty"`
	Blocks     []Block        `yaml:"blocks,omitempty"`
	Editables  []PageEditable `yaml:"editables,omitempty"`
}

// AreaBlock is an areablock editable holding bricks.
type AreaBlock struct {
	Name   string  `yaml:"name"`
	Bricks []Brick `yaml:"bricks"`
}

// Brick is one rendered brick of an areablock.
type Brick struct {
	ID                   string                 `yaml:"id"`
	Configuration        map[string]interface{} `yaml:"configuration,omitempty"`
	ConfigElements       *Values                `yaml:"config_elements,omitempty"`
	InlineConfigElements *Values                `yaml:"inline_config_elements,omitempty"`
	Additional           *Values                `yaml:"additional,omitempty"`

	// AreaBlocks are areablocks nested inside the brick.
	AreaBlocks []AreaBlock `yaml:"areablocks,omitempty"`

	// Editables are plain editables rendered inside the brick template.
	Editables []PageEditable `yaml:"editables,omitempty"`

	// Snippet is a document embedded by the brick. It renders in its own
	// block state.
	Snippet *Page `yaml:"snippet,omitempty"`
}

// Block is a block editable: a repeated group of editables.
type Block struct {
	Name  string      `yaml:"name"`
	Items []BlockItem `yaml:"items"`
}

// BlockItem is one repetition of a block.
type BlockItem struct {
	Editables []PageEditable `yaml:"editables,omitempty"`
}

// PageEditable is a plain editable.
type PageEditable struct {
	Name          string                 `yaml:"name"`
	Type          string                 `yaml:"type"`
	BrickParent   string                 `yaml:"brick_parent,omitempty"`
	Configuration map[string]interface{} `yaml:"configuration,omitempty"`
	Values        *Values                `yaml:"values,omitempty"`
}

// Failure is a rendered unit that could not be resolved.
type Failure struct {
	Unit      string `json:"unit"`
	Namespace string `json:"namespace"`
	Err       error  `json:"-"`
}

// WalkResult summarizes a render pass.
type WalkResult struct {
	PassID     string
	Dispatched int
	Failures   []Failure
	Duration   time.Duration
}

// Err joins the errors of all failed units.
func (r *WalkResult) Err() error {
	errs := make([]error, 0, len(r.Failures))
	for _, f := range r.Failures {
		errs = append(errs, fmt.Errorf("%s (%s): %w", f.Unit, f.Namespace, f.Err))
	}
	return errors.Join(errs...)
}

// Walker drives a Worker over a Page the way a rendering host does,
// keeping the block state in step with the nesting. A failing unit is
// recorded and the walk continues with the next one.
type Walker struct {
	worker *Worker
	logger zerolog.Logger
}

// NewWalker creates a walker for one worker.
func NewWalker(w *Worker, logger zerolog.Logger) *Walker {
	return &Walker{
		worker: w,
		logger: logger.With().Str("component", "walker").Logger(),
	}
}

// Walk renders page. Unit failures end up in the result; the returned error
// is reserved for failures of the pass itself.
func (wk *Walker) Walk(ctx context.Context, passID string, page *Page) (*WalkResult, error) {
	if page == nil {
		return nil, fmt.Errorf("page is nil")
	}
	m := wk.worker.Manager()
	if err := m.SetContextNamespace(page.Context); err != nil {
		return nil, err
	}

	result := &WalkResult{PassID: passID}
	contextID := page.Context
	timer := telemetry.NewTimer()

	tel := telemetry.FromTelemetryContext(ctx)
	if tel != nil {
		tel.Metrics.RenderPassStarted()
		tel.Metrics.SetAreasAvailable(contextID, len(m.AvailableAreas()))
		_ = tel.Events.PublishRenderPassStarted(contextID, passID)
	}

	err := wk.walkPage(ctx, page, result)

	result.Duration = timer.Duration()
	if tel != nil {
		tel.Metrics.RenderPassFinished()
		_ = tel.Events.PublishRenderPassFinished(contextID, passID, result.Dispatched, len(result.Failures), result.Duration)
	}

	wk.logger.Info().
		Str("pass_id", passID).
		Str("context", contextID).
		Int("dispatched", result.Dispatched).
		Int("failed", len(result.Failures)).
		Dur("duration", result.Duration).
		Msg("Render pass finished")

	return result, err
}

func (wk *Walker) walkPage(ctx context.Context, page *Page, result *WalkResult) error {
	for _, ab := range page.AreaBlocks {
		if err := wk.walkAreaBlock(ctx, ab, result); err != nil {
			return err
		}
	}
	for _, b := range page.Blocks {
		if err := wk.walkBlock(ctx, b, result); err != nil {
			return err
		}
	}
	for _, e := range page.Editables {
		if err := ctx.Err(); err != nil {
			return err
		}
		wk.unit(result, "editable "+e.Name, EditableNamespace(e.Name),
			wk.worker.ProcessEditable(ctx, editableResponse(e), NewEditable(e.Name, e.Type)))
	}
	return nil
}

func (wk *Walker) walkAreaBlock(ctx context.Context, ab AreaBlock, result *WalkResult) error {
	state := wk.worker.BlockStates().Current()
	return state.EnterBlock(ab.Name, func() error {
		for i, brick := range ab.Bricks {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := state.WithIndex(i, func() error {
				return wk.walkBrick(ctx, brick, result)
			}); err != nil {
				return err
			}
		}
		return nil
	})
}

func (wk *Walker) walkBrick(ctx context.Context, brick Brick, result *WalkResult) error {
	resp := &Response{
		Type:                    toolbox.ElementTypeBrick,
		BrickConfiguration:      brick.Configuration,
		ConfigElementData:       brick.ConfigElements,
		InlineConfigElementData: brick.InlineConfigElements,
		AdditionalConfigData:    brick.Additional,
	}
	wk.unit(result, "brick "+brick.ID, wk.worker.BrickNamespace(),
		wk.worker.ProcessBrick(ctx, resp, brick.ID))

	for _, nested := range brick.AreaBlocks {
		if err := wk.walkAreaBlock(ctx, nested, result); err != nil {
			return err
		}
	}

	for _, e := range brick.Editables {
		if e.BrickParent == "" {
			e.BrickParent = brick.ID
		}
		wk.unit(result, "editable "+e.Name, EditableNamespace(e.Name),
			wk.worker.ProcessEditable(ctx, editableResponse(e), NewEditable(e.Name, e.Type)))
	}

	if brick.Snippet != nil {
		states := wk.worker.BlockStates()
		states.Push()
		defer states.Pop()
		return wk.walkPage(ctx, brick.Snippet, result)
	}
	return nil
}

func (wk *Walker) walkBlock(ctx context.Context, b Block, result *WalkResult) error {
	state := wk.worker.BlockStates().Current()
	return state.EnterBlock(b.Name, func() error {
		for i, item := range b.Items {
			if err := ctx.Err(); err != nil {
				return err
			}
			err := state.WithIndex(i, func() error {
				namespace := state.Namespace()
				wk.unit(result, fmt.Sprintf("block %s[%d]", b.Name, i), namespace,
					wk.worker.ProcessVirtualElement(ctx, "block", b.Name, BlockHash(b.Name, i), namespace))

				for _, e := range item.Editables {
					wk.unit(result, "editable "+e.Name, EditableNamespace(e.Name),
						wk.worker.ProcessEditable(ctx, editableResponse(e), NewEditable(e.Name, e.Type)))
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (wk *Walker) unit(result *WalkResult, unit, namespace string, err error) {
	if err == nil {
		result.Dispatched++
		return
	}
	result.Failures = append(result.Failures, Failure{Unit: unit, Namespace: namespace, Err: err})
	wk.logger.Warn().Err(err).Str("unit", unit).Str("namespace", namespace).Msg("Failed to resolve unit")
}

func editableResponse(e PageEditable) *Response {
	return &Response{
		Type:                    toolbox.ElementTypeEditable,
		InlineConfigElementData: e.Values,
		BrickParent:             e.BrickParent,
		EditableConfiguration:   e.Configuration,
		EditableType:            e.Type,
	}
}

// LoadPage reads a YAML page fixture. Values tagged !asset decode to an
// Asset, values tagged !markup to Markup.
func LoadPage(path string) (*Page, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read page %s: %w", path, err)
	}
	return ParsePage(data)
}

// ParsePage decodes a YAML page fixture.
func ParsePage(data []byte) (*Page, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}
	if len(doc.Content) == 0 {
		return &Page{}, nil
	}
	if err := resolveTags(doc.Content[0]); err != nil {
		return nil, err
	}

	var page Page
	if err := doc.Content[0].Decode(&page); err != nil {
		return nil, fmt.Errorf("failed to decode page: %w", err)
	}
	page.resolveLiveValues()
	return &page, nil
}
