package headless

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/brickyard/toolbox/pkg/config"
	"github.com/brickyard/toolbox/pkg/manager"
	"github.com/brickyard/toolbox/pkg/normalizer"
	"github.com/brickyard/toolbox/pkg/toolbox"
	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
)

const workerConfig = `
property_normalizer:
  default_type_mapping:
    image: thumbnail
    input: trim
areas:
  teaser:
    config_elements:
      image:
        type: image
      headline:
        type: input
        property_normalizer: upper
      panel:
        type: block
        children:
          caption:
            type: input
      gallery:
        type: block
        children:
          hero:
            type: image
            property_normalizer: upper
    inline_config_elements:
      subline:
        type: input
    additional_property_normalizer:
      extra: upper
  broken:
    config_elements:
      field:
        type: input
        property_normalizer: missing
`

func loadManager(t *testing.T, yaml string) *manager.Manager {
	t.Helper()
	parsed, err := config.NewLoader(zerolog.Nop()).LoadBytes(context.Background(), "toolbox.yaml", []byte(yaml))
	if err != nil {
		t.Fatalf("LoadBytes() error = %v", err)
	}
	return manager.New(parsed.Config, zerolog.Nop())
}

func testRegistry(t *testing.T) *normalizer.Registry {
	t.Helper()
	r := normalizer.NewDefaultRegistry()
	upper := normalizer.Func(func(_ context.Context, v interface{}, _ string) (interface{}, error) {
		switch val := v.(type) {
		case string:
			return strings.ToUpper(val), nil
		case normalizer.Pather:
			return strings.ToUpper(val.Path()), nil
		}
		return v, nil
	})
	trim := normalizer.Func(func(_ context.Context, v interface{}, _ string) (interface{}, error) {
		if s, ok := v.(string); ok {
			return strings.TrimSpace(s), nil
		}
		return v, nil
	})
	for name, n := range map[string]normalizer.Normalizer{"upper": upper, "trim": trim} {
		if err := r.Register(name, n); err != nil {
			t.Fatalf("Register(%s) error = %v", name, err)
		}
	}
	return r
}

func values(kv ...interface{}) *Values {
	v := NewValues()
	for i := 0; i+1 < len(kv); i += 2 {
		v.Set(kv[i].(string), kv[i+1])
	}
	return v
}

func newTestWorker(t *testing.T) (*Worker, *Stack) {
	t.Helper()
	stack := NewStack()
	return NewWorker(loadManager(t, workerConfig), testRegistry(t), stack, zerolog.Nop()), stack
}

func TestProcessBrick_Resolution(t *testing.T) {
	w, stack := newTestWorker(t)
	state := w.BlockStates().Current()
	state.PushBlock("content")
	if err := state.PushIndex(1); err != nil {
		t.Fatal(err)
	}

	resp := &Response{
		BrickConfiguration: map[string]interface{}{"template": "default"},
		ConfigElementData: values(
			"image", Asset{AssetPath: "/img/a.jpg"},
			"headline", "  hello ",
			"caption", "  nested  ",
			"hero", Asset{AssetPath: "/img/hero.jpg"},
			"unknown", Asset{AssetPath: "/img/raw.jpg"},
		),
		InlineConfigElementData: values("subline", " sub "),
		AdditionalConfigData:    values("extra", "more", "plain", "kept"),
	}
	if err := w.ProcessBrick(context.Background(), resp, "teaser"); err != nil {
		t.Fatalf("ProcessBrick() error = %v", err)
	}

	payloads := stack.Payloads()
	if len(payloads) != 1 {
		t.Fatalf("got %d payloads, want 1", len(payloads))
	}
	got := payloads[0]

	want := toolbox.ElementPayload{
		ElementType:      toolbox.ElementTypeBrick,
		ElementSubType:   "teaser",
		ElementHash:      BrickHash("content:1"),
		ElementNamespace: "content:1",
		Data: map[string]interface{}{
			"configuration": map[string]interface{}{"template": "default"},
			"data": map[string]interface{}{
				// default normalizer of the image type
				"image": "/img/a.jpg",
				// explicit normalizer beats the input default
				"headline": "  HELLO ",
				// found among the children of a block, default applies
				"caption": "nested",
				// explicit beats default inside a later sibling's children
				"hero":    "/IMG/HERO.JPG",
				"unknown": map[string]interface{}{"path": "/img/raw.jpg"},
				"subline": "sub",
				"extra":   "MORE",
				"plain":   "kept",
			},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("payload mismatch (-want +got):\n%s", diff)
	}
}

func TestProcessBrick_UnknownNormalizer(t *testing.T) {
	w, stack := newTestWorker(t)

	err := w.ProcessBrick(context.Background(), &Response{ConfigElementData: values("field", "x")}, "broken")
	if !toolbox.IsNotFound(err) || !toolbox.HasCode(err, toolbox.ErrCodeNormalizerNotFound) {
		t.Fatalf("expected normalizer not found, got %v", err)
	}
	var terr *toolbox.Error
	if !errors.As(err, &terr) || terr.Area != "broken" || terr.Element != "field" {
		t.Errorf("error not annotated with area and element: %+v", terr)
	}
	if stack.Len() != 0 {
		t.Errorf("failed brick dispatched %d payloads", stack.Len())
	}

	// The worker stays usable after a failing unit.
	if err := w.ProcessBrick(context.Background(), &Response{ConfigElementData: values("headline", "ok")}, "teaser"); err != nil {
		t.Fatalf("ProcessBrick() after failure error = %v", err)
	}
	if stack.Len() != 1 {
		t.Errorf("Len() = %d, want 1", stack.Len())
	}
}

func TestProcessBrick_UnavailableAreaPassesThrough(t *testing.T) {
	w, stack := newTestWorker(t)

	resp := &Response{ConfigElementData: values("anything", Asset{AssetPath: "/x.png"})}
	if err := w.ProcessBrick(context.Background(), resp, "not-configured"); err != nil {
		t.Fatalf("ProcessBrick() error = %v", err)
	}
	data := stack.Payloads()[0].Data["data"].(map[string]interface{})
	if diff := cmp.Diff(map[string]interface{}{"anything": map[string]interface{}{"path": "/x.png"}}, data); diff != "" {
		t.Errorf("data mismatch (-want +got):\n%s", diff)
	}
}

func TestProcessEditable(t *testing.T) {
	tests := []struct {
		name     string
		resp     *Response
		editable Editable
		want     map[string]interface{}
	}{
		{
			name: "brick parent uses the area schema",
			resp: &Response{
				BrickParent:             "teaser",
				InlineConfigElementData: values("subline", "  x  "),
			},
			editable: NewEditable("content:0.subline", "input"),
			want:     map[string]interface{}{"subline": "x"},
		},
		{
			name: "explicit normalizer in editable configuration",
			resp: &Response{
				EditableConfiguration:   map[string]interface{}{PropertyNormalizerKey: "upper"},
				EditableType:            "input",
				InlineConfigElementData: values("value", " abc "),
			},
			editable: NewEditable("headline", "input"),
			want:     map[string]interface{}{"value": " ABC "},
		},
		{
			name: "default normalizer of the editable type",
			resp: &Response{
				EditableConfiguration:   map[string]interface{}{},
				EditableType:            "image",
				InlineConfigElementData: values("value", Asset{AssetPath: "/a.png"}),
			},
			editable: NewEditable("picture", "image"),
			want:     map[string]interface{}{"value": "/a.png"},
		},
		{
			name: "renderer without normalizer",
			resp: &Response{
				EditableConfiguration:   map[string]interface{}{},
				EditableType:            "wysiwyg",
				InlineConfigElementData: values("value", Markup{Source: " <p>hi</p>\n"}),
			},
			editable: NewEditable("text", "wysiwyg"),
			want:     map[string]interface{}{"value": "<p>hi</p>"},
		},
		{
			name: "plain value without normalizer resolves to nil",
			resp: &Response{
				EditableConfiguration:   map[string]interface{}{},
				EditableType:            "checkbox",
				InlineConfigElementData: values("value", true),
			},
			editable: NewEditable("flag", "checkbox"),
			want:     map[string]interface{}{"value": nil},
		},
		{
			name: "no schema passes values through",
			resp: &Response{
				InlineConfigElementData: values("value", 3),
			},
			editable: NewEditable("count", "numeric"),
			want:     map[string]interface{}{"value": 3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, stack := newTestWorker(t)
			if err := w.ProcessEditable(context.Background(), tt.resp, tt.editable); err != nil {
				t.Fatalf("ProcessEditable() error = %v", err)
			}
			got := stack.Payloads()[0]
			if got.ElementType != toolbox.ElementTypeEditable || got.ElementSubType != tt.editable.Type() {
				t.Errorf("type = %s/%s", got.ElementType, got.ElementSubType)
			}
			if got.ElementHash != EditableHash(tt.editable.Name()) {
				t.Errorf("ElementHash = %s", got.ElementHash)
			}
			if diff := cmp.Diff(tt.want, got.Data["data"]); diff != "" {
				t.Errorf("data mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDispatchFailure(t *testing.T) {
	failing := SinkFunc(func(context.Context, toolbox.ElementPayload) error {
		return errors.New("closed")
	})
	w := NewWorker(loadManager(t, workerConfig), testRegistry(t), failing, zerolog.Nop())

	err := w.ProcessVirtualElement(context.Background(), "block", "slides", BlockHash("slides", 0), "slides:0")
	if !toolbox.IsDispatch(err) || !toolbox.HasCode(err, toolbox.ErrCodeDispatchFailed) {
		t.Errorf("expected dispatch error, got %v", err)
	}
}

func TestFindConfigNode(t *testing.T) {
	m := loadManager(t, workerConfig)
	area, ok := m.GetAreaConfig("teaser")
	if !ok {
		t.Fatal("teaser not available")
	}

	tests := []struct {
		name     string
		wantType string
	}{
		{name: "image", wantType: "image"},
		{name: "caption", wantType: "input"},
		{name: "hero", wantType: "image"},
		{name: "missing"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node := FindConfigNode(tt.name, area.ConfigElements)
			if tt.wantType == "" {
				if node != nil {
					t.Errorf("FindConfigNode() = %+v, want nil", node)
				}
				return
			}
			if node == nil || node.Type != tt.wantType {
				t.Errorf("FindConfigNode() = %+v, want type %s", node, tt.wantType)
			}
		})
	}
}

func TestMultiSink(t *testing.T) {
	a, b := NewStack(), NewStack()
	sink := MultiSink{a, SinkFunc(func(context.Context, toolbox.ElementPayload) error {
		return errors.New("down")
	}), b}

	err := sink.Dispatch(context.Background(), toolbox.ElementPayload{ElementHash: "h"})
	if err == nil {
		t.Error("expected joined error")
	}
	if _, ok := a.Find("h"); !ok {
		t.Error("first sink missed the payload")
	}
	if _, ok := b.Find("h"); !ok {
		t.Error("sink after the failing one missed the payload")
	}
}
