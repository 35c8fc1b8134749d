package config

import (
	"testing"

	"gopkg.in/yaml.v3"
)

func decodeArea(t *testing.T, src string) *AreaSchema {
	t.Helper()
	var area AreaSchema
	if err := yaml.Unmarshal([]byte(src), &area); err != nil {
		t.Fatalf("failed to decode area: %v", err)
	}
	return &area
}

func TestPromoteInlineElements(t *testing.T) {
	area := decodeArea(t, `
config_elements:
  title:
    type: input
    title: Title
  image:
    type: image
inline_config_elements:
  title: "<"
  caption:
    type: input
  ghost: "<"
`)

	promoted, errs := PromoteInlineElements(area)
	if len(errs) != 1 {
		t.Fatalf("expected one unresolved reference, got %v", errs)
	}

	t.Run("input is not mutated", func(t *testing.T) {
		title, _ := area.ConfigElements.Get("title")
		if title.InlineRendered {
			t.Error("input config element was flagged")
		}
		ref, _ := area.InlineConfigElements.Get("title")
		if !ref.IsReference() {
			t.Error("input inline reference was replaced")
		}
		if !area.InlineConfigElements.Has("ghost") {
			t.Error("input inline reference was removed")
		}
	})

	t.Run("reference replaced by copy", func(t *testing.T) {
		inline, ok := promoted.InlineConfigElements.Get("title")
		if !ok || inline.IsReference() {
			t.Fatalf("expected resolved inline element, got %+v", inline)
		}
		if inline.Type != "input" || inline.Title != "Title" {
			t.Errorf("unexpected inline element %+v", inline)
		}

		title, _ := promoted.ConfigElements.Get("title")
		if !title.InlineRendered {
			t.Error("expected config element to be flagged inline rendered")
		}
		if title == inline {
			t.Error("inline element must be a copy")
		}
	})

	t.Run("order and unrelated entries kept", func(t *testing.T) {
		keys := promoted.InlineConfigElements.Keys()
		if len(keys) != 2 || keys[0] != "title" || keys[1] != "caption" {
			t.Errorf("unexpected inline keys %v", keys)
		}
		image, _ := promoted.ConfigElements.Get("image")
		if image.InlineRendered {
			t.Error("unreferenced element must not be flagged")
		}
	})
}

func TestPromoteInlineElements_Nil(t *testing.T) {
	promoted, errs := PromoteInlineElements(nil)
	if promoted != nil || errs != nil {
		t.Errorf("expected nil result, got %v %v", promoted, errs)
	}
}
