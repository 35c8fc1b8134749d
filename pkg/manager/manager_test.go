package manager

import (
	"context"
	"testing"

	"github.com/brickyard/toolbox/pkg/config"
	"github.com/brickyard/toolbox/pkg/toolbox"
	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
)

const managerConfig = `
enabled_core_areas: [headline, teaser]

property_normalizer:
  default_type_mapping:
    image: thumbnail

theme:
  layout: Bootstrap4
  grid:
    grid_size: 12

image_thumbnails:
  teaser: teaser_thumb

areas:
  teaser:
    tabs:
      general: General
      layout: Layout
    config_elements:
      title:
        type: input
        title: Title
        tab: general
      image:
        type: image
        tab: general
      layout:
        type: select
        tab: layout
  headline:
    config_elements:
      text:
        type: input
  video:
    config_elements:
      url:
        type: input
  legacy:
    enabled: false
    config_elements:
      text:
        type: input
  custom:
    config_elements:
      text:
        type: input

context:
  blog:
    settings:
      disabled_areas: [headline]
      enabled_areas: [legacy]
    property_normalizer:
      default_type_mapping:
        video: video_data
    areas:
      teaser:
        tabs:
          layout: Design
          seo: SEO
        config_elements:
          title:
            title: Blog title
          image: ~
          keywords:
            type: input
            tab: seo
  portal:
    settings:
      merge_with_root: false
    theme:
      layout: Uikit3
      grid:
        grid_size: 6
    areas:
      custom:
        config_elements:
          other:
            type: checkbox
`

func newManager(t *testing.T) *Manager {
	t.Helper()
	loader := config.NewLoader(zerolog.New(nil).Level(zerolog.Disabled))
	parsed, err := loader.LoadBytes(context.Background(), "toolbox.yaml", []byte(managerConfig))
	if err != nil {
		t.Fatalf("failed to load config: %v (%v)", err, parsed.Errors)
	}
	return New(parsed.Config, zerolog.New(nil).Level(zerolog.Disabled))
}

func TestManager_Root(t *testing.T) {
	m := newManager(t)

	if m.ContextIdentifier() != "" || m.IsContextConfig() {
		t.Error("expected root context")
	}
	settings := m.GetCurrentContextSettings()
	if !settings.Merges() || len(settings.DisabledAreas) != 0 || len(settings.EnabledAreas) != 0 {
		t.Errorf("unexpected root settings %+v", settings)
	}

	teaser, ok := m.GetAreaConfig("teaser")
	if !ok {
		t.Fatal("expected teaser config")
	}
	if diff := cmp.Diff([]string{"title", "image", "layout"}, teaser.ConfigElements.Keys()); diff != "" {
		t.Errorf("element mismatch (-want +got):\n%s", diff)
	}

	tests := []struct {
		brick string
		want  Availability
	}{
		{"teaser", Available},
		{"headline", Available},
		{"custom", Available},
		{"legacy", Disabled},
		{"video", NotEnabled},
		{"missing", NotFound},
	}
	for _, tt := range tests {
		if got := m.AreaAvailability(tt.brick); got != tt.want {
			t.Errorf("AreaAvailability(%s) = %s, want %s", tt.brick, got, tt.want)
		}
	}

	if _, ok := m.GetAreaConfig("legacy"); ok {
		t.Error("disabled area must not be returned")
	}

	if name, ok := m.DefaultNormalizer("image"); !ok || name != "thumbnail" {
		t.Errorf("DefaultNormalizer(image) = %q, %v", name, ok)
	}
	if _, ok := m.DefaultNormalizer("video"); ok {
		t.Error("video has no root default normalizer")
	}
}

func TestManager_MergingContext(t *testing.T) {
	m := newManager(t)

	if err := m.SetContextNamespace("blog"); err != nil {
		t.Fatalf("SetContextNamespace() error = %v", err)
	}
	if m.ContextIdentifier() != "blog" || !m.IsContextConfig() {
		t.Errorf("unexpected context %q", m.ContextIdentifier())
	}

	teaser, ok := m.GetAreaConfig("teaser")
	if !ok {
		t.Fatal("expected teaser in blog context")
	}

	if diff := cmp.Diff([]string{"general", "layout", "seo"}, teaser.Tabs.Keys()); diff != "" {
		t.Errorf("tab mismatch (-want +got):\n%s", diff)
	}
	if title, _ := teaser.Tabs.Get("layout"); title != "Design" {
		t.Errorf("expected context tab title, got %q", title)
	}

	if diff := cmp.Diff([]string{"title", "layout", "keywords"}, teaser.ConfigElements.Keys()); diff != "" {
		t.Errorf("element mismatch (-want +got):\n%s", diff)
	}
	title, _ := teaser.ConfigElements.Get("title")
	if title.Title != "Blog title" || title.Type != "input" || title.Tab != "general" {
		t.Errorf("unexpected merged title %+v", title)
	}

	if got := m.AreaAvailability("headline"); got != Disabled {
		t.Errorf("headline = %s, want disabled", got)
	}
	if got := m.AreaAvailability("legacy"); got != Available {
		t.Errorf("legacy = %s, want available (enabled_areas wins)", got)
	}

	if name, ok := m.DefaultNormalizer("video"); !ok || name != "video_data" {
		t.Errorf("DefaultNormalizer(video) = %q, %v", name, ok)
	}
	if name, ok := m.DefaultNormalizer("image"); !ok || name != "thumbnail" {
		t.Errorf("root mapping should be inherited, got %q, %v", name, ok)
	}

	// Root stays untouched after context selection.
	if err := m.SetContextNamespace(""); err != nil {
		t.Fatal(err)
	}
	rootTeaser, _ := m.GetAreaConfig("teaser")
	if rootTeaser.ConfigElements.Len() != 3 {
		t.Errorf("root teaser was modified: %v", rootTeaser.ConfigElements.Keys())
	}
}

func TestManager_AuthoritativeContext(t *testing.T) {
	m := newManager(t)

	if err := m.SetContextNamespace("portal"); err != nil {
		t.Fatalf("SetContextNamespace() error = %v", err)
	}
	if m.GetCurrentContextSettings().Merges() {
		t.Error("portal must not merge with root")
	}

	if got := m.AreaAvailability("teaser"); got != NotEnabled {
		t.Errorf("teaser = %s, want not_enabled", got)
	}
	if got := m.AreaAvailability("nothing"); got != NotFound {
		t.Errorf("nothing = %s, want not_found", got)
	}

	custom, ok := m.GetAreaConfig("custom")
	if !ok {
		t.Fatal("expected custom area")
	}
	if diff := cmp.Diff([]string{"other"}, custom.ConfigElements.Keys()); diff != "" {
		t.Errorf("context area must replace root (-want +got):\n%s", diff)
	}

	if theme := m.Theme(); theme.Layout != "Uikit3" || theme.Grid.Size() != 6 {
		t.Errorf("unexpected theme %+v", theme)
	}
	if _, ok := m.DefaultNormalizer("image"); ok {
		t.Error("authoritative context must not inherit the root mapping")
	}
	if diff := cmp.Diff([]string{"custom"}, m.AvailableAreas()); diff != "" {
		t.Errorf("AvailableAreas() mismatch (-want +got):\n%s", diff)
	}
}

func TestManager_UnknownContext(t *testing.T) {
	m := newManager(t)
	if err := m.SetContextNamespace("blog"); err != nil {
		t.Fatal(err)
	}

	err := m.SetContextNamespace("missing")
	if err == nil {
		t.Fatal("expected error for unknown context")
	}
	if !toolbox.IsNotFound(err) || !toolbox.HasCode(err, toolbox.ErrCodeContextNotFound) {
		t.Errorf("expected CONTEXT_NOT_FOUND, got %v", err)
	}
	if m.ContextIdentifier() != "blog" {
		t.Errorf("selection changed to %q", m.ContextIdentifier())
	}

	if diff := cmp.Diff([]string{"blog", "portal"}, m.ContextIDs()); diff != "" {
		t.Errorf("ContextIDs() mismatch (-want +got):\n%s", diff)
	}
}

func TestManager_GetConfig(t *testing.T) {
	m := newManager(t)

	keys := []string{
		KeyTheme, KeyPropertyNormalizer, KeyImageThumbnails, KeyFlags,
		KeyAreaBlockConfiguration, KeyEnabledCoreAreas,
	}
	for _, key := range keys {
		if _, ok := m.GetConfig(key); !ok {
			t.Errorf("GetConfig(%s) not found", key)
		}
	}

	if _, ok := m.GetConfig(KeyWysiwygEditor); ok {
		t.Error("wysiwyg_editor is not configured")
	}
	if _, ok := m.GetConfig("unknown"); ok {
		t.Error("unknown key must not resolve")
	}

	thumbs, _ := m.GetConfig(KeyImageThumbnails)
	if diff := cmp.Diff(map[string]string{"teaser": "teaser_thumb"}, thumbs); diff != "" {
		t.Errorf("thumbnail mismatch (-want +got):\n%s", diff)
	}
	if name, ok := m.ImageThumbnail("teaser"); !ok || name != "teaser_thumb" {
		t.Errorf("ImageThumbnail(teaser) = %q, %v", name, ok)
	}
}

func TestAvailability_String(t *testing.T) {
	tests := map[Availability]string{
		Available:        "available",
		Disabled:         "disabled",
		NotEnabled:       "not_enabled",
		NotFound:         "not_found",
		Availability(99): "availability(99)",
	}
	for a, want := range tests {
		if got := a.String(); got != want {
			t.Errorf("String() = %q, want %q", got, want)
		}
	}
}
