package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/brickyard/toolbox/pkg/telemetry"
	"github.com/google/go-cmp/cmp"
)

func TestSnapshot(t *testing.T) {
	first := &Config{ContextResolver: "first"}
	s := NewSnapshot(first)

	if s.Load() != first {
		t.Fatal("expected initial config")
	}
	if s.Version() != 1 {
		t.Errorf("version = %d, want 1", s.Version())
	}

	second := &Config{ContextResolver: "second"}
	s.Store(second)
	if s.Load() != second || s.Version() != 2 {
		t.Errorf("unexpected snapshot state %v %d", s.Load().ContextResolver, s.Version())
	}
}

func TestWatcher_Reload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "toolbox.yaml")

	write := func(content string) {
		t.Helper()
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	write(`
areas:
  teaser:
    config_elements:
      title:
        type: input
`)

	tel := newTestTelemetry(t)
	var reloadEvents []string
	tel.Events.Subscribe(func(e telemetry.Event) {
		reloadEvents = append(reloadEvents, e.Type)
	}, telemetry.FilterByType(telemetry.EventTypeConfigReloaded, telemetry.EventTypeConfigReloadFailed))

	ctx := tel.WithContext(context.Background())
	loader := NewLoader(testLogger())
	parsed, err := loader.Load(ctx, path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	snapshot := NewSnapshot(parsed.Config)
	w := NewWatcher(loader, snapshot, []string{path}, testLogger())

	var calls int
	w.OnReload(func(*ParsedConfig, error) { calls++ })

	write(`
areas:
  teaser:
    config_elements:
      title:
        type: input
  headline:
    config_elements:
      text:
        type: input
`)
	if err := w.Reload(ctx); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if snapshot.Load().Areas.Len() != 2 {
		t.Errorf("expected reloaded config with 2 areas, got %d", snapshot.Load().Areas.Len())
	}

	// A broken file keeps the previous configuration.
	current := snapshot.Load()
	write("areas: [broken")
	if err := w.Reload(ctx); err == nil {
		t.Fatal("expected reload error")
	}
	if snapshot.Load() != current {
		t.Error("failed reload must not replace the snapshot")
	}

	if calls != 2 {
		t.Errorf("expected 2 reload callbacks, got %d", calls)
	}

	wantEvents := []string{telemetry.EventTypeConfigReloaded, telemetry.EventTypeConfigReloadFailed}
	if diff := cmp.Diff(wantEvents, reloadEvents); diff != "" {
		t.Errorf("reload events mismatch (-want +got):\n%s", diff)
	}
	for _, status := range []string{telemetry.StatusSuccess, telemetry.StatusFailure} {
		if got := counterValue(t, tel, "toolbox_config_reloads_total", "status", status); got != 1 {
			t.Errorf("%s reloads = %v, want 1", status, got)
		}
	}
}

func TestWatcher_Watches(t *testing.T) {
	dir := t.TempDir()
	w := NewWatcher(nil, nil, []string{filepath.Join(dir, "toolbox.yaml"), filepath.Join(dir, "conf.d")}, testLogger())

	tests := []struct {
		name string
		want bool
	}{
		{filepath.Join(dir, "toolbox.yaml"), true},
		{filepath.Join(dir, "other.yaml"), false},
		{filepath.Join(dir, "conf.d", "areas.yml"), true},
		{filepath.Join(dir, "conf.d", "notes.txt"), false},
	}
	for _, tt := range tests {
		if got := w.watches(tt.name); got != tt.want {
			t.Errorf("watches(%s) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestWatcher_StartClose(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "toolbox.yaml")
	if err := os.WriteFile(path, []byte("areas: {}\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := NewWatcher(NewLoader(testLogger()), NewSnapshot(nil), []string{path}, testLogger())
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}
