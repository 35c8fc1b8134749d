package policy

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

const emptyDeny = "package %s\n\nimport rego.v1\n\ndeny contains \"never\" if { false }\n"

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}
}

func newTestLoader() *Loader {
	return NewLoader(zerolog.New(nil).Level(zerolog.Disabled))
}

func TestLoadFromFile_Rego(t *testing.T) {
	loader := newTestLoader()
	policyFile := filepath.Join(t.TempDir(), "area-naming.rego")

	content := "# Areas must be named.\npackage area.naming\n\nimport rego.v1\n\ndeny contains \"unnamed\" if { input.area == \"\" }\n"
	writeFile(t, policyFile, content)

	policy, err := loader.loadFromFile(context.Background(), policyFile)
	if err != nil {
		t.Fatalf("Failed to load policy: %v", err)
	}

	if policy.Name != "area-naming" {
		t.Errorf("Expected name 'area-naming', got '%s'", policy.Name)
	}
	if policy.Rego != content {
		t.Error("Rego content doesn't match")
	}
	if policy.Severity != SeverityWarning {
		t.Errorf("Expected default severity warning, got %s", policy.Severity)
	}
	if !policy.Enabled {
		t.Error("Policy should be enabled by default")
	}
}

func TestLoadFromFile_JSON(t *testing.T) {
	loader := newTestLoader()
	policyFile := filepath.Join(t.TempDir(), "tabs.json")

	policy := Policy{
		Name:        "tab-titles",
		Description: "Tabs need titles",
		Rego:        "package tabs\n\nimport rego.v1\n\ndeny contains \"x\" if { false }\n",
		Severity:    SeverityError,
		Enabled:     true,
	}
	data, err := json.Marshal(policy)
	if err != nil {
		t.Fatalf("Failed to marshal policy: %v", err)
	}
	writeFile(t, policyFile, string(data))

	loaded, err := loader.loadFromFile(context.Background(), policyFile)
	if err != nil {
		t.Fatalf("Failed to load policy: %v", err)
	}
	if loaded.Name != policy.Name || loaded.Description != policy.Description || loaded.Severity != policy.Severity {
		t.Errorf("loaded policy = %+v", loaded)
	}
	if loaded.CreatedAt.IsZero() {
		t.Error("CreatedAt not defaulted")
	}
}

func TestLoadFromPaths(t *testing.T) {
	loader := newTestLoader()
	tmpDir := t.TempDir()

	writeFile(t, filepath.Join(tmpDir, "dir", "p1.rego"), sprintfPolicy("p1"))
	writeFile(t, filepath.Join(tmpDir, "dir", "nested", "p2.rego"), sprintfPolicy("p2"))
	writeFile(t, filepath.Join(tmpDir, "dir", "README.md"), "# not a policy")
	single := filepath.Join(tmpDir, "p3.rego")
	writeFile(t, single, sprintfPolicy("p3"))

	loaded, err := loader.LoadFromPaths(context.Background(), []string{filepath.Join(tmpDir, "dir"), single})
	if err != nil {
		t.Fatalf("Failed to load paths: %v", err)
	}
	if len(loaded) != 3 {
		t.Errorf("Expected 3 policies, got %d", len(loaded))
	}
}

func TestExtractHeader(t *testing.T) {
	loader := newTestLoader()

	tests := []struct {
		name         string
		content      string
		wantDesc     string
		wantSeverity Severity
	}{
		{
			name:         "single line comment",
			content:      "# Headline required\npackage test",
			wantDesc:     "Headline required",
			wantSeverity: SeverityWarning,
		},
		{
			name:         "multi line with severity",
			content:      "# Headline required\n# for teasers\n# severity: error\npackage test",
			wantDesc:     "Headline required for teasers",
			wantSeverity: SeverityError,
		},
		{
			name:         "no comments",
			content:      "package test\n",
			wantDesc:     "",
			wantSeverity: SeverityWarning,
		},
		{
			name:         "empty comment lines",
			content:      "# First\n#\n# Second\npackage test",
			wantDesc:     "First Second",
			wantSeverity: SeverityWarning,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			desc, severity := loader.extractHeader(tt.content)
			if desc != tt.wantDesc {
				t.Errorf("description = %q, want %q", desc, tt.wantDesc)
			}
			if severity != tt.wantSeverity {
				t.Errorf("severity = %q, want %q", severity, tt.wantSeverity)
			}
		})
	}
}

func TestClearCache(t *testing.T) {
	loader := newTestLoader()
	policyFile := filepath.Join(t.TempDir(), "test.rego")
	writeFile(t, policyFile, sprintfPolicy("test"))

	if _, err := loader.loadFromFile(context.Background(), policyFile); err != nil {
		t.Fatalf("Failed to load policy: %v", err)
	}
	if len(loader.cache) != 1 {
		t.Errorf("Expected 1 cache entry, got %d", len(loader.cache))
	}

	loader.ClearCache()
	if len(loader.cache) != 0 {
		t.Errorf("Expected 0 cache entries after clear, got %d", len(loader.cache))
	}
}

func TestLoadFromFile_Errors(t *testing.T) {
	loader := newTestLoader()
	tmpDir := t.TempDir()

	txt := filepath.Join(tmpDir, "test.txt")
	writeFile(t, txt, "not a policy")
	bad := filepath.Join(tmpDir, "test.json")
	writeFile(t, bad, "invalid json")

	for _, path := range []string{txt, bad} {
		if _, err := loader.loadFromFile(context.Background(), path); err == nil {
			t.Errorf("Expected error for %s", filepath.Base(path))
		}
	}
	if _, err := loader.loadFromPath(context.Background(), "/nonexistent/path"); err == nil {
		t.Error("Expected error for non-existent path")
	}
}

func TestWatch_Reloads(t *testing.T) {
	loader := newTestLoader()
	loader.watchDelay = 20 * time.Millisecond
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "p1.rego"), sprintfPolicy("p1"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan []string, 8)
	err := loader.Watch(ctx, []string{dir}, func(_ context.Context, policies []Policy) error {
		var names []string
		for _, p := range policies {
			names = append(names, p.Name)
		}
		slices.Sort(names)
		reloaded <- names
		return nil
	})
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	waitFor := func(want []string) {
		t.Helper()
		timeout := time.After(5 * time.Second)
		for {
			select {
			case got := <-reloaded:
				if slices.Equal(got, want) {
					return
				}
			case <-timeout:
				t.Fatalf("no reload with policies %v", want)
			}
		}
	}

	writeFile(t, filepath.Join(dir, "p2.rego"), sprintfPolicy("p2"))
	waitFor([]string{"p1", "p2"})

	if err := os.Remove(filepath.Join(dir, "p1.rego")); err != nil {
		t.Fatal(err)
	}
	waitFor([]string{"p2"})
}

func TestWatch_IgnoresOtherFiles(t *testing.T) {
	loader := newTestLoader()
	loader.watchDelay = 20 * time.Millisecond
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "p1.rego"), sprintfPolicy("p1"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan struct{}, 1)
	err := loader.Watch(ctx, []string{filepath.Join(dir, "p1.rego")}, func(context.Context, []Policy) error {
		reloaded <- struct{}{}
		return nil
	})
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	writeFile(t, filepath.Join(dir, "notes.txt"), "not a policy")

	select {
	case <-reloaded:
		t.Fatal("reloaded after a non-policy file changed")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatch_MissingPath(t *testing.T) {
	loader := newTestLoader()
	err := loader.Watch(context.Background(), []string{"/nonexistent/policies"}, func(context.Context, []Policy) error {
		return nil
	})
	if err == nil {
		t.Fatal("Watch() expected error for missing path")
	}
}

func sprintfPolicy(pkg string) string {
	return fmt.Sprintf(emptyDeny, pkg)
}
