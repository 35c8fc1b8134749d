package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/brickyard/toolbox/pkg/engine"
	"github.com/brickyard/toolbox/pkg/stores"
	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
)

const testConfig = `
property_normalizer:
  default_type_mapping:
    image: thumbnail
areas:
  teaser:
    config_elements:
      image:
        type: image
        title: Image
      headline:
        type: input
        title: Headline
        description: Main headline
        property_normalizer: upper
        config:
          placeholder: Type here
    config_parameter:
      template: wide
context:
  portal:
    settings:
      disabled_areas: [teaser]
`

const testPage = `
areablocks:
  - name: content
    bricks:
      - id: teaser
        config_elements:
          image: !asset /img/a.jpg
          headline: hello
editables:
  - name: title
    type: input
    values:
      value: Welcome
`

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.Disabled)
	os.Exit(m.Run())
}

type fixture struct {
	config  string
	page    string
	scripts string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()

	f := fixture{
		config:  filepath.Join(dir, "toolbox.yaml"),
		page:    filepath.Join(dir, "page.yaml"),
		scripts: filepath.Join(dir, "normalizers"),
	}
	writeFile(t, f.config, testConfig)
	writeFile(t, f.page, testPage)
	writeFile(t, filepath.Join(f.scripts, "upper.star"), "def normalize(value, context_id):\n    return value.upper()\n")
	return f
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand("test", "none", "today")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCheckConfig(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name     string
		args     []string
		contains []string
	}{
		{
			name: "available area",
			args: []string{"check-config", "-c", f.config, "-a", "teaser"},
			contains: []string{
				`Area "teaser" (context root)`,
				"NAME", "DESCRIPTION",
				"headline", "Main headline", `{"placeholder":"Type here"}`,
				"template", `"wide"`,
			},
		},
		{
			name:     "disabled in context",
			args:     []string{"check-config", "-c", f.config, "-a", "teaser", "--context", "portal"},
			contains: []string{`Area "teaser" is disabled in context portal.`},
		},
		{
			name:     "unknown area",
			args:     []string{"check-config", "-c", f.config, "-a", "slider"},
			contains: []string{`Area "slider" is not_found`},
		},
		{
			name:     "unknown context",
			args:     []string{"check-config", "-c", f.config, "-a", "teaser", "--context", "nope"},
			contains: []string{"nope"},
		},
		{
			name:     "missing configuration",
			args:     []string{"check-config", "-a", "teaser"},
			contains: []string{"Could not load configuration"},
		},
		{
			name:     "missing area",
			args:     []string{"check-config", "-c", f.config},
			contains: []string{"No area given"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, tt.args...)
			if err != nil {
				t.Fatalf("check-config must not fail, got %v", err)
			}
			for _, s := range tt.contains {
				if !strings.Contains(out, s) {
					t.Errorf("output missing %q:\n%s", s, out)
				}
			}
		})
	}
}

func TestCheckConfig_JSON(t *testing.T) {
	f := newFixture(t)

	out, err := execute(t, "check-config", "-c", f.config, "-a", "teaser", "--json")
	if err != nil {
		t.Fatal(err)
	}

	var report areaReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	var names []string
	for _, r := range report.ConfigElements {
		names = append(names, r.Name)
	}
	if diff := cmp.Diff([]string{"image", "headline"}, names); diff != "" {
		t.Errorf("element order mismatch (-want +got):\n%s", diff)
	}
	if report.Availability != "available" {
		t.Errorf("Availability = %q", report.Availability)
	}
}

func TestValidate(t *testing.T) {
	f := newFixture(t)

	// upper is only known once the scripts are registered.
	out, err := execute(t, "validate", f.config)
	if err == nil {
		t.Fatalf("expected unknown normalizer to fail validation:\n%s", out)
	}
	if !strings.Contains(out, "[normalizer-reference]") {
		t.Errorf("output missing violation:\n%s", out)
	}

	out, err = execute(t, "validate", "--scripts", f.scripts, f.config)
	if err != nil {
		t.Fatalf("validate error = %v\n%s", err, out)
	}
	if !strings.Contains(out, "1 file(s) valid") {
		t.Errorf("unexpected output:\n%s", out)
	}

	if _, err := execute(t, "validate", "--no-lint", "-c", f.config); err != nil {
		t.Errorf("validate --no-lint error = %v", err)
	}
}

func TestValidate_Strict(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "toolbox.yaml")
	writeFile(t, path, `
areas:
  teaser:
    config_elements:
      headline:
        type: input
        tab: missing
`)

	if _, err := execute(t, "validate", "--no-lint", path); err != nil {
		t.Errorf("lenient validate error = %v", err)
	}
	if _, err := execute(t, "validate", "--no-lint", "--strict", path); err == nil {
		t.Error("strict validate accepted a contradiction")
	}
}

func TestValidate_UnknownCalculator(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "toolbox.yaml")
	writeFile(t, path, `
theme:
  calculators:
    column_calculator: bootstrap5
areas:
  teaser:
    config_elements:
      headline:
        type: input
`)

	out, err := execute(t, "validate", "--no-lint", path)
	if err == nil {
		t.Fatalf("expected an unknown calculator to fail validation:\n%s", out)
	}
	if !strings.Contains(out, `column calculator "bootstrap5" is not registered`) {
		t.Errorf("output missing calculator problem:\n%s", out)
	}
}

func TestValidate_MetricsAddrNeedsWatch(t *testing.T) {
	f := newFixture(t)
	if _, err := execute(t, "validate", "--metrics-addr", "127.0.0.1:0", f.config); err == nil {
		t.Error("expected --metrics-addr without --watch to fail")
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func waitForOutput(t *testing.T, b *syncBuffer, s string) string {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if out := b.String(); strings.Contains(out, s) {
			return out
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %q:\n%s", s, b.String())
	return ""
}

func TestValidate_Watch(t *testing.T) {
	f := newFixture(t)
	policies := filepath.Join(t.TempDir(), "policies")
	writeFile(t, filepath.Join(policies, "quiet.rego"), "package custom.quiet\n\nimport rego.v1\n\ndeny contains \"never\" if { false }\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cmd := newRootCommand("test", "none", "today")
	var out, status syncBuffer
	cmd.SetOut(&out)
	cmd.SetErr(&status)
	cmd.SetArgs([]string{
		"validate", "--watch",
		"--scripts", f.scripts,
		"--policy", policies,
		"--metrics-addr", "127.0.0.1:0",
		f.config,
	})

	done := make(chan error, 1)
	go func() { done <- cmd.ExecuteContext(ctx) }()

	lines := waitForOutput(t, &status, "Watching")
	waitForOutput(t, &out, "1 file(s) valid")

	// A new blocking policy is picked up without a restart.
	writeFile(t, filepath.Join(policies, "frozen.rego"), `# severity: error
package custom.frozen

import rego.v1

deny contains {"message": "teaser is frozen"} if { input.area == "teaser" }
`)
	waitForOutput(t, &out, "teaser is frozen")

	// So is a configuration change.
	writeFile(t, f.config, testConfig+`
theme:
  calculators:
    slide_calculator: carousel
`)
	waitForOutput(t, &out, `slide calculator "carousel" is not registered`)

	var metricsURL string
	for _, line := range strings.Split(lines, "\n") {
		if rest, ok := strings.CutPrefix(line, "Serving metrics on "); ok {
			metricsURL = rest
		}
	}
	if metricsURL == "" {
		t.Fatalf("no metrics address announced:\n%s", lines)
	}
	resp, err := http.Get(metricsURL)
	if err != nil {
		t.Fatalf("GET %s: %v", metricsURL, err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), `toolbox_config_reloads_total{status="success"}`) {
		t.Errorf("metrics missing config reloads:\n%s", body)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("validate --watch error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("validate --watch did not stop after cancel")
	}
}

func TestTree(t *testing.T) {
	f := newFixture(t)

	out, err := execute(t, "tree", "-c", f.config, "-a", "teaser")
	if err != nil {
		t.Fatalf("tree error = %v", err)
	}

	var nodes []struct {
		Type string `json:"type"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal([]byte(out), &nodes); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	var got []string
	for _, n := range nodes {
		got = append(got, n.Type+":"+n.Name)
	}
	if diff := cmp.Diff([]string{"image:image", "input:headline"}, got); diff != "" {
		t.Errorf("tree mismatch (-want +got):\n%s", diff)
	}

	if _, err := execute(t, "tree", "-c", f.config, "-a", "teaser", "--context", "portal"); err == nil {
		t.Error("expected error for a disabled area")
	}
}

func TestRender(t *testing.T) {
	f := newFixture(t)
	journalPath := filepath.Join(t.TempDir(), "journal.db")

	out, err := execute(t, "render", "-c", f.config, "--page", f.page, "--scripts", f.scripts, "--journal", journalPath, "--json")
	if err != nil {
		t.Fatalf("render error = %v\n%s", err, out)
	}

	var reports []renderReport
	if err := json.Unmarshal([]byte(out), &reports); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	if len(reports) != 1 {
		t.Fatalf("got %d reports, want 1", len(reports))
	}
	report := reports[0]
	if report.Status != engine.PassStatusSucceeded || len(report.Payloads) != 2 || len(report.Failures) != 0 {
		t.Fatalf("report = %+v", report)
	}
	brick := report.Payloads[0]
	if diff := cmp.Diff(map[string]interface{}{"image": "/img/a.jpg", "headline": "HELLO"}, brick.Data["data"]); diff != "" {
		t.Errorf("brick data mismatch (-want +got):\n%s", diff)
	}

	ctx := context.Background()
	store, err := openJournal(ctx, journalPath)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	pass, err := store.GetPass(ctx, report.PassID)
	if err != nil {
		t.Fatalf("GetPass() error = %v", err)
	}
	if pass.Status != stores.PassStatusCompleted || pass.Dispatched != 2 {
		t.Errorf("journaled pass = %+v", pass)
	}
	payloads, err := store.ListPayloads(ctx, report.PassID)
	if err != nil {
		t.Fatal(err)
	}
	if len(payloads) != 2 || payloads[0].ElementHash != brick.ElementHash {
		t.Errorf("journal holds %d payloads", len(payloads))
	}
}

func TestRender_UnitFailure(t *testing.T) {
	f := newFixture(t)

	// Without the scripts the headline normalizer is unknown.
	out, err := execute(t, "render", "-c", f.config, "--page", f.page, "--page", f.page)
	if err == nil {
		t.Fatal("expected render to fail")
	}
	for _, s := range []string{"brick teaser", "partial", "2 pass(es): 0 succeeded, 2 partial"} {
		if !strings.Contains(out, s) {
			t.Errorf("output missing %q:\n%s", s, out)
		}
	}
}

func TestRender_MissingPage(t *testing.T) {
	f := newFixture(t)
	if _, err := execute(t, "render", "-c", f.config, "--page", filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for a missing page")
	}
}
