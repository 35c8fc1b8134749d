package normalizer

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestScriptNormalizer_Normalize(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		script    string
		value     interface{}
		contextID string
		want      interface{}
		wantErr   bool
	}{
		{
			name: "uppercase string",
			script: `
def normalize(value, context_id):
    return value.upper()
`,
			value: "hello",
			want:  "HELLO",
		},
		{
			name: "context aware",
			script: `
def normalize(value, context_id):
    if context_id == "blog":
        return "blog:" + value
    return value
`,
			value:     "post",
			contextID: "blog",
			want:      "blog:post",
		},
		{
			name: "map to map",
			script: `
def normalize(value, context_id):
    return {"href": value["path"], "count": len(value["tags"])}
`,
			value: map[string]interface{}{
				"path": "/news",
				"tags": []interface{}{"a", "b"},
			},
			want: map[string]interface{}{"href": "/news", "count": int64(2)},
		},
		{
			name: "struct result",
			script: `
def normalize(value, context_id):
    return struct(path = value, context = context_id)
`,
			value:     "/img.jpg",
			contextID: "shop",
			want:      map[string]interface{}{"path": "/img.jpg", "context": "shop"},
		},
		{
			name: "json module",
			script: `
def normalize(value, context_id):
    return json.decode(value)["id"]
`,
			value: `{"id": 7}`,
			want:  int64(7),
		},
		{
			name: "pather value",
			script: `
def normalize(value, context_id):
    return value
`,
			value: thumb{path: "/thumb.png"},
			want:  "/thumb.png",
		},
		{
			name: "runtime error",
			script: `
def normalize(value, context_id):
    return value + 1
`,
			value:   "text",
			wantErr: true,
		},
		{
			name: "unsupported input",
			script: `
def normalize(value, context_id):
    return value
`,
			value:   struct{}{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sn, err := NewScriptNormalizer("test", tt.script, 0)
			if err != nil {
				t.Fatalf("NewScriptNormalizer() error = %v", err)
			}

			got, err := sn.Normalize(ctx, tt.value, tt.contextID)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Normalize() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Normalize() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNewScriptNormalizer_Errors(t *testing.T) {
	tests := []struct {
		name   string
		script string
	}{
		{"syntax error", "def normalize(value, context_id)\n    return value\n"},
		{"missing entry point", "x = 1\n"},
		{"entry point not callable", "normalize = 1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewScriptNormalizer("broken", tt.script, 0); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestScriptNormalizer_Timeout(t *testing.T) {
	script := `
def normalize(value, context_id):
    total = 0
    for i in range(100000000):
        total += i
    return total
`
	sn, err := NewScriptNormalizer("slow", script, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("NewScriptNormalizer() error = %v", err)
	}

	_, err = sn.Normalize(context.Background(), nil, "")
	if err == nil || !strings.Contains(err.Error(), "timeout") {
		t.Errorf("expected timeout error, got %v", err)
	}
}

func TestRegisterScripts(t *testing.T) {
	r := NewRegistry()
	scripts := map[string]string{
		"trim":  "def normalize(value, context_id):\n    return value.strip()\n",
		"lower": "def normalize(value, context_id):\n    return value.lower()\n",
	}

	if err := RegisterScripts(r, scripts, time.Second); err != nil {
		t.Fatalf("RegisterScripts() error = %v", err)
	}
	if diff := cmp.Diff([]string{"lower", "trim"}, r.Names()); diff != "" {
		t.Errorf("Names() mismatch (-want +got):\n%s", diff)
	}

	got, err := r.Normalize(context.Background(), "trim", "  padded ", "")
	if err != nil || got != "padded" {
		t.Errorf("Normalize(trim) = %v, %v", got, err)
	}

	if err := RegisterScripts(r, map[string]string{"trim": scripts["trim"]}, 0); err == nil {
		t.Error("expected duplicate registration to fail")
	}
}
