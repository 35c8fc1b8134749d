package builder

import (
	"testing"

	"github.com/brickyard/toolbox/pkg/config"
	"github.com/brickyard/toolbox/pkg/toolbox"
	"github.com/google/go-cmp/cmp"
)

type prefixTranslator string

func (p prefixTranslator) Trans(key, domain string) string {
	return string(p) + domain + ":" + key
}

func TestParseGeneric(t *testing.T) {
	tests := []struct {
		name string
		req  ParseRequest
		want *toolbox.EditableNode
	}{
		{
			name: "translated title",
			req: ParseRequest{
				Name: "headline",
				Element: &config.ConfigElement{
					Type:   "input",
					Title:  "Headline",
					Tab:    "general",
					Config: map[string]interface{}{"width": 200},
				},
				Translator: prefixTranslator("t/"),
			},
			want: &toolbox.EditableNode{
				Type:   "input",
				Name:   "headline",
				Tab:    "general",
				Label:  "t/admin:Headline",
				Config: map[string]interface{}{"width": 200},
			},
		},
		{
			name: "name as label fallback",
			req: ParseRequest{
				Name:       "text",
				Element:    &config.ConfigElement{Type: "wysiwyg"},
				Translator: prefixTranslator("t/"),
			},
			want: &toolbox.EditableNode{
				Type:   "wysiwyg",
				Name:   "text",
				Label:  "text",
				Config: map[string]interface{}{},
			},
		},
		{
			name: "additional classes",
			req: ParseRequest{
				Name:    "classes",
				Element: &config.ConfigElement{Type: toolbox.FieldTypeAdditionalClasses},
			},
			want: &toolbox.EditableNode{
				Type:                     toolbox.FieldTypeAdditionalClasses,
				Name:                     "classes",
				Label:                    "classes",
				Config:                   map[string]interface{}{},
				AdditionalClassesElement: true,
			},
		},
		{
			name: "chained without plain classes",
			req: ParseRequest{
				Name:    "chained",
				Element: &config.ConfigElement{Type: toolbox.FieldTypeAdditionalClassesChained},
			},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseGeneric(tt.req)
			if err != nil {
				t.Fatalf("ParseGeneric() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("node mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseGenericCopiesConfig(t *testing.T) {
	el := &config.ConfigElement{Type: "select", Config: map[string]interface{}{"store": "a"}}
	node, err := ParseGeneric(ParseRequest{Name: "layout", Element: el})
	if err != nil {
		t.Fatalf("ParseGeneric() error = %v", err)
	}
	node.Config["store"] = "b"
	if el.Config["store"] != "a" {
		t.Error("parsing must not share the element config map")
	}
}

func TestParserRegistry(t *testing.T) {
	r := NewDefaultParserRegistry()

	for _, typ := range StandardFieldTypes {
		if _, err := r.Lookup(typ); err != nil {
			t.Errorf("Lookup(%s) error = %v", typ, err)
		}
	}
	if diff := cmp.Diff(len(StandardFieldTypes), len(r.Types())); diff != "" {
		t.Errorf("types mismatch (-want +got):\n%s", diff)
	}

	_, err := r.Lookup("hologram")
	if !toolbox.HasCode(err, toolbox.ErrCodeUnknownFieldType) {
		t.Errorf("Lookup(hologram) error = %v", err)
	}

	if err := r.Register("", ParserFunc(ParseGeneric)); err == nil {
		t.Error("expected an error for an empty type")
	}
	if err := r.Register("hologram", nil); err == nil {
		t.Error("expected an error for a nil parser")
	}
	if err := r.Register("hologram", ParserFunc(ParseGeneric)); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if _, err := r.Lookup("hologram"); err != nil {
		t.Errorf("Lookup() after Register error = %v", err)
	}
}
