package normalizer

import (
	"context"
	"errors"
	"testing"

	"github.com/brickyard/toolbox/pkg/toolbox"
)

type thumb struct{ path string }

func (t thumb) Path() string { return t.path }

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := NewRegistry()
	upper := Func(func(_ context.Context, v interface{}, _ string) (interface{}, error) {
		return v, nil
	})

	if err := r.Register("upper", upper); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if !r.Has("upper") {
		t.Error("expected upper to be registered")
	}
	if _, err := r.Get("upper"); err != nil {
		t.Errorf("Get() error = %v", err)
	}

	err := r.Register("upper", upper)
	if err == nil {
		t.Fatal("expected duplicate registration to fail")
	}
	if !toolbox.HasCode(err, toolbox.ErrCodeDuplicateNormalizer) {
		t.Errorf("expected DUPLICATE_NORMALIZER, got %v", err)
	}

	if err := r.Register("", upper); err == nil {
		t.Error("expected empty name to fail")
	}
	if err := r.Register("nil", nil); err == nil {
		t.Error("expected nil normalizer to fail")
	}
}

func TestRegistry_GetUnknown(t *testing.T) {
	r := NewDefaultRegistry()

	_, err := r.Get("missing")
	if err == nil {
		t.Fatal("expected error for unknown normalizer")
	}
	if !toolbox.IsNotFound(err) || !toolbox.HasCode(err, toolbox.ErrCodeNormalizerNotFound) {
		t.Errorf("expected NORMALIZER_NOT_FOUND, got %v", err)
	}
}

func TestRegistry_Names(t *testing.T) {
	r := NewDefaultRegistry()
	_ = r.Register("b", Thumbnail)
	_ = r.Register("a", Thumbnail)

	names := r.Names()
	want := []string{"a", "b", ThumbnailName}
	if len(names) != len(want) {
		t.Fatalf("Names() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Names()[%d] = %s, want %s", i, names[i], want[i])
		}
	}
}

func TestRegistry_Normalize(t *testing.T) {
	r := NewDefaultRegistry()
	failure := errors.New("boom")
	_ = r.Register("failing", Func(func(context.Context, interface{}, string) (interface{}, error) {
		return nil, failure
	}))

	ctx := context.Background()

	got, err := r.Normalize(ctx, ThumbnailName, thumb{path: "/img/a.jpg"}, "")
	if err != nil || got != "/img/a.jpg" {
		t.Errorf("Normalize(thumbnail) = %v, %v", got, err)
	}

	_, err = r.Normalize(ctx, "failing", "x", "")
	if !toolbox.IsNormalization(err) || !errors.Is(err, failure) {
		t.Errorf("expected wrapped normalization error, got %v", err)
	}

	_, err = r.Normalize(ctx, "missing", "x", "")
	if !toolbox.IsNotFound(err) {
		t.Errorf("expected not found error, got %v", err)
	}
}

func TestThumbnail(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		value interface{}
		want  interface{}
	}{
		{"thumbnail value", thumb{path: "/var/tmp/thumb.jpg"}, "/var/tmp/thumb.jpg"},
		{"string passthrough", "plain", "plain"},
		{"nil passthrough", nil, nil},
		{"number passthrough", 42, 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Thumbnail.Normalize(ctx, tt.value, "")
			if err != nil {
				t.Fatalf("Normalize() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Normalize() = %v, want %v", got, tt.want)
			}
		})
	}
}
