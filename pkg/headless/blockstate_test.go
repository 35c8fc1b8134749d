package headless

import (
	"errors"
	"testing"
)

func TestBlockState_Namespace(t *testing.T) {
	tests := []struct {
		name  string
		setup func(s *BlockState)
		want  string
	}{
		{
			name:  "empty",
			setup: func(s *BlockState) {},
			want:  "",
		},
		{
			name: "block without index",
			setup: func(s *BlockState) {
				s.PushBlock("content")
			},
			want: "content",
		},
		{
			name: "indexed block",
			setup: func(s *BlockState) {
				s.PushBlock("content")
				_ = s.PushIndex(2)
			},
			want: "content:2",
		},
		{
			name: "nested blocks",
			setup: func(s *BlockState) {
				s.PushBlock("content")
				_ = s.PushIndex(2)
				s.PushBlock("sidebar")
				_ = s.PushIndex(0)
			},
			want: "content:2:sidebar:0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewBlockState()
			tt.setup(s)
			if got := s.Namespace(); got != tt.want {
				t.Errorf("Namespace() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBlockState_PopsOnError(t *testing.T) {
	s := NewBlockState()
	boom := errors.New("boom")

	err := s.EnterBlock("content", func() error {
		return s.WithIndex(1, func() error {
			if got := s.Namespace(); got != "content:1" {
				t.Errorf("Namespace() = %q, want content:1", got)
			}
			return boom
		})
	})
	if !errors.Is(err, boom) {
		t.Fatalf("EnterBlock() error = %v, want %v", err, boom)
	}
	if s.Depth() != 0 {
		t.Errorf("Depth() = %d after failing unit, want 0", s.Depth())
	}
}

func TestBlockState_EmptyErrors(t *testing.T) {
	s := NewBlockState()
	if err := s.PopBlock(); !errors.Is(err, ErrEmptyBlockState) {
		t.Errorf("PopBlock() error = %v", err)
	}
	if err := s.PushIndex(1); !errors.Is(err, ErrEmptyBlockState) {
		t.Errorf("PushIndex() error = %v", err)
	}
	if err := s.WithIndex(1, func() error { return nil }); !errors.Is(err, ErrEmptyBlockState) {
		t.Errorf("WithIndex() error = %v", err)
	}
}

func TestBlockStateStack(t *testing.T) {
	st := NewBlockStateStack()
	st.Current().PushBlock("content")

	inner := st.Push()
	if inner.Namespace() != "" {
		t.Errorf("new state namespace = %q, want empty", inner.Namespace())
	}
	if st.Len() != 2 {
		t.Errorf("Len() = %d, want 2", st.Len())
	}

	if err := st.Pop(); err != nil {
		t.Fatalf("Pop() error = %v", err)
	}
	if got := st.Current().Namespace(); got != "content" {
		t.Errorf("outer namespace = %q, want content", got)
	}
	if err := st.Pop(); !errors.Is(err, ErrRootBlockState) {
		t.Errorf("Pop() on root error = %v", err)
	}
}
