package headless

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyBlockState is returned when popping from a state without blocks.
	ErrEmptyBlockState = errors.New("block state is empty")

	// ErrRootBlockState is returned when popping the root state of a stack.
	ErrRootBlockState = errors.New("cannot pop the root block state")
)

// Level is one enclosing block of the unit being rendered.
type Level struct {
	Name    string
	Index   int
	Indexed bool
}

// BlockState is the nesting of block definitions and repetition indexes that
// encloses the unit currently being rendered, outer to inner.
type BlockState struct {
	levels []Level
}

// NewBlockState creates an empty block state.
func NewBlockState() *BlockState {
	return &BlockState{}
}

// PushBlock enters a block definition.
func (s *BlockState) PushBlock(name string) {
	s.levels = append(s.levels, Level{Name: name})
}

// PopBlock leaves the innermost block.
func (s *BlockState) PopBlock() error {
	if len(s.levels) == 0 {
		return ErrEmptyBlockState
	}
	s.levels = s.levels[:len(s.levels)-1]
	return nil
}

// PushIndex sets the repetition index of the innermost block.
func (s *BlockState) PushIndex(index int) error {
	if len(s.levels) == 0 {
		return ErrEmptyBlockState
	}
	top := &s.levels[len(s.levels)-1]
	top.Index = index
	top.Indexed = true
	return nil
}

// PopIndex clears the repetition index of the innermost block.
func (s *BlockState) PopIndex() error {
	if len(s.levels) == 0 {
		return ErrEmptyBlockState
	}
	top := &s.levels[len(s.levels)-1]
	top.Index = 0
	top.Indexed = false
	return nil
}

// Depth returns the number of enclosing blocks.
func (s *BlockState) Depth() int {
	return len(s.levels)
}

// Levels returns a copy of the enclosing blocks, outer to inner.
func (s *BlockState) Levels() []Level {
	out := make([]Level, len(s.levels))
	copy(out, s.levels)
	return out
}

// Namespace joins the levels with ":", each level rendered as "name" or
// "name:index", e.g. "content:2:sidebar".
func (s *BlockState) Namespace() string {
	parts := make([]string, 0, len(s.levels))
	for _, l := range s.levels {
		if l.Indexed {
			parts = append(parts, fmt.Sprintf("%s:%d", l.Name, l.Index))
			continue
		}
		parts = append(parts, l.Name)
	}
	return strings.Join(parts, ":")
}

// Enter runs fn inside block name at the given index. The level is popped
// when fn returns, whether it failed or not.
func (s *BlockState) Enter(name string, index int, fn func() error) error {
	s.PushBlock(name)
	defer s.PopBlock()

	if err := s.PushIndex(index); err != nil {
		return err
	}
	return fn()
}

// EnterBlock runs fn inside block name without a repetition index.
func (s *BlockState) EnterBlock(name string, fn func() error) error {
	s.PushBlock(name)
	defer s.PopBlock()
	return fn()
}

// WithIndex runs fn with the innermost block at the given index and clears
// the index afterwards.
func (s *BlockState) WithIndex(index int, fn func() error) error {
	if err := s.PushIndex(index); err != nil {
		return err
	}
	defer s.PopIndex()
	return fn()
}

// BlockStateStack holds one BlockState per nested render context. A snippet
// rendered inside a brick starts its own, empty state.
type BlockStateStack struct {
	states []*BlockState
}

// NewBlockStateStack creates a stack holding one empty root state.
func NewBlockStateStack() *BlockStateStack {
	return &BlockStateStack{states: []*BlockState{NewBlockState()}}
}

// Current returns the innermost state.
func (st *BlockStateStack) Current() *BlockState {
	return st.states[len(st.states)-1]
}

// Push starts a new, empty render context.
func (st *BlockStateStack) Push() *BlockState {
	s := NewBlockState()
	st.states = append(st.states, s)
	return s
}

// Pop leaves the innermost render context.
func (st *BlockStateStack) Pop() error {
	if len(st.states) == 1 {
		return ErrRootBlockState
	}
	st.states = st.states[:len(st.states)-1]
	return nil
}

// Len returns the number of render contexts including the root.
func (st *BlockStateStack) Len() int {
	return len(st.states)
}
