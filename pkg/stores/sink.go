package stores

import (
	"context"
	"sync"

	"github.com/brickyard/toolbox/pkg/toolbox"
)

// PassSink journals every dispatched payload of one render pass.
type PassSink struct {
	store  PayloadStore
	passID string

	mu  sync.Mutex
	seq int
}

// NewPassSink creates a sink appending to the given pass.
func NewPassSink(store PayloadStore, passID string) *PassSink {
	return &PassSink{store: store, passID: passID}
}

// Name implements the sink naming used in metrics.
func (s *PassSink) Name() string { return "journal" }

// PassID returns the journaled pass.
func (s *PassSink) PassID() string { return s.passID }

// Dispatch appends the payload at the next sequence number.
func (s *PassSink) Dispatch(ctx context.Context, payload toolbox.ElementPayload) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.AppendPayload(ctx, s.passID, s.seq, payload); err != nil {
		return err
	}
	s.seq++
	return nil
}

// Count returns the number of journaled payloads.
func (s *PassSink) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}
