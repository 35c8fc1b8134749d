package stores

import (
	"context"

	"github.com/brickyard/toolbox/pkg/headless"
)

// Recorder journals render passes in a PayloadStore.
type Recorder struct {
	store PayloadStore
}

// NewRecorder creates a recorder writing to store.
func NewRecorder(store PayloadStore) *Recorder {
	return &Recorder{store: store}
}

// StartPass creates a running pass and returns the sink journaling its payloads.
func (r *Recorder) StartPass(ctx context.Context, contextID string) (string, headless.Sink, error) {
	pass, err := r.store.CreatePass(ctx, contextID)
	if err != nil {
		return "", nil, err
	}
	return pass.ID, NewPassSink(r.store, pass.ID), nil
}

// FinishPass completes the pass. A pass-level error marks it failed; unit
// failures are only counted.
func (r *Recorder) FinishPass(ctx context.Context, passID string, result *headless.WalkResult, walkErr error) error {
	var dispatched, failed int
	if result != nil {
		dispatched = result.Dispatched
		failed = len(result.Failures)
	}

	var errMsg *string
	if walkErr != nil {
		msg := walkErr.Error()
		errMsg = &msg
	}

	return r.store.CompletePass(ctx, passID, dispatched, failed, errMsg)
}
