package engine

import (
	"context"
	"time"

	"github.com/brickyard/toolbox/pkg/headless"
	"github.com/brickyard/toolbox/pkg/toolbox"
)

// Job is one page to render.
type Job struct {
	// Name identifies the job in outcomes and logs, typically the page path.
	Name string

	// Page is the page to walk.
	Page *headless.Page
}

// Outcome is the result of one job.
type Outcome struct {
	Job    string     `json:"job"`
	PassID string     `json:"pass_id"`
	Status PassStatus `json:"status"`

	// Context is the context namespace the page rendered in.
	Context string `json:"context,omitempty"`

	// Payloads are the dispatched payloads in dispatch order.
	Payloads []toolbox.ElementPayload `json:"payloads"`

	// Result is nil when the pass failed before walking.
	Result *headless.WalkResult `json:"-"`

	// Err is the pass-level error, if any. Unit failures are in Result.
	Err error `json:"-"`
}

// Summary counts the outcomes of a batch.
type Summary struct {
	Total      int           `json:"total"`
	Succeeded  int           `json:"succeeded"`
	Partial    int           `json:"partial"`
	Failed     int           `json:"failed"`
	Cancelled  int           `json:"cancelled"`
	Dispatched int           `json:"dispatched"`
	Duration   time.Duration `json:"duration"`
}

// OK reports whether every pass succeeded.
func (s Summary) OK() bool {
	return s.Succeeded == s.Total
}

// ScheduleOptions tunes one batch.
type ScheduleOptions struct {
	// MaxParallel lowers the scheduler's limit for this batch when positive.
	MaxParallel int

	// FailFast stops starting new passes once a pass did not succeed.
	FailFast bool
}

// PassRecorder journals render passes.
type PassRecorder interface {
	// StartPass opens a pass and returns its id and the sink recording its payloads.
	StartPass(ctx context.Context, contextID string) (passID string, sink headless.Sink, err error)

	// FinishPass records the outcome of a pass. walkErr is the pass-level error.
	FinishPass(ctx context.Context, passID string, result *headless.WalkResult, walkErr error) error
}
