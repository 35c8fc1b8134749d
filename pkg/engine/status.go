package engine

import "fmt"

// PassStatus is the outcome of one render pass of a batch.
type PassStatus string

const (
	// PassStatusPending indicates the pass is queued but not yet started.
	PassStatusPending PassStatus = "pending"

	// PassStatusRunning indicates the pass is walking its page.
	PassStatusRunning PassStatus = "running"

	// PassStatusSucceeded indicates every unit of the page was dispatched.
	PassStatusSucceeded PassStatus = "succeeded"

	// PassStatusPartial indicates some units failed and others were dispatched.
	PassStatusPartial PassStatus = "partial"

	// PassStatusFailed indicates the pass could not run or dispatched nothing.
	PassStatusFailed PassStatus = "failed"

	// PassStatusCancelled indicates the pass never started because the batch was cancelled.
	PassStatusCancelled PassStatus = "cancelled"
)

// IsTerminal returns true if the status represents a final state.
func (s PassStatus) IsTerminal() bool {
	return s == PassStatusSucceeded || s == PassStatusPartial ||
		s == PassStatusFailed || s == PassStatusCancelled
}

// Validate checks if the status is valid.
func (s PassStatus) Validate() error {
	switch s {
	case PassStatusPending, PassStatusRunning, PassStatusSucceeded,
		PassStatusPartial, PassStatusFailed, PassStatusCancelled:
		return nil
	default:
		return fmt.Errorf("invalid pass status: %s", s)
	}
}
