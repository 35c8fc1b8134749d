package stores

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/brickyard/toolbox/pkg/toolbox"
)

// PassStatus represents the status of a render pass
type PassStatus string

const (
	PassStatusRunning   PassStatus = "running"
	PassStatusCompleted PassStatus = "completed"
	PassStatusFailed    PassStatus = "failed"
)

// Pass is one journaled render pass
type Pass struct {
	ID          string     `json:"id"`
	ContextID   string     `json:"context_id"`
	Status      PassStatus `json:"status"`
	Dispatched  int        `json:"dispatched"`
	Failed      int        `json:"failed"`
	Error       *string    `json:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// StoredPayload is a dispatched payload as kept in the journal
type StoredPayload struct {
	PassID           string    `json:"pass_id"`
	Seq              int       `json:"seq"`
	ElementType      string    `json:"element_type"`
	ElementSubType   string    `json:"element_sub_type"`
	ElementHash      string    `json:"element_hash"`
	ElementNamespace string    `json:"element_namespace"`
	Data             string    `json:"data"` // JSON blob
	CreatedAt        time.Time `json:"created_at"`
}

// Payload decodes the stored row back into an ElementPayload.
func (p *StoredPayload) Payload() (toolbox.ElementPayload, error) {
	out := toolbox.ElementPayload{
		ElementType:      p.ElementType,
		ElementSubType:   p.ElementSubType,
		ElementHash:      p.ElementHash,
		ElementNamespace: p.ElementNamespace,
	}
	if err := json.Unmarshal([]byte(p.Data), &out.Data); err != nil {
		return out, fmt.Errorf("failed to decode payload data: %w", err)
	}
	return out, nil
}

// PayloadStore defines the persistence layer of the payload journal
type PayloadStore interface {
	// Lifecycle
	Init(ctx context.Context) error
	Close() error
	Migrate(ctx context.Context) error

	// Pass operations
	CreatePass(ctx context.Context, contextID string) (*Pass, error)
	GetPass(ctx context.Context, id string) (*Pass, error)
	ListPasses(ctx context.Context, limit, offset int) ([]*Pass, error)
	CompletePass(ctx context.Context, id string, dispatched, failed int, errMsg *string) error
	DeletePass(ctx context.Context, id string) error

	// Payload operations
	AppendPayload(ctx context.Context, passID string, seq int, payload toolbox.ElementPayload) error
	ListPayloads(ctx context.Context, passID string) ([]*StoredPayload, error)
	GetPayload(ctx context.Context, passID, hash string) (*StoredPayload, error)

	// Utility
	HealthCheck(ctx context.Context) error
}
