package store

import (
	"time"

	"github.com/google/uuid"
)

// Run represents a writer run record
type Run struct {
	ID          uuid.UUID  `json:"id"`
	Topic       string     `json:"topic"`
	Kind        string     `json:"kind"`
	TargetWords int        `json:"target_words"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Run statuses
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// Artifact step constants for known artifact types
const (
	StepRequest       = "request"
	StepPlan          = "plan"
	StepSharedContext = "shared_context"
	StepDocument      = "document"
	StepMarkdown      = "markdown"
	StepHTML          = "html"
)
