package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/jonathan/longform-writer/internal/types"
)

// SavePlan snapshots the plan, including section states and contents, so an
// interrupted run can resume without regenerating finished sections.
func (db *DB) SavePlan(ctx context.Context, runID uuid.UUID, plan *types.DocumentPlan) error {
	return db.SaveArtifact(ctx, runID, StepPlan, plan)
}

// GetPlan loads the last plan snapshot for a run, or nil when none exists.
func (db *DB) GetPlan(ctx context.Context, runID uuid.UUID) (*types.DocumentPlan, error) {
	content, err := db.GetArtifact(ctx, runID, StepPlan)
	if err != nil {
		return nil, err
	}
	if content == nil {
		return nil, nil
	}

	var plan types.DocumentPlan
	if err := json.Unmarshal(content, &plan); err != nil {
		return nil, fmt.Errorf("failed to unmarshal plan: %w", err)
	}
	return &plan, nil
}

// SaveSharedContext snapshots the shared context alongside the plan.
func (db *DB) SaveSharedContext(ctx context.Context, runID uuid.UUID, shared *types.SharedContext) error {
	return db.SaveArtifact(ctx, runID, StepSharedContext, shared)
}

// GetSharedContext loads the last shared context snapshot, or nil.
func (db *DB) GetSharedContext(ctx context.Context, runID uuid.UUID) (*types.SharedContext, error) {
	content, err := db.GetArtifact(ctx, runID, StepSharedContext)
	if err != nil {
		return nil, err
	}
	if content == nil {
		return nil, nil
	}

	var shared types.SharedContext
	if err := json.Unmarshal(content, &shared); err != nil {
		return nil, fmt.Errorf("failed to unmarshal shared context: %w", err)
	}
	if shared.Terminology == nil {
		shared.Terminology = make(map[string]string)
	}
	if shared.Stats == nil {
		shared.Stats = make(map[string]float64)
	}
	return &shared, nil
}

// SaveRequest records the original document request for auditability.
func (db *DB) SaveRequest(ctx context.Context, runID uuid.UUID, req *types.DocumentRequest) error {
	return db.SaveArtifact(ctx, runID, StepRequest, req)
}

// GetRequest loads the original document request, or nil.
func (db *DB) GetRequest(ctx context.Context, runID uuid.UUID) (*types.DocumentRequest, error) {
	content, err := db.GetArtifact(ctx, runID, StepRequest)
	if err != nil {
		return nil, err
	}
	if content == nil {
		return nil, nil
	}

	var req types.DocumentRequest
	if err := json.Unmarshal(content, &req); err != nil {
		return nil, fmt.Errorf("failed to unmarshal request: %w", err)
	}
	return &req, nil
}

// SaveDocument stores the assembled document structure.
func (db *DB) SaveDocument(ctx context.Context, runID uuid.UUID, doc *types.AssembledDocument) error {
	return db.SaveArtifact(ctx, runID, StepDocument, doc)
}

// GetDocument loads the assembled document, or nil.
func (db *DB) GetDocument(ctx context.Context, runID uuid.UUID) (*types.AssembledDocument, error) {
	content, err := db.GetArtifact(ctx, runID, StepDocument)
	if err != nil {
		return nil, err
	}
	if content == nil {
		return nil, nil
	}

	var doc types.AssembledDocument
	if err := json.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal document: %w", err)
	}
	return &doc, nil
}
