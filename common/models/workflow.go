package models

import (
	"time"
)

// WorkflowStage is a phase of the scraper-building pipeline
type WorkflowStage string

const (
	StageQueued     WorkflowStage = "queued"
	StageSearching  WorkflowStage = "searching"
	StageAnalyzing  WorkflowStage = "analyzing"
	StageValidating WorkflowStage = "validating"
	StageGenerating WorkflowStage = "generating"
	StageStoring    WorkflowStage = "storing"
	StageComplete   WorkflowStage = "complete"
)

// WorkflowStatus is the terminal outcome of a workflow, or "running" while in flight
type WorkflowStatus string

const (
	WorkflowStatusRunning WorkflowStatus = "running"
	WorkflowStatusSuccess WorkflowStatus = "success"
	WorkflowStatusError   WorkflowStatus = "error"
)

// Workflow is one scraper-building run for a target company
type Workflow struct {
	ID         string         `json:"id"`
	TargetName string         `json:"target_name"`
	Stage      WorkflowStage  `json:"stage"`
	Status     WorkflowStatus `json:"status"`
	Error      string         `json:"error,omitempty"`
	JobsFound  int            `json:"jobs_found"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// ProgressEvent is a single entry in a workflow's append-only progress log
type ProgressEvent struct {
	Seq        uint64         `json:"seq"`
	WorkflowID string         `json:"workflow_id"`
	TargetName string         `json:"target_name"`
	Stage      WorkflowStage  `json:"stage"`
	Status     WorkflowStatus `json:"status"`
	Message    string         `json:"message"`
	URL        string         `json:"url,omitempty"`
	Image      string         `json:"image,omitempty"`
	Error      string         `json:"error,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

// Terminal reports whether the event closes the workflow's stream
func (e ProgressEvent) Terminal() bool {
	return e.Stage == StageComplete
}
