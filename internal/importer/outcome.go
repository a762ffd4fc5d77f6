package importer

import "github.com/doctordir/importer/internal/report"

// ContinueDecision is the caller's answer after a batch-level fetch
// error. The orchestrator never resumes silently: while a session is
// awaiting a decision, the next batch call must carry DecisionContinue
// (retry the failed batch; the cursor was not advanced) or DecisionStop
// (finalize the run as failed).
type ContinueDecision string

const (
	DecisionNone     ContinueDecision = ""
	DecisionContinue ContinueDecision = "continue"
	DecisionStop     ContinueDecision = "stop"
)

// BatchOutcome is the per-batch report returned to the caller. It is
// never persisted; the session carries the cumulative totals.
type BatchOutcome struct {
	Imported int `json:"imported"`
	Updated  int `json:"updated"`
	Skipped  int `json:"skipped"`

	// Failures itemizes this batch's record-level errors.
	Failures []string `json:"failures,omitempty"`

	// Outcomes carries the per-record classifications, including
	// dry-run previews.
	Outcomes []report.RecordOutcome `json:"outcomes,omitempty"`

	Processed      int    `json:"processed"`
	EffectiveLimit int    `json:"effective_limit"`
	HasMore        bool   `json:"has_more"`
	DryRun         bool   `json:"dry_run"`
	Message        string `json:"message"`
}
