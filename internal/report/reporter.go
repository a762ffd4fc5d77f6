// Package report aggregates per-record import outcomes into batch and
// run-level summaries, including a plain-text error report suitable for
// download.
package report

import (
	"fmt"
	"strings"
)

// Actions a processed record can resolve to.
const (
	ActionImported = "imported"
	ActionUpdated  = "updated"
	ActionSkipped  = "skipped"
)

// Preview is the dry-run projection of what a storage write would have
// produced. Populated only in dry-run mode.
type Preview struct {
	Specialties []string `json:"specialties,omitempty"`
	Languages   []string `json:"languages,omitempty"`
	Location    string   `json:"location,omitempty"`
}

// RecordOutcome is the result of processing one physician record.
type RecordOutcome struct {
	Name    string   `json:"name"`
	Action  string   `json:"action"`
	Reason  string   `json:"reason,omitempty"`
	Preview *Preview `json:"preview,omitempty"`
}

// Reporter accumulates outcomes for one batch.
type Reporter struct {
	outcomes []RecordOutcome
}

func NewReporter() *Reporter {
	return &Reporter{}
}

// Imported records a newly created doctor.
func (r *Reporter) Imported(name string, preview *Preview) {
	r.outcomes = append(r.outcomes, RecordOutcome{Name: name, Action: ActionImported, Preview: preview})
}

// Updated records an overwrite of an existing doctor. Reason carries the
// match method that resolved the duplicate.
func (r *Reporter) Updated(name, reason string, preview *Preview) {
	r.outcomes = append(r.outcomes, RecordOutcome{Name: name, Action: ActionUpdated, Reason: reason, Preview: preview})
}

// Skipped records a rejected record with its field-specific reason.
func (r *Reporter) Skipped(name, reason string) {
	r.outcomes = append(r.outcomes, RecordOutcome{Name: name, Action: ActionSkipped, Reason: reason})
}

// Outcomes returns the accumulated per-record results in processing
// order.
func (r *Reporter) Outcomes() []RecordOutcome {
	return r.outcomes
}

// Counts tallies the batch by action.
func (r *Reporter) Counts() (imported, updated, skipped int) {
	for _, o := range r.outcomes {
		switch o.Action {
		case ActionImported:
			imported++
		case ActionUpdated:
			updated++
		case ActionSkipped:
			skipped++
		}
	}
	return
}

// Failures returns the skip reasons, each prefixed with the record name
// so the message is actionable without re-running.
func (r *Reporter) Failures() []string {
	var out []string
	for _, o := range r.outcomes {
		if o.Action == ActionSkipped {
			name := o.Name
			if name == "" {
				name = "(unnamed record)"
			}
			out = append(out, fmt.Sprintf("%s: %s", name, o.Reason))
		}
	}
	return out
}

// BatchMessage produces the human-readable batch summary line.
func (r *Reporter) BatchMessage(processed, limit int) string {
	imported, updated, skipped := r.Counts()
	msg := fmt.Sprintf("Batch complete: %d imported, %d updated, %d skipped (%d of %d records processed)",
		imported, updated, skipped, processed, limit)
	return msg
}

// FinalSummary produces the run-level summary from cumulative totals.
func FinalSummary(imported, updated, skipped, processed int, dryRun bool) string {
	mode := "Import"
	if dryRun {
		mode = "Dry run"
	}
	return fmt.Sprintf("%s finished: %d records processed, %d imported, %d updated, %d skipped",
		mode, processed, imported, updated, skipped)
}

// ErrorReport renders the accumulated failure strings as a flat,
// indexed plain-text report.
func ErrorReport(failures []string) string {
	if len(failures) == 0 {
		return "No errors recorded.\n"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d record(s) could not be imported:\n\n", len(failures))
	for i, failure := range failures {
		fmt.Fprintf(&b, "%3d. %s\n", i+1, failure)
	}
	return b.String()
}
