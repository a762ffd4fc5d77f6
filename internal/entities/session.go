package entities

import (
	"encoding/json"
	"time"
)

type ImportStatus string

const (
	ImportStatusPending ImportStatus = "pending"
	ImportStatusRunning ImportStatus = "running"
	// ImportStatusAwaitingDecision means the last batch hit a fetch error
	// and the caller must supply an explicit continue/stop decision.
	ImportStatusAwaitingDecision ImportStatus = "awaiting_decision"
	ImportStatusCompleted        ImportStatus = "completed"
	ImportStatusCancelled        ImportStatus = "cancelled"
	ImportStatusFailed           ImportStatus = "failed"
)

// ImportSession is the resumable progress state of one batch import run.
// The caller holds the Token and passes it back on every batch call;
// there is no ambient per-actor state. Dry runs and live runs are
// separate sessions, so a preview never contaminates a real run's totals.
type ImportSession struct {
	ID    uint   `gorm:"primaryKey" json:"id"`
	Token string `gorm:"uniqueIndex;size:64" json:"token"`

	DryRun    bool   `json:"dry_run"`
	Filters   string `gorm:"type:text" json:"filters,omitempty"` // JSON object of search filters
	BatchSize int    `json:"batch_size"`
	AllPages  bool   `json:"all_pages"`
	UserLimit int    `json:"user_limit,omitempty"`

	TotalItems     int `json:"total_items"`
	EffectiveLimit int `json:"effective_limit"`
	// PageSize is the remote API's fixed page size, learned from the
	// pager on the initial fetch. Unrelated to BatchSize.
	PageSize int `json:"page_size"`

	// Cursor counts records processed so far, cumulative across batches.
	Cursor   int `json:"cursor"`
	Imported int `json:"imported"`
	Updated  int `json:"updated"`
	Skipped  int `json:"skipped"`

	Status    ImportStatus `gorm:"size:20;default:'pending'" json:"status"`
	LastError string       `gorm:"type:text" json:"last_error,omitempty"`
	Errors    string       `gorm:"type:text" json:"errors,omitempty"` // JSON array of record-level failure strings

	StartedAt time.Time `json:"started_at"`
	UpdatedAt time.Time `json:"updated_at"`
	ExpiresAt time.Time `gorm:"index" json:"expires_at"`
}

func (ImportSession) TableName() string {
	return "import_sessions"
}

// HasMore reports whether further batches are required.
func (s *ImportSession) HasMore() bool {
	return s.Cursor < s.EffectiveLimit
}

// ErrorList decodes the accumulated record-level failure strings.
func (s *ImportSession) ErrorList() []string {
	if s.Errors == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(s.Errors), &out); err != nil {
		return nil
	}
	return out
}

// AppendErrors adds failure strings to the session's error list.
func (s *ImportSession) AppendErrors(msgs []string) {
	if len(msgs) == 0 {
		return
	}
	list := append(s.ErrorList(), msgs...)
	encoded, err := json.Marshal(list)
	if err != nil {
		return
	}
	s.Errors = string(encoded)
}

// FilterMap decodes the serialized search filters.
func (s *ImportSession) FilterMap() map[string]string {
	if s.Filters == "" {
		return nil
	}
	var out map[string]string
	if err := json.Unmarshal([]byte(s.Filters), &out); err != nil {
		return nil
	}
	return out
}
