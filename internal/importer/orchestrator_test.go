package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doctordir/importer/internal/database"
	"github.com/doctordir/importer/internal/database/sessions"
	"github.com/doctordir/importer/internal/directory"
	"github.com/doctordir/importer/internal/entities"
	"github.com/doctordir/importer/internal/report"
)

const testPageSize = 20

// fakeDirectory serves paginated physician records the way the remote
// API does, with switchable failure injection for the decision flow.
type fakeDirectory struct {
	mu      sync.Mutex
	records []map[string]any
	failing bool
	server  *httptest.Server
}

func newFakeDirectory(records []map[string]any) *fakeDirectory {
	f := &fakeDirectory{records: records}
	f.server = httptest.NewServer(http.HandlerFunc(f.handle))
	return f
}

func (f *fakeDirectory) handle(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	failing := f.failing
	records := f.records
	f.mu.Unlock()

	if failing {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	if r.URL.Path != "/search" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	start := page * testPageSize
	end := start + testPageSize
	if start > len(records) {
		start = len(records)
	}
	if end > len(records) {
		end = len(records)
	}

	totalPages := (len(records) + testPageSize - 1) / testPageSize
	if totalPages == 0 {
		totalPages = 1
	}

	_ = json.NewEncoder(w).Encode(map[string]any{
		"rows": records[start:end],
		"pager": map[string]any{
			"current_page":   page,
			"total_pages":    totalPages,
			"total_items":    len(records),
			"items_per_page": testPageSize,
		},
	})
}

func (f *fakeDirectory) setFailing(failing bool) {
	f.mu.Lock()
	f.failing = failing
	f.mu.Unlock()
}

func (f *fakeDirectory) close() {
	f.server.Close()
}

func validRemoteRecord(i int) map[string]any {
	return map[string]any{
		"prov_key":   fmt.Sprintf("PK-%04d", i),
		"first_name": "Doctor",
		"last_name":  fmt.Sprintf("Number%04d", i),
		"suffix":     "MD",
		"locations": []any{
			map[string]any{
				"address": "123 Main St",
				"city":    "Sacramento",
				"state":   "CA",
				"zip":     "95814",
			},
		},
		"specialties": []any{"Cardiology"},
		"languages":   []any{"English"},
	}
}

func validRemoteRecords(n int) []map[string]any {
	records := make([]map[string]any, n)
	for i := range records {
		records[i] = validRemoteRecord(i)
	}
	return records
}

func setupOrchestrator(t *testing.T, fake *fakeDirectory) (*Orchestrator, *database.Database, func()) {
	t.Helper()
	dbPath := "./test_" + t.Name() + ".db"
	db, err := database.NewDatabase(dbPath)
	require.NoError(t, err)

	client := directory.NewClient(fake.server.URL, "user", "pass", 5*time.Second)
	sessionRepo := sessions.NewRepository(db.DB, time.Hour)
	orchestrator := NewOrchestrator(client, db, sessionRepo)

	cleanup := func() {
		db.Close()
		os.Remove(dbPath)
	}
	return orchestrator, db, cleanup
}

func TestStartComputesEffectiveLimit(t *testing.T) {
	fake := newFakeDirectory(validRemoteRecords(125))
	defer fake.close()
	orchestrator, _, cleanup := setupOrchestrator(t, fake)
	defer cleanup()

	t.Run("limit caps the run", func(t *testing.T) {
		session, err := orchestrator.Start(context.Background(), StartOptions{Limit: 30, BatchSize: 50})
		require.NoError(t, err)
		assert.Equal(t, 125, session.TotalItems)
		assert.Equal(t, 30, session.EffectiveLimit)
		assert.Equal(t, testPageSize, session.PageSize)
		assert.NotEmpty(t, session.Token)
	})

	t.Run("all pages ignores the limit", func(t *testing.T) {
		session, err := orchestrator.Start(context.Background(), StartOptions{Limit: 30, AllPages: true})
		require.NoError(t, err)
		assert.Equal(t, 125, session.EffectiveLimit)
		assert.Equal(t, defaultBatchSize, session.BatchSize)
	})

	t.Run("limit larger than total is clamped by the source", func(t *testing.T) {
		session, err := orchestrator.Start(context.Background(), StartOptions{Limit: 500})
		require.NoError(t, err)
		assert.Equal(t, 125, session.EffectiveLimit)
	})
}

func TestRunBatchSpansPages(t *testing.T) {
	// 125 records, batch size 50, remote page size 20: three batches of
	// 50, 50 and 25, each spanning multiple physical pages.
	fake := newFakeDirectory(validRemoteRecords(125))
	defer fake.close()
	orchestrator, db, cleanup := setupOrchestrator(t, fake)
	defer cleanup()

	session, err := orchestrator.Start(context.Background(), StartOptions{AllPages: true, BatchSize: 50})
	require.NoError(t, err)

	first, err := orchestrator.RunBatch(context.Background(), session.Token, DecisionNone)
	require.NoError(t, err)
	assert.Equal(t, 50, first.Imported)
	assert.Equal(t, 50, first.Processed)
	assert.True(t, first.HasMore)

	second, err := orchestrator.RunBatch(context.Background(), session.Token, DecisionNone)
	require.NoError(t, err)
	assert.Equal(t, 50, second.Imported)
	assert.Equal(t, 100, second.Processed)
	assert.True(t, second.HasMore)

	third, err := orchestrator.RunBatch(context.Background(), session.Token, DecisionNone)
	require.NoError(t, err)
	assert.Equal(t, 25, third.Imported)
	assert.Equal(t, 125, third.Processed)
	assert.False(t, third.HasMore)

	final, err := orchestrator.Progress(session.Token)
	require.NoError(t, err)
	assert.Equal(t, entities.ImportStatusCompleted, final.Status)
	assert.Equal(t, 125, final.Imported)

	count, err := db.CountDoctors()
	require.NoError(t, err)
	assert.Equal(t, int64(125), count)

	// A completed session accepts no further batches.
	_, err = orchestrator.RunBatch(context.Background(), session.Token, DecisionNone)
	assert.Error(t, err)
}

func TestDryRunMakesNoWrites(t *testing.T) {
	fake := newFakeDirectory(validRemoteRecords(10))
	defer fake.close()
	orchestrator, db, cleanup := setupOrchestrator(t, fake)
	defer cleanup()

	session, err := orchestrator.Start(context.Background(), StartOptions{AllPages: true, DryRun: true})
	require.NoError(t, err)

	outcome, err := orchestrator.RunBatch(context.Background(), session.Token, DecisionNone)
	require.NoError(t, err)
	assert.Equal(t, 10, outcome.Imported)
	assert.True(t, outcome.DryRun)
	require.Len(t, outcome.Outcomes, 10)
	require.NotNil(t, outcome.Outcomes[0].Preview)
	assert.Equal(t, []string{"Cardiology"}, outcome.Outcomes[0].Preview.Specialties)

	count, err := db.CountDoctors()
	require.NoError(t, err)
	assert.Zero(t, count, "dry run must not write doctors")

	// A live run over the same data classifies identically.
	live, err := orchestrator.Start(context.Background(), StartOptions{AllPages: true})
	require.NoError(t, err)
	liveOutcome, err := orchestrator.RunBatch(context.Background(), live.Token, DecisionNone)
	require.NoError(t, err)
	assert.Equal(t, outcome.Imported, liveOutcome.Imported)
	assert.Equal(t, outcome.Skipped, liveOutcome.Skipped)

	count, err = db.CountDoctors()
	require.NoError(t, err)
	assert.Equal(t, int64(10), count)
}

func TestRecordLevelFailuresDoNotAbortBatch(t *testing.T) {
	terminated := validRemoteRecord(0)
	terminated["prov_status"] = "Terminated"

	missingZip := validRemoteRecord(1)
	missingZip["locations"] = []any{
		map[string]any{"address": "1 Somewhere", "city": "Davis", "state": "CA"},
	}

	fake := newFakeDirectory([]map[string]any{terminated, missingZip, validRemoteRecord(2)})
	defer fake.close()
	orchestrator, db, cleanup := setupOrchestrator(t, fake)
	defer cleanup()

	session, err := orchestrator.Start(context.Background(), StartOptions{AllPages: true})
	require.NoError(t, err)

	outcome, err := orchestrator.RunBatch(context.Background(), session.Token, DecisionNone)
	require.NoError(t, err)
	assert.Equal(t, 1, outcome.Imported)
	assert.Equal(t, 2, outcome.Skipped)
	assert.False(t, outcome.HasMore)

	require.Len(t, outcome.Failures, 2)
	assert.Contains(t, outcome.Failures[0], "terminated")
	assert.Contains(t, outcome.Failures[1], "zip")

	final, err := orchestrator.Progress(session.Token)
	require.NoError(t, err)
	assert.Equal(t, entities.ImportStatusCompleted, final.Status)
	assert.Len(t, final.ErrorList(), 2)

	count, err := db.CountDoctors()
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestProviderKeyMatchUpdatesDespiteNameChange(t *testing.T) {
	rec := validRemoteRecord(0)
	rec["first_name"] = "Janet"

	fake := newFakeDirectory([]map[string]any{rec})
	defer fake.close()
	orchestrator, db, cleanup := setupOrchestrator(t, fake)
	defer cleanup()

	existing := &entities.Doctor{
		Slug:        "jane-number0000-md",
		ProviderKey: "PK-0000",
		FirstName:   "Jane",
		LastName:    "Number0000",
		Degree:      "MD",
		Address:     "old address",
		City:        "Old Town",
		State:       "CA",
		Zip:         "00000",
	}
	require.NoError(t, db.CreateDoctor(existing))

	session, err := orchestrator.Start(context.Background(), StartOptions{AllPages: true})
	require.NoError(t, err)

	outcome, err := orchestrator.RunBatch(context.Background(), session.Token, DecisionNone)
	require.NoError(t, err)
	assert.Equal(t, 0, outcome.Imported)
	assert.Equal(t, 1, outcome.Updated)
	require.Len(t, outcome.Outcomes, 1)
	assert.Equal(t, report.ActionUpdated, outcome.Outcomes[0].Action)
	assert.Equal(t, "matched by provider_key", outcome.Outcomes[0].Reason)

	stored, err := db.GetDoctorByID(existing.ID)
	require.NoError(t, err)
	assert.Equal(t, "Janet", stored.FirstName)
	assert.Equal(t, "123 Main St", stored.Address)
	// Slug survives the name change.
	assert.Equal(t, "jane-number0000-md", stored.Slug)

	count, err := db.CountDoctors()
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestFetchErrorDecisionFlow(t *testing.T) {
	fake := newFakeDirectory(validRemoteRecords(10))
	defer fake.close()
	orchestrator, _, cleanup := setupOrchestrator(t, fake)
	defer cleanup()

	session, err := orchestrator.Start(context.Background(), StartOptions{AllPages: true})
	require.NoError(t, err)

	fake.setFailing(true)
	_, err = orchestrator.RunBatch(context.Background(), session.Token, DecisionNone)
	require.Error(t, err)

	paused, err := orchestrator.Progress(session.Token)
	require.NoError(t, err)
	assert.Equal(t, entities.ImportStatusAwaitingDecision, paused.Status)
	assert.NotEmpty(t, paused.LastError)
	assert.Zero(t, paused.Cursor, "failed batch must not advance the cursor")

	// Without a decision the run stays paused.
	_, err = orchestrator.RunBatch(context.Background(), session.Token, DecisionNone)
	assert.ErrorIs(t, err, ErrDecisionRequired)

	// Continue retries the same batch once the source recovers.
	fake.setFailing(false)
	outcome, err := orchestrator.RunBatch(context.Background(), session.Token, DecisionContinue)
	require.NoError(t, err)
	assert.Equal(t, 10, outcome.Imported)
	assert.False(t, outcome.HasMore)

	final, err := orchestrator.Progress(session.Token)
	require.NoError(t, err)
	assert.Equal(t, entities.ImportStatusCompleted, final.Status)
	assert.Empty(t, final.LastError)
}

func TestFetchErrorStopDecision(t *testing.T) {
	fake := newFakeDirectory(validRemoteRecords(10))
	defer fake.close()
	orchestrator, _, cleanup := setupOrchestrator(t, fake)
	defer cleanup()

	session, err := orchestrator.Start(context.Background(), StartOptions{AllPages: true})
	require.NoError(t, err)

	fake.setFailing(true)
	_, err = orchestrator.RunBatch(context.Background(), session.Token, DecisionNone)
	require.Error(t, err)

	_, err = orchestrator.RunBatch(context.Background(), session.Token, DecisionStop)
	require.NoError(t, err)

	final, err := orchestrator.Progress(session.Token)
	require.NoError(t, err)
	assert.Equal(t, entities.ImportStatusFailed, final.Status)
}

func TestCancel(t *testing.T) {
	fake := newFakeDirectory(validRemoteRecords(10))
	defer fake.close()
	orchestrator, _, cleanup := setupOrchestrator(t, fake)
	defer cleanup()

	session, err := orchestrator.Start(context.Background(), StartOptions{AllPages: true})
	require.NoError(t, err)

	require.NoError(t, orchestrator.Cancel(session.Token))

	final, err := orchestrator.Progress(session.Token)
	require.NoError(t, err)
	assert.Equal(t, entities.ImportStatusCancelled, final.Status)

	_, err = orchestrator.RunBatch(context.Background(), session.Token, DecisionNone)
	assert.Error(t, err)
}

func TestShrunkenRemoteSetCompletesEarly(t *testing.T) {
	fake := newFakeDirectory(validRemoteRecords(30))
	defer fake.close()
	orchestrator, _, cleanup := setupOrchestrator(t, fake)
	defer cleanup()

	session, err := orchestrator.Start(context.Background(), StartOptions{AllPages: true, BatchSize: 25})
	require.NoError(t, err)
	assert.Equal(t, 30, session.EffectiveLimit)

	// Records disappear remotely between the first and second batch.
	fake.mu.Lock()
	fake.records = fake.records[:25]
	fake.mu.Unlock()

	first, err := orchestrator.RunBatch(context.Background(), session.Token, DecisionNone)
	require.NoError(t, err)
	assert.Equal(t, 25, first.Processed)
	assert.True(t, first.HasMore)

	second, err := orchestrator.RunBatch(context.Background(), session.Token, DecisionNone)
	require.NoError(t, err)
	assert.False(t, second.HasMore)

	final, err := orchestrator.Progress(session.Token)
	require.NoError(t, err)
	assert.Equal(t, entities.ImportStatusCompleted, final.Status)
	assert.Equal(t, 25, final.EffectiveLimit)
}
