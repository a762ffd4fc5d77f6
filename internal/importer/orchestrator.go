// Package importer drives the batch import pipeline: fetch a window of
// remote records, normalize each one, classify it against storage, and
// record the outcome. Each batch is one blocking call invoked by an
// external caller; there is no background worker and no internal
// parallelism, and the import session is the single mutable cursor.
package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/doctordir/importer/internal/database"
	"github.com/doctordir/importer/internal/database/sessions"
	"github.com/doctordir/importer/internal/dedupe"
	"github.com/doctordir/importer/internal/directory"
	"github.com/doctordir/importer/internal/entities"
	"github.com/doctordir/importer/internal/mapper"
	"github.com/doctordir/importer/internal/report"
)

const (
	defaultBatchSize = 50
	defaultPageSize  = 20
)

// ErrDecisionRequired is returned when a batch call arrives without a
// continue/stop decision while the previous batch's fetch error is
// still pending.
var ErrDecisionRequired = errors.New("previous batch failed: a continue or stop decision is required")

// Orchestrator owns the batch state machine of import runs.
type Orchestrator struct {
	client   *directory.Client
	db       *database.Database
	sessions *sessions.Repository
	resolver *dedupe.Resolver
}

// NewOrchestrator wires the orchestrator with the default three-tier
// duplicate resolver backed by the database.
func NewOrchestrator(client *directory.Client, db *database.Database, sessionRepo *sessions.Repository) *Orchestrator {
	return &Orchestrator{
		client:   client,
		db:       db,
		sessions: sessionRepo,
		resolver: dedupe.NewResolver(db),
	}
}

// StartOptions configures a new import run.
type StartOptions struct {
	Filters   map[string]string
	BatchSize int
	Limit     int
	AllPages  bool
	DryRun    bool
}

// Start begins an import run: it fetches page 0 to learn the total
// record count and the remote page size, computes the effective limit,
// and persists the session the caller will drive batch by batch.
func (o *Orchestrator) Start(ctx context.Context, opts StartOptions) (*entities.ImportSession, error) {
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	_, pager, err := o.client.Search(ctx, opts.Filters, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to start import: %w", err)
	}

	effective := pager.TotalItems
	if !opts.AllPages && opts.Limit > 0 && opts.Limit < effective {
		effective = opts.Limit
	}

	pageSize := pager.ItemsPerPage
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	filters := ""
	if len(opts.Filters) > 0 {
		encoded, err := json.Marshal(opts.Filters)
		if err != nil {
			return nil, fmt.Errorf("failed to encode filters: %w", err)
		}
		filters = string(encoded)
	}

	session := &entities.ImportSession{
		DryRun:         opts.DryRun,
		Filters:        filters,
		BatchSize:      batchSize,
		AllPages:       opts.AllPages,
		UserLimit:      opts.Limit,
		TotalItems:     pager.TotalItems,
		EffectiveLimit: effective,
		PageSize:       pageSize,
		Status:         entities.ImportStatusPending,
	}
	if err := o.sessions.Create(session); err != nil {
		return nil, fmt.Errorf("failed to persist import session: %w", err)
	}

	mode := "live"
	if opts.DryRun {
		mode = "dry-run"
	}
	log.Printf("Directory import: started %s session %s (%d of %d records, batch size %d)",
		mode, session.Token[:8], effective, pager.TotalItems, batchSize)

	return session, nil
}

// RunBatch executes the next batch cycle for the session identified by
// token. Record-level errors never abort the batch; a batch-level fetch
// error pauses the run until the caller supplies a decision.
func (o *Orchestrator) RunBatch(ctx context.Context, token string, decision ContinueDecision) (BatchOutcome, error) {
	sess, err := o.sessions.GetByToken(token)
	if err != nil {
		return BatchOutcome{}, err
	}

	switch sess.Status {
	case entities.ImportStatusCompleted, entities.ImportStatusCancelled, entities.ImportStatusFailed:
		return BatchOutcome{}, fmt.Errorf("import session is already %s", sess.Status)
	case entities.ImportStatusAwaitingDecision:
		switch decision {
		case DecisionStop:
			sess.Status = entities.ImportStatusFailed
			if err := o.sessions.Update(sess); err != nil {
				return BatchOutcome{}, err
			}
			return o.outcome(sess, report.NewReporter(), false), nil
		case DecisionContinue:
			// Retry the failed batch; the cursor was not advanced.
			sess.Status = entities.ImportStatusRunning
			sess.LastError = ""
		default:
			return BatchOutcome{}, ErrDecisionRequired
		}
	default:
		sess.Status = entities.ImportStatusRunning
	}

	rows, exhausted, err := o.collect(ctx, sess)
	if err != nil {
		sess.Status = entities.ImportStatusAwaitingDecision
		sess.LastError = err.Error()
		if updateErr := o.sessions.Update(sess); updateErr != nil {
			return BatchOutcome{}, updateErr
		}
		return BatchOutcome{}, err
	}

	reporter := report.NewReporter()
	for _, rec := range rows {
		o.processRecord(sess, rec, reporter)
	}

	imported, updated, skipped := reporter.Counts()
	sess.Cursor += len(rows)
	sess.Imported += imported
	sess.Updated += updated
	sess.Skipped += skipped
	sess.AppendErrors(reporter.Failures())

	if exhausted && sess.Cursor < sess.EffectiveLimit {
		// The remote set shrank since the run started; finish early.
		sess.EffectiveLimit = sess.Cursor
	}
	hasMore := sess.HasMore()
	if hasMore {
		sess.Status = entities.ImportStatusRunning
	} else {
		sess.Status = entities.ImportStatusCompleted
	}
	if err := o.sessions.Update(sess); err != nil {
		return BatchOutcome{}, fmt.Errorf("failed to persist batch progress: %w", err)
	}

	outcome := o.outcome(sess, reporter, hasMore)
	log.Printf("Directory import: %s", outcome.Message)
	return outcome, nil
}

// Cancel explicitly stops a run. Processed records stay in storage;
// the import pipeline never deletes doctors.
func (o *Orchestrator) Cancel(token string) error {
	sess, err := o.sessions.GetByToken(token)
	if err != nil {
		return err
	}
	sess.Status = entities.ImportStatusCancelled
	return o.sessions.Update(sess)
}

// Progress returns the session's current state without running a batch.
func (o *Orchestrator) Progress(token string) (*entities.ImportSession, error) {
	return o.sessions.GetByToken(token)
}

// collect pulls remote pages until it has gathered one batch of records
// or the source is exhausted. A batch may span multiple physical pages.
func (o *Orchestrator) collect(ctx context.Context, sess *entities.ImportSession) ([]directory.Record, bool, error) {
	want := sess.BatchSize
	if remaining := sess.EffectiveLimit - sess.Cursor; want > remaining {
		want = remaining
	}
	if want <= 0 {
		return nil, true, nil
	}

	cursor := newPageCursor(sess.PageSize)
	collected := make([]directory.Record, 0, want)
	pos := sess.Cursor

	for len(collected) < want {
		page, _ := cursor.position(pos)
		rows, pager, err := o.client.Search(ctx, sess.FilterMap(), page)
		if err != nil {
			return nil, false, fmt.Errorf("batch fetch failed on page %d: %w", page, err)
		}

		window := cursor.window(rows, pos, want-len(collected))
		if len(window) == 0 {
			return collected, true, nil
		}
		collected = append(collected, window...)
		pos += len(window)

		if len(collected) < want && pager.CurrentPage >= pager.TotalPages-1 {
			return collected, true, nil
		}
	}
	return collected, false, nil
}

// processRecord runs one record through map → resolve → write (or
// preview) and records the outcome.
func (o *Orchestrator) processRecord(sess *entities.ImportSession, rec directory.Record, reporter *report.Reporter) {
	name := strings.TrimSpace(rec.Str("first_name") + " " + rec.Str("last_name"))

	doc, err := mapper.Map(rec)
	if err != nil {
		var vErr *mapper.ValidationError
		if errors.As(err, &vErr) {
			reporter.Skipped(name, vErr.Error())
		} else {
			reporter.Skipped(name, err.Error())
		}
		return
	}

	match, found, err := o.resolver.Resolve(doc)
	if err != nil {
		reporter.Skipped(doc.FullName(), fmt.Sprintf("duplicate lookup failed: %v", err))
		return
	}

	if sess.DryRun {
		preview := &report.Preview{
			Specialties: doc.Specialties,
			Languages:   doc.Languages,
			Location:    fmt.Sprintf("%s, %s, %s %s", doc.Address, doc.City, doc.State, doc.Zip),
		}
		if found {
			reporter.Updated(doc.FullName(), "matched by "+match.Method, preview)
		} else {
			reporter.Imported(doc.FullName(), preview)
		}
		return
	}

	entity, err := o.buildDoctor(doc)
	if err != nil {
		reporter.Skipped(doc.FullName(), fmt.Sprintf("failed to resolve reference data: %v", err))
		return
	}

	if found {
		if err := o.db.UpdateDoctor(match.DoctorID, entity); err != nil {
			reporter.Skipped(doc.FullName(), fmt.Sprintf("storage write failed: %v", err))
			return
		}
		reporter.Updated(doc.FullName(), "matched by "+match.Method, nil)
		return
	}

	if err := o.db.CreateDoctor(entity); err != nil {
		reporter.Skipped(doc.FullName(), fmt.Sprintf("storage write failed: %v", err))
		return
	}
	reporter.Imported(doc.FullName(), nil)
}

// buildDoctor converts the normalized record into the storage entity,
// resolving reference rows for every relationship link.
func (o *Orchestrator) buildDoctor(doc mapper.NormalizedDoctor) (*entities.Doctor, error) {
	entity := &entities.Doctor{
		Slug:           doc.SlugCandidate(),
		ProviderKey:    doc.ProviderKey,
		Idme:           doc.Idme,
		NPI:            doc.NPI,
		FirstName:      doc.FirstName,
		MiddleName:     doc.MiddleName,
		LastName:       doc.LastName,
		Degree:         doc.Degree,
		Gender:         doc.Gender,
		Bio:            doc.Bio,
		PracticeName:   doc.PracticeName,
		Address:        doc.Address,
		Address2:       doc.Address2,
		City:           doc.City,
		State:          doc.State,
		Zip:            doc.Zip,
		Phone:          doc.Phone,
		Fax:            doc.Fax,
		Latitude:       doc.Latitude,
		Longitude:      doc.Longitude,
		MedicalSchool:  doc.MedicalSchool,
		Internship:     doc.Internship,
		Residency:      doc.Residency,
		Fellowship:     doc.Fellowship,
		Certification:  doc.Certification,
		InsuranceNames: doc.InsuranceNames,
		HospitalNames:  doc.HospitalNames,
		Status:         doc.Status,
	}

	for _, name := range doc.Languages {
		lang, err := o.db.GetOrCreateLanguage(name)
		if err != nil {
			return nil, err
		}
		entity.Languages = append(entity.Languages, *lang)
	}
	for _, name := range doc.Specialties {
		spec, err := o.db.GetOrCreateSpecialty(name)
		if err != nil {
			return nil, err
		}
		entity.Specialties = append(entity.Specialties, *spec)
	}
	for _, name := range doc.Hospitals {
		hosp, err := o.db.GetOrCreateHospital(name)
		if err != nil {
			return nil, err
		}
		entity.Hospitals = append(entity.Hospitals, *hosp)
	}
	for _, plan := range doc.InsurancePlans {
		ins, err := o.db.GetOrCreateInsurance(plan.Name, plan.Type)
		if err != nil {
			return nil, err
		}
		entity.Insurances = append(entity.Insurances, *ins)
	}

	return entity, nil
}

func (o *Orchestrator) outcome(sess *entities.ImportSession, reporter *report.Reporter, hasMore bool) BatchOutcome {
	imported, updated, skipped := reporter.Counts()
	return BatchOutcome{
		Imported:       imported,
		Updated:        updated,
		Skipped:        skipped,
		Failures:       reporter.Failures(),
		Outcomes:       reporter.Outcomes(),
		Processed:      sess.Cursor,
		EffectiveLimit: sess.EffectiveLimit,
		HasMore:        hasMore,
		DryRun:         sess.DryRun,
		Message:        reporter.BatchMessage(sess.Cursor, sess.EffectiveLimit),
	}
}
