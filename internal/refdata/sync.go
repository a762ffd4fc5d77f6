// Package refdata idempotently seeds the lookup tables (languages,
// hospitals, insurances) from the remote directory. Re-running a sync
// against an unchanged remote list inserts nothing.
package refdata

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/doctordir/importer/internal/database"
	"github.com/doctordir/importer/internal/directory"
	"github.com/doctordir/importer/internal/mapper"
)

// Counts reports how many rows each sync inserted. Errors collects the
// per-source failures: one source failing does not block the others.
type Counts struct {
	Languages  int      `json:"languages"`
	Hospitals  int      `json:"hospitals"`
	Insurances int      `json:"insurances"`
	Errors     []string `json:"errors,omitempty"`
}

// Synchronizer pulls reference lists from the directory API and inserts
// the entries missing from the local lookup tables.
type Synchronizer struct {
	client *directory.Client
	db     *database.Database
}

func NewSynchronizer(client *directory.Client, db *database.Database) *Synchronizer {
	return &Synchronizer{client: client, db: db}
}

// SyncAll runs every reference sync, continuing past individual
// failures.
func (s *Synchronizer) SyncAll(ctx context.Context) Counts {
	var counts Counts
	var err error

	counts.Languages, err = s.SyncLanguages(ctx)
	if err != nil {
		counts.Errors = append(counts.Errors, fmt.Sprintf("languages: %v", err))
	}
	counts.Hospitals, err = s.SyncHospitals(ctx)
	if err != nil {
		counts.Errors = append(counts.Errors, fmt.Sprintf("hospitals: %v", err))
	}
	counts.Insurances, err = s.SyncInsurances(ctx)
	if err != nil {
		counts.Errors = append(counts.Errors, fmt.Sprintf("insurances: %v", err))
	}

	log.Printf("Reference sync: %d languages, %d hospitals, %d insurances inserted (%d errors)",
		counts.Languages, counts.Hospitals, counts.Insurances, len(counts.Errors))
	return counts
}

// SyncLanguages fetches the language reference endpoint and inserts the
// names not yet present, checked case-insensitively.
func (s *Synchronizer) SyncLanguages(ctx context.Context) (int, error) {
	rows, err := s.client.Languages(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch languages: %w", err)
	}
	inserted := 0
	for _, name := range candidateNames(rows) {
		exists, err := s.db.LanguageExists(name)
		if err != nil {
			return inserted, err
		}
		if exists {
			continue
		}
		if err := s.db.CreateLanguage(name); err != nil {
			return inserted, err
		}
		inserted++
	}
	return inserted, nil
}

// SyncHospitals fetches the hospital reference endpoint and inserts the
// missing names.
func (s *Synchronizer) SyncHospitals(ctx context.Context) (int, error) {
	rows, err := s.client.Hospitals(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch hospitals: %w", err)
	}
	inserted := 0
	for _, name := range candidateNames(rows) {
		exists, err := s.db.HospitalExists(name)
		if err != nil {
			return inserted, err
		}
		if exists {
			continue
		}
		if err := s.db.CreateHospital(name); err != nil {
			return inserted, err
		}
		inserted++
	}
	return inserted, nil
}

// SyncInsurances has no dedicated remote endpoint: candidates are
// derived by scanning one page of physician search results across all
// network-type fields, deduplicated by (name, type).
func (s *Synchronizer) SyncInsurances(ctx context.Context) (int, error) {
	rows, _, err := s.client.Search(ctx, nil, 0)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch sample records: %w", err)
	}

	type planKey struct {
		name string
		typ  string
	}
	seen := make(map[planKey]struct{})
	var plans []mapper.InsurancePlan
	for _, rec := range rows {
		for _, category := range mapper.InsuranceCategories {
			for _, name := range rec.StrList(category) {
				key := planKey{name: strings.ToLower(name), typ: category}
				if _, ok := seen[key]; ok {
					continue
				}
				seen[key] = struct{}{}
				plans = append(plans, mapper.InsurancePlan{Name: name, Type: category})
			}
		}
	}

	inserted := 0
	for _, plan := range plans {
		exists, err := s.db.InsuranceExists(plan.Name, plan.Type)
		if err != nil {
			return inserted, err
		}
		if exists {
			continue
		}
		if err := s.db.CreateInsurance(plan.Name, plan.Type); err != nil {
			return inserted, err
		}
		inserted++
	}
	return inserted, nil
}

// candidateNames extracts non-empty names from a reference list
// response, tolerating rows that are objects or bare strings.
func candidateNames(rows []directory.Record) []string {
	out := make([]string, 0, len(rows))
	for _, rec := range rows {
		if name := rec.FirstStr("name", "title", "language"); name != "" {
			out = append(out, name)
		}
	}
	return out
}
