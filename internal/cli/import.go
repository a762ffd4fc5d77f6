package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/doctordir/importer/internal/config"
	"github.com/doctordir/importer/internal/database"
	"github.com/doctordir/importer/internal/database/sessions"
	"github.com/doctordir/importer/internal/directory"
	"github.com/doctordir/importer/internal/entities"
	"github.com/doctordir/importer/internal/importer"
	"github.com/doctordir/importer/internal/report"
)

// ErrPartial marks a run that finished but skipped one or more records.
var ErrPartial = errors.New("import completed with record errors")

// ImportCommand drives a complete import run from the terminal, batch by
// batch, against the configured directory API.
type ImportCommand struct {
	DatabasePath string
	BaseURL      string
	Username     string
	Password     string
	BatchSize    int
	Limit        int
	AllPages     bool
	DryRun       bool
	Verbose      bool
	Specialty    string
	City         string
	State        string
	Zip          string
}

func NewImportCommand() *ImportCommand {
	return &ImportCommand{}
}

func (cmd *ImportCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)

	cfg := config.NewConfig()

	fs.StringVar(&cmd.DatabasePath, "db", cfg.Database.Path, "Path to the local database file")
	fs.StringVar(&cmd.BaseURL, "url", cfg.Directory.BaseURL, "Directory API base URL")
	fs.StringVar(&cmd.Username, "username", cfg.Directory.Username, "Directory API username")
	fs.StringVar(&cmd.Password, "password", cfg.Directory.Password, "Directory API password")
	fs.IntVar(&cmd.BatchSize, "batch-size", cfg.Import.DefaultBatchSize, "Records processed per batch")
	fs.IntVar(&cmd.Limit, "limit", 0, "Maximum records to import (0 = no limit)")
	fs.BoolVar(&cmd.AllPages, "all", false, "Import the entire result set, ignoring -limit")
	fs.BoolVar(&cmd.DryRun, "dry-run", false, "Show what would be imported without making changes")
	fs.BoolVar(&cmd.Verbose, "verbose", false, "Print per-record outcomes")
	fs.StringVar(&cmd.Specialty, "specialty", "", "Filter by specialty")
	fs.StringVar(&cmd.City, "city", "", "Filter by city")
	fs.StringVar(&cmd.State, "state", "", "Filter by state")
	fs.StringVar(&cmd.Zip, "zip", "", "Filter by zip code")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s import [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Import physician records from the directory API into the local database.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  # Preview the first 100 cardiologists in Sacramento:\n")
		fmt.Fprintf(os.Stderr, "  %s import -specialty Cardiology -city Sacramento -limit 100 -dry-run\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  # Import everything:\n")
		fmt.Fprintf(os.Stderr, "  %s import -all\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.BaseURL == "" {
		return fmt.Errorf("directory API base URL not set: use -url or DIRECTORY_BASE_URL")
	}
	if cmd.Username == "" || cmd.Password == "" {
		return fmt.Errorf("directory API credentials not set: use -username/-password or DIRECTORY_USERNAME/DIRECTORY_PASSWORD")
	}

	return nil
}

func (cmd *ImportCommand) filters() map[string]string {
	filters := make(map[string]string)
	if cmd.Specialty != "" {
		filters["specialty"] = cmd.Specialty
	}
	if cmd.City != "" {
		filters["city"] = cmd.City
	}
	if cmd.State != "" {
		filters["state"] = cmd.State
	}
	if cmd.Zip != "" {
		filters["zip"] = cmd.Zip
	}
	if len(filters) == 0 {
		return nil
	}
	return filters
}

// Run drives the import loop to completion. Connectivity failures abort
// the run; record-level failures are collected and reported at the end
// as ErrPartial.
func (cmd *ImportCommand) Run() error {
	fmt.Println("Directory Import")
	fmt.Println("================")

	if cmd.DryRun {
		fmt.Println("DRY RUN MODE - No changes will be made")
		fmt.Println()
	}

	ctx := context.Background()

	client := directory.NewClient(cmd.BaseURL, cmd.Username, cmd.Password, 30*time.Second)

	fmt.Println("Testing directory API connection...")
	if err := client.TestConnection(ctx); err != nil {
		return fmt.Errorf("connection test failed: %w", err)
	}
	fmt.Println("Connection OK")

	db, err := database.NewDatabase(cmd.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	sessionRepo := sessions.NewRepository(db.DB, 0)
	orchestrator := importer.NewOrchestrator(client, db, sessionRepo)

	session, err := orchestrator.Start(ctx, importer.StartOptions{
		Filters:   cmd.filters(),
		BatchSize: cmd.BatchSize,
		Limit:     cmd.Limit,
		AllPages:  cmd.AllPages,
		DryRun:    cmd.DryRun,
	})
	if err != nil {
		return fmt.Errorf("failed to start import: %w", err)
	}

	fmt.Printf("Importing %d of %d records (batch size %d)\n\n",
		session.EffectiveLimit, session.TotalItems, session.BatchSize)

	for {
		outcome, err := orchestrator.RunBatch(ctx, session.Token, importer.DecisionNone)
		if err != nil {
			// One retry on a batch fetch error, then give up.
			fmt.Fprintf(os.Stderr, "Batch failed: %v (retrying once)\n", err)
			outcome, err = orchestrator.RunBatch(ctx, session.Token, importer.DecisionContinue)
			if err != nil {
				_, _ = orchestrator.RunBatch(ctx, session.Token, importer.DecisionStop)
				return fmt.Errorf("batch failed after retry: %w", err)
			}
		}

		fmt.Println(outcome.Message)
		if cmd.Verbose {
			for _, rec := range outcome.Outcomes {
				line := fmt.Sprintf("  %-8s %s", rec.Action, rec.Name)
				if rec.Reason != "" {
					line += " (" + rec.Reason + ")"
				}
				fmt.Println(line)
			}
		}

		if !outcome.HasMore {
			break
		}
	}

	final, err := orchestrator.Progress(session.Token)
	if err != nil {
		return fmt.Errorf("failed to load final progress: %w", err)
	}
	if final.Status != entities.ImportStatusCompleted {
		return fmt.Errorf("import ended in state %s", final.Status)
	}

	fmt.Println()
	fmt.Println(report.FinalSummary(final.Imported, final.Updated, final.Skipped, final.Cursor, final.DryRun))

	if failures := final.ErrorList(); len(failures) > 0 {
		fmt.Println()
		fmt.Print(report.ErrorReport(failures))
		return fmt.Errorf("%w: %d record(s) skipped", ErrPartial, len(failures))
	}

	return nil
}

// ExitCode maps a Run error to the process exit code: 0 for a clean
// run, 2 when the run completed but skipped records, 3 for credential
// or connectivity failures, 1 otherwise.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrPartial):
		return 2
	case errors.Is(err, directory.ErrInvalidCredentials), directory.IsTransport(err):
		return 3
	default:
		return 1
	}
}

// Describe renders the error for the terminal, trimming wrap prefixes
// the summary already implies.
func Describe(err error) string {
	return strings.TrimSpace(err.Error())
}
