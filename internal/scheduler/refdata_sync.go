package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/doctordir/importer/internal/config"
	"github.com/doctordir/importer/internal/refdata"
	"github.com/robfig/cron/v3"
)

// RefDataSyncScheduler periodically refreshes the lookup tables from the
// remote directory so searches and imports see current reference rows.
type RefDataSyncScheduler struct {
	synchronizer *refdata.Synchronizer
	cfg          config.RefDataSync

	cron       *cron.Cron
	entryID    cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	isSyncing  bool
	cancelFunc context.CancelFunc
}

func NewRefDataSyncScheduler(synchronizer *refdata.Synchronizer, cfg config.RefDataSync) *RefDataSyncScheduler {
	return &RefDataSyncScheduler{
		synchronizer: synchronizer,
		cfg:          cfg,
		cron:         cron.New(cron.WithParser(cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow))),
	}
}

// Start begins the scheduler if the sync is enabled.
func (s *RefDataSyncScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	if !s.cfg.Enabled {
		log.Printf("Reference sync scheduler: disabled")
		return nil
	}

	entryID, err := s.cron.AddFunc(s.cfg.Schedule, func() {
		s.runSync()
	})
	if err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", s.cfg.Schedule, err)
	}
	s.entryID = entryID

	var cancelCtx context.Context
	cancelCtx, s.cancelFunc = context.WithCancel(ctx)

	s.cron.Start()
	s.isRunning = true

	log.Printf("Reference sync scheduler: started with schedule '%s'", s.cfg.Schedule)

	go func() {
		<-cancelCtx.Done()
		s.Stop()
	}()

	return nil
}

// Stop gracefully stops the scheduler, waiting for a running sync.
func (s *RefDataSyncScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()

	s.isRunning = false
	s.cancelFunc = nil

	log.Printf("Reference sync scheduler: stopped")
}

// RunNow triggers an immediate sync without waiting for the schedule.
func (s *RefDataSyncScheduler) RunNow() error {
	go s.runSync()
	return nil
}

// IsRunning returns whether the scheduler is active.
func (s *RefDataSyncScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// IsSyncing returns whether a sync is currently in progress.
func (s *RefDataSyncScheduler) IsSyncing() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isSyncing
}

// GetNextRunTime returns when the next sync will occur.
func (s *RefDataSyncScheduler) GetNextRunTime() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}

	for _, entry := range s.cron.Entries() {
		if entry.ID == s.entryID {
			t := entry.Next
			return &t
		}
	}
	return nil
}

// runSync performs the actual sync, skipping if one is already running.
func (s *RefDataSyncScheduler) runSync() {
	s.mu.Lock()
	if s.isSyncing {
		s.mu.Unlock()
		log.Printf("Reference sync: skipped (already syncing)")
		return
	}
	s.isSyncing = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.isSyncing = false
		s.mu.Unlock()
	}()

	log.Printf("Reference sync: starting refresh from directory API")
	startTime := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	counts := s.synchronizer.SyncAll(ctx)

	duration := time.Since(startTime)
	if len(counts.Errors) > 0 {
		log.Printf("Reference sync: finished with %d errors in %v", len(counts.Errors), duration.Round(time.Millisecond))
		return
	}
	log.Printf("Reference sync: finished in %v", duration.Round(time.Millisecond))
}
