package entrypoint

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/doctordir/importer/internal/config"
	"github.com/doctordir/importer/internal/database"
	"github.com/doctordir/importer/internal/database/sessions"
	"github.com/doctordir/importer/internal/directory"
	http_controllers "github.com/doctordir/importer/internal/http"
	"github.com/doctordir/importer/internal/importer"
	"github.com/doctordir/importer/internal/refdata"
	"github.com/doctordir/importer/internal/scheduler"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler: router,
	}

	go func() {
		fmt.Printf("Starting server at %s:%d\n", cfg.HTTP.Host, cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}

	log.Println("Server exiting")
}

func Run(cfg *config.Config, version string) {
	log.Printf("Starting Directory Importer v%s", version)

	if cfg.Directory.BaseURL == "" {
		log.Printf("WARNING: directory API base URL is not set. Set 'DIRECTORY_BASE_URL' to enable imports.")
	}
	if cfg.Directory.Username == "" || cfg.Directory.Password == "" {
		log.Printf("WARNING: directory API credentials are not set. Set 'DIRECTORY_USERNAME' and 'DIRECTORY_PASSWORD'.")
	}

	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()

	client := directory.NewClient(
		cfg.Directory.BaseURL,
		cfg.Directory.Username,
		cfg.Directory.Password,
		cfg.Directory.Timeout,
	)

	sessionRepo := sessions.NewRepository(db.DB, cfg.Import.SessionTTL)
	orchestrator := importer.NewOrchestrator(client, db, sessionRepo)
	synchronizer := refdata.NewSynchronizer(client, db)

	// Periodic reference sync, if enabled.
	syncScheduler := scheduler.NewRefDataSyncScheduler(synchronizer, cfg.RefDataSync)
	schedulerCtx, schedulerCancel := context.WithCancel(context.Background())
	if err := syncScheduler.Start(schedulerCtx); err != nil {
		log.Fatalf("Failed to start reference sync scheduler: %v", err)
	}

	// Expired session sweep keeps stale import state from accumulating.
	purgeCtx, purgeCancel := context.WithCancel(context.Background())
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-purgeCtx.Done():
				return
			case <-ticker.C:
				if purged, err := sessionRepo.PurgeExpired(); err != nil {
					log.Printf("Session sweep: %v", err)
				} else if purged > 0 {
					log.Printf("Session sweep: purged %d expired sessions", purged)
				}
			}
		}
	}()

	router := http_controllers.NewRouter(http_controllers.RouterConfig{
		Database:     db,
		Client:       client,
		Orchestrator: orchestrator,
		Synchronizer: synchronizer,
		Version:      version,
	})

	onShutdown := func(ctx context.Context) {
		purgeCancel()
		schedulerCancel()
		syncScheduler.Stop()
	}

	Serve(router, cfg, onShutdown)
}
