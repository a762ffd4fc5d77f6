package http

import (
	"github.com/gin-gonic/gin"

	"github.com/doctordir/importer/internal/database"
	"github.com/doctordir/importer/internal/directory"
	"github.com/doctordir/importer/internal/importer"
	"github.com/doctordir/importer/internal/refdata"
)

// RouterConfig carries the router's dependencies, keeping the
// constructor signature stable as the surface grows.
type RouterConfig struct {
	Database     *database.Database
	Client       *directory.Client
	Orchestrator *importer.Orchestrator
	Synchronizer *refdata.Synchronizer
	Version      string
}

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	healthController := NewHealthController(cfg.Database, cfg.Version)
	router.GET("/health", healthController.Status)

	connectionController := NewConnectionController(cfg.Client)
	router.GET("/api/connection", connectionController.Status)

	importController := NewImportController(cfg.Orchestrator)
	router.POST("/api/imports", importController.Start)
	router.POST("/api/imports/:token/batches", importController.RunBatch)
	router.GET("/api/imports/:token", importController.Progress)
	router.GET("/api/imports/:token/errors.txt", importController.ErrorReport)
	router.DELETE("/api/imports/:token", importController.Cancel)

	refDataController := NewRefDataController(cfg.Synchronizer)
	router.POST("/api/refdata/sync", refDataController.Sync)

	doctorController := NewDoctorController(cfg.Database)
	router.GET("/api/doctors/count", doctorController.Count)
	router.GET("/api/doctors/:slug", doctorController.Get)

	return router
}
