package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/doctordir/importer/internal/database/sessions"
	"github.com/doctordir/importer/internal/directory"
	"github.com/doctordir/importer/internal/importer"
	"github.com/doctordir/importer/internal/report"
)

type StartImportRequest struct {
	Filters   map[string]string `json:"filters"`
	BatchSize int               `json:"batch_size"`
	Limit     int               `json:"limit"`
	AllPages  bool              `json:"all_pages"`
	DryRun    bool              `json:"dry_run"`
}

type RunBatchRequest struct {
	// Decision is required only while the session is paused on a fetch
	// error: "continue" retries the failed batch, "stop" finalizes the
	// run as failed.
	Decision string `json:"decision"`
}

type ImportController struct {
	orchestrator *importer.Orchestrator
}

func NewImportController(orchestrator *importer.Orchestrator) *ImportController {
	return &ImportController{orchestrator: orchestrator}
}

func (controller *ImportController) Start(c *gin.Context) {
	var req StartImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.IndentedJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := controller.orchestrator.Start(c.Request.Context(), importer.StartOptions{
		Filters:   req.Filters,
		BatchSize: req.BatchSize,
		Limit:     req.Limit,
		AllPages:  req.AllPages,
		DryRun:    req.DryRun,
	})
	if err != nil {
		c.IndentedJSON(upstreamStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.IndentedJSON(http.StatusCreated, session)
}

func (controller *ImportController) RunBatch(c *gin.Context) {
	var req RunBatchRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.IndentedJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	outcome, err := controller.orchestrator.RunBatch(
		c.Request.Context(),
		c.Param("token"),
		importer.ContinueDecision(req.Decision),
	)
	if err != nil {
		if errors.Is(err, importer.ErrDecisionRequired) {
			c.IndentedJSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		if status, ok := sessionStatus(err); ok {
			c.IndentedJSON(status, gin.H{"error": err.Error()})
			return
		}
		c.IndentedJSON(upstreamStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.IndentedJSON(http.StatusOK, outcome)
}

func (controller *ImportController) Progress(c *gin.Context) {
	session, err := controller.orchestrator.Progress(c.Param("token"))
	if err != nil {
		if status, ok := sessionStatus(err); ok {
			c.IndentedJSON(status, gin.H{"error": err.Error()})
			return
		}
		c.IndentedJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.IndentedJSON(http.StatusOK, session)
}

func (controller *ImportController) Cancel(c *gin.Context) {
	if err := controller.orchestrator.Cancel(c.Param("token")); err != nil {
		if status, ok := sessionStatus(err); ok {
			c.IndentedJSON(status, gin.H{"error": err.Error()})
			return
		}
		c.IndentedJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.IndentedJSON(http.StatusOK, gin.H{"status": "cancelled"})
}

// ErrorReport serves the accumulated record-level failures as a plain
// text document suitable for download.
func (controller *ImportController) ErrorReport(c *gin.Context) {
	session, err := controller.orchestrator.Progress(c.Param("token"))
	if err != nil {
		if status, ok := sessionStatus(err); ok {
			c.IndentedJSON(status, gin.H{"error": err.Error()})
			return
		}
		c.IndentedJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Disposition", "attachment; filename=import-errors.txt")
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(report.ErrorReport(session.ErrorList())))
}

func sessionStatus(err error) (int, bool) {
	switch {
	case errors.Is(err, sessions.ErrNotFound):
		return http.StatusNotFound, true
	case errors.Is(err, sessions.ErrExpired):
		return http.StatusGone, true
	}
	return 0, false
}

// upstreamStatus maps directory client failures to response codes:
// credential problems are the caller's to fix, transport problems are
// the upstream's.
func upstreamStatus(err error) int {
	if errors.Is(err, directory.ErrInvalidCredentials) {
		return http.StatusUnauthorized
	}
	if directory.IsTransport(err) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
