package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/doctordir/importer/internal/directory"
)

type ConnectionController struct {
	client *directory.Client
}

func NewConnectionController(client *directory.Client) *ConnectionController {
	return &ConnectionController{client: client}
}

// Status probes the directory API with the configured credentials and
// reports reachability without starting an import.
func (controller *ConnectionController) Status(c *gin.Context) {
	if err := controller.client.TestConnection(c.Request.Context()); err != nil {
		if errors.Is(err, directory.ErrInvalidCredentials) {
			c.IndentedJSON(http.StatusUnauthorized, gin.H{
				"status": "unauthorized",
				"error":  err.Error(),
			})
			return
		}
		c.IndentedJSON(http.StatusBadGateway, gin.H{
			"status": "unreachable",
			"error":  err.Error(),
		})
		return
	}

	c.IndentedJSON(http.StatusOK, gin.H{"status": "connected"})
}
