package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/doctordir/importer/internal/refdata"
)

type RefDataController struct {
	synchronizer *refdata.Synchronizer
}

func NewRefDataController(synchronizer *refdata.Synchronizer) *RefDataController {
	return &RefDataController{synchronizer: synchronizer}
}

// Sync refreshes the lookup tables from the directory API. Partial
// failures are reported in the body, not as an error status.
func (controller *RefDataController) Sync(c *gin.Context) {
	counts := controller.synchronizer.SyncAll(c.Request.Context())
	c.IndentedJSON(http.StatusOK, counts)
}
