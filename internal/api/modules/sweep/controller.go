package sweep

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/grupovip/gatekeeper/internal/runner"
)

// Controller serves sweep status and manual triggering
type Controller struct {
	runner *runner.Runner
}

// Return the outcome of the most recent sweep pass
func (ctl *Controller) getStatus(c *gin.Context) {
	c.JSON(http.StatusOK, ctl.runner.LastSweep())
}

// Run a sweep pass now, outside the regular schedule
func (ctl *Controller) trigger(c *gin.Context) {
	processed, err := ctl.runner.RunSweep(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"processed": processed})
}
