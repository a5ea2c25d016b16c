package sweep

import (
	"github.com/gin-gonic/gin"

	"github.com/grupovip/gatekeeper/internal/runner"
)

// RegisterRoutes registers the routes for the sweep module
func RegisterRoutes(g *gin.RouterGroup, r *runner.Runner) {
	controller := &Controller{runner: r}

	g.GET("/sweep", controller.getStatus)
	g.POST("/sweep", controller.trigger)
}
