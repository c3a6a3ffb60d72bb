package http

import (
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware gin.HandlerFunc) {
	group := g.Group("/scheduler")

	// === Authenticated Routes ===
	group.Use(authMiddleware)
	{
		group.POST("/filters/refine", h.RefineFilters)
		group.GET("/board", h.GetBoard)
		group.POST("/board", h.ApplyFilters)
		group.POST("/clone/settings", h.GetCloneSettings)
		group.POST("/clone", h.CloneSchedules)
		group.POST("/auto-schedule", h.AutoSchedule)
		group.POST("/occurrence-records", h.GetOrAddOccurrenceRecord)
	}
}
