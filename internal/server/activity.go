package server

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

func (s *Server) recentActivity(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	entries, err := s.activitySvc.Recent(c.Request.Context(), limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondOK(c, entries)
}
