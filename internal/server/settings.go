package server

import (
	"fmt"

	"github.com/gin-gonic/gin"
	settingsdomain "github.com/smallbiznis/tiffinbill/internal/settings/domain"
)

func (s *Server) getSettings(c *gin.Context) {
	settings, err := s.settingsSvc.Load(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondOK(c, settings)
}

func (s *Server) putSettings(c *gin.Context) {
	var doc settingsdomain.Settings
	if err := c.ShouldBindJSON(&doc); err != nil {
		AbortWithError(c, fmt.Errorf("%w: %s", ErrInvalidRequest, "malformed settings document"))
		return
	}

	if err := s.settingsSvc.Save(c.Request.Context(), doc); err != nil {
		AbortWithError(c, err)
		return
	}
	respondOK(c, doc)
}
