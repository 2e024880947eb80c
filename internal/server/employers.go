package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	billingdomain "github.com/smallbiznis/jobboard/internal/billing/domain"
)

func (s *Server) GetBillingStatus(c *gin.Context) {
	employerID, ok := parseEmployerID(c, c.Param("id"))
	if !ok {
		return
	}

	view, err := s.billingSvc.BillingStatusView(c.Request.Context(), employerID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

func (s *Server) RecomputeBillingStatus(c *gin.Context) {
	employerID, ok := parseEmployerID(c, c.Param("id"))
	if !ok {
		return
	}

	status, err := s.billingSvc.RecomputeBillingStatus(c.Request.Context(), employerID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if status == nil {
		AbortWithError(c, billingdomain.ErrEmployerNotFound)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": status.Status})
}

func parseEmployerID(c *gin.Context, raw string) (snowflake.ID, bool) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id == 0 {
		AbortWithError(c, newValidationError("employerId", "invalid_employer_id", "invalid employer id"))
		return 0, false
	}
	return id, true
}
