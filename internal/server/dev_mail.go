package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	billingdomain "github.com/smallbiznis/jobboard/internal/billing/domain"
)

// DevTryMail renders a billing template for an employer's admins. Not mounted in production.
func (s *Server) DevTryMail(c *gin.Context) {
	employerID, ok := parseEmployerID(c, c.Query("employerId"))
	if !ok {
		return
	}

	kind := billingdomain.PreviewMailKind(strings.ToLower(strings.TrimSpace(c.Query("type"))))
	if kind == "" {
		kind = billingdomain.PreviewMailTrial
	}

	result, err := s.billingSvc.SendPreviewMail(c.Request.Context(), employerID, kind)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":      true,
		"type":    kind,
		"sentTo":  result.SentTo,
		"subject": result.Subject,
	})
}
