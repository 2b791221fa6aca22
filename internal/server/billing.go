package server

import (
	"fmt"

	"github.com/gin-gonic/gin"
	billingdomain "github.com/smallbiznis/tiffinbill/internal/billing/domain"
)

func (s *Server) sendBatch(c *gin.Context) {
	var req billingdomain.SendBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, fmt.Errorf("%w: %s", ErrInvalidRequest, "malformed send request"))
		return
	}

	result, err := s.billingSvc.SendBatch(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondOK(c, result)
}

func (s *Server) sendSingle(c *gin.Context) {
	var req billingdomain.SendSingleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, fmt.Errorf("%w: %s", ErrInvalidRequest, "malformed send request"))
		return
	}

	result, err := s.billingSvc.SendSingle(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondOK(c, result)
}

func (s *Server) clearStatuses(c *gin.Context) {
	result, err := s.billingSvc.ClearStatuses(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondOK(c, result)
}

func (s *Server) paymentEdit(c *gin.Context) {
	var req billingdomain.PaymentEditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, fmt.Errorf("%w: %s", ErrInvalidRequest, "malformed payment edit"))
		return
	}

	result, err := s.billingSvc.HandlePaymentEdit(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondOK(c, result)
}

func (s *Server) verifyCredentials(c *gin.Context) {
	account, err := s.billingSvc.VerifyCredentials(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondOK(c, account)
}
