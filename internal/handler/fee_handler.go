package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/prisma-institute/portal-api/internal/service"
	appErrors "github.com/prisma-institute/portal-api/pkg/errors"
	"github.com/prisma-institute/portal-api/pkg/response"
)

// FeeHandler exposes fee recording and statements.
type FeeHandler struct {
	fees *service.FeeService
}

// NewFeeHandler constructs FeeHandler.
func NewFeeHandler(fees *service.FeeService) *FeeHandler {
	return &FeeHandler{fees: fees}
}

// RecordPayment godoc
// @Summary Record a fee payment
// @Tags Fees
// @Accept json
// @Produce json
// @Param id path string true "Enrollment ID"
// @Param payload body service.RecordPaymentRequest true "Payment payload"
// @Success 201 {object} response.Envelope
// @Router /admin/enrollments/{id}/payments [post]
func (h *FeeHandler) RecordPayment(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payment payload"))
		return
	}
	payment, err := h.fees.RecordPayment(c.Request.Context(), c.Param("id"), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, payment)
}

// Statement godoc
// @Summary Fee statement for an enrollment
// @Tags Fees
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Router /admin/enrollments/{id}/fees [get]
func (h *FeeHandler) Statement(c *gin.Context) {
	statement, err := h.fees.Statement(c.Request.Context(), c.Param("id"), "")
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, statement, nil)
}

// MyStatement godoc
// @Summary Fee statement for own enrollment
// @Tags Dashboard
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Router /me/enrollments/{id}/fees [get]
func (h *FeeHandler) MyStatement(c *gin.Context) {
	studentID := studentIDFromContext(c)
	if studentID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "no student record linked to this account"))
		return
	}
	statement, err := h.fees.Statement(c.Request.Context(), c.Param("id"), studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, statement, nil)
}
