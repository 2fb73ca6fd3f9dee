package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/prisma-institute/portal-api/internal/service"
	"github.com/prisma-institute/portal-api/pkg/response"
)

// VerificationHandler serves public certificate verification. No auth.
type VerificationHandler struct {
	verification *service.VerificationService
}

// NewVerificationHandler constructs VerificationHandler.
func NewVerificationHandler(verification *service.VerificationService) *VerificationHandler {
	return &VerificationHandler{verification: verification}
}

// Verify godoc
// @Summary Verify a certificate
// @Description Confirm that an enrollment holds an admin-approved certificate
// @Tags Verification
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /verify/{id} [get]
func (h *VerificationHandler) Verify(c *gin.Context) {
	verification, err := h.verification.VerifyByEnrollmentID(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, verification, nil)
}

// Search godoc
// @Summary Search approved certificates
// @Description Search by student name or course title; empty queries return an empty list
// @Tags Verification
// @Produce json
// @Param student query string false "Student name contains"
// @Param course query string false "Course title contains"
// @Success 200 {object} response.Envelope
// @Router /verify [get]
func (h *VerificationHandler) Search(c *gin.Context) {
	if course := strings.TrimSpace(c.Query("course")); course != "" {
		results, err := h.verification.SearchByCourseName(c.Request.Context(), course)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, results, nil)
		return
	}

	results, err := h.verification.SearchByStudentName(c.Request.Context(), c.Query("student"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, results, nil)
}
