package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/prisma-institute/portal-api/internal/service"
	appErrors "github.com/prisma-institute/portal-api/pkg/errors"
	"github.com/prisma-institute/portal-api/pkg/response"
)

// CertificateHandler exposes approval, revocation and PDF download.
type CertificateHandler struct {
	certificates *service.CertificateService
}

// NewCertificateHandler constructs CertificateHandler.
func NewCertificateHandler(certificates *service.CertificateService) *CertificateHandler {
	return &CertificateHandler{certificates: certificates}
}

// Approve godoc
// @Summary Approve a certificate
// @Description Issue a certificate ID for a student and course pair
// @Tags Certificates
// @Accept json
// @Produce json
// @Param payload body service.ApproveCertificateRequest true "Approval payload"
// @Success 200 {object} response.Envelope
// @Router /admin/certificates/approve [post]
func (h *CertificateHandler) Approve(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.ApproveCertificateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid approval payload"))
		return
	}
	res, err := h.certificates.Approve(c.Request.Context(), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Revoke godoc
// @Summary Revoke a certificate
// @Tags Certificates
// @Accept json
// @Produce json
// @Param payload body service.ApproveCertificateRequest true "Revocation payload"
// @Success 204 {object} response.Envelope
// @Router /admin/certificates/revoke [post]
func (h *CertificateHandler) Revoke(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.ApproveCertificateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid revocation payload"))
		return
	}
	if err := h.certificates.Revoke(c.Request.Context(), req, claims.UserID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Preview godoc
// @Summary Preview a certificate PDF
// @Description Admin download of the certificate for any approved enrollment
// @Tags Certificates
// @Produce application/pdf
// @Param id path string true "Enrollment ID"
// @Success 200 {file} binary
// @Router /admin/certificates/{id}/pdf [get]
func (h *CertificateHandler) Preview(c *gin.Context) {
	h.serveCertificate(c, c.Param("id"), "")
}

// Download godoc
// @Summary Download own certificate PDF
// @Description Available only after an admin approves this enrollment
// @Tags Dashboard
// @Produce application/pdf
// @Param id path string true "Enrollment ID"
// @Success 200 {file} binary
// @Failure 412 {object} response.Envelope
// @Router /me/certificates/{id}/pdf [get]
func (h *CertificateHandler) Download(c *gin.Context) {
	studentID := studentIDFromContext(c)
	if studentID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "no student record linked to this account"))
		return
	}
	h.serveCertificate(c, c.Param("id"), studentID)
}

func (h *CertificateHandler) serveCertificate(c *gin.Context, enrollmentID, ownerStudentID string) {
	doc, err := h.certificates.RenderCertificate(c.Request.Context(), enrollmentID, ownerStudentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+doc.Filename+`"`)
	c.Data(http.StatusOK, "application/pdf", doc.Content)
}
