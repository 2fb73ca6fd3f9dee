package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/prisma-institute/portal-api/internal/models"
	"github.com/prisma-institute/portal-api/internal/service"
	appErrors "github.com/prisma-institute/portal-api/pkg/errors"
	"github.com/prisma-institute/portal-api/pkg/response"
)

// InquiryHandler exposes the public inquiry form and the admin inbox.
type InquiryHandler struct {
	inquiries *service.InquiryService
}

// NewInquiryHandler constructs InquiryHandler.
func NewInquiryHandler(inquiries *service.InquiryService) *InquiryHandler {
	return &InquiryHandler{inquiries: inquiries}
}

// Submit godoc
// @Summary Submit an admission inquiry
// @Tags Inquiries
// @Accept json
// @Produce json
// @Param payload body service.SubmitInquiryRequest true "Inquiry payload"
// @Success 201 {object} response.Envelope
// @Router /inquiries [post]
func (h *InquiryHandler) Submit(c *gin.Context) {
	var req service.SubmitInquiryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid inquiry payload"))
		return
	}
	inquiry, err := h.inquiries.Submit(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, inquiry)
}

// List godoc
// @Summary List inquiries
// @Tags Inquiries
// @Produce json
// @Param status query string false "Filter by status"
// @Param courseId query string false "Filter by course"
// @Success 200 {object} response.Envelope
// @Router /admin/inquiries [get]
func (h *InquiryHandler) List(c *gin.Context) {
	var filter models.InquiryFilter
	filter.Status = models.InquiryStatus(c.Query("status"))
	filter.CourseID = c.Query("courseId")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	inquiries, pagination, err := h.inquiries.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, inquiries, pagination)
}

// Resolve godoc
// @Summary Mark an inquiry as resolved
// @Tags Inquiries
// @Produce json
// @Param id path string true "Inquiry ID"
// @Success 200 {object} response.Envelope
// @Router /admin/inquiries/{id}/resolve [post]
func (h *InquiryHandler) Resolve(c *gin.Context) {
	inquiry, err := h.inquiries.Resolve(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, inquiry, nil)
}
