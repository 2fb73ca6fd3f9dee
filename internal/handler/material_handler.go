package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/prisma-institute/portal-api/internal/service"
	appErrors "github.com/prisma-institute/portal-api/pkg/errors"
	"github.com/prisma-institute/portal-api/pkg/response"
)

// MaterialHandler exposes course material upload and download.
type MaterialHandler struct {
	materials *service.MaterialService
}

// NewMaterialHandler constructs MaterialHandler.
func NewMaterialHandler(materials *service.MaterialService) *MaterialHandler {
	return &MaterialHandler{materials: materials}
}

// Upload godoc
// @Summary Upload a course material PDF
// @Tags Materials
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Course ID"
// @Param title formData string true "Material title"
// @Param file formData file true "PDF file"
// @Success 201 {object} response.Envelope
// @Router /admin/courses/{id}/materials [post]
func (h *MaterialHandler) Upload(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "material file required"))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read upload"))
		return
	}
	defer file.Close()

	req := service.UploadMaterialRequest{
		CourseID:    c.Param("id"),
		Title:       c.PostForm("title"),
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Size:        fileHeader.Size,
	}
	material, err := h.materials.Upload(c.Request.Context(), req, file, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, material)
}

// List godoc
// @Summary List materials for a course
// @Tags Materials
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /admin/courses/{id}/materials [get]
func (h *MaterialHandler) List(c *gin.Context) {
	materials, err := h.materials.ListByCourse(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, materials, nil)
}

// Delete godoc
// @Summary Delete a material
// @Tags Materials
// @Produce json
// @Param id path string true "Material ID"
// @Success 204 {object} response.Envelope
// @Router /admin/materials/{id} [delete]
func (h *MaterialHandler) Delete(c *gin.Context) {
	if err := h.materials.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListForStudent godoc
// @Summary Materials for an enrolled course with signed links
// @Tags Dashboard
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /me/courses/{id}/materials [get]
func (h *MaterialHandler) ListForStudent(c *gin.Context) {
	studentID := studentIDFromContext(c)
	if studentID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "no student record linked to this account"))
		return
	}
	links, err := h.materials.ListForStudent(c.Request.Context(), studentID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, links, nil)
}

// Download godoc
// @Summary Download a material via signed link
// @Description The token was issued to an enrolled student; no session is required
// @Tags Materials
// @Produce application/pdf
// @Param token query string true "Signed download token"
// @Success 200 {file} binary
// @Router /materials/download [get]
func (h *MaterialHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "download token required"))
		return
	}
	material, file, err := h.materials.ResolveDownload(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	c.Header("Content-Disposition", `attachment; filename="`+material.Title+`.pdf"`)
	c.Header("Content-Type", material.ContentType)
	http.ServeContent(c.Writer, c.Request, material.Title+".pdf", material.CreatedAt, file)
}
