package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/prisma-institute/portal-api/pkg/errors"
)

func sampleData() CertificateData {
	return CertificateData{
		StudentName:       "Jane Doe",
		CourseTitle:       "Full Stack Web Dev!!",
		CourseDescription: "HTML, CSS, JavaScript, Go and PostgreSQL.",
		CompletionDate:    "15 Jul 2024",
		CertificateID:     "PRC00042",
		CourseDuration:    "6 months",
	}
}

func TestCertificateRendererProducesPDF(t *testing.T) {
	renderer := NewCertificateRenderer(IssuerInfo{Name: "Prisma Institute", Signatory: "Director"})
	out, err := renderer.Render(sampleData(), time.Date(2024, 8, 1, 10, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NotEmpty(t, out)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestCertificateRendererRejectsEmptyStudentName(t *testing.T) {
	renderer := NewCertificateRenderer(IssuerInfo{})
	data := sampleData()
	data.StudentName = "  "
	_, err := renderer.Render(data, time.Now())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCertificateRendererRejectsEmptyCourseTitle(t *testing.T) {
	renderer := NewCertificateRenderer(IssuerInfo{})
	data := sampleData()
	data.CourseTitle = ""
	_, err := renderer.Render(data, time.Now())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCertificateFilenameSlug(t *testing.T) {
	assert.Equal(t, "Certificate_PRC00042_full_stack_web_dev_.pdf", CertificateFilename("PRC00042", "Full Stack Web Dev!!"))
	assert.Equal(t, "Certificate_PRC00007_go_basics.pdf", CertificateFilename("PRC00007", "Go Basics"))
	assert.Equal(t, "Certificate_PRC12345_c_programming.pdf", CertificateFilename("PRC12345", "C++ Programming"))
}
