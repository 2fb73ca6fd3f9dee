package export

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	appErrors "github.com/prisma-institute/portal-api/pkg/errors"
)

// CertificateData is the input for rendering one certificate. It is a
// plain value assembled by the caller; the renderer never touches the
// record store and does not check approval state.
type CertificateData struct {
	StudentName       string
	CourseTitle       string
	CourseDescription string
	CompletionDate    string
	CertificateID     string
	CourseDuration    string
}

// IssuerInfo identifies the institution printed on every certificate.
type IssuerInfo struct {
	Name      string
	City      string
	Signatory string
}

// CertificateRenderer produces printable certificate PDFs.
type CertificateRenderer struct {
	issuer IssuerInfo
}

// NewCertificateRenderer constructs a renderer with the given issuer block.
func NewCertificateRenderer(issuer IssuerInfo) *CertificateRenderer {
	if issuer.Name == "" {
		issuer.Name = "Prisma Institute of Computer Technology"
	}
	return &CertificateRenderer{issuer: issuer}
}

// Render produces a single-page A4 portrait certificate. issuedAt is only
// used for the footer timestamp so output stays a pure function of its
// arguments.
func (r *CertificateRenderer) Render(data CertificateData, issuedAt time.Time) ([]byte, error) {
	if strings.TrimSpace(data.StudentName) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student name is required")
	}
	if strings.TrimSpace(data.CourseTitle) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "course title is required")
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(18, 20, 18)
	pdf.AddPage()

	// Double border frame.
	pdf.SetLineWidth(1.2)
	pdf.Rect(8, 8, 194, 281, "D")
	pdf.SetLineWidth(0.3)
	pdf.Rect(11, 11, 188, 275, "D")

	pdf.SetFont("Times", "B", 16)
	pdf.CellFormat(0, 12, r.issuer.Name, "", 1, "C", false, 0, "")
	if r.issuer.City != "" {
		pdf.SetFont("Times", "I", 11)
		pdf.CellFormat(0, 6, r.issuer.City, "", 1, "C", false, 0, "")
	}
	pdf.Ln(10)

	pdf.SetFont("Times", "B", 28)
	pdf.CellFormat(0, 16, "Certificate of Completion", "", 1, "C", false, 0, "")
	pdf.Ln(8)

	pdf.SetFont("Times", "", 13)
	pdf.CellFormat(0, 8, "This is to certify that", "", 1, "C", false, 0, "")
	pdf.SetFont("Times", "B", 20)
	pdf.CellFormat(0, 12, data.StudentName, "", 1, "C", false, 0, "")
	pdf.SetFont("Times", "", 13)
	pdf.CellFormat(0, 8, "has successfully completed the course", "", 1, "C", false, 0, "")
	pdf.SetFont("Times", "B", 16)
	pdf.CellFormat(0, 10, fmt.Sprintf("%q", data.CourseTitle), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	if data.CourseDescription != "" {
		pdf.SetFont("Times", "", 11)
		pdf.MultiCell(0, 6, data.CourseDescription, "", "C", false)
		pdf.Ln(4)
	}

	// Two-column details block.
	pdf.SetFont("Times", "B", 11)
	pdf.CellFormat(87, 8, "Completion Date", "1", 0, "C", false, 0, "")
	pdf.CellFormat(87, 8, "Certificate ID", "1", 1, "C", false, 0, "")
	pdf.SetFont("Times", "", 11)
	pdf.CellFormat(87, 8, data.CompletionDate, "1", 0, "C", false, 0, "")
	pdf.CellFormat(87, 8, data.CertificateID, "1", 1, "C", false, 0, "")
	pdf.Ln(4)

	if data.CourseDuration != "" {
		pdf.SetFont("Times", "", 11)
		pdf.CellFormat(0, 7, fmt.Sprintf("Course Duration: %s", data.CourseDuration), "", 1, "C", false, 0, "")
	}
	pdf.Ln(18)

	pdf.SetFont("Times", "B", 12)
	pdf.CellFormat(0, 7, r.issuer.Signatory, "", 1, "C", false, 0, "")
	pdf.SetFont("Times", "", 11)
	pdf.CellFormat(0, 6, r.issuer.Name, "", 1, "C", false, 0, "")

	pdf.SetY(-28)
	pdf.SetFont("Times", "I", 9)
	pdf.CellFormat(0, 6, fmt.Sprintf("Issued on %s", issuedAt.Format("02 Jan 2006 15:04 MST")), "", 1, "C", false, 0, "")

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render certificate: %w", err)
	}
	return buf.Bytes(), nil
}

var slugRuns = regexp.MustCompile(`[^a-z0-9]+`)

// CertificateFilename builds the canonical download name:
// Certificate_<id>_<course slug>.pdf where the slug is the lowercased
// title with every non-alphanumeric run collapsed to one underscore.
func CertificateFilename(certificateID, courseTitle string) string {
	slug := slugRuns.ReplaceAllString(strings.ToLower(courseTitle), "_")
	return fmt.Sprintf("Certificate_%s_%s.pdf", certificateID, slug)
}
