package artifact

import (
	"bytes"
	"context"
	"fmt"
	"strings"
)

// PDFRenderer assembles a single-page PDF 1.4 document with the certificate
// text and the verification URL. The layout is deliberately simple; richer
// template-driven rendering lives behind the same Renderer port.
type PDFRenderer struct{}

func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{}
}

func (r *PDFRenderer) Render(_ context.Context, doc Document) ([]byte, error) {
	if doc.SerialNumber == "" {
		return nil, fmt.Errorf("document has no serial number")
	}

	content := buildContentStream(doc)
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 842 595] /Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >> >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xrefStart := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, offset := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offset)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n",
		len(objects)+1, xrefStart)
	return buf.Bytes(), nil
}

func buildContentStream(doc Document) string {
	lines := []struct {
		size int
		y    int
		text string
	}{
		{24, 480, "Certificate of Attendance"},
		{18, 420, doc.RecipientName},
		{14, 370, doc.EventTitle},
		{12, 330, doc.EventDate.Format("2 January 2006")},
		{12, 290, fmt.Sprintf("%.1f CME credit hours", doc.CMEHours)},
		{10, 120, "Serial: " + doc.SerialNumber},
		{8, 95, "Verify at: " + doc.VerificationURL},
	}

	var b strings.Builder
	for _, line := range lines {
		if line.text == "" {
			continue
		}
		fmt.Fprintf(&b, "BT /F1 %d Tf 80 %d Td (%s) Tj ET\n",
			line.size, line.y, escapePDFText(line.text))
	}
	return b.String()
}

// escapePDFText escapes the delimiters of a PDF literal string.
func escapePDFText(s string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return replacer.Replace(s)
}
