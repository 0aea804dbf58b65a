package export

import (
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/sfnt"
)

// Page layout in points.
const (
	pdfFontFamily = "GoFont"
	pdfFontSize   = 12
	pdfLineHeight = 14
	pdfBlockGap   = 10
)

// pdfFace answers glyph coverage for the embedded fonts. The Go fonts share
// one character set (WGL4: Latin, Greek, Cyrillic), so the regular face
// stands in for all three styles.
var pdfFace, pdfFaceErr = sfnt.Parse(goregular.TTF)

// PDFExporter writes a paginated document to <base>.pdf. Each sentence is a
// block of "<speaker> - <start>" (italic speaker, bold time) over its text.
//
// Text is set in the embedded UTF-8 Go fonts. Characters they do not cover,
// such as CJK ideographs, are written as "[U+XXXX]" so nothing is dropped
// without a trace; the other artifacts keep the original text.
type PDFExporter struct{}

func (PDFExporter) Name() string { return FormatPDF }
func (PDFExporter) Ext() string  { return ".pdf" }

func (e PDFExporter) Export(doc *Document, target Target) error {
	if pdfFaceErr != nil {
		return fmt.Errorf("loading pdf font: %w", pdfFaceErr)
	}

	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.AddUTF8FontFromBytes(pdfFontFamily, "", goregular.TTF)
	pdf.AddUTF8FontFromBytes(pdfFontFamily, "I", goitalic.TTF)
	pdf.AddUTF8FontFromBytes(pdfFontFamily, "B", gobold.TTF)
	pdf.SetTitle(doc.title(), true)
	pdf.AddPage()

	var buf sfnt.Buffer
	for _, s := range doc.Sentences {
		pdf.Ln(pdfBlockGap)

		pdf.SetFont(pdfFontFamily, "I", pdfFontSize)
		pdf.Write(pdfLineHeight, pdfText(&buf, s.SpeakerName))
		pdf.SetFont(pdfFontFamily, "", pdfFontSize)
		pdf.Write(pdfLineHeight, " - ")
		pdf.SetFont(pdfFontFamily, "B", pdfFontSize)
		pdf.Write(pdfLineHeight, s.StartTime)
		pdf.Ln(pdfLineHeight)

		pdf.SetFont(pdfFontFamily, "", pdfFontSize)
		pdf.MultiCell(0, pdfLineHeight, pdfText(&buf, s.Text), "", "L", false)
		pdf.Ln(pdfBlockGap)
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("rendering pdf: %w", err)
	}
	if err := writeFile(target.Path(e.Ext()), pdf.Output); err != nil {
		return fmt.Errorf("writing pdf: %w", err)
	}
	return nil
}

// pdfCovers reports whether the embedded fonts have a glyph for r.
func pdfCovers(buf *sfnt.Buffer, r rune) bool {
	idx, err := pdfFace.GlyphIndex(buf, r)
	return err == nil && idx != 0
}

// pdfText replaces characters the fonts lack with their code point.
// Control characters pass through for line breaking.
func pdfText(buf *sfnt.Buffer, s string) string {
	var b strings.Builder
	for _, r := range s {
		if r < 0x20 || pdfCovers(buf, r) {
			b.WriteRune(r)
			continue
		}
		fmt.Fprintf(&b, "[U+%04X]", r)
	}
	return b.String()
}

func (d *Document) title() string {
	if d.Record == nil {
		return ""
	}
	return d.Record.Title
}
