package export

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/lamemustafa/Fireflies.ai-Download-Utility/pkg/transcript"
)

// Document is everything the exporters need for one transcript.
type Document struct {
	Record    *transcript.Record
	Sentences []transcript.Sentence
	Summary   transcript.SummaryView
}

// NewDocument projects a record's sentences and segments its summary.
func NewDocument(rec *transcript.Record) *Document {
	return &Document{
		Record:    rec,
		Sentences: transcript.ProjectAll(rec.Sentences),
		Summary:   transcript.Segment(rec.Summary),
	}
}

// Exporter writes one artifact for a document.
type Exporter interface {
	// Name is the format name used in configuration and metrics.
	Name() string
	// Ext is the artifact extension, including the leading dot.
	Ext() string
	// Export writes the artifact at target.Path(Ext()).
	Export(doc *Document, target Target) error
}

// Format names.
const (
	FormatJSON    = "json"
	FormatSummary = "summary"
	FormatCSV     = "csv"
	FormatPDF     = "pdf"
	FormatDOCX    = "docx"
	FormatSRT     = "srt"
)

// All returns every exporter in their default run order.
func All() []Exporter {
	return []Exporter{
		JSONExporter{},
		SummaryExporter{},
		CSVExporter{},
		PDFExporter{},
		DOCXExporter{},
		SRTExporter{},
	}
}

// Names returns the format names of All in order.
func Names() []string {
	all := All()
	names := make([]string, len(all))
	for i, e := range all {
		names[i] = e.Name()
	}
	return names
}

// Select returns the exporters named in names, in default run order.
// An empty list selects all of them.
func Select(names []string) ([]Exporter, error) {
	if len(names) == 0 {
		return All(), nil
	}

	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if !IsFormat(n) {
			return nil, fmt.Errorf("unknown format %q (must be one of %s)", n, strings.Join(Names(), ", "))
		}
		wanted[n] = true
	}

	var out []Exporter
	for _, e := range All() {
		if wanted[e.Name()] {
			out = append(out, e)
		}
	}
	return out, nil
}

// IsFormat reports whether name is a known exporter format.
func IsFormat(name string) bool {
	for _, n := range Names() {
		if n == name {
			return true
		}
	}
	return false
}

// writeFile creates path and hands a buffered writer to fn. The file is
// flushed and closed on every return path; the first error wins.
func writeFile(path string, fn func(w io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}()

	bw := bufio.NewWriter(f)
	if err := fn(bw); err != nil {
		return err
	}
	return bw.Flush()
}
