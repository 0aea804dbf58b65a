package export

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/lamemustafa/Fireflies.ai-Download-Utility/pkg/transcript"
)

// JSONExporter writes the normalized sentences as a JSON array to <base>.json.
type JSONExporter struct{}

func (JSONExporter) Name() string { return FormatJSON }
func (JSONExporter) Ext() string  { return ".json" }

func (e JSONExporter) Export(doc *Document, target Target) error {
	sentences := doc.Sentences
	if sentences == nil {
		sentences = []transcript.Sentence{}
	}
	if err := writeFile(target.Path(e.Ext()), encodeJSON(sentences)); err != nil {
		return fmt.Errorf("writing json: %w", err)
	}
	return nil
}

// SummaryExporter writes the segmented summary to <base>.summary.json, keyed
// by the section labels.
type SummaryExporter struct{}

func (SummaryExporter) Name() string { return FormatSummary }
func (SummaryExporter) Ext() string  { return ".summary.json" }

func (e SummaryExporter) Export(doc *Document, target Target) error {
	if err := writeFile(target.Path(e.Ext()), encodeJSON(doc.Summary)); err != nil {
		return fmt.Errorf("writing summary json: %w", err)
	}
	return nil
}

func encodeJSON(v interface{}) func(io.Writer) error {
	return func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
}
