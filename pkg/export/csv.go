package export

import (
	"encoding/csv"
	"fmt"
	"io"

	fferrors "github.com/lamemustafa/Fireflies.ai-Download-Utility/pkg/errors"
	"github.com/lamemustafa/Fireflies.ai-Download-Utility/pkg/transcript"
)

// CSVExporter writes one row per sentence to <base>.csv under a header of the
// sentence keys.
type CSVExporter struct{}

func (CSVExporter) Name() string { return FormatCSV }
func (CSVExporter) Ext() string  { return ".csv" }

// Export returns ErrNoSentences without creating a file when there is nothing
// to derive the header from.
func (e CSVExporter) Export(doc *Document, target Target) error {
	if len(doc.Sentences) == 0 {
		return fmt.Errorf("writing csv: %w", fferrors.ErrNoSentences)
	}

	err := writeFile(target.Path(e.Ext()), func(w io.Writer) error {
		cw := csv.NewWriter(w)
		if err := cw.Write(transcript.Columns); err != nil {
			return err
		}
		for _, s := range doc.Sentences {
			if err := cw.Write(s.Row()); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	})
	if err != nil {
		return fmt.Errorf("writing csv: %w", err)
	}
	return nil
}
