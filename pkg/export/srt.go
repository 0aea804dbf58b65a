package export

import (
	"fmt"
	"io"
)

// SRTExporter writes numbered subtitle cues to <base>.srt. Cue text is the
// unprocessed sentence text prefixed with the speaker label.
type SRTExporter struct{}

func (SRTExporter) Name() string { return FormatSRT }
func (SRTExporter) Ext() string  { return ".srt" }

func (e SRTExporter) Export(doc *Document, target Target) error {
	err := writeFile(target.Path(e.Ext()), func(w io.Writer) error {
		for i, s := range doc.Sentences {
			_, err := fmt.Fprintf(w, "%d\n%s --> %s\n%s: %s\n\n",
				i+1, s.SubtitleStart, s.SubtitleEnd, s.SpeakerName, s.RawText)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("writing srt: %w", err)
	}
	return nil
}
