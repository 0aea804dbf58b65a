package export

import (
	"fmt"

	"baliance.com/gooxml/document"
)

// DOCXExporter writes a flow document to <base>.docx with one paragraph per
// sentence: bold start time, speaker label and text on separate lines.
// The whole document is saved again after every appended sentence.
type DOCXExporter struct{}

func (DOCXExporter) Name() string { return FormatDOCX }
func (DOCXExporter) Ext() string  { return ".docx" }

func (e DOCXExporter) Export(doc *Document, target Target) error {
	path := target.Path(e.Ext())
	d := document.New()

	for _, s := range doc.Sentences {
		para := d.AddParagraph()

		start := para.AddRun()
		start.Properties().SetBold(true)
		start.AddText(s.StartTime)
		start.AddBreak()

		speaker := para.AddRun()
		speaker.AddText(s.SpeakerName)
		speaker.AddBreak()

		para.AddRun().AddText(s.Text)

		if err := writeFile(path, d.Save); err != nil {
			return fmt.Errorf("writing docx: %w", err)
		}
	}

	if len(doc.Sentences) == 0 {
		if err := writeFile(path, d.Save); err != nil {
			return fmt.Errorf("writing docx: %w", err)
		}
	}
	return nil
}
