package transcript

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Section header labels, used verbatim as keys and headings in exports.
const (
	LabelOverview    = "AI meeting summary:"
	LabelActionItems = "Action items:"
	LabelOutline     = "Outline:"
	LabelNotes       = "Notes:"
)

// bulletMarker is removed wherever it occurs in outline and notes text.
const bulletMarker = "- "

// Section is one segmented summary field. Present is false when the source
// field was absent, which is distinct from a present field with no lines.
type Section struct {
	Label   string
	Lines   []string
	Present bool
}

// SummaryView is the segmented summary in its fixed section order.
type SummaryView struct {
	Overview    Section
	ActionItems Section
	Outline     Section
	Notes       Section
}

// Sections returns the four sections in export order.
func (v SummaryView) Sections() []Section {
	return []Section{v.Overview, v.ActionItems, v.Outline, v.Notes}
}

// rule turns one free-form field into lines.
type rule func(string) []string

// Segmentation rules per section.
var (
	overviewRule    rule = splitLines
	actionItemsRule rule = splitParagraphs
	outlineRule     rule = bulletList
	notesRule       rule = bulletList
)

// Segment splits the four summary fields into ordered line sequences.
// A nil summary yields four absent sections.
func Segment(s *Summary) SummaryView {
	if s == nil {
		s = &Summary{}
	}
	return SummaryView{
		Overview:    segment(LabelOverview, s.Overview, overviewRule),
		ActionItems: segment(LabelActionItems, s.ActionItems, actionItemsRule),
		Outline:     segment(LabelOutline, s.Outline, outlineRule),
		Notes:       segment(LabelNotes, s.Notes, notesRule),
	}
}

func segment(label string, field *string, r rule) Section {
	if field == nil {
		return Section{Label: label}
	}
	return Section{Label: label, Lines: r(*field), Present: true}
}

// splitLines splits on single newlines. Trailing empty lines are dropped,
// interior ones are kept.
func splitLines(s string) []string {
	return trimTrailingEmpty(strings.Split(s, "\n"))
}

// splitParagraphs splits on blank-line (double newline) boundaries.
func splitParagraphs(s string) []string {
	return trimTrailingEmpty(strings.Split(s, "\n\n"))
}

// bulletList strips every "- " marker, splits on newlines and drops empty lines.
func bulletList(s string) []string {
	parts := strings.Split(strings.ReplaceAll(s, bulletMarker, ""), "\n")
	lines := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			lines = append(lines, p)
		}
	}
	return lines
}

func trimTrailingEmpty(parts []string) []string {
	end := len(parts)
	for end > 0 && parts[end-1] == "" {
		end--
	}
	return parts[:end]
}

// MarshalJSON writes the four labels as keys in section order. Absent sections
// are written as null.
func (v SummaryView) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, sec := range v.Sections() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(sec.Label)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		var value interface{}
		if sec.Present {
			lines := sec.Lines
			if lines == nil {
				lines = []string{}
			}
			value = lines
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		buf.Write(raw)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
