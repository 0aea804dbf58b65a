package transcript

import "strconv"

// Sentence is the normalized form of a RawSentence used by every exporter.
// Its JSON form is the five-key object written to <base>.json.
type Sentence struct {
	Text        string `json:"sentence"`
	StartTime   string `json:"startTime"`
	EndTime     string `json:"endTime"`
	SpeakerName string `json:"speaker_name"`
	SpeakerID   int    `json:"speaker_id"`

	// Subtitle-only fields.
	RawText       string `json:"-"`
	SubtitleStart string `json:"-"`
	SubtitleEnd   string `json:"-"`
}

// Columns lists the tabular column names in the order of the JSON keys.
var Columns = []string{"sentence", "startTime", "endTime", "speaker_name", "speaker_id"}

// Row returns the sentence's values in Columns order.
func (s Sentence) Row() []string {
	return []string{s.Text, s.StartTime, s.EndTime, s.SpeakerName, strconv.Itoa(s.SpeakerID)}
}

// SpeakerLabel resolves the display name of a speaker. Anonymous speakers are
// numbered from 1 even though ids are stored 0-based.
func SpeakerLabel(name string, id int) string {
	if name != "" {
		return name
	}
	return "Speaker " + strconv.Itoa(id+1)
}

// Project maps one raw sentence to its normalized form. It never fails: missing
// text simply yields an empty field.
func Project(raw RawSentence) Sentence {
	return Sentence{
		Text:          raw.Text,
		StartTime:     FormatClock(raw.StartTime),
		EndTime:       FormatClock(raw.EndTime),
		SpeakerName:   SpeakerLabel(raw.SpeakerName, raw.SpeakerID),
		SpeakerID:     raw.SpeakerID,
		RawText:       raw.RawText,
		SubtitleStart: FormatSubtitleClock(raw.StartTime),
		SubtitleEnd:   FormatSubtitleClock(raw.EndTime),
	}
}

// ProjectAll projects a sentence sequence, preserving order.
func ProjectAll(raws []RawSentence) []Sentence {
	out := make([]Sentence, 0, len(raws))
	for _, raw := range raws {
		out = append(out, Project(raw))
	}
	return out
}
