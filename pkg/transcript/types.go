// Package transcript provides the normalized view of Fireflies transcript records
// that every exporter consumes: clock formatting, sentence projection, and
// segmentation of the free-form summary fields.
package transcript

import (
	"math"
	"time"
)

// Record is one meeting transcript as returned by the transcripts query.
type Record struct {
	ID             string        `json:"id" yaml:"id"`
	Title          string        `json:"title" yaml:"title"`
	Date           *float64      `json:"date,omitempty" yaml:"date,omitempty"` // epoch milliseconds
	Duration       float64       `json:"duration,omitempty" yaml:"duration,omitempty"`
	HostEmail      string        `json:"host_email,omitempty" yaml:"host_email,omitempty"`
	OrganizerEmail string        `json:"organizer_email,omitempty" yaml:"organizer_email,omitempty"`
	Participants   []string      `json:"participants,omitempty" yaml:"participants,omitempty"`
	TranscriptURL  string        `json:"transcript_url,omitempty" yaml:"transcript_url,omitempty"`
	AudioURL       string        `json:"audio_url,omitempty" yaml:"audio_url,omitempty"`
	VideoURL       string        `json:"video_url,omitempty" yaml:"video_url,omitempty"`
	Sentences      []RawSentence `json:"sentences" yaml:"sentences,omitempty"`
	Summary        *Summary      `json:"summary,omitempty" yaml:"summary,omitempty"`
}

// MeetingTime returns the meeting start instant in UTC.
// The second return value is false when the record carries no date.
func (r *Record) MeetingTime() (time.Time, bool) {
	if r == nil || r.Date == nil {
		return time.Time{}, false
	}
	return ToTime(*r.Date, Milliseconds), true
}

// RawSentence is one timed utterance as delivered by the API.
// StartTime and EndTime are offsets in seconds from the start of the meeting.
type RawSentence struct {
	Index       int     `json:"index" yaml:"index"`
	SpeakerName string  `json:"speaker_name,omitempty" yaml:"speaker_name,omitempty"`
	SpeakerID   int     `json:"speaker_id" yaml:"speaker_id"`
	Text        string  `json:"text" yaml:"text"`
	RawText     string  `json:"raw_text" yaml:"raw_text"`
	StartTime   float64 `json:"start_time" yaml:"start_time"`
	EndTime     float64 `json:"end_time" yaml:"end_time"`
}

// Summary holds the AI-generated summary fields. A nil field was absent upstream.
type Summary struct {
	Overview        *string  `json:"overview,omitempty" yaml:"overview,omitempty"`
	ActionItems     *string  `json:"action_items,omitempty" yaml:"action_items,omitempty"`
	Outline         *string  `json:"outline,omitempty" yaml:"outline,omitempty"`
	Notes           *string  `json:"notes,omitempty" yaml:"notes,omitempty"`
	ShorthandBullet *string  `json:"shorthand_bullet,omitempty" yaml:"shorthand_bullet,omitempty"`
	Keywords        []string `json:"keywords,omitempty" yaml:"keywords,omitempty"`
}

// Unit is the unit a numeric timestamp is expressed in.
type Unit int

const (
	// Seconds is used by sentence start/end offsets.
	Seconds Unit = iota
	// Milliseconds is used by the top-level meeting date.
	Milliseconds
)

// ToTime converts a numeric timestamp in the given unit to a UTC time.
// The value is rounded to the nearest millisecond.
func ToTime(v float64, unit Unit) time.Time {
	ms := v
	if unit == Seconds {
		ms = v * 1000
	}
	return time.UnixMilli(int64(math.Round(ms))).UTC()
}
