package transcript

import "strings"

// Clock layouts.
const (
	clockLayout    = "04:05"
	subtitleLayout = "15:04:05.000"
)

// FormatClock renders seconds as minute:second, e.g. 125 -> "02:05".
// The value is read as an instant in UTC, so hours wrap away. It shares the
// millisecond rounding of FormatSubtitleClock and then drops the fraction, so
// both clocks always agree on the second.
func FormatClock(seconds float64) string {
	return ToTime(seconds, Seconds).Format(clockLayout)
}

// FormatSubtitleClock renders seconds as hour:minute:second,millisecond,
// e.g. 3725.25 -> "01:02:05,250". The comma separator is what SRT players expect.
func FormatSubtitleClock(seconds float64) string {
	s := ToTime(seconds, Seconds).Format(subtitleLayout)
	if i := strings.LastIndexByte(s, '.'); i >= 0 {
		s = s[:i] + "," + s[i+1:]
	}
	return s
}
