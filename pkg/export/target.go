// Package export writes the artifact set for one transcript: the path scheme
// that keeps artifacts discoverable and the per-format writers.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/lamemustafa/Fireflies.ai-Download-Utility/pkg/transcript"
)

// Directory naming.
const (
	// DefaultDirName is used when a transcript has no meeting date.
	DefaultDirName = "downloads"
	// UntitledStem replaces titles that sanitize to nothing.
	UntitledStem = "untitled"

	dateDirLayout = "2006-01-02"
	timeDirLayout = "15:04:05.000"
)

// Target is the resolved location of one transcript's artifacts.
type Target struct {
	// Dir is the directory holding every artifact.
	Dir string
	// Base is Dir joined with the title stem; artifacts are Base + extension.
	Base string
}

// Path returns the artifact path for the given extension (including the dot).
func (t Target) Path(ext string) string {
	return t.Base + ext
}

// Plan derives the target for a record without touching the filesystem.
// Dated records land in root/YYYY-MM-DD/HH:MM:SS.mmm, others in root/downloads.
func Plan(root string, rec *transcript.Record) Target {
	dir := filepath.Join(root, DefaultDirName)
	if ts, ok := rec.MeetingTime(); ok {
		dir = DatedDir(root, ts)
	}
	return Target{
		Dir:  dir,
		Base: filepath.Join(dir, SanitizeTitle(rec.Title)),
	}
}

// DatedDir returns root/YYYY-MM-DD/HH:MM:SS.mmm for a meeting instant in UTC.
func DatedDir(root string, ts time.Time) string {
	ts = ts.UTC()
	return filepath.Join(root, ts.Format(dateDirLayout), ts.Format(timeDirLayout))
}

// Resolve plans the target and creates its directory, including parents.
func Resolve(root string, rec *transcript.Record) (Target, error) {
	t := Plan(root, rec)
	if err := os.MkdirAll(t.Dir, 0o755); err != nil {
		return Target{}, fmt.Errorf("creating output directory: %w", err)
	}
	return t, nil
}

// SanitizeTitle makes a meeting title safe to use as a single path component.
// Separators, reserved and control characters become "_", leading dots are
// removed and the result is NFC-normalized.
func SanitizeTitle(title string) string {
	title = norm.NFC.String(strings.TrimSpace(title))

	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\':
			return '_'
		case strings.ContainsRune(`<>:"|?*`, r):
			return '_'
		case unicode.IsControl(r):
			return '_'
		}
		return r
	}, title)

	cleaned = strings.TrimLeft(cleaned, ".")
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return UntitledStem
	}
	return cleaned
}
