// Package media downloads a transcript's audio and video as-is.
package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/lamemustafa/Fireflies.ai-Download-Utility/pkg/buildinfo"
)

// Kind identifies a media artifact.
type Kind struct {
	Name string
	Ext  string
}

var (
	Audio = Kind{Name: "audio", Ext: ".mp3"}
	Video = Kind{Name: "video", Ext: ".mp4"}
)

// Kinds lists media kinds in download order.
var Kinds = []Kind{Audio, Video}

// Options configures a Downloader.
type Options struct {
	// RetryMax is the number of retries for transient failures.
	RetryMax int
	// Timeout bounds a single download attempt; zero means no limit.
	Timeout time.Duration
	// UserAgent overrides the default User-Agent header.
	UserAgent string
	// HTTPClient replaces the underlying client, mostly for tests.
	HTTPClient *http.Client
}

// Downloader copies remote media to local files.
type Downloader struct {
	client    *retryablehttp.Client
	userAgent string
}

// NewDownloader creates a downloader.
func NewDownloader(opts Options) *Downloader {
	rc := retryablehttp.NewClient()
	rc.Logger = nil
	rc.RetryMax = opts.RetryMax
	rc.RetryWaitMin = 500 * time.Millisecond
	rc.RetryWaitMax = 10 * time.Second
	if opts.HTTPClient != nil {
		rc.HTTPClient = opts.HTTPClient
	}
	if opts.Timeout > 0 {
		rc.HTTPClient.Timeout = opts.Timeout
	}

	ua := opts.UserAgent
	if ua == "" {
		ua = buildinfo.UserAgent()
	}
	return &Downloader{client: rc, userAgent: ua}
}

// Download streams url into path and returns the number of bytes written.
// A failed download removes the partial file.
func (d *Downloader) Download(ctx context.Context, url, path string) (n int64, err error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("building media request: %w", err)
	}
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("downloading media: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("downloading media: unexpected status %d", resp.StatusCode)
	}

	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("creating media file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("closing media file: %w", cerr)
		}
		if err != nil {
			_ = os.Remove(path)
		}
	}()

	n, err = io.Copy(f, resp.Body)
	if err != nil {
		return n, fmt.Errorf("writing media file: %w", err)
	}
	return n, nil
}
