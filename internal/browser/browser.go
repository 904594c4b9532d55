package browser

import (
	"fmt"
	"io"

	pkgbrowser "github.com/pkg/browser"
)

// Opener launches something that displays url.
type Opener func(url string) error

// Open starts the system's default browser at url. Output from the launcher
// process is discarded so it does not interleave with the server's own lines.
func Open(url string) error {
	pkgbrowser.Stdout = io.Discard
	pkgbrowser.Stderr = io.Discard
	if err := pkgbrowser.OpenURL(url); err != nil {
		return fmt.Errorf("open browser at %s: %w", url, err)
	}
	return nil
}

func Noop(string) error { return nil }

// Recorder is an Opener that remembers the URLs it was asked to open.
type Recorder struct {
	URLs []string
	Err  error
}

func (r *Recorder) Open(url string) error {
	r.URLs = append(r.URLs, url)
	return r.Err
}
