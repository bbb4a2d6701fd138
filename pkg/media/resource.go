package media

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/m-mizutani/goerr/v2"
)

// Resource is a temporary playable file created from a blob. Sessions must
// release a resource when it is superseded by a new generation, on every
// failure path, and on teardown; Release is idempotent so callers can defer
// it unconditionally.
type Resource struct {
	path string

	mu       sync.Mutex
	released bool
}

var mimeExt = map[string]string{
	"audio/wav":  ".wav",
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"video/mp4":  ".mp4",
}

// NewResource writes the blob to a temporary file and returns a handle to it
func NewResource(blob *Blob) (*Resource, error) {
	ext := mimeExt[blob.MIMEType]
	if ext == "" {
		if idx := strings.IndexByte(blob.MIMEType, '/'); idx >= 0 {
			ext = "." + blob.MIMEType[idx+1:]
		}
	}

	f, err := os.CreateTemp("", "genstudio-*"+ext)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create playback file")
	}

	if _, err := f.Write(blob.Data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, goerr.Wrap(err, "failed to write playback file", goerr.V("path", f.Name()))
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return nil, goerr.Wrap(err, "failed to close playback file")
	}

	return &Resource{path: f.Name()}, nil
}

// Path returns the file path of the playable resource
func (r *Resource) Path() string {
	return r.path
}

// Name returns the base name of the resource file
func (r *Resource) Name() string {
	return filepath.Base(r.path)
}

// Release removes the temporary file. Safe to call more than once.
func (r *Resource) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released {
		return
	}
	r.released = true
	os.Remove(r.path)
}
