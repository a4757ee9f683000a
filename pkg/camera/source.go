package camera

import (
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
)

// Source yields frames one at a time. NextFrame returns io.EOF at the end of
// a finite stream; any other error wraps ErrCaptureUnavailable.
type Source interface {
	NextFrame(ctx context.Context) (image.Image, error)
	Close() error
}

// Opener opens the source named by a device selector.
type Opener func(device string) (Source, error)

var imageExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".bmp": true, ".gif": true, ".tif": true, ".tiff": true}

// DirSource replays the still images of a directory in name order. It is
// used for headless runs and for reproducing tracking sessions.
type DirSource struct {
	files []string
	loop  bool

	mu   sync.Mutex
	next int
}

// OpenDir lists the images under dir.
func OpenDir(dir string, loop bool) (*DirSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCaptureUnavailable, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !imageExts[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no images in %s", ErrCaptureUnavailable, dir)
	}
	slices.Sort(files)
	return &DirSource{files: files, loop: loop}, nil
}

// Len returns the number of frames in one pass.
func (d *DirSource) Len() int {
	return len(d.files)
}

// NextFrame decodes the next image.
func (d *DirSource) NextFrame(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	if d.next >= len(d.files) {
		if !d.loop {
			d.mu.Unlock()
			return nil, io.EOF
		}
		d.next = 0
	}
	path := d.files[d.next]
	d.next++
	d.mu.Unlock()

	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrCaptureUnavailable, filepath.Base(path), err)
	}
	return img, nil
}

// Close is a no-op.
func (d *DirSource) Close() error {
	return nil
}

// Preprocessed applies Preprocess to every frame of src.
type Preprocessed struct {
	Source
	cfg Config
}

// WithPreprocess wraps src so that frames are mirrored and resized per cfg.
func WithPreprocess(src Source, cfg Config) Source {
	if !cfg.Mirror && cfg.ProcessWidth == 0 {
		return src
	}
	return &Preprocessed{Source: src, cfg: cfg}
}

// NextFrame returns the next preprocessed frame.
func (p *Preprocessed) NextFrame(ctx context.Context) (image.Image, error) {
	img, err := p.Source.NextFrame(ctx)
	if err != nil {
		return nil, err
	}
	return Preprocess(img, p.cfg), nil
}
