package camera

import (
	"image"

	"github.com/disintegration/imaging"
)

// Preprocess mirrors and downsizes a frame per cfg. Images narrower than
// ProcessWidth are left at their size.
func Preprocess(img image.Image, cfg Config) image.Image {
	out := img
	if cfg.ProcessWidth > 0 && img.Bounds().Dx() > cfg.ProcessWidth {
		out = imaging.Resize(out, cfg.ProcessWidth, 0, imaging.Linear)
	}
	if cfg.Mirror {
		out = imaging.FlipH(out)
	}
	return out
}
