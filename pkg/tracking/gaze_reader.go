package tracking

import (
	"context"

	"github.com/teslashibe/go-gaze/pkg/eye"
	"github.com/teslashibe/go-gaze/pkg/geom"
	"github.com/teslashibe/go-gaze/pkg/tracking/detection"
)

// GazeReader pulls one live raw gaze estimate per call, reading a frame from
// the source each time. It is the calibration engine's gaze source.
type GazeReader struct {
	source   FrameSource
	provider LandmarkProvider
	layout   eye.Layout
}

// NewGazeReader creates a reader over source and provider.
func NewGazeReader(source FrameSource, provider LandmarkProvider, layout eye.Layout) *GazeReader {
	return &GazeReader{source: source, provider: provider, layout: layout}
}

// Gaze returns the raw gaze point of the next frame, or eye.ErrDetectionAbsent
// when that frame has no usable eyes. Frame source errors are returned as is.
func (g *GazeReader) Gaze(ctx context.Context) (geom.Point, error) {
	frame, err := g.source.NextFrame(ctx)
	if err != nil {
		return geom.Point{}, err
	}
	faces, err := g.provider.DetectFaces(frame)
	if err != nil {
		return geom.Point{}, eye.ErrDetectionAbsent
	}
	face := detection.SelectBest(faces)
	if face == nil {
		return geom.Point{}, eye.ErrDetectionAbsent
	}
	set, err := g.provider.Landmarks(frame, *face)
	if err != nil {
		return geom.Point{}, eye.ErrDetectionAbsent
	}
	p, ok := eye.GazePoint(g.layout.Regions(set))
	if !ok {
		return geom.Point{}, eye.ErrDetectionAbsent
	}
	return p, nil
}
