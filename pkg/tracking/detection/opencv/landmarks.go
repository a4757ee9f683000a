package opencv

import (
	"fmt"
	"image"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-gaze/pkg/eye"
	"github.com/teslashibe/go-gaze/pkg/geom"
	"github.com/teslashibe/go-gaze/pkg/tracking/detection"
)

// LandmarkPoints is the number of points the landmark model regresses
const LandmarkPoints = 68

// LandmarkNet regresses the 68-point facial layout from a face crop with an
// ONNX model. The model takes a square RGB crop scaled to [0,1] and outputs
// 136 values: x,y pairs normalized to the crop.
type LandmarkNet struct {
	net    gocv.Net
	config detection.Config
	mu     sync.Mutex
}

var _ detection.Landmarker = (*LandmarkNet)(nil)

// NewLandmarkNet loads the landmark model
func NewLandmarkNet(cfg detection.Config) (*LandmarkNet, error) {
	if _, err := os.Stat(cfg.LandmarkModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("model file not found: %s", cfg.LandmarkModelPath)
	}

	net := gocv.ReadNetFromONNX(cfg.LandmarkModelPath)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load landmark model from %s", cfg.LandmarkModelPath)
	}
	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	return &LandmarkNet{net: net, config: cfg}, nil
}

// Landmarks returns the 68 landmarks of face in img pixel coordinates.
func (l *LandmarkNet) Landmarks(img image.Image, face detection.Face) (eye.LandmarkSet, error) {
	crop := cropBox(face, l.config.FaceMargin, img.Bounds())
	if crop.Dx() < 2 || crop.Dy() < 2 {
		return nil, fmt.Errorf("%w: face box %v outside frame", detection.ErrNoLandmarks, face)
	}

	mat, err := toMat(img)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	// Mat coordinates start at 0,0
	local := crop.Sub(img.Bounds().Min)
	roi := mat.Region(local)
	defer roi.Close()

	size := image.Pt(l.config.LandmarkInputSize, l.config.LandmarkInputSize)
	blob := gocv.BlobFromImage(roi, 1.0/255.0, size, gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.net.SetInput(blob, "")
	output := l.net.Forward("")
	defer output.Close()

	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read landmark output: %w", err)
	}
	return decodeLandmarks(data, crop)
}

// Close releases the model
func (l *LandmarkNet) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.net.Close()
}

// cropBox grows the face box by margin on each side and clips it to bounds.
func cropBox(face detection.Face, margin float64, bounds image.Rectangle) image.Rectangle {
	grown := detection.Face{
		X: face.X - face.W*margin,
		Y: face.Y - face.H*margin,
		W: face.W * (1 + 2*margin),
		H: face.H * (1 + 2*margin),
	}
	return grown.Rect(bounds)
}

// decodeLandmarks maps crop-normalized model output to image coordinates.
func decodeLandmarks(data []float32, crop image.Rectangle) (eye.LandmarkSet, error) {
	if len(data) < 2*LandmarkPoints {
		return nil, fmt.Errorf("%w: model produced %d values", detection.ErrNoLandmarks, len(data))
	}
	w, h := float64(crop.Dx()), float64(crop.Dy())
	set := make(eye.LandmarkSet, LandmarkPoints)
	for i := range LandmarkPoints {
		set[i] = geom.Point{
			X: float64(crop.Min.X) + float64(data[2*i])*w,
			Y: float64(crop.Min.Y) + float64(data[2*i+1])*h,
		}
	}
	return set, nil
}
