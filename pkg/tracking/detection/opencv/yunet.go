// Package opencv implements face detection and 68-point landmarking with
// OpenCV's DNN module through gocv.
package opencv

import (
	"fmt"
	"image"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-gaze/internal/log"
	"github.com/teslashibe/go-gaze/pkg/tracking/detection"
)

// YuNet uses OpenCV's FaceDetectorYN for face detection
type YuNet struct {
	detector gocv.FaceDetectorYN
	config   detection.Config
	mu       sync.Mutex // Protects inference
}

var _ detection.Detector = (*YuNet)(nil)

// NewYuNet creates a YuNet face detector using GoCV's built-in FaceDetectorYN
func NewYuNet(cfg detection.Config) (*YuNet, error) {
	if _, err := os.Stat(cfg.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("model file not found: %s", cfg.ModelPath)
	}

	// Input size is updated per frame
	detector := gocv.NewFaceDetectorYNWithParams(
		cfg.ModelPath,
		"",
		image.Pt(cfg.InputWidth, cfg.InputHeight),
		float32(cfg.ConfidenceThresh),
		0.3,  // NMS threshold
		5000, // Top K
		int(gocv.NetBackendDefault),
		int(gocv.NetTargetCPU),
	)

	return &YuNet{detector: detector, config: cfg}, nil
}

// Detect finds faces in img. Boxes are in img pixel coordinates.
func (d *YuNet) Detect(img image.Image) ([]detection.Face, error) {
	mat, err := toMat(img)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	d.mu.Lock()
	defer d.mu.Unlock()

	d.detector.SetInputSize(image.Pt(mat.Cols(), mat.Rows()))

	faces := gocv.NewMat()
	defer faces.Close()
	d.detector.Detect(mat, &faces)

	// Offset back into img coordinates when the image does not start at 0,0
	off := img.Bounds().Min
	var out []detection.Face
	for r := 0; r < faces.Rows(); r++ {
		// YuNet output format (15 columns):
		// 0-3: x, y, w, h (bounding box in pixels)
		// 4-13: 5 facial landmarks (x,y pairs)
		// 14: face score
		out = append(out, detection.Face{
			X:          float64(faces.GetFloatAt(r, 0)) + float64(off.X),
			Y:          float64(faces.GetFloatAt(r, 1)) + float64(off.Y),
			W:          float64(faces.GetFloatAt(r, 2)),
			H:          float64(faces.GetFloatAt(r, 3)),
			Confidence: float64(faces.GetFloatAt(r, 14)),
		})
	}

	if len(out) > 1 {
		log.Debug("yunet found multiple faces", "count", len(out))
	}
	return out, nil
}

// Close releases the detector resources
func (d *YuNet) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.detector.Close()
	return nil
}

// toMat converts a frame to a BGR Mat. The caller closes it.
func toMat(img image.Image) (gocv.Mat, error) {
	if img == nil || img.Bounds().Empty() {
		return gocv.NewMat(), fmt.Errorf("empty image")
	}
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return mat, fmt.Errorf("convert image: %w", err)
	}
	if mat.Empty() {
		mat.Close()
		return gocv.NewMat(), fmt.Errorf("empty image")
	}
	return mat, nil
}
