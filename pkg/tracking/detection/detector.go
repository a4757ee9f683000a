// Package detection defines the face and landmark detection contract used by
// the tracking pipeline. The OpenCV implementation lives in detection/opencv.
package detection

import (
	"errors"
	"image"

	"github.com/teslashibe/go-gaze/pkg/eye"
)

// ErrNoLandmarks is returned when a face was found but its landmarks could not be located.
var ErrNoLandmarks = errors.New("detection: no landmarks")

// Face is a detected face bounding box in image pixels
type Face struct {
	X, Y       float64 // Top-left corner
	W, H       float64 // Width and height
	Confidence float64 // Detection confidence (0-1)
}

// Center returns the center point of the face box
func (f Face) Center() (x, y float64) {
	return f.X + f.W/2, f.Y + f.H/2
}

// Area returns the area of the bounding box
func (f Face) Area() float64 {
	return f.W * f.H
}

// Rect returns the box as an integer rectangle clipped to bounds.
func (f Face) Rect(bounds image.Rectangle) image.Rectangle {
	r := image.Rect(int(f.X), int(f.Y), int(f.X+f.W+0.5), int(f.Y+f.H+0.5))
	return r.Intersect(bounds)
}

// Detector finds faces in a frame
type Detector interface {
	Detect(img image.Image) ([]Face, error)
	Close() error
}

// Landmarker locates the ordered facial landmarks inside one face box
type Landmarker interface {
	Landmarks(img image.Image, face Face) (eye.LandmarkSet, error)
	Close() error
}

// Provider combines a detector and a landmarker into the per-frame
// landmark source the pipeline consumes.
type Provider struct {
	Detector   Detector
	Landmarker Landmarker
}

// DetectFaces finds every face in img.
func (p Provider) DetectFaces(img image.Image) ([]Face, error) {
	return p.Detector.Detect(img)
}

// Landmarks locates the landmarks of face in img.
func (p Provider) Landmarks(img image.Image, face Face) (eye.LandmarkSet, error) {
	return p.Landmarker.Landmarks(img, face)
}

// Close releases both models.
func (p Provider) Close() error {
	return errors.Join(p.Detector.Close(), p.Landmarker.Close())
}

// Config holds detector configuration
type Config struct {
	ModelPath        string  // Path to the face detection ONNX model
	ConfidenceThresh float64 // Minimum confidence (default 0.6)
	InputWidth       int     // Detector input width
	InputHeight      int     // Detector input height

	LandmarkModelPath string  // Path to the 68-point landmark ONNX model
	LandmarkInputSize int     // Square landmark model input
	FaceMargin        float64 // Fraction the face box is grown by before landmarking
}

// DefaultConfig returns production defaults for YuNet plus a 68-point landmark net
func DefaultConfig() Config {
	return Config{
		ModelPath:         "models/face_detection_yunet.onnx",
		ConfidenceThresh:  0.6,
		InputWidth:        320,
		InputHeight:       320,
		LandmarkModelPath: "models/face_landmarks_68.onnx",
		LandmarkInputSize: 112,
		FaceMargin:        0.1,
	}
}

// SelectBest picks the face to track when several are visible.
// Priority: confidence * 0.7 + relative area * 0.3
func SelectBest(faces []Face) *Face {
	if len(faces) == 0 {
		return nil
	}

	if len(faces) == 1 {
		return &faces[0]
	}

	// Find max area for normalization
	maxArea := 0.0
	for _, f := range faces {
		if f.Area() > maxArea {
			maxArea = f.Area()
		}
	}

	bestScore := -1.0
	var best *Face

	for i := range faces {
		score := faces[i].Confidence * 0.7
		if maxArea > 0 {
			score += (faces[i].Area() / maxArea) * 0.3
		}
		if score > bestScore {
			bestScore = score
			best = &faces[i]
		}
	}

	return best
}
