// Package layout maps seat indices onto an image of the vehicle: seat
// rectangles are stored normalized to the unit square and projected onto
// whatever container size the renderer is using.
package layout

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrIndexOutOfRange = errors.New("seat index out of range")
	ErrBadContainer    = errors.New("container dimensions must be positive")
)

// Rect is a seat bounding box. Normalized rects use fractions of the
// container, absolute rects use pixels.
type Rect struct {
	X float64 `json:"x" yaml:"x" validate:"gte=0,lte=1"`
	Y float64 `json:"y" yaml:"y" validate:"gte=0,lte=1"`
	W float64 `json:"w" yaml:"w" validate:"gt=0,lte=1"`
	H float64 `json:"h" yaml:"h" validate:"gt=0,lte=1"`
}

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ToAbsolute scales a normalized rect to a width x height container.
func ToAbsolute(r Rect, width, height float64) Rect {
	return Rect{
		X: r.X * width,
		Y: r.Y * height,
		W: r.W * width,
		H: r.H * height,
	}
}

// ToNormalized is the inverse of ToAbsolute.
func ToNormalized(r Rect, width, height float64) (Rect, error) {
	if err := checkContainer(width, height); err != nil {
		return Rect{}, err
	}
	return Rect{
		X: r.X / width,
		Y: r.Y / height,
		W: r.W / width,
		H: r.H / height,
	}, nil
}

func checkContainer(width, height float64) error {
	// written this way so NaN fails too
	if !(width > 0) || !(height > 0) || math.IsInf(width, 0) || math.IsInf(height, 0) {
		return fmt.Errorf("%w: %vx%v", ErrBadContainer, width, height)
	}
	return nil
}
