package layout

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	ErrSizeMismatch    = errors.New("layout and labels disagree on seat count")
	ErrRectOutOfBounds = errors.New("seat rect must lie within the image")
)

var validate = validator.New()

// Seat is one entry of the layout as exposed to renderers and editors.
type Seat struct {
	Index int    `json:"index"`
	Label string `json:"label"`
	Rect  Rect   `json:"rect"`
}

// Layout holds the normalized seat rectangles and their labels. It is read
// by every renderer and written only by edit sessions; concurrent edits are
// last-writer-wins.
type Layout struct {
	mu     sync.RWMutex
	rects  []Rect
	labels LabelMap
}

func New(rects []Rect, labels LabelMap) (*Layout, error) {
	if len(rects) != labels.Len() {
		return nil, fmt.Errorf("%w: %d rects, %d labels", ErrSizeMismatch, len(rects), labels.Len())
	}
	return &Layout{
		rects:  append([]Rect(nil), rects...),
		labels: labels,
	}, nil
}

func (l *Layout) Len() int { return l.labels.Len() }

func (l *Layout) Label(index int) (string, error) { return l.labels.Label(index) }

func (l *Layout) Rect(index int) (Rect, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if err := l.checkIndex(index); err != nil {
		return Rect{}, err
	}
	return l.rects[index], nil
}

// Rects returns a copy of the normalized rectangles in index order.
func (l *Layout) Rects() []Rect {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Rect(nil), l.rects...)
}

func (l *Layout) Seats() []Seat {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Seat, len(l.rects))
	for i, r := range l.rects {
		label, _ := l.labels.Label(i)
		out[i] = Seat{Index: i, Label: label, Rect: r}
	}
	return out
}

// SetRect replaces a normalized rect. Rects outside the unit square are
// rejected so the layout always loads back from config.
func (l *Layout) SetRect(index int, r Rect) error {
	if err := checkRect(r); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.checkIndex(index); err != nil {
		return err
	}
	l.rects[index] = r
	return nil
}

// SetAbsolute stores a rect given in container pixels, as produced by a
// drag in an editor, and returns its normalized form.
func (l *Layout) SetAbsolute(index int, abs Rect, width, height float64) (Rect, error) {
	n, err := ToNormalized(abs, width, height)
	if err != nil {
		return Rect{}, err
	}
	if err := l.SetRect(index, n); err != nil {
		return Rect{}, err
	}
	return n, nil
}

// Move shifts a seat by a pixel delta measured in a width x height
// container. Size is left unchanged and the seat stays on the image.
func (l *Layout) Move(index int, dx, dy, width, height float64) (Rect, error) {
	if err := checkContainer(width, height); err != nil {
		return Rect{}, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.checkIndex(index); err != nil {
		return Rect{}, err
	}
	r := l.rects[index]
	r.X = clamp(r.X+dx/width, 0, 1-r.W)
	r.Y = clamp(r.Y+dy/height, 0, 1-r.H)
	l.rects[index] = r
	return r, nil
}

func (l *Layout) checkIndex(index int) error {
	if index < 0 || index >= len(l.rects) {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	return nil
}

func checkRect(r Rect) error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("%w: %v", ErrRectOutOfBounds, err)
	}
	return nil
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}
