package layout

import (
	"fmt"
	"math"

	"github.com/DoyleJ11/seatbus-monitor/internal/occupancy"
)

const (
	// StatusOffset pushes the status text below the seat centre, as a
	// fraction of seat height.
	StatusOffset = 0.08

	numberInsetMin   = 8.0
	numberInsetRatio = 0.03
	numberTopRatio   = 0.12
)

// SeatOverlay is everything a renderer needs to draw one seat on top of the
// vehicle image, in container pixels.
type SeatOverlay struct {
	Index        int    `json:"index"`
	Label        string `json:"label"`
	Occupied     bool   `json:"occupied"`
	Rect         Rect   `json:"rect"`
	NumberAnchor Point  `json:"number_anchor"`
	StatusAnchor Point  `json:"status_anchor"`
}

// Overlay projects the layout onto a width x height container and marks
// each seat from seats (index-aligned; missing entries count as free).
func (l *Layout) Overlay(seats []int, width, height float64) ([]SeatOverlay, error) {
	if err := checkContainer(width, height); err != nil {
		return nil, err
	}

	rects := l.Rects()
	out := make([]SeatOverlay, len(rects))
	for i, n := range rects {
		label, err := l.labels.Label(i)
		if err != nil {
			return nil, fmt.Errorf("seat %d: %w", i, err)
		}
		a := ToAbsolute(n, width, height)
		out[i] = SeatOverlay{
			Index:    i,
			Label:    label,
			Occupied: i < len(seats) && seats[i] == occupancy.SeatOccupied,
			Rect:     a,
			NumberAnchor: Point{
				X: a.X + math.Max(numberInsetMin, a.W*numberInsetRatio),
				Y: a.Y + a.H*numberTopRatio,
			},
			StatusAnchor: Point{
				X: a.X + a.W/2,
				Y: a.Y + a.H*(0.5+StatusOffset),
			},
		}
	}
	return out, nil
}
