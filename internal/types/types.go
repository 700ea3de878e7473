package types

import (
	"github.com/DoyleJ11/seatbus-monitor/internal/layout"
	"github.com/DoyleJ11/seatbus-monitor/internal/occupancy"
)

// ServerMessage is pushed to live viewers over the websocket.
type ServerMessage struct {
	Type     string              `json:"type"` // "Snapshot" | "Error"
	Version  int                 `json:"version,omitempty"`
	Snapshot *occupancy.Snapshot `json:"snapshot,omitempty"`
	Error    string              `json:"error,omitempty"`
}

type OKResponse struct {
	OK bool `json:"ok"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// HistoryResponse lists samples oldest to newest.
type HistoryResponse struct {
	Samples []occupancy.Snapshot `json:"samples"`
}

type LayoutResponse struct {
	Seats []layout.Seat `json:"seats"`
}

type OverlayResponse struct {
	Width     float64              `json:"width"`
	Height    float64              `json:"height"`
	Timestamp occupancy.Timestamp  `json:"timestamp"`
	Count     int                  `json:"count"`
	Seats     []layout.SeatOverlay `json:"seats"`
}

// SeatEditRequest carries a dragged seat in container pixels.
type SeatEditRequest struct {
	X               float64 `json:"x"`
	Y               float64 `json:"y"`
	W               float64 `json:"w" validate:"gt=0"`
	H               float64 `json:"h" validate:"gt=0"`
	ContainerWidth  float64 `json:"container_width" validate:"gt=0"`
	ContainerHeight float64 `json:"container_height" validate:"gt=0"`
}

// SeatMoveRequest carries a drag delta in container pixels.
type SeatMoveRequest struct {
	DX              float64 `json:"dx"`
	DY              float64 `json:"dy"`
	ContainerWidth  float64 `json:"container_width" validate:"gt=0"`
	ContainerHeight float64 `json:"container_height" validate:"gt=0"`
}

type SeatEditResponse struct {
	Seat layout.Seat `json:"seat"`
}
