package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/DoyleJ11/seatbus-monitor/internal/config"
	"github.com/DoyleJ11/seatbus-monitor/internal/ingest"
	"github.com/DoyleJ11/seatbus-monitor/internal/layout"
	"github.com/DoyleJ11/seatbus-monitor/internal/occupancy"
	"github.com/DoyleJ11/seatbus-monitor/internal/store"
	"github.com/DoyleJ11/seatbus-monitor/internal/types"
)

const maxPushBody = 1 << 20

var validate = validator.New()

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, types.ErrorResponse{Error: msg})
}

// Push accepts a snapshot from the publisher.
func Push(svc *ingest.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// an unreadable body is treated like an unparsable one
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPushBody))
		if err != nil {
			body = nil
		}

		if _, err := svc.Ingest(r.Context(), ingest.TransportHTTP, body); err != nil {
			if errors.Is(err, occupancy.ErrInvalidPayload) {
				writeError(w, http.StatusBadRequest, occupancy.ErrInvalidPayload.Error())
				return
			}
			writeError(w, http.StatusServiceUnavailable, "store unavailable")
			return
		}
		writeJSON(w, http.StatusOK, types.OKResponse{OK: true})
	}
}

// Status returns the latest snapshot; before the first push it is the
// all-free snapshot.
func Status(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		latest, err := st.Latest(r.Context())
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, "store unavailable")
			return
		}
		writeJSON(w, http.StatusOK, latest)
	}
}

func History(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hist, err := st.History(r.Context())
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, "store unavailable")
			return
		}
		writeJSON(w, http.StatusOK, types.HistoryResponse{Samples: hist})
	}
}

// GetLayout returns the normalized layout. With ?format=yaml it returns a
// config block that can be pasted back into the config file.
func GetLayout(l *layout.Layout) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		seats := l.Seats()
		if r.URL.Query().Get("format") != "yaml" {
			writeJSON(w, http.StatusOK, types.LayoutResponse{Seats: seats})
			return
		}

		block := config.LayoutConfig{}
		for _, s := range seats {
			block.Rects = append(block.Rects, s.Rect)
			block.Labels = append(block.Labels, s.Label)
		}
		out, err := yaml.Marshal(map[string]config.LayoutConfig{"layout": block})
		if err != nil {
			writeError(w, http.StatusInternalServerError, "encode layout")
			return
		}
		w.Header().Set("Content-Type", "application/yaml")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(out)
	}
}

// Overlay projects the layout onto a width x height container and marks
// seats from the latest snapshot.
func Overlay(st *store.Store, l *layout.Layout) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		width, errW := strconv.ParseFloat(r.URL.Query().Get("width"), 64)
		height, errH := strconv.ParseFloat(r.URL.Query().Get("height"), 64)
		if errW != nil || errH != nil {
			writeError(w, http.StatusBadRequest, "width and height are required")
			return
		}

		latest, err := st.Latest(r.Context())
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, "store unavailable")
			return
		}

		seats, err := l.Overlay(latest.Seats, width, height)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, types.OverlayResponse{
			Width:     width,
			Height:    height,
			Timestamp: latest.Timestamp,
			Count:     latest.Count,
			Seats:     seats,
		})
	}
}

// SetSeat stores a seat rectangle dragged in an editor.
func SetSeat(l *layout.Layout, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		index, ok := seatIndex(w, r)
		if !ok {
			return
		}
		var req types.SeatEditRequest
		if !decodeValid(w, r, &req) {
			return
		}

		abs := layout.Rect{X: req.X, Y: req.Y, W: req.W, H: req.H}
		if _, err := l.SetAbsolute(index, abs, req.ContainerWidth, req.ContainerHeight); err != nil {
			writeLayoutError(w, err)
			return
		}
		respondSeat(w, l, index, log)
	}
}

// MoveSeat applies a drag delta to a seat.
func MoveSeat(l *layout.Layout, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		index, ok := seatIndex(w, r)
		if !ok {
			return
		}
		var req types.SeatMoveRequest
		if !decodeValid(w, r, &req) {
			return
		}

		if _, err := l.Move(index, req.DX, req.DY, req.ContainerWidth, req.ContainerHeight); err != nil {
			writeLayoutError(w, err)
			return
		}
		respondSeat(w, l, index, log)
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func seatIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "seat index must be an integer")
		return 0, false
	}
	return index, true
}

func decodeValid(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func writeLayoutError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, layout.ErrIndexOutOfRange):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		writeError(w, http.StatusBadRequest, err.Error())
	}
}

func respondSeat(w http.ResponseWriter, l *layout.Layout, index int, log *zap.Logger) {
	seat := l.Seats()[index]
	// edits are not persisted; the full layout is logged so it can be
	// copied into the config file
	log.Info("seat layout edited",
		zap.Int("index", index),
		zap.String("label", seat.Label),
		zap.Any("rect", seat.Rect),
		zap.Any("layout", l.Rects()),
	)
	writeJSON(w, http.StatusOK, types.SeatEditResponse{Seat: seat})
}
