package store

import "github.com/DoyleJ11/seatbus-monitor/internal/occupancy"

// history is a fixed-capacity FIFO of snapshots backed by a ring buffer.
type history struct {
	buf   []occupancy.Snapshot
	start int
	size  int
}

func newHistory(capacity int) *history {
	return &history{buf: make([]occupancy.Snapshot, capacity)}
}

// push appends s, evicting the oldest entry when full.
func (h *history) push(s occupancy.Snapshot) (evicted bool) {
	c := len(h.buf)
	if h.size < c {
		h.buf[(h.start+h.size)%c] = s
		h.size++
		return false
	}
	h.buf[h.start] = s
	h.start = (h.start + 1) % c
	return true
}

func (h *history) len() int { return h.size }

// slice copies the retained window, oldest first.
func (h *history) slice() []occupancy.Snapshot {
	out := make([]occupancy.Snapshot, h.size)
	for i := range out {
		out[i] = h.buf[(h.start+i)%len(h.buf)].Clone()
	}
	return out
}
