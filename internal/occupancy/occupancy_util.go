package occupancy

import "time"

const (
	SeatFree     = 0
	SeatOccupied = 1

	maxExactInt = 1 << 53
)

// Empty is the reading reported before any publisher has pushed.
func Empty(seatCount int, at time.Time) Snapshot {
	return Snapshot{
		Timestamp: NewTimestamp(at),
		Seats:     make([]int, seatCount),
		Count:     0,
	}
}

func CountOccupied(seats []int) int {
	n := 0
	for _, v := range seats {
		if v == SeatOccupied {
			n++
		}
	}
	return n
}

// Older reports whether t is numerically before other. Non-numeric
// timestamps are never considered older.
func (t Timestamp) Older(other Timestamp) bool {
	a, ok := t.Seconds()
	if !ok {
		return false
	}
	b, ok := other.Seconds()
	if !ok {
		return false
	}
	return a < b
}
