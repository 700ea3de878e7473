package occupancy

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidPayload is the only reason an ingest is rejected: the body was
// missing, empty or not a JSON object with at least one field.
var ErrInvalidPayload = errors.New("no data")

// Timestamp is the publisher's timestamp, kept as the raw JSON value it was
// sent as (number or string). It is opaque and never used for ordering.
type Timestamp json.RawMessage

// NewTimestamp renders t as fractional Unix seconds.
func NewTimestamp(t time.Time) Timestamp {
	secs := float64(t.UnixNano()) / 1e9
	return Timestamp(strconv.AppendFloat(nil, secs, 'f', -1, 64))
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if len(t) == 0 {
		return []byte("null"), nil
	}
	return []byte(t), nil
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	*t = append((*t)[:0], data...)
	return nil
}

// Seconds returns the timestamp as Unix seconds if it was sent as a number.
func (t Timestamp) Seconds() (float64, bool) {
	if len(t) == 0 || string(t) == "null" {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal([]byte(t), &f); err != nil {
		return 0, false
	}
	return f, true
}

func (t Timestamp) String() string { return string(t) }

// Snapshot is one occupancy reading. Seats always has the configured seat
// count; once recorded a Snapshot is never modified.
type Snapshot struct {
	Timestamp Timestamp `json:"timestamp"`
	Seats     []int     `json:"seats"`
	Count     int       `json:"count"`
}

func (s Snapshot) Clone() Snapshot {
	return Snapshot{
		Timestamp: append(Timestamp(nil), s.Timestamp...),
		Seats:     append([]int(nil), s.Seats...),
		Count:     s.Count,
	}
}

// Payload is an ingest body after lenient decoding. Nil fields were absent.
type Payload struct {
	Seats     []int
	Count     *int
	Timestamp Timestamp
}

// Parse decodes an ingest body. Only a missing or unparsable body is an
// error; odd field values are repaired or dropped.
func Parse(body []byte) (Payload, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return Payload{}, ErrInvalidPayload
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	// null and {} carry nothing to record
	if len(fields) == 0 {
		return Payload{}, ErrInvalidPayload
	}

	var p Payload
	if raw, ok := fields["seats"]; ok {
		p.Seats = parseSeats(raw)
	}
	if raw, ok := fields["count"]; ok {
		if n, ok := parseCount(raw); ok {
			p.Count = &n
		}
	}
	if raw, ok := fields["timestamp"]; ok {
		p.Timestamp = Timestamp(raw)
	}
	return p, nil
}

// Normalize turns a payload into a Snapshot of exactly seatCount seats:
// short input is padded with 0, long input truncated. A missing count is
// derived from the normalized seats, a missing timestamp taken from now.
func Normalize(p Payload, seatCount int, now time.Time) Snapshot {
	seats := make([]int, seatCount)
	copy(seats, p.Seats)

	count := CountOccupied(seats)
	if p.Count != nil {
		count = *p.Count
	}

	ts := p.Timestamp
	if ts == nil {
		ts = NewTimestamp(now)
	}

	return Snapshot{Timestamp: ts, Seats: seats, Count: count}
}

func parseSeats(raw json.RawMessage) []int {
	var vals []json.RawMessage
	if err := json.Unmarshal(raw, &vals); err != nil {
		return nil
	}
	seats := make([]int, len(vals))
	for i, v := range vals {
		seats[i] = seatValue(v)
	}
	return seats
}

// seatValue maps anything numerically equal to 1 (1, 1.0, true) to occupied.
func seatValue(raw json.RawMessage) int {
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil && f == 1 {
		return SeatOccupied
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil && b {
		return SeatOccupied
	}
	return SeatFree
}

func parseCount(raw json.RawMessage) (int, bool) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, false
	}
	switch x := v.(type) {
	case float64:
		if math.Abs(x) > maxExactInt {
			return 0, false
		}
		return int(x), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil {
			return 0, false
		}
		return n, true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}
