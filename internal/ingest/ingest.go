package ingest

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/seatbus-monitor/internal/metrics"
	"github.com/DoyleJ11/seatbus-monitor/internal/occupancy"
	"github.com/DoyleJ11/seatbus-monitor/internal/store"
)

// Policy decides what to do with a timestamp older than the current latest.
// Both policies record the snapshot; only InvalidPayload is ever rejected.
type Policy string

const (
	PolicyAccept Policy = "accept"
	PolicyLog    Policy = "log"
)

const (
	TransportHTTP = "http"
	TransportMQTT = "mqtt"
)

// Recorder is the part of the store ingest writes to.
type Recorder interface {
	Record(ctx context.Context, snap occupancy.Snapshot) (store.Receipt, error)
	Latest(ctx context.Context) (occupancy.Snapshot, error)
}

type Service struct {
	rec       Recorder
	seatCount int
	policy    Policy
	now       func() time.Time
	log       *zap.Logger
	metrics   *metrics.Metrics
}

type Option func(*Service)

func WithPolicy(p Policy) Option { return func(s *Service) { s.policy = p } }

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func WithLogger(log *zap.Logger) Option { return func(s *Service) { s.log = log } }

func WithMetrics(m *metrics.Metrics) Option { return func(s *Service) { s.metrics = m } }

func NewService(rec Recorder, seatCount int, opts ...Option) *Service {
	s := &Service{
		rec:       rec,
		seatCount: seatCount,
		policy:    PolicyAccept,
		now:       time.Now,
		log:       zap.NewNop(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Ingest parses and normalizes body and records exactly one snapshot.
// The returned error wraps occupancy.ErrInvalidPayload when the body carried
// nothing usable; nothing is recorded in that case.
func (s *Service) Ingest(ctx context.Context, transport string, body []byte) (occupancy.Snapshot, error) {
	p, err := occupancy.Parse(body)
	if err != nil {
		s.metrics.Rejected(transport)
		s.log.Info("rejected snapshot", zap.String("transport", transport), zap.Error(err))
		return occupancy.Snapshot{}, err
	}

	snap := occupancy.Normalize(p, s.seatCount, s.now())

	if s.policy == PolicyLog && p.Timestamp != nil {
		s.checkOrder(ctx, snap)
	}

	rec, err := s.rec.Record(ctx, snap)
	if err != nil {
		return occupancy.Snapshot{}, fmt.Errorf("record snapshot: %w", err)
	}

	s.metrics.Ingested(transport, snap.Count, rec.HistoryLen, rec.Evicted)
	s.log.Debug("recorded snapshot",
		zap.String("transport", transport),
		zap.Int("version", rec.Version),
		zap.Ints("seats", snap.Seats),
		zap.Int("count", snap.Count),
		zap.Stringer("timestamp", snap.Timestamp),
		zap.Int("history_len", rec.HistoryLen),
	)
	return snap, nil
}

func (s *Service) checkOrder(ctx context.Context, snap occupancy.Snapshot) {
	latest, err := s.rec.Latest(ctx)
	if err != nil {
		return
	}
	if snap.Timestamp.Older(latest.Timestamp) {
		s.log.Warn("out-of-order timestamp accepted",
			zap.Stringer("timestamp", snap.Timestamp),
			zap.Stringer("latest", latest.Timestamp),
		)
	}
}
