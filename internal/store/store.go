package store

import (
	"context"
	"errors"
	"time"

	"github.com/DoyleJ11/seatbus-monitor/internal/occupancy"
)

var ErrClosed = errors.New("store closed")

type Msg interface{ isStoreMsg() }

type Record struct {
	Snap  occupancy.Snapshot
	Reply chan Receipt
}

func (Record) isStoreMsg() {}

type GetLatest struct {
	Reply chan occupancy.Snapshot
}

func (GetLatest) isStoreMsg() {}

type GetHistory struct {
	Reply chan []occupancy.Snapshot
}

func (GetHistory) isStoreMsg() {}

type GetView struct {
	Reply chan View
}

func (GetView) isStoreMsg() {}

type Subscribe struct {
	ClientID string
	Outbox   chan Update // where this viewer wants to receive snapshots
}

func (Subscribe) isStoreMsg() {}

type Unsubscribe struct{ ClientID string }

func (Unsubscribe) isStoreMsg() {}

type GetStats struct {
	Reply chan Stats
}

func (GetStats) isStoreMsg() {}

type Shutdown struct{}

func (Shutdown) isStoreMsg() {}

// Receipt describes the state right after a Record was applied.
type Receipt struct {
	Version    int
	HistoryLen int
	Evicted    bool
}

type Update struct {
	Version  int
	Snapshot occupancy.Snapshot
}

// View is the latest snapshot and the history as of one version.
type View struct {
	Version int
	Latest  occupancy.Snapshot
	History []occupancy.Snapshot
}

type Stats struct {
	Version        int
	HistoryLen     int
	NumSubscribers int
}

// Store owns the latest snapshot and the bounded history. All state lives
// in one goroutine, so a Record (assign latest, append, evict) is observed
// by readers either entirely or not at all.
type Store struct {
	inbox   chan Msg
	latest  occupancy.Snapshot
	hist    *history
	version int
	clients map[string]chan Update
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewStore starts a store for seatCount seats keeping at most capacity
// snapshots. Both must be positive.
func NewStore(parent context.Context, seatCount, capacity int) *Store {
	if seatCount <= 0 || capacity <= 0 {
		panic("store: seat count and capacity must be positive")
	}
	ctx, cancel := context.WithCancel(parent)

	s := &Store{
		inbox:   make(chan Msg, 64),
		latest:  occupancy.Empty(seatCount, time.Now()),
		hist:    newHistory(capacity),
		clients: make(map[string]chan Update),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	go s.loop()
	return s
}

func (s *Store) loop() {
	defer close(s.done)
	for {
		select {
		case <-s.ctx.Done():
			s.shutdown()
			return

		case m := <-s.inbox:
			switch msg := m.(type) {
			case Record:
				s.latest = msg.Snap
				evicted := s.hist.push(msg.Snap)
				s.version++
				msg.Reply <- Receipt{Version: s.version, HistoryLen: s.hist.len(), Evicted: evicted}
				s.broadcast(s.version)

			case GetLatest:
				msg.Reply <- s.latest.Clone()

			case GetHistory:
				msg.Reply <- s.hist.slice()

			case GetView:
				msg.Reply <- View{Version: s.version, Latest: s.latest.Clone(), History: s.hist.slice()}

			case Subscribe:
				// register + send current snapshot immediately
				select {
				case msg.Outbox <- Update{Version: s.version, Snapshot: s.latest.Clone()}:
					s.clients[msg.ClientID] = msg.Outbox
				default:
					close(msg.Outbox) // no room even for the first snapshot
				}

			case Unsubscribe:
				if ch, ok := s.clients[msg.ClientID]; ok {
					close(ch)
					delete(s.clients, msg.ClientID)
				}

			case GetStats:
				msg.Reply <- Stats{
					Version:        s.version,
					HistoryLen:     s.hist.len(),
					NumSubscribers: len(s.clients),
				}

			case Shutdown:
				s.shutdown()
				return
			}
		}
	}
}

func (s *Store) shutdown() {
	for id, ch := range s.clients {
		close(ch) // no more snapshots for this viewer
		delete(s.clients, id)
	}
	s.cancel()
}

// broadcast gives every viewer its own copy of the latest snapshot.
func (s *Store) broadcast(version int) {
	for id, ch := range s.clients {
		select {
		case ch <- Update{Version: version, Snapshot: s.latest.Clone()}:
			// ok
		default:
			// viewer is slow/full - drop it
			close(ch)
			delete(s.clients, id)
		}
	}
}

// Inbox exposes the raw message channel for callers that want to drive the
// store directly.
func (s *Store) Inbox() chan<- Msg { return s.inbox }

// Done is closed once the store goroutine has exited.
func (s *Store) Done() <-chan struct{} { return s.done }

// Record makes snap the latest snapshot and appends it to history.
// The store keeps its own copy.
func (s *Store) Record(ctx context.Context, snap occupancy.Snapshot) (Receipt, error) {
	reply := make(chan Receipt, 1)
	if err := s.send(ctx, Record{Snap: snap.Clone(), Reply: reply}); err != nil {
		return Receipt{}, err
	}
	return await(ctx, s, reply)
}

// Latest returns a copy of the most recent snapshot, or the all-free
// snapshot stamped at store creation when nothing was recorded yet.
func (s *Store) Latest(ctx context.Context) (occupancy.Snapshot, error) {
	reply := make(chan occupancy.Snapshot, 1)
	if err := s.send(ctx, GetLatest{Reply: reply}); err != nil {
		return occupancy.Snapshot{}, err
	}
	return await(ctx, s, reply)
}

// History returns a copy of the retained window, oldest first.
func (s *Store) History(ctx context.Context) ([]occupancy.Snapshot, error) {
	reply := make(chan []occupancy.Snapshot, 1)
	if err := s.send(ctx, GetHistory{Reply: reply}); err != nil {
		return nil, err
	}
	return await(ctx, s, reply)
}

// View returns the latest snapshot together with the history it heads,
// read in one step.
func (s *Store) View(ctx context.Context) (View, error) {
	reply := make(chan View, 1)
	if err := s.send(ctx, GetView{Reply: reply}); err != nil {
		return View{}, err
	}
	return await(ctx, s, reply)
}

func (s *Store) Stats(ctx context.Context) (Stats, error) {
	reply := make(chan Stats, 1)
	if err := s.send(ctx, GetStats{Reply: reply}); err != nil {
		return Stats{}, err
	}
	return await(ctx, s, reply)
}

// Subscribe registers outbox for live updates. The current snapshot is
// delivered first; outbox is closed on Unsubscribe, on shutdown, or when
// the viewer falls behind.
func (s *Store) Subscribe(ctx context.Context, clientID string, outbox chan Update) error {
	return s.send(ctx, Subscribe{ClientID: clientID, Outbox: outbox})
}

func (s *Store) Unsubscribe(ctx context.Context, clientID string) error {
	return s.send(ctx, Unsubscribe{ClientID: clientID})
}

// Close stops the store and waits for its goroutine to exit.
func (s *Store) Close() {
	s.cancel()
	<-s.done
}

func (s *Store) send(ctx context.Context, m Msg) error {
	select {
	case <-s.done:
		return ErrClosed
	default:
	}
	select {
	case s.inbox <- m:
		return nil
	case <-s.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func await[T any](ctx context.Context, s *Store, reply chan T) (T, error) {
	var zero T
	select {
	case v := <-reply:
		return v, nil
	case <-s.done:
		// the loop may have answered right before exiting
		select {
		case v := <-reply:
			return v, nil
		default:
			return zero, ErrClosed
		}
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
