package pocketlint

import (
	"context"
	"log/slog"
	"sync"
)

// SubscriptionMode selects how many snapshots a subscription delivers.
type SubscriptionMode int

const (
	// Continuous delivers the initial snapshot and then one fresh
	// snapshot per change notification until Stop.
	Continuous SubscriptionMode = iota
	// OneShot delivers a single snapshot and then unsubscribes itself.
	OneShot
)

// SnapshotSource provides full reads of a user's remote record collection
// plus a change signal. Both *RecordStore (embedded) and *Client (remote
// server) satisfy it.
type SnapshotSource interface {
	Snapshot(userID string) (Snapshot, error)
	Subscribe(userID string) (<-chan struct{}, func())
}

// Subscription drives a reconciler from a snapshot source for the length
// of one view session: idle until started, subscribed while running, and
// unsubscribed after Stop (or after the first snapshot in OneShot mode).
type Subscription struct {
	src    SnapshotSource
	rec    *Reconciler
	userID string
	mode   SubscriptionMode
	logger *slog.Logger

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// Subscribe starts a session: the initial snapshot is fetched and
// reconciled immediately, then (in Continuous mode) every change
// notification triggers a fresh snapshot until Stop.
func Subscribe(src SnapshotSource, rec *Reconciler, userID string, mode SubscriptionMode, logger *slog.Logger) *Subscription {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Subscription{
		src:    src,
		rec:    rec,
		userID: userID,
		mode:   mode,
		logger: logger,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *Subscription) run() {
	defer close(s.done)

	if s.mode == OneShot {
		s.deliver()
		return
	}

	signal, cancel := s.src.Subscribe(s.userID)
	defer cancel()

	s.deliver()
	for {
		select {
		case <-s.stop:
			return
		case _, ok := <-signal:
			if !ok {
				return
			}
			s.deliver()
		}
	}
}

func (s *Subscription) deliver() {
	snap, err := s.src.Snapshot(s.userID)
	if err != nil {
		// Sync-read failures are logged only; they never interrupt
		// the session.
		s.logger.Warn("sync: snapshot fetch failed",
			slog.String("user", s.userID),
			slog.String("error", err.Error()),
		)
		return
	}
	s.rec.Reconcile(context.Background(), snap)
}

// Stop unsubscribes and waits for the delivery loop to exit. Safe to call
// more than once, and a no-op for a OneShot session that already finished.
func (s *Subscription) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
	<-s.done
}

// Done is closed when the delivery loop has exited.
func (s *Subscription) Done() <-chan struct{} { return s.done }
