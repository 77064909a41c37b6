// Package stream fans account snapshots out to observers such as a UI.
package stream

import (
	"context"
	"sync"
	"time"

	"monfari.org/internal/ledger"
)

// Snapshot is one complete, authoritative account list.
type Snapshot struct {
	Accounts []ledger.Account
	At       time.Time
}

// Stream delivers each published snapshot to every active subscriber.
type Stream struct {
	mu     sync.RWMutex
	subs   map[int]chan Snapshot
	next   int
	latest *Snapshot
}

// New initialises an empty stream.
func New() *Stream {
	return &Stream{subs: make(map[int]chan Snapshot)}
}

// Subscribe registers a subscriber. The latest snapshot, if any, is delivered
// first. The channel is closed when ctx ends.
func (s *Stream) Subscribe(ctx context.Context) <-chan Snapshot {
	ch := make(chan Snapshot, 4)

	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = ch
	if s.latest != nil {
		ch <- copySnapshot(*s.latest)
	}
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs, id)
		close(ch)
		s.mu.Unlock()
	}()

	return ch
}

// Publish records accounts as the latest snapshot and offers it to all subscribers.
func (s *Stream) Publish(accounts []ledger.Account) {
	snap := Snapshot{Accounts: ledger.CloneAccounts(accounts), At: time.Now().UTC()}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = &snap
	for _, ch := range s.subs {
		select {
		case ch <- copySnapshot(snap):
		default:
			// A slow subscriber misses this snapshot; the next one supersedes it anyway.
		}
	}
}

// Latest returns the most recent snapshot.
func (s *Stream) Latest() (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return Snapshot{}, false
	}
	return copySnapshot(*s.latest), true
}

func copySnapshot(s Snapshot) Snapshot {
	return Snapshot{Accounts: ledger.CloneAccounts(s.Accounts), At: s.At}
}
