package session

import (
	"sort"
	"sync"
	"time"
)

// StreamState is a point-in-time view of one accepted stream.
type StreamState struct {
	Peer        string
	AcceptedAt  time.Time
	Connections []ConnectionState
}

type streamEntry struct {
	acceptedAt time.Time
	receiver   *Receiver
}

// Streams indexes the receivers running under ServeStreams by peer address.
// The zero value is not usable; call NewStreams. A nil *Streams ignores
// registrations.
type Streams struct {
	mu    sync.RWMutex
	items map[string]streamEntry
}

func NewStreams() *Streams {
	return &Streams{items: make(map[string]streamEntry)}
}

func (s *Streams) add(peer string, r *Receiver) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[peer] = streamEntry{acceptedAt: time.Now(), receiver: r}
}

func (s *Streams) remove(peer string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, peer)
}

func (s *Streams) Len() int {
	if s == nil {
		return 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Snapshot lists streams sorted by peer with their open connections.
func (s *Streams) Snapshot() []StreamState {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	out := make([]StreamState, 0, len(s.items))
	for peer, entry := range s.items {
		out = append(out, StreamState{
			Peer:        peer,
			AcceptedAt:  entry.acceptedAt,
			Connections: entry.receiver.Connections().List(),
		})
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Peer < out[j].Peer })
	return out
}
