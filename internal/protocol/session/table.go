package session

import (
	"sort"
	"sync"
	"time"

	"github.com/danmuck/framewire/internal/protocol"
)

// ConnectionState tracks one logical connection between CreateConnection and
// DestroyConnection.
type ConnectionState struct {
	ID          protocol.ConnectionID
	OpenedAt    time.Time
	LastFrameAt time.Time
	Frames      uint64
	PixelBytes  uint64
}

// ConnectionTable stores open connections by id.
type ConnectionTable struct {
	mu    sync.RWMutex
	items map[protocol.ConnectionID]ConnectionState
}

func NewConnectionTable() *ConnectionTable {
	return &ConnectionTable{
		items: make(map[protocol.ConnectionID]ConnectionState),
	}
}

// Open registers id. It reports false when id was already open; the
// existing entry is kept.
func (t *ConnectionTable) Open(id protocol.ConnectionID, at time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.items[id]; ok {
		return false
	}
	t.items[id] = ConnectionState{ID: id, OpenedAt: at}
	return true
}

// MarkFrame counts one frame against id.
func (t *ConnectionTable) MarkFrame(id protocol.ConnectionID, at time.Time, pixelBytes int) (ConnectionState, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	item, ok := t.items[id]
	if !ok {
		return ConnectionState{}, false
	}
	item.Frames++
	item.PixelBytes += uint64(pixelBytes)
	item.LastFrameAt = at
	t.items[id] = item
	return item, true
}

// Close removes id and returns its final state.
func (t *ConnectionTable) Close(id protocol.ConnectionID) (ConnectionState, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	item, ok := t.items[id]
	if ok {
		delete(t.items, id)
	}
	return item, ok
}

func (t *ConnectionTable) Get(id protocol.ConnectionID) (ConnectionState, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	item, ok := t.items[id]
	return item, ok
}

func (t *ConnectionTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.items)
}

func (t *ConnectionTable) List() []ConnectionState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]ConnectionState, 0, len(t.items))
	for _, item := range t.items {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}
