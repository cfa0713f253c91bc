// Package registry tracks the temporary voice channels this process created.
//
// The registry is the only record of which channels are ours. It holds plain
// handles (ids and names); whether a channel still exists and how many members
// it has is always asked of the platform, never cached here.
package registry

import (
	"sort"
	"sync"
	"time"
)

// Channel is a handle to a voice channel created by the bot.
type Channel struct {
	ID        string    `json:"id"`
	GuildID   string    `json:"guild_id"`
	Name      string    `json:"name"`
	OwnerID   string    `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Registry is a concurrency-safe map of channel id to Channel.
// The zero value is not usable; call New.
type Registry struct {
	mu       sync.RWMutex
	channels map[string]Channel
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{channels: make(map[string]Channel)}
}

// Put inserts or overwrites the entry for ch.ID.
func (r *Registry) Put(ch Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.channels[ch.ID] = ch
}

// Get returns the entry for id. A missing entry is reported via ok=false.
func (r *Registry) Get(id string) (Channel, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ch, ok := r.channels[id]
	return ch, ok
}

// Remove deletes the entry for id if present.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.channels, id)
}

// Len returns the number of tracked channels.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.channels)
}

// Snapshot returns a copy of the current entries ordered by creation time
// (oldest first, ties broken by id). Callers may mutate the registry while
// ranging over the result.
func (r *Registry) Snapshot() []Channel {
	r.mu.RLock()
	out := make([]Channel, 0, len(r.channels))
	for _, ch := range r.channels {
		out = append(out, ch)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
