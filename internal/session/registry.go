// Package session tracks each user's current folder position. The registry
// is deliberately in-memory only: it is a navigation convenience, not state
// of record. After a restart, Home re-resolves the landing folder by name,
// so losing sessions costs the user at most one button press.
package session

import "sync"

// Registry is a process-wide map from chat user to current folder reference.
// An empty folder reference means the user is at the landing folder.
// Safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	current map[int64]string
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{current: make(map[int64]string)}
}

// Set records folderID as the user's current folder.
func (r *Registry) Set(userID int64, folderID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.current[userID] = folderID
}

// Get returns the user's current folder reference and whether one is known.
func (r *Registry) Get(userID int64) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.current[userID]

	return id, ok
}
