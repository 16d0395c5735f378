// Package media owns the client-side audio of unsent recordings: ephemeral
// playback handles and the encrypted spool used for retries.
package media

import (
	"sync"

	"github.com/dmitrijs2005/medscribe/internal/client/models"
	"github.com/google/uuid"
)

// HandlePrefix starts every ephemeral playback handle.
const HandlePrefix = "blob:"

// Registry hands out "blob:<uuid>" handles for in-memory audio. A handle is
// owned by the placeholder that created it and must be revoked once the
// record is superseded; Len exposes leaks to tests.
type Registry struct {
	mu      sync.RWMutex
	handles map[string]*models.Media
}

func NewRegistry() *Registry {
	return &Registry{handles: make(map[string]*models.Media)}
}

// Create registers m and returns its handle.
func (r *Registry) Create(m *models.Media) string {
	h := HandlePrefix + uuid.NewString()
	r.mu.Lock()
	r.handles[h] = m
	r.mu.Unlock()
	return h
}

// Resolve returns the media behind handle.
func (r *Registry) Resolve(handle string) (*models.Media, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.handles[handle]
	return m, ok
}

// Revoke releases handle. Unknown handles are ignored.
func (r *Registry) Revoke(handle string) {
	r.mu.Lock()
	delete(r.handles, handle)
	r.mu.Unlock()
}

// Len is the number of live handles.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handles)
}
