package repository

import (
	"crypto/rand"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"
)

// placeholderPrefix marks client-generated ids. The registry assigns plain
// ids, so the prefix keeps the two id spaces disjoint within a session —
// a placeholder can never collide with a future server id.
const placeholderPrefix = "pending-"

var placeholderMu sync.Mutex

// PlaceholderID generates a temporary id for an optimistic insert. ULIDs
// are monotonic within the process, so placeholders also sort by creation
// order.
func PlaceholderID() string {
	placeholderMu.Lock()
	defer placeholderMu.Unlock()
	return placeholderPrefix + ulid.MustNew(ulid.Now(), rand.Reader).String()
}

// IsPlaceholderID reports whether id was generated by PlaceholderID.
func IsPlaceholderID(id string) bool {
	return strings.HasPrefix(id, placeholderPrefix)
}

// pendingGuard serializes mutations per record id: a second edit of the
// same record waits for the first to settle instead of racing it on the
// wire.
type pendingGuard struct {
	mu    sync.Mutex
	locks map[string]*guardEntry
}

type guardEntry struct {
	mu   sync.Mutex
	refs int
}

func newPendingGuard() *pendingGuard {
	return &pendingGuard{locks: make(map[string]*guardEntry)}
}

// acquire blocks until the id is free and returns the release function.
func (g *pendingGuard) acquire(id string) func() {
	g.mu.Lock()
	entry, ok := g.locks[id]
	if !ok {
		entry = &guardEntry{}
		g.locks[id] = entry
	}
	entry.refs++
	g.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		g.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(g.locks, id)
		}
		g.mu.Unlock()
	}
}
