// Package repository owns the in-memory record collection — the single
// authoritative client-side view of the population registry. Mutations are
// optimistic: applied locally first, then reconciled against the registry
// response, and rolled back if the remote call fails.
package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/harunwdi/hrds/internal/domain"
)

// RegistryClient is the slice of the registry facade the repository needs.
type RegistryClient interface {
	ListAll(ctx context.Context) ([]domain.PersonRecord, error)
	Create(ctx context.Context, p domain.PersonRecord) (domain.PersonRecord, error)
	Update(ctx context.Context, id string, p domain.PersonRecord) (domain.PersonRecord, error)
	Delete(ctx context.Context, id string) error
}

// AuthSink is notified when the registry confirms the credential is dead.
// *session.Manager satisfies it.
type AuthSink interface {
	ForceLogout(reason string)
}

// Observer receives a copy of the collection after every visible change.
type Observer func([]domain.PersonRecord)

// Repository holds the record collection and reconciles optimistic local
// edits against the registry. All methods are safe for concurrent use;
// mutations against the same record id are serialized by a per-id guard
// so two conflicting edits can never race on the wire.
type Repository struct {
	client RegistryClient
	auth   AuthSink // may be nil
	log    *slog.Logger
	now    func() time.Time

	guard *pendingGuard

	mu      sync.Mutex
	records []domain.PersonRecord
	loaded  bool
	subs    map[int]Observer
	nextSub int
}

// New creates an empty Repository. auth may be nil when no session manager
// should be notified about dead credentials.
func New(client RegistryClient, auth AuthSink, logger *slog.Logger) *Repository {
	return &Repository{
		client: client,
		auth:   auth,
		log:    logger.With("component", "repository"),
		now:    time.Now,
		guard:  newPendingGuard(),
		subs:   make(map[int]Observer),
	}
}

// Snapshot returns a copy of the current collection.
func (r *Repository) Snapshot() []domain.PersonRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.copyLocked()
}

// Subscribe registers an observer and returns an unsubscribe function.
// Observers see either the old or the new collection, never a partial merge.
func (r *Repository) Subscribe(fn Observer) func() {
	r.mu.Lock()
	id := r.nextSub
	r.nextSub++
	r.subs[id] = fn
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		delete(r.subs, id)
		r.mu.Unlock()
	}
}

func (r *Repository) copyLocked() []domain.PersonRecord {
	out := make([]domain.PersonRecord, len(r.records))
	copy(out, r.records)
	return out
}

// notifyLocked snapshots observers and the collection under the lock and
// invokes them after releasing it.
func (r *Repository) notify() {
	r.mu.Lock()
	snapshot := r.copyLocked()
	observers := make([]Observer, 0, len(r.subs))
	for _, fn := range r.subs {
		observers = append(observers, fn)
	}
	r.mu.Unlock()

	for _, fn := range observers {
		fn(snapshot)
	}
}

// LoadSnapshot fetches the authoritative snapshot and replaces the whole
// collection atomically. On failure the prior collection is retained; if
// this was the first load and nothing is cached yet, the seeded sample
// takes its place so the application has something to render. The error is
// surfaced either way.
//
// Callers must not run LoadSnapshot while optimistic mutations are in
// flight: the replacement would clobber their rollback baseline.
func (r *Repository) LoadSnapshot(ctx context.Context) error {
	records, err := r.client.ListAll(ctx)
	if err != nil {
		r.log.WarnContext(ctx, "snapshot load failed", slog.String("error", err.Error()))

		r.mu.Lock()
		seed := !r.loaded && len(r.records) == 0
		if seed {
			r.records = SamplePersons()
			r.loaded = true
		}
		r.mu.Unlock()
		if seed {
			r.notify()
		}

		r.observeAuthFailure(err)
		return fmt.Errorf("load snapshot: %w", err)
	}

	r.mu.Lock()
	r.records = records
	r.loaded = true
	r.mu.Unlock()
	r.notify()

	r.log.InfoContext(ctx, "snapshot loaded", slog.Int("count", len(records)))
	return nil
}

// Add validates the draft, inserts it optimistically under a placeholder
// id, and submits it to the registry. On success the placeholder entry is
// replaced by the server-confirmed record (carrying the server-assigned
// id), which is returned. On failure the optimistic entry is removed.
func (r *Repository) Add(ctx context.Context, draft domain.PersonRecord) (domain.PersonRecord, error) {
	draft.Normalize()
	if err := draft.Validate(r.now()); err != nil {
		return domain.PersonRecord{}, err
	}

	placeholder := PlaceholderID()
	draft.ID = placeholder

	r.mu.Lock()
	if other, ok := r.findByPopulationIDLocked(draft.PopulationID, ""); ok {
		r.mu.Unlock()
		return domain.PersonRecord{}, fmt.Errorf("populationId %s already used by record %s: %w",
			draft.PopulationID, other.ID, domain.ErrConflict)
	}
	r.records = append(r.records, draft)
	r.mu.Unlock()
	r.notify()

	created, err := r.client.Create(ctx, draft)
	if err != nil {
		// Roll the optimistic insert back.
		r.mu.Lock()
		if idx, ok := r.indexOfLocked(placeholder); ok {
			r.records = append(r.records[:idx], r.records[idx+1:]...)
		}
		r.mu.Unlock()
		r.notify()

		r.observeAuthFailure(err)
		return domain.PersonRecord{}, fmt.Errorf("add record: %w", err)
	}

	r.mu.Lock()
	if idx, ok := r.indexOfLocked(placeholder); ok {
		r.records[idx] = created
	}
	r.mu.Unlock()
	r.notify()

	r.log.InfoContext(ctx, "record created",
		slog.String("id", created.ID),
		slog.String("placeholder", placeholder),
	)
	return created, nil
}

// Update validates the patch, applies it optimistically to the record with
// the given id, and submits it to the registry. On failure the record
// reverts to its pre-patch value.
func (r *Repository) Update(ctx context.Context, id string, patch domain.PersonRecord) (domain.PersonRecord, error) {
	release := r.guard.acquire(id)
	defer release()

	patch.Normalize()
	if err := patch.Validate(r.now()); err != nil {
		return domain.PersonRecord{}, err
	}

	r.mu.Lock()
	idx, ok := r.indexOfLocked(id)
	if !ok {
		r.mu.Unlock()
		return domain.PersonRecord{}, fmt.Errorf("record %s: %w", id, domain.ErrNotFound)
	}
	if other, collides := r.findByPopulationIDLocked(patch.PopulationID, id); collides {
		r.mu.Unlock()
		return domain.PersonRecord{}, fmt.Errorf("populationId %s already used by record %s: %w",
			patch.PopulationID, other.ID, domain.ErrConflict)
	}
	previous := r.records[idx]
	patch.ID = id
	r.records[idx] = patch
	r.mu.Unlock()
	r.notify()

	updated, err := r.client.Update(ctx, id, patch)
	if err != nil {
		r.mu.Lock()
		if idx, ok := r.indexOfLocked(id); ok {
			r.records[idx] = previous
		}
		r.mu.Unlock()
		r.notify()

		r.observeAuthFailure(err)
		return domain.PersonRecord{}, fmt.Errorf("update record %s: %w", id, err)
	}

	r.mu.Lock()
	if idx, ok := r.indexOfLocked(id); ok {
		r.records[idx] = updated
	}
	r.mu.Unlock()
	r.notify()

	r.log.InfoContext(ctx, "record updated", slog.String("id", id))
	return updated, nil
}

// Remove deletes the record optimistically and submits the deletion. On
// failure the record is reinserted at its original position.
func (r *Repository) Remove(ctx context.Context, id string) error {
	release := r.guard.acquire(id)
	defer release()

	r.mu.Lock()
	idx, ok := r.indexOfLocked(id)
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("record %s: %w", id, domain.ErrNotFound)
	}
	removed := r.records[idx]
	r.records = append(r.records[:idx], r.records[idx+1:]...)
	r.mu.Unlock()
	r.notify()

	if err := r.client.Delete(ctx, id); err != nil {
		r.mu.Lock()
		pos := idx
		if pos > len(r.records) {
			pos = len(r.records)
		}
		r.records = append(r.records[:pos], append([]domain.PersonRecord{removed}, r.records[pos:]...)...)
		r.mu.Unlock()
		r.notify()

		r.observeAuthFailure(err)
		return fmt.Errorf("remove record %s: %w", id, err)
	}

	r.log.InfoContext(ctx, "record removed", slog.String("id", id))
	return nil
}

func (r *Repository) indexOfLocked(id string) (int, bool) {
	for i, rec := range r.records {
		if rec.ID == id {
			return i, true
		}
	}
	return 0, false
}

// findByPopulationIDLocked returns a record holding populationID, skipping
// the record with id exceptID.
func (r *Repository) findByPopulationIDLocked(populationID, exceptID string) (domain.PersonRecord, bool) {
	for _, rec := range r.records {
		if rec.PopulationID == populationID && rec.ID != exceptID {
			return rec, true
		}
	}
	return domain.PersonRecord{}, false
}

// observeAuthFailure forwards confirmed-dead credentials to the session
// manager so the application drops to the login surface.
func (r *Repository) observeAuthFailure(err error) {
	if r.auth != nil && errors.Is(err, domain.ErrUnauthorized) {
		r.auth.ForceLogout("Session rejected by registry. Please sign in again.")
	}
}
