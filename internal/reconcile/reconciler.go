// Package reconcile keeps the in-memory list of visible positions in sync
// with the authoritative backend. The backend snapshot always wins for row
// content; local state only contributes row ORDER, unconfirmed optimistic
// rows, and the persisted hidden set.
package reconcile

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"tradedesk/internal/repository"
	"tradedesk/internal/trade"
)

// Source fetches the authoritative snapshot of open positions.
type Source interface {
	ListOpenTrades(ctx context.Context) ([]trade.Record, error)
}

// Deleter removes a row upstream. Implementations must treat an upstream
// 404 as success so hides stay idempotent.
type Deleter interface {
	DeleteReport(ctx context.Context, id string) error
}

type Reconciler struct {
	log    *zap.Logger
	source Source
	delete Deleter
	hidden repository.HiddenSetStore

	mu        sync.Mutex
	visible   []trade.Record
	hiddenIDs map[string]bool
	inFlight  bool
	loaded    bool

	// onCommit receives a copy of the visible list after every commit.
	// Used to push snapshots to stream subscribers.
	onCommit func([]trade.Record)

	now func() time.Time
}

func New(log *zap.Logger, source Source, deleter Deleter, hidden repository.HiddenSetStore) *Reconciler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reconciler{
		log:       log,
		source:    source,
		delete:    deleter,
		hidden:    hidden,
		hiddenIDs: map[string]bool{},
		now:       time.Now,
	}
}

// OnCommit registers the snapshot listener. Must be called before the
// first refresh; the callback runs outside the reconciler lock.
func (r *Reconciler) OnCommit(fn func([]trade.Record)) {
	r.onCommit = fn
}

// LoadHidden primes the exclusion set from persistence. Called once at
// startup before the first refresh.
func (r *Reconciler) LoadHidden(ctx context.Context) error {
	if r.hidden == nil {
		return nil
	}
	ids, err := r.hidden.ListHiddenIDs(ctx)
	if err != nil {
		return err
	}
	r.mu.Lock()
	for _, id := range ids {
		r.hiddenIDs[id] = true
	}
	r.mu.Unlock()
	return nil
}

// Visible returns a deep copy of the committed list.
func (r *Reconciler) Visible() []trade.Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneAll(r.visible)
}

// Loaded reports whether at least one snapshot has been committed.
func (r *Reconciler) Loaded() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loaded
}

// RefreshOnce runs a single fetch-merge-commit cycle. While a fetch is
// already pending the call is a no-op, so a slow upstream never stacks
// requests. A fetch failure keeps the previous list; a cancelled context
// is not a failure.
func (r *Reconciler) RefreshOnce(ctx context.Context) error {
	r.mu.Lock()
	if r.inFlight {
		r.mu.Unlock()
		return nil
	}
	r.inFlight = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.inFlight = false
		r.mu.Unlock()
	}()

	incoming, err := r.source.ListOpenTrades(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		r.log.Warn("snapshot fetch failed, keeping previous list", zap.Error(err))
		return err
	}

	r.mu.Lock()
	r.visible = Merge(r.visible, incoming, r.hiddenIDs)
	r.loaded = true
	snapshot := cloneAll(r.visible)
	r.mu.Unlock()

	r.notify(snapshot)
	return nil
}

// Merge reconciles the previous visible list with a fresh snapshot.
//
// Rules, in order:
//   - duplicate ids inside the snapshot collapse to the LAST occurrence,
//     keeping the first occurrence's position
//   - rows present in both lists are replaced in place, order untouched
//   - rows the snapshot dropped disappear, except unconfirmed optimistic
//     rows which stay until their create settles
//   - brand new rows append at the end in snapshot order
//   - hidden ids never surface
func Merge(prev, incoming []trade.Record, hidden map[string]bool) []trade.Record {
	deduped := dedupeLastWins(incoming)

	byID := make(map[string]trade.Record, len(deduped))
	for _, rec := range deduped {
		byID[rec.ID] = rec
	}

	out := make([]trade.Record, 0, len(prev)+len(deduped))
	seen := make(map[string]bool, len(prev))
	for _, old := range prev {
		seen[old.ID] = true
		if hidden[old.ID] {
			continue
		}
		if fresh, ok := byID[old.ID]; ok {
			// Upstream content wins; a confirmed row is no longer optimistic.
			fresh.Optimistic = false
			out = append(out, fresh)
			continue
		}
		if old.Optimistic {
			out = append(out, old)
		}
	}
	for _, rec := range deduped {
		if seen[rec.ID] || hidden[rec.ID] {
			continue
		}
		rec.Optimistic = false
		out = append(out, rec)
	}
	return out
}

func dedupeLastWins(incoming []trade.Record) []trade.Record {
	last := make(map[string]trade.Record, len(incoming))
	for _, rec := range incoming {
		last[rec.ID] = rec
	}
	out := make([]trade.Record, 0, len(last))
	emitted := make(map[string]bool, len(last))
	for _, rec := range incoming {
		if emitted[rec.ID] {
			continue
		}
		emitted[rec.ID] = true
		out = append(out, last[rec.ID])
	}
	return out
}

// OptimisticInsert places a locally created row at the front of the list
// so it shows immediately, before the backend confirms it.
func (r *Reconciler) OptimisticInsert(rec trade.Record) {
	rec.Optimistic = true
	r.mu.Lock()
	r.visible = append([]trade.Record{rec}, r.visible...)
	snapshot := cloneAll(r.visible)
	r.mu.Unlock()
	r.notify(snapshot)
}

// ConfirmCreate swaps the optimistic placeholder for the backend's record,
// keeping the placeholder's position even when a refresh already delivered
// the confirmed row at another slot. Confirming a row the operator hid in
// the meantime must not resurrect it.
func (r *Reconciler) ConfirmCreate(localID string, confirmed trade.Record) {
	confirmed.Optimistic = false
	r.mu.Lock()
	if r.hiddenIDs[localID] || r.hiddenIDs[confirmed.ID] {
		// The hide wins. Tombstone the server id too so later snapshots
		// cannot bring the row back under its confirmed identity.
		r.hiddenIDs[confirmed.ID] = true
		next := r.visible[:0:0]
		for _, rec := range r.visible {
			if rec.ID != localID && rec.ID != confirmed.ID {
				next = append(next, rec)
			}
		}
		r.visible = next
		snapshot := cloneAll(r.visible)
		r.mu.Unlock()
		r.notify(snapshot)
		return
	}

	localPresent := false
	for _, rec := range r.visible {
		if rec.ID == localID {
			localPresent = true
			break
		}
	}
	next := make([]trade.Record, 0, len(r.visible))
	replaced := false
	for _, rec := range r.visible {
		switch {
		case rec.ID == localID:
			next = append(next, confirmed)
			replaced = true
		case rec.ID == confirmed.ID && localPresent:
			// The snapshot beat the confirmation; the placeholder slot wins
			// and this copy is the duplicate.
		case rec.ID == confirmed.ID:
			next = append(next, confirmed)
			replaced = true
		default:
			next = append(next, rec)
		}
	}
	if !replaced {
		next = append([]trade.Record{confirmed}, next...)
	}
	r.visible = next
	snapshot := cloneAll(r.visible)
	r.mu.Unlock()
	r.notify(snapshot)
}

// Hide deletes the row upstream and, on success, persists its id to the
// exclusion set and drops it locally. A failed delete keeps the row.
func (r *Reconciler) Hide(ctx context.Context, id string) error {
	if r.delete != nil {
		if err := r.delete.DeleteReport(ctx, id); err != nil {
			return err
		}
	}
	if r.hidden != nil {
		if err := r.hidden.AddHiddenID(ctx, id, r.now().UTC()); err != nil {
			// The upstream row is gone; losing the persisted tombstone
			// only risks a reappearance after restart. Log and move on.
			r.log.Error("persist hidden id failed", zap.String("id", id), zap.Error(err))
		}
	}

	r.mu.Lock()
	r.hiddenIDs[id] = true
	next := r.visible[:0:0]
	for _, rec := range r.visible {
		if rec.ID != id {
			next = append(next, rec)
		}
	}
	r.visible = next
	snapshot := cloneAll(r.visible)
	r.mu.Unlock()
	r.notify(snapshot)
	return nil
}

func (r *Reconciler) notify(snapshot []trade.Record) {
	if r.onCommit != nil {
		r.onCommit(snapshot)
	}
}

func cloneAll(in []trade.Record) []trade.Record {
	out := make([]trade.Record, 0, len(in))
	for _, rec := range in {
		out = append(out, rec.Clone())
	}
	return out
}
