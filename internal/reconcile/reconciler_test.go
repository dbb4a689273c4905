package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"tradedesk/internal/trade"
)

func rec(id string) trade.Record {
	return trade.Record{ID: id, Symbol: "SPY", Right: trade.RightCall, Status: trade.StatusOpen, Contracts: 1}
}

func optimistic(id string) trade.Record {
	r := rec(id)
	r.Optimistic = true
	return r
}

func ids(list []trade.Record) []string {
	out := make([]string, 0, len(list))
	for _, r := range list {
		out = append(out, r.ID)
	}
	return out
}

func sameIDs(a []string, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestMergeReplacesInPlaceAndAppendsNew(t *testing.T) {
	prev := []trade.Record{rec("a"), rec("b"), rec("c")}
	freshB := rec("b")
	freshB.CurrentPrice = 4.2
	incoming := []trade.Record{freshB, rec("d"), rec("a"), rec("c")}

	out := Merge(prev, incoming, nil)
	if got := ids(out); !sameIDs(got, []string{"a", "b", "c", "d"}) {
		t.Fatalf("order = %v, want a b c d", got)
	}
	if out[1].CurrentPrice != 4.2 {
		t.Fatalf("row b not replaced with snapshot content, price = %v", out[1].CurrentPrice)
	}
}

func TestMergeDropsUpstreamRemovedRows(t *testing.T) {
	prev := []trade.Record{rec("a"), rec("b")}
	out := Merge(prev, []trade.Record{rec("b")}, nil)
	if got := ids(out); !sameIDs(got, []string{"b"}) {
		t.Fatalf("order = %v, want b only", got)
	}
}

func TestMergeKeepsUnconfirmedOptimisticRows(t *testing.T) {
	prev := []trade.Record{optimistic("local-1"), rec("a")}
	out := Merge(prev, []trade.Record{rec("a")}, nil)
	if got := ids(out); !sameIDs(got, []string{"local-1", "a"}) {
		t.Fatalf("order = %v, want local-1 a", got)
	}
	if !out[0].Optimistic {
		t.Fatalf("optimistic flag lost on surviving local row")
	}
}

func TestMergeDedupesSnapshotLastWinsFirstPosition(t *testing.T) {
	first := rec("x")
	first.CurrentPrice = 1
	last := rec("x")
	last.CurrentPrice = 9
	incoming := []trade.Record{first, rec("y"), last}

	out := Merge(nil, incoming, nil)
	if got := ids(out); !sameIDs(got, []string{"x", "y"}) {
		t.Fatalf("order = %v, want x y", got)
	}
	if out[0].CurrentPrice != 9 {
		t.Fatalf("duplicate id collapsed to first occurrence content, price = %v", out[0].CurrentPrice)
	}
}

func TestMergeStripsHiddenIDs(t *testing.T) {
	prev := []trade.Record{rec("a"), rec("b")}
	incoming := []trade.Record{rec("a"), rec("b"), rec("h")}
	hidden := map[string]bool{"b": true, "h": true}

	out := Merge(prev, incoming, hidden)
	if got := ids(out); !sameIDs(got, []string{"a"}) {
		t.Fatalf("order = %v, want a only", got)
	}
}

func TestMergeIsIdempotent(t *testing.T) {
	prev := []trade.Record{optimistic("local"), rec("a"), rec("b")}
	incoming := []trade.Record{rec("b"), rec("a"), rec("c")}
	hidden := map[string]bool{"b": true}

	once := Merge(prev, incoming, hidden)
	twice := Merge(once, incoming, hidden)
	if !sameIDs(ids(once), ids(twice)) {
		t.Fatalf("second merge changed order: %v vs %v", ids(once), ids(twice))
	}
}

type fakeSource struct {
	records []trade.Record
	err     error
	calls   int
	block   chan struct{}
}

func (f *fakeSource) ListOpenTrades(ctx context.Context) ([]trade.Record, error) {
	f.calls++
	if f.block != nil {
		<-f.block
	}
	if f.err != nil {
		return nil, f.err
	}
	out := make([]trade.Record, len(f.records))
	copy(out, f.records)
	return out, nil
}

type fakeDeleter struct {
	err     error
	deleted []string
}

func (f *fakeDeleter) DeleteReport(ctx context.Context, id string) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeHiddenStore struct {
	ids []string
}

func (f *fakeHiddenStore) ListHiddenIDs(ctx context.Context) ([]string, error) {
	return append([]string(nil), f.ids...), nil
}

func (f *fakeHiddenStore) AddHiddenID(ctx context.Context, id string, at time.Time) error {
	f.ids = append(f.ids, id)
	return nil
}

func TestRefreshOnceFailureKeepsPreviousList(t *testing.T) {
	src := &fakeSource{records: []trade.Record{rec("a"), rec("b")}}
	r := New(nil, src, nil, nil)

	if err := r.RefreshOnce(context.Background()); err != nil {
		t.Fatalf("first refresh: %v", err)
	}
	src.err = errors.New("boom")
	if err := r.RefreshOnce(context.Background()); err == nil {
		t.Fatalf("expected refresh error")
	}
	if got := ids(r.Visible()); !sameIDs(got, []string{"a", "b"}) {
		t.Fatalf("failed refresh mutated list: %v", got)
	}
}

func TestRefreshOnceCanceledIsSilent(t *testing.T) {
	src := &fakeSource{err: context.Canceled}
	r := New(nil, src, nil, nil)
	if err := r.RefreshOnce(context.Background()); err != nil {
		t.Fatalf("cancellation should not surface: %v", err)
	}
	if r.Loaded() {
		t.Fatalf("cancelled fetch must not mark the list loaded")
	}
}

func TestRefreshOnceSkipsWhileInFlight(t *testing.T) {
	src := &fakeSource{records: []trade.Record{rec("a")}, block: make(chan struct{})}
	r := New(nil, src, nil, nil)

	done := make(chan error, 1)
	go func() { done <- r.RefreshOnce(context.Background()) }()

	for i := 0; src.calls == 0 && i < 100; i++ {
		time.Sleep(time.Millisecond)
	}
	// Second tick while the first fetch is pending is a no-op.
	if err := r.RefreshOnce(context.Background()); err != nil {
		t.Fatalf("overlapping refresh: %v", err)
	}
	close(src.block)
	if err := <-done; err != nil {
		t.Fatalf("first refresh: %v", err)
	}
	if src.calls != 1 {
		t.Fatalf("source called %d times, want 1", src.calls)
	}
}

func TestOptimisticCreateRoundTrip(t *testing.T) {
	src := &fakeSource{records: []trade.Record{rec("a"), rec("b")}}
	r := New(nil, src, nil, nil)
	if err := r.RefreshOnce(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	r.OptimisticInsert(optimistic("local-1"))
	if got := ids(r.Visible()); !sameIDs(got, []string{"local-1", "a", "b"}) {
		t.Fatalf("after insert: %v", got)
	}

	// A refresh in between must not evict the unconfirmed row.
	if err := r.RefreshOnce(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if got := ids(r.Visible()); !sameIDs(got, []string{"local-1", "a", "b"}) {
		t.Fatalf("after refresh: %v", got)
	}

	confirmed := rec("srv-9")
	confirmed.CurrentPrice = 2.5
	r.ConfirmCreate("local-1", confirmed)
	got := r.Visible()
	if !sameIDs(ids(got), []string{"srv-9", "a", "b"}) {
		t.Fatalf("after confirm: %v", ids(got))
	}
	if got[0].Optimistic {
		t.Fatalf("confirmed row still flagged optimistic")
	}
}

func TestConfirmCreateWhenSnapshotArrivedFirst(t *testing.T) {
	src := &fakeSource{records: []trade.Record{rec("a")}}
	r := New(nil, src, nil, nil)
	if err := r.RefreshOnce(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	r.OptimisticInsert(optimistic("local-1"))

	// The poll delivers the confirmed row before the create response lands.
	src.records = []trade.Record{rec("srv-9"), rec("a")}
	if err := r.RefreshOnce(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	r.ConfirmCreate("local-1", rec("srv-9"))

	// The confirmed row takes the placeholder's front slot, not the
	// snapshot-appended one, and appears exactly once.
	if got := ids(r.Visible()); !sameIDs(got, []string{"srv-9", "a"}) {
		t.Fatalf("duplicate after confirm: %v", got)
	}
}

func TestConfirmCreateAfterHideDoesNotResurrect(t *testing.T) {
	src := &fakeSource{records: []trade.Record{rec("a")}}
	del := &fakeDeleter{}
	store := &fakeHiddenStore{}
	r := New(nil, src, del, store)
	if err := r.RefreshOnce(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	r.OptimisticInsert(optimistic("local-1"))

	// The operator hides the row while the create is still in flight.
	if err := r.Hide(context.Background(), "local-1"); err != nil {
		t.Fatalf("hide: %v", err)
	}
	r.ConfirmCreate("local-1", rec("srv-9"))
	if got := ids(r.Visible()); !sameIDs(got, []string{"a"}) {
		t.Fatalf("confirm resurrected a hidden row: %v", got)
	}

	// The server id is tombstoned too, so snapshots cannot bring it back.
	src.records = []trade.Record{rec("srv-9"), rec("a")}
	if err := r.RefreshOnce(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if got := ids(r.Visible()); !sameIDs(got, []string{"a"}) {
		t.Fatalf("hidden row reappeared under its server id: %v", got)
	}
}

func TestHidePersistsAndNeverReappears(t *testing.T) {
	src := &fakeSource{records: []trade.Record{rec("a"), rec("b")}}
	del := &fakeDeleter{}
	store := &fakeHiddenStore{}
	r := New(nil, src, del, store)
	if err := r.RefreshOnce(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	if err := r.Hide(context.Background(), "b"); err != nil {
		t.Fatalf("hide: %v", err)
	}
	if got := ids(r.Visible()); !sameIDs(got, []string{"a"}) {
		t.Fatalf("after hide: %v", got)
	}
	if len(store.ids) != 1 || store.ids[0] != "b" {
		t.Fatalf("hidden id not persisted: %v", store.ids)
	}

	// The upstream keeps sending the row; it must stay gone.
	if err := r.RefreshOnce(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if got := ids(r.Visible()); !sameIDs(got, []string{"a"}) {
		t.Fatalf("hidden row reappeared: %v", got)
	}
}

func TestHideFailedDeleteKeepsRow(t *testing.T) {
	src := &fakeSource{records: []trade.Record{rec("a")}}
	del := &fakeDeleter{err: errors.New("upstream 500")}
	r := New(nil, src, del, &fakeHiddenStore{})
	if err := r.RefreshOnce(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if err := r.Hide(context.Background(), "a"); err == nil {
		t.Fatalf("expected hide error")
	}
	if got := ids(r.Visible()); !sameIDs(got, []string{"a"}) {
		t.Fatalf("row dropped despite failed delete: %v", got)
	}
}

func TestLoadHiddenPrimesExclusionSet(t *testing.T) {
	src := &fakeSource{records: []trade.Record{rec("a"), rec("gone")}}
	store := &fakeHiddenStore{ids: []string{"gone"}}
	r := New(nil, src, nil, store)
	if err := r.LoadHidden(context.Background()); err != nil {
		t.Fatalf("load hidden: %v", err)
	}
	if err := r.RefreshOnce(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if got := ids(r.Visible()); !sameIDs(got, []string{"a"}) {
		t.Fatalf("persisted hidden id surfaced: %v", got)
	}
}

func TestOnCommitReceivesSnapshots(t *testing.T) {
	src := &fakeSource{records: []trade.Record{rec("a")}}
	r := New(nil, src, nil, nil)
	var last []trade.Record
	r.OnCommit(func(s []trade.Record) { last = s })
	if err := r.RefreshOnce(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if !sameIDs(ids(last), []string{"a"}) {
		t.Fatalf("commit snapshot = %v", ids(last))
	}
	// The callback copy must not alias internal state.
	last[0].ID = "mutated"
	if got := ids(r.Visible()); !sameIDs(got, []string{"a"}) {
		t.Fatalf("snapshot aliases internal list: %v", got)
	}
}
