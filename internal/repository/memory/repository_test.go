package memoryrepository

import (
	"context"
	"testing"
	"time"

	"tradedesk/internal/models"
)

func TestHiddenIDsOrderedAndDeduped(t *testing.T) {
	s := New()
	ctx := context.Background()
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	if err := s.AddHiddenID(ctx, "b", base.Add(time.Minute)); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := s.AddHiddenID(ctx, "a", base); err != nil {
		t.Fatalf("add: %v", err)
	}
	// Re-hiding keeps the original timestamp.
	if err := s.AddHiddenID(ctx, "b", base.Add(time.Hour)); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := s.AddHiddenID(ctx, "  ", base); err != nil {
		t.Fatalf("blank id: %v", err)
	}

	ids, err := s.ListHiddenIDs(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Fatalf("ids = %v, want [a b]", ids)
	}
}

func TestPublicationsNewestFirst(t *testing.T) {
	s := New()
	ctx := context.Background()
	for _, id := range []string{"t1", "t2", "t3"} {
		if err := s.InsertPublication(ctx, &models.Publication{TradeID: id}); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	items, err := s.ListPublications(ctx, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 2 || items[0].TradeID != "t3" || items[1].TradeID != "t2" {
		t.Fatalf("items = %+v", items)
	}
	if items[0].ID == 0 {
		t.Fatalf("id not assigned")
	}
}
