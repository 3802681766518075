package dispatch_test

import (
	"testing"

	"github.com/unclebandit/bulksms-backend/internal/dispatch"
)

func TestBatcherEmitsAtSize(t *testing.T) {
	b := dispatch.NewBatcher(3)

	if got := b.Add(dispatch.Pair{Phone: "1", Message: "m"}); got != nil {
		t.Fatal("batch emitted early")
	}
	if got := b.Add(dispatch.Pair{Phone: "2", Message: "m"}); got != nil {
		t.Fatal("batch emitted early")
	}
	groups := b.Add(dispatch.Pair{Phone: "3", Message: "m"})
	if groups == nil {
		t.Fatal("expected a full batch")
	}
	if len(groups) != 1 || len(groups[0].Phones) != 3 {
		t.Errorf("expected one group of 3 phones, got %+v", groups)
	}
}

func TestBatcherGroupsByMessage(t *testing.T) {
	b := dispatch.NewBatcher(10)
	b.Add(dispatch.Pair{Phone: "1", Message: "same"})
	b.Add(dispatch.Pair{Phone: "2", Message: "unique for 2"})
	b.Add(dispatch.Pair{Phone: "3", Message: "same"})

	groups := b.Flush()
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	if groups[0].Message != "same" || len(groups[0].Phones) != 2 {
		t.Errorf("first group wrong: %+v", groups[0])
	}
	if groups[1].Message != "unique for 2" || len(groups[1].Phones) != 1 {
		t.Errorf("second group wrong: %+v", groups[1])
	}
}

func TestBatcherFlushEmpty(t *testing.T) {
	b := dispatch.NewBatcher(5)
	if got := b.Flush(); got != nil {
		t.Errorf("expected nil for empty flush, got %+v", got)
	}
}

func TestBatcherResetsAfterFlush(t *testing.T) {
	b := dispatch.NewBatcher(2)
	b.Add(dispatch.Pair{Phone: "1", Message: "m"})
	b.Add(dispatch.Pair{Phone: "2", Message: "m"})
	if got := b.Flush(); got != nil {
		t.Error("pairs should have been emitted by Add already")
	}

	b.Add(dispatch.Pair{Phone: "3", Message: "m"})
	groups := b.Flush()
	if len(groups) != 1 || len(groups[0].Phones) != 1 || groups[0].Phones[0] != "3" {
		t.Errorf("leftover state after flush: %+v", groups)
	}
}
