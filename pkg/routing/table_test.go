package routing

import (
	"testing"

	"github.com/dreadstar/meshrabiya-core/pkg/mmcp"
)

func msg(id uint32, sentTime int64) *mmcp.OriginatorMessage {
	return &mmcp.OriginatorMessage{SentTime: sentTime}
}

func TestOfferAcceptsFirstRecord(t *testing.T) {
	tbl := NewTable()
	accepted, isNew := tbl.Offer(2, msg(1, 100), 100, 2, 1, nil)
	if !accepted || !isNew {
		t.Fatalf("accepted=%v isNew=%v, want true,true", accepted, isNew)
	}
	rec, ok := tbl.Lookup(2)
	if !ok || rec.OriginatorMessage.SentTime != 100 {
		t.Fatalf("unexpected record: %+v", rec)
	}
}

func TestOfferRejectsTie(t *testing.T) {
	tbl := NewTable()
	tbl.Offer(2, msg(1, 100), 100, 2, 2, nil)
	accepted, _ := tbl.Offer(2, msg(2, 100), 200, 2, 2, nil)
	if accepted {
		t.Error("equal sentTime and equal hopCount should never replace")
	}
}

func TestOfferReplacesOnNewerSentTime(t *testing.T) {
	tbl := NewTable()
	tbl.Offer(2, msg(1, 100), 100, 2, 3, nil)
	accepted, isNew := tbl.Offer(2, msg(2, 200), 200, 2, 5, nil)
	if !accepted || isNew {
		t.Fatalf("accepted=%v isNew=%v, want true,false", accepted, isNew)
	}
	rec, _ := tbl.Lookup(2)
	if rec.OriginatorMessage.SentTime != 200 {
		t.Errorf("sentTime = %d, want 200", rec.OriginatorMessage.SentTime)
	}
}

func TestOfferReplacesOnEqualSentTimeLowerHopCount(t *testing.T) {
	tbl := NewTable()
	tbl.Offer(2, msg(1, 100), 100, 2, 5, nil)
	accepted, _ := tbl.Offer(2, msg(2, 100), 150, 3, 2, nil)
	if !accepted {
		t.Fatal("equal sentTime with lower hopCount should replace")
	}
	rec, _ := tbl.Lookup(2)
	if rec.HopCount != 2 {
		t.Errorf("hopCount = %d, want 2", rec.HopCount)
	}
}

func TestOfferRejectsOlderSentTime(t *testing.T) {
	tbl := NewTable()
	tbl.Offer(2, msg(1, 200), 200, 2, 1, nil)
	accepted, _ := tbl.Offer(2, msg(2, 100), 300, 2, 1, nil)
	if accepted {
		t.Error("older sentTime should never replace")
	}
}

func TestNeighborsFiltersHopCountOne(t *testing.T) {
	tbl := NewTable()
	tbl.Offer(2, msg(1, 100), 100, 2, 1, nil)
	tbl.Offer(3, msg(2, 100), 100, 2, 2, nil)
	neighbors := tbl.Neighbors()
	if len(neighbors) != 1 || neighbors[0] != 2 {
		t.Errorf("Neighbors() = %v, want [2]", neighbors)
	}
}

func TestEvictOlderThan(t *testing.T) {
	tbl := NewTable()
	tbl.Offer(2, msg(1, 100), 1000, 2, 1, nil)
	tbl.Offer(3, msg(2, 100), 9000, 2, 1, nil)
	evicted := tbl.EvictOlderThan(10000, 5000)
	if len(evicted) != 1 || evicted[0] != 2 {
		t.Errorf("evicted = %v, want [2]", evicted)
	}
	if _, ok := tbl.Lookup(2); ok {
		t.Error("addr 2 should have been evicted")
	}
	if _, ok := tbl.Lookup(3); !ok {
		t.Error("addr 3 should still be present")
	}
}

func TestFindRouteUsesLastHopAddr(t *testing.T) {
	tbl := NewTable()
	tbl.Offer(3, msg(1, 100), 100, 2, 2, nil)
	nextHop, ok := tbl.FindRoute(3)
	if !ok || nextHop != 2 {
		t.Fatalf("FindRoute(3) = %d,%v, want 2,true", nextHop, ok)
	}
	if _, ok := tbl.FindRoute(99); ok {
		t.Error("FindRoute for unknown dst should report not-found")
	}
}
