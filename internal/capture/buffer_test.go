package capture

import (
	"strconv"
	"testing"
)

func bufferEvent(i int) Event {
	return Event{
		ID:          strconv.Itoa(i),
		Kind:        KindInsert,
		Table:       "orders",
		CursorToken: strconv.Itoa(i),
	}
}

func TestEventBuffer_AppendWithinCapacity(t *testing.T) {
	b := NewEventBuffer(5)
	for i := 0; i < 3; i++ {
		b.Append(bufferEvent(i))
	}

	if b.Len() != 3 {
		t.Errorf("Len() = %d, want 3", b.Len())
	}
	if b.Dropped() != 0 {
		t.Errorf("Dropped() = %d, want 0", b.Dropped())
	}
}

func TestEventBuffer_DropOldest(t *testing.T) {
	b := NewEventBuffer(3)
	for i := 0; i < 5; i++ {
		b.Append(bufferEvent(i))
	}

	if b.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", b.Len())
	}
	if b.Dropped() != 2 {
		t.Errorf("Dropped() = %d, want 2", b.Dropped())
	}

	got := b.Drain(0, false)
	want := []string{"2", "3", "4"}
	for i, ev := range got {
		if ev.ID != want[i] {
			t.Errorf("Drain()[%d].ID = %q, want %q", i, ev.ID, want[i])
		}
	}
}

func TestEventBuffer_DrainWithoutClearIsIdempotent(t *testing.T) {
	b := NewEventBuffer(10)
	for i := 0; i < 4; i++ {
		b.Append(bufferEvent(i))
	}

	first := b.Drain(0, false)
	second := b.Drain(0, false)

	if len(first) != 4 || len(second) != 4 {
		t.Fatalf("Drain lengths = %d, %d, want 4, 4", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Errorf("drain %d differs: %q vs %q", i, first[i].ID, second[i].ID)
		}
	}
	if b.Len() != 4 {
		t.Errorf("Len() after non-clearing drains = %d, want 4", b.Len())
	}
}

func TestEventBuffer_DrainWithClear(t *testing.T) {
	b := NewEventBuffer(10)
	for i := 0; i < 4; i++ {
		b.Append(bufferEvent(i))
	}

	got := b.Drain(2, true)
	if len(got) != 2 || got[0].ID != "0" || got[1].ID != "1" {
		t.Fatalf("Drain(2, true) = %v, want events 0 and 1", got)
	}
	if b.Len() != 2 {
		t.Errorf("Len() = %d, want 2", b.Len())
	}

	rest := b.Drain(0, true)
	if len(rest) != 2 || rest[0].ID != "2" || rest[1].ID != "3" {
		t.Fatalf("second Drain = %v, want events 2 and 3", rest)
	}
	if b.Len() != 0 {
		t.Errorf("Len() after full drain = %d, want 0", b.Len())
	}
}

func TestEventBuffer_WrapAround(t *testing.T) {
	b := NewEventBuffer(4)
	for i := 0; i < 4; i++ {
		b.Append(bufferEvent(i))
	}
	b.Drain(2, true)
	for i := 4; i < 7; i++ {
		b.Append(bufferEvent(i))
	}

	// appending event 6 at capacity evicts event 2
	got := b.Drain(0, false)
	want := []string{"3", "4", "5", "6"}
	if len(got) != 4 {
		t.Fatalf("Len = %d, want 4", len(got))
	}
	for i, ev := range got {
		if ev.ID != want[i] {
			t.Errorf("Drain()[%d].ID = %q, want %q", i, ev.ID, want[i])
		}
	}
}

func TestEventBuffer_NonPositiveCapacity(t *testing.T) {
	b := NewEventBuffer(0)
	if b.Cap() != DefaultBufferCapacity {
		t.Errorf("Cap() = %d, want %d", b.Cap(), DefaultBufferCapacity)
	}
}
