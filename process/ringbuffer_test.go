package process

import "testing"

func TestRingBufferEvictsOldest(t *testing.T) {
	rb := NewRingBuffer(3)
	rb.Append("a")
	rb.Append("b")
	rb.Append("c")
	rb.Append("d")

	got := rb.Snapshot(0)
	want := []string{"b", "c", "d"}
	if len(got) != len(want) {
		t.Fatalf("want %d lines, got %d (%v)", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("line %d: want %q, got %q", i, want[i], got[i])
		}
	}
}

func TestRingBufferSnapshotN(t *testing.T) {
	rb := NewRingBuffer(10)
	for _, l := range []string{"1", "2", "3", "4", "5"} {
		rb.Append(l)
	}
	last := rb.Snapshot(2)
	if len(last) != 2 || last[0] != "4" || last[1] != "5" {
		t.Fatalf("unexpected tail: %v", last)
	}
	all := rb.Snapshot(100)
	if len(all) != 5 {
		t.Fatalf("want all 5 lines when n exceeds length, got %d", len(all))
	}
}

func TestRingBufferEmpty(t *testing.T) {
	rb := NewRingBuffer(4)
	if got := rb.Snapshot(0); len(got) != 0 {
		t.Fatalf("want empty snapshot, got %v", got)
	}
	if got := rb.Snapshot(5); len(got) != 0 {
		t.Fatalf("want empty snapshot, got %v", got)
	}
}

func TestRingBufferCapacityOne(t *testing.T) {
	rb := NewRingBuffer(1)
	rb.Append("only")
	rb.Append("latest")
	got := rb.Snapshot(0)
	if len(got) != 1 || got[0] != "latest" {
		t.Fatalf("want [latest], got %v", got)
	}
}
