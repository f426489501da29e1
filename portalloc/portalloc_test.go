package portalloc

import "testing"

func TestAcquireInRangeSmallestFirst(t *testing.T) {
	a := New()
	p1 := a.AcquireInRange(6000, 6002)
	p2 := a.AcquireInRange(6000, 6002)
	p3 := a.AcquireInRange(6000, 6002)
	if p1 != 6000 || p2 != 6001 || p3 != 6002 {
		t.Fatalf("want 6000,6001,6002, got %d,%d,%d", p1, p2, p3)
	}
	if got := a.AcquireInRange(6000, 6002); got != -1 {
		t.Fatalf("want -1 on exhausted range, got %d", got)
	}
}

func TestReleaseThenReacquire(t *testing.T) {
	a := New()
	p := a.AcquireInRange(7000, 7000)
	if p != 7000 {
		t.Fatalf("want 7000, got %d", p)
	}
	a.Release(p)
	if a.IsTaken(7000) {
		t.Fatalf("port should be free after release")
	}
	if got := a.AcquireInRange(7000, 7000); got != 7000 {
		t.Fatalf("want to reacquire 7000, got %d", got)
	}
}

func TestReleaseIsIdempotent(t *testing.T) {
	a := New()
	a.Release(9999)
	a.Release(9999)
}

func TestAcquireSpecific(t *testing.T) {
	a := New()
	if !a.AcquireSpecific(25565) {
		t.Fatalf("first acquire of a free port should succeed")
	}
	if a.AcquireSpecific(25565) {
		t.Fatalf("second acquire of an already-taken port should fail")
	}
	a.Release(25565)
	if !a.AcquireSpecific(25565) {
		t.Fatalf("acquire after release should succeed")
	}
}

func TestAvailableInRange(t *testing.T) {
	a := New()
	if got := a.AvailableInRange(5000, 5004); got != 5 {
		t.Fatalf("want 5 free ports, got %d", got)
	}
	a.AcquireInRange(5000, 5004)
	a.AcquireInRange(5000, 5004)
	if got := a.AvailableInRange(5000, 5004); got != 3 {
		t.Fatalf("want 3 free ports after two acquisitions, got %d", got)
	}
}
