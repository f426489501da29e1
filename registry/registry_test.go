package registry

import (
	"testing"

	"github.com/numdrassl/fleet"
)

func mkInstance(id string, port, maxPlayers int) *fleet.Instance {
	return fleet.NewInstance(id, fleet.Dynamic, "/tmp/"+id, port, maxPlayers, &fleet.Template{Name: "bedwars"}, nil)
}

func TestRegisterRejectsDuplicateID(t *testing.T) {
	r := New()
	if err := r.Register(mkInstance("a", 6000, 10)); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := r.Register(mkInstance("a", 6001, 10)); err == nil {
		t.Fatalf("expected duplicate id error")
	}
}

func TestRegisterRejectsDuplicatePort(t *testing.T) {
	r := New()
	if err := r.Register(mkInstance("a", 6000, 10)); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := r.Register(mkInstance("b", 6000, 10)); err == nil {
		t.Fatalf("expected duplicate port error")
	}
}

func TestUnregisterFreesBothIndexes(t *testing.T) {
	r := New()
	r.Register(mkInstance("a", 6000, 10))
	r.Unregister("a")
	if _, ok := r.ByID("a"); ok {
		t.Fatalf("expected a to be gone")
	}
	if _, ok := r.ByPort(6000); ok {
		t.Fatalf("expected port 6000 to be freed")
	}
}

func TestAvailablePrefersLeastLoaded(t *testing.T) {
	r := New()
	full := mkInstance("full", 6000, 1)
	full.MarkStarting(&fleet.ProcessHandle{Pid: 1})
	full.MarkRunning()
	full.AddPlayer("p1")

	light := mkInstance("light", 6001, 10)
	light.MarkStarting(&fleet.ProcessHandle{Pid: 2})
	light.MarkRunning()
	light.AddPlayer("p1")

	heavier := mkInstance("heavier", 6002, 10)
	heavier.MarkStarting(&fleet.ProcessHandle{Pid: 3})
	heavier.MarkRunning()
	heavier.AddPlayer("p1")
	heavier.AddPlayer("p2")

	r.Register(full)
	r.Register(light)
	r.Register(heavier)

	got, ok := r.Available("bedwars")
	if !ok {
		t.Fatalf("expected an available instance")
	}
	if got.ServerID != "light" {
		t.Fatalf("want light (1 player, not full), got %s", got.ServerID)
	}
}

func TestAvailableExcludesFullAndWrongTemplate(t *testing.T) {
	r := New()
	other := fleet.NewInstance("other", fleet.Dynamic, "/tmp/other", 6003, 10, &fleet.Template{Name: "skywars"}, nil)
	other.MarkStarting(&fleet.ProcessHandle{Pid: 4})
	other.MarkRunning()
	r.Register(other)

	if _, ok := r.Available("bedwars"); ok {
		t.Fatalf("expected no bedwars instance available")
	}
}

func TestStatsCountsByTypeAndStatus(t *testing.T) {
	r := New()
	dyn := mkInstance("d1", 6000, 10)
	dyn.MarkStarting(&fleet.ProcessHandle{Pid: 1})
	dyn.MarkRunning()
	dyn.AddPlayer("p1")
	stat := fleet.NewInstance("s1", fleet.Static, "/tmp/s1", 25565, 20, nil, nil)

	r.Register(dyn)
	r.Register(stat)

	stats := r.Stats()
	if stats.TotalDynamic != 1 || stats.TotalStatic != 1 {
		t.Fatalf("unexpected type counts: %+v", stats)
	}
	if stats.Running != 1 {
		t.Fatalf("want 1 running, got %d", stats.Running)
	}
	if stats.TotalPlayers != 1 {
		t.Fatalf("want 1 total player, got %d", stats.TotalPlayers)
	}
}
