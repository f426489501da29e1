package fleet

import (
	"testing"
	"time"
)

func TestInstanceLifecycleHappyPath(t *testing.T) {
	inst := NewInstance("bedwars-1", Dynamic, "/tmp/bedwars-1", 6100, 16, &Template{Name: "bedwars"}, nil)
	if inst.Status() != Created {
		t.Fatalf("want CREATED, got %s", inst.Status())
	}

	if err := inst.MarkStarting(&ProcessHandle{Pid: 123}); err != nil {
		t.Fatalf("MarkStarting: %v", err)
	}
	if inst.Status() != Starting {
		t.Fatalf("want STARTING, got %s", inst.Status())
	}
	if inst.Process() == nil || inst.Process().Pid != 123 {
		t.Fatalf("process handle not attached")
	}
	if inst.StartedAt() == nil {
		t.Fatalf("startedAt not set")
	}

	if err := inst.MarkRunning(); err != nil {
		t.Fatalf("MarkRunning: %v", err)
	}
	if inst.Status() != Running {
		t.Fatalf("want RUNNING, got %s", inst.Status())
	}

	if err := inst.MarkStopping("Graceful shutdown"); err != nil {
		t.Fatalf("MarkStopping: %v", err)
	}
	if inst.StopReason() != "Graceful shutdown" {
		t.Fatalf("stop reason not recorded")
	}

	if err := inst.MarkStopped(); err != nil {
		t.Fatalf("MarkStopped: %v", err)
	}
	if !inst.Status().IsTerminal() {
		t.Fatalf("STOPPED must be terminal")
	}
	if inst.StoppedAt() == nil {
		t.Fatalf("stoppedAt not set")
	}
}

func TestTerminalStateIsAbsorbing(t *testing.T) {
	inst := NewInstance("s1", Static, "/tmp/s1", 25565, 10, nil, nil)
	if err := inst.MarkFailed("boom"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}
	if err := inst.MarkRunning(); err == nil {
		t.Fatalf("expected error transitioning out of terminal state")
	}
	if err := inst.MarkStopping("whatever"); err == nil {
		t.Fatalf("expected error transitioning out of terminal state")
	}
	if _, err := inst.Heartbeat(time.Now()); err == nil {
		t.Fatalf("expected error recording heartbeat on terminal instance")
	}
}

func TestHeartbeatRecoversUnhealthy(t *testing.T) {
	inst := NewInstance("s1", Static, "/tmp/s1", 25565, 10, nil, nil)
	inst.MarkStarting(&ProcessHandle{Pid: 1})
	inst.MarkRunning()
	if err := inst.MarkUnhealthy(); err != nil {
		t.Fatalf("MarkUnhealthy: %v", err)
	}
	if inst.Status() != Unhealthy {
		t.Fatalf("want UNHEALTHY, got %s", inst.Status())
	}

	recovered, err := inst.Heartbeat(time.Now())
	if err != nil {
		t.Fatalf("Heartbeat: %v", err)
	}
	if !recovered {
		t.Fatalf("expected recovered=true")
	}
	if inst.Status() != Running {
		t.Fatalf("want RUNNING after recovery, got %s", inst.Status())
	}

	recovered, err = inst.Heartbeat(time.Now())
	if err != nil {
		t.Fatalf("Heartbeat: %v", err)
	}
	if recovered {
		t.Fatalf("expected recovered=false on an already-healthy instance")
	}
}

func TestPlayerAccounting(t *testing.T) {
	inst := NewInstance("s1", Static, "/tmp/s1", 25565, 2, nil, nil)
	inst.AddPlayer("alice")
	if inst.IsFull() {
		t.Fatalf("should not be full with 1/2 players")
	}
	inst.AddPlayer("bob")
	if !inst.IsFull() {
		t.Fatalf("should be full with 2/2 players")
	}
	inst.RemovePlayer("alice")
	if inst.PlayerCount() != 1 {
		t.Fatalf("want 1 player, got %d", inst.PlayerCount())
	}
}

func TestSnapshotIsConsistent(t *testing.T) {
	tmpl := &Template{Name: "bedwars"}
	inst := NewInstance("bedwars-1", Dynamic, "/tmp/bedwars-1", 6100, 16, tmpl, Metadata{"nickname": StringValue("Foo")})
	inst.MarkStarting(&ProcessHandle{Pid: 42})
	snap := inst.Snapshot()
	if snap.TemplateName != "bedwars" {
		t.Fatalf("want template name bedwars, got %s", snap.TemplateName)
	}
	if snap.Pid != 42 {
		t.Fatalf("want pid 42, got %d", snap.Pid)
	}
	if v, ok := snap.Metadata["nickname"].String(); !ok || v != "Foo" {
		t.Fatalf("metadata not carried into snapshot")
	}
}
