package fleet

import "testing"

func TestServerStatusIsTerminal(t *testing.T) {
	terminal := map[ServerStatus]bool{
		Created:   false,
		Starting:  false,
		Running:   false,
		Stopping:  false,
		Stopped:   true,
		Failed:    true,
		Unhealthy: false,
	}
	for status, want := range terminal {
		if got := status.IsTerminal(); got != want {
			t.Errorf("%s.IsTerminal() = %v, want %v", status, got, want)
		}
	}
}

func TestServerStatusProcessExpected(t *testing.T) {
	expected := map[ServerStatus]bool{
		Created:   false,
		Starting:  true,
		Running:   true,
		Stopping:  true,
		Stopped:   false,
		Failed:    false,
		Unhealthy: true,
	}
	for status, want := range expected {
		if got := status.ProcessExpected(); got != want {
			t.Errorf("%s.ProcessExpected() = %v, want %v", status, got, want)
		}
	}
}

func TestOnlyRunningAcceptsPlayers(t *testing.T) {
	for status := Created; status <= Unhealthy; status++ {
		want := status == Running
		if got := status.AcceptingPlayers(); got != want {
			t.Errorf("%s.AcceptingPlayers() = %v, want %v", status, got, want)
		}
	}
}

func TestStopReasonStringUnknownDefault(t *testing.T) {
	if got := StopReason(99).String(); got != "UNKNOWN" {
		t.Errorf("unmapped StopReason.String() = %q, want UNKNOWN", got)
	}
	if got := ReasonProcessCrashed.String(); got != "PROCESS_CRASHED" {
		t.Errorf("ReasonProcessCrashed.String() = %q", got)
	}
}

func TestServerTypeString(t *testing.T) {
	if Static.String() != "STATIC" || Dynamic.String() != "DYNAMIC" {
		t.Errorf("unexpected ServerType strings: %s, %s", Static, Dynamic)
	}
}
