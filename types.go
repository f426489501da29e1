// Package fleet holds the shared data model for the instance supervisor:
// the sum types, the opaque metadata bag, the lifecycle event payloads and
// the error taxonomy that every other package in this module builds on.
package fleet

import "fmt"

// ServerType distinguishes a persistent, operator-declared instance from an
// ephemeral one cloned from a template.
type ServerType int

const (
	Static ServerType = iota
	Dynamic
)

func (t ServerType) String() string {
	switch t {
	case Static:
		return "STATIC"
	case Dynamic:
		return "DYNAMIC"
	default:
		return fmt.Sprintf("ServerType(%d)", int(t))
	}
}

// ServerStatus is the instance state machine's state set.
type ServerStatus int

const (
	Created ServerStatus = iota
	Starting
	Running
	Stopping
	Stopped
	Failed
	Unhealthy
)

func (s ServerStatus) String() string {
	switch s {
	case Created:
		return "CREATED"
	case Starting:
		return "STARTING"
	case Running:
		return "RUNNING"
	case Stopping:
		return "STOPPING"
	case Stopped:
		return "STOPPED"
	case Failed:
		return "FAILED"
	case Unhealthy:
		return "UNHEALTHY"
	default:
		return fmt.Sprintf("ServerStatus(%d)", int(s))
	}
}

// IsTerminal reports whether s is absorbing: STOPPED and FAILED never
// transition further.
func (s ServerStatus) IsTerminal() bool {
	switch s {
	case Stopped, Failed:
		return true
	default:
		return false
	}
}

// ProcessExpected reports whether an instance in status s must have a
// non-nil ProcessHandle attached.
func (s ServerStatus) ProcessExpected() bool {
	switch s {
	case Starting, Running, Stopping, Unhealthy:
		return true
	default:
		return false
	}
}

// AcceptingPlayers reports whether an instance in status s should be
// eligible for player routing.
func (s ServerStatus) AcceptingPlayers() bool {
	return s == Running
}

// StopReason is the closed set of shutdown causes used in ServerShutdown
// events.
type StopReason int

const (
	ReasonUnknown StopReason = iota
	ReasonAdminRequest
	ReasonGameEnded
	ReasonProcessCrashed
	ReasonHealthCheckFailed
	ReasonProxyShutdown
	ReasonAutoCleanup
)

func (r StopReason) String() string {
	switch r {
	case ReasonAdminRequest:
		return "ADMIN_REQUEST"
	case ReasonGameEnded:
		return "GAME_ENDED"
	case ReasonProcessCrashed:
		return "PROCESS_CRASHED"
	case ReasonHealthCheckFailed:
		return "HEALTH_CHECK_FAILED"
	case ReasonProxyShutdown:
		return "PROXY_SHUTDOWN"
	case ReasonAutoCleanup:
		return "AUTO_CLEANUP"
	default:
		return "UNKNOWN"
	}
}
