package fleet

import (
	"fmt"
	"sync"
	"time"
)

// Template is the immutable description of a template once published by the
// template store. It is a value the rest of the core only reads; the store
// owns discovery/validation/materialisation.
type Template struct {
	Name string // case-folded unique key, also the directory basename
	Root string // on-disk root path

	DisplayName          string
	ServerIDPrefix       string
	MaxPlayers           int
	MemoryAllocation     string // opaque, e.g. "2G"
	WorldResetOnShutdown bool
	GracefulShutdown     time.Duration
	StartupArgs          []string
	ServerJar            string
	OCIArtifact          string // non-empty means discovery tried to resolve this ref over Root; a failure is recorded in Errors

	Valid  bool
	Errors []string
}

// ProcessHandle identifies a live child process and its log pipeline. The
// supervisor package projects a process.Handle into one of these; this
// type is the read-only view the rest of the core consumes.
type ProcessHandle struct {
	Pid       int
	LogPath   string
	StartedAt time.Time

	mu       sync.RWMutex
	exitCode *int
}

// SetExitCode latches the child's exit code. Idempotent-in-spirit: only the
// first call after start matters, later calls are ignored once populated,
// keeping exitCode monotonic.
func (h *ProcessHandle) SetExitCode(code int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.exitCode == nil {
		h.exitCode = &code
	}
}

// ExitCode returns the latched exit code, if any.
func (h *ProcessHandle) ExitCode() (int, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.exitCode == nil {
		return 0, false
	}
	return *h.exitCode, true
}

// Instance is the live, mutable record of a spawned backend. All mutable
// fields are guarded by mu; callers must go through the accessor/transition
// methods rather than touching fields directly once an Instance has been
// registered.
type Instance struct {
	ServerID   string
	Type       ServerType
	WorkingDir string
	Port       int
	MaxPlayers int
	Template   *Template // nil for STATIC

	CreatedAt time.Time

	mu               sync.RWMutex
	status           ServerStatus
	process          *ProcessHandle
	startedAt        *time.Time
	stoppedAt        *time.Time
	lastHeartbeat    *time.Time
	stopReason       string
	connectedPlayers map[string]struct{}
	metadata         Metadata
}

// NewInstance constructs an instance in the CREATED state.
func NewInstance(serverID string, typ ServerType, workingDir string, port, maxPlayers int, tmpl *Template, md Metadata) *Instance {
	return &Instance{
		ServerID:         serverID,
		Type:             typ,
		WorkingDir:       workingDir,
		Port:             port,
		MaxPlayers:       maxPlayers,
		Template:         tmpl,
		CreatedAt:        time.Now(),
		status:           Created,
		connectedPlayers: map[string]struct{}{},
		metadata:         md.Clone(),
	}
}

// Status returns the instance's current state under lock.
func (i *Instance) Status() ServerStatus {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.status
}

// Process returns the attached process handle, if any.
func (i *Instance) Process() *ProcessHandle {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.process
}

// StartedAt, StoppedAt, LastHeartbeat, StopReason are read-only snapshots of
// the corresponding timestamp/reason fields.
func (i *Instance) StartedAt() *time.Time {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.startedAt
}

func (i *Instance) StoppedAt() *time.Time {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.stoppedAt
}

func (i *Instance) LastHeartbeat() *time.Time {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.lastHeartbeat
}

func (i *Instance) StopReason() string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.stopReason
}

// Metadata returns a shallow copy of the instance's metadata bag.
func (i *Instance) Metadata() Metadata {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.metadata.Clone()
}

// SetMetadata merges k=v into the instance's metadata bag.
func (i *Instance) SetMetadata(k string, v Value) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.metadata == nil {
		i.metadata = Metadata{}
	}
	i.metadata[k] = v
}

// PlayerCount returns the number of currently connected players.
func (i *Instance) PlayerCount() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.connectedPlayers)
}

// IsFull reports whether the instance has reached MaxPlayers.
func (i *Instance) IsFull() bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.MaxPlayers > 0 && len(i.connectedPlayers) >= i.MaxPlayers
}

// AddPlayer/RemovePlayer maintain the connected-player set.
func (i *Instance) AddPlayer(id string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.connectedPlayers[id] = struct{}{}
}

func (i *Instance) RemovePlayer(id string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.connectedPlayers, id)
}

// errTransition reports an attempted transition out of a terminal state.
// No other from-state is rejected.
type errTransition struct {
	serverID string
	from     ServerStatus
	event    string
}

func (e *errTransition) Error() string {
	return fmt.Sprintf("instance %s: cannot apply %q from state %s", e.serverID, e.event, e.from)
}

// transition moves the instance to next under lock, rejecting moves out of
// a terminal state. Terminal-state enforcement happens here, in one place,
// so it can't drift between call sites.
func (i *Instance) transition(event string, next ServerStatus, mutate func()) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.status.IsTerminal() {
		return &errTransition{serverID: i.ServerID, from: i.status, event: event}
	}
	if mutate != nil {
		mutate()
	}
	i.status = next
	return nil
}

// MarkStarting attaches proc and moves CREATED -> STARTING.
func (i *Instance) MarkStarting(proc *ProcessHandle) error {
	return i.transition("markStarting", Starting, func() {
		i.process = proc
		now := time.Now()
		i.startedAt = &now
	})
}

// MarkRunning moves STARTING or UNHEALTHY -> RUNNING.
func (i *Instance) MarkRunning() error {
	return i.transition("markRunning", Running, nil)
}

// MarkUnhealthy moves RUNNING -> UNHEALTHY on an overdue heartbeat.
func (i *Instance) MarkUnhealthy() error {
	return i.transition("markUnhealthy", Unhealthy, nil)
}

// MarkFailed moves any non-terminal state -> FAILED with reason.
func (i *Instance) MarkFailed(reason string) error {
	return i.transition("markFailed", Failed, func() {
		i.stopReason = reason
		now := time.Now()
		i.stoppedAt = &now
	})
}

// MarkStopping moves RUNNING/UNHEALTHY/STARTING -> STOPPING with reason.
func (i *Instance) MarkStopping(reason string) error {
	return i.transition("shutdown", Stopping, func() {
		i.stopReason = reason
	})
}

// MarkStopped completes a shutdown transaction, STOPPING -> STOPPED.
func (i *Instance) MarkStopped() error {
	return i.transition("killCompleted", Stopped, func() {
		now := time.Now()
		i.stoppedAt = &now
	})
}

// Heartbeat records a liveness signal from the in-process bridge plugin. It
// also recovers an UNHEALTHY instance back to RUNNING.
func (i *Instance) Heartbeat(at time.Time) (recovered bool, err error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.status.IsTerminal() {
		return false, &errTransition{serverID: i.ServerID, from: i.status, event: "onHeartbeat"}
	}
	i.lastHeartbeat = &at
	if i.status == Unhealthy {
		i.status = Running
		return true, nil
	}
	return false, nil
}

// Snapshot is an immutable point-in-time view of an Instance, safe to hand
// to callers outside the lock (used by Registry queries and the façade).
type Snapshot struct {
	ServerID         string
	Type             ServerType
	WorkingDir       string
	Port             int
	MaxPlayers       int
	TemplateName     string
	Status           ServerStatus
	Pid              int
	CreatedAt        time.Time
	StartedAt        *time.Time
	StoppedAt        *time.Time
	LastHeartbeat    *time.Time
	StopReason       string
	ConnectedPlayers int
	Metadata         Metadata
}

// Snapshot takes a consistent, single-lock read of every mutable field.
func (i *Instance) Snapshot() Snapshot {
	i.mu.RLock()
	defer i.mu.RUnlock()
	var tmplName string
	if i.Template != nil {
		tmplName = i.Template.Name
	}
	var pid int
	if i.process != nil {
		pid = i.process.Pid
	}
	return Snapshot{
		ServerID:         i.ServerID,
		Type:             i.Type,
		WorkingDir:       i.WorkingDir,
		Port:             i.Port,
		MaxPlayers:       i.MaxPlayers,
		TemplateName:     tmplName,
		Status:           i.status,
		Pid:              pid,
		CreatedAt:        i.CreatedAt,
		StartedAt:        i.startedAt,
		StoppedAt:        i.stoppedAt,
		LastHeartbeat:    i.lastHeartbeat,
		StopReason:       i.stopReason,
		ConnectedPlayers: len(i.connectedPlayers),
		Metadata:         i.metadata.Clone(),
	}
}
