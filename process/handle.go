package process

import (
	"os/exec"
	"sync"
	"time"
)

const ringBufferCapacity = 1000

// Handle is the process supervisor's view of one spawned child: the OS
// process, its log pipeline, and its liveness/exit state.
type Handle struct {
	ServerID  string
	Pid       int
	LogPath   string
	StartedAt time.Time

	cmd  *exec.Cmd
	ring *RingBuffer

	mu       sync.RWMutex
	alive    bool
	exitCode *int

	stopLiveness chan struct{}
	waitDone     chan struct{}
}

func newHandle(serverID, logPath string, cmd *exec.Cmd) *Handle {
	return &Handle{
		ServerID:     serverID,
		Pid:          cmd.Process.Pid,
		LogPath:      logPath,
		StartedAt:    time.Now(),
		cmd:          cmd,
		ring:         NewRingBuffer(ringBufferCapacity),
		alive:        true,
		stopLiveness: make(chan struct{}),
		waitDone:     make(chan struct{}),
	}
}

// IsAlive reports the last-observed liveness state. It is updated by the
// Wait() goroutine when it latches the exit code; the 5s liveness probe
// only reads it.
func (h *Handle) IsAlive() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.alive
}

// ExitCode returns the child's exit code once it has terminated.
func (h *Handle) ExitCode() (int, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.exitCode == nil {
		return 0, false
	}
	return *h.exitCode, true
}

func (h *Handle) setExited(code int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.alive = false
	if h.exitCode == nil {
		h.exitCode = &code
	}
}

// RecentLogs returns up to n of the most recently captured lines.
func (h *Handle) RecentLogs(n int) []string {
	return h.ring.Snapshot(n)
}

// Metrics is the point-in-time resource/identity snapshot returned by
// Supervisor.Metrics.
type Metrics struct {
	Pid      int
	StartMs  int64
	UptimeMs int64
	CPUMs    *int64
	MemBytes *int64
}
