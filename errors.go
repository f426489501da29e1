package fleet

import "errors"

// The four error kinds. Call sites wrap one of these sentinels with
// fmt.Errorf("...: %w", ErrX) so callers can errors.Is against the kind
// without parsing message text.
var (
	// ErrPrecondition: not initialised, template missing, unknown server id,
	// dynamic spawning disabled, max-concurrent reached, port taken,
	// directory missing, destination exists. No state change occurs.
	ErrPrecondition = errors.New("precondition failed")

	// ErrIO: clone failed, log file unwritable, directory delete failed.
	// During a spawn transaction this triggers full rollback; mid-life it is
	// logged and does not crash the supervisor.
	ErrIO = errors.New("io failure")

	// ErrRuntime: child died during startup, startup timeout with a dead
	// child. The instance transitions to FAILED, resources are released,
	// and the caller's future fails.
	ErrRuntime = errors.New("runtime failure")

	// ErrSurveillance: heartbeat overdue. Transitions to UNHEALTHY; no
	// caller is notified synchronously, only via the event stream.
	ErrSurveillance = errors.New("surveillance failure")
)
