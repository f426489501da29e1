package supervisor

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/numdrassl/fleet"
)

// StartHealthProbe launches the fleet-wide periodic health probe as a
// background goroutine; cancel ctx to stop it.
func (s *Supervisor) StartHealthProbe(ctx context.Context) {
	interval := time.Duration(s.cfg.HealthCheckIntervalSeconds) * time.Second
	sem := semaphore.NewWeighted(16)
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.probeOnce(ctx, sem, interval)
			}
		}
	}()
}

func (s *Supervisor) probeOnce(ctx context.Context, sem *semaphore.Weighted, interval time.Duration) {
	running := s.reg.ByStatus(fleet.Running)
	for _, inst := range running {
		if err := sem.Acquire(ctx, 1); err != nil {
			return
		}
		go func(inst *fleet.Instance) {
			defer sem.Release(1)
			s.checkInstanceHealth(inst, interval)
		}(inst)
	}
}

// checkInstanceHealth applies the two health-probe rules: process death
// takes priority over heartbeat staleness. An instance that has never
// received a heartbeat is left RUNNING indefinitely absent a process
// death — preserved exactly as documented, not "fixed".
func (s *Supervisor) checkInstanceHealth(inst *fleet.Instance, interval time.Duration) {
	if !s.procs.IsAlive(inst.ServerID) {
		if err := inst.MarkFailed("Process died"); err == nil {
			s.sink.Emit(fleet.ServerHealthEvent{ServerID: inst.ServerID, Previous: fleet.Running, New: fleet.Failed, Message: "Process died"})
			s.cleanupCrashed(inst)
		}
		return
	}

	last := inst.LastHeartbeat()
	if last == nil {
		return
	}
	if time.Since(*last) > 3*interval {
		if err := inst.MarkUnhealthy(); err == nil {
			s.sink.Emit(fleet.ServerHealthEvent{ServerID: inst.ServerID, Previous: fleet.Running, New: fleet.Unhealthy, Message: fmt.Sprintf("heartbeat overdue by %s", time.Since(*last))})
		}
	}
}
