// Package facade serialises operator intents over the instance supervisor
// as asynchronous jobs with a completion signal, and emits a span per
// operation for tracing.
package facade

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"

	"github.com/numdrassl/fleet"
	"github.com/numdrassl/fleet/auth"
	"github.com/numdrassl/fleet/registry"
	"github.com/numdrassl/fleet/supervisor"
)

var tracer = otel.Tracer("github.com/numdrassl/fleet/facade")

// Future is the completion signal for an asynchronous operator intent.
type Future struct {
	done chan struct{}
	inst *fleet.Instance
	err  error
}

func newFuture() *Future { return &Future{done: make(chan struct{})} }

func (f *Future) resolve(inst *fleet.Instance, err error) {
	f.inst, f.err = inst, err
	close(f.done)
}

// Wait blocks until the job completes or ctx is cancelled.
func (f *Future) Wait(ctx context.Context) (*fleet.Instance, error) {
	select {
	case <-f.done:
		return f.inst, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Facade is the operator-facing API: one worker-pool-bounded job per
// intent, guarded by an initialised check and, for id-bearing calls, a
// registry lookup.
type Facade struct {
	sup    *supervisor.Supervisor
	sem    *semaphore.Weighted
	signer *auth.Signer

	initialized atomic.Bool
}

// New constructs a Facade over sup with a worker pool of poolSize.
func New(sup *supervisor.Supervisor, poolSize int64, signer *auth.Signer) *Facade {
	if poolSize <= 0 {
		poolSize = 8
	}
	return &Facade{sup: sup, sem: semaphore.NewWeighted(poolSize), signer: signer}
}

// MarkInitialized must be called once Init() and the health probe have
// started; every subsequent intent is guarded on this flag.
func (f *Facade) MarkInitialized() { f.initialized.Store(true) }

func (f *Facade) checkInitialized() error {
	if !f.initialized.Load() {
		return fmt.Errorf("%w: facade not initialised", fleet.ErrPrecondition)
	}
	return nil
}

func (f *Facade) submit(ctx context.Context, spanName string, attrs []attribute.KeyValue, job func(ctx context.Context) (*fleet.Instance, error)) *Future {
	fut := newFuture()
	if err := f.checkInitialized(); err != nil {
		fut.resolve(nil, err)
		return fut
	}
	spanCtx, span := tracer.Start(ctx, spanName, trace.WithAttributes(attrs...))
	if err := f.sem.Acquire(spanCtx, 1); err != nil {
		span.RecordError(err)
		span.End()
		fut.resolve(nil, err)
		return fut
	}
	go func() {
		defer f.sem.Release(1)
		defer span.End()
		inst, err := job(spanCtx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		fut.resolve(inst, err)
	}()
	return fut
}

// SpawnDynamic submits a spawn-dynamic intent.
func (f *Facade) SpawnDynamic(ctx context.Context, templateName string, opts supervisor.SpawnOptions) *Future {
	return f.submit(ctx, "facade.SpawnDynamic", []attribute.KeyValue{attribute.String("template", templateName)}, func(ctx context.Context) (*fleet.Instance, error) {
		return f.sup.SpawnDynamic(ctx, templateName, opts)
	})
}

// StartStatic submits a start-static intent.
func (f *Facade) StartStatic(ctx context.Context, id string) *Future {
	return f.submit(ctx, "facade.StartStatic", []attribute.KeyValue{attribute.String("serverId", id)}, func(ctx context.Context) (*fleet.Instance, error) {
		return f.sup.SpawnStatic(ctx, id, supervisor.SpawnOptions{})
	})
}

// Shutdown submits a shutdown intent. Unknown ids resolve as a benign
// no-op per the supervisor's own semantics.
func (f *Facade) Shutdown(ctx context.Context, id string, force bool) *Future {
	return f.submit(ctx, "facade.Shutdown", []attribute.KeyValue{attribute.String("serverId", id), attribute.Bool("force", force)}, func(ctx context.Context) (*fleet.Instance, error) {
		return nil, f.sup.Shutdown(ctx, id, force)
	})
}

// Restart submits a restart intent.
func (f *Facade) Restart(ctx context.Context, id string) *Future {
	return f.submit(ctx, "facade.Restart", []attribute.KeyValue{attribute.String("serverId", id)}, func(ctx context.Context) (*fleet.Instance, error) {
		return f.sup.Restart(ctx, id)
	})
}

// OnHeartbeat verifies token (if heartbeat authentication is enabled) and
// forwards a liveness signal to the supervisor.
func (f *Facade) OnHeartbeat(id, token string) error {
	if err := f.checkInitialized(); err != nil {
		return err
	}
	if f.signer != nil && !f.signer.Verify(id, token) {
		return fmt.Errorf("%w: invalid heartbeat token for %s", fleet.ErrPrecondition, id)
	}
	return f.sup.OnHeartbeat(id, time.Now())
}

// Registry exposes read-only queries; these are never serialised through
// the worker pool since they don't mutate state.
func (f *Facade) Registry() *registry.Registry { return f.sup.Registry() }

// fleetShutdownBudget bounds how long ShutdownAll will wait for every
// instance to finish tearing down.
const fleetShutdownBudget = 60 * time.Second

// ShutdownAll gracefully shuts down every registered instance, used for
// orchestrator-wide shutdown. It blocks until every shutdown has completed
// or the fleet-wide shutdown budget elapses, whichever comes first.
func (f *Facade) ShutdownAll(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, fleetShutdownBudget)
	defer cancel()

	instances := f.sup.Registry().All()
	futures := make([]*Future, 0, len(instances))
	for _, inst := range instances {
		futures = append(futures, f.Shutdown(ctx, inst.ServerID, false))
	}
	for _, fut := range futures {
		if _, err := fut.Wait(ctx); err != nil {
			slog.Warn("shutdownAll: instance shutdown did not complete cleanly", "error", err)
		}
	}
}
