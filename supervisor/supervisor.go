// Package supervisor is the instance supervisor: it owns the per-instance
// state machine, the spawn/shutdown/restart transactions, the readiness
// scanner and the periodic health probe.
package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/goombaio/namegenerator"

	"github.com/numdrassl/fleet"
	"github.com/numdrassl/fleet/auth"
	"github.com/numdrassl/fleet/config"
	"github.com/numdrassl/fleet/portalloc"
	"github.com/numdrassl/fleet/process"
	"github.com/numdrassl/fleet/registry"
	"github.com/numdrassl/fleet/template"
)

// defaultServerArgs is the fallback serverArgs vector for a dynamic
// instance whose template names no startupArgs.
var defaultServerArgs = []string{"--assets", "Assets.zip", "--auth-mode", "insecure", "--transport", "QUIC"}

// SpawnOptions carries the caller-supplied overrides for a spawn.
type SpawnOptions struct {
	ServerID   string
	MaxPlayers int
	Memory     string
	Metadata   fleet.Metadata
}

// Supervisor orchestrates the instance lifecycle across the process
// supervisor, port allocator, template store and registry.
type Supervisor struct {
	cfg        *config.Orchestrator
	root       string
	staticDir  string
	dynamicDir string
	logsDir    string

	templates *template.Store
	ports     *portalloc.Allocator
	procs     *process.Supervisor
	reg       *registry.Registry
	sink      fleet.EventSink
	signer    *auth.Signer

	readiness ReadinessPredicate
	counter   uint64
	names     namegenerator.Generator

	stopProbe chan struct{}
}

// New constructs a Supervisor rooted at root (the "servers/" directory).
func New(cfg *config.Orchestrator, root string, templates *template.Store, ports *portalloc.Allocator, procs *process.Supervisor, reg *registry.Registry, sink fleet.EventSink, signer *auth.Signer) *Supervisor {
	if sink == nil {
		sink = fleet.NopEventSink
	}
	return &Supervisor{
		cfg:        cfg,
		root:       root,
		staticDir:  filepath.Join(root, "static"),
		dynamicDir: filepath.Join(root, "dynamic"),
		logsDir:    filepath.Join(root, "logs"),
		templates:  templates,
		ports:      ports,
		procs:      procs,
		reg:        reg,
		sink:       sink,
		signer:     signer,
		readiness:  DefaultReadinessPredicate,
		names:      namegenerator.NewNameGenerator(time.Now().UnixNano()),
	}
}

// Init performs the boot-time side effect: residue from a prior process
// cannot be safely adopted, so every child of the dynamic root is deleted
// unconditionally before any intent is accepted.
func (s *Supervisor) Init() error {
	entries, err := os.ReadDir(s.dynamicDir)
	if os.IsNotExist(err) {
		return os.MkdirAll(s.dynamicDir, 0o750)
	}
	if err != nil {
		return fmt.Errorf("scan dynamic root %s: %w", s.dynamicDir, err)
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(s.dynamicDir, e.Name())); err != nil {
			slog.Error("supervisor.Init: wipe dynamic residue failed", "entry", e.Name(), "error", err)
		}
	}
	return nil
}

func (s *Supervisor) nextCounter() uint64 {
	return atomic.AddUint64(&s.counter, 1)
}

// SpawnDynamic runs the spawn-dynamic transaction: template resolution,
// port acquisition, cloning, process start and readiness scan, with full
// rollback of every acquired resource on any failure from port acquisition
// onward.
func (s *Supervisor) SpawnDynamic(ctx context.Context, templateName string, opts SpawnOptions) (*fleet.Instance, error) {
	if !s.cfg.DynamicSpawning.Enabled {
		return nil, fmt.Errorf("%w: dynamic spawning disabled", fleet.ErrPrecondition)
	}
	if max := s.cfg.DynamicSpawning.MaxConcurrent; max > 0 && len(s.reg.ByType(fleet.Dynamic)) >= max {
		return nil, fmt.Errorf("%w: max concurrent dynamic instances reached", fleet.ErrPrecondition)
	}

	tmpl, ok := s.templates.ByName(templateName)
	if !ok || !tmpl.Valid {
		return nil, fmt.Errorf("%w: template %q not found or invalid", fleet.ErrPrecondition, templateName)
	}
	tc := s.cfg.TemplateFor(tmpl.Name)

	serverID := opts.ServerID
	if serverID == "" {
		serverID = fmt.Sprintf("%s-%d", tmpl.ServerIDPrefix, s.nextCounter())
	}
	if _, exists := s.reg.ByID(serverID); exists {
		return nil, fmt.Errorf("%w: server id %s already registered", fleet.ErrPrecondition, serverID)
	}

	lo, hi := s.cfg.PortAllocation.DynamicRangeStart, s.cfg.PortAllocation.DynamicRangeEnd
	if tc.PortRangeStart > 0 {
		lo, hi = tc.PortRangeStart, tc.PortRangeEnd
	}
	if min := s.cfg.DynamicSpawning.MinAvailablePorts; min > 0 && s.ports.AvailableInRange(lo, hi) < min {
		return nil, fmt.Errorf("%w: fewer than %d ports available in range", fleet.ErrPrecondition, min)
	}
	port := s.ports.AcquireInRange(lo, hi)
	if port < 0 {
		return nil, fmt.Errorf("%w: no free port in [%d, %d]", fleet.ErrPrecondition, lo, hi)
	}

	maxPlayers := firstPositive(opts.MaxPlayers, tc.MaxPlayers, tmpl.MaxPlayers)
	memory := firstNonEmpty(opts.Memory, tc.Memory, tmpl.MemoryAllocation)

	overrides := map[string]any{
		"server-port": port,
		"server-id":   serverID,
		"max-players": maxPlayers,
	}

	workingDir := filepath.Join(s.dynamicDir, serverID)
	_, statErr := os.Stat(workingDir)
	preexisting := statErr == nil
	if err := template.CloneTo(tmpl, workingDir, overrides); err != nil {
		s.ports.Release(port)
		if !preexisting {
			os.RemoveAll(workingDir)
		}
		return nil, fmt.Errorf("%w: clone template: %v", fleet.ErrIO, err)
	}

	env := map[string]string{}
	for k, v := range tc.Environment {
		env[k] = v
	}
	env["NUMDRASSL_SERVER_ID"] = serverID
	env["NUMDRASSL_PORT"] = fmt.Sprintf("%d", port)
	env["NUMDRASSL_TEMPLATE"] = tmpl.Name
	if s.signer != nil {
		env["NUMDRASSL_HEARTBEAT_TOKEN"] = s.signer.Token(serverID)
	}

	serverArgs := tmpl.StartupArgs
	if len(serverArgs) == 0 {
		serverArgs = defaultServerArgs
	}
	serverArgs = append(append([]string{}, serverArgs...), "--bind", fmt.Sprintf("%d", port))

	inst := fleet.NewInstance(serverID, fleet.Dynamic, workingDir, port, maxPlayers, tmpl, opts.Metadata)
	inst.SetMetadata("nickname", fleet.StringValue(s.names.Generate()))

	handle, err := s.procs.Spawn(ctx, process.SpawnRequest{
		ServerID:   serverID,
		WorkingDir: workingDir,
		Memory:     memory,
		ExecFile:   tmpl.ServerJar,
		ExtraArgs:  tc.JVMArgs,
		ServerArgs: serverArgs,
		Env:        env,
		IsDynamic:  true,
	})
	if err != nil {
		s.ports.Release(port)
		os.RemoveAll(workingDir)
		return nil, fmt.Errorf("%w: start process: %v", fleet.ErrIO, err)
	}

	inst.MarkStarting(projectHandle(handle))

	if died := s.awaitReady(ctx, inst, handle); died {
		s.procs.Kill(serverID, false, 5*time.Second)
		s.ports.Release(port)
		os.RemoveAll(workingDir)
		return nil, fmt.Errorf("%w: process exited during startup", fleet.ErrRuntime)
	}

	if err := s.reg.Register(inst); err != nil {
		s.procs.Kill(serverID, false, 5*time.Second)
		s.ports.Release(port)
		os.RemoveAll(workingDir)
		return nil, fmt.Errorf("%w: %v", fleet.ErrPrecondition, err)
	}

	s.sink.Emit(fleet.ServerSpawnEvent{ServerID: serverID, Type: fleet.Dynamic, Port: port, TemplateName: tmpl.Name})
	return inst, nil
}

// SpawnStatic starts a persistent, config-declared instance.
func (s *Supervisor) SpawnStatic(ctx context.Context, id string, opts SpawnOptions) (*fleet.Instance, error) {
	sc, ok := s.cfg.StaticServers[id]
	if !ok {
		return nil, fmt.Errorf("%w: static server %q not configured", fleet.ErrPrecondition, id)
	}
	if _, exists := s.reg.ByID(id); exists {
		return nil, fmt.Errorf("%w: server id %s already registered", fleet.ErrPrecondition, id)
	}
	workingDir := filepath.Join(s.staticDir, id)
	if _, err := os.Stat(workingDir); err != nil {
		return nil, fmt.Errorf("%w: static working dir missing: %v", fleet.ErrPrecondition, err)
	}
	if !s.ports.AcquireSpecific(sc.Port) {
		return nil, fmt.Errorf("%w: port %d already taken", fleet.ErrPrecondition, sc.Port)
	}

	maxPlayers := firstPositive(opts.MaxPlayers, sc.MaxPlayers)
	memory := firstNonEmpty(opts.Memory, sc.Memory)

	env := map[string]string{}
	for k, v := range sc.Environment {
		env[k] = v
	}
	env["NUMDRASSL_SERVER_ID"] = id
	if s.signer != nil {
		env["NUMDRASSL_HEARTBEAT_TOKEN"] = s.signer.Token(id)
	}

	inst := fleet.NewInstance(id, fleet.Static, workingDir, sc.Port, maxPlayers, nil, opts.Metadata)

	handle, err := s.procs.Spawn(ctx, process.SpawnRequest{
		ServerID:   id,
		WorkingDir: workingDir,
		Memory:     memory,
		ExtraArgs:  sc.JVMArgs,
		ServerArgs: []string{"--bind", fmt.Sprintf("%d", sc.Port)},
		Env:        env,
		IsDynamic:  false,
	})
	if err != nil {
		s.ports.Release(sc.Port)
		return nil, fmt.Errorf("%w: start process: %v", fleet.ErrIO, err)
	}

	inst.MarkStarting(projectHandle(handle))

	if died := s.awaitReady(ctx, inst, handle); died {
		s.procs.Kill(id, false, 5*time.Second)
		s.ports.Release(sc.Port)
		return nil, fmt.Errorf("%w: process exited during startup", fleet.ErrRuntime)
	}

	if err := s.reg.Register(inst); err != nil {
		s.procs.Kill(id, false, 5*time.Second)
		s.ports.Release(sc.Port)
		return nil, fmt.Errorf("%w: %v", fleet.ErrPrecondition, err)
	}

	s.sink.Emit(fleet.ServerSpawnEvent{ServerID: id, Type: fleet.Static, Port: sc.Port})
	return inst, nil
}

// awaitReady runs the readiness scanner against handle, mutating inst's
// state in place. It returns true if the process died before becoming
// ready or ctx was cancelled during the scan (inst is FAILED; caller must
// roll back); false otherwise (inst has reached RUNNING, possibly via the
// startup-timeout grace path).
func (s *Supervisor) awaitReady(ctx context.Context, inst *fleet.Instance, handle *process.Handle) (died bool) {
	timeout := time.Duration(s.cfg.ProcessStartTimeoutSeconds) * time.Second
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		if !handle.IsAlive() {
			inst.MarkFailed("Process exited during startup")
			return true
		}
		if s.readiness(handle.RecentLogs(50)) {
			inst.MarkRunning()
			return false
		}
		if time.Now().After(deadline) {
			break
		}
		select {
		case <-ctx.Done():
			inst.MarkFailed("startup cancelled")
			return true
		case <-ticker.C:
		}
	}

	if handle.IsAlive() {
		slog.Warn("supervisor: startup timeout, assuming ready", "serverId", inst.ServerID)
		inst.MarkRunning()
		return false
	}
	inst.MarkFailed("Process exited during startup")
	return true
}

// Shutdown tears down id as an operator-requested shutdown (ADMIN_REQUEST
// for both graceful and forced, matching the one reason both paths have
// always used).
func (s *Supervisor) Shutdown(ctx context.Context, id string, force bool) error {
	return s.shutdownWithReason(ctx, id, force, fleet.ReasonAdminRequest)
}

func (s *Supervisor) shutdownWithReason(ctx context.Context, id string, force bool, reason fleet.StopReason) error {
	inst, ok := s.reg.ByID(id)
	if !ok {
		slog.Warn("supervisor.Shutdown: unknown server id, no-op", "serverId", id)
		return nil
	}

	reasonText := "Graceful shutdown"
	if force {
		reasonText = "Forced shutdown"
	}
	if err := inst.MarkStopping(reasonText); err != nil {
		slog.Warn("supervisor.Shutdown: already terminal or transitioning, no-op", "serverId", id)
		return nil
	}

	deadline := 30 * time.Second
	if inst.Template != nil && inst.Template.GracefulShutdown > 0 {
		deadline = inst.Template.GracefulShutdown
	}

	s.procs.Kill(id, !force, deadline)
	s.ports.Release(inst.Port)

	snap := inst.Snapshot()
	if snap.Type == fleet.Dynamic && s.cfg.DynamicSpawning.AutoCleanup {
		os.RemoveAll(snap.WorkingDir)
	}

	inst.MarkStopped()
	s.reg.Unregister(id)
	s.sink.Emit(fleet.ServerShutdownEvent{ServerID: id, Reason: reason, Forced: force})
	return nil
}

// cleanupCrashed releases resources for an instance that has already been
// marked FAILED by the health probe (a terminal state reached outside the
// normal STOPPING->STOPPED path, so no further transition is applied here).
func (s *Supervisor) cleanupCrashed(inst *fleet.Instance) {
	snap := inst.Snapshot()
	s.ports.Release(snap.Port)
	if snap.Type == fleet.Dynamic && s.cfg.DynamicSpawning.AutoCleanup {
		os.RemoveAll(snap.WorkingDir)
	}
	s.reg.Unregister(snap.ServerID)
	s.sink.Emit(fleet.ServerShutdownEvent{ServerID: snap.ServerID, Reason: fleet.ReasonProcessCrashed, Forced: true})
}

// Restart chains a graceful shutdown with a fresh start, preserving the
// original serverId and maxPlayers. Fails if a DYNAMIC instance has no
// template reference.
func (s *Supervisor) Restart(ctx context.Context, id string) (*fleet.Instance, error) {
	inst, ok := s.reg.ByID(id)
	if !ok {
		return nil, fmt.Errorf("%w: unknown server id %s", fleet.ErrPrecondition, id)
	}
	snap := inst.Snapshot()

	if snap.Type == fleet.Dynamic && snap.TemplateName == "" {
		return nil, fmt.Errorf("%w: dynamic instance %s has no template reference", fleet.ErrPrecondition, id)
	}

	if err := s.shutdownWithReason(ctx, id, false, fleet.ReasonAdminRequest); err != nil {
		return nil, err
	}

	if snap.Type == fleet.Static {
		return s.SpawnStatic(ctx, id, SpawnOptions{MaxPlayers: snap.MaxPlayers})
	}
	return s.SpawnDynamic(ctx, snap.TemplateName, SpawnOptions{
		ServerID:   id,
		MaxPlayers: snap.MaxPlayers,
		Metadata:   snap.Metadata,
	})
}

// OnHeartbeat records a liveness signal from id's bridge plugin, recovering
// an UNHEALTHY instance back to RUNNING. Signature verification, if
// enabled, is the caller's responsibility.
func (s *Supervisor) OnHeartbeat(id string, at time.Time) error {
	inst, ok := s.reg.ByID(id)
	if !ok {
		return fmt.Errorf("%w: unknown server id %s", fleet.ErrPrecondition, id)
	}
	recovered, err := inst.Heartbeat(at)
	if err != nil {
		return err
	}
	if recovered {
		s.sink.Emit(fleet.ServerHealthEvent{ServerID: id, Previous: fleet.Unhealthy, New: fleet.Running, Message: "heartbeat resumed"})
	}
	return nil
}

// Registry exposes the underlying registry for read-only queries.
func (s *Supervisor) Registry() *registry.Registry { return s.reg }

func projectHandle(h *process.Handle) *fleet.ProcessHandle {
	return &fleet.ProcessHandle{Pid: h.Pid, LogPath: h.LogPath, StartedAt: h.StartedAt}
}

func firstPositive(vals ...int) int {
	for _, v := range vals {
		if v > 0 {
			return v
		}
	}
	return 0
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
