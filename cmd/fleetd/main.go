// Command fleetd is the orchestrator daemon: it loads servers/config.yml,
// wires the template store, port allocator, process supervisor, registry,
// instance supervisor and façade together, starts the gRPC health server
// and the fleet-wide health probe, and exposes a thin textual command
// surface over the façade.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"
	kongyaml "github.com/alecthomas/kong-yaml"
	"github.com/jotaen/kong-completion"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/numdrassl/fleet/audit"
	"github.com/numdrassl/fleet/auth"
	"github.com/numdrassl/fleet/config"
	"github.com/numdrassl/fleet/facade"
	"github.com/numdrassl/fleet/fleethealth"
	"github.com/numdrassl/fleet/portalloc"
	"github.com/numdrassl/fleet/process"
	"github.com/numdrassl/fleet/registry"
	"github.com/numdrassl/fleet/supervisor"
	"github.com/numdrassl/fleet/template"
)

// Context is shared by every subcommand, constructed once in main after
// kong.Parse and the logger have been set up.
type Context struct {
	ServersRoot    string
	Facade         *facade.Facade
	Audit          *audit.Log
	HealthSrv      *fleethealth.Server
	TracerProvider *sdktrace.TracerProvider
}

// CLI is the top-level command tree: a flat set of subcommand structs,
// each with its own Run(*Context) error method.
type CLI struct {
	ServersRoot string `default:"servers" placeholder:"<dir>" help:"root of the servers/ tree (config.yml, templates/, static/, dynamic/, logs/)"`
	LogFile     string `default:"" placeholder:"<log-file-path>" help:"rotated JSON log destination (leave empty for stderr)"`
	LogLevel    string `default:"info" placeholder:"<debug|info|warn|error>" help:"logging level"`
	HealthAddr  string `default:"127.0.0.1:9090" placeholder:"<host:port>" help:"loopback address for the orchestrator's own grpc_health_v1 service"`
	OtelAddr    string `name:"otel-addr" default:"" placeholder:"<host:port>" help:"OTLP gRPC collector endpoint for trace export (empty disables tracing)"`

	Spawn    SpawnCmd    `cmd:"" help:"spawn a dynamic instance from a template"`
	Start    StartCmd    `cmd:"" help:"start a declared static instance"`
	Shutdown ShutdownCmd `cmd:"" help:"shut down an instance"`
	Restart  RestartCmd  `cmd:"" help:"restart an instance"`
	Ls       LsCmd       `cmd:"" help:"list registered instances"`
	Console  ConsoleCmd  `cmd:"" help:"tail an instance's captured log"`
	Version  VersionCmd  `cmd:"" help:"print build version information"`
}

func (c *CLI) initSlog() *os.File {
	var level slog.Level
	switch c.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var out *lumberjack.Logger
	if c.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(c.LogFile), 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "create log dir: %v\n", err)
			os.Exit(1)
		}
		out = &lumberjack.Logger{Filename: c.LogFile, MaxSize: 64, MaxBackups: 5, Compress: true}
		slog.SetDefault(slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level})))
	} else {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	}
	return nil
}

func main() {
	var cli CLI
	parser := kong.Must(&cli,
		kong.Configuration(kongyaml.Loader, "servers/fleetd.yml", "~/.fleetd.yml"),
		kong.Description("Spawn, supervise and reclaim backend game-server processes."),
	)
	if err := kongcompletion.Register(parser); err != nil {
		fmt.Fprintf(os.Stderr, "register completion: %v\n", err)
	}
	kctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)

	cli.initSlog()

	fleetCtx, err := bootstrap(&cli)
	if err != nil {
		slog.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}

	defer shutdownTracing(fleetCtx.TracerProvider)

	if err := kctx.Run(fleetCtx); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func bootstrap(cli *CLI) (*Context, error) {
	root := cli.ServersRoot

	tp, err := setupTracing(context.Background(), cli.OtelAddr)
	if err != nil {
		return nil, fmt.Errorf("setup tracing: %w", err)
	}
	cfg, err := config.Load(filepath.Join(root, "config.yml"))
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	templates, err := template.NewStore(filepath.Join(root, "templates"))
	if err != nil {
		return nil, fmt.Errorf("discover templates: %w", err)
	}

	ports := portalloc.New()
	procs := process.NewSupervisor(cfg.JavaPath, filepath.Join(root, "logs"))
	reg := registry.New()

	signer, err := auth.LoadOrCreate(root)
	if err != nil {
		return nil, fmt.Errorf("load heartbeat keypair: %w", err)
	}

	auditLog, err := audit.Open(filepath.Join(root, "fleet.db"))
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}

	sink := newAuditSink(auditLog)

	sup := supervisor.New(cfg, root, templates, ports, procs, reg, sink, signer)
	if err := sup.Init(); err != nil {
		auditLog.Close()
		return nil, fmt.Errorf("supervisor init: %w", err)
	}

	f := facade.New(sup, 8, signer)

	healthSrv, err := fleethealth.Listen(cli.HealthAddr)
	if err != nil {
		auditLog.Close()
		return nil, fmt.Errorf("start health server: %w", err)
	}
	go func() {
		if err := healthSrv.Serve(); err != nil {
			slog.Error("health server stopped", "error", err)
		}
	}()

	sup.StartHealthProbe(context.Background())
	f.MarkInitialized()

	return &Context{ServersRoot: root, Facade: f, Audit: auditLog, HealthSrv: healthSrv, TracerProvider: tp}, nil
}
