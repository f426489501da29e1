package main

import (
	"log/slog"

	"github.com/numdrassl/fleet"
	"github.com/numdrassl/fleet/audit"
)

// newAuditSink builds the event sink wired into the supervisor: every
// event is logged structurally and appended to the audit log.
func newAuditSink(log *audit.Log) fleet.EventSink {
	logging := fleet.EventSinkFunc(func(e fleet.Event) {
		switch evt := e.(type) {
		case fleet.ServerSpawnEvent:
			slog.Info("event.ServerSpawn", "serverId", evt.ServerID, "type", evt.Type, "port", evt.Port, "template", evt.TemplateName)
		case fleet.ServerShutdownEvent:
			slog.Info("event.ServerShutdown", "serverId", evt.ServerID, "reason", evt.Reason, "forced", evt.Forced)
		case fleet.ServerHealthEvent:
			slog.Info("event.ServerHealth", "serverId", evt.ServerID, "previous", evt.Previous, "new", evt.New, "message", evt.Message)
		}
	})
	persisting := fleet.EventSinkFunc(func(e fleet.Event) {
		if err := log.Record(e); err != nil {
			slog.Error("audit.Record failed", "error", err)
		}
	})
	return fleet.MultiEventSink{logging, persisting}
}
