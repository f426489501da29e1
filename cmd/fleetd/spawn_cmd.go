package main

import (
	"context"
	"fmt"

	"github.com/numdrassl/fleet/supervisor"
)

// SpawnCmd spawns a dynamic instance from a template.
type SpawnCmd struct {
	Template   string `arg:"" help:"template name"`
	ServerID   string `optional:"" help:"explicit server id; defaults to <prefix>-<counter>"`
	MaxPlayers int    `optional:"" help:"override the template's default max players"`
	Memory     string `optional:"" help:"override the template's default memory allocation"`
}

func (c *SpawnCmd) Run(fctx *Context) error {
	ctx := context.Background()
	fut := fctx.Facade.SpawnDynamic(ctx, c.Template, supervisor.SpawnOptions{
		ServerID:   c.ServerID,
		MaxPlayers: c.MaxPlayers,
		Memory:     c.Memory,
	})
	inst, err := fut.Wait(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("spawned %s on port %d\n", inst.ServerID, inst.Port)
	return nil
}
