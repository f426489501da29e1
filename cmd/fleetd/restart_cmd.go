package main

import (
	"context"
	"fmt"
)

// RestartCmd restarts an instance, preserving its serverId and maxPlayers.
type RestartCmd struct {
	ID string `arg:"" help:"server id to restart"`
}

func (c *RestartCmd) Run(fctx *Context) error {
	ctx := context.Background()
	fut := fctx.Facade.Restart(ctx, c.ID)
	inst, err := fut.Wait(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("restarted %s on port %d\n", inst.ServerID, inst.Port)
	return nil
}
