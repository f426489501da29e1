package main

import (
	"context"
	"fmt"
)

// StartCmd starts a declared static instance.
type StartCmd struct {
	ID string `arg:"" help:"static server id, as declared in config.yml"`
}

func (c *StartCmd) Run(fctx *Context) error {
	ctx := context.Background()
	fut := fctx.Facade.StartStatic(ctx, c.ID)
	inst, err := fut.Wait(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("started %s on port %d\n", inst.ServerID, inst.Port)
	return nil
}
