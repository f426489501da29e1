package main

import (
	"context"
	"fmt"
)

// ShutdownCmd shuts down one instance, or every instance with --all.
type ShutdownCmd struct {
	ID    string `arg:"" optional:"" help:"server id to shut down"`
	Force bool   `help:"force kill instead of a graceful stop"`
	All   bool   `help:"shut down every registered instance"`
}

func (c *ShutdownCmd) Run(fctx *Context) error {
	ctx := context.Background()
	if c.All {
		fctx.Facade.ShutdownAll(ctx)
		fmt.Println("shutdown requested for all instances")
		return nil
	}
	if c.ID == "" {
		return fmt.Errorf("either an id or --all is required")
	}
	fut := fctx.Facade.Shutdown(ctx, c.ID, c.Force)
	if _, err := fut.Wait(ctx); err != nil {
		return err
	}
	fmt.Printf("shut down %s\n", c.ID)
	return nil
}
