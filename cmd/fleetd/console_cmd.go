package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/creack/pty"
	"golang.org/x/term"

	"github.com/numdrassl/fleet"
)

// ConsoleCmd tails an instance's captured log through a local pty, sized
// to match the calling terminal, for a read-only log stream.
type ConsoleCmd struct {
	ID string `arg:"" help:"server id whose log to tail"`
}

func (c *ConsoleCmd) Run(fctx *Context) error {
	inst, ok := fctx.Facade.Registry().ByID(c.ID)
	if !ok {
		return fmt.Errorf("no such server: %s", c.ID)
	}
	kindDir := "static"
	if inst.Type == fleet.Dynamic {
		kindDir = "dynamic"
	}
	logPath := fmt.Sprintf("%s/logs/%s/%s.log", fctx.ServersRoot, kindDir, c.ID)

	cmd := exec.Command("tail", "-n", "200", "-f", logPath)
	ptmx, err := pty.Start(cmd)
	if err != nil {
		return fmt.Errorf("start tail: %w", err)
	}
	defer ptmx.Close()

	if w, h, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
		pty.Setsize(ptmx, &pty.Winsize{Rows: uint16(h), Cols: uint16(w)})
	}

	_, err = ptmx.WriteTo(os.Stdout)
	return err
}
