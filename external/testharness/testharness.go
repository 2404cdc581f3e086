// QEMU guest supervision collaborator stub
// https://github.com/usbarmory/virtcore
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package testharness spawns and supervises a QEMU `virt`-machine
// guest process running this kernel's image, for end-to-end scenario
// testing (spec §8's E1-E6) against a real QEMU process. Running and
// scoring the scenarios themselves is out of core scope; the
// process-supervision contract here is modelled on the module's own
// tamago-go runner, which also spawns a wrapped child process; that
// runner only ignores SIGINT/SIGQUIT in the parent, while Guest relays
// them to the child explicitly.
package testharness

import (
	"os"
	"os/exec"
	"os/signal"

	"golang.org/x/sys/unix"

	"github.com/usbarmory/virtcore/kernelerr"
)

// Guest is a supervised qemu-system-<arch> child process.
type Guest struct {
	cmd   *exec.Cmd
	sigCh chan os.Signal
}

// Start launches qemuBin with args, forwarding SIGINT/SIGQUIT to the
// child for the duration of the run.
func Start(qemuBin string, args []string) (*Guest, error) {
	cmd := exec.Command(qemuBin, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return nil, kernelerr.New(kernelerr.Fatal, "testharness", "Start", err.Error())
	}

	g := &Guest{
		cmd:   cmd,
		sigCh: make(chan os.Signal, 1),
	}

	signal.Notify(g.sigCh, unix.SIGINT, unix.SIGQUIT)
	go g.forwardSignals()

	return g, nil
}

func (g *Guest) forwardSignals() {
	for sig := range g.sigCh {
		if g.cmd.Process != nil {
			g.cmd.Process.Signal(sig)
		}
	}
}

// Wait blocks until the guest process exits, returning its exit code.
func (g *Guest) Wait() (int, error) {
	signal.Stop(g.sigCh)
	close(g.sigCh)

	err := g.cmd.Wait()
	if err == nil {
		return 0, nil
	}

	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode(), nil
	}

	return -1, kernelerr.New(kernelerr.Fatal, "testharness", "Wait", err.Error())
}

// Kill terminates the guest process immediately.
func (g *Guest) Kill() error {
	return g.cmd.Process.Kill()
}
