package rpc

import (
	"fmt"
	"net/rpc"
	"time"

	"github.com/google/uuid"

	"github.com/jslhs/pyrit/internal/core/ports"
)

// gatherTimeout bounds how long a single remote Gather call waits for work
// before returning empty-handed, letting NetworkCore.Run poll rather
// than block a worker goroutine indefinitely on a dead link.
const gatherTimeout = 3 * time.Second

// NetworkCore is a client of a remote Server (§6). Its Run loop pulls
// workunits from the remote scheduler, solves them with a local
// ports.Core, and sends the results back, lending this machine's compute
// to the remote host. It satisfies ports.Core by name only: its Solve
// panics, so it cannot serve as a core of a local Scheduler.
type NetworkCore struct {
	name     string
	client   *rpc.Client
	clientID string
}

// DialNetworkCore connects to a remote Server at addr.
func DialNetworkCore(addr string) (*NetworkCore, error) {
	client, err := rpc.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("rpc: dial %s: %w", addr, err)
	}
	return &NetworkCore{
		name:     "network:" + addr,
		client:   client,
		clientID: uuid.NewString(),
	}, nil
}

// Name identifies this core for logs and metrics.
func (c *NetworkCore) Name() string { return c.name }

// Close releases the underlying RPC connection.
func (c *NetworkCore) Close() error { return c.client.Close() }

// Solve is unused directly by NetworkCore — it instead drives its own
// gather/compute/scatter loop via Run, since the actual work is pulled
// from the remote scheduler rather than handed to Solve by a local one.
// Solve panics if called, signalling a wiring mistake rather than silently
// no-opping.
func (c *NetworkCore) Solve(essid string, passwords []string) ([][32]byte, error) {
	panic("rpc: NetworkCore.Solve is not used; drive work with NetworkCore.Run")
}

// Run repeatedly gathers a workunit from the remote scheduler, solves it
// with local, and scatters the results back, until stop is closed.
func (c *NetworkCore) Run(local ports.Core, stop <-chan struct{}) error {
	for {
		select {
		case <-stop:
			return nil
		default:
		}

		var reply GatherReply
		err := c.client.Call("Pyrit.Gather", GatherArgs{
			ClientID:    c.clientID,
			DesiredSize: 4096,
			TimeoutMS:   gatherTimeout.Milliseconds(),
		}, &reply)
		if err != nil {
			return fmt.Errorf("rpc: gather: %w", err)
		}
		if reply.Handle == "" {
			continue
		}

		pmks, err := local.Solve(reply.ESSID, reply.Passwords)
		if err != nil {
			// Give the batch back to the remote scheduler rather than
			// dropping it: ask it to revoke our own last handle.
			var rr RevokeReply
			c.client.Call("Pyrit.RevokeLast", RevokeArgs{ClientID: c.clientID}, &rr)
			return fmt.Errorf("local solve failed: %w", err)
		}

		var sr ScatterReply
		if err := c.client.Call("Pyrit.Scatter", ScatterArgs{
			ClientID: c.clientID,
			Handle:   reply.Handle,
			PMKs:     pmks,
		}, &sr); err != nil {
			return fmt.Errorf("rpc: scatter: %w", err)
		}
	}
}
