package rpc

import (
	"net"
	"net/rpc"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jslhs/pyrit/internal/core/services/scheduler"
)

// startTestServer spins up a real net/rpc listener wrapping a fresh
// scheduler.Scheduler, the same way Server.Serve does, but on an
// OS-assigned port so the test controls its own teardown.
func startTestServer(t *testing.T) (addr string, sched *scheduler.Scheduler, srv *Server) {
	t.Helper()
	sched = scheduler.New()
	srv = NewServer(sched, discardLogger())

	rpcSrv := rpc.NewServer()
	require.NoError(t, rpcSrv.RegisterName("Pyrit", srv))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	go rpcSrv.Accept(ln)
	t.Cleanup(func() {
		ln.Close()
		srv.Close()
		sched.Close()
	})
	return ln.Addr().String(), sched, srv
}

type echoCore struct{ fill byte }

func (e echoCore) Name() string { return "echo" }

func (e echoCore) Solve(essid string, passwords []string) ([][32]byte, error) {
	out := make([][32]byte, len(passwords))
	for i := range out {
		out[i] = [32]byte{e.fill}
	}
	return out, nil
}

func TestNetworkCoreRunGathersSolvesAndScatters(t *testing.T) {
	addr, sched, _ := startTestServer(t)

	core, err := DialNetworkCore(addr)
	require.NoError(t, err)
	defer core.Close()

	require.NoError(t, sched.Enqueue("net1", []string{"a", "b"}, false))

	stop := make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- core.Run(echoCore{fill: 0x11}, stop) }()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		out, err := sched.Dequeue(false, 0)
		require.NoError(t, err)
		if out != nil {
			require.Len(t, out, 2)
			assert.Equal(t, [32]byte{0x11}, out[0].PMK)
			close(stop)
			<-done
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	close(stop)
	t.Fatal("timed out waiting for networked gather/solve/scatter round trip")
}

func TestNetworkCoreSolvePanics(t *testing.T) {
	addr, _, _ := startTestServer(t)
	core, err := DialNetworkCore(addr)
	require.NoError(t, err)
	defer core.Close()

	assert.Panics(t, func() {
		_, _ = core.Solve("net1", []string{"a"})
	})
}

func TestNetworkCoreNameIncludesAddr(t *testing.T) {
	addr, _, _ := startTestServer(t)
	core, err := DialNetworkCore(addr)
	require.NoError(t, err)
	defer core.Close()

	assert.Equal(t, "network:"+addr, core.Name())
}
