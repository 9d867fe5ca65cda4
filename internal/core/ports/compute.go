package ports

// Core is the capability a compute backend must provide: turn one ESSID and
// a batch of passwords into PMKs, one-to-one and in order (§4.6, §9 design
// notes — replaces the source's thread/device mixin-inheritance with a
// plain capability interface).
//
// solve is opaque: the scheduler treats every implementation the same way.
// The CPU core is the implementation in this module that computes PMKs;
// rpc.NetworkCore satisfies the interface but panics in Solve.
type Core interface {
	// Solve computes the PMK for each password against essid. The
	// returned slice has exactly len(passwords) entries in the same
	// order.
	Solve(essid string, passwords []string) ([][32]byte, error)

	// Name identifies the core for logs, metrics and error messages.
	Name() string
}

// BufferSizer exposes the adaptive per-core batch-sizing bounds (§4.5).
// Cores report their class-specific defaults; the worker loop owns the
// actual adaptive state.
type BufferSizer interface {
	BufferBounds() (min, init, max int)
}
