// Package compute implements ports.Core backends. CPUCore is grounded on
// cpyrit.py's CPUCore: PBKDF2-HMAC-SHA1 over (password, essid) with 4096
// iterations and a 256-bit output, computed with golang.org/x/crypto/pbkdf2
// instead of hand-rolled HMAC iteration.
package compute

import (
	"crypto/sha1"
	"fmt"
	"runtime"
	"sync"

	"golang.org/x/crypto/pbkdf2"

	"github.com/jslhs/pyrit/internal/core/domain"
)

const (
	pbkdf2Iterations = 4096
	pmkLen           = 32

	// CPU-class adaptive buffer-size bounds (§4.5).
	cpuMinBuffer  = 128
	cpuInitBuffer = 512
	cpuMaxBuffer  = 20480
)

// CPUCore solves PMKs on the host CPU, fanning each batch out across
// its configured number of worker goroutines (GOMAXPROCS by default).
type CPUCore struct {
	name        string
	parallelism int
}

// NewCPUCore creates a CPUCore using parallelism worker goroutines per
// Solve call. parallelism <= 0 uses runtime.GOMAXPROCS(0).
func NewCPUCore(name string, parallelism int) *CPUCore {
	if parallelism <= 0 {
		parallelism = runtime.GOMAXPROCS(0)
	}
	return &CPUCore{name: name, parallelism: parallelism}
}

// Name identifies this core for logs and metrics.
func (c *CPUCore) Name() string { return c.name }

// BufferBounds reports the CPU-class adaptive batch-size bounds (§4.5).
func (c *CPUCore) BufferBounds() (min, init, max int) {
	return cpuMinBuffer, cpuInitBuffer, cpuMaxBuffer
}

// Solve computes the PMK of each password against essid via
// PBKDF2-HMAC-SHA1 with 4096 iterations (§4.6).
func (c *CPUCore) Solve(essid string, passwords []string) ([][32]byte, error) {
	if len(essid) == 0 {
		return nil, fmt.Errorf("%w: empty essid", domain.ErrValue)
	}

	results := make([][32]byte, len(passwords))
	n := c.parallelism
	if n > len(passwords) {
		n = len(passwords)
	}
	if n <= 1 {
		for i, pw := range passwords {
			results[i] = derivePMK(pw, essid)
		}
		return results, nil
	}

	var wg sync.WaitGroup
	chunk := (len(passwords) + n - 1) / n
	for start := 0; start < len(passwords); start += chunk {
		end := start + chunk
		if end > len(passwords) {
			end = len(passwords)
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for i := start; i < end; i++ {
				results[i] = derivePMK(passwords[i], essid)
			}
		}(start, end)
	}
	wg.Wait()
	return results, nil
}

func derivePMK(password, essid string) [32]byte {
	key := pbkdf2.Key([]byte(password), []byte(essid), pbkdf2Iterations, pmkLen, sha1.New)
	var pmk [32]byte
	copy(pmk[:], key)
	return pmk
}
