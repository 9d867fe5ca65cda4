package scheduler

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jslhs/pyrit/internal/core/ports"
	"github.com/jslhs/pyrit/internal/telemetry"
)

// Test vector used to self-test a core before it is trusted with real work
// (§4.6, §8 scenario 1). These are cpyrit's well-known fixed values.
const (
	selfTestESSID      = "foo"
	selfTestPassword   = "barbarbar"
	selfTestRepetition = 101
)

var selfTestPMK = [32]byte{
	0x06, 0x38, 0x65, 0x36, 0xcc, 0x5e, 0xfd, 0x03, 0xf3, 0xfa, 0x84, 0xaa, 0x8e, 0xa2, 0xcc, 0x84,
	0x08, 0x97, 0x3d, 0xf3, 0x4b, 0xd8, 0x4b, 0x53, 0x80, 0x6e, 0xed, 0x30, 0x23, 0xcd, 0xa6, 0x7e,
}

// Worker runs one ports.Core's gather/solve/scatter loop and adapts its
// batch size toward a three-second throughput target (§4.5). It satisfies
// CoreController so the owning Scheduler can detect it dying.
type Worker struct {
	core  ports.Core
	sched *Scheduler
	log   *slog.Logger

	minBuf, maxBuf int
	bufferSize     int

	resCount int64
	compTime int64 // nanoseconds, cumulative

	alive atomic.Bool
}

// NewWorker wraps core with the adaptive gather/solve/scatter loop. If core
// implements ports.BufferSizer its reported bounds are used; otherwise the
// CPU-class defaults from §4.5 apply.
func NewWorker(core ports.Core, sched *Scheduler, log *slog.Logger) *Worker {
	min, init, max := 128, 512, 20480
	if sizer, ok := core.(ports.BufferSizer); ok {
		min, init, max = sizer.BufferBounds()
	}
	w := &Worker{core: core, sched: sched, log: log, minBuf: min, maxBuf: max, bufferSize: init}
	w.alive.Store(true)
	return w
}

// Alive reports whether the worker's Run loop is still executing.
func (w *Worker) Alive() bool { return w.alive.Load() }

// Name identifies the underlying core.
func (w *Worker) Name() string { return w.core.Name() }

// Performance is the core's cumulative passwords/sec, used by the
// scheduler's backpressure check (§4.5). It is zero until the core has
// completed at least one batch.
func (w *Worker) Performance() float64 {
	compTime := atomic.LoadInt64(&w.compTime)
	if compTime == 0 {
		return 0
	}
	return float64(atomic.LoadInt64(&w.resCount)) / (float64(compTime) / float64(time.Second))
}

// SelfTest validates the core against the fixed test vector before Run
// starts accepting real work (§4.6, §8 scenario 1).
func (w *Worker) SelfTest() error {
	passwords := make([]string, selfTestRepetition)
	for i := range passwords {
		passwords[i] = selfTestPassword
	}
	results, err := w.core.Solve(selfTestESSID, passwords)
	if err != nil {
		return err
	}
	for i, pmk := range results {
		if pmk != selfTestPMK {
			w.log.Error("core failed self-test", "core", w.core.Name(), "index", i)
			return errSelfTestFailed(w.core.Name())
		}
	}
	return nil
}

// Run drives the gather/solve/scatter loop until ctx is cancelled. On any
// Solve error the worker revokes its in-flight workunit, marks itself dead,
// and returns — the scheduler surfaces the death to blocked callers rather
// than deadlocking on a core that stopped producing (§4.5 Health).
func (w *Worker) Run(ctx context.Context) {
	defer w.alive.Store(false)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		wu, err := w.sched.Gather(w.bufferSize, 2*time.Second)
		if err != nil {
			w.log.Error("worker gather failed", "core", w.core.Name(), "error", err)
			return
		}
		if wu == nil {
			continue
		}

		start := time.Now()
		results, err := w.core.Solve(wu.ESSID, wu.Passwords)
		if err != nil {
			w.log.Error("worker solve failed, revoking workunit", "core", w.core.Name(), "error", err)
			w.sched.Revoke(wu)
			return
		}
		elapsed := time.Since(start)

		if err := w.sched.Scatter(wu, results); err != nil {
			w.log.Error("worker scatter failed", "core", w.core.Name(), "error", err)
			return
		}

		atomic.AddInt64(&w.resCount, int64(len(results)))
		atomic.AddInt64(&w.compTime, int64(elapsed))
		telemetry.PasswordsTested.WithLabelValues(w.core.Name()).Add(float64(len(results)))
		telemetry.CorePerformance.WithLabelValues(w.core.Name()).Set(w.Performance())
		w.adaptBufferSize()
	}
}

// adaptBufferSize nudges bufferSize toward the throughput that would fill a
// three-second window, weighted two-thirds toward the previous size
// (§4.5): avg = (2*old + throughput*3) / 3, clamped to [min, max].
func (w *Worker) adaptBufferSize() {
	perf := w.Performance()
	if perf == 0 {
		return
	}
	avg := (2*float64(w.bufferSize) + perf*3) / 3
	next := int(avg)
	if next < w.minBuf {
		next = w.minBuf
	}
	if next > w.maxBuf {
		next = w.maxBuf
	}
	w.bufferSize = next
}

type selfTestError struct{ core string }

func (e selfTestError) Error() string { return "core " + e.core + " failed self-test against fixed PMK vector" }

func errSelfTestFailed(core string) error { return selfTestError{core: core} }
