// Command pyrit wires the storage, scheduler, compute, and handshake
// packages together into a runnable tool. It does not reimplement the
// full CLI surface of the original program (out of scope); it exposes
// just enough subcommands to drive the module end to end, the way
// cmd/wmap/main.go wires the teacher's adapters together.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jslhs/pyrit/internal/adapters/compute"
	"github.com/jslhs/pyrit/internal/adapters/rpc"
	"github.com/jslhs/pyrit/internal/adapters/sniffer/handshake"
	"github.com/jslhs/pyrit/internal/adapters/storage"
	"github.com/jslhs/pyrit/internal/config"
	"github.com/jslhs/pyrit/internal/core/domain"
	"github.com/jslhs/pyrit/internal/core/services/cracker"
	"github.com/jslhs/pyrit/internal/core/services/scheduler"
	"github.com/jslhs/pyrit/internal/telemetry"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: pyrit <selftest|benchmark|batch|attack_batch> [flags]")
		os.Exit(2)
	}
	subcommand := os.Args[1]
	os.Args = append(os.Args[:1], os.Args[2:]...)

	cfg := config.Load()
	telemetry.InitMetrics()
	shutdownTracer, err := telemetry.InitTracer()
	if err != nil {
		log.Fatalf("failed to init tracer: %v", err)
	}
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			slog.Warn("tracer shutdown failed", "error", err)
		}
	}()

	store, err := storage.Open(cfg.StorageURL, cfg.WorkunitSize, cfg.UniqueCheck)
	if err != nil {
		log.Fatalf("failed to open storage: %v", err)
	}
	defer store.Close()

	switch subcommand {
	case "selftest":
		runSelftest(cfg)
	case "benchmark":
		runBenchmark(cfg)
	case "batch":
		runBatch(ctx, cfg, store)
	case "attack_batch":
		runAttackBatch(ctx, cfg, store)
	default:
		fmt.Fprintf(os.Stderr, "unknown subcommand %q\n", subcommand)
		os.Exit(2)
	}
}

func newScheduler(ctx context.Context, cfg *config.Config) (*scheduler.Scheduler, []*scheduler.Worker, func()) {
	sched := scheduler.New()

	numCPUs := cfg.NumCPUs
	if numCPUs <= 0 {
		numCPUs = 1
	}
	workers := make([]*scheduler.Worker, 0, numCPUs)
	for i := 0; i < numCPUs; i++ {
		core := compute.NewCPUCore(fmt.Sprintf("cpu:%d", i), 0)
		w := scheduler.NewWorker(core, sched, slog.Default())
		if err := w.SelfTest(); err != nil {
			log.Fatalf("core %s failed self-test: %v", core.Name(), err)
		}
		sched.AddCore(w)
		workers = append(workers, w)
	}

	var announcer *rpc.Announcer
	var rpcServer *rpc.Server
	if cfg.RPCServer {
		rpcServer = rpc.NewServer(sched, slog.Default())
		go func() {
			if err := rpcServer.Serve(cfg.RPCAddr); err != nil {
				slog.Error("rpc server exited", "error", err)
			}
		}()
		if cfg.RPCAnnounce {
			announcer = rpc.NewAnnouncer(cfg.RPCAddr, slog.Default())
			go announcer.Run(ctx)
		}
	}

	cleanup := func() {
		if rpcServer != nil {
			rpcServer.Close()
		}
		sched.Close()
	}
	return sched, workers, cleanup
}

// runSelftest validates every configured CPU core against the fixed test
// vector and exits nonzero on the first failure.
func runSelftest(cfg *config.Config) {
	numCPUs := cfg.NumCPUs
	if numCPUs <= 0 {
		numCPUs = 1
	}
	sched := scheduler.New()
	defer sched.Close()
	for i := 0; i < numCPUs; i++ {
		core := compute.NewCPUCore(fmt.Sprintf("cpu:%d", i), 0)
		w := scheduler.NewWorker(core, sched, slog.Default())
		if err := w.SelfTest(); err != nil {
			slog.Error("self-test failed", "core", core.Name(), "error", err)
			os.Exit(1)
		}
		slog.Info("self-test passed", "core", core.Name())
	}
}

// runBenchmark times one CPU core's PBKDF2 throughput against a fixed
// synthetic batch and reports passwords/sec.
func runBenchmark(cfg *config.Config) {
	core := compute.NewCPUCore("benchmark", cfg.NumCPUs)
	passwords := make([]string, 10000)
	for i := range passwords {
		passwords[i] = fmt.Sprintf("benchmarkpw%05d", i)
	}
	start := time.Now()
	if _, err := core.Solve("benchmark-essid", passwords); err != nil {
		log.Fatalf("benchmark solve failed: %v", err)
	}
	elapsed := time.Since(start)
	pwps := float64(len(passwords)) / elapsed.Seconds()
	slog.Info("benchmark complete", "passwords", len(passwords), "elapsed", elapsed, "passwords_per_sec", pwps)
}

// runBatch imports passwords read from stdin into the password store, then
// drives the scheduler/worker pool to compute and persist PMKs for every
// ESSID already present in storage, mirroring the original's batchprocess.
func runBatch(ctx context.Context, cfg *config.Config, store *storage.FSStorage) {
	scanner := bufio.NewScanner(os.Stdin)
	imported := 0
	for scanner.Scan() {
		pw := domain.NormalizePassword(scanner.Text())
		if !domain.ValidPassword(pw) {
			continue
		}
		if err := store.Passwords().StorePassword(pw); err != nil {
			slog.Warn("failed to store password", "error", err)
			continue
		}
		imported++
	}
	if err := store.Passwords().FlushBuffer(); err != nil {
		log.Fatalf("failed to flush password buffer: %v", err)
	}
	slog.Info("imported passwords", "count", imported)

	essids, err := store.ESSIDs().IterESSIDs()
	if err != nil {
		log.Fatalf("failed to list ESSIDs: %v", err)
	}
	if len(essids) == 0 {
		slog.Info("no ESSIDs registered, nothing to compute")
		return
	}

	sched, workers, cleanup := newScheduler(ctx, cfg)
	defer cleanup()

	runCtx, stop := context.WithCancel(ctx)
	for _, w := range workers {
		go w.Run(runCtx)
	}

	keys, err := store.Passwords().IterKeys()
	if err != nil {
		log.Fatalf("failed to list password keys: %v", err)
	}
	for _, essid := range essids {
		for _, key := range keys {
			if store.ESSIDs().ContainsKey(essid, key) {
				continue
			}
			bucket, err := loadBucket(store, key)
			if err != nil {
				slog.Warn("failed to load password bucket", "key", key, "error", err)
				continue
			}
			if err := sched.Enqueue(essid, bucket, true); err != nil {
				slog.Error("enqueue failed", "essid", essid, "error", err)
				continue
			}
			results, err := sched.Dequeue(true, 30*time.Second)
			if err != nil {
				slog.Error("dequeue failed", "essid", essid, "error", err)
				continue
			}
			rs := domain.ResultSet{ESSID: essid, BucketKey: key, Results: results}
			if err := store.ESSIDs().Put(essid, key, rs); err != nil {
				slog.Error("failed to persist result set", "essid", essid, "key", key, "error", err)
			}
		}
	}
	stop()
}

// parseMAC converts a colon-separated MAC string (as produced by
// net.HardwareAddr.String(), the form AccessPoint.BSSID/Station.MAC are
// stored in) into the fixed 6-byte form Authentication.PKE needs.
func parseMAC(s string) ([6]byte, error) {
	var out [6]byte
	hw, err := net.ParseMAC(s)
	if err != nil {
		return out, err
	}
	if len(hw) != 6 {
		return out, fmt.Errorf("%w: MAC %q is not 6 bytes", domain.ErrValue, s)
	}
	copy(out[:], hw)
	return out, nil
}

// saveHandshakePCAP writes the beacon and EAPOL frames behind auth to path
// so the capture can be handed to an external tool for inspection.
func saveHandshakePCAP(parser *handshake.Parser, ap *domain.AccessPoint, auth domain.Authentication, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return parser.WriteHandshakePCAP(f, ap, auth)
}

func loadBucket(store *storage.FSStorage, key string) ([]string, error) {
	bucket, err := store.Passwords().Get(key)
	if err != nil {
		return nil, err
	}
	return bucket.Passwords, nil
}

// runAttackBatch replays a capture file, reconstructs the best-quality
// Authentication for the selected access point, and cracks it against
// every password already stored.
func runAttackBatch(ctx context.Context, cfg *config.Config, store *storage.FSStorage) {
	args := os.Args[1:]
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: pyrit attack_batch <pcap-path> <bssid-or-essid>")
		os.Exit(2)
	}
	pcapPath, selector := args[0], args[1]

	parser := handshake.NewParser()
	if err := parser.ReadPCAPFile(pcapPath); err != nil {
		log.Fatalf("failed to read capture: %v", err)
	}

	ap, err := parser.FindAccessPoint(selector)
	if err != nil {
		log.Fatalf("failed to resolve access point %q: %v", selector, err)
	}

	apMAC, err := parseMAC(ap.BSSID)
	if err != nil {
		log.Fatalf("access point has malformed BSSID %q: %v", ap.BSSID, err)
	}

	var best *domain.Authentication
	for _, sta := range ap.Stations() {
		staMAC, err := parseMAC(sta.MAC)
		if err != nil {
			slog.Warn("station has malformed MAC, skipping", "mac", sta.MAC, "error", err)
			continue
		}
		auths := sta.Authentications(apMAC, staMAC)
		for _, a := range auths {
			telemetry.HandshakesFound.WithLabelValues(fmt.Sprint(a.Quality)).Inc()
		}
		if len(auths) > 0 && (best == nil || auths[0].Quality < best.Quality) {
			a := auths[0]
			best = &a
		}
	}
	if best == nil {
		log.Fatalf("no reconstructable handshake found for %q", selector)
	}
	slog.Info("reconstructed handshake", "quality", best.Quality, "spread", best.Spread, "scheme", best.Scheme)

	if err := saveHandshakePCAP(parser, ap, *best, pcapPath+".handshake.pcap"); err != nil {
		slog.Warn("failed to save reconstructed handshake pcap", "error", err)
	}

	keys, err := store.Passwords().IterKeys()
	if err != nil {
		log.Fatalf("failed to list password keys: %v", err)
	}

	candidates := make(chan domain.PasswordPMK)
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	core := compute.NewCPUCore("attack", cfg.NumCPUs)
	go func() {
		defer close(candidates)
		for _, key := range keys {
			bucket, err := store.Passwords().Get(key)
			if err != nil {
				continue
			}
			pmks, err := core.Solve(ap.ESSID, bucket.Passwords)
			if err != nil {
				slog.Warn("failed to derive PMKs for bucket", "key", key, "error", err)
				continue
			}
			for i, pw := range bucket.Passwords {
				select {
				case candidates <- domain.PasswordPMK{Password: pw, PMK: pmks[i]}:
				case <-runCtx.Done():
					return
				}
			}
		}
	}()

	svc := cracker.New(cfg.NumCPUs)
	matches := svc.Crack(runCtx, *best, candidates)
	found := false
	for m := range matches {
		slog.Info("password found", "password", m.Password)
		found = true
		cancel()
	}
	if !found {
		slog.Info("no matching password found")
	}
}
