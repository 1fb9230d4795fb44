// Command editorhost is the process entrypoint: it opens the world
// store, starts the tilemap engine and attention scheduler against it,
// and serves the editor bridge over a websocket.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"

	"tilestream/internal/attention"
	"tilestream/internal/bridge/ws"
	"tilestream/internal/config"
	"tilestream/internal/protocol"
	"tilestream/internal/telemetry"
	"tilestream/internal/tilemap"
	"tilestream/internal/worldstore"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		configPath = flag.String("config", "", "path to config.yaml (default: <data>/config.yaml)")
		camWidth   = flag.Float64("camera_width", 1280, "initial camera viewport width in pixels")
		camHeight  = flag.Float64("camera_height", 720, "initial camera viewport height in pixels")
		minZoom    = flag.Float64("min_zoom", 0.5, "minimum camera zoom used to size the tile buffer")
		disableIdx = flag.Bool("disable_telemetry_index", false, "disable the SQLite read-model index")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[editorhost] ", log.LstdFlags|log.Lmicroseconds)
	printBanner(logger)

	cp := strings.TrimSpace(*configPath)
	if cp == "" {
		cp = dataPath(*dataDir, "config.yaml")
	}
	cfg, err := config.Load(cp)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Printf("config not found at %s; using defaults", cp)
			cfg = config.Defaults()
		} else {
			logger.Fatalf("load config: %v", err)
		}
	}

	var idx *telemetry.Index
	if !*disableIdx {
		idx, err = telemetry.OpenIndex(dataPath(*dataDir, "telemetry.db"), logger)
		if err != nil {
			logger.Fatalf("open telemetry index: %v", err)
		}
		defer idx.Close()
	}

	var recorder worldstore.FlushRecorder
	if idx != nil {
		recorder = idx
	}

	store, err := worldstore.Open(dataPath(*dataDir, "world.db"), cfg, logger, recorder)
	if err != nil {
		logger.Fatalf("open world store: %v", err)
	}
	defer store.Close()

	ctx, cancel := signalContext()
	defer cancel()

	if err := store.WaitReady(ctx); err != nil {
		logger.Fatalf("world store not ready: %v", err)
	}

	scheduler := attention.New(cfg, store, logger)
	if err := scheduler.WaitReady(ctx); err != nil {
		logger.Fatalf("attention scheduler not ready: %v", err)
	}
	defer scheduler.Close()

	camera := ws.NewBridgeCamera()
	spec := tilemap.CameraSpec{Camera: camera, Width: *camWidth, Height: *camHeight, MinZoom: *minZoom}
	engine := tilemap.New(spec, cfg, store, logger)
	if err := engine.WaitReady(ctx); err != nil {
		logger.Fatalf("tilemap engine not ready: %v", err)
	}
	defer engine.Destroy()

	go refreshAttentionCoefficient(ctx, store, scheduler, logger)

	validator, err := protocol.NewValidator()
	if err != nil {
		logger.Fatalf("compile protocol schemas: %v", err)
	}

	bridge := ws.NewServer(engine, scheduler, store, camera, validator, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		writeMetrics(rw, ctx, store)
	})
	mux.HandleFunc("/v1/ws", bridge.Handler())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

func dataPath(dataDir, name string) string {
	return fmt.Sprintf("%s/%s", strings.TrimRight(dataDir, "/"), name)
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

// refreshAttentionCoefficient periodically reloads the coefficient
// PWS is authoritative for and pushes it into the running scheduler,
// so an operator editing the stored limit takes effect without a
// restart.
func refreshAttentionCoefficient(ctx context.Context, store *worldstore.Store, scheduler *attention.Scheduler, logger *log.Logger) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	last := -1
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			limit, err := store.GetAttentionLimit(ctx)
			if err != nil {
				continue
			}
			if limit == last {
				continue
			}
			if err := scheduler.SetAttentionCoefficient(ctx, limit); err != nil {
				logger.Printf("editorhost: refresh attention coefficient: %v", err)
				continue
			}
			last = limit
		}
	}
}

func writeMetrics(rw http.ResponseWriter, ctx context.Context, store *worldstore.Store) {
	limit, _ := store.GetAttentionLimit(ctx)
	fmt.Fprintf(rw, "# HELP tilestream_attention_coefficient Configured attention coefficient.\n")
	fmt.Fprintf(rw, "# TYPE tilestream_attention_coefficient gauge\n")
	fmt.Fprintf(rw, "tilestream_attention_coefficient %d\n", limit)

	snap, err := store.GetAllTasks(ctx)
	if err != nil {
		return
	}
	fmt.Fprintf(rw, "# HELP tilestream_task_pool_size Number of tasks currently in each attention pool.\n")
	fmt.Fprintf(rw, "# TYPE tilestream_task_pool_size gauge\n")
	fmt.Fprintf(rw, "tilestream_task_pool_size{pool=%q} %d\n", "active", len(snap.Active))
	fmt.Fprintf(rw, "tilestream_task_pool_size{pool=%q} %d\n", "resumed", len(snap.Resumed))
	fmt.Fprintf(rw, "tilestream_task_pool_size{pool=%q} %d\n", "pending", len(snap.Pending))
	fmt.Fprintf(rw, "tilestream_task_pool_size{pool=%q} %d\n", "paused", len(snap.Paused))
}

// printBanner writes a one-line startup banner, colored only when
// stdout is a real terminal capable of displaying it.
func printBanner(logger *log.Logger) {
	if isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		logger.Printf("\033[36meditorhost starting\033[0m")
		return
	}
	logger.Printf("editorhost starting")
}
