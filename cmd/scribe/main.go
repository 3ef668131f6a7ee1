package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/nguyentantai21042004/folder-scribe/internal/config"
	"github.com/nguyentantai21042004/folder-scribe/internal/export"
	"github.com/nguyentantai21042004/folder-scribe/internal/extract"
	"github.com/nguyentantai21042004/folder-scribe/internal/httpapi"
	"github.com/nguyentantai21042004/folder-scribe/internal/inference"
	"github.com/nguyentantai21042004/folder-scribe/internal/logger"
	"github.com/nguyentantai21042004/folder-scribe/internal/media"
	"github.com/nguyentantai21042004/folder-scribe/internal/metrics"
	"github.com/nguyentantai21042004/folder-scribe/internal/progress"
	"github.com/nguyentantai21042004/folder-scribe/internal/queue"
	"github.com/nguyentantai21042004/folder-scribe/internal/transcribe"
	"github.com/nguyentantai21042004/folder-scribe/internal/watcher"
	"github.com/nguyentantai21042004/folder-scribe/pkg/executor"
)

const defaultConfigPath = "config.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	root := flag.String("root", "", "Watched folder, overrides paths.root")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *root != "" {
		cfg.Paths.Root = *root
	}

	log := logger.New(cfg.Logging.Level)
	log.Info(ctx, "========================================")
	log.Info(ctx, "Folder Scribe")
	log.Info(ctx, "========================================")
	log.Info(ctx, "System: %s/%s", runtime.GOOS, runtime.GOARCH)
	log.Info(ctx, "Inference backend: %s", cfg.Inference.Backend)
	log.Info(ctx, "Chunk: %.1fs (%d samples at %d Hz)", cfg.Engine.ChunkSeconds, cfg.Engine.ChunkSamples(), cfg.Engine.SampleRate)

	rootDir, err := media.Canonical(cfg.Paths.Root)
	if err != nil {
		log.Error(ctx, "Invalid root: %v", err)
		os.Exit(1)
	}
	stateDir := filepath.Join(rootDir, cfg.Paths.StateDir)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	store, err := progress.New(stateDir, log)
	if err != nil {
		log.Error(ctx, "Failed to open progress store: %v", err)
		os.Exit(1)
	}

	exec := executor.New()
	extractor := extract.NewFFmpeg(cfg.FFmpeg.BinaryPath, cfg.Engine.SampleRate, exec, log)

	recognizer, err := newRecognizer(cfg, exec, log)
	if err != nil {
		log.Error(ctx, "Failed to create recognizer: %v", err)
		os.Exit(1)
	}

	engine := transcribe.New(cfg.Engine.ChunkSamples(), extractor, recognizer, store, m, log)

	var exporter queue.Exporter
	if cfg.Export.Docx {
		dir := cfg.Export.Dir
		if dir == "" {
			dir = stateDir
		}
		exporter = export.NewDocx(dir, store, log)
		log.Info(ctx, "Docx export enabled: %s", dir)
	}

	sched := queue.New(engine, store, exporter, m, log)

	w, err := watcher.New(func(ctx context.Context, path string) error {
		_, err := sched.Submit(ctx, path)
		return err
	}, log, m, watcher.Options{
		SkipDir:     cfg.Paths.StateDir,
		SettleDelay: cfg.Watcher.SettleDelay(),
	})
	if err != nil {
		log.Error(ctx, "Failed to create watcher: %v", err)
		os.Exit(1)
	}
	defer w.Stop()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// The worker must be running before the first scan submits anything
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		sched.Run(ctx)
	}()

	if err := w.SetRoot(ctx, rootDir); err != nil {
		log.Error(ctx, "Failed to watch %s: %v", rootDir, err)
		cancel()
		wg.Wait()
		os.Exit(1)
	}

	errChan := make(chan error, 1)
	go func() {
		if err := w.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errChan <- err
		}
	}()

	var srv *httpapi.Server
	if cfg.HTTP.Address != "" {
		srv = httpapi.New(cfg.HTTP.Address, sched, w, reg, m, log)
		srv.Start(ctx)
	}

	log.Info(ctx, "========================================")
	log.Info(ctx, "Folder Scribe is ready!")
	log.Info(ctx, "Monitoring: %s", rootDir)
	log.Info(ctx, "Transcripts: %s", stateDir)
	log.Info(ctx, "Press Ctrl+C to stop")
	log.Info(ctx, "========================================")

	select {
	case <-sigChan:
		log.Info(ctx, "Shutdown signal received")
	case err := <-errChan:
		log.Error(ctx, "Watcher error: %v", err)
	}

	log.Info(ctx, "Shutting down gracefully...")
	cancel()

	if srv != nil {
		shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		if err := srv.Stop(shutdownCtx); err != nil {
			log.Warn(shutdownCtx, "HTTP shutdown: %v", err)
		}
		stop()
	}

	// The in-flight job stops at its next chunk boundary; committed chunks are kept
	wg.Wait()
	log.Info(context.Background(), "Folder Scribe stopped")
}

func newRecognizer(cfg *config.Config, exec executor.Executor, log logger.Logger) (inference.Recognizer, error) {
	switch cfg.Inference.Backend {
	case config.BackendGemini:
		return inference.NewGemini(inference.GeminiConfig{
			APIKeys:    cfg.Gemini.APIKeys,
			Model:      cfg.Gemini.Model,
			Language:   cfg.Whisper.Language,
			SampleRate: cfg.Engine.SampleRate,
		}, log)
	default:
		return inference.NewWhisper(inference.WhisperConfig{
			BinaryPath: cfg.Whisper.BinaryPath,
			ModelPath:  cfg.Whisper.ModelPath,
			Language:   cfg.Whisper.Language,
			Prompt:     cfg.Whisper.Prompt,
			Threads:    cfg.Whisper.Threads,
			SampleRate: cfg.Engine.SampleRate,
		}, exec, log), nil
	}
}
