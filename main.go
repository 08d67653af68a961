/*
File: main.go
Version: 1.0.0
Description: Entry point. Loads config, readies the model (fatal on failure), then either
             classifies a single URL (-predict) or serves the HTTP API until SIGINT/SIGTERM.
*/

package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to the YAML config file")
	predictURL := flag.String("predict", "", "Classify a single URL, print the JSON result and exit")
	retrain := flag.Bool("retrain", false, "Ignore an existing model artifact and retrain")
	flag.Parse()

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		LogFatal("[CONFIG] %v", err)
	}
	defer ShutdownLogger()

	if *retrain {
		cfg.Model.Retrain = true
	}

	manager := NewModelManager(cfg.Model)
	model, err := manager.EnsureModel()
	if err != nil {
		LogFatal("[MODEL] %v", err)
	}

	if *predictURL != "" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(model.PredictWithExplain(*predictURL)); err != nil {
			LogFatal("[MAIN] %v", err)
		}
		return
	}

	tlsConfig, err := loadTLSConfig(cfg.Server)
	if err != nil {
		LogFatal("[SERVER] %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	limiter := NewLimiter(cfg.RateLimit)
	go limiter.StartCleanupRoutine(ctx)

	api := NewAPI(model, manager, NewMetricsStore(cfg.Metrics.Path), limiter, cfg.Server)

	var wg sync.WaitGroup
	servers, err := startServers(&wg, cfg.Server, api.Routes(), tlsConfig)
	if err != nil {
		LogError("[SERVER] %v", err)
		stop()
	} else {
		LogInfo("[SERVER] Ready (%d listeners, model %s)", len(servers), manager.Source())
	}

	<-ctx.Done()
	LogInfo("[SERVER] Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.parsedShutdownTimeout)
	defer cancel()

	var g errgroup.Group
	for _, s := range servers {
		g.Go(func() error {
			if err := s.Shutdown(shutdownCtx); err != nil {
				LogWarn("[SERVER] Shutdown of [%s] failed: %v", s.String(), err)
				return err
			}
			return nil
		})
	}
	_ = g.Wait()
	wg.Wait()

	LogInfo("[SERVER] Stopped")
}
