package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/severitech/prueba-b/config"
	"github.com/severitech/prueba-b/forecast"
	"github.com/severitech/prueba-b/metrics"
	"github.com/severitech/prueba-b/pipeline"
)

func main() {
	var (
		configPath = flag.String("config", "config.json", "Path to the JSON configuration file")
		scope      = flag.String("scope", "", "Panel scope: producto, categoria or cliente")
		keys       = flag.String("keys", "", "Comma-separated entity keys for panel forecasts")
		verbose    = flag.Bool("v", false, "Debug logging")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if *verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	command := flag.Arg(0)
	if *help || command == "" {
		showHelp()
		return
	}

	manager, err := config.NewManager(*configPath)
	if err != nil {
		log.WithError(err).Fatal("configuration failed")
	}
	cfg := manager.GetConfig()

	recorder := metrics.NewRecorder()
	listener := startListener(cfg, recorder, log)

	p, err := pipeline.New(cfg, recorder, log)
	if err != nil {
		log.WithError(err).Fatal("pipeline setup failed")
	}

	if err := run(p, command, *scope, *keys); err != nil {
		log.WithError(err).Fatal(command + " failed")
	}

	stopListener(listener, cfg, log)
}

func run(p *pipeline.Pipeline, command, scope, keys string) error {
	switch command {
	case "train":
		_, err := p.RunTraining()
		return err
	case "train-panel":
		return eachScope(scope, func(s string) error {
			_, err := p.RunPanelTraining(s)
			return err
		})
	case "predict":
		_, _, err := p.RunForecast()
		return err
	case "predict-panel":
		return eachScope(scope, func(s string) error {
			_, err := p.RunPanelForecast(s, splitKeys(keys))
			return err
		})
	case "verify":
		report := p.Verify()
		out, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		if !report.Ready {
			return fmt.Errorf("datasets are not ready for training")
		}
		return nil
	}
	return fmt.Errorf("unknown command %q", command)
}

// eachScope runs fn for the named scope, or for every scope when
// none was given
func eachScope(scope string, fn func(string) error) error {
	scopes := forecast.Scopes()
	if scope != "" {
		scopes = []string{scope}
	}
	for _, s := range scopes {
		if err := fn(s); err != nil {
			return err
		}
	}
	return nil
}

func splitKeys(keys string) []string {
	if keys == "" {
		return nil
	}
	parts := strings.Split(keys, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// startListener serves /metrics when configured; batch runs usually
// leave it disabled
func startListener(cfg *config.Config, recorder *metrics.Recorder, log *logrus.Logger) *metrics.Server {
	if cfg.Metrics.Listen == "" {
		return nil
	}
	server := metrics.NewServer(cfg.Metrics.Listen, recorder, log)
	go func() {
		if err := server.Start(); err != nil {
			log.WithError(err).Error("metrics listener failed")
		}
	}()

	// Drain on SIGINT/SIGTERM so a supervised run exits cleanly
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Metrics.ShutdownTimeout.Duration)
		defer cancel()
		server.Shutdown(ctx)
		os.Exit(0)
	}()
	return server
}

func stopListener(server *metrics.Server, cfg *config.Config, log *logrus.Logger) {
	if server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Metrics.ShutdownTimeout.Duration)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Warn("metrics listener shutdown")
	}
}

func showHelp() {
	fmt.Println(`Demand forecasting pipeline

Usage:
  prueba-b [flags] <command>

Commands:
  train           Train the aggregate monthly demand model
  train-panel     Train pooled per-entity models (all scopes, or -scope)
  predict         Forecast the next months of aggregate demand
  predict-panel   Forecast per-entity demand (-scope, optional -keys)
  verify          Inspect the source datasets and report readiness

Flags:
  -config string  Path to the JSON configuration file (default "config.json")
  -scope string   Panel scope: producto, categoria or cliente
  -keys string    Comma-separated entity keys for predict-panel
  -v              Debug logging

Environment:
  IA_DATA_DIR        Overrides the dataset directory
  IA_MODEL_DIR       Overrides the model artifact directory
  IA_METRICS_LISTEN  Enables the /metrics listener on the given address`)
}
