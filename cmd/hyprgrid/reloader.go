package main

import (
	"fmt"
	"os"
	"sync"

	"github.com/hyprpal/hyprgrid/internal/config"
	"github.com/hyprpal/hyprgrid/internal/engine"
	"github.com/hyprpal/hyprgrid/internal/metrics"
	"github.com/hyprpal/hyprgrid/internal/util"
)

type configReloader struct {
	path    string
	logger  *util.Logger
	engine  *engine.Engine
	metrics *metrics.Collector

	// forceDryRun and pinLogLevel keep command-line overrides across reloads.
	forceDryRun bool
	pinLogLevel bool

	mu             sync.Mutex
	lastConfig     *config.Config
	lastSerialized []byte
}

func newConfigReloader(path string, logger *util.Logger, eng *engine.Engine, metrics *metrics.Collector, cfg *config.Config, serialized []byte) *configReloader {
	return &configReloader{
		path:           path,
		logger:         logger,
		engine:         eng,
		metrics:        metrics,
		lastConfig:     cfg,
		lastSerialized: append([]byte(nil), serialized...),
	}
}

func (r *configReloader) Reload(reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.logger.Infof("%s, reloading config", reason)
	raw, err := os.ReadFile(r.path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	cfg, err := config.Parse(raw)
	if err != nil {
		if lintErrs, lintErr := config.LintFile(r.path); lintErr == nil && len(lintErrs) > 0 {
			r.logLintErrors(lintErrs)
		}
		r.logDiff(raw)
		return err
	}

	if r.lastConfig != nil {
		if cfg.Orientation != r.lastConfig.Orientation {
			r.logger.Warnf("orientation change to %s takes effect after restart", cfg.Orientation)
		}
		if cfg.TickIntervalMs != r.lastConfig.TickIntervalMs {
			r.logger.Warnf("tickIntervalMs change to %d takes effect after restart", cfg.TickIntervalMs)
		}
		if diff := config.DiffSettings(r.lastConfig, cfg); diff != "" {
			r.logger.Debugf("config settings changed:\n%s", diff)
		}
	}

	r.engine.SetFrame(cfg.Display.Rect())
	r.engine.SetDryRun(r.forceDryRun || cfg.DryRun)
	if r.metrics != nil {
		r.metrics.SetEnabled(cfg.Telemetry.Enabled)
	}
	if !r.pinLogLevel {
		r.logger.SetLevel(util.ParseLogLevel(cfg.LogLevel))
	}

	r.lastConfig = cfg
	r.lastSerialized = append([]byte(nil), raw...)
	r.logger.Infof("config reloaded")
	return nil
}

func (r *configReloader) logDiff(current []byte) {
	diff := config.DiffSerialized(r.lastSerialized, current)
	if diff == "" {
		r.logger.Warnf("config change rejected; unable to compute diff vs last valid config")
		return
	}
	r.logger.Warnf("config change rejected; diff vs last valid config:\n%s", diff)
}

func (r *configReloader) logLintErrors(errs []config.LintError) {
	r.logger.Warnf("config validation failed with %d issue(s):", len(errs))
	for _, lintErr := range errs {
		if lintErr.Path != "" {
			r.logger.Warnf(" - %s: %s", lintErr.Path, lintErr.Message)
			continue
		}
		r.logger.Warnf(" - %s", lintErr.Message)
	}
}
