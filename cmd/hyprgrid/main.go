package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/hyprpal/hyprgrid/internal/config"
	"github.com/hyprpal/hyprgrid/internal/control"
	"github.com/hyprpal/hyprgrid/internal/engine"
	"github.com/hyprpal/hyprgrid/internal/ipc"
	"github.com/hyprpal/hyprgrid/internal/layout"
	"github.com/hyprpal/hyprgrid/internal/metrics"
	"github.com/hyprpal/hyprgrid/internal/util"
)

func main() {
	home, _ := os.UserHomeDir()
	defaultConfig := filepath.Join(home, ".config", "hyprgrid", "config.yaml")

	cfgPath := flag.String("config", defaultConfig, "path to YAML config")
	dryRun := flag.Bool("dry-run", false, "compute changes without applying frames")
	logLevel := flag.String("log-level", "", "log level (trace|debug|info|warn|error); overrides the config")
	eventsPath := flag.String("events", "", "content event stream to follow (file path or - for stdin)")
	socketPath := flag.String("socket", "", "control socket path (defaults to $HYPRGRID_CONTROL_SOCKET or the runtime dir)")
	flag.Parse()

	raw, err := os.ReadFile(*cfgPath)
	if err != nil {
		exitErr(fmt.Errorf("load config: %w", err))
	}
	cfg, err := config.Parse(raw)
	if err != nil {
		exitErr(fmt.Errorf("load config: %w", err))
	}
	level := cfg.LogLevel
	if *logLevel != "" {
		level = *logLevel
	}
	logger := util.NewLogger(util.ParseLogLevel(level))

	orientation, err := cfg.RootOrientation()
	if err != nil {
		exitErr(err)
	}

	cfgFullPath, err := filepath.Abs(*cfgPath)
	if err != nil {
		exitErr(fmt.Errorf("resolve config path: %w", err))
	}
	cfgFullPath = filepath.Clean(cfgFullPath)
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		exitErr(fmt.Errorf("watch config: %w", err))
	}
	defer watcher.Close()
	cfgDir := filepath.Dir(cfgFullPath)
	if err := watcher.Add(cfgDir); err != nil {
		exitErr(fmt.Errorf("watch config dir: %w", err))
	}
	if err := watcher.Add(cfgFullPath); err != nil {
		logger.Debugf("unable to watch config file directly: %v", err)
	}
	reloadRequests := make(chan string, 1)
	go watchConfig(logger, watcher, cfgFullPath, reloadRequests)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	collector := metrics.NewCollector(cfg.Telemetry.Enabled)
	eng := engine.New(layout.NewRecorder(), logger, engine.Options{
		Frame:        cfg.Display.Rect(),
		Orientation:  orientation,
		DryRun:       *dryRun || cfg.DryRun,
		TickInterval: time.Duration(cfg.TickIntervalMs) * time.Millisecond,
		HistoryLimit: cfg.HistoryLimit,
		Metrics:      collector,
	})

	reloader := newConfigReloader(cfgFullPath, logger, eng, collector, cfg, raw)
	reloader.forceDryRun = *dryRun
	reloader.pinLogLevel = *logLevel != ""
	reload := func(reason string) error {
		return reloader.Reload(reason)
	}

	var ctrlSrv *control.Server
	if *socketPath != "" {
		ctrlSrv = control.NewServerAt(*socketPath, eng, logger.Named("control"), reload)
	} else {
		ctrlSrv, err = control.NewServer(eng, logger.Named("control"), reload)
		if err != nil {
			exitErr(fmt.Errorf("start control server: %w", err))
		}
	}

	var events <-chan ipc.Event
	if *eventsPath != "" {
		src, err := ipc.Open(*eventsPath)
		if err != nil {
			exitErr(fmt.Errorf("open event stream: %w", err))
		}
		defer closeQuietly(src)
		events = ipc.Stream(ctx, src, logger.Named("ipc"))
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)

	errs := make(chan error, 2)
	go func() {
		errs <- eng.Run(ctx, events)
	}()
	go func() {
		errs <- ctrlSrv.Serve(ctx)
	}()

	for {
		select {
		case err := <-errs:
			if err != nil && err != context.Canceled {
				logger.Errorf("engine exited: %v", err)
				os.Exit(1)
			}
			logger.Infof("engine stopped")
			return
		case reason := <-reloadRequests:
			if err := reload(reason); err != nil {
				logger.Errorf("reload failed: %v", err)
			}
		case sig := <-sigs:
			switch sig {
			case syscall.SIGHUP:
				if err := reload("received SIGHUP"); err != nil {
					logger.Errorf("reload failed: %v", err)
				}
			case os.Interrupt, syscall.SIGTERM:
				logger.Infof("received %s, shutting down", sig)
				cancel()
			}
		}
	}
}

func watchConfig(logger *util.Logger, watcher *fsnotify.Watcher, target string, reloadRequests chan<- string) {
	const debounceWindow = 250 * time.Millisecond
	var (
		timer   *time.Timer
		timerCh <-chan time.Time
	)
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounceWindow)
				timerCh = timer.C
			} else {
				if !timer.Stop() {
					<-timerCh
				}
				timer.Reset(debounceWindow)
			}
		case <-timerCh:
			timer = nil
			timerCh = nil
			select {
			case reloadRequests <- "config file updated":
			default:
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Warnf("config watcher error: %v", err)
		}
	}
}

func closeQuietly(c io.Closer) {
	_ = c.Close()
}

func exitErr(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
