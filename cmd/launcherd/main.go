package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coppebars/rslauncher/core/state/launcher"
	"github.com/coppebars/rslauncher/internal/api"
	"github.com/coppebars/rslauncher/internal/config"
	"github.com/coppebars/rslauncher/internal/hdb"
	"github.com/coppebars/rslauncher/internal/httpclient"
	"github.com/coppebars/rslauncher/internal/launch"
	"github.com/coppebars/rslauncher/internal/logging"
	"github.com/coppebars/rslauncher/internal/nativecore"
	"github.com/coppebars/rslauncher/internal/nativecore/mojang"
	"github.com/coppebars/rslauncher/internal/pubsub"
	"github.com/coppebars/rslauncher/internal/registry"
	"github.com/coppebars/rslauncher/internal/runtime"
	"github.com/coppebars/rslauncher/internal/settings"
	"github.com/coppebars/rslauncher/internal/store"
	"github.com/coppebars/rslauncher/internal/versions"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

func main() {
	app := &cli.App{
		Name:  "launcherd",
		Usage: "Minecraft launcher daemon",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "listen",
				Usage: "Address to serve the launcher API on, overrides LAUNCHER_LISTEN",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level, overrides LAUNCHER_LOG_LEVEL",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	level := cfg.LogLevel()
	if c.IsSet("log-level") {
		level = c.String("log-level")
	}
	log, err := logging.NewLogger(os.Stderr, level, cfg.LogPretty())
	if err != nil {
		return err
	}

	listen := cfg.ListenAddress()
	if c.IsSet("listen") {
		listen = c.String("listen")
	}

	kv, err := store.Open(cfg.StorePath())
	if err != nil {
		return err
	}
	defer kv.Close()

	stateUpdates := pubsub.NewSimplePublisher[hdb.StateUpdate]()
	statusEvents := pubsub.NewSimplePublisher[runtime.StatusEvent]()
	notifications := pubsub.NewSimplePublisher[launch.Notification]()
	tracker := runtime.NewTracker(statusEvents)

	forget := runtime.NewForgetExecutor(tracker)
	executors, err := hdb.NewExecutorSubscriber("RuntimeTracker", launcher.SchemaName, []hdb.StateUpdateExecutor{forget}, forget)
	if err != nil {
		return err
	}
	stateUpdates.AddSubscriber(hdb.NewStateUpdateLogger(log))
	stateUpdates.AddSubscriber(executors)

	stream := api.NewStream()
	bus := nativecore.NewBus()
	stream.Attach(statusEvents, notifications, stateUpdates, bus)

	db, err := launcher.NewDatabase(kv, cfg.DefaultRootPath(), stateUpdates)
	if err != nil {
		return fmt.Errorf("error opening launcher state: %w", err)
	}
	db.Restore()

	metadata := httpclient.New(httpclient.DefaultOptions())
	core := nativecore.NewCore(bus, []nativecore.Driver{
		mojang.NewDriver(mojang.Options{
			ManifestURL:  cfg.ManifestURL(),
			ResourcesURL: cfg.ResourcesURL(),
			Workers:      cfg.Workers(),
			JavaPath:     cfg.JavaPath(),
			Metadata:     metadata,
		}),
	})

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	settingsStore := settings.NewStore(db)
	instances := registry.NewRegistry(db, settingsStore)
	orchestrator := launch.NewOrchestrator(core, bus, tracker, notifications, launch.NewMetrics(reg))

	routes := api.Routes(&api.Components{
		Registry:     instances,
		Settings:     settingsStore,
		Versions:     versions.NewService(metadata, cfg.ManifestURL(), core, settingsStore),
		Launcher:     launch.NewLauncher(orchestrator, instances, settingsStore, cfg.ServiceHosts()),
		Orchestrator: orchestrator,
		Tracker:      tracker,
		Stream:       stream,
		Gatherer:     reg,
	})
	apiServer := api.NewServer(listen, api.NewRouter(routes, log))

	// ctx.Done() returns when SIGINT or SIGTERM is received or cancel() is called.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// egCtx is cancelled if any function called with eg.Go() returns an error.
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(serveFn(apiServer, log))

	select {
	case <-egCtx.Done():
		log.Err(egCtx.Err()).Msg("sub-service errored: shutting down launcher")
		cancel()
	case <-ctx.Done():
		log.Info().Msg("Interrupt signal received; gracefully closing launcher")
	}

	orchestrator.CancelAll()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		log.Err(err).Msg("error on api-server shutdown")
	}
	orchestrator.Wait()

	return eg.Wait()
}

func serveFn(srv *http.Server, log *zerolog.Logger) func() error {
	return func() error {
		log.Info().Msgf("Starting launcher API at %s", srv.Addr)
		err := srv.ListenAndServe()
		if err != http.ErrServerClosed {
			return fmt.Errorf("launcher API closed with abnormal error: %w", err)
		}
		return nil
	}
}
