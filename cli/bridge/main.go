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

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rifflock/lfshook"
	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/roataway/briya/cli/bridge/api"
	"github.com/roataway/briya/cli/bridge/config"
	"github.com/roataway/briya/cli/bridge/domain"
	"github.com/roataway/briya/cli/bridge/identity"
	"github.com/roataway/briya/cli/bridge/metrics"
	"github.com/roataway/briya/cli/bridge/sink"
	"github.com/roataway/briya/cli/bridge/state"
	"github.com/roataway/briya/cli/bridge/storage"
	"github.com/roataway/briya/cli/bridge/transport"
)

const version = "2.0.0"

const mirrorBuffer = 1024

func main() {
	configFilePath := ""
	flag.StringVar(&configFilePath, "c", "", "path to the YAML config")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithField("err", err).Warn("Could not read .env file")
	}

	settings, err := getConfig(configPath(configFilePath, flag.Args()))
	if err != nil {
		log.Fatalf("Could not load config: %v", err)
	}

	configureLogging(settings)
	log.Infof("Starting briya v%s", version)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err = run(ctx, settings); err != nil {
		log.Fatal(err)
	}
}

// configPath prefers the -c flag and falls back to the last positional argument.
func configPath(flagValue string, args []string) string {
	if flagValue != "" {
		return flagValue
	}
	if len(args) > 0 {
		return args[len(args)-1]
	}
	return ""
}

func getConfig(configFilePath string) (config.Settings, error) {
	if configFilePath == "" {
		return config.Settings{}, fmt.Errorf("config path is not set")
	}

	log.Infof("Processing config from `%s`", configFilePath)
	c, err := config.New(configFilePath)
	if err != nil {
		return c, fmt.Errorf("config parse error: %w", err)
	}
	return c, nil
}

func configureLogging(settings config.Settings) {
	log.SetLevel(settings.GetLogLevel())

	consoleFmt := &log.TextFormatter{ForceColors: true, FullTimestamp: false}
	log.SetFormatter(consoleFmt)
	log.SetOutput(os.Stdout)

	if settings.LogFilePath != "" {
		logDir := filepath.Dir(settings.LogFilePath)
		if _, err := os.Stat(logDir); os.IsNotExist(err) {
			if err := os.MkdirAll(logDir, os.ModePerm); err != nil {
				log.Fatalf("Could not create log directory: %v", err)
			}
		}

		lumberjackLogger := &lumberjack.Logger{
			Filename:   settings.LogFilePath,
			MaxSize:    100,
			MaxBackups: 366,
			MaxAge:     settings.LogMaxAgeDays,
			Compress:   true,
		}

		fileFmt := &log.TextFormatter{DisableColors: true, FullTimestamp: true}
		hook := lfshook.NewHook(lfshook.WriterMap{
			log.PanicLevel: lumberjackLogger,
			log.FatalLevel: lumberjackLogger,
			log.ErrorLevel: lumberjackLogger,
			log.WarnLevel:  lumberjackLogger,
			log.InfoLevel:  lumberjackLogger,
			log.DebugLevel: lumberjackLogger,
			log.TraceLevel: lumberjackLogger,
		}, fileFmt)

		log.AddHook(hook)
	}
}

func run(ctx context.Context, settings config.Settings) error {
	source, err := identity.NewSource(settings.Identity)
	if err != nil {
		return fmt.Errorf("identity source %q: %w", settings.Identity.Source, err)
	}
	if closer, ok := source.(io.Closer); ok {
		defer closer.Close()
	}

	table := identity.NewTable(source)
	if err = table.Reload(ctx); err != nil {
		return err
	}
	log.Infof("Loaded %d tracker identities from %s", table.Len(), settings.Identity.Source)

	if settings.Identity.ReloadCron != "" {
		c, err := table.ScheduleReload(ctx, settings.Identity.ReloadCron)
		if err != nil {
			return err
		}
		defer c.Stop()
		log.Infof("Identity table reload scheduled: %s", settings.Identity.ReloadCron)
	}

	store := state.NewStore(settings.Yandex.VehicleType)
	collector := metrics.New(prometheus.DefaultRegisterer)

	validator, err := domain.NewValidator(settings.GetDriftTolerance())
	if err != nil {
		return err
	}
	ingestor := domain.NewIngestor(validator, identity.NewResolver(table), store).WithRecorder(collector)

	if len(settings.Store) > 0 {
		repo := storage.NewRepository()
		if err = repo.LoadStorages(settings.Store); err != nil {
			return fmt.Errorf("storage: %w", err)
		}
		mirror := storage.NewAsyncRepository(repo, mirrorBuffer, 0)
		defer func() {
			if err := mirror.Close(); err != nil {
				log.WithField("err", err).Error("Failed to close storages")
			}
		}()
		ingestor.WithMirror(mirror)
		log.Infof("Mirroring vehicle state to %d storages", repo.Len())
	}

	builder := domain.NewBuilder(store, settings.Yandex.ClientID, settings.GetFreshThreshold())
	scheduler := domain.NewScheduler(builder, sink.NewPublisher(settings.Yandex), store, settings.GetPublishInterval()).
		WithEviction(settings.GetEvictAfter()).
		WithRecorder(collector)

	if settings.API.Listen != "" {
		hub := api.NewHub()
		scheduler.OnPublish(func(s domain.Snapshot) { hub.Broadcast(s.Records) })
		controller := api.NewController(api.NewHandler(store, hub, prometheus.DefaultGatherer))
		go func() {
			if err := controller.Run(ctx, settings.API.Listen); err != nil {
				log.WithField("err", err).Error("Status API stopped")
			}
		}()
	}

	subscriber, err := transport.New(settings.Transport)
	if err != nil {
		return fmt.Errorf("transport %q: %w", settings.Transport.Kind, err)
	}
	defer subscriber.Close()

	if err = subscriber.Subscribe(settings.Transport.Topics, ingestor.Handle); err != nil {
		return err
	}

	scheduler.Run(ctx)
	log.Info("Interrupted, shutting down")
	return nil
}
