package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tv-bridge/config"
	"tv-bridge/internal/application"
	"tv-bridge/internal/domain"
	"tv-bridge/internal/infra"
	"tv-bridge/internal/infra/hue"
	"tv-bridge/internal/infra/irlog"
	"tv-bridge/internal/infra/lirc"
	"tv-bridge/internal/infra/mqtt"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	printConf := flag.Bool("print-lircd-conf", false, "write the lircd remote definition to stdout and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if errors.Is(err, fs.ErrNotExist) && !flagSet("config") {
		cfg, err = config.Default(), nil
	}
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg.Log)
	codes := cfg.CodeTable()

	if *printConf {
		buttons := cfg.Buttons(lirc.DefaultButtons())
		if err := lirc.WriteRemoteConf(os.Stdout, cfg.IR.Remote, codes, buttons); err != nil {
			logger.Error("writing lircd.conf", "error", err)
			os.Exit(1)
		}
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("shutting down")
		cancel()
	}()

	if err := run(ctx, cfg, codes, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("bridge error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, codes domain.CodeTable, logger *slog.Logger) error {
	names := cfg.DeviceNames()

	serial := cfg.Hue.Serial
	if serial == "" {
		serial = hue.SerialFromMAC()
	}

	server := hue.NewServer(hue.Config{
		Addr:         cfg.Hue.Addr,
		Serial:       serial,
		Username:     cfg.Hue.Username,
		PollInterval: parseDuration(cfg.Hue.PollInterval, 50*time.Millisecond, "hue.poll_interval", logger),
		QueueSize:    cfg.Hue.QueueSize,
		RateLimit:    cfg.Hue.RateLimit,
		RateWindow:   parseDuration(cfg.Hue.RateWindow, time.Minute, "hue.rate_window", logger),
	}, names, logger)

	tx, closeTx, err := createTransmitter(ctx, cfg.IR, cfg.Buttons(lirc.DefaultButtons()), logger)
	if err != nil {
		return err
	}
	defer closeTx()

	observer, closeBus, err := createObserver(ctx, cfg.MQTT, names, server, logger)
	if err != nil {
		return err
	}
	defer closeBus()

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting hue server: %w", err)
	}
	defer func() {
		stopCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
		defer stop()
		if err := server.Stop(stopCtx); err != nil {
			logger.Warn("stopping hue server", "error", err)
		}
	}()

	if *cfg.Hue.SSDP {
		location, err := descriptionURL(cfg.Hue)
		if err != nil {
			return err
		}
		responder := hue.NewResponder(location, serial, logger)
		go func() {
			if err := responder.Serve(ctx); err != nil {
				logger.Error("ssdp responder stopped", "error", err)
			}
		}()
	}

	dispatcher := application.NewDispatcher(
		server,
		tx,
		observer,
		&application.Register{},
		names,
		codes,
		parseDuration(cfg.IR.PressDelay, 150*time.Millisecond, "ir.press_delay", logger),
		logger,
	)

	logger.Info("starting tv bridge",
		"devices", names.All(),
		"ir_backend", cfg.IR.Backend,
		"mqtt_mode", cfg.MQTT.Mode,
		"serial", serial,
	)

	return dispatcher.Run(ctx)
}

func createTransmitter(ctx context.Context, cfg config.IRConfig, buttons map[domain.Function]string, logger *slog.Logger) (application.Transmitter, func(), error) {
	if cfg.Backend == "log" {
		return irlog.NewTransmitter(logger), func() {}, nil
	}

	var client *lirc.Client
	if cfg.Address != "" {
		client = lirc.NewTCP(cfg.Address, logger)
	} else {
		client = lirc.NewUnix(cfg.Socket, logger)
	}
	closeClient := func() {
		if err := client.Close(); err != nil {
			logger.Warn("closing lircd connection", "error", err)
		}
	}

	version, err := client.Connect(ctx, infra.DefaultRetryConfig())
	if err != nil {
		closeClient()
		return nil, nil, err
	}
	logger.Info("connected to lircd", "version", version, "remote", cfg.Remote)

	tx := lirc.NewTransmitter(client, cfg.Remote, buttons, logger)
	if cfg.Verify {
		if err := tx.Verify(ctx); err != nil {
			closeClient()
			return nil, nil, err
		}
	}

	return tx, closeClient, nil
}

func createObserver(ctx context.Context, cfg config.MQTTConfig, names domain.DeviceNames, server *hue.Server, logger *slog.Logger) (application.StateObserver, func(), error) {
	var bus mqtt.Bus
	switch cfg.Mode {
	case "embedded":
		bus = mqtt.NewBroker(cfg.Addr, logger)
	case "external":
		bus = mqtt.NewClient(mqtt.ClientConfig{
			URL:      cfg.URL,
			ClientID: cfg.ClientID,
			Username: cfg.Username,
			Password: cfg.Password,
		}, logger)
	default:
		return &application.NoopObserver{}, func() {}, nil
	}

	mirror := mqtt.NewMirror(bus, cfg.TopicPrefix, names, server, logger)
	if err := mirror.Bind(); err != nil {
		return nil, nil, err
	}
	if err := bus.Start(ctx); err != nil {
		return nil, nil, fmt.Errorf("starting mqtt: %w", err)
	}

	closeBus := func() {
		if err := bus.Close(); err != nil {
			logger.Warn("closing mqtt", "error", err)
		}
	}
	return mirror, closeBus, nil
}

func descriptionURL(cfg config.HueConfig) (string, error) {
	_, port, err := net.SplitHostPort(cfg.Addr)
	if err != nil {
		return "", fmt.Errorf("parsing hue.addr: %w", err)
	}

	host := cfg.AdvertiseIP
	if host == "" {
		ip, err := hue.OutboundIP()
		if err != nil {
			return "", err
		}
		host = ip.String()
	}

	return "http://" + net.JoinHostPort(host, port) + "/description.xml", nil
}

func flagSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

func parseDuration(value string, fallback time.Duration, key string, logger *slog.Logger) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		logger.Warn("invalid duration, using default", "key", key, "value", value, "error", err)
		return fallback
	}
	return d
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
