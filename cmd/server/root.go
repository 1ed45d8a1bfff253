package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/omochice/relaychat/internal/config"
	"github.com/omochice/relaychat/internal/server"
)

var (
	Version = "dev"

	showVersion   bool
	debug         bool
	configFile    = config.DefaultPath()
	listenIP      string
	listenPort    int
	metricsListen string
	websocket     bool

	rootCmd = &cobra.Command{
		Use:   "relaychat-server",
		Short: "Relay text between chat peers over TCP and WebSocket",
		Args:  cobra.NoArgs,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setLogLevel()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				fmt.Println(Version)
				return nil
			}
			return runServer(cmd)
		},
	}
)

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("failed to execute")
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.Flags().BoolVarP(&showVersion, "version", "v", false, "Print version information")
	rootCmd.Flags().StringVarP(&configFile, "config", "c", configFile, "path of config file")
	rootCmd.Flags().StringVar(&listenIP, "ip", config.DefaultListenIP, "address to listen on")
	rootCmd.Flags().IntVarP(&listenPort, "port", "p", config.DefaultListenPort, "port to listen on for both TCP and WebSocket peers")
	rootCmd.Flags().StringVar(&metricsListen, "metrics", "", "address of the Prometheus /metrics endpoint")
	rootCmd.Flags().BoolVar(&websocket, "websocket", true, "accept WebSocket peers")
}

func setLogLevel() {
	if debug {
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

func loadConfig(cmd *cobra.Command) (*config.Server, error) {
	cfg, err := config.LoadServerConfig(configFile)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("ip") {
		cfg.Listen.IP = listenIP
	}
	if flags.Changed("port") {
		cfg.Listen.Port = listenPort
	}
	if flags.Changed("metrics") {
		cfg.Metrics.Listen = metricsListen
	}
	if flags.Changed("websocket") {
		cfg.WebSocket = &websocket
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid server configuration: %w", err)
	}
	return cfg, nil
}

func runServer(cmd *cobra.Command) error {
	logger := log.With().Str("com", "server-cmd").Logger()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	host := server.New(cfg.Listen.IP, cfg.Listen.Port,
		server.WithLogger(log.Logger),
		server.WithRegisterer(registry),
		server.WithHandshakeTimeout(cfg.HandshakeTimeout),
		server.WithWriteTimeout(cfg.WriteTimeout),
		server.WithMaxFrameSize(cfg.MaxFrameSize),
		server.WithInboxSize(cfg.InboxSize),
		server.WithUniqueUsernames(cfg.UniqueUsernamesEnabled()),
		server.WithWebSocket(cfg.WebSocketEnabled()),
	)
	if err := host.Listen(); err != nil {
		return err
	}
	defer host.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	var metricsSrv *http.Server
	if cfg.Metrics.Listen != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		metricsSrv = &http.Server{
			Addr:              cfg.Metrics.Listen,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info().Str("addr", cfg.Metrics.Listen).Msg("serving metrics")
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics server: %w", err)
			}
		}()
	}

	ticker := time.NewTicker(cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("received shutdown signal")
			shutdownMetrics(metricsSrv)
			logger.Info().Msg("server stopped")
			return nil
		case err := <-errCh:
			logger.Error().Err(err).Msg("server error")
			return err
		case <-ticker.C:
			host.Update()
		}
	}
}

func shutdownMetrics(srv *http.Server) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("failed to stop metrics server")
	}
}
