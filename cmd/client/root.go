package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/omochice/relaychat/internal/client"
	"github.com/omochice/relaychat/internal/config"
)

var (
	Version = "dev"

	showVersion bool
	debug       bool
	configFile  = config.DefaultPath()
	serverAddr  string
	username    string

	rootCmd = &cobra.Command{
		Use:   "relaychat",
		Short: "Chat with other peers through a relaychat server",
		Long: "Lines typed on stdin are sent to everyone.\n" +
			"Use \"/msg <user> <text>\" for a private message and \"/quit\" to leave.",
		Args: cobra.NoArgs,
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
			return runClient(cmd)
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
	rootCmd.Flags().StringVarP(&serverAddr, "server", "s", config.DefaultServerEndpoint, "server endpoint, host:port or ws://host:port/path")
	rootCmd.Flags().StringVarP(&username, "username", "u", "", "username for chat")
}

func setLogLevel() {
	if debug {
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

func loadConfig(cmd *cobra.Command) (*config.Client, error) {
	cfg, err := config.LoadClientConfig(configFile)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("server") {
		cfg.Server = serverAddr
	}
	if flags.Changed("username") {
		cfg.Username = username
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid client configuration: %w", err)
	}
	return cfg, nil
}

func runClient(cmd *cobra.Command) error {
	logger := log.With().Str("com", "client-cmd").Logger()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	agent := client.New(cfg.Username,
		client.WithLogger(log.Logger),
		client.WithDialTimeout(cfg.DialTimeout),
		client.WithMaxReceived(cfg.MaxReceived),
	)
	if err := agent.Connect(ctx, cfg.Server); err != nil {
		return err
	}
	defer agent.Disconnect()

	logger.Info().Str("server", cfg.Server).Str("user", cfg.Username).Msg("joined chat")
	fmt.Println(`Type your messages ("/msg <user> <text>" to whisper, "/quit" to exit):`)

	return runConsole(ctx, os.Stdin, os.Stdout, agent, cfg.DrainInterval)
}
