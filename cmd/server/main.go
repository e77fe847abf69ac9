package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/OmChillure/modern-chat/internal/config"
	"github.com/OmChillure/modern-chat/internal/handlers"
	"github.com/OmChillure/modern-chat/internal/log"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	configPath string
	addr       string
	envFile    string
)

var rootCmd = &cobra.Command{
	Use:   "modern-chat-server",
	Short: "Serve the chat endpoint backed by an upstream agent",
	Long: `modern-chat-server accepts chat messages on POST /chat and streams the answer of
the configured upstream agent (Dify, Ollama or OpenAI) back as it arrives.

Dify credentials are read from DIFY_API_URL and DIFY_API_KEY, which may be kept
in a .env file.`,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().StringVar(&configPath, "config", "", "config file (default: user config dir)")
	rootCmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides server.addr")
	rootCmd.Flags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the config")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	boot := log.New("info", os.Stderr)

	if err := godotenv.Load(envFile); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("error loading %s: %w", envFile, err)
		}
		boot.Debug().Str("path", envFile).Msg("no env file")
	}

	cfg, path, err := config.Load(&boot, configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("addr") {
		cfg.Server.Addr = addr
	}
	if err := cfg.ValidateServer(); err != nil {
		return fmt.Errorf("invalid config %s: %w", path, err)
	}

	logger := log.New(cfg.LogLevel, os.Stderr)

	agent, provider, err := newAgent(cfg.Server, logger)
	if err != nil {
		return err
	}

	m, err := handlers.NewMain(agent, provider, logger)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           m.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Server.Addr).Str("upstream", cfg.Server.Upstream).Msg("server starting")
		serverErrors <- srv.ListenAndServe()
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case <-ctx.Done():
		logger.Info().Msg("start shutdown")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownWait)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("graceful shutdown failed")
			if err := srv.Close(); err != nil {
				return fmt.Errorf("forcing server close: %w", err)
			}
		}
	}

	logger.Info().Msg("server stopped")
	return nil
}
