package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/OmChillure/modern-chat/internal/chat"
	"github.com/OmChillure/modern-chat/internal/config"
	"github.com/OmChillure/modern-chat/internal/log"
	"github.com/OmChillure/modern-chat/internal/tui"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	configPath string
	endpoint   string
	plain      bool
)

var rootCmd = &cobra.Command{
	Use:   "modern-chat",
	Short: "Chat with the modern-chat backend from the terminal",
	Long: `modern-chat keeps a local chat history and sends every message to the backend's
/chat endpoint. The first chunk of each answer becomes the assistant's reply.

Keys:
  enter           send
  alt+enter       new line (also shift+enter, ctrl+j)
  ctrl+s          send
  ctrl+c          quit

With --plain, lines are read from stdin. End a line with \ to continue the
message on the next line, or type /send to send what has been typed so far.`,
	CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
	SilenceUsage:      true,
	RunE:              runChat,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: user config dir)")
	rootCmd.PersistentFlags().StringVar(&endpoint, "endpoint", "", "backend base URL, overrides client.endpoint")
	rootCmd.Flags().BoolVar(&plain, "plain", false, "line-oriented mode without a full-screen UI")

	rootCmd.AddCommand(exportCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// session is what every command needs: the resolved config, the file logger and the history store.
type session struct {
	cfg     config.Config
	logger  zerolog.Logger
	store   kvStore
	closers []io.Closer
}

func openSession(cmd *cobra.Command) (*session, error) {
	boot := log.New("info", cmd.ErrOrStderr())

	cfg, path, err := config.Load(&boot, configPath)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("endpoint") {
		cfg.Client.Endpoint = endpoint
	}
	if err := cfg.ValidateClient(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	s := &session{cfg: cfg}

	// The terminal belongs to the UI, so logs go to a file.
	if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o755); err != nil {
		return nil, fmt.Errorf("error creating log directory: %w", err)
	}
	logger, closer, err := log.NewFile(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return nil, fmt.Errorf("error opening log file: %w", err)
	}
	s.logger = logger
	s.closers = append(s.closers, closer)

	store, err := openStorage(cfg.Client.Storage)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.store = store
	s.closers = append(s.closers, store)

	return s, nil
}

func (s *session) history() chat.History {
	return chat.NewHistory(s.store, s.cfg.Client.Storage.Key, s.logger)
}

// Close releases the store before the log file.
func (s *session) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			s.logger.Warn().Err(err).Msg("close failed")
		}
	}
}

func runChat(cmd *cobra.Command, _ []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	s.logger.Info().
		Str("endpoint", s.cfg.Client.Endpoint).
		Str("storage", s.cfg.Client.Storage.Driver).
		Bool("plain", plain).
		Msg("chat started")

	opts := chat.Options{
		SerializeRequests:   s.cfg.Client.SerializeRequests,
		PersistStatusErrors: s.cfg.Client.PersistStatusErrors,
	}
	client := chat.NewClient(s.cfg.Client.Endpoint, nil)
	renderer := chat.Renderer{}

	// Quitting doesn't cancel outstanding requests; replies not persisted by then are lost.
	ctx := cmd.Context()

	if plain {
		draft := &tui.Draft{}
		view := chat.NewView(renderer, tui.NewPlain(cmd.OutOrStdout()))
		app := chat.NewApp(s.history(), view, draft, client, opts, s.logger)
		return tui.RunPlain(ctx, app, draft, cmd.InOrStdin())
	}

	screen := tui.NewScreen()
	editor := tui.NewEditor()
	app := chat.NewApp(s.history(), chat.NewView(renderer, screen), editor, client, opts, s.logger)
	return tui.Run(ctx, app, screen, editor)
}
