package main

import (
	"fmt"
	"io"
	"os"

	"github.com/OmChillure/modern-chat/internal/chat"
	"github.com/OmChillure/modern-chat/internal/views"
	"github.com/spf13/cobra"
)

var (
	exportOutput string
	exportTitle  string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the chat history as a standalone HTML page",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (default: stdout)")
	exportCmd.Flags().StringVar(&exportTitle, "title", "Modern Chat transcript", "page title")
}

func runExport(cmd *cobra.Command, _ []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	v, err := views.New()
	if err != nil {
		return err
	}

	messages := s.history().Load()

	var w io.Writer = cmd.OutOrStdout()
	if exportOutput != "" {
		f, err := os.Create(exportOutput)
		if err != nil {
			return fmt.Errorf("error creating %s: %w", exportOutput, err)
		}
		defer f.Close()
		w = f
	}

	err = v.Render(w, views.Page{
		Title:      exportTitle,
		Messages:   chat.Renderer{}.Tree(messages),
		Transcript: true,
	})
	if err != nil {
		return fmt.Errorf("error writing transcript: %w", err)
	}

	s.logger.Info().Int("messages", len(messages)).Str("output", exportOutput).Msg("transcript exported")
	return nil
}
