package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Brace1000/forum-client-go/forum"
	"github.com/Brace1000/forum-client-go/forum/rest"
	"github.com/Brace1000/forum-client-go/forum/session"
)

var rootCmd = &cobra.Command{
	Use:   "forumchat",
	Short: "Terminal client for the real-time forum: feed, posts and private chat",
	RunE:  runApp,
}

var (
	flagServerURL string
	flagWSURL     string
	flagDataDir   string
	flagConfig    string
	flagDebug     bool
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&flagServerURL, "server", "", "forum server origin, e.g. http://localhost:8080")
	flags.StringVar(&flagWSURL, "ws-url", "", "chat websocket URL (defaults to <server>/ws)")
	flags.StringVar(&flagDataDir, "data-dir", "", "directory for session state and logs")
	flags.StringVar(&flagConfig, "config", "", "path to the YAML config file")
	flags.BoolVar(&flagDebug, "debug", false, "verbose logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("execute")
	}
}

func runApp(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(flagConfig)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	if err := initLogger(cfg.DataDir, flagDebug); err != nil {
		return err
	}

	wsURL, err := cfg.chatURL()
	if err != nil {
		return err
	}

	store, err := session.Open(cfg.DataDir)
	if err != nil {
		return err
	}
	defer store.Close()

	api := rest.NewClient(cfg.ServerURL)
	ctrl := session.NewController(api, store, wsURL, forum.DefaultConfig())
	ctrl.SetLogger(forum.NewZerologLogger(log.Logger))

	log.Info().Str("server", cfg.ServerURL).Str("ws", wsURL).Msg("starting")
	app := newApp(cmd.Context(), ctrl, api)
	return app.Run()
}

// initLogger sends zerolog output to a file in the data dir: the TUI owns
// the terminal, so logs cannot go to stdout.
func initLogger(dataDir string, debug bool) error {
	zerolog.TimeFieldFormat = time.RFC3339

	f, err := os.OpenFile(filepath.Join(dataDir, "forumchat.log"),
		os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}

	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	log.Logger = zerolog.New(f).With().Timestamp().Logger().Level(level)
	return nil
}
