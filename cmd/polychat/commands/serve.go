package commands

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/polychat-ai/polychat/internal/agent"
	"github.com/polychat-ai/polychat/internal/config"
	"github.com/polychat-ai/polychat/internal/event"
	"github.com/polychat-ai/polychat/internal/gateway"
	"github.com/polychat-ai/polychat/internal/logging"
	"github.com/polychat-ai/polychat/internal/server"
	"github.com/polychat-ai/polychat/internal/session"
	"github.com/polychat-ai/polychat/internal/storage"
)

var (
	servePort int
	serveHost string
	serveDir  string
	dataDir   string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the polychat HTTP server",
	Long: `Start polychat as a server that exposes the session and analysis
API over HTTP.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to listen on (overrides config)")
	serveCmd.Flags().StringVar(&serveHost, "hostname", "127.0.0.1", "Hostname to listen on")
	serveCmd.Flags().StringVar(&serveDir, "directory", "", "Working directory")
	serveCmd.Flags().StringVar(&dataDir, "data-dir", "", "Session storage directory (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logging.For("cli")

	workDir := serveDir
	if workDir == "" {
		var err error
		workDir, err = os.Getwd()
		if err != nil {
			return err
		}
	}

	paths := config.GetPaths()
	if err := paths.EnsurePaths(); err != nil {
		return err
	}

	cfg, err := config.Load(workDir)
	if err != nil {
		return err
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if servePort != 0 {
		cfg.Server.Port = servePort
	}

	log.Info().Str("version", Version).Str("dataDir", cfg.DataDir).Msg("starting polychat server")

	store := storage.New(cfg.DataDir)
	bus := event.NewBus()
	defer bus.Close()

	registry := agent.NewRegistry()
	if err := registry.LoadDir(cfg.AgentsDir); err != nil {
		log.Warn().Err(err).Str("dir", cfg.AgentsDir).Msg("failed to load some agent definitions")
	}

	ctx := context.Background()

	var gw gateway.Gateway
	einoGw, err := gateway.NewEinoGateway(ctx, &gateway.Config{
		APIKey:    cfg.OpenAI.APIKey,
		BaseURL:   cfg.OpenAI.BaseURL,
		Model:     cfg.OpenAI.Model,
		MaxTokens: cfg.OpenAI.MaxTokens,
	}, registry)
	if err != nil {
		log.Warn().Err(err).Msg("generation gateway unavailable, analysis will degrade")
	} else {
		gw = einoGw
	}

	manager, err := session.NewManager(ctx, store, bus)
	if err != nil {
		return err
	}
	analyzer := session.NewAnalyzer(gw, bus)

	serverConfig := server.DefaultConfig()
	serverConfig.Host = serveHost
	serverConfig.Port = cfg.Server.Port

	srv := server.New(serverConfig, manager, analyzer, registry, gw, bus)

	go func() {
		log.Info().Str("host", serveHost).Int("port", cfg.Server.Port).Msg("server listening")
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown error")
	}

	log.Info().Msg("server stopped")
	return nil
}
