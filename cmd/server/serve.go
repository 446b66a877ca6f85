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

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Wyydra/yacall/internal/adapter/driven/gateway/ws"
	mediamem "github.com/Wyydra/yacall/internal/adapter/driven/media/memory"
	"github.com/Wyydra/yacall/internal/adapter/driven/media/pion"
	repo "github.com/Wyydra/yacall/internal/adapter/driven/persistence/memory"
	"github.com/Wyydra/yacall/internal/adapter/driven/persistence/sqlite"
	transportmem "github.com/Wyydra/yacall/internal/adapter/driven/transport/memory"
	"github.com/Wyydra/yacall/internal/adapter/driven/transport/relay"
	handler "github.com/Wyydra/yacall/internal/adapter/driving/http"
	"github.com/Wyydra/yacall/internal/config"
	"github.com/Wyydra/yacall/internal/core/domain"
	"github.com/Wyydra/yacall/internal/core/port"
	"github.com/Wyydra/yacall/internal/core/service"
)

var (
	envFile  string
	logLevel string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the call engine and its control API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve()
	},
}

func init() {
	serveCmd.Flags().StringVar(&envFile, "env-file", "", "load configuration from this file instead of ./.env")
	serveCmd.Flags().StringVar(&logLevel, "log-level", "", "override LOG_LEVEL")
}

// inbound is the receiving half of whichever transport is configured.
type inbound interface {
	port.MessageTransport
	Run(ctx context.Context, handler port.MessageHandler) error
}

type loopback struct {
	*transportmem.Endpoint
}

func (l loopback) Run(ctx context.Context, h port.MessageHandler) error {
	l.Serve(ctx, h)
	return nil
}

func serve() error {
	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	l := setupLogger(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	historyRepo, processedRepo, closeStore, err := openStore(cfg.Database)
	if err != nil {
		return err
	}
	defer closeStore()

	processed, err := service.NewProcessedMessages(ctx, processedRepo, cfg.Call.ProcessedLimit)
	if err != nil {
		return fmt.Errorf("failed to load processed messages: %w", err)
	}
	history := service.NewHistoryRecorder(historyRepo, cfg.Call.HistoryLimit)

	media, err := newMedia(cfg.Media)
	if err != nil {
		return err
	}

	transport, err := newTransport(ctx, cfg)
	if err != nil {
		return err
	}

	calls := service.NewCallService(service.CallConfig{
		Self:            domain.PeerID(cfg.Identity),
		RingTimeout:     cfg.Call.RingTimeout,
		InviteFreshness: cfg.Call.InviteFreshness,
		SendTimeout:     cfg.Call.SendTimeout,
	}, media, transport, history, processed)

	hub := ws.NewHub()
	calls.Subscribe(hub)
	go hub.Run()

	transportDone := make(chan error, 1)
	go func() {
		transportDone <- transport.Run(ctx, calls.HandleMessage)
	}()

	h := handler.NewHandler(calls, hub, handler.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		APISecret:      cfg.Server.APISecret,
	})

	srv := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           h.NewRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		l.Info().Str("addr", cfg.Server.ListenAddr).Str("peer_id", cfg.Identity).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			l.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	var runErr error
	select {
	case <-quit:
	case err := <-transportDone:
		// no inbound signaling without the transport, any live call is lost
		l.Error().Err(err).Msg("Transport stopped")
		calls.ForceReset()
		runErr = errors.New("transport stopped")
		if err != nil {
			runErr = fmt.Errorf("transport stopped: %w", err)
		}
	}
	l.Info().Msg("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		l.Error().Err(err).Msg("Server forced to shutdown")
	}

	calls.Close()
	cancel()
	hub.Stop()
	l.Info().Msg("Server exited")
	return runErr
}

func openStore(cfg config.DatabaseConfig) (port.HistoryRepository, port.ProcessedMessageRepository, func(), error) {
	if cfg.Path == "" {
		return repo.NewHistoryRepository(), repo.NewProcessedMessageRepository(), func() {}, nil
	}
	db, err := sqlite.Open(cfg.Path)
	if err != nil {
		return nil, nil, nil, err
	}
	return sqlite.NewHistoryRepository(db), sqlite.NewProcessedMessageRepository(db), func() { db.Close() }, nil
}

func newMedia(cfg config.MediaConfig) (port.PeerConnectionManager, error) {
	if cfg.Engine == config.MediaEngineMemory {
		return mediamem.NewEngine(mediamem.Options{AutoConnect: true}), nil
	}

	var servers []webrtc.ICEServer
	if len(cfg.ICEServers) > 0 {
		servers = []webrtc.ICEServer{{
			URLs:       cfg.ICEServers,
			Username:   cfg.ICEUsername,
			Credential: cfg.ICECredential,
		}}
	}
	return pion.NewManager(pion.Config{
		ICEServers: servers,
		Capturer:   pion.SampleCapturer{Audio: true, Video: cfg.Video},
	})
}

func newTransport(ctx context.Context, cfg *config.Config) (inbound, error) {
	self := domain.PeerID(cfg.Identity)
	if cfg.Relay.URL == "" {
		log.Warn().Msg("RELAY_URL not set, signals stay inside this process")
		return loopback{transportmem.NewBus(nil).Endpoint(self)}, nil
	}

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return relay.Dial(dialCtx, cfg.Relay.URL, self, cfg.Relay.Token)
}
