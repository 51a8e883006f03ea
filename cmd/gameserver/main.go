// Package main provides the game server binary: a WebSocket endpoint for
// the lobby and real-time two-player matches.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/EvilX/reversi/internal/config"
	"github.com/EvilX/reversi/internal/frontend/ws"
	"github.com/EvilX/reversi/internal/game/session"
	"github.com/EvilX/reversi/internal/observability"
	"github.com/EvilX/reversi/internal/server"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	manager := session.NewManager(logger)
	acceptor := ws.NewAcceptor(cfg.Websocket, manager, logger)

	lifecycle := server.NewLifecycle(logger)
	lifecycle.Add("websocket", &server.FuncService{
		StartFn: acceptor.ListenAndServe,
		StopFn:  acceptor.Stop,
	})

	logger.Info("game server initialized",
		zap.Duration("startup", time.Since(start)),
		zap.String("websocket_addr", cfg.Websocket.Addr()),
	)

	if err := lifecycle.Run(ctx); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
