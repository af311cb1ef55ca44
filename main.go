package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"wsgateway/internal/api"
	"wsgateway/internal/logger"
	"wsgateway/internal/ws"
	"wsgateway/internal/wsconfig"
)

func main() {
	fmt.Println("=== WebSocket Gateway - Starting Server ===")

	configPath := os.Getenv("WSGATEWAY_CONFIG_FILE")
	if configPath == "" {
		configPath = "protocols.yaml"
	}
	cfg, err := wsconfig.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	logger.SetDefault(log)
	log.Info("configuration loaded", "port", cfg.Server.Port, "protocols", cfg.WebSocket.Protocols)

	registry := ws.NewRegistry()
	wsServer := ws.NewServer(ws.Config{
		Protocols:          cfg.WebSocket.Protocols,
		CloseTimeout:       cfg.WebSocket.CloseTimeout,
		ReceiveTimeout:     cfg.WebSocket.ReceiveTimeout,
		Autoclose:          cfg.WebSocket.Autoclose,
		Autoping:           cfg.WebSocket.Autoping,
		Heartbeat:          cfg.WebSocket.Heartbeat,
		MaxMsgSize:         cfg.WebSocket.MaxMsgSize,
		CompressionAllowed: cfg.WebSocket.CompressionAllowed,
	}, registry)
	wsServer.OnAccept = func(ep *ws.Endpoint) {
		defer registry.Unregister(ep)
		for msg := range ep.Iterate() {
			switch msg.Type {
			case ws.MsgText, ws.MsgBinary:
				log.Debug("message received", "conn_id", ep.ID, "type", msg.Type.String())
			case ws.MsgError:
				log.Warn("endpoint error", "conn_id", ep.ID, "error", msg.Err)
			}
		}
		log.Info("endpoint closed", "conn_id", ep.ID, "close_code", ep.CloseCode())
	}

	router := api.SetupRoutes(wsServer, registry, cfg)
	log.Info("routes configured")

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown signal received, draining connections")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped cleanly")
}
