package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/digitalbuzz/buzzchat/internal/config"
	"github.com/digitalbuzz/buzzchat/internal/ratelimit"
	"github.com/digitalbuzz/buzzchat/internal/registry"
	"github.com/digitalbuzz/buzzchat/internal/server"
	"github.com/digitalbuzz/buzzchat/internal/store"
	"github.com/digitalbuzz/buzzchat/internal/ws"
	"github.com/redis/go-redis/v9"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := store.OpenSQLite(cfg.SQLitePath)
	if err != nil {
		log.Fatalf("Failed to open SQLite store at %s: %v", cfg.SQLitePath, err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := db.SeedRooms(ctx, cfg.Rooms); err != nil {
		cancel()
		log.Fatalf("Failed to seed rooms: %v", err)
	}
	cancel()

	var messages store.MessageStore = db
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := rdb.Ping(pingCtx).Err()
		pingCancel()
		if err != nil {
			log.Fatalf("Failed to connect to Redis at %s: %v", cfg.RedisAddr, err)
		}
		log.Printf("Connected to Redis at %s, keeping message history there", cfg.RedisAddr)
		messages = store.NewRedis(rdb, cfg.RetainPerRoom)
	}

	reg := registry.New()
	conns := ws.NewConnManager(
		ws.WithMaxConns(cfg.MaxConns),
		ws.WithSendBuffer(cfg.SendBuffer),
	)
	bcast := ws.NewBroadcaster(reg, conns)
	router := ws.NewRouter(reg, bcast, messages, db,
		ws.WithMaxMessageLen(cfg.MaxMessageLength),
		ws.WithMaxImageBytes(cfg.MaxImageBytes),
	)
	wsHandler := ws.NewHandler(conns, router, db)
	limiter := ratelimit.New(cfg.RateLimitMax, cfg.RateLimitWindow)

	srv := server.New(cfg.ListenAddr, db, messages, wsHandler, limiter)

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		log.Println("Shutting down")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP shutdown: %v", err)
		}
		conns.Shutdown()
	}()

	log.Printf("Starting buzzchat server on %s", cfg.ListenAddr)
	if err := srv.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Server error: %v", err)
	}
}
