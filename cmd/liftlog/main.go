package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/claude/liftlog/internal/config"
	"github.com/claude/liftlog/internal/server"
	"github.com/claude/liftlog/internal/session"
	"github.com/claude/liftlog/internal/storage"
	"tailscale.com/tsnet"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	migrateOnly := flag.Bool("migrate-only", false, "run migrations and exit")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	log.Info("liftlog starting", "version", Version)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	migrationsPath := "migrations/" + cfg.Database.Driver
	if err := storage.RunMigrations(cfg.Database.DSN(), migrationsPath); err != nil {
		log.Error("migration failed", "error", err)
		os.Exit(1)
	}
	log.Info("migrations applied", "driver", cfg.Database.Driver)

	if *migrateOnly {
		log.Info("migrate-only: exiting")
		return
	}

	ctx := context.Background()

	// The snapshot slot always lives in the local SQLite file, even when
	// records go to Postgres: crash recovery must work offline.
	localPath := cfg.Database.Path
	if localPath == "" {
		localPath = "liftlog.db"
	}
	local, err := storage.Open(localPath)
	if err != nil {
		log.Error("failed to open local database", "error", err)
		os.Exit(1)
	}
	defer local.Close()

	var records storage.RecordStore = local
	var catalog storage.CatalogStore = local
	if cfg.Database.Driver == "postgres" {
		if err := storage.RunMigrations("sqlite://"+localPath, "migrations/sqlite"); err != nil {
			log.Error("local migration failed", "error", err)
			os.Exit(1)
		}
		pg, err := storage.NewPostgres(ctx, cfg.Database.DSN())
		if err != nil {
			log.Error("failed to connect database", "error", err)
			os.Exit(1)
		}
		defer pg.Close()
		records = pg
		catalog = pg
	}
	log.Info("database connected", "driver", cfg.Database.Driver)

	if err := storage.SeedCatalog(ctx, catalog, log); err != nil {
		log.Warn("catalog seeding failed", "error", err)
	}

	engine := session.New(records, catalog, local, log, session.Options{
		AutosaveInterval: time.Duration(cfg.Session.AutosaveIntervalSec) * time.Second,
		StoreTimeout:     time.Duration(cfg.Session.StoreTimeoutSec) * time.Second,
	})
	defer engine.Close()

	if view, err := engine.Recover(ctx); err != nil {
		log.Warn("session recovery failed", "error", err)
	} else if view != nil {
		log.Info("resumed interrupted session", "record_id", view.RecordID, "status", view.Status)
	}

	srv := server.New(engine, catalog, records, cfg.Auth.APIKey, log)

	// Start server — tsnet or plain HTTP
	var listener net.Listener

	if cfg.Tailscale.Enabled {
		tsServer := &tsnet.Server{
			Hostname: cfg.Tailscale.Hostname,
			Dir:      cfg.Tailscale.StateDir,
		}
		if err := tsServer.Start(); err != nil {
			log.Error("tsnet start failed", "error", err)
			os.Exit(1)
		}
		defer tsServer.Close()

		listener, err = tsServer.Listen("tcp", ":80")
		if err != nil {
			log.Error("tsnet listen failed", "error", err)
			os.Exit(1)
		}
		log.Info("tsnet server starting", "hostname", cfg.Tailscale.Hostname)
	} else {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		listener, err = net.Listen("tcp", addr)
		if err != nil {
			log.Error("listen failed", "addr", addr, "error", err)
			os.Exit(1)
		}
		log.Info("server starting", "addr", addr, "mode", "dev (no tailscale)")
	}

	httpSrv := &http.Server{Handler: srv}

	go func() {
		if err := httpSrv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown. The engine keeps its snapshot, so an in-progress
	// session survives the restart.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("shutting down", "signal", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}
	log.Info("server stopped")
}
