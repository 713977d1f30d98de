package main

import (
	"flag"
	"log/slog"
	"net/http"
	"os"

	"github.com/redis/go-redis/v9"

	"keyward/internal/blob"
	"keyward/internal/domain"
	"keyward/internal/pairstore"
	"keyward/internal/server"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config (optional)")
	memory := flag.Bool("memory", false, "use in-memory stores instead of postgres and redis")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg := server.DefaultConfig()
	if *configPath != "" {
		loaded, err := server.LoadConfig(*configPath)
		if err != nil {
			log.Error("load config", "path", *configPath, "err", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	var (
		dir      server.DirectoryStore
		backups  server.BackupStore
		pairings domain.PairingStore
	)
	if *memory {
		mem := server.NewMemoryStore()
		dir, backups = mem, mem
		pairings = pairstore.NewMemoryStore()
	} else {
		pg, err := server.OpenPostgres(cfg.PostgresDSN)
		if err != nil {
			log.Error("open postgres", "err", err)
			os.Exit(1)
		}
		defer pg.Close()
		dir, backups = pg, pg

		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		pairings = pairstore.NewRedisStore(rdb)
	}

	if err := os.MkdirAll(cfg.BlobDir, 0o700); err != nil {
		log.Error("create blob dir", "dir", cfg.BlobDir, "err", err)
		os.Exit(1)
	}
	blobs := blob.NewFSStore(cfg.BlobDir)

	srv := server.New(cfg, dir, backups, pairings, blobs, log)
	log.Info("keywardd listening", "addr", cfg.Listen)
	if err := http.ListenAndServe(cfg.Listen, srv.Handler()); err != nil {
		log.Error("server stopped", "err", err)
		os.Exit(1)
	}
}
