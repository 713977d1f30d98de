package app

import (
	"log/slog"
	"net/http"

	"keyward/internal/attachment"
	"keyward/internal/backup"
	"keyward/internal/blob"
	"keyward/internal/directory"
	"keyward/internal/domain"
	"keyward/internal/pairing"
	"keyward/internal/pairstore"
	"keyward/internal/policy"
	"keyward/internal/session"
	"keyward/internal/store"
)

// Wire bundles all stores, services and clients for the CLI.
type Wire struct {
	Keys        domain.KeyStore
	Directory   domain.Directory
	Backups     domain.BackupService
	Sessions    *session.Manager
	Pairing     *pairing.Service
	Attachments *attachment.Service
	Blobs       domain.BlobStore
	Log         *slog.Logger
}

// NewWire constructs the dependency graph from cfg and opens the local key
// store.
func NewWire(cfg Config) (*Wire, error) {
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	httpClient := cfg.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	keys := store.NewFileKeyStore(cfg.Home)
	if err := keys.Open(); err != nil {
		return nil, err
	}

	dir := directory.NewHTTPClient(cfg.ServerURL, httpClient)
	backups := backup.NewHTTPClient(cfg.ServerURL, httpClient)
	pairings := pairstore.NewHTTPStore(cfg.ServerURL, httpClient)
	blobs := blob.NewHTTPClient(cfg.ServerURL, httpClient)
	uploadPolicy := policy.NewHTTPClient(cfg.ServerURL, httpClient)

	opts := []session.Option{session.WithLogger(log)}
	if cfg.Passwords != nil {
		opts = append(opts,
			session.WithBackup(backups),
			session.WithPasswords(cfg.Passwords),
		)
	}
	sessions := session.NewManager(keys, dir, opts...)

	return &Wire{
		Keys:        keys,
		Directory:   dir,
		Backups:     backups,
		Sessions:    sessions,
		Pairing:     pairing.NewService(keys, pairings, log),
		Attachments: attachment.NewService(sessions, blobs, uploadPolicy, log),
		Blobs:       blobs,
		Log:         log,
	}, nil
}
