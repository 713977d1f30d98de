package app

import (
	"log/slog"
	"net/http"

	"keyward/internal/domain"
)

// Config holds runtime wiring options for building the client.
type Config struct {
	Home      string                  // key store directory, e.g. $HOME/.keyward
	ServerURL string                  // keywardd base URL, e.g. http://127.0.0.1:8470
	Passwords domain.PasswordSupplier // backup passphrase source; nil disables backups
	HTTP      *http.Client            // optional; defaults to http.DefaultClient
	Log       *slog.Logger            // optional; defaults to slog.Default()
}
