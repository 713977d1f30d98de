package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"keyward/internal/domain"
)

// maxBodyBytes caps non-blob request bodies.
const maxBodyBytes = 1 << 20

// Server wires the keywardd handlers to their stores.
type Server struct {
	cfg      Config
	dir      DirectoryStore
	backups  BackupStore
	pairings domain.PairingStore
	blobs    domain.BlobStore
	log      *slog.Logger
	metrics  *metrics
	router   *mux.Router
}

// New builds a Server over the given stores.
func New(cfg Config, dir DirectoryStore, backups BackupStore, pairings domain.PairingStore, blobs domain.BlobStore, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		cfg:      cfg,
		dir:      dir,
		backups:  backups,
		pairings: pairings,
		blobs:    blobs,
		log:      log,
		metrics:  newMetrics(),
	}
	s.router = s.routes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(withObservability(s.log, s.metrics))
	r.Use(withRateLimit(newIPLimiter(s.cfg.RateLimitRPS, s.cfg.RateLimitBurst)))

	v1 := r.PathPrefix("/v1").Subrouter()

	v1.HandleFunc("/keys/{user}", s.putKey).Methods(http.MethodPut)
	v1.HandleFunc("/keys/{user}", s.getKey).Methods(http.MethodGet)

	v1.HandleFunc("/backups/{user}", s.putBackup).Methods(http.MethodPut)
	v1.HandleFunc("/backups/{user}", s.getBackup).Methods(http.MethodGet, http.MethodHead)

	v1.HandleFunc("/pairings/{user}/{code}", s.putPairing).Methods(http.MethodPut)
	v1.HandleFunc("/pairings/{user}/{code}", s.getPairing).Methods(http.MethodGet)
	v1.HandleFunc("/pairings/{user}/{code}", s.deletePairing).Methods(http.MethodDelete)
	v1.HandleFunc("/pairings/{user}", s.listPairings).Methods(http.MethodGet)

	v1.HandleFunc("/blobs/{name:.+}", s.putBlob).Methods(http.MethodPut)
	v1.HandleFunc("/blobs/{name:.+}", s.getBlob).Methods(http.MethodGet)
	v1.HandleFunc("/blobs/{name:.+}", s.deleteBlob).Methods(http.MethodDelete)

	v1.HandleFunc("/policy", s.getPolicy).Methods(http.MethodGet)

	r.Handle("/metrics", s.metrics.handler()).Methods(http.MethodGet)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)

	return r
}

type keyRecord struct {
	UserID    string `json:"user_id"`
	PublicKey []byte `json:"public_key"`
}

func (s *Server) putKey(w http.ResponseWriter, r *http.Request) {
	user := mux.Vars(r)["user"]

	var rec keyRecord
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&rec); err != nil {
		http.Error(w, "invalid key record", http.StatusBadRequest)
		return
	}
	if len(rec.PublicKey) != domain.KeySize {
		http.Error(w, "public key must be 32 bytes", http.StatusBadRequest)
		return
	}
	if err := s.dir.SavePublicKey(r.Context(), user, rec.PublicKey); err != nil {
		s.log.Error("save public key", "user", user, "err", err)
		http.Error(w, "storage failure", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) getKey(w http.ResponseWriter, r *http.Request) {
	user := mux.Vars(r)["user"]

	key, ok, err := s.dir.PublicKey(r.Context(), user)
	if err != nil {
		s.log.Error("load public key", "user", user, "err", err)
		http.Error(w, "storage failure", http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, "no key for user", http.StatusNotFound)
		return
	}
	writeJSON(w, keyRecord{UserID: user, PublicKey: key})
}

func (s *Server) putBackup(w http.ResponseWriter, r *http.Request) {
	user := mux.Vars(r)["user"]

	blob, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil || len(blob) == 0 {
		http.Error(w, "empty backup body", http.StatusBadRequest)
		return
	}
	if err := s.backups.SaveBackup(r.Context(), user, blob); err != nil {
		s.log.Error("save backup", "user", user, "err", err)
		http.Error(w, "storage failure", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) getBackup(w http.ResponseWriter, r *http.Request) {
	user := mux.Vars(r)["user"]

	blob, ok, err := s.backups.Backup(r.Context(), user)
	if err != nil {
		s.log.Error("load backup", "user", user, "err", err)
		http.Error(w, "storage failure", http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, "no backup for user", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	if r.Method == http.MethodHead {
		return
	}
	_, _ = w.Write(blob)
}

func (s *Server) putPairing(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var req domain.PairingRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		http.Error(w, "invalid pairing request", http.StatusBadRequest)
		return
	}
	req.UserID = domain.UserID(vars["user"])
	req.PairingCode = vars["code"]

	ttl := time.Until(req.ExpiresAt)
	if ttl <= 0 {
		http.Error(w, "pairing request already expired", http.StatusBadRequest)
		return
	}
	if err := s.pairings.Put(r.Context(), req, ttl); err != nil {
		s.log.Error("store pairing request", "user", req.UserID, "err", err)
		http.Error(w, "storage failure", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) getPairing(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	req, ok, err := s.pairings.Get(r.Context(), domain.UserID(vars["user"]), vars["code"])
	if err != nil {
		s.log.Error("load pairing request", "user", vars["user"], "err", err)
		http.Error(w, "storage failure", http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, "no pairing request", http.StatusNotFound)
		return
	}
	writeJSON(w, req)
}

func (s *Server) deletePairing(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	if err := s.pairings.Delete(r.Context(), domain.UserID(vars["user"]), vars["code"]); err != nil {
		s.log.Error("delete pairing request", "user", vars["user"], "err", err)
		http.Error(w, "storage failure", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listPairings(w http.ResponseWriter, r *http.Request) {
	user := mux.Vars(r)["user"]

	reqs, err := s.pairings.List(r.Context(), domain.UserID(user))
	if err != nil {
		s.log.Error("list pairing requests", "user", user, "err", err)
		http.Error(w, "storage failure", http.StatusInternalServerError)
		return
	}
	if reqs == nil {
		reqs = []domain.PairingRequest{}
	}
	writeJSON(w, reqs)
}

func (s *Server) putBlob(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	limit := s.cfg.MaxAttachmentBytes + domain.NonceSize + 16 // ciphertext overhead
	data, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	if err != nil {
		http.Error(w, "read body", http.StatusBadRequest)
		return
	}
	if int64(len(data)) > limit {
		http.Error(w, "blob too large", http.StatusRequestEntityTooLarge)
		return
	}
	if err := s.blobs.Put(r.Context(), name, data); err != nil {
		s.log.Error("store blob", "name", name, "err", err)
		http.Error(w, "storage failure", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) getBlob(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	data, err := s.blobs.Get(r.Context(), name)
	if err != nil {
		http.Error(w, "no blob", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	_, _ = w.Write(data)
}

func (s *Server) deleteBlob(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	if err := s.blobs.Remove(r.Context(), name); err != nil {
		s.log.Error("remove blob", "name", name, "err", err)
		http.Error(w, "storage failure", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getPolicy(w http.ResponseWriter, r *http.Request) {
	decision := domain.UploadDecision{
		Allowed:      s.cfg.UploadsEnabled,
		MaxSizeBytes: s.cfg.MaxAttachmentBytes,
	}
	if !decision.Allowed {
		decision.Reason = "uploads are disabled on this server"
	}
	writeJSON(w, decision)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
