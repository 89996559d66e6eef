package invservice

// Package invservice implements the reference Remote Inventory
// Service: the durable, authoritative side of the reconciliation
// protocol. The engine only ever talks to it through the gateway, so
// any backend honoring the same HTTP semantics can replace it.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/gravitas-games/farmsync/internal/config"
	"github.com/gravitas-games/farmsync/internal/session"
	"github.com/gravitas-games/farmsync/pkg/models"
)

// Server is the reference inventory service.
type Server struct {
	cfg     *config.Config
	store   RecordStore
	feed    *Feed
	httpSrv *http.Server
}

// New creates a server around a record store.
func New(cfg *config.Config, store RecordStore) *Server {
	return &Server{
		cfg:   cfg,
		store: store,
		feed:  NewFeed(),
	}
}

// Handler builds the HTTP routing table. Exposed so tests can drive
// the server through httptest without a listener.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/records", s.withAuth(s.handleRecords))
	mux.HandleFunc("/records/", s.withAuth(s.handleRecordByID))
	mux.HandleFunc("/ws", s.feed.HandleWS)
	return mux
}

// Start begins listening for requests.
func (s *Server) Start(addr string) error {
	log.Printf("Starting inventory service on %s", addr)
	s.httpSrv = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	log.Println("Shutting down inventory service...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.feed.Close()
	if s.httpSrv != nil {
		if err := s.httpSrv.Shutdown(ctx); err != nil {
			return fmt.Errorf("HTTP server shutdown error: %w", err)
		}
	}
	return nil
}

// withAuth validates the bearer token and stashes the authenticated
// owner id on the request context.
func (s *Server) withAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := extractBearer(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "", "missing authentication token")
			return
		}
		ownerID, err := s.validateToken(token)
		if err != nil {
			log.Printf("Rejected token from %s: %v", r.RemoteAddr, err)
			writeError(w, http.StatusUnauthorized, "", "invalid authentication token")
			return
		}
		next(w, r.WithContext(withOwner(r.Context(), ownerID)))
	}
}

func (s *Server) validateToken(token string) (string, error) {
	claims := &session.Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWT.Secret), nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to parse token: %w", err)
	}
	if !parsed.Valid || claims.UserID == 0 {
		return "", fmt.Errorf("invalid token claims")
	}
	if s.cfg.JWT.Issuer != "" && claims.Issuer != "" && claims.Issuer != s.cfg.JWT.Issuer {
		return "", fmt.Errorf("invalid issuer: %s", claims.Issuer)
	}
	return fmt.Sprintf("%d", claims.UserID), nil
}

// handleRecords serves GET (list by owner) and POST (create).
func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleList(w, r)
	case http.MethodPost:
		s.handleCreate(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "", "method not allowed")
	}
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r.Context())
	if q := r.URL.Query().Get("owner"); q != "" && q != owner {
		writeError(w, http.StatusForbidden, "", "cannot read another user's records")
		return
	}
	records, err := s.store.ListByOwner(r.Context(), owner)
	if err != nil {
		log.Printf("List failed for owner %s: %v", owner, err)
		writeError(w, http.StatusInternalServerError, "", "storage failure")
		return
	}
	writeJSON(w, http.StatusOK, models.RecordList{Records: records})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r.Context())
	var req models.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "", "malformed request body")
		return
	}
	if req.OwnerID != "" && req.OwnerID != owner {
		writeError(w, http.StatusForbidden, "", "cannot write another user's records")
		return
	}
	if req.Item == "" || req.Quantity <= 0 || req.Inventory == "" || req.SlotIndex < 0 {
		writeError(w, http.StatusBadRequest, "", "invalid record fields")
		return
	}
	rec := models.Record{
		OwnerID:   owner,
		Item:      req.Item,
		Quantity:  req.Quantity,
		Inventory: req.Inventory,
		SlotIndex: req.SlotIndex,
		Quality:   req.Quality,
	}
	id, err := s.store.Insert(r.Context(), rec)
	if errors.Is(err, ErrSlotOccupied) {
		writeError(w, http.StatusConflict, models.ErrCodeSlotOccupied,
			occupiedMessage(rec.Inventory, rec.SlotIndex))
		return
	}
	if err != nil {
		log.Printf("Create failed for owner %s: %v", owner, err)
		writeError(w, http.StatusInternalServerError, "", "storage failure")
		return
	}
	rec.ID = id
	s.feed.Broadcast(models.FeedEvent{Type: models.FeedRecordCreated, Record: &rec})
	writeJSON(w, http.StatusCreated, models.CreateResponse{ID: id})
}

// handleRecordByID serves PUT (update) and DELETE on /records/{id}.
func (s *Server) handleRecordByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/records/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusNotFound, "", "unknown resource")
		return
	}
	switch r.Method {
	case http.MethodPut:
		s.handleUpdate(w, r, id)
	case http.MethodDelete:
		s.handleDelete(w, r, id)
	default:
		writeError(w, http.StatusMethodNotAllowed, "", "method not allowed")
	}
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request, id string) {
	owner := ownerFrom(r.Context())
	var req models.UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "", "malformed request body")
		return
	}
	if req.OwnerID != "" && req.OwnerID != owner {
		writeError(w, http.StatusForbidden, "", "cannot write another user's records")
		return
	}
	current, err := s.store.Get(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		writeError(w, http.StatusNotFound, models.ErrCodeNotFound, notFoundMessage(id))
		return
	}
	if err != nil {
		log.Printf("Update lookup failed for %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "", "storage failure")
		return
	}
	if current.OwnerID != owner {
		writeError(w, http.StatusForbidden, "", "cannot write another user's records")
		return
	}
	rec := models.Record{
		ID:        id,
		OwnerID:   owner,
		Item:      req.Item,
		Quantity:  req.Quantity,
		Inventory: req.Inventory,
		SlotIndex: req.SlotIndex,
		Quality:   req.Quality,
	}
	err = s.store.Update(r.Context(), id, rec)
	if errors.Is(err, ErrNotFound) {
		writeError(w, http.StatusNotFound, models.ErrCodeNotFound, notFoundMessage(id))
		return
	}
	if errors.Is(err, ErrSlotOccupied) {
		writeError(w, http.StatusConflict, models.ErrCodeSlotOccupied,
			occupiedMessage(rec.Inventory, rec.SlotIndex))
		return
	}
	if err != nil {
		log.Printf("Update failed for %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "", "storage failure")
		return
	}
	s.feed.Broadcast(models.FeedEvent{Type: models.FeedRecordUpdated, Record: &rec})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request, id string) {
	owner := ownerFrom(r.Context())
	current, err := s.store.Get(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		writeError(w, http.StatusNotFound, models.ErrCodeNotFound, notFoundMessage(id))
		return
	}
	if err != nil {
		log.Printf("Delete lookup failed for %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "", "storage failure")
		return
	}
	if current.OwnerID != owner {
		writeError(w, http.StatusForbidden, "", "cannot delete another user's records")
		return
	}
	if err := s.store.Delete(r.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, models.ErrCodeNotFound, notFoundMessage(id))
			return
		}
		log.Printf("Delete failed for %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "", "storage failure")
		return
	}
	s.feed.Broadcast(models.FeedEvent{Type: models.FeedRecordDeleted, ID: id})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// notFoundMessage keeps the prose phrasing legacy clients classify on.
func notFoundMessage(id string) string {
	return fmt.Sprintf("record %s does not exist", id)
}

// occupiedMessage keeps the prose phrasing legacy clients classify on.
func occupiedMessage(inventory string, slot int) string {
	return fmt.Sprintf("a record already exists at this position (%s slot %d)", inventory, slot)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, models.ErrorBody{Code: code, Message: message})
}

func extractBearer(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

type contextKey string

const ownerKey contextKey = "owner"

func withOwner(ctx context.Context, ownerID string) context.Context {
	return context.WithValue(ctx, ownerKey, ownerID)
}

func ownerFrom(ctx context.Context) string {
	owner, _ := ctx.Value(ownerKey).(string)
	return owner
}
