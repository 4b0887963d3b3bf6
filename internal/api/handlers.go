package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/dmarkov/fundbid/internal/auth"
	"github.com/dmarkov/fundbid/internal/clock"
	"github.com/dmarkov/fundbid/internal/ledger"
	"github.com/dmarkov/fundbid/internal/models"
)

type ctxKey int

const callerKey ctxKey = 0

// Recorder persists snapshots after successful core mutations. The
// ledger stays authoritative; a failed write is logged, not surfaced.
type Recorder interface {
	SaveBid(ctx context.Context, bid models.Bid) error
	SaveAllocation(ctx context.Context, alloc models.Allocation) error
}

// Handler contains dependencies for HTTP handlers
type Handler struct {
	Ledger   *ledger.Ledger
	Admin    *ledger.Admin
	Auth     *auth.Service
	Recorder Recorder
	Clock    clock.Clock
	Log      *zap.SugaredLogger
}

// NewHandler creates a new handler
func NewHandler(l *ledger.Ledger, admin *ledger.Admin, authService *auth.Service, rec Recorder, clk clock.Clock, log *zap.SugaredLogger) *Handler {
	return &Handler{Ledger: l, Admin: admin, Auth: authService, Recorder: rec, Clock: clk, Log: log}
}

// NewRouter wires all routes; shared between main and tests
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Post("/auth/register", h.Register)
	r.Post("/auth/login", h.Login)

	r.Group(func(r chi.Router) {
		r.Use(h.JWTAuthMiddleware)
		r.Post("/bids", h.CreateBid)
		r.Get("/bids", h.GetOwnedBids)
		r.Get("/bids/accepted", h.GetAcceptedBids)
		r.Get("/bids/open", h.GetOpenBids)
		r.Post("/bids/{id}/accept", h.AcceptBid)
		r.Post("/bids/{id}/confirm", h.ConfirmBid)
		r.Delete("/bids/{id}", h.CancelBid)
		r.Get("/sessions/next", h.GetNextSessions)
		r.Get("/allocations", h.GetAllocations)
		r.Put("/allocations", h.UpdateAllocations)
		r.Get("/admin/bids", h.GetAllBids)
	})

	return r
}

// Register handles user registration
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password required")
		return
	}

	user, err := h.Auth.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		h.Log.Warnw("registration failed", "username", req.Username, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to register user")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"id":       user.ID,
		"username": user.Username,
	})
}

// Login handles user login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, err := h.Auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// JWTAuthMiddleware verifies JWT tokens and attaches the caller
// identity to the request context.
func (h *Handler) JWTAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := r.Header.Get("Authorization")
		if tokenString == "" {
			writeError(w, http.StatusUnauthorized, "authorization header required")
			return
		}
		if len(tokenString) > 7 && tokenString[:7] == "Bearer " {
			tokenString = tokenString[7:]
		}

		caller, err := h.Auth.CallerFromToken(tokenString)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), callerKey, caller)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func callerFrom(r *http.Request) (models.Caller, bool) {
	caller, ok := r.Context().Value(callerKey).(models.Caller)
	return caller, ok
}

// CreateBid posts a new pending bid for the caller
func (h *Handler) CreateBid(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req struct {
		Amount        float64 `json:"amount"`
		DurationHours int     `json:"duration_hours"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	bid, err := h.Ledger.Create(caller.UserID, req.Amount, req.DurationHours, h.Clock.Now())
	if err != nil {
		h.handleCoreError(w, err)
		return
	}
	h.record(r.Context(), bid)

	writeJSON(w, http.StatusCreated, bid)
}

// AcceptBid transitions a pending bid to active for the caller
func (h *Handler) AcceptBid(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	bid, err := h.Ledger.Accept(chi.URLParam(r, "id"), caller.UserID)
	if err != nil {
		h.handleCoreError(w, err)
		return
	}
	h.record(r.Context(), bid)

	writeJSON(w, http.StatusOK, bid)
}

// ConfirmBid records the owner's confirmation of the off-platform payment
func (h *Handler) ConfirmBid(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	bid, err := h.Ledger.Confirm(chi.URLParam(r, "id"), caller.UserID)
	if err != nil {
		h.handleCoreError(w, err)
		return
	}
	h.record(r.Context(), bid)

	writeJSON(w, http.StatusOK, bid)
}

// CancelBid withdraws the caller's own pending bid
func (h *Handler) CancelBid(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	bid, err := h.Ledger.Cancel(chi.URLParam(r, "id"), caller.UserID)
	if err != nil {
		h.handleCoreError(w, err)
		return
	}
	h.record(r.Context(), bid)

	writeJSON(w, http.StatusOK, bid)
}

// GetOwnedBids returns the caller's posted bids
func (h *Handler) GetOwnedBids(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, h.Ledger.OwnedBy(caller.UserID))
}

// GetAcceptedBids returns the bids the caller has accepted
func (h *Handler) GetAcceptedBids(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, h.Ledger.AcceptedBy(caller.UserID))
}

// GetOpenBids returns the pool of pending bids the caller may accept
func (h *Handler) GetOpenBids(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, h.Ledger.OpenExcluding(caller.UserID))
}

// GetAllBids returns every bid; administrators only
func (h *Handler) GetAllBids(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if !caller.Admin {
		writeError(w, http.StatusForbidden, "administrator role required")
		return
	}
	writeJSON(w, http.StatusOK, h.Ledger.All())
}

// GetAllocations returns the current session capacities
func (h *Handler) GetAllocations(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Admin.Allocations())
}

// UpdateAllocations applies an administrator capacity update
func (h *Handler) UpdateAllocations(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req models.Allocation
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.Admin.UpdateAllocations(caller, req); err != nil {
		h.handleCoreError(w, err)
		return
	}

	if err := h.Recorder.SaveAllocation(r.Context(), req); err != nil {
		h.Log.Warnw("failed to persist allocation", "error", err)
	}

	writeJSON(w, http.StatusOK, h.Admin.Allocations())
}

// GetNextSessions lists upcoming session starts for countdown display
func (h *Handler) GetNextSessions(w http.ResponseWriter, r *http.Request) {
	count := 3
	if v := r.URL.Query().Get("count"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 30 {
			writeError(w, http.StatusBadRequest, "count must be between 1 and 30")
			return
		}
		count = n
	}

	type sessionStart struct {
		Session  models.Session `json:"session"`
		StartsAt time.Time      `json:"starts_at"`
	}

	starts := clock.NextSessionStarts(h.Clock.Now(), count)
	resp := make([]sessionStart, 0, len(starts))
	for _, s := range starts {
		resp = append(resp, sessionStart{Session: clock.SessionOf(s), StartsAt: s})
	}
	writeJSON(w, http.StatusOK, resp)
}

// record writes a bid snapshot through to storage. The ledger already
// committed the transition, so a storage failure only costs the audit
// row, not the operation.
func (h *Handler) record(ctx context.Context, bid models.Bid) {
	if err := h.Recorder.SaveBid(ctx, bid); err != nil {
		h.Log.Warnw("failed to persist bid snapshot", "bid_id", bid.ID, "error", err)
	}
}

// handleCoreError maps typed core failures to HTTP status codes
func (h *Handler) handleCoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrInvalidAmount),
		errors.Is(err, models.ErrInvalidDuration),
		errors.Is(err, models.ErrInvalidCapacity):
		writeError(w, http.StatusBadRequest, err.Error())

	case errors.Is(err, models.ErrBidNotFound):
		writeError(w, http.StatusNotFound, err.Error())

	case errors.Is(err, models.ErrUnauthorized):
		writeError(w, http.StatusForbidden, err.Error())

	case errors.Is(err, models.ErrCapacityExceeded),
		errors.Is(err, models.ErrInvalidTransition),
		errors.Is(err, models.ErrSelfAcceptance):
		writeError(w, http.StatusConflict, err.Error())

	default:
		h.Log.Errorw("unexpected core error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
