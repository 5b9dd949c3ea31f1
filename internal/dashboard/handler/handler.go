// Package handler serves the read-only web dashboard API. Every route is
// scoped to the user baked into the bearer token the bot handed out.
package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	budgetsvc "github.com/mgiraudo/gastosbot/internal/budget/service"
	ledgersvc "github.com/mgiraudo/gastosbot/internal/ledger/service"
	recurringsvc "github.com/mgiraudo/gastosbot/internal/recurring/service"
	"go.uber.org/zap"
)

type contextKey string

const userIDKey contextKey = "user_id"

type Handler struct {
	ledger    *ledgersvc.Service
	budgets   *budgetsvc.Service
	recurring *recurringsvc.Service
	jwtSecret []byte
	logger    *zap.Logger
}

func NewHandler(ledger *ledgersvc.Service, budgets *budgetsvc.Service, recurring *recurringsvc.Service, jwtSecret string, logger *zap.Logger) *Handler {
	return &Handler{
		ledger:    ledger,
		budgets:   budgets,
		recurring: recurring,
		jwtSecret: []byte(jwtSecret),
		logger:    logger,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Use(h.authenticate)
		r.Get("/summary", h.GetSummary)
		r.Get("/transactions", h.ListTransactions)
		r.Get("/budgets", h.ListBudgets)
		r.Get("/recurring", h.ListRecurring)
		r.Post("/auth/refresh", h.RefreshToken)
	})
}

// authenticate validates the bearer token and stashes its user id in the
// request context. A token may also arrive as ?token= on the first visit
// from the Telegram link.
func (h *Handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := ""
		if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
			raw = strings.TrimPrefix(auth, "Bearer ")
		} else {
			raw = r.URL.Query().Get("token")
		}
		if raw == "" {
			h.respondError(w, http.StatusUnauthorized, "missing token")
			return
		}

		userID, err := h.parseToken(raw)
		if err != nil {
			h.logger.Debug("rejected dashboard token", zap.Error(err))
			h.respondError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) parseToken(raw string) (int64, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return h.jwtSecret, nil
	})
	if err != nil {
		return 0, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return 0, fmt.Errorf("invalid claims")
	}
	id, ok := claims["user_id"].(float64)
	if !ok {
		return 0, fmt.Errorf("missing user_id claim")
	}
	return int64(id), nil
}

func requestUserID(r *http.Request) int64 {
	id, _ := r.Context().Value(userIDKey).(int64)
	return id
}

func monthParam(r *http.Request) string {
	month := r.URL.Query().Get("month")
	if month == "" {
		return time.Now().Format("2006-01")
	}
	return month
}

func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.ledger.MonthlySummary(r.Context(), requestUserID(r), monthParam(r))
	if err != nil {
		h.logger.Error("failed to build summary", zap.Error(err))
		h.respondError(w, http.StatusInternalServerError, "failed to load summary")
		return
	}
	h.respondJSON(w, http.StatusOK, summary)
}

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := h.ledger.ListByMonth(r.Context(), requestUserID(r), monthParam(r))
	if err != nil {
		h.logger.Error("failed to list transactions", zap.Error(err))
		h.respondError(w, http.StatusInternalServerError, "failed to load transactions")
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"month":        monthParam(r),
		"transactions": txs,
	})
}

func (h *Handler) ListBudgets(w http.ResponseWriter, r *http.Request) {
	statuses, err := h.budgets.MonthStatus(r.Context(), requestUserID(r), monthParam(r))
	if err != nil {
		h.logger.Error("failed to load budget status", zap.Error(err))
		h.respondError(w, http.StatusInternalServerError, "failed to load budgets")
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"month":   monthParam(r),
		"budgets": statuses,
	})
}

func (h *Handler) ListRecurring(w http.ResponseWriter, r *http.Request) {
	recs, err := h.recurring.ListActive(r.Context(), requestUserID(r))
	if err != nil {
		h.logger.Error("failed to list recurring entries", zap.Error(err))
		h.respondError(w, http.StatusInternalServerError, "failed to load recurring entries")
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"recurring": recs,
	})
}

// RefreshToken reissues a token for the already-authenticated user so a
// dashboard tab can outlive the original 24h link.
func (h *Handler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": requestUserID(r),
		"exp":     time.Now().Add(24 * time.Hour).Unix(),
		"iat":     time.Now().Unix(),
	})
	signed, err := token.SignedString(h.jwtSecret)
	if err != nil {
		h.logger.Error("failed to sign token", zap.Error(err))
		h.respondError(w, http.StatusInternalServerError, "failed to refresh token")
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{"token": signed})
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *Handler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{
		"error": message,
	})
}
