package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"ledger-query/pkg/ledger"
	"ledger-query/pkg/logging"
	"ledger-query/pkg/payment"
	"ledger-query/pkg/query"
	"ledger-query/pkg/transactions"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// maxBodyBytes bounds payment request bodies.
const maxBodyBytes = 1 << 20

// errInvalidBody is reported when a request body is not the expected JSON.
var errInvalidBody = errors.New("invalid request body")

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	owner, _ := OwnerFromContext(r.Context())

	page, err := s.services.Transactions.List(r.Context(), owner, listParams(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	owner, _ := OwnerFromContext(r.Context())

	tx, err := s.services.Transactions.Get(r.Context(), owner, mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, transactions.NewDetail(tx))
}

func (s *Server) handleCreatePayment(w http.ResponseWriter, r *http.Request) {
	var req payment.Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.logger.Debug("rejected payment body", zap.Error(err))
		s.writeError(w, r, errInvalidBody)
		return
	}
	if strings.TrimSpace(req.Currency) == "" {
		s.writeError(w, r, fmt.Errorf("%w: currency is required", errInvalidBody))
		return
	}

	tx, err := s.services.Payments.Create(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, payment.NewView(tx))
}

func (s *Server) handleGetPayment(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, ledger.ErrNotFound)
		return
	}

	tx, err := s.services.Payments.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, payment.NewView(tx))
}

func (s *Server) handleLockBalance(w http.ResponseWriter, r *http.Request) {
	owner, _ := OwnerFromContext(r.Context())

	lb, err := s.services.Balance.Balance(r.Context(), owner)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, lb)
}

// handleHealth pings the store.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
	}

	if s.services.Health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), s.config.HealthTimeout)
		defer cancel()

		if err := s.services.Health.Ping(ctx); err != nil {
			s.logger.Warn("health check failed", zap.Error(err))
			response["status"] = "unhealthy"
			writeJSON(w, http.StatusServiceUnavailable, response)
			return
		}
	}

	writeJSON(w, http.StatusOK, response)
}

// listParams reads search, filter, page and limit. A key that is present
// counts as set even when empty; page and limit that do not parse are absent.
func listParams(r *http.Request) query.Params {
	values := r.URL.Query()

	var p query.Params
	if v, ok := values["search"]; ok && len(v) > 0 {
		p.Search = &v[0]
	}
	if v, ok := values["filter"]; ok && len(v) > 0 {
		p.Filter = &v[0]
	}
	p.Page = intParam(values.Get("page"))
	p.Limit = intParam(values.Get("limit"))
	return p
}

func intParam(raw string) *int {
	if raw == "" {
		return nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil
	}
	return &n
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError maps err onto a status code. Internal details of store and
// unexpected failures are logged, not returned.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := ledger.ClassifyError(err)

	status, message := http.StatusInternalServerError, "internal server error"
	switch {
	case errors.Is(err, errInvalidBody):
		status, message, kind = http.StatusBadRequest, err.Error(), "invalid_body"
	case kind == "unauthorized":
		status, message = http.StatusUnauthorized, "unauthorized"
	case kind == "not_found":
		status, message = http.StatusNotFound, "not found"
	case kind == "invalid_amount":
		status, message = http.StatusBadRequest, err.Error()
	default:
		s.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			logging.ErrorKind(kind),
			zap.Error(err),
		)
	}

	writeJSON(w, status, map[string]string{
		"error": message,
		"kind":  kind,
	})
}
