package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/StabilityNexus/Fate/internal/domain"
)

const maxBodyBytes = 1 << 16

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeActionError writes a classified failure with its kind.
func writeActionError(w http.ResponseWriter, ae *domain.ActionError) {
	writeJSON(w, statusForKind(ae.Kind), map[string]string{
		"error": ae.Message,
		"kind":  string(ae.Kind),
	})
}

// writeOutcome writes an orchestrator result. Failed runs carry a status
// derived from their error kind; the body is the outcome either way.
func writeOutcome(w http.ResponseWriter, out domain.TxOutcome) {
	status := http.StatusOK
	if !out.Succeeded() {
		status = http.StatusInternalServerError
		if out.Error != nil {
			status = statusForKind(out.Error.Kind)
		}
	}
	writeJSON(w, status, out)
}

func statusForKind(k domain.ErrorKind) int {
	switch k {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindInsufficientFunds, domain.KindContractRejection,
		domain.KindInvalidPoolType, domain.KindMalformedPool:
		return http.StatusUnprocessableEntity
	case domain.KindOracleUnavailable, domain.KindConfig:
		return http.StatusServiceUnavailable
	case domain.KindNetwork, domain.KindDiscoveryDegraded, domain.KindSimulationFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON reads a bounded JSON body into v. An empty body leaves v as is.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && err != io.EOF {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// parseListOpts reads limit (default 50, max 500) and offset.
func parseListOpts(r *http.Request) domain.ListOpts {
	q := r.URL.Query()

	limit := 50
	if n, err := strconv.Atoi(q.Get("limit")); err == nil && n > 0 {
		limit = min(n, 500)
	}
	offset := 0
	if n, err := strconv.Atoi(q.Get("offset")); err == nil && n >= 0 {
		offset = n
	}
	return domain.ListOpts{Limit: limit, Offset: offset}
}

// parseUint returns 0 for an absent parameter.
func parseUint(r *http.Request, name string) (uint64, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a non-negative integer", name)
	}
	return n, nil
}

// parseFloat returns 0 for an absent parameter.
func parseFloat(r *http.Request, name string) (float64, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number", name)
	}
	return f, nil
}
