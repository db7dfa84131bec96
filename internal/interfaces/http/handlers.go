package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/equityrun/equityrun/internal/data"
	"github.com/equityrun/equityrun/internal/pipeline"
	"github.com/equityrun/equityrun/internal/screener"
)

// Predictor produces a prediction for one symbol.
type Predictor interface {
	Predict(ctx context.Context, symbol string) (*pipeline.Prediction, error)
}

// ScreenRunner screens a symbol universe.
type ScreenRunner interface {
	Run(ctx context.Context, symbols []string) (*screener.Report, error)
}

// Handlers manages all HTTP endpoint handlers
type Handlers struct {
	predictor Predictor
	screens   ScreenRunner
	universe  []string // default symbols for /screen
	version   string
	started   time.Time
}

// NewHandlers creates a new handlers instance
func NewHandlers(predictor Predictor, screens ScreenRunner, universe []string, version string) *Handlers {
	return &Handlers{
		predictor: predictor,
		screens:   screens,
		universe:  universe,
		version:   version,
		started:   time.Now().UTC(),
	}
}

// ErrorResponse is the standardized error body.
type ErrorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Code      string    `json:"code"`
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

type predictRequest struct {
	Symbol string `json:"symbol"`
}

type screenRequest struct {
	Symbols []string `json:"symbols"`
}

type healthResponse struct {
	Status    string    `json:"status"`
	Version   string    `json:"version"`
	UptimeSec float64   `json:"uptime_seconds"`
	Timestamp time.Time `json:"timestamp"`
}

// Health reports liveness.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Version:   h.version,
		UptimeSec: time.Since(h.started).Seconds(),
		Timestamp: time.Now().UTC(),
	})
}

// Predict runs the prediction pipeline for the requested symbol.
func (h *Handlers) Predict(w http.ResponseWriter, r *http.Request) {
	var req predictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid_request", "Request body must be JSON with a symbol field")
		return
	}
	if req.Symbol == "" {
		h.writeError(w, r, http.StatusBadRequest, "missing_symbol", "Field symbol is required")
		return
	}

	pred, err := h.predictor.Predict(r.Context(), req.Symbol)
	if err != nil {
		if data.IsNoData(err) {
			h.writeError(w, r, http.StatusNotFound, "symbol_not_found", "No market data for symbol "+req.Symbol)
			return
		}
		h.writeError(w, r, http.StatusInternalServerError, "prediction_failed", err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, pred)
}

// Screen screens the requested symbols, or the configured universe when the
// request names none.
func (h *Handlers) Screen(w http.ResponseWriter, r *http.Request) {
	var req screenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid_request", "Request body must be JSON")
		return
	}
	symbols := req.Symbols
	if len(symbols) == 0 {
		symbols = h.universe
	}
	if len(symbols) == 0 {
		h.writeError(w, r, http.StatusBadRequest, "empty_universe", "No symbols requested and no universe configured")
		return
	}

	report, err := h.screens.Run(r.Context(), symbols)
	if err != nil {
		h.writeError(w, r, http.StatusInternalServerError, "screen_failed", err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, report)
}

// NotFound handles 404 responses
func (h *Handlers) NotFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	h.writeError(w, r, http.StatusNotFound, "endpoint_not_found", "The requested endpoint does not exist")
}

// writeJSON writes a JSON response with proper error handling
func (h *Handlers) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		http.Error(w, `{"error":"json_encoding_failed"}`, http.StatusInternalServerError)
	}
}

// writeError writes a standardized error response
func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	h.writeJSON(w, status, ErrorResponse{
		Error:     http.StatusText(status),
		Message:   message,
		Code:      code,
		RequestID: requestID(r.Context()),
		Timestamp: time.Now().UTC(),
	})
}
