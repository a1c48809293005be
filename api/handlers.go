/*
handlers.go - HTTP API handlers for the budget plan engine

PURPOSE:
  Exposes the settlement engine and state store via REST API. Handles
  HTTP request/response, JSON serialization, and delegates to domain
  logic.

ENDPOINTS:
  State:
    GET    /api/state                 Read the plan (settles due items first)
    PUT    /api/state                 Replace the plan (optimistic write)

  Settlements:
    POST   /api/settlements/run       Trigger a settlement run
    GET    /api/settlements/status    Last-run snapshot

  Transactions:
    GET    /api/transactions          Month projection (?type=&month=)

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input
  3. Call domain logic (engine, orchestrator, store)
  4. Serialize response
  5. Handle errors

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Invalid input (bad month selector, unknown entry type)
  - 409: Version conflict on state write
  - 422: Field-level validation failures
  - 500: Internal errors

SEE ALSO:
  - server.go: Router setup and middleware
  - plan/orchestrator.go: The retry loop behind every settlement run
*/
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/warp/budget-engine/plan"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store        plan.StateStore
	Entries      plan.EntryQuerier
	Orchestrator *plan.Orchestrator
	Status       *plan.StatusHolder
}

// NewHandler creates a new handler. entries may be nil when the store
// does not support the month projection (the endpoint then returns 500).
func NewHandler(store plan.StateStore, entries plan.EntryQuerier, orch *plan.Orchestrator, status *plan.StatusHolder) *Handler {
	return &Handler{
		Store:        store,
		Entries:      entries,
		Orchestrator: orch,
		Status:       status,
	}
}

// =============================================================================
// STATE HANDLERS
// =============================================================================

// GetState settles any due occurrences, then returns the plan.
// GET /api/state
func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	result, err := h.Orchestrator.Run(r.Context(), "state_get")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read state", err)
		return
	}

	// A soft failure still returns the latest read-only state; the
	// client sees current data and retries the settlement later.
	writeJSON(w, http.StatusOK, result.State)
}

// PutState replaces the whole plan under the optimistic version gate,
// then settles anything the new schedule makes due.
// PUT /api/state
func (h *Handler) PutState(w http.ResponseWriter, r *http.Request) {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	var candidate plan.State
	if err := decoder.Decode(&candidate); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if errs := plan.ValidateState(candidate); errs != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":   "validation_failed",
			"details": errs,
		})
		return
	}

	ctx := r.Context()
	current, err := h.Store.ReadState(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read state", err)
		return
	}

	// The client writes against the version it last read.
	expected := candidate.Version
	events := plan.ManualBalanceEvents(current, candidate, expected)

	saved, err := h.Store.WriteState(ctx, candidate, &expected, events)
	if err != nil {
		var conflict *plan.ConflictError
		if errors.As(err, &conflict) {
			writeJSON(w, http.StatusConflict, map[string]any{
				"error":          "state_conflict",
				"currentVersion": conflict.CurrentVersion,
			})
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to write state", err)
		return
	}

	result, err := h.Orchestrator.Run(ctx, "state_put")
	if err != nil {
		// The write itself landed; report it even if the follow-up
		// settlement could not run.
		log.Printf("[API] settlement after state write failed: %v", err)
		writeJSON(w, http.StatusOK, saved)
		return
	}

	writeJSON(w, http.StatusOK, result.State)
}

// =============================================================================
// SETTLEMENT HANDLERS
// =============================================================================

type runSettlementRequest struct {
	Reason string `json:"reason"`
}

type runSettlementResponse struct {
	OK      bool         `json:"ok"`
	Changed bool         `json:"changed"`
	Summary plan.Summary `json:"summary"`
	State   plan.State   `json:"state"`
}

// RunSettlement triggers a settlement run. An optional reason of the
// form "manual-payment-<id>-<yyyy-mm-dd>" (or manual-income-...) settles
// exactly one occurrence; anything else is a normal scan.
// POST /api/settlements/run
func (h *Handler) RunSettlement(w http.ResponseWriter, r *http.Request) {
	reason := "manual"
	if r.Body != nil && r.ContentLength != 0 {
		var req runSettlementRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
		if trimmed := strings.TrimSpace(req.Reason); trimmed != "" {
			reason = trimmed
		}
	}

	result, err := h.Orchestrator.Run(r.Context(), reason)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Settlement run failed", err)
		return
	}

	writeJSON(w, http.StatusOK, runSettlementResponse{
		OK:      result.OK,
		Changed: result.Changed,
		Summary: result.Summary,
		State:   result.State,
	})
}

// SettlementStatus returns the last-run snapshot.
// GET /api/settlements/status
func (h *Handler) SettlementStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Status.Snapshot())
}

// =============================================================================
// TRANSACTION HANDLERS
// =============================================================================

// GetTransactions returns one month of ledger entries with totals.
// GET /api/transactions?type=expense&month=2025-04
func (h *Handler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	if h.Entries == nil {
		writeError(w, http.StatusInternalServerError, "Transaction projection unavailable", nil)
		return
	}

	entryType := plan.EntryType(strings.ToLower(strings.TrimSpace(r.URL.Query().Get("type"))))
	month := strings.TrimSpace(r.URL.Query().Get("month"))

	result, err := h.Entries.EntriesForMonth(r.Context(), entryType, month)
	if err != nil {
		switch {
		case errors.Is(err, plan.ErrInvalidEntryType):
			writeError(w, http.StatusBadRequest, "Query parameter 'type' must be 'expense' or 'income'", nil)
		case errors.Is(err, plan.ErrInvalidMonth):
			writeError(w, http.StatusBadRequest, "Query parameter 'month' must be in YYYY-MM format", nil)
		default:
			writeError(w, http.StatusInternalServerError, "Failed to query transactions", err)
		}
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Health is a liveness probe.
// GET /api/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
