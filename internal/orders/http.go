package orders

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/stepflow-go/stepflow/internal/core/domain"
	"github.com/stepflow-go/stepflow/internal/pipeline"
)

// Handlers exposes the orders use cases over HTTP. Pipelines are wrapped in
// their middleware chains once, at construction time.
type Handlers struct {
	summary    pipeline.Handler[SummaryRequest, Summary]
	placeOrder pipeline.Handler[PlaceOrderCommand, PlaceOrderReceipt]
}

// NewHandlers creates the HTTP handlers around pre-composed pipeline entry
// points.
func NewHandlers(
	summary pipeline.Handler[SummaryRequest, Summary],
	placeOrder pipeline.Handler[PlaceOrderCommand, PlaceOrderReceipt],
) *Handlers {
	return &Handlers{summary: summary, placeOrder: placeOrder}
}

// Routes mounts the orders endpoints on r.
func (h *Handlers) Routes(r chi.Router) {
	r.Get("/users/{userID}/summary", h.handleSummary)
	r.Post("/orders", h.handlePlaceOrder)
}

func (h *Handlers) handleSummary(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		writeError(w, domain.ErrValidation("user id must be an integer"))
		return
	}

	out, err := h.summary(r.Context(), SummaryRequest{UserID: userID})
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	var cmd PlaceOrderCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		writeError(w, domain.ErrValidation("malformed request body"))
		return
	}

	out, err := h.placeOrder(r.Context(), cmd)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func writeFailure(w http.ResponseWriter, err error) {
	if classified, ok := domain.AsClassified(err); ok {
		writeError(w, classified)
		return
	}
	writeError(w, domain.ErrSystem("internal error"))
}

func writeError(w http.ResponseWriter, err *domain.Error) {
	writeJSON(w, err.HTTPStatusCode(), map[string]any{"error": err})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
