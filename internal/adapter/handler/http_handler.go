package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/oldiebutgoldie/marketplace/internal/core/domain"
	"github.com/oldiebutgoldie/marketplace/internal/core/service"
)

type HTTPHandler struct {
	inventory *service.InventoryService
	trades    *service.TradeService
	validate  *validator.Validate
	logger    zerolog.Logger
}

func NewHTTPHandler(inventory *service.InventoryService, trades *service.TradeService, logger zerolog.Logger) *HTTPHandler {
	return &HTTPHandler{
		inventory: inventory,
		trades:    trades,
		validate:  validator.New(),
		logger:    logger,
	}
}

func (h *HTTPHandler) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(h.requestLogger)

	r.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/inventory/reserve", h.Reserve).Methods(http.MethodPost)
	api.HandleFunc("/items/import", h.ImportItem).Methods(http.MethodPost)
	api.HandleFunc("/items/{id}", h.GetItem).Methods(http.MethodGet)
	api.HandleFunc("/trades", h.CreateTrade).Methods(http.MethodPost)
	api.HandleFunc("/trades", h.ListTrades).Methods(http.MethodGet)
	api.HandleFunc("/trades/{id}", h.GetTrade).Methods(http.MethodGet)
	api.HandleFunc("/trades/{id}/counter", h.CounterTrade).Methods(http.MethodPost)
	api.HandleFunc("/trades/{id}/resolve", h.ResolveTrade).Methods(http.MethodPost)
	api.HandleFunc("/trades/{id}/cancel", h.CancelTrade).Methods(http.MethodPost)

	return r
}

type reserveRequest struct {
	RequestID string `json:"request_id" validate:"required"`
	ItemID    string `json:"item_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"min=1"`
}

type reserveResponse struct {
	Success   bool              `json:"success"`
	NewStock  int               `json:"new_stock"`
	NewStatus domain.ItemStatus `json:"new_status"`
}

type manifestPayload struct {
	OfferedItems   []string        `json:"offered_items"`
	RequestedItems []string        `json:"requested_items"`
	CashAdjustment decimal.Decimal `json:"cash_adjustment"`
}

func (m manifestPayload) toDomain() domain.Manifest {
	return domain.Manifest{
		OfferedItems:   m.OfferedItems,
		RequestedItems: m.RequestedItems,
		CashAdjustment: m.CashAdjustment,
	}
}

type createTradeRequest struct {
	SenderID   string          `json:"sender_id" validate:"required"`
	ReceiverID string          `json:"receiver_id"`
	Manifest   manifestPayload `json:"manifest"`
}

type counterTradeRequest struct {
	CallerID string          `json:"caller_id" validate:"required"`
	Manifest manifestPayload `json:"manifest"`
}

type callerRequest struct {
	CallerID string `json:"caller_id" validate:"required"`
}

type importItemRequest struct {
	DiscogsReleaseID int64           `json:"discogs_release_id" validate:"required,min=1"`
	Price            decimal.Decimal `json:"price"`
	Condition        string          `json:"condition"`
	Stock            int             `json:"stock" validate:"min=0"`
}

type errorResponse struct {
	Error        string `json:"error"`
	FailedItemID string `json:"failed_item_id,omitempty"`
	Reason       string `json:"reason,omitempty"`
}

func (h *HTTPHandler) Reserve(w http.ResponseWriter, r *http.Request) {
	var req reserveRequest
	if !h.decode(w, r, &req) {
		return
	}

	res, err := h.inventory.Reserve(r.Context(), req.RequestID, req.ItemID, req.Quantity)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, reserveResponse{
		Success:   true,
		NewStock:  res.NewStock,
		NewStatus: res.NewStatus,
	})
}

func (h *HTTPHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.inventory.GetItem(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *HTTPHandler) ImportItem(w http.ResponseWriter, r *http.Request) {
	var req importItemRequest
	if !h.decode(w, r, &req) {
		return
	}

	item, err := h.inventory.ImportFromCatalog(r.Context(), req.DiscogsReleaseID, req.Price, req.Condition, req.Stock)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeJSON(w, http.StatusBadGateway, errorResponse{Error: "catalog release not found"})
			return
		}
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (h *HTTPHandler) CreateTrade(w http.ResponseWriter, r *http.Request) {
	var req createTradeRequest
	if !h.decode(w, r, &req) {
		return
	}

	t, err := h.trades.Create(r.Context(), req.SenderID, req.ReceiverID, req.Manifest.toDomain())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (h *HTTPHandler) GetTrade(w http.ResponseWriter, r *http.Request) {
	t, err := h.trades.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *HTTPHandler) ListTrades(w http.ResponseWriter, r *http.Request) {
	senderID := r.URL.Query().Get("sender_id")
	if senderID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing sender_id"})
		return
	}

	trades, err := h.trades.ListBySender(r.Context(), senderID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if trades == nil {
		trades = []domain.Trade{}
	}
	writeJSON(w, http.StatusOK, trades)
}

func (h *HTTPHandler) CounterTrade(w http.ResponseWriter, r *http.Request) {
	var req counterTradeRequest
	if !h.decode(w, r, &req) {
		return
	}

	t, err := h.trades.Counter(r.Context(), mux.Vars(r)["id"], req.CallerID, req.Manifest.toDomain())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *HTTPHandler) ResolveTrade(w http.ResponseWriter, r *http.Request) {
	var req callerRequest
	if !h.decode(w, r, &req) {
		return
	}

	t, err := h.trades.Resolve(r.Context(), mux.Vars(r)["id"], req.CallerID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *HTTPHandler) CancelTrade(w http.ResponseWriter, r *http.Request) {
	var req callerRequest
	if !h.decode(w, r, &req) {
		return
	}

	t, err := h.trades.Cancel(r.Context(), mux.Vars(r)["id"], req.CallerID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return false
	}
	return true
}

// writeError maps the error taxonomy onto status codes: lost races are
// 409, turn violations 403, transient store trouble 503.
func (h *HTTPHandler) writeError(w http.ResponseWriter, err error) {
	var stockErr *domain.StockError
	switch {
	case errors.As(err, &stockErr):
		reason := "out_of_stock"
		if errors.Is(stockErr.Err, domain.ErrNotFound) {
			reason = "not_found"
		}
		writeJSON(w, http.StatusConflict, errorResponse{
			Error:        stockErr.Error(),
			FailedItemID: stockErr.ItemID,
			Reason:       reason,
		})
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	case errors.Is(err, domain.ErrOutOfStock):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "out of stock"})
	case errors.Is(err, service.ErrDuplicateRequest):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "duplicate request"})
	case errors.Is(err, domain.ErrTradeClosed):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "trade is closed"})
	case errors.Is(err, domain.ErrNotYourTurn):
		writeJSON(w, http.StatusForbidden, errorResponse{Error: "not your turn"})
	case errors.Is(err, domain.ErrNotParticipant):
		writeJSON(w, http.StatusForbidden, errorResponse{Error: "not a participant"})
	case errors.Is(err, domain.ErrInvalidManifest),
		errors.Is(err, domain.ErrInvalidParticipants),
		errors.Is(err, domain.ErrInvalidQuantity):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "temporarily unavailable, retry"})
	default:
		h.logger.Error().Err(err).Msg("internal error")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func (h *HTTPHandler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		h.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("latency", time.Since(start)).
			Msg("http_request")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
