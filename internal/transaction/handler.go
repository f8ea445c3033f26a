package transaction

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/safebank/banking/internal/account"
	"github.com/safebank/banking/internal/auth"
	"github.com/safebank/banking/internal/transport"
	"github.com/safebank/banking/pkg/logger"
)

type Handler struct {
	*transport.BaseHandler
	Service *Service
}

func NewHandler(svc *Service) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     svc,
	}
}

func (h *Handler) Deposit(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var dto DepositDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	result, err := h.Service.Deposit(r.Context(), caller, dto)
	if err != nil {
		h.writeTransactionError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, result)
}

func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var dto WithdrawDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	result, err := h.Service.Withdraw(r.Context(), caller, dto)
	if err != nil {
		h.writeTransactionError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, result)
}

func (h *Handler) TransferInternal(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var dto InternalTransferDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	result, err := h.Service.TransferInternal(r.Context(), caller, dto)
	if err != nil {
		h.writeTransactionError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, result)
}

func (h *Handler) TransferExternal(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var dto ExternalTransferDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	result, err := h.Service.TransferExternal(r.Context(), caller, dto)
	if err != nil {
		h.writeTransactionError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, result)
}

func (h *Handler) Topup(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var dto TopupDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	result, err := h.Service.Topup(r.Context(), caller, dto)
	if err != nil {
		h.writeTransactionError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, result)
}

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	filter, err := ParseFilter(r.URL.Query())
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	txs, err := h.Service.List(r.Context(), caller, filter)
	if err != nil {
		h.writeTransactionError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"transactions": txs})
}

func (h *Handler) ListAllTransactions(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	filter, err := ParseFilter(r.URL.Query())
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	txs, err := h.Service.ListAll(r.Context(), caller, filter)
	if err != nil {
		h.writeTransactionError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"transactions": txs})
}

func (h *Handler) TopTransactions(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	accountID, err := strconv.ParseInt(r.URL.Query().Get("account_id"), 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid account_id")
		return
	}
	n, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	txs, err := h.Service.TopByAmount(r.Context(), caller, accountID, n)
	if err != nil {
		h.writeTransactionError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"transactions": txs})
}

func (h *Handler) writeTransactionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrPermissionDenied):
		h.WriteError(w, http.StatusForbidden, "insufficient permissions")
	case errors.Is(err, ErrOwnershipMismatch):
		h.WriteError(w, http.StatusForbidden, "account does not belong to the caller")
	case errors.Is(err, account.ErrNotFound):
		h.WriteError(w, http.StatusNotFound, "account not found")
	case errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrAmountExceedsLimit),
		errors.Is(err, ErrSameAccountTransfer):
		h.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrAccountNotActive):
		h.WriteError(w, http.StatusConflict, "account is not active")
	case errors.Is(err, account.ErrInsufficientFunds):
		h.WriteError(w, http.StatusUnprocessableEntity, "insufficient funds")
	case errors.Is(err, account.ErrRetryExhausted):
		h.WriteError(w, http.StatusServiceUnavailable, "service temporarily unavailable, try again later")
	default:
		if _, ok := err.(ValidationError); ok {
			h.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.Logger.Error("transaction operation failed", "error", err)
		h.HandleError(w, err)
	}
}
