package account

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
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

func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto CreateAccountDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	acct, err := h.Service.CreateOwn(r.Context(), caller, dto)
	if err != nil {
		h.writeAccountError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, acct)
}

func (h *Handler) AdminCreateAccount(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto AdminCreateAccountDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	acct, err := h.Service.CreateFor(r.Context(), caller, dto)
	if err != nil {
		h.writeAccountError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, acct)
}

func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var (
		accounts []*Account
		err      error
	)
	if raw := r.URL.Query().Get("user_id"); raw != "" {
		userID, parseErr := strconv.ParseInt(raw, 10, 64)
		if parseErr != nil {
			h.WriteError(w, http.StatusBadRequest, "invalid user_id")
			return
		}
		accounts, err = h.Service.ListForUser(r.Context(), caller, userID)
	} else {
		accounts, err = h.Service.ListOwn(r.Context(), caller)
	}
	if err != nil {
		h.writeAccountError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"accounts": accounts})
}

func (h *Handler) ListAllAccounts(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	accounts, err := h.Service.ListAll(r.Context(), caller)
	if err != nil {
		h.writeAccountError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"accounts": accounts})
}

func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	accountID, err := strconv.ParseInt(chi.URLParam(r, "accountID"), 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid account id")
		return
	}

	acct, err := h.Service.Get(r.Context(), caller, accountID)
	if err != nil {
		h.writeAccountError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, acct)
}

func (h *Handler) SetFreezeStatus(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	accountID, err := strconv.ParseInt(chi.URLParam(r, "accountID"), 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid account id")
		return
	}

	var body struct {
		Freeze bool `json:"freeze"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	acct, err := h.Service.SetFreezeStatus(r.Context(), caller, FreezeStatusDTO{
		AccountID: accountID,
		Freeze:    body.Freeze,
	})
	if err != nil {
		h.writeAccountError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, acct)
}

func (h *Handler) CloseAccount(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	accountID, err := strconv.ParseInt(chi.URLParam(r, "accountID"), 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid account id")
		return
	}

	acct, err := h.Service.Close(r.Context(), caller, accountID)
	if err != nil {
		h.writeAccountError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, acct)
}

func (h *Handler) writeAccountError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrPermissionDenied):
		h.WriteError(w, http.StatusForbidden, "insufficient permissions")
	case errors.Is(err, ErrNotFound):
		h.WriteError(w, http.StatusNotFound, "account not found")
	case errors.Is(err, ErrStatusMismatch):
		h.WriteError(w, http.StatusConflict, "account status does not permit this operation")
	default:
		if _, ok := err.(ValidationError); ok {
			h.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.Logger.Error("account operation failed", "error", err)
		h.HandleError(w, err)
	}
}
