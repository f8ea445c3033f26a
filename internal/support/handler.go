package support

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

func (h *Handler) CreateTicket(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var dto CreateTicketDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	ticket, err := h.Service.Create(r.Context(), caller, dto)
	if err != nil {
		h.writeTicketError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, ticket)
}

func (h *Handler) ListTickets(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	tickets, err := h.Service.ListOwn(r.Context(), caller)
	if err != nil {
		h.writeTicketError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"tickets": tickets})
}

func (h *Handler) ListAllTickets(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	tickets, err := h.Service.ListAll(r.Context(), caller, r.URL.Query().Get("status"))
	if err != nil {
		h.writeTicketError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"tickets": tickets})
}

func (h *Handler) GetTicket(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	ticketID, err := strconv.ParseInt(chi.URLParam(r, "ticketID"), 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid ticket id")
		return
	}
	ticket, err := h.Service.Get(r.Context(), caller, ticketID)
	if err != nil {
		h.writeTicketError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, ticket)
}

func (h *Handler) UpdateTicket(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	ticketID, err := strconv.ParseInt(chi.URLParam(r, "ticketID"), 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid ticket id")
		return
	}
	var dto UpdateTicketDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	ticket, err := h.Service.Update(r.Context(), caller, ticketID, dto)
	if err != nil {
		h.writeTicketError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, ticket)
}

func (h *Handler) writeTicketError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrPermissionDenied):
		h.WriteError(w, http.StatusForbidden, "insufficient permissions")
	case errors.Is(err, ErrNotFound):
		h.WriteError(w, http.StatusNotFound, "ticket not found")
	case errors.Is(err, ErrInvalidStatus):
		h.WriteError(w, http.StatusBadRequest, "invalid ticket status")
	default:
		if _, ok := err.(ValidationError); ok {
			h.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.Logger.Error("ticket operation failed", "error", err)
		h.HandleError(w, err)
	}
}
