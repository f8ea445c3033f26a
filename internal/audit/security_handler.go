package audit

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	apperrors "github.com/safebank/banking/internal"
)

type createSecurityEventDTO struct {
	EventType   string `json:"event_type"`
	Severity    string `json:"severity"`
	UserID      *int64 `json:"user_id,omitempty"`
	UserEmail   string `json:"user_email,omitempty"`
	Description string `json:"description"`
	Details     string `json:"details,omitempty"`
	IPAddress   string `json:"ip_address,omitempty"`
	UserAgent   string `json:"user_agent,omitempty"`
}

type investigateDTO struct {
	ResolutionNotes string `json:"resolution_notes"`
}

// CreateSecurityEvent records an event by hand, for operators feeding
// in findings from outside the automated detectors.
func (h *Handler) CreateSecurityEvent(w http.ResponseWriter, r *http.Request) {
	var dto createSecurityEventDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	event := &SecurityEvent{
		EventType:   dto.EventType,
		Severity:    dto.Severity,
		UserID:      dto.UserID,
		UserEmail:   dto.UserEmail,
		Description: dto.Description,
		Details:     dto.Details,
		IPAddress:   dto.IPAddress,
		UserAgent:   dto.UserAgent,
	}
	if err := h.Security.RecordEvent(event); err != nil {
		h.HandleError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, event)
}

func (h *Handler) ListSecurityEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := SecurityFilter{
		EventType: q.Get("event_type"),
		Severity:  q.Get("severity"),
	}

	if raw := q.Get("user_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			h.HandleError(w, apperrors.NewValidationError("invalid user_id", apperrors.ErrCodeValidationFailed))
			return
		}
		filter.UserID = &id
	}
	if raw := q.Get("investigated"); raw != "" {
		investigated, err := strconv.ParseBool(raw)
		if err != nil {
			h.HandleError(w, apperrors.NewValidationError("invalid investigated flag", apperrors.ErrCodeValidationFailed))
			return
		}
		filter.Investigated = &investigated
	}

	var ok bool
	if filter.From, ok = parseDate(q.Get("from")); !ok {
		h.HandleError(w, apperrors.NewValidationError("invalid from date", apperrors.ErrCodeValidationFailed))
		return
	}
	if filter.To, ok = parseDate(q.Get("to")); !ok {
		h.HandleError(w, apperrors.NewValidationError("invalid to date", apperrors.ErrCodeValidationFailed))
		return
	}

	filter.Limit, _ = strconv.Atoi(q.Get("limit"))
	filter.Offset, _ = strconv.Atoi(q.Get("offset"))

	events, total, err := h.Security.List(filter)
	if err != nil {
		h.Logger.Error("security event query failed", "error", err)
		h.HandleError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"events": events,
		"total":  total,
		"limit":  filter.Limit,
		"offset": filter.Offset,
	})
}

func (h *Handler) GetSecurityEvent(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "eventID"), 10, 64)
	if err != nil {
		h.HandleError(w, apperrors.NewValidationError("invalid event id", apperrors.ErrCodeValidationFailed))
		return
	}
	event, err := h.Security.Get(id)
	if err != nil {
		h.HandleError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, event)
}

func (h *Handler) InvestigateSecurityEvent(w http.ResponseWriter, r *http.Request) {
	var callerID int64
	ok := false
	if h.CallerID != nil {
		callerID, ok = h.CallerID(r.Context())
	}
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "eventID"), 10, 64)
	if err != nil {
		h.HandleError(w, apperrors.NewValidationError("invalid event id", apperrors.ErrCodeValidationFailed))
		return
	}
	var dto investigateDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	event, err := h.Security.Investigate(callerID, id, dto.ResolutionNotes)
	if err != nil {
		h.HandleError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, event)
}

func (h *Handler) SecurityAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.Security.Alerts()
	if err != nil {
		h.HandleError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"alerts": alerts,
		"count":  len(alerts),
	})
}

func (h *Handler) SecurityStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Security.Stats()
	if err != nil {
		h.HandleError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, stats)
}
