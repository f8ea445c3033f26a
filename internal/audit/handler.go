package audit

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	apperrors "github.com/safebank/banking/internal"
	"github.com/safebank/banking/internal/transport"
	"github.com/safebank/banking/pkg/logger"
)

type Handler struct {
	*transport.BaseHandler
	Service  *Service
	Security *SecurityService

	// CallerID resolves the authenticated caller from the request
	// context. It is injected by the wiring layer so this package does
	// not depend on the auth package.
	CallerID func(ctx context.Context) (int64, bool)
}

func NewHandler(svc *Service, security *SecurityService) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     svc,
		Security:    security,
	}
}

// ListLogs serves the audit trail query API. The route is gated on the
// audit view permission.
func (h *Handler) ListLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := Filter{
		Service:      q.Get("service"),
		Action:       q.Get("action"),
		Status:       q.Get("status"),
		ResourceType: q.Get("resource_type"),
		ResourceID:   q.Get("resource_id"),
	}

	if raw := q.Get("user_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			h.HandleError(w, apperrors.NewValidationError("invalid user_id", apperrors.ErrCodeValidationFailed))
			return
		}
		filter.UserID = &id
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

	records, err := h.Service.List(filter)
	if err != nil {
		h.Logger.Error("audit query failed", "error", err)
		h.HandleError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"logs": records})
}

// parseDate accepts RFC3339 or a bare date for range filters.
func parseDate(raw string) (*time.Time, bool) {
	if raw == "" {
		return nil, true
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, true
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return &t, true
	}
	return nil, false
}
