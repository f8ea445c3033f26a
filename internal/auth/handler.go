package auth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/safebank/banking/internal/transport"
	"github.com/safebank/banking/pkg/logger"
)

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(svc ServiceAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     svc,
	}
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var dto LoginDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.Service.Authenticate(r.Context(), dto)
	if err != nil {
		switch {
		case errors.Is(err, ErrPasswordChangeRequired):
			// Distinct error so the client can redirect to the
			// remediation flow; everything else stays generic.
			h.WriteJSON(w, http.StatusForbidden, map[string]interface{}{
				"message":              "password change required",
				"must_change_password": true,
			})
		case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrUserInactive):
			h.WriteError(w, http.StatusUnauthorized, "invalid email or password")
		default:
			if _, ok := err.(ValidationError); ok {
				h.WriteError(w, http.StatusBadRequest, err.Error())
			} else {
				h.Logger.Error("authentication failed", "error", err)
				h.HandleError(w, err)
			}
		}
		return
	}

	h.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var dto RegisterDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.Service.Register(r.Context(), dto)
	if err != nil {
		switch {
		case errors.Is(err, ErrEmailTaken):
			h.WriteError(w, http.StatusBadRequest, "email already registered")
		case errors.Is(err, ErrWeakPassword):
			h.WriteError(w, http.StatusBadRequest, "password must be at least 8 characters with upper, lower, digit and special characters")
		default:
			if _, ok := err.(ValidationError); ok {
				h.WriteError(w, http.StatusBadRequest, err.Error())
			} else {
				h.Logger.Error("registration failed", "error", err)
				h.HandleError(w, err)
			}
		}
		return
	}

	h.WriteJSON(w, http.StatusCreated, map[string]interface{}{"user": user})
}

func (h *Handler) ForcePasswordChange(w http.ResponseWriter, r *http.Request) {
	var dto ForcePasswordChangeDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.Service.ForcePasswordChange(r.Context(), dto); err != nil {
		switch {
		case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrPasswordChangeNotSet):
			h.WriteError(w, http.StatusUnauthorized, "invalid email or password")
		case errors.Is(err, ErrPasswordReused):
			h.WriteError(w, http.StatusBadRequest, "new password must differ from current password")
		case errors.Is(err, ErrWeakPassword):
			h.WriteError(w, http.StatusBadRequest, "password must be at least 8 characters with upper, lower, digit and special characters")
		default:
			if _, ok := err.(ValidationError); ok {
				h.WriteError(w, http.StatusBadRequest, err.Error())
			} else {
				h.Logger.Error("force password change failed", "error", err)
				h.HandleError(w, err)
			}
		}
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]string{"message": "password updated"})
}

// AuthMiddleware verifies the bearer token and places the caller,
// rebuilt from the verified claims, into the request context.
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := h.ExtractTokenFromHeader(r)
		if token == "" {
			h.WriteError(w, http.StatusUnauthorized, "missing authorization token")
			return
		}

		claims, err := h.Service.ValidateAccessToken(token)
		if err != nil {
			h.Logger.Warn("token validation failed", "error", err)
			h.WriteError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		ctx := ContextWithUser(r.Context(), CallerFromClaims(claims))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
