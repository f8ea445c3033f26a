package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
	"github.com/safebank/banking/internal/account"
	"github.com/safebank/banking/internal/audit"
	"github.com/safebank/banking/internal/auth"
	"github.com/safebank/banking/internal/support"
	"github.com/safebank/banking/internal/transaction"
	"github.com/safebank/banking/internal/transport/middleware"
	"github.com/safebank/banking/internal/transport/swagger"
	"github.com/safebank/banking/internal/user"
)

// Handlers bundles the per-domain HTTP handlers the router mounts.
type Handlers struct {
	Auth        *auth.Handler
	User        *user.Handler
	Account     *account.Handler
	Transaction *transaction.Handler
	Audit       *audit.Handler
	Support     *support.Handler
}

func RegisterAllRoutes(router *chi.Mux, db *sql.DB, h Handlers, rbac *auth.RBACAuthorization, logger *slog.Logger) {
	healthHandler := NewHealthHandler(db)

	router.Use(middleware.CORS)
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))

	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	router.Handle("/swagger/*", swagger.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		// Public auth surface. Force-password-change is reachable
		// without a token; it only works while the account's
		// must-change flag is set. The whole surface is rate limited
		// per client IP to slow credential stuffing.
		authLimiter := middleware.NewRateLimiter(middleware.AuthRateLimit(), logger)
		r.Route("/auth", func(sr chi.Router) {
			sr.Use(authLimiter.Middleware)
			sr.Post("/register", h.Auth.Register)
			sr.Post("/login", h.Auth.Login)
			sr.Post("/force-password-change", h.Auth.ForcePasswordChange)
		})

		// Everything below carries a verified token. The middleware
		// rebuilds the caller from claims; services re-check the
		// specific permission on every operation.
		r.Group(func(pr chi.Router) {
			pr.Use(h.Auth.AuthMiddleware)

			pr.Get("/users/me", h.User.Me)

			pr.Route("/accounts", func(ar chi.Router) {
				ar.Post("/", h.Account.CreateAccount)
				ar.Get("/", h.Account.ListAccounts)
				ar.Get("/{accountID}", h.Account.GetAccount)

				ar.Group(func(adm chi.Router) {
					adm.Use(rbac.Middleware(auth.PermAccountsCreateAny))
					adm.Post("/admin/create", h.Account.AdminCreateAccount)
				})
				ar.Group(func(adm chi.Router) {
					adm.Use(rbac.Middleware(auth.PermAccountsViewAny))
					adm.Get("/admin/all", h.Account.ListAllAccounts)
				})
				ar.Group(func(adm chi.Router) {
					adm.Use(rbac.Middleware(auth.PermAccountsFreezeAny))
					adm.Post("/{accountID}/freeze-status", h.Account.SetFreezeStatus)
					adm.Post("/{accountID}/close", h.Account.CloseAccount)
				})
			})

			pr.Route("/transactions", func(tr chi.Router) {
				tr.Post("/deposit", h.Transaction.Deposit)
				tr.Post("/withdraw", h.Transaction.Withdraw)
				tr.Post("/internal", h.Transaction.TransferInternal)
				tr.Post("/external", h.Transaction.TransferExternal)
				tr.Get("/", h.Transaction.ListTransactions)
				tr.Get("/top-transactions", h.Transaction.TopTransactions)

				tr.Group(func(adm chi.Router) {
					adm.Use(rbac.Middleware(auth.PermAccountsTopup))
					adm.Post("/topup", h.Transaction.Topup)
				})
				tr.Group(func(adm chi.Router) {
					adm.Use(rbac.Middleware(auth.PermTransactionsViewAny))
					adm.Get("/admin/all", h.Transaction.ListAllTransactions)
				})
			})

			pr.Route("/admin/users", func(ur chi.Router) {
				ur.Use(rbac.Middleware(auth.PermUsersEdit))
				ur.Get("/", h.User.ListUsers)
				ur.Post("/edit", h.User.EditUser)
				ur.Post("/create-support-agent", h.User.CreateSupportAgent)
			})

			pr.Route("/audit", func(audr chi.Router) {
				audr.Group(func(view chi.Router) {
					view.Use(rbac.Middleware(auth.PermAuditView))
					view.Get("/logs", h.Audit.ListLogs)
					view.Get("/security/events", h.Audit.ListSecurityEvents)
					view.Get("/security/events/{eventID}", h.Audit.GetSecurityEvent)
					view.Get("/security/alerts", h.Audit.SecurityAlerts)
					view.Get("/security/stats", h.Audit.SecurityStats)
				})
				audr.Group(func(inv chi.Router) {
					inv.Use(rbac.Middleware(auth.PermAuditInvestigate))
					inv.Put("/security/events/{eventID}/investigate", h.Audit.InvestigateSecurityEvent)
				})
				audr.Group(func(adm chi.Router) {
					adm.Use(rbac.Middleware(auth.PermAdmin))
					adm.Post("/security/events", h.Audit.CreateSecurityEvent)
				})
			})

			pr.Route("/tickets", func(tk chi.Router) {
				tk.Post("/", h.Support.CreateTicket)
				tk.Get("/", h.Support.ListTickets)
				tk.Get("/{ticketID}", h.Support.GetTicket)

				tk.Group(func(ag chi.Router) {
					ag.Use(rbac.Middleware(auth.PermTicketsViewAny))
					ag.Get("/all", h.Support.ListAllTickets)
				})
				tk.Group(func(ag chi.Router) {
					ag.Use(rbac.Middleware(auth.PermTicketsUpdateAny))
					ag.Patch("/{ticketID}", h.Support.UpdateTicket)
				})
			})
		})
	})
}
