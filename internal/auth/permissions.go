package auth

// Permission codes follow resource:action:scope. The scope suffix
// (own vs any) is what separates a customer's view of the world from a
// support agent's; the engine itself only ever tests membership.
const (
	PermAccountsViewOwn   = "accounts:view:own"
	PermAccountsViewAny   = "accounts:view:any"
	PermAccountsCreateOwn = "accounts:create:own"
	PermAccountsCreateAny = "accounts:create:any"
	PermAccountsTopup     = "accounts:topup"
	PermAccountsFreezeAny = "accounts:freeze:any"

	PermTransferInternal     = "transfer:internal"
	PermTransferExternal     = "transfer:external"
	PermTransactionsDeposit  = "transactions:deposit:own"
	PermTransactionsWithdraw = "transactions:withdraw:own"
	PermTransactionsViewOwn  = "transactions:view:own"
	PermTransactionsViewAny  = "transactions:view:any"

	PermUsersEdit = "users:edit"

	PermTicketsCreateOwn = "tickets:create:own"
	PermTicketsViewOwn   = "tickets:view:own"
	PermTicketsViewAny   = "tickets:view:any"
	PermTicketsUpdateAny = "tickets:update:any"

	PermAuditView        = "audit:view"
	PermAuditInvestigate = "audit:investigate"

	PermAdmin        = "admin"
	PermSupportAgent = "support_agent"
)

// AllPermissionCodes is the full catalog, used by the seeder.
var AllPermissionCodes = []string{
	PermAccountsViewOwn,
	PermAccountsViewAny,
	PermAccountsCreateOwn,
	PermAccountsCreateAny,
	PermAccountsTopup,
	PermAccountsFreezeAny,
	PermTransferInternal,
	PermTransferExternal,
	PermTransactionsDeposit,
	PermTransactionsWithdraw,
	PermTransactionsViewOwn,
	PermTransactionsViewAny,
	PermUsersEdit,
	PermTicketsCreateOwn,
	PermTicketsViewOwn,
	PermTicketsViewAny,
	PermTicketsUpdateAny,
	PermAuditView,
	PermAuditInvestigate,
	PermAdmin,
	PermSupportAgent,
}

// RolePermissionMap is the RBAC matrix. Admin is granted every code
// explicitly rather than special-cased at check time, so every access
// decision stays a plain membership test.
var RolePermissionMap = map[string][]string{
	"customer": {
		PermAccountsViewOwn,
		PermAccountsCreateOwn,
		PermTransferInternal,
		PermTransferExternal,
		PermTransactionsDeposit,
		PermTransactionsWithdraw,
		PermTransactionsViewOwn,
		PermTicketsCreateOwn,
		PermTicketsViewOwn,
	},
	"support_agent": {
		PermAccountsViewOwn,
		PermAccountsViewAny,
		PermTransactionsViewOwn,
		PermTransactionsViewAny,
		PermTicketsViewAny,
		PermTicketsUpdateAny,
		PermSupportAgent,
	},
	"auditor": {
		PermAccountsViewAny,
		PermTransactionsViewAny,
		PermAuditView,
		PermAuditInvestigate,
	},
	"admin": AllPermissionCodes,
}

// Engine is the pure authorization decision point. It holds no state:
// a request is authorized iff the required code is in the caller's
// permission set.
type Engine struct{}

func NewEngine() *Engine {
	return &Engine{}
}

func (e *Engine) HasPermission(userPermissions []string, required string) bool {
	for _, p := range userPermissions {
		if p == required {
			return true
		}
	}
	return false
}

func (e *Engine) HasAnyPermission(userPermissions []string, required []string) bool {
	for _, want := range required {
		if e.HasPermission(userPermissions, want) {
			return true
		}
	}
	return false
}
