package account

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/safebank/banking/internal/audit"
	"github.com/safebank/banking/internal/auth"
)

// Service owns account lifecycle: opening, listing, freezing. Balance
// arithmetic never happens here; that is the transaction engine's job
// through Repository.ApplyMutation.
type Service struct {
	repo     Repository
	engine   *auth.Engine
	recorder audit.Recorder
	logger   *slog.Logger
}

func NewService(repo Repository, engine *auth.Engine, recorder audit.Recorder, logger *slog.Logger) *Service {
	if recorder == nil {
		recorder = audit.NopRecorder{}
	}
	return &Service{
		repo:     repo,
		engine:   engine,
		recorder: recorder,
		logger:   logger,
	}
}

// CreateOwn opens an account for the caller.
func (s *Service) CreateOwn(ctx context.Context, caller *auth.User, dto CreateAccountDTO) (*Account, error) {
	if !s.engine.HasPermission(caller.Permissions, auth.PermAccountsCreateOwn) {
		s.record(caller, "create_account", "", audit.StatusFailure, "permission denied")
		return nil, auth.ErrPermissionDenied
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	return s.create(ctx, caller, caller.ID, dto.Type)
}

// CreateFor opens an account on behalf of another user.
func (s *Service) CreateFor(ctx context.Context, caller *auth.User, dto AdminCreateAccountDTO) (*Account, error) {
	if !s.engine.HasPermission(caller.Permissions, auth.PermAccountsCreateAny) {
		s.record(caller, "create_account_for_user", strconv.FormatInt(dto.UserID, 10), audit.StatusFailure, "permission denied")
		return nil, auth.ErrPermissionDenied
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	return s.create(ctx, caller, dto.UserID, dto.Type)
}

func (s *Service) create(ctx context.Context, caller *auth.User, ownerID int64, accountType string) (*Account, error) {
	acct, err := s.repo.Create(ctx, ownerID, accountType)
	if err != nil {
		s.logger.ErrorContext(ctx, "account creation failed",
			"owner_id", ownerID,
			"type", accountType,
			"error", err)
		s.record(caller, "create_account", strconv.FormatInt(ownerID, 10), audit.StatusError, err.Error())
		return nil, err
	}

	s.logger.InfoContext(ctx, "account opened",
		"account_id", acct.ID,
		"account_number", acct.AccountNumber,
		"owner_id", ownerID)
	s.record(caller, "create_account", acct.AccountNumber, audit.StatusSuccess, "type="+accountType)
	return acct, nil
}

// ListOwn returns the caller's accounts.
func (s *Service) ListOwn(ctx context.Context, caller *auth.User) ([]*Account, error) {
	if !s.engine.HasPermission(caller.Permissions, auth.PermAccountsViewOwn) {
		return nil, auth.ErrPermissionDenied
	}
	return s.repo.GetByUserID(ctx, caller.ID)
}

// ListForUser returns another user's accounts; requires the any scope.
func (s *Service) ListForUser(ctx context.Context, caller *auth.User, userID int64) ([]*Account, error) {
	if userID == caller.ID {
		return s.ListOwn(ctx, caller)
	}
	if !s.engine.HasPermission(caller.Permissions, auth.PermAccountsViewAny) {
		s.record(caller, "view_accounts", strconv.FormatInt(userID, 10), audit.StatusFailure, "permission denied")
		return nil, auth.ErrPermissionDenied
	}
	return s.repo.GetByUserID(ctx, userID)
}

// ListAll returns every account on the platform; requires the any scope.
func (s *Service) ListAll(ctx context.Context, caller *auth.User) ([]*Account, error) {
	if !s.engine.HasPermission(caller.Permissions, auth.PermAccountsViewAny) {
		s.record(caller, "view_accounts", "all", audit.StatusFailure, "permission denied")
		return nil, auth.ErrPermissionDenied
	}
	return s.repo.ListAll(ctx)
}

// Get returns a single account, enforcing ownership unless the caller
// holds the any scope.
func (s *Service) Get(ctx context.Context, caller *auth.User, accountID int64) (*Account, error) {
	acct, err := s.repo.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if acct.UserID != caller.ID {
		if !s.engine.HasPermission(caller.Permissions, auth.PermAccountsViewAny) {
			s.record(caller, "view_account", acct.AccountNumber, audit.StatusFailure, "ownership mismatch")
			return nil, auth.ErrPermissionDenied
		}
	} else if !s.engine.HasPermission(caller.Permissions, auth.PermAccountsViewOwn) {
		return nil, auth.ErrPermissionDenied
	}
	return acct, nil
}

// SetFreezeStatus flips an account between Active and Frozen. Closed
// accounts stay closed.
func (s *Service) SetFreezeStatus(ctx context.Context, caller *auth.User, dto FreezeStatusDTO) (*Account, error) {
	if !s.engine.HasPermission(caller.Permissions, auth.PermAccountsFreezeAny) {
		s.record(caller, "freeze_account", strconv.FormatInt(dto.AccountID, 10), audit.StatusFailure, "permission denied")
		return nil, auth.ErrPermissionDenied
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	current, err := s.repo.GetByID(ctx, dto.AccountID)
	if err != nil {
		return nil, err
	}
	if current.Status == StatusClosed {
		return nil, ErrStatusMismatch
	}

	target := StatusActive
	action := "unfreeze_account"
	if dto.Freeze {
		target = StatusFrozen
		action = "freeze_account"
	}

	acct, err := s.repo.SetStatus(ctx, dto.AccountID, target)
	if err != nil {
		s.record(caller, action, current.AccountNumber, audit.StatusError, err.Error())
		return nil, err
	}

	s.logger.InfoContext(ctx, "account status changed",
		"account_id", acct.ID,
		"status", acct.Status,
		"changed_by", caller.ID)
	s.record(caller, action, acct.AccountNumber, audit.StatusSuccess, "status="+acct.Status)
	return acct, nil
}

// Close marks an account Closed. Balances are retained; nothing is
// ever deleted from the ledger.
func (s *Service) Close(ctx context.Context, caller *auth.User, accountID int64) (*Account, error) {
	if !s.engine.HasPermission(caller.Permissions, auth.PermAccountsFreezeAny) {
		s.record(caller, "close_account", strconv.FormatInt(accountID, 10), audit.StatusFailure, "permission denied")
		return nil, auth.ErrPermissionDenied
	}

	acct, err := s.repo.SetStatus(ctx, accountID, StatusClosed)
	if err != nil {
		s.record(caller, "close_account", strconv.FormatInt(accountID, 10), audit.StatusError, err.Error())
		return nil, err
	}

	s.logger.InfoContext(ctx, "account closed",
		"account_id", acct.ID,
		"closed_by", caller.ID)
	s.record(caller, "close_account", acct.AccountNumber, audit.StatusSuccess, "")
	return acct, nil
}

func (s *Service) record(caller *auth.User, action, resourceID, status, detail string) {
	entry := audit.Entry{
		Service:      audit.ServiceAccounts,
		Action:       action,
		ResourceType: "account",
		ResourceID:   resourceID,
		Status:       status,
		Details:      detail,
		Timestamp:    time.Now(),
	}
	if caller != nil {
		id := caller.ID
		entry.UserID = &id
		entry.UserEmail = caller.Email
		if len(caller.Roles) > 0 {
			entry.UserRole = caller.Roles[0]
		}
	}
	s.recorder.Record(entry)
}
