package transaction

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/safebank/banking/internal/account"
	"github.com/safebank/banking/internal/audit"
	"github.com/safebank/banking/internal/auth"
	"github.com/safebank/banking/internal/core/events"
	"github.com/shopspring/decimal"
)

// Service is the transaction engine. Each call runs one request
// through Received -> Validated -> Executing -> Committed|Rejected.
// Validation performs no writes; once Executing starts, the call runs
// to a committed record or a fully reversed rejection. The ledger
// store's conditional balance update is the serialization point, so
// concurrent engines cannot race an account below zero.
type Service struct {
	accounts  account.Repository
	repo      Repository
	engine    *auth.Engine
	recorder  audit.Recorder
	bus       *events.EventBus
	logger    *slog.Logger
	maxAmount decimal.Decimal
}

func NewService(
	accounts account.Repository,
	repo Repository,
	engine *auth.Engine,
	recorder audit.Recorder,
	bus *events.EventBus,
	logger *slog.Logger,
	maxAmount decimal.Decimal,
) *Service {
	if recorder == nil {
		recorder = audit.NopRecorder{}
	}
	return &Service{
		accounts:  accounts,
		repo:      repo,
		engine:    engine,
		recorder:  recorder,
		bus:       bus,
		logger:    logger,
		maxAmount: maxAmount,
	}
}

// Deposit credits the caller's own account. Callers holding the
// top-up override may credit any account through Topup instead.
func (s *Service) Deposit(ctx context.Context, caller *auth.User, dto DepositDTO) (*Result, error) {
	if !s.engine.HasPermission(caller.Permissions, auth.PermTransactionsDeposit) {
		return nil, s.reject(caller, "deposit", dto.AccountID, auth.ErrPermissionDenied)
	}
	return s.singleAccountMutation(ctx, caller, "deposit", TypeDeposit, dto.AccountID, dto.Amount, dto.Description, false)
}

// Topup is the any-scope deposit: it credits an arbitrary account and
// is gated on a separate permission.
func (s *Service) Topup(ctx context.Context, caller *auth.User, dto TopupDTO) (*Result, error) {
	if !s.engine.HasPermission(caller.Permissions, auth.PermAccountsTopup) {
		return nil, s.reject(caller, "topup", dto.AccountID, auth.ErrPermissionDenied)
	}
	return s.singleAccountMutation(ctx, caller, "topup", TypeDeposit, dto.AccountID, dto.Amount, dto.Description, true)
}

func (s *Service) Withdraw(ctx context.Context, caller *auth.User, dto WithdrawDTO) (*Result, error) {
	if !s.engine.HasPermission(caller.Permissions, auth.PermTransactionsWithdraw) {
		return nil, s.reject(caller, "withdrawal", dto.AccountID, auth.ErrPermissionDenied)
	}
	return s.singleAccountMutation(ctx, caller, "withdrawal", TypeWithdrawal, dto.AccountID, dto.Amount, dto.Description, false)
}

func (s *Service) TransferInternal(ctx context.Context, caller *auth.User, dto InternalTransferDTO) (*Result, error) {
	if !s.engine.HasPermission(caller.Permissions, auth.PermTransferInternal) {
		return nil, s.reject(caller, "internal_transfer", dto.SourceAccountID, auth.ErrPermissionDenied)
	}
	if dto.SourceAccountID == dto.DestinationAccountID {
		return nil, s.reject(caller, "internal_transfer", dto.SourceAccountID, ErrSameAccountTransfer)
	}
	if err := s.validateAmount(dto.Amount); err != nil {
		return nil, s.reject(caller, "internal_transfer", dto.SourceAccountID, err)
	}

	receiver, err := s.accounts.GetByID(ctx, dto.DestinationAccountID)
	if err != nil {
		return nil, s.reject(caller, "internal_transfer", dto.SourceAccountID, err)
	}
	return s.transfer(ctx, caller, "internal_transfer", TypeInternal, dto.SourceAccountID, receiver, dto.Amount, dto.Description)
}

// TransferExternal resolves the receiver by account number; it may
// belong to anyone.
func (s *Service) TransferExternal(ctx context.Context, caller *auth.User, dto ExternalTransferDTO) (*Result, error) {
	if !s.engine.HasPermission(caller.Permissions, auth.PermTransferExternal) {
		return nil, s.reject(caller, "external_transfer", dto.SourceAccountID, auth.ErrPermissionDenied)
	}
	if err := s.validateAmount(dto.Amount); err != nil {
		return nil, s.reject(caller, "external_transfer", dto.SourceAccountID, err)
	}

	receiver, err := s.accounts.GetByNumber(ctx, dto.DestinationAccountNumber)
	if err != nil {
		return nil, s.reject(caller, "external_transfer", dto.SourceAccountID, err)
	}
	if receiver.ID == dto.SourceAccountID {
		return nil, s.reject(caller, "external_transfer", dto.SourceAccountID, ErrSameAccountTransfer)
	}
	return s.transfer(ctx, caller, "external_transfer", TypeExternal, dto.SourceAccountID, receiver, dto.Amount, dto.Description)
}

// singleAccountMutation handles deposits and withdrawals: one account,
// one ledger mutation, sender==receiver on the record.
func (s *Service) singleAccountMutation(ctx context.Context, caller *auth.User, action, txType string, accountID int64, amount decimal.Decimal, description string, anyOwner bool) (*Result, error) {
	if err := s.validateAmount(amount); err != nil {
		return nil, s.reject(caller, action, accountID, err)
	}

	acct, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, s.reject(caller, action, accountID, err)
	}
	if !anyOwner && acct.UserID != caller.ID {
		if !s.engine.HasPermission(caller.Permissions, auth.PermAccountsTopup) || txType != TypeDeposit {
			return nil, s.reject(caller, action, accountID, ErrOwnershipMismatch)
		}
	}
	if !acct.IsActive() {
		return nil, s.reject(caller, action, accountID, ErrAccountNotActive)
	}

	delta := amount
	if txType == TypeWithdrawal {
		if acct.Balance.LessThan(amount) {
			return nil, s.reject(caller, action, accountID, account.ErrInsufficientFunds)
		}
		delta = amount.Neg()
	}

	// Executing
	mutated, err := s.accounts.ApplyMutation(ctx, accountID, delta, account.StatusActive)
	if err != nil {
		return nil, s.reject(caller, action, accountID, mapMutationError(err))
	}

	record := &Transaction{
		SenderAccountID:   accountID,
		ReceiverAccountID: accountID,
		Amount:            amount,
		Type:              txType,
		Description:       description,
		Timestamp:         time.Now(),
	}
	if err := s.repo.Create(ctx, record); err != nil {
		// the balance moved but the record did not; reverse before
		// reporting so the failure is not observable
		if _, revErr := s.accounts.ApplyMutation(ctx, accountID, delta.Neg(), account.StatusActive); revErr != nil {
			s.logger.ErrorContext(ctx, "compensating mutation failed",
				"account_id", accountID,
				"delta", delta.Neg().String(),
				"error", revErr)
		}
		return nil, s.reject(caller, action, accountID, err)
	}

	s.commit(ctx, caller, action, record)
	return &Result{
		Transaction:     record,
		PreviousBalance: mutated.Balance.Sub(delta),
		NewBalance:      mutated.Balance,
	}, nil
}

func (s *Service) transfer(ctx context.Context, caller *auth.User, action, txType string, sourceID int64, receiver *account.Account, amount decimal.Decimal, description string) (*Result, error) {
	sender, err := s.accounts.GetByID(ctx, sourceID)
	if err != nil {
		return nil, s.reject(caller, action, sourceID, err)
	}
	if sender.UserID != caller.ID {
		return nil, s.reject(caller, action, sourceID, ErrOwnershipMismatch)
	}

	// status pre-check in ascending id order; the mutations below
	// re-check at their own linearization points
	first, second := sender, receiver
	if second.ID < first.ID {
		first, second = second, first
	}
	for _, a := range []*account.Account{first, second} {
		if !a.IsActive() {
			return nil, s.reject(caller, action, sourceID, ErrAccountNotActive)
		}
	}
	if sender.Balance.LessThan(amount) {
		return nil, s.reject(caller, action, sourceID, account.ErrInsufficientFunds)
	}

	// Executing: debit then credit
	debited, err := s.accounts.ApplyMutation(ctx, sender.ID, amount.Neg(), account.StatusActive)
	if err != nil {
		return nil, s.reject(caller, action, sourceID, mapMutationError(err))
	}

	if _, err := s.accounts.ApplyMutation(ctx, receiver.ID, amount, account.StatusActive); err != nil {
		// the debit landed but the credit did not; compensate the
		// sender so no partial transfer is ever observable
		if _, revErr := s.accounts.ApplyMutation(ctx, sender.ID, amount, account.StatusActive); revErr != nil {
			s.logger.ErrorContext(ctx, "compensating credit failed",
				"sender_account_id", sender.ID,
				"amount", amount.String(),
				"error", revErr)
		}
		return nil, s.reject(caller, action, sourceID, mapMutationError(err))
	}

	record := &Transaction{
		SenderAccountID:   sender.ID,
		ReceiverAccountID: receiver.ID,
		Amount:            amount,
		Type:              txType,
		Description:       description,
		Timestamp:         time.Now(),
	}
	if err := s.repo.Create(ctx, record); err != nil {
		if _, revErr := s.accounts.ApplyMutation(ctx, receiver.ID, amount.Neg(), account.StatusActive); revErr != nil {
			s.logger.ErrorContext(ctx, "transfer reversal debit failed",
				"receiver_account_id", receiver.ID, "error", revErr)
		}
		if _, revErr := s.accounts.ApplyMutation(ctx, sender.ID, amount, account.StatusActive); revErr != nil {
			s.logger.ErrorContext(ctx, "transfer reversal credit failed",
				"sender_account_id", sender.ID, "error", revErr)
		}
		return nil, s.reject(caller, action, sourceID, err)
	}

	s.commit(ctx, caller, action, record)
	return &Result{
		Transaction:     record,
		PreviousBalance: debited.Balance.Add(amount),
		NewBalance:      debited.Balance,
	}, nil
}

// List returns history visible to the caller: own scope covers every
// transaction touching one of the caller's accounts, most recent first.
func (s *Service) List(ctx context.Context, caller *auth.User, filter Filter) ([]*Transaction, error) {
	if s.engine.HasPermission(caller.Permissions, auth.PermTransactionsViewAny) {
		return s.repo.ListAll(ctx, filter)
	}
	if !s.engine.HasPermission(caller.Permissions, auth.PermTransactionsViewOwn) {
		return nil, auth.ErrPermissionDenied
	}

	accounts, err := s.accounts.GetByUserID(ctx, caller.ID)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, len(accounts))
	for i, a := range accounts {
		ids[i] = a.ID
	}
	if len(ids) == 0 {
		return []*Transaction{}, nil
	}
	return s.repo.ListByAccountIDs(ctx, ids, filter)
}

// ListAll is the admin view over every account's history.
func (s *Service) ListAll(ctx context.Context, caller *auth.User, filter Filter) ([]*Transaction, error) {
	if !s.engine.HasPermission(caller.Permissions, auth.PermTransactionsViewAny) {
		return nil, auth.ErrPermissionDenied
	}
	return s.repo.ListAll(ctx, filter)
}

// TopByAmount returns the account's n largest transactions.
func (s *Service) TopByAmount(ctx context.Context, caller *auth.User, accountID int64, n int) ([]*Transaction, error) {
	acct, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if acct.UserID != caller.ID {
		if !s.engine.HasPermission(caller.Permissions, auth.PermTransactionsViewAny) {
			return nil, auth.ErrPermissionDenied
		}
	} else if !s.engine.HasPermission(caller.Permissions, auth.PermTransactionsViewOwn) {
		return nil, auth.ErrPermissionDenied
	}
	if n <= 0 || n > 100 {
		n = 10
	}
	return s.repo.TopByAmount(ctx, accountID, n)
}

func (s *Service) validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if !amount.Equal(amount.Round(2)) {
		return ErrInvalidAmount
	}
	if amount.GreaterThan(s.maxAmount) {
		return ErrAmountExceedsLimit
	}
	return nil
}

func mapMutationError(err error) error {
	if err == account.ErrStatusMismatch {
		return ErrAccountNotActive
	}
	return err
}

// reject records the precise rejection kind and returns the error
// unchanged. Rejections never mutate balances.
func (s *Service) reject(caller *auth.User, action string, accountID int64, err error) error {
	s.record(caller, action, strconv.FormatInt(accountID, 10), audit.StatusFailure, err.Error())
	return err
}

func (s *Service) commit(ctx context.Context, caller *auth.User, action string, record *Transaction) {
	s.logger.InfoContext(ctx, "transaction committed",
		"transaction_id", record.ID,
		"type", record.Type,
		"sender_account_id", record.SenderAccountID,
		"receiver_account_id", record.ReceiverAccountID,
		"amount", record.Amount.String())

	s.record(caller, action, strconv.FormatInt(record.ID, 10), audit.StatusSuccess,
		"type="+record.Type+" amount="+record.Amount.String())

	if s.bus != nil {
		event := events.NewTransactionCommittedEvent(
			record.ID, record.Type, record.SenderAccountID, record.ReceiverAccountID, record.Amount.String())
		if err := s.bus.Publish(ctx, event); err != nil {
			s.logger.WarnContext(ctx, "publishing committed event failed", "error", err)
		}
	}
}

func (s *Service) record(caller *auth.User, action, resourceID, status, detail string) {
	entry := audit.Entry{
		Service:      audit.ServiceTransactions,
		Action:       action,
		ResourceType: "transaction",
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
