package transaction_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/safebank/banking/internal/account"
	"github.com/safebank/banking/internal/auth"
	"github.com/safebank/banking/internal/transaction"
)

func TestTransactionService(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Transaction Service Suite")
}

// Mock ledger store with the same conditional-update semantics as the
// real one: mutations serialize under the lock, status and balance are
// re-checked at the mutation point.
type mockAccountStore struct {
	mu          sync.Mutex
	accounts    map[int64]*account.Account
	nextID      int64
	creditError map[int64]error
}

func newMockAccountStore() *mockAccountStore {
	return &mockAccountStore{
		accounts:    make(map[int64]*account.Account),
		nextID:      1,
		creditError: make(map[int64]error),
	}
}

func (m *mockAccountStore) addAccount(userID int64, balance string, status string) *account.Account {
	m.mu.Lock()
	defer m.mu.Unlock()
	acct := &account.Account{
		ID:            m.nextID,
		AccountNumber: account.FormatNumber(userID, m.nextID),
		UserID:        userID,
		Type:          account.TypeChecking,
		Balance:       decimal.RequireFromString(balance),
		Status:        status,
		CreatedAt:     time.Now(),
	}
	m.accounts[acct.ID] = acct
	m.nextID++
	return copyAccount(acct)
}

func copyAccount(a *account.Account) *account.Account {
	c := *a
	return &c
}

func (m *mockAccountStore) Create(ctx context.Context, ownerID int64, accountType string) (*account.Account, error) {
	return m.addAccount(ownerID, "0", account.StatusActive), nil
}

func (m *mockAccountStore) GetByID(ctx context.Context, id int64) (*account.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acct, ok := m.accounts[id]
	if !ok {
		return nil, account.ErrNotFound
	}
	return copyAccount(acct), nil
}

func (m *mockAccountStore) GetByNumber(ctx context.Context, number string) (*account.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, acct := range m.accounts {
		if acct.AccountNumber == number {
			return copyAccount(acct), nil
		}
	}
	return nil, account.ErrNotFound
}

func (m *mockAccountStore) GetByUserID(ctx context.Context, userID int64) ([]*account.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*account.Account
	for _, acct := range m.accounts {
		if acct.UserID == userID {
			out = append(out, copyAccount(acct))
		}
	}
	return out, nil
}

func (m *mockAccountStore) ListAll(ctx context.Context) ([]*account.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*account.Account, 0, len(m.accounts))
	for _, acct := range m.accounts {
		out = append(out, copyAccount(acct))
	}
	return out, nil
}

func (m *mockAccountStore) ApplyMutation(ctx context.Context, accountID int64, delta decimal.Decimal, expectedStatus string) (*account.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acct, ok := m.accounts[accountID]
	if !ok {
		return nil, account.ErrNotFound
	}
	if acct.Status != expectedStatus {
		return nil, account.ErrStatusMismatch
	}
	if delta.IsPositive() {
		if err := m.creditError[accountID]; err != nil {
			return nil, err
		}
	}
	newBalance := acct.Balance.Add(delta)
	if newBalance.IsNegative() {
		return nil, account.ErrInsufficientFunds
	}
	acct.Balance = newBalance
	return copyAccount(acct), nil
}

func (m *mockAccountStore) SetStatus(ctx context.Context, accountID int64, status string) (*account.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acct, ok := m.accounts[accountID]
	if !ok {
		return nil, account.ErrNotFound
	}
	acct.Status = status
	return copyAccount(acct), nil
}

func (m *mockAccountStore) balanceOf(id int64) decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.accounts[id].Balance
}

func (m *mockAccountStore) totalBalance() decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := decimal.Zero
	for _, acct := range m.accounts {
		total = total.Add(acct.Balance)
	}
	return total
}

type mockTransactionRepo struct {
	mu          sync.Mutex
	records     []*transaction.Transaction
	nextID      int64
	createError error
}

func newMockTransactionRepo() *mockTransactionRepo {
	return &mockTransactionRepo{nextID: 1}
}

func (m *mockTransactionRepo) Create(ctx context.Context, tx *transaction.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createError != nil {
		return m.createError
	}
	tx.ID = m.nextID
	m.nextID++
	stored := *tx
	m.records = append(m.records, &stored)
	return nil
}

func (m *mockTransactionRepo) ListByAccountIDs(ctx context.Context, ids []int64, filter transaction.Filter) ([]*transaction.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idSet := make(map[int64]bool, len(ids))
	for _, id := range ids {
		idSet[id] = true
	}
	var out []*transaction.Transaction
	for i := len(m.records) - 1; i >= 0; i-- {
		rec := m.records[i]
		if idSet[rec.SenderAccountID] || idSet[rec.ReceiverAccountID] {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m *mockTransactionRepo) ListAll(ctx context.Context, filter transaction.Filter) ([]*transaction.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*transaction.Transaction, 0, len(m.records))
	for i := len(m.records) - 1; i >= 0; i-- {
		out = append(out, m.records[i])
	}
	return out, nil
}

func (m *mockTransactionRepo) TopByAmount(ctx context.Context, accountID int64, limit int) ([]*transaction.Transaction, error) {
	return m.ListByAccountIDs(ctx, []int64{accountID}, transaction.Filter{})
}

func (m *mockTransactionRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

var _ = Describe("TransactionService", func() {
	var (
		svc      *transaction.Service
		store    *mockAccountStore
		repo     *mockTransactionRepo
		engine   *auth.Engine
		customer *auth.User
		admin    *auth.User
		ctx      context.Context
	)

	BeforeEach(func() {
		store = newMockAccountStore()
		repo = newMockTransactionRepo()
		engine = auth.NewEngine()
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		svc = transaction.NewService(store, repo, engine, nil, nil, logger,
			decimal.RequireFromString("1000000.00"))
		ctx = context.Background()

		customer = &auth.User{
			ID:          1,
			Email:       "alice@example.com",
			Roles:       []string{"customer"},
			Permissions: auth.RolePermissionMap["customer"],
		}
		admin = &auth.User{
			ID:          99,
			Email:       "admin@example.com",
			Roles:       []string{"admin"},
			Permissions: auth.RolePermissionMap["admin"],
		}
	})

	Describe("Deposit and Withdraw", func() {
		It("runs the deposit then withdraw scenario", func() {
			acct := store.addAccount(customer.ID, "0", account.StatusActive)

			res, err := svc.Deposit(ctx, customer, transaction.DepositDTO{
				AccountID: acct.ID,
				Amount:    decimal.RequireFromString("500.00"),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.NewBalance.String()).To(Equal("500"))
			Expect(res.Transaction.Type).To(Equal(transaction.TypeDeposit))

			res, err = svc.Withdraw(ctx, customer, transaction.WithdrawDTO{
				AccountID: acct.ID,
				Amount:    decimal.RequireFromString("200.00"),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.NewBalance.String()).To(Equal("300"))
			Expect(res.PreviousBalance.String()).To(Equal("500"))
			Expect(res.Transaction.Type).To(Equal(transaction.TypeWithdrawal))

			Expect(repo.count()).To(Equal(2))
			Expect(store.balanceOf(acct.ID).String()).To(Equal("300"))
		})

		It("stores the same account as sender and receiver", func() {
			acct := store.addAccount(customer.ID, "0", account.StatusActive)

			res, err := svc.Deposit(ctx, customer, transaction.DepositDTO{
				AccountID: acct.ID,
				Amount:    decimal.RequireFromString("10.00"),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Transaction.SenderAccountID).To(Equal(acct.ID))
			Expect(res.Transaction.ReceiverAccountID).To(Equal(acct.ID))
		})

		It("rejects withdrawal beyond the balance with no record or mutation", func() {
			acct := store.addAccount(customer.ID, "50.00", account.StatusActive)

			_, err := svc.Withdraw(ctx, customer, transaction.WithdrawDTO{
				AccountID: acct.ID,
				Amount:    decimal.RequireFromString("100.00"),
			})
			Expect(err).To(MatchError(account.ErrInsufficientFunds))
			Expect(repo.count()).To(Equal(0))
			Expect(store.balanceOf(acct.ID).String()).To(Equal("50"))
		})

		It("rejects amounts with more than two decimal places", func() {
			acct := store.addAccount(customer.ID, "100.00", account.StatusActive)

			_, err := svc.Deposit(ctx, customer, transaction.DepositDTO{
				AccountID: acct.ID,
				Amount:    decimal.RequireFromString("10.555"),
			})
			Expect(err).To(MatchError(transaction.ErrInvalidAmount))
		})

		It("accepts amounts whose extra decimal digits are all zero", func() {
			acct := store.addAccount(customer.ID, "100.00", account.StatusActive)

			// 10.5500000 is exactly 10.55; only the representation has
			// more than two places
			result, err := svc.Deposit(ctx, customer, transaction.DepositDTO{
				AccountID: acct.ID,
				Amount:    decimal.RequireFromString("10.5500000"),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.NewBalance.Equal(decimal.RequireFromString("110.55"))).To(BeTrue())
		})

		It("rejects zero and negative amounts", func() {
			acct := store.addAccount(customer.ID, "100.00", account.StatusActive)

			_, err := svc.Deposit(ctx, customer, transaction.DepositDTO{
				AccountID: acct.ID,
				Amount:    decimal.Zero,
			})
			Expect(err).To(MatchError(transaction.ErrInvalidAmount))

			_, err = svc.Withdraw(ctx, customer, transaction.WithdrawDTO{
				AccountID: acct.ID,
				Amount:    decimal.RequireFromString("-5.00"),
			})
			Expect(err).To(MatchError(transaction.ErrInvalidAmount))
		})

		It("rejects amounts above the configured maximum", func() {
			acct := store.addAccount(customer.ID, "0", account.StatusActive)

			_, err := svc.Deposit(ctx, customer, transaction.DepositDTO{
				AccountID: acct.ID,
				Amount:    decimal.RequireFromString("1000000.01"),
			})
			Expect(err).To(MatchError(transaction.ErrAmountExceedsLimit))
		})

		It("rejects operations on another user's account", func() {
			other := store.addAccount(42, "100.00", account.StatusActive)

			_, err := svc.Withdraw(ctx, customer, transaction.WithdrawDTO{
				AccountID: other.ID,
				Amount:    decimal.RequireFromString("10.00"),
			})
			Expect(err).To(MatchError(transaction.ErrOwnershipMismatch))
			Expect(repo.count()).To(Equal(0))
		})

		It("rejects any movement touching a frozen account regardless of balance", func() {
			frozen := store.addAccount(customer.ID, "1000.00", account.StatusFrozen)

			_, err := svc.Deposit(ctx, customer, transaction.DepositDTO{
				AccountID: frozen.ID,
				Amount:    decimal.RequireFromString("10.00"),
			})
			Expect(err).To(MatchError(transaction.ErrAccountNotActive))

			_, err = svc.Withdraw(ctx, customer, transaction.WithdrawDTO{
				AccountID: frozen.ID,
				Amount:    decimal.RequireFromString("10.00"),
			})
			Expect(err).To(MatchError(transaction.ErrAccountNotActive))
			Expect(repo.count()).To(Equal(0))
			Expect(store.balanceOf(frozen.ID).String()).To(Equal("1000"))
		})

		It("rejects callers without the operation permission", func() {
			acct := store.addAccount(customer.ID, "100.00", account.StatusActive)
			auditor := &auth.User{
				ID:          customer.ID,
				Email:       customer.Email,
				Roles:       []string{"auditor"},
				Permissions: auth.RolePermissionMap["auditor"],
			}

			_, err := svc.Withdraw(ctx, auditor, transaction.WithdrawDTO{
				AccountID: acct.ID,
				Amount:    decimal.RequireFromString("10.00"),
			})
			Expect(err).To(MatchError(auth.ErrPermissionDenied))
		})

		It("produces the same rejection when an identical request is resubmitted", func() {
			acct := store.addAccount(customer.ID, "50.00", account.StatusActive)
			dto := transaction.WithdrawDTO{
				AccountID: acct.ID,
				Amount:    decimal.RequireFromString("100.00"),
			}

			_, first := svc.Withdraw(ctx, customer, dto)
			_, second := svc.Withdraw(ctx, customer, dto)
			Expect(first).To(MatchError(account.ErrInsufficientFunds))
			Expect(second).To(MatchError(account.ErrInsufficientFunds))
			Expect(repo.count()).To(Equal(0))
			Expect(store.balanceOf(acct.ID).String()).To(Equal("50"))
		})
	})

	Describe("Topup", func() {
		It("lets an any-scope caller credit someone else's account", func() {
			acct := store.addAccount(customer.ID, "0", account.StatusActive)

			res, err := svc.Topup(ctx, admin, transaction.TopupDTO{
				AccountID: acct.ID,
				Amount:    decimal.RequireFromString("250.00"),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Transaction.Type).To(Equal(transaction.TypeDeposit))
			Expect(store.balanceOf(acct.ID).String()).To(Equal("250"))
		})

		It("denies top-up to callers without the override permission", func() {
			acct := store.addAccount(42, "0", account.StatusActive)

			_, err := svc.Topup(ctx, customer, transaction.TopupDTO{
				AccountID: acct.ID,
				Amount:    decimal.RequireFromString("250.00"),
			})
			Expect(err).To(MatchError(auth.ErrPermissionDenied))
		})
	})

	Describe("Transfers", func() {
		It("runs the internal transfer scenario", func() {
			a := store.addAccount(customer.ID, "500.00", account.StatusActive)
			b := store.addAccount(customer.ID, "0", account.StatusActive)

			res, err := svc.TransferInternal(ctx, customer, transaction.InternalTransferDTO{
				SourceAccountID:      a.ID,
				DestinationAccountID: b.ID,
				Amount:               decimal.RequireFromString("300.00"),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Transaction.Type).To(Equal(transaction.TypeInternal))
			Expect(store.balanceOf(a.ID).String()).To(Equal("200"))
			Expect(store.balanceOf(b.ID).String()).To(Equal("300"))
			Expect(repo.count()).To(Equal(1))
		})

		It("resolves external transfers by account number, any owner", func() {
			src := store.addAccount(customer.ID, "500.00", account.StatusActive)
			dst := store.addAccount(42, "0", account.StatusActive)

			res, err := svc.TransferExternal(ctx, customer, transaction.ExternalTransferDTO{
				SourceAccountID:          src.ID,
				DestinationAccountNumber: dst.AccountNumber,
				Amount:                   decimal.RequireFromString("120.00"),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Transaction.Type).To(Equal(transaction.TypeExternal))
			Expect(store.balanceOf(dst.ID).String()).To(Equal("120"))
		})

		It("rejects a transfer onto itself", func() {
			a := store.addAccount(customer.ID, "500.00", account.StatusActive)

			_, err := svc.TransferInternal(ctx, customer, transaction.InternalTransferDTO{
				SourceAccountID:      a.ID,
				DestinationAccountID: a.ID,
				Amount:               decimal.RequireFromString("10.00"),
			})
			Expect(err).To(MatchError(transaction.ErrSameAccountTransfer))
		})

		It("rejects a transfer from an account the caller does not own", func() {
			src := store.addAccount(42, "500.00", account.StatusActive)
			dst := store.addAccount(customer.ID, "0", account.StatusActive)

			_, err := svc.TransferInternal(ctx, customer, transaction.InternalTransferDTO{
				SourceAccountID:      src.ID,
				DestinationAccountID: dst.ID,
				Amount:               decimal.RequireFromString("10.00"),
			})
			Expect(err).To(MatchError(transaction.ErrOwnershipMismatch))
		})

		It("rejects transfers touching a frozen receiver", func() {
			src := store.addAccount(customer.ID, "500.00", account.StatusActive)
			dst := store.addAccount(42, "0", account.StatusFrozen)

			_, err := svc.TransferInternal(ctx, customer, transaction.InternalTransferDTO{
				SourceAccountID:      src.ID,
				DestinationAccountID: dst.ID,
				Amount:               decimal.RequireFromString("10.00"),
			})
			Expect(err).To(MatchError(transaction.ErrAccountNotActive))
			Expect(store.balanceOf(src.ID).String()).To(Equal("500"))
		})

		It("fully reverses the debit when the credit step fails", func() {
			src := store.addAccount(customer.ID, "500.00", account.StatusActive)
			dst := store.addAccount(customer.ID, "0", account.StatusActive)
			store.creditError[dst.ID] = errors.New("storage unavailable")

			_, err := svc.TransferInternal(ctx, customer, transaction.InternalTransferDTO{
				SourceAccountID:      src.ID,
				DestinationAccountID: dst.ID,
				Amount:               decimal.RequireFromString("300.00"),
			})
			Expect(err).To(HaveOccurred())
			Expect(store.balanceOf(src.ID).String()).To(Equal("500"))
			Expect(store.balanceOf(dst.ID).String()).To(Equal("0"))
			Expect(repo.count()).To(Equal(0))
		})

		It("reverses both mutations when the record insert fails", func() {
			src := store.addAccount(customer.ID, "500.00", account.StatusActive)
			dst := store.addAccount(customer.ID, "0", account.StatusActive)
			repo.createError = errors.New("storage unavailable")

			_, err := svc.TransferInternal(ctx, customer, transaction.InternalTransferDTO{
				SourceAccountID:      src.ID,
				DestinationAccountID: dst.ID,
				Amount:               decimal.RequireFromString("300.00"),
			})
			Expect(err).To(HaveOccurred())
			Expect(store.balanceOf(src.ID).String()).To(Equal("500"))
			Expect(store.balanceOf(dst.ID).String()).To(Equal("0"))
		})

		It("conserves money across any sequence of committed transfers", func() {
			a := store.addAccount(customer.ID, "0", account.StatusActive)
			b := store.addAccount(customer.ID, "0", account.StatusActive)
			c := store.addAccount(42, "0", account.StatusActive)
			other := &auth.User{
				ID:          42,
				Email:       "bob@example.com",
				Roles:       []string{"customer"},
				Permissions: auth.RolePermissionMap["customer"],
			}

			_, err := svc.Deposit(ctx, customer, transaction.DepositDTO{
				AccountID: a.ID, Amount: decimal.RequireFromString("1000.00"),
			})
			Expect(err).NotTo(HaveOccurred())

			_, err = svc.TransferInternal(ctx, customer, transaction.InternalTransferDTO{
				SourceAccountID: a.ID, DestinationAccountID: b.ID,
				Amount: decimal.RequireFromString("400.00"),
			})
			Expect(err).NotTo(HaveOccurred())

			_, err = svc.TransferExternal(ctx, customer, transaction.ExternalTransferDTO{
				SourceAccountID: b.ID, DestinationAccountNumber: c.AccountNumber,
				Amount: decimal.RequireFromString("150.00"),
			})
			Expect(err).NotTo(HaveOccurred())

			_, err = svc.Withdraw(ctx, other, transaction.WithdrawDTO{
				AccountID: c.ID, Amount: decimal.RequireFromString("50.00"),
			})
			Expect(err).NotTo(HaveOccurred())

			// deposits minus withdrawals; transfers net to zero
			Expect(store.totalBalance().String()).To(Equal("950"))
		})
	})

	Describe("Concurrent withdrawals", func() {
		It("commits exactly one of N racing withdrawals against one balance", func() {
			acct := store.addAccount(customer.ID, "100.00", account.StatusActive)
			const racers = 8

			var wg sync.WaitGroup
			errs := make([]error, racers)
			for i := 0; i < racers; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					defer GinkgoRecover()
					_, errs[i] = svc.Withdraw(ctx, customer, transaction.WithdrawDTO{
						AccountID: acct.ID,
						Amount:    decimal.RequireFromString("100.00"),
					})
				}(i)
			}
			wg.Wait()

			committed := 0
			for _, err := range errs {
				if err == nil {
					committed++
				} else {
					Expect(err).To(MatchError(account.ErrInsufficientFunds))
				}
			}
			Expect(committed).To(Equal(1))
			Expect(store.balanceOf(acct.ID).String()).To(Equal("0"))
			Expect(repo.count()).To(Equal(1))
		})
	})

	Describe("History", func() {
		It("scopes listing to the caller's accounts most recent first", func() {
			mine := store.addAccount(customer.ID, "0", account.StatusActive)
			theirs := store.addAccount(42, "0", account.StatusActive)
			other := &auth.User{
				ID:          42,
				Email:       "bob@example.com",
				Roles:       []string{"customer"},
				Permissions: auth.RolePermissionMap["customer"],
			}

			_, err := svc.Deposit(ctx, customer, transaction.DepositDTO{
				AccountID: mine.ID, Amount: decimal.RequireFromString("10.00"),
			})
			Expect(err).NotTo(HaveOccurred())
			_, err = svc.Deposit(ctx, other, transaction.DepositDTO{
				AccountID: theirs.ID, Amount: decimal.RequireFromString("20.00"),
			})
			Expect(err).NotTo(HaveOccurred())

			txs, err := svc.List(ctx, customer, transaction.Filter{})
			Expect(err).NotTo(HaveOccurred())
			Expect(txs).To(HaveLen(1))
			Expect(txs[0].SenderAccountID).To(Equal(mine.ID))
		})

		It("gives any-scope callers the full history", func() {
			mine := store.addAccount(customer.ID, "0", account.StatusActive)
			_, err := svc.Deposit(ctx, customer, transaction.DepositDTO{
				AccountID: mine.ID, Amount: decimal.RequireFromString("10.00"),
			})
			Expect(err).NotTo(HaveOccurred())

			txs, err := svc.ListAll(ctx, admin, transaction.Filter{})
			Expect(err).NotTo(HaveOccurred())
			Expect(txs).To(HaveLen(1))
		})

		It("denies the admin view to plain customers", func() {
			_, err := svc.ListAll(ctx, customer, transaction.Filter{})
			Expect(err).To(MatchError(auth.ErrPermissionDenied))
		})
	})
})
