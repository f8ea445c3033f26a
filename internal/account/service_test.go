package account_test

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/safebank/banking/internal/account"
	"github.com/safebank/banking/internal/auth"
)

func TestAccountService(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Account Service Suite")
}

type mockAccountRepo struct {
	accounts map[int64]*account.Account
	nextID   int64
}

func newMockAccountRepo() *mockAccountRepo {
	return &mockAccountRepo{accounts: make(map[int64]*account.Account), nextID: 1}
}

func (m *mockAccountRepo) Create(ctx context.Context, ownerID int64, accountType string) (*account.Account, error) {
	var seq int64
	for _, a := range m.accounts {
		if a.UserID == ownerID {
			seq++
		}
	}
	acct := &account.Account{
		ID:            m.nextID,
		AccountNumber: account.FormatNumber(ownerID, seq+1),
		UserID:        ownerID,
		Type:          accountType,
		Balance:       decimal.Zero,
		Status:        account.StatusActive,
		CreatedAt:     time.Now(),
	}
	m.accounts[acct.ID] = acct
	m.nextID++
	return acct, nil
}

func (m *mockAccountRepo) GetByID(ctx context.Context, id int64) (*account.Account, error) {
	acct, ok := m.accounts[id]
	if !ok {
		return nil, account.ErrNotFound
	}
	return acct, nil
}

func (m *mockAccountRepo) GetByNumber(ctx context.Context, number string) (*account.Account, error) {
	for _, a := range m.accounts {
		if a.AccountNumber == number {
			return a, nil
		}
	}
	return nil, account.ErrNotFound
}

func (m *mockAccountRepo) GetByUserID(ctx context.Context, userID int64) ([]*account.Account, error) {
	var out []*account.Account
	for _, a := range m.accounts {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *mockAccountRepo) ListAll(ctx context.Context) ([]*account.Account, error) {
	out := make([]*account.Account, 0, len(m.accounts))
	for _, a := range m.accounts {
		out = append(out, a)
	}
	return out, nil
}

func (m *mockAccountRepo) ApplyMutation(ctx context.Context, id int64, delta decimal.Decimal, expectedStatus string) (*account.Account, error) {
	acct, ok := m.accounts[id]
	if !ok {
		return nil, account.ErrNotFound
	}
	acct.Balance = acct.Balance.Add(delta)
	return acct, nil
}

func (m *mockAccountRepo) SetStatus(ctx context.Context, id int64, status string) (*account.Account, error) {
	acct, ok := m.accounts[id]
	if !ok {
		return nil, account.ErrNotFound
	}
	acct.Status = status
	return acct, nil
}

var _ = Describe("AccountService", func() {
	var (
		svc      *account.Service
		repo     *mockAccountRepo
		customer *auth.User
		admin    *auth.User
		ctx      context.Context
	)

	BeforeEach(func() {
		repo = newMockAccountRepo()
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		svc = account.NewService(repo, auth.NewEngine(), nil, logger)
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

	Describe("CreateOwn", func() {
		It("opens an active zero-balance account for the caller", func() {
			acct, err := svc.CreateOwn(ctx, customer, account.CreateAccountDTO{Type: account.TypeChecking})
			Expect(err).NotTo(HaveOccurred())
			Expect(acct.UserID).To(Equal(customer.ID))
			Expect(acct.Status).To(Equal(account.StatusActive))
			Expect(acct.Balance.IsZero()).To(BeTrue())
		})

		It("rejects unknown account types", func() {
			_, err := svc.CreateOwn(ctx, customer, account.CreateAccountDTO{Type: "offshore"})
			Expect(err).To(BeAssignableToTypeOf(account.ValidationError{}))
		})

		It("denies callers without the create permission", func() {
			auditor := &auth.User{ID: 2, Permissions: auth.RolePermissionMap["auditor"]}
			_, err := svc.CreateOwn(ctx, auditor, account.CreateAccountDTO{Type: account.TypeChecking})
			Expect(err).To(MatchError(auth.ErrPermissionDenied))
		})
	})

	Describe("CreateFor", func() {
		It("lets an any-scope caller open an account for another user", func() {
			acct, err := svc.CreateFor(ctx, admin, account.AdminCreateAccountDTO{UserID: 42, Type: account.TypeSavings})
			Expect(err).NotTo(HaveOccurred())
			Expect(acct.UserID).To(Equal(int64(42)))
		})

		It("denies plain customers", func() {
			_, err := svc.CreateFor(ctx, customer, account.AdminCreateAccountDTO{UserID: 42, Type: account.TypeSavings})
			Expect(err).To(MatchError(auth.ErrPermissionDenied))
		})
	})

	Describe("ListAll", func() {
		It("returns every account to any-scope callers", func() {
			_, err := svc.CreateOwn(ctx, customer, account.CreateAccountDTO{Type: account.TypeChecking})
			Expect(err).NotTo(HaveOccurred())
			_, err = svc.CreateFor(ctx, admin, account.AdminCreateAccountDTO{UserID: 42, Type: account.TypeSavings})
			Expect(err).NotTo(HaveOccurred())

			all, err := svc.ListAll(ctx, admin)
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(HaveLen(2))
		})

		It("denies own-scope callers", func() {
			_, err := svc.ListAll(ctx, customer)
			Expect(err).To(MatchError(auth.ErrPermissionDenied))
		})
	})

	Describe("Get", func() {
		It("enforces ownership for own-scope callers", func() {
			mine, err := svc.CreateOwn(ctx, customer, account.CreateAccountDTO{Type: account.TypeChecking})
			Expect(err).NotTo(HaveOccurred())
			theirs, err := svc.CreateFor(ctx, admin, account.AdminCreateAccountDTO{UserID: 42, Type: account.TypeChecking})
			Expect(err).NotTo(HaveOccurred())

			got, err := svc.Get(ctx, customer, mine.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.ID).To(Equal(mine.ID))

			_, err = svc.Get(ctx, customer, theirs.ID)
			Expect(err).To(MatchError(auth.ErrPermissionDenied))

			got, err = svc.Get(ctx, admin, theirs.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.ID).To(Equal(theirs.ID))
		})
	})

	Describe("SetFreezeStatus", func() {
		It("freezes and unfreezes through the any scope", func() {
			acct, err := svc.CreateOwn(ctx, customer, account.CreateAccountDTO{Type: account.TypeChecking})
			Expect(err).NotTo(HaveOccurred())

			frozen, err := svc.SetFreezeStatus(ctx, admin, account.FreezeStatusDTO{AccountID: acct.ID, Freeze: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(frozen.Status).To(Equal(account.StatusFrozen))

			active, err := svc.SetFreezeStatus(ctx, admin, account.FreezeStatusDTO{AccountID: acct.ID, Freeze: false})
			Expect(err).NotTo(HaveOccurred())
			Expect(active.Status).To(Equal(account.StatusActive))
		})

		It("denies customers", func() {
			acct, err := svc.CreateOwn(ctx, customer, account.CreateAccountDTO{Type: account.TypeChecking})
			Expect(err).NotTo(HaveOccurred())

			_, err = svc.SetFreezeStatus(ctx, customer, account.FreezeStatusDTO{AccountID: acct.ID, Freeze: true})
			Expect(err).To(MatchError(auth.ErrPermissionDenied))
		})

		It("refuses to reopen a closed account", func() {
			acct, err := svc.CreateOwn(ctx, customer, account.CreateAccountDTO{Type: account.TypeChecking})
			Expect(err).NotTo(HaveOccurred())

			_, err = svc.Close(ctx, admin, acct.ID)
			Expect(err).NotTo(HaveOccurred())

			_, err = svc.SetFreezeStatus(ctx, admin, account.FreezeStatusDTO{AccountID: acct.ID, Freeze: false})
			Expect(err).To(MatchError(account.ErrStatusMismatch))
		})
	})
})
