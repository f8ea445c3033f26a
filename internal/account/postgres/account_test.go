package postgres

import (
	"context"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/safebank/banking/internal/account"
)

func TestAccountRepository(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Account Repository Suite")
}

type SQLiteAccount struct {
	ID            int64     `gorm:"primaryKey"`
	AccountNumber string    `gorm:"column:account_number;uniqueIndex;not null"`
	UserID        int64     `gorm:"column:user_id;index;not null"`
	Type          string    `gorm:"column:type;not null"`
	Balance       string    `gorm:"column:balance;not null"`
	Status        string    `gorm:"column:status;not null;default:'Active'"`
	Version       int64     `gorm:"column:version;not null;default:0"`
	CreatedAt     time.Time `gorm:"column:created_at"`
}

func (SQLiteAccount) TableName() string {
	return "accounts"
}

var _ = Describe("AccountRepository", func() {
	var (
		db   *gorm.DB
		repo account.Repository
		ctx  context.Context
	)

	BeforeEach(func() {
		var err error
		db, err = gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(db.Migrator().DropTable(&SQLiteAccount{})).To(Succeed())
		Expect(db.AutoMigrate(&SQLiteAccount{})).To(Succeed())

		repo = NewAccountRepository(db, 5)
		ctx = context.Background()
	})

	Describe("Create", func() {
		It("opens accounts with zero balance and sequential numbers per owner", func() {
			first, err := repo.Create(ctx, 7, account.TypeChecking)
			Expect(err).NotTo(HaveOccurred())
			Expect(first.AccountNumber).To(Equal("ACCT-7-1"))
			Expect(first.Balance.IsZero()).To(BeTrue())
			Expect(first.Status).To(Equal(account.StatusActive))

			second, err := repo.Create(ctx, 7, account.TypeSavings)
			Expect(err).NotTo(HaveOccurred())
			Expect(second.AccountNumber).To(Equal("ACCT-7-2"))

			other, err := repo.Create(ctx, 8, account.TypeChecking)
			Expect(err).NotTo(HaveOccurred())
			Expect(other.AccountNumber).To(Equal("ACCT-8-1"))
		})

		It("steps past a number a concurrent open already claimed", func() {
			// a competing create counted one row and inserted ACCT-7-2
			// before our count ran, so count+1 lands on a taken number
			Expect(db.Create(&SQLiteAccount{
				AccountNumber: "ACCT-7-2",
				UserID:        7,
				Type:          account.TypeChecking,
				Balance:       "0",
				Status:        account.StatusActive,
			}).Error).To(Succeed())

			created, err := repo.Create(ctx, 7, account.TypeSavings)
			Expect(err).NotTo(HaveOccurred())
			Expect(created.AccountNumber).To(Equal("ACCT-7-3"))
		})
	})

	Describe("Lookups", func() {
		It("finds accounts by id, number and owner", func() {
			created, err := repo.Create(ctx, 7, account.TypeChecking)
			Expect(err).NotTo(HaveOccurred())

			byID, err := repo.GetByID(ctx, created.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(byID.AccountNumber).To(Equal(created.AccountNumber))

			byNumber, err := repo.GetByNumber(ctx, created.AccountNumber)
			Expect(err).NotTo(HaveOccurred())
			Expect(byNumber.ID).To(Equal(created.ID))

			owned, err := repo.GetByUserID(ctx, 7)
			Expect(err).NotTo(HaveOccurred())
			Expect(owned).To(HaveLen(1))
		})

		It("returns a typed error for unknown accounts", func() {
			_, err := repo.GetByID(ctx, 12345)
			Expect(err).To(MatchError(account.ErrNotFound))

			_, err = repo.GetByNumber(ctx, "ACCT-0-0")
			Expect(err).To(MatchError(account.ErrNotFound))
		})
	})

	Describe("ApplyMutation", func() {
		It("credits and debits with version bumps", func() {
			acct, err := repo.Create(ctx, 7, account.TypeChecking)
			Expect(err).NotTo(HaveOccurred())

			credited, err := repo.ApplyMutation(ctx, acct.ID, decimal.RequireFromString("100.50"), account.StatusActive)
			Expect(err).NotTo(HaveOccurred())
			Expect(credited.Balance.String()).To(Equal("100.5"))

			debited, err := repo.ApplyMutation(ctx, acct.ID, decimal.RequireFromString("-40.25"), account.StatusActive)
			Expect(err).NotTo(HaveOccurred())
			Expect(debited.Balance.String()).To(Equal("60.25"))

			var row SQLiteAccount
			Expect(db.First(&row, acct.ID).Error).To(Succeed())
			Expect(row.Version).To(Equal(int64(2)))
		})

		It("never lets a balance go negative", func() {
			acct, err := repo.Create(ctx, 7, account.TypeChecking)
			Expect(err).NotTo(HaveOccurred())

			_, err = repo.ApplyMutation(ctx, acct.ID, decimal.RequireFromString("50.00"), account.StatusActive)
			Expect(err).NotTo(HaveOccurred())

			_, err = repo.ApplyMutation(ctx, acct.ID, decimal.RequireFromString("-50.01"), account.StatusActive)
			Expect(err).To(MatchError(account.ErrInsufficientFunds))

			current, err := repo.GetByID(ctx, acct.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(current.Balance.String()).To(Equal("50"))
		})

		It("refuses mutations when the status does not match", func() {
			acct, err := repo.Create(ctx, 7, account.TypeChecking)
			Expect(err).NotTo(HaveOccurred())

			_, err = repo.SetStatus(ctx, acct.ID, account.StatusFrozen)
			Expect(err).NotTo(HaveOccurred())

			_, err = repo.ApplyMutation(ctx, acct.ID, decimal.RequireFromString("10.00"), account.StatusActive)
			Expect(err).To(MatchError(account.ErrStatusMismatch))
		})

		It("returns a typed error for unknown accounts", func() {
			_, err := repo.ApplyMutation(ctx, 12345, decimal.RequireFromString("10.00"), account.StatusActive)
			Expect(err).To(MatchError(account.ErrNotFound))
		})
	})

	Describe("SetStatus", func() {
		It("freezes and closes without touching the balance", func() {
			acct, err := repo.Create(ctx, 7, account.TypeChecking)
			Expect(err).NotTo(HaveOccurred())
			_, err = repo.ApplyMutation(ctx, acct.ID, decimal.RequireFromString("75.00"), account.StatusActive)
			Expect(err).NotTo(HaveOccurred())

			frozen, err := repo.SetStatus(ctx, acct.ID, account.StatusFrozen)
			Expect(err).NotTo(HaveOccurred())
			Expect(frozen.Status).To(Equal(account.StatusFrozen))
			Expect(frozen.Balance.String()).To(Equal("75"))

			closed, err := repo.SetStatus(ctx, acct.ID, account.StatusClosed)
			Expect(err).NotTo(HaveOccurred())
			Expect(closed.Status).To(Equal(account.StatusClosed))
		})
	})
})
