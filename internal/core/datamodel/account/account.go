package account

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is the ledger's balance row. Balance only moves through the
// repository's ApplyMutation; version is the optimistic-lock counter
// that keeps per-account mutations linearizable.
type Account struct {
	ID            int64           `gorm:"primaryKey"`
	AccountNumber string          `gorm:"column:account_number;uniqueIndex;not null"`
	UserID        int64           `gorm:"column:user_id;index;not null"`
	Type          string          `gorm:"column:type;not null"`
	Balance       decimal.Decimal `gorm:"column:balance;type:numeric(18,2);not null"`
	Status        string          `gorm:"column:status;not null;default:Active"`
	Version       int64           `gorm:"column:version;not null;default:0"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (Account) TableName() string {
	return "accounts"
}
