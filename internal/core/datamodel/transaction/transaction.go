package transaction

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction rows are append-only; deposits and withdrawals store the
// same account on both sides to keep one record schema.
type Transaction struct {
	ID                int64           `gorm:"primaryKey"`
	SenderAccountID   int64           `gorm:"column:sender_account_id;index;not null"`
	ReceiverAccountID int64           `gorm:"column:receiver_account_id;index;not null"`
	Amount            decimal.Decimal `gorm:"column:amount;type:numeric(18,2);not null"`
	Type              string          `gorm:"column:type;not null"`
	Description       string          `gorm:"column:description"`
	Timestamp         time.Time       `gorm:"column:timestamp;index;autoCreateTime"`
}

func (Transaction) TableName() string {
	return "transactions"
}
