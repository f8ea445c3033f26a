package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeAuditEntry           = "audit.entry"
	EventTypeTransactionCommitted = "transaction.committed"
)

// AuditEntryEvent carries one audit entry onto the bus. Publishing is
// fire-and-forget: a failed audit write must never surface into the
// operation being audited.
type AuditEntryEvent struct {
	BaseEvent
	Entry interface{} `json:"entry"`
}

func NewAuditEntryEvent(entry interface{}) *AuditEntryEvent {
	return &AuditEntryEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeAuditEntry,
			Timestamp: time.Now(),
			Data:      map[string]interface{}{"entry": entry},
		},
		Entry: entry,
	}
}

// TransactionCommittedEvent is published after a money movement has
// fully committed, for interested read-side consumers.
type TransactionCommittedEvent struct {
	BaseEvent
	TransactionID   int64  `json:"transaction_id"`
	TransactionType string `json:"transaction_type"`
	SenderID        int64  `json:"sender_account_id"`
	ReceiverID      int64  `json:"receiver_account_id"`
	Amount          string `json:"amount"`
}

func NewTransactionCommittedEvent(txID int64, txType string, senderID, receiverID int64, amount string) *TransactionCommittedEvent {
	return &TransactionCommittedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeTransactionCommitted,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"transaction_id":      txID,
				"transaction_type":    txType,
				"sender_account_id":   senderID,
				"receiver_account_id": receiverID,
				"amount":              amount,
			},
		},
		TransactionID:   txID,
		TransactionType: txType,
		SenderID:        senderID,
		ReceiverID:      receiverID,
		Amount:          amount,
	}
}
