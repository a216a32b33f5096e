package nats

import (
	"time"

	"github.com/brojonat/solxfer/service/db"
)

// TransferEvent represents a submitted transfer published to NATS.
// This is published to the subject "transfers.{signer}" in JetStream.
type TransferEvent struct {
	Signature string `json:"signature"`
	Signer    string `json:"signer"`

	// Accounts
	Source           string `json:"source"`
	Destination      string `json:"destination"`
	DestinationOwner string `json:"destination_owner"`

	// Amount in raw units; Decimals gives its precision.
	Amount    uint64 `json:"amount"`
	Decimals  uint8  `json:"decimals"`
	TokenType string `json:"token_type"` // mint address, or "SOL"
	ProgramID string `json:"program_id"`

	// Outcome
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`

	Timestamp   time.Time `json:"timestamp"`
	PublishedAt time.Time `json:"published_at"`
}

// Subject returns the JetStream subject the event is published to.
func (e *TransferEvent) Subject() string {
	return SubjectPrefix + e.Signer
}

// FromDBTransfer converts a recorded transfer to a TransferEvent for publishing.
func FromDBTransfer(t *db.Transfer) *TransferEvent {
	event := &TransferEvent{
		Signature:        t.Signature,
		Signer:           t.Signer,
		Source:           t.Source,
		Destination:      t.Destination,
		DestinationOwner: t.DestinationOwner,
		Amount:           t.Amount,
		Decimals:         t.Decimals,
		TokenType:        "SOL",
		ProgramID:        t.ProgramID,
		Success:          t.Success,
		Timestamp:        t.CreatedAt,
		PublishedAt:      time.Now().UTC(),
	}

	if t.TokenMint != nil {
		event.TokenType = *t.TokenMint
	}
	if t.Error != nil {
		event.Error = *t.Error
	}

	return event
}
